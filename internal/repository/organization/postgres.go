package organization

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"quote-commerce/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	const q = `
SELECT id::text, name, created_at
FROM organizations
WHERE id = $1
`
	var o domain.Organization
	err := r.pool.QueryRow(ctx, q, id).Scan(&o.ID, &o.Name, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *postgresRepo) Create(ctx context.Context, org *domain.Organization) (*domain.Organization, error) {
	const q = `
INSERT INTO organizations (name)
VALUES ($1)
RETURNING id::text, created_at
`
	out := domain.Organization{Name: org.Name}
	if err := r.pool.QueryRow(ctx, q, org.Name).Scan(&out.ID, &out.CreatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.Organization, error) {
	const q = `
SELECT id::text, name, created_at
FROM organizations
ORDER BY created_at ASC
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Organization
	for rows.Next() {
		var o domain.Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
