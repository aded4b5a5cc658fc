package payment

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

const paymentColumns = `id::text, organization_id::text, cart_id::text, payment_method_id, amount, currency, status, payment_type,
	proof_url, transaction_id, external_reference, notes, confirmed_at, payment_date, created_at, updated_at`

func scanPayment(row pgx.Row, p *domain.Payment) error {
	return row.Scan(
		&p.ID,
		&p.OrganizationID,
		&p.CartID,
		&p.PaymentMethodID,
		&p.Amount,
		&p.Currency,
		&p.Status,
		&p.PaymentType,
		&p.ProofURL,
		&p.TransactionID,
		&p.ExternalReference,
		&p.Notes,
		&p.ConfirmedAt,
		&p.PaymentDate,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

func (r *postgresRepo) Create(ctx context.Context, p domain.Payment) (*domain.Payment, error) {
	q := `
INSERT INTO payments (organization_id, cart_id, payment_method_id, amount, currency, status, payment_type,
	proof_url, transaction_id, external_reference, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + paymentColumns
	var out domain.Payment
	if err := scanPayment(r.pool.QueryRow(ctx, q,
		p.OrganizationID,
		p.CartID,
		p.PaymentMethodID,
		p.Amount,
		p.Currency,
		p.Status,
		p.PaymentType,
		p.ProofURL,
		p.TransactionID,
		p.ExternalReference,
		p.Notes,
	), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, organizationID, id string) (*domain.Payment, error) {
	q := `
SELECT ` + paymentColumns + `
FROM payments
WHERE organization_id = $1 AND id = $2
`
	var p domain.Payment
	if err := scanPayment(r.pool.QueryRow(ctx, q, organizationID, id), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepo) ListByCart(ctx context.Context, organizationID, cartID string) ([]domain.Payment, error) {
	q := `
SELECT ` + paymentColumns + `
FROM payments
WHERE organization_id = $1 AND cart_id = $2
ORDER BY created_at DESC
`
	rows, err := r.pool.Query(ctx, q, organizationID, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []domain.Payment{}
	for rows.Next() {
		var p domain.Payment
		if err := scanPayment(rows, &p); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *postgresRepo) Update(ctx context.Context, p *domain.Payment) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE payments
SET status = $3,
    proof_url = $4,
    transaction_id = $5,
    external_reference = $6,
    notes = $7,
    confirmed_at = $8,
    payment_date = $9,
    updated_at = $10
WHERE organization_id = $1 AND id = $2
`,
		p.OrganizationID,
		p.ID,
		p.Status,
		p.ProofURL,
		p.TransactionID,
		p.ExternalReference,
		p.Notes,
		p.ConfirmedAt,
		p.PaymentDate,
		p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
