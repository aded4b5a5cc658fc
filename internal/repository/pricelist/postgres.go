package pricelist

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"quote-commerce/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

const listColumns = `id::text, organization_id::text, name, currency, is_default, status, pricing_tax_mode, created_at, updated_at`

const conditionColumns = `id::text, price_list_id::text, status, condition_type, operator, condition_value, valid_from, valid_to, created_at`

func scanList(row pgx.Row, l *domain.PriceList) error {
	return row.Scan(&l.ID, &l.OrganizationID, &l.Name, &l.Currency, &l.IsDefault, &l.Status, &l.PricingTaxMode, &l.CreatedAt, &l.UpdatedAt)
}

func scanCondition(row pgx.Row, c *domain.PriceListCondition) error {
	return row.Scan(&c.ID, &c.PriceListID, &c.Status, &c.ConditionType, &c.Operator, &c.ConditionValue, &c.ValidFrom, &c.ValidTo, &c.CreatedAt)
}

// uniqueViolation maps the one-default index and similar constraints to ErrConflict.
func uniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.Conflict("%s", pgErr.Detail)
	}
	return err
}

func (r *postgresRepo) List(ctx context.Context, organizationID string, status domain.PriceListStatus) ([]domain.PriceList, error) {
	q := `
SELECT ` + listColumns + `
FROM price_lists
WHERE organization_id = $1 AND ($2::text = '' OR status = $2::text)
ORDER BY created_at ASC, id ASC
`
	rows, err := r.pool.Query(ctx, q, organizationID, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lists := []domain.PriceList{}
	index := map[string]int{}
	for rows.Next() {
		var l domain.PriceList
		if err := scanList(rows, &l); err != nil {
			return nil, err
		}
		l.Conditions = []domain.PriceListCondition{}
		index[l.ID] = len(lists)
		lists = append(lists, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(lists) == 0 {
		return lists, nil
	}

	condQuery := `
SELECT c.id::text, c.price_list_id::text, c.status, c.condition_type, c.operator, c.condition_value, c.valid_from, c.valid_to, c.created_at
FROM price_list_conditions c
JOIN price_lists l ON l.id = c.price_list_id
WHERE l.organization_id = $1
ORDER BY c.created_at ASC, c.id ASC
`
	condRows, err := r.pool.Query(ctx, condQuery, organizationID)
	if err != nil {
		return nil, err
	}
	defer condRows.Close()
	for condRows.Next() {
		var c domain.PriceListCondition
		if err := scanCondition(condRows, &c); err != nil {
			return nil, err
		}
		if i, ok := index[c.PriceListID]; ok {
			lists[i].Conditions = append(lists[i].Conditions, c)
		}
	}
	return lists, condRows.Err()
}

func (r *postgresRepo) GetByID(ctx context.Context, organizationID, id string) (*domain.PriceList, error) {
	q := `
SELECT ` + listColumns + `
FROM price_lists
WHERE organization_id = $1 AND id = $2
`
	var l domain.PriceList
	if err := scanList(r.pool.QueryRow(ctx, q, organizationID, id), &l); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	condQuery := `
SELECT ` + conditionColumns + `
FROM price_list_conditions
WHERE price_list_id = $1
ORDER BY created_at ASC
`
	rows, err := r.pool.Query(ctx, condQuery, l.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	l.Conditions = []domain.PriceListCondition{}
	for rows.Next() {
		var c domain.PriceListCondition
		if err := scanCondition(rows, &c); err != nil {
			return nil, err
		}
		l.Conditions = append(l.Conditions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &l, nil
}

// Create inserts the list. A default list replaces the previous default in the same transaction.
func (r *postgresRepo) Create(ctx context.Context, list domain.PriceList) (*domain.PriceList, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if list.IsDefault {
		if err := clearDefault(ctx, tx, list.OrganizationID); err != nil {
			return nil, err
		}
	}

	q := `
INSERT INTO price_lists (organization_id, name, currency, is_default, status, pricing_tax_mode)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + listColumns
	var out domain.PriceList
	if err := scanList(tx.QueryRow(ctx, q,
		list.OrganizationID,
		list.Name,
		list.Currency,
		list.IsDefault,
		list.Status,
		list.PricingTaxMode,
	), &out); err != nil {
		return nil, uniqueViolation(err)
	}

	out.Conditions = []domain.PriceListCondition{}
	for _, cond := range list.Conditions {
		cond.PriceListID = out.ID
		created, err := insertCondition(ctx, tx, cond)
		if err != nil {
			return nil, err
		}
		out.Conditions = append(out.Conditions, *created)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update writes name, currency, status and tax mode. The default flag is changed only through SetDefault.
func (r *postgresRepo) Update(ctx context.Context, list domain.PriceList) (*domain.PriceList, error) {
	q := `
UPDATE price_lists
SET name = $3, currency = $4, status = $5, pricing_tax_mode = $6, updated_at = now()
WHERE organization_id = $1 AND id = $2
RETURNING ` + listColumns
	var out domain.PriceList
	if err := scanList(r.pool.QueryRow(ctx, q,
		list.OrganizationID,
		list.ID,
		list.Name,
		list.Currency,
		list.Status,
		list.PricingTaxMode,
	), &out); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return r.GetByID(ctx, out.OrganizationID, out.ID)
}

func (r *postgresRepo) SetDefault(ctx context.Context, organizationID, id string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := clearDefault(ctx, tx, organizationID); err != nil {
		return err
	}
	cmd, err := tx.Exec(ctx, `
UPDATE price_lists
SET is_default = TRUE, updated_at = now()
WHERE organization_id = $1 AND id = $2
`, organizationID, id)
	if err != nil {
		return uniqueViolation(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return tx.Commit(ctx)
}

func (r *postgresRepo) Delete(ctx context.Context, organizationID, id string) error {
	cmd, err := r.pool.Exec(ctx, `
DELETE FROM price_lists
WHERE organization_id = $1 AND id = $2 AND NOT is_default
`, organizationID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var isDefault bool
		err := r.pool.QueryRow(ctx, `SELECT is_default FROM price_lists WHERE organization_id = $1 AND id = $2`, organizationID, id).Scan(&isDefault)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		return domain.Conflict("default price list %s cannot be deleted", id)
	}
	return nil
}

func (r *postgresRepo) AddCondition(ctx context.Context, cond domain.PriceListCondition) (*domain.PriceListCondition, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	out, err := insertCondition(ctx, tx, cond)
	if err != nil {
		return nil, err
	}
	return out, tx.Commit(ctx)
}

func (r *postgresRepo) DeleteCondition(ctx context.Context, priceListID, conditionID string) error {
	cmd, err := r.pool.Exec(ctx, `
DELETE FROM price_list_conditions
WHERE price_list_id = $1 AND id = $2
`, priceListID, conditionID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func clearDefault(ctx context.Context, tx pgx.Tx, organizationID string) error {
	_, err := tx.Exec(ctx, `
UPDATE price_lists
SET is_default = FALSE, updated_at = now()
WHERE organization_id = $1 AND is_default
`, organizationID)
	return err
}

func insertCondition(ctx context.Context, tx pgx.Tx, cond domain.PriceListCondition) (*domain.PriceListCondition, error) {
	if cond.Status == "" {
		cond.Status = domain.PriceListStatusActive
	}
	if cond.ConditionValue == nil {
		cond.ConditionValue = domain.ConditionValue{}
	}
	q := `
INSERT INTO price_list_conditions (price_list_id, status, condition_type, operator, condition_value, valid_from, valid_to)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + conditionColumns
	var out domain.PriceListCondition
	if err := scanCondition(tx.QueryRow(ctx, q,
		cond.PriceListID,
		cond.Status,
		cond.ConditionType,
		cond.Operator,
		cond.ConditionValue,
		cond.ValidFrom,
		cond.ValidTo,
	), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
