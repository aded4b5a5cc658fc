package cart

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"quote-commerce/internal/domain"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger}
}

const cartColumns = `id::text, organization_id::text, customer_type, status, currency, total_items, total_price,
	original_total_price, applied_price_list_id::text, valid_until, price_validated_at,
	price_change_approved, price_change_approved_at, customization, created_at, updated_at`

const itemColumns = `id::text, cart_id::text, product_id::text, name, sku, size, color, price, quantity, max_stock, image_url, created_at`

func scanCart(row pgx.Row, c *domain.Cart) error {
	return row.Scan(
		&c.ID,
		&c.OrganizationID,
		&c.CustomerType,
		&c.Status,
		&c.Currency,
		&c.TotalItems,
		&c.TotalPrice,
		&c.OriginalTotalPrice,
		&c.AppliedPriceListID,
		&c.ValidUntil,
		&c.PriceValidatedAt,
		&c.PriceChangeApproved,
		&c.PriceChangeApprovedAt,
		&c.Customization,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
}

func customization(c *domain.Cart) map[string]interface{} {
	if c.Customization == nil {
		return map[string]interface{}{}
	}
	return c.Customization
}

func (r *postgresRepo) Create(ctx context.Context, cart *domain.Cart, changes ...domain.CartChange) (*domain.Cart, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	q := `
INSERT INTO carts (organization_id, customer_type, status, currency, total_items, total_price,
	original_total_price, applied_price_list_id, valid_until, customization)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + cartColumns
	var out domain.Cart
	if err := scanCart(tx.QueryRow(ctx, q,
		cart.OrganizationID,
		cart.CustomerType,
		cart.Status,
		cart.Currency,
		cart.TotalItems,
		cart.TotalPrice,
		cart.OriginalTotalPrice,
		cart.AppliedPriceListID,
		cart.ValidUntil,
		customization(cart),
	), &out); err != nil {
		r.logger.Error("cart repo: create", zap.String("organization_id", cart.OrganizationID), zap.Error(err))
		return nil, err
	}

	out.Items = make([]domain.CartItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		item.CartID = out.ID
		out.Items = append(out.Items, item)
	}
	if err := insertItems(ctx, tx, out.ID, out.Items); err != nil {
		return nil, err
	}
	for i := range changes {
		changes[i].CartID = out.ID
	}
	if err := insertChanges(ctx, tx, changes); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, organizationID, id string) (*domain.Cart, error) {
	q := `
SELECT ` + cartColumns + `
FROM carts
WHERE organization_id = $1 AND id = $2
`
	var c domain.Cart
	if err := scanCart(r.pool.QueryRow(ctx, q, organizationID, id), &c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	itemsQuery := `
SELECT ` + itemColumns + `
FROM cart_items
WHERE cart_id = $1
ORDER BY created_at ASC, id ASC
`
	rows, err := r.pool.Query(ctx, itemsQuery, c.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	c.Items = []domain.CartItem{}
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(
			&item.ID,
			&item.CartID,
			&item.ProductID,
			&item.Name,
			&item.SKU,
			&item.Size,
			&item.Color,
			&item.Price,
			&item.Quantity,
			&item.MaxStock,
			&item.ImageURL,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		c.Items = append(c.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *postgresRepo) Save(ctx context.Context, cart *domain.Cart, changes ...domain.CartChange) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `
UPDATE carts
SET customer_type = $3,
    status = $4,
    currency = $5,
    total_items = $6,
    total_price = $7,
    original_total_price = $8,
    applied_price_list_id = $9,
    valid_until = $10,
    price_validated_at = $11,
    price_change_approved = $12,
    price_change_approved_at = $13,
    customization = $14,
    updated_at = $15
WHERE organization_id = $1 AND id = $2
`,
		cart.OrganizationID,
		cart.ID,
		cart.CustomerType,
		cart.Status,
		cart.Currency,
		cart.TotalItems,
		cart.TotalPrice,
		cart.OriginalTotalPrice,
		cart.AppliedPriceListID,
		cart.ValidUntil,
		cart.PriceValidatedAt,
		cart.PriceChangeApproved,
		cart.PriceChangeApprovedAt,
		customization(cart),
		cart.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("cart repo: save", zap.String("cart_id", cart.ID), zap.Error(err))
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cart.ID); err != nil {
		return err
	}
	if err := insertItems(ctx, tx, cart.ID, cart.Items); err != nil {
		return err
	}
	if err := insertChanges(ctx, tx, changes); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	r.logger.Debug("cart repo: saved", zap.String("cart_id", cart.ID), zap.Int("items", len(cart.Items)), zap.Int("changes", len(changes)))
	return nil
}

func (r *postgresRepo) ListChanges(ctx context.Context, organizationID, cartID string) ([]domain.CartChange, error) {
	rows, err := r.pool.Query(ctx, `
SELECT ch.id::text, ch.cart_id::text, ch.action, ch.details, ch.created_at
FROM cart_changes ch
JOIN carts c ON c.id = ch.cart_id
WHERE c.organization_id = $1 AND ch.cart_id = $2
ORDER BY ch.created_at ASC, ch.id ASC
`, organizationID, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	changes := []domain.CartChange{}
	for rows.Next() {
		var ch domain.CartChange
		if err := rows.Scan(&ch.ID, &ch.CartID, &ch.Action, &ch.Details, &ch.CreatedAt); err != nil {
			return nil, err
		}
		changes = append(changes, ch)
	}
	return changes, rows.Err()
}

func insertItems(ctx context.Context, tx pgx.Tx, cartID string, items []domain.CartItem) error {
	if len(items) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(`
INSERT INTO cart_items (id, cart_id, product_id, name, sku, size, color, price, quantity, max_stock, image_url, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`,
			item.ID,
			cartID,
			item.ProductID,
			item.Name,
			item.SKU,
			item.Size,
			item.Color,
			item.Price,
			item.Quantity,
			item.MaxStock,
			item.ImageURL,
			item.CreatedAt,
		)
	}
	return tx.SendBatch(ctx, batch).Close()
}

func insertChanges(ctx context.Context, tx pgx.Tx, changes []domain.CartChange) error {
	for _, ch := range changes {
		if _, err := tx.Exec(ctx, `
INSERT INTO cart_changes (id, cart_id, action, details, created_at)
VALUES ($1, $2, $3, $4, $5)
`, ch.ID, ch.CartID, ch.Action, ch.Details, ch.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}
