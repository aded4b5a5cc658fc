package product

import (
	"context"
	"errors"
	"fmt"

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

const productColumns = `id::text, organization_id::text, sku, name, description, size, color, stock, image_url, created_at`

const priceColumns = `id::text, organization_id::text, product_id::text, price_list_id::text, currency, amount, tax_included, valid_from, valid_to`

func scanProduct(row pgx.Row, p *domain.Product) error {
	return row.Scan(&p.ID, &p.OrganizationID, &p.SKU, &p.Name, &p.Description, &p.Size, &p.Color, &p.Stock, &p.ImageURL, &p.CreatedAt)
}

func scanPrice(row pgx.Row, p *domain.ProductPrice) error {
	return row.Scan(&p.ID, &p.OrganizationID, &p.ProductID, &p.PriceListID, &p.Currency, &p.Amount, &p.TaxIncluded, &p.ValidFrom, &p.ValidTo)
}

func (r *postgresRepo) List(ctx context.Context, organizationID string) ([]domain.Product, error) {
	q := `
SELECT ` + productColumns + `
FROM products
WHERE organization_id = $1
ORDER BY created_at DESC
`
	rows, err := r.pool.Query(ctx, q, organizationID)
	if err != nil {
		r.logger.Error("product repo: list", zap.String("organization_id", organizationID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var result []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, err
		}
		p.Prices = []domain.ProductPrice{}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	r.logger.Debug("product repo: list", zap.String("organization_id", organizationID), zap.Int("count", len(result)))
	return result, nil
}

// GetByID returns the product with every price-list price it has.
func (r *postgresRepo) GetByID(ctx context.Context, organizationID, id string) (*domain.Product, error) {
	q := `
SELECT ` + productColumns + `
FROM products
WHERE organization_id = $1 AND id = $2
`
	return r.fetch(ctx, q, organizationID, id)
}

func (r *postgresRepo) GetBySKU(ctx context.Context, organizationID, sku string) (*domain.Product, error) {
	q := `
SELECT ` + productColumns + `
FROM products
WHERE organization_id = $1 AND sku = $2
`
	return r.fetch(ctx, q, organizationID, sku)
}

func (r *postgresRepo) fetch(ctx context.Context, q string, args ...interface{}) (*domain.Product, error) {
	var p domain.Product
	if err := scanProduct(r.pool.QueryRow(ctx, q, args...), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("product repo: get", zap.Any("args", args), zap.Error(err))
		return nil, err
	}

	pricesQuery := `
SELECT ` + priceColumns + `
FROM product_prices
WHERE organization_id = $1 AND product_id = $2
ORDER BY price_list_id
`
	rows, err := r.pool.Query(ctx, pricesQuery, p.OrganizationID, p.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	p.Prices = []domain.ProductPrice{}
	for rows.Next() {
		var price domain.ProductPrice
		if err := scanPrice(rows, &price); err != nil {
			return nil, err
		}
		p.Prices = append(p.Prices, price)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Upsert inserts a product or updates the one with the same SKU in the organization.
func (r *postgresRepo) Upsert(ctx context.Context, product domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (id, organization_id, sku, name, description, size, color, stock, image_url)
VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (organization_id, sku) DO UPDATE SET
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    size = EXCLUDED.size,
    color = EXCLUDED.color,
    stock = EXCLUDED.stock,
    image_url = EXCLUDED.image_url
RETURNING id::text, created_at
`
	res := product
	err := r.pool.QueryRow(ctx, q,
		product.ID,
		product.OrganizationID,
		product.SKU,
		product.Name,
		product.Description,
		product.Size,
		product.Color,
		product.Stock,
		product.ImageURL,
	).Scan(&res.ID, &res.CreatedAt)
	if err != nil {
		r.logger.Error("product repo: upsert", zap.String("sku", product.SKU), zap.String("organization_id", product.OrganizationID), zap.Error(err))
		return nil, err
	}
	if product.ID != "" && res.ID != product.ID {
		return nil, fmt.Errorf("product repo: id mismatch for sku=%s organization_id=%s existing_id=%s given_id=%s: %w",
			product.SKU, product.OrganizationID, res.ID, product.ID, domain.ErrConflict)
	}
	if res.Prices == nil {
		res.Prices = []domain.ProductPrice{}
	}
	r.logger.Debug("product repo: upserted", zap.String("sku", res.SKU), zap.String("id", res.ID))
	return &res, nil
}

// UpsertPrice keeps one price per (organization, product, price list).
func (r *postgresRepo) UpsertPrice(ctx context.Context, price domain.ProductPrice) (*domain.ProductPrice, error) {
	q := `
INSERT INTO product_prices (organization_id, product_id, price_list_id, currency, amount, tax_included, valid_from, valid_to)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (organization_id, product_id, price_list_id) DO UPDATE SET
    currency = EXCLUDED.currency,
    amount = EXCLUDED.amount,
    tax_included = EXCLUDED.tax_included,
    valid_from = EXCLUDED.valid_from,
    valid_to = EXCLUDED.valid_to
RETURNING ` + priceColumns
	var out domain.ProductPrice
	err := scanPrice(r.pool.QueryRow(ctx, q,
		price.OrganizationID,
		price.ProductID,
		price.PriceListID,
		price.Currency,
		price.Amount,
		price.TaxIncluded,
		price.ValidFrom,
		price.ValidTo,
	), &out)
	if err != nil {
		r.logger.Error("product repo: upsert price",
			zap.String("product_id", price.ProductID),
			zap.String("price_list_id", price.PriceListID),
			zap.Error(err))
		return nil, err
	}
	return &out, nil
}
