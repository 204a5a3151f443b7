package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/example/pod-storefront/internal/model"
)

const productColumns = `id, COALESCE(provider_product_id, ''), COALESCE(provider_shop_id, ''),
	name, description, price, image_url, category, status, provider_data, created_at, updated_at`

// PostgresProductRepository implements ProductRepository using PostgreSQL
type PostgresProductRepository struct {
	db *sql.DB
}

func NewPostgresProductRepository(db *sql.DB) *PostgresProductRepository {
	return &PostgresProductRepository{db: db}
}

func scanProduct(row interface{ Scan(...any) error }) (*model.Product, error) {
	var p model.Product
	var status string
	var data []byte
	if err := row.Scan(&p.ID, &p.ProviderProductID, &p.ProviderShopID,
		&p.Name, &p.Description, &p.Price, &p.ImageURL, &p.Category, &status, &data,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = model.ProductStatus(status)
	if len(data) > 0 {
		p.ProviderData = data
	}
	return &p, nil
}

func (r *PostgresProductRepository) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

func (r *PostgresProductRepository) GetByProviderKey(ctx context.Context, shopID, providerProductID string) (*model.Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE provider_product_id = $1 AND provider_shop_id = $2`,
		providerProductID, shopID)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s/%s: %w", shopID, providerProductID, err)
	}
	return p, nil
}

func (r *PostgresProductRepository) List(ctx context.Context, filter model.ProductFilter) ([]*model.Product, error) {
	var (
		where []string
		args  []any
	)
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, pq.Array(statuses))
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.ShopID != "" {
		args = append(args, filter.ShopID)
		where = append(where, fmt.Sprintf("provider_shop_id = $%d", len(args)))
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id ASC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]*model.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *PostgresProductRepository) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT category FROM products WHERE status = $1 AND category <> '' ORDER BY category`,
		string(model.ProductStatusActive))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]string, 0)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *PostgresProductRepository) Create(ctx context.Context, p *model.Product) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO products (provider_product_id, provider_shop_id, name, description, price, image_url, category, status, provider_data)
		VALUES (NULLIF($1, ''), NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`,
		p.ProviderProductID, p.ProviderShopID, p.Name, p.Description, p.Price,
		p.ImageURL, p.Category, string(p.Status), nullJSON(p.ProviderData),
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *PostgresProductRepository) Update(ctx context.Context, p *model.Product) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE products SET name = $2, description = $3, category = $4, image_url = $5, status = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Name, p.Description, p.Category, p.ImageURL, string(p.Status),
	).Scan(&p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update product %d: %w", p.ID, err)
	}
	return nil
}

func (r *PostgresProductRepository) UpsertByProviderKey(ctx context.Context, p *model.Product) (*model.Product, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO products (provider_product_id, provider_shop_id, name, description, price, image_url, category, status, provider_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (provider_product_id, provider_shop_id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			image_url = EXCLUDED.image_url,
			category = COALESCE(NULLIF(products.category, ''), EXCLUDED.category),
			provider_data = EXCLUDED.provider_data,
			updated_at = NOW()
		RETURNING `+productColumns+`, (xmax = 0) AS inserted`,
		p.ProviderProductID, p.ProviderShopID, p.Name, p.Description, p.Price,
		p.ImageURL, p.Category, string(p.Status), nullJSON(p.ProviderData),
	)

	var saved model.Product
	var status string
	var data []byte
	var inserted bool
	if err := row.Scan(&saved.ID, &saved.ProviderProductID, &saved.ProviderShopID,
		&saved.Name, &saved.Description, &saved.Price, &saved.ImageURL, &saved.Category, &status, &data,
		&saved.CreatedAt, &saved.UpdatedAt, &inserted); err != nil {
		return nil, false, fmt.Errorf("upsert product %s/%s: %w", p.ProviderShopID, p.ProviderProductID, err)
	}
	saved.Status = model.ProductStatus(status)
	if len(data) > 0 {
		saved.ProviderData = data
	}
	return &saved, inserted, nil
}

func (r *PostgresProductRepository) UpdatePrice(ctx context.Context, id int64, price decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET price = $2, updated_at = NOW() WHERE id = $1`, id, price)
	if err != nil {
		return fmt.Errorf("update price of product %d: %w", id, err)
	}
	return mustAffect(res)
}

func (r *PostgresProductRepository) SetStatus(ctx context.Context, id int64, status model.ProductStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("set status of product %d: %w", id, err)
	}
	return mustAffect(res)
}

func (r *PostgresProductRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	return mustAffect(res)
}

func mustAffect(res sql.Result) error {
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// nullJSON passes JSON as text; lib/pq would encode []byte as bytea.
func nullJSON(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	return string(data)
}
