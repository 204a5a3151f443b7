package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/example/pod-storefront/internal/model"
)

const orderColumns = `id, external_id, customer_name, customer_email, customer_phone,
	shipping_address, billing_address, currency, subtotal, shipping, tax, total,
	status, payment_status, payment_reference, provider_shop_id, provider_order_id,
	provider_status, tracking_number, production_requested, COALESCE(submission_token, ''),
	created_at, updated_at`

const itemColumns = `id, order_id, COALESCE(product_id, 0), provider_product_id, provider_variant_id,
	name, size, unit_price, quantity, image_url`

// PostgresOrderRepository implements OrderRepository using PostgreSQL
type PostgresOrderRepository struct {
	db *sql.DB
}

func NewPostgresOrderRepository(db *sql.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

// Create inserts the order and its items in one transaction.
func (r *PostgresOrderRepository) Create(ctx context.Context, o *model.Order) (err error) {
	shipping, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshal shipping address: %w", err)
	}
	billing, err := json.Marshal(o.BillingAddress)
	if err != nil {
		return fmt.Errorf("marshal billing address: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin order transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (external_id, customer_name, customer_email, customer_phone,
			shipping_address, billing_address, currency, subtotal, shipping, tax, total,
			status, payment_status, provider_shop_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at`,
		o.ExternalID, o.Customer.Name, o.Customer.Email, o.Customer.Phone,
		string(shipping), string(billing), o.Currency, o.Subtotal, o.Shipping, o.Tax, o.Total,
		string(o.Status), string(o.PaymentStatus), o.ProviderShopID,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range o.Items {
		item := &o.Items[i]
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, product_id, provider_product_id, provider_variant_id,
				name, size, unit_price, quantity, image_url)
			VALUES ($1, NULLIF($2, 0), $3, $4, $5, $6, $7, $8, $9)
			RETURNING id`,
			o.ID, item.ProductID, item.ProviderProductID, item.ProviderVariantID,
			item.Name, item.Size, item.UnitPrice, item.Quantity, item.ImageURL,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("insert order item %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	return nil
}

func scanOrder(row interface{ Scan(...any) error }) (*model.Order, error) {
	var (
		o                 model.Order
		shipping, billing []byte
		status, payment   string
		providerOrderID   sql.NullString
		providerStatus    sql.NullString
		tracking          sql.NullString
	)
	if err := row.Scan(&o.ID, &o.ExternalID, &o.Customer.Name, &o.Customer.Email, &o.Customer.Phone,
		&shipping, &billing, &o.Currency, &o.Subtotal, &o.Shipping, &o.Tax, &o.Total,
		&status, &payment, &o.PaymentReference, &o.ProviderShopID, &providerOrderID,
		&providerStatus, &tracking, &o.ProductionRequested, &o.SubmissionToken,
		&o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(shipping, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("decode shipping address: %w", err)
	}
	if err := json.Unmarshal(billing, &o.BillingAddress); err != nil {
		return nil, fmt.Errorf("decode billing address: %w", err)
	}
	o.Status = model.OrderStatus(status)
	o.PaymentStatus = model.PaymentStatus(payment)
	o.ProviderOrderID = stringPtr(providerOrderID)
	o.ProviderStatus = stringPtr(providerStatus)
	o.TrackingNumber = stringPtr(tracking)
	o.Items = []model.OrderItem{}
	return &o, nil
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func (r *PostgresOrderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	if err := r.loadItems(ctx, []*model.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *PostgresOrderRepository) GetByExternalID(ctx context.Context, externalID string) (*model.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE external_id = $1`, externalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", externalID, err)
	}
	if err := r.loadItems(ctx, []*model.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *PostgresOrderRepository) List(ctx context.Context, filter model.OrderFilter) ([]*model.Order, error) {
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
	if filter.Email != "" {
		args = append(args, strings.ToLower(filter.Email))
		where = append(where, fmt.Sprintf("LOWER(customer_email) = $%d", len(args)))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"
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
		return nil, fmt.Errorf("list orders: %w", err)
	}
	orders := make([]*model.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *PostgresOrderRepository) loadItems(ctx context.Context, orders []*model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	byID := make(map[int64]*model.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM order_items WHERE order_id = ANY($1) ORDER BY id ASC`,
		pq.Array(ids))
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.OrderItem
		var orderID int64
		if err := rows.Scan(&item.ID, &orderID, &item.ProductID, &item.ProviderProductID, &item.ProviderVariantID,
			&item.Name, &item.Size, &item.UnitPrice, &item.Quantity, &item.ImageURL); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return rows.Err()
}

func (r *PostgresOrderRepository) Transition(ctx context.Context, id int64, from []model.OrderStatus, to model.OrderStatus, patch OrderPatch) (bool, error) {
	statuses := make([]string, len(from))
	for i, s := range from {
		statuses[i] = string(s)
	}
	var paymentStatus *string
	if patch.PaymentStatus != nil {
		s := string(*patch.PaymentStatus)
		paymentStatus = &s
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET
			status = $2,
			payment_status = COALESCE($4, payment_status),
			payment_reference = COALESCE($5, payment_reference),
			provider_status = COALESCE($6, provider_status),
			tracking_number = COALESCE($7, tracking_number),
			updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)`,
		id, string(to), pq.Array(statuses),
		paymentStatus, patch.PaymentReference, patch.ProviderStatus, patch.TrackingNumber)
	if err != nil {
		return false, fmt.Errorf("transition order %d to %s: %w", id, to, err)
	}
	return affected(res)
}

func (r *PostgresOrderRepository) CancelUnclaimed(ctx context.Context, id int64, from []model.OrderStatus) (bool, error) {
	statuses := make([]string, len(from))
	for i, s := range from {
		statuses[i] = string(s)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)
			AND submission_token IS NULL AND provider_order_id IS NULL`,
		id, string(model.OrderStatusCancelled), pq.Array(statuses))
	if err != nil {
		return false, fmt.Errorf("cancel order %d: %w", id, err)
	}
	return affected(res)
}

func (r *PostgresOrderRepository) ClaimSubmission(ctx context.Context, id int64, token string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET submission_token = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3 AND provider_order_id IS NULL AND submission_token IS NULL`,
		id, token, string(model.OrderStatusPaymentCompleted))
	if err != nil {
		return false, fmt.Errorf("claim submission of order %d: %w", id, err)
	}
	return affected(res)
}

func (r *PostgresOrderRepository) ReleaseSubmission(ctx context.Context, id int64, token string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET submission_token = NULL, updated_at = NOW()
		WHERE id = $1 AND provider_order_id IS NULL AND submission_token IS NOT NULL
			AND ($2 = '' OR submission_token = $2)`,
		id, token)
	if err != nil {
		return false, fmt.Errorf("release submission of order %d: %w", id, err)
	}
	return affected(res)
}

func (r *PostgresOrderRepository) CompleteSubmission(ctx context.Context, id int64, token, shopID, providerOrderID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET
			provider_order_id = $3,
			provider_shop_id = $4,
			status = $5,
			submission_token = NULL,
			updated_at = NOW()
		WHERE id = $1 AND submission_token = $2 AND provider_order_id IS NULL AND status = $6`,
		id, token, providerOrderID, shopID, string(model.OrderStatusSubmittedToProduction),
		string(model.OrderStatusPaymentCompleted))
	if err != nil {
		return false, fmt.Errorf("complete submission of order %d: %w", id, err)
	}
	return affected(res)
}

func (r *PostgresOrderRepository) MarkProductionRequested(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET production_requested = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark production requested for order %d: %w", id, err)
	}
	return mustAffect(res)
}
