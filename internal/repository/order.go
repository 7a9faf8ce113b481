package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/uiliambrandao/nammos-checkout/internal/domain/money"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/order"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/pricing"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/tracking"
)

const (
	createOrderSQL = `INSERT INTO orders (id, user_id, items, fulfillment, address, payment,
		coupon_code, cashback_used, subtotal, delivery_fee, coupon_discount,
		cashback_discount, total, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	getOrderByIDSQL = `SELECT id, user_id, items, fulfillment, address, payment,
		coupon_code, cashback_used, subtotal, delivery_fee, coupon_discount,
		cashback_discount, total, status, created_at
		FROM orders WHERE id = $1`

	listRecentOrdersSQL = `SELECT id, user_id, items, fulfillment, address, payment,
		coupon_code, cashback_used, subtotal, delivery_fee, coupon_discount,
		cashback_discount, total, status, created_at
		FROM orders ORDER BY created_at DESC LIMIT $1`

	// The transition only lands when the new status is strictly ahead of the
	// stored one, so concurrent updates can never move an order backwards.
	updateOrderStatusSQL = `UPDATE orders SET status = $2
		WHERE id = $1
		AND array_position($3::text[], status) < array_position($3::text[], $2)`

	orderExistsSQL = `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Items,
// address, and payment are stored as JSONB snapshots; quote amounts are
// NUMERIC columns.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order snapshot.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}
	paymentJSON, err := json.Marshal(o.Payment)
	if err != nil {
		return fmt.Errorf("marshaling order payment: %w", err)
	}
	var addressJSON []byte
	if o.Address != nil {
		if addressJSON, err = json.Marshal(o.Address); err != nil {
			return fmt.Errorf("marshaling order address: %w", err)
		}
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.UserID, itemsJSON, string(o.Fulfillment), addressJSON, paymentJSON,
		o.CouponCode, o.CashbackUsed.Decimal(),
		o.Quote.Subtotal.Decimal(), o.Quote.DeliveryFee.Decimal(),
		o.Quote.CouponDiscount.Decimal(), o.Quote.CashbackDiscount.Decimal(),
		o.Quote.Total.Decimal(), string(o.Status), o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	return nil
}

// GetByID returns a single order by its identifier.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// ListRecent returns the newest orders first, up to limit.
func (r *OrderRepository) ListRecent(ctx context.Context, limit int) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listRecentOrdersSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// UpdateStatus persists a forward status transition. A regression is a silent
// no-op; an unknown order returns order.ErrNotFound.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status tracking.Status) error {
	sequence := make([]string, len(tracking.Sequence))
	for i, s := range tracking.Sequence {
		sequence[i] = string(s)
	}

	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, string(status), sequence)
	if err != nil {
		return fmt.Errorf("updating status for order %q: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, orderExistsSQL, id).Scan(&exists); err != nil {
		return fmt.Errorf("checking order %q: %w", id, err)
	}
	if !exists {
		return order.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o                order.Order
		itemsJSON        []byte
		addressJSON      []byte
		paymentJSON      []byte
		fulfillment      string
		status           string
		cashbackUsed     decimal.Decimal
		subtotal         decimal.Decimal
		deliveryFee      decimal.Decimal
		couponDiscount   decimal.Decimal
		cashbackDiscount decimal.Decimal
		total            decimal.Decimal
		createdAt        time.Time
	)
	err := row.Scan(
		&o.ID, &o.UserID, &itemsJSON, &fulfillment, &addressJSON, &paymentJSON,
		&o.CouponCode, &cashbackUsed, &subtotal, &deliveryFee,
		&couponDiscount, &cashbackDiscount, &total, &status, &createdAt,
	)
	if err != nil {
		return o, err
	}

	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling order items: %w", err)
	}
	if len(addressJSON) > 0 {
		o.Address = &order.Address{}
		if err := json.Unmarshal(addressJSON, o.Address); err != nil {
			return o, fmt.Errorf("unmarshaling order address: %w", err)
		}
	}
	if err := json.Unmarshal(paymentJSON, &o.Payment); err != nil {
		return o, fmt.Errorf("unmarshaling order payment: %w", err)
	}

	o.Fulfillment = pricing.Fulfillment(fulfillment)
	o.Status = tracking.Status(status)
	o.CashbackUsed = money.FromDecimal(cashbackUsed)
	o.Quote = pricing.Quote{
		Subtotal:         money.FromDecimal(subtotal),
		DeliveryFee:      money.FromDecimal(deliveryFee),
		CouponDiscount:   money.FromDecimal(couponDiscount),
		CashbackDiscount: money.FromDecimal(cashbackDiscount),
		Total:            money.FromDecimal(total),
	}
	o.CreatedAt = createdAt
	return o, nil
}
