package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_number, customer_id, customer_name, customer_phone, customer_email,
	status, payment_status, subtotal, tax_amount, tip_amount, total_amount,
	notes, payment_method, payment_reference, estimated_ready_time, actual_ready_time,
	created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.CustomerID, &o.CustomerName, &o.CustomerPhone, &o.CustomerEmail,
		&o.Status, &o.PaymentStatus, &o.Subtotal, &o.TaxAmount, &o.TipAmount, &o.TotalAmount,
		&o.Notes, &o.PaymentMethod, &o.PaymentReference, &o.EstimatedReadyTime, &o.ActualReadyTime,
		&o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type CreateOrderParams struct {
	OrderNumber   string
	CustomerID    pgtype.UUID
	CustomerName  pgtype.Text
	CustomerPhone pgtype.Text
	CustomerEmail pgtype.Text
	Status        OrderStatus
	PaymentStatus PaymentStatus
	Subtotal      pgtype.Numeric
	TaxAmount     pgtype.Numeric
	TipAmount     pgtype.Numeric
	TotalAmount   pgtype.Numeric
	Notes         pgtype.Text
	PaymentMethod pgtype.Text
}

const createOrder = `
INSERT INTO orders (
	order_number, customer_id, customer_name, customer_phone, customer_email,
	status, payment_status, subtotal, tax_amount, tip_amount, total_amount,
	notes, payment_method
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING ` + orderColumns

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.OrderNumber, arg.CustomerID, arg.CustomerName, arg.CustomerPhone, arg.CustomerEmail,
		arg.Status, arg.PaymentStatus, arg.Subtotal, arg.TaxAmount, arg.TipAmount, arg.TotalAmount,
		arg.Notes, arg.PaymentMethod,
	)
	return scanOrder(row)
}

type CreateOrderItemParams struct {
	OrderID        uuid.UUID
	MenuItemID     uuid.UUID
	ItemName       string
	Quantity       int32
	UnitPrice      pgtype.Numeric
	TotalPrice     pgtype.Numeric
	Customizations pgtype.Text
	Notes          pgtype.Text
}

const createOrderItem = `
INSERT INTO order_items (order_id, menu_item_id, item_name, quantity, unit_price, total_price, customizations, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, order_id, menu_item_id, item_name, quantity, unit_price, total_price, customizations, notes
`

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID, arg.MenuItemID, arg.ItemName, arg.Quantity,
		arg.UnitPrice, arg.TotalPrice, arg.Customizations, arg.Notes,
	)
	var i OrderItem
	err := row.Scan(&i.ID, &i.OrderID, &i.MenuItemID, &i.ItemName, &i.Quantity,
		&i.UnitPrice, &i.TotalPrice, &i.Customizations, &i.Notes)
	return i, err
}

const getOrder = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderByNumber = `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`

func (q *Queries) GetOrderByNumber(ctx context.Context, orderNumber string) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderByNumber, orderNumber))
}

// GetOrderForUpdate locks the order row for the duration of the enclosing
// transaction (FOR NO KEY UPDATE).
const getOrderForUpdate = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR NO KEY UPDATE`

func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

const getOrderByNumberForUpdate = `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1 FOR NO KEY UPDATE`

func (q *Queries) GetOrderByNumberForUpdate(ctx context.Context, orderNumber string) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderByNumberForUpdate, orderNumber))
}

// GetNextOrderNumber returns the next sequence number for order numbers
// sharing the given prefix. Concurrent callers may receive the same value;
// the unique constraint on order_number catches the collision and the
// caller retries.
const getNextOrderNumber = `SELECT COUNT(*) + 1 FROM orders WHERE order_number LIKE $1`

func (q *Queries) GetNextOrderNumber(ctx context.Context, prefix string) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, getNextOrderNumber, prefix+"%").Scan(&n)
	return n, err
}

type ListOrdersParams struct {
	Status        string
	PaymentStatus string
	Limit         int32
	Offset        int32
}

const listOrders = `
SELECT ` + orderColumns + `
FROM orders
WHERE ($1 = '' OR status = $1)
  AND ($2 = '' OR payment_status = $2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4
`

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.Status, arg.PaymentStatus, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

type ListOrdersByCustomerParams struct {
	CustomerID uuid.UUID
	Limit      int32
	Offset     int32
}

const listOrdersByCustomer = `
SELECT ` + orderColumns + `
FROM orders
WHERE customer_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

func (q *Queries) ListOrdersByCustomer(ctx context.Context, arg ListOrdersByCustomerParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByCustomer, arg.CustomerID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

const listOrderItems = `
SELECT id, order_id, menu_item_id, item_name, quantity, unit_price, total_price, customizations, notes
FROM order_items
WHERE order_id = $1
ORDER BY item_name
`

func (q *Queries) ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItems, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(&i.ID, &i.OrderID, &i.MenuItemID, &i.ItemName, &i.Quantity,
			&i.UnitPrice, &i.TotalPrice, &i.Customizations, &i.Notes); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type UpdateOrderStatusParams struct {
	ID                 uuid.UUID
	Status             OrderStatus
	ExpectedStatus     OrderStatus
	EstimatedReadyTime pgtype.Timestamptz
}

// UpdateOrderStatus performs a compare-and-swap on the fulfillment status:
// the update applies only while the row still holds ExpectedStatus, so a
// concurrent transition surfaces as pgx.ErrNoRows. Entering 'ready' stamps
// actual_ready_time once; EstimatedReadyTime only overwrites when set.
const updateOrderStatus = `
UPDATE orders
SET status = $2,
    estimated_ready_time = COALESCE($4, estimated_ready_time),
    actual_ready_time = CASE
        WHEN $2 = 'ready' AND actual_ready_time IS NULL THEN now()
        ELSE actual_ready_time
    END,
    updated_at = now()
WHERE id = $1 AND status = $3
RETURNING ` + orderColumns

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status, arg.ExpectedStatus, arg.EstimatedReadyTime)
	return scanOrder(row)
}

type UpdateOrderPaymentParams struct {
	ID                    uuid.UUID
	PaymentStatus         PaymentStatus
	ExpectedPaymentStatus PaymentStatus
	PaymentMethod         pgtype.Text
	PaymentReference      pgtype.Text
}

// UpdateOrderPayment is the payment-side counterpart of UpdateOrderStatus:
// compare-and-swap on payment_status, pgx.ErrNoRows when the precondition
// no longer holds.
const updateOrderPayment = `
UPDATE orders
SET payment_status = $2,
    payment_method = COALESCE($4, payment_method),
    payment_reference = COALESCE($5, payment_reference),
    updated_at = now()
WHERE id = $1 AND payment_status = $3
RETURNING ` + orderColumns

func (q *Queries) UpdateOrderPayment(ctx context.Context, arg UpdateOrderPaymentParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderPayment,
		arg.ID, arg.PaymentStatus, arg.ExpectedPaymentStatus, arg.PaymentMethod, arg.PaymentReference)
	return scanOrder(row)
}

const listExpiredPendingPayments = `
SELECT ` + orderColumns + `
FROM orders
WHERE status = 'pending_payment' AND payment_status = 'pending' AND created_at < $1
ORDER BY created_at
`

func (q *Queries) ListExpiredPendingPayments(ctx context.Context, cutoff time.Time) ([]Order, error) {
	rows, err := q.db.Query(ctx, listExpiredPendingPayments, cutoff)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

type GetDashboardStatsParams struct {
	DayStart time.Time
	DayEnd   time.Time
}

type GetDashboardStatsRow struct {
	TotalOrders     int64
	PendingPayment  int64
	Confirmed       int64
	Preparing       int64
	Ready           int64
	Completed       int64
	Cancelled       int64
	PaidRevenue     pgtype.Numeric
	PendingPayments int64
}

const getDashboardStats = `
SELECT
	COUNT(*) AS total_orders,
	COUNT(*) FILTER (WHERE status = 'pending_payment') AS pending_payment,
	COUNT(*) FILTER (WHERE status = 'confirmed') AS confirmed,
	COUNT(*) FILTER (WHERE status = 'preparing') AS preparing,
	COUNT(*) FILTER (WHERE status = 'ready') AS ready,
	COUNT(*) FILTER (WHERE status = 'completed') AS completed,
	COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled,
	COALESCE(SUM(total_amount) FILTER (WHERE payment_status = 'paid'), 0) AS paid_revenue,
	COUNT(*) FILTER (WHERE payment_status = 'pending') AS pending_payments
FROM orders
WHERE created_at >= $1 AND created_at < $2
`

func (q *Queries) GetDashboardStats(ctx context.Context, arg GetDashboardStatsParams) (GetDashboardStatsRow, error) {
	var s GetDashboardStatsRow
	err := q.db.QueryRow(ctx, getDashboardStats, arg.DayStart, arg.DayEnd).Scan(
		&s.TotalOrders, &s.PendingPayment, &s.Confirmed, &s.Preparing, &s.Ready,
		&s.Completed, &s.Cancelled, &s.PaidRevenue, &s.PendingPayments,
	)
	return s, err
}
