package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const nextOrderNumber = `
INSERT INTO branch_counters (branch_id, last_order_number)
VALUES ($1, 1)
ON CONFLICT (branch_id)
DO UPDATE SET last_order_number = branch_counters.last_order_number + 1
RETURNING last_order_number
`

// NextOrderNumber allocates the next per-branch order number. The upsert is a
// single atomic statement and takes a row lock on the counter, so two
// concurrent orders can never receive the same number.
func (q *Queries) NextOrderNumber(ctx context.Context, branchID uuid.UUID) (int32, error) {
	var n int32
	err := q.db.QueryRow(ctx, nextOrderNumber, branchID).Scan(&n)
	return n, err
}

const orderColumns = `id, branch_id, order_number, shift_id, cashier_id, customer_id,
	order_type, payment_method, subtotal, delivery_fee, total_amount, points_earned,
	delivery_address, is_refunded, refund_reason, refunded_by, refunded_at,
	created_at, updated_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.BranchID, &o.OrderNumber, &o.ShiftID, &o.CashierID, &o.CustomerID,
		&o.OrderType, &o.PaymentMethod, &o.Subtotal, &o.DeliveryFee, &o.TotalAmount,
		&o.PointsEarned, &o.DeliveryAddress, &o.IsRefunded, &o.RefundReason,
		&o.RefundedBy, &o.RefundedAt, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

type CreateOrderParams struct {
	BranchID        uuid.UUID
	OrderNumber     int32
	ShiftID         uuid.UUID
	CashierID       uuid.UUID
	CustomerID      pgtype.UUID
	OrderType       string
	PaymentMethod   string
	Subtotal        pgtype.Numeric
	DeliveryFee     pgtype.Numeric
	TotalAmount     pgtype.Numeric
	PointsEarned    int64
	DeliveryAddress pgtype.Text
}

const createOrder = `
INSERT INTO orders (branch_id, order_number, shift_id, cashier_id, customer_id,
	order_type, payment_method, subtotal, delivery_fee, total_amount,
	points_earned, delivery_address)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING ` + orderColumns

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.BranchID, arg.OrderNumber, arg.ShiftID, arg.CashierID, arg.CustomerID,
		arg.OrderType, arg.PaymentMethod, arg.Subtotal, arg.DeliveryFee,
		arg.TotalAmount, arg.PointsEarned, arg.DeliveryAddress,
	)
	return scanOrder(row)
}

type CreateOrderItemParams struct {
	OrderID         uuid.UUID
	MenuItemID      uuid.UUID
	MenuItemName    string
	VariantID       pgtype.UUID
	VariantName     pgtype.Text
	VariantModifier pgtype.Numeric
	Quantity        int32
	UnitPrice       pgtype.Numeric
	Subtotal        pgtype.Numeric
	RecipeVersion   int32
	RecipeVariantID pgtype.UUID
}

const createOrderItem = `
INSERT INTO order_items (order_id, menu_item_id, menu_item_name, variant_id,
	variant_name, variant_modifier, quantity, unit_price, subtotal,
	recipe_version, recipe_variant_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id, order_id, menu_item_id, menu_item_name, variant_id, variant_name,
	variant_modifier, quantity, unit_price, subtotal, recipe_version, recipe_variant_id
`

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	var i OrderItem
	err := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID, arg.MenuItemID, arg.MenuItemName, arg.VariantID,
		arg.VariantName, arg.VariantModifier, arg.Quantity, arg.UnitPrice,
		arg.Subtotal, arg.RecipeVersion, arg.RecipeVariantID,
	).Scan(
		&i.ID, &i.OrderID, &i.MenuItemID, &i.MenuItemName, &i.VariantID,
		&i.VariantName, &i.VariantModifier, &i.Quantity, &i.UnitPrice,
		&i.Subtotal, &i.RecipeVersion, &i.RecipeVariantID,
	)
	return i, err
}

const getOrder = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderForUpdate = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

// GetOrderForUpdate locks the order row for the duration of the transaction,
// serializing concurrent refund attempts on the same order.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

type ListOrdersParams struct {
	BranchID   uuid.UUID
	StartDate  pgtype.Timestamptz
	EndDate    pgtype.Timestamptz
	IsRefunded pgtype.Bool
	Limit      int32
	Offset     int32
}

const listOrders = `
SELECT ` + orderColumns + `
FROM orders
WHERE branch_id = $1
  AND ($2::timestamptz IS NULL OR created_at >= $2)
  AND ($3::timestamptz IS NULL OR created_at < $3)
  AND ($4::boolean IS NULL OR is_refunded = $4)
ORDER BY created_at DESC
LIMIT $5 OFFSET $6
`

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders,
		arg.BranchID, arg.StartDate, arg.EndDate, arg.IsRefunded, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

const listOrderItemsByOrder = `
SELECT id, order_id, menu_item_id, menu_item_name, variant_id, variant_name,
	variant_modifier, quantity, unit_price, subtotal, recipe_version, recipe_variant_id
FROM order_items
WHERE order_id = $1
ORDER BY id
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(
			&i.ID, &i.OrderID, &i.MenuItemID, &i.MenuItemName, &i.VariantID,
			&i.VariantName, &i.VariantModifier, &i.Quantity, &i.UnitPrice,
			&i.Subtotal, &i.RecipeVersion, &i.RecipeVariantID,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type MarkOrderRefundedParams struct {
	ID           uuid.UUID
	RefundReason pgtype.Text
	RefundedBy   uuid.UUID
}

const markOrderRefunded = `
UPDATE orders
SET is_refunded = TRUE, refund_reason = $2, refunded_by = $3, refunded_at = now(), updated_at = now()
WHERE id = $1 AND NOT is_refunded
RETURNING ` + orderColumns

// MarkOrderRefunded flips the one-way refund flag. The WHERE clause makes the
// flip conditional, so a second refund of the same order matches zero rows.
func (q *Queries) MarkOrderRefunded(ctx context.Context, arg MarkOrderRefundedParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, markOrderRefunded, arg.ID, arg.RefundReason, arg.RefundedBy))
}

type ShiftOrderTotalsRow struct {
	PaymentMethod string
	OrderCount    int64
	Revenue       pgtype.Numeric
}

const sumOrdersByShift = `
SELECT payment_method, COUNT(*) AS order_count, COALESCE(SUM(subtotal), 0) AS revenue
FROM orders
WHERE shift_id = $1
GROUP BY payment_method
ORDER BY payment_method
`

// SumOrdersByShift aggregates order count and revenue per payment method for
// a shift. Revenue sums subtotal, not total_amount: delivery fees pass
// through to couriers and are excluded from shift revenue.
func (q *Queries) SumOrdersByShift(ctx context.Context, shiftID uuid.UUID) ([]ShiftOrderTotalsRow, error) {
	rows, err := q.db.Query(ctx, sumOrdersByShift, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ShiftOrderTotalsRow
	for rows.Next() {
		var r ShiftOrderTotalsRow
		if err := rows.Scan(&r.PaymentMethod, &r.OrderCount, &r.Revenue); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
