package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const shiftColumns = `id, branch_id, cashier_id, opening_cash, opening_revenue,
	opening_orders, closing_cash, closing_revenue, closing_orders, expected_cash,
	is_closed, opened_at, closed_at`

func scanShift(row interface{ Scan(dest ...any) error }) (Shift, error) {
	var s Shift
	err := row.Scan(
		&s.ID, &s.BranchID, &s.CashierID, &s.OpeningCash, &s.OpeningRevenue,
		&s.OpeningOrders, &s.ClosingCash, &s.ClosingRevenue, &s.ClosingOrders,
		&s.ExpectedCash, &s.IsClosed, &s.OpenedAt, &s.ClosedAt,
	)
	return s, err
}

type CreateShiftParams struct {
	BranchID       uuid.UUID
	CashierID      uuid.UUID
	OpeningCash    pgtype.Numeric
	OpeningRevenue pgtype.Numeric
	OpeningOrders  int32
}

const createShift = `
INSERT INTO shifts (branch_id, cashier_id, opening_cash, opening_revenue, opening_orders)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + shiftColumns

func (q *Queries) CreateShift(ctx context.Context, arg CreateShiftParams) (Shift, error) {
	return scanShift(q.db.QueryRow(ctx, createShift,
		arg.BranchID, arg.CashierID, arg.OpeningCash, arg.OpeningRevenue, arg.OpeningOrders))
}

const getShift = `SELECT ` + shiftColumns + ` FROM shifts WHERE id = $1`

func (q *Queries) GetShift(ctx context.Context, id uuid.UUID) (Shift, error) {
	return scanShift(q.db.QueryRow(ctx, getShift, id))
}

const getShiftForUpdate = `SELECT ` + shiftColumns + ` FROM shifts WHERE id = $1 FOR UPDATE`

// GetShiftForUpdate locks the shift row, serializing concurrent close attempts.
func (q *Queries) GetShiftForUpdate(ctx context.Context, id uuid.UUID) (Shift, error) {
	return scanShift(q.db.QueryRow(ctx, getShiftForUpdate, id))
}

const getOpenShiftByCashier = `
SELECT ` + shiftColumns + `
FROM shifts
WHERE cashier_id = $1 AND NOT is_closed
`

// GetOpenShiftByCashier returns the cashier's open shift. A partial unique
// index on (cashier_id) WHERE NOT is_closed guarantees at most one row.
func (q *Queries) GetOpenShiftByCashier(ctx context.Context, cashierID uuid.UUID) (Shift, error) {
	return scanShift(q.db.QueryRow(ctx, getOpenShiftByCashier, cashierID))
}

type CloseShiftParams struct {
	ID             uuid.UUID
	ClosingCash    pgtype.Numeric
	ClosingRevenue pgtype.Numeric
	ClosingOrders  pgtype.Int4
	ExpectedCash   pgtype.Numeric
}

const closeShift = `
UPDATE shifts
SET closing_cash = $2, closing_revenue = $3, closing_orders = $4,
	expected_cash = $5, is_closed = TRUE, closed_at = now()
WHERE id = $1 AND NOT is_closed
RETURNING ` + shiftColumns

// CloseShift flips the one-way terminal flag; a second close matches zero rows.
func (q *Queries) CloseShift(ctx context.Context, arg CloseShiftParams) (Shift, error) {
	return scanShift(q.db.QueryRow(ctx, closeShift,
		arg.ID, arg.ClosingCash, arg.ClosingRevenue, arg.ClosingOrders, arg.ExpectedCash))
}

type CreateShiftPaymentTotalParams struct {
	ShiftID       uuid.UUID
	PaymentMethod string
	OrderCount    int32
	Revenue       pgtype.Numeric
}

const createShiftPaymentTotal = `
INSERT INTO shift_payment_totals (shift_id, payment_method, order_count, revenue)
VALUES ($1, $2, $3, $4)
RETURNING id, shift_id, payment_method, order_count, revenue
`

func (q *Queries) CreateShiftPaymentTotal(ctx context.Context, arg CreateShiftPaymentTotalParams) (ShiftPaymentTotal, error) {
	var t ShiftPaymentTotal
	err := q.db.QueryRow(ctx, createShiftPaymentTotal,
		arg.ShiftID, arg.PaymentMethod, arg.OrderCount, arg.Revenue,
	).Scan(&t.ID, &t.ShiftID, &t.PaymentMethod, &t.OrderCount, &t.Revenue)
	return t, err
}

const listShiftPaymentTotals = `
SELECT id, shift_id, payment_method, order_count, revenue
FROM shift_payment_totals
WHERE shift_id = $1
ORDER BY payment_method
`

func (q *Queries) ListShiftPaymentTotals(ctx context.Context, shiftID uuid.UUID) ([]ShiftPaymentTotal, error) {
	rows, err := q.db.Query(ctx, listShiftPaymentTotals, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ShiftPaymentTotal
	for rows.Next() {
		var t ShiftPaymentTotal
		if err := rows.Scan(&t.ID, &t.ShiftID, &t.PaymentMethod, &t.OrderCount, &t.Revenue); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

type ListShiftsByBranchParams struct {
	BranchID uuid.UUID
	Limit    int32
	Offset   int32
}

const listShiftsByBranch = `
SELECT ` + shiftColumns + `
FROM shifts
WHERE branch_id = $1
ORDER BY opened_at DESC
LIMIT $2 OFFSET $3
`

func (q *Queries) ListShiftsByBranch(ctx context.Context, arg ListShiftsByBranchParams) ([]Shift, error) {
	rows, err := q.db.Query(ctx, listShiftsByBranch, arg.BranchID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}
