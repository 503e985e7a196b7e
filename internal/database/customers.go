package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const customerColumns = `id, full_name, phone, email, loyalty_points, total_spent,
	order_count, tier, created_at, updated_at`

func scanCustomer(row interface{ Scan(dest ...any) error }) (Customer, error) {
	var c Customer
	err := row.Scan(
		&c.ID, &c.FullName, &c.Phone, &c.Email, &c.LoyaltyPoints,
		&c.TotalSpent, &c.OrderCount, &c.Tier, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

const getCustomer = `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

func (q *Queries) GetCustomer(ctx context.Context, id uuid.UUID) (Customer, error) {
	return scanCustomer(q.db.QueryRow(ctx, getCustomer, id))
}

const getCustomerForUpdate = `SELECT ` + customerColumns + ` FROM customers WHERE id = $1 FOR UPDATE`

// GetCustomerForUpdate locks the customer row so loyalty points, spend, and
// order count mutate in lockstep under concurrent orders and refunds.
func (q *Queries) GetCustomerForUpdate(ctx context.Context, id uuid.UUID) (Customer, error) {
	return scanCustomer(q.db.QueryRow(ctx, getCustomerForUpdate, id))
}

type UpdateCustomerLoyaltyParams struct {
	ID            uuid.UUID
	LoyaltyPoints int64
	TotalSpent    pgtype.Numeric
	OrderCount    int32
	Tier          string
}

const updateCustomerLoyalty = `
UPDATE customers
SET loyalty_points = $2, total_spent = $3, order_count = $4, tier = $5, updated_at = now()
WHERE id = $1
RETURNING ` + customerColumns

func (q *Queries) UpdateCustomerLoyalty(ctx context.Context, arg UpdateCustomerLoyaltyParams) (Customer, error) {
	return scanCustomer(q.db.QueryRow(ctx, updateCustomerLoyalty,
		arg.ID, arg.LoyaltyPoints, arg.TotalSpent, arg.OrderCount, arg.Tier))
}

type CreateCustomerParams struct {
	FullName string
	Phone    string
	Email    pgtype.Text
	Tier     string
}

const createCustomer = `
INSERT INTO customers (full_name, phone, email, tier)
VALUES ($1, $2, $3, $4)
RETURNING ` + customerColumns

func (q *Queries) CreateCustomer(ctx context.Context, arg CreateCustomerParams) (Customer, error) {
	return scanCustomer(q.db.QueryRow(ctx, createCustomer,
		arg.FullName, arg.Phone, arg.Email, arg.Tier))
}

type CreateLoyaltyTransactionParams struct {
	CustomerID uuid.UUID
	Points     int64
	Type       string
	OrderID    pgtype.UUID
	Reason     pgtype.Text
}

const createLoyaltyTransaction = `
INSERT INTO loyalty_transactions (customer_id, points, type, order_id, reason)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, customer_id, points, type, order_id, reason, created_at
`

func (q *Queries) CreateLoyaltyTransaction(ctx context.Context, arg CreateLoyaltyTransactionParams) (LoyaltyTransaction, error) {
	var t LoyaltyTransaction
	err := q.db.QueryRow(ctx, createLoyaltyTransaction,
		arg.CustomerID, arg.Points, arg.Type, arg.OrderID, arg.Reason,
	).Scan(&t.ID, &t.CustomerID, &t.Points, &t.Type, &t.OrderID, &t.Reason, &t.CreatedAt)
	return t, err
}

type ListLoyaltyTransactionsParams struct {
	CustomerID uuid.UUID
	Limit      int32
	Offset     int32
}

const listLoyaltyTransactions = `
SELECT id, customer_id, points, type, order_id, reason, created_at
FROM loyalty_transactions
WHERE customer_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3
`

func (q *Queries) ListLoyaltyTransactions(ctx context.Context, arg ListLoyaltyTransactionsParams) ([]LoyaltyTransaction, error) {
	rows, err := q.db.Query(ctx, listLoyaltyTransactions, arg.CustomerID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LoyaltyTransaction
	for rows.Next() {
		var t LoyaltyTransaction
		if err := rows.Scan(&t.ID, &t.CustomerID, &t.Points, &t.Type, &t.OrderID, &t.Reason, &t.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

type ListCustomersParams struct {
	Limit  int32
	Offset int32
}

const listCustomers = `
SELECT ` + customerColumns + `
FROM customers
ORDER BY full_name
LIMIT $1 OFFSET $2
`

func (q *Queries) ListCustomers(ctx context.Context, arg ListCustomersParams) ([]Customer, error) {
	rows, err := q.db.Query(ctx, listCustomers, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}
