package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type EnsureBranchInventoryParams struct {
	BranchID     uuid.UUID
	IngredientID uuid.UUID
}

const ensureBranchInventory = `
INSERT INTO branch_inventory (branch_id, ingredient_id, current_stock)
VALUES ($1, $2, 0)
ON CONFLICT (branch_id, ingredient_id) DO NOTHING
`

// EnsureBranchInventory lazily creates a stock row at zero. Stock rows are
// never created anywhere else.
func (q *Queries) EnsureBranchInventory(ctx context.Context, arg EnsureBranchInventoryParams) error {
	_, err := q.db.Exec(ctx, ensureBranchInventory, arg.BranchID, arg.IngredientID)
	return err
}

type GetBranchInventoryForUpdateParams struct {
	BranchID     uuid.UUID
	IngredientID uuid.UUID
}

const getBranchInventoryForUpdate = `
SELECT id, branch_id, ingredient_id, current_stock, updated_at
FROM branch_inventory
WHERE branch_id = $1 AND ingredient_id = $2
FOR UPDATE
`

// GetBranchInventoryForUpdate locks the (branch, ingredient) stock row for
// the duration of the transaction. Concurrent orders competing for the same
// ingredient serialize here.
func (q *Queries) GetBranchInventoryForUpdate(ctx context.Context, arg GetBranchInventoryForUpdateParams) (BranchInventory, error) {
	var b BranchInventory
	err := q.db.QueryRow(ctx, getBranchInventoryForUpdate, arg.BranchID, arg.IngredientID).
		Scan(&b.ID, &b.BranchID, &b.IngredientID, &b.CurrentStock, &b.UpdatedAt)
	return b, err
}

type SetBranchStockParams struct {
	BranchID     uuid.UUID
	IngredientID uuid.UUID
	CurrentStock pgtype.Numeric
}

const setBranchStock = `
UPDATE branch_inventory
SET current_stock = $3, updated_at = now()
WHERE branch_id = $1 AND ingredient_id = $2
`

func (q *Queries) SetBranchStock(ctx context.Context, arg SetBranchStockParams) error {
	_, err := q.db.Exec(ctx, setBranchStock, arg.BranchID, arg.IngredientID, arg.CurrentStock)
	return err
}

type AppendInventoryTransactionParams struct {
	BranchID       uuid.UUID
	IngredientID   uuid.UUID
	Type           string
	QuantityChange pgtype.Numeric
	StockBefore    pgtype.Numeric
	StockAfter     pgtype.Numeric
	OrderID        pgtype.UUID
	TransferID     pgtype.UUID
	ActorID        uuid.UUID
	Reason         pgtype.Text
}

const appendInventoryTransaction = `
INSERT INTO inventory_transactions (branch_id, ingredient_id, type, quantity_change,
	stock_before, stock_after, order_id, transfer_id, actor_id, reason)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id, branch_id, ingredient_id, type, quantity_change, stock_before,
	stock_after, order_id, transfer_id, actor_id, reason, created_at
`

func (q *Queries) AppendInventoryTransaction(ctx context.Context, arg AppendInventoryTransactionParams) (InventoryTransaction, error) {
	var t InventoryTransaction
	err := q.db.QueryRow(ctx, appendInventoryTransaction,
		arg.BranchID, arg.IngredientID, arg.Type, arg.QuantityChange,
		arg.StockBefore, arg.StockAfter, arg.OrderID, arg.TransferID,
		arg.ActorID, arg.Reason,
	).Scan(
		&t.ID, &t.BranchID, &t.IngredientID, &t.Type, &t.QuantityChange,
		&t.StockBefore, &t.StockAfter, &t.OrderID, &t.TransferID,
		&t.ActorID, &t.Reason, &t.CreatedAt,
	)
	return t, err
}

type ListBranchInventoryParams struct {
	BranchID uuid.UUID
	Limit    int32
	Offset   int32
}

type ListBranchInventoryRow struct {
	IngredientID   uuid.UUID
	IngredientName string
	Unit           string
	CurrentStock   pgtype.Numeric
	UpdatedAt      pgtype.Timestamptz
}

const listBranchInventory = `
SELECT i.id, i.name, i.unit, bi.current_stock, bi.updated_at
FROM branch_inventory bi
JOIN ingredients i ON i.id = bi.ingredient_id
WHERE bi.branch_id = $1
ORDER BY i.name
LIMIT $2 OFFSET $3
`

func (q *Queries) ListBranchInventory(ctx context.Context, arg ListBranchInventoryParams) ([]ListBranchInventoryRow, error) {
	rows, err := q.db.Query(ctx, listBranchInventory, arg.BranchID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListBranchInventoryRow
	for rows.Next() {
		var r ListBranchInventoryRow
		if err := rows.Scan(&r.IngredientID, &r.IngredientName, &r.Unit, &r.CurrentStock, &r.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

type ListInventoryTransactionsParams struct {
	BranchID     uuid.UUID
	IngredientID uuid.UUID
	Limit        int32
	Offset       int32
}

const listInventoryTransactions = `
SELECT id, branch_id, ingredient_id, type, quantity_change, stock_before,
	stock_after, order_id, transfer_id, actor_id, reason, created_at
FROM inventory_transactions
WHERE branch_id = $1 AND ingredient_id = $2
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4
`

func (q *Queries) ListInventoryTransactions(ctx context.Context, arg ListInventoryTransactionsParams) ([]InventoryTransaction, error) {
	rows, err := q.db.Query(ctx, listInventoryTransactions,
		arg.BranchID, arg.IngredientID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InventoryTransaction
	for rows.Next() {
		var t InventoryTransaction
		if err := rows.Scan(
			&t.ID, &t.BranchID, &t.IngredientID, &t.Type, &t.QuantityChange,
			&t.StockBefore, &t.StockAfter, &t.OrderID, &t.TransferID,
			&t.ActorID, &t.Reason, &t.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}
