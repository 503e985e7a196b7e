package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kopitiam-pos/api/internal/database"
	"github.com/kopitiam-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

// LedgerStore defines the DB methods needed to move stock.
// Satisfied by *database.Queries (and its WithTx variant).
type LedgerStore interface {
	EnsureBranchInventory(ctx context.Context, arg database.EnsureBranchInventoryParams) error
	GetBranchInventoryForUpdate(ctx context.Context, arg database.GetBranchInventoryForUpdateParams) (database.BranchInventory, error)
	SetBranchStock(ctx context.Context, arg database.SetBranchStockParams) error
	AppendInventoryTransaction(ctx context.Context, arg database.AppendInventoryTransactionParams) (database.InventoryTransaction, error)
}

// stockChange is one ingredient delta to apply inside an open transaction.
type stockChange struct {
	branchID       uuid.UUID
	ingredientID   uuid.UUID
	ingredientName string
	delta          decimal.Decimal
	txnType        string
	orderID        pgtype.UUID
	transferID     pgtype.UUID
	actorID        uuid.UUID
	reason         pgtype.Text
}

// applyStockChange is the single gate through which stock moves. It locks the
// branch_inventory row, recomputes the balance, rejects a negative result,
// writes the new balance, and appends the ledger entry carrying the before and
// after snapshots. Every caller already holds an open transaction, so either
// all of its changes land or none do.
func applyStockChange(ctx context.Context, store LedgerStore, c stockChange) (database.InventoryTransaction, error) {
	if !enum.ValidInventoryTxnType(c.txnType) {
		return database.InventoryTransaction{}, fmt.Errorf("%w: %s", ErrInvalidTxnType, c.txnType)
	}

	// Lazily create the inventory row at zero so a branch that never stocked
	// an ingredient still fails with "insufficient", not "no rows".
	if err := store.EnsureBranchInventory(ctx, database.EnsureBranchInventoryParams{
		BranchID:     c.branchID,
		IngredientID: c.ingredientID,
	}); err != nil {
		return database.InventoryTransaction{}, fmt.Errorf("ensure inventory row: %w", err)
	}

	inv, err := store.GetBranchInventoryForUpdate(ctx, database.GetBranchInventoryForUpdateParams{
		BranchID:     c.branchID,
		IngredientID: c.ingredientID,
	})
	if err != nil {
		return database.InventoryTransaction{}, fmt.Errorf("lock inventory row: %w", err)
	}

	before := numericToDecimal(inv.CurrentStock)
	after := before.Add(c.delta)
	if after.IsNegative() {
		return database.InventoryTransaction{}, &InsufficientInventoryError{
			IngredientID:   c.ingredientID,
			IngredientName: c.ingredientName,
			Available:      before,
			Required:       c.delta.Neg(),
		}
	}

	if err := store.SetBranchStock(ctx, database.SetBranchStockParams{
		BranchID:     c.branchID,
		IngredientID: c.ingredientID,
		CurrentStock: decimalToNumeric(after),
	}); err != nil {
		return database.InventoryTransaction{}, fmt.Errorf("set stock: %w", err)
	}

	entry, err := store.AppendInventoryTransaction(ctx, database.AppendInventoryTransactionParams{
		BranchID:       c.branchID,
		IngredientID:   c.ingredientID,
		Type:           c.txnType,
		QuantityChange: decimalToNumeric(c.delta),
		StockBefore:    decimalToNumeric(before),
		StockAfter:     decimalToNumeric(after),
		OrderID:        c.orderID,
		TransferID:     c.transferID,
		ActorID:        c.actorID,
		Reason:         c.reason,
	})
	if err != nil {
		return database.InventoryTransaction{}, fmt.Errorf("append ledger entry: %w", err)
	}
	return entry, nil
}
