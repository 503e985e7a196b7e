package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kopitiam-pos/api/internal/database"
	"github.com/kopitiam-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

// Principal identifies the authenticated user performing an operation.
type Principal struct {
	UserID   uuid.UUID
	BranchID uuid.UUID
	Role     string
}

// RefundStore defines the DB methods needed to refund orders.
type RefundStore interface {
	RecipeStore
	LedgerStore
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	MarkOrderRefunded(ctx context.Context, arg database.MarkOrderRefundedParams) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	GetIngredient(ctx context.Context, id uuid.UUID) (database.Ingredient, error)
	GetCustomerForUpdate(ctx context.Context, id uuid.UUID) (database.Customer, error)
	UpdateCustomerLoyalty(ctx context.Context, arg database.UpdateCustomerLoyaltyParams) (database.Customer, error)
	CreateLoyaltyTransaction(ctx context.Context, arg database.CreateLoyaltyTransactionParams) (database.LoyaltyTransaction, error)
	CreateAuditLog(ctx context.Context, arg database.CreateAuditLogParams) (database.AuditLog, error)
}

// NewRefundStore creates a RefundStore from a DBTX (pool or tx).
type NewRefundStore func(db database.DBTX) RefundStore

// RefundService reverses completed orders.
type RefundService struct {
	pool     TxBeginner
	newStore NewRefundStore
}

func NewRefundService(pool TxBeginner, newStore NewRefundStore) *RefundService {
	return &RefundService{pool: pool, newStore: newStore}
}

// RefundOrder restores every ingredient the order deducted, using the recipe
// version snapshotted at sale time, and reverses the loyalty credit using the
// points snapshotted on the order row. The result is an exact inverse of the
// sale even if recipes, prices, or the earn rate changed since. Only an admin
// or the owning branch's manager may refund.
func (s *RefundService) RefundOrder(ctx context.Context, p Principal, orderID uuid.UUID, reason string) (*database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}

	switch p.Role {
	case enum.UserRoleAdmin:
	case enum.UserRoleBranchManager:
		if order.BranchID != p.BranchID {
			return nil, ErrRefundNotAllowed
		}
	default:
		return nil, ErrRefundNotAllowed
	}
	if order.IsRefunded {
		return nil, ErrAlreadyRefunded
	}

	refundReason := pgtype.Text{}
	if reason != "" {
		refundReason = pgtype.Text{String: reason, Valid: true}
	}
	// The conditional update is the one-way gate: it matches at most once per
	// order, so a racing refund that lost the row lock fails here.
	refunded, err := store.MarkOrderRefunded(ctx, database.MarkOrderRefundedParams{
		ID:           order.ID,
		RefundReason: refundReason,
		RefundedBy:   p.UserID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlreadyRefunded
		}
		return nil, fmt.Errorf("mark refunded: %w", err)
	}

	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	// --- Restore stock from the snapshotted recipe versions ---
	restore := make(map[uuid.UUID]decimal.Decimal)
	for _, item := range items {
		recipe, err := recipeSetForVersion(ctx, store, item)
		if err != nil {
			return nil, err
		}
		qty := decimal.NewFromInt32(item.Quantity)
		for _, line := range recipe {
			restore[line.IngredientID] = restore[line.IngredientID].Add(
				numericToDecimal(line.QuantityRequired).Mul(qty))
		}
	}

	orderRef := pgtype.UUID{Bytes: order.ID, Valid: true}
	for _, d := range sortedDeductions(restore) {
		ingredient, err := store.GetIngredient(ctx, d.ingredientID)
		if err != nil {
			return nil, fmt.Errorf("get ingredient: %w", err)
		}
		if _, err := applyStockChange(ctx, store, stockChange{
			branchID:       order.BranchID,
			ingredientID:   d.ingredientID,
			ingredientName: ingredient.Name,
			delta:          d.quantity,
			txnType:        enum.InventoryTxnRefund,
			orderID:        orderRef,
			actorID:        p.UserID,
			reason:         refundReason,
		}); err != nil {
			return nil, err
		}
	}

	// --- Reverse the loyalty credit ---
	if order.CustomerID.Valid {
		customer, err := store.GetCustomerForUpdate(ctx, order.CustomerID.Bytes)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrCustomerNotFound
			}
			return nil, fmt.Errorf("lock customer: %w", err)
		}
		newSpent := numericToDecimal(customer.TotalSpent).Sub(numericToDecimal(order.Subtotal))
		if _, err := store.UpdateCustomerLoyalty(ctx, database.UpdateCustomerLoyaltyParams{
			ID:            customer.ID,
			LoyaltyPoints: customer.LoyaltyPoints - order.PointsEarned,
			TotalSpent:    decimalToNumeric(newSpent),
			OrderCount:    customer.OrderCount - 1,
			Tier:          TierForSpend(newSpent),
		}); err != nil {
			return nil, fmt.Errorf("update customer loyalty: %w", err)
		}
		if _, err := store.CreateLoyaltyTransaction(ctx, database.CreateLoyaltyTransactionParams{
			CustomerID: customer.ID,
			Points:     -order.PointsEarned,
			Type:       enum.LoyaltyTxnRedeemed,
			OrderID:    orderRef,
			Reason:     pgtype.Text{String: "order refund", Valid: true},
		}); err != nil {
			return nil, fmt.Errorf("create loyalty transaction: %w", err)
		}
	}

	if _, err := store.CreateAuditLog(ctx, database.CreateAuditLogParams{
		BranchID: pgtype.UUID{Bytes: order.BranchID, Valid: true},
		ActorID:  p.UserID,
		Action:   "order.refunded",
		Entity:   "order",
		EntityID: order.ID,
		Detail:   refundReason,
	}); err != nil {
		return nil, fmt.Errorf("create audit log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &refunded, nil
}
