package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kopitiam-pos/api/internal/database"
	"github.com/kopitiam-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to create orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	RecipeStore
	LedgerStore
	NextOrderNumber(ctx context.Context, branchID uuid.UUID) (int32, error)
	GetOpenShiftByCashier(ctx context.Context, cashierID uuid.UUID) (database.Shift, error)
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	GetMenuVariant(ctx context.Context, id uuid.UUID) (database.MenuVariant, error)
	GetIngredient(ctx context.Context, id uuid.UUID) (database.Ingredient, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetCustomerForUpdate(ctx context.Context, id uuid.UUID) (database.Customer, error)
	UpdateCustomerLoyalty(ctx context.Context, arg database.UpdateCustomerLoyaltyParams) (database.Customer, error)
	CreateLoyaltyTransaction(ctx context.Context, arg database.CreateLoyaltyTransactionParams) (database.LoyaltyTransaction, error)
	CreateAuditLog(ctx context.Context, arg database.CreateAuditLogParams) (database.AuditLog, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	BranchID        uuid.UUID
	CashierID       uuid.UUID
	OrderType       string
	PaymentMethod   string
	CustomerID      string
	DeliveryFee     string
	DeliveryAddress string
	Items           []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single line in the order.
type CreateOrderItemRequest struct {
	MenuItemID string
	VariantID  string
	Quantity   int32
}

// CreateOrderResult is the full created order with items.
type CreateOrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	earnRate decimal.Decimal
}

// NewOrderService creates a new OrderService. earnRate is points earned per
// currency unit of order subtotal.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, earnRate decimal.Decimal) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, earnRate: earnRate}
}

// processedItem holds a prepared order item before insertion.
type processedItem struct {
	params database.CreateOrderItemParams
}

// deduction is the aggregated stock delta for one ingredient across every
// line of the order.
type deduction struct {
	ingredientID uuid.UUID
	quantity     decimal.Decimal
}

// CreateOrder validates the request, prices each line from the current
// catalog, deducts recipe ingredients from branch stock, credits loyalty, and
// writes all of it in one transaction. Any failure, including insufficient
// stock on the last ingredient, rolls the whole order back.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if err := validateOrderType(req.OrderType); err != nil {
		return nil, err
	}
	if err := validatePaymentMethod(req.PaymentMethod); err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
	}

	customerID := pgtype.UUID{}
	if req.CustomerID != "" {
		cid, err := uuid.Parse(req.CustomerID)
		if err != nil {
			return nil, ErrInvalidCustomerID
		}
		customerID = pgtype.UUID{Bytes: cid, Valid: true}
	}

	deliveryFee := decimal.Zero
	if req.OrderType == enum.OrderTypeDelivery && req.DeliveryFee != "" {
		df, err := decimal.NewFromString(req.DeliveryFee)
		if err != nil || df.IsNegative() {
			return nil, fmt.Errorf("%w: delivery_fee", ErrInvalidAmount)
		}
		deliveryFee = df
	}

	// --- Begin transaction ---
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Require an open shift for the cashier ---
	shift, err := store.GetOpenShiftByCashier(ctx, req.CashierID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoOpenShift
		}
		return nil, fmt.Errorf("get open shift: %w", err)
	}
	if shift.BranchID != req.BranchID {
		return nil, ErrBranchMismatch
	}

	// --- Allocate order number ---
	orderNumber, err := store.NextOrderNumber(ctx, req.BranchID)
	if err != nil {
		return nil, fmt.Errorf("next order number: %w", err)
	}

	// --- Price items and collect recipe deductions ---
	subtotal := decimal.Zero
	var items []processedItem
	needed := make(map[uuid.UUID]decimal.Decimal)

	for i, item := range req.Items {
		menuItemID, err := uuid.Parse(item.MenuItemID)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidMenuItemID)
		}
		menuItem, err := store.GetMenuItem(ctx, menuItemID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrMenuItemNotFound)
			}
			return nil, fmt.Errorf("item[%d]: get menu item: %w", i, err)
		}
		if !menuItem.IsActive {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrItemUnavailable)
		}

		unitPrice := numericToDecimal(menuItem.BasePrice)

		variantID := pgtype.UUID{}
		variantName := pgtype.Text{}
		variantModifier := pgtype.Numeric{}
		if item.VariantID != "" {
			vid, err := uuid.Parse(item.VariantID)
			if err != nil {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidVariantID)
			}
			variant, err := store.GetMenuVariant(ctx, vid)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return nil, fmt.Errorf("item[%d]: %w", i, ErrVariantNotFound)
				}
				return nil, fmt.Errorf("item[%d]: get variant: %w", i, err)
			}
			if variant.MenuItemID != menuItemID {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrVariantMismatch)
			}
			if !variant.IsActive {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrItemUnavailable)
			}
			variantID = pgtype.UUID{Bytes: vid, Valid: true}
			variantName = pgtype.Text{String: variant.Name, Valid: true}
			variantModifier = variant.PriceModifier
			unitPrice = unitPrice.Add(numericToDecimal(variant.PriceModifier))
		}

		recipe, err := resolveRecipe(ctx, store, menuItem, variantID)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, err)
		}

		qty := decimal.NewFromInt32(item.Quantity)
		for _, line := range recipe.Lines {
			needed[line.IngredientID] = needed[line.IngredientID].Add(
				numericToDecimal(line.QuantityRequired).Mul(qty))
		}

		itemSubtotal := unitPrice.Mul(qty)
		subtotal = subtotal.Add(itemSubtotal)

		items = append(items, processedItem{
			params: database.CreateOrderItemParams{
				MenuItemID:      menuItemID,
				MenuItemName:    menuItem.Name,
				VariantID:       variantID,
				VariantName:     variantName,
				VariantModifier: variantModifier,
				Quantity:        item.Quantity,
				UnitPrice:       decimalToNumeric(unitPrice),
				Subtotal:        decimalToNumeric(itemSubtotal),
				RecipeVersion:   recipe.Version,
				RecipeVariantID: recipe.SetVariantID,
			},
		})
	}

	totalAmount := subtotal.Add(deliveryFee)

	// --- Loyalty: lock the customer before touching stock so concurrent
	// orders for the same customer serialize in a stable order ---
	var customer database.Customer
	pointsEarned := int64(0)
	if customerID.Valid {
		customer, err = store.GetCustomerForUpdate(ctx, customerID.Bytes)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrCustomerNotFound
			}
			return nil, fmt.Errorf("lock customer: %w", err)
		}
		pointsEarned = PointsEarned(subtotal, s.earnRate)
	}

	deliveryAddress := pgtype.Text{}
	if req.DeliveryAddress != "" {
		deliveryAddress = pgtype.Text{String: req.DeliveryAddress, Valid: true}
	}

	// --- Insert order ---
	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		BranchID:        req.BranchID,
		OrderNumber:     orderNumber,
		ShiftID:         shift.ID,
		CashierID:       req.CashierID,
		CustomerID:      customerID,
		OrderType:       req.OrderType,
		PaymentMethod:   req.PaymentMethod,
		Subtotal:        decimalToNumeric(subtotal),
		DeliveryFee:     decimalToNumeric(deliveryFee),
		TotalAmount:     decimalToNumeric(totalAmount),
		PointsEarned:    pointsEarned,
		DeliveryAddress: deliveryAddress,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// --- Insert items ---
	var created []database.OrderItem
	for _, pi := range items {
		pi.params.OrderID = order.ID
		item, err := store.CreateOrderItem(ctx, pi.params)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		created = append(created, item)
	}

	// --- Deduct stock, one aggregated delta per ingredient ---
	orderRef := pgtype.UUID{Bytes: order.ID, Valid: true}
	for _, d := range sortedDeductions(needed) {
		ingredient, err := store.GetIngredient(ctx, d.ingredientID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("%w: %s", ErrIngredientNotFound, d.ingredientID)
			}
			return nil, fmt.Errorf("get ingredient: %w", err)
		}
		if _, err := applyStockChange(ctx, store, stockChange{
			branchID:       req.BranchID,
			ingredientID:   d.ingredientID,
			ingredientName: ingredient.Name,
			delta:          d.quantity.Neg(),
			txnType:        enum.InventoryTxnSale,
			orderID:        orderRef,
			actorID:        req.CashierID,
		}); err != nil {
			return nil, err
		}
	}

	// --- Credit loyalty and recompute tier ---
	if customerID.Valid {
		newSpent := numericToDecimal(customer.TotalSpent).Add(subtotal)
		if _, err := store.UpdateCustomerLoyalty(ctx, database.UpdateCustomerLoyaltyParams{
			ID:            customer.ID,
			LoyaltyPoints: customer.LoyaltyPoints + pointsEarned,
			TotalSpent:    decimalToNumeric(newSpent),
			OrderCount:    customer.OrderCount + 1,
			Tier:          TierForSpend(newSpent),
		}); err != nil {
			return nil, fmt.Errorf("update customer loyalty: %w", err)
		}
		if _, err := store.CreateLoyaltyTransaction(ctx, database.CreateLoyaltyTransactionParams{
			CustomerID: customer.ID,
			Points:     pointsEarned,
			Type:       enum.LoyaltyTxnEarned,
			OrderID:    orderRef,
		}); err != nil {
			return nil, fmt.Errorf("create loyalty transaction: %w", err)
		}
	}

	if _, err := store.CreateAuditLog(ctx, database.CreateAuditLogParams{
		BranchID: pgtype.UUID{Bytes: req.BranchID, Valid: true},
		ActorID:  req.CashierID,
		Action:   "order.created",
		Entity:   "order",
		EntityID: order.ID,
	}); err != nil {
		return nil, fmt.Errorf("create audit log: %w", err)
	}

	// --- Commit ---
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{Order: order, Items: created}, nil
}

// sortedDeductions flattens the aggregated map in ascending ingredient ID
// order. Every writer locks inventory rows in this same order, which rules
// out deadlocks between concurrent orders sharing ingredients.
func sortedDeductions(needed map[uuid.UUID]decimal.Decimal) []deduction {
	out := make([]deduction, 0, len(needed))
	for id, qty := range needed {
		out = append(out, deduction{ingredientID: id, quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].ingredientID[:], out[j].ingredientID[:]) < 0
	})
	return out
}

// --- Helpers ---

func validateOrderType(s string) error {
	switch s {
	case enum.OrderTypeDineIn, enum.OrderTypeTakeaway, enum.OrderTypeDelivery:
		return nil
	}
	return ErrInvalidOrderType
}

func validatePaymentMethod(s string) error {
	switch s {
	case enum.PaymentMethodCash, enum.PaymentMethodCard,
		enum.PaymentMethodQRIS, enum.PaymentMethodTransfer:
		return nil
	}
	return ErrInvalidPaymentMethod
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.String())
	return n
}
