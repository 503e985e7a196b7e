package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Branch struct {
	ID        uuid.UUID
	Name      string
	Address   pgtype.Text
	IsActive  bool
	CreatedAt time.Time
}

type User struct {
	ID             uuid.UUID
	BranchID       uuid.UUID
	FullName       string
	Email          string
	HashedPassword string
	Role           string
	// CurrentShiftID points at the cashier's open shift, if any. It is set
	// when a shift opens and cleared when it closes, always inside the same
	// transaction as the shift row itself.
	CurrentShiftID pgtype.UUID
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Customer struct {
	ID            uuid.UUID
	FullName      string
	Phone         string
	Email         pgtype.Text
	LoyaltyPoints int64
	TotalSpent    pgtype.Numeric
	OrderCount    int32
	Tier          string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Ingredient struct {
	ID          uuid.UUID
	Name        string
	Unit        string
	CostPerUnit pgtype.Numeric
	CreatedAt   time.Time
}

type MenuItem struct {
	ID        uuid.UUID
	Name      string
	Category  pgtype.Text
	BasePrice pgtype.Numeric
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type MenuVariant struct {
	ID            uuid.UUID
	MenuItemID    uuid.UUID
	Name          string
	PriceModifier pgtype.Numeric
	IsActive      bool
}

type Recipe struct {
	ID               uuid.UUID
	MenuItemID       uuid.UUID
	VariantID        pgtype.UUID
	IngredientID     uuid.UUID
	QuantityRequired pgtype.Numeric
	Unit             string
	Version          int32
}

type BranchInventory struct {
	ID           uuid.UUID
	BranchID     uuid.UUID
	IngredientID uuid.UUID
	CurrentStock pgtype.Numeric
	UpdatedAt    time.Time
}

// InventoryTransaction is an append-only ledger row. Rows are never updated
// or deleted; current stock is the running total of quantity_change.
type InventoryTransaction struct {
	ID             uuid.UUID
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
	CreatedAt      time.Time
}

type Order struct {
	ID          uuid.UUID
	BranchID    uuid.UUID
	OrderNumber int32
	ShiftID     uuid.UUID
	CashierID   uuid.UUID
	CustomerID  pgtype.UUID
	OrderType   string
	PaymentMethod   string
	Subtotal        pgtype.Numeric
	DeliveryFee     pgtype.Numeric
	TotalAmount     pgtype.Numeric
	PointsEarned    int64
	DeliveryAddress pgtype.Text
	IsRefunded      bool
	RefundReason    pgtype.Text
	RefundedBy      pgtype.UUID
	RefundedAt      pgtype.Timestamptz
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem snapshots price, variant, and recipe version at creation time so
// later catalog edits never change a historical order's totals or refunds.
type OrderItem struct {
	ID              uuid.UUID
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

type LoyaltyTransaction struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	Points     int64
	Type       string
	OrderID    pgtype.UUID
	Reason     pgtype.Text
	CreatedAt  time.Time
}

type Shift struct {
	ID             uuid.UUID
	BranchID       uuid.UUID
	CashierID      uuid.UUID
	OpeningCash    pgtype.Numeric
	OpeningRevenue pgtype.Numeric
	OpeningOrders  int32
	ClosingCash    pgtype.Numeric
	ClosingRevenue pgtype.Numeric
	ClosingOrders  pgtype.Int4
	ExpectedCash   pgtype.Numeric
	IsClosed       bool
	OpenedAt       time.Time
	ClosedAt       pgtype.Timestamptz
}

type ShiftPaymentTotal struct {
	ID            uuid.UUID
	ShiftID       uuid.UUID
	PaymentMethod string
	OrderCount    int32
	Revenue       pgtype.Numeric
}

type Transfer struct {
	ID             uuid.UUID
	SourceBranchID uuid.UUID
	TargetBranchID uuid.UUID
	Status         string
	Notes          pgtype.Text
	RequestedBy    uuid.UUID
	ApprovedBy     pgtype.UUID
	ShippedBy      pgtype.UUID
	CompletedBy    pgtype.UUID
	CancelledBy    pgtype.UUID
	RequestedAt    time.Time
	ApprovedAt     pgtype.Timestamptz
	ShippedAt      pgtype.Timestamptz
	CompletedAt    pgtype.Timestamptz
	CancelledAt    pgtype.Timestamptz
}

type TransferItem struct {
	ID           uuid.UUID
	TransferID   uuid.UUID
	IngredientID uuid.UUID
	Quantity     pgtype.Numeric
}

type AuditLog struct {
	ID        uuid.UUID
	BranchID  pgtype.UUID
	ActorID   uuid.UUID
	Action    string
	Entity    string
	EntityID  uuid.UUID
	Detail    pgtype.Text
	CreatedAt time.Time
}
