package enum

// --- State machines (CHECK constrained in DB) ---

const (
	TransferStatusPending   = "PENDING"
	TransferStatusApproved  = "APPROVED"
	TransferStatusInTransit = "IN_TRANSIT"
	TransferStatusCompleted = "COMPLETED"
	TransferStatusCancelled = "CANCELLED"
)

// Inventory ledger entry kinds. The ledger append is the only code path
// allowed to consume these; callers never write raw strings.
const (
	InventoryTxnSale       = "SALE"
	InventoryTxnRefund     = "REFUND"
	InventoryTxnAdjustment = "ADJUSTMENT"
)

const (
	LoyaltyTxnEarned     = "EARNED"
	LoyaltyTxnRedeemed   = "REDEEMED"
	LoyaltyTxnAdjustment = "ADJUSTMENT"
)

// --- Principals ---

const (
	UserRoleAdmin         = "ADMIN"
	UserRoleBranchManager = "BRANCH_MANAGER"
	UserRoleCashier       = "CASHIER"
	UserRoleKitchen       = "KITCHEN"
)

// --- Orders ---

const (
	OrderTypeDineIn   = "DINE_IN"
	OrderTypeTakeaway = "TAKEAWAY"
	OrderTypeDelivery = "DELIVERY"
)

const (
	PaymentMethodCash     = "CASH"
	PaymentMethodCard     = "CARD"
	PaymentMethodQRIS     = "QRIS"
	PaymentMethodTransfer = "TRANSFER"
)

// --- Loyalty tiers, ascending by spend threshold ---

const (
	TierRegular  = "REGULAR"
	TierBronze   = "BRONZE"
	TierSilver   = "SILVER"
	TierGold     = "GOLD"
	TierPlatinum = "PLATINUM"
	TierDiamond  = "DIAMOND"
	TierElite    = "ELITE"
)

// ValidInventoryTxnType reports whether s is a member of the closed
// inventory transaction kind set.
func ValidInventoryTxnType(s string) bool {
	switch s {
	case InventoryTxnSale, InventoryTxnRefund, InventoryTxnAdjustment:
		return true
	}
	return false
}

// ValidTransferStatus reports whether s is a known transfer status.
func ValidTransferStatus(s string) bool {
	switch s {
	case TransferStatusPending, TransferStatusApproved, TransferStatusInTransit,
		TransferStatusCompleted, TransferStatusCancelled:
		return true
	}
	return false
}
