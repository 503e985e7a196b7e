package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Errors returned by the services. Handlers map these to HTTP statuses.
var (
	ErrEmptyItems           = errors.New("items are required")
	ErrInvalidQuantity      = errors.New("quantity must be > 0")
	ErrInvalidOrderType     = errors.New("invalid order_type")
	ErrInvalidPaymentMethod = errors.New("invalid payment_method")
	ErrInvalidMenuItemID    = errors.New("invalid menu_item_id")
	ErrInvalidVariantID     = errors.New("invalid variant_id")
	ErrInvalidCustomerID    = errors.New("invalid customer_id")
	ErrMenuItemNotFound     = errors.New("menu item not found")
	ErrItemUnavailable      = errors.New("menu item is not available")
	ErrVariantNotFound      = errors.New("variant not found")
	ErrVariantMismatch      = errors.New("variant does not belong to menu item")
	ErrRecipeNotFound       = errors.New("menu item has no recipe")
	ErrCustomerNotFound     = errors.New("customer not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrAlreadyRefunded      = errors.New("order is already refunded")
	ErrRefundNotAllowed     = errors.New("refund not allowed for this user")
	ErrBranchMismatch       = errors.New("resource belongs to another branch")
	ErrNoOpenShift          = errors.New("cashier has no open shift")
	ErrShiftNotFound        = errors.New("shift not found")
	ErrShiftClosed          = errors.New("shift is already closed")
	ErrShiftAlreadyOpen     = errors.New("cashier already has an open shift")
	ErrTransferNotFound     = errors.New("transfer not found")
	ErrSameBranch           = errors.New("source and target branch must differ")
	ErrEmptyTransfer        = errors.New("transfer items are required")
	ErrIngredientNotFound   = errors.New("ingredient not found")
	ErrInvalidTxnType       = errors.New("invalid inventory transaction type")
	ErrInvalidAmount        = errors.New("invalid amount")
)

// InsufficientInventoryError reports which ingredient blocked a deduction and
// by how much. The whole transaction aborts; no partial stock change survives.
type InsufficientInventoryError struct {
	IngredientID   uuid.UUID
	IngredientName string
	Available      decimal.Decimal
	Required       decimal.Decimal
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory for %s: available %s, required %s",
		e.IngredientName, e.Available.String(), e.Required.String())
}

// TransitionError reports an attempted transfer status change that the state
// machine does not permit.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transfer transition %s -> %s", e.From, e.To)
}
