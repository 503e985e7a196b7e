package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kopitiam-pos/api/internal/auth"
	"github.com/kopitiam-pos/api/internal/service"
	"github.com/shopspring/decimal"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

// parsePagination reads limit/offset query params with sane defaults.
func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset = 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}

// principalFromClaims converts JWT claims into the identity the services
// authorize against.
func principalFromClaims(c *auth.Claims) service.Principal {
	return service.Principal{
		UserID:   c.UserID,
		BranchID: c.BranchID,
		Role:     c.Role,
	}
}

// respondServiceError maps known service errors to HTTP statuses. Anything
// unrecognized is logged and reported as a 500.
func respondServiceError(w http.ResponseWriter, op string, err error) {
	var insufficient *service.InsufficientInventoryError
	if errors.As(err, &insufficient) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": insufficient.Error()})
		return
	}
	var transition *service.TransitionError
	if errors.As(err, &transition) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": transition.Error()})
		return
	}
	switch {
	case isValidationError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case isNotFoundError(err):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case isForbiddenError(err):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case isConflictError(err):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

// isValidationError checks if the error is a known bad-input error from the
// service layer that should result in 400 Bad Request. Catalog lookups that
// fail inside order creation land here too: the order resource is fine, the
// request body referenced something that does not exist.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidOrderType) ||
		errors.Is(err, service.ErrInvalidPaymentMethod) ||
		errors.Is(err, service.ErrInvalidMenuItemID) ||
		errors.Is(err, service.ErrInvalidVariantID) ||
		errors.Is(err, service.ErrInvalidCustomerID) ||
		errors.Is(err, service.ErrMenuItemNotFound) ||
		errors.Is(err, service.ErrItemUnavailable) ||
		errors.Is(err, service.ErrVariantNotFound) ||
		errors.Is(err, service.ErrVariantMismatch) ||
		errors.Is(err, service.ErrRecipeNotFound) ||
		errors.Is(err, service.ErrCustomerNotFound) ||
		errors.Is(err, service.ErrSameBranch) ||
		errors.Is(err, service.ErrEmptyTransfer) ||
		errors.Is(err, service.ErrIngredientNotFound) ||
		errors.Is(err, service.ErrInvalidAmount)
}

func isNotFoundError(err error) bool {
	return errors.Is(err, service.ErrOrderNotFound) ||
		errors.Is(err, service.ErrShiftNotFound) ||
		errors.Is(err, service.ErrTransferNotFound)
}

func isForbiddenError(err error) bool {
	return errors.Is(err, service.ErrRefundNotAllowed) ||
		errors.Is(err, service.ErrBranchMismatch)
}

func isConflictError(err error) bool {
	return errors.Is(err, service.ErrAlreadyRefunded) ||
		errors.Is(err, service.ErrNoOpenShift) ||
		errors.Is(err, service.ErrShiftClosed) ||
		errors.Is(err, service.ErrShiftAlreadyOpen)
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}

// quantityToString keeps the full precision of stock quantities, unlike
// numericToString which renders money at two decimal places.
func quantityToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0"
	}
	return d.String()
}
