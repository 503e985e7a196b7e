package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kopitiam-pos/api/internal/database"
	"github.com/kopitiam-pos/api/internal/middleware"
	"github.com/kopitiam-pos/api/internal/service"
)

// ShiftServicer defines the service methods needed by shift handlers.
// Satisfied by *service.ShiftService.
type ShiftServicer interface {
	OpenShift(ctx context.Context, p service.Principal, branchID uuid.UUID, openingCash string) (*database.Shift, error)
	CloseShift(ctx context.Context, p service.Principal, shiftID uuid.UUID, closingCash string) (*service.CloseShiftResult, error)
}

// ShiftStore defines the database methods needed by shift read handlers.
// Satisfied by *database.Queries.
type ShiftStore interface {
	GetShift(ctx context.Context, id uuid.UUID) (database.Shift, error)
	GetOpenShiftByCashier(ctx context.Context, cashierID uuid.UUID) (database.Shift, error)
	ListShiftsByBranch(ctx context.Context, arg database.ListShiftsByBranchParams) ([]database.Shift, error)
	ListShiftPaymentTotals(ctx context.Context, shiftID uuid.UUID) ([]database.ShiftPaymentTotal, error)
}

// ShiftHandler handles shift endpoints.
type ShiftHandler struct {
	svc   ShiftServicer
	store ShiftStore
}

// NewShiftHandler creates a new ShiftHandler.
func NewShiftHandler(svc ShiftServicer, store ShiftStore) *ShiftHandler {
	return &ShiftHandler{svc: svc, store: store}
}

// RegisterRoutes registers shift endpoints on the given Chi router.
// Expected to be mounted inside a branch-scoped subrouter: /branches/{bid}/shifts
func (h *ShiftHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Open)
	r.Get("/", h.List)
	r.Get("/current", h.Current)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/close", h.Close)
}

// --- Request / Response types ---

type openShiftRequest struct {
	OpeningCash string `json:"opening_cash"`
}

type closeShiftRequest struct {
	ClosingCash string `json:"closing_cash"`
}

type shiftResponse struct {
	ID             uuid.UUID              `json:"id"`
	BranchID       uuid.UUID              `json:"branch_id"`
	CashierID      uuid.UUID              `json:"cashier_id"`
	OpeningCash    string                 `json:"opening_cash"`
	ClosingCash    *string                `json:"closing_cash"`
	ClosingRevenue *string                `json:"closing_revenue"`
	ClosingOrders  *int32                 `json:"closing_orders"`
	ExpectedCash   *string                `json:"expected_cash"`
	IsClosed       bool                   `json:"is_closed"`
	OpenedAt       time.Time              `json:"opened_at"`
	ClosedAt       *time.Time             `json:"closed_at"`
	PaymentTotals  []paymentTotalResponse `json:"payment_totals,omitempty"`
}

type paymentTotalResponse struct {
	PaymentMethod string `json:"payment_method"`
	OrderCount    int32  `json:"order_count"`
	Revenue       string `json:"revenue"`
}

type shiftListResponse struct {
	Shifts []shiftResponse `json:"shifts"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// --- Handlers ---

// Open handles POST /branches/{bid}/shifts.
func (h *ShiftHandler) Open(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	var req openShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	shift, err := h.svc.OpenShift(r.Context(), principalFromClaims(claims), branchID, req.OpeningCash)
	if err != nil {
		respondServiceError(w, "open shift", err)
		return
	}

	writeJSON(w, http.StatusCreated, toShiftResponse(*shift, nil))
}

// Close handles POST /branches/{bid}/shifts/{id}/close.
func (h *ShiftHandler) Close(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	shiftID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid shift ID"})
		return
	}

	var req closeShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.svc.CloseShift(r.Context(), principalFromClaims(claims), shiftID, req.ClosingCash)
	if err != nil {
		respondServiceError(w, "close shift", err)
		return
	}

	writeJSON(w, http.StatusOK, toShiftResponse(result.Shift, result.Totals))
}

// List handles GET /branches/{bid}/shifts.
func (h *ShiftHandler) List(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	limit, offset := parsePagination(r)

	shifts, err := h.store.ListShiftsByBranch(r.Context(), database.ListShiftsByBranchParams{
		BranchID: branchID,
		Limit:    int32(limit),
		Offset:   int32(offset),
	})
	if err != nil {
		respondServiceError(w, "list shifts", err)
		return
	}

	resp := make([]shiftResponse, len(shifts))
	for i, s := range shifts {
		resp[i] = toShiftResponse(s, nil)
	}

	writeJSON(w, http.StatusOK, shiftListResponse{
		Shifts: resp,
		Limit:  limit,
		Offset: offset,
	})
}

// Current handles GET /branches/{bid}/shifts/current. It returns the calling
// cashier's open shift, if any.
func (h *ShiftHandler) Current(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	shift, err := h.store.GetOpenShiftByCashier(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no open shift"})
			return
		}
		respondServiceError(w, "get current shift", err)
		return
	}

	writeJSON(w, http.StatusOK, toShiftResponse(shift, nil))
}

// Get handles GET /branches/{bid}/shifts/{id}.
func (h *ShiftHandler) Get(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	shiftID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid shift ID"})
		return
	}

	shift, err := h.store.GetShift(r.Context(), shiftID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "shift not found"})
			return
		}
		respondServiceError(w, "get shift", err)
		return
	}
	if shift.BranchID != branchID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "shift not found"})
		return
	}

	var totals []database.ShiftPaymentTotal
	if shift.IsClosed {
		totals, err = h.store.ListShiftPaymentTotals(r.Context(), shiftID)
		if err != nil {
			respondServiceError(w, "list shift payment totals", err)
			return
		}
	}

	writeJSON(w, http.StatusOK, toShiftResponse(shift, totals))
}

// --- Helpers ---

func toShiftResponse(s database.Shift, totals []database.ShiftPaymentTotal) shiftResponse {
	resp := shiftResponse{
		ID:          s.ID,
		BranchID:    s.BranchID,
		CashierID:   s.CashierID,
		OpeningCash: numericToString(s.OpeningCash),
		IsClosed:    s.IsClosed,
		OpenedAt:    s.OpenedAt,
	}

	if s.ClosingCash.Valid {
		v := numericToString(s.ClosingCash)
		resp.ClosingCash = &v
	}
	if s.ClosingRevenue.Valid {
		v := numericToString(s.ClosingRevenue)
		resp.ClosingRevenue = &v
	}
	if s.ClosingOrders.Valid {
		v := s.ClosingOrders.Int32
		resp.ClosingOrders = &v
	}
	if s.ExpectedCash.Valid {
		v := numericToString(s.ExpectedCash)
		resp.ExpectedCash = &v
	}
	if s.ClosedAt.Valid {
		resp.ClosedAt = &s.ClosedAt.Time
	}

	if totals != nil {
		resp.PaymentTotals = make([]paymentTotalResponse, len(totals))
		for i, pt := range totals {
			resp.PaymentTotals[i] = paymentTotalResponse{
				PaymentMethod: pt.PaymentMethod,
				OrderCount:    pt.OrderCount,
				Revenue:       numericToString(pt.Revenue),
			}
		}
	}

	return resp
}
