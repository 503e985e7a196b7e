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
	"github.com/kopitiam-pos/api/internal/enum"
	"github.com/kopitiam-pos/api/internal/middleware"
	"github.com/kopitiam-pos/api/internal/service"
	"github.com/kopitiam-pos/api/internal/ws"
)

// TransferServicer defines the service methods needed by transfer handlers.
// Satisfied by *service.TransferService.
type TransferServicer interface {
	CreateTransfer(ctx context.Context, req service.CreateTransferRequest) (*service.CreateTransferResult, error)
	AdvanceTransfer(ctx context.Context, p service.Principal, transferID uuid.UUID, targetStatus string) (*database.Transfer, error)
}

// TransferStore defines the database methods needed by transfer read handlers.
// Satisfied by *database.Queries.
type TransferStore interface {
	GetTransfer(ctx context.Context, id uuid.UUID) (database.Transfer, error)
	ListTransferItems(ctx context.Context, transferID uuid.UUID) ([]database.TransferItem, error)
	ListTransfersByBranch(ctx context.Context, arg database.ListTransfersByBranchParams) ([]database.Transfer, error)
}

// TransferHandler handles inter-branch transfer endpoints.
type TransferHandler struct {
	svc   TransferServicer
	store TransferStore
	hub   Broadcaster
}

// NewTransferHandler creates a new TransferHandler. hub may be nil in tests.
func NewTransferHandler(svc TransferServicer, store TransferStore, hub Broadcaster) *TransferHandler {
	return &TransferHandler{svc: svc, store: store, hub: hub}
}

// RegisterRoutes registers transfer endpoints on the given Chi router.
// Expected to be mounted inside a branch-scoped subrouter: /branches/{bid}/transfers
// Moving stock between branches is a manager action; cashiers only read.
func (h *TransferHandler) RegisterRoutes(r chi.Router) {
	manager := middleware.RequireRole(enum.UserRoleAdmin, enum.UserRoleBranchManager)
	r.With(manager).Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.With(manager).Post("/{id}/status", h.Advance)
}

// --- Request / Response types ---

type createTransferRequest struct {
	TargetBranchID string                      `json:"target_branch_id"`
	Notes          string                      `json:"notes"`
	Items          []createTransferItemRequest `json:"items"`
}

type createTransferItemRequest struct {
	IngredientID string `json:"ingredient_id"`
	Quantity     string `json:"quantity"`
}

type advanceTransferRequest struct {
	Status string `json:"status"`
}

type transferResponse struct {
	ID             uuid.UUID              `json:"id"`
	SourceBranchID uuid.UUID              `json:"source_branch_id"`
	TargetBranchID uuid.UUID              `json:"target_branch_id"`
	Status         string                 `json:"status"`
	Notes          *string                `json:"notes"`
	RequestedBy    uuid.UUID              `json:"requested_by"`
	RequestedAt    time.Time              `json:"requested_at"`
	ApprovedAt     *time.Time             `json:"approved_at"`
	ShippedAt      *time.Time             `json:"shipped_at"`
	CompletedAt    *time.Time             `json:"completed_at"`
	CancelledAt    *time.Time             `json:"cancelled_at"`
	Items          []transferItemResponse `json:"items,omitempty"`
}

type transferItemResponse struct {
	ID           uuid.UUID `json:"id"`
	IngredientID uuid.UUID `json:"ingredient_id"`
	Quantity     string    `json:"quantity"`
}

type transferListResponse struct {
	Transfers []transferResponse `json:"transfers"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

// --- Handlers ---

// Create handles POST /branches/{bid}/transfers. The branch in the URL is the
// source of the transfer.
func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	sourceBranchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	targetBranchID, err := uuid.Parse(req.TargetBranchID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid target_branch_id"})
		return
	}

	items := make([]service.TransferItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.TransferItemRequest{
			IngredientID: item.IngredientID,
			Quantity:     item.Quantity,
		}
	}

	result, err := h.svc.CreateTransfer(r.Context(), service.CreateTransferRequest{
		SourceBranchID: sourceBranchID,
		TargetBranchID: targetBranchID,
		RequestedBy:    claims.UserID,
		Notes:          req.Notes,
		Items:          items,
	})
	if err != nil {
		respondServiceError(w, "create transfer", err)
		return
	}

	writeJSON(w, http.StatusCreated, toTransferResponse(result.Transfer, result.Items))
}

// List handles GET /branches/{bid}/transfers. It returns transfers where the
// branch is either side.
func (h *TransferHandler) List(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	limit, offset := parsePagination(r)

	transfers, err := h.store.ListTransfersByBranch(r.Context(), database.ListTransfersByBranchParams{
		BranchID: branchID,
		Limit:    int32(limit),
		Offset:   int32(offset),
	})
	if err != nil {
		respondServiceError(w, "list transfers", err)
		return
	}

	resp := make([]transferResponse, len(transfers))
	for i, tr := range transfers {
		resp[i] = toTransferResponse(tr, nil)
	}

	writeJSON(w, http.StatusOK, transferListResponse{
		Transfers: resp,
		Limit:     limit,
		Offset:    offset,
	})
}

// Get handles GET /branches/{bid}/transfers/{id}.
func (h *TransferHandler) Get(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	transferID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid transfer ID"})
		return
	}

	transfer, err := h.store.GetTransfer(r.Context(), transferID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "transfer not found"})
			return
		}
		respondServiceError(w, "get transfer", err)
		return
	}
	if transfer.SourceBranchID != branchID && transfer.TargetBranchID != branchID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "transfer not found"})
		return
	}

	items, err := h.store.ListTransferItems(r.Context(), transferID)
	if err != nil {
		respondServiceError(w, "list transfer items", err)
		return
	}

	writeJSON(w, http.StatusOK, toTransferResponse(transfer, items))
}

// Advance handles POST /branches/{bid}/transfers/{id}/status.
func (h *TransferHandler) Advance(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	transferID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid transfer ID"})
		return
	}

	var req advanceTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	transfer, err := h.svc.AdvanceTransfer(r.Context(), principalFromClaims(claims), transferID, req.Status)
	if err != nil {
		respondServiceError(w, "advance transfer", err)
		return
	}

	resp := toTransferResponse(*transfer, nil)
	// Both sides care about status changes.
	h.broadcast(transfer.SourceBranchID, resp)
	h.broadcast(transfer.TargetBranchID, resp)
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func (h *TransferHandler) broadcast(branchID uuid.UUID, resp transferResponse) {
	if h.hub == nil {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	h.hub.BroadcastToBranch(branchID, ws.Event{Type: "transfer.updated", Payload: data})
}

func toTransferResponse(t database.Transfer, items []database.TransferItem) transferResponse {
	resp := transferResponse{
		ID:             t.ID,
		SourceBranchID: t.SourceBranchID,
		TargetBranchID: t.TargetBranchID,
		Status:         t.Status,
		RequestedBy:    t.RequestedBy,
		RequestedAt:    t.RequestedAt,
	}

	if t.Notes.Valid {
		resp.Notes = &t.Notes.String
	}
	if t.ApprovedAt.Valid {
		resp.ApprovedAt = &t.ApprovedAt.Time
	}
	if t.ShippedAt.Valid {
		resp.ShippedAt = &t.ShippedAt.Time
	}
	if t.CompletedAt.Valid {
		resp.CompletedAt = &t.CompletedAt.Time
	}
	if t.CancelledAt.Valid {
		resp.CancelledAt = &t.CancelledAt.Time
	}

	if items != nil {
		resp.Items = make([]transferItemResponse, len(items))
		for i, item := range items {
			resp.Items[i] = transferItemResponse{
				ID:           item.ID,
				IngredientID: item.IngredientID,
				Quantity:     quantityToString(item.Quantity),
			}
		}
	}

	return resp
}
