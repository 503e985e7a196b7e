package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kopitiam-pos/api/internal/database"
)

// BranchStore defines the database methods needed by branch handlers.
// Satisfied by *database.Queries.
type BranchStore interface {
	GetBranch(ctx context.Context, id uuid.UUID) (database.Branch, error)
	ListBranches(ctx context.Context) ([]database.Branch, error)
}

// BranchHandler serves the read-only branch directory. Branches are created
// by the seed tool, not over HTTP.
type BranchHandler struct {
	store BranchStore
}

// NewBranchHandler creates a new BranchHandler.
func NewBranchHandler(store BranchStore) *BranchHandler {
	return &BranchHandler{store: store}
}

type branchResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Address   *string   `json:"address"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// List handles GET /branches.
func (h *BranchHandler) List(w http.ResponseWriter, r *http.Request) {
	branches, err := h.store.ListBranches(r.Context())
	if err != nil {
		respondServiceError(w, "list branches", err)
		return
	}

	resp := make([]branchResponse, len(branches))
	for i, b := range branches {
		resp[i] = toBranchResponse(b)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"branches": resp})
}

// Get handles GET /branches/{bid}.
func (h *BranchHandler) Get(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	branch, err := h.store.GetBranch(r.Context(), branchID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "branch not found"})
			return
		}
		respondServiceError(w, "get branch", err)
		return
	}

	writeJSON(w, http.StatusOK, toBranchResponse(branch))
}

func toBranchResponse(b database.Branch) branchResponse {
	resp := branchResponse{
		ID:        b.ID,
		Name:      b.Name,
		IsActive:  b.IsActive,
		CreatedAt: b.CreatedAt,
	}
	if b.Address.Valid {
		resp.Address = &b.Address.String
	}
	return resp
}
