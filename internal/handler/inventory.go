package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kopitiam-pos/api/internal/database"
)

// InventoryStore defines the database methods needed by inventory handlers.
// Satisfied by *database.Queries.
type InventoryStore interface {
	ListBranchInventory(ctx context.Context, arg database.ListBranchInventoryParams) ([]database.ListBranchInventoryRow, error)
	ListInventoryTransactions(ctx context.Context, arg database.ListInventoryTransactionsParams) ([]database.InventoryTransaction, error)
}

// InventoryHandler exposes branch stock levels and the per-ingredient ledger.
// All mutations happen through orders, refunds, and transfers; there is no
// write endpoint here.
type InventoryHandler struct {
	store InventoryStore
}

// NewInventoryHandler creates a new InventoryHandler.
func NewInventoryHandler(store InventoryStore) *InventoryHandler {
	return &InventoryHandler{store: store}
}

// RegisterRoutes registers inventory endpoints on the given Chi router.
// Expected to be mounted inside a branch-scoped subrouter: /branches/{bid}/inventory
func (h *InventoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{ingredientID}/ledger", h.Ledger)
}

// --- Response types ---

type inventoryRowResponse struct {
	IngredientID   uuid.UUID  `json:"ingredient_id"`
	IngredientName string     `json:"ingredient_name"`
	Unit           string     `json:"unit"`
	CurrentStock   string     `json:"current_stock"`
	UpdatedAt      *time.Time `json:"updated_at"`
}

type inventoryListResponse struct {
	Inventory []inventoryRowResponse `json:"inventory"`
	Limit     int                    `json:"limit"`
	Offset    int                    `json:"offset"`
}

type ledgerRowResponse struct {
	ID             uuid.UUID `json:"id"`
	Type           string    `json:"type"`
	QuantityChange string    `json:"quantity_change"`
	StockBefore    string    `json:"stock_before"`
	StockAfter     string    `json:"stock_after"`
	OrderID        *string   `json:"order_id"`
	TransferID     *string   `json:"transfer_id"`
	ActorID        uuid.UUID `json:"actor_id"`
	Reason         *string   `json:"reason"`
	CreatedAt      time.Time `json:"created_at"`
}

type ledgerListResponse struct {
	Transactions []ledgerRowResponse `json:"transactions"`
	Limit        int                 `json:"limit"`
	Offset       int                 `json:"offset"`
}

// --- Handlers ---

// List handles GET /branches/{bid}/inventory.
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	limit, offset := parsePagination(r)

	rows, err := h.store.ListBranchInventory(r.Context(), database.ListBranchInventoryParams{
		BranchID: branchID,
		Limit:    int32(limit),
		Offset:   int32(offset),
	})
	if err != nil {
		respondServiceError(w, "list branch inventory", err)
		return
	}

	resp := make([]inventoryRowResponse, len(rows))
	for i, row := range rows {
		resp[i] = inventoryRowResponse{
			IngredientID:   row.IngredientID,
			IngredientName: row.IngredientName,
			Unit:           row.Unit,
			CurrentStock:   quantityToString(row.CurrentStock),
		}
		if row.UpdatedAt.Valid {
			resp[i].UpdatedAt = &row.UpdatedAt.Time
		}
	}

	writeJSON(w, http.StatusOK, inventoryListResponse{
		Inventory: resp,
		Limit:     limit,
		Offset:    offset,
	})
}

// Ledger handles GET /branches/{bid}/inventory/{ingredientID}/ledger.
func (h *InventoryHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	ingredientID, err := uuid.Parse(chi.URLParam(r, "ingredientID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ingredient ID"})
		return
	}

	limit, offset := parsePagination(r)

	txns, err := h.store.ListInventoryTransactions(r.Context(), database.ListInventoryTransactionsParams{
		BranchID:     branchID,
		IngredientID: ingredientID,
		Limit:        int32(limit),
		Offset:       int32(offset),
	})
	if err != nil {
		respondServiceError(w, "list inventory transactions", err)
		return
	}

	resp := make([]ledgerRowResponse, len(txns))
	for i, txn := range txns {
		resp[i] = toLedgerRowResponse(txn)
	}

	writeJSON(w, http.StatusOK, ledgerListResponse{
		Transactions: resp,
		Limit:        limit,
		Offset:       offset,
	})
}

// --- Helpers ---

func toLedgerRowResponse(txn database.InventoryTransaction) ledgerRowResponse {
	resp := ledgerRowResponse{
		ID:             txn.ID,
		Type:           txn.Type,
		QuantityChange: quantityToString(txn.QuantityChange),
		StockBefore:    quantityToString(txn.StockBefore),
		StockAfter:     quantityToString(txn.StockAfter),
		ActorID:        txn.ActorID,
		CreatedAt:      txn.CreatedAt,
	}
	if txn.OrderID.Valid {
		s := uuid.UUID(txn.OrderID.Bytes).String()
		resp.OrderID = &s
	}
	if txn.TransferID.Valid {
		s := uuid.UUID(txn.TransferID.Bytes).String()
		resp.TransferID = &s
	}
	if txn.Reason.Valid {
		resp.Reason = &txn.Reason.String
	}
	return resp
}
