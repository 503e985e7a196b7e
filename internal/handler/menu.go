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

// MenuStore defines the database methods needed by the catalog read handlers.
// Satisfied by *database.Queries. The catalog is seeded out of band; these
// endpoints only serve it to POS clients.
type MenuStore interface {
	ListMenuItems(ctx context.Context, arg database.ListMenuItemsParams) ([]database.MenuItem, error)
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	ListMenuVariantsByItem(ctx context.Context, menuItemID uuid.UUID) ([]database.MenuVariant, error)
	ListIngredients(ctx context.Context) ([]database.Ingredient, error)
}

// MenuHandler handles read-only catalog endpoints.
type MenuHandler struct {
	store MenuStore
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore) *MenuHandler {
	return &MenuHandler{store: store}
}

// RegisterRoutes registers catalog endpoints on the given Chi router.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/menu", h.ListItems)
	r.Get("/menu/{id}", h.GetItem)
	r.Get("/menu/{id}/variants", h.ListVariants)
	r.Get("/ingredients", h.ListIngredients)
}

// --- Response types ---

type menuItemResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Category  *string   `json:"category"`
	BasePrice string    `json:"base_price"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type menuVariantResponse struct {
	ID            uuid.UUID `json:"id"`
	MenuItemID    uuid.UUID `json:"menu_item_id"`
	Name          string    `json:"name"`
	PriceModifier string    `json:"price_modifier"`
	IsActive      bool      `json:"is_active"`
}

type ingredientResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Unit        string    `json:"unit"`
	CostPerUnit string    `json:"cost_per_unit"`
}

type menuListResponse struct {
	Items  []menuItemResponse `json:"items"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

// --- Handlers ---

// ListItems handles GET /menu.
func (h *MenuHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	items, err := h.store.ListMenuItems(r.Context(), database.ListMenuItemsParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		respondServiceError(w, "list menu items", err)
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, item := range items {
		resp[i] = toMenuItemResponse(item)
	}

	writeJSON(w, http.StatusOK, menuListResponse{
		Items:  resp,
		Limit:  limit,
		Offset: offset,
	})
}

// GetItem handles GET /menu/{id}.
func (h *MenuHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	item, err := h.store.GetMenuItem(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		respondServiceError(w, "get menu item", err)
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// ListVariants handles GET /menu/{id}/variants.
func (h *MenuHandler) ListVariants(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	variants, err := h.store.ListMenuVariantsByItem(r.Context(), itemID)
	if err != nil {
		respondServiceError(w, "list menu variants", err)
		return
	}

	resp := make([]menuVariantResponse, len(variants))
	for i, v := range variants {
		resp[i] = menuVariantResponse{
			ID:            v.ID,
			MenuItemID:    v.MenuItemID,
			Name:          v.Name,
			PriceModifier: numericToString(v.PriceModifier),
			IsActive:      v.IsActive,
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"variants": resp})
}

// ListIngredients handles GET /ingredients.
func (h *MenuHandler) ListIngredients(w http.ResponseWriter, r *http.Request) {
	ingredients, err := h.store.ListIngredients(r.Context())
	if err != nil {
		respondServiceError(w, "list ingredients", err)
		return
	}

	resp := make([]ingredientResponse, len(ingredients))
	for i, ing := range ingredients {
		resp[i] = ingredientResponse{
			ID:          ing.ID,
			Name:        ing.Name,
			Unit:        ing.Unit,
			CostPerUnit: numericToString(ing.CostPerUnit),
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"ingredients": resp})
}

// --- Helpers ---

func toMenuItemResponse(item database.MenuItem) menuItemResponse {
	resp := menuItemResponse{
		ID:        item.ID,
		Name:      item.Name,
		BasePrice: numericToString(item.BasePrice),
		IsActive:  item.IsActive,
		CreatedAt: item.CreatedAt,
	}
	if item.Category.Valid {
		resp.Category = &item.Category.String
	}
	return resp
}
