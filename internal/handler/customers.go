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
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kopitiam-pos/api/internal/database"
	"github.com/kopitiam-pos/api/internal/enum"
)

// CustomerStore defines the database methods needed by customer handlers.
// Satisfied by *database.Queries.
type CustomerStore interface {
	CreateCustomer(ctx context.Context, arg database.CreateCustomerParams) (database.Customer, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (database.Customer, error)
	ListCustomers(ctx context.Context, arg database.ListCustomersParams) ([]database.Customer, error)
	ListLoyaltyTransactions(ctx context.Context, arg database.ListLoyaltyTransactionsParams) ([]database.LoyaltyTransaction, error)
}

// CustomerHandler handles loyalty customer endpoints. Customers are global,
// not branch-scoped; any branch can attach one to an order.
type CustomerHandler struct {
	store CustomerStore
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(store CustomerStore) *CustomerHandler {
	return &CustomerHandler{store: store}
}

// RegisterRoutes registers customer endpoints on the given Chi router.
func (h *CustomerHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/loyalty", h.ListLoyalty)
}

// --- Request / Response types ---

type createCustomerRequest struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
}

type customerResponse struct {
	ID            uuid.UUID `json:"id"`
	FullName      string    `json:"full_name"`
	Phone         string    `json:"phone"`
	Email         *string   `json:"email"`
	LoyaltyPoints int64     `json:"loyalty_points"`
	TotalSpent    string    `json:"total_spent"`
	OrderCount    int32     `json:"order_count"`
	Tier          string    `json:"tier"`
	CreatedAt     time.Time `json:"created_at"`
}

type customerListResponse struct {
	Customers []customerResponse `json:"customers"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

type loyaltyTxnResponse struct {
	ID        uuid.UUID `json:"id"`
	Points    int64     `json:"points"`
	Type      string    `json:"type"`
	OrderID   *string   `json:"order_id"`
	Reason    *string   `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

type loyaltyListResponse struct {
	Transactions []loyaltyTxnResponse `json:"transactions"`
	Limit        int                  `json:"limit"`
	Offset       int                  `json:"offset"`
}

// --- Handlers ---

// Create handles POST /customers.
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.FullName == "" || req.Phone == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "full_name and phone are required"})
		return
	}

	params := database.CreateCustomerParams{
		FullName: req.FullName,
		Phone:    req.Phone,
		Tier:     enum.TierRegular,
	}
	if req.Email != "" {
		params.Email = pgtype.Text{String: req.Email, Valid: true}
	}

	customer, err := h.store.CreateCustomer(r.Context(), params)
	if err != nil {
		respondServiceError(w, "create customer", err)
		return
	}

	writeJSON(w, http.StatusCreated, toCustomerResponse(customer))
}

// List handles GET /customers.
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	customers, err := h.store.ListCustomers(r.Context(), database.ListCustomersParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		respondServiceError(w, "list customers", err)
		return
	}

	resp := make([]customerResponse, len(customers))
	for i, c := range customers {
		resp[i] = toCustomerResponse(c)
	}

	writeJSON(w, http.StatusOK, customerListResponse{
		Customers: resp,
		Limit:     limit,
		Offset:    offset,
	})
}

// Get handles GET /customers/{id}.
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	customerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer ID"})
		return
	}

	customer, err := h.store.GetCustomer(r.Context(), customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "customer not found"})
			return
		}
		respondServiceError(w, "get customer", err)
		return
	}

	writeJSON(w, http.StatusOK, toCustomerResponse(customer))
}

// ListLoyalty handles GET /customers/{id}/loyalty.
func (h *CustomerHandler) ListLoyalty(w http.ResponseWriter, r *http.Request) {
	customerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer ID"})
		return
	}

	limit, offset := parsePagination(r)

	txns, err := h.store.ListLoyaltyTransactions(r.Context(), database.ListLoyaltyTransactionsParams{
		CustomerID: customerID,
		Limit:      int32(limit),
		Offset:     int32(offset),
	})
	if err != nil {
		respondServiceError(w, "list loyalty transactions", err)
		return
	}

	resp := make([]loyaltyTxnResponse, len(txns))
	for i, txn := range txns {
		resp[i] = loyaltyTxnResponse{
			ID:        txn.ID,
			Points:    txn.Points,
			Type:      txn.Type,
			CreatedAt: txn.CreatedAt,
		}
		if txn.OrderID.Valid {
			s := uuid.UUID(txn.OrderID.Bytes).String()
			resp[i].OrderID = &s
		}
		if txn.Reason.Valid {
			resp[i].Reason = &txn.Reason.String
		}
	}

	writeJSON(w, http.StatusOK, loyaltyListResponse{
		Transactions: resp,
		Limit:        limit,
		Offset:       offset,
	})
}

// --- Helpers ---

func toCustomerResponse(c database.Customer) customerResponse {
	resp := customerResponse{
		ID:            c.ID,
		FullName:      c.FullName,
		Phone:         c.Phone,
		LoyaltyPoints: c.LoyaltyPoints,
		TotalSpent:    numericToString(c.TotalSpent),
		OrderCount:    c.OrderCount,
		Tier:          c.Tier,
		CreatedAt:     c.CreatedAt,
	}
	if c.Email.Valid {
		resp.Email = &c.Email.String
	}
	return resp
}
