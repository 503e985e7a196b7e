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
	"github.com/kopitiam-pos/api/internal/middleware"
	"github.com/kopitiam-pos/api/internal/service"
	"github.com/kopitiam-pos/api/internal/ws"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
}

// RefundServicer is satisfied by *service.RefundService.
type RefundServicer interface {
	RefundOrder(ctx context.Context, p service.Principal, orderID uuid.UUID, reason string) (*database.Order, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
}

// Broadcaster pushes events to branch-scoped WebSocket rooms.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	BroadcastToBranch(branchID uuid.UUID, event ws.Event)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc    OrderServicer
	refund RefundServicer
	store  OrderStore
	hub    Broadcaster
}

// NewOrderHandler creates a new OrderHandler. hub may be nil in tests.
func NewOrderHandler(svc OrderServicer, refund RefundServicer, store OrderStore, hub Broadcaster) *OrderHandler {
	return &OrderHandler{svc: svc, refund: refund, store: store, hub: hub}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted inside a branch-scoped subrouter: /branches/{bid}/orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/refund", h.Refund)
}

// --- Request / Response types ---

type createOrderRequest struct {
	OrderType       string                   `json:"order_type"`
	PaymentMethod   string                   `json:"payment_method"`
	CustomerID      string                   `json:"customer_id"`
	DeliveryFee     string                   `json:"delivery_fee"`
	DeliveryAddress string                   `json:"delivery_address"`
	Items           []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	MenuItemID string `json:"menu_item_id"`
	VariantID  string `json:"variant_id"`
	Quantity   int32  `json:"quantity"`
}

type refundOrderRequest struct {
	Reason string `json:"reason"`
}

type orderResponse struct {
	ID              uuid.UUID           `json:"id"`
	BranchID        uuid.UUID           `json:"branch_id"`
	OrderNumber     int32               `json:"order_number"`
	ShiftID         uuid.UUID           `json:"shift_id"`
	CashierID       uuid.UUID           `json:"cashier_id"`
	CustomerID      *string             `json:"customer_id"`
	OrderType       string              `json:"order_type"`
	PaymentMethod   string              `json:"payment_method"`
	Subtotal        string              `json:"subtotal"`
	DeliveryFee     string              `json:"delivery_fee"`
	TotalAmount     string              `json:"total_amount"`
	PointsEarned    int64               `json:"points_earned"`
	DeliveryAddress *string             `json:"delivery_address"`
	IsRefunded      bool                `json:"is_refunded"`
	RefundReason    *string             `json:"refund_reason"`
	RefundedAt      *time.Time          `json:"refunded_at"`
	CreatedAt       time.Time           `json:"created_at"`
	Items           []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID              uuid.UUID `json:"id"`
	MenuItemID      uuid.UUID `json:"menu_item_id"`
	MenuItemName    string    `json:"menu_item_name"`
	VariantID       *string   `json:"variant_id"`
	VariantName     *string   `json:"variant_name"`
	VariantModifier *string   `json:"variant_modifier"`
	Quantity        int32     `json:"quantity"`
	UnitPrice       string    `json:"unit_price"`
	Subtotal        string    `json:"subtotal"`
}

// orderListResponse wraps a list of orders with pagination metadata.
type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// --- Handlers ---

// Create handles POST /branches/{bid}/orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	svcItems := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		svcItems[i] = service.CreateOrderItemRequest{
			MenuItemID: item.MenuItemID,
			VariantID:  item.VariantID,
			Quantity:   item.Quantity,
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		BranchID:        branchID,
		CashierID:       claims.UserID,
		OrderType:       req.OrderType,
		PaymentMethod:   req.PaymentMethod,
		CustomerID:      req.CustomerID,
		DeliveryFee:     req.DeliveryFee,
		DeliveryAddress: req.DeliveryAddress,
		Items:           svcItems,
	})
	if err != nil {
		respondServiceError(w, "create order", err)
		return
	}

	resp := toOrderResponse(result.Order, result.Items)
	h.broadcast(branchID, "order.created", resp)
	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /branches/{bid}/orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	limit, offset := parsePagination(r)

	params := database.ListOrdersParams{
		BranchID: branchID,
		Limit:    int32(limit),
		Offset:   int32(offset),
	}

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date format, use YYYY-MM-DD"})
			return
		}
		params.StartDate = pgtype.Timestamptz{Time: t, Valid: true}
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date format, use YYYY-MM-DD"})
			return
		}
		params.EndDate = pgtype.Timestamptz{Time: t, Valid: true}
	}
	if s := r.URL.Query().Get("refunded"); s != "" {
		params.IsRefunded = pgtype.Bool{Bool: s == "true", Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		respondServiceError(w, "list orders", err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o, nil)
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Orders: resp,
		Limit:  limit,
		Offset: offset,
	})
}

// Get handles GET /branches/{bid}/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		respondServiceError(w, "get order", err)
		return
	}
	// Orders are addressed globally by ID; hide those of other branches.
	if order.BranchID != branchID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		respondServiceError(w, "list order items", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order, items))
}

// Refund handles POST /branches/{bid}/orders/{id}/refund.
func (h *OrderHandler) Refund(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req refundOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Reason == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reason is required"})
		return
	}

	order, err := h.refund.RefundOrder(r.Context(), principalFromClaims(claims), orderID, req.Reason)
	if err != nil {
		respondServiceError(w, "refund order", err)
		return
	}

	resp := toOrderResponse(*order, nil)
	h.broadcast(branchID, "order.refunded", resp)
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func (h *OrderHandler) broadcast(branchID uuid.UUID, eventType string, payload interface{}) {
	if h.hub == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.hub.BroadcastToBranch(branchID, ws.Event{Type: eventType, Payload: data})
}

func toOrderResponse(o database.Order, items []database.OrderItem) orderResponse {
	resp := orderResponse{
		ID:            o.ID,
		BranchID:      o.BranchID,
		OrderNumber:   o.OrderNumber,
		ShiftID:       o.ShiftID,
		CashierID:     o.CashierID,
		OrderType:     o.OrderType,
		PaymentMethod: o.PaymentMethod,
		Subtotal:      numericToString(o.Subtotal),
		DeliveryFee:   numericToString(o.DeliveryFee),
		TotalAmount:   numericToString(o.TotalAmount),
		PointsEarned:  o.PointsEarned,
		IsRefunded:    o.IsRefunded,
		CreatedAt:     o.CreatedAt,
	}

	if o.CustomerID.Valid {
		s := uuid.UUID(o.CustomerID.Bytes).String()
		resp.CustomerID = &s
	}
	if o.DeliveryAddress.Valid {
		resp.DeliveryAddress = &o.DeliveryAddress.String
	}
	if o.RefundReason.Valid {
		resp.RefundReason = &o.RefundReason.String
	}
	if o.RefundedAt.Valid {
		resp.RefundedAt = &o.RefundedAt.Time
	}

	if items != nil {
		resp.Items = make([]orderItemResponse, len(items))
		for i, item := range items {
			resp.Items[i] = toOrderItemResponse(item)
		}
	}

	return resp
}

func toOrderItemResponse(item database.OrderItem) orderItemResponse {
	resp := orderItemResponse{
		ID:           item.ID,
		MenuItemID:   item.MenuItemID,
		MenuItemName: item.MenuItemName,
		Quantity:     item.Quantity,
		UnitPrice:    numericToString(item.UnitPrice),
		Subtotal:     numericToString(item.Subtotal),
	}

	if item.VariantID.Valid {
		s := uuid.UUID(item.VariantID.Bytes).String()
		resp.VariantID = &s
	}
	if item.VariantName.Valid {
		resp.VariantName = &item.VariantName.String
	}
	if item.VariantModifier.Valid {
		s := numericToString(item.VariantModifier)
		resp.VariantModifier = &s
	}

	return resp
}
