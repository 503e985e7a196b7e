package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kopitiam-pos/api/internal/auth"
	"github.com/kopitiam-pos/api/internal/database"
	"github.com/kopitiam-pos/api/internal/enum"
	"github.com/kopitiam-pos/api/internal/handler"
	"github.com/kopitiam-pos/api/internal/middleware"
	"github.com/kopitiam-pos/api/internal/service"
	"github.com/kopitiam-pos/api/internal/ws"
)

// --- Shared test helpers (used across the handler_test package) ---

const testJWTSecret = "test-secret"

func testClaims(branchID uuid.UUID, role string) *auth.Claims {
	return &auth.Claims{
		UserID:   uuid.New(),
		BranchID: branchID,
		Role:     role,
	}
}

func doAuthRequest(t *testing.T, router http.Handler, method, path string, body interface{}, claims *auth.Claims) *httptest.ResponseRecorder {
	t.Helper()

	token, err := auth.GenerateToken(testJWTSecret, claims.UserID, claims.BranchID, claims.Role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func testNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

// mockHub records broadcast events instead of delivering them.
type mockHub struct {
	events []broadcastRecord
}

type broadcastRecord struct {
	BranchID uuid.UUID
	Event    ws.Event
}

func (m *mockHub) BroadcastToBranch(branchID uuid.UUID, event ws.Event) {
	m.events = append(m.events, broadcastRecord{BranchID: branchID, Event: event})
}

// --- Mock services and stores ---

type mockOrderService struct {
	createFn func(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
}

func (m *mockOrderService) CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error) {
	return m.createFn(ctx, req)
}

type mockRefundService struct {
	refundFn func(ctx context.Context, p service.Principal, orderID uuid.UUID, reason string) (*database.Order, error)
}

func (m *mockRefundService) RefundOrder(ctx context.Context, p service.Principal, orderID uuid.UUID, reason string) (*database.Order, error) {
	return m.refundFn(ctx, p, orderID, reason)
}

type mockOrderStore struct {
	getOrderFn              func(ctx context.Context, id uuid.UUID) (database.Order, error)
	listOrdersFn            func(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	listOrderItemsByOrderFn func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
}

func (m *mockOrderStore) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	if m.getOrderFn != nil {
		return m.getOrderFn(ctx, id)
	}
	return database.Order{}, pgx.ErrNoRows
}

func (m *mockOrderStore) ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
	if m.listOrdersFn != nil {
		return m.listOrdersFn(ctx, arg)
	}
	return []database.Order{}, nil
}

func (m *mockOrderStore) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	if m.listOrderItemsByOrderFn != nil {
		return m.listOrderItemsByOrderFn(ctx, orderID)
	}
	return []database.OrderItem{}, nil
}

// --- Router setup ---

func setupOrderRouter(svc *mockOrderService, refund *mockRefundService, store *mockOrderStore, hub *mockHub) *chi.Mux {
	var b handler.Broadcaster
	if hub != nil {
		b = hub
	}
	h := handler.NewOrderHandler(svc, refund, store, b)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/branches/{bid}/orders", func(sr chi.Router) {
		sr.Use(middleware.RequireBranch)
		h.RegisterRoutes(sr)
	})
	return r
}

// --- Test data ---

func testOrder(branchID, cashierID uuid.UUID) database.Order {
	now := time.Now()
	return database.Order{
		ID:            uuid.New(),
		BranchID:      branchID,
		OrderNumber:   42,
		ShiftID:       uuid.New(),
		CashierID:     cashierID,
		OrderType:     enum.OrderTypeDineIn,
		PaymentMethod: enum.PaymentMethodCash,
		Subtotal:      testNumeric("11.00"),
		DeliveryFee:   testNumeric("0"),
		TotalAmount:   testNumeric("11.00"),
		PointsEarned:  11,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func testOrderResult(branchID, cashierID uuid.UUID) *service.CreateOrderResult {
	order := testOrder(branchID, cashierID)
	return &service.CreateOrderResult{
		Order: order,
		Items: []database.OrderItem{
			{
				ID:            uuid.New(),
				OrderID:       order.ID,
				MenuItemID:    uuid.New(),
				MenuItemName:  "Latte",
				Quantity:      2,
				UnitPrice:     testNumeric("5.50"),
				Subtotal:      testNumeric("11.00"),
				RecipeVersion: 1,
			},
		},
	}
}

// --- Tests ---

func TestOrderCreate_HappyPath(t *testing.T) {
	branchID := uuid.New()
	claims := testClaims(branchID, enum.UserRoleCashier)

	svc := &mockOrderService{
		createFn: func(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error) {
			if req.BranchID != branchID {
				t.Errorf("branch_id: got %v, want %v", req.BranchID, branchID)
			}
			if req.CashierID != claims.UserID {
				t.Errorf("cashier_id: got %v, want %v", req.CashierID, claims.UserID)
			}
			if req.OrderType != "DINE_IN" {
				t.Errorf("order_type: got %v, want DINE_IN", req.OrderType)
			}
			if req.PaymentMethod != "CASH" {
				t.Errorf("payment_method: got %v, want CASH", req.PaymentMethod)
			}
			if len(req.Items) != 1 || req.Items[0].Quantity != 2 {
				t.Errorf("unexpected items: %+v", req.Items)
			}
			return testOrderResult(branchID, claims.UserID), nil
		},
	}
	hub := &mockHub{}

	router := setupOrderRouter(svc, nil, nil, hub)
	rr := doAuthRequest(t, router, "POST", "/branches/"+branchID.String()+"/orders", map[string]interface{}{
		"order_type":     "DINE_IN",
		"payment_method": "CASH",
		"items": []map[string]interface{}{
			{"menu_item_id": uuid.New().String(), "quantity": 2},
		},
	}, claims)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeJSON(t, rr)
	if resp["order_number"] != float64(42) {
		t.Errorf("order_number: got %v, want 42", resp["order_number"])
	}
	if resp["subtotal"] != "11.00" {
		t.Errorf("subtotal: got %v, want 11.00", resp["subtotal"])
	}
	if resp["points_earned"] != float64(11) {
		t.Errorf("points_earned: got %v, want 11", resp["points_earned"])
	}

	if len(hub.events) != 1 {
		t.Fatalf("broadcast events: got %d, want 1", len(hub.events))
	}
	if hub.events[0].BranchID != branchID {
		t.Errorf("broadcast branch: got %v, want %v", hub.events[0].BranchID, branchID)
	}
	if hub.events[0].Event.Type != "order.created" {
		t.Errorf("broadcast type: got %v, want order.created", hub.events[0].Event.Type)
	}
}

func TestOrderCreate_InvalidBody(t *testing.T) {
	branchID := uuid.New()
	claims := testClaims(branchID, enum.UserRoleCashier)
	router := setupOrderRouter(&mockOrderService{}, nil, nil, nil)

	token, _ := auth.GenerateToken(testJWTSecret, claims.UserID, claims.BranchID, claims.Role)
	req := httptest.NewRequest("POST", "/branches/"+branchID.String()+"/orders", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestOrderCreate_ValidationErrorMapsTo400(t *testing.T) {
	branchID := uuid.New()
	claims := testClaims(branchID, enum.UserRoleCashier)

	svc := &mockOrderService{
		createFn: func(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error) {
			return nil, service.ErrEmptyItems
		},
	}

	router := setupOrderRouter(svc, nil, nil, nil)
	rr := doAuthRequest(t, router, "POST", "/branches/"+branchID.String()+"/orders", map[string]interface{}{
		"order_type":     "DINE_IN",
		"payment_method": "CASH",
	}, claims)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestOrderCreate_NoOpenShiftMapsTo409(t *testing.T) {
	branchID := uuid.New()
	claims := testClaims(branchID, enum.UserRoleCashier)

	svc := &mockOrderService{
		createFn: func(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error) {
			return nil, service.ErrNoOpenShift
		},
	}

	router := setupOrderRouter(svc, nil, nil, nil)
	rr := doAuthRequest(t, router, "POST", "/branches/"+branchID.String()+"/orders", map[string]interface{}{
		"order_type":     "DINE_IN",
		"payment_method": "CASH",
		"items":          []map[string]interface{}{{"menu_item_id": uuid.New().String(), "quantity": 1}},
	}, claims)

	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestOrderCreate_InsufficientInventoryMapsTo409(t *testing.T) {
	branchID := uuid.New()
	claims := testClaims(branchID, enum.UserRoleCashier)

	svc := &mockOrderService{
		createFn: func(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error) {
			return nil, &service.InsufficientInventoryError{
				IngredientID:   uuid.New(),
				IngredientName: "Espresso Beans",
			}
		},
	}

	router := setupOrderRouter(svc, nil, nil, nil)
	rr := doAuthRequest(t, router, "POST", "/branches/"+branchID.String()+"/orders", map[string]interface{}{
		"order_type":     "DINE_IN",
		"payment_method": "CASH",
		"items":          []map[string]interface{}{{"menu_item_id": uuid.New().String(), "quantity": 1}},
	}, claims)

	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
	resp := decodeJSON(t, rr)
	if resp["error"] == "" {
		t.Error("expected error detail in body")
	}
}

func TestOrderCreate_OtherBranchForbidden(t *testing.T) {
	branchID := uuid.New()
	otherBranch := uuid.New()
	claims := testClaims(otherBranch, enum.UserRoleCashier)

	router := setupOrderRouter(&mockOrderService{}, nil, nil, nil)
	rr := doAuthRequest(t, router, "POST", "/branches/"+branchID.String()+"/orders", map[string]interface{}{
		"order_type":     "DINE_IN",
		"payment_method": "CASH",
	}, claims)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestOrderCreate_Unauthenticated(t *testing.T) {
	branchID := uuid.New()
	router := setupOrderRouter(&mockOrderService{}, nil, nil, nil)

	req := httptest.NewRequest("POST", "/branches/"+branchID.String()+"/orders", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestOrderList_FilterMapping(t *testing.T) {
	branchID := uuid.New()
	claims := testClaims(branchID, enum.UserRoleBranchManager)

	var captured database.ListOrdersParams
	store := &mockOrderStore{
		listOrdersFn: func(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
			captured = arg
			return []database.Order{testOrder(branchID, claims.UserID)}, nil
		},
	}

	router := setupOrderRouter(&mockOrderService{}, nil, store, nil)
	rr := doAuthRequest(t, router, "GET",
		"/branches/"+branchID.String()+"/orders?limit=5&offset=10&start_date=2026-08-01&refunded=true", nil, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	if captured.BranchID != branchID {
		t.Errorf("branch_id: got %v, want %v", captured.BranchID, branchID)
	}
	if captured.Limit != 5 || captured.Offset != 10 {
		t.Errorf("pagination: got limit=%d offset=%d", captured.Limit, captured.Offset)
	}
	if !captured.StartDate.Valid {
		t.Error("start_date filter not applied")
	}
	if !captured.IsRefunded.Valid || !captured.IsRefunded.Bool {
		t.Error("refunded filter not applied")
	}

	resp := decodeJSON(t, rr)
	orders := resp["orders"].([]interface{})
	if len(orders) != 1 {
		t.Fatalf("orders: got %d, want 1", len(orders))
	}
}

func TestOrderList_BadDateFormat(t *testing.T) {
	branchID := uuid.New()
	claims := testClaims(branchID, enum.UserRoleCashier)

	router := setupOrderRouter(&mockOrderService{}, nil, &mockOrderStore{}, nil)
	rr := doAuthRequest(t, router, "GET",
		"/branches/"+branchID.String()+"/orders?start_date=01-08-2026", nil, claims)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestOrderGet_WithItems(t *testing.T) {
	branchID := uuid.New()
	claims := testClaims(branchID, enum.UserRoleCashier)
	order := testOrder(branchID, claims.UserID)

	store := &mockOrderStore{
		getOrderFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			if id != order.ID {
				return database.Order{}, pgx.ErrNoRows
			}
			return order, nil
		},
		listOrderItemsByOrderFn: func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
			return []database.OrderItem{
				{ID: uuid.New(), OrderID: orderID, MenuItemName: "Latte", Quantity: 2,
					UnitPrice: testNumeric("5.50"), Subtotal: testNumeric("11.00")},
			}, nil
		},
	}

	router := setupOrderRouter(&mockOrderService{}, nil, store, nil)
	rr := doAuthRequest(t, router, "GET",
		"/branches/"+branchID.String()+"/orders/"+order.ID.String(), nil, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeJSON(t, rr)
	items := resp["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("items: got %d, want 1", len(items))
	}
	first := items[0].(map[string]interface{})
	if first["menu_item_name"] != "Latte" {
		t.Errorf("menu_item_name: got %v, want Latte", first["menu_item_name"])
	}
}

func TestOrderGet_OtherBranchHidden(t *testing.T) {
	branchID := uuid.New()
	claims := testClaims(branchID, enum.UserRoleAdmin)
	order := testOrder(uuid.New(), uuid.New()) // belongs elsewhere

	store := &mockOrderStore{
		getOrderFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return order, nil
		},
	}

	router := setupOrderRouter(&mockOrderService{}, nil, store, nil)
	rr := doAuthRequest(t, router, "GET",
		"/branches/"+branchID.String()+"/orders/"+order.ID.String(), nil, claims)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestOrderGet_NotFound(t *testing.T) {
	branchID := uuid.New()
	claims := testClaims(branchID, enum.UserRoleCashier)

	router := setupOrderRouter(&mockOrderService{}, nil, &mockOrderStore{}, nil)
	rr := doAuthRequest(t, router, "GET",
		"/branches/"+branchID.String()+"/orders/"+uuid.New().String(), nil, claims)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestOrderRefund_HappyPath(t *testing.T) {
	branchID := uuid.New()
	claims := testClaims(branchID, enum.UserRoleBranchManager)
	order := testOrder(branchID, uuid.New())
	order.IsRefunded = true
	order.RefundReason = pgtype.Text{String: "spilled drink", Valid: true}

	refund := &mockRefundService{
		refundFn: func(ctx context.Context, p service.Principal, orderID uuid.UUID, reason string) (*database.Order, error) {
			if p.UserID != claims.UserID || p.Role != enum.UserRoleBranchManager {
				t.Errorf("unexpected principal: %+v", p)
			}
			if reason != "spilled drink" {
				t.Errorf("reason: got %q, want %q", reason, "spilled drink")
			}
			return &order, nil
		},
	}
	hub := &mockHub{}

	router := setupOrderRouter(&mockOrderService{}, refund, nil, hub)
	rr := doAuthRequest(t, router, "POST",
		"/branches/"+branchID.String()+"/orders/"+order.ID.String()+"/refund",
		map[string]interface{}{"reason": "spilled drink"}, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeJSON(t, rr)
	if resp["is_refunded"] != true {
		t.Errorf("is_refunded: got %v, want true", resp["is_refunded"])
	}

	if len(hub.events) != 1 || hub.events[0].Event.Type != "order.refunded" {
		t.Fatalf("expected one order.refunded broadcast, got %+v", hub.events)
	}
}

func TestOrderRefund_MissingReason(t *testing.T) {
	branchID := uuid.New()
	claims := testClaims(branchID, enum.UserRoleBranchManager)

	router := setupOrderRouter(&mockOrderService{}, &mockRefundService{}, nil, nil)
	rr := doAuthRequest(t, router, "POST",
		"/branches/"+branchID.String()+"/orders/"+uuid.New().String()+"/refund",
		map[string]interface{}{}, claims)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestOrderRefund_CashierForbidden(t *testing.T) {
	branchID := uuid.New()
	claims := testClaims(branchID, enum.UserRoleCashier)

	refund := &mockRefundService{
		refundFn: func(ctx context.Context, p service.Principal, orderID uuid.UUID, reason string) (*database.Order, error) {
			return nil, service.ErrRefundNotAllowed
		},
	}

	router := setupOrderRouter(&mockOrderService{}, refund, nil, nil)
	rr := doAuthRequest(t, router, "POST",
		"/branches/"+branchID.String()+"/orders/"+uuid.New().String()+"/refund",
		map[string]interface{}{"reason": "test"}, claims)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestOrderRefund_AlreadyRefundedMapsTo409(t *testing.T) {
	branchID := uuid.New()
	claims := testClaims(branchID, enum.UserRoleAdmin)

	refund := &mockRefundService{
		refundFn: func(ctx context.Context, p service.Principal, orderID uuid.UUID, reason string) (*database.Order, error) {
			return nil, service.ErrAlreadyRefunded
		},
	}

	router := setupOrderRouter(&mockOrderService{}, refund, nil, nil)
	rr := doAuthRequest(t, router, "POST",
		"/branches/"+branchID.String()+"/orders/"+uuid.New().String()+"/refund",
		map[string]interface{}{"reason": "test"}, claims)

	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}
