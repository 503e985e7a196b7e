package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kopitiam-pos/api/internal/database"
	"github.com/kopitiam-pos/api/internal/enum"
	"github.com/kopitiam-pos/api/internal/handler"
	"github.com/kopitiam-pos/api/internal/middleware"
)

// --- Mock InventoryStore ---

type mockInventoryStore struct {
	listBranchInventoryFn       func(ctx context.Context, arg database.ListBranchInventoryParams) ([]database.ListBranchInventoryRow, error)
	listInventoryTransactionsFn func(ctx context.Context, arg database.ListInventoryTransactionsParams) ([]database.InventoryTransaction, error)
}

func (m *mockInventoryStore) ListBranchInventory(ctx context.Context, arg database.ListBranchInventoryParams) ([]database.ListBranchInventoryRow, error) {
	if m.listBranchInventoryFn != nil {
		return m.listBranchInventoryFn(ctx, arg)
	}
	return []database.ListBranchInventoryRow{}, nil
}

func (m *mockInventoryStore) ListInventoryTransactions(ctx context.Context, arg database.ListInventoryTransactionsParams) ([]database.InventoryTransaction, error) {
	if m.listInventoryTransactionsFn != nil {
		return m.listInventoryTransactionsFn(ctx, arg)
	}
	return []database.InventoryTransaction{}, nil
}

func setupInventoryRouter(store *mockInventoryStore) *chi.Mux {
	h := handler.NewInventoryHandler(store)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/branches/{bid}/inventory", func(sr chi.Router) {
		sr.Use(middleware.RequireBranch)
		h.RegisterRoutes(sr)
	})
	return r
}

// --- Tests ---

func TestInventoryList_HappyPath(t *testing.T) {
	branchID := uuid.New()
	claims := testClaims(branchID, enum.UserRoleBranchManager)
	ingredientID := uuid.New()

	var captured database.ListBranchInventoryParams
	store := &mockInventoryStore{
		listBranchInventoryFn: func(ctx context.Context, arg database.ListBranchInventoryParams) ([]database.ListBranchInventoryRow, error) {
			captured = arg
			return []database.ListBranchInventoryRow{
				{
					IngredientID:   ingredientID,
					IngredientName: "Espresso Beans",
					Unit:           "kg",
					CurrentStock:   testNumeric("4.982"),
					UpdatedAt:      pgtype.Timestamptz{Time: time.Now(), Valid: true},
				},
			}, nil
		},
	}

	router := setupInventoryRouter(store)
	rr := doAuthRequest(t, router, "GET", "/branches/"+branchID.String()+"/inventory", nil, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if captured.BranchID != branchID {
		t.Errorf("branch: got %v, want %v", captured.BranchID, branchID)
	}

	resp := decodeJSON(t, rr)
	rows := resp["inventory"].([]interface{})
	if len(rows) != 1 {
		t.Fatalf("inventory: got %d rows, want 1", len(rows))
	}
	row := rows[0].(map[string]interface{})
	if row["ingredient_name"] != "Espresso Beans" {
		t.Errorf("ingredient_name: got %v", row["ingredient_name"])
	}
	// Stock keeps full precision, no rounding to cents.
	if row["current_stock"] != "4.982" {
		t.Errorf("current_stock: got %v, want 4.982", row["current_stock"])
	}
}

func TestInventoryList_OtherBranchForbidden(t *testing.T) {
	claims := testClaims(uuid.New(), enum.UserRoleCashier)

	router := setupInventoryRouter(&mockInventoryStore{})
	rr := doAuthRequest(t, router, "GET", "/branches/"+uuid.New().String()+"/inventory", nil, claims)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestInventoryLedger_RendersSignedQuantities(t *testing.T) {
	branchID := uuid.New()
	claims := testClaims(branchID, enum.UserRoleBranchManager)
	ingredientID := uuid.New()
	orderID := uuid.New()

	var captured database.ListInventoryTransactionsParams
	store := &mockInventoryStore{
		listInventoryTransactionsFn: func(ctx context.Context, arg database.ListInventoryTransactionsParams) ([]database.InventoryTransaction, error) {
			captured = arg
			return []database.InventoryTransaction{
				{
					ID:             uuid.New(),
					BranchID:       branchID,
					IngredientID:   ingredientID,
					Type:           enum.InventoryTxnSale,
					QuantityChange: testNumeric("-0.036"),
					StockBefore:    testNumeric("5"),
					StockAfter:     testNumeric("4.964"),
					OrderID:        pgtype.UUID{Bytes: orderID, Valid: true},
					ActorID:        claims.UserID,
					CreatedAt:      time.Now(),
				},
				{
					ID:             uuid.New(),
					BranchID:       branchID,
					IngredientID:   ingredientID,
					Type:           enum.InventoryTxnRefund,
					QuantityChange: testNumeric("0.036"),
					StockBefore:    testNumeric("4.964"),
					StockAfter:     testNumeric("5"),
					OrderID:        pgtype.UUID{Bytes: orderID, Valid: true},
					ActorID:        claims.UserID,
					CreatedAt:      time.Now(),
				},
			}, nil
		},
	}

	router := setupInventoryRouter(store)
	rr := doAuthRequest(t, router, "GET",
		"/branches/"+branchID.String()+"/inventory/"+ingredientID.String()+"/ledger?limit=50", nil, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if captured.IngredientID != ingredientID {
		t.Errorf("ingredient: got %v, want %v", captured.IngredientID, ingredientID)
	}
	if captured.Limit != 50 {
		t.Errorf("limit: got %d, want 50", captured.Limit)
	}

	resp := decodeJSON(t, rr)
	txns := resp["transactions"].([]interface{})
	if len(txns) != 2 {
		t.Fatalf("transactions: got %d, want 2", len(txns))
	}

	sale := txns[0].(map[string]interface{})
	if sale["type"] != enum.InventoryTxnSale {
		t.Errorf("type: got %v, want %v", sale["type"], enum.InventoryTxnSale)
	}
	if sale["quantity_change"] != "-0.036" {
		t.Errorf("quantity_change: got %v, want -0.036", sale["quantity_change"])
	}
	if sale["order_id"] != orderID.String() {
		t.Errorf("order_id: got %v, want %v", sale["order_id"], orderID)
	}

	refund := txns[1].(map[string]interface{})
	if refund["quantity_change"] != "0.036" {
		t.Errorf("quantity_change: got %v, want 0.036", refund["quantity_change"])
	}
	if refund["stock_after"] != "5" {
		t.Errorf("stock_after: got %v, want 5", refund["stock_after"])
	}
}

func TestInventoryLedger_BadIngredientID(t *testing.T) {
	branchID := uuid.New()
	claims := testClaims(branchID, enum.UserRoleBranchManager)

	router := setupInventoryRouter(&mockInventoryStore{})
	rr := doAuthRequest(t, router, "GET",
		"/branches/"+branchID.String()+"/inventory/not-a-uuid/ledger", nil, claims)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}
