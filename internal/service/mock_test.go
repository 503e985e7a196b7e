package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kopitiam-pos/api/internal/database"
	"github.com/shopspring/decimal"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
	committed   bool
	rolledBack  bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	m.committed = true
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error {
	m.rolledBack = true
	return m.rollbackErr
}
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// mockStore implements every service store interface with configurable
// behavior. Tests set only the functions their flow reaches; an unset
// function panics on call.
type mockStore struct {
	ensureBranchInventoryFn       func(ctx context.Context, arg database.EnsureBranchInventoryParams) error
	getBranchInventoryForUpdateFn func(ctx context.Context, arg database.GetBranchInventoryForUpdateParams) (database.BranchInventory, error)
	setBranchStockFn              func(ctx context.Context, arg database.SetBranchStockParams) error
	appendInventoryTransactionFn  func(ctx context.Context, arg database.AppendInventoryTransactionParams) (database.InventoryTransaction, error)
	getLatestRecipeVersionFn      func(ctx context.Context, arg database.GetLatestRecipeVersionParams) (int32, error)
	listRecipeSetFn               func(ctx context.Context, arg database.ListRecipeSetParams) ([]database.Recipe, error)
	nextOrderNumberFn             func(ctx context.Context, branchID uuid.UUID) (int32, error)
	getOpenShiftByCashierFn       func(ctx context.Context, cashierID uuid.UUID) (database.Shift, error)
	getMenuItemFn                 func(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	getMenuVariantFn              func(ctx context.Context, id uuid.UUID) (database.MenuVariant, error)
	getIngredientFn               func(ctx context.Context, id uuid.UUID) (database.Ingredient, error)
	createOrderFn                 func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	createOrderItemFn             func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	getCustomerForUpdateFn        func(ctx context.Context, id uuid.UUID) (database.Customer, error)
	updateCustomerLoyaltyFn       func(ctx context.Context, arg database.UpdateCustomerLoyaltyParams) (database.Customer, error)
	createLoyaltyTransactionFn    func(ctx context.Context, arg database.CreateLoyaltyTransactionParams) (database.LoyaltyTransaction, error)
	createAuditLogFn              func(ctx context.Context, arg database.CreateAuditLogParams) (database.AuditLog, error)
	getOrderForUpdateFn           func(ctx context.Context, id uuid.UUID) (database.Order, error)
	markOrderRefundedFn           func(ctx context.Context, arg database.MarkOrderRefundedParams) (database.Order, error)
	listOrderItemsByOrderFn       func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	createShiftFn                 func(ctx context.Context, arg database.CreateShiftParams) (database.Shift, error)
	getShiftForUpdateFn           func(ctx context.Context, id uuid.UUID) (database.Shift, error)
	closeShiftFn                  func(ctx context.Context, arg database.CloseShiftParams) (database.Shift, error)
	sumOrdersByShiftFn            func(ctx context.Context, shiftID uuid.UUID) ([]database.ShiftOrderTotalsRow, error)
	createShiftPaymentTotalFn     func(ctx context.Context, arg database.CreateShiftPaymentTotalParams) (database.ShiftPaymentTotal, error)
	setUserCurrentShiftFn         func(ctx context.Context, arg database.SetUserCurrentShiftParams) error
	createTransferFn              func(ctx context.Context, arg database.CreateTransferParams) (database.Transfer, error)
	createTransferItemFn          func(ctx context.Context, arg database.CreateTransferItemParams) (database.TransferItem, error)
	getTransferForUpdateFn        func(ctx context.Context, id uuid.UUID) (database.Transfer, error)
	listTransferItemsFn           func(ctx context.Context, transferID uuid.UUID) ([]database.TransferItem, error)
	approveTransferFn             func(ctx context.Context, arg database.ApproveTransferParams) (database.Transfer, error)
	shipTransferFn                func(ctx context.Context, arg database.ShipTransferParams) (database.Transfer, error)
	completeTransferFn            func(ctx context.Context, arg database.CompleteTransferParams) (database.Transfer, error)
	cancelTransferFn              func(ctx context.Context, arg database.CancelTransferParams) (database.Transfer, error)
}

func (m *mockStore) EnsureBranchInventory(ctx context.Context, arg database.EnsureBranchInventoryParams) error {
	return m.ensureBranchInventoryFn(ctx, arg)
}
func (m *mockStore) GetBranchInventoryForUpdate(ctx context.Context, arg database.GetBranchInventoryForUpdateParams) (database.BranchInventory, error) {
	return m.getBranchInventoryForUpdateFn(ctx, arg)
}
func (m *mockStore) SetBranchStock(ctx context.Context, arg database.SetBranchStockParams) error {
	return m.setBranchStockFn(ctx, arg)
}
func (m *mockStore) AppendInventoryTransaction(ctx context.Context, arg database.AppendInventoryTransactionParams) (database.InventoryTransaction, error) {
	return m.appendInventoryTransactionFn(ctx, arg)
}
func (m *mockStore) GetLatestRecipeVersion(ctx context.Context, arg database.GetLatestRecipeVersionParams) (int32, error) {
	return m.getLatestRecipeVersionFn(ctx, arg)
}
func (m *mockStore) ListRecipeSet(ctx context.Context, arg database.ListRecipeSetParams) ([]database.Recipe, error) {
	return m.listRecipeSetFn(ctx, arg)
}
func (m *mockStore) NextOrderNumber(ctx context.Context, branchID uuid.UUID) (int32, error) {
	return m.nextOrderNumberFn(ctx, branchID)
}
func (m *mockStore) GetOpenShiftByCashier(ctx context.Context, cashierID uuid.UUID) (database.Shift, error) {
	return m.getOpenShiftByCashierFn(ctx, cashierID)
}
func (m *mockStore) GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error) {
	return m.getMenuItemFn(ctx, id)
}
func (m *mockStore) GetMenuVariant(ctx context.Context, id uuid.UUID) (database.MenuVariant, error) {
	return m.getMenuVariantFn(ctx, id)
}
func (m *mockStore) GetIngredient(ctx context.Context, id uuid.UUID) (database.Ingredient, error) {
	return m.getIngredientFn(ctx, id)
}
func (m *mockStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	return m.createOrderFn(ctx, arg)
}
func (m *mockStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	return m.createOrderItemFn(ctx, arg)
}
func (m *mockStore) GetCustomerForUpdate(ctx context.Context, id uuid.UUID) (database.Customer, error) {
	return m.getCustomerForUpdateFn(ctx, id)
}
func (m *mockStore) UpdateCustomerLoyalty(ctx context.Context, arg database.UpdateCustomerLoyaltyParams) (database.Customer, error) {
	return m.updateCustomerLoyaltyFn(ctx, arg)
}
func (m *mockStore) CreateLoyaltyTransaction(ctx context.Context, arg database.CreateLoyaltyTransactionParams) (database.LoyaltyTransaction, error) {
	return m.createLoyaltyTransactionFn(ctx, arg)
}
func (m *mockStore) CreateAuditLog(ctx context.Context, arg database.CreateAuditLogParams) (database.AuditLog, error) {
	return m.createAuditLogFn(ctx, arg)
}
func (m *mockStore) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrderForUpdateFn(ctx, id)
}
func (m *mockStore) MarkOrderRefunded(ctx context.Context, arg database.MarkOrderRefundedParams) (database.Order, error) {
	return m.markOrderRefundedFn(ctx, arg)
}
func (m *mockStore) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	return m.listOrderItemsByOrderFn(ctx, orderID)
}
func (m *mockStore) CreateShift(ctx context.Context, arg database.CreateShiftParams) (database.Shift, error) {
	return m.createShiftFn(ctx, arg)
}
func (m *mockStore) GetShiftForUpdate(ctx context.Context, id uuid.UUID) (database.Shift, error) {
	return m.getShiftForUpdateFn(ctx, id)
}
func (m *mockStore) CloseShift(ctx context.Context, arg database.CloseShiftParams) (database.Shift, error) {
	return m.closeShiftFn(ctx, arg)
}
func (m *mockStore) SumOrdersByShift(ctx context.Context, shiftID uuid.UUID) ([]database.ShiftOrderTotalsRow, error) {
	return m.sumOrdersByShiftFn(ctx, shiftID)
}
func (m *mockStore) CreateShiftPaymentTotal(ctx context.Context, arg database.CreateShiftPaymentTotalParams) (database.ShiftPaymentTotal, error) {
	return m.createShiftPaymentTotalFn(ctx, arg)
}
func (m *mockStore) SetUserCurrentShift(ctx context.Context, arg database.SetUserCurrentShiftParams) error {
	return m.setUserCurrentShiftFn(ctx, arg)
}
func (m *mockStore) CreateTransfer(ctx context.Context, arg database.CreateTransferParams) (database.Transfer, error) {
	return m.createTransferFn(ctx, arg)
}
func (m *mockStore) CreateTransferItem(ctx context.Context, arg database.CreateTransferItemParams) (database.TransferItem, error) {
	return m.createTransferItemFn(ctx, arg)
}
func (m *mockStore) GetTransferForUpdate(ctx context.Context, id uuid.UUID) (database.Transfer, error) {
	return m.getTransferForUpdateFn(ctx, id)
}
func (m *mockStore) ListTransferItems(ctx context.Context, transferID uuid.UUID) ([]database.TransferItem, error) {
	return m.listTransferItemsFn(ctx, transferID)
}
func (m *mockStore) ApproveTransfer(ctx context.Context, arg database.ApproveTransferParams) (database.Transfer, error) {
	return m.approveTransferFn(ctx, arg)
}
func (m *mockStore) ShipTransfer(ctx context.Context, arg database.ShipTransferParams) (database.Transfer, error) {
	return m.shipTransferFn(ctx, arg)
}
func (m *mockStore) CompleteTransfer(ctx context.Context, arg database.CompleteTransferParams) (database.Transfer, error) {
	return m.completeTransferFn(ctx, arg)
}
func (m *mockStore) CancelTransfer(ctx context.Context, arg database.CancelTransferParams) (database.Transfer, error) {
	return m.cancelTransferFn(ctx, arg)
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

// invKey identifies one branch inventory cell in fakeInventory.
type invKey struct {
	branchID     uuid.UUID
	ingredientID uuid.UUID
}

// fakeInventory backs the four ledger store methods with an in-memory stock
// map so tests can observe deductions and ledger rows end to end.
type fakeInventory struct {
	stock  map[invKey]decimal.Decimal
	ledger []database.AppendInventoryTransactionParams
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{stock: make(map[invKey]decimal.Decimal)}
}

func (f *fakeInventory) set(branchID, ingredientID uuid.UUID, qty string) {
	d, _ := decimal.NewFromString(qty)
	f.stock[invKey{branchID, ingredientID}] = d
}

func (f *fakeInventory) get(branchID, ingredientID uuid.UUID) decimal.Decimal {
	return f.stock[invKey{branchID, ingredientID}]
}

// install wires the fake into a mockStore.
func (f *fakeInventory) install(m *mockStore) {
	m.ensureBranchInventoryFn = func(ctx context.Context, arg database.EnsureBranchInventoryParams) error {
		key := invKey{arg.BranchID, arg.IngredientID}
		if _, ok := f.stock[key]; !ok {
			f.stock[key] = decimal.Zero
		}
		return nil
	}
	m.getBranchInventoryForUpdateFn = func(ctx context.Context, arg database.GetBranchInventoryForUpdateParams) (database.BranchInventory, error) {
		return database.BranchInventory{
			ID:           uuid.New(),
			BranchID:     arg.BranchID,
			IngredientID: arg.IngredientID,
			CurrentStock: decimalToNumeric(f.stock[invKey{arg.BranchID, arg.IngredientID}]),
		}, nil
	}
	m.setBranchStockFn = func(ctx context.Context, arg database.SetBranchStockParams) error {
		f.stock[invKey{arg.BranchID, arg.IngredientID}] = numericToDecimal(arg.CurrentStock)
		return nil
	}
	m.appendInventoryTransactionFn = func(ctx context.Context, arg database.AppendInventoryTransactionParams) (database.InventoryTransaction, error) {
		f.ledger = append(f.ledger, arg)
		return database.InventoryTransaction{
			ID:             uuid.New(),
			BranchID:       arg.BranchID,
			IngredientID:   arg.IngredientID,
			Type:           arg.Type,
			QuantityChange: arg.QuantityChange,
			StockBefore:    arg.StockBefore,
			StockAfter:     arg.StockAfter,
			OrderID:        arg.OrderID,
			TransferID:     arg.TransferID,
			ActorID:        arg.ActorID,
		}, nil
	}
}
