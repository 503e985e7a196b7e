package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kopitiam-pos/api/internal/database"
	"github.com/kopitiam-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

// ShiftStore defines the DB methods needed to open and close shifts.
type ShiftStore interface {
	GetOpenShiftByCashier(ctx context.Context, cashierID uuid.UUID) (database.Shift, error)
	CreateShift(ctx context.Context, arg database.CreateShiftParams) (database.Shift, error)
	GetShiftForUpdate(ctx context.Context, id uuid.UUID) (database.Shift, error)
	CloseShift(ctx context.Context, arg database.CloseShiftParams) (database.Shift, error)
	SumOrdersByShift(ctx context.Context, shiftID uuid.UUID) ([]database.ShiftOrderTotalsRow, error)
	CreateShiftPaymentTotal(ctx context.Context, arg database.CreateShiftPaymentTotalParams) (database.ShiftPaymentTotal, error)
	SetUserCurrentShift(ctx context.Context, arg database.SetUserCurrentShiftParams) error
	CreateAuditLog(ctx context.Context, arg database.CreateAuditLogParams) (database.AuditLog, error)
}

// NewShiftStore creates a ShiftStore from a DBTX (pool or tx).
type NewShiftStore func(db database.DBTX) ShiftStore

// ShiftService owns the cash shift lifecycle.
type ShiftService struct {
	pool     TxBeginner
	newStore NewShiftStore
}

func NewShiftService(pool TxBeginner, newStore NewShiftStore) *ShiftService {
	return &ShiftService{pool: pool, newStore: newStore}
}

// CloseShiftResult is the closed shift with its per-payment-method breakdown.
type CloseShiftResult struct {
	Shift  database.Shift
	Totals []database.ShiftPaymentTotal
}

// OpenShift starts a cash shift for a cashier at the addressed branch. The
// shift opens at the branch in the URL, not the caller's home branch: an
// admin may open a shift anywhere, everyone else only at their own branch. A
// cashier can hold at most one open shift; a partial unique index backs up
// the check made here.
func (s *ShiftService) OpenShift(ctx context.Context, p Principal, branchID uuid.UUID, openingCash string) (*database.Shift, error) {
	cash, err := decimal.NewFromString(openingCash)
	if err != nil || cash.IsNegative() {
		return nil, fmt.Errorf("%w: opening_cash", ErrInvalidAmount)
	}
	if p.Role != enum.UserRoleAdmin && p.BranchID != branchID {
		return nil, ErrBranchMismatch
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := store.GetOpenShiftByCashier(ctx, p.UserID); err == nil {
		return nil, ErrShiftAlreadyOpen
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get open shift: %w", err)
	}

	shift, err := store.CreateShift(ctx, database.CreateShiftParams{
		BranchID:       branchID,
		CashierID:      p.UserID,
		OpeningCash:    decimalToNumeric(cash),
		OpeningRevenue: decimalToNumeric(decimal.Zero),
		OpeningOrders:  0,
	})
	if err != nil {
		return nil, fmt.Errorf("create shift: %w", err)
	}

	if err := store.SetUserCurrentShift(ctx, database.SetUserCurrentShiftParams{
		ID:             p.UserID,
		CurrentShiftID: pgtype.UUID{Bytes: shift.ID, Valid: true},
	}); err != nil {
		return nil, fmt.Errorf("set current shift: %w", err)
	}

	if _, err := store.CreateAuditLog(ctx, database.CreateAuditLogParams{
		BranchID: pgtype.UUID{Bytes: branchID, Valid: true},
		ActorID:  p.UserID,
		Action:   "shift.opened",
		Entity:   "shift",
		EntityID: shift.ID,
	}); err != nil {
		return nil, fmt.Errorf("create audit log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &shift, nil
}

// CloseShift totals the shift's orders per payment method, freezes the
// breakdown rows, and closes the shift. Expected cash is opening cash plus
// CASH revenue; refunded orders stay in the totals because the cash drawer
// saw both movements during the shift.
func (s *ShiftService) CloseShift(ctx context.Context, p Principal, shiftID uuid.UUID, closingCash string) (*CloseShiftResult, error) {
	cash, err := decimal.NewFromString(closingCash)
	if err != nil || cash.IsNegative() {
		return nil, fmt.Errorf("%w: closing_cash", ErrInvalidAmount)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	shift, err := store.GetShiftForUpdate(ctx, shiftID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrShiftNotFound
		}
		return nil, fmt.Errorf("lock shift: %w", err)
	}
	switch p.Role {
	case enum.UserRoleAdmin:
	case enum.UserRoleBranchManager:
		if shift.BranchID != p.BranchID {
			return nil, ErrBranchMismatch
		}
	default:
		if shift.CashierID != p.UserID {
			return nil, ErrBranchMismatch
		}
	}
	if shift.IsClosed {
		return nil, ErrShiftClosed
	}

	rows, err := store.SumOrdersByShift(ctx, shift.ID)
	if err != nil {
		return nil, fmt.Errorf("sum orders: %w", err)
	}

	revenue := decimal.Zero
	orders := int32(0)
	cashRevenue := decimal.Zero
	var totals []database.ShiftPaymentTotal
	for _, row := range rows {
		rowRevenue := numericToDecimal(row.Revenue)
		revenue = revenue.Add(rowRevenue)
		orders += int32(row.OrderCount)
		if row.PaymentMethod == enum.PaymentMethodCash {
			cashRevenue = cashRevenue.Add(rowRevenue)
		}
		total, err := store.CreateShiftPaymentTotal(ctx, database.CreateShiftPaymentTotalParams{
			ShiftID:       shift.ID,
			PaymentMethod: row.PaymentMethod,
			OrderCount:    int32(row.OrderCount),
			Revenue:       row.Revenue,
		})
		if err != nil {
			return nil, fmt.Errorf("create payment total: %w", err)
		}
		totals = append(totals, total)
	}

	expectedCash := numericToDecimal(shift.OpeningCash).Add(cashRevenue)

	closed, err := store.CloseShift(ctx, database.CloseShiftParams{
		ID:             shift.ID,
		ClosingCash:    decimalToNumeric(cash),
		ClosingRevenue: decimalToNumeric(revenue),
		ClosingOrders:  pgtype.Int4{Int32: orders, Valid: true},
		ExpectedCash:   decimalToNumeric(expectedCash),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrShiftClosed
		}
		return nil, fmt.Errorf("close shift: %w", err)
	}

	if err := store.SetUserCurrentShift(ctx, database.SetUserCurrentShiftParams{
		ID:             shift.CashierID,
		CurrentShiftID: pgtype.UUID{},
	}); err != nil {
		return nil, fmt.Errorf("clear current shift: %w", err)
	}

	if _, err := store.CreateAuditLog(ctx, database.CreateAuditLogParams{
		BranchID: pgtype.UUID{Bytes: shift.BranchID, Valid: true},
		ActorID:  p.UserID,
		Action:   "shift.closed",
		Entity:   "shift",
		EntityID: shift.ID,
	}); err != nil {
		return nil, fmt.Errorf("create audit log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &CloseShiftResult{Shift: closed, Totals: totals}, nil
}
