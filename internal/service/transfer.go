package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kopitiam-pos/api/internal/database"
	"github.com/kopitiam-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

// allowedTransitions is the transfer state machine. A missing entry means the
// state is terminal.
var allowedTransitions = map[string][]string{
	enum.TransferStatusPending:   {enum.TransferStatusApproved, enum.TransferStatusCancelled},
	enum.TransferStatusApproved:  {enum.TransferStatusInTransit},
	enum.TransferStatusInTransit: {enum.TransferStatusCompleted},
}

// ValidateTransition reports whether from -> to is a legal transfer status
// change. It is pure so the state machine can be tested without a database.
func ValidateTransition(from, to string) error {
	if !enum.ValidTransferStatus(to) {
		return &TransitionError{From: from, To: to}
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return nil
		}
	}
	return &TransitionError{From: from, To: to}
}

// TransferStore defines the DB methods needed to manage transfers.
type TransferStore interface {
	LedgerStore
	CreateTransfer(ctx context.Context, arg database.CreateTransferParams) (database.Transfer, error)
	CreateTransferItem(ctx context.Context, arg database.CreateTransferItemParams) (database.TransferItem, error)
	GetTransferForUpdate(ctx context.Context, id uuid.UUID) (database.Transfer, error)
	ListTransferItems(ctx context.Context, transferID uuid.UUID) ([]database.TransferItem, error)
	GetIngredient(ctx context.Context, id uuid.UUID) (database.Ingredient, error)
	ApproveTransfer(ctx context.Context, arg database.ApproveTransferParams) (database.Transfer, error)
	ShipTransfer(ctx context.Context, arg database.ShipTransferParams) (database.Transfer, error)
	CompleteTransfer(ctx context.Context, arg database.CompleteTransferParams) (database.Transfer, error)
	CancelTransfer(ctx context.Context, arg database.CancelTransferParams) (database.Transfer, error)
	CreateAuditLog(ctx context.Context, arg database.CreateAuditLogParams) (database.AuditLog, error)
}

// NewTransferStore creates a TransferStore from a DBTX (pool or tx).
type NewTransferStore func(db database.DBTX) TransferStore

// TransferService moves ingredient stock between branches under staged
// approval.
type TransferService struct {
	pool     TxBeginner
	newStore NewTransferStore
}

func NewTransferService(pool TxBeginner, newStore NewTransferStore) *TransferService {
	return &TransferService{pool: pool, newStore: newStore}
}

// CreateTransferRequest is the validated input for requesting a transfer.
type CreateTransferRequest struct {
	SourceBranchID uuid.UUID
	TargetBranchID uuid.UUID
	RequestedBy    uuid.UUID
	Notes          string
	Items          []TransferItemRequest
}

// TransferItemRequest is one ingredient line of a transfer.
type TransferItemRequest struct {
	IngredientID string
	Quantity     string
}

// CreateTransferResult is the created transfer with its items.
type CreateTransferResult struct {
	Transfer database.Transfer
	Items    []database.TransferItem
}

// CreateTransfer records a PENDING transfer request. No stock moves until the
// transfer reaches COMPLETED.
func (s *TransferService) CreateTransfer(ctx context.Context, req CreateTransferRequest) (*CreateTransferResult, error) {
	if req.SourceBranchID == req.TargetBranchID {
		return nil, ErrSameBranch
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyTransfer
	}

	type line struct {
		ingredientID uuid.UUID
		quantity     decimal.Decimal
	}
	lines := make([]line, 0, len(req.Items))
	for i, item := range req.Items {
		id, err := uuid.Parse(item.IngredientID)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrIngredientNotFound)
		}
		qty, err := decimal.NewFromString(item.Quantity)
		if err != nil || !qty.IsPositive() {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		lines = append(lines, line{ingredientID: id, quantity: qty})
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	notes := pgtype.Text{}
	if req.Notes != "" {
		notes = pgtype.Text{String: req.Notes, Valid: true}
	}

	transfer, err := store.CreateTransfer(ctx, database.CreateTransferParams{
		SourceBranchID: req.SourceBranchID,
		TargetBranchID: req.TargetBranchID,
		Status:         enum.TransferStatusPending,
		Notes:          notes,
		RequestedBy:    req.RequestedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create transfer: %w", err)
	}

	var items []database.TransferItem
	for i, l := range lines {
		if _, err := store.GetIngredient(ctx, l.ingredientID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrIngredientNotFound)
			}
			return nil, fmt.Errorf("item[%d]: get ingredient: %w", i, err)
		}
		item, err := store.CreateTransferItem(ctx, database.CreateTransferItemParams{
			TransferID:   transfer.ID,
			IngredientID: l.ingredientID,
			Quantity:     decimalToNumeric(l.quantity),
		})
		if err != nil {
			return nil, fmt.Errorf("create transfer item: %w", err)
		}
		items = append(items, item)
	}

	if _, err := store.CreateAuditLog(ctx, database.CreateAuditLogParams{
		BranchID: pgtype.UUID{Bytes: req.SourceBranchID, Valid: true},
		ActorID:  req.RequestedBy,
		Action:   "transfer.requested",
		Entity:   "transfer",
		EntityID: transfer.ID,
	}); err != nil {
		return nil, fmt.Errorf("create audit log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &CreateTransferResult{Transfer: transfer, Items: items}, nil
}

// AdvanceTransfer moves a transfer to targetStatus. The COMPLETED transition
// is the only one that mutates stock: it decrements the source branch and
// increments the target branch for every item, writing one ledger entry per
// branch. The conditional status update matches at most once per transfer, so
// a retried completion never moves stock twice.
func (s *TransferService) AdvanceTransfer(ctx context.Context, p Principal, transferID uuid.UUID, targetStatus string) (*database.Transfer, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	transfer, err := store.GetTransferForUpdate(ctx, transferID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransferNotFound
		}
		return nil, fmt.Errorf("lock transfer: %w", err)
	}

	if err := ValidateTransition(transfer.Status, targetStatus); err != nil {
		return nil, err
	}

	var updated database.Transfer
	switch targetStatus {
	case enum.TransferStatusApproved:
		updated, err = store.ApproveTransfer(ctx, database.ApproveTransferParams{ID: transfer.ID, ActorID: p.UserID})
	case enum.TransferStatusInTransit:
		updated, err = store.ShipTransfer(ctx, database.ShipTransferParams{ID: transfer.ID, ActorID: p.UserID})
	case enum.TransferStatusCompleted:
		updated, err = store.CompleteTransfer(ctx, database.CompleteTransferParams{ID: transfer.ID, ActorID: p.UserID})
	case enum.TransferStatusCancelled:
		updated, err = store.CancelTransfer(ctx, database.CancelTransferParams{ID: transfer.ID, ActorID: p.UserID})
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &TransitionError{From: transfer.Status, To: targetStatus}
		}
		return nil, fmt.Errorf("update transfer status: %w", err)
	}

	if targetStatus == enum.TransferStatusCompleted {
		if err := s.moveStock(ctx, store, transfer, p.UserID); err != nil {
			return nil, err
		}
	}

	if _, err := store.CreateAuditLog(ctx, database.CreateAuditLogParams{
		BranchID: pgtype.UUID{Bytes: transfer.SourceBranchID, Valid: true},
		ActorID:  p.UserID,
		Action:   "transfer." + targetStatus,
		Entity:   "transfer",
		EntityID: transfer.ID,
	}); err != nil {
		return nil, fmt.Errorf("create audit log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &updated, nil
}

// branchDelta is one branch-side stock movement of a completed transfer.
type branchDelta struct {
	branchID     uuid.UUID
	ingredientID uuid.UUID
	delta        decimal.Decimal
}

// moveStock applies the two-sided mutation of a completed transfer. Deltas
// are ordered by (branch, ingredient) so two transfers touching the same
// branches lock rows in the same sequence and cannot deadlock. The source
// side runs through the same negative-stock gate as sales, so shipping more
// than the source holds aborts the completion.
func (s *TransferService) moveStock(ctx context.Context, store TransferStore, transfer database.Transfer, actorID uuid.UUID) error {
	items, err := store.ListTransferItems(ctx, transfer.ID)
	if err != nil {
		return fmt.Errorf("list transfer items: %w", err)
	}

	deltas := make([]branchDelta, 0, 2*len(items))
	for _, item := range items {
		qty := numericToDecimal(item.Quantity)
		deltas = append(deltas,
			branchDelta{branchID: transfer.SourceBranchID, ingredientID: item.IngredientID, delta: qty.Neg()},
			branchDelta{branchID: transfer.TargetBranchID, ingredientID: item.IngredientID, delta: qty},
		)
	}
	sort.Slice(deltas, func(i, j int) bool {
		if c := bytes.Compare(deltas[i].branchID[:], deltas[j].branchID[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(deltas[i].ingredientID[:], deltas[j].ingredientID[:]) < 0
	})

	transferRef := pgtype.UUID{Bytes: transfer.ID, Valid: true}
	for _, d := range deltas {
		ingredient, err := store.GetIngredient(ctx, d.ingredientID)
		if err != nil {
			return fmt.Errorf("get ingredient: %w", err)
		}
		if _, err := applyStockChange(ctx, store, stockChange{
			branchID:       d.branchID,
			ingredientID:   d.ingredientID,
			ingredientName: ingredient.Name,
			delta:          d.delta,
			txnType:        enum.InventoryTxnAdjustment,
			transferID:     transferRef,
			actorID:        actorID,
			reason:         pgtype.Text{String: "branch transfer", Valid: true},
		}); err != nil {
			return err
		}
	}
	return nil
}
