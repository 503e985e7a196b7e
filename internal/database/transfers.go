package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const transferColumns = `id, source_branch_id, target_branch_id, status, notes,
	requested_by, approved_by, shipped_by, completed_by, cancelled_by,
	requested_at, approved_at, shipped_at, completed_at, cancelled_at`

func scanTransfer(row interface{ Scan(dest ...any) error }) (Transfer, error) {
	var t Transfer
	err := row.Scan(
		&t.ID, &t.SourceBranchID, &t.TargetBranchID, &t.Status, &t.Notes,
		&t.RequestedBy, &t.ApprovedBy, &t.ShippedBy, &t.CompletedBy, &t.CancelledBy,
		&t.RequestedAt, &t.ApprovedAt, &t.ShippedAt, &t.CompletedAt, &t.CancelledAt,
	)
	return t, err
}

type CreateTransferParams struct {
	SourceBranchID uuid.UUID
	TargetBranchID uuid.UUID
	Status         string
	Notes          pgtype.Text
	RequestedBy    uuid.UUID
}

const createTransfer = `
INSERT INTO transfers (source_branch_id, target_branch_id, status, notes, requested_by)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + transferColumns

func (q *Queries) CreateTransfer(ctx context.Context, arg CreateTransferParams) (Transfer, error) {
	return scanTransfer(q.db.QueryRow(ctx, createTransfer,
		arg.SourceBranchID, arg.TargetBranchID, arg.Status, arg.Notes, arg.RequestedBy))
}

type CreateTransferItemParams struct {
	TransferID   uuid.UUID
	IngredientID uuid.UUID
	Quantity     pgtype.Numeric
}

const createTransferItem = `
INSERT INTO transfer_items (transfer_id, ingredient_id, quantity)
VALUES ($1, $2, $3)
RETURNING id, transfer_id, ingredient_id, quantity
`

func (q *Queries) CreateTransferItem(ctx context.Context, arg CreateTransferItemParams) (TransferItem, error) {
	var i TransferItem
	err := q.db.QueryRow(ctx, createTransferItem,
		arg.TransferID, arg.IngredientID, arg.Quantity,
	).Scan(&i.ID, &i.TransferID, &i.IngredientID, &i.Quantity)
	return i, err
}

const getTransfer = `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1`

func (q *Queries) GetTransfer(ctx context.Context, id uuid.UUID) (Transfer, error) {
	return scanTransfer(q.db.QueryRow(ctx, getTransfer, id))
}

const getTransferForUpdate = `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1 FOR UPDATE`

// GetTransferForUpdate locks the transfer row so concurrent status changes
// serialize rather than race.
func (q *Queries) GetTransferForUpdate(ctx context.Context, id uuid.UUID) (Transfer, error) {
	return scanTransfer(q.db.QueryRow(ctx, getTransferForUpdate, id))
}

const listTransferItems = `
SELECT id, transfer_id, ingredient_id, quantity
FROM transfer_items
WHERE transfer_id = $1
ORDER BY ingredient_id
`

func (q *Queries) ListTransferItems(ctx context.Context, transferID uuid.UUID) ([]TransferItem, error) {
	rows, err := q.db.Query(ctx, listTransferItems, transferID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransferItem
	for rows.Next() {
		var i TransferItem
		if err := rows.Scan(&i.ID, &i.TransferID, &i.IngredientID, &i.Quantity); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type ListTransfersByBranchParams struct {
	BranchID uuid.UUID
	Limit    int32
	Offset   int32
}

const listTransfersByBranch = `
SELECT ` + transferColumns + `
FROM transfers
WHERE source_branch_id = $1 OR target_branch_id = $1
ORDER BY requested_at DESC
LIMIT $2 OFFSET $3
`

func (q *Queries) ListTransfersByBranch(ctx context.Context, arg ListTransfersByBranchParams) ([]Transfer, error) {
	rows, err := q.db.Query(ctx, listTransfersByBranch, arg.BranchID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

type ApproveTransferParams struct {
	ID      uuid.UUID
	ActorID uuid.UUID
}

const approveTransfer = `
UPDATE transfers
SET status = 'APPROVED', approved_by = $2, approved_at = now()
WHERE id = $1 AND status = 'PENDING'
RETURNING ` + transferColumns

// ApproveTransfer moves PENDING -> APPROVED. The conditional WHERE makes the
// transition atomic; zero rows means the transfer left PENDING concurrently.
func (q *Queries) ApproveTransfer(ctx context.Context, arg ApproveTransferParams) (Transfer, error) {
	return scanTransfer(q.db.QueryRow(ctx, approveTransfer, arg.ID, arg.ActorID))
}

type ShipTransferParams struct {
	ID      uuid.UUID
	ActorID uuid.UUID
}

const shipTransfer = `
UPDATE transfers
SET status = 'IN_TRANSIT', shipped_by = $2, shipped_at = now()
WHERE id = $1 AND status = 'APPROVED'
RETURNING ` + transferColumns

func (q *Queries) ShipTransfer(ctx context.Context, arg ShipTransferParams) (Transfer, error) {
	return scanTransfer(q.db.QueryRow(ctx, shipTransfer, arg.ID, arg.ActorID))
}

type CompleteTransferParams struct {
	ID      uuid.UUID
	ActorID uuid.UUID
}

const completeTransfer = `
UPDATE transfers
SET status = 'COMPLETED', completed_by = $2, completed_at = now()
WHERE id = $1 AND status = 'IN_TRANSIT'
RETURNING ` + transferColumns

// CompleteTransfer moves IN_TRANSIT -> COMPLETED. The stock mutation is gated
// on this statement matching a row, which can happen at most once per
// transfer, so a retried completion never double-moves inventory.
func (q *Queries) CompleteTransfer(ctx context.Context, arg CompleteTransferParams) (Transfer, error) {
	return scanTransfer(q.db.QueryRow(ctx, completeTransfer, arg.ID, arg.ActorID))
}

type CancelTransferParams struct {
	ID      uuid.UUID
	ActorID uuid.UUID
}

const cancelTransfer = `
UPDATE transfers
SET status = 'CANCELLED', cancelled_by = $2, cancelled_at = now()
WHERE id = $1 AND status = 'PENDING'
RETURNING ` + transferColumns

func (q *Queries) CancelTransfer(ctx context.Context, arg CancelTransferParams) (Transfer, error) {
	return scanTransfer(q.db.QueryRow(ctx, cancelTransfer, arg.ID, arg.ActorID))
}
