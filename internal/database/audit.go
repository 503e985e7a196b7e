package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type CreateAuditLogParams struct {
	BranchID pgtype.UUID
	ActorID  uuid.UUID
	Action   string
	Entity   string
	EntityID uuid.UUID
	Detail   pgtype.Text
}

const createAuditLog = `
INSERT INTO audit_logs (branch_id, actor_id, action, entity, entity_id, detail)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, branch_id, actor_id, action, entity, entity_id, detail, created_at
`

func (q *Queries) CreateAuditLog(ctx context.Context, arg CreateAuditLogParams) (AuditLog, error) {
	var a AuditLog
	err := q.db.QueryRow(ctx, createAuditLog,
		arg.BranchID, arg.ActorID, arg.Action, arg.Entity, arg.EntityID, arg.Detail,
	).Scan(&a.ID, &a.BranchID, &a.ActorID, &a.Action, &a.Entity, &a.EntityID, &a.Detail, &a.CreatedAt)
	return a, err
}
