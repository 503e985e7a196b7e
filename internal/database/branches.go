package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const branchColumns = `id, name, address, is_active, created_at`

const getBranch = `SELECT ` + branchColumns + ` FROM branches WHERE id = $1`

func (q *Queries) GetBranch(ctx context.Context, id uuid.UUID) (Branch, error) {
	var b Branch
	err := q.db.QueryRow(ctx, getBranch, id).Scan(
		&b.ID, &b.Name, &b.Address, &b.IsActive, &b.CreatedAt,
	)
	return b, err
}

type CreateBranchParams struct {
	Name    string
	Address pgtype.Text
}

const createBranch = `
INSERT INTO branches (name, address)
VALUES ($1, $2)
RETURNING ` + branchColumns

func (q *Queries) CreateBranch(ctx context.Context, arg CreateBranchParams) (Branch, error) {
	var b Branch
	err := q.db.QueryRow(ctx, createBranch, arg.Name, arg.Address).Scan(
		&b.ID, &b.Name, &b.Address, &b.IsActive, &b.CreatedAt,
	)
	return b, err
}

const listBranches = `SELECT ` + branchColumns + ` FROM branches WHERE is_active ORDER BY name`

func (q *Queries) ListBranches(ctx context.Context) ([]Branch, error) {
	rows, err := q.db.Query(ctx, listBranches)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Branch
	for rows.Next() {
		var b Branch
		if err := rows.Scan(&b.ID, &b.Name, &b.Address, &b.IsActive, &b.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}
