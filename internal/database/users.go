package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `id, branch_id, full_name, email, hashed_password, role, current_shift_id, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...any) error }) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.BranchID, &u.FullName, &u.Email, &u.HashedPassword, &u.Role,
		&u.CurrentShiftID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

const getUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND is_active`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByEmail, email))
}

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByID, id))
}

type CreateUserParams struct {
	BranchID       uuid.UUID
	FullName       string
	Email          string
	HashedPassword string
	Role           string
}

const createUser = `
INSERT INTO users (branch_id, full_name, email, hashed_password, role)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + userColumns

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, createUser,
		arg.BranchID, arg.FullName, arg.Email, arg.HashedPassword, arg.Role))
}

type SetUserCurrentShiftParams struct {
	ID             uuid.UUID
	CurrentShiftID pgtype.UUID
}

const setUserCurrentShift = `UPDATE users SET current_shift_id = $2, updated_at = now() WHERE id = $1`

func (q *Queries) SetUserCurrentShift(ctx context.Context, arg SetUserCurrentShiftParams) error {
	_, err := q.db.Exec(ctx, setUserCurrentShift, arg.ID, arg.CurrentShiftID)
	return err
}
