package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `id, email, phone, hashed_password, first_name, last_name, role, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Phone, &u.HashedPassword, &u.FirstName, &u.LastName,
		&u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

type CreateUserParams struct {
	Email          string
	Phone          pgtype.Text
	HashedPassword string
	FirstName      string
	LastName       pgtype.Text
	Role           string
}

const createUser = `
INSERT INTO users (email, phone, hashed_password, first_name, last_name, role)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + userColumns

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser,
		arg.Email, arg.Phone, arg.HashedPassword, arg.FirstName, arg.LastName, arg.Role)
	return scanUser(row)
}

const getUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = $1`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByEmail, email))
}

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByID, id))
}

type ListUsersParams struct {
	Limit  int32
	Offset int32
}

const listUsers = `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`

func (q *Queries) ListUsers(ctx context.Context, arg ListUsersParams) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsers, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

type UpdateUserAccessParams struct {
	ID       uuid.UUID
	Role     string
	IsActive bool
}

const updateUserAccess = `
UPDATE users
SET role = $2, is_active = $3, updated_at = now()
WHERE id = $1
RETURNING ` + userColumns

func (q *Queries) UpdateUserAccess(ctx context.Context, arg UpdateUserAccessParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, updateUserAccess, arg.ID, arg.Role, arg.IsActive))
}
