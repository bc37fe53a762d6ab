package store

import (
	"context"
	"time"

	"relaychat/internal/app/user"
	"relaychat/internal/pkg/randx"
)

// User is a persisted account row.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         user.Role
	Avatar       string
	IsActive     bool
	CreatedAt    time.Time
}

// Public returns the identity fields exposed to clients and the relay.
func (u User) Public() user.User {
	return user.User{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
		Avatar:   u.Avatar,
	}
}

const userColumns = "id, username, password_hash, role, avatar, is_active, created_at"

func scanUser(row interface{ Scan(dest ...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.Avatar, &u.IsActive, &u.CreatedAt)
	return u, wrapNoRows(err)
}

// CreateUserParams are the fields of a new account.
type CreateUserParams struct {
	Username     string
	PasswordHash string
	Role         user.Role
	Avatar       string
}

// CreateUser inserts a new account and returns the stored row.
func (s *Store) CreateUser(ctx context.Context, p CreateUserParams) (User, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (id, username, password_hash, role, avatar)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		randx.NewID(), p.Username, p.PasswordHash, p.Role, p.Avatar,
	)

	return scanUser(row)
}

// GetUserByID returns the account with the given id.
func (s *Store) GetUserByID(ctx context.Context, id string) (User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetUserByUsername returns the account with the given username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

// ListUsers returns every account, newest first.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
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

// CountUsers returns the total number of accounts.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&count)
	return count, err
}

// UpdateUserParams are the mutable account fields. Nil pointers leave
// the stored value unchanged.
type UpdateUserParams struct {
	Role         *user.Role
	IsActive     *bool
	PasswordHash *string
	Avatar       *string
}

// UpdateUser applies the non-nil fields and returns the updated row.
func (s *Store) UpdateUser(ctx context.Context, id string, p UpdateUserParams) (User, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE users SET
			role = COALESCE($2, role),
			is_active = COALESCE($3, is_active),
			password_hash = COALESCE($4, password_hash),
			avatar = COALESCE($5, avatar)
		WHERE id = $1
		RETURNING `+userColumns,
		id, p.Role, p.IsActive, p.PasswordHash, p.Avatar,
	)

	return scanUser(row)
}

// DeleteUser removes the account. Messages and files cascade.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
