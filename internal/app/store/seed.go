package store

import (
	"context"

	"relaychat/internal/app/user"
	"relaychat/internal/pkg/logx"
)

// EnsureAdmin creates the bootstrap admin account when the users table
// is empty. Running it on every boot is idempotent.
func (s *Store) EnsureAdmin(ctx context.Context, username, passwordHash string) error {
	count, err := s.CountUsers(ctx)
	if err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	admin, err := s.CreateUser(ctx, CreateUserParams{
		Username:     username,
		PasswordHash: passwordHash,
		Role:         user.RoleAdmin,
	})
	if err != nil {
		// Another instance may have seeded concurrently.
		if IsUniqueViolation(err) {
			return nil
		}
		return err
	}

	logx.Info("Seeded bootstrap admin account", "user_id", admin.ID, "username", admin.Username)
	return nil
}
