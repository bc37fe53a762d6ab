package handler

import (
	"errors"
	"net/http"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"relaychat/internal/app/store"
	"relaychat/internal/app/user"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/req"
	"relaychat/internal/pkg/resp"
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)

// adminUser resolves the request to a live account with the ADMIN role.
func adminUser(deps *AppDeps, r *http.Request) (store.User, *errs.CustomError) {
	account, customErr := currentUser(deps, r)
	if customErr != nil {
		return store.User{}, customErr
	}

	if account.Role != user.RoleAdmin {
		return store.User{}, errs.NewError(errs.ErrForbidden)
	}

	return account, nil
}

// userView shapes an account row for admin responses.
func userView(u store.User) map[string]any {
	return map[string]any{
		"id":        u.ID,
		"username":  u.Username,
		"role":      u.Role,
		"avatar":    u.Avatar,
		"isActive":  u.IsActive,
		"createdAt": u.CreatedAt.Format(time.RFC3339),
	}
}

// HandleListUsers returns every account, newest first. Admin only.
func HandleListUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, customErr := adminUser(deps, r); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		accounts, err := deps.Store.ListUsers(r.Context())
		if err != nil {
			logx.Error(err, "admin: failed to list users")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		views := make([]map[string]any, 0, len(accounts))
		for _, u := range accounts {
			views = append(views, userView(u))
		}

		resp.RespondSuccess(w, r, map[string]any{"users": views})
	}
}

// CreateUserInput is the payload for provisioning an account.
type CreateUserInput struct {
	Username string    `json:"username"`
	Password string    `json:"password"`
	Role     user.Role `json:"role,omitempty"`
}

// HandleCreateUser provisions a new account. Admin only.
func HandleCreateUser(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, customErr := adminUser(deps, r); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var input CreateUserInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if !usernameRegex.MatchString(input.Username) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidUsername))
			return
		}

		if passwordLen := utf8.RuneCountInString(input.Password); passwordLen < 6 || passwordLen > 72 {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidPassword))
			return
		}

		role := input.Role
		if role == "" {
			role = user.RoleUser
		}
		if !role.IsValid() {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		account, err := deps.Store.CreateUser(r.Context(), store.CreateUserParams{
			Username:     input.Username,
			PasswordHash: string(hashedPassword),
			Role:         role,
		})
		if err != nil {
			if store.IsUniqueViolation(err) {
				resp.RespondError(w, r, errs.NewError(errs.ErrUserAlreadyExists))
				return
			}

			logx.Error(err, "admin: failed to create user", "username", input.Username)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"user": userView(account)})
	}
}

// UpdateUserInput carries the mutable account fields; absent fields are
// left unchanged.
type UpdateUserInput struct {
	Password *string    `json:"password,omitempty"`
	Role     *user.Role `json:"role,omitempty"`
	IsActive *bool      `json:"isActive,omitempty"`
}

// HandleUpdateUser updates role, activity, or password. Admin only; an
// admin cannot demote or deactivate their own account.
func HandleUpdateUser(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin, customErr := adminUser(deps, r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		targetID := chi.URLParam(r, "id")
		if targetID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		var input UpdateUserInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.Role != nil && !input.Role.IsValid() {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if targetID == admin.ID {
			demoted := input.Role != nil && *input.Role != user.RoleAdmin
			deactivated := input.IsActive != nil && !*input.IsActive
			if demoted || deactivated {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}
		}

		params := store.UpdateUserParams{
			Role:     input.Role,
			IsActive: input.IsActive,
		}

		if input.Password != nil {
			if passwordLen := utf8.RuneCountInString(*input.Password); passwordLen < 6 || passwordLen > 72 {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidPassword))
				return
			}

			hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
			if err != nil {
				resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
				return
			}

			hash := string(hashedPassword)
			params.PasswordHash = &hash
		}

		account, err := deps.Store.UpdateUser(r.Context(), targetID, params)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
				return
			}

			logx.Error(err, "admin: failed to update user", "target_id", targetID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"user": userView(account)})
	}
}

// HandleDeleteUser removes an account. Admin only; self-deletion is
// rejected.
func HandleDeleteUser(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin, customErr := adminUser(deps, r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		targetID := chi.URLParam(r, "id")
		if targetID == "" || targetID == admin.ID {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if err := deps.Store.DeleteUser(r.Context(), targetID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
				return
			}

			logx.Error(err, "admin: failed to delete user", "target_id", targetID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}

// HandleOnlineUsers returns the relay's current presence snapshot.
func HandleOnlineUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, customErr := currentUser(deps, r); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"users": deps.Hub.OnlineUsers(),
		})
	}
}
