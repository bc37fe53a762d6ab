/*
Package handler provides the HTTP handlers and routing for the relaychat
server: session management, chat history, uploads, user administration,
and the WebSocket entry point of the relay.
*/
package handler

import (
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"relaychat/internal/app/store"
	"relaychat/internal/pkg/auth/jwt"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/req"
	"relaychat/internal/pkg/resp"
)

// LoginInput is the credential payload of the login endpoint.
type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin verifies credentials against the user store and issues a
// session token. The relay itself never sees this flow; it only matters
// that a logical identity exists before the event channel opens.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input LoginInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.Username == "" || input.Password == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		account, err := deps.Store.GetUserByUsername(r.Context(), input.Username)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
				return
			}

			logx.Error(err, "login: user lookup failed")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(input.Password)) != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		if !account.IsActive {
			resp.RespondError(w, r, errs.NewError(errs.ErrAccountDisabled))
			return
		}

		payload := &jwt.Payload{
			UserID:   account.ID,
			Username: account.Username,
			Role:     string(account.Role),
		}

		tokenString, err := jwt.GenerateToken(payload, deps.Config.JWTSecret, jwt.SessionExpiration)
		if err != nil {
			logx.Error(err, "login: failed to generate session token")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"token": tokenString,
			"user":  account.Public(),
		})
	}
}

// HandleLogout acknowledges a logout. Session tokens are stateless, so
// discarding the token client-side is the whole operation; the endpoint
// exists for API compatibility.
func HandleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, nil)
	}
}

// HandleSession returns the account behind the presented token, with
// activity re-checked against the store so disabled accounts lose their
// session immediately.
func HandleSession(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, customErr := currentUser(deps, r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"user": account.Public(),
		})
	}
}

// currentUser resolves the request's token to a live, active account.
func currentUser(deps *AppDeps, r *http.Request) (store.User, *errs.CustomError) {
	payload := jwt.GetPayloadFromContext(r)
	if payload == nil {
		return store.User{}, errs.NewError(errs.ErrUnauthorized)
	}

	account, err := deps.Store.GetUserByID(r.Context(), payload.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.User{}, errs.NewError(errs.ErrUnauthorized)
		}

		logx.Error(err, "session: user lookup failed", "user_id", payload.UserID)
		return store.User{}, errs.NewError(errs.ErrUnknown)
	}

	if !account.IsActive {
		return store.User{}, errs.NewError(errs.ErrAccountDisabled)
	}

	return account, nil
}
