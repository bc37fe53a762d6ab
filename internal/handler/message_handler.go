package handler

import (
	"net/http"

	"relaychat/internal/app/chat"
	"relaychat/internal/app/store"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/req"
	"relaychat/internal/pkg/resp"
)

// messageView shapes a persisted message like the relay's ChatMessage so
// clients render history and live traffic identically.
func messageView(m store.Message) map[string]any {
	view := map[string]any{
		"id":        m.ID,
		"content":   m.Content,
		"type":      m.Type,
		"userId":    m.UserID,
		"username":  m.Username,
		"timestamp": m.CreatedAt.UnixMilli(),
	}

	if m.Avatar != "" {
		view["avatar"] = m.Avatar
	}

	if m.File != nil {
		view["file"] = m.File
	}

	return view
}

// HandleListMessages returns the recent message history in chronological
// order, used to seed the chat view on reload.
func HandleListMessages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, customErr := currentUser(deps, r); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		messages, err := deps.Store.ListRecentMessages(r.Context(), store.HistoryLimit)
		if err != nil {
			logx.Error(err, "failed to list recent messages")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		views := make([]map[string]any, 0, len(messages))
		for _, m := range messages {
			views = append(views, messageView(m))
		}

		resp.RespondSuccess(w, r, map[string]any{"messages": views})
	}
}

// CreateMessageInput is the payload for appending to the history.
type CreateMessageInput struct {
	Content string           `json:"content"`
	Type    chat.MessageType `json:"type"`
	FileID  *string          `json:"fileId,omitempty"`
}

// HandleCreateMessage appends one message to the durable history. The
// author is always the session user; the relay's live fan-out is a
// separate path and does not come through here.
func HandleCreateMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, customErr := currentUser(deps, r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var input CreateMessageInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if !input.Type.ValidInbound() {
			resp.RespondError(w, r, errs.NewError(errs.ErrMessageTypeInvalid))
			return
		}

		if len(input.Content) > chat.MaxContentBytes {
			resp.RespondError(w, r, errs.NewError(errs.ErrMessageContentTooLong))
			return
		}

		id, err := deps.Store.CreateMessage(r.Context(), store.CreateMessageParams{
			Content: input.Content,
			Type:    input.Type,
			UserID:  account.ID,
			FileID:  input.FileID,
		})
		if err != nil {
			logx.Error(err, "failed to append message", "user_id", account.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"id": id})
	}
}
