package store

import (
	"context"
	"time"

	"relaychat/internal/app/chat"
	"relaychat/internal/pkg/randx"
)

// HistoryLimit is how many persisted messages the history endpoint
// serves, matching what clients render on reload.
const HistoryLimit = 100

// Message is a persisted chat message row joined with its author and
// optional file attachment.
type Message struct {
	ID        string
	Content   string
	Type      chat.MessageType
	UserID    string
	Username  string
	Role      string
	Avatar    string
	File      *chat.Attachment
	CreatedAt time.Time
}

// CreateMessageParams are the fields of a message append.
type CreateMessageParams struct {
	Content string
	Type    chat.MessageType
	UserID  string
	FileID  *string
}

// CreateMessage appends one message to the history.
func (s *Store) CreateMessage(ctx context.Context, p CreateMessageParams) (string, error) {
	id := randx.NewID()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, content, type, user_id, file_id)
		VALUES ($1, $2, $3, $4, $5)`,
		id, p.Content, p.Type, p.UserID, p.FileID,
	)

	return id, err
}

// ListRecentMessages returns the most recent messages in chronological
// order, each joined with author identity and attachment metadata.
func (s *Store) ListRecentMessages(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = HistoryLimit
	}

	// The inner query selects the newest rows; the outer one restores
	// chronological order for rendering.
	rows, err := s.pool.Query(ctx, `
		SELECT id, content, type, user_id, username, role, avatar,
		       file_id, file_name, file_original_name, file_mime_type, file_size, file_path,
		       created_at
		FROM (
			SELECT m.id, m.content, m.type, m.user_id,
			       u.username, u.role, u.avatar,
			       f.id AS file_id, f.name AS file_name,
			       f.original_name AS file_original_name,
			       f.mime_type AS file_mime_type,
			       f.size AS file_size, f.path AS file_path,
			       m.created_at
			FROM messages m
			JOIN users u ON u.id = m.user_id
			LEFT JOIN files f ON f.id = m.file_id
			ORDER BY m.created_at DESC
			LIMIT $1
		) recent
		ORDER BY created_at ASC`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var fileID, fileName, fileOriginalName, fileMimeType, filePath *string
		var fileSize *int64

		err := rows.Scan(
			&m.ID, &m.Content, &m.Type, &m.UserID, &m.Username, &m.Role, &m.Avatar,
			&fileID, &fileName, &fileOriginalName, &fileMimeType, &fileSize, &filePath,
			&m.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if fileID != nil {
			m.File = &chat.Attachment{
				ID:           *fileID,
				Name:         *fileName,
				OriginalName: *fileOriginalName,
				MimeType:     *fileMimeType,
				Size:         *fileSize,
				Path:         *filePath,
			}
		}

		messages = append(messages, m)
	}

	return messages, rows.Err()
}
