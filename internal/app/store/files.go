package store

import (
	"context"
	"time"

	"relaychat/internal/app/chat"
	"relaychat/internal/pkg/randx"
)

// File is a persisted upload record.
type File struct {
	ID           string
	Name         string
	OriginalName string
	MimeType     string
	Size         int64
	Path         string
	UserID       string
	CreatedAt    time.Time
}

// Attachment converts the record into the shape messages reference.
func (f File) Attachment() chat.Attachment {
	return chat.Attachment{
		ID:           f.ID,
		Name:         f.Name,
		OriginalName: f.OriginalName,
		MimeType:     f.MimeType,
		Size:         f.Size,
		Path:         f.Path,
	}
}

// CreateFileParams are the fields of an upload record.
type CreateFileParams struct {
	Name         string
	OriginalName string
	MimeType     string
	Size         int64
	Path         string
	UserID       string
}

const fileColumns = "id, name, original_name, mime_type, size, path, user_id, created_at"

func scanFile(row interface{ Scan(dest ...any) error }) (File, error) {
	var f File
	err := row.Scan(&f.ID, &f.Name, &f.OriginalName, &f.MimeType, &f.Size, &f.Path, &f.UserID, &f.CreatedAt)
	return f, wrapNoRows(err)
}

// CreateFile inserts an upload record and returns the stored row.
func (s *Store) CreateFile(ctx context.Context, p CreateFileParams) (File, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO files (id, name, original_name, mime_type, size, path, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+fileColumns,
		randx.NewID(), p.Name, p.OriginalName, p.MimeType, p.Size, p.Path, p.UserID,
	)

	return scanFile(row)
}

// GetFile returns the upload record with the given id.
func (s *Store) GetFile(ctx context.Context, id string) (File, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+fileColumns+` FROM files WHERE id = $1`, id)
	return scanFile(row)
}
