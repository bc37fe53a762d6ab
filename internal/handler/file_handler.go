package handler

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"relaychat/internal/app/store"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/randx"
	"relaychat/internal/pkg/req"
	"relaychat/internal/pkg/resp"
)

const (
	// MaxUploadSizeMB caps a single attachment.
	MaxUploadSizeMB = 10

	// MaxUploadSize is the attachment cap in bytes.
	MaxUploadSize = MaxUploadSizeMB * 1024 * 1024

	// DownloadURLDuration is the lifetime of a presigned download URL.
	DownloadURLDuration = 5 * time.Minute

	// uploadKeyPrefix namespaces attachment objects in the bucket.
	uploadKeyPrefix = "uploads/"
)

// HandleUpload streams an attachment into storage and records its
// metadata. The response carries the file descriptor that message events
// reference.
func HandleUpload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, customErr := currentUser(deps, r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := req.SetupMultipart(w, r); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}
		defer file.Close()

		if header.Size <= 0 || header.Size > MaxUploadSize {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileTooLarge, MaxUploadSizeMB))
			return
		}

		originalName := filepath.Base(header.Filename)
		if originalName == "" || originalName == "." || originalName == "/" {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileTypeInvalid))
			return
		}

		mimeType := header.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}

		suffix, err := randx.FileSuffix()
		if err != nil {
			logx.Error(err, "upload: failed to generate file suffix")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		ext := strings.ToLower(filepath.Ext(originalName))
		storedName := fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), suffix, ext)
		key := uploadKeyPrefix + storedName

		if err := deps.StorageService.Upload(r.Context(), key, mimeType, file); err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		record, err := deps.Store.CreateFile(r.Context(), store.CreateFileParams{
			Name:         storedName,
			OriginalName: originalName,
			MimeType:     mimeType,
			Size:         header.Size,
			Path:         key,
			UserID:       account.ID,
		})
		if err != nil {
			logx.Error(err, "upload: failed to record file metadata", "key", key)

			// The object is orphaned without a record; best effort cleanup.
			if delErr := deps.StorageService.Delete(r.Context(), key); delErr != nil {
				logx.Error(delErr, "upload: failed to clean up orphaned object", "key", key)
			}

			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"file": record.Attachment(),
		})
	}
}

// HandleDownload resolves a file id to a presigned download URL.
func HandleDownload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, customErr := currentUser(deps, r); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		fileID := r.URL.Query().Get("id")
		if fileID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		record, err := deps.Store.GetFile(r.Context(), fileID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrFileNotFound))
				return
			}

			logx.Error(err, "download: file lookup failed", "file_id", fileID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		url, err := deps.StorageService.PresignDownload(r.Context(), record.Path, DownloadURLDuration)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"url":  url,
			"file": record.Attachment(),
		})
	}
}
