/*
Package req provides strict JSON request binding for HTTP handlers.
*/
package req

import (
	"encoding/json"
	"net/http"
	"strings"

	"relaychat/internal/pkg/errs"
)

const (
	// MaxJSONBodySize caps JSON request bodies at 1 MB.
	MaxJSONBodySize int64 = 1 << 20

	// MaxFormMemory is how much of a multipart form is held in memory
	// before spilling to temporary files.
	MaxFormMemory int64 = 32 << 20

	// MaxUploadBodySize caps a multipart upload request, file included.
	MaxUploadBodySize int64 = 12 << 20
)

// BindJSON decodes the request body into dst. Unknown fields, trailing
// content, and non-JSON content types are rejected.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBodySize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}

// SetupMultipart enforces the upload body limit and parses the
// multipart form.
func SetupMultipart(w http.ResponseWriter, r *http.Request) *errs.CustomError {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBodySize)

	if err := r.ParseMultipartForm(MaxFormMemory); err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}

		return errs.NewError(errs.ErrInvalidParams)
	}

	return nil
}
