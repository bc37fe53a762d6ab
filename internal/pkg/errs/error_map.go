package errs

import "net/http"

// errorMap holds the message template and HTTP status for every error
// code. A zero Status defaults to 200 with the business code carrying the
// failure, matching the unified response envelope.
var errorMap = map[int]CustomError{
	// 1xxx: General request handling errors.
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format."},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Unsupported request format."},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data."},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large."},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Chat content errors.
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long."},
	ErrMessageTypeInvalid:    {Code: ErrMessageTypeInvalid, Message: "Invalid message type."},

	// 3xxx: Authentication, session, and user management errors.
	ErrUnauthorized:       {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrForbidden:          {Code: ErrForbidden, Message: "You do not have permission to do this.", Status: http.StatusForbidden},
	ErrInvalidCredentials: {Code: ErrInvalidCredentials, Message: "Incorrect username or password.", Status: http.StatusUnauthorized},
	ErrAccountDisabled:    {Code: ErrAccountDisabled, Message: "This account has been disabled.", Status: http.StatusForbidden},
	ErrUserAlreadyExists:  {Code: ErrUserAlreadyExists, Message: "Username is already taken."},
	ErrUserNotFound:       {Code: ErrUserNotFound, Message: "Account not found.", Status: http.StatusNotFound},
	ErrInvalidUsername:    {Code: ErrInvalidUsername, Message: "Invalid username."},
	ErrInvalidPassword:    {Code: ErrInvalidPassword, Message: "Invalid password."},
	ErrSessionReplaced:    {Code: ErrSessionReplaced, Message: "You signed in from another device or tab."},

	// 4xxx: File and storage errors.
	ErrFileTooLarge:      {Code: ErrFileTooLarge, Message: "File is too large (limit %d MB)."},
	ErrFileTypeInvalid:   {Code: ErrFileTypeInvalid, Message: "This file type is not allowed."},
	ErrFileNotFound:      {Code: ErrFileNotFound, Message: "File not found.", Status: http.StatusNotFound},
	ErrFileStorageFailed: {Code: ErrFileStorageFailed, Message: "File upload failed. Please try again."},

	// 5xxx: Internal system errors.
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
