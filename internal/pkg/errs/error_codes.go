package errs

// 1xxx: General request handling errors.
const (
	// ErrInvalidParams indicates request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates an unsupported Content-Type.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates a malformed JSON request body.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates trailing data after valid JSON.
	ErrExtraContentInBody = 1004

	// ErrRequestEntityTooLarge indicates the request body exceeded the limit.
	ErrRequestEntityTooLarge = 1005

	// ErrRateLimitExceeded indicates the caller exceeded the request rate.
	ErrRateLimitExceeded = 1006
)

// 2xxx: Chat content errors.
const (
	// ErrMessageContentTooLong indicates message content over the length cap.
	ErrMessageContentTooLong = 2001

	// ErrMessageTypeInvalid indicates a message type outside TEXT/IMAGE/FILE/SYSTEM.
	ErrMessageTypeInvalid = 2002
)

// 3xxx: Authentication, session, and user management errors.
const (
	// ErrUnauthorized indicates a missing or invalid session token.
	ErrUnauthorized = 3001

	// ErrForbidden indicates the caller lacks the required role.
	ErrForbidden = 3002

	// ErrInvalidCredentials indicates a wrong username or password.
	ErrInvalidCredentials = 3003

	// ErrAccountDisabled indicates login into a deactivated account.
	ErrAccountDisabled = 3004

	// ErrUserAlreadyExists indicates the username is taken.
	ErrUserAlreadyExists = 3005

	// ErrUserNotFound indicates no user matches the given id.
	ErrUserNotFound = 3006

	// ErrInvalidUsername indicates the username failed validation.
	ErrInvalidUsername = 3007

	// ErrInvalidPassword indicates the password failed validation.
	ErrInvalidPassword = 3008

	// ErrSessionReplaced indicates the connection was evicted by a newer
	// login of the same user.
	ErrSessionReplaced = 3009
)

// 4xxx: File and storage errors.
const (
	// ErrFileTooLarge indicates the file exceeds the size limit.
	ErrFileTooLarge = 4001

	// ErrFileTypeInvalid indicates a disallowed file name or MIME type.
	ErrFileTypeInvalid = 4002

	// ErrFileNotFound indicates the requested file key does not exist.
	ErrFileNotFound = 4003

	// ErrFileStorageFailed indicates a storage backend failure.
	ErrFileStorageFailed = 4004
)

// 5xxx: Internal system errors.
const (
	// ErrUnknown is the unclassified internal server error.
	ErrUnknown = 5000
)
