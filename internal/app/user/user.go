/*
Package user defines the identity model shared by the relay and the HTTP
API: a logical user with a closed role set.
*/
package user

// Role is the closed set of user roles.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User is the public identity of a chat participant, serialized into
// relay events and API responses.
type User struct {
	// UserID is the durable logical identifier, independent of any
	// particular connection.
	UserID string `json:"userId"`

	// Username is the display name.
	Username string `json:"username"`

	// Role is ADMIN or USER.
	Role Role `json:"role"`

	// Avatar is an optional reference to the user's avatar image.
	Avatar string `json:"avatar,omitempty"`
}
