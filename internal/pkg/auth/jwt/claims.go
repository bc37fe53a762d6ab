package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the JWT claims carried by a session token.
type Payload struct {
	// StandardClaims embeds Exp, Iat, and Iss, used for validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// UserID is the logical user the token was issued to.
	UserID string `json:"user_id"`

	// Username is the display name at issue time.
	Username string `json:"username"`

	// Role is the user's role (ADMIN or USER) at issue time.
	Role string `json:"role"`
}
