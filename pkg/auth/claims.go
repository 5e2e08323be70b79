package auth

import "github.com/golang-jwt/jwt/v5"

// SessionClaims is the typed JWT handed to storefront clients. The subject of
// every token is an opaque storefront session; buyer identity lives
// server-side and is bound to the session on login.
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}
