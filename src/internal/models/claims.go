package models

import "github.com/golang-jwt/jwt/v5"

// Claims represents JWT token claims shared by the REST middleware and the
// realtime credential check.
type Claims struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
	Username  string `json:"username"`
	TokenType string `json:"tokenType"`
	jwt.RegisteredClaims
}

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)
