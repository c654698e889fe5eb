package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the access token payload issued by the hosted auth provider.
type JWTClaims struct {
	UserID     string   `json:"user_id"`
	Role       UserRole `json:"role"`
	Email      string   `json:"email"`
	Department string   `json:"department,omitempty"`
	jwt.RegisteredClaims
}

// Identity returns the identifier recorded as assigned_by.
func (c *JWTClaims) Identity() string {
	if c == nil {
		return ""
	}
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}
