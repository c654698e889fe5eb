package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragavi-632007/exam-timetable/internal/models"
	appErrors "github.com/ragavi-632007/exam-timetable/pkg/errors"
)

func signToken(t *testing.T, secret string, claims models.JWTClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAuthServiceValidateToken(t *testing.T) {
	svc := NewAuthService(nil, AuthConfig{Secret: "secret", Issuer: "exam-auth"})
	raw := signToken(t, "secret", models.JWTClaims{
		UserID: "user-1",
		Role:   "coordinator",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "exam-auth",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := svc.ValidateToken(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Identity())
	assert.Equal(t, models.RoleCoordinator, claims.Role)
}

func TestAuthServiceRejectsWrongSecret(t *testing.T) {
	svc := NewAuthService(nil, AuthConfig{Secret: "secret"})
	raw := signToken(t, "other", models.JWTClaims{UserID: "user-1"})

	_, err := svc.ValidateToken(raw)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceRejectsExpiredAndForeignIssuer(t *testing.T) {
	svc := NewAuthService(nil, AuthConfig{Secret: "secret", Issuer: "exam-auth"})

	expired := signToken(t, "secret", models.JWTClaims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "exam-auth",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	_, err := svc.ValidateToken(expired)
	assert.Error(t, err)

	foreign := signToken(t, "secret", models.JWTClaims{
		UserID:           "user-1",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else"},
	})
	_, err = svc.ValidateToken(foreign)
	assert.Error(t, err)
}

func TestAuthServiceRequiresSubject(t *testing.T) {
	svc := NewAuthService(nil, AuthConfig{Secret: "secret"})
	raw := signToken(t, "secret", models.JWTClaims{Role: models.RoleAdmin})

	_, err := svc.ValidateToken(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no subject")
}
