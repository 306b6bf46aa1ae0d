package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/educenter-crm-api/internal/models"
	appErrors "github.com/noah-isme/educenter-crm-api/pkg/errors"
)

func signToken(t *testing.T, secret, issuer string, method jwt.SigningMethod, expiresIn time.Duration) string {
	t.Helper()
	now := time.Now().UTC()
	claims := &models.JWTClaims{
		UserID: "user-1",
		Role:   models.RoleAdmin,
		Email:  "admin@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	}
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestTokenServiceValidateToken(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "identity"})

	claims, err := svc.ValidateToken(signToken(t, "secret", "identity", jwt.SigningMethodHS256, time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestTokenServiceRejects(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "identity"})

	cases := map[string]string{
		"empty":           "  ",
		"garbage":         "not-a-token",
		"wrong secret":    signToken(t, "other", "identity", jwt.SigningMethodHS256, time.Hour),
		"wrong issuer":    signToken(t, "secret", "someone-else", jwt.SigningMethodHS256, time.Hour),
		"expired":         signToken(t, "secret", "identity", jwt.SigningMethodHS256, -time.Minute),
		"wrong algorithm": signToken(t, "secret", "identity", jwt.SigningMethodHS512, time.Hour),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
		})
	}
}

func TestTokenServiceWithoutIssuer(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret"})
	_, err := svc.ValidateToken(signToken(t, "secret", "anyone", jwt.SigningMethodHS256, time.Hour))
	assert.NoError(t, err)
}
