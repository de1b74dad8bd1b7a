package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/prestago/loans-api/internal/models"
	"github.com/prestago/loans-api/pkg/config"
	appErrors "github.com/prestago/loans-api/pkg/errors"
)

func signToken(t *testing.T, secret string, claims *models.JWTClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func ssoClaims(role models.UserRole) *models.JWTClaims {
	return &models.JWTClaims{
		UserID:   "user-1",
		Role:     role,
		FullName: "Ada Brook",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestAuthServiceValidateToken(t *testing.T) {
	svc := NewAuthService(config.JWTConfig{Secret: "test-secret"})

	claims, err := svc.ValidateToken(signToken(t, "test-secret", ssoClaims(models.RoleInstructor)))
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, models.RoleInstructor, claims.Role)
}

func TestAuthServiceRejectsWrongSecret(t *testing.T) {
	svc := NewAuthService(config.JWTConfig{Secret: "test-secret"})

	_, err := svc.ValidateToken(signToken(t, "other-secret", ssoClaims(models.RoleAdmin)))
	require.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceRejectsExpiredToken(t *testing.T) {
	svc := NewAuthService(config.JWTConfig{Secret: "test-secret"})

	expired := ssoClaims(models.RoleAdmin)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	_, err := svc.ValidateToken(signToken(t, "test-secret", expired))
	require.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceRejectsUnknownRole(t *testing.T) {
	svc := NewAuthService(config.JWTConfig{Secret: "test-secret"})

	// SYSTEM is sweeper-internal and never a valid token role.
	_, err := svc.ValidateToken(signToken(t, "test-secret", ssoClaims(models.RoleSystem)))
	require.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))

	_, err = svc.ValidateToken(signToken(t, "test-secret", ssoClaims(models.UserRole("GUEST"))))
	require.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceRejectsGarbage(t *testing.T) {
	svc := NewAuthService(config.JWTConfig{Secret: "test-secret"})
	_, err := svc.ValidateToken("not-a-token")
	require.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}
