package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/prestago/loans-api/internal/models"
	"github.com/prestago/loans-api/pkg/config"
	appErrors "github.com/prestago/loans-api/pkg/errors"
)

// AuthService validates access tokens issued by the institutional SSO. The
// gateway has no user table and never issues tokens itself.
type AuthService struct {
	secret []byte
}

// NewAuthService constructs the service from the JWT config.
func NewAuthService(cfg config.JWTConfig) *AuthService {
	return &AuthService{secret: []byte(cfg.Secret)}
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	switch claims.Role {
	case models.RoleInstructor, models.RoleTechnician, models.RoleAdmin:
	default:
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token carries an unknown role")
	}

	return claims, nil
}
