package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"portal-chat/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingEmail = errors.New("token has no email")
)

// Viewer is the signed-in party of a dashboard session.
type Viewer struct {
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
	Name  string      `json:"name,omitempty"`
}

// Claims carries the viewer inside a session token.
type Claims struct {
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
	Name  string      `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Issue signs a session token for v.
func Issue(secret string, v Viewer, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: v.Email,
		Role:  v.Role,
		Name:  v.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   v.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Parse validates a session token and returns its viewer. A missing role
// defaults to customer.
func Parse(secret, token string) (Viewer, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Viewer{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if strings.TrimSpace(claims.Email) == "" {
		return Viewer{}, ErrMissingEmail
	}
	role := claims.Role
	if role == "" {
		role = models.RoleCustomer
	}
	if !role.Valid() {
		return Viewer{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, role)
	}
	return Viewer{Email: claims.Email, Role: role, Name: claims.Name}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
