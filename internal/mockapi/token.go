package mockapi

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kumbo-archives/archives-client/internal/models"
	appErrors "github.com/kumbo-archives/archives-client/pkg/errors"
)

// TokenIssuer signs and verifies the fixture server's bearer tokens.
type TokenIssuer struct {
	secret     []byte
	expiration time.Duration
}

// NewTokenIssuer constructs an issuer.
func NewTokenIssuer(secret string, expiration time.Duration) *TokenIssuer {
	if expiration <= 0 {
		expiration = 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), expiration: expiration}
}

type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Issue creates a signed token for the user.
func (t *TokenIssuer) Issue(user *models.User) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    "kumbo-mock-api",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.expiration)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify parses a token and returns the subject user ID.
func (t *TokenIssuer) Verify(raw string) (string, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unexpected signing method")
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	return claims.Subject, nil
}
