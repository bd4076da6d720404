// Package auth issues and verifies the storefront's access tokens and turns a
// bearer token into a guard.Principal.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dhawalhost/storefront/internal/ability"
	"github.com/golang-jwt/jwt/v5"
)

const issuer = "storefront"

// ErrInvalidToken is returned for malformed, expired or wrongly signed tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are the custom claims carried by an access token.
type Claims struct {
	jwt.RegisteredClaims
	Email    string       `json:"email"`
	Role     ability.Role `json:"role"`
	NickName string       `json:"nick_name,omitempty"`
}

// Identity is the subject a token is issued for.
type Identity struct {
	UserID   int64
	Email    string
	Role     ability.Role
	NickName string
}

// TokenManager signs and verifies HS256 access tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a manager using secret for signing.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for id and returns it with its expiry.
func (m *TokenManager) Issue(id Identity) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.UserID, 10),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email:    id.Email,
		Role:     id.Role,
		NickName: id.NickName,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify parses tokenString and returns its claims when the signature, issuer
// and expiry are valid and the role is known.
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" || !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
