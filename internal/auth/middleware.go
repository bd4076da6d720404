package auth

import (
	"net/http"
	"strings"

	"github.com/dhawalhost/storefront/internal/guard"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Authenticator turns bearer tokens into request principals.
type Authenticator struct {
	tokens *TokenManager
	logger *zap.Logger
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(tokens *TokenManager, logger *zap.Logger) *Authenticator {
	return &Authenticator{tokens: tokens, logger: logger}
}

// Required rejects requests without a valid bearer token with 401 and stores
// the principal for the guard otherwise.
func (a *Authenticator) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := a.tokens.Verify(raw)
		if err != nil {
			a.logger.Debug("rejected access token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrInvalidToken.Error()})
			return
		}

		guard.SetPrincipal(c, guard.Principal{
			ID:    claims.Subject,
			Email: claims.Email,
			Role:  claims.Role,
		})
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
