package guard

import (
	"context"
	"errors"

	"github.com/dhawalhost/storefront/internal/ability"
	"github.com/gin-gonic/gin"
)

// principalContextKey is an unexported key type to avoid collisions in the Gin context store.
type principalContextKey string

const principalKey principalContextKey = "principal"

// Principal is the authenticated actor a request executes for.
type Principal struct {
	ID    string       `json:"id"`
	Email string       `json:"email,omitempty"`
	Role  ability.Role `json:"role"`
}

// Owns reports whether id identifies the principal itself.
func (p Principal) Owns(id any) bool {
	return ability.Same(p.ID, id)
}

// SetPrincipal stores p on both the Gin context and the request context.
func SetPrincipal(c *gin.Context, p Principal) {
	c.Set(string(principalKey), p)
	c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), p))
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromGinContext extracts the principal previously stored by SetPrincipal.
func PrincipalFromGinContext(c *gin.Context) (Principal, error) {
	if value, ok := c.Get(string(principalKey)); ok {
		if p, ok := value.(Principal); ok && p.ID != "" {
			return p, nil
		}
	}
	return PrincipalFromContext(c.Request.Context())
}

// PrincipalFromContext extracts the principal from a standard context. It is
// useful in service layers where only context.Context is available.
func PrincipalFromContext(ctx context.Context) (Principal, error) {
	if value := ctx.Value(principalKey); value != nil {
		if p, ok := value.(Principal); ok && p.ID != "" {
			return p, nil
		}
	}
	return Principal{}, errors.New("principal not found in context")
}
