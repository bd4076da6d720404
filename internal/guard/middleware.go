package guard

import (
	"errors"
	"net/http"
	"slices"

	"github.com/dhawalhost/storefront/internal/ability"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EntityParam is the route parameter that names the target entity.
const EntityParam = "id"

type verdictContextKey string

const verdictKey verdictContextKey = "guardVerdict"

// Enforce returns a Gin middleware applying policy to the route. Denied
// requests are aborted before the handler runs.
func (g *Guard) Enforce(policy Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		var principal *Principal
		if p, err := PrincipalFromGinContext(c); err == nil {
			principal = &p
		}

		verdict, err := g.Evaluate(c.Request.Context(), policy, principal, c.Param(EntityParam))
		if err != nil {
			g.abort(c, err)
			return
		}
		c.Set(string(verdictKey), verdict)
		c.Next()
	}
}

// RequireRoles returns a Gin middleware that admits only principals holding one
// of roles.
func (g *Guard) RequireRoles(roles ...ability.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := PrincipalFromGinContext(c)
		if err != nil {
			g.logger.Error("principal not found on role gated request", zap.String("path", c.FullPath()))
			g.abort(c, ErrUnauthenticated)
			return
		}
		if !slices.Contains(roles, p.Role) {
			g.abort(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

// VerdictFromGinContext returns the verdict Enforce reached for this request.
func VerdictFromGinContext(c *gin.Context) (Verdict, bool) {
	if value, ok := c.Get(string(verdictKey)); ok {
		v, ok := value.(Verdict)
		return v, ok
	}
	return "", false
}

func (g *Guard) abort(c *gin.Context, err error) {
	var gerr *Error
	switch {
	case errors.Is(err, ErrEntityNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": ErrEntityNotFound.Message})
	case errors.As(err, &gerr):
		// Missing principals are reported as plain denials to the caller.
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": ErrForbidden.Message})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "could not verify permissions"})
	}
}
