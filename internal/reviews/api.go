package reviews

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dhawalhost/storefront/internal/ability"
	"github.com/dhawalhost/storefront/internal/guard"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// HTTPHandler represents the HTTP API handlers for reviews.
type HTTPHandler struct {
	svc      Service
	logger   *zap.Logger
	validate *validator.Validate
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(svc Service, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, logger: logger, validate: validator.New()}
}

// RegisterRoutes registers the review routes.
func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup, authn gin.HandlerFunc, g *guard.Guard) {
	read := g.Enforce(guard.Check(guard.Need(ability.ActionRead, ability.ResourceReview)))

	reviews := rg.Group("/reviews")
	{
		reviews.POST("", authn, g.RequireRoles(ability.RoleUser), h.create)
		reviews.GET("/:productId", g.Enforce(guard.Public()), h.listByProduct)
		reviews.GET("/user/:userId", authn, read, h.listByUser)
		reviews.GET("/specific/:userId/:productId", authn, read, h.get)
		reviews.DELETE("/:userId/:productId", authn,
			g.Enforce(guard.Check(guard.Need(ability.ActionDelete, ability.ResourceReview))), h.delete)
	}
}

func (h *HTTPHandler) create(c *gin.Context) {
	p, err := guard.PrincipalFromGinContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": guard.ErrUnauthenticated.Message})
		return
	}
	userID, err := strconv.ParseInt(p.ID, 10, 64)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": guard.ErrUnauthenticated.Message})
		return
	}

	var req CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	r, err := h.svc.Create(c.Request.Context(), userID, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *HTTPHandler) listByProduct(c *gin.Context) {
	productID, ok := h.param(c, "productId")
	if !ok {
		return
	}
	out, err := h.svc.ListByProduct(c.Request.Context(), productID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *HTTPHandler) listByUser(c *gin.Context) {
	userID, ok := h.param(c, "userId")
	if !ok {
		return
	}
	out, err := h.svc.ListByUser(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *HTTPHandler) get(c *gin.Context) {
	userID, ok := h.param(c, "userId")
	if !ok {
		return
	}
	productID, ok := h.param(c, "productId")
	if !ok {
		return
	}
	r, err := h.svc.Get(c.Request.Context(), userID, productID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *HTTPHandler) delete(c *gin.Context) {
	userID, ok := h.param(c, "userId")
	if !ok {
		return
	}
	productID, ok := h.param(c, "productId")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), userID, productID); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}

func (h *HTTPHandler) handleServiceError(c *gin.Context, err error) {
	switch {
	case IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error("reviews service error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
