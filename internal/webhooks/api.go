package webhooks

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

// HTTPHandler exposes webhook administration.
type HTTPHandler struct {
	svc      Service
	logger   *zap.Logger
	validate *validator.Validate
}

// NewHTTPHandler creates a new webhooks HTTP handler.
func NewHTTPHandler(svc Service, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, logger: logger, validate: validator.New()}
}

// RegisterRoutes registers the webhook routes. Only administrators manage listeners.
func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup, authn gin.HandlerFunc, g *guard.Guard) {
	hooks := rg.Group("/webhooks", authn, g.RequireRoles(ability.RoleAdmin))
	{
		hooks.POST("", h.create)
		hooks.GET("", h.list)
		hooks.GET("/:id", h.get)
		hooks.PATCH("/:id", h.setActive)
		hooks.DELETE("/:id", h.delete)
	}
}

func (h *HTTPHandler) create(c *gin.Context) {
	var req CreateWebhookRequest
	if !h.bind(c, &req) {
		return
	}
	w, err := h.svc.CreateWebhook(c.Request.Context(), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

func (h *HTTPHandler) list(c *gin.Context) {
	out, err := h.svc.ListWebhooks(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *HTTPHandler) get(c *gin.Context) {
	id, ok := h.id(c)
	if !ok {
		return
	}
	w, err := h.svc.GetWebhook(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *HTTPHandler) setActive(c *gin.Context) {
	id, ok := h.id(c)
	if !ok {
		return
	}
	var req SetActiveRequest
	if !h.bind(c, &req) {
		return
	}
	w, err := h.svc.SetActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *HTTPHandler) delete(c *gin.Context) {
	id, ok := h.id(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteWebhook(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func (h *HTTPHandler) id(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook id"})
		return 0, false
	}
	return id, true
}

func (h *HTTPHandler) handleServiceError(c *gin.Context, err error) {
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	h.logger.Error("webhooks service error", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
