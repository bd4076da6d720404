package categories

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dhawalhost/storefront/internal/ability"
	"github.com/dhawalhost/storefront/internal/guard"
	"github.com/dhawalhost/storefront/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// MaxImageSize bounds uploaded images.
const MaxImageSize = 5 << 20

// HTTPHandler represents the HTTP API handlers for categories.
type HTTPHandler struct {
	svc      Service
	logger   *zap.Logger
	validate *validator.Validate
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(svc Service, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, logger: logger, validate: validator.New()}
}

// RegisterRoutes registers the category routes.
func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup, authn gin.HandlerFunc, g *guard.Guard) {
	public := g.Enforce(guard.Public())
	need := func(action ability.Action) gin.HandlerFunc {
		return g.Enforce(guard.Check(guard.Need(action, ability.ResourceCategory)))
	}

	categories := rg.Group("/categories")
	{
		categories.GET("", public, h.list)
		categories.GET("/:id", public, h.get)
		categories.POST("", authn, need(ability.ActionCreate), h.create)
		categories.PUT("/:id", authn, need(ability.ActionUpdate), h.rename)
		categories.POST("/:id/image", authn, need(ability.ActionUpdate), h.uploadImage)
		categories.DELETE("/:id", authn, need(ability.ActionDelete), h.delete)
	}
}

func (h *HTTPHandler) list(c *gin.Context) {
	out, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *HTTPHandler) get(c *gin.Context) {
	id, ok := categoryID(c)
	if !ok {
		return
	}
	cat, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (h *HTTPHandler) create(c *gin.Context) {
	var req CategoryRequest
	if !h.bind(c, &req) {
		return
	}
	cat, err := h.svc.Create(c.Request.Context(), req.Name)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

func (h *HTTPHandler) rename(c *gin.Context) {
	id, ok := categoryID(c)
	if !ok {
		return
	}
	var req CategoryRequest
	if !h.bind(c, &req) {
		return
	}
	cat, err := h.svc.Rename(c.Request.Context(), id, req.Name)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (h *HTTPHandler) uploadImage(c *gin.Context) {
	id, ok := categoryID(c)
	if !ok {
		return
	}
	header, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	contentType := header.Header.Get("Content-Type")
	if header.Size > MaxImageSize || !strings.HasPrefix(contentType, "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image must be an image file of at most 5MB"})
		return
	}
	file, err := header.Open()
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	defer file.Close()

	cat, err := h.svc.UploadImage(c.Request.Context(), id, header.Filename, contentType, file)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (h *HTTPHandler) delete(c *gin.Context) {
	id, ok := categoryID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
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

func categoryID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category id"})
		return 0, false
	}
	return id, true
}

func (h *HTTPHandler) handleServiceError(c *gin.Context, err error) {
	switch {
	case IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrConflict), errors.Is(err, ErrInUse):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.logger.Error("categories service error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
