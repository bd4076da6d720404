package products

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

// HTTPHandler represents the HTTP API handlers for the catalogue.
type HTTPHandler struct {
	svc      Service
	logger   *zap.Logger
	validate *validator.Validate
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(svc Service, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, logger: logger, validate: validator.New()}
}

// RegisterRoutes registers the product routes.
func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup, authn gin.HandlerFunc, g *guard.Guard) {
	public := g.Enforce(guard.Public())
	need := func(action ability.Action) gin.HandlerFunc {
		return g.Enforce(guard.Check(guard.Need(action, ability.ResourceProduct)))
	}

	products := rg.Group("/products")
	{
		products.GET("", public, h.list)
		products.GET("/:id", public, h.get)
		products.POST("", authn, need(ability.ActionCreate), h.create)
		products.PUT("/:id", authn, need(ability.ActionUpdate), h.update)
		products.POST("/:id/images", authn, need(ability.ActionUpdate), h.uploadImage)
		products.DELETE("/:id", authn, need(ability.ActionDelete), h.delete)
	}
}

func (h *HTTPHandler) list(c *gin.Context) {
	var f Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.validate.Struct(f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *HTTPHandler) get(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	p, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *HTTPHandler) create(c *gin.Context) {
	var req CreateProductRequest
	if !h.bind(c, &req) {
		return
	}
	p, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *HTTPHandler) update(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	var req UpdateProductRequest
	if !h.bind(c, &req) {
		return
	}
	p, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *HTTPHandler) uploadImage(c *gin.Context) {
	id, ok := productID(c)
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

	p, err := h.svc.UploadImage(c.Request.Context(), id, header.Filename, contentType, file)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *HTTPHandler) delete(c *gin.Context) {
	id, ok := productID(c)
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

func productID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
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
		h.logger.Error("products service error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
