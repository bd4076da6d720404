package orders

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

// HTTPHandler represents the HTTP API handlers for orders.
type HTTPHandler struct {
	svc      Service
	logger   *zap.Logger
	validate *validator.Validate
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(svc Service, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, logger: logger, validate: validator.New()}
}

// RegisterRoutes registers the order routes.
func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup, authn gin.HandlerFunc, g *guard.Guard) {
	staff := g.RequireRoles(ability.RoleAdmin, ability.RoleEditor)
	order := ability.On(ability.ResourceOrder)

	orders := rg.Group("/orders", authn)
	{
		orders.POST("", g.Enforce(guard.Check(guard.Need(ability.ActionCreate, ability.ResourceOrder))), h.create)
		orders.GET("", staff, h.list)
		orders.GET("/user/:userId", g.Enforce(guard.Check(guard.Need(ability.ActionRead, ability.ResourceOrder))), h.listByUser)
		orders.GET("/product/:productId", staff, h.listByProduct)
		orders.PUT("/items/status",
			g.Enforce(guard.Check(guard.NeedSubject(ability.ActionUpdate, order.Attr("status")))), h.updateItemStatus)
		orders.GET("/:id", g.Enforce(guard.Check(guard.Need(ability.ActionRead, ability.ResourceOrder))), h.get)
		orders.GET("/:id/status/:status", staff, h.itemsByStatus)
		orders.PUT("/:id", g.Enforce(guard.Check(guard.Need(ability.ActionUpdate, ability.ResourceOrder).WithData())), h.update)
		orders.DELETE("/:id", g.Enforce(guard.Check(guard.Need(ability.ActionDelete, ability.ResourceOrder).WithData())), h.delete)
	}
}

func (h *HTTPHandler) create(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req CreateOrderRequest
	if !h.bind(c, &req) {
		return
	}
	o, err := h.svc.Create(c.Request.Context(), p, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
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
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.param(c, "id")
	if !ok {
		return
	}
	o, err := h.svc.Get(c.Request.Context(), p, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *HTTPHandler) listByUser(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	userID, ok := h.param(c, "userId")
	if !ok {
		return
	}
	out, err := h.svc.ListByUser(c.Request.Context(), p, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
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

func (h *HTTPHandler) itemsByStatus(c *gin.Context) {
	id, ok := h.param(c, "id")
	if !ok {
		return
	}
	out, err := h.svc.ItemsByStatus(c.Request.Context(), id, Status(c.Param("status")))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *HTTPHandler) update(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.param(c, "id")
	if !ok {
		return
	}
	var req UpdateOrderRequest
	if !h.bind(c, &req) {
		return
	}
	o, err := h.svc.Update(c.Request.Context(), p, id, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *HTTPHandler) updateItemStatus(c *gin.Context) {
	var req UpdateItemStatusRequest
	if !h.bind(c, &req) {
		return
	}
	item, err := h.svc.UpdateItemStatus(c.Request.Context(), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *HTTPHandler) delete(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.param(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), p, id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) principal(c *gin.Context) (guard.Principal, bool) {
	p, err := guard.PrincipalFromGinContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": guard.ErrUnauthenticated.Message})
		return guard.Principal{}, false
	}
	return p, true
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
	case errors.Is(err, ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		h.logger.Error("orders service error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
