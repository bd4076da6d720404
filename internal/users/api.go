package users

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

// HTTPHandler represents the HTTP API handlers for accounts.
type HTTPHandler struct {
	svc      Service
	logger   *zap.Logger
	validate *validator.Validate
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(svc Service, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, logger: logger, validate: validator.New()}
}

// RegisterRoutes registers the account routes. authn authenticates the caller
// on every non-public route.
func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup, authn gin.HandlerFunc, g *guard.Guard) {
	public := g.Enforce(guard.Public())
	user := ability.On(ability.ResourceUser)

	users := rg.Group("/users")
	{
		users.POST("/signup", public, h.signup)
		users.POST("/verify-email", public, h.verifyEmail)
		users.POST("/resend-verification-code", public, h.resendVerificationCode)
		users.POST("/login", public, h.login)
		users.GET("/email/:email", public, h.getByEmail)
		users.GET("/nick_name/:nick_name", public, h.getByNickName)
		users.POST("/:id/change-password", public, h.changePassword)

		users.GET("", authn, g.RequireRoles(ability.RoleAdmin, ability.RoleEditor), h.list)
		users.GET("/:id", authn,
			g.Enforce(guard.Check(guard.Need(ability.ActionRead, ability.ResourceUser).WithData())), h.get)
		users.PATCH("/:id", authn,
			g.Enforce(guard.Check(guard.Need(ability.ActionUpdate, ability.ResourceUser).WithData())), h.update)
		users.PATCH("/:id/status", authn,
			g.Enforce(guard.Check(guard.NeedSubject(ability.ActionUpdate, user.Attr("status")))), h.updateStatus)
		users.PATCH("/:id/role", authn,
			g.Enforce(guard.Check(guard.NeedSubject(ability.ActionUpdate, user.Attr("role")))), h.updateRole)
		users.DELETE("/:id", authn,
			g.Enforce(guard.Check(guard.Need(ability.ActionDelete, ability.ResourceUser))), h.delete)
	}
}

func (h *HTTPHandler) signup(c *gin.Context) {
	var req SignupRequest
	if !h.bind(c, &req) {
		return
	}
	u, err := h.svc.Signup(c.Request.Context(), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *HTTPHandler) verifyEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.svc.VerifyEmail(c.Request.Context(), req); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Email verified successfully"})
}

func (h *HTTPHandler) resendVerificationCode(c *gin.Context) {
	var req ResendCodeRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.svc.ResendVerificationCode(c.Request.Context(), req.Email); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Verification code resent successfully"})
}

func (h *HTTPHandler) login(c *gin.Context) {
	var req LoginRequest
	if !h.bind(c, &req) {
		return
	}
	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
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
	id, ok := h.userID(c)
	if !ok {
		return
	}
	u, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *HTTPHandler) getByEmail(c *gin.Context) {
	u, err := h.svc.GetByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *HTTPHandler) getByNickName(c *gin.Context) {
	u, err := h.svc.GetByNickName(c.Request.Context(), c.Param("nick_name"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *HTTPHandler) update(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !h.bind(c, &req) {
		return
	}
	u, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *HTTPHandler) updateStatus(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if !h.bind(c, &req) {
		return
	}
	u, err := h.svc.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *HTTPHandler) updateRole(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}
	var req UpdateRoleRequest
	if !h.bind(c, &req) {
		return
	}
	u, err := h.svc.UpdateRole(c.Request.Context(), id, req.Role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *HTTPHandler) changePassword(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.svc.ChangePassword(c.Request.Context(), id, req); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Password changed successfully"})
}

func (h *HTTPHandler) delete(c *gin.Context) {
	id, ok := h.userID(c)
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

func (h *HTTPHandler) userID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, false
	}
	return id, true
}

func (h *HTTPHandler) handleServiceError(c *gin.Context, err error) {
	if IsValidationError(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var uerr *Error
	if errors.As(err, &uerr) {
		c.JSON(statusFor(uerr), gin.H{"error": uerr.Message})
		return
	}
	h.logger.Error("users service error", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func statusFor(err *Error) int {
	switch err {
	case ErrNotFound, ErrCodeNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusUnauthorized
	}
}
