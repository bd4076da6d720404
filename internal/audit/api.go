package audit

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dhawalhost/storefront/internal/ability"
	"github.com/dhawalhost/storefront/internal/guard"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HTTPHandler handles audit log HTTP requests.
type HTTPHandler struct {
	svc    Service
	logger *zap.Logger
}

// NewHTTPHandler creates a new audit HTTP handler.
func NewHTTPHandler(svc Service, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers audit routes. Only administrators read the trail.
func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup, authn gin.HandlerFunc, g *guard.Guard) {
	audit := rg.Group("/audit", authn, g.RequireRoles(ability.RoleAdmin))
	{
		audit.GET("", h.queryLogs)
		audit.GET("/export", h.exportLogs)
		audit.GET("/:id", h.getEvent)
	}
}

func queryParams(c *gin.Context) (QueryParams, error) {
	var params QueryParams
	for name, dst := range map[string]**string{
		"actor_id": &params.ActorID,
		"action":   &params.Action,
		"route":    &params.Route,
		"outcome":  &params.Outcome,
	} {
		if v := c.Query(name); v != "" {
			*dst = &v
		}
	}
	for name, dst := range map[string]**time.Time{
		"start_time": &params.StartTime,
		"end_time":   &params.EndTime,
	} {
		if v := c.Query(name); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return QueryParams{}, fmt.Errorf("%s must be an RFC 3339 timestamp", name)
			}
			*dst = &t
		}
	}
	for name, dst := range map[string]*int{
		"limit":  &params.Limit,
		"offset": &params.Offset,
	} {
		if v := c.Query(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return QueryParams{}, fmt.Errorf("%s must be a non-negative integer", name)
			}
			*dst = n
		}
	}
	return params, nil
}

func (h *HTTPHandler) queryLogs(c *gin.Context) {
	params, err := queryParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events, total, err := h.svc.Query(c.Request.Context(), params)
	if err != nil {
		h.logger.Error("Failed to query audit logs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"total":  total,
		"limit":  params.Limit,
		"offset": params.Offset,
	})
}

func (h *HTTPHandler) getEvent(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}
	event, err := h.svc.GetEvent(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		h.logger.Error("Failed to get audit event", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, event)
}

func (h *HTTPHandler) exportLogs(c *gin.Context) {
	params, err := queryParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events, err := h.svc.Export(c.Request.Context(), params)
	if err != nil {
		h.logger.Error("Failed to export audit logs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=audit_events.csv")

	writer := csv.NewWriter(c.Writer)
	_ = writer.Write([]string{"Time", "Actor ID", "Actor Role", "Action", "Route", "Resource ID", "Status", "Outcome", "IP Address"})
	for _, e := range events {
		_ = writer.Write([]string{
			e.OccurredAt.Format(time.RFC3339),
			strVal(e.ActorID),
			strVal(e.ActorRole),
			e.Action,
			e.Route,
			strVal(e.ResourceID),
			strconv.Itoa(e.Status),
			e.Outcome,
			strVal(e.IPAddress),
		})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.logger.Warn("audit export interrupted", zap.Error(err))
	}
}

func strVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
