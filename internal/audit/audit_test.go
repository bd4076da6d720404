package audit

import (
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dhawalhost/storefront/internal/ability"
	"github.com/dhawalhost/storefront/internal/guard"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type memoryStore struct {
	mu     sync.Mutex
	events []Event
}

func (m *memoryStore) Log(_ context.Context, e Event) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = int64(len(m.events) + 1)
	e.OccurredAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m.events = append(m.events, e)
	return e.ID, nil
}

func (m *memoryStore) Query(_ context.Context, params QueryParams) ([]Event, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Event{}
	for _, e := range m.events {
		if params.Outcome != nil && e.Outcome != *params.Outcome {
			continue
		}
		out = append(out, e)
	}
	return out, len(out), nil
}

func (m *memoryStore) GetEvent(_ context.Context, id int64) (Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			return e, nil
		}
	}
	return Event{}, ErrNotFound
}

func withPrincipal(c *gin.Context) {
	if id := c.GetHeader("X-User-ID"); id != "" {
		guard.SetPrincipal(c, guard.Principal{ID: id, Role: ability.Role(c.GetHeader("X-Role"))})
	}
	c.Next()
}

func TestTrailRecordsMutations(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &memoryStore{}
	router := gin.New()
	router.Use(withPrincipal, Trail(NewService(store), zap.NewNop()))
	router.PATCH("/users/:id/role", func(c *gin.Context) { c.Status(http.StatusForbidden) })
	router.DELETE("/orders/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.GET("/orders/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, r := range []struct{ method, path string }{
		{http.MethodPatch, "/users/7/role"},
		{http.MethodDelete, "/orders/9"},
		{http.MethodGet, "/orders/9"},
	} {
		req := httptest.NewRequest(r.method, r.path, nil)
		req.Header.Set("X-User-ID", "3")
		req.Header.Set("X-Role", "user")
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	if len(store.events) != 2 {
		t.Fatalf("expected 2 audit events, got %d", len(store.events))
	}
	denied := store.events[0]
	if denied.Outcome != OutcomeDenied || denied.Route != "/users/:id/role" || strVal(denied.ResourceID) != "7" {
		t.Fatalf("unexpected denied event: %+v", denied)
	}
	if strVal(denied.ActorID) != "3" || strVal(denied.ActorRole) != "user" {
		t.Fatalf("expected actor 3/user, got %q/%q", strVal(denied.ActorID), strVal(denied.ActorRole))
	}
	if store.events[1].Outcome != OutcomeSuccess || store.events[1].Action != http.MethodDelete {
		t.Fatalf("unexpected delete event: %+v", store.events[1])
	}
}

func TestBuildQuery(t *testing.T) {
	outcome := OutcomeDenied
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	query, args, count, countArgs := buildQuery(QueryParams{Outcome: &outcome, StartTime: &start, Limit: 10, Offset: 20})

	if !strings.Contains(query, "WHERE outcome = $1 AND occurred_at >= $2") || !strings.Contains(query, "LIMIT $3 OFFSET $4") {
		t.Fatalf("unexpected query: %s", query)
	}
	if count != "SELECT COUNT(*) FROM audit_events WHERE outcome = $1 AND occurred_at >= $2" {
		t.Fatalf("unexpected count query: %s", count)
	}
	if len(args) != 4 || len(countArgs) != 2 {
		t.Fatalf("expected 4 query args and 2 count args, got %d and %d", len(args), len(countArgs))
	}
}

func TestAuditRoutesAdminOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &memoryStore{}
	_, _ = store.Log(context.Background(), Event{Action: http.MethodDelete, Route: "/orders/:id", Status: 204, Outcome: OutcomeSuccess})

	authn := func(c *gin.Context) {
		if c.GetHeader("X-User-ID") == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		withPrincipal(c)
	}
	g := guard.New(ability.NewEngine(ability.BuildRegistry()), zap.NewNop())
	router := gin.New()
	NewHTTPHandler(NewService(store), zap.NewNop()).RegisterRoutes(router.Group("/api/v1"), authn, g)

	get := func(path string, role ability.Role) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("X-User-ID", "1")
		req.Header.Set("X-Role", string(role))
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		return resp
	}

	if resp := get("/api/v1/audit", ability.RoleEditor); resp.Code != http.StatusForbidden {
		t.Fatalf("expected editor to be forbidden, got %d", resp.Code)
	}
	if resp := get("/api/v1/audit?start_time=yesterday", ability.RoleAdmin); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad timestamp, got %d", resp.Code)
	}
	if resp := get("/api/v1/audit/1", ability.RoleAdmin); resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if resp := get("/api/v1/audit/2", ability.RoleAdmin); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}

	resp := get("/api/v1/audit/export", ability.RoleAdmin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	rows, err := csv.NewReader(resp.Body).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 || rows[1][4] != "/orders/:id" {
		t.Fatalf("unexpected export: %v", rows)
	}
}
