package reviews

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dhawalhost/storefront/internal/ability"
	"github.com/dhawalhost/storefront/internal/guard"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func testAuthn(c *gin.Context) {
	id := c.GetHeader("X-User-ID")
	if id == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	guard.SetPrincipal(c, guard.Principal{ID: id, Role: ability.Role(c.GetHeader("X-Role"))})
	c.Next()
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := newFakeStore(Review{UserID: 4, ProductID: 10, Rating: 4, Comment: "fine"})
	g := guard.New(ability.NewEngine(ability.BuildRegistry()), zap.NewNop())

	router := gin.New()
	NewHTTPHandler(NewService(store, ratingSink{}, zap.NewNop()), zap.NewNop()).
		RegisterRoutes(router.Group("/api/v1"), testAuthn, g)
	return router
}

func performRequest(router *gin.Engine, method, path string, body any, userID string, role ability.Role) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
		req.Header.Set("X-Role", string(role))
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestReviewRoutes(t *testing.T) {
	review := CreateReviewRequest{ProductID: 10, Rating: 5, Comment: "lovely"}

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		caller string
		role   ability.Role
		want   int
	}{
		{"anyone lists product reviews", http.MethodGet, "/api/v1/reviews/10", nil, "", "", http.StatusOK},
		{"user reviews product", http.MethodPost, "/api/v1/reviews", review, "3", ability.RoleUser, http.StatusCreated},
		{"user reviews twice", http.MethodPost, "/api/v1/reviews", review, "4", ability.RoleUser, http.StatusConflict},
		{"editor cannot review", http.MethodPost, "/api/v1/reviews", review, "2", ability.RoleEditor, http.StatusForbidden},
		{"rating out of range", http.MethodPost, "/api/v1/reviews", CreateReviewRequest{ProductID: 10, Rating: 9, Comment: "x"}, "3", ability.RoleUser, http.StatusBadRequest},
		{"user reads reviews by user", http.MethodGet, "/api/v1/reviews/user/4", nil, "4", ability.RoleUser, http.StatusForbidden},
		{"editor reads reviews by user", http.MethodGet, "/api/v1/reviews/user/4", nil, "2", ability.RoleEditor, http.StatusOK},
		{"editor reads one review", http.MethodGet, "/api/v1/reviews/specific/4/10", nil, "2", ability.RoleEditor, http.StatusOK},
		{"missing review", http.MethodGet, "/api/v1/reviews/specific/4/11", nil, "2", ability.RoleEditor, http.StatusNotFound},
		{"editor deletes review", http.MethodDelete, "/api/v1/reviews/4/10", nil, "2", ability.RoleEditor, http.StatusForbidden},
		{"admin deletes review", http.MethodDelete, "/api/v1/reviews/4/10", nil, "1", ability.RoleAdmin, http.StatusNoContent},
		{"anonymous review", http.MethodPost, "/api/v1/reviews", review, "", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(t)
			resp := performRequest(router, tc.method, tc.path, tc.body, tc.caller, tc.role)
			if resp.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, resp.Code, resp.Body.String())
			}
		})
	}
}
