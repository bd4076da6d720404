package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dhawalhost/storefront/internal/orders"
	"github.com/dhawalhost/storefront/internal/products"
	"github.com/dhawalhost/storefront/internal/users"
)

func TestLoginStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/users/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req users.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Email != "ana@example.com" {
			t.Errorf("unexpected email %q", req.Email)
		}
		_ = json.NewEncoder(w).Encode(users.LoginResponse{UserID: "3", Token: "tok"})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	res, err := c.Login(context.Background(), "ana@example.com", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.UserID != "3" || c.Token != "tok" {
		t.Fatalf("expected token to be stored, got %+v / %q", res, c.Token)
	}
}

func TestRequestsCarryTokenAndQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/products":
			if got := r.URL.Query().Get("sort"); got != products.SortPriceAsc {
				t.Errorf("expected sort query, got %q", got)
			}
			if got := r.URL.Query().Get("min_price"); got != "9.5" {
				t.Errorf("expected min_price 9.5, got %q", got)
			}
			_ = json.NewEncoder(w).Encode([]products.Product{{ID: 1, Name: "lamp"}})
		case "/api/v1/orders":
			if got := r.Header.Get("Authorization"); got != "Bearer tok" {
				t.Errorf("expected bearer token, got %q", got)
			}
			var req orders.CreateOrderRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(orders.Order{ID: 5, Items: []orders.OrderItem{{ProductID: req.Items[0].ProductID}}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	c.SetToken("tok")

	minPrice := 9.5
	list, err := c.ListProducts(context.Background(), ProductQuery{MinPrice: &minPrice, Sort: products.SortPriceAsc})
	if err != nil || len(list) != 1 {
		t.Fatalf("ListProducts: %v %v", list, err)
	}

	o, err := c.PlaceOrder(context.Background(), Item{ProductID: 10, Quantity: 2})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if o.ID != 5 || o.Items[0].ProductID != 10 {
		t.Fatalf("unexpected order %+v", o)
	}
}

func TestAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "You do not have permission to access this resource"})
	}))
	defer srv.Close()

	err := New(Config{BaseURL: srv.URL}).CancelOrder(context.Background(), 2)
	if !IsForbidden(err) {
		t.Fatalf("expected forbidden error, got %v", err)
	}
	if err.Error() != "API error 403: You do not have permission to access this resource" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
