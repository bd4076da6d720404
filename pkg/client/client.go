// Package client is a Go SDK for the storefront REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dhawalhost/storefront/internal/orders"
	"github.com/dhawalhost/storefront/internal/products"
	"github.com/dhawalhost/storefront/internal/reviews"
	"github.com/dhawalhost/storefront/internal/users"
)

const apiPrefix = "/api/v1"

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// IsForbidden reports whether err is a 403 from the API.
func IsForbidden(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden
}

// Client is a client for the storefront API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      string
}

// Config holds configuration for the client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// New creates a new Client.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: cfg.BaseURL,
		HTTPClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// SetToken sets the authentication token for subsequent requests.
func (c *Client) SetToken(token string) {
	c.Token = token
}

// Login performs email/password authentication and stores the token.
func (c *Client) Login(ctx context.Context, email, password string) (users.LoginResponse, error) {
	var res users.LoginResponse
	err := c.doRequest(ctx, http.MethodPost, "/users/login", users.LoginRequest{Email: email, Password: password}, &res)
	if err != nil {
		return users.LoginResponse{}, err
	}
	c.Token = res.Token
	return res, nil
}

// doRequest helper to perform authenticated requests.
func (c *Client) doRequest(ctx context.Context, method, path string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+apiPrefix+path, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var e struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		raw, _ := io.ReadAll(resp.Body)
		msg := string(raw)
		if json.Unmarshal(raw, &e) == nil {
			if e.Error != "" {
				msg = e.Error
			} else if e.Message != "" {
				msg = e.Message
			}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return err
		}
	}
	return nil
}

// ProductQuery narrows a product listing. Zero values are not sent.
type ProductQuery struct {
	CategoryID     int64
	MainCategoryID int64
	MinPrice       *float64
	MaxPrice       *float64
	MinRating      *float64
	MaxRating      *float64
	Name           string
	Sort           string
}

func (pq ProductQuery) values() url.Values {
	q := url.Values{}
	if pq.CategoryID > 0 {
		q.Set("category", strconv.FormatInt(pq.CategoryID, 10))
	}
	if pq.MainCategoryID > 0 {
		q.Set("main_category", strconv.FormatInt(pq.MainCategoryID, 10))
	}
	for k, v := range map[string]*float64{
		"min_price":  pq.MinPrice,
		"max_price":  pq.MaxPrice,
		"min_rating": pq.MinRating,
		"max_rating": pq.MaxRating,
	} {
		if v != nil {
			q.Set(k, strconv.FormatFloat(*v, 'f', -1, 64))
		}
	}
	if pq.Name != "" {
		q.Set("name", pq.Name)
	}
	if pq.Sort != "" {
		q.Set("sort", pq.Sort)
	}
	return q
}

// ListProducts lists the catalogue, narrowed by q.
func (c *Client) ListProducts(ctx context.Context, q ProductQuery) ([]products.Product, error) {
	path := "/products"
	if v := q.values(); len(v) > 0 {
		path += "?" + v.Encode()
	}
	var out []products.Product
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProduct fetches one product.
func (c *Client) GetProduct(ctx context.Context, id int64) (products.Product, error) {
	var out products.Product
	err := c.doRequest(ctx, http.MethodGet, "/products/"+strconv.FormatInt(id, 10), nil, &out)
	return out, err
}

// Item is a product and quantity to order.
type Item struct {
	ProductID int64
	Quantity  int
}

// PlaceOrder orders items for the logged in user.
func (c *Client) PlaceOrder(ctx context.Context, items ...Item) (orders.Order, error) {
	req := orders.CreateOrderRequest{Items: make([]orders.ItemRequest, len(items))}
	for i, it := range items {
		req.Items[i] = orders.ItemRequest{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	var out orders.Order
	err := c.doRequest(ctx, http.MethodPost, "/orders", req, &out)
	return out, err
}

// UserOrders lists the orders of a user.
func (c *Client) UserOrders(ctx context.Context, userID int64) ([]orders.Order, error) {
	var out []orders.Order
	err := c.doRequest(ctx, http.MethodGet, "/orders/user/"+strconv.FormatInt(userID, 10), nil, &out)
	return out, err
}

// CancelOrder deletes an order that has not been processed yet.
func (c *Client) CancelOrder(ctx context.Context, id int64) error {
	return c.doRequest(ctx, http.MethodDelete, "/orders/"+strconv.FormatInt(id, 10), nil, nil)
}

// Review rates a product as the logged in user.
func (c *Client) Review(ctx context.Context, productID int64, rating int, comment string) (reviews.Review, error) {
	var out reviews.Review
	err := c.doRequest(ctx, http.MethodPost, "/reviews",
		reviews.CreateReviewRequest{ProductID: productID, Rating: rating, Comment: comment}, &out)
	return out, err
}
