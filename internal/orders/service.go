package orders

import (
	"context"
	"errors"
	"strconv"

	"github.com/dhawalhost/storefront/internal/ability"
	"github.com/dhawalhost/storefront/internal/guard"
	"github.com/dhawalhost/storefront/internal/products"
)

// Catalog resolves the products an order refers to.
type Catalog interface {
	Get(ctx context.Context, id int64) (products.Product, error)
}

// Publisher announces order changes.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any)
}

// Order change events.
const (
	EventCreated       = "order.created"
	EventUpdated       = "order.updated"
	EventDeleted       = "order.deleted"
	EventStatusChanged = "order.item_status_changed"
)

// Service defines the order operations. Methods that take a principal
// restrict role user to its own orders.
type Service interface {
	Create(ctx context.Context, p guard.Principal, req CreateOrderRequest) (Order, error)
	List(ctx context.Context) ([]Order, error)
	Get(ctx context.Context, p guard.Principal, id int64) (Order, error)
	ListByUser(ctx context.Context, p guard.Principal, userID int64) ([]Order, error)
	ListByProduct(ctx context.Context, productID int64) ([]Order, error)
	ItemsByStatus(ctx context.Context, orderID int64, status Status) ([]OrderItem, error)
	Update(ctx context.Context, p guard.Principal, id int64, req UpdateOrderRequest) (Order, error)
	UpdateItemStatus(ctx context.Context, req UpdateItemStatusRequest) (OrderItem, error)
	Delete(ctx context.Context, p guard.Principal, id int64) error
}

type service struct {
	store   Store
	catalog Catalog
	events  Publisher
}

// NewService creates a new order service.
func NewService(store Store, catalog Catalog, events Publisher) Service {
	return &service{store: store, catalog: catalog, events: events}
}

func restricted(p guard.Principal) bool {
	return p.Role == ability.RoleUser
}

func (s *service) Create(ctx context.Context, p guard.Principal, req CreateOrderRequest) (Order, error) {
	userID := req.UserID
	if userID == 0 {
		id, err := strconv.ParseInt(p.ID, 10, 64)
		if err != nil {
			return Order{}, validationError("userId is required")
		}
		userID = id
	}
	if restricted(p) && !p.Owns(userID) {
		return Order{}, ErrForbidden
	}

	items, total, err := s.price(ctx, req.Items)
	if err != nil {
		return Order{}, err
	}
	o, err := s.store.Create(ctx, userID, items, total)
	if err != nil {
		return Order{}, err
	}
	s.events.Publish(ctx, EventCreated, o)
	return o, nil
}

// price turns item requests into order items and sums price times quantity.
func (s *service) price(ctx context.Context, reqs []ItemRequest) ([]OrderItem, float64, error) {
	if len(reqs) == 0 {
		return nil, 0, validationError("an order needs at least one item")
	}
	seen := make(map[int64]struct{}, len(reqs))
	items := make([]OrderItem, 0, len(reqs))
	var total float64
	for _, r := range reqs {
		if r.Quantity <= 0 {
			return nil, 0, validationError("quantity must be positive")
		}
		if _, dup := seen[r.ProductID]; dup {
			return nil, 0, validationError("each product may appear once per order")
		}
		seen[r.ProductID] = struct{}{}

		prod, err := s.catalog.Get(ctx, r.ProductID)
		if err != nil {
			if errors.Is(err, products.ErrNotFound) {
				return nil, 0, ErrProductNotFound
			}
			return nil, 0, err
		}
		total += prod.Price * float64(r.Quantity)
		items = append(items, OrderItem{ProductID: r.ProductID, Quantity: r.Quantity, Status: StatusNotProcessed})
	}
	return items, total, nil
}

func (s *service) List(ctx context.Context) ([]Order, error) {
	return s.store.List(ctx)
}

func (s *service) Get(ctx context.Context, p guard.Principal, id int64) (Order, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if restricted(p) && !p.Owns(o.UserID) {
		return Order{}, ErrForbidden
	}
	return o, nil
}

func (s *service) ListByUser(ctx context.Context, p guard.Principal, userID int64) ([]Order, error) {
	if restricted(p) && !p.Owns(userID) {
		return nil, ErrForbidden
	}
	return s.store.ListByUser(ctx, userID)
}

func (s *service) ListByProduct(ctx context.Context, productID int64) ([]Order, error) {
	return s.store.ListByProduct(ctx, productID)
}

func (s *service) ItemsByStatus(ctx context.Context, orderID int64, status Status) ([]OrderItem, error) {
	if !status.Valid() {
		return nil, validationError("unknown order status")
	}
	if _, err := s.store.Get(ctx, orderID); err != nil {
		return nil, err
	}
	return s.store.ItemsByStatus(ctx, orderID, status)
}

func (s *service) Update(ctx context.Context, p guard.Principal, id int64, req UpdateOrderRequest) (Order, error) {
	if _, err := s.Get(ctx, p, id); err != nil {
		return Order{}, err
	}
	items, total, err := s.price(ctx, req.Items)
	if err != nil {
		return Order{}, err
	}
	o, err := s.store.ReplaceItems(ctx, id, items, total, expectedStatus(p))
	if err != nil {
		return Order{}, err
	}
	s.events.Publish(ctx, EventUpdated, o)
	return o, nil
}

func (s *service) UpdateItemStatus(ctx context.Context, req UpdateItemStatusRequest) (OrderItem, error) {
	if !req.Status.Valid() {
		return OrderItem{}, validationError("unknown order status")
	}
	item, err := s.store.UpdateItemStatus(ctx, req.OrderID, req.ProductID, req.Status)
	if err != nil {
		return OrderItem{}, err
	}
	s.events.Publish(ctx, EventStatusChanged, item)
	return item, nil
}

// expectedStatus is the order status a write by p must still find when it
// lands. Role user may only change orders nobody has started on.
func expectedStatus(p guard.Principal) Status {
	if restricted(p) {
		return StatusNotProcessed
	}
	return ""
}

func (s *service) Delete(ctx context.Context, p guard.Principal, id int64) error {
	o, err := s.Get(ctx, p, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id, expectedStatus(p)); err != nil {
		return err
	}
	s.events.Publish(ctx, EventDeleted, o)
	return nil
}
