package orders

import (
	"context"
	"sort"
	"sync"

	"github.com/dhawalhost/storefront/internal/products"
)

type fakeStore struct {
	mu     sync.Mutex
	nextID int64
	orders map[int64]Order
}

func newFakeStore(seed ...Order) *fakeStore {
	s := &fakeStore{orders: make(map[int64]Order)}
	for _, o := range seed {
		s.orders[o.ID] = o
		if o.ID > s.nextID {
			s.nextID = o.ID
		}
	}
	return s
}

func (s *fakeStore) Create(_ context.Context, userID int64, items []OrderItem, total float64) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	o := Order{ID: s.nextID, UserID: userID, Status: StatusNotProcessed, Total: total}
	for _, item := range items {
		item.OrderID = o.ID
		o.Items = append(o.Items, item)
	}
	s.orders[o.ID] = o
	return o, nil
}

func (s *fakeStore) filter(match func(Order) bool) []Order {
	out := []Order{}
	for _, o := range s.orders {
		if match(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *fakeStore) List(context.Context) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter(func(Order) bool { return true }), nil
}

func (s *fakeStore) Get(_ context.Context, id int64) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (s *fakeStore) ListByUser(_ context.Context, userID int64) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter(func(o Order) bool { return o.UserID == userID }), nil
}

func (s *fakeStore) ListByProduct(_ context.Context, productID int64) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter(func(o Order) bool {
		for _, item := range o.Items {
			if item.ProductID == productID {
				return true
			}
		}
		return false
	}), nil
}

func (s *fakeStore) ItemsByStatus(_ context.Context, orderID int64, status Status) ([]OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []OrderItem{}
	for _, item := range s.orders[orderID].Items {
		if item.Status == status {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *fakeStore) locked(id int64, expect Status) (Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	if expect != "" && o.Status != expect {
		return Order{}, ErrForbidden
	}
	return o, nil
}

func (s *fakeStore) ReplaceItems(_ context.Context, id int64, items []OrderItem, total float64, expect Status) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, err := s.locked(id, expect)
	if err != nil {
		return Order{}, err
	}
	o.Items = nil
	for _, item := range CarryItemStates(s.orders[id].Items, items) {
		item.OrderID = id
		o.Items = append(o.Items, item)
	}
	o.Total = total
	o.Status = RollUp(ItemStates(o.Items))
	s.orders[id] = o
	return o, nil
}

func (s *fakeStore) UpdateItemStatus(_ context.Context, orderID, productID int64, status Status) (OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, err := s.locked(orderID, "")
	if err != nil {
		return OrderItem{}, err
	}
	items := append([]OrderItem(nil), o.Items...)
	for i, item := range items {
		if item.ProductID == productID {
			items[i].Status = status
			o.Items = items
			o.Status = RollUp(ItemStates(items))
			s.orders[orderID] = o
			return items[i], nil
		}
	}
	return OrderItem{}, ErrNotFound
}

func (s *fakeStore) Delete(_ context.Context, id int64, expect Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.locked(id, expect); err != nil {
		return err
	}
	delete(s.orders, id)
	return nil
}

type fakeCatalog map[int64]float64

func (c fakeCatalog) Get(_ context.Context, id int64) (products.Product, error) {
	price, ok := c[id]
	if !ok {
		return products.Product{}, products.ErrNotFound
	}
	return products.Product{ID: id, Price: price}, nil
}

var catalog = fakeCatalog{10: 2.5, 11: 10}

type published struct {
	eventType string
	payload   any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (r *recordingPublisher) Publish(_ context.Context, eventType string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{eventType, payload})
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.eventType
	}
	return out
}
