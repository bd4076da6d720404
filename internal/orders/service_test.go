package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/dhawalhost/storefront/internal/ability"
	"github.com/dhawalhost/storefront/internal/guard"
)

var (
	ana   = guard.Principal{ID: "3", Role: ability.RoleUser}
	admin = guard.Principal{ID: "1", Role: ability.RoleAdmin}
)

func TestCreateComputesTotal(t *testing.T) {
	svc := NewService(newFakeStore(), catalog, &recordingPublisher{})

	o, err := svc.Create(context.Background(), ana, CreateOrderRequest{Items: []ItemRequest{
		{ProductID: 10, Quantity: 4},
		{ProductID: 11, Quantity: 1},
	}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if o.UserID != 3 {
		t.Fatalf("expected order for caller 3, got %d", o.UserID)
	}
	if o.Total != 20 {
		t.Fatalf("expected total 20, got %v", o.Total)
	}
	if o.Status != StatusNotProcessed {
		t.Fatalf("expected new order to be not processed, got %q", o.Status)
	}
}

func TestCreateRejects(t *testing.T) {
	svc := NewService(newFakeStore(), catalog, &recordingPublisher{})
	ctx := context.Background()

	_, err := svc.Create(ctx, ana, CreateOrderRequest{UserID: 4, Items: []ItemRequest{{ProductID: 10, Quantity: 1}}})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for another user's order, got %v", err)
	}

	_, err = svc.Create(ctx, ana, CreateOrderRequest{Items: []ItemRequest{{ProductID: 99, Quantity: 1}}})
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}

	_, err = svc.Create(ctx, ana, CreateOrderRequest{Items: []ItemRequest{{ProductID: 10, Quantity: 1}, {ProductID: 10, Quantity: 2}}})
	if !IsValidationError(err) {
		t.Fatalf("expected validation error for duplicate product, got %v", err)
	}

	if _, err := svc.Create(ctx, admin, CreateOrderRequest{UserID: 4, Items: []ItemRequest{{ProductID: 11, Quantity: 1}}}); err != nil {
		t.Fatalf("admin should place orders for others: %v", err)
	}
}

func TestUpdateRecomputesTotal(t *testing.T) {
	store := newFakeStore(Order{ID: 5, UserID: 3, Status: StatusNotProcessed, Items: []OrderItem{{OrderID: 5, ProductID: 10, Quantity: 1}}})
	svc := NewService(store, catalog, &recordingPublisher{})

	o, err := svc.Update(context.Background(), ana, 5, UpdateOrderRequest{Items: []ItemRequest{{ProductID: 11, Quantity: 3}}})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if o.Total != 30 || len(o.Items) != 1 || o.Items[0].ProductID != 11 {
		t.Fatalf("unexpected order after update: %+v", o)
	}
}

func TestRollUp(t *testing.T) {
	tests := []struct {
		states []Status
		want   Status
	}{
		{nil, StatusNotProcessed},
		{[]Status{StatusShipped}, StatusShipped},
		{[]Status{StatusShipped, StatusNotProcessed}, StatusPending},
	}
	for _, tt := range tests {
		if got := RollUp(tt.states); got != tt.want {
			t.Errorf("RollUp(%v) = %q, want %q", tt.states, got, tt.want)
		}
	}
}

func TestItemStatusMovesOrder(t *testing.T) {
	store := newFakeStore(Order{ID: 5, UserID: 3, Status: StatusNotProcessed, Items: []OrderItem{
		{OrderID: 5, ProductID: 10, Quantity: 1, Status: StatusNotProcessed},
	}})
	svc := NewService(store, catalog, &recordingPublisher{})

	item, err := svc.UpdateItemStatus(context.Background(), UpdateItemStatusRequest{OrderID: 5, ProductID: 10, Status: StatusShipped})
	if err != nil {
		t.Fatalf("UpdateItemStatus: %v", err)
	}
	if item.Status != StatusShipped {
		t.Fatalf("expected shipped item, got %q", item.Status)
	}
	o, _ := store.Get(context.Background(), 5)
	if o.Status != StatusShipped {
		t.Fatalf("expected order to follow its only item, got %q", o.Status)
	}

	_, err = svc.UpdateItemStatus(context.Background(), UpdateItemStatusRequest{OrderID: 5, ProductID: 10, Status: "lost"})
	if !IsValidationError(err) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
}

func TestChangesArePublished(t *testing.T) {
	events := &recordingPublisher{}
	svc := NewService(newFakeStore(), catalog, events)
	ctx := context.Background()

	o, err := svc.Create(ctx, ana, CreateOrderRequest{Items: []ItemRequest{{ProductID: 10, Quantity: 1}}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.UpdateItemStatus(ctx, UpdateItemStatusRequest{OrderID: o.ID, ProductID: 10, Status: StatusShipped}); err != nil {
		t.Fatalf("UpdateItemStatus: %v", err)
	}
	if err := svc.Delete(ctx, admin, o.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Create(ctx, ana, CreateOrderRequest{Items: []ItemRequest{{ProductID: 99, Quantity: 1}}}); err == nil {
		t.Fatal("expected unknown product to fail")
	}

	want := []string{EventCreated, EventStatusChanged, EventDeleted}
	got := events.types()
	if len(got) != len(want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, got)
		}
	}
}

func TestUpdateKeepsFulfilmentState(t *testing.T) {
	store := newFakeStore(Order{ID: 5, UserID: 3, Status: StatusShipped, Items: []OrderItem{
		{OrderID: 5, ProductID: 10, Quantity: 1, Status: StatusShipped},
	}})
	svc := NewService(store, catalog, &recordingPublisher{})
	ctx := context.Background()

	o, err := svc.Update(ctx, admin, 5, UpdateOrderRequest{Items: []ItemRequest{{ProductID: 10, Quantity: 2}}})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if o.Status != StatusShipped || o.Items[0].Status != StatusShipped {
		t.Fatalf("shipped item lost its state: order %q item %q", o.Status, o.Items[0].Status)
	}

	o, err = svc.Update(ctx, admin, 5, UpdateOrderRequest{Items: []ItemRequest{
		{ProductID: 10, Quantity: 2},
		{ProductID: 11, Quantity: 1},
	}})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if o.Status != StatusPending {
		t.Fatalf("expected pending with a new unshipped item, got %q", o.Status)
	}

	if _, err := svc.UpdateItemStatus(ctx, UpdateItemStatusRequest{OrderID: 5, ProductID: 10, Status: StatusNotProcessed}); err != nil {
		t.Fatalf("UpdateItemStatus: %v", err)
	}
	if _, err := svc.UpdateItemStatus(ctx, UpdateItemStatusRequest{OrderID: 5, ProductID: 11, Status: StatusShipped}); err != nil {
		t.Fatalf("UpdateItemStatus: %v", err)
	}
	got, _ := store.Get(ctx, 5)
	if got.Status != StatusPending {
		t.Fatalf("expected pending while items disagree, got %q", got.Status)
	}
	if err := svc.Delete(ctx, ana, 5); !errors.Is(err, ErrForbidden) {
		t.Fatalf("owner must not delete an order in fulfilment, got %v", err)
	}
}

func TestUserWritesRequireUnstartedOrder(t *testing.T) {
	store := newFakeStore(Order{ID: 5, UserID: 3, Status: StatusShipped, Items: []OrderItem{
		{OrderID: 5, ProductID: 10, Quantity: 1, Status: StatusShipped},
	}})
	svc := NewService(store, catalog, &recordingPublisher{})
	ctx := context.Background()

	if _, err := svc.Update(ctx, ana, 5, UpdateOrderRequest{Items: []ItemRequest{{ProductID: 11, Quantity: 1}}}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden on update, got %v", err)
	}
	if err := svc.Delete(ctx, ana, 5); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden on delete, got %v", err)
	}
	o, err := store.Get(ctx, 5)
	if err != nil || o.Items[0].ProductID != 10 {
		t.Fatalf("order must be untouched, got %+v, %v", o, err)
	}

	if err := svc.Delete(ctx, admin, 5); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
}

func TestCarryItemStates(t *testing.T) {
	existing := []OrderItem{
		{ProductID: 10, Quantity: 1, Status: StatusShipped},
		{ProductID: 11, Quantity: 1, Status: StatusDelivered},
	}
	next := []OrderItem{{ProductID: 10, Quantity: 3}, {ProductID: 12, Quantity: 1}}

	got := CarryItemStates(existing, next)
	if got[0].Status != StatusShipped || got[0].Quantity != 3 {
		t.Fatalf("kept product: %+v", got[0])
	}
	if got[1].Status != StatusNotProcessed {
		t.Fatalf("new product should start not processed, got %q", got[1].Status)
	}
	if states := ItemStates(got); len(states) != 2 || RollUp(states) != StatusPending {
		t.Fatalf("unexpected states %v", states)
	}
}
