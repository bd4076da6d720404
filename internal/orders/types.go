package orders

import "time"

// Status is the fulfilment state of an order or of one of its items.
type Status string

// Fulfilment states.
const (
	StatusNotProcessed Status = "not processed"
	StatusPending      Status = "pending"
	StatusShipped      Status = "shipped"
	StatusDelivered    Status = "delivered"
	StatusReturned     Status = "returned"
	StatusRefunded     Status = "refunded"
	StatusCancelled    Status = "cancelled"
)

// Statuses lists every fulfilment state.
var Statuses = []Status{
	StatusNotProcessed, StatusPending, StatusShipped, StatusDelivered,
	StatusReturned, StatusRefunded, StatusCancelled,
}

// Valid reports whether s is a known state.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Order is a purchase placed by a user.
type Order struct {
	ID        int64       `db:"id" json:"id"`
	UserID    int64       `db:"user_id" json:"user_id"`
	NickName  string      `db:"nick_name" json:"nick_name"`
	Email     string      `db:"email" json:"email"`
	Status    Status      `db:"status" json:"status"`
	Total     float64     `db:"total" json:"total"`
	Items     []OrderItem `db:"-" json:"items"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}

// OrderItem is one product line of an order.
type OrderItem struct {
	OrderID   int64     `db:"order_id" json:"order_id"`
	ProductID int64     `db:"product_id" json:"product_id"`
	Quantity  int       `db:"quantity" json:"quantity"`
	Status    Status    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ItemRequest names a product and a quantity.
type ItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

// CreateOrderRequest places an order. UserID defaults to the caller.
type CreateOrderRequest struct {
	UserID int64         `json:"userId" validate:"omitempty,gt=0"`
	Items  []ItemRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdateOrderRequest replaces the items of an order.
type UpdateOrderRequest struct {
	Items []ItemRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdateItemStatusRequest moves one order item to a new state.
type UpdateItemStatusRequest struct {
	OrderID   int64  `json:"order_id" validate:"required,gt=0"`
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	Status    Status `json:"status" validate:"required"`
}
