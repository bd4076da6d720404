package webhooks

import (
	"errors"
	"time"

	"github.com/dhawalhost/storefront/internal/orders"
	"github.com/lib/pq"
)

// Event types a webhook may subscribe to.
const (
	EventOrderCreated       = orders.EventCreated
	EventOrderUpdated       = orders.EventUpdated
	EventOrderDeleted       = orders.EventDeleted
	EventOrderStatusChanged = orders.EventStatusChanged
)

// EventTypes lists every event a webhook may subscribe to.
var EventTypes = []string{EventOrderCreated, EventOrderUpdated, EventOrderDeleted, EventOrderStatusChanged}

// ErrNotFound is returned when a webhook does not exist.
var ErrNotFound = errors.New("webhook not found")

// Webhook represents a registered event listener.
type Webhook struct {
	ID        int64          `json:"id" db:"id"`
	URL       string         `json:"url" db:"url"`
	Secret    string         `json:"-" db:"secret"`
	Events    pq.StringArray `json:"events" db:"events"`
	Active    bool           `json:"active" db:"active"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// CreateWebhookRequest registers a listener.
type CreateWebhookRequest struct {
	URL    string   `json:"url" validate:"required,url"`
	Secret string   `json:"secret" validate:"required,min=16"`
	Events []string `json:"events" validate:"required,min=1,dive,oneof=order.created order.updated order.deleted order.item_status_changed"`
}

// SetActiveRequest pauses or resumes deliveries to a listener.
type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}
