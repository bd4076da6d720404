package events

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dhawalhost/storefront/internal/webhooks"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Delivery headers.
const (
	HeaderEventID   = "X-Storefront-Event-ID"
	HeaderEventType = "X-Storefront-Event"
	HeaderSignature = "X-Storefront-Signature"
)

// Event represents a domain change announced to webhooks.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Listeners finds the webhooks subscribed to an event type.
type Listeners interface {
	GetWebhooksForEvent(ctx context.Context, event string) ([]webhooks.Webhook, error)
}

// Dispatcher queues events and delivers them to webhooks from a fixed pool of
// workers. Publishing never blocks; events are dropped when the queue is full.
type Dispatcher struct {
	listeners  Listeners
	logger     *zap.Logger
	httpClient *http.Client
	queue      chan Event
	workers    int
	attempts   int
	backoff    time.Duration
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithWorkers sets the number of delivery workers.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithQueueSize sets how many undelivered events may wait.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan Event, n)
		}
	}
}

// WithRetry sets the attempts per webhook and the initial backoff between them.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(d *Dispatcher) {
		if attempts > 0 {
			d.attempts = attempts
		}
		d.backoff = backoff
	}
}

// WithHTTPClient replaces the client used for deliveries.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) { d.httpClient = c }
}

// NewDispatcher creates a new event dispatcher. Call Run to start delivering.
func NewDispatcher(listeners Listeners, logger *zap.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		listeners:  listeners,
		logger:     logger,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		queue:      make(chan Event, 256),
		workers:    4,
		attempts:   3,
		backoff:    500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Publish queues an event of the given type.
func (d *Dispatcher) Publish(_ context.Context, eventType string, payload any) {
	event := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
	select {
	case d.queue <- event:
	default:
		d.logger.Warn("event queue full, dropping event",
			zap.String("type", event.Type),
			zap.String("event_id", event.ID))
	}
}

// Run delivers queued events until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case event := <-d.queue:
					d.processEvent(ctx, event)
				}
			}
		}()
	}
	wg.Wait()
	if n := len(d.queue); n > 0 {
		d.logger.Warn("dispatcher stopped with undelivered events", zap.Int("pending", n))
	}
}

func (d *Dispatcher) processEvent(ctx context.Context, event Event) {
	hooks, err := d.listeners.GetWebhooksForEvent(ctx, event.Type)
	if err != nil {
		d.logger.Error("Failed to fetch webhooks for event", zap.String("type", event.Type), zap.Error(err))
		return
	}
	if len(hooks) == 0 {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		d.logger.Error("Failed to marshal event payload", zap.String("type", event.Type), zap.Error(err))
		return
	}

	for _, hook := range hooks {
		d.deliver(ctx, hook, event, payload)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, hook webhooks.Webhook, event Event, payload []byte) {
	wait := d.backoff
	for attempt := 1; attempt <= d.attempts; attempt++ {
		err := d.send(ctx, hook, event, payload)
		if err == nil {
			d.logger.Debug("Webhook delivered", zap.Int64("webhook_id", hook.ID), zap.String("event_id", event.ID))
			return
		}
		if attempt == d.attempts {
			d.logger.Warn("Webhook delivery failed",
				zap.Int64("webhook_id", hook.ID),
				zap.String("event_id", event.ID),
				zap.Int("attempts", attempt),
				zap.Error(err))
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		wait *= 2
	}
}

func (d *Dispatcher) send(ctx context.Context, hook webhooks.Webhook, event Event, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEventID, event.ID)
	req.Header.Set(HeaderEventType, event.Type)
	req.Header.Set(HeaderSignature, Sign(hook.Secret, payload))

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the signature header value for payload: the hex encoded
// HMAC-SHA256 under secret, prefixed with "sha256=".
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
