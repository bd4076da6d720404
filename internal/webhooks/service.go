package webhooks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Service defines the interface for managing webhooks.
type Service interface {
	CreateWebhook(ctx context.Context, req CreateWebhookRequest) (Webhook, error)
	GetWebhook(ctx context.Context, id int64) (Webhook, error)
	ListWebhooks(ctx context.Context) ([]Webhook, error)
	SetActive(ctx context.Context, id int64, active bool) (Webhook, error)
	DeleteWebhook(ctx context.Context, id int64) error
	GetWebhooksForEvent(ctx context.Context, event string) ([]Webhook, error)
}

const webhookColumns = `id, url, secret, events, active, created_at, updated_at`

type service struct {
	db *sqlx.DB
}

// NewService creates a new webhooks service.
func NewService(db *sqlx.DB) Service {
	return &service{db: db}
}

func (s *service) CreateWebhook(ctx context.Context, req CreateWebhookRequest) (Webhook, error) {
	var w Webhook
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO webhooks (url, secret, events, active) VALUES ($1, $2, $3, TRUE) RETURNING `+webhookColumns,
		req.URL, req.Secret, pq.Array(req.Events)).StructScan(&w)
	if err != nil {
		return Webhook{}, fmt.Errorf("create webhook: %w", err)
	}
	return w, nil
}

func (s *service) GetWebhook(ctx context.Context, id int64) (Webhook, error) {
	var w Webhook
	err := s.db.GetContext(ctx, &w, `SELECT `+webhookColumns+` FROM webhooks WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Webhook{}, ErrNotFound
		}
		return Webhook{}, fmt.Errorf("get webhook: %w", err)
	}
	return w, nil
}

func (s *service) ListWebhooks(ctx context.Context) ([]Webhook, error) {
	webhooks := []Webhook{}
	err := s.db.SelectContext(ctx, &webhooks, `SELECT `+webhookColumns+` FROM webhooks ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	return webhooks, nil
}

func (s *service) SetActive(ctx context.Context, id int64, active bool) (Webhook, error) {
	var w Webhook
	err := s.db.QueryRowxContext(ctx,
		`UPDATE webhooks SET active = $2, updated_at = NOW() WHERE id = $1 RETURNING `+webhookColumns,
		id, active).StructScan(&w)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Webhook{}, ErrNotFound
		}
		return Webhook{}, fmt.Errorf("update webhook: %w", err)
	}
	return w, nil
}

func (s *service) DeleteWebhook(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM webhooks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *service) GetWebhooksForEvent(ctx context.Context, event string) ([]Webhook, error) {
	var webhooks []Webhook
	err := s.db.SelectContext(ctx, &webhooks,
		`SELECT `+webhookColumns+` FROM webhooks WHERE active = TRUE AND $1 = ANY(events)`, event)
	if err != nil {
		return nil, fmt.Errorf("get webhooks for event: %w", err)
	}
	return webhooks, nil
}
