package audit

import (
	"context"
	"fmt"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
	exportLimit  = 10000
)

// Service defines audit service operations.
type Service interface {
	// Log records an audit event.
	Log(ctx context.Context, e Event) error

	// Query retrieves audit events with filtering.
	Query(ctx context.Context, params QueryParams) ([]Event, int, error)

	// Export retrieves all matching audit events for export.
	Export(ctx context.Context, params QueryParams) ([]Event, error)

	// GetEvent retrieves a single audit event.
	GetEvent(ctx context.Context, id int64) (Event, error)
}

type service struct {
	store Store
}

// NewService creates a new audit service.
func NewService(store Store) Service {
	return &service{store: store}
}

func (s *service) Log(ctx context.Context, e Event) error {
	if e.Action == "" {
		return fmt.Errorf("action is required")
	}
	if e.Route == "" {
		return fmt.Errorf("route is required")
	}
	if e.Outcome == "" {
		e.Outcome = OutcomeSuccess
	}
	_, err := s.store.Log(ctx, e)
	return err
}

func (s *service) Query(ctx context.Context, params QueryParams) ([]Event, int, error) {
	if params.Limit <= 0 {
		params.Limit = defaultLimit
	}
	if params.Limit > maxLimit {
		params.Limit = maxLimit
	}
	if params.Offset < 0 {
		params.Offset = 0
	}
	return s.store.Query(ctx, params)
}

func (s *service) Export(ctx context.Context, params QueryParams) ([]Event, error) {
	params.Limit = exportLimit
	params.Offset = 0
	events, _, err := s.store.Query(ctx, params)
	return events, err
}

func (s *service) GetEvent(ctx context.Context, id int64) (Event, error) {
	return s.store.GetEvent(ctx, id)
}
