package reviews

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// RatingSink receives recomputed product ratings.
type RatingSink interface {
	SetRating(ctx context.Context, productID int64, rating float64) error
}

// Service defines the review operations.
type Service interface {
	Create(ctx context.Context, userID int64, req CreateReviewRequest) (Review, error)
	ListByProduct(ctx context.Context, productID int64) ([]Review, error)
	ListByUser(ctx context.Context, userID int64) ([]Review, error)
	Get(ctx context.Context, userID, productID int64) (Review, error)
	Delete(ctx context.Context, userID, productID int64) error
}

type service struct {
	store   Store
	ratings RatingSink
	logger  *zap.Logger
}

// NewService creates a new review service.
func NewService(store Store, ratings RatingSink, logger *zap.Logger) Service {
	return &service{store: store, ratings: ratings, logger: logger}
}

func (s *service) Create(ctx context.Context, userID int64, req CreateReviewRequest) (Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return Review{}, validationError("rating must be between 1 and 5")
	}
	comment := strings.TrimSpace(req.Comment)
	if comment == "" {
		return Review{}, validationError("comment is required")
	}

	r, err := s.store.Create(ctx, Review{UserID: userID, ProductID: req.ProductID, Rating: req.Rating, Comment: comment})
	if err != nil {
		return Review{}, err
	}
	s.refreshRating(ctx, req.ProductID)
	return r, nil
}

// refreshRating stores the mean review rating on the product, or
// DefaultRating once its last review is gone. The review write has already
// committed, so a failure here is logged and the next review write repairs it.
func (s *service) refreshRating(ctx context.Context, productID int64) {
	avg, n, err := s.store.AverageRating(ctx, productID)
	if err != nil {
		s.logger.Warn("failed to compute product rating", zap.Int64("product_id", productID), zap.Error(err))
		return
	}
	if n == 0 {
		avg = DefaultRating
	}
	if err := s.ratings.SetRating(ctx, productID, avg); err != nil {
		s.logger.Warn("failed to update product rating", zap.Int64("product_id", productID), zap.Error(err))
	}
}

func (s *service) ListByProduct(ctx context.Context, productID int64) ([]Review, error) {
	return s.store.ListByProduct(ctx, productID)
}

func (s *service) ListByUser(ctx context.Context, userID int64) ([]Review, error) {
	return s.store.ListByUser(ctx, userID)
}

func (s *service) Get(ctx context.Context, userID, productID int64) (Review, error) {
	return s.store.Get(ctx, userID, productID)
}

func (s *service) Delete(ctx context.Context, userID, productID int64) error {
	if err := s.store.Delete(ctx, userID, productID); err != nil {
		return err
	}
	s.refreshRating(ctx, productID)
	return nil
}
