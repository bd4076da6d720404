package products

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dhawalhost/storefront/pkg/storage"
	"go.uber.org/zap"
)

// Service defines the catalogue operations.
type Service interface {
	Create(ctx context.Context, req CreateProductRequest) (Product, error)
	List(ctx context.Context, f Filter) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	Update(ctx context.Context, id int64, req UpdateProductRequest) (Product, error)
	UploadImage(ctx context.Context, id int64, filename, contentType string, body io.ReadSeeker) (Product, error)
	SetRating(ctx context.Context, id int64, rating float64) error
	Delete(ctx context.Context, id int64) error
}

type service struct {
	store   Store
	objects storage.ObjectStore
	logger  *zap.Logger
}

// NewService creates a new catalogue service.
func NewService(store Store, objects storage.ObjectStore, logger *zap.Logger) Service {
	return &service{store: store, objects: objects, logger: logger}
}

func validDocument(name string, d Document) error {
	if len(d) == 0 {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(d, &obj); err != nil {
		return validationError(name + " must be a JSON object")
	}
	return nil
}

func (s *service) Create(ctx context.Context, req CreateProductRequest) (Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return Product{}, validationError("name is required")
	}
	if err := validDocument("features", req.Features); err != nil {
		return Product{}, err
	}
	if err := validDocument("specifications", req.Specifications); err != nil {
		return Product{}, err
	}
	return s.store.Create(ctx, req)
}

func (s *service) List(ctx context.Context, f Filter) ([]Product, error) {
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return nil, validationError("min_price must not exceed max_price")
	}
	if f.MinRating != nil && f.MaxRating != nil && *f.MinRating > *f.MaxRating {
		return nil, validationError("min_rating must not exceed max_rating")
	}
	if f.MinDiscount != nil && f.MaxDiscount != nil && *f.MinDiscount > *f.MaxDiscount {
		return nil, validationError("min_discount must not exceed max_discount")
	}
	return s.store.List(ctx, f)
}

func (s *service) Get(ctx context.Context, id int64) (Product, error) {
	return s.store.Get(ctx, id)
}

func (s *service) Update(ctx context.Context, id int64, req UpdateProductRequest) (Product, error) {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return Product{}, validationError("name must not be empty")
		}
		req.Name = &name
	}
	if err := validDocument("features", req.Features); err != nil {
		return Product{}, err
	}
	if err := validDocument("specifications", req.Specifications); err != nil {
		return Product{}, err
	}
	return s.store.Update(ctx, id, req)
}

func (s *service) UploadImage(ctx context.Context, id int64, filename, contentType string, body io.ReadSeeker) (Product, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return Product{}, err
	}
	url, err := s.objects.Put(ctx, fmt.Sprintf("products/%d", id), filename, contentType, body)
	if err != nil {
		return Product{}, err
	}
	return s.store.AddImage(ctx, id, url)
}

func (s *service) SetRating(ctx context.Context, id int64, rating float64) error {
	return s.store.SetRating(ctx, id, rating)
}

func (s *service) Delete(ctx context.Context, id int64) error {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	for _, img := range p.Images {
		if err := s.objects.Delete(ctx, img); err != nil {
			s.logger.Warn("failed to delete product image", zap.Int64("product_id", id), zap.Error(err))
		}
	}
	return nil
}
