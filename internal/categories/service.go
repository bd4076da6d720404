package categories

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dhawalhost/storefront/pkg/storage"
	"go.uber.org/zap"
)

// Service defines the category operations.
type Service interface {
	Create(ctx context.Context, name string) (Category, error)
	List(ctx context.Context) ([]Category, error)
	Get(ctx context.Context, id int64) (Category, error)
	Rename(ctx context.Context, id int64, name string) (Category, error)
	UploadImage(ctx context.Context, id int64, filename, contentType string, body io.ReadSeeker) (Category, error)
	Delete(ctx context.Context, id int64) error
}

type service struct {
	store   Store
	objects storage.ObjectStore
	logger  *zap.Logger
}

// NewService creates a new category service.
func NewService(store Store, objects storage.ObjectStore, logger *zap.Logger) Service {
	return &service{store: store, objects: objects, logger: logger}
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := len([]rune(name)); n < 3 || n > 20 {
		return "", validationError("name must be between 3 and 20 characters")
	}
	return name, nil
}

func (s *service) Create(ctx context.Context, name string) (Category, error) {
	name, err := normalizeName(name)
	if err != nil {
		return Category{}, err
	}
	return s.store.Create(ctx, name)
}

func (s *service) List(ctx context.Context) ([]Category, error) {
	return s.store.List(ctx)
}

func (s *service) Get(ctx context.Context, id int64) (Category, error) {
	return s.store.Get(ctx, id)
}

func (s *service) Rename(ctx context.Context, id int64, name string) (Category, error) {
	name, err := normalizeName(name)
	if err != nil {
		return Category{}, err
	}
	return s.store.Rename(ctx, id, name)
}

func (s *service) UploadImage(ctx context.Context, id int64, filename, contentType string, body io.ReadSeeker) (Category, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return Category{}, err
	}

	url, err := s.objects.Put(ctx, fmt.Sprintf("categories/%d", id), filename, contentType, body)
	if err != nil {
		return Category{}, err
	}

	updated, err := s.store.SetImage(ctx, id, url)
	if err != nil {
		return Category{}, err
	}

	if current.Image != "" {
		if err := s.objects.Delete(ctx, current.Image); err != nil {
			s.logger.Warn("failed to delete replaced category image", zap.Int64("category_id", id), zap.Error(err))
		}
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if current.Image != "" {
		if err := s.objects.Delete(ctx, current.Image); err != nil {
			s.logger.Warn("failed to delete category image", zap.Int64("category_id", id), zap.Error(err))
		}
	}
	return nil
}
