package categories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dhawalhost/storefront/pkg/database"
	"github.com/jmoiron/sqlx"
)

// Store defines database operations for categories.
type Store interface {
	Create(ctx context.Context, name string) (Category, error)
	List(ctx context.Context) ([]Category, error)
	Get(ctx context.Context, id int64) (Category, error)
	Rename(ctx context.Context, id int64, name string) (Category, error)
	SetImage(ctx context.Context, id int64, image string) (Category, error)
	Delete(ctx context.Context, id int64) error
}

const categoryColumns = `id, name, image, created_at, updated_at`

type sqlStore struct {
	db *sqlx.DB
}

// NewStore creates a new category store.
func NewStore(db *sqlx.DB) Store {
	return &sqlStore{db: db}
}

func (s *sqlStore) Create(ctx context.Context, name string) (Category, error) {
	var c Category
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO categories (name) VALUES ($1) RETURNING `+categoryColumns, name).StructScan(&c)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return Category{}, ErrConflict
		}
		return Category{}, fmt.Errorf("failed to create category: %w", err)
	}
	return c, nil
}

func (s *sqlStore) List(ctx context.Context) ([]Category, error) {
	var out []Category
	if err := s.db.SelectContext(ctx, &out, `SELECT `+categoryColumns+` FROM categories ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return out, nil
}

func (s *sqlStore) Get(ctx context.Context, id int64) (Category, error) {
	var c Category
	if err := s.db.GetContext(ctx, &c, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Category{}, ErrNotFound
		}
		return Category{}, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

func (s *sqlStore) Rename(ctx context.Context, id int64, name string) (Category, error) {
	return s.update(ctx, `UPDATE categories SET name = $2, updated_at = NOW() WHERE id = $1 RETURNING `+categoryColumns, id, name)
}

func (s *sqlStore) SetImage(ctx context.Context, id int64, image string) (Category, error) {
	return s.update(ctx, `UPDATE categories SET image = $2, updated_at = NOW() WHERE id = $1 RETURNING `+categoryColumns, id, image)
}

func (s *sqlStore) update(ctx context.Context, query string, id int64, value string) (Category, error) {
	var c Category
	if err := s.db.QueryRowxContext(ctx, query, id, value).StructScan(&c); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return Category{}, ErrNotFound
		case database.IsUniqueViolation(err):
			return Category{}, ErrConflict
		}
		return Category{}, fmt.Errorf("failed to update category: %w", err)
	}
	return c, nil
}

func (s *sqlStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrInUse
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
