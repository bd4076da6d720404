package reviews

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dhawalhost/storefront/pkg/database"
	"github.com/jmoiron/sqlx"
)

// Store defines database operations for reviews.
type Store interface {
	Create(ctx context.Context, r Review) (Review, error)
	ListByProduct(ctx context.Context, productID int64) ([]Review, error)
	ListByUser(ctx context.Context, userID int64) ([]Review, error)
	Get(ctx context.Context, userID, productID int64) (Review, error)
	Delete(ctx context.Context, userID, productID int64) error
	// AverageRating returns the mean rating of a product and how many reviews it has.
	AverageRating(ctx context.Context, productID int64) (float64, int, error)
}

const reviewColumns = `user_id, product_id, rating, comment, created_at`

type sqlStore struct {
	db *sqlx.DB
}

// NewStore creates a new review store.
func NewStore(db *sqlx.DB) Store {
	return &sqlStore{db: db}
}

func (s *sqlStore) Create(ctx context.Context, r Review) (Review, error) {
	var out Review
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO reviews (user_id, product_id, rating, comment) VALUES ($1, $2, $3, $4)
		 RETURNING `+reviewColumns,
		r.UserID, r.ProductID, r.Rating, r.Comment).StructScan(&out)
	if err != nil {
		switch {
		case database.IsUniqueViolation(err):
			return Review{}, ErrConflict
		case database.IsForeignKeyViolation(err):
			return Review{}, ErrProductNotFound
		}
		return Review{}, fmt.Errorf("failed to create review: %w", err)
	}
	return out, nil
}

func (s *sqlStore) ListByProduct(ctx context.Context, productID int64) ([]Review, error) {
	out := []Review{}
	if err := s.db.SelectContext(ctx, &out,
		`SELECT `+reviewColumns+` FROM reviews WHERE product_id = $1 ORDER BY created_at DESC`, productID); err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return out, nil
}

func (s *sqlStore) ListByUser(ctx context.Context, userID int64) ([]Review, error) {
	out := []Review{}
	if err := s.db.SelectContext(ctx, &out,
		`SELECT `+reviewColumns+` FROM reviews WHERE user_id = $1 ORDER BY created_at DESC`, userID); err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return out, nil
}

func (s *sqlStore) Get(ctx context.Context, userID, productID int64) (Review, error) {
	var out Review
	err := s.db.GetContext(ctx, &out,
		`SELECT `+reviewColumns+` FROM reviews WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Review{}, ErrNotFound
		}
		return Review{}, fmt.Errorf("failed to get review: %w", err)
	}
	return out, nil
}

func (s *sqlStore) Delete(ctx context.Context, userID, productID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reviews WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqlStore) AverageRating(ctx context.Context, productID int64) (float64, int, error) {
	var row struct {
		Avg   sql.NullFloat64 `db:"avg"`
		Count int             `db:"count"`
	}
	if err := s.db.GetContext(ctx, &row,
		`SELECT AVG(rating)::float8 AS avg, COUNT(*) AS count FROM reviews WHERE product_id = $1`, productID); err != nil {
		return 0, 0, fmt.Errorf("failed to average ratings: %w", err)
	}
	return row.Avg.Float64, row.Count, nil
}
