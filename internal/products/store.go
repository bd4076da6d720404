package products

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dhawalhost/storefront/pkg/database"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Store defines database operations for products.
type Store interface {
	Create(ctx context.Context, req CreateProductRequest) (Product, error)
	List(ctx context.Context, f Filter) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	Update(ctx context.Context, id int64, req UpdateProductRequest) (Product, error)
	AddImage(ctx context.Context, id int64, url string) (Product, error)
	SetRating(ctx context.Context, id int64, rating float64) error
	Delete(ctx context.Context, id int64) error
}

const productColumns = `p.id, p.name, p.description, p.price, p.discount, p.rating, p.features,
	p.specifications, p.images, p.main_category_id, p.created_at, p.updated_at,
	COALESCE((SELECT array_agg(pc.category_id ORDER BY pc.category_id)
		FROM product_categories pc WHERE pc.product_id = p.id), '{}') AS category_ids`

type sqlStore struct {
	db *sqlx.DB
}

// NewStore creates a new product store.
func NewStore(db *sqlx.DB) Store {
	return &sqlStore{db: db}
}

func (s *sqlStore) Create(ctx context.Context, req CreateProductRequest) (Product, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Product{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	images := pq.StringArray(req.Images)
	if images == nil {
		images = pq.StringArray{}
	}

	var id int64
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO products (name, description, price, discount, features, specifications, images, main_category_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		req.Name, req.Description, req.Price, req.Discount, req.Features, req.Specifications, images, req.MainCategoryID,
	).Scan(&id)
	if err != nil {
		return Product{}, mapWriteError(err, "create")
	}

	if err := replaceCategories(ctx, tx, id, req.Categories); err != nil {
		return Product{}, err
	}

	p, err := getProduct(ctx, tx, id)
	if err != nil {
		return Product{}, err
	}
	if err := tx.Commit(); err != nil {
		return Product{}, fmt.Errorf("failed to commit product: %w", err)
	}
	return p, nil
}

func replaceCategories(ctx context.Context, tx *sqlx.Tx, productID int64, ids []int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM product_categories WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("failed to clear product categories: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO product_categories (product_id, category_id)
		 SELECT $1, UNNEST($2::bigint[]) ON CONFLICT DO NOTHING`,
		productID, pq.Int64Array(ids))
	if err != nil {
		return mapWriteError(err, "link categories for")
	}
	return nil
}

func (s *sqlStore) List(ctx context.Context, f Filter) ([]Product, error) {
	query, args := buildListQuery(f)
	var out []Product
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return out, nil
}

func buildListQuery(f Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.CategoryID > 0 {
		n := arg(f.CategoryID)
		where = append(where, `(p.main_category_id = `+n+` OR EXISTS (
			SELECT 1 FROM product_categories pc WHERE pc.product_id = p.id AND pc.category_id = `+n+`))`)
	}
	if f.MainCategoryID > 0 {
		where = append(where, `p.main_category_id = `+arg(f.MainCategoryID))
	}
	ranges := []struct {
		column   string
		min, max *float64
	}{
		{"p.price", f.MinPrice, f.MaxPrice},
		{"p.rating", f.MinRating, f.MaxRating},
		{"p.discount", f.MinDiscount, f.MaxDiscount},
	}
	for _, r := range ranges {
		if r.min != nil {
			where = append(where, r.column+` >= `+arg(*r.min))
		}
		if r.max != nil {
			where = append(where, r.column+` <= `+arg(*r.max))
		}
	}
	if name := strings.TrimSpace(f.Name); name != "" {
		where = append(where, `p.name ILIKE '%' || `+arg(name)+` || '%'`)
	}

	query := `SELECT ` + productColumns + ` FROM products p`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	switch f.Sort {
	case SortPriceAsc:
		query += ` ORDER BY p.price ASC, p.id`
	case SortPriceDesc:
		query += ` ORDER BY p.price DESC, p.id`
	default:
		query += ` ORDER BY p.id`
	}
	return query, args
}

func (s *sqlStore) Get(ctx context.Context, id int64) (Product, error) {
	return getProduct(ctx, s.db, id)
}

func getProduct(ctx context.Context, q sqlx.QueryerContext, id int64) (Product, error) {
	var p Product
	if err := sqlx.GetContext(ctx, q, &p, `SELECT `+productColumns+` FROM products p WHERE p.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

func (s *sqlStore) Update(ctx context.Context, id int64, req UpdateProductRequest) (Product, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Product{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var images any
	if req.Images != nil {
		images = pq.StringArray(req.Images)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE products SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			price = COALESCE($4, price),
			discount = COALESCE($5, discount),
			features = COALESCE($6, features),
			specifications = COALESCE($7, specifications),
			images = COALESCE($8, images),
			main_category_id = COALESCE($9, main_category_id),
			updated_at = NOW()
		 WHERE id = $1`,
		id, req.Name, req.Description, req.Price, req.Discount, req.Features, req.Specifications, images, req.MainCategoryID)
	if err != nil {
		return Product{}, mapWriteError(err, "update")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Product{}, ErrNotFound
	}

	if req.Categories != nil {
		if err := replaceCategories(ctx, tx, id, req.Categories); err != nil {
			return Product{}, err
		}
	}

	p, err := getProduct(ctx, tx, id)
	if err != nil {
		return Product{}, err
	}
	if err := tx.Commit(); err != nil {
		return Product{}, fmt.Errorf("failed to commit product: %w", err)
	}
	return p, nil
}

func (s *sqlStore) AddImage(ctx context.Context, id int64, url string) (Product, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET images = array_append(images, $2), updated_at = NOW() WHERE id = $1`, id, url)
	if err != nil {
		return Product{}, fmt.Errorf("failed to add product image: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Product{}, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *sqlStore) SetRating(ctx context.Context, id int64, rating float64) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE products SET rating = $2 WHERE id = $1`, id, rating); err != nil {
		return fmt.Errorf("failed to update product rating: %w", err)
	}
	return nil
}

func (s *sqlStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrInUse
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func mapWriteError(err error, op string) error {
	switch {
	case database.IsUniqueViolation(err):
		return ErrConflict
	case database.IsForeignKeyViolation(err):
		return validationError("referenced category does not exist")
	}
	return fmt.Errorf("failed to %s product: %w", op, err)
}
