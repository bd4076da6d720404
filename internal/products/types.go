package products

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Product is a catalogue entry.
type Product struct {
	ID             int64          `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	Description    string         `db:"description" json:"description"`
	Price          float64        `db:"price" json:"price"`
	Discount       float64        `db:"discount" json:"discount"`
	Rating         float64        `db:"rating" json:"rating"`
	Features       Document       `db:"features" json:"features,omitempty"`
	Specifications Document       `db:"specifications" json:"specifications,omitempty"`
	Images         pq.StringArray `db:"images" json:"images"`
	MainCategoryID int64          `db:"main_category_id" json:"main_category_id"`
	CategoryIDs    pq.Int64Array  `db:"category_ids" json:"categories"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// Document is a free-form JSON object stored in a jsonb column.
type Document []byte

// Value implements driver.Valuer.
func (d Document) Value() (driver.Value, error) {
	if len(d) == 0 {
		return nil, nil
	}
	return []byte(d), nil
}

// Scan implements sql.Scanner.
func (d *Document) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = nil
	case []byte:
		*d = append(Document(nil), v...)
	case string:
		*d = Document(v)
	default:
		return fmt.Errorf("cannot scan %T into Document", src)
	}
	return nil
}

// MarshalJSON emits the stored document verbatim.
func (d Document) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return d, nil
}

// UnmarshalJSON keeps the raw document.
func (d *Document) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = nil
		return nil
	}
	*d = append(Document(nil), b...)
	return nil
}

// CreateProductRequest adds a product to the catalogue.
type CreateProductRequest struct {
	Name           string   `json:"name" validate:"required,min=2"`
	Description    string   `json:"description"`
	Price          float64  `json:"price" validate:"gte=0"`
	Discount       float64  `json:"discount" validate:"gte=0,lte=100"`
	Features       Document `json:"features"`
	Specifications Document `json:"specifications"`
	Images         []string `json:"images" validate:"omitempty,dive,url"`
	MainCategoryID int64    `json:"main_category_id" validate:"required,gt=0"`
	Categories     []int64  `json:"categories" validate:"omitempty,dive,gt=0"`
}

// UpdateProductRequest changes a product. Nil fields are left untouched.
type UpdateProductRequest struct {
	Name           *string  `json:"name" validate:"omitempty,min=2"`
	Description    *string  `json:"description"`
	Price          *float64 `json:"price" validate:"omitempty,gte=0"`
	Discount       *float64 `json:"discount" validate:"omitempty,gte=0,lte=100"`
	Features       Document `json:"features"`
	Specifications Document `json:"specifications"`
	Images         []string `json:"images" validate:"omitempty,dive,url"`
	MainCategoryID *int64   `json:"main_category_id" validate:"omitempty,gt=0"`
	Categories     []int64  `json:"categories" validate:"omitempty,dive,gt=0"`
}

// Sort orders for listings.
const (
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
)

// Filter narrows a product listing. Zero values do not filter.
type Filter struct {
	CategoryID     int64    `form:"category" validate:"omitempty,gt=0"`
	MainCategoryID int64    `form:"main_category" validate:"omitempty,gt=0"`
	MinPrice       *float64 `form:"min_price" validate:"omitempty,gte=0"`
	MaxPrice       *float64 `form:"max_price" validate:"omitempty,gte=0"`
	MinRating      *float64 `form:"min_rating" validate:"omitempty,gte=0,lte=5"`
	MaxRating      *float64 `form:"max_rating" validate:"omitempty,gte=0,lte=5"`
	MinDiscount    *float64 `form:"min_discount" validate:"omitempty,gte=0"`
	MaxDiscount    *float64 `form:"max_discount" validate:"omitempty,gte=0"`
	Name           string   `form:"name"`
	Sort           string   `form:"sort" validate:"omitempty,oneof=price_asc price_desc"`
}
