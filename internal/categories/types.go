package categories

import "time"

// Category groups products in the catalogue.
type Category struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Image     string    `db:"image" json:"image,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CategoryRequest creates or renames a category.
type CategoryRequest struct {
	Name string `json:"name" validate:"required,min=3,max=20"`
}
