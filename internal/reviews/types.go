package reviews

import "time"

// DefaultRating is the rating of a product nobody has reviewed.
const DefaultRating = 5

// Review is a user's rating of a product. A user reviews a product at most once.
type Review struct {
	UserID    int64     `db:"user_id" json:"user_id"`
	ProductID int64     `db:"product_id" json:"product_id"`
	Rating    int       `db:"rating" json:"rating"`
	Comment   string    `db:"comment" json:"comment"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CreateReviewRequest rates a product as the calling user.
type CreateReviewRequest struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Comment   string `json:"comment" validate:"required,max=2000"`
}
