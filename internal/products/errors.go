package products

import "errors"

var (
	// ErrNotFound is returned when a product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrConflict is returned when the product name is already taken.
	ErrConflict = errors.New("product with this name already exists")
	// ErrInUse is returned when orders still reference the product.
	ErrInUse = errors.New("product is referenced by existing orders")
)

// ValidationError reports a request the service refuses to process.
type ValidationError struct {
	msg string
}

func (e ValidationError) Error() string { return e.msg }

func validationError(msg string) error {
	return ValidationError{msg: msg}
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var v ValidationError
	return errors.As(err, &v)
}
