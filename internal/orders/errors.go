package orders

import "errors"

var (
	// ErrNotFound is returned when an order or order item does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrProductNotFound is returned when an item names an unknown product.
	ErrProductNotFound = errors.New("product not found")
	// ErrForbidden is returned when a user touches someone else's order.
	ErrForbidden = errors.New("You do not have permission to access this resource")
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
