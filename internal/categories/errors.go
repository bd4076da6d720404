package categories

import "errors"

var (
	// ErrNotFound is returned when a category does not exist.
	ErrNotFound = errors.New("category not found")
	// ErrConflict is returned when the name is already taken.
	ErrConflict = errors.New("category name already exists")
	// ErrInUse is returned when products still reference the category.
	ErrInUse = errors.New("category is still referenced by products")
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
