package reviews

import "errors"

var (
	ErrNotFound        = errors.New("review not found")
	ErrConflict        = errors.New("review already exists for this user and product")
	ErrProductNotFound = errors.New("product not found")
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
