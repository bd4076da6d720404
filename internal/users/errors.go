package users

import "errors"

// Error represents a service-specific error.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrNotFound           = &Error{"not_found", "User not found"}
	ErrConflict           = &Error{"conflict", "Email or nick name already exists"}
	ErrInvalidCredentials = &Error{"invalid_credentials", "Invalid password"}
	ErrNotVerified        = &Error{"not_verified", "Please verify your email"}
	ErrBanned             = &Error{"banned", "User is banned, please contact support"}
	ErrInactive           = &Error{"inactive", "User is not active, please contact support"}
	ErrAccountLocked      = &Error{"locked", "Account locked due to too many failed login attempts, please contact support"}
	ErrCodeNotFound       = &Error{"code_not_found", "Verification code not found, please request a new one"}
	ErrInvalidCode        = &Error{"invalid_code", "Invalid verification code"}
	ErrCodeExpired        = &Error{"code_expired", "Verification code expired, please request a new one"}
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
