package guard

// Error is a guard rejection surfaced to HTTP callers.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

var (
	// ErrForbidden is returned when the principal is authenticated but not allowed.
	ErrForbidden = &Error{"forbidden", "You do not have permission to access this resource"}
	// ErrUnauthenticated is returned when a policy applies but no principal is present.
	ErrUnauthenticated = &Error{"unauthenticated", "authentication required"}
	// ErrEntityNotFound is returned by snapshot loaders when the target entity does not exist.
	ErrEntityNotFound = &Error{"not_found", "resource not found"}
)
