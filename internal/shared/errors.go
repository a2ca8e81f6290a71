package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicate indicates a unique constraint would be violated.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrTokenMissing occurs when a protected endpoint receives no bearer token.
	ErrTokenMissing = errors.New("token missing")
	// ErrTokenInvalid occurs when a bearer token fails verification.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrProductNotFound indicates a transaction line references an unknown product code.
	ErrProductNotFound = errors.New("product not found")
	// ErrInsufficientStock indicates a transaction line exceeds the available stock.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrIdempotencyConflict indicates a duplicate idempotency key.
	ErrIdempotencyConflict = errors.New("idempotent request already processed")
)

// DomainError pairs a sentinel with the message shown to API clients.
type DomainError struct {
	Kind    error
	Message string
}

func (e *DomainError) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Kind
}

// NewDomainError wraps kind with a client facing message.
func NewDomainError(kind error, message string) error {
	return &DomainError{Kind: kind, Message: message}
}

// UserSafeMessage returns the message that may be shown to API clients.
// Errors that are not domain errors collapse to a generic text so store
// failures never leak to the caller.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Error()
	}
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, ErrTokenMissing):
		return "Token is missing"
	case errors.Is(err, ErrTokenInvalid):
		return "Token is invalid"
	case errors.Is(err, ErrIdempotencyConflict):
		return "Request already processed"
	case errors.Is(err, ErrNotFound):
		return "Resource not found"
	case errors.Is(err, ErrValidation):
		return "Invalid request"
	}
	return "Internal server error"
}
