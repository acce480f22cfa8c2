package order

import "errors"

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrCartEmpty     = errors.New("cart is empty")
	ErrUnauthorized  = errors.New("unauthorized")

	// -- Lifecycle guards --
	ErrAlreadyPaid      = errors.New("order is already paid")
	ErrAlreadyVerified  = errors.New("payment is already verified")
	ErrOrderCancelled   = errors.New("order is cancelled")
	ErrPaymentRequired  = errors.New("payment must be verified first")
	ErrAlreadyDelivered = errors.New("order is already delivered")
)

// FieldError is a guard violation surfaced to the admin UI as a rejected
// action: it names the offending field and wraps the guard sentinel so
// callers can branch with errors.Is.
type FieldError struct {
	Field   string
	Message string
	Err     error
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func fieldErr(field, message string, sentinel error) error {
	return &FieldError{Field: field, Message: message, Err: sentinel}
}
