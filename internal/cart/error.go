package cart

import "errors"

var (
	// -- Validation & Input --
	ErrInvalidQuantity = errors.New("invalid cart quantity")
	ErrOwnerRequired   = errors.New("cart owner is required")

	// -- Concurrency --
	ErrCartBusy = errors.New("cart is busy, please try again")
)
