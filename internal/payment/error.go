package payment

import "errors"

var (
	ErrMethodNotFound = errors.New("payment method not found")
	ErrMethodInactive = errors.New("payment method is not active")
)
