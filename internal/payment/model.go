package payment

import "time"

// Method is a manually settled payment channel. The buyer transfers the
// amount themselves and uploads proof; an admin verifies it afterwards.
type Method struct {
	ID             uint
	Name           string
	Slug           string
	Active         bool
	Logo           *string
	PaymentDetails map[string]string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
