package shipment

import "time"

// Step is one waypoint in an order's delivery journey. Positions are
// 1-based and contiguous within an order.
type Step struct {
	ID                uint
	OrderID           uint
	Position          int
	LocationName      string
	StatusDescription *string
	Latitude          *float64
	Longitude         *float64
	IsReached         bool
	ReachedAt         *time.Time
	EstimatedArrival  *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// StepSpec carries the mutable fields for create/update.
type StepSpec struct {
	Position          int
	LocationName      string
	StatusDescription *string
	Latitude          *float64
	Longitude         *float64
	IsReached         bool
	ReachedAt         *time.Time
	EstimatedArrival  *time.Time
}

// Stop is one entry of a bulk route initialization.
type Stop struct {
	LocationName      string
	StatusDescription *string
	Latitude          *float64
	Longitude         *float64
	EstimatedArrival  *time.Time
}

// Metrics is the derived progress of an order's route.
type Metrics struct {
	Percentage  float64
	CurrentStep int
	TotalSteps  int
	IsDelivered bool
}
