package shipment

import "errors"

var (
	ErrStepNotFound    = errors.New("shipment step not found")
	ErrLocationMissing = errors.New("location name is required")
	ErrEmptyReorder    = errors.New("reorder map is empty")
)
