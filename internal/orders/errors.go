package orders

import "errors"

var (
	// ErrOrderNotFound is returned when no order matches a lookup.
	ErrOrderNotFound = errors.New("orders: order not found")

	ErrMissingGroupID = errors.New("orders: group id is required")
	ErrMissingItems   = errors.New("orders: items are required")
	ErrMissingContact = errors.New("orders: a phone or an amount is required")
	ErrNegativeAmount = errors.New("orders: amount due cannot be negative")
)
