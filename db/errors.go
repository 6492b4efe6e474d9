package db

import "fmt"

var (
	// ErrNotFound is returned when a purchase is not in the ledger.
	ErrNotFound = fmt.Errorf("purchase not found")
	// ErrInvalidData is returned when a purchase has no checkout session id.
	ErrInvalidData = fmt.Errorf("invalid purchase: missing session id")
)
