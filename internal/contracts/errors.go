package contracts

import "errors"

var (
	// ErrRunNotFound is returned when a referenced run ID does not exist.
	ErrRunNotFound = errors.New("run not found")

	// ErrSymbolNotFound is returned when a referenced ticker does not exist.
	ErrSymbolNotFound = errors.New("symbol not found")

	// ErrNotFound is returned for missing single-row lookups that callers
	// treat as data insufficiency rather than failure.
	ErrNotFound = errors.New("not found")
)
