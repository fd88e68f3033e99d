package usecase

import "errors"

var (
	errSourcePanic = errors.New("source panicked")

	// ErrNotReady means no scoring pass has completed yet.
	ErrNotReady = errors.New("usecase: no composite score yet")
)
