package model

import "github.com/rotisserie/eris"

// Error kinds shared across the pipeline. ErrConfiguration is fatal for a
// run; the other two are recovered (skip-and-count, NaN aggregates).
var (
	ErrConfiguration    = eris.New("configuration error")
	ErrInvalidPoint     = eris.New("invalid point")
	ErrInsufficientData = eris.New("insufficient data")
)
