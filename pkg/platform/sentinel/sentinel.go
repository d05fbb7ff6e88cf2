package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and sinks return these
// (optionally wrapped) so the pipeline can classify a failure without reading
// driver error text.
//
// - ErrInvalidInput: a store was handed a record it refuses to persist
// - ErrUnavailable: backing service unreachable or closed
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnavailable  = errors.New("unavailable")
)
