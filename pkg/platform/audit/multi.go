package audit

import (
	"context"
	"errors"
	"fmt"
)

// SinkError names the sink that failed an append.
type SinkError struct {
	Sink string
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("audit sink %s: %v", e.Sink, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// Multi appends every event to each sink in order. One failing sink does not
// stop the others; all failures are joined.
type Multi struct {
	sinks []Sink
}

func NewMulti(sinks ...Sink) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

func (m *Multi) Append(ctx context.Context, event Event) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Append(ctx, event); err != nil {
			errs = append(errs, &SinkError{Sink: s.Name(), Err: err})
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Name() string {
	return "multi"
}

// Sinks returns the configured sink names.
func (m *Multi) Sinks() []string {
	names := make([]string, 0, len(m.sinks))
	for _, s := range m.sinks {
		names = append(names, s.Name())
	}
	return names
}

// failedSinks lists the sink names found in err, or "store" when err does not
// carry any.
func failedSinks(err error) []string {
	var names []string
	var walk func(error)
	walk = func(e error) {
		if joined, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				walk(inner)
			}
			return
		}
		var se *SinkError
		if errors.As(e, &se) {
			names = append(names, se.Sink)
		}
	}
	walk(err)
	if len(names) == 0 {
		return []string{"store"}
	}
	return names
}
