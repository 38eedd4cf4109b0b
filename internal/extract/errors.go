package extract

import (
	"errors"
	"fmt"
)

// RunawayKind names the loop that hit its iteration bound.
type RunawayKind string

const (
	// RunawayComponents is reported by the pattern matcher.
	RunawayComponents RunawayKind = "TOO_MANY_COMPONENTS"

	// RunawayMacros is reported by the macro extractor.
	RunawayMacros RunawayKind = "TOO_MANY_MACROS"
)

// RunawayError describes a substitution loop that stopped making progress.
//
// It is never returned to callers of the dispatcher: the partial result is
// kept and the error is logged as a warning with the offending text. It is
// exposed so tests and the run summary can inspect it.
type RunawayError struct {
	Kind  RunawayKind
	Text  string
	Limit int
}

func (e *RunawayError) Error() string {
	return fmt.Sprintf("%s: no progress after %d iterations", e.Kind, e.Limit)
}

// IsRunaway reports whether err is a RunawayError. Uses errors.As to handle
// wrapped errors.
func IsRunaway(err error) bool {
	var re *RunawayError
	return errors.As(err, &re)
}
