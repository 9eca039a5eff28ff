package bms

import (
	"errors"
	"fmt"
)

// Sentinel causes for parse diagnostics. Test them with errors.Is; every
// error the parser produces wraps exactly one of these.
var (
	// ErrUnknownTag marks a #-line that matched no known form. Always a
	// warning: the format grows by accretion and players are expected to
	// skip what they do not understand.
	ErrUnknownTag = errors.New("unknown tag")

	// ErrBadValue marks a recognized tag whose value text did not parse.
	// A warning by default, fatal with Options.Strict.
	ErrBadValue = errors.New("malformed value")

	// ErrUnbalanced marks broken #RANDOM/#IF nesting. Always fatal: past
	// this point line-to-branch attribution is guesswork.
	ErrUnbalanced = errors.New("unbalanced block")
)

// ParseError ties a diagnostic to the 1-based source line that caused it.
// Tag is the upper-cased tag name when one was recognized, else "".
type ParseError struct {
	Line int
	Tag  string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Tag == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: #%s: %v", e.Line, e.Tag, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
