package typecheck

import "fmt"

// InvariantError is a broken contract between synthesis and the host
// program. It aborts the pass and is never shown as a diagnostic.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string { return "type-check invariant violated: " + e.Msg }

func invariantf(format string, args ...any) *InvariantError {
	return &InvariantError{Msg: fmt.Sprintf(format, args...)}
}
