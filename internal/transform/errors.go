package transform

import (
	"fmt"

	"tmplcheck/internal/diag"
)

// StructuralParseError is returned when a template cannot be parsed. It
// ends the pass: nothing analyzed so far is kept.
type StructuralParseError struct {
	File        string
	Decl        string
	Diagnostics []diag.Diagnostic
}

func (e *StructuralParseError) Error() string {
	return fmt.Sprintf("%s: %d template syntax error(s)", e.Decl, len(e.Diagnostics))
}
