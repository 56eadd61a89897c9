package diagfmt

import (
	"fmt"
	"io"

	"tmplcheck/internal/diag"
	"tmplcheck/internal/source"
)

// Short writes one line per diagnostic, notes included when asked.
func Short(w io.Writer, bag *diag.Bag, fs *source.FileSet, includeNotes bool) error {
	out := diag.FormatShortDiagnostics(bag.Items(), fs, includeNotes)
	if out == "" {
		return nil
	}
	_, err := fmt.Fprintln(w, out)
	return err
}
