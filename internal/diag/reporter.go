package diag

// Reporter receives diagnostics one at a time.
type Reporter interface {
	Report(d Diagnostic)
}

// SliceReporter collects diagnostics into a plain slice.
type SliceReporter struct{ Items []Diagnostic }

func (r *SliceReporter) Report(d Diagnostic) {
	r.Items = append(r.Items, d)
}
