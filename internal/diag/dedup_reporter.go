package diag

import "tmplcheck/internal/source"

// the same host error often surfaces once per synthesized statement
type seenKey struct {
	code Code
	sev  Severity
	span source.Span
	msg  string
}

func keyOf(d *Diagnostic) seenKey {
	return seenKey{code: d.Code, sev: d.Severity, span: d.Primary, msg: d.Message}
}

// DedupReporter forwards a diagnostic only the first time its code,
// severity, primary span and message are seen.
type DedupReporter struct {
	next Reporter
	seen map[seenKey]struct{}
}

func NewDedupReporter(next Reporter) *DedupReporter {
	return &DedupReporter{next: next, seen: make(map[seenKey]struct{})}
}

func (r *DedupReporter) Report(d Diagnostic) {
	k := keyOf(&d)
	if _, dup := r.seen[k]; dup {
		return
	}
	r.seen[k] = struct{}{}
	if r.next != nil {
		r.next.Report(d)
	}
}
