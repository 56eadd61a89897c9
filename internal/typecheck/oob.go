package typecheck

import "tmplcheck/internal/diag"

// OutOfBand collects template problems that have no synthetic location,
// keyed by declaration.
type OutOfBand struct {
	byDecl map[string]*declBucket
	order  []string
}

type declBucket struct {
	sink diag.SliceReporter
	in   *diag.DedupReporter
}

func newOutOfBand() *OutOfBand {
	return &OutOfBand{byDecl: make(map[string]*declBucket)}
}

// reporter returns the deduplicating sink of one declaration.
func (o *OutOfBand) reporter(decl string) diag.Reporter {
	b, ok := o.byDecl[decl]
	if !ok {
		b = &declBucket{}
		b.in = diag.NewDedupReporter(&b.sink)
		o.byDecl[decl] = b
		o.order = append(o.order, decl)
	}
	return b.in
}

// For returns the entries of one declaration.
func (o *OutOfBand) For(decl string) []diag.Diagnostic {
	if b, ok := o.byDecl[decl]; ok {
		return b.sink.Items
	}
	return nil
}

// Declarations lists keys in the order they were first recorded.
func (o *OutOfBand) Declarations() []string { return o.order }

// All flattens the bucket in declaration order.
func (o *OutOfBand) All() []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, k := range o.order {
		out = append(out, o.byDecl[k].sink.Items...)
	}
	return out
}

func (o *OutOfBand) Len() int {
	n := 0
	for _, b := range o.byDecl {
		n += len(b.sink.Items)
	}
	return n
}
