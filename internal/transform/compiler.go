package transform

import (
	"errors"
	"fmt"

	"tmplcheck/internal/diag"
	"tmplcheck/internal/reflection"
	"tmplcheck/internal/trace"
	"tmplcheck/internal/typecheck"
)

// PriorWork hands out records of files a previous pass analyzed and the
// current pass does not need to analyze again.
type PriorWork interface {
	PriorWorkFor(file string) ([]*ClassRecord, bool)
}

// TraitCompiler owns the records of one pass.
type TraitCompiler struct {
	handlers []Handler
	env      *Env
	prior    PriorWork
	tracer   trace.Tracer
	span     uint64

	files   []string
	byFile  map[string][]*ClassRecord
	byKey   map[string]*ClassRecord
	adopted map[string]bool
	aborted *StructuralParseError
}

// NewTraitCompiler creates a compiler dispatching to handlers in order.
// prior may be nil.
func NewTraitCompiler(handlers []Handler, env *Env, prior PriorWork) *TraitCompiler {
	return &TraitCompiler{
		handlers: handlers,
		env:      env,
		prior:    prior,
		tracer:   trace.Nop,
		byFile:   make(map[string][]*ClassRecord),
		byKey:    make(map[string]*ClassRecord),
		adopted:  make(map[string]bool),
	}
}

// SetTracer attaches per-declaration spans to parent.
func (c *TraitCompiler) SetTracer(t trace.Tracer, parent uint64) {
	if t == nil {
		t = trace.Nop
	}
	c.tracer, c.span = t, parent
}

// Scan creates pending traits for the marked declarations of file, or
// adopts the records a previous pass left for it.
func (c *TraitCompiler) Scan(file string) {
	if _, done := c.byFile[file]; done || typecheck.IsSyntheticPath(file) {
		return
	}
	c.files = append(c.files, file)
	if c.prior != nil {
		if recs, ok := c.prior.PriorWorkFor(file); ok {
			c.adopt(file, recs)
			return
		}
	}
	var recs []*ClassRecord
	for _, d := range c.env.Host.Declarations(file) {
		if rec := c.detect(d); rec != nil {
			recs = append(recs, rec)
			c.byKey[d.Key()] = rec
		}
	}
	c.byFile[file] = recs
}

func (c *TraitCompiler) detect(d *reflection.Declaration) *ClassRecord {
	if len(d.Markers) == 0 {
		return nil
	}
	rec := &ClassRecord{Decl: d}
	for _, h := range c.handlers {
		m, ok := h.Detect(d)
		if !ok {
			continue
		}
		if rec.Trait == nil {
			rec.Trait = &Trait{Handler: h, Marker: m}
			continue
		}
		rec.Diagnostics = append(rec.Diagnostics, diag.NewWarning(diag.AnlDuplicateMarker, m.KindSpan,
			fmt.Sprintf("%s is already a %s, the %s marker is ignored", d.Name, rec.Trait.Handler.Name(), h.Name())))
	}
	for _, m := range d.Markers {
		if !c.known(m.Kind) {
			rec.Diagnostics = append(rec.Diagnostics, diag.NewError(diag.AnlInvalidMarker, m.KindSpan,
				fmt.Sprintf("unknown marker kind %q", m.Kind)))
		}
	}
	return rec
}

func (c *TraitCompiler) known(kind string) bool {
	for _, h := range c.handlers {
		if h.Name() == kind {
			return true
		}
	}
	return false
}

func (c *TraitCompiler) adopt(file string, recs []*ClassRecord) {
	for _, rec := range recs {
		c.byKey[rec.Decl.Key()] = rec
		if t := rec.Trait; t != nil && t.Analysis != nil {
			t.Handler.Register(c.env, rec.Decl, t.Analysis)
		}
	}
	c.byFile[file] = recs
	c.adopted[file] = true
	trace.Point(c.tracer, trace.ScopeFile, "adopt", fmt.Sprintf("%s: %d records", file, len(recs)), c.span)
}

// AnalyzeSync analyzes the pending traits of file. A returned error ends
// the pass; a *StructuralParseError is kept for Diagnostics.
func (c *TraitCompiler) AnalyzeSync(file string) error {
	if c.aborted != nil {
		return c.aborted
	}
	for _, rec := range c.byFile[file] {
		t := rec.Trait
		if t == nil || t.State != StatePending {
			continue
		}
		if ds := markerErrors(t.Marker); len(ds) > 0 {
			t.fail(ds)
			continue
		}
		sp := trace.Begin(c.tracer, trace.ScopeDecl, "analyze "+rec.Decl.Name, c.span)
		analysis, ds, err := t.Handler.Analyze(c.env, rec.Decl, t.Marker)
		if err != nil {
			sp.End(err.Error())
			var spe *StructuralParseError
			if errors.As(err, &spe) {
				c.aborted = spe
				return spe
			}
			return fmt.Errorf("analyze %s: %w", rec.Decl.Key(), err)
		}
		switch {
		case hasErrors(ds):
			t.fail(ds)
		case analysis == nil:
			t.Diagnostics = append(t.Diagnostics, ds...)
			t.State = StateSkipped
		default:
			t.Diagnostics = append(t.Diagnostics, ds...)
			t.Analysis = analysis
			t.State = StateAnalyzed
			t.Handler.Register(c.env, rec.Decl, analysis)
		}
		sp.End(t.State.String())
	}
	return nil
}

func markerErrors(m *reflection.Marker) []diag.Diagnostic {
	if m == nil || len(m.Errors) == 0 {
		return nil
	}
	out := make([]diag.Diagnostic, 0, len(m.Errors))
	for _, e := range m.Errors {
		out = append(out, diag.NewError(diag.AnlInvalidMarker, e.Span, "marker: "+e.Msg))
	}
	return out
}

// Resolve resolves every analyzed trait of the pass. It must run after
// every file was analyzed.
func (c *TraitCompiler) Resolve() {
	if c.aborted != nil {
		return
	}
	for _, rec := range c.Records() {
		t := rec.Trait
		if t == nil || t.State != StateAnalyzed {
			continue
		}
		res, ds := t.Handler.Resolve(c.env, rec.Decl, t.Analysis)
		if hasErrors(ds) {
			t.fail(ds)
			continue
		}
		t.Diagnostics = append(t.Diagnostics, ds...)
		t.Resolution = res
		t.State = StateResolved
	}
}

// TypeCheck contributes the check blocks of every resolved trait.
// Trait state is not touched.
func (c *TraitCompiler) TypeCheck(tc *typecheck.Context) {
	for _, rec := range c.Records() {
		t := rec.Trait
		if t == nil || t.State != StateResolved {
			continue
		}
		if h, ok := t.Handler.(TypeCheckHandler); ok {
			h.TypeCheck(tc, rec.Decl, t.Analysis, t.Resolution)
		}
	}
}

// RecordFor looks a record up by declaration identity.
func (c *TraitCompiler) RecordFor(d *reflection.Declaration) (*ClassRecord, bool) {
	rec, ok := c.byKey[d.Key()]
	return rec, ok
}

// RecordsFor returns the records of file in declaration order.
func (c *TraitCompiler) RecordsFor(file string) []*ClassRecord {
	return c.byFile[file]
}

// Records returns every record, files in scan order.
func (c *TraitCompiler) Records() []*ClassRecord {
	var out []*ClassRecord
	for _, f := range c.files {
		out = append(out, c.byFile[f]...)
	}
	return out
}

// Adopted reports whether file's records were carried from a previous pass.
func (c *TraitCompiler) Adopted(file string) bool { return c.adopted[file] }

// Aborted returns the error that ended the pass, if any.
func (c *TraitCompiler) Aborted() *StructuralParseError { return c.aborted }

// Diagnostics returns the parse diagnostics of an aborted pass or else
// every record's diagnostics.
func (c *TraitCompiler) Diagnostics() []diag.Diagnostic {
	if c.aborted != nil {
		return append([]diag.Diagnostic(nil), c.aborted.Diagnostics...)
	}
	var out []diag.Diagnostic
	for _, rec := range c.Records() {
		out = append(out, rec.AllDiagnostics()...)
	}
	return out
}

// Counts tallies traits by state.
func (c *TraitCompiler) Counts() map[State]int {
	out := make(map[State]int)
	for _, rec := range c.Records() {
		if rec.Trait != nil {
			out[rec.Trait.State]++
		}
	}
	return out
}
