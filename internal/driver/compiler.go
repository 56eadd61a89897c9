// Package driver runs analysis passes over program snapshots: incremental
// reconciliation, trait analysis and resolution, scope dependency
// recording and template type-checking. A Compiler keeps the state one
// pass hands to the next.
package driver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tmplcheck/internal/annotations"
	"tmplcheck/internal/diag"
	"tmplcheck/internal/host"
	"tmplcheck/internal/incremental"
	"tmplcheck/internal/observ"
	"tmplcheck/internal/partial"
	"tmplcheck/internal/reflection"
	"tmplcheck/internal/scope"
	"tmplcheck/internal/trace"
	"tmplcheck/internal/transform"
	"tmplcheck/internal/typecheck"
)

// Options configure a Compiler.
type Options struct {
	TypeCheck typecheck.Options
	// Handlers default to annotations.Handlers().
	Handlers []transform.Handler
	Timings  bool
}

// Compiler is the facade one editing session or CLI run talks to.
// It is not safe for concurrent use.
type Compiler struct {
	opts Options
	cfg  typecheck.Config

	input   host.Program // last analyzed sources
	program host.Program // adopted baseline, synthetic units included
	incr    *incremental.Driver[*transform.ClassRecord]
	traits  *transform.TraitCompiler
	scopes  *scope.Registry
	checked *typecheck.Result
	parse   []diag.Diagnostic // set when the last pass aborted
	timer   *observ.Timer
}

func New(opts Options) *Compiler {
	if opts.Handlers == nil {
		opts.Handlers = annotations.Handlers()
	}
	return &Compiler{opts: opts, cfg: typecheck.ConfigFromOptions(opts.TypeCheck)}
}

// Config returns the resolved type-checking toggles.
func (c *Compiler) Config() typecheck.Config { return c.cfg }

// Analyze runs one pass over prog. changedResources lists resource files
// (templates) edited since the previous call. A *transform.StructuralParseError
// or a *typecheck.InvariantError ends the pass; Diagnostics stays usable
// after the former.
func (c *Compiler) Analyze(ctx context.Context, prog host.Program, changedResources []string) (err error) {
	tracer := trace.FromContext(ctx)
	sp := trace.Begin(tracer, trace.ScopeDriver, "analyze", trace.CurrentSpan(ctx))
	ctx = trace.WithSpan(ctx, sp)
	defer func() {
		if err != nil {
			trace.Point(tracer, trace.ScopeFailure, "pass.failed", err.Error(), sp.ID())
			sp.End(err.Error())
			return
		}
		sp.End(fmt.Sprintf("%d invalidated", len(c.incr.Invalidated())))
	}()
	c.timer = nil
	if c.opts.Timings {
		c.timer = observ.NewTimer()
	}

	ph := c.phase(ctx, "reconcile")
	c.incr = incremental.Reconcile(c.input, c.incr, prog, changedResources)
	c.input = prog
	c.parse, c.checked = nil, nil
	ph.end(fmt.Sprintf("%d of %d files", len(c.incr.Invalidated()), len(prog.SourceFiles())))

	refl := reflection.NewHost(prog)
	ph = c.phase(ctx, "analyze")
	for {
		if err := c.analyzeAll(prog, refl, tracer, sp.ID()); err != nil {
			ph.end("aborted")
			return err
		}
		late := c.incr.Invalidate(c.newMembers()...)
		if len(late) == 0 {
			break
		}
		trace.Point(tracer, trace.ScopePass, "late-invalidation", strings.Join(late, ", "), sp.ID())
	}
	ph.end(fmt.Sprintf("%d records", len(c.traits.Records())))

	ph = c.phase(ctx, "resolve")
	c.traits.Resolve()
	c.recordScopeDependencies()
	for _, f := range prog.SourceFiles() {
		if digest, ok := refl.ShapeDigest(f); ok {
			c.incr.Graph().RecordShape(f, digest)
		}
	}
	c.incr.RecordSuccessfulAnalysis(c.traits)
	ph.end("")

	if !c.cfg.CheckTemplates {
		c.program = prog
		return nil
	}
	idx := c.timer.Begin("typecheck")
	tc := typecheck.NewContext(c.cfg, refl, c.traits)
	res, err := tc.Calculate(ctx, c.program)
	if err != nil {
		c.timer.End(idx, "failed")
		return err
	}
	c.checked = res
	c.program = res.Program
	c.timer.End(idx, fmt.Sprintf("%d files", len(res.Files)))
	return nil
}

// analyzeAll scans and analyzes every file of prog with a fresh scope
// registry.
func (c *Compiler) analyzeAll(prog host.Program, refl *reflection.Host, tracer trace.Tracer, span uint64) error {
	c.scopes = scope.NewRegistry()
	env := &transform.Env{
		Host:   refl,
		Eval:   partial.NewEvaluator(refl, c.incr),
		Scopes: c.scopes,
		Deps:   c.incr,
	}
	c.traits = transform.NewTraitCompiler(c.opts.Handlers, env, c.incr)
	c.traits.SetTracer(tracer, span)
	for _, f := range prog.SourceFiles() {
		c.traits.Scan(f)
		if err := c.traits.AnalyzeSync(f); err != nil {
			var spe *transform.StructuralParseError
			if errors.As(err, &spe) {
				c.parse = c.traits.Diagnostics()
				c.program = prog
			}
			return err
		}
	}
	return nil
}

// newMembers lists carried files whose declarations a module analyzed in
// this pass declares. A carried file has no edge to a module that only now
// declares it, so its records still hold the scope of the previous pass.
func (c *Compiler) newMembers() []string {
	var out []string
	for _, key := range c.scopes.Modules() {
		m, _ := c.scopes.Module(key)
		if m.Ref.File == "" || c.traits.Adopted(m.Ref.File) {
			continue
		}
		for _, e := range m.Declarations {
			if f := e.Ref.File; f != "" && c.traits.Adopted(f) {
				out = append(out, f)
			}
		}
	}
	return out
}

// phase pairs a timer entry with a pass-level trace span.
type phase struct {
	timer *observ.Timer
	idx   int
	span  *trace.Span
}

func (c *Compiler) phase(ctx context.Context, name string) phase {
	return phase{
		timer: c.timer,
		idx:   c.timer.Begin(name),
		span:  trace.Begin(trace.FromContext(ctx), trace.ScopePass, name, trace.CurrentSpan(ctx)),
	}
}

func (p phase) end(note string) {
	p.timer.End(p.idx, note)
	p.span.End(note)
}

// Program is the snapshot callers adopt after a pass.
func (c *Compiler) Program() host.Program { return c.program }

// Incremental exposes the dependency driver of the last pass.
func (c *Compiler) Incremental() *incremental.Driver[*transform.ClassRecord] { return c.incr }

// Traits exposes the trait records of the last pass.
func (c *Compiler) Traits() *transform.TraitCompiler { return c.traits }

// TypeCheckFiles returns the synthetic files of the last pass.
func (c *Compiler) TypeCheckFiles() []typecheck.File {
	if c.checked == nil {
		return nil
	}
	return c.checked.Files
}

// Timer returns the phase timer of the last pass, nil without Timings.
func (c *Compiler) Timer() *observ.Timer { return c.timer }
