package typecheck

import (
	"context"
	"fmt"

	"tmplcheck/internal/diag"
	"tmplcheck/internal/host"
	"tmplcheck/internal/reflection"
	"tmplcheck/internal/trace"
)

// TraitSource contributes check blocks for every resolved declaration.
type TraitSource interface {
	TypeCheck(c *Context)
}

// Result is the outcome of one template type-checking round. Callers adopt
// Program as their baseline.
type Result struct {
	Diagnostics []diag.Diagnostic
	OutOfBand   *OutOfBand
	Program     host.Program
	Files       []File
}

// Context drives synthesis for one pass.
type Context struct {
	cfg      Config
	refl     *reflection.Host
	src      TraitSource
	registry *Registry
	oob      *OutOfBand
	tracer   trace.Tracer
	span     uint64
}

func NewContext(cfg Config, refl *reflection.Host, src TraitSource) *Context {
	return &Context{cfg: cfg, refl: refl, src: src, tracer: trace.Nop}
}

func (c *Context) Config() Config { return c.cfg }

// AddTemplate synthesizes one check block. A block whose references cannot
// be emitted is abandoned and leaves nothing behind.
func (c *Context) AddTemplate(req BlockRequest) {
	if !c.cfg.CheckTemplates || req.Template == nil {
		return
	}
	var (
		env  *environment
		name string
		add  func(*block)
	)
	if req.Inline {
		f, err := c.registry.Inline(req.Decl)
		if err != nil {
			c.warn(req, err)
			return
		}
		env, name, add = f.env, "_tcb_"+req.Decl.Name, f.add
	} else {
		f := c.registry.External()
		env, name, add = f.env, f.nextName(), f.add
	}
	mark := env.mark()
	b := newBuilder(c.cfg, env, c.refl, &req)
	body, err := b.build(name)
	if err != nil {
		env.rollback(mark)
		c.warn(req, err)
		return
	}
	add(&block{
		name:          name,
		decl:          req.Decl.Key(),
		componentFile: req.Decl.Unit.File,
		nameSpan:      req.Decl.NameSpan(),
		body:          body,
	})
	if len(b.oob) > 0 {
		r := c.oob.reporter(req.Decl.Key())
		for _, d := range b.oob {
			r.Report(d)
		}
	}
}

func (c *Context) warn(req BlockRequest, err error) {
	trace.Point(c.tracer, trace.ScopeFile, "tcb.abandoned", fmt.Sprintf("%s: %v", req.Decl.Key(), err), c.span)
}

// Calculate synthesizes every block, derives the synthetic program and maps
// the checker's findings back to template spans.
func (c *Context) Calculate(ctx context.Context, old host.Program) (*Result, error) {
	c.tracer = trace.FromContext(ctx)
	sp := trace.Begin(c.tracer, trace.ScopePass, "typecheck", trace.CurrentSpan(ctx))
	c.span = sp.ID()
	c.registry = NewRegistry(c.refl.Program())
	c.oob = newOutOfBand()

	c.src.TypeCheck(c)
	files := c.registry.RenderAll()
	next, err := c.registry.Program(files, old)
	if err != nil {
		sp.End(err.Error())
		return nil, err
	}
	res := &Result{OutOfBand: c.oob, Program: next, Files: files}
	for _, f := range files {
		_, placed := f.layout()
		for _, hd := range next.Diagnostics(f.Path()) {
			if f.discards(hd.Start) {
				continue
			}
			p, m := locate(placed, hd.Start, hd.End)
			switch {
			case m != nil:
				d := diag.NewError(diag.TcbTypeError, m.span, hd.Message)
				res.Diagnostics = append(res.Diagnostics, d.AsTemplate(p.componentFile, p.decl))
			case p != nil:
				d := diag.NewError(diag.TcbOutOfBand, p.nameSpan, "template check: "+hd.Message)
				c.oob.reporter(p.decl).Report(d.AsTemplate(p.componentFile, p.decl))
			default:
				trace.Point(c.tracer, trace.ScopeFile, "tcb.unattributed", fmt.Sprintf("%s:%d: %s", f.Path(), hd.Start, hd.Message), c.span)
			}
		}
	}
	sp.End(fmt.Sprintf("%d files, %d diagnostics, %d out of band", len(files), len(res.Diagnostics), c.oob.Len()))
	return res, nil
}
