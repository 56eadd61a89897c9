package partial

import (
	"go/ast"
	"go/token"
	"path/filepath"
	"strconv"
	"strings"

	"tmplcheck/internal/host"
	"tmplcheck/internal/imports"
	"tmplcheck/internal/reflection"
	"tmplcheck/internal/source"
)

// DependencyRecorder receives the file edges discovered while evaluating.
type DependencyRecorder interface {
	AddDependency(from, to string)
}

// Frame tells the evaluator where an expression's positions live.
type Frame struct {
	Unit *host.SourceUnit
	// Offset maps positions of the expression to file offsets; nil means
	// the expression belongs to the unit's own AST.
	Offset func(token.Pos) int
}

func (f Frame) offset(pos token.Pos) int {
	if f.Offset != nil {
		return f.Offset(pos)
	}
	return f.Unit.Offset(pos)
}

func (f Frame) span(n ast.Node) source.Span {
	return source.SpanOf(f.Unit.File, f.offset(n.Pos()), f.offset(n.End()))
}

// MarkerFrame evaluates expressions of a marker body.
func MarkerFrame(d *reflection.Declaration, m *reflection.Marker) Frame {
	return Frame{Unit: d.Unit, Offset: m.Offset}
}

// Evaluator evaluates expressions against one reflection host.
type Evaluator struct {
	host *reflection.Host
	deps DependencyRecorder
}

// NewEvaluator creates an evaluator; deps may be nil.
func NewEvaluator(h *reflection.Host, deps DependencyRecorder) *Evaluator {
	return &Evaluator{host: h, deps: deps}
}

// Eval evaluates expr in frame.
func (e *Evaluator) Eval(frame Frame, expr ast.Expr) Value {
	return e.eval(frame, expr, make(map[string]bool))
}

func (e *Evaluator) eval(f Frame, expr ast.Expr, visiting map[string]bool) Value {
	span := f.span(expr)
	switch x := expr.(type) {
	case *ast.ParenExpr:
		v := e.eval(f, x.X, visiting)
		v.Span = span
		return v
	case *ast.BasicLit:
		return e.literal(f, x, span)
	case *ast.Ident:
		return e.ident(f, x, span, visiting)
	case *ast.SelectorExpr:
		return e.selector(f, x, span)
	case *ast.BinaryExpr:
		return e.binary(f, x, span, visiting)
	case *ast.UnaryExpr:
		v := e.eval(f, x.X, visiting)
		switch {
		case x.Op == token.NOT && v.Kind == KindBool:
			return Value{Kind: KindBool, Bool: !v.Bool, Span: span}
		case x.Op == token.SUB && v.Kind == KindInt:
			return Value{Kind: KindInt, Int: -v.Int, Span: span}
		}
		return dynamic(span, "unsupported unary %s", x.Op)
	case *ast.CompositeLit:
		if _, ok := x.Type.(*ast.ArrayType); !ok && x.Type != nil {
			return dynamic(span, "only slice literals are supported")
		}
		list := make([]Value, 0, len(x.Elts))
		for _, elt := range x.Elts {
			list = append(list, e.eval(f, elt, visiting))
		}
		return Value{Kind: KindList, List: list, Span: span}
	}
	return dynamic(span, "expression is not statically known")
}

func (e *Evaluator) literal(f Frame, lit *ast.BasicLit, span source.Span) Value {
	switch lit.Kind {
	case token.STRING:
		s, err := strconv.Unquote(lit.Value)
		if err != nil {
			return dynamic(span, "bad string literal")
		}
		raw := strings.HasPrefix(lit.Value, "`")
		exact := raw && !strings.Contains(lit.Value, "\r") || !raw && !strings.Contains(lit.Value, `\`)
		return Value{
			Kind: KindString,
			Str:  s,
			Span: span,
			Origin: &Origin{
				File:   f.Unit.File,
				Path:   f.Unit.Path,
				Offset: f.offset(lit.Pos()) + 1,
				Exact:  exact,
			},
		}
	case token.INT:
		n, err := strconv.ParseInt(lit.Value, 0, 64)
		if err != nil {
			return dynamic(span, "integer out of range")
		}
		return Value{Kind: KindInt, Int: n, Span: span}
	}
	return dynamic(span, "unsupported literal %s", lit.Kind)
}

func (e *Evaluator) ident(f Frame, id *ast.Ident, span source.Span, visiting map[string]bool) Value {
	switch id.Name {
	case "true", "false":
		return Value{Kind: KindBool, Bool: id.Name == "true", Span: span}
	}
	if cd, ok := e.host.LookupConst(f.Unit.Path, id.Name); ok {
		key := cd.Path + "#" + cd.Name
		if visiting[key] {
			return dynamic(span, "constant %s refers to itself", id.Name)
		}
		if cd.Value == nil {
			return dynamic(span, "constant %s has an implicit value", id.Name)
		}
		if e.deps != nil && cd.Path != f.Unit.Path {
			e.deps.AddDependency(f.Unit.Path, cd.Path)
		}
		visiting[key] = true
		v := e.eval(Frame{Unit: cd.Unit}, cd.Value, visiting)
		delete(visiting, key)
		// the value keeps its origin inside the constant's file
		v.Span = span
		return v
	}
	if d, ok := e.host.LookupType(f.Unit.Path, id.Name); ok {
		return Value{Kind: KindRef, Ref: d.Ref(), Span: span}
	}
	// any file of the package may declare the name later
	e.dependOnAll(f.Unit.Path, e.host.PackageFiles(f.Unit.Path))
	return dynamic(span, "unknown identifier %s", id.Name)
}

func (e *Evaluator) dependOnAll(from string, files []string) {
	if e.deps == nil {
		return
	}
	for _, to := range files {
		if to != from {
			e.deps.AddDependency(from, to)
		}
	}
}

func (e *Evaluator) selector(f Frame, sel *ast.SelectorExpr, span source.Span) Value {
	pkg, ok := sel.X.(*ast.Ident)
	if !ok {
		return dynamic(span, "unsupported selector")
	}
	importPath, ok := e.host.Imports(f.Unit.Path)[pkg.Name]
	if !ok {
		return dynamic(span, "unknown package %s", pkg.Name)
	}
	ref := imports.Reference{Name: sel.Sel.Name, OwningModule: importPath}
	prog := e.host.Program()
	if dir, ok := prog.ResolveModule(importPath, f.Unit.Path); ok {
		ref.Dir = dir
		if d, ok := e.host.LookupTypeInDir(dir, sel.Sel.Name); ok {
			ref.Package = d.Package
			ref.File = d.Path
		} else {
			ref.Package = filepath.Base(dir)
			e.dependOnAll(f.Unit.Path, e.host.DirFiles(dir))
		}
	}
	return Value{Kind: KindRef, Ref: ref, Span: span}
}

func (e *Evaluator) binary(f Frame, b *ast.BinaryExpr, span source.Span, visiting map[string]bool) Value {
	l := e.eval(f, b.X, visiting)
	r := e.eval(f, b.Y, visiting)
	if l.Kind == KindDynamic {
		return l
	}
	if r.Kind == KindDynamic {
		return r
	}
	switch {
	case b.Op == token.ADD && l.Kind == KindString && r.Kind == KindString:
		return Value{Kind: KindString, Str: l.Str + r.Str, Span: span}
	case b.Op == token.ADD && l.Kind == KindInt && r.Kind == KindInt:
		return Value{Kind: KindInt, Int: l.Int + r.Int, Span: span}
	case (b.Op == token.LAND || b.Op == token.LOR) && l.Kind == KindBool && r.Kind == KindBool:
		if b.Op == token.LAND {
			return Value{Kind: KindBool, Bool: l.Bool && r.Bool, Span: span}
		}
		return Value{Kind: KindBool, Bool: l.Bool || r.Bool, Span: span}
	}
	return dynamic(span, "unsupported operation %s %s %s", l.Kind, b.Op, r.Kind)
}
