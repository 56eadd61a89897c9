package typecheck

import (
	"errors"
	"fmt"
	"go/ast"
	"go/types"
	"strconv"
	"strings"

	"golang.org/x/tools/go/ast/inspector"

	"tmplcheck/internal/diag"
	"tmplcheck/internal/reflection"
	"tmplcheck/internal/scope"
	"tmplcheck/internal/source"
	"tmplcheck/internal/template"
)

// BlockRequest is what a handler hands over to get one check block.
type BlockRequest struct {
	Decl     *reflection.Declaration
	Template *template.Template
	// Span maps template offsets onto source spans.
	Span   func(template.Range) source.Span
	Scope  *scope.CompilationScope
	Inline bool
}

// instance is a directive matched on an element. name is empty when the
// directive cannot be instantiated.
type instance struct {
	meta *scope.DirectiveMeta
	name string
}

type builder struct {
	cfg         Config
	env         *environment
	req         *BlockRequest
	refl        *reflection.Host
	fileImports map[string]string
	inspectors  map[*template.Code]*inspector.Inspector
	w           writer
	dirs        int
	oob         []diag.Diagnostic
}

func newBuilder(cfg Config, env *environment, refl *reflection.Host, req *BlockRequest) *builder {
	return &builder{
		cfg:         cfg,
		env:         env,
		req:         req,
		refl:        refl,
		fileImports: refl.Imports(req.Decl.Path),
		inspectors:  make(map[*template.Code]*inspector.Inspector),
	}
}

func (b *builder) span(r template.Range) source.Span { return b.req.Span(r) }

// problem records a template diagnostic found during synthesis.
func (b *builder) problem(code diag.Code, r template.Range, format string, args ...any) {
	d := diag.NewError(code, b.span(r), fmt.Sprintf(format, args...))
	b.oob = append(b.oob, d.AsTemplate(b.req.Decl.Unit.File, b.req.Decl.Key()))
}

// build renders the whole check block as a function named name.
func (b *builder) build(name string) (piece, error) {
	sig, err := b.signature(name)
	if err != nil {
		return piece{}, err
	}
	b.w.open(plain(sig))
	if err := b.view(b.req.Template.Nodes, nil, (&locals{}).child()); err != nil {
		return piece{}, err
	}
	b.w.close()
	return piece{text: b.w.buf.String(), maps: b.w.maps}, nil
}

func (b *builder) signature(name string) (string, error) {
	d := b.req.Decl
	typ, err := b.env.reference(d.Ref())
	if err != nil {
		return "", err
	}
	tps := d.TypeParams()
	if tps == nil || len(tps.List) == 0 {
		return fmt.Sprintf("func %s(ctx *%s)", name, typ), nil
	}
	params := scope.TypeParamsOf(tps)
	if !b.cfg.UseContextGenericType && scope.Instantiable(params) {
		return fmt.Sprintf("func %s(ctx *%s%s)", name, typ, typeArgs(len(params))), nil
	}
	inScope := make(map[string]bool, len(params))
	names := make([]string, 0, len(params))
	for _, p := range params {
		inScope[p.Name] = true
		names = append(names, p.Name)
	}
	var decls []string
	for _, f := range tps.List {
		constraint, err := b.typeExpr(f.Type, inScope)
		if err != nil {
			return "", err
		}
		fieldNames := make([]string, 0, len(f.Names))
		for _, n := range f.Names {
			fieldNames = append(fieldNames, n.Name)
		}
		decls = append(decls, strings.Join(fieldNames, ", ")+" "+constraint)
	}
	return fmt.Sprintf("func %s[%s](ctx *%s[%s])", name, strings.Join(decls, ", "), typ, strings.Join(names, ", ")), nil
}

// typeExpr re-renders a type parameter constraint for the target file.
func (b *builder) typeExpr(x ast.Expr, params map[string]bool) (string, error) {
	switch t := x.(type) {
	case *ast.Ident:
		if params[t.Name] || types.Universe.Lookup(t.Name) != nil {
			return t.Name, nil
		}
		name, ok, err := b.packageType(t.Name)
		if err != nil || !ok {
			return t.Name, err
		}
		return name, nil
	case *ast.SelectorExpr:
		if id, ok := t.X.(*ast.Ident); ok {
			if path, ok := b.fileImports[id.Name]; ok {
				return b.env.imports.Alias(path) + "." + t.Sel.Name, nil
			}
		}
	case *ast.StarExpr:
		inner, err := b.typeExpr(t.X, params)
		return "*" + inner, err
	case *ast.ParenExpr:
		inner, err := b.typeExpr(t.X, params)
		return "(" + inner + ")", err
	case *ast.UnaryExpr:
		inner, err := b.typeExpr(t.X, params)
		return t.Op.String() + inner, err
	case *ast.BinaryExpr:
		l, err := b.typeExpr(t.X, params)
		if err != nil {
			return "", err
		}
		r, err := b.typeExpr(t.Y, params)
		return l + " " + t.Op.String() + " " + r, err
	case *ast.ArrayType:
		if t.Len == nil {
			elt, err := b.typeExpr(t.Elt, params)
			return "[]" + elt, err
		}
	case *ast.MapType:
		k, err := b.typeExpr(t.Key, params)
		if err != nil {
			return "", err
		}
		v, err := b.typeExpr(t.Value, params)
		return "map[" + k + "]" + v, err
	case *ast.InterfaceType:
		if t.Methods == nil || len(t.Methods.List) == 0 {
			return "interface{}", nil
		}
	case *ast.IndexExpr:
		return b.typeList(t.X, []ast.Expr{t.Index}, params)
	case *ast.IndexListExpr:
		return b.typeList(t.X, t.Indices, params)
	}
	return "", fmt.Errorf("unsupported type parameter constraint in %s", b.req.Decl.Name)
}

func (b *builder) typeList(x ast.Expr, args []ast.Expr, params map[string]bool) (string, error) {
	head, err := b.typeExpr(x, params)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(args))
	for _, a := range args {
		s, err := b.typeExpr(a, params)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return head + "[" + strings.Join(parts, ", ") + "]", nil
}

func (b *builder) isPackageType(name string) bool {
	_, ok := b.refl.LookupType(b.req.Decl.Path, name)
	return ok
}

// packageType qualifies a type declared in the declaration's package.
func (b *builder) packageType(name string) (string, bool, error) {
	d, ok := b.refl.LookupType(b.req.Decl.Path, name)
	if !ok {
		return "", false, nil
	}
	s, err := b.env.reference(d.Ref())
	if err != nil {
		return "", false, err
	}
	return s, true, nil
}

// stmt runs one statement emitter; an omitted statement leaves no imports
// or pipe instances behind.
func (b *builder) stmt(fn func() error) error {
	m := b.env.mark()
	err := fn()
	if errors.Is(err, errOmit) {
		b.env.rollback(m)
		return nil
	}
	return err
}

// view emits one template view: self is the structural element the view
// was opened for, nil at the root.
func (b *builder) view(nodes []template.Node, self *template.Element, ls *locals) error {
	elems := viewElements(nodes, self)
	insts := make(map[*template.Element][]instance, len(elems))
	for _, el := range elems {
		list, err := b.instances(el)
		if err != nil {
			return err
		}
		insts[el] = list
	}
	names := make(map[string]bool)
	for _, el := range elems {
		for _, a := range el.Attrs {
			if a.Kind != template.AttrRef {
				continue
			}
			b.reference(el, a, insts[el], ls, names)
		}
	}
	return b.nodes(nodes, self, ls, insts)
}

// viewElements lists elements of a view in template order, not entering
// nested structural elements.
func viewElements(nodes []template.Node, self *template.Element) []*template.Element {
	var out []*template.Element
	template.Walk(nodes, func(n template.Node) bool {
		el, ok := n.(*template.Element)
		if !ok {
			return false
		}
		if el.Structural != nil && el != self {
			return false
		}
		out = append(out, el)
		return true
	})
	return out
}

func (b *builder) instances(el *template.Element) ([]instance, error) {
	if b.req.Scope == nil {
		return nil, nil
	}
	var (
		out        []instance
		components []*scope.DirectiveMeta
	)
	attrs := el.MatchNames()
	for _, d := range b.req.Scope.Directives {
		if !d.Selector.Matches(el.Tag, attrs) {
			continue
		}
		if d.IsComponent {
			components = append(components, d)
		}
		typ, ok, err := b.env.instantiate(d.Ref, d.TypeParams)
		if err != nil {
			return nil, err
		}
		inst := instance{meta: d}
		if ok {
			inst.name = "_d" + strconv.Itoa(b.dirs)
			b.dirs++
			b.w.line(plain(inst.name + " := new(" + typ + ")"))
			b.w.line(plain("_ = " + inst.name))
		}
		out = append(out, inst)
	}
	if len(components) > 1 {
		b.problem(diag.TcbAmbiguousComponent, el.NameSpan, "<%s> matches more than one component: %s and %s",
			el.Tag, components[0].Ref, components[1].Ref)
	}
	return out, nil
}

// reference declares a `#name` template variable.
func (b *builder) reference(el *template.Element, a *template.Attr, insts []instance, ls *locals, names map[string]bool) {
	if a.Name == "ctx" || names[a.Name] {
		b.problem(diag.TcbDuplicateVariable, a.NameSpan, "template variable %q is already defined", a.Name)
		return
	}
	names[a.Name] = true
	var target *instance
	if a.Value != "" {
		for i := range insts {
			if insts[i].meta.ExportAs == a.Value {
				target = &insts[i]
				break
			}
		}
		if target == nil {
			b.problem(diag.TcbUnknownRefTarget, a.ValueSpan, "no directive on <%s> is exported as %q", el.Tag, a.Value)
			ls.declare(a.Name, true)
			return
		}
	} else {
		for i := range insts {
			if insts[i].meta.IsComponent {
				target = &insts[i]
				break
			}
		}
	}
	switch {
	case target != nil && target.name != "" && b.cfg.CheckTypeOfNonDomReferences:
		b.w.line(plain(a.Name + " := " + target.name))
	case target == nil && b.cfg.CheckTypeOfDomReferences:
		b.w.line(plain("var " + a.Name + " *" + b.env.helper("_tcbElement")))
	default:
		ls.declare(a.Name, true)
		return
	}
	b.w.line(plain("_ = " + a.Name))
	ls.declare(a.Name, false)
}

func (b *builder) nodes(nodes []template.Node, self *template.Element, ls *locals, insts map[*template.Element][]instance) error {
	for _, n := range nodes {
		switch n := n.(type) {
		case *template.Interpolation:
			if err := b.stmt(func() error { return b.interpolation(n, ls) }); err != nil {
				return err
			}
		case *template.Element:
			if n.Structural != nil && n != self {
				if err := b.structural(n, ls); err != nil {
					return err
				}
				continue
			}
			if err := b.element(n, ls, insts[n]); err != nil {
				return err
			}
			if err := b.nodes(n.Children, self, ls, insts); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *builder) interpolation(n *template.Interpolation, ls *locals) error {
	val, extras, _, err := b.expression(n.Expr, ls)
	if err != nil {
		return err
	}
	b.discard(val, extras)
	return nil
}

func (b *builder) discard(val piece, extras []piece) {
	b.w.line(plain("_ = "), val)
	for _, x := range extras {
		b.w.line(plain("_ = "), x)
	}
}

// expression renders a bound expression. When a pipe cannot be typed the
// result is untyped: val and extras may only be discarded.
func (b *builder) expression(e *template.Expr, ls *locals) (val piece, extras []piece, typed bool, err error) {
	lo, hi := nodeRange(e.Code, e.X)
	val, err = b.rewrite(e.Code, lo, hi, ls)
	if err != nil {
		return piece{}, nil, false, err
	}
	typed = true
	for _, p := range e.Pipes {
		meta := b.findPipe(p.Name)
		if meta == nil {
			b.problem(diag.TcbMissingPipe, p.NameSpan, "no pipe named %q is in scope", p.Name)
			return piece{}, nil, false, errOmit
		}
		args := make([]piece, 0, len(p.Args))
		for _, a := range p.Args {
			alo, ahi := nodeRange(a.Code, a.X)
			ap, err := b.rewrite(a.Code, alo, ahi, ls)
			if err != nil {
				return piece{}, nil, false, err
			}
			args = append(args, ap)
		}
		if !typed || !b.cfg.CheckTypeOfPipes {
			typed = false
			extras = append(extras, args...)
			continue
		}
		v, ok, err := b.env.pipe(meta)
		if err != nil {
			return piece{}, nil, false, err
		}
		if !ok {
			typed = false
			extras = append(extras, args...)
			continue
		}
		parts := []piece{plain(v + ".Transform("), val}
		for _, a := range args {
			parts = append(parts, plain(", "), a)
		}
		parts = append(parts, plain(")"))
		val = covering(cat(parts...), b.span(template.Range{Start: e.Span.Start, End: p.Span.End}))
	}
	return val, extras, typed, nil
}

func (b *builder) findPipe(name string) *scope.PipeMeta {
	if b.req.Scope == nil {
		return nil
	}
	for _, p := range b.req.Scope.Pipes {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (b *builder) element(el *template.Element, ls *locals, insts []instance) error {
	for _, a := range el.Attrs {
		var err error
		switch a.Kind {
		case template.AttrInput:
			err = b.stmt(func() error { return b.input(a, ls, insts) })
		case template.AttrStatic:
			b.attribute(a, insts)
		case template.AttrOutput:
			err = b.output(a, ls, insts)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) input(a *template.Attr, ls *locals, insts []instance) error {
	val, extras, typed, err := b.expression(a.Expr, ls)
	if err != nil {
		return err
	}
	assigned := false
	for _, inst := range insts {
		field, ok := inst.meta.Input(a.Name)
		if !ok {
			continue
		}
		if !typed || inst.name == "" || !b.cfg.CheckTypeOfInputBindings {
			continue
		}
		if isNil(a.Expr) && !b.cfg.StrictNullInputBindings {
			assigned = true
			continue
		}
		lhs := covering(plain(inst.name+"."+field+" = "), b.span(a.Span))
		b.w.line(lhs, val)
		assigned = true
	}
	if !assigned {
		b.discard(val, extras)
	} else {
		for _, x := range extras {
			b.w.line(plain("_ = "), x)
		}
	}
	return nil
}

func isNil(e *template.Expr) bool {
	id, ok := e.X.(*ast.Ident)
	return ok && id.Name == "nil" && len(e.Pipes) == 0
}

// attribute checks a static attribute that sets a directive input.
func (b *builder) attribute(a *template.Attr, insts []instance) {
	if !b.cfg.CheckTypeOfAttributes {
		return
	}
	for _, inst := range insts {
		field, ok := inst.meta.Input(a.Name)
		if !ok || inst.name == "" {
			continue
		}
		stmt := covering(plain(inst.name+"."+field+" = "+strconv.Quote(a.Value)), b.span(a.Span))
		b.w.line(stmt)
	}
}

func (b *builder) output(a *template.Attr, ls *locals, insts []instance) error {
	inner := ls.child()
	var header piece
	var target *instance
	var field string
	for i := range insts {
		if f, ok := insts[i].meta.Output(a.Name); ok {
			target, field = &insts[i], f
			break
		}
	}
	switch {
	case target != nil && target.name != "" && b.cfg.CheckTypeOfOutputEvents:
		header = covering(plain(template.EventIdent+" := "+b.env.helper("_tcbEvent")+"("+target.name+"."+field+")"), b.span(a.NameSpan))
	case target == nil && b.cfg.CheckTypeOfDomEvents:
		header = plain("var " + template.EventIdent + " " + b.env.helper("_tcbDOMEvent"))
	}
	inner.declare(template.EventIdent, header.text == "")

	var body []piece
	for _, s := range a.Handler.Stmts {
		lo, hi := nodeRange(a.Handler.Code, s)
		m := b.env.mark()
		p, err := b.rewrite(a.Handler.Code, lo, hi, inner)
		if errors.Is(err, errOmit) {
			b.env.rollback(m)
			continue
		}
		if err != nil {
			return err
		}
		body = append(body, p)
	}
	if len(body) == 0 {
		return nil
	}
	b.w.open()
	if header.text != "" {
		b.w.line(header)
		b.w.line(plain("_ = " + template.EventIdent))
	}
	for _, p := range body {
		b.w.line(p)
	}
	b.w.close()
	return nil
}

func (b *builder) structural(el *template.Element, ls *locals) error {
	m := b.env.mark()
	var err error
	switch st := el.Structural; {
	case st.If != nil:
		err = b.guard(el, st.If, ls)
	case st.For != nil:
		err = b.loop(el, st.For, ls)
	}
	if errors.Is(err, errOmit) {
		b.env.rollback(m)
		return nil
	}
	return err
}

func (b *builder) guard(el *template.Element, g *template.Guard, ls *locals) error {
	inner := ls.child()
	var (
		init    piece
		hasInit bool
		names   []string
	)
	if g.Init != nil {
		lo, hi := nodeRange(g.Code, g.Init)
		p, err := b.rewrite(g.Code, lo, hi, ls)
		if err != nil {
			return err
		}
		init, hasInit = p, true
		for _, id := range declaredNames(g.Init) {
			inner.declare(id.Name, false)
			names = append(names, id.Name)
		}
	}
	lo, hi := nodeRange(g.Code, g.Cond)
	cond, err := b.rewrite(g.Code, lo, hi, inner)
	if err != nil {
		return err
	}
	if b.cfg.ApplyTemplateContextGuards {
		header := []piece{plain("if ")}
		if hasInit {
			header = append(header, init, plain("; "))
		}
		b.w.open(append(header, cond)...)
	} else {
		b.w.open()
		if hasInit {
			b.w.line(init)
		}
	}
	for _, n := range names {
		b.w.line(plain("_ = " + n))
	}
	if !b.cfg.ApplyTemplateContextGuards {
		b.w.line(plain("_ = "), cond)
	}
	if b.cfg.CheckTemplateBodies {
		if err := b.view([]template.Node{el}, el, inner); err != nil {
			return err
		}
	}
	b.w.close()
	return nil
}

func (b *builder) loop(el *template.Element, l *template.Loop, ls *locals) error {
	lo, hi := nodeRange(l.Code, l.X)
	x, err := b.rewrite(l.Code, lo, hi, ls)
	if err != nil {
		return err
	}
	if !b.cfg.CheckTemplateBodies {
		b.w.line(plain("for range "), x, plain(" {}"))
		return nil
	}
	inner := ls.child()
	var vars []string
	for _, id := range []*ast.Ident{l.Key, l.Value} {
		if id == nil {
			continue
		}
		vars = append(vars, id.Name)
		if id.Name != "_" {
			inner.declare(id.Name, false)
		}
	}
	head := "for range "
	if len(vars) > 0 {
		head = "for " + strings.Join(vars, ", ") + " := range "
	}
	b.w.open(plain(head), x)
	for _, v := range vars {
		if v != "_" {
			b.w.line(plain("_ = " + v))
		}
	}
	if err := b.view([]template.Node{el}, el, inner); err != nil {
		return err
	}
	b.w.close()
	return nil
}
