package template

import (
	"go/ast"
	"strings"
	"testing"
)

func mustParse(t *testing.T, text string) *Template {
	t.Helper()
	tpl, errs := Parse(text)
	if len(errs) != 0 {
		t.Fatalf("Parse(%q): %v", text, errs)
	}
	return tpl
}

func TestParseStructure(t *testing.T) {
	text := `<div class="card" [title]="name" (click)="count++" #box>Hi {{ user.Name | upper }}<br><app-item *for="i, it := range items" [item]="it"/></div><!-- c -->`
	tpl := mustParse(t, text)
	if len(tpl.Nodes) != 1 {
		t.Fatalf("got %d root nodes, want 1", len(tpl.Nodes))
	}
	div := tpl.Nodes[0].(*Element)
	if div.Tag != "div" || len(div.Attrs) != 4 {
		t.Fatalf("div = %+v", div)
	}
	kinds := []AttrKind{AttrStatic, AttrInput, AttrOutput, AttrRef}
	for i, a := range div.Attrs {
		if a.Kind != kinds[i] {
			t.Fatalf("attr %d kind = %d, want %d", i, a.Kind, kinds[i])
		}
	}
	if got := strings.Join(div.MatchNames(), ","); got != "class,title,click" {
		t.Fatalf("match names = %s", got)
	}
	if text[div.Span.Start:div.Span.End] != text[:strings.Index(text, "<!--")] {
		t.Fatalf("div span = %+v", div.Span)
	}
	if len(div.Children) != 4 {
		t.Fatalf("div has %d children, want 4", len(div.Children))
	}
	interp := div.Children[1].(*Interpolation)
	if got := text[interp.Expr.Span.Start:interp.Expr.Span.End]; got != "user.Name | upper" {
		t.Fatalf("interpolation span covers %q", got)
	}
	if len(interp.Expr.Pipes) != 1 || interp.Expr.Pipes[0].Name != "upper" {
		t.Fatalf("pipes = %+v", interp.Expr.Pipes)
	}
	sel, ok := interp.Expr.X.(*ast.SelectorExpr)
	if !ok {
		t.Fatalf("head expression is %T", interp.Expr.X)
	}
	r := interp.Expr.Code.RangeOf(sel.X)
	if got := text[r.Start:r.End]; got != "user" {
		t.Fatalf("ident range covers %q", got)
	}
	if br := div.Children[2].(*Element); br.Tag != "br" || len(br.Children) != 0 {
		t.Fatalf("void element parsed as %+v", br)
	}
	item := div.Children[3].(*Element)
	if item.Structural == nil || item.Structural.For == nil || !item.SelfClosing {
		t.Fatalf("structural loop missing: %+v", item)
	}
	loop := item.Structural.For
	if loop.Key.Name != "i" || loop.Value.Name != "it" {
		t.Fatalf("loop vars = %v, %v", loop.Key, loop.Value)
	}
	if r := loop.Code.RangeOf(loop.X); text[r.Start:r.End] != "items" {
		t.Fatalf("range expression covers %q", text[r.Start:r.End])
	}
}

func TestParseHandlerAndGuard(t *testing.T) {
	text := `<p *if="u, ok := item.(User); ok" (save)="store($event); n += 1">x</p>`
	tpl := mustParse(t, text)
	p := tpl.Nodes[0].(*Element)
	g := p.Structural.If
	if g == nil || g.Init == nil || g.Cond == nil {
		t.Fatalf("guard = %+v", g)
	}
	h := p.Attrs[1].Handler
	if h == nil || len(h.Stmts) != 2 {
		t.Fatalf("handler = %+v", h)
	}
	if !strings.Contains(h.Code.Text, EventIdent) || strings.Contains(h.Code.Text, EventName) {
		t.Fatalf("event name not rewritten: %q", h.Code.Text)
	}
	call := h.Stmts[0].(*ast.ExprStmt).X.(*ast.CallExpr)
	r := h.Code.RangeOf(call.Args[0])
	if got := text[r.Start:r.End]; got != "$event" {
		t.Fatalf("event argument covers %q", got)
	}
}

func TestParsePipeArgs(t *testing.T) {
	text := `{{ price | currency:"EUR":2 | trim }}{{ a || b }}{{ xs[1:2] }}`
	tpl := mustParse(t, text)
	first := tpl.Nodes[0].(*Interpolation).Expr
	if len(first.Pipes) != 2 || len(first.Pipes[0].Args) != 2 || first.Pipes[1].Name != "trim" {
		t.Fatalf("pipes = %+v", first.Pipes)
	}
	arg := first.Pipes[0].Args[0]
	if got := text[arg.Span.Start:arg.Span.End]; got != `"EUR"` {
		t.Fatalf("pipe arg covers %q", got)
	}
	if n := len(tpl.Nodes[1].(*Interpolation).Expr.Pipes); n != 0 {
		t.Fatalf("|| split into %d pipes", n)
	}
	if n := len(tpl.Nodes[2].(*Interpolation).Expr.Pipes); n != 0 {
		t.Fatalf("slice colon split into pipe args")
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		text string
		want string
		at   string
	}{
		{`<div><span></div>`, "unclosed element <span>", "span"},
		{`<div>`, "unclosed element <div>", "div"},
		{`</b>`, "unexpected closing tag </b>", "</b>"},
		{`{{ a + }}`, "expected operand", ""},
		{`{{ a`, "unterminated interpolation", "{{"},
		{`<a [x]="1">`, "unclosed element <a>", "a"},
		{`<a [x]>x</a>`, "binding [x] needs a value", "[x]"},
		{`<a (c)="x := 1">x</a>`, "declarations are not allowed in event handlers", "x := 1"},
		{`<a *if="x" *for="v := range y">x</a>`, "only one structural attribute is allowed per element", "*for"},
		{`<a *for="i := 0; i < 3; i++">x</a>`, `*for expects "[k, ]v := range expr"`, "i := 0; i < 3; i++"},
		{`<a title="x>y</a>`, "unterminated attribute value", ""},
		{`{{ x | 1up }}`, "invalid pipe name 1up", ""},
		{`<!-- never closed`, "unterminated comment", "<!--"},
		{`<input></input>`, "void element <input> has no closing tag", "</input>"},
	}
	for _, c := range cases {
		_, errs := Parse(c.text)
		if len(errs) == 0 {
			t.Fatalf("Parse(%q) succeeded", c.text)
		}
		found := false
		for _, e := range errs {
			if !strings.Contains(e.Msg, c.want) {
				continue
			}
			found = true
			if c.at != "" {
				if got := c.text[e.Span.Start:e.Span.End]; got != c.at {
					t.Fatalf("Parse(%q): error %q covers %q, want %q", c.text, e.Msg, got, c.at)
				}
			}
			if e.Span.Start < 0 || e.Span.End > len(c.text) {
				t.Fatalf("Parse(%q): error span %+v out of range", c.text, e.Span)
			}
		}
		if !found {
			t.Fatalf("Parse(%q): errors %v do not mention %q", c.text, errs, c.want)
		}
	}
}

func TestWalkOrder(t *testing.T) {
	tpl := mustParse(t, `<a><b>{{x}}</b></a><c></c>`)
	var tags []string
	Walk(tpl.Nodes, func(n Node) bool {
		if el, ok := n.(*Element); ok {
			tags = append(tags, el.Tag)
		}
		return true
	})
	if got := strings.Join(tags, ""); got != "abc" {
		t.Fatalf("walk order = %s", got)
	}
}

func TestParseErrorKinds(t *testing.T) {
	cases := []struct {
		text string
		want ErrorKind
	}{
		{`<div>`, ErrUnclosed},
		{`</b>`, ErrMismatched},
		{`{{ a`, ErrInterpolation},
		{`{{ a + }}`, ErrExpression},
		{`<a title="x>y</a>`, ErrAttribute},
		{`<a [x]>x</a>`, ErrMalformedAttr},
		{`<a *if="x" *for="v := range y">x</a>`, ErrMultipleStructural},
		{`<a *for="x">y</a>`, ErrInvalidStructural},
		{`<a *switch="x">y</a>`, ErrUnknownStructural},
	}
	for _, c := range cases {
		_, errs := Parse(c.text)
		if len(errs) == 0 || errs[0].Kind != c.want {
			t.Fatalf("Parse(%q): got %+v, want first error of kind %d", c.text, errs, c.want)
		}
	}
}
