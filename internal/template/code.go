package template

import (
	"errors"
	"go/ast"
	goparser "go/parser"
	"go/scanner"
	"go/token"
	"strings"
)

const (
	stmtPrefix = "package p;func _(){"
	stmtSuffix = "\n}"
	exprPrefix = stmtPrefix + "_ = "
	ifPrefix   = stmtPrefix + "if "
	forPrefix  = stmtPrefix + "for "
	headSuffix = " {}" + stmtSuffix
)

// EventName is the identifier templates use for the event value.
const EventName = "$event"

// EventIdent is what EventName becomes inside parsed handlers.
const EventIdent = "_event"

// parseCode parses text inside a wrapper; nil means errors were recorded.
func (p *parser) parseCode(text string, start int, prefix, suffix string) *Code {
	f, err := goparser.ParseFile(p.fset, "", prefix+text+suffix, goparser.SkipObjectResolution)
	if err != nil {
		p.codeErrors(err, start, len(text), len(prefix))
		return nil
	}
	return &Code{Text: text, Start: start, File: f, fset: p.fset, prefix: len(prefix)}
}

func (p *parser) codeErrors(err error, start, n, prefix int) {
	var list scanner.ErrorList
	if !errors.As(err, &list) {
		p.errorf(ErrExpression, start, start+n, err.Error())
		return
	}
	for _, e := range list {
		off := e.Pos.Offset - prefix
		off = max(0, min(off, n))
		end := min(off+1, n)
		p.errorf(ErrExpression, start+off, start+max(end, off), e.Msg)
	}
}

func body(c *Code) []ast.Stmt {
	for _, d := range c.File.Decls {
		if fn, ok := d.(*ast.FuncDecl); ok && fn.Body != nil {
			return fn.Body.List
		}
	}
	return nil
}

// expression parses `expr [| pipe[:arg]...]...`.
func (p *parser) expression(text string, start int, allowPipes bool) *Expr {
	segments := splitTopLevel(text, '|')
	if !allowPipes && len(segments) > 1 {
		p.errorf(ErrExpression, start+segments[1].start-1, start+segments[1].start, "pipes are not allowed here")
		return nil
	}
	head := segments[0]
	x, code := p.singleExpr(text[head.start:head.end], start+head.start)
	if x == nil {
		return nil
	}
	e := &Expr{Code: code, X: x, Span: trimmedRange(text, start)}
	for _, seg := range segments[1:] {
		pipe := p.pipe(text[seg.start:seg.end], start+seg.start)
		if pipe == nil {
			return nil
		}
		e.Pipes = append(e.Pipes, pipe)
	}
	return e
}

func (p *parser) singleExpr(text string, start int) (ast.Expr, *Code) {
	if strings.TrimSpace(text) == "" {
		p.errorf(ErrExpression, start, start+len(text), "empty expression")
		return nil, nil
	}
	code := p.parseCode(text, start, exprPrefix, stmtSuffix)
	if code == nil {
		return nil, nil
	}
	stmts := body(code)
	as, ok := singleAssign(stmts)
	if !ok {
		p.errorf(ErrExpression, start, start+len(text), "expected a single expression")
		return nil, nil
	}
	return as.Rhs[0], code
}

func singleAssign(stmts []ast.Stmt) (*ast.AssignStmt, bool) {
	if len(stmts) != 1 {
		return nil, false
	}
	as, ok := stmts[0].(*ast.AssignStmt)
	if !ok || len(as.Lhs) != 1 || len(as.Rhs) != 1 || as.Tok != token.ASSIGN {
		return nil, false
	}
	return as, true
}

func (p *parser) pipe(text string, start int) *Pipe {
	parts := splitTopLevel(text, ':')
	nameText := text[parts[0].start:parts[0].end]
	name := strings.TrimSpace(nameText)
	lead := strings.Index(nameText, name)
	nameSpan := Range{Start: start + parts[0].start + lead, End: start + parts[0].start + lead + len(name)}
	if !token.IsIdentifier(name) {
		p.errorf(ErrExpression, start, start+len(text), "invalid pipe name "+strings.TrimSpace(text))
		return nil
	}
	pipe := &Pipe{Name: name, NameSpan: nameSpan, Span: Range{Start: nameSpan.Start, End: trimmedRange(text, start).End}}
	for _, part := range parts[1:] {
		x, code := p.singleExpr(text[part.start:part.end], start+part.start)
		if x == nil {
			return nil
		}
		pipe.Args = append(pipe.Args, &Expr{Code: code, X: x, Span: code.RangeOf(x)})
	}
	return pipe
}

// handler parses event statements; $event becomes _event.
func (p *parser) handler(text string, start int) *Handler {
	if strings.TrimSpace(text) == "" {
		p.errorf(ErrExpression, start, start+len(text), "empty event handler")
		return nil
	}
	text = strings.ReplaceAll(text, EventName, EventIdent)
	code := p.parseCode(text, start, stmtPrefix, stmtSuffix)
	if code == nil {
		return nil
	}
	stmts := body(code)
	for _, s := range stmts {
		switch s := s.(type) {
		case *ast.ExprStmt, *ast.IncDecStmt:
		case *ast.AssignStmt:
			if s.Tok == token.DEFINE {
				r := code.RangeOf(s)
				p.errorf(ErrExpression, r.Start, r.End, "declarations are not allowed in event handlers")
				return nil
			}
		default:
			r := code.RangeOf(s)
			p.errorf(ErrExpression, r.Start, r.End, "unsupported statement in event handler")
			return nil
		}
	}
	return &Handler{Code: code, Stmts: stmts, Span: Range{Start: start, End: start + len(text)}}
}

func (p *parser) guard(text string, start int) *Guard {
	code := p.parseCode(text, start, ifPrefix, headSuffix)
	if code == nil {
		return nil
	}
	stmts := body(code)
	var is *ast.IfStmt
	if len(stmts) == 1 {
		is, _ = stmts[0].(*ast.IfStmt)
	}
	if is == nil || is.Else != nil || len(is.Body.List) != 0 || code.Local(is.Body.Lbrace) != len(text)+1 {
		p.errorf(ErrInvalidStructural, start, start+len(text), `*if expects "[init; ]condition"`)
		return nil
	}
	return &Guard{Code: code, Init: is.Init, Cond: is.Cond, Span: Range{Start: start, End: start + len(text)}}
}

func (p *parser) loop(text string, start int) *Loop {
	code := p.parseCode(text, start, forPrefix, headSuffix)
	if code == nil {
		return nil
	}
	stmts := body(code)
	var rs *ast.RangeStmt
	if len(stmts) == 1 {
		rs, _ = stmts[0].(*ast.RangeStmt)
	}
	bad := rs == nil || len(rs.Body.List) != 0 || code.Local(rs.Body.Lbrace) != len(text)+1
	if !bad && rs.Key != nil && rs.Tok != token.DEFINE {
		bad = true
	}
	l := &Loop{Code: code, Span: Range{Start: start, End: start + len(text)}}
	if !bad {
		l.X = rs.X
		for _, slot := range []struct {
			expr ast.Expr
			dst  **ast.Ident
		}{{rs.Key, &l.Key}, {rs.Value, &l.Value}} {
			if slot.expr == nil {
				continue
			}
			id, ok := slot.expr.(*ast.Ident)
			if !ok {
				bad = true
				break
			}
			*slot.dst = id
		}
	}
	if bad {
		p.errorf(ErrInvalidStructural, start, start+len(text), `*for expects "[k, ]v := range expr"`)
		return nil
	}
	return l
}

func trimmedRange(text string, start int) Range {
	const space = " \t\r\n"
	lead := len(text) - len(strings.TrimLeft(text, space))
	return Range{Start: start + lead, End: start + len(strings.TrimRight(text, space))}
}

type segment struct {
	start int
	end   int
}

// splitTopLevel splits at sep outside brackets and literals; `||` never
// splits.
func splitTopLevel(text string, sep byte) []segment {
	var out []segment
	depth, from := 0, 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch c {
		case '"', '\'', '`':
			if j := skipQuoted(text, i); j >= 0 {
				i = j
			} else {
				i = len(text)
			}
			continue
		case '(', '[', '{':
			depth++
			continue
		case ')', ']', '}':
			depth--
			continue
		}
		if c != sep || depth != 0 {
			continue
		}
		if sep == '|' && (i+1 < len(text) && text[i+1] == '|' || i > 0 && text[i-1] == '|') {
			continue
		}
		out = append(out, segment{start: from, end: i})
		from = i + 1
	}
	return append(out, segment{start: from, end: len(text)})
}
