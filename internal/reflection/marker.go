package reflection

import (
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"strings"

	"tmplcheck/internal/source"
)

// MarkerPrefix starts a declaration marker line in a doc comment.
const MarkerPrefix = "//tmpl:"

// markerSnippetPrefix turns a marker body into a parseable composite literal.
const markerSnippetPrefix = "_T"

// Marker is one `//tmpl:<kind>{...}` line attached to a declaration.
type Marker struct {
	Kind     string
	Args     *ast.CompositeLit // nil when the marker has no body or the body did not parse
	Span     source.Span       // the whole comment line
	KindSpan source.Span
	Errors   []MarkerError

	fset *token.FileSet
	file source.FileID
	base int
}

// MarkerError is a syntax problem inside a marker body.
type MarkerError struct {
	Span source.Span
	Msg  string
}

// Offset maps a position inside Args onto a byte offset of the declaring file.
func (m *Marker) Offset(pos token.Pos) int {
	return m.base + m.fset.Position(pos).Offset
}

// SpanOf returns the file span of a node of Args.
func (m *Marker) SpanOf(n ast.Node) source.Span {
	return source.SpanOf(m.file, m.Offset(n.Pos()), m.Offset(n.End()))
}

// Field returns the value expression of key in the marker body.
func (m *Marker) Field(key string) (ast.Expr, bool) {
	if m.Args == nil {
		return nil, false
	}
	for _, elt := range m.Args.Elts {
		kv, ok := elt.(*ast.KeyValueExpr)
		if !ok {
			continue
		}
		if id, ok := kv.Key.(*ast.Ident); ok && id.Name == key {
			return kv.Value, true
		}
	}
	return nil, false
}

// Keys lists the marker body keys in written order; positional elements
// are reported as "".
func (m *Marker) Keys() []string {
	if m.Args == nil {
		return nil
	}
	out := make([]string, 0, len(m.Args.Elts))
	for _, elt := range m.Args.Elts {
		name := ""
		if kv, ok := elt.(*ast.KeyValueExpr); ok {
			if id, ok := kv.Key.(*ast.Ident); ok {
				name = id.Name
			}
		}
		out = append(out, name)
	}
	return out
}

// parseMarker parses one comment; ok is false when c is not a marker.
func parseMarker(c *ast.Comment, offset int, file source.FileID) (*Marker, bool) {
	if !strings.HasPrefix(c.Text, MarkerPrefix) {
		return nil, false
	}
	rest := c.Text[len(MarkerPrefix):]
	kindLen := 0
	for kindLen < len(rest) && isKindByte(rest[kindLen]) {
		kindLen++
	}
	if kindLen == 0 {
		return nil, false
	}
	m := &Marker{
		Kind:     rest[:kindLen],
		Span:     source.SpanOf(file, offset, offset+len(c.Text)),
		KindSpan: source.SpanOf(file, offset+len(MarkerPrefix), offset+len(MarkerPrefix)+kindLen),
		fset:     token.NewFileSet(),
		file:     file,
	}
	body := strings.TrimRight(rest[kindLen:], " \t")
	if body == "" {
		return m, true
	}
	bodyOffset := offset + len(MarkerPrefix) + kindLen
	m.base = bodyOffset - len(markerSnippetPrefix)
	expr, err := parser.ParseExprFrom(m.fset, "", markerSnippetPrefix+body, 0)
	if err != nil {
		m.addParseErrors(err)
		return m, true
	}
	lit, ok := expr.(*ast.CompositeLit)
	if !ok {
		m.Errors = append(m.Errors, MarkerError{
			Span: source.SpanOf(file, bodyOffset, bodyOffset+len(body)),
			Msg:  "marker arguments must be a {Key: value} list",
		})
		return m, true
	}
	m.Args = lit
	return m, true
}

func (m *Marker) addParseErrors(err error) {
	list, ok := err.(scanner.ErrorList)
	if !ok {
		m.Errors = append(m.Errors, MarkerError{Span: m.KindSpan, Msg: err.Error()})
		return
	}
	for _, e := range list {
		off := m.base + e.Pos.Offset
		m.Errors = append(m.Errors, MarkerError{Span: source.SpanOf(m.file, off, off+1), Msg: e.Msg})
	}
}

func isKindByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b == '_'
}
