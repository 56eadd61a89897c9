package template

import (
	"go/token"
	"strings"
	"unicode"
	"unicode/utf8"
)

var voidElements = map[string]bool{
	"input": true, "br": true, "img": true, "hr": true, "meta": true, "link": true,
}

type parser struct {
	src  string
	pos  int
	errs []Error
	fset *token.FileSet
}

// Parse parses template text. A non-empty error list means the template
// must not be used.
func Parse(text string) (*Template, []Error) {
	p := &parser{src: text, fset: token.NewFileSet()}
	nodes := p.parseContent()
	if len(p.errs) > 0 {
		return nil, p.errs
	}
	return &Template{Text: text, Nodes: nodes}, nil
}

func (p *parser) errorf(kind ErrorKind, start, end int, msg string) {
	if end < start {
		end = start
	}
	p.errs = append(p.errs, Error{Kind: kind, Span: Range{Start: start, End: end}, Msg: msg})
}

func (p *parser) parseContent() []Node {
	var root []Node
	var stack []*Element
	appendNode := func(n Node) {
		if len(stack) == 0 {
			root = append(root, n)
			return
		}
		top := stack[len(stack)-1]
		top.Children = append(top.Children, n)
	}

	for p.pos < len(p.src) {
		rest := p.src[p.pos:]
		switch {
		case strings.HasPrefix(rest, "<!--"):
			end := strings.Index(rest, "-->")
			if end < 0 {
				p.errorf(ErrUnclosed, p.pos, p.pos+4, "unterminated comment")
				p.pos = len(p.src)
				continue
			}
			p.pos += end + len("-->")
		case strings.HasPrefix(rest, "</"):
			stack = p.closeTag(stack)
		case len(rest) > 1 && rest[0] == '<' && isNameStart(rest[1]):
			el := p.startTag()
			if el == nil {
				continue
			}
			appendNode(el)
			if !el.SelfClosing && !voidElements[el.Tag] {
				stack = append(stack, el)
			}
		case strings.HasPrefix(rest, "{{"):
			if n := p.interpolation(); n != nil {
				appendNode(n)
			}
		default:
			start := p.pos
			p.pos += textLen(rest)
			appendNode(&Text{Span: Range{Start: start, End: p.pos}, Value: p.src[start:p.pos]})
		}
	}
	for i := len(stack) - 1; i >= 0; i-- {
		el := stack[i]
		p.errorf(ErrUnclosed, el.NameSpan.Start, el.NameSpan.End, "unclosed element <"+el.Tag+">")
	}
	return root
}

// textLen finds the end of a text run: the next tag start, comment, closing
// tag or interpolation.
func textLen(rest string) int {
	for i := 1; i < len(rest); i++ {
		switch {
		case rest[i] == '<' && i+1 < len(rest) && (isNameStart(rest[i+1]) || rest[i+1] == '/' || rest[i+1] == '!'):
			return i
		case rest[i] == '{' && i+1 < len(rest) && rest[i+1] == '{':
			return i
		}
	}
	return len(rest)
}

func (p *parser) closeTag(stack []*Element) []*Element {
	start := p.pos
	p.pos += len("</")
	nameStart := p.pos
	for p.pos < len(p.src) && isNameByte(p.src[p.pos]) {
		p.pos++
	}
	name := p.src[nameStart:p.pos]
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '>' {
		p.errorf(ErrMismatched, start, p.pos, "unterminated closing tag")
		return stack
	}
	p.pos++
	end := p.pos
	if voidElements[name] {
		p.errorf(ErrMismatched, start, end, "void element <"+name+"> has no closing tag")
		return stack
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].Tag != name {
			continue
		}
		for j := len(stack) - 1; j > i; j-- {
			p.errorf(ErrUnclosed, stack[j].NameSpan.Start, stack[j].NameSpan.End, "unclosed element <"+stack[j].Tag+">")
		}
		stack[i].Span.End = end
		return stack[:i]
	}
	p.errorf(ErrMismatched, start, end, "unexpected closing tag </"+name+">")
	return stack
}

func (p *parser) startTag() *Element {
	start := p.pos
	p.pos++
	nameStart := p.pos
	for p.pos < len(p.src) && isNameByte(p.src[p.pos]) {
		p.pos++
	}
	el := &Element{
		Tag:      p.src[nameStart:p.pos],
		NameSpan: Range{Start: nameStart, End: p.pos},
		Span:     Range{Start: start},
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			p.errorf(ErrAttribute, start, p.pos, "unterminated start tag <"+el.Tag+">")
			return nil
		}
		switch {
		case strings.HasPrefix(p.src[p.pos:], "/>"):
			p.pos += 2
			el.SelfClosing = true
			el.Span.End = p.pos
			return el
		case p.src[p.pos] == '>':
			p.pos++
			el.Span.End = p.pos
			return el
		}
		attr, ok := p.attribute()
		if !ok {
			return nil
		}
		if attr != nil {
			p.classify(el, attr)
		}
	}
}

// attribute scans `name[=value]`; ok is false when the tag cannot continue.
func (p *parser) attribute() (*Attr, bool) {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '=' || c == '>' || isSpace(c) || (c == '/' && strings.HasPrefix(p.src[p.pos:], "/>")) {
			break
		}
		if c == '"' || c == '\'' || c == '<' {
			p.errorf(ErrMalformedAttr, p.pos, p.pos+1, "unexpected "+string(c)+" in attribute name")
			p.pos = skipTag(p.src, p.pos)
			return nil, false
		}
		p.pos++
	}
	a := &Attr{Name: p.src[start:p.pos], NameSpan: Range{Start: start, End: p.pos}}
	if p.pos < len(p.src) && p.src[p.pos] == '=' {
		p.pos++
		if p.pos >= len(p.src) {
			p.errorf(ErrMalformedAttr, start, p.pos, "missing attribute value")
			return nil, false
		}
		q := p.src[p.pos]
		if q == '"' || q == '\'' {
			end := strings.IndexByte(p.src[p.pos+1:], q)
			if end < 0 {
				p.errorf(ErrAttribute, start, len(p.src), "unterminated attribute value")
				p.pos = len(p.src)
				return nil, false
			}
			a.ValueSpan = Range{Start: p.pos + 1, End: p.pos + 1 + end}
			p.pos += end + 2
		} else {
			vs := p.pos
			for p.pos < len(p.src) && !isSpace(p.src[p.pos]) && p.src[p.pos] != '>' && !strings.HasPrefix(p.src[p.pos:], "/>") {
				p.pos++
			}
			a.ValueSpan = Range{Start: vs, End: p.pos}
		}
		a.Value = p.src[a.ValueSpan.Start:a.ValueSpan.End]
		a.HasValue = true
	}
	a.Span = Range{Start: start, End: p.pos}
	return a, true
}

func skipTag(src string, pos int) int {
	if end := strings.IndexByte(src[pos:], '>'); end >= 0 {
		return pos + end + 1
	}
	return len(src)
}

func (p *parser) classify(el *Element, a *Attr) {
	raw := a.Name
	switch {
	case strings.HasPrefix(raw, "[") || strings.HasPrefix(raw, "("):
		closer := "]"
		kind := AttrInput
		if raw[0] == '(' {
			closer, kind = ")", AttrOutput
		}
		if len(raw) < 3 || !strings.HasSuffix(raw, closer) {
			p.errorf(ErrMalformedAttr, a.NameSpan.Start, a.NameSpan.End, "malformed binding "+raw)
			return
		}
		a.Kind, a.Name = kind, raw[1:len(raw)-1]
		if !a.HasValue {
			p.errorf(ErrMalformedAttr, a.NameSpan.Start, a.NameSpan.End, "binding "+raw+" needs a value")
			return
		}
		if kind == AttrInput {
			a.Expr = p.expression(a.Value, a.ValueSpan.Start, true)
		} else {
			a.Handler = p.handler(a.Value, a.ValueSpan.Start)
		}
	case strings.HasPrefix(raw, "#"):
		a.Kind, a.Name = AttrRef, raw[1:]
		if !token.IsIdentifier(a.Name) || a.Name == "_" {
			p.errorf(ErrMalformedAttr, a.NameSpan.Start, a.NameSpan.End, "reference name "+raw+" is not an identifier")
			return
		}
	case strings.HasPrefix(raw, "*"):
		a.Kind, a.Name = AttrStructural, raw[1:]
		if el.Structural != nil {
			p.errorf(ErrMultipleStructural, a.NameSpan.Start, a.NameSpan.End, "only one structural attribute is allowed per element")
			return
		}
		if !a.HasValue {
			p.errorf(ErrInvalidStructural, a.NameSpan.Start, a.NameSpan.End, raw+" needs a value")
			return
		}
		st := &Structural{Attr: a}
		switch a.Name {
		case "if":
			st.If = p.guard(a.Value, a.ValueSpan.Start)
		case "for":
			st.For = p.loop(a.Value, a.ValueSpan.Start)
		default:
			p.errorf(ErrUnknownStructural, a.NameSpan.Start, a.NameSpan.End, "unknown structural attribute "+raw)
			return
		}
		el.Structural = st
	default:
		if raw == "" {
			p.errorf(ErrMalformedAttr, a.Span.Start, a.Span.End, "empty attribute name")
			return
		}
		a.Kind = AttrStatic
	}
	el.Attrs = append(el.Attrs, a)
}

func (p *parser) interpolation() *Interpolation {
	start := p.pos
	end := closeInterpolation(p.src, start+2)
	if end < 0 {
		p.errorf(ErrInterpolation, start, start+2, "unterminated interpolation")
		p.pos = len(p.src)
		return nil
	}
	p.pos = end + 2
	expr := p.expression(p.src[start+2:end], start+2, true)
	if expr == nil {
		return nil
	}
	return &Interpolation{Span: Range{Start: start, End: p.pos}, Expr: expr}
}

// closeInterpolation returns the offset of the closing braces, skipping Go
// string and rune literals.
func closeInterpolation(src string, from int) int {
	for i := from; i < len(src); i++ {
		switch c := src[i]; c {
		case '"', '\'', '`':
			j := skipQuoted(src, i)
			if j < 0 {
				return -1
			}
			i = j
		case '}':
			if i+1 < len(src) && src[i+1] == '}' {
				return i
			}
		}
	}
	return -1
}

// skipQuoted returns the offset of the closing quote of the literal at i.
func skipQuoted(src string, i int) int {
	q := src[i]
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			if q != '`' {
				j++
			}
		case q:
			return j
		}
	}
	return -1
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && isSpace(p.src[p.pos]) {
		p.pos++
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func isNameStart(c byte) bool {
	if c >= utf8.RuneSelf {
		return true
	}
	return unicode.IsLetter(rune(c))
}

func isNameByte(c byte) bool {
	return isNameStart(c) || c >= '0' && c <= '9' || c == '-' || c == '_' || c == ':' || c == '.'
}
