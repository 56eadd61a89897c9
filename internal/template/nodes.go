// Package template parses the template language: text with {{ expr }}
// interpolation, elements with static, bound, event, reference and
// structural attributes. Embedded code is Go and is parsed with go/parser;
// every node keeps its offsets inside the template text.
package template

import (
	"go/ast"
	"go/token"
)

// Range is a half-open byte range of the template text.
type Range struct {
	Start int
	End   int
}

// Contains reports whether other lies within r.
func (r Range) Contains(other Range) bool {
	return r.Start <= other.Start && other.End <= r.End
}

// Node is a template node.
type Node interface {
	NodeRange() Range
}

type Text struct {
	Span  Range
	Value string
}

type Interpolation struct {
	Span Range // including the braces
	Expr *Expr
}

// Element is an element with its attributes and children.
type Element struct {
	Tag         string
	Span        Range
	NameSpan    Range
	Attrs       []*Attr
	Children    []Node
	Structural  *Structural
	SelfClosing bool
}

func (t *Text) NodeRange() Range          { return t.Span }
func (i *Interpolation) NodeRange() Range { return i.Span }
func (e *Element) NodeRange() Range       { return e.Span }

// AttrKind classifies an attribute by its syntax.
type AttrKind uint8

const (
	AttrStatic     AttrKind = iota // name="v"
	AttrInput                      // [name]="expr"
	AttrOutput                     // (name)="stmts"
	AttrRef                        // #name or #name="exportAs"
	AttrStructural                 // *if / *for
)

// Attr is one attribute as written.
type Attr struct {
	Kind      AttrKind
	Name      string // without decoration
	NameSpan  Range  // of the decorated name
	Value     string
	ValueSpan Range // inside the quotes
	HasValue  bool
	Span      Range

	Expr    *Expr    // AttrInput
	Handler *Handler // AttrOutput
}

// Structural is the *if or *for attribute of an element.
type Structural struct {
	Attr *Attr
	If   *Guard
	For  *Loop
}

// MatchNames lists attribute names that take part in selector matching.
func (e *Element) MatchNames() []string {
	out := make([]string, 0, len(e.Attrs))
	for _, a := range e.Attrs {
		switch a.Kind {
		case AttrStatic, AttrInput, AttrOutput:
			out = append(out, a.Name)
		}
	}
	return out
}

// Code is one Go snippet embedded in the template, parsed inside a wrapper file.
type Code struct {
	Text  string // as parsed; $event is already rewritten to _event
	Start int    // template offset of Text[0]
	File  *ast.File

	fset   *token.FileSet
	prefix int
}

// Offset maps a position of File onto a template offset.
func (c *Code) Offset(pos token.Pos) int {
	return c.Start + c.Local(pos)
}

// Local maps a position of File onto an offset into Text.
func (c *Code) Local(pos token.Pos) int {
	return c.fset.Position(pos).Offset - c.prefix
}

// RangeOf returns the template range of n.
func (c *Code) RangeOf(n ast.Node) Range {
	return Range{Start: c.Offset(n.Pos()), End: c.Offset(n.End())}
}

// Expr is a bound expression with an optional pipe chain.
type Expr struct {
	Code  *Code
	X     ast.Expr
	Pipes []*Pipe
	Span  Range // the whole expression including pipes
}

// Pipe is `| name:arg:arg`.
type Pipe struct {
	Name     string
	NameSpan Range
	Args     []*Expr
	Span     Range
}

// Handler is an event handler: simple statements run with _event in scope.
type Handler struct {
	Code  *Code
	Stmts []ast.Stmt
	Span  Range
}

// Guard is a `*if="[init; ]cond"` header.
type Guard struct {
	Code *Code
	Init ast.Stmt
	Cond ast.Expr
	Span Range
}

// Loop is a `*for="[k, ]v := range x"` header. Key and Value are nil when
// absent, as in a range statement.
type Loop struct {
	Code  *Code
	Key   *ast.Ident
	Value *ast.Ident
	X     ast.Expr
	Span  Range
}

// Template is a parsed template.
type Template struct {
	Text  string
	Nodes []Node
}

// ErrorKind classifies syntax errors.
type ErrorKind uint8

const (
	ErrExpression ErrorKind = iota
	ErrUnclosed
	ErrMismatched
	ErrInterpolation
	ErrAttribute
	ErrMalformedAttr
	ErrMultipleStructural
	ErrInvalidStructural
	ErrUnknownStructural
)

// Error is a syntax error at a template range.
type Error struct {
	Kind ErrorKind
	Span Range
	Msg  string
}

func (e Error) Error() string { return e.Msg }

// Walk visits nodes depth-first in template order.
func Walk(nodes []Node, fn func(Node) bool) {
	for _, n := range nodes {
		if !fn(n) {
			continue
		}
		if el, ok := n.(*Element); ok {
			Walk(el.Children, fn)
		}
	}
}
