// Package partial evaluates marker arguments symbolically: literals,
// package constants, string concatenation, slices and type references.
// Nothing is executed; anything else evaluates to a dynamic value.
package partial

import (
	"fmt"
	"strconv"

	"tmplcheck/internal/imports"
	"tmplcheck/internal/source"
)

// Kind classifies a Value.
type Kind uint8

const (
	KindDynamic Kind = iota
	KindString
	KindInt
	KindBool
	KindList
	KindRef
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindRef:
		return "type reference"
	default:
		return "dynamic value"
	}
}

// Origin locates the characters of a string value in a file.
type Origin struct {
	File   source.FileID
	Path   string
	Offset int // file offset of the first content byte
	// Exact means content byte i is at Offset+i.
	Exact bool
}

// Value is the result of evaluating one expression.
type Value struct {
	Kind   Kind
	Str    string
	Int    int64
	Bool   bool
	List   []Value
	Ref    imports.Reference
	Origin *Origin     // strings taken verbatim from a single literal
	Span   source.Span // the expression that produced the value
	Reason string      // why a value is dynamic
}

func dynamic(span source.Span, format string, args ...any) Value {
	return Value{Kind: KindDynamic, Span: span, Reason: fmt.Sprintf(format, args...)}
}

func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return strconv.Quote(v.Str)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindList:
		return fmt.Sprintf("list(%d)", len(v.List))
	case KindRef:
		return v.Ref.String()
	default:
		return "dynamic(" + v.Reason + ")"
	}
}
