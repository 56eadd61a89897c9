// Package scope keeps the metadata handlers publish during analysis and
// computes compilation scopes: which directives and pipes a declaration's
// template may use, as determined by the modules that declare it.
package scope

import (
	"go/ast"

	"tmplcheck/internal/imports"
	"tmplcheck/internal/selector"
	"tmplcheck/internal/source"
)

// Binding maps a public binding name onto a struct field.
type Binding struct {
	Name  string
	Field string
}

// TypeParam is a type parameter of a declaration; Any means its constraint is `any`.
type TypeParam struct {
	Name string
	Any  bool
}

// DirectiveMeta describes a directive or component.
type DirectiveMeta struct {
	Ref         imports.Reference
	Selector    selector.Selector
	Inputs      []Binding
	Outputs     []Binding
	ExportAs    string
	IsComponent bool
	TypeParams  []TypeParam
}

// Input returns the field bound by input name.
func (m *DirectiveMeta) Input(name string) (string, bool) {
	return lookup(m.Inputs, name)
}

// Output returns the field bound by output name.
func (m *DirectiveMeta) Output(name string) (string, bool) {
	return lookup(m.Outputs, name)
}

func lookup(bs []Binding, name string) (string, bool) {
	for _, b := range bs {
		if b.Name == name {
			return b.Field, true
		}
	}
	return "", false
}

// Instantiable reports whether the type can be named without knowing its
// type arguments, instantiating `any` parameters with `any`.
func Instantiable(params []TypeParam) bool {
	for _, p := range params {
		if !p.Any {
			return false
		}
	}
	return true
}

// PipeMeta describes a pipe.
type PipeMeta struct {
	Ref        imports.Reference
	Name       string
	TypeParams []TypeParam
}

// Entry is one type reference listed by a module, with its marker span.
type Entry struct {
	Ref  imports.Reference
	Span source.Span
}

// ModuleMeta describes a module.
type ModuleMeta struct {
	Ref          imports.Reference
	Declarations []Entry
	Imports      []Entry
	Exports      []Entry
}

// TypeParamsOf describes a declared type parameter list.
func TypeParamsOf(fl *ast.FieldList) []TypeParam {
	if fl == nil {
		return nil
	}
	var out []TypeParam
	for _, f := range fl.List {
		id, isAny := f.Type.(*ast.Ident)
		anyConstraint := isAny && id.Name == "any"
		if it, ok := f.Type.(*ast.InterfaceType); ok && (it.Methods == nil || len(it.Methods.List) == 0) {
			anyConstraint = true
		}
		for _, n := range f.Names {
			out = append(out, TypeParam{Name: n.Name, Any: anyConstraint})
		}
	}
	return out
}
