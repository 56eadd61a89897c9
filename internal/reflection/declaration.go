package reflection

import (
	"go/ast"
	"go/token"

	"tmplcheck/internal/host"
	"tmplcheck/internal/imports"
	"tmplcheck/internal/source"
)

// Declaration is a top-level named type of one source unit.
// Identity is (Path, Name).
type Declaration struct {
	Name    string
	Path    string
	Dir     string
	Package string
	Unit    *host.SourceUnit
	Spec    *ast.TypeSpec
	Markers []*Marker
}

// DeclKey builds the identity key of a declaration.
func DeclKey(path, name string) string {
	return path + "#" + name
}

func (d *Declaration) Key() string { return DeclKey(d.Path, d.Name) }

// Exported reports whether the type name is exported.
func (d *Declaration) Exported() bool { return token.IsExported(d.Name) }

// Ref describes the declaration for the reference emitter.
func (d *Declaration) Ref() imports.Reference {
	return imports.Reference{Name: d.Name, Dir: d.Dir, Package: d.Package, File: d.Path}
}

// NameSpan is the span of the type name.
func (d *Declaration) NameSpan() source.Span {
	return d.Unit.Span(d.Spec.Name)
}

// TypeParams returns the declared type parameters, nil for non-generic types.
func (d *Declaration) TypeParams() *ast.FieldList {
	return d.Spec.TypeParams
}

// Marker returns the first marker of the given kind.
func (d *Declaration) Marker(kind string) (*Marker, bool) {
	for _, m := range d.Markers {
		if m.Kind == kind {
			return m, true
		}
	}
	return nil, false
}

// Fields returns the named struct fields with their types; embedded fields
// are keyed by their type name. Non-struct types have no fields.
func (d *Declaration) Fields() map[string]ast.Expr {
	st, ok := d.Spec.Type.(*ast.StructType)
	if !ok || st.Fields == nil {
		return nil
	}
	out := make(map[string]ast.Expr)
	for _, f := range st.Fields.List {
		if len(f.Names) == 0 {
			if name := embeddedName(f.Type); name != "" {
				out[name] = f.Type
			}
			continue
		}
		for _, n := range f.Names {
			out[n.Name] = f.Type
		}
	}
	return out
}

func embeddedName(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.StarExpr:
		return embeddedName(e.X)
	case *ast.SelectorExpr:
		return e.Sel.Name
	case *ast.IndexExpr:
		return embeddedName(e.X)
	case *ast.IndexListExpr:
		return embeddedName(e.X)
	}
	return ""
}

// Source returns the text of n inside the declaring unit.
func (d *Declaration) Source(content []byte, n ast.Node) string {
	start, end := d.Unit.Offset(n.Pos()), d.Unit.Offset(n.End())
	if start < 0 || end > len(content) || start > end {
		return ""
	}
	return string(content[start:end])
}
