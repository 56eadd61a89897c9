// Package imports decides how generated code refers to declarations of
// other files: by bare name, through a module import or through a
// module-relative import. ImportManager assigns the aliases.
package imports

import (
	"fmt"
	"go/token"
)

// Reference points at a named type somewhere in the program.
type Reference struct {
	Name    string
	Dir     string // package directory, empty when unknown
	Package string // package clause name
	File    string // declaring file, empty when unknown
	// OwningModule is the import path the reference was written through,
	// empty for references in the same package.
	OwningModule string
}

// Key identifies the referenced declaration.
func (r Reference) Key() string {
	if r.File != "" {
		return r.File + "#" + r.Name
	}
	return r.OwningModule + "." + r.Name
}

// Exported reports whether the name may be referenced from another package.
func (r Reference) Exported() bool { return token.IsExported(r.Name) }

func (r Reference) String() string {
	if r.OwningModule != "" {
		return r.OwningModule + "." + r.Name
	}
	if r.Package != "" {
		return r.Package + "." + r.Name
	}
	return r.Name
}

// Context is the place generated code is written to.
type Context struct {
	Dir     string
	Package string
	File    string
}

// Emitted is the result of a successful strategy: ImportPath is empty for
// a bare reference.
type Emitted struct {
	ImportPath string
	Name       string
}

// ReferenceResolutionError reports that no strategy could reach Ref.
type ReferenceResolutionError struct {
	Ref     Reference
	Context Context
}

func (e *ReferenceResolutionError) Error() string {
	return fmt.Sprintf("cannot reference %s from %s", e.Ref, e.Context.File)
}
