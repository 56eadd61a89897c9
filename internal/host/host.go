// Package host declares the contract between the analysis core and the
// program snapshots it runs against. A Program is an immutable value:
// WithOverrides never mutates its receiver.
package host

import (
	"go/ast"
	"go/token"

	"tmplcheck/internal/source"
)

// SourceUnit is one parsed unit of a program snapshot.
type SourceUnit struct {
	Path      string
	File      source.FileID
	AST       *ast.File // may be partial when the unit has syntax errors
	Fset      *token.FileSet
	Synthetic bool
}

// Offset converts a position inside the unit into a byte offset.
func (u *SourceUnit) Offset(pos token.Pos) int {
	return u.Fset.Position(pos).Offset
}

// Span returns the span of n inside the unit.
func (u *SourceUnit) Span(n ast.Node) source.Span {
	return source.SpanOf(u.File, u.Offset(n.Pos()), u.Offset(n.End()))
}

// Override replaces or adds a unit in a derived snapshot.
type Override struct {
	Path string
	Text string
	// Replaces names a root unit this override supersedes for checking
	// (inline shadows); empty for brand-new units.
	Replaces string
}

// Diagnostic is a checker finding in host coordinates.
type Diagnostic struct {
	Path    string
	Start   int
	End     int
	Message string
	Soft    bool
}

// ModuleResolver maps an import path seen in containingFile to a package directory.
type ModuleResolver interface {
	ResolveModule(importPath, containingFile string) (dir string, ok bool)
}

// ResourceLoader reads non-Go resources such as external templates.
type ResourceLoader interface {
	ReadResource(path string) ([]byte, error)
}

// Program is a queryable, immutable checker snapshot.
type Program interface {
	ModuleResolver
	ResourceLoader

	// Version is unique per snapshot.
	Version() uint64
	// FileSet is shared by every snapshot derived from the same root.
	FileSet() *source.FileSet
	// Root is the module root directory.
	Root() string
	// ModulePath is the module's import path prefix.
	ModulePath() string
	// RootDirs are the configured source roots, never empty.
	RootDirs() []string
	// SourceFiles lists ordinary (non-override) units in sorted order.
	SourceFiles() []string
	// SourceFile returns a root unit or an override unit by path.
	SourceFile(path string) (*SourceUnit, bool)
	// Diagnostics type-checks the unit's package and returns findings inside the unit.
	Diagnostics(path string) []Diagnostic
	// WithOverrides derives a new snapshot from the receiver's root units
	// plus the given overrides. Overrides of the receiver are not inherited.
	WithOverrides(overrides []Override) Program
}
