package imports

import (
	"path/filepath"
	"strings"

	"tmplcheck/internal/host"
)

// Strategy is one way of reaching a reference.
type Strategy interface {
	Emit(ref Reference, ctx Context) (Emitted, bool)
}

// Emitter runs strategies in order; the first applicable one wins.
type Emitter struct {
	strategies []Strategy
}

// NewEmitter builds an emitter over an ordered chain.
func NewEmitter(strategies ...Strategy) *Emitter {
	return &Emitter{strategies: strategies}
}

// DefaultEmitter chains local, absolute and relative strategies for prog.
func DefaultEmitter(prog host.Program) *Emitter {
	return NewEmitter(
		LocalStrategy{},
		AbsoluteStrategy{Resolver: prog},
		RelativeStrategy{Root: prog.Root(), ModulePath: prog.ModulePath()},
	)
}

// Emit resolves ref or fails with *ReferenceResolutionError.
func (e *Emitter) Emit(ref Reference, ctx Context) (Emitted, error) {
	for _, s := range e.strategies {
		if out, ok := s.Emit(ref, ctx); ok {
			return out, nil
		}
	}
	return Emitted{}, &ReferenceResolutionError{Ref: ref, Context: ctx}
}

// LocalStrategy references declarations of the generated file's own package by name.
type LocalStrategy struct{}

func (LocalStrategy) Emit(ref Reference, ctx Context) (Emitted, bool) {
	if ref.Dir == "" || ref.Dir != ctx.Dir || ref.Package != ctx.Package {
		return Emitted{}, false
	}
	return Emitted{Name: ref.Name}, true
}

// AbsoluteStrategy imports the module path the reference was written through.
type AbsoluteStrategy struct {
	Resolver host.ModuleResolver
}

func (s AbsoluteStrategy) Emit(ref Reference, ctx Context) (Emitted, bool) {
	if ref.OwningModule == "" || !crossPackage(ref) {
		return Emitted{}, false
	}
	if s.Resolver != nil {
		if _, ok := s.Resolver.ResolveModule(ref.OwningModule, ctx.File); !ok {
			return Emitted{}, false
		}
	}
	return Emitted{ImportPath: ref.OwningModule, Name: ref.Name}, true
}

// RelativeStrategy derives the import path from the reference's directory
// relative to the module root.
type RelativeStrategy struct {
	Root       string
	ModulePath string
}

func (s RelativeStrategy) Emit(ref Reference, _ Context) (Emitted, bool) {
	if ref.Dir == "" || s.ModulePath == "" || !crossPackage(ref) {
		return Emitted{}, false
	}
	rel, err := filepath.Rel(s.Root, ref.Dir)
	if err != nil {
		return Emitted{}, false
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return Emitted{}, false
	}
	importPath := s.ModulePath
	if rel != "." {
		importPath += "/" + rel
	}
	return Emitted{ImportPath: importPath, Name: ref.Name}, true
}

// crossPackage reports whether ref can be named from another package at all.
func crossPackage(ref Reference) bool {
	return ref.Exported() && ref.Package != "main"
}
