package typecheck

import (
	"tmplcheck/internal/host"
	"tmplcheck/internal/imports"
	"tmplcheck/internal/reflection"
)

// Registry hands out the type-check files of one pass. The external file
// is created once; inline files are keyed by their source file.
type Registry struct {
	prog     host.Program
	emitter  *imports.Emitter
	external *ExternalFile
	inline   map[string]*InlineFile
	order    []File
}

// NewRegistry creates an empty registry over the analysed program.
func NewRegistry(prog host.Program) *Registry {
	return &Registry{
		prog:    prog,
		emitter: imports.DefaultEmitter(prog),
		inline:  make(map[string]*InlineFile),
	}
}

// External returns the shared file.
func (r *Registry) External() *ExternalFile {
	if r.external == nil {
		r.external = newExternalFile(ExternalPath(r.prog.RootDirs()), r.emitter)
		r.order = append(r.order, r.external)
	}
	return r.external
}

// Inline returns the shadow of the file declaring d.
func (r *Registry) Inline(d *reflection.Declaration) (*InlineFile, error) {
	if f, ok := r.inline[d.Path]; ok {
		return f, nil
	}
	u, ok := r.prog.SourceFile(d.Path)
	if !ok || u.AST == nil || u.AST.Name == nil {
		return nil, invariantf("no parsed unit for %s", d.Path)
	}
	sf := r.prog.FileSet().Get(u.File)
	if sf == nil {
		return nil, invariantf("no content for %s", d.Path)
	}
	f := newInlineFile(u, string(sf.Content), d.Dir, r.emitter)
	r.inline[d.Path] = f
	r.order = append(r.order, f)
	return f, nil
}

// RenderAll returns every file created so far, in creation order.
func (r *Registry) RenderAll() []File {
	out := make([]File, len(r.order))
	copy(out, r.order)
	return out
}

// Program derives the synthetic program holding files. Unchanged units are
// shared with earlier snapshots through the host's parse cache, old only
// serves as the identity to differ from.
func (r *Registry) Program(files []File, old host.Program) (host.Program, error) {
	if len(files) == 0 {
		return r.prog, nil
	}
	overrides := make([]host.Override, 0, len(files))
	for _, f := range files {
		overrides = append(overrides, host.Override{Path: f.Path(), Text: f.RenderText(), Replaces: f.Replaces()})
	}
	next := r.prog.WithOverrides(overrides)
	if next.Version() == r.prog.Version() || old != nil && next.Version() == old.Version() {
		return nil, invariantf("program version %d was not advanced by %d synthetic files", next.Version(), len(files))
	}
	for _, f := range files {
		if _, ok := next.SourceFile(f.Path()); !ok {
			return nil, invariantf("synthetic file %s is missing from the new program", f.Path())
		}
	}
	return next, nil
}
