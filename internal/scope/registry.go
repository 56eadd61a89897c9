package scope

import (
	"fmt"
	"sort"

	"tmplcheck/internal/diag"
	"tmplcheck/internal/source"
)

// Problem is a scope error found while computing a module scope.
type Problem struct {
	Code    diag.Code
	Span    source.Span
	Message string
}

// CompilationScope is what the templates of a module's declarations see.
type CompilationScope struct {
	Module     *ModuleMeta
	Directives []*DirectiveMeta
	Pipes      []*PipeMeta
}

// ExportScope is what a module offers to modules importing it.
type ExportScope struct {
	Directives []*DirectiveMeta
	Pipes      []*PipeMeta
}

// ModuleScope is the pair of scopes of one module.
type ModuleScope struct {
	Compilation CompilationScope
	Exported    ExportScope
}

// Registry is rebuilt every pass from the analyses of all traits.
type Registry struct {
	directives map[string]*DirectiveMeta
	pipes      map[string]*PipeMeta
	modules    map[string]*ModuleMeta
	scopes     map[string]*moduleResult
}

type moduleResult struct {
	scope    *ModuleScope
	problems []Problem
	done     bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		directives: make(map[string]*DirectiveMeta),
		pipes:      make(map[string]*PipeMeta),
		modules:    make(map[string]*ModuleMeta),
		scopes:     make(map[string]*moduleResult),
	}
}

func (r *Registry) RegisterDirective(m *DirectiveMeta) {
	r.directives[m.Ref.Key()] = m
	r.scopes = make(map[string]*moduleResult)
}

func (r *Registry) RegisterPipe(m *PipeMeta) {
	r.pipes[m.Ref.Key()] = m
	r.scopes = make(map[string]*moduleResult)
}

func (r *Registry) RegisterModule(m *ModuleMeta) {
	r.modules[m.Ref.Key()] = m
	r.scopes = make(map[string]*moduleResult)
}

func (r *Registry) Directive(key string) (*DirectiveMeta, bool) {
	m, ok := r.directives[key]
	return m, ok
}

func (r *Registry) Pipe(key string) (*PipeMeta, bool) {
	m, ok := r.pipes[key]
	return m, ok
}

func (r *Registry) Module(key string) (*ModuleMeta, bool) {
	m, ok := r.modules[key]
	return m, ok
}

// Modules returns module keys in sorted order.
func (r *Registry) Modules() []string {
	keys := make([]string, 0, len(r.modules))
	for k := range r.modules {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DeclaringModules lists the modules whose Declarations name key.
func (r *Registry) DeclaringModules(key string) []*ModuleMeta {
	var out []*ModuleMeta
	for _, mk := range r.Modules() {
		m := r.modules[mk]
		for _, e := range m.Declarations {
			if e.Ref.Key() == key {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// ModuleScope computes the scopes of a module together with the problems
// its own lists have.
func (r *Registry) ModuleScope(key string) (*ModuleScope, []Problem) {
	res := r.moduleScope(key, make(map[string]bool))
	if res == nil {
		return nil, nil
	}
	return res.scope, res.problems
}

func (r *Registry) moduleScope(key string, visiting map[string]bool) *moduleResult {
	if res, ok := r.scopes[key]; ok && res.done {
		return res
	}
	m, ok := r.modules[key]
	if !ok {
		return nil
	}
	if visiting[key] {
		return &moduleResult{scope: &ModuleScope{}}
	}
	visiting[key] = true
	defer delete(visiting, key)

	res := &moduleResult{scope: &ModuleScope{Compilation: CompilationScope{Module: m}}}
	comp := &collector{}
	declared := make(map[string]bool)
	for _, e := range m.Declarations {
		k := e.Ref.Key()
		if d, ok := r.directives[k]; ok {
			comp.directive(d)
			declared[k] = true
			continue
		}
		if p, ok := r.pipes[k]; ok {
			if other := comp.pipe(p); other != nil {
				res.problems = append(res.problems, duplicatePipe(e.Span, p, other))
			}
			declared[k] = true
			continue
		}
		res.problems = append(res.problems, Problem{
			Code:    diag.ResNotDeclarable,
			Span:    e.Span,
			Message: fmt.Sprintf("%s is not a component, directive or pipe and cannot be declared", e.Ref),
		})
	}
	imported := make(map[string]*moduleResult)
	for _, e := range m.Imports {
		k := e.Ref.Key()
		sub := r.moduleScope(k, visiting)
		if sub == nil {
			res.problems = append(res.problems, Problem{
				Code:    diag.ResNotModule,
				Span:    e.Span,
				Message: fmt.Sprintf("%s is not a module and cannot be imported", e.Ref),
			})
			continue
		}
		imported[k] = sub
		for _, d := range sub.scope.Exported.Directives {
			comp.directive(d)
		}
		for _, p := range sub.scope.Exported.Pipes {
			if other := comp.pipe(p); other != nil {
				res.problems = append(res.problems, duplicatePipe(e.Span, p, other))
			}
		}
	}
	res.scope.Compilation.Directives = comp.directives
	res.scope.Compilation.Pipes = comp.pipes

	exp := &collector{}
	for _, e := range m.Exports {
		k := e.Ref.Key()
		switch {
		case declared[k]:
			if d, ok := r.directives[k]; ok {
				exp.directive(d)
			} else {
				_ = exp.pipe(r.pipes[k])
			}
		case imported[k] != nil:
			for _, d := range imported[k].scope.Exported.Directives {
				exp.directive(d)
			}
			for _, p := range imported[k].scope.Exported.Pipes {
				_ = exp.pipe(p)
			}
		case comp.has(k):
			if d, ok := r.directives[k]; ok {
				exp.directive(d)
			} else {
				_ = exp.pipe(r.pipes[k])
			}
		default:
			res.problems = append(res.problems, Problem{
				Code:    diag.ResExportNotVisible,
				Span:    e.Span,
				Message: fmt.Sprintf("%s is neither declared nor imported by this module and cannot be exported", e.Ref),
			})
		}
	}
	res.scope.Exported = ExportScope{Directives: exp.directives, Pipes: exp.pipes}
	res.done = true
	r.scopes[key] = res
	return res
}

// ScopeForComponent returns the compilation scope of the module declaring
// the component. A component no module declares gets an empty scope.
// With several declaring modules, the first one in key order is used.
func (r *Registry) ScopeForComponent(key string) *CompilationScope {
	mods := r.DeclaringModules(key)
	if len(mods) == 0 {
		return &CompilationScope{}
	}
	s, _ := r.ModuleScope(mods[0].Ref.Key())
	if s == nil {
		return &CompilationScope{}
	}
	return &s.Compilation
}

// ScopeEntry pairs a module with one of its declarations.
type ScopeEntry struct {
	Module      *ModuleMeta
	Declaration Entry
	IsComponent bool
	Scope       *CompilationScope
}

// CompilationScopes lists every (module, declaration) pair whose
// declaration is registered, in sorted order.
func (r *Registry) CompilationScopes() []ScopeEntry {
	var out []ScopeEntry
	for _, mk := range r.Modules() {
		s, _ := r.ModuleScope(mk)
		if s == nil {
			continue
		}
		m := r.modules[mk]
		for _, e := range m.Declarations {
			k := e.Ref.Key()
			d, isDir := r.directives[k]
			if _, isPipe := r.pipes[k]; !isDir && !isPipe {
				continue
			}
			out = append(out, ScopeEntry{
				Module:      m,
				Declaration: e,
				IsComponent: isDir && d.IsComponent,
				Scope:       &s.Compilation,
			})
		}
	}
	return out
}

func duplicatePipe(sp source.Span, p, other *PipeMeta) Problem {
	return Problem{
		Code:    diag.ResDuplicatePipeName,
		Span:    sp,
		Message: fmt.Sprintf("pipe name %q of %s is already used by %s", p.Name, p.Ref, other.Ref),
	}
}

type collector struct {
	seen       map[string]bool
	names      map[string]*PipeMeta
	directives []*DirectiveMeta
	pipes      []*PipeMeta
}

func (c *collector) has(key string) bool { return c.seen[key] }

func (c *collector) mark(key string) bool {
	if c.seen == nil {
		c.seen = make(map[string]bool)
	}
	if c.seen[key] {
		return false
	}
	c.seen[key] = true
	return true
}

func (c *collector) directive(d *DirectiveMeta) {
	if c.mark(d.Ref.Key()) {
		c.directives = append(c.directives, d)
	}
}

// pipe adds p and returns the pipe already holding its name, if any.
// The first pipe registered under a name keeps it.
func (c *collector) pipe(p *PipeMeta) *PipeMeta {
	if p == nil || !c.mark(p.Ref.Key()) {
		return nil
	}
	if c.names == nil {
		c.names = make(map[string]*PipeMeta)
	}
	if other, ok := c.names[p.Name]; ok {
		return other
	}
	c.names[p.Name] = p
	c.pipes = append(c.pipes, p)
	return nil
}
