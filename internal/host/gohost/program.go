// Package gohost implements host.Program on top of go/parser and go/types.
//
// Files are grouped into packages by (directory, package clause), so a
// synthetic unit with its own package clause can live next to ordinary files.
// Imports under the module path are satisfied from program sources; all other
// imports go through the toolchain's source importer.
package gohost

import (
	"errors"
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/scanner"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/mod/modfile"

	"tmplcheck/internal/host"
	"tmplcheck/internal/source"
)

// ErrNoModulePath is returned when neither options nor go.mod name the module.
var ErrNoModulePath = errors.New("module path is unknown")

// Options describe an in-memory program.
type Options struct {
	Root       string
	ModulePath string // read from Files["go.mod"] when empty
	RootDirs   []string
	Files      map[string]string // path (absolute or relative to Root) -> content
	Resources  map[string]string
	// Exclude drops matching files from the root set.
	Exclude func(path string) bool
}

type parseKey struct {
	path string
	hash [32]byte
}

type parsedFile struct {
	ast  *ast.File
	errs scanner.ErrorList
}

// shared holds state reused by every snapshot derived from one root.
type shared struct {
	mu      sync.Mutex
	files   *source.FileSet
	fset    *token.FileSet
	parsed  map[parseKey]*parsedFile
	std     types.Importer
	version atomic.Uint64
}

type unit struct {
	host.SourceUnit
	content []byte
	errs    scanner.ErrorList
}

type pkgKey struct {
	dir  string
	name string
}

// Program is an immutable snapshot. Type-check results are memoized lazily.
type Program struct {
	sh         *shared
	version    uint64
	root       string
	modulePath string
	rootDirs   []string
	exclude    func(string) bool

	roots     map[string]*unit
	order     []string
	dirs      map[string]struct{}
	overrides map[string]*unit
	replaced  map[string]struct{}
	resources map[string][]byte

	checked  map[pkgKey]*checkResult
	checking map[pkgKey]bool
}

var _ host.Program = (*Program)(nil)

// New builds a program from in-memory sources.
func New(opts Options) (*Program, error) {
	root := filepath.ToSlash(filepath.Clean(opts.Root))
	modulePath := opts.ModulePath
	if modulePath == "" {
		if gomod, ok := opts.Files["go.mod"]; ok {
			modulePath = modfile.ModulePath([]byte(gomod))
		}
	}
	if modulePath == "" {
		return nil, ErrNoModulePath
	}
	sh := &shared{
		files:  source.NewFileSetWithBase(root),
		fset:   token.NewFileSet(),
		parsed: make(map[parseKey]*parsedFile),
	}
	sh.std = importer.ForCompiler(sh.fset, "source", nil)

	p := &Program{
		sh:         sh,
		root:       root,
		modulePath: modulePath,
		exclude:    opts.Exclude,
		resources:  make(map[string][]byte, len(opts.Resources)),
	}
	p.rootDirs = p.normalizeDirs(opts.RootDirs)
	srcs := make(map[string][]byte, len(opts.Files))
	for path, content := range opts.Files {
		srcs[p.abs(path)] = []byte(content)
	}
	for path, content := range opts.Resources {
		p.resources[p.abs(path)] = []byte(content)
	}
	p.setRoots(srcs)
	p.version = sh.version.Add(1)
	return p, nil
}

func (p *Program) normalizeDirs(dirs []string) []string {
	if len(dirs) == 0 {
		return []string{p.root}
	}
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		out = append(out, p.abs(d))
	}
	sort.Strings(out)
	return out
}

func (p *Program) abs(path string) string {
	path = filepath.ToSlash(path)
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.root, path)
	}
	return filepath.ToSlash(filepath.Clean(path))
}

func (p *Program) setRoots(srcs map[string][]byte) {
	p.roots = make(map[string]*unit, len(srcs))
	p.dirs = make(map[string]struct{})
	for path, content := range srcs {
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			continue
		}
		if p.exclude != nil && p.exclude(path) {
			continue
		}
		p.roots[path] = p.parse(path, content, false)
		p.dirs[filepath.ToSlash(filepath.Dir(path))] = struct{}{}
	}
	p.order = make([]string, 0, len(p.roots))
	for path := range p.roots {
		p.order = append(p.order, path)
	}
	sort.Strings(p.order)
}

func (p *Program) parse(path string, content []byte, synthetic bool) *unit {
	flags := source.FileFlags(0)
	if synthetic {
		flags = source.FileVirtual
	}
	p.sh.mu.Lock()
	defer p.sh.mu.Unlock()
	id := p.sh.files.Ensure(path, content, flags)
	key := parseKey{path: path, hash: p.sh.files.Get(id).Hash}
	pf, ok := p.sh.parsed[key]
	if !ok {
		f, err := parser.ParseFile(p.sh.fset, path, content, parser.ParseComments|parser.AllErrors)
		pf = &parsedFile{ast: f}
		var list scanner.ErrorList
		if errors.As(err, &list) {
			pf.errs = list
		} else if err != nil {
			pf.errs = scanner.ErrorList{&scanner.Error{Pos: token.Position{Filename: path}, Msg: err.Error()}}
		}
		p.sh.parsed[key] = pf
	}
	return &unit{
		SourceUnit: host.SourceUnit{
			Path:      path,
			File:      id,
			AST:       pf.ast,
			Fset:      p.sh.fset,
			Synthetic: synthetic,
		},
		content: content,
		errs:    pf.errs,
	}
}

// derive copies the immutable parts of p into a fresh snapshot.
func (p *Program) derive() *Program {
	return &Program{
		sh:         p.sh,
		version:    p.sh.version.Add(1),
		root:       p.root,
		modulePath: p.modulePath,
		rootDirs:   p.rootDirs,
		exclude:    p.exclude,
		roots:      p.roots,
		order:      p.order,
		dirs:       p.dirs,
		resources:  p.resources,
	}
}

// Update returns a snapshot with changed root contents and removed paths.
// Unchanged files keep their parsed AST.
func (p *Program) Update(changed map[string]string, removed ...string) *Program {
	next := p.derive()
	srcs := make(map[string][]byte, len(p.roots)+len(changed))
	for path, u := range p.roots {
		srcs[path] = u.content
	}
	for _, path := range removed {
		delete(srcs, p.abs(path))
	}
	for path, content := range changed {
		srcs[p.abs(path)] = []byte(content)
	}
	next.setRoots(srcs)
	return next
}

// UpdateResources returns a snapshot with replaced resource contents.
func (p *Program) UpdateResources(changed map[string]string) *Program {
	next := p.derive()
	next.resources = make(map[string][]byte, len(p.resources)+len(changed))
	for k, v := range p.resources {
		next.resources[k] = v
	}
	for k, v := range changed {
		next.resources[p.abs(k)] = []byte(v)
	}
	return next
}

// WithOverrides derives a snapshot containing the given synthetic units.
func (p *Program) WithOverrides(overrides []host.Override) host.Program {
	next := p.derive()
	next.overrides = make(map[string]*unit, len(overrides))
	next.replaced = make(map[string]struct{})
	for _, ov := range overrides {
		path := p.abs(ov.Path)
		next.overrides[path] = p.parse(path, []byte(ov.Text), true)
		if ov.Replaces != "" {
			next.replaced[p.abs(ov.Replaces)] = struct{}{}
		}
	}
	return next
}

func (p *Program) Version() uint64          { return p.version }
func (p *Program) FileSet() *source.FileSet { return p.sh.files }
func (p *Program) Root() string             { return p.root }
func (p *Program) ModulePath() string       { return p.modulePath }
func (p *Program) RootDirs() []string       { return p.rootDirs }
func (p *Program) SourceFiles() []string    { return p.order }

// SourceFile prefers override units over root units with the same path.
func (p *Program) SourceFile(path string) (*host.SourceUnit, bool) {
	u, ok := p.lookup(p.abs(path))
	if !ok {
		return nil, false
	}
	return &u.SourceUnit, true
}

func (p *Program) lookup(path string) (*unit, bool) {
	if u, ok := p.overrides[path]; ok {
		return u, true
	}
	u, ok := p.roots[path]
	return u, ok
}

// ReadResource serves in-memory resources first and falls back to disk.
func (p *Program) ReadResource(path string) ([]byte, error) {
	path = p.abs(path)
	if data, ok := p.resources[path]; ok {
		return data, nil
	}
	// #nosec G304 -- resource paths come from declarations inside the project
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read resource %s: %w", path, err)
	}
	data, _ = source.Normalize(data)
	return data, nil
}

// ResolveModule maps module-internal import paths onto directories that hold sources.
func (p *Program) ResolveModule(importPath, _ string) (string, bool) {
	dir, ok := p.moduleDir(importPath)
	if !ok {
		return "", false
	}
	if _, has := p.dirs[dir]; !has {
		return "", false
	}
	return dir, true
}

func (p *Program) moduleDir(importPath string) (string, bool) {
	switch {
	case importPath == p.modulePath:
		return p.root, true
	case strings.HasPrefix(importPath, p.modulePath+"/"):
		rest := strings.TrimPrefix(importPath, p.modulePath+"/")
		return filepath.ToSlash(filepath.Join(p.root, rest)), true
	}
	return "", false
}

// ImportPath returns the import path of a directory inside the module.
func (p *Program) ImportPath(dir string) string {
	rel, err := filepath.Rel(p.root, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
		return "_" + filepath.ToSlash(dir)
	}
	if rel == "." {
		return p.modulePath
	}
	return p.modulePath + "/" + filepath.ToSlash(rel)
}

// active reports units that take part in type-checking.
func (p *Program) active() []*unit {
	out := make([]*unit, 0, len(p.roots)+len(p.overrides))
	for _, path := range p.order {
		if _, gone := p.replaced[path]; gone {
			continue
		}
		out = append(out, p.roots[path])
	}
	paths := make([]string, 0, len(p.overrides))
	for path := range p.overrides {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		out = append(out, p.overrides[path])
	}
	return out
}
