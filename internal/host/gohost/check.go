package gohost

import (
	"errors"
	"fmt"
	"go/ast"
	"go/scanner"
	"go/token"
	"go/types"
	"path/filepath"
	"sort"

	"tmplcheck/internal/host"
)

type checkResult struct {
	pkg    *types.Package
	byPath map[string][]host.Diagnostic
}

// Diagnostics returns syntax errors of the unit followed by type errors of
// its package that fall inside the unit.
func (p *Program) Diagnostics(path string) []host.Diagnostic {
	path = p.abs(path)
	u, ok := p.lookup(path)
	if !ok {
		return nil
	}
	out := make([]host.Diagnostic, 0, len(u.errs))
	for _, e := range u.errs {
		out = append(out, p.diagAt(u, e.Pos.Offset, e.Msg, false))
	}
	if u.AST == nil || u.AST.Name == nil {
		return out
	}
	p.sh.mu.Lock()
	defer p.sh.mu.Unlock()
	res := p.check(pkgKey{dir: filepath.ToSlash(filepath.Dir(path)), name: u.AST.Name.Name})
	return append(out, res.byPath[path]...)
}

func (p *Program) diagAt(u *unit, off int, msg string, soft bool) host.Diagnostic {
	if off < 0 {
		off = 0
	}
	if off > len(u.content) {
		off = len(u.content)
	}
	return host.Diagnostic{
		Path:    u.Path,
		Start:   off,
		End:     tokenEnd(u.content, off),
		Message: msg,
		Soft:    soft,
	}
}

// check type-checks one package; callers hold sh.mu.
func (p *Program) check(key pkgKey) *checkResult {
	if res, ok := p.checked[key]; ok {
		return res
	}
	if p.checked == nil {
		p.checked = make(map[pkgKey]*checkResult)
		p.checking = make(map[pkgKey]bool)
	}
	p.checking[key] = true
	defer delete(p.checking, key)

	res := &checkResult{byPath: make(map[string][]host.Diagnostic)}
	units := p.packageUnits(key)
	files := make([]*ast.File, 0, len(units))
	for _, u := range units {
		if u.AST != nil {
			files = append(files, u.AST)
		}
	}
	conf := types.Config{
		Importer:    &moduleImporter{p: p},
		FakeImportC: true,
		Error: func(err error) {
			var te types.Error
			if !errors.As(err, &te) {
				return
			}
			pos := te.Fset.Position(te.Pos)
			path := filepath.ToSlash(pos.Filename)
			u, ok := p.lookup(path)
			if !ok {
				return
			}
			res.byPath[path] = append(res.byPath[path], p.diagAt(u, pos.Offset, te.Msg, te.Soft))
		},
	}
	// Errors are delivered through conf.Error.
	res.pkg, _ = conf.Check(p.ImportPath(key.dir), p.sh.fset, files, nil)
	p.checked[key] = res
	return res
}

func (p *Program) packageUnits(key pkgKey) []*unit {
	var out []*unit
	for _, u := range p.active() {
		if u.AST == nil || u.AST.Name == nil || u.AST.Name.Name != key.name {
			continue
		}
		if filepath.ToSlash(filepath.Dir(u.Path)) == key.dir {
			out = append(out, u)
		}
	}
	return out
}

// packageFor picks the package an import of dir refers to: the one with
// ordinary root units, preferring a package named after the directory.
func (p *Program) packageFor(dir string) (string, bool) {
	seen := make(map[string]bool)
	var names []string
	for _, u := range p.active() {
		if u.Synthetic || u.AST == nil || u.AST.Name == nil || filepath.ToSlash(filepath.Dir(u.Path)) != dir {
			continue
		}
		if name := u.AST.Name.Name; !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", false
	}
	sort.Strings(names)
	base := filepath.Base(dir)
	for _, name := range names {
		if name == base {
			return name, true
		}
	}
	return names[0], true
}

type moduleImporter struct {
	p *Program
}

func (imp *moduleImporter) Import(path string) (*types.Package, error) {
	p := imp.p
	dir, ok := p.moduleDir(path)
	if !ok {
		return p.sh.std.Import(path)
	}
	name, ok := p.packageFor(dir)
	if !ok {
		return nil, fmt.Errorf("no Go files for %s in %s", path, dir)
	}
	key := pkgKey{dir: dir, name: name}
	if p.checking[key] {
		return nil, fmt.Errorf("import cycle through %s", path)
	}
	return p.check(key).pkg, nil
}

// tokenEnd returns the end offset of the token starting at off.
func tokenEnd(content []byte, off int) int {
	if off >= len(content) {
		return off
	}
	var s scanner.Scanner
	fset := token.NewFileSet()
	tail := content[off:]
	f := fset.AddFile("", -1, len(tail))
	s.Init(f, tail, nil, 0)
	pos, tok, lit := s.Scan()
	if tok == token.EOF || int(pos)-f.Base() != 0 {
		return off
	}
	n := len(lit)
	if n == 0 {
		n = len(tok.String())
	}
	return off + n
}
