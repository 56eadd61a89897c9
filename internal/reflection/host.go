// Package reflection indexes the declarations of a program snapshot: named
// types with their `//tmpl:` markers, package constants, methods and imports.
package reflection

import (
	"crypto/sha256"
	"go/ast"
	"go/token"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/tools/go/ast/inspector"

	"tmplcheck/internal/host"
)

type pkgKey struct {
	dir  string
	name string
}

// ConstDecl is one package-level constant.
type ConstDecl struct {
	Name  string
	Path  string
	Unit  *host.SourceUnit
	Value ast.Expr // nil for implicit repetition (iota lists)
}

type fileIndex struct {
	unit    *host.SourceUnit
	pkg     pkgKey
	decls   []*Declaration
	types   map[string]*Declaration
	consts  map[string]*ConstDecl
	methods map[string][]string // receiver type -> method names
	imports map[string]string   // local name -> import path
	shape   [32]byte
}

// Host is a lazily built index over one host.Program snapshot.
type Host struct {
	prog  host.Program
	files map[string]*fileIndex
	pkgs  map[pkgKey][]string
	dirs  map[string][]pkgKey
}

// NewHost indexes the ordinary source files of prog.
func NewHost(prog host.Program) *Host {
	h := &Host{
		prog:  prog,
		files: make(map[string]*fileIndex),
		pkgs:  make(map[pkgKey][]string),
		dirs:  make(map[string][]pkgKey),
	}
	for _, p := range prog.SourceFiles() {
		u, ok := prog.SourceFile(p)
		if !ok || u.AST == nil || u.AST.Name == nil {
			continue
		}
		key := pkgKey{dir: filepath.ToSlash(filepath.Dir(p)), name: u.AST.Name.Name}
		if _, seen := h.pkgs[key]; !seen {
			h.dirs[key.dir] = append(h.dirs[key.dir], key)
		}
		h.pkgs[key] = append(h.pkgs[key], p)
		h.files[p] = &fileIndex{unit: u, pkg: key}
	}
	return h
}

// Program returns the indexed snapshot.
func (h *Host) Program() host.Program { return h.prog }

func (h *Host) index(p string) (*fileIndex, bool) {
	fi, ok := h.files[p]
	if !ok {
		return nil, false
	}
	if fi.types == nil {
		h.build(fi)
	}
	return fi, true
}

// build walks top-level declarations with the inspector; stack depth 2
// means a direct child of the file.
func (h *Host) build(fi *fileIndex) {
	fi.types = make(map[string]*Declaration)
	fi.consts = make(map[string]*ConstDecl)
	fi.methods = make(map[string][]string)
	fi.imports = make(map[string]string)
	u := fi.unit
	var shapes []string
	content := h.content(u)

	in := inspector.New([]*ast.File{u.AST})
	in.WithStack([]ast.Node{(*ast.GenDecl)(nil), (*ast.FuncDecl)(nil)}, func(n ast.Node, push bool, stack []ast.Node) bool {
		if !push || len(stack) != 2 {
			return false
		}
		switch decl := n.(type) {
		case *ast.GenDecl:
			for _, spec := range decl.Specs {
				switch s := spec.(type) {
				case *ast.ImportSpec:
					h.addImport(fi, s)
				case *ast.TypeSpec:
					d := &Declaration{
						Name:    s.Name.Name,
						Path:    u.Path,
						Dir:     fi.pkg.dir,
						Package: fi.pkg.name,
						Unit:    u,
						Spec:    s,
						Markers: collectMarkers(u, decl, s),
					}
					fi.decls = append(fi.decls, d)
					fi.types[d.Name] = d
					if d.Exported() {
						shapes = append(shapes, "type "+sliceOf(content, u, s))
					}
					for _, m := range d.Markers {
						shapes = append(shapes, d.Name+" "+string(content[m.Span.Start:m.Span.End]))
					}
				case *ast.ValueSpec:
					for i, name := range s.Names {
						if decl.Tok == token.CONST {
							cd := &ConstDecl{Name: name.Name, Path: u.Path, Unit: u}
							if i < len(s.Values) {
								cd.Value = s.Values[i]
							}
							fi.consts[name.Name] = cd
						}
						if name.IsExported() {
							shapes = append(shapes, decl.Tok.String()+" "+sliceOf(content, u, s))
						}
					}
				}
			}
		case *ast.FuncDecl:
			if recv := receiverName(decl); recv != "" {
				fi.methods[recv] = append(fi.methods[recv], decl.Name.Name)
			}
			if decl.Name.IsExported() {
				end := decl.End()
				if decl.Body != nil {
					end = decl.Body.Lbrace
				}
				shapes = append(shapes, "func "+sliceRange(content, u, decl.Pos(), end))
			}
		}
		return false
	})
	sort.Strings(shapes)
	fi.shape = sha256.Sum256([]byte(strings.Join(shapes, "\n")))
}

func (h *Host) content(u *host.SourceUnit) []byte {
	return h.prog.FileSet().Get(u.File).Content
}

func (h *Host) addImport(fi *fileIndex, s *ast.ImportSpec) {
	p, err := strconv.Unquote(s.Path.Value)
	if err != nil {
		return
	}
	name := ""
	if s.Name != nil {
		name = s.Name.Name
	} else if dir, ok := h.prog.ResolveModule(p, fi.unit.Path); ok {
		name = h.packageNameIn(dir, path.Base(p))
	} else {
		name = path.Base(p)
	}
	if name == "_" || name == "." {
		return
	}
	fi.imports[name] = p
}

func (h *Host) packageNameIn(dir, fallback string) string {
	keys := h.dirs[dir]
	for _, k := range keys {
		if k.name == fallback {
			return k.name
		}
	}
	if len(keys) > 0 {
		return keys[0].name
	}
	return fallback
}

func receiverName(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return ""
	}
	return embeddedName(fn.Recv.List[0].Type)
}

func collectMarkers(u *host.SourceUnit, decl *ast.GenDecl, spec *ast.TypeSpec) []*Marker {
	var out []*Marker
	for _, doc := range []*ast.CommentGroup{decl.Doc, spec.Doc} {
		if doc == nil || (doc == decl.Doc && len(decl.Specs) > 1) {
			continue
		}
		for _, c := range doc.List {
			if m, ok := parseMarker(c, u.Offset(c.Slash), u.File); ok {
				out = append(out, m)
			}
		}
	}
	return out
}

func sliceOf(content []byte, u *host.SourceUnit, n ast.Node) string {
	return sliceRange(content, u, n.Pos(), n.End())
}

func sliceRange(content []byte, u *host.SourceUnit, from, to token.Pos) string {
	start, end := u.Offset(from), u.Offset(to)
	if start < 0 || end > len(content) || start > end {
		return ""
	}
	return string(content[start:end])
}

// Declarations lists the named types of a file in source order.
func (h *Host) Declarations(p string) []*Declaration {
	fi, ok := h.index(p)
	if !ok {
		return nil
	}
	return fi.decls
}

// Package returns the directory and package name of a file.
func (h *Host) Package(p string) (dir, name string, ok bool) {
	fi, ok := h.files[p]
	if !ok {
		return "", "", false
	}
	return fi.pkg.dir, fi.pkg.name, true
}

// LookupConst finds a package-level constant visible from file p.
func (h *Host) LookupConst(p, name string) (*ConstDecl, bool) {
	fi, ok := h.files[p]
	if !ok {
		return nil, false
	}
	for _, other := range h.pkgs[fi.pkg] {
		oi, _ := h.index(other)
		if cd, ok := oi.consts[name]; ok {
			return cd, true
		}
	}
	return nil, false
}

// LookupType finds a named type in the package of file p.
func (h *Host) LookupType(p, name string) (*Declaration, bool) {
	fi, ok := h.files[p]
	if !ok {
		return nil, false
	}
	return h.lookupIn(fi.pkg, name)
}

// LookupTypeInDir finds a named type in any package of dir.
func (h *Host) LookupTypeInDir(dir, name string) (*Declaration, bool) {
	for _, key := range h.dirs[dir] {
		if d, ok := h.lookupIn(key, name); ok {
			return d, true
		}
	}
	return nil, false
}

// PackageFiles lists the files of p's package, p included.
func (h *Host) PackageFiles(p string) []string {
	fi, ok := h.files[p]
	if !ok {
		return nil
	}
	return h.pkgs[fi.pkg]
}

// DirFiles lists the files of every package in dir.
func (h *Host) DirFiles(dir string) []string {
	var out []string
	for _, key := range h.dirs[dir] {
		out = append(out, h.pkgs[key]...)
	}
	return out
}

func (h *Host) lookupIn(key pkgKey, name string) (*Declaration, bool) {
	for _, p := range h.pkgs[key] {
		fi, _ := h.index(p)
		if d, ok := fi.types[name]; ok {
			return d, true
		}
	}
	return nil, false
}

// HasMethod reports whether the declaration's package declares the method.
func (h *Host) HasMethod(d *Declaration, method string) bool {
	for _, p := range h.pkgs[pkgKey{dir: d.Dir, name: d.Package}] {
		fi, _ := h.index(p)
		for _, m := range fi.methods[d.Name] {
			if m == method {
				return true
			}
		}
	}
	return false
}

// Imports maps local package names of file p to import paths.
func (h *Host) Imports(p string) map[string]string {
	fi, ok := h.index(p)
	if !ok {
		return nil
	}
	return fi.imports
}

// ShapeDigest hashes the exported declarations of a file.
func (h *Host) ShapeDigest(p string) ([32]byte, bool) {
	fi, ok := h.index(p)
	if !ok {
		return [32]byte{}, false
	}
	return fi.shape, true
}
