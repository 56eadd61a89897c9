package typecheck

import (
	"strconv"
	"strings"

	"tmplcheck/internal/host"
	"tmplcheck/internal/imports"
)

// InlineFile is the shadow of one source file: its own text followed by
// the check blocks of its declarations.
type InlineFile struct {
	path     string
	original string
	text     string
	pkgEnd   int // offset of the end of the package name
	env      *environment
	blocks
}

func newInlineFile(u *host.SourceUnit, text string, pkgDir string, emitter *imports.Emitter) *InlineFile {
	path := ShadowPath(u.Path)
	at := imports.Context{Dir: pkgDir, Package: u.AST.Name.Name, File: path}
	return &InlineFile{
		path:     path,
		original: u.Path,
		text:     text,
		pkgEnd:   u.Offset(u.AST.Name.End()),
		env:      newEnvironment(at, emitter, "tcbi", stem(u.Path)),
	}
}

func (f *InlineFile) Path() string     { return f.path }
func (f *InlineFile) Replaces() string { return f.original }
func (f *InlineFile) Blocks() []string { return f.names() }

func (f *InlineFile) RenderText() string {
	text, _ := f.layout()
	return text
}

func (f *InlineFile) discards(off int) bool {
	return off < f.appendedAt()
}

// appendedAt is the offset where generated code starts.
func (f *InlineFile) appendedAt() int {
	n := len(f.text)
	for _, imp := range f.env.imports.Imports() {
		n += len(importClause(imp))
	}
	if !strings.HasSuffix(f.text, "\n") {
		n++
	}
	return n
}

func importClause(imp imports.Import) string {
	return "; import " + imp.Alias + " " + strconv.Quote(imp.Path)
}

// layout keeps the original on its own lines: imports go on the package
// clause line so that original positions keep their line numbers.
func (f *InlineFile) layout() (string, []placed) {
	var sb strings.Builder
	sb.WriteString(f.text[:f.pkgEnd])
	for _, imp := range f.env.imports.Imports() {
		sb.WriteString(importClause(imp))
	}
	sb.WriteString(f.text[f.pkgEnd:])
	if !strings.HasSuffix(f.text, "\n") {
		sb.WriteByte('\n')
	}
	sb.WriteString("\n// Code generated by tmplcheck. DO NOT EDIT.\n")
	writeHelpers(&sb, f.env)
	placed := f.render(&sb)
	sb.WriteString("\nconst " + f.env.helper("_tcbShadow") + " = true\n")
	return sb.String(), placed
}
