package typecheck

import (
	"strconv"
	"strings"

	"tmplcheck/internal/imports"
)

// ExternalFile is the shared type-check file of a program.
type ExternalFile struct {
	path string
	env  *environment
	blocks
}

func newExternalFile(path string, emitter *imports.Emitter) *ExternalFile {
	at := imports.Context{Dir: dirOf(path), Package: ExternalPackage, File: path}
	return &ExternalFile{path: path, env: newEnvironment(at, emitter, "i", "")}
}

func (f *ExternalFile) Path() string      { return f.path }
func (f *ExternalFile) Replaces() string  { return "" }
func (f *ExternalFile) Blocks() []string  { return f.names() }
func (f *ExternalFile) discards(int) bool { return false }
func (f *ExternalFile) nextName() string  { return "_tcb" + strconv.Itoa(len(f.list)) }

func (f *ExternalFile) RenderText() string {
	text, _ := f.layout()
	return text
}

func (f *ExternalFile) layout() (string, []placed) {
	var sb strings.Builder
	sb.WriteString("// Code generated by tmplcheck. DO NOT EDIT.\n\npackage " + ExternalPackage + "\n")
	if imps := f.env.imports.Imports(); len(imps) > 0 {
		sb.WriteString("\nimport (\n")
		for _, imp := range imps {
			sb.WriteString("\t" + imp.Alias + " " + strconv.Quote(imp.Path) + "\n")
		}
		sb.WriteString(")\n")
	}
	writeHelpers(&sb, f.env)
	placed := f.render(&sb)
	sb.WriteString("\nconst IsTypeCheckFile = true\n")
	return sb.String(), placed
}
