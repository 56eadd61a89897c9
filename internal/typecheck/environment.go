package typecheck

import (
	"strings"

	"tmplcheck/internal/imports"
	"tmplcheck/internal/scope"
)

// environment is the per-file state blocks share: imports, hoisted pipe
// instances and helper names.
type environment struct {
	at      imports.Context
	emitter *imports.Emitter
	imports *imports.ImportManager
	suffix  string // appended to helper and pipe names, empty for the external file
	pipes   []pipeVar
	byRef   map[string]int
}

type pipeVar struct {
	key  string
	name string
	typ  string
}

type envMark struct {
	imports int
	pipes   int
}

func newEnvironment(at imports.Context, emitter *imports.Emitter, aliasPrefix, suffix string) *environment {
	return &environment{
		at:      at,
		emitter: emitter,
		imports: imports.NewImportManager(aliasPrefix),
		suffix:  suffix,
		byRef:   make(map[string]int),
	}
}

func (e *environment) mark() envMark {
	return envMark{imports: e.imports.Mark(), pipes: len(e.pipes)}
}

func (e *environment) rollback(m envMark) {
	e.imports.Rollback(m.imports)
	for _, p := range e.pipes[m.pipes:] {
		delete(e.byRef, p.key)
	}
	e.pipes = e.pipes[:m.pipes]
}

// helper names one of the hoisted helper declarations.
func (e *environment) helper(name string) string {
	if e.suffix == "" {
		return name
	}
	return name + "_" + e.suffix
}

// reference renders ref as seen from the file, importing its package.
func (e *environment) reference(ref imports.Reference) (string, error) {
	out, err := e.emitter.Emit(ref, e.at)
	if err != nil {
		return "", err
	}
	return e.imports.Qualify(out), nil
}

// instantiate renders a possibly generic declaration with `any` for every
// type parameter. ok is false when some parameter is constrained.
func (e *environment) instantiate(ref imports.Reference, params []scope.TypeParam) (string, bool, error) {
	if !scope.Instantiable(params) {
		return "", false, nil
	}
	name, err := e.reference(ref)
	if err != nil {
		return "", false, err
	}
	return name + typeArgs(len(params)), true, nil
}

func typeArgs(n int) string {
	if n == 0 {
		return ""
	}
	return "[" + strings.Repeat("any, ", n-1) + "any]"
}

// pipe returns the variable holding an instance of the pipe.
func (e *environment) pipe(meta *scope.PipeMeta) (string, bool, error) {
	key := meta.Ref.Key()
	if i, ok := e.byRef[key]; ok {
		return e.pipes[i].name, true, nil
	}
	typ, ok, err := e.instantiate(meta.Ref, meta.TypeParams)
	if err != nil || !ok {
		return "", false, err
	}
	name := e.helper("_pipe" + itoa(len(e.pipes)))
	e.byRef[key] = len(e.pipes)
	e.pipes = append(e.pipes, pipeVar{key: key, name: name, typ: typ})
	return name, true, nil
}
