package imports

import "strconv"

// Import is one aliased import of a generated file.
type Import struct {
	Alias string
	Path  string
}

// ImportManager hands out aliases in first-use order. Aliases added after
// a Mark can be dropped again with Rollback.
type ImportManager struct {
	prefix  string
	order   []Import
	aliases map[string]string
}

// NewImportManager creates a manager producing aliases prefix0, prefix1, ...
func NewImportManager(prefix string) *ImportManager {
	return &ImportManager{prefix: prefix, aliases: make(map[string]string)}
}

// Alias returns the alias of importPath, allocating one on first use.
func (m *ImportManager) Alias(importPath string) string {
	if a, ok := m.aliases[importPath]; ok {
		return a
	}
	a := m.prefix + strconv.Itoa(len(m.order))
	m.aliases[importPath] = a
	m.order = append(m.order, Import{Alias: a, Path: importPath})
	return a
}

// Qualify renders an emitted reference, importing its package when needed.
func (m *ImportManager) Qualify(e Emitted) string {
	if e.ImportPath == "" {
		return e.Name
	}
	return m.Alias(e.ImportPath) + "." + e.Name
}

// Imports returns the allocated imports in allocation order.
func (m *ImportManager) Imports() []Import {
	return m.order
}

// Mark captures the current allocation state.
func (m *ImportManager) Mark() int { return len(m.order) }

// Rollback forgets every alias allocated after mark.
func (m *ImportManager) Rollback(mark int) {
	if mark < 0 || mark >= len(m.order) {
		return
	}
	for _, imp := range m.order[mark:] {
		delete(m.aliases, imp.Path)
	}
	m.order = m.order[:mark]
}
