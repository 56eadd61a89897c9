package driver

import (
	"path/filepath"

	"tmplcheck/internal/diag"
	"tmplcheck/internal/source"
)

// Diagnostics returns what belongs to file: diagnostics located in it and
// template diagnostics of components it declares. After an aborted pass
// only the template syntax errors are reported.
func (c *Compiler) Diagnostics(file string) []diag.Diagnostic {
	if c.input == nil {
		return nil
	}
	fs := c.input.FileSet()
	want := filepath.ToSlash(filepath.Clean(file))
	pathOf := func(id source.FileID) string {
		if int(id) >= fs.Len() {
			return ""
		}
		return fs.Get(id).Path
	}
	bag := c.collect()
	bag.Filter(func(d *diag.Diagnostic) bool {
		if pathOf(d.Primary.File) == want {
			return true
		}
		return d.Template != nil && pathOf(d.Template.ComponentFile) == want
	})
	return bag.Items()
}

// AllDiagnostics returns every diagnostic of the last pass.
func (c *Compiler) AllDiagnostics() []diag.Diagnostic {
	return c.collect().Items()
}

// HasErrors reports whether the last pass produced an error diagnostic.
func (c *Compiler) HasErrors() bool {
	return c.collect().HasErrors()
}

func (c *Compiler) collect() *diag.Bag {
	bag := diag.NewBag(0)
	switch {
	case c.parse != nil:
		bag.AddAll(c.parse)
	case c.traits != nil:
		bag.AddAll(c.traits.Diagnostics())
		if c.checked != nil {
			bag.AddAll(c.checked.Diagnostics)
			bag.AddAll(c.checked.OutOfBand.All())
		}
	}
	bag.Dedup()
	bag.Sort()
	return bag
}
