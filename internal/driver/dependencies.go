package driver

// recordScopeDependencies adds the edges scope membership implies:
//
//	module file      transitively depends on every declaration file it scopes
//	declaration file depends on its module file
//	component file   transitively depends on every directive and pipe file in its scope
//	module file      transitively depends on the modules it imports
//
// The module also inherits the component's resources.
func (c *Compiler) recordScopeDependencies() {
	for _, e := range c.scopes.CompilationScopes() {
		mf, df := e.Module.Ref.File, e.Declaration.Ref.File
		if mf == "" || df == "" {
			continue
		}
		c.incr.AddTransitiveDependency(mf, df)
		c.incr.AddDependency(df, mf)
		if !e.IsComponent {
			continue
		}
		c.incr.AddTransitiveResources(mf, df)
		for _, d := range e.Scope.Directives {
			if d.Ref.File != "" {
				c.incr.AddTransitiveDependency(df, d.Ref.File)
			}
		}
		for _, p := range e.Scope.Pipes {
			if p.Ref.File != "" {
				c.incr.AddTransitiveDependency(df, p.Ref.File)
			}
		}
	}
	for _, key := range c.scopes.Modules() {
		m, _ := c.scopes.Module(key)
		for _, imp := range m.Imports {
			if m.Ref.File != "" && imp.Ref.File != "" {
				c.incr.AddTransitiveDependency(m.Ref.File, imp.Ref.File)
			}
		}
	}
}
