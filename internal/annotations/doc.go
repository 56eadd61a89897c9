// Package annotations implements the five marker kinds a declaration can
// carry:
//
//	//tmpl:component{Selector: "app-card", Template: `<b>{{Title}}</b>`}
//	//tmpl:directive{Selector: "[appTooltip]", Inputs: []string{"text: Text"}}
//	//tmpl:pipe{Name: "upper"}
//	//tmpl:injectable{ProvidedIn: "root"}
//	//tmpl:module{Declarations: []any{Card, Upper}, Imports: []any{shared.Module}}
//
// Marker bodies are evaluated symbolically by package partial. Components,
// directives and pipes publish their metadata into the scope registry;
// modules compute compilation scopes from it during resolution. Components
// contribute one check block each to template type-checking.
package annotations

import "tmplcheck/internal/transform"

// Handlers returns the handler list in dispatch order.
func Handlers() []transform.Handler {
	return []transform.Handler{
		&componentHandler{directiveHandler{component: true}},
		&directiveHandler{},
		&pipeHandler{},
		&injectableHandler{},
		&moduleHandler{},
	}
}
