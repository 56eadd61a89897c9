// Package typecheck synthesizes Go code that lets go/types check template
// expressions, and maps the checker's findings back onto template offsets.
//
// Each type-checkable declaration contributes one check block: a function
// taking the declaration as `ctx` whose statements mirror the bindings of
// its template. Free identifiers of template expressions become members of
// ctx, directives matched on elements become typed locals and structural
// attributes become if and for statements.
//
// Blocks are placed either in the shared external file
// (`__tmpl_typecheck__.go` in the shortest root directory, package
// tmpltypecheck) or in an inline shadow of the declaring file
// (`foo.go` -> `foo__shadow.go`), which replaces the original in the
// synthetic program. Files accumulate blocks and are rendered on demand;
// rendering is pure and always includes every block added so far.
//
// During synthesis every rewritten identifier and every expression carries
// a mapping from its synthetic range to its template span. A checker
// diagnostic is attributed to the innermost mapping containing it; a
// diagnostic inside a block with no mapping lands in the out-of-band bucket
// of the block's declaration.
package typecheck
