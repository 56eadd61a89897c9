// Package transform runs the trait state machine over the marked
// declarations of a program.
//
// A pass has three whole-program phases that never interleave:
//
//	Scan + AnalyzeSync  for every file
//	Resolve             for every analyzed trait
//	TypeCheck           for every resolved trait whose handler checks templates
//
// Handlers publish what other declarations may see into the scope
// registry after analysis. Resolution reads only the registry, so the
// order in which files are analyzed does not change the result.
//
// Records of files the incremental driver carries are adopted as they are:
// their metadata is registered again and nothing is re-analyzed.
package transform
