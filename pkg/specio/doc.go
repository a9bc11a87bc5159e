// Package specio reads and writes transform spec files.
//
// # Overview
//
// Spec files hold transform specs in the JSON interchange format, either as
// a single spec object or as an array of specs. This package layers file
// handling over the [transform] codec:
//
//   - Reading files produced by a render service export or another tool
//   - Writing fitted or collapsed transforms for downstream consumers
//   - Handing specs to external programs through temporary files
//
// # Spec Files
//
// A spec file contains one JSON document. Either a single spec:
//
//	{"type": "leaf", "className": "mpicbg.trakem2.transform.AffineModel2D", ...}
//
// or an array of specs forming a chain:
//
//	[
//	  {"type": "leaf", ...},
//	  {"type": "list", "specList": [...]}
//	]
//
// # Import
//
// Use [Import] to read a single spec from a file path, or [Read] to read
// from any io.Reader. [ImportChain] and [ReadChain] accept either form and
// always return a slice, wrapping a single object in a one-element chain.
// Nested lists are preserved as read; flatten them with the transform
// package when needed.
//
// # Export
//
// Use [Export] to write a spec to a file, or [Write] to write to any
// io.Writer. Output is indented for human use by default; set
// [Options.Compact] for single-line wire form. [WriteTemp] dumps a spec to
// a fresh tilewarp-*.json temporary file and returns its path, for tools
// that take a spec file argument. The caller removes the file when done.
//
// [transform]: github.com/matzehuels/tilewarp/pkg/transform
package specio
