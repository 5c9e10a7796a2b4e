// Package diag turns raw Move toolchain diagnostic text into ordered records.
//
// # Purpose
//
//   - Recognise the error blocks printed by the Move compiler and extract
//     message, file, line, column and the offending source line.
//   - Degrade gracefully: text that carries no recognisable block is kept
//     verbatim in a single Fallback record, so nothing is lost when the
//     toolchain panics or a linker-style error is printed.
//
// # Scope
//
// Package diag performs no IO and keeps no state. Normalisation into the
// frontend result shape lives in internal/result, rendering for terminals in
// internal/diagfmt.
//
// # Block shape
//
// A block looks like this (the bracketed code is optional):
//
//	error[E03003]: unbound module member
//	   ┌─ ./sources/module.move:5:9
//	   │
//	 5 │         foo();
//	   │         ^^^ Invalid module access
//
// Scanning runs in two stages. The first stage splits the text into blocks
// at every line that starts with the error marker. The second stage matches
// each block on its own: message lines up to the location marker, the
// location marker itself, then the first numbered source-context line. A
// malformed block (bad number, empty file) is dropped without affecting its
// neighbours.
//
// # Records
//
// Record is a closed sum: every value is either a Diagnostic or a Fallback.
// Extract never returns both kinds in one slice.
package diag
