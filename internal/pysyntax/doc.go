// Package pysyntax checks Python 3 source for syntax errors without running it.
//
// The scanner and parser follow the Python 3.12 grammar closely enough to
// report the same messages CPython's ast.parse does for the common mistakes
// (missing colons, bad indentation, unterminated strings, unbalanced
// brackets, invalid assignment targets). The resulting tree is deliberately
// shallow: it records statements, imports and definitions, which is all the
// validators need.
package pysyntax
