package pysyntax

import "fmt"

// Error kinds, named after the Python exception classes they mirror.
const (
	KindSyntax      = "SyntaxError"
	KindIndentation = "IndentationError"
	KindTab         = "TabError"
	KindMemory      = "MemoryError"
)

// Error is a syntax error located at a source line.
type Error struct {
	Kind string
	Msg  string
	Line int

	// atEOF marks an unclosed bracket found at the end of input. It never
	// replaces an error the parser found earlier.
	atEOF bool
}

// Error formats the error the way Python's str(SyntaxError) does for source
// parsed without a file name.
func (e *Error) Error() string {
	return fmt.Sprintf("%s (<unknown>, line %d)", e.Msg, e.Line)
}

func newError(kind string, line int, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Line: line}
}
