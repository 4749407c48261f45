package pysyntax

// Kind identifies the class of a token.
type Kind int

// Token kinds.
const (
	EOF Kind = iota
	NEWLINE
	INDENT
	DEDENT
	NAME
	NUMBER
	STRING
	OP
	ERROR
)

var kindNames = [...]string{
	EOF:     "EOF",
	NEWLINE: "NEWLINE",
	INDENT:  "INDENT",
	DEDENT:  "DEDENT",
	NAME:    "NAME",
	NUMBER:  "NUMBER",
	STRING:  "STRING",
	OP:      "OP",
	ERROR:   "ERROR",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "UNKNOWN"
}

// Token is a lexical token.
type Token struct {
	Kind Kind
	Text string
	Line int
	Col  int

	// Level is the bracket nesting depth after the token.
	Level int

	// Bytes and Format describe STRING tokens.
	Bytes  bool
	Format bool

	err *Error
}

func (t *Token) is(kind Kind, text string) bool {
	return t.Kind == kind && t.Text == text
}

// keywords are the hard keywords of Python 3.12. Soft keywords (match, case,
// type, _) remain ordinary names.
var keywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true, "class": true,
	"continue": true, "def": true, "del": true, "elif": true, "else": true,
	"except": true, "finally": true, "for": true, "from": true, "global": true,
	"if": true, "import": true, "in": true, "is": true, "lambda": true,
	"nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
	"return": true, "try": true, "while": true, "with": true, "yield": true,
}

// IsKeyword reports whether name is a reserved word.
func IsKeyword(name string) bool {
	return keywords[name]
}
