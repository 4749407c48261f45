package pysyntax

// Module is a parsed source file.
type Module struct {
	Body []Stmt
}

// Stmt is a statement node.
type Stmt interface {
	StmtLine() int
}

// Alias is one name in an import statement.
type Alias struct {
	Name   string
	AsName string
}

// Import is "import a.b as c, d".
type Import struct {
	Line  int
	Names []Alias
}

// ImportFrom is "from ..a import b as c".
type ImportFrom struct {
	Line   int
	Module string
	Level  int
	Names  []Alias
}

// FunctionDef is a def or async def statement.
type FunctionDef struct {
	Line       int
	Name       string
	Async      bool
	Decorators int
	Body       []Stmt
}

// ClassDef is a class statement.
type ClassDef struct {
	Line       int
	Name       string
	Decorators int
	Body       []Stmt
}

// Block is any other compound statement (if, for, while, try, with, match).
// Body holds the statements of every clause in source order.
type Block struct {
	Line    int
	Keyword string
	Body    []Stmt
}

// SimpleStmt is a statement without a body. Kind is the leading keyword, or
// "expr", "assign", "augassign", "annassign" or "type".
type SimpleStmt struct {
	Line int
	Kind string
}

func (s *Import) StmtLine() int      { return s.Line }
func (s *ImportFrom) StmtLine() int  { return s.Line }
func (s *FunctionDef) StmtLine() int { return s.Line }
func (s *ClassDef) StmtLine() int    { return s.Line }
func (s *Block) StmtLine() int       { return s.Line }
func (s *SimpleStmt) StmtLine() int  { return s.Line }
