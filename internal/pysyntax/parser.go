package pysyntax

import "fmt"

// maxDepth bounds parser recursion the way CPython's parser stack does.
const maxDepth = 6000

type parser struct {
	toks  []Token
	pos   int
	depth int
}

type bailout struct{ err *Error }

// Parse parses a module. A non-nil error is always an *Error.
func Parse(src string) (mod *Module, err error) {
	p := &parser{toks: Scan(src)}
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			mod, err = nil, p.resolve(b.err)
		}
	}()
	return p.file(), nil
}

// resolve picks the error to report. A lexical error later in the source
// takes precedence over a parse error, except for indentation errors found
// by the parser itself.
func (p *parser) resolve(err *Error) *Error {
	if err.Kind == KindMemory {
		return err
	}
	if err.Kind == KindIndentation && (err.Msg == "unexpected indent" || err.Msg == "unexpected unindent") {
		return err
	}
	last := p.toks[len(p.toks)-1]
	if last.Kind == ERROR && last.err != err && !last.err.atEOF {
		return last.err
	}
	return err
}

func (p *parser) tok() *Token {
	t := &p.toks[p.pos]
	if t.Kind == ERROR {
		panic(bailout{t.err})
	}
	return t
}

func (p *parser) peek(n int) *Token {
	i := p.pos + n
	if i >= len(p.toks) {
		i = len(p.toks) - 1
	}
	return &p.toks[i]
}

func (p *parser) next() {
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
}

func (p *parser) isOp(op string) bool { return p.tok().is(OP, op) }
func (p *parser) isKw(kw string) bool { return p.tok().is(NAME, kw) }

func (p *parser) isName() bool {
	t := p.tok()
	return t.Kind == NAME && !keywords[t.Text]
}

func (p *parser) errorAt(t *Token, format string, args ...any) {
	panic(bailout{newError(KindSyntax, t.Line, format, args...)})
}

func (p *parser) indentErrorAt(t *Token, format string, args ...any) {
	panic(bailout{newError(KindIndentation, t.Line, format, args...)})
}

func (p *parser) invalid() {
	t := p.tok()
	switch t.Kind {
	case INDENT:
		p.indentErrorAt(t, "unexpected indent")
	case DEDENT:
		p.indentErrorAt(t, "unexpected unindent")
	}
	p.errorAt(t, "invalid syntax")
}

// enter descends one level of recursion. Callers defer leave.
func (p *parser) enter() {
	p.depth++
	if p.depth > maxDepth {
		panic(bailout{newError(KindMemory, p.toks[p.pos].Line, "Parser stack overflowed - Python source too complex to parse")})
	}
}

func (p *parser) leave() { p.depth-- }

// try runs fn and rewinds on a syntax error. Stack overflow is never
// recovered here.
func (p *parser) try(fn func()) (ok bool) {
	save := p.pos
	defer func() {
		if r := recover(); r != nil {
			b, isBailout := r.(bailout)
			if !isBailout || b.err.Kind == KindMemory {
				panic(r)
			}
			p.pos = save
			ok = false
		}
	}()
	fn()
	return true
}

func (p *parser) expectOp(op string) {
	if !p.isOp(op) {
		p.invalid()
	}
	p.next()
}

func (p *parser) expectName() string {
	if !p.isName() {
		p.invalid()
	}
	name := p.tok().Text
	p.next()
	return name
}

func (p *parser) expectNewline() {
	if p.tok().Kind != NEWLINE {
		p.invalid()
	}
	p.next()
}

// expectColon consumes the ':' ending a compound statement header. Headers
// where the colon is mandatory in the grammar always report "expected ':'";
// the rest only do so at the end of the line.
func (p *parser) expectColon(forced bool) {
	if p.isOp(":") {
		p.next()
		return
	}
	if forced || p.tok().Kind == NEWLINE {
		p.errorAt(p.tok(), "expected ':'")
	}
	p.invalid()
}

func (p *parser) file() *Module {
	mod := &Module{}
	for p.tok().Kind != EOF {
		mod.Body = append(mod.Body, p.statement()...)
	}
	return mod
}

func (p *parser) statement() []Stmt {
	p.enter()
	defer p.leave()

	t := p.tok()
	switch t.Kind {
	case INDENT:
		p.indentErrorAt(t, "unexpected indent")
	case NEWLINE:
		p.next()
		return nil
	case OP:
		if t.Text == "@" {
			return []Stmt{p.decorated()}
		}
	case NAME:
		switch t.Text {
		case "def":
			return []Stmt{p.funcDef(false, 0)}
		case "class":
			return []Stmt{p.classDef(0)}
		case "if":
			return []Stmt{p.ifStmt()}
		case "while":
			return []Stmt{p.whileStmt()}
		case "for":
			return []Stmt{p.forStmt()}
		case "try":
			return []Stmt{p.tryStmt()}
		case "with":
			return []Stmt{p.withStmt()}
		case "async":
			return []Stmt{p.asyncStmt()}
		case "match":
			return p.matchStmt()
		}
	}
	return p.simpleStmts()
}

// block parses the body of a compound statement whose header started on
// line and is described by construct in error messages.
func (p *parser) block(construct string, line int) []Stmt {
	if p.tok().Kind != NEWLINE {
		return p.simpleStmts()
	}
	p.next()
	if p.tok().Kind != INDENT {
		p.indentErrorAt(p.tok(), "expected an indented block after %s on line %d", construct, line)
	}
	p.next()
	var body []Stmt
	for k := p.tok().Kind; k != DEDENT && k != EOF; k = p.tok().Kind {
		body = append(body, p.statement()...)
	}
	if p.tok().Kind == DEDENT {
		p.next()
	}
	return body
}

func (p *parser) decorated() Stmt {
	n := 0
	for p.isOp("@") {
		p.next()
		p.namedExpression()
		p.expectNewline()
		n++
	}
	switch {
	case p.isKw("def"):
		return p.funcDef(false, n)
	case p.isKw("class"):
		return p.classDef(n)
	case p.isKw("async") && p.peek(1).is(NAME, "def"):
		p.next()
		return p.funcDef(true, n)
	}
	p.invalid()
	return nil
}

func (p *parser) asyncStmt() Stmt {
	p.next()
	switch {
	case p.isKw("def"):
		return p.funcDef(true, 0)
	case p.isKw("for"):
		return p.forStmt()
	case p.isKw("with"):
		return p.withStmt()
	}
	p.invalid()
	return nil
}

func (p *parser) funcDef(async bool, decorators int) Stmt {
	line := p.tok().Line
	p.next()
	name := p.expectName()
	if p.isOp("[") {
		p.typeParams()
	}
	if !p.isOp("(") {
		p.errorAt(p.tok(), "expected '('")
	}
	p.next()
	p.parameters(")", true)
	p.expectOp(")")
	if p.isOp("->") {
		p.next()
		p.expression()
	}
	p.expectColon(true)
	return &FunctionDef{
		Line:       line,
		Name:       name,
		Async:      async,
		Decorators: decorators,
		Body:       p.block("function definition", line),
	}
}

// parameters parses a parameter list up to, but not including, closer.
// Lambdas pass annotations=false.
func (p *parser) parameters(closer string, annotations bool) {
	var (
		count        int
		seenDefault  bool
		seenSlash    bool
		seenStar     bool
		seenKwargs   bool
		needKeywords bool
	)
	annotation := func() {
		if annotations && p.isOp(":") {
			p.next()
			p.expression()
		}
	}
	for !p.isOp(closer) {
		t := p.tok()
		if seenKwargs {
			p.errorAt(t, "arguments cannot follow var-keyword argument")
		}
		switch {
		case p.isOp("/"):
			switch {
			case count == 0:
				p.errorAt(t, "at least one argument must precede /")
			case seenSlash:
				p.errorAt(t, "/ may appear only once")
			case seenStar:
				p.errorAt(t, "/ must be ahead of *")
			}
			seenSlash = true
			p.next()
		case p.isOp("*"):
			if seenStar {
				p.errorAt(t, "* argument may appear only once")
			}
			seenStar = true
			p.next()
			if p.isOp(",") || p.isOp(closer) {
				needKeywords = true
				break
			}
			p.expectName()
			if annotations && p.isOp(":") {
				p.next()
				p.starExpression()
			}
			if p.isOp("=") {
				p.errorAt(p.tok(), "var-positional argument cannot have default value")
			}
		case p.isOp("**"):
			if needKeywords {
				p.errorAt(t, "named arguments must follow bare *")
			}
			p.next()
			p.expectName()
			annotation()
			if p.isOp("=") {
				p.errorAt(p.tok(), "var-keyword argument cannot have default value")
			}
			seenKwargs = true
		default:
			p.expectName()
			annotation()
			if p.isOp("=") {
				p.next()
				p.expression()
				seenDefault = true
			} else if seenDefault && !seenStar {
				p.errorAt(t, "parameter without a default follows parameter with a default")
			}
			needKeywords = false
		}
		count++
		if p.isOp(",") {
			p.next()
			continue
		}
		if !p.isOp(closer) {
			p.invalid()
		}
	}
	if needKeywords {
		p.errorAt(p.tok(), "named arguments must follow bare *")
	}
}

func (p *parser) typeParams() {
	p.next()
	for !p.isOp("]") {
		if p.isOp("*") || p.isOp("**") {
			p.next()
			p.expectName()
		} else {
			p.expectName()
			if p.isOp(":") {
				p.next()
				p.expression()
			}
		}
		if p.isOp(",") {
			p.next()
			continue
		}
		if !p.isOp("]") {
			p.invalid()
		}
	}
	p.next()
}

func (p *parser) classDef(decorators int) Stmt {
	line := p.tok().Line
	p.next()
	name := p.expectName()
	if p.isOp("[") {
		p.typeParams()
	}
	if p.isOp("(") {
		p.next()
		p.arguments()
	}
	p.expectColon(false)
	return &ClassDef{
		Line:       line,
		Name:       name,
		Decorators: decorators,
		Body:       p.block("class definition", line),
	}
}

// condition parses the test of an if, elif or while header.
func (p *parser) condition() {
	p.namedExpression()
	if p.isOp("=") {
		p.errorAt(p.tok(), "invalid syntax. Maybe you meant '==' or ':=' instead of '='?")
	}
	p.expectColon(false)
}

func (p *parser) elseClause(blk *Block) {
	if !p.isKw("else") {
		return
	}
	line := p.tok().Line
	p.next()
	p.expectColon(true)
	blk.Body = append(blk.Body, p.block("'else' statement", line)...)
}

func (p *parser) ifStmt() Stmt {
	blk := &Block{Line: p.tok().Line, Keyword: "if"}
	p.next()
	p.condition()
	blk.Body = p.block("'if' statement", blk.Line)
	for p.isKw("elif") {
		line := p.tok().Line
		p.next()
		p.condition()
		blk.Body = append(blk.Body, p.block("'elif' statement", line)...)
	}
	p.elseClause(blk)
	return blk
}

func (p *parser) whileStmt() Stmt {
	blk := &Block{Line: p.tok().Line, Keyword: "while"}
	p.next()
	p.condition()
	blk.Body = p.block("'while' statement", blk.Line)
	p.elseClause(blk)
	return blk
}

func (p *parser) forStmt() Stmt {
	blk := &Block{Line: p.tok().Line, Keyword: "for"}
	p.next()
	target := p.forTargets()
	if !p.isKw("in") {
		p.invalid()
	}
	p.checkTarget(target, forTarget)
	p.next()
	p.starExpressions()
	p.expectColon(false)
	blk.Body = p.block("'for' statement", blk.Line)
	p.elseClause(blk)
	return blk
}

func (p *parser) tryStmt() Stmt {
	blk := &Block{Line: p.tok().Line, Keyword: "try"}
	p.next()
	p.expectColon(true)
	blk.Body = p.block("'try' statement", blk.Line)

	handlers, plain, grouped := 0, false, false
	for p.isKw("except") {
		line := p.tok().Line
		p.next()
		construct := "'except' statement"
		if p.isOp("*") {
			p.next()
			construct = "'except*' statement"
			grouped = true
			if p.isOp(":") {
				p.errorAt(p.tok(), "expected one or more exception types")
			}
		} else {
			plain = true
		}
		if plain && grouped {
			p.errorAt(p.tok(), "cannot have both 'except' and 'except*' on the same 'try'")
		}
		if !p.isOp(":") && p.tok().Kind != NEWLINE {
			p.expression()
			if p.isOp(",") {
				p.errorAt(p.tok(), "multiple exception types must be parenthesized")
			}
			if p.isKw("as") {
				p.next()
				p.expectName()
			}
		}
		p.expectColon(false)
		blk.Body = append(blk.Body, p.block(construct, line)...)
		handlers++
	}
	if handlers > 0 {
		p.elseClause(blk)
	}
	finally := false
	if p.isKw("finally") {
		line := p.tok().Line
		p.next()
		p.expectColon(true)
		blk.Body = append(blk.Body, p.block("'finally' statement", line)...)
		finally = true
	}
	if handlers == 0 && !finally {
		p.errorAt(p.tok(), "expected 'except' or 'finally' block")
	}
	return blk
}

func (p *parser) withStmt() Stmt {
	blk := &Block{Line: p.tok().Line, Keyword: "with"}
	p.next()
	parenthesized := p.isOp("(") && p.try(func() {
		p.next()
		for {
			p.withItem()
			if !p.isOp(",") {
				break
			}
			p.next()
			if p.isOp(")") {
				break
			}
		}
		p.expectOp(")")
		if !p.isOp(":") && p.tok().Kind != NEWLINE {
			p.invalid()
		}
	})
	if !parenthesized {
		for {
			p.withItem()
			if !p.isOp(",") {
				break
			}
			p.next()
		}
	}
	p.expectColon(false)
	blk.Body = p.block("'with' statement", blk.Line)
	return blk
}

func (p *parser) withItem() {
	p.expression()
	if p.isKw("as") {
		p.next()
		p.checkTarget(p.starTarget(), withTarget)
	}
}

// matchStmt parses a match statement. When "match" turns out to be an
// ordinary name the line is parsed as simple statements instead.
func (p *parser) matchStmt() []Stmt {
	switch next := p.peek(1); next.Kind {
	case NEWLINE, EOF, ERROR:
		return p.simpleStmts()
	case OP:
		switch next.Text {
		case "(", "[", "{", "-", "+", "~", "*", "...":
		default:
			return p.simpleStmts()
		}
	}

	start := p.pos
	line := p.tok().Line
	missingColon := false
	ok := p.try(func() {
		p.next()
		p.starNamedExpressions()
		switch {
		case p.isOp(":"):
		case p.tok().Kind == NEWLINE:
			missingColon = true
		default:
			p.invalid()
		}
	})
	if !ok {
		return p.simpleStmts()
	}
	if missingColon {
		colon := p.pos
		p.pos = start
		var out []Stmt
		if p.try(func() { out = p.simpleStmts() }) {
			return out
		}
		p.pos = colon
		p.errorAt(p.tok(), "expected ':'")
	}
	p.next()
	blk := &Block{Line: line, Keyword: "match"}
	if p.tok().Kind != NEWLINE {
		p.invalid()
	}
	p.next()
	if p.tok().Kind != INDENT {
		p.indentErrorAt(p.tok(), "expected an indented block after 'match' statement on line %d", line)
	}
	p.next()
	for k := p.tok().Kind; k != DEDENT && k != EOF; k = p.tok().Kind {
		if !p.isKw("case") {
			p.invalid()
		}
		caseLine := p.tok().Line
		p.next()
		p.patterns()
		if p.isKw("if") {
			p.next()
			p.namedExpression()
		}
		p.expectColon(false)
		blk.Body = append(blk.Body, p.block("'case' statement", caseLine)...)
	}
	if p.tok().Kind == DEDENT {
		p.next()
	}
	return []Stmt{blk}
}

func (p *parser) simpleStmts() []Stmt {
	var out []Stmt
	for {
		out = append(out, p.simpleStmt())
		if !p.isOp(";") {
			break
		}
		p.next()
		if p.tok().Kind == NEWLINE {
			break
		}
	}
	p.expectNewline()
	return out
}

var augOps = map[string]bool{
	"+=": true, "-=": true, "*=": true, "/=": true, "//=": true, "%=": true,
	"@=": true, "&=": true, "|=": true, "^=": true, ">>=": true, "<<=": true,
	"**=": true,
}

func (p *parser) simpleStmt() Stmt {
	t := p.tok()
	stmt := &SimpleStmt{Line: t.Line, Kind: t.Text}
	if t.Kind == NAME {
		switch t.Text {
		case "pass", "break", "continue":
			p.next()
			return stmt
		case "return":
			p.next()
			if p.startsExpr() || p.isOp("*") {
				p.starExpressions()
			}
			return stmt
		case "raise":
			p.next()
			if p.startsExpr() {
				p.expression()
				if p.isKw("from") {
					p.next()
					p.expression()
				}
			}
			return stmt
		case "global", "nonlocal":
			p.next()
			p.expectName()
			for p.isOp(",") {
				p.next()
				p.expectName()
			}
			return stmt
		case "del":
			p.next()
			p.delTargets()
			return stmt
		case "assert":
			p.next()
			p.expression()
			if p.isOp(",") {
				p.next()
				p.expression()
			}
			return stmt
		case "import":
			return p.importName()
		case "from":
			return p.importFrom()
		case "type":
			if n := p.peek(1); n.Kind == NAME && !keywords[n.Text] {
				if a := p.peek(2); a.is(OP, "=") || a.is(OP, "[") {
					p.next()
					p.next()
					if p.isOp("[") {
						p.typeParams()
					}
					p.expectOp("=")
					p.expression()
					return stmt
				}
			}
		}
	}
	return p.exprStmt()
}

func (p *parser) exprStmt() Stmt {
	stmt := &SimpleStmt{Line: p.tok().Line, Kind: "expr"}
	first := p.annotatedRHS()
	switch {
	case p.isOp(":"):
		p.checkAnnotationTarget(first)
		p.next()
		p.expression()
		if p.isOp("=") {
			p.next()
			p.annotatedRHS()
		}
		stmt.Kind = "annassign"
	case p.tok().Kind == OP && augOps[p.tok().Text]:
		switch first.kind {
		case exName, exAttribute, exSubscript:
		default:
			p.errorAt(first.tok, "'%s' is an illegal expression for augmented assignment", first.describe())
		}
		p.next()
		p.annotatedRHS()
		stmt.Kind = "augassign"
	case p.isOp("="):
		targets := 0
		for p.isOp("=") {
			if first.kind == exYield {
				p.errorAt(first.tok, "assignment to yield expression not possible")
			}
			targets++
			target := first
			p.next()
			first = p.annotatedRHS()
			p.checkAssignTarget(target, targets == 1 && !p.isOp("="))
		}
		stmt.Kind = "assign"
	default:
		if first.kind == exName && (first.name == "print" || first.name == "exec") && p.startsExpr() {
			p.errorAt(first.tok, "Missing parentheses in call to '%s'. Did you mean %s(...)?", first.name, first.name)
		}
	}
	return stmt
}

func (p *parser) annotatedRHS() expr {
	if p.isKw("yield") {
		return p.yieldExpr()
	}
	return p.starExpressions()
}

func (p *parser) delTargets() {
	for {
		p.checkTarget(p.bitwiseOr(), delTarget)
		if !p.isOp(",") {
			return
		}
		p.next()
		if p.tok().Kind == NEWLINE || p.isOp(";") {
			return
		}
	}
}

func (p *parser) dottedName() string {
	name := p.expectName()
	for p.isOp(".") {
		p.next()
		name += "." + p.expectName()
	}
	return name
}

func (p *parser) importName() Stmt {
	stmt := &Import{Line: p.tok().Line}
	p.next()
	for {
		alias := Alias{Name: p.dottedName()}
		if p.isKw("as") {
			p.next()
			alias.AsName = p.expectName()
		}
		stmt.Names = append(stmt.Names, alias)
		if !p.isOp(",") {
			return stmt
		}
		p.next()
	}
}

func (p *parser) importFrom() Stmt {
	stmt := &ImportFrom{Line: p.tok().Line}
	p.next()
	for p.isOp(".") || p.isOp("...") {
		stmt.Level += len(p.tok().Text)
		p.next()
	}
	if !p.isKw("import") {
		stmt.Module = p.dottedName()
	}
	if !p.isKw("import") {
		p.invalid()
	}
	p.next()
	switch {
	case p.isOp("*"):
		p.next()
		stmt.Names = []Alias{{Name: "*"}}
	case p.isOp("("):
		p.next()
		stmt.Names = p.importAsNames(true)
		p.expectOp(")")
	default:
		stmt.Names = p.importAsNames(false)
	}
	return stmt
}

func (p *parser) importAsNames(parenthesized bool) []Alias {
	var names []Alias
	for {
		alias := Alias{Name: p.expectName()}
		if p.isKw("as") {
			p.next()
			alias.AsName = p.expectName()
		}
		names = append(names, alias)
		if !p.isOp(",") {
			return names
		}
		p.next()
		if parenthesized && p.isOp(")") {
			return names
		}
		if !parenthesized && (p.tok().Kind == NEWLINE || p.isOp(";")) {
			p.errorAt(p.tok(), "trailing comma not allowed without surrounding parentheses")
		}
	}
}

// String renders a token for debugging.
func (t Token) String() string {
	if t.Text == "" {
		return fmt.Sprintf("%s@%d", t.Kind, t.Line)
	}
	return fmt.Sprintf("%s(%q)@%d", t.Kind, t.Text, t.Line)
}
