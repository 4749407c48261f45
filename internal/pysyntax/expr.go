package pysyntax

type exprKind int

const (
	exOther exprKind = iota
	exName
	exAttribute
	exSubscript
	exStarred
	exTuple
	exList
	exCall
	exConstant
	exNone
	exTrue
	exFalse
	exEllipsis
	exOperation
	exCompare
	exLambda
	exIfExp
	exNamed
	exYield
	exAwait
	exGenerator
	exListComp
	exSetComp
	exDictComp
	exDict
	exSet
	exFString
)

var exprNames = map[exprKind]string{
	exOther:     "expression",
	exName:      "name",
	exAttribute: "attribute",
	exSubscript: "subscript",
	exStarred:   "starred",
	exTuple:     "tuple",
	exList:      "list",
	exCall:      "function call",
	exConstant:  "literal",
	exNone:      "None",
	exTrue:      "True",
	exFalse:     "False",
	exEllipsis:  "ellipsis",
	exOperation: "expression",
	exCompare:   "comparison",
	exLambda:    "lambda",
	exIfExp:     "conditional expression",
	exNamed:     "named expression",
	exYield:     "yield expression",
	exAwait:     "await expression",
	exGenerator: "generator expression",
	exListComp:  "list comprehension",
	exSetComp:   "set comprehension",
	exDictComp:  "dict comprehension",
	exDict:      "dict literal",
	exSet:       "set display",
	exFString:   "f-string expression",
}

// expr summarizes a parsed expression: enough to validate assignment
// targets and to word error messages.
type expr struct {
	kind exprKind
	name string
	tok  *Token
	elts []expr
}

func (e expr) describe() string { return exprNames[e.kind] }

type targetContext int

const (
	assignTarget targetContext = iota
	forTarget
	withTarget
	delTarget
)

// invalidTarget returns the first sub-expression that cannot be bound in
// ctx, or nil.
func invalidTarget(e expr, ctx targetContext) *expr {
	switch e.kind {
	case exName, exAttribute, exSubscript:
		return nil
	case exStarred:
		if ctx == delTarget {
			return &e
		}
		return invalidTarget(e.elts[0], ctx)
	case exTuple, exList:
		for _, elt := range e.elts {
			if bad := invalidTarget(elt, ctx); bad != nil {
				return bad
			}
		}
		return nil
	}
	return &e
}

func (p *parser) checkTarget(e expr, ctx targetContext) {
	bad := invalidTarget(e, ctx)
	if bad == nil {
		return
	}
	if ctx == delTarget {
		p.errorAt(bad.tok, "cannot delete %s", bad.describe())
	}
	p.errorAt(bad.tok, "cannot assign to %s", bad.describe())
}

// checkAssignTarget validates the left side of '='. A lone invalid target
// directly followed by its value gets the hint about comparison.
func (p *parser) checkAssignTarget(e expr, hint bool) {
	bad := invalidTarget(e, assignTarget)
	if bad == nil {
		return
	}
	if hint && bad.kind == e.kind && bad.tok == e.tok {
		switch bad.kind {
		case exNone, exTrue, exFalse, exTuple, exList, exGenerator:
		default:
			p.errorAt(bad.tok, "cannot assign to %s here. Maybe you meant '==' instead of '='?", bad.describe())
		}
	}
	p.errorAt(bad.tok, "cannot assign to %s", bad.describe())
}

func (p *parser) checkAnnotationTarget(e expr) {
	switch e.kind {
	case exName, exAttribute, exSubscript:
	case exTuple, exList:
		p.errorAt(e.tok, "only single target (not %s) can be annotated", e.describe())
	default:
		p.errorAt(e.tok, "illegal target for annotation")
	}
}

// startsExpr reports whether the current token can begin an expression.
func (p *parser) startsExpr() bool {
	t := p.tok()
	switch t.Kind {
	case NAME:
		switch t.Text {
		case "None", "True", "False", "not", "lambda", "await":
			return true
		}
		return !keywords[t.Text]
	case NUMBER, STRING:
		return true
	case OP:
		switch t.Text {
		case "(", "[", "{", "-", "+", "~", "...":
			return true
		}
	}
	return false
}

// closeBracket consumes closer, diagnosing a missing comma between two
// expressions inside brackets.
func (p *parser) closeBracket(closer string) {
	if p.isOp(closer) {
		p.next()
		return
	}
	p.missingComma()
	p.invalid()
}

func (p *parser) missingComma() {
	t := p.tok()
	if t.Level == 0 || !p.startsExpr() || p.pos == 0 {
		return
	}
	prev := &p.toks[p.pos-1]
	if prev.Kind == NAME && t.Kind == STRING {
		return
	}
	p.errorAt(prev, "invalid syntax. Perhaps you forgot a comma?")
}

func (p *parser) starExpressions() expr {
	first := p.starExpression()
	if !p.isOp(",") {
		return first
	}
	tuple := expr{kind: exTuple, tok: first.tok, elts: []expr{first}}
	for p.isOp(",") {
		p.next()
		if !p.startsExpr() && !p.isOp("*") {
			break
		}
		tuple.elts = append(tuple.elts, p.starExpression())
	}
	return tuple
}

func (p *parser) starExpression() expr {
	if p.isOp("*") {
		t := p.tok()
		p.next()
		return expr{kind: exStarred, tok: t, elts: []expr{p.bitwiseOr()}}
	}
	return p.expression()
}

func (p *parser) starNamedExpressions() expr {
	first := p.starNamedExpression()
	if !p.isOp(",") {
		return first
	}
	tuple := expr{kind: exTuple, tok: first.tok, elts: []expr{first}}
	for p.isOp(",") {
		p.next()
		if !p.startsExpr() && !p.isOp("*") {
			break
		}
		tuple.elts = append(tuple.elts, p.starNamedExpression())
	}
	return tuple
}

func (p *parser) starNamedExpression() expr {
	if p.isOp("*") {
		t := p.tok()
		p.next()
		return expr{kind: exStarred, tok: t, elts: []expr{p.bitwiseOr()}}
	}
	return p.namedExpression()
}

func (p *parser) namedExpression() expr {
	t := p.tok()
	if p.isName() && p.peek(1).is(OP, ":=") {
		p.next()
		p.next()
		p.expression()
		return expr{kind: exNamed, tok: t}
	}
	e := p.expression()
	if p.isOp(":=") {
		p.errorAt(e.tok, "cannot use assignment expressions with %s", e.describe())
	}
	return e
}

func (p *parser) expression() expr {
	p.enter()
	defer p.leave()

	if p.isKw("lambda") {
		t := p.tok()
		p.next()
		p.parameters(":", false)
		p.expectOp(":")
		p.expression()
		return expr{kind: exLambda, tok: t}
	}
	e := p.disjunction()
	if !p.isKw("if") {
		return e
	}
	p.next()
	p.disjunction()
	if !p.isKw("else") {
		p.errorAt(p.tok(), "expected 'else' after 'if' expression")
	}
	p.next()
	p.expression()
	return expr{kind: exIfExp, tok: e.tok}
}

func (p *parser) disjunction() expr {
	e := p.conjunction()
	for p.isKw("or") {
		p.next()
		p.conjunction()
		e = expr{kind: exOperation, tok: e.tok}
	}
	return e
}

func (p *parser) conjunction() expr {
	e := p.inversion()
	for p.isKw("and") {
		p.next()
		p.inversion()
		e = expr{kind: exOperation, tok: e.tok}
	}
	return e
}

func (p *parser) inversion() expr {
	p.enter()
	defer p.leave()

	if p.isKw("not") {
		t := p.tok()
		p.next()
		p.inversion()
		return expr{kind: exOperation, tok: t}
	}
	return p.comparison()
}

var compareOps = map[string]bool{"==": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true}

func (p *parser) comparison() expr {
	e := p.bitwiseOr()
	compared := false
	for {
		switch t := p.tok(); {
		case t.Kind == OP && compareOps[t.Text]:
			p.next()
		case p.isKw("in"):
			p.next()
		case p.isKw("not") && p.peek(1).is(NAME, "in"):
			p.next()
			p.next()
		case p.isKw("is"):
			p.next()
			if p.isKw("not") {
				p.next()
			}
		default:
			if compared {
				return expr{kind: exCompare, tok: e.tok}
			}
			return e
		}
		compared = true
		p.bitwiseOr()
	}
}

func (p *parser) binary(ops map[string]bool, operand func() expr) expr {
	e := operand()
	for t := p.tok(); t.Kind == OP && ops[t.Text]; t = p.tok() {
		p.next()
		operand()
		e = expr{kind: exOperation, tok: e.tok}
	}
	return e
}

var (
	orOps    = map[string]bool{"|": true}
	xorOps   = map[string]bool{"^": true}
	andOps   = map[string]bool{"&": true}
	shiftOps = map[string]bool{"<<": true, ">>": true}
	sumOps   = map[string]bool{"+": true, "-": true}
	termOps  = map[string]bool{"*": true, "/": true, "//": true, "%": true, "@": true}
)

func (p *parser) bitwiseOr() expr  { return p.binary(orOps, p.bitwiseXor) }
func (p *parser) bitwiseXor() expr { return p.binary(xorOps, p.bitwiseAnd) }
func (p *parser) bitwiseAnd() expr { return p.binary(andOps, p.shift) }
func (p *parser) shift() expr      { return p.binary(shiftOps, p.sum) }
func (p *parser) sum() expr        { return p.binary(sumOps, p.term) }
func (p *parser) term() expr       { return p.binary(termOps, p.factor) }

func (p *parser) factor() expr {
	p.enter()
	defer p.leave()

	if t := p.tok(); t.Kind == OP && (t.Text == "+" || t.Text == "-" || t.Text == "~") {
		p.next()
		p.factor()
		return expr{kind: exOperation, tok: t}
	}
	e := p.awaitPrimary()
	if p.isOp("**") {
		p.next()
		p.factor()
		return expr{kind: exOperation, tok: e.tok}
	}
	return e
}

func (p *parser) awaitPrimary() expr {
	if p.isKw("await") {
		t := p.tok()
		p.next()
		p.primary()
		return expr{kind: exAwait, tok: t}
	}
	return p.primary()
}

func (p *parser) primary() expr {
	e := p.atom()
	for {
		switch {
		case p.isOp("."):
			p.next()
			p.expectName()
			e = expr{kind: exAttribute, tok: e.tok}
		case p.isOp("("):
			p.next()
			p.arguments()
			e = expr{kind: exCall, tok: e.tok}
		case p.isOp("["):
			p.next()
			p.slices()
			e = expr{kind: exSubscript, tok: e.tok}
		default:
			return e
		}
	}
}

func (p *parser) atom() expr {
	t := p.tok()
	switch t.Kind {
	case NAME:
		kind := exName
		switch t.Text {
		case "None":
			kind = exNone
		case "True":
			kind = exTrue
		case "False":
			kind = exFalse
		default:
			if keywords[t.Text] {
				p.invalid()
			}
		}
		p.next()
		return expr{kind: kind, name: t.Text, tok: t}
	case NUMBER:
		p.next()
		return expr{kind: exConstant, tok: t}
	case STRING:
		kind := exConstant
		for p.tok().Kind == STRING {
			s := p.tok()
			if s.Bytes != t.Bytes {
				p.errorAt(t, "cannot mix bytes and nonbytes literals")
			}
			if s.Format {
				kind = exFString
			}
			p.next()
		}
		return expr{kind: kind, tok: t}
	case OP:
		switch t.Text {
		case "(":
			return p.parenAtom()
		case "[":
			return p.listAtom()
		case "{":
			return p.braceAtom()
		case "...":
			p.next()
			return expr{kind: exEllipsis, tok: t}
		}
	}
	p.invalid()
	return expr{}
}

func (p *parser) atComprehension() bool {
	return p.isKw("for") || (p.isKw("async") && p.peek(1).is(NAME, "for"))
}

func (p *parser) parenAtom() expr {
	t := p.tok()
	p.next()
	if p.isOp(")") {
		p.next()
		return expr{kind: exTuple, tok: t}
	}
	if p.isKw("yield") {
		p.yieldExpr()
		p.closeBracket(")")
		return expr{kind: exYield, tok: t}
	}
	first := p.starNamedExpression()
	if p.atComprehension() {
		p.comprehension()
		p.closeBracket(")")
		return expr{kind: exGenerator, tok: t}
	}
	if !p.isOp(",") {
		if first.kind == exStarred {
			p.errorAt(first.tok, "cannot use starred expression here")
		}
		p.closeBracket(")")
		return first
	}
	tuple := expr{kind: exTuple, tok: t, elts: []expr{first}}
	for p.isOp(",") {
		p.next()
		if p.isOp(")") {
			break
		}
		tuple.elts = append(tuple.elts, p.starNamedExpression())
	}
	p.closeBracket(")")
	return tuple
}

func (p *parser) listAtom() expr {
	t := p.tok()
	p.next()
	list := expr{kind: exList, tok: t}
	if p.isOp("]") {
		p.next()
		return list
	}
	first := p.starNamedExpression()
	if p.atComprehension() {
		p.comprehension()
		p.closeBracket("]")
		return expr{kind: exListComp, tok: t}
	}
	list.elts = append(list.elts, first)
	for p.isOp(",") {
		p.next()
		if p.isOp("]") {
			break
		}
		list.elts = append(list.elts, p.starNamedExpression())
	}
	p.closeBracket("]")
	return list
}

func (p *parser) braceAtom() expr {
	t := p.tok()
	p.next()
	if p.isOp("}") {
		p.next()
		return expr{kind: exDict, tok: t}
	}
	if p.isOp("**") {
		p.next()
		p.bitwiseOr()
		return p.dictRest(t)
	}
	p.starNamedExpression()
	if p.isOp(":") {
		p.next()
		p.expression()
		if p.atComprehension() {
			p.comprehension()
			p.closeBracket("}")
			return expr{kind: exDictComp, tok: t}
		}
		return p.dictRest(t)
	}
	if p.atComprehension() {
		p.comprehension()
		p.closeBracket("}")
		return expr{kind: exSetComp, tok: t}
	}
	for p.isOp(",") {
		p.next()
		if p.isOp("}") {
			break
		}
		p.starNamedExpression()
	}
	p.closeBracket("}")
	return expr{kind: exSet, tok: t}
}

func (p *parser) dictRest(open *Token) expr {
	for p.isOp(",") {
		p.next()
		if p.isOp("}") {
			break
		}
		if p.isOp("**") {
			p.next()
			p.bitwiseOr()
			continue
		}
		p.expression()
		if !p.isOp(":") {
			p.errorAt(p.tok(), "':' expected after dictionary key")
		}
		p.next()
		p.expression()
	}
	p.closeBracket("}")
	return expr{kind: exDict, tok: open}
}

func (p *parser) comprehension() {
	for p.atComprehension() {
		if p.isKw("async") {
			p.next()
		}
		p.next()
		target := p.forTargets()
		if !p.isKw("in") {
			p.invalid()
		}
		p.checkTarget(target, forTarget)
		p.next()
		p.disjunction()
		for p.isKw("if") {
			p.next()
			p.disjunction()
		}
	}
}

func (p *parser) starTarget() expr {
	if p.isOp("*") {
		t := p.tok()
		p.next()
		return expr{kind: exStarred, tok: t, elts: []expr{p.bitwiseOr()}}
	}
	return p.bitwiseOr()
}

func (p *parser) forTargets() expr {
	first := p.starTarget()
	if !p.isOp(",") {
		return first
	}
	tuple := expr{kind: exTuple, tok: first.tok, elts: []expr{first}}
	for p.isOp(",") {
		p.next()
		if p.isKw("in") {
			break
		}
		tuple.elts = append(tuple.elts, p.starTarget())
	}
	return tuple
}

func (p *parser) arguments() {
	var keyword, unpacked bool
	n := 0
	for !p.isOp(")") {
		t := p.tok()
		switch {
		case p.isOp("*"):
			if unpacked {
				p.errorAt(t, "iterable argument unpacking follows keyword argument unpacking")
			}
			p.next()
			p.expression()
		case p.isOp("**"):
			p.next()
			p.expression()
			unpacked = true
		case p.isName() && p.peek(1).is(OP, "="):
			p.next()
			p.next()
			p.expression()
			keyword = true
		default:
			e := p.namedExpression()
			switch {
			case p.atComprehension():
				p.comprehension()
				if n > 0 || !p.isOp(")") {
					p.errorAt(e.tok, "Generator expression must be parenthesized")
				}
			case p.isOp("="):
				p.errorAt(e.tok, `expression cannot contain assignment, perhaps you meant "=="?`)
			}
			if unpacked {
				p.errorAt(e.tok, "positional argument follows keyword argument unpacking")
			}
			if keyword {
				p.errorAt(e.tok, "positional argument follows keyword argument")
			}
		}
		n++
		if p.isOp(",") {
			p.next()
			continue
		}
		if !p.isOp(")") {
			p.missingComma()
			p.invalid()
		}
	}
	p.next()
}

func (p *parser) slices() {
	for {
		p.slice()
		if !p.isOp(",") {
			break
		}
		p.next()
		if p.isOp("]") {
			break
		}
	}
	p.closeBracket("]")
}

func (p *parser) slice() {
	if p.isOp("*") {
		p.next()
		p.bitwiseOr()
		return
	}
	if !p.isOp(":") {
		p.namedExpression()
		if !p.isOp(":") {
			return
		}
	}
	p.next()
	if !p.isOp(":") && !p.isOp("]") && !p.isOp(",") {
		p.expression()
	}
	if p.isOp(":") {
		p.next()
		if !p.isOp("]") && !p.isOp(",") {
			p.expression()
		}
	}
}

func (p *parser) yieldExpr() expr {
	t := p.tok()
	p.next()
	if p.isKw("from") {
		p.next()
		p.expression()
	} else if p.startsExpr() || p.isOp("*") {
		p.starExpressions()
	}
	return expr{kind: exYield, tok: t}
}
