package pysyntax

// patterns parses the pattern of a case clause, including an unparenthesized
// sequence such as "case a, *rest:".
func (p *parser) patterns() {
	p.maybeStarPattern()
	for p.isOp(",") {
		p.next()
		if p.isOp(":") || p.isKw("if") {
			return
		}
		p.maybeStarPattern()
	}
}

func (p *parser) maybeStarPattern() {
	if p.isOp("*") {
		p.next()
		p.expectName()
		return
	}
	p.pattern()
}

func (p *parser) pattern() {
	p.closedPattern()
	for p.isOp("|") {
		p.next()
		p.closedPattern()
	}
	if p.isKw("as") {
		p.next()
		if p.isName() && p.tok().Text == "_" {
			p.errorAt(p.tok(), "cannot use '_' as a target")
		}
		p.expectName()
	}
}

func (p *parser) closedPattern() {
	t := p.tok()
	switch {
	case t.Kind == NUMBER || p.isOp("-"):
		p.signedNumber()
	case t.Kind == STRING:
		for p.tok().Kind == STRING {
			p.next()
		}
	case p.isKw("None") || p.isKw("True") || p.isKw("False"):
		p.next()
	case p.isName():
		p.dottedName()
		if p.isOp("(") {
			p.next()
			p.classPatternArgs()
		}
	case p.isOp("("):
		p.next()
		if p.isOp(")") {
			p.next()
			return
		}
		p.maybeStarPattern()
		for p.isOp(",") {
			p.next()
			if p.isOp(")") {
				break
			}
			p.maybeStarPattern()
		}
		p.closeBracket(")")
	case p.isOp("["):
		p.next()
		for !p.isOp("]") {
			p.maybeStarPattern()
			if !p.isOp(",") {
				break
			}
			p.next()
		}
		p.closeBracket("]")
	case p.isOp("{"):
		p.next()
		p.mappingPattern()
	default:
		p.invalid()
	}
}

func (p *parser) signedNumber() {
	if p.isOp("-") {
		p.next()
	}
	if p.tok().Kind != NUMBER {
		p.invalid()
	}
	p.next()
	if p.isOp("+") || p.isOp("-") {
		p.next()
		if p.tok().Kind != NUMBER {
			p.invalid()
		}
		p.next()
	}
}

func (p *parser) mappingPattern() {
	for !p.isOp("}") {
		if p.isOp("**") {
			p.next()
			p.expectName()
		} else {
			switch t := p.tok(); {
			case t.Kind == NUMBER || p.isOp("-"):
				p.signedNumber()
			case t.Kind == STRING:
				for p.tok().Kind == STRING {
					p.next()
				}
			case p.isKw("None") || p.isKw("True") || p.isKw("False"):
				p.next()
			case p.isName():
				p.dottedName()
			default:
				p.invalid()
			}
			p.expectOp(":")
			p.pattern()
		}
		if !p.isOp(",") {
			break
		}
		p.next()
	}
	p.closeBracket("}")
}

func (p *parser) classPatternArgs() {
	keyword := false
	for !p.isOp(")") {
		if p.isName() && p.peek(1).is(OP, "=") {
			p.next()
			p.next()
			p.pattern()
			keyword = true
		} else {
			if keyword {
				p.errorAt(p.tok(), "positional patterns follow keyword patterns")
			}
			p.pattern()
		}
		if !p.isOp(",") {
			break
		}
		p.next()
	}
	p.closeBracket(")")
}
