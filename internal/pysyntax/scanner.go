package pysyntax

import (
	"strings"
	"unicode"
)

const (
	tabSize = 8

	// Limits of the CPython tokenizer.
	maxLevel  = 200
	maxIndent = 100
)

type bracket struct {
	ch   rune
	line int
}

type scanner struct {
	src       []rune
	pos       int
	line      int
	lineStart int
	bol       bool

	indents    []int
	altIndents []int
	brackets   []bracket
	toks       []Token
}

// Scan tokenizes src. Scanning stops at the first lexical error, which is
// returned as a trailing ERROR token so the parser can report errors that
// occur earlier in the source first.
func Scan(src string) []Token {
	src = strings.ReplaceAll(src, "\r\n", "\n")
	src = strings.ReplaceAll(src, "\r", "\n")
	src = strings.TrimPrefix(src, "\ufeff")

	s := &scanner{
		src:        []rune(src),
		line:       1,
		bol:        true,
		indents:    []int{0},
		altIndents: []int{0},
	}
	if err := s.run(); err != nil {
		s.toks = append(s.toks, Token{Kind: ERROR, Line: err.Line, err: err})
	}
	return s.toks
}

func (s *scanner) peekAt(off int) rune {
	if s.pos+off < len(s.src) {
		return s.src[s.pos+off]
	}
	return 0
}

func (s *scanner) emit(kind Kind, text string, line, col int) *Token {
	s.toks = append(s.toks, Token{
		Kind:  kind,
		Text:  text,
		Line:  line,
		Col:   col,
		Level: len(s.brackets),
	})
	return &s.toks[len(s.toks)-1]
}

func (s *scanner) newline() {
	s.line++
	s.lineStart = s.pos
	s.bol = true
}

func (s *scanner) errorf(line int, format string, args ...any) *Error {
	return newError(KindSyntax, line, format, args...)
}

func (s *scanner) run() *Error {
	for {
		if s.bol && len(s.brackets) == 0 {
			eof, err := s.indentation()
			if err != nil {
				return err
			}
			if eof {
				return s.finish()
			}
		}
		s.bol = false

		for s.pos < len(s.src) && isSpace(s.src[s.pos]) {
			s.pos++
		}
		if s.pos >= len(s.src) {
			return s.finish()
		}

		r := s.src[s.pos]
		line, col := s.line, s.pos-s.lineStart
		switch {
		case r == '#':
			s.skipComment()
		case r == '\n':
			if len(s.brackets) == 0 {
				s.emit(NEWLINE, "", line, col)
			}
			s.pos++
			s.newline()
		case r == '\\':
			switch s.peekAt(1) {
			case '\n':
				s.pos += 2
				s.line++
				s.lineStart = s.pos
			case 0:
				return s.errorf(line, "unexpected EOF while parsing")
			default:
				return s.errorf(line, "unexpected character after line continuation character")
			}
		case r == '\'' || r == '"':
			if err := s.str(s.pos, line, col); err != nil {
				return err
			}
		case isDigit(r) || (r == '.' && isDigit(s.peekAt(1))):
			if err := s.number(line, col); err != nil {
				return err
			}
		case isIdentStart(r):
			start := s.pos
			for s.pos < len(s.src) && isIdentChar(s.src[s.pos]) {
				s.pos++
			}
			word := string(s.src[start:s.pos])
			if q := s.peekAt(0); (q == '\'' || q == '"') && isStringPrefix(word) {
				if err := s.str(start, line, col); err != nil {
					return err
				}
				continue
			}
			s.emit(NAME, word, line, col)
		case r > 0x7f:
			if !unicode.IsPrint(r) {
				return s.errorf(line, "invalid non-printable character U+%04X", r)
			}
			return s.errorf(line, "invalid character '%c' (U+%04X)", r, r)
		default:
			if err := s.operator(line, col); err != nil {
				return err
			}
		}
	}
}

// indentation measures the leading whitespace of the next non-blank line and
// emits INDENT or DEDENT tokens. It reports eof when only blank lines remain.
func (s *scanner) indentation() (eof bool, err *Error) {
	for {
		col, alt := 0, 0
	measure:
		for s.pos < len(s.src) {
			switch s.src[s.pos] {
			case ' ':
				col++
				alt++
			case '\t':
				col = (col/tabSize + 1) * tabSize
				alt++
			case '\f':
				col, alt = 0, 0
			default:
				break measure
			}
			s.pos++
		}
		if s.pos >= len(s.src) {
			return true, nil
		}

		switch s.src[s.pos] {
		case '#', '\n':
			s.skipComment()
			if s.pos >= len(s.src) {
				return true, nil
			}
			s.pos++
			s.newline()
			continue
		}

		line := s.line
		top := len(s.indents) - 1
		switch {
		case col > s.indents[top]:
			if len(s.indents) >= maxIndent {
				return false, newError(KindIndentation, line, "too many levels of indentation")
			}
			if alt <= s.altIndents[top] {
				return false, newError(KindTab, line, "inconsistent use of tabs and spaces in indentation")
			}
			s.indents = append(s.indents, col)
			s.altIndents = append(s.altIndents, alt)
			s.emit(INDENT, "", line, 0)
		case col < s.indents[top]:
			for len(s.indents) > 1 && col < s.indents[len(s.indents)-1] {
				s.indents = s.indents[:len(s.indents)-1]
				s.altIndents = s.altIndents[:len(s.altIndents)-1]
				s.emit(DEDENT, "", line, 0)
			}
			top = len(s.indents) - 1
			if col != s.indents[top] {
				return false, newError(KindIndentation, line, "unindent does not match any outer indentation level")
			}
			if alt != s.altIndents[top] {
				return false, newError(KindTab, line, "inconsistent use of tabs and spaces in indentation")
			}
		default:
			if alt != s.altIndents[top] {
				return false, newError(KindTab, line, "inconsistent use of tabs and spaces in indentation")
			}
		}
		return false, nil
	}
}

func (s *scanner) skipComment() {
	for s.pos < len(s.src) && s.src[s.pos] != '\n' {
		s.pos++
	}
}

func (s *scanner) finish() *Error {
	if n := len(s.brackets); n > 0 {
		b := s.brackets[n-1]
		err := s.errorf(b.line, "'%c' was never closed", b.ch)
		err.atEOF = true
		return err
	}
	if n := len(s.toks); n > 0 {
		switch s.toks[n-1].Kind {
		case NEWLINE, INDENT, DEDENT:
		default:
			s.emit(NEWLINE, "", s.line, s.pos-s.lineStart)
		}
	}
	for len(s.indents) > 1 {
		s.indents = s.indents[:len(s.indents)-1]
		s.emit(DEDENT, "", s.line, 0)
	}
	s.emit(EOF, "", s.line, 0)
	return nil
}

var operators = []string{
	"**=", "//=", ">>=", "<<=", "...",
	"!=", "->", ":=", "**", "//", ">>", "<<", "<=", ">=", "==",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "@=",
	"+", "-", "*", "/", "%", "@", "&", "|", "^", "~", "<", ">",
	"(", ")", "[", "]", "{", "}", ",", ":", ";", ".", "=",
}

var closers = map[rune]rune{')': '(', ']': '[', '}': '{'}

func (s *scanner) operator(line, col int) *Error {
	r := s.src[s.pos]
	switch r {
	case '(', '[', '{':
		if len(s.brackets) >= maxLevel {
			return s.errorf(line, "too many nested parentheses")
		}
		s.brackets = append(s.brackets, bracket{ch: r, line: line})
		s.pos++
		s.emit(OP, string(r), line, col)
		return nil
	case ')', ']', '}':
		n := len(s.brackets)
		if n == 0 {
			return s.errorf(line, "unmatched '%c'", r)
		}
		open := s.brackets[n-1]
		if open.ch != closers[r] {
			if open.line != line {
				return s.errorf(line, "closing parenthesis '%c' does not match opening parenthesis '%c' on line %d", r, open.ch, open.line)
			}
			return s.errorf(line, "closing parenthesis '%c' does not match opening parenthesis '%c'", r, open.ch)
		}
		s.brackets = s.brackets[:n-1]
		s.pos++
		s.emit(OP, string(r), line, col)
		return nil
	}

	rest := string(s.src[s.pos:min(s.pos+3, len(s.src))])
	for _, op := range operators {
		if strings.HasPrefix(rest, op) {
			s.pos += len(op)
			s.emit(OP, op, line, col)
			return nil
		}
	}
	// Stray ASCII such as '$', '?', '!' or '`' is left for the parser,
	// which reports it as invalid syntax.
	s.pos++
	s.emit(OP, string(r), line, col)
	return nil
}

func isStringPrefix(word string) bool {
	switch strings.ToLower(word) {
	case "r", "u", "b", "f", "br", "rb", "fr", "rf":
		return true
	}
	return false
}

// str scans a string literal whose prefix starts at start and whose opening
// quote is at the current position.
func (s *scanner) str(start, line, col int) *Error {
	prefix := strings.ToLower(string(s.src[start:s.pos]))
	format := strings.Contains(prefix, "f")
	raw := strings.Contains(prefix, "r")
	q := s.src[s.pos]
	triple := s.peekAt(1) == q && s.peekAt(2) == q
	if triple {
		s.pos += 3
	} else {
		s.pos++
	}
	if err := s.strBody(q, triple, format, raw, line); err != nil {
		return err
	}
	tok := s.emit(STRING, string(s.src[start:s.pos]), line, col)
	tok.Bytes = strings.Contains(prefix, "b")
	tok.Format = format
	return nil
}

func (s *scanner) strBody(q rune, triple, format, raw bool, line int) *Error {
	kind := "string"
	if format {
		kind = "f-string"
	}
	depth := 0
	for {
		if s.pos >= len(s.src) {
			if triple {
				return s.errorf(line, "unterminated triple-quoted %s literal (detected at line %d)", kind, s.line)
			}
			return s.errorf(line, "unterminated %s literal (detected at line %d)", kind, s.line)
		}
		r := s.src[s.pos]
		switch {
		case r == '\\':
			s.pos++
			if s.pos >= len(s.src) {
				continue
			}
			switch next := s.src[s.pos]; {
			case next == '\n':
				s.pos++
				s.line++
				s.lineStart = s.pos
			case format && (next == '{' || next == '}'):
				// A backslash does not escape a brace.
			case format && !raw && next == 'N' && s.peekAt(1) == '{':
				s.pos += 2
				for s.pos < len(s.src) && s.src[s.pos] != '}' && s.src[s.pos] != '\n' && s.src[s.pos] != q {
					s.pos++
				}
				if s.peekAt(0) == '}' {
					s.pos++
				}
			default:
				s.pos++
			}
			continue
		case r == '\n':
			if !triple {
				return s.errorf(line, "unterminated %s literal (detected at line %d)", kind, s.line)
			}
			s.pos++
			s.line++
			s.lineStart = s.pos
			continue
		case format && r == '{':
			if depth == 0 && s.peekAt(1) == '{' {
				s.pos += 2
				continue
			}
			depth++
		case format && r == '}':
			if depth == 0 {
				if s.peekAt(1) == '}' {
					s.pos += 2
					continue
				}
				return s.errorf(s.line, "f-string: single '}' is not allowed")
			}
			depth--
		case format && depth > 0 && (r == '\'' || r == '"'):
			nested := s.peekAt(1) == r && s.peekAt(2) == r
			if nested {
				s.pos += 3
			} else {
				s.pos++
			}
			if err := s.strBody(r, nested, false, false, s.line); err != nil {
				return err
			}
			continue
		case r == q:
			if !triple {
				s.pos++
				return nil
			}
			if s.peekAt(1) == q && s.peekAt(2) == q {
				s.pos += 3
				return nil
			}
		}
		s.pos++
	}
}

// Keywords that may directly follow a numeric literal, as in "1if x else y".
var numberSuffixKeywords = []string{"and", "else", "for", "if", "in", "is", "not", "or"}

func (s *scanner) number(line, col int) *Error {
	start := s.pos
	if s.src[s.pos] == '0' {
		switch s.peekAt(1) {
		case 'x', 'X':
			return s.radix(start, line, col, "hexadecimal", isHexDigit)
		case 'o', 'O':
			return s.radix(start, line, col, "octal", isOctDigit)
		case 'b', 'B':
			return s.radix(start, line, col, "binary", isBinDigit)
		}
	}

	kind := "decimal"
	intStart := s.pos
	if s.peekAt(0) != '.' && !s.digits(isDigit) {
		return s.errorf(line, "invalid decimal literal")
	}
	intPart := string(s.src[intStart:s.pos])
	float := false
	if s.peekAt(0) == '.' {
		s.pos++
		float = true
		if isDigit(s.peekAt(0)) && !s.digits(isDigit) {
			return s.errorf(line, "invalid decimal literal")
		}
	}
	if e := s.peekAt(0); e == 'e' || e == 'E' {
		save := s.pos
		s.pos++
		if sign := s.peekAt(0); sign == '+' || sign == '-' {
			s.pos++
		}
		if !isDigit(s.peekAt(0)) {
			s.pos = save
			return s.errorf(line, "invalid decimal literal")
		}
		if !s.digits(isDigit) {
			return s.errorf(line, "invalid decimal literal")
		}
		float = true
	}
	imaginary := false
	if j := s.peekAt(0); j == 'j' || j == 'J' {
		s.pos++
		imaginary = true
		kind = "imaginary"
	}
	if !float && !imaginary && len(intPart) > 1 && intPart[0] == '0' && strings.Trim(intPart, "0_") != "" {
		return s.errorf(line, "leading zeros in decimal integer literals are not permitted; use an 0o prefix for octal integers")
	}
	if err := s.endOfNumber(line, kind); err != nil {
		return err
	}
	s.emit(NUMBER, string(s.src[start:s.pos]), line, col)
	return nil
}

func (s *scanner) radix(start, line, col int, kind string, valid func(rune) bool) *Error {
	s.pos += 2
	if s.peekAt(0) == '_' {
		s.pos++
	}
	if !valid(s.peekAt(0)) {
		if kind != "hexadecimal" && isDigit(s.peekAt(0)) {
			return s.errorf(line, "invalid digit '%c' in %s literal", s.peekAt(0), kind)
		}
		return s.errorf(line, "invalid %s literal", kind)
	}
	if !s.digits(valid) {
		return s.errorf(line, "invalid %s literal", kind)
	}
	if kind != "hexadecimal" && isDigit(s.peekAt(0)) {
		return s.errorf(line, "invalid digit '%c' in %s literal", s.peekAt(0), kind)
	}
	if err := s.endOfNumber(line, kind); err != nil {
		return err
	}
	s.emit(NUMBER, string(s.src[start:s.pos]), line, col)
	return nil
}

// digits consumes a run of digits with single underscores between them.
func (s *scanner) digits(valid func(rune) bool) bool {
	for {
		if !valid(s.peekAt(0)) {
			return false
		}
		for valid(s.peekAt(0)) {
			s.pos++
		}
		if s.peekAt(0) != '_' {
			return true
		}
		s.pos++
	}
}

func (s *scanner) endOfNumber(line int, kind string) *Error {
	if !isIdentStart(s.peekAt(0)) {
		return nil
	}
	rest := string(s.src[s.pos:min(s.pos+6, len(s.src))])
	for _, kw := range numberSuffixKeywords {
		if strings.HasPrefix(rest, kw) {
			after := s.pos + len(kw)
			if after >= len(s.src) || !isIdentChar(s.src[after]) {
				return nil
			}
		}
	}
	return s.errorf(line, "invalid %s literal", kind)
}

func isSpace(r rune) bool { return r == ' ' || r == '\t' || r == '\f' }

func isDigit(r rune) bool    { return r >= '0' && r <= '9' }
func isOctDigit(r rune) bool { return r >= '0' && r <= '7' }
func isBinDigit(r rune) bool { return r == '0' || r == '1' }

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r > 0x7f && (unicode.IsLetter(r) || unicode.Is(unicode.Nl, r)))
}

func isIdentChar(r rune) bool {
	return isIdentStart(r) || isDigit(r) ||
		(r > 0x7f && (unicode.IsDigit(r) || unicode.In(r, unicode.Mn, unicode.Mc, unicode.Pc)))
}
