// Package prompt extracts input variables from prompt templates and keeps a
// prompt node's template fields in sync with them.
package prompt

import (
	"errors"
	"strings"
)

// Format string errors, worded as Python's str.format reports them.
var (
	ErrSingleClose   = errors.New("Single '}' encountered in format string")
	ErrSingleOpen    = errors.New("Single '{' encountered in format string")
	ErrUnclosed      = errors.New("expected '}' before end of string")
	ErrBraceInField  = errors.New("unexpected '{' in field name")
	ErrConversion    = errors.New("expected ':' after conversion specifier")
	ErrNoConversion  = errors.New("end of string while looking for conversion specifier")
	ErrUnmatchedOpen = errors.New("unmatched '{' in format spec")
)

// Field is one replacement field of a template.
type Field struct {
	Name       string
	Conversion string
	Spec       string
}

// Root returns the argument name the field refers to: "user" for
// "user.name" or "user[0]".
func (f Field) Root() string {
	if i := strings.IndexAny(f.Name, ".["); i >= 0 {
		return f.Name[:i]
	}
	return f.Name
}

// Parse splits a template into replacement fields using str.format rules:
// doubled braces are literal, field names may index with [...], and the
// format spec may nest one level of fields.
func Parse(template string) ([]Field, error) {
	var fields []Field
	s := template
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '}':
			if i+1 < len(s) && s[i+1] == '}' {
				i++
				continue
			}
			return nil, ErrSingleClose
		case '{':
			if i+1 < len(s) && s[i+1] == '{' {
				i++
				continue
			}
			end, err := fieldEnd(s, i+1)
			if err != nil {
				return nil, err
			}
			f, nested, err := parseField(s[i+1 : end])
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
			fields = append(fields, nested...)
			i = end
		}
	}
	return fields, nil
}

// fieldEnd returns the index of the '}' closing the field that starts at
// start.
func fieldEnd(s string, start int) (int, error) {
	if start >= len(s) {
		return 0, ErrSingleOpen
	}
	depth := 1
	inSpec := false
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '[':
			if inSpec {
				continue
			}
			j := strings.IndexByte(s[i:], ']')
			if j < 0 {
				return 0, ErrUnclosed
			}
			i += j
		case ':':
			inSpec = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, ErrUnclosed
}

func parseField(body string) (Field, []Field, error) {
	var f Field
	i := 0
	for i < len(body) {
		c := body[i]
		if c == '{' {
			return Field{}, nil, ErrBraceInField
		}
		if c == '[' {
			j := strings.IndexByte(body[i:], ']')
			if j < 0 {
				return Field{}, nil, ErrUnclosed
			}
			i += j + 1
			continue
		}
		if c == '!' || c == ':' {
			break
		}
		i++
	}
	f.Name = body[:i]
	rest := body[i:]

	if strings.HasPrefix(rest, "!") {
		if len(rest) < 2 {
			return Field{}, nil, ErrNoConversion
		}
		f.Conversion = rest[1:2]
		rest = rest[2:]
		if rest != "" && rest[0] != ':' {
			return Field{}, nil, ErrConversion
		}
	}
	if strings.HasPrefix(rest, ":") {
		f.Spec = rest[1:]
	}

	var nested []Field
	if strings.ContainsAny(f.Spec, "{}") {
		var err error
		nested, err = Parse(f.Spec)
		if err != nil {
			return Field{}, nil, ErrUnmatchedOpen
		}
	}
	return f, nested, nil
}

// InputVariables returns the argument names a template refers to, in order
// of first occurrence. A malformed template yields an empty list.
func InputVariables(template string) []string {
	fields, err := Parse(template)
	if err != nil {
		return []string{}
	}
	seen := make(map[string]struct{}, len(fields))
	vars := make([]string, 0, len(fields))
	for _, f := range fields {
		name := f.Root()
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		vars = append(vars, name)
	}
	return vars
}
