// Package pymod answers whether a Python module could be imported, without
// starting an interpreter.
package pymod

import (
	"context"
	"errors"
	"strings"
)

// Resolver reports whether a fully qualified module name is importable.
type Resolver interface {
	Resolve(ctx context.Context, name string) (bool, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, name string) (bool, error)

func (f ResolverFunc) Resolve(ctx context.Context, name string) (bool, error) {
	return f(ctx, name)
}

// Chain asks each resolver in turn; the first positive answer wins. Errors
// are only returned when no resolver found the module.
type Chain []Resolver

func (c Chain) Resolve(ctx context.Context, name string) (bool, error) {
	var errs []error
	for _, r := range c {
		ok, err := r.Resolve(ctx, name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, errors.Join(errs...)
}

// Static resolves a fixed set of names. A listed package also covers its
// submodules.
type Static map[string]struct{}

// NewStatic builds a Static resolver, ignoring blank names.
func NewStatic(names ...string) Static {
	s := make(Static, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

func (s Static) Resolve(_ context.Context, name string) (bool, error) {
	for prefix := range prefixes(name) {
		if _, ok := s[prefix]; ok {
			return true, nil
		}
	}
	return false, nil
}

// Missing walks the dotted path of name ("a", "a.b", "a.b.c") and returns
// the first prefix r cannot resolve, or "" when the whole path resolves.
func Missing(ctx context.Context, r Resolver, name string) (string, error) {
	for prefix := range prefixes(name) {
		ok, err := r.Resolve(ctx, prefix)
		if err != nil {
			return "", err
		}
		if !ok {
			return prefix, nil
		}
	}
	return "", nil
}

// prefixes yields the dotted prefixes of name, shortest first.
func prefixes(name string) func(yield func(string) bool) {
	return func(yield func(string) bool) {
		for i, r := range name {
			if r == '.' && !yield(name[:i]) {
				return
			}
		}
		yield(name)
	}
}
