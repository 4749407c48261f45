// Package validate statically checks submitted Python snippets.
package validate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flowlet/flowlet/internal/pymod"
	"github.com/flowlet/flowlet/internal/pysyntax"
)

// Section holds the errors found on one axis of a report.
type Section struct {
	Errors []string `json:"errors"`
}

// Report is the result of validating a snippet. Both error lists are
// always non-nil so they encode as [].
type Report struct {
	Imports  Section `json:"imports"`
	Function Section `json:"function"`
}

// NewReport returns a report with no errors.
func NewReport() Report {
	return Report{
		Imports:  Section{Errors: []string{}},
		Function: Section{Errors: []string{}},
	}
}

// OK reports whether no errors were found.
func (r Report) OK() bool {
	return len(r.Imports.Errors) == 0 && len(r.Function.Errors) == 0
}

// Validator checks syntax and import availability. It never executes code.
type Validator struct {
	resolver pymod.Resolver
	logger   *slog.Logger
}

// New creates a Validator.
func New(resolver pymod.Resolver, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{resolver: resolver, logger: logger}
}

// Code validates a snippet. Syntax errors end validation early since there
// is no module to inspect.
func (v *Validator) Code(ctx context.Context, code string) Report {
	report := NewReport()

	mod, err := pysyntax.Parse(code)
	if err != nil {
		report.Function.Errors = append(report.Function.Errors, err.Error())
		return report
	}

	for _, stmt := range mod.Body {
		imp, ok := stmt.(*pysyntax.Import)
		if !ok {
			continue
		}
		for _, alias := range imp.Names {
			missing, err := pymod.Missing(ctx, v.resolver, alias.Name)
			if err != nil {
				v.logger.Warn("module resolution failed",
					slog.String("module", alias.Name),
					slog.String("error", err.Error()),
				)
				continue
			}
			if missing != "" {
				report.Imports.Errors = append(report.Imports.Errors, fmt.Sprintf("No module named '%s'", missing))
			}
		}
	}
	return report
}
