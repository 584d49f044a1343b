// Package validation collects field-level findings produced by the checkout validators.
package validation

import (
	"fmt"
	"strings"
)

// Severity says whether an issue blocks the wizard from proceeding
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue codes
const (
	CodeRequired      = "required"
	CodeTooShort      = "too_short"
	CodeTooLong       = "too_long"
	CodeInvalidFormat = "invalid_format"
	CodeInvalidChoice = "invalid_choice"
	CodeOutOfRange    = "out_of_range"
	CodeRule          = "rule"
)

// Issue is one finding against a field, addressed by a dotted path such as
// "billing.company.taxId"
type Issue struct {
	Field    string   `json:"field"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Rule     string   `json:"rule,omitempty"`
}

// String renders the issue for logs and CLI output
func (i Issue) String() string {
	if i.Field == "" {
		return fmt.Sprintf("[%s] %s", i.Severity, i.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", i.Severity, i.Field, i.Message)
}

// Result accumulates issues in the order they were found
type Result struct {
	Issues []Issue `json:"issues"`
}

// Add appends issues to the result
func (r *Result) Add(issues ...Issue) {
	r.Issues = append(r.Issues, issues...)
}

// Errorf records a blocking issue
func (r *Result) Errorf(field, code, format string, args ...any) {
	r.Add(Issue{Field: field, Code: code, Message: fmt.Sprintf(format, args...), Severity: SeverityError})
}

// Warnf records a non-blocking issue
func (r *Result) Warnf(field, code, format string, args ...any) {
	r.Add(Issue{Field: field, Code: code, Message: fmt.Sprintf(format, args...), Severity: SeverityWarning})
}

// Merge appends every issue of other
func (r *Result) Merge(other Result) {
	r.Add(other.Issues...)
}

// Errors returns the blocking issues
func (r Result) Errors() []Issue {
	return r.filter(SeverityError)
}

// Warnings returns the non-blocking issues
func (r Result) Warnings() []Issue {
	return r.filter(SeverityWarning)
}

// Valid reports whether no blocking issue was found; warnings never block
func (r Result) Valid() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return false
		}
	}
	return true
}

// ForField returns the issues recorded against field or any of its children
func (r Result) ForField(field string) []Issue {
	var matched []Issue
	for _, issue := range r.Issues {
		if issue.Field == field || strings.HasPrefix(issue.Field, field+".") || strings.HasPrefix(issue.Field, field+"[") {
			matched = append(matched, issue)
		}
	}
	return matched
}

// HasRule reports whether a business rule with this name produced an issue
func (r Result) HasRule(name string) bool {
	for _, issue := range r.Issues {
		if issue.Rule == name {
			return true
		}
	}
	return false
}

// Prefixed returns a copy with every field path nested under prefix
func (r Result) Prefixed(prefix string) Result {
	if prefix == "" {
		return r
	}
	out := Result{Issues: make([]Issue, 0, len(r.Issues))}
	for _, issue := range r.Issues {
		issue.Field = Join(prefix, issue.Field)
		out.Issues = append(out.Issues, issue)
	}
	return out
}

// Summary joins blocking messages for single-line error output
func (r Result) Summary() string {
	errs := r.Errors()
	parts := make([]string, 0, len(errs))
	for _, issue := range errs {
		parts = append(parts, issue.String())
	}
	return strings.Join(parts, "; ")
}

func (r Result) filter(severity Severity) []Issue {
	var matched []Issue
	for _, issue := range r.Issues {
		if issue.Severity == severity {
			matched = append(matched, issue)
		}
	}
	return matched
}

// Join builds a dotted field path, skipping empty segments
func Join(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ".")
}
