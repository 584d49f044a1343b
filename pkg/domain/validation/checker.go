package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Checker records issues for one section of a record. Field names passed to its
// methods are relative to the section prefix.
type Checker struct {
	prefix string
	result *Result
}

// NewChecker creates a checker writing into result under prefix
func NewChecker(prefix string, result *Result) *Checker {
	return &Checker{prefix: prefix, result: result}
}

// Nested returns a checker for a child section sharing the same result
func (c *Checker) Nested(field string) *Checker {
	return &Checker{prefix: Join(c.prefix, field), result: c.result}
}

// Path returns the full dotted path of field
func (c *Checker) Path(field string) string {
	return Join(c.prefix, field)
}

// Result returns the result being written
func (c *Checker) Result() *Result {
	return c.result
}

// Errorf records a blocking issue on field
func (c *Checker) Errorf(field, code, format string, args ...any) {
	c.result.Errorf(c.Path(field), code, format, args...)
}

// Warnf records a warning on field
func (c *Checker) Warnf(field, code, format string, args ...any) {
	c.result.Warnf(c.Path(field), code, format, args...)
}

// Required fails when the trimmed value is empty and reports whether it was present
func (c *Checker) Required(field, value, label string) bool {
	if strings.TrimSpace(value) == "" {
		c.Errorf(field, CodeRequired, "%s is required", label)
		return false
	}
	return true
}

// Length checks the trimmed rune count; max <= 0 means unbounded
func (c *Checker) Length(field, value, label string, min, max int) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	if n < min {
		c.Errorf(field, CodeTooShort, "%s must be at least %d characters", label, min)
		return false
	}
	if max > 0 && n > max {
		c.Errorf(field, CodeTooLong, "%s must be at most %d characters", label, max)
		return false
	}
	return true
}

// RequiredLength combines Required and Length
func (c *Checker) RequiredLength(field, value, label string, min, max int) bool {
	return c.Required(field, value, label) && c.Length(field, value, label, min, max)
}

// MaxLength bounds an optional value
func (c *Checker) MaxLength(field, value, label string, max int) bool {
	if utf8.RuneCountInString(strings.TrimSpace(value)) > max {
		c.Errorf(field, CodeTooLong, "%s must be at most %d characters", label, max)
		return false
	}
	return true
}

// Matches checks value against re
func (c *Checker) Matches(field, value string, re *regexp.Regexp, message string) bool {
	if !re.MatchString(strings.TrimSpace(value)) {
		c.Errorf(field, CodeInvalidFormat, "%s", message)
		return false
	}
	return true
}

// Format records message when ok is false
func (c *Checker) Format(field string, ok bool, message string) bool {
	if !ok {
		c.Errorf(field, CodeInvalidFormat, "%s", message)
	}
	return ok
}

// Positive checks that an amount is greater than zero
func (c *Checker) Positive(field string, value decimal.Decimal, label string) bool {
	if !value.IsPositive() {
		c.Errorf(field, CodeOutOfRange, "%s must be greater than 0", label)
		return false
	}
	return true
}

// Range checks min <= value <= max
func (c *Checker) Range(field string, value, min, max decimal.Decimal, label string) bool {
	if value.LessThan(min) || value.GreaterThan(max) {
		c.Errorf(field, CodeOutOfRange, "%s must be between %s and %s", label, min.String(), max.String())
		return false
	}
	return true
}

// IntRange checks min <= value <= max
func (c *Checker) IntRange(field string, value, min, max int, label string) bool {
	if value < min || value > max {
		c.Errorf(field, CodeOutOfRange, "%s must be between %d and %d", label, min, max)
		return false
	}
	return true
}

// OneOf checks that value is one of the allowed choices
func OneOf[T ~string](c *Checker, field string, value T, label string, allowed []T) bool {
	if strings.TrimSpace(string(value)) == "" {
		c.Errorf(field, CodeRequired, "%s is required", label)
		return false
	}
	for _, a := range allowed {
		if a == value {
			return true
		}
	}
	choices := make([]string, len(allowed))
	for i, a := range allowed {
		choices[i] = string(a)
	}
	c.Errorf(field, CodeInvalidChoice, "%s must be one of: %s", label, strings.Join(choices, ", "))
	return false
}

// EachOneOf checks every element of a list value
func EachOneOf[T ~string](c *Checker, field string, values []T, label string, allowed []T) bool {
	ok := true
	for i, v := range values {
		if !OneOf(c, fmt.Sprintf("%s[%d]", field, i), v, label, allowed) {
			ok = false
		}
	}
	return ok
}
