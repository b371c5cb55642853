package gate

import (
	"errors"
	"fmt"
	"strings"
)

// CallError represents a structured argument-handling failure.
//
// Call errors include:
//   - Too many positionals: a call tried to fill a keyword-only parameter
//     by position (the only error the gate itself introduces)
//   - Unknown parameter: a gate named a parameter the signature lacks
//   - Binder errors: missing, duplicate, or unexpected arguments detected
//     by the reflective binder below the gate
//
// CallError includes structured fields for diagnostics.
type CallError struct {
	// Code identifies the error category.
	Code CallErrorCode

	// Message is a human-readable description.
	Message string

	// Callable names the affected signature.
	Callable string

	// Params lists the parameters involved, in declaration order.
	Params []string

	// Details contains additional context.
	Details map[string]string
}

// CallErrorCode categorizes call errors.
type CallErrorCode string

const (
	// ErrCodeTooManyPositional indicates a call supplied more positional
	// arguments than the gate's maximum allowed positional count.
	ErrCodeTooManyPositional CallErrorCode = "TOO_MANY_POSITIONAL"

	// ErrCodeUnknownParameter indicates a gate named a parameter that the
	// signature does not declare. Raised at wrap time, never at call time.
	ErrCodeUnknownParameter CallErrorCode = "UNKNOWN_PARAMETER"

	// ErrCodeTooManyArguments indicates more positionals than the signature
	// declares on a non-variadic callable.
	ErrCodeTooManyArguments CallErrorCode = "TOO_MANY_ARGUMENTS"

	// ErrCodeMissingArguments indicates required parameters were left
	// unfilled after positionals, keywords, and defaults were applied.
	ErrCodeMissingArguments CallErrorCode = "MISSING_ARGUMENTS"

	// ErrCodeDuplicateArgument indicates a keyword argument named a
	// parameter already filled positionally.
	ErrCodeDuplicateArgument CallErrorCode = "DUPLICATE_ARGUMENT"

	// ErrCodeUnexpectedKeyword indicates a keyword argument that matches no
	// declared parameter on a signature without a keyword collector.
	ErrCodeUnexpectedKeyword CallErrorCode = "UNEXPECTED_KEYWORD"

	// ErrCodeTypeMismatch indicates an argument value that cannot be
	// converted to the bound function's parameter type.
	ErrCodeTypeMismatch CallErrorCode = "TYPE_MISMATCH"
)

// Error implements the error interface.
func (e *CallError) Error() string {
	if e.Callable != "" {
		return fmt.Sprintf("%s: %s (callable=%s)", e.Code, e.Message, e.Callable)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsTooManyPositional returns true if the error is a positional-count
// violation from a gate. Uses errors.As to handle wrapped errors.
func IsTooManyPositional(err error) bool {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeTooManyPositional
	}
	return false
}

// IsUnknownParameter returns true if the error is a wrap-time unknown
// parameter error. Uses errors.As to handle wrapped errors.
func IsUnknownParameter(err error) bool {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeUnknownParameter
	}
	return false
}

// IsMissingArguments returns true if the error reports unfilled required
// parameters. Uses errors.As to handle wrapped errors.
func IsMissingArguments(err error) bool {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeMissingArguments
	}
	return false
}

// AsCallError extracts a *CallError from err, unwrapping as needed.
func AsCallError(err error) (*CallError, bool) {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// NewTooManyPositionalError creates a CallError for a positional-count
// violation.
func NewTooManyPositionalError(callable string, max, got int, firstKeywordOnly string) *CallError {
	return &CallError{
		Code:     ErrCodeTooManyPositional,
		Message:  fmt.Sprintf("takes at most %d positional argument(s) because %q is keyword-only (got %d)", max, firstKeywordOnly, got),
		Callable: callable,
		Params:   []string{firstKeywordOnly},
		Details: map[string]string{
			"max_positional": fmt.Sprintf("%d", max),
			"got":            fmt.Sprintf("%d", got),
		},
	}
}

// NewUnknownParameterError creates a CallError for a gate name that does not
// appear among the signature's declared parameters.
func NewUnknownParameterError(callable, param string) *CallError {
	return &CallError{
		Code:     ErrCodeUnknownParameter,
		Message:  fmt.Sprintf("keyword-only name %q is not a declared parameter", param),
		Callable: callable,
		Params:   []string{param},
	}
}

// NewMissingArgumentsError creates a CallError listing unfilled required
// parameters. The message mirrors the Python TypeError format, including its
// space-separated leading names:
//
//	f() missing 3 required positional arguments: 'a' 'b' and 'c'
func NewMissingArgumentsError(callable, kind string, names []string) *CallError {
	return &CallError{
		Code:     ErrCodeMissingArguments,
		Message:  formatMissingMessage(callable, kind, names),
		Callable: callable,
		Params:   names,
	}
}

// formatMissingMessage builds the Python-3-style missing-argument message.
func formatMissingMessage(callable, kind string, names []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s() missing %d required %s argument", callable, len(names), kind)
	if len(names) != 1 {
		b.WriteString("s")
	}
	b.WriteString(": ")
	switch len(names) {
	case 1:
		fmt.Fprintf(&b, "'%s'", names[0])
	default:
		quoted := make([]string, len(names)-1)
		for i, n := range names[:len(names)-1] {
			quoted[i] = "'" + n + "'"
		}
		fmt.Fprintf(&b, "%s and '%s'", strings.Join(quoted, " "), names[len(names)-1])
	}
	return b.String()
}

// NewDuplicateArgumentError creates a CallError for a keyword argument that
// names an already positionally filled parameter.
func NewDuplicateArgumentError(callable, param string) *CallError {
	return &CallError{
		Code:     ErrCodeDuplicateArgument,
		Message:  fmt.Sprintf("got multiple values for argument %q", param),
		Callable: callable,
		Params:   []string{param},
	}
}

// NewUnexpectedKeywordError creates a CallError for an undeclared keyword on
// a signature without a keyword collector.
func NewUnexpectedKeywordError(callable, param string) *CallError {
	return &CallError{
		Code:     ErrCodeUnexpectedKeyword,
		Message:  fmt.Sprintf("got an unexpected keyword argument %q", param),
		Callable: callable,
		Params:   []string{param},
	}
}

// NewTooManyArgumentsError creates a CallError for excess positionals on a
// non-variadic signature.
func NewTooManyArgumentsError(callable string, declared, got int) *CallError {
	return &CallError{
		Code:     ErrCodeTooManyArguments,
		Message:  fmt.Sprintf("takes %d positional argument(s) but %d were given", declared, got),
		Callable: callable,
		Details: map[string]string{
			"declared": fmt.Sprintf("%d", declared),
			"got":      fmt.Sprintf("%d", got),
		},
	}
}

// NewTypeMismatchError creates a CallError for an inconvertible argument
// value.
func NewTypeMismatchError(callable, param string, got, want string) *CallError {
	return &CallError{
		Code:     ErrCodeTypeMismatch,
		Message:  fmt.Sprintf("argument %q: cannot convert %s to %s", param, got, want),
		Callable: callable,
		Params:   []string{param},
	}
}
