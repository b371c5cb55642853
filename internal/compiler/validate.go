package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/kwonly/internal/sig"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedType = "E100" // unsupported type for validation

	// Definition errors (E101-E109)
	ErrEmptyName          = "E101" // signature name is required
	ErrEmptyParamName     = "E102" // parameter name is required
	ErrDuplicateParam     = "E103" // duplicate parameter name
	ErrRequiredAfterDef   = "E104" // required parameter follows a defaulted one
	ErrUnknownKeywordOnly = "E105" // keyword_only names an undeclared parameter
	ErrDuplicateKeyword   = "E106" // duplicate name in keyword_only
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates a compiled definition against schema rules.
// Returns all errors found (does not fail-fast).
// Supports Definition and Signature types.
func Validate(v any) []ValidationError {
	switch d := v.(type) {
	case *sig.Definition:
		return validateDefinition(d)
	case sig.Definition:
		return validateDefinition(&d)
	case *sig.Signature:
		return validateSignature(d)
	case sig.Signature:
		return validateSignature(&d)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type: %T", v),
			Code:    ErrUnsupportedType,
		}}
	}
}

// validateDefinition validates a signature plus its keyword_only list.
func validateDefinition(def *sig.Definition) []ValidationError {
	errs := validateSignature(&def.Signature)

	seen := make(map[string]bool)
	for i, name := range def.KeywordOnly {
		// E106: duplicate entry in keyword_only
		if seen[name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("keyword_only[%d]", i),
				Message: fmt.Sprintf("duplicate keyword_only name: %q", name),
				Code:    ErrDuplicateKeyword,
			})
			continue
		}
		seen[name] = true

		// E105: keyword_only names must be declared parameters
		if !def.Signature.Has(name) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("keyword_only[%d]", i),
				Message: fmt.Sprintf("keyword_only name %q is not a declared parameter", name),
				Code:    ErrUnknownKeywordOnly,
			})
		}
	}

	return errs
}

// validateSignature validates parameter declarations.
func validateSignature(s *sig.Signature) []ValidationError {
	var errs []ValidationError

	// E101: name is required
	if strings.TrimSpace(s.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "signature name is required and must be non-empty",
			Code:    ErrEmptyName,
		})
	}

	paramNames := make(map[string]bool)
	sawDefault := false

	for i, p := range s.Params {
		// E102: parameter names must be non-empty
		if p.Name == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("params[%d].name", i),
				Message: "parameter name is required and must be non-empty",
				Code:    ErrEmptyParamName,
			})
			continue
		}

		// E103: duplicate parameter name
		if paramNames[p.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("params[%d].name", i),
				Message: fmt.Sprintf("duplicate parameter name: %q", p.Name),
				Code:    ErrDuplicateParam,
			})
		}
		paramNames[p.Name] = true

		// E104: once a parameter has a default, everything after it must too
		if p.HasDefault() {
			sawDefault = true
		} else if sawDefault {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("params[%d]", i),
				Message: fmt.Sprintf("required parameter %q follows a defaulted parameter", p.Name),
				Code:    ErrRequiredAfterDef,
			})
		}
	}

	return errs
}
