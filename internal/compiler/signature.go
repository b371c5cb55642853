package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/kwonly/internal/sig"
)

// CompileDefinition parses a CUE value into a signature Definition.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the signature struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`signature: fetch: { ... }`)
//	def, err := CompileDefinition(v.LookupPath(cue.ParsePath("signature.fetch")))
func CompileDefinition(v cue.Value) (*sig.Definition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &sig.Definition{}

	// Signature name comes from the struct label (the path selector)
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		def.Signature.Name = labels[len(labels)-1].String()
	}

	// doc is optional
	docVal := v.LookupPath(cue.ParsePath("doc"))
	if docVal.Exists() {
		doc, err := docVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		def.Signature.Doc = doc
	}

	params, err := parseParams(v)
	if err != nil {
		return nil, err
	}
	def.Signature.Params = params

	if err := parseFlag(v, "variadic", &def.Signature.Variadic); err != nil {
		return nil, err
	}
	if err := parseFlag(v, "variadic_keywords", &def.Signature.VariadicKeywords); err != nil {
		return nil, err
	}

	// keyword_only is optional; absent means default mode (gate every
	// defaulted parameter). An explicit empty list means the same thing.
	koVal := v.LookupPath(cue.ParsePath("keyword_only"))
	if koVal.Exists() {
		iter, err := koVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		def.KeywordOnly = []string{}
		for iter.Next() {
			name, err := iter.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			def.KeywordOnly = append(def.KeywordOnly, name)
		}
	}

	if err := def.Signature.Validate(); err != nil {
		return nil, &CompileError{
			Field:   "params",
			Message: err.Error(),
			Pos:     v.Pos(),
		}
	}

	return def, nil
}

// parseParams extracts the ordered parameter list. Each element is either a
// bare string (a required parameter) or a struct with a name and an optional
// default.
func parseParams(v cue.Value) ([]sig.Param, error) {
	paramsVal := v.LookupPath(cue.ParsePath("params"))
	if !paramsVal.Exists() {
		return nil, nil // params is optional; zero-parameter signature
	}

	iter, err := paramsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var params []sig.Param
	for iter.Next() {
		p, err := parseParam(iter.Value())
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return params, nil
}

// parseParam parses a single parameter entry.
func parseParam(v cue.Value) (sig.Param, error) {
	// Bare string shorthand for a required parameter
	if name, err := v.String(); err == nil {
		return sig.Required(name), nil
	}

	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return sig.Param{}, &CompileError{
			Field:   "params",
			Message: "parameter must be a string or an object with a name field",
			Pos:     v.Pos(),
		}
	}
	name, err := nameVal.String()
	if err != nil {
		return sig.Param{}, formatCUEError(err)
	}

	defVal := v.LookupPath(cue.ParsePath("default"))
	if !defVal.Exists() {
		return sig.Required(name), nil
	}
	def, cerr := extractValue(defVal)
	if cerr != nil {
		return sig.Param{}, cerr
	}
	return sig.Optional(name, def), nil
}

// parseFlag reads an optional boolean field.
func parseFlag(v cue.Value, field string, out *bool) error {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil
	}
	b, err := fv.Bool()
	if err != nil {
		return formatCUEError(err)
	}
	*out = b
	return nil
}

// extractValue converts a concrete CUE value to a default value.
// Floats are forbidden.
func extractValue(v cue.Value) (sig.Value, error) {
	switch v.Kind() {
	case cue.NullKind:
		return sig.Null{}, nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return sig.String(s), nil
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return sig.Int(i), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return sig.Bool(b), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		arr := sig.Array{}
		for iter.Next() {
			elem, err := extractValue(iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := sig.Object{}
		for iter.Next() {
			field, err := extractValue(iter.Value())
			if err != nil {
				return nil, err
			}
			obj[iter.Label()] = field
		}
		return obj, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   "default",
			Message: "float defaults are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   "default",
			Message: fmt.Sprintf("unsupported default kind: %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
