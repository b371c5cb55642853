package sig

import (
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// Param represents one declared parameter: a name and an optional default.
// A nil Default means the parameter is required. Variadic collectors are not
// Params; they are flags on the Signature.
type Param struct {
	Name    string `json:"name"`
	Default Value  `json:"default,omitempty"`
}

// HasDefault reports whether the parameter carries a default value.
func (p Param) HasDefault() bool {
	return p.Default != nil
}

// Required creates a parameter without a default.
func Required(name string) Param {
	return Param{Name: norm.NFC.String(name)}
}

// Optional creates a parameter with a default value.
func Optional(name string, def Value) Param {
	return Param{Name: norm.NFC.String(name), Default: def}
}

// UnmarshalJSON decodes a Param, routing the default through the constrained
// value model (floats rejected).
func (p *Param) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name    string          `json:"name"`
		Default json.RawMessage `json:"default"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Name = norm.NFC.String(raw.Name)
	p.Default = nil
	if len(raw.Default) > 0 && string(raw.Default) != "null" {
		val, err := UnmarshalValue(raw.Default)
		if err != nil {
			return fmt.Errorf("param %q default: %w", raw.Name, err)
		}
		p.Default = val
	} else if string(raw.Default) == "null" {
		p.Default = Null{}
	}
	return nil
}

// Signature is the declared parameter list of a callable: ordered names,
// which of them carry defaults, and whether trailing collectors exist for
// excess positional or keyword arguments.
//
// The declared parameter list excludes the collectors. A Signature is
// computed once per decoration and never mutates afterwards.
type Signature struct {
	Name   string  `json:"name"`
	Doc    string  `json:"doc,omitempty"`
	Params []Param `json:"params"`

	// Variadic marks a trailing collector for excess positional arguments.
	Variadic bool `json:"variadic,omitempty"`

	// VariadicKeywords marks a collector for undeclared keyword arguments.
	VariadicKeywords bool `json:"variadic_keywords,omitempty"`
}

// New constructs a validated Signature. The callable name and all parameter
// names are NFC normalized.
func New(name string, params ...Param) (Signature, error) {
	s := Signature{Name: norm.NFC.String(name), Params: params}
	for i := range s.Params {
		s.Params[i].Name = norm.NFC.String(s.Params[i].Name)
	}
	if err := s.Validate(); err != nil {
		return Signature{}, err
	}
	return s, nil
}

// MustNew is like New but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustNew(name string, params ...Param) Signature {
	s, err := New(name, params...)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks the declaration-order invariants:
//   - parameter names are non-empty and unique
//   - defaulted parameters occupy the trailing positions (a required
//     parameter may not follow a defaulted one)
func (s Signature) Validate() error {
	seen := make(map[string]bool, len(s.Params))
	sawDefault := false
	for i, p := range s.Params {
		if p.Name == "" {
			return fmt.Errorf("signature %q: parameter %d has empty name", s.Name, i)
		}
		if seen[p.Name] {
			return fmt.Errorf("signature %q: duplicate parameter %q", s.Name, p.Name)
		}
		seen[p.Name] = true
		if p.HasDefault() {
			sawDefault = true
		} else if sawDefault {
			return fmt.Errorf("signature %q: required parameter %q follows a defaulted parameter", s.Name, p.Name)
		}
	}
	return nil
}

// ParamNames returns the declared parameter names in declaration order.
func (s Signature) ParamNames() []string {
	names := make([]string, len(s.Params))
	for i, p := range s.Params {
		names[i] = p.Name
	}
	return names
}

// NumDefaults returns the count of parameters carrying a default value.
func (s Signature) NumDefaults() int {
	n := 0
	for _, p := range s.Params {
		if p.HasDefault() {
			n++
		}
	}
	return n
}

// DefaultNames returns the names of defaulted parameters in declaration order.
func (s Signature) DefaultNames() []string {
	var names []string
	for _, p := range s.Params {
		if p.HasDefault() {
			names = append(names, p.Name)
		}
	}
	return names
}

// Index returns the declaration-order position of the named parameter,
// or -1 if the name is not declared. The name is NFC normalized before
// lookup so callers may pass any Unicode representation.
func (s Signature) Index(name string) int {
	name = norm.NFC.String(name)
	for i, p := range s.Params {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// Has reports whether the named parameter is declared.
func (s Signature) Has(name string) bool {
	return s.Index(name) >= 0
}

// Definition pairs a signature with its optional gate configuration, as
// declared in a definition file. An empty KeywordOnly list selects default
// mode (all defaulted parameters become keyword-only).
type Definition struct {
	Signature   Signature `json:"signature"`
	KeywordOnly []string  `json:"keyword_only,omitempty"`
}
