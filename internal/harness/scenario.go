package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/kwonly/internal/sig"
)

// Scenario defines a conformance test scenario.
// Scenarios validate gating behavior by executing a sequence of calls
// against a gated echo target and asserting on the recorded outcomes.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Signature declares the target's parameters.
	Signature SignatureSpec `yaml:"signature"`

	// KeywordOnly lists the gated parameter names. Absent (nil) and an
	// explicit empty list both select default mode.
	KeywordOnly []string `yaml:"keyword_only,omitempty"`

	// Calls contains the invocations to execute, in order.
	Calls []CallStep `yaml:"calls"`

	// Assertions validate the recorded trace as a whole.
	// Supported types: outcome_count
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// SessionToken is an optional fixed session token for deterministic
	// traces. Defaults to "test-session-default".
	SessionToken string `yaml:"session_token,omitempty"`
}

// SignatureSpec declares a signature in scenario YAML.
type SignatureSpec struct {
	Name             string      `yaml:"name"`
	Params           []ParamSpec `yaml:"params,omitempty"`
	Variadic         bool        `yaml:"variadic,omitempty"`
	VariadicKeywords bool        `yaml:"variadic_keywords,omitempty"`
}

// ParamSpec declares one parameter. A present default key (even "default:
// null") makes the parameter optional.
type ParamSpec struct {
	Name    string        `yaml:"name"`
	Default *DefaultValue `yaml:"default,omitempty"`
}

// DefaultValue wraps a YAML default so that an absent key and an explicit
// null are distinguishable.
type DefaultValue struct {
	V any
}

// UnmarshalYAML implements yaml.Unmarshaler. It walks the mapping node
// directly because yaml.v3 never invokes a field's unmarshaler for an
// explicit null value, which would leave Default nil and make "default:
// null" look like an absent key.
func (p *ParamSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: param must be a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		switch key.Value {
		case "name":
			if err := value.Decode(&p.Name); err != nil {
				return err
			}
		case "default":
			p.Default = &DefaultValue{}
			if value.Tag == "!!null" {
				continue
			}
			if err := value.Decode(&p.Default.V); err != nil {
				return err
			}
		default:
			return fmt.Errorf("line %d: unknown param field %q", key.Line, key.Value)
		}
	}
	return nil
}

// CallStep is one invocation in the scenario.
type CallStep struct {
	// Args contains the positional arguments.
	Args []any `yaml:"args,omitempty"`

	// Kwargs contains the keyword arguments.
	Kwargs map[string]any `yaml:"kwargs,omitempty"`

	// Expect specifies the expected outcome.
	// If nil, the call is expected to succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a call.
type ExpectClause struct {
	// Outcome is "ok", "rejected", or "error".
	Outcome string `yaml:"outcome"`

	// Code is the expected error code, e.g. "TOO_MANY_POSITIONAL".
	// Only checked when non-empty.
	Code string `yaml:"code,omitempty"`
}

// Assertion validates the recorded trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "outcome_count": Check an outcome appears exactly Count times
	Type string `yaml:"type"`

	// Outcome is the outcome name (used by outcome_count).
	Outcome string `yaml:"outcome,omitempty"`

	// Count is the expected number of occurrences (used by outcome_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertOutcomeCount = "outcome_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "call:" vs "calls:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Signature.Name == "" {
		return fmt.Errorf("signature.name is required")
	}

	for i, p := range s.Signature.Params {
		if p.Name == "" {
			return fmt.Errorf("signature.params[%d]: name is required", i)
		}
	}

	if len(s.Calls) == 0 {
		return fmt.Errorf("calls list is required and must be non-empty")
	}

	for i, call := range s.Calls {
		if call.Expect == nil {
			continue
		}
		switch call.Expect.Outcome {
		case "ok", "rejected", "error":
		case "":
			return fmt.Errorf("calls[%d].expect: outcome is required", i)
		default:
			return fmt.Errorf("calls[%d].expect: unknown outcome %q", i, call.Expect.Outcome)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertOutcomeCount:
		if a.Outcome == "" {
			return fmt.Errorf("assertions[%d]: outcome is required for outcome_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for outcome_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// buildSignature converts the YAML declaration to a signature.
func buildSignature(spec SignatureSpec) (sig.Signature, error) {
	params := make([]sig.Param, 0, len(spec.Params))
	for i, p := range spec.Params {
		if p.Default == nil {
			params = append(params, sig.Required(p.Name))
			continue
		}
		def, err := sig.FromGo(p.Default.V)
		if err != nil {
			return sig.Signature{}, fmt.Errorf("signature.params[%d].default: %w", i, err)
		}
		params = append(params, sig.Optional(p.Name, def))
	}

	s := sig.Signature{
		Name:             spec.Name,
		Params:           params,
		Variadic:         spec.Variadic,
		VariadicKeywords: spec.VariadicKeywords,
	}
	if err := s.Validate(); err != nil {
		return sig.Signature{}, err
	}
	return s, nil
}
