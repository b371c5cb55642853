package testutil

// FixedSessionGenerator generates the same session token every time.
//
// This enables deterministic test execution and golden snapshot comparison.
// The same scenario with the same FixedSessionGenerator produces
// byte-identical traces.
//
// Unlike trace.FixedGenerator which returns tokens in sequence, this
// generator always returns the same token. This is useful for scenarios
// where every recorded call should share one session.
//
// Thread-safety: FixedSessionGenerator is stateless and safe for concurrent use.
type FixedSessionGenerator struct {
	token string
}

// NewFixedSessionGenerator creates a new fixed session token generator.
//
// The token is typically set in the scenario YAML:
//
//	session_token: "test-session-00000000-0000-0000-0000-000000000001"
//
// If token is empty, Generate() returns "test-session-default".
func NewFixedSessionGenerator(token string) *FixedSessionGenerator {
	if token == "" {
		token = "test-session-default"
	}
	return &FixedSessionGenerator{token: token}
}

// Generate returns the fixed session token.
//
// Implements trace.TokenGenerator.
func (g *FixedSessionGenerator) Generate() string {
	return g.token
}
