// Package harness provides conformance testing for keyword-only call gating.
//
// The harness loads a signature and gating configuration from a YAML
// scenario, wraps an echo target with the gate and a recorder, executes the
// scenario's calls, and validates the recorded outcomes.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	signature:
//	  name: f
//	  params:
//	    - name: a
//	    - name: b
//	    - name: c
//	      default: 1
//	keyword_only: ["c"]
//	calls:
//	  - args: [1, 2]
//	    kwargs: { c: 5 }
//	    expect:
//	      outcome: ok
//	  - args: [1, 2, 3]
//	    expect:
//	      outcome: rejected
//	      code: TOO_MANY_POSITIONAL
//	assertions:
//	  - type: outcome_count
//	    outcome: rejected
//	    count: 1
//
// Omitting keyword_only selects default mode (every defaulted parameter
// becomes keyword-only); an explicit empty list does the same.
//
// # Deterministic Testing
//
// Scenarios execute against a fresh in-memory SQLite store with a fixed
// session token and a logical clock, so the same scenario produces a
// byte-identical trace every run. Traces serialize as RFC 8785 canonical
// JSON for golden file comparison.
package harness
