package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/kwonly/internal/gate"
	"github.com/roach88/kwonly/internal/sig"
	"github.com/roach88/kwonly/internal/testutil"
	"github.com/roach88/kwonly/internal/trace"
)

// TraceEvent is one recorded call, in a shape suitable for canonical JSON
// serialization and golden comparison.
type TraceEvent struct {
	Signature string `json:"signature"`
	Args      any    `json:"args"`
	Kwargs    any    `json:"kwargs"`
	Outcome   string `json:"outcome"`
	ErrorCode string `json:"error_code,omitempty"`
	Seq       int64  `json:"seq"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions match.
	Pass bool `json:"pass"`

	// Trace contains the recorded calls in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Harness executes scenarios with a deterministic session token against a
// fresh in-memory store.
type Harness struct {
	store  *trace.Store
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Create a fresh in-memory database
//  2. Build the signature and wrap an echo target with the gate
//  3. Wrap with a recorder under the scenario's session token
//  4. Execute calls, checking each expect clause
//  5. Read the trace back and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	st, err := trace.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	return h.run(context.Background(), scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	result := NewResult()

	s, err := buildSignature(scenario.Signature)
	if err != nil {
		return nil, fmt.Errorf("build signature: %w", err)
	}

	target := echoCallable(s)
	gated, err := gate.KeywordOnly(scenario.KeywordOnly...).Wrap(target)
	if err != nil {
		return nil, fmt.Errorf("wrap target: %w", err)
	}

	recorder := trace.NewRecorder(h.store, testutil.NewFixedSessionGenerator(scenario.SessionToken))
	sessionToken := recorder.SessionToken()
	recorded := recorder.Wrap(gated)

	for i, step := range scenario.Calls {
		h.logger.Debug("executing call", "scenario", scenario.Name, "step", i)
		_, callErr := recorded.Call(ctx, step.Args, step.Kwargs)
		checkExpect(result, i, step.Expect, callErr)
	}

	calls, err := h.store.ReadSession(ctx, sessionToken)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	for _, call := range calls {
		result.Trace = append(result.Trace, TraceEvent{
			Signature: call.SignatureName,
			Args:      sig.ToGo(call.Args),
			Kwargs:    sig.ToGo(call.Kwargs),
			Outcome:   call.Outcome,
			ErrorCode: call.ErrorCode,
			Seq:       call.Seq,
		})
	}

	for i, assertion := range scenario.Assertions {
		evalAssertion(result, i, &assertion)
	}

	return result, nil
}

// checkExpect validates one call outcome against its expect clause.
// A call without an expect clause is expected to succeed.
func checkExpect(result *Result, index int, expect *ExpectClause, callErr error) {
	outcome := outcomeOf(callErr)

	if expect == nil {
		if callErr != nil {
			result.AddError(fmt.Sprintf("calls[%d]: unexpected failure: %v", index, callErr))
		}
		return
	}

	if outcome != expect.Outcome {
		result.AddError(fmt.Sprintf("calls[%d]: outcome %q, expected %q", index, outcome, expect.Outcome))
		return
	}

	if expect.Code != "" {
		ce, ok := gate.AsCallError(callErr)
		if !ok {
			result.AddError(fmt.Sprintf("calls[%d]: expected code %q but error carries none", index, expect.Code))
			return
		}
		if string(ce.Code) != expect.Code {
			result.AddError(fmt.Sprintf("calls[%d]: code %q, expected %q", index, ce.Code, expect.Code))
		}
	}
}

// outcomeOf mirrors the recorder's outcome classification.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return trace.OutcomeOK
	case gate.IsTooManyPositional(err):
		return trace.OutcomeRejected
	default:
		return trace.OutcomeError
	}
}

// evalAssertion evaluates one trace assertion against the result.
func evalAssertion(result *Result, index int, a *Assertion) {
	switch a.Type {
	case AssertOutcomeCount:
		count := 0
		for _, event := range result.Trace {
			if event.Outcome == a.Outcome {
				count++
			}
		}
		if count != a.Count {
			result.AddError(fmt.Sprintf(
				"assertions[%d]: outcome %q appears %d time(s), expected %d",
				index, a.Outcome, count, a.Count))
		}
	default:
		result.AddError(fmt.Sprintf("assertions[%d]: unknown type %q", index, a.Type))
	}
}

// echoCallable builds a target that applies the signature's binding rules
// and returns the arguments it received. Binding failures surface as the
// underlying mechanism's errors, giving scenarios a way to exercise the
// "error" outcome.
func echoCallable(s sig.Signature) *gate.Callable {
	return gate.MustCallable(s, func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
		if len(args) > len(s.Params) && !s.Variadic {
			return nil, gate.NewTooManyArgumentsError(s.Name, len(s.Params), len(args))
		}

		filled := make(map[string]bool, len(s.Params))
		for i := range args {
			if i < len(s.Params) {
				filled[s.Params[i].Name] = true
			}
		}
		for name := range kwargs {
			if !s.Has(name) {
				if s.VariadicKeywords {
					continue
				}
				return nil, gate.NewUnexpectedKeywordError(s.Name, name)
			}
			if filled[name] {
				return nil, gate.NewDuplicateArgumentError(s.Name, name)
			}
			filled[name] = true
		}

		var missing []string
		for _, p := range s.Params {
			if !filled[p.Name] && !p.HasDefault() {
				missing = append(missing, p.Name)
			}
		}
		if len(missing) > 0 {
			return nil, gate.NewMissingArgumentsError(s.Name, "positional", missing)
		}

		return map[string]any{"args": args, "kwargs": kwargs}, nil
	})
}
