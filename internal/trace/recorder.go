package trace

import (
	"context"
	"fmt"

	"github.com/roach88/kwonly/internal/gate"
	"github.com/roach88/kwonly/internal/sig"
)

// Recorder appends every call routed through it to a Store, stamped with a
// session token and a logical sequence number.
//
// Thread-safety: a Recorder may be shared across goroutines; the clock is
// atomic and SQLite serializes writes.
type Recorder struct {
	store   *Store
	clock   *Clock
	session string
}

// NewRecorder starts a fresh recording session with a token from gen.
func NewRecorder(store *Store, gen TokenGenerator) *Recorder {
	return &Recorder{
		store:   store,
		clock:   NewClock(),
		session: gen.Generate(),
	}
}

// ResumeRecorder continues an existing session, resuming the clock after the
// last recorded seq so new records sort after the old ones.
func ResumeRecorder(ctx context.Context, store *Store, sessionToken string) (*Recorder, error) {
	last, err := store.LastSeq(ctx, sessionToken)
	if err != nil {
		return nil, fmt.Errorf("resume recorder: %w", err)
	}
	return &Recorder{
		store:   store,
		clock:   NewClockAt(last),
		session: sessionToken,
	}, nil
}

// SessionToken returns the session this recorder writes under.
func (r *Recorder) SessionToken() string {
	return r.session
}

// Wrap returns a callable that records every invocation of c before
// returning its result. The recorded outcome is:
//   - rejected when the call failed the positional-count check
//   - error when the call went through and returned an error
//   - ok otherwise
//
// Results and errors pass through unchanged; only a failure to persist the
// record surfaces as a new error.
func (r *Recorder) Wrap(c *gate.Callable) *gate.Callable {
	s := c.Signature()
	sigHash := sig.MustSignatureHash(s)

	fn := func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
		res, callErr := c.Call(ctx, args, kwargs)

		seq := r.clock.Next()
		call := Call{
			SessionToken:  r.session,
			SignatureName: s.Name,
			SignatureHash: sigHash,
			Args:          captureArgs(args),
			Kwargs:        captureKwargs(kwargs),
			Outcome:       classify(callErr),
			Seq:           seq,
		}
		if ce, ok := gate.AsCallError(callErr); ok {
			call.ErrorCode = string(ce.Code)
			call.ErrorMessage = ce.Message
		} else if callErr != nil {
			call.ErrorMessage = callErr.Error()
		}

		id, err := sig.CallID(r.session, s.Name, call.Args, call.Kwargs, seq)
		if err != nil {
			return nil, fmt.Errorf("record call: %w", err)
		}
		call.ID = id

		if err := r.store.WriteCall(ctx, call); err != nil {
			return nil, fmt.Errorf("record call: %w", err)
		}

		return res, callErr
	}

	return gate.MustCallable(s, fn)
}

// classify maps a call result to an outcome constant.
func classify(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case gate.IsTooManyPositional(err):
		return OutcomeRejected
	default:
		return OutcomeError
	}
}

// captureArgs converts call arguments to storable values. Values outside the
// canonical model (floats, structs) are stored as their string rendering
// rather than failing the call.
func captureArgs(args []any) sig.Array {
	out := make(sig.Array, len(args))
	for i, a := range args {
		out[i] = captureValue(a)
	}
	return out
}

// captureKwargs converts keyword arguments to storable values.
func captureKwargs(kwargs map[string]any) sig.Object {
	out := make(sig.Object, len(kwargs))
	for name, v := range kwargs {
		out[name] = captureValue(v)
	}
	return out
}

func captureValue(v any) sig.Value {
	val, err := sig.FromGo(v)
	if err != nil {
		return sig.String(fmt.Sprintf("%v", v))
	}
	return val
}
