// Package kwonly wraps callables so that selected parameters may only be
// passed by keyword.
//
// A Signature declares a callable's parameters in order, each either
// required or carrying a default. KeywordOnly(names...) builds a Gate; when
// wrapped around a Callable it rejects any call with more positional
// arguments than the ungated parameter count, raising a TOO_MANY_POSITIONAL
// call error before the target runs. Positional arguments skip over gated
// parameters onto the later ungated ones. With no names, every defaulted
// parameter is gated.
//
// Bind adapts a plain Go function to the dynamic calling convention so it
// can sit behind a gate:
//
//	sign := kwonly.MustNew("connect",
//		kwonly.Required("host"),
//		kwonly.Optional("port", kwonly.Int(8080)),
//	)
//	callable := kwonly.MustBind(sign, func(ctx context.Context, host string, port int64) (string, error) {
//		return fmt.Sprintf("%s:%d", host, port), nil
//	})
//	gated := kwonly.KeywordOnly().MustWrap(callable)
//
//	gated.Call(ctx, []any{"db.internal"}, map[string]any{"port": 5432}) // ok
//	gated.Call(ctx, []any{"db.internal", 5432}, nil)                    // TOO_MANY_POSITIONAL
package kwonly

import (
	"github.com/roach88/kwonly/internal/gate"
	"github.com/roach88/kwonly/internal/sig"
)

// Signature types.
type (
	Signature  = sig.Signature
	Param      = sig.Param
	Definition = sig.Definition
)

// Value types for defaults and recorded arguments.
type (
	Value  = sig.Value
	Null   = sig.Null
	String = sig.String
	Int    = sig.Int
	Bool   = sig.Bool
	Array  = sig.Array
	Object = sig.Object
)

// Gating types.
type (
	Func        = gate.Func
	Callable    = gate.Callable
	Gate        = gate.Gate
	Explanation = gate.Explanation
)

// CallError is the structured error type returned for every argument
// handling failure, gate rejections included.
type (
	CallError     = gate.CallError
	CallErrorCode = gate.CallErrorCode
)

// Call error codes.
const (
	ErrCodeTooManyPositional = gate.ErrCodeTooManyPositional
	ErrCodeUnknownParameter  = gate.ErrCodeUnknownParameter
	ErrCodeTooManyArguments  = gate.ErrCodeTooManyArguments
	ErrCodeMissingArguments  = gate.ErrCodeMissingArguments
	ErrCodeDuplicateArgument = gate.ErrCodeDuplicateArgument
	ErrCodeUnexpectedKeyword = gate.ErrCodeUnexpectedKeyword
	ErrCodeTypeMismatch      = gate.ErrCodeTypeMismatch
)

// Required declares a parameter without a default.
func Required(name string) Param { return sig.Required(name) }

// Optional declares a parameter with a default value.
func Optional(name string, def Value) Param { return sig.Optional(name, def) }

// New builds and validates a signature.
func New(name string, params ...Param) (Signature, error) { return sig.New(name, params...) }

// MustNew builds a signature and panics if it is invalid.
func MustNew(name string, params ...Param) Signature { return sig.MustNew(name, params...) }

// FromGo converts a Go value into a Value. Floats are rejected.
func FromGo(v any) (Value, error) { return sig.FromGo(v) }

// ToGo converts a Value back into a plain Go value.
func ToGo(v Value) any { return sig.ToGo(v) }

// NewCallable pairs a signature with a dynamic function.
func NewCallable(s Signature, fn Func) (*Callable, error) { return gate.NewCallable(s, fn) }

// MustCallable pairs a signature with a dynamic function, panicking on an
// invalid signature.
func MustCallable(s Signature, fn Func) *Callable { return gate.MustCallable(s, fn) }

// Bind adapts an ordinary Go function to the dynamic calling convention.
func Bind(s Signature, fn any) (*Callable, error) { return gate.Bind(s, fn) }

// MustBind adapts a Go function and panics when its shape does not match
// the signature.
func MustBind(s Signature, fn any) *Callable { return gate.MustBind(s, fn) }

// KeywordOnly builds a gate for the named parameters. With no names, the
// gate covers every defaulted parameter of the wrapped signature.
func KeywordOnly(names ...string) Gate { return gate.KeywordOnly(names...) }

// Explain reports what KeywordOnly(names...) would enforce on a signature
// without wrapping anything.
func Explain(s Signature, names []string) (Explanation, error) { return gate.Explain(s, names) }

// IsTooManyPositional reports whether err is a gate rejection.
func IsTooManyPositional(err error) bool { return gate.IsTooManyPositional(err) }

// IsUnknownParameter reports whether err is a wrap-time unknown-name error.
func IsUnknownParameter(err error) bool { return gate.IsUnknownParameter(err) }

// IsMissingArguments reports whether err is a missing-arguments binding
// failure.
func IsMissingArguments(err error) bool { return gate.IsMissingArguments(err) }

// AsCallError extracts a *CallError from err, unwrapping as needed.
func AsCallError(err error) (*CallError, bool) { return gate.AsCallError(err) }

// SignatureHash returns the canonical content hash of a signature.
func SignatureHash(s Signature) (string, error) { return sig.SignatureHash(s) }
