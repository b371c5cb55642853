// Package gate enforces keyword-only argument semantics on the dynamic
// calling convention.
//
// Go calls are statically positional, so the dynamic convention is explicit:
// a Callable pairs a sig.Signature with a Func taking a positional argument
// slice and a keyword argument map. KeywordOnly builds a gate that wraps a
// Callable so a chosen subset of its parameters can only be supplied by
// name. The gate computes its plan once at wrap time and holds no mutable
// state afterwards, so wrapped callables are safe for concurrent use
// whenever the underlying function is.
//
// The gate introduces exactly one call-time failure, ErrCodeTooManyPositional.
// Everything else - missing required arguments, unexpected keywords, the
// target's own errors - belongs to the layer below (see Bind) and passes
// through a gate unmodified.
package gate
