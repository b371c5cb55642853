package gate

import (
	"context"
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/kwonly/internal/sig"
)

// Func is the dynamic calling convention: ordered positional arguments plus
// a keyword argument map. Arguments are transient - validated, forwarded,
// never stored.
type Func func(ctx context.Context, args []any, kwargs map[string]any) (any, error)

// Callable pairs a signature with a function implementing it.
// Immutable after construction.
type Callable struct {
	signature sig.Signature
	fn        Func
}

// NewCallable validates the signature and pairs it with fn.
func NewCallable(s sig.Signature, fn Func) (*Callable, error) {
	if fn == nil {
		return nil, fmt.Errorf("callable %q: nil function", s.Name)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &Callable{signature: s, fn: fn}, nil
}

// MustCallable is like NewCallable but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustCallable(s sig.Signature, fn Func) *Callable {
	c, err := NewCallable(s, fn)
	if err != nil {
		panic(err)
	}
	return c
}

// Signature returns the callable's declared signature.
func (c *Callable) Signature() sig.Signature {
	return c.signature
}

// Call invokes the callable with the given positional and keyword arguments.
func (c *Callable) Call(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	return c.fn(ctx, args, kwargs)
}

// Gate makes a subset of a callable's parameters keyword-only.
//
// With explicit names, those parameters can no longer be filled by
// position; positional arguments skip over them onto the later parameters.
// With no names, every parameter that has a default value becomes
// keyword-only.
type Gate struct {
	names []string
}

// KeywordOnly builds a gate for the given parameter names. Order does not
// matter and duplicates have no additional effect. Call with no names for
// default mode.
func KeywordOnly(names ...string) Gate {
	return Gate{names: names}
}

// plan is the wrap-time decision: which names are keyword-only and which
// parameters remain positionally fillable. Computed once per wrap and
// read-only at call time.
type plan struct {
	keywordOnly map[string]bool
	// positional lists the ungated parameter names in declaration order.
	// Its length is the maximum allowed positional count: declared
	// parameters minus the effective keyword-only set.
	positional []string
	// firstGated is the declaration index of the first keyword-only
	// parameter. Positionals at or past this index shift onto the later
	// ungated parameters.
	firstGated int
	// firstKeywordOnly is the declaration-order first gated parameter name,
	// used in error messages.
	firstKeywordOnly string
	// enforced is false when the effective set is empty; the wrapper is then
	// a pass-through.
	enforced bool
}

func (p plan) maxPositional() int {
	return len(p.positional)
}

// newPlan computes the effective keyword-only set and the maximum allowed
// positional count for a signature.
func newPlan(s sig.Signature, names []string) (plan, error) {
	p := plan{keywordOnly: make(map[string]bool)}

	if len(names) > 0 {
		for _, name := range names {
			name = norm.NFC.String(name)
			if !s.Has(name) {
				return plan{}, NewUnknownParameterError(s.Name, name)
			}
			p.keywordOnly[name] = true
		}
	} else {
		for _, name := range s.DefaultNames() {
			p.keywordOnly[name] = true
		}
	}

	if len(p.keywordOnly) == 0 {
		return p, nil
	}

	p.enforced = true
	p.firstGated = -1
	for i, param := range s.Params {
		if p.keywordOnly[param.Name] {
			if p.firstGated < 0 {
				p.firstGated = i
				p.firstKeywordOnly = param.Name
			}
			continue
		}
		p.positional = append(p.positional, param.Name)
	}
	return p, nil
}

// Wrap returns a callable that rejects calls supplying more positional
// arguments than the ungated parameter count, shifts positionals past the
// first keyword-only parameter onto the later ungated parameters, and
// otherwise forwards arguments and results verbatim.
//
// Unknown names fail here, at wrap time, with ErrCodeUnknownParameter.
// Wrapping an already wrapped callable composes: each layer applies its own
// positional maximum to the call it receives.
func (g Gate) Wrap(c *Callable) (*Callable, error) {
	p, err := newPlan(c.signature, g.names)
	if err != nil {
		return nil, err
	}

	if !p.enforced {
		// Empty effective set: all parameters remain positionally fillable.
		return c, nil
	}

	inner := c.fn
	wrapped := func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
		if len(args) > p.maxPositional() {
			return nil, NewTooManyPositionalError(c.signature.Name, p.maxPositional(), len(args), p.firstKeywordOnly)
		}
		if len(args) > p.firstGated {
			// Positionals past the first gated slot belong to the later
			// ungated parameters; rewrite them as keywords so the gated
			// parameters stay keyword-filled.
			remapped := make(map[string]any, len(kwargs)+len(args)-p.firstGated)
			for name, v := range kwargs {
				remapped[name] = v
			}
			for i := p.firstGated; i < len(args); i++ {
				name := p.positional[i]
				if _, dup := remapped[name]; dup {
					return nil, NewDuplicateArgumentError(c.signature.Name, name)
				}
				remapped[name] = args[i]
			}
			return inner(ctx, args[:p.firstGated], remapped)
		}
		return inner(ctx, args, kwargs)
	}

	return &Callable{signature: c.signature, fn: wrapped}, nil
}

// MustWrap is like Wrap but panics on error.
// Use only in tests or when the gate names are known to be declared.
func (g Gate) MustWrap(c *Callable) *Callable {
	wrapped, err := g.Wrap(c)
	if err != nil {
		panic(err)
	}
	return wrapped
}

// Explanation describes a gate's effect on a signature: the effective
// keyword-only set in declaration order and the positional maximum.
type Explanation struct {
	Signature     string   `json:"signature"`
	KeywordOnly   []string `json:"keyword_only"`
	MaxPositional int      `json:"max_positional"`
	Enforced      bool     `json:"enforced"`
}

// Explain reports what KeywordOnly(names...) would enforce on a signature,
// without wrapping anything. Used by the CLI and by callers that want to
// inspect a definition.
func Explain(s sig.Signature, names []string) (Explanation, error) {
	p, err := newPlan(s, names)
	if err != nil {
		return Explanation{}, err
	}

	ex := Explanation{
		Signature:     s.Name,
		KeywordOnly:   []string{},
		MaxPositional: len(s.Params),
		Enforced:      p.enforced,
	}
	if p.enforced {
		ex.MaxPositional = p.maxPositional()
	}
	for _, param := range s.Params {
		if p.keywordOnly[param.Name] {
			ex.KeywordOnly = append(ex.KeywordOnly, param.Name)
		}
	}
	return ex, nil
}
