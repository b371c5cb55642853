package gate

import (
	"context"
	"fmt"
	"math"
	"reflect"

	"github.com/roach88/kwonly/internal/sig"
)

var (
	ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()
)

// Bind adapts an ordinary Go function to the dynamic calling convention
// described by a signature.
//
// The function shape must be:
//
//	func(ctx context.Context, p1 T1, ..., pn Tn[, extra []E][, kw map[string]V]) (R, error)
//
// with one Go parameter per declared signature parameter, a trailing slice
// collector when the signature is variadic, a trailing string-keyed map
// collector when it accepts undeclared keywords, and either (R, error) or
// plain error results. Go's own `...` variadic syntax is not supported; the
// collector is an explicit slice parameter.
//
// At call time, positionals fill parameters in declaration order and
// keywords fill by name. Unfilled parameters take their declared default.
// Binding failures are structured CallErrors: excess positionals on a
// non-variadic signature, a keyword for a positionally filled parameter, an
// undeclared keyword without a collector, unfilled required parameters, and
// inconvertible values. These are the "underlying mechanism" errors that
// pass through any gate above unmodified.
func Bind(s sig.Signature, fn any) (*Callable, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	val := reflect.ValueOf(fn)
	typ := val.Type()
	if typ.Kind() != reflect.Func {
		return nil, fmt.Errorf("bind %q: expected a function, got %v", s.Name, typ.Kind())
	}
	if typ.IsVariadic() {
		return nil, fmt.Errorf("bind %q: Go variadic functions are not supported; declare an explicit slice collector", s.Name)
	}
	if typ.NumIn() == 0 || typ.In(0) != ctxType {
		return nil, fmt.Errorf("bind %q: first parameter must be context.Context", s.Name)
	}

	wantIn := 1 + len(s.Params)
	extraIdx, kwIdx := -1, -1
	if s.Variadic {
		extraIdx = wantIn
		wantIn++
	}
	if s.VariadicKeywords {
		kwIdx = wantIn
		wantIn++
	}
	if typ.NumIn() != wantIn {
		return nil, fmt.Errorf("bind %q: function takes %d parameter(s), signature needs %d", s.Name, typ.NumIn(), wantIn)
	}
	if extraIdx >= 0 && typ.In(extraIdx).Kind() != reflect.Slice {
		return nil, fmt.Errorf("bind %q: positional collector must be a slice, got %v", s.Name, typ.In(extraIdx))
	}
	if kwIdx >= 0 {
		kt := typ.In(kwIdx)
		if kt.Kind() != reflect.Map || kt.Key().Kind() != reflect.String {
			return nil, fmt.Errorf("bind %q: keyword collector must be a string-keyed map, got %v", s.Name, kt)
		}
	}

	switch typ.NumOut() {
	case 1, 2:
		if typ.Out(typ.NumOut()-1) != errType {
			return nil, fmt.Errorf("bind %q: last result must be error", s.Name)
		}
	default:
		return nil, fmt.Errorf("bind %q: function must return (result, error) or error", s.Name)
	}

	call := func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
		in := make([]reflect.Value, typ.NumIn())
		in[0] = reflect.ValueOf(ctx)

		declared := len(s.Params)
		positional := len(args)
		if positional > declared {
			if !s.Variadic {
				return nil, NewTooManyArgumentsError(s.Name, declared, positional)
			}
			positional = declared
		}

		filled := make([]bool, declared)
		for i := 0; i < positional; i++ {
			v, cerr := convertArg(args[i], typ.In(1+i), s.Name, s.Params[i].Name)
			if cerr != nil {
				return nil, cerr
			}
			in[1+i] = v
			filled[i] = true
		}

		if extraIdx >= 0 {
			extraType := typ.In(extraIdx)
			extras := reflect.MakeSlice(extraType, 0, len(args)-positional)
			for _, a := range args[positional:] {
				v, cerr := convertArg(a, extraType.Elem(), s.Name, "*extra")
				if cerr != nil {
					return nil, cerr
				}
				extras = reflect.Append(extras, v)
			}
			in[extraIdx] = extras
		}

		var kwExtras reflect.Value
		if kwIdx >= 0 {
			kwExtras = reflect.MakeMap(typ.In(kwIdx))
		}
		for name, value := range kwargs {
			idx := s.Index(name)
			if idx < 0 {
				if kwIdx < 0 {
					return nil, NewUnexpectedKeywordError(s.Name, name)
				}
				v, cerr := convertArg(value, typ.In(kwIdx).Elem(), s.Name, name)
				if cerr != nil {
					return nil, cerr
				}
				kwExtras.SetMapIndex(reflect.ValueOf(name), v)
				continue
			}
			if filled[idx] {
				return nil, NewDuplicateArgumentError(s.Name, s.Params[idx].Name)
			}
			v, cerr := convertArg(value, typ.In(1+idx), s.Name, s.Params[idx].Name)
			if cerr != nil {
				return nil, cerr
			}
			in[1+idx] = v
			filled[idx] = true
		}
		if kwIdx >= 0 {
			in[kwIdx] = kwExtras
		}

		var missing []string
		for i, param := range s.Params {
			if filled[i] {
				continue
			}
			if !param.HasDefault() {
				missing = append(missing, param.Name)
				continue
			}
			v, cerr := convertArg(sig.ToGo(param.Default), typ.In(1+i), s.Name, param.Name)
			if cerr != nil {
				return nil, cerr
			}
			in[1+i] = v
		}
		if len(missing) > 0 {
			return nil, NewMissingArgumentsError(s.Name, "positional", missing)
		}

		out := val.Call(in)

		if errVal := out[len(out)-1]; !errVal.IsNil() {
			return nil, errVal.Interface().(error)
		}
		if len(out) == 2 {
			return out[0].Interface(), nil
		}
		return nil, nil
	}

	return NewCallable(s, call)
}

// MustBind is like Bind but panics on error.
// Use only in tests or when the function shape is known to match.
func MustBind(s sig.Signature, fn any) *Callable {
	c, err := Bind(s, fn)
	if err != nil {
		panic(err)
	}
	return c
}

// convertArg converts an argument value to the target parameter type.
// Assignable values pass through; convertible values are converted, except
// integer-to-string (Go's rune conversion would silently mangle the value).
// JSON-decoded numbers (float64) convert to integer kinds when integral.
func convertArg(v any, target reflect.Type, callable, param string) (reflect.Value, *CallError) {
	if v == nil {
		switch target.Kind() {
		case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
			return reflect.Zero(target), nil
		default:
			return reflect.Value{}, NewTypeMismatchError(callable, param, "nil", target.String())
		}
	}

	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(target) {
		return rv, nil
	}

	if rv.Kind() == reflect.Float64 {
		f := rv.Float()
		switch target.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			// The range check keeps values whose float64 form lies outside
			// int64 from converting to garbage.
			if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
				return reflect.ValueOf(int64(f)).Convert(target), nil
			}
			return reflect.Value{}, NewTypeMismatchError(callable, param, fmt.Sprintf("%v", v), target.String())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if f == math.Trunc(f) && f >= 0 && f < math.MaxUint64 {
				return reflect.ValueOf(uint64(f)).Convert(target), nil
			}
			return reflect.Value{}, NewTypeMismatchError(callable, param, fmt.Sprintf("%v", v), target.String())
		}
	}

	if target.Kind() == reflect.String && isIntegerKind(rv.Kind()) {
		return reflect.Value{}, NewTypeMismatchError(callable, param, rv.Type().String(), target.String())
	}

	if rv.Type().ConvertibleTo(target) {
		return rv.Convert(target), nil
	}

	return reflect.Value{}, NewTypeMismatchError(callable, param, rv.Type().String(), target.String())
}

func isIntegerKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}
