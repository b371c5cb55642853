package kwonly_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kwonly"
)

func connectCallable(t *testing.T) *kwonly.Callable {
	t.Helper()
	sign := kwonly.MustNew("connect",
		kwonly.Required("host"),
		kwonly.Optional("port", kwonly.Int(8080)),
		kwonly.Optional("tls", kwonly.Bool(false)),
	)
	return kwonly.MustBind(sign, func(ctx context.Context, host string, port int64, tls bool) (string, error) {
		scheme := "tcp"
		if tls {
			scheme = "tls"
		}
		return fmt.Sprintf("%s://%s:%d", scheme, host, port), nil
	})
}

func TestDefaultModeGatesDefaultedParameters(t *testing.T) {
	gated, err := kwonly.KeywordOnly().Wrap(connectCallable(t))
	require.NoError(t, err)
	ctx := context.Background()

	// Defaulted parameters still work by keyword
	result, err := gated.Call(ctx, []any{"db.internal"}, map[string]any{"port": int64(5432)})
	require.NoError(t, err)
	assert.Equal(t, "tcp://db.internal:5432", result)

	// Defaults apply when nothing is passed
	result, err = gated.Call(ctx, []any{"db.internal"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "tcp://db.internal:8080", result)

	// They can no longer be filled positionally
	_, err = gated.Call(ctx, []any{"db.internal", int64(5432)}, nil)
	require.Error(t, err)
	assert.True(t, kwonly.IsTooManyPositional(err))

	ce, ok := kwonly.AsCallError(err)
	require.True(t, ok)
	assert.Equal(t, kwonly.ErrCodeTooManyPositional, ce.Code)
	assert.Equal(t, "connect", ce.Callable)
}

func TestExplicitNamesCapPositionals(t *testing.T) {
	gated, err := kwonly.KeywordOnly("port").Wrap(connectCallable(t))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = gated.Call(ctx, []any{"db.internal"}, map[string]any{"port": int64(9000), "tls": true})
	require.NoError(t, err)

	// host and tls stay positional; the second positional skips over port.
	result, err := gated.Call(ctx, []any{"db.internal", true}, nil)
	require.NoError(t, err)
	assert.Equal(t, "tls://db.internal:8080", result)

	_, err = gated.Call(ctx, []any{"db.internal", true, int64(9000)}, nil)
	assert.True(t, kwonly.IsTooManyPositional(err))
}

func TestUnknownNameFailsAtWrapTime(t *testing.T) {
	_, err := kwonly.KeywordOnly("retries").Wrap(connectCallable(t))
	require.Error(t, err)
	assert.True(t, kwonly.IsUnknownParameter(err))

	ce, ok := kwonly.AsCallError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"retries"}, ce.Params)
}

func TestGateWithoutTargetsPassesThrough(t *testing.T) {
	sign := kwonly.MustNew("ping", kwonly.Required("host"))
	callable := kwonly.MustBind(sign, func(ctx context.Context, host string) (string, error) {
		return "pong " + host, nil
	})

	gated, err := kwonly.KeywordOnly().Wrap(callable)
	require.NoError(t, err)
	assert.Same(t, callable, gated)
}

func TestComposedGatesStricterMaxWins(t *testing.T) {
	inner, err := kwonly.KeywordOnly("tls").Wrap(connectCallable(t))
	require.NoError(t, err)
	outer, err := kwonly.KeywordOnly().Wrap(inner)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = outer.Call(ctx, []any{"db.internal"}, nil)
	require.NoError(t, err)

	// The inner gate alone allows two positionals; the added default-mode
	// layer caps at the single non-defaulted parameter.
	_, err = inner.Call(ctx, []any{"db.internal", int64(9000)}, nil)
	require.NoError(t, err)
	_, err = outer.Call(ctx, []any{"db.internal", int64(9000)}, nil)
	assert.True(t, kwonly.IsTooManyPositional(err))
}

func TestBindingErrorsSurfaceThroughGate(t *testing.T) {
	gated, err := kwonly.KeywordOnly().Wrap(connectCallable(t))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = gated.Call(ctx, nil, nil)
	assert.True(t, kwonly.IsMissingArguments(err))

	_, err = gated.Call(ctx, []any{"db.internal"}, map[string]any{"host": "other"})
	ce, ok := kwonly.AsCallError(err)
	require.True(t, ok)
	assert.Equal(t, kwonly.ErrCodeDuplicateArgument, ce.Code)

	_, err = gated.Call(ctx, []any{"db.internal"}, map[string]any{"retries": int64(3)})
	ce, ok = kwonly.AsCallError(err)
	require.True(t, ok)
	assert.Equal(t, kwonly.ErrCodeUnexpectedKeyword, ce.Code)
}

func TestExplainThroughFacade(t *testing.T) {
	sign := connectCallable(t).Signature()

	ex, err := kwonly.Explain(sign, nil)
	require.NoError(t, err)
	assert.True(t, ex.Enforced)
	assert.Equal(t, []string{"port", "tls"}, ex.KeywordOnly)
	assert.Equal(t, 1, ex.MaxPositional)

	hash, err := kwonly.SignatureHash(sign)
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
}

func TestTargetErrorsPropagate(t *testing.T) {
	sign := kwonly.MustNew("fail", kwonly.Required("x"))
	sentinel := fmt.Errorf("boom")
	callable := kwonly.MustCallable(sign, func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
		return nil, sentinel
	})

	gated, err := kwonly.KeywordOnly("x").Wrap(callable)
	require.NoError(t, err)

	_, err = gated.Call(context.Background(), nil, map[string]any{"x": int64(1)})
	assert.Same(t, sentinel, err)
}
