package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kwonly/internal/sig"
)

func TestCompileDefinitionBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		signature: fetch: {
			doc: "Fetch a resource"
			params: [
				"url",
				{name: "retries", default: 3},
				{name: "verbose", default: false},
			]
			keyword_only: ["verbose"]
		}
	`)

	require.NoError(t, v.Err())
	sigVal := v.LookupPath(cue.ParsePath("signature.fetch"))

	def, err := CompileDefinition(sigVal)
	require.NoError(t, err)

	assert.Equal(t, "fetch", def.Signature.Name)
	assert.Equal(t, "Fetch a resource", def.Signature.Doc)
	require.Len(t, def.Signature.Params, 3)
	assert.Equal(t, "url", def.Signature.Params[0].Name)
	assert.False(t, def.Signature.Params[0].HasDefault())
	assert.Equal(t, "retries", def.Signature.Params[1].Name)
	assert.Equal(t, sig.Int(3), def.Signature.Params[1].Default)
	assert.Equal(t, sig.Bool(false), def.Signature.Params[2].Default)
	assert.Equal(t, []string{"verbose"}, def.KeywordOnly)
}

func TestCompileDefinitionNoKeywordOnly(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		signature: log: {
			params: ["message", {name: "level", default: "info"}]
		}
	`)

	require.NoError(t, v.Err())
	def, err := CompileDefinition(v.LookupPath(cue.ParsePath("signature.log")))
	require.NoError(t, err)

	// Absent keyword_only stays nil, which selects default mode downstream.
	assert.Nil(t, def.KeywordOnly)
	assert.Equal(t, sig.String("info"), def.Signature.Params[1].Default)
}

func TestCompileDefinitionEmptyKeywordOnly(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		signature: log: {
			params: ["message"]
			keyword_only: []
		}
	`)

	require.NoError(t, v.Err())
	def, err := CompileDefinition(v.LookupPath(cue.ParsePath("signature.log")))
	require.NoError(t, err)

	// An explicit empty list is preserved as empty, not nil.
	assert.NotNil(t, def.KeywordOnly)
	assert.Empty(t, def.KeywordOnly)
}

func TestCompileDefinitionZeroParams(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		signature: ping: {}
	`)

	require.NoError(t, v.Err())
	def, err := CompileDefinition(v.LookupPath(cue.ParsePath("signature.ping")))
	require.NoError(t, err)

	assert.Equal(t, "ping", def.Signature.Name)
	assert.Empty(t, def.Signature.Params)
}

func TestCompileDefinitionVariadicFlags(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		signature: call: {
			params: ["target"]
			variadic: true
			variadic_keywords: true
		}
	`)

	require.NoError(t, v.Err())
	def, err := CompileDefinition(v.LookupPath(cue.ParsePath("signature.call")))
	require.NoError(t, err)

	assert.True(t, def.Signature.Variadic)
	assert.True(t, def.Signature.VariadicKeywords)
}

func TestCompileDefinitionStructuredDefaults(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		signature: query: {
			params: [
				"table",
				{name: "columns", default: ["id", "name"]},
				{name: "options", default: {limit: 10, strict: true}},
				{name: "cursor", default: null},
			]
		}
	`)

	require.NoError(t, v.Err())
	def, err := CompileDefinition(v.LookupPath(cue.ParsePath("signature.query")))
	require.NoError(t, err)

	assert.Equal(t, sig.Array{sig.String("id"), sig.String("name")}, def.Signature.Params[1].Default)
	assert.Equal(t, sig.Object{"limit": sig.Int(10), "strict": sig.Bool(true)}, def.Signature.Params[2].Default)
	assert.Equal(t, sig.Null{}, def.Signature.Params[3].Default)
}

func TestCompileDefinitionFloatDefaultRejected(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		signature: bad: {
			params: [{name: "ratio", default: 0.5}]
		}
	`)

	require.NoError(t, v.Err())
	_, err := CompileDefinition(v.LookupPath(cue.ParsePath("signature.bad")))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "float")
}

func TestCompileDefinitionRequiredAfterDefaulted(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		signature: bad: {
			params: [{name: "a", default: 1}, "b"]
		}
	`)

	require.NoError(t, v.Err())
	_, err := CompileDefinition(v.LookupPath(cue.ParsePath("signature.bad")))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "defaulted")
}

func TestCompileDefinitionBadParamEntry(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		signature: bad: {
			params: [{default: 1}]
		}
	`)

	require.NoError(t, v.Err())
	_, err := CompileDefinition(v.LookupPath(cue.ParsePath("signature.bad")))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "name field")
}

func TestCompileErrorIncludesPosition(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		signature: bad: {
			params: [{name: "x", default: 1.5}]
		}
	`)

	require.NoError(t, v.Err())
	_, err := CompileDefinition(v.LookupPath(cue.ParsePath("signature.bad")))

	require.Error(t, err)
	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "default", cerr.Field)
}
