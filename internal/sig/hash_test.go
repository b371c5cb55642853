package sig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignatureHashStable(t *testing.T) {
	s := MustNew("fetch", Required("url"), Optional("retries", Int(3)))

	h1, err := SignatureHash(s)
	require.NoError(t, err)
	h2, err := SignatureHash(s)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64, "hex-encoded SHA-256")
}

func TestSignatureHashSensitivity(t *testing.T) {
	base := MustNew("f", Required("a"), Optional("b", Int(1)))

	renamed := MustNew("g", Required("a"), Optional("b", Int(1)))
	reordered := MustNew("f", Required("b"), Optional("a", Int(1)))
	redefaulted := MustNew("f", Required("a"), Optional("b", Int(2)))
	variadic := MustNew("f", Required("a"), Optional("b", Int(1)))
	variadic.Variadic = true

	baseHash := MustSignatureHash(base)
	assert.NotEqual(t, baseHash, MustSignatureHash(renamed))
	assert.NotEqual(t, baseHash, MustSignatureHash(reordered))
	assert.NotEqual(t, baseHash, MustSignatureHash(redefaulted))
	assert.NotEqual(t, baseHash, MustSignatureHash(variadic))
}

func TestCallIDStable(t *testing.T) {
	args := Array{Int(1), String("x")}
	kwargs := Object{"c": Int(5)}

	id1, err := CallID("session-1", "f", args, kwargs, 7)
	require.NoError(t, err)
	id2, err := CallID("session-1", "f", args, kwargs, 7)
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
}

func TestCallIDSensitivity(t *testing.T) {
	args := Array{Int(1)}
	kwargs := Object{}

	base := MustCallID("s", "f", args, kwargs, 1)
	assert.NotEqual(t, base, MustCallID("s2", "f", args, kwargs, 1))
	assert.NotEqual(t, base, MustCallID("s", "g", args, kwargs, 1))
	assert.NotEqual(t, base, MustCallID("s", "f", Array{Int(2)}, kwargs, 1))
	assert.NotEqual(t, base, MustCallID("s", "f", args, Object{"k": Int(1)}, 1))
	assert.NotEqual(t, base, MustCallID("s", "f", args, kwargs, 2))
}

func TestDomainSeparation(t *testing.T) {
	// Identical canonical payloads under different domains must not collide.
	data := []byte(`{}`)
	assert.NotEqual(t,
		hashWithDomain(DomainSignature, data),
		hashWithDomain(DomainCall, data))
}
