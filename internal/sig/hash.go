package sig

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainSignature = "kwonly/signature/v1"
	DomainCall      = "kwonly/call/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte prevents domain/data
// boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SignatureHash computes the content-addressed identity of a signature.
// Stable across processes given the same declaration: name, ordered
// parameters with defaults, and variadic flags all contribute.
func SignatureHash(s Signature) (string, error) {
	params := make(Array, len(s.Params))
	for i, p := range s.Params {
		obj := Object{"name": String(p.Name)}
		if p.HasDefault() {
			obj["default"] = p.Default
		}
		params[i] = obj
	}

	obj := Object{
		"name":              String(s.Name),
		"params":            params,
		"variadic":          Bool(s.Variadic),
		"variadic_keywords": Bool(s.VariadicKeywords),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("SignatureHash: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainSignature, canonical), nil
}

// CallID computes the content-addressed identity of a recorded call.
// The ID is stable across restarts given the same session token, signature
// name, arguments, and logical sequence number.
func CallID(sessionToken, signatureName string, args Array, kwargs Object, seq int64) (string, error) {
	obj := Object{
		"session_token": String(sessionToken),
		"signature":     String(signatureName),
		"args":          args,
		"kwargs":        kwargs,
		"seq":           Int(seq),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("CallID: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainCall, canonical), nil
}

// MustSignatureHash is like SignatureHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustSignatureHash(s Signature) string {
	h, err := SignatureHash(s)
	if err != nil {
		panic(err)
	}
	return h
}

// MustCallID is like CallID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustCallID(sessionToken, signatureName string, args Array, kwargs Object, seq int64) string {
	id, err := CallID(sessionToken, signatureName, args, kwargs, seq)
	if err != nil {
		panic(err)
	}
	return id
}
