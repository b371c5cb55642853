package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kwonly/internal/sig"
	"github.com/roach88/kwonly/internal/trace"
)

// seedTraceDB creates a database with two sessions of recorded calls and
// returns its path.
func seedTraceDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calls.db")

	st, err := trace.Open(path)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	hash := sig.MustSignatureHash(sig.MustNew("fetch", sig.Required("url"), sig.Optional("timeout", sig.Int(30))))

	calls := []trace.Call{
		{
			SessionToken:  "session-a",
			SignatureName: "fetch",
			SignatureHash: hash,
			Args:          sig.Array{sig.String("https://example.com")},
			Kwargs:        sig.Object{},
			Outcome:       trace.OutcomeOK,
			Seq:           1,
		},
		{
			SessionToken:  "session-a",
			SignatureName: "fetch",
			SignatureHash: hash,
			Args:          sig.Array{sig.String("https://example.com"), sig.Int(10)},
			Kwargs:        sig.Object{},
			Outcome:       trace.OutcomeRejected,
			ErrorCode:     "TOO_MANY_POSITIONAL",
			ErrorMessage:  "fetch() takes at most 1 positional argument",
			Seq:           2,
		},
		{
			SessionToken:  "session-b",
			SignatureName: "fetch",
			SignatureHash: hash,
			Args:          sig.Array{sig.String("https://other.test")},
			Kwargs:        sig.Object{"timeout": sig.Int(5)},
			Outcome:       trace.OutcomeError,
			ErrorMessage:  "connection refused",
			Seq:           1,
		},
	}
	for _, call := range calls {
		call.ID = sig.MustCallID(call.SessionToken, call.SignatureName, call.Args, call.Kwargs, call.Seq)
		require.NoError(t, st.WriteCall(ctx, call))
	}

	return path
}

func TestTraceListSessions(t *testing.T) {
	dbPath := seedTraceDB(t)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTraceCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "2 session(s)")
	assert.Contains(t, output, "session-a")
	assert.Contains(t, output, "session-b")
}

func TestTraceListSessionsJSON(t *testing.T) {
	dbPath := seedTraceDB(t)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewTraceCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, jsonErr := json.Marshal(resp.Data)
	require.NoError(t, jsonErr)
	var result SessionListResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, []string{"session-a", "session-b"}, result.Sessions)
}

func TestTraceDumpSession(t *testing.T) {
	dbPath := seedTraceDB(t)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTraceCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--session", "session-a"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Session session-a (2 calls: 1 ok, 1 rejected, 0 errors)")
	assert.Contains(t, output, "TOO_MANY_POSITIONAL")
	assert.Contains(t, output, "[1] fetch")
	assert.Contains(t, output, "[2] fetch")
}

func TestTraceDumpSessionJSON(t *testing.T) {
	dbPath := seedTraceDB(t)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewTraceCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--session", "session-b"})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))

	data, jsonErr := json.Marshal(resp.Data)
	require.NoError(t, jsonErr)
	var result SessionResult
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, "session-b", result.SessionToken)
	require.Len(t, result.Calls, 1)
	assert.Equal(t, "error", result.Calls[0].Outcome)
	assert.Equal(t, "connection refused", result.Calls[0].ErrorMessage)
	assert.Equal(t, 1, result.Stats.Errors)
}

func TestTraceSignatureFilter(t *testing.T) {
	dbPath := seedTraceDB(t)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewTraceCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--session", "session-a", "--signature", "fetch"})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	data, jsonErr := json.Marshal(resp.Data)
	require.NoError(t, jsonErr)
	var result SessionResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Len(t, result.Calls, 2)

	// A signature with no calls in the session yields an empty dump
	buf.Reset()
	cmd = NewTraceCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--session", "session-a", "--signature", "other"})
	require.NoError(t, cmd.Execute())
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	data, jsonErr = json.Marshal(resp.Data)
	require.NoError(t, jsonErr)
	result = SessionResult{}
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Empty(t, result.Calls)
}

func TestTraceUnknownSession(t *testing.T) {
	dbPath := seedTraceDB(t)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTraceCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--session", "nope"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "session not found: nope")
}

func TestTraceEmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	st, err := trace.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTraceCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath})

	execErr := cmd.Execute()
	require.NoError(t, execErr)
	assert.Contains(t, buf.String(), "No recorded sessions")
}

func TestTraceBadDatabasePath(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTraceCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", filepath.Join(t.TempDir(), "missing", "calls.db")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
