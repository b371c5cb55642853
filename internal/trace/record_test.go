package trace

import (
	"context"
	"testing"

	"github.com/roach88/kwonly/internal/sig"
)

func testCall(id, session, name string, outcome string, seq int64) Call {
	return Call{
		ID:            id,
		SessionToken:  session,
		SignatureName: name,
		SignatureHash: "test-hash",
		Args:          sig.Array{sig.Int(1)},
		Kwargs:        sig.Object{"flag": sig.Bool(true)},
		Outcome:       outcome,
		Seq:           seq,
	}
}

func TestWriteCall_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	call := testCall("id-1", "session-1", "fetch", OutcomeOK, 1)
	if err := s.WriteCall(ctx, call); err != nil {
		t.Fatalf("WriteCall() failed: %v", err)
	}

	calls, err := s.ReadSession(ctx, "session-1")
	if err != nil {
		t.Fatalf("ReadSession() failed: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("ReadSession() returned %d calls, expected 1", len(calls))
	}

	got := calls[0]
	if got.ID != "id-1" || got.SignatureName != "fetch" || got.Outcome != OutcomeOK {
		t.Errorf("unexpected record: %+v", got)
	}
	if len(got.Args) != 1 || got.Args[0] != sig.Int(1) {
		t.Errorf("args did not round-trip: %+v", got.Args)
	}
	if got.Kwargs["flag"] != sig.Bool(true) {
		t.Errorf("kwargs did not round-trip: %+v", got.Kwargs)
	}
}

func TestWriteCall_IdempotentOnID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	call := testCall("id-1", "session-1", "fetch", OutcomeOK, 1)
	for i := 0; i < 3; i++ {
		if err := s.WriteCall(ctx, call); err != nil {
			t.Fatalf("WriteCall() iteration %d failed: %v", i, err)
		}
	}

	calls, err := s.ReadSession(ctx, "session-1")
	if err != nil {
		t.Fatalf("ReadSession() failed: %v", err)
	}
	if len(calls) != 1 {
		t.Errorf("expected 1 record after duplicate writes, got %d", len(calls))
	}
}

func TestWriteCall_RejectsBadOutcome(t *testing.T) {
	s := createTestStore(t)

	call := testCall("id-1", "session-1", "fetch", "exploded", 1)
	if err := s.WriteCall(context.Background(), call); err == nil {
		t.Error("expected CHECK constraint violation for bad outcome")
	}
}

func TestReadSession_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Write out of order; reads must come back seq-ordered.
	for _, c := range []Call{
		testCall("id-3", "session-1", "fetch", OutcomeOK, 3),
		testCall("id-1", "session-1", "fetch", OutcomeOK, 1),
		testCall("id-2", "session-1", "fetch", OutcomeRejected, 2),
	} {
		if err := s.WriteCall(ctx, c); err != nil {
			t.Fatalf("WriteCall() failed: %v", err)
		}
	}

	calls, err := s.ReadSession(ctx, "session-1")
	if err != nil {
		t.Fatalf("ReadSession() failed: %v", err)
	}
	if len(calls) != 3 {
		t.Fatalf("expected 3 records, got %d", len(calls))
	}
	for i, want := range []int64{1, 2, 3} {
		if calls[i].Seq != want {
			t.Errorf("calls[%d].Seq = %d, expected %d", i, calls[i].Seq, want)
		}
	}
}

func TestReadSession_EmptyIsNotNil(t *testing.T) {
	s := createTestStore(t)

	calls, err := s.ReadSession(context.Background(), "no-such-session")
	if err != nil {
		t.Fatalf("ReadSession() failed: %v", err)
	}
	if calls == nil {
		t.Error("expected empty slice, got nil")
	}
	if len(calls) != 0 {
		t.Errorf("expected 0 records, got %d", len(calls))
	}
}

func TestReadSession_IsolatedBySession(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.WriteCall(ctx, testCall("id-1", "session-a", "f", OutcomeOK, 1)); err != nil {
		t.Fatalf("WriteCall() failed: %v", err)
	}
	if err := s.WriteCall(ctx, testCall("id-2", "session-b", "f", OutcomeOK, 1)); err != nil {
		t.Fatalf("WriteCall() failed: %v", err)
	}

	calls, err := s.ReadSession(ctx, "session-a")
	if err != nil {
		t.Fatalf("ReadSession() failed: %v", err)
	}
	if len(calls) != 1 || calls[0].ID != "id-1" {
		t.Errorf("session-a read returned wrong records: %+v", calls)
	}
}

func TestLastSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq, err := s.LastSeq(ctx, "session-1")
	if err != nil {
		t.Fatalf("LastSeq() failed: %v", err)
	}
	if seq != 0 {
		t.Errorf("LastSeq() on empty session = %d, expected 0", seq)
	}

	if err := s.WriteCall(ctx, testCall("id-1", "session-1", "f", OutcomeOK, 7)); err != nil {
		t.Fatalf("WriteCall() failed: %v", err)
	}

	seq, err = s.LastSeq(ctx, "session-1")
	if err != nil {
		t.Fatalf("LastSeq() failed: %v", err)
	}
	if seq != 7 {
		t.Errorf("LastSeq() = %d, expected 7", seq)
	}
}

func TestSessions_OrderedByFirstSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.WriteCall(ctx, testCall("id-1", "later", "f", OutcomeOK, 5)); err != nil {
		t.Fatalf("WriteCall() failed: %v", err)
	}
	if err := s.WriteCall(ctx, testCall("id-2", "earlier", "f", OutcomeOK, 2)); err != nil {
		t.Fatalf("WriteCall() failed: %v", err)
	}

	sessions, err := s.Sessions(ctx)
	if err != nil {
		t.Fatalf("Sessions() failed: %v", err)
	}
	if len(sessions) != 2 || sessions[0] != "earlier" || sessions[1] != "later" {
		t.Errorf("unexpected session order: %v", sessions)
	}
}

func TestWriteCall_LargeIntegerPrecision(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// 2^53 + 1 survives the round trip because unmarshalling goes through
	// json.Number, not float64.
	big := sig.Int(9007199254740993)
	call := testCall("id-1", "session-1", "f", OutcomeOK, 1)
	call.Args = sig.Array{big}

	if err := s.WriteCall(ctx, call); err != nil {
		t.Fatalf("WriteCall() failed: %v", err)
	}

	calls, err := s.ReadSession(ctx, "session-1")
	if err != nil {
		t.Fatalf("ReadSession() failed: %v", err)
	}
	if calls[0].Args[0] != big {
		t.Errorf("large int did not round-trip: got %v", calls[0].Args[0])
	}
}
