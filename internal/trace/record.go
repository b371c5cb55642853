package trace

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/kwonly/internal/sig"
)

// Outcome of a recorded call.
const (
	OutcomeOK       = "ok"       // gate passed, target returned normally
	OutcomeRejected = "rejected" // gate refused the call
	OutcomeError    = "error"    // target returned an error
)

// Call is one recorded invocation.
//
// The ID is content-addressed over (session_token, signature_name, args,
// kwargs, seq), so writing the same record twice is a no-op.
type Call struct {
	ID            string
	SessionToken  string
	SignatureName string
	SignatureHash string
	Args          sig.Array
	Kwargs        sig.Object
	Outcome       string
	ErrorCode     string
	ErrorMessage  string
	Seq           int64
}

// WriteCall inserts a call record into the store.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are
// silently ignored. Other constraint violations still return errors.
//
// Args and Kwargs are serialized to canonical JSON per RFC 8785 so stored
// traces are byte-stable across runs.
func (s *Store) WriteCall(ctx context.Context, call Call) error {
	argsJSON, err := marshalArgs(call.Args)
	if err != nil {
		return fmt.Errorf("write call: %w", err)
	}

	kwargsJSON, err := marshalKwargs(call.Kwargs)
	if err != nil {
		return fmt.Errorf("write call: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO calls
		(id, session_token, signature_name, signature_hash, args, kwargs, outcome, error_code, error_message, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		call.ID,
		call.SessionToken,
		call.SignatureName,
		call.SignatureHash,
		argsJSON,
		kwargsJSON,
		call.Outcome,
		call.ErrorCode,
		call.ErrorMessage,
		call.Seq,
	)
	if err != nil {
		return fmt.Errorf("write call: %w", err)
	}

	return nil
}

// ReadSession returns all call records for a session token.
// Results are ordered deterministically: ORDER BY seq ASC, id COLLATE BINARY ASC.
//
// Returns an empty slice (not nil) if no records exist for the token.
func (s *Store) ReadSession(ctx context.Context, sessionToken string) ([]Call, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_token, signature_name, signature_hash, args, kwargs, outcome, error_code, error_message, seq
		FROM calls
		WHERE session_token = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, sessionToken)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	calls := []Call{}
	for rows.Next() {
		var call Call
		var argsJSON, kwargsJSON string
		err := rows.Scan(
			&call.ID,
			&call.SessionToken,
			&call.SignatureName,
			&call.SignatureHash,
			&argsJSON,
			&kwargsJSON,
			&call.Outcome,
			&call.ErrorCode,
			&call.ErrorMessage,
			&call.Seq,
		)
		if err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}

		call.Args, err = unmarshalArgs(argsJSON)
		if err != nil {
			return nil, err
		}
		call.Kwargs, err = unmarshalKwargs(kwargsJSON)
		if err != nil {
			return nil, err
		}

		calls = append(calls, call)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calls: %w", err)
	}

	return calls, nil
}

// LastSeq returns the highest seq recorded for a session, or 0 when the
// session has no records. Used to resume a clock for an existing session.
func (s *Store) LastSeq(ctx context.Context, sessionToken string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM calls WHERE session_token = ?
	`, sessionToken).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}

// Sessions returns all distinct session tokens in the store, ordered by the
// seq of their first record.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_token FROM calls
		GROUP BY session_token
		ORDER BY MIN(seq) ASC, session_token COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	tokens := []string{}
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return tokens, nil
}

// marshalArgs converts an argument array to canonical JSON TEXT for storage.
func marshalArgs(args sig.Array) (string, error) {
	if args == nil {
		args = sig.Array{}
	}
	data, err := sig.MarshalCanonical(args)
	if err != nil {
		return "", fmt.Errorf("marshal args: %w", err)
	}
	return string(data), nil
}

// marshalKwargs converts a keyword-argument object to canonical JSON TEXT.
func marshalKwargs(kwargs sig.Object) (string, error) {
	if kwargs == nil {
		kwargs = sig.Object{}
	}
	data, err := sig.MarshalCanonical(kwargs)
	if err != nil {
		return "", fmt.Errorf("marshal kwargs: %w", err)
	}
	return string(data), nil
}

// unmarshalArgs parses canonical JSON TEXT to an argument array.
// Uses sig.Array.UnmarshalJSON which handles large integers via json.Number
// to avoid float64 precision loss for values > 2^53.
func unmarshalArgs(data string) (sig.Array, error) {
	if data == "" || data == "[]" {
		return sig.Array{}, nil
	}
	var arr sig.Array
	if err := json.Unmarshal([]byte(data), &arr); err != nil {
		return nil, fmt.Errorf("unmarshal args: %w", err)
	}
	return arr, nil
}

// unmarshalKwargs parses canonical JSON TEXT to a keyword-argument object.
func unmarshalKwargs(data string) (sig.Object, error) {
	if data == "" || data == "{}" {
		return sig.Object{}, nil
	}
	var obj sig.Object
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal kwargs: %w", err)
	}
	return obj, nil
}
