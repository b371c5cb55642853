package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/kwonly/internal/sig"
	"github.com/roach88/kwonly/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database  string
	Session   string // optional - dump one session instead of listing
	Signature string // optional - filter a session dump to one signature
}

// TraceCall is one recorded call in a session timeline.
type TraceCall struct {
	Seq          int64                  `json:"seq"`
	Signature    string                 `json:"signature"`
	Args         []interface{}          `json:"args"`
	Kwargs       map[string]interface{} `json:"kwargs"`
	Outcome      string                 `json:"outcome"`
	ErrorCode    string                 `json:"error_code,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
}

// TraceStats holds summary statistics for a session.
type TraceStats struct {
	TotalCalls int `json:"total_calls"`
	OK         int `json:"ok"`
	Rejected   int `json:"rejected"`
	Errors     int `json:"errors"`
}

// SessionResult holds the dump of a single session.
type SessionResult struct {
	SessionToken string      `json:"session_token"`
	Calls        []TraceCall `json:"calls"`
	Stats        TraceStats  `json:"stats"`
}

// SessionListResult holds the list of recorded sessions.
type SessionListResult struct {
	Sessions []string `json:"sessions"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Query recorded call sessions",
		Long: `Query the call records persisted by a recorder.

Without --session, lists every recorded session token. With --session,
dumps the session's calls in sequence order, with each call's outcome
(ok, rejected, or error).

Examples:
  kwonly trace --db ./calls.db
  kwonly trace --db ./calls.db --session 0190-abc
  kwonly trace --db ./calls.db --session 0190-abc --signature fetch
  kwonly trace --db ./calls.db --session 0190-abc --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session token to dump")
	cmd.Flags().StringVar(&opts.Signature, "signature", "", "filter a session dump to one signature")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := trace.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("failed to open database: %v", err), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.Session == "" {
		return runTraceList(ctx, st, formatter)
	}
	return runTraceSession(ctx, st, opts.Session, opts.Signature, formatter)
}

func runTraceList(ctx context.Context, st *trace.Store, formatter *OutputFormatter) error {
	sessions, err := st.Sessions(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("failed to list sessions: %v", err), nil)
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}

	result := &SessionListResult{Sessions: sessions}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	if len(sessions) == 0 {
		fmt.Fprintln(formatter.Writer, "No recorded sessions")
		return nil
	}

	fmt.Fprintf(formatter.Writer, "%d session(s):\n", len(sessions))
	for _, token := range sessions {
		fmt.Fprintf(formatter.Writer, "  %s\n", token)
	}
	return nil
}

func runTraceSession(ctx context.Context, st *trace.Store, token, signature string, formatter *OutputFormatter) error {
	calls, err := st.ReadSession(ctx, token)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("failed to read session: %v", err), nil)
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}

	if len(calls) == 0 {
		msg := fmt.Sprintf("session not found: %s", token)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	result := &SessionResult{SessionToken: token}
	for _, call := range calls {
		if signature != "" && call.SignatureName != signature {
			continue
		}
		tc := TraceCall{
			Seq:          call.Seq,
			Signature:    call.SignatureName,
			Args:         make([]interface{}, 0, len(call.Args)),
			Kwargs:       make(map[string]interface{}, len(call.Kwargs)),
			Outcome:      call.Outcome,
			ErrorCode:    call.ErrorCode,
			ErrorMessage: call.ErrorMessage,
		}
		for _, v := range call.Args {
			tc.Args = append(tc.Args, sig.ToGo(v))
		}
		for name, v := range call.Kwargs {
			tc.Kwargs[name] = sig.ToGo(v)
		}
		result.Calls = append(result.Calls, tc)

		result.Stats.TotalCalls++
		switch call.Outcome {
		case trace.OutcomeOK:
			result.Stats.OK++
		case trace.OutcomeRejected:
			result.Stats.Rejected++
		default:
			result.Stats.Errors++
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "Session %s (%d calls: %d ok, %d rejected, %d errors)\n\n",
		token, result.Stats.TotalCalls, result.Stats.OK, result.Stats.Rejected, result.Stats.Errors)

	for _, tc := range result.Calls {
		fmt.Fprintf(formatter.Writer, "  [%d] %s args=%v kwargs=%v -> %s", tc.Seq, tc.Signature, tc.Args, tc.Kwargs, tc.Outcome)
		if tc.ErrorCode != "" {
			fmt.Fprintf(formatter.Writer, " (%s)", tc.ErrorCode)
		} else if tc.Outcome == trace.OutcomeError && tc.ErrorMessage != "" {
			fmt.Fprintf(formatter.Writer, " (%s)", tc.ErrorMessage)
		}
		fmt.Fprintln(formatter.Writer)
	}

	return nil
}
