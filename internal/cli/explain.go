package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/kwonly/internal/gate"
)

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	*RootOptions
}

// ExplainResult holds the gate explanations for a set of definitions.
type ExplainResult struct {
	Gates []gate.Explanation `json:"gates"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain <defs-dir> [name]",
		Short: "Show what each definition's gate enforces",
		Long: `Show what each definition's gate enforces.

For every signature definition, reports the effective keyword-only
parameter set and the maximum number of positional arguments the gate
will accept. Definitions without defaulted parameters and without an
explicit keyword_only list have nothing to enforce.

Examples:
  kwonly explain ./defs
  kwonly explain ./defs fetch
  kwonly explain ./defs --format json`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) > 1 {
				name = args[1]
			}
			return runExplain(opts, args[0], name, cmd)
		},
	}

	return cmd
}

func runExplain(opts *ExplainOptions, defsDir, name string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	loadResult, loadErrors := LoadDefinitions(defsDir, LoadModeFailFast)
	if len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", loadErr.Code, loadErr.Message))
		}
		_ = formatter.Error(ErrCodeGeneric, loadErrors[0].Error(), nil)
		return NewExitError(ExitCommandError, loadErrors[0].Error())
	}

	result := &ExplainResult{}
	for _, def := range loadResult.Definitions {
		if name != "" && def.Signature.Name != name {
			continue
		}

		ex, err := gate.Explain(def.Signature, def.KeywordOnly)
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("explaining %s: %v", def.Signature.Name, err), nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("explaining %s: %v", def.Signature.Name, err))
		}
		result.Gates = append(result.Gates, ex)
	}

	if name != "" && len(result.Gates) == 0 {
		msg := fmt.Sprintf("signature not found: %s", name)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	return outputExplainResult(formatter, result)
}

// outputExplainResult renders the explanations in the configured format.
func outputExplainResult(formatter *OutputFormatter, result *ExplainResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	for _, ex := range result.Gates {
		fmt.Fprintf(formatter.Writer, "%s\n", ex.Signature)
		if !ex.Enforced {
			fmt.Fprintln(formatter.Writer, "  gate: not enforced (no keyword-only parameters)")
			fmt.Fprintln(formatter.Writer)
			continue
		}
		fmt.Fprintf(formatter.Writer, "  keyword-only:   %s\n", strings.Join(ex.KeywordOnly, ", "))
		fmt.Fprintf(formatter.Writer, "  max positional: %d\n", ex.MaxPositional)
		fmt.Fprintln(formatter.Writer)
	}

	return nil
}
