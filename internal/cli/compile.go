package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/kwonly/internal/sig"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompiledDefinition is a definition together with its canonical hash.
type CompiledDefinition struct {
	sig.Definition
	Hash string `json:"hash"`
}

// CompilationResult holds the compiled signature definitions.
type CompilationResult struct {
	Definitions []CompiledDefinition `json:"definitions"`
}

// CompilationStats holds summary statistics.
type CompilationStats struct {
	DefinitionCount int
	ParamCount      int
	GatedCount      int // definitions with an explicit keyword_only list
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <defs-dir>",
		Short: "Compile CUE signature definitions to canonical JSON",
		Long: `Compile CUE signature definitions to canonical JSON.

The compiler parses CUE files, validates each definition, and outputs
the definitions together with their canonical content hashes.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, defsDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	// Use shared loader with collect-all mode
	loadResult, loadErrors := LoadDefinitions(defsDir, LoadModeCollectAll)

	// Handle load errors (directory not found, no files, etc.)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputCompileError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputCompileError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, defsDir)

	for _, def := range loadResult.Definitions {
		formatter.VerboseLog("Compiling signature: %s", def.Signature.Name)
	}

	// Handle compilation errors
	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	// Hash each definition
	result := &CompilationResult{}
	for _, def := range loadResult.Definitions {
		hash, err := sig.SignatureHash(def.Signature)
		if err != nil {
			return outputCompileError(formatter, ErrCodeGeneric,
				fmt.Sprintf("hashing signature %s: %v", def.Signature.Name, err), nil)
		}
		result.Definitions = append(result.Definitions, CompiledDefinition{
			Definition: def,
			Hash:       hash,
		})
	}

	stats := calculateStats(result)

	// Write to file if --output specified
	if opts.Output != "" {
		if err := writeResultToFile(result, opts.Output); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, stats, opts.Output)
}

// calculateStats computes summary statistics from the compilation result.
func calculateStats(result *CompilationResult) CompilationStats {
	stats := CompilationStats{
		DefinitionCount: len(result.Definitions),
	}

	for _, def := range result.Definitions {
		stats.ParamCount += len(def.Signature.Params)
		if def.KeywordOnly != nil {
			stats.GatedCount++
		}
	}

	return stats
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, stats CompilationStats, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	// Human-readable text output
	fmt.Fprintf(formatter.Writer, "✓ Compiled %d signature definition(s), %d parameter(s)\n\n",
		stats.DefinitionCount, stats.ParamCount)

	fmt.Fprintln(formatter.Writer, "Signatures:")
	for _, def := range result.Definitions {
		mode := "default mode"
		if def.KeywordOnly != nil {
			mode = fmt.Sprintf("keyword-only: %v", def.KeywordOnly)
		}
		fmt.Fprintf(formatter.Writer, "  %s (%d params, %s)\n", def.Signature.Name, len(def.Signature.Params), mode)
		fmt.Fprintf(formatter.Writer, "    hash: %s\n", def.Hash)
	}

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "\nWrote compiled definitions to %s\n", outputFile)
	}

	return nil
}

// outputCompileError outputs a single compile error and returns an ExitError.
func outputCompileError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputCompileErrors outputs multiple compile errors and returns an ExitError.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrs := make([]CLIError, 0, len(errs))
		for _, err := range errs {
			var loadErr *LoadError
			if errors.As(err, &loadErr) {
				cliErrs = append(cliErrs, CLIError{Code: loadErr.Code, Message: loadErr.Message})
			} else {
				cliErrs = append(cliErrs, CLIError{Code: ErrCodeGeneric, Message: err.Error()})
			}
		}

		response := CLIResponse{
			Status: "error",
			Data:   map[string]interface{}{"errors": cliErrs},
			Error:  &CLIError{Code: cliErrs[0].Code, Message: cliErrs[0].Message},
		}
		if err := json.NewEncoder(formatter.Writer).Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %v\n", err)
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// writeResultToFile writes the compilation result as indented JSON.
func writeResultToFile(result *CompilationResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
