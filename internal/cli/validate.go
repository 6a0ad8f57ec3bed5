package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/specify/storedq/internal/compiler"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// ValidationResult represents the result of validation.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Tables int                        `json:"tables"`
	Files  int                        `json:"files"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <schema-dir>",
		Short: "Validate a CUE schema description",
		Long: `Load the CUE schema description in a directory and check it.

Every problem is reported, not only the first: duplicate tables,
relationships to unknown tables, tree tables without a rank table,
scope chains that do not resolve.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *ValidateOptions, schemaDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	formatter.VerboseLog("Loading schema from %s", schemaDir)
	loaded, err := compiler.LoadDir(schemaDir)
	if err != nil {
		return formatter.Fail(loadExitCode(err), err)
	}
	formatter.VerboseLog("Found %d CUE file(s)", len(loaded.Files))

	problems := compiler.Validate(loaded.Description)
	if len(problems) > 0 {
		return outputValidationErrors(formatter, problems)
	}

	result := ValidationResult{Valid: true, Tables: len(loaded.Description.Tables), Files: len(loaded.Files)}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Schema valid (%d tables)\n", result.Tables)
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	exitErr := WrapExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)), compiler.ValidationErrors(errs))

	if formatter.Format == "json" {
		if err := formatter.Error(errs[0].Code, errs[0].Message, ValidationResult{Valid: false, Errors: errs}); err != nil {
			return errors.Join(exitErr, err)
		}
		return exitErr
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n", err.Code, err.Field, err.Message)
	}
	return exitErr
}
