package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/specify/storedq/internal/fieldspec"
	"github.com/specify/storedq/internal/ops"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Operator int
	Operand  string
	Not      bool
	Display  bool
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <schema-dir> <stringId>",
		Short: "Resolve a stringId to its field specification",
		Long: `Resolve one field descriptor against the schema and print the join
path, terminal table, field and resolution mode.

Example:
  storedq resolve schema "1,9-determinations,4.taxon.Family" --operator 1 --operand Salmonidae`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Operator, "operator", int(ops.Equals), "operator code")
	cmd.Flags().StringVar(&opts.Operand, "operand", "", "operand (start value)")
	cmd.Flags().BoolVar(&opts.Not, "not", false, "negate the operator")
	cmd.Flags().BoolVar(&opts.Display, "display", false, "mark the field as displayed")

	return cmd
}

func runResolve(opts *ResolveOptions, schemaDir, stringID string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	reg, err := loadRegistry(formatter, schemaDir)
	if err != nil {
		return err
	}

	spec, err := fieldspec.Resolve(reg, fieldspec.Descriptor{
		StringID:     stringID,
		OperatorCode: opts.Operator,
		StartValue:   opts.Operand,
		IsNot:        opts.Not,
		IsDisplay:    opts.Display,
	}, nil)
	if err != nil {
		return formatter.Fail(ExitFailure, err)
	}

	summary := spec.Summarize()
	if formatter.Format == "json" {
		return formatter.Success(summary)
	}
	writeSummary(formatter, summary)
	return nil
}

// writeSummary prints a field specification as indented text.
func writeSummary(formatter *OutputFormatter, s fieldspec.Summary) {
	w := formatter.Writer
	fmt.Fprintf(w, "%s\n", s.StringID)
	fmt.Fprintf(w, "  root:     %s\n", s.Root)
	if len(s.Path) > 0 {
		fmt.Fprintf(w, "  path:     %s\n", strings.Join(s.Path, ", "))
	}
	fmt.Fprintf(w, "  table:    %s\n", s.Table)
	fmt.Fprintf(w, "  field:    %s\n", s.Field)
	mode := s.Mode
	if s.DatePart != "" {
		mode += " (" + s.DatePart + ")"
	}
	fmt.Fprintf(w, "  mode:     %s\n", mode)
	op := ops.Code(s.Operator).String()
	if s.Negate {
		op = "not " + op
	}
	fmt.Fprintf(w, "  operator: %s\n", op)
	if s.Operand != "" {
		fmt.Fprintf(w, "  operand:  %q\n", s.Operand)
	}
	if s.Display {
		fmt.Fprintln(w, "  display:  yes")
	}
}
