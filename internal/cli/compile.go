package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/specify/storedq/internal/engine"
	"github.com/specify/storedq/internal/querysql"
	"github.com/specify/storedq/internal/savedquery"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Dialect string // overrides the configured driver's dialect
	Fields  bool   // print the resolved fields too
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <schema-dir> <query.yaml>",
		Short: "Compile a saved query to SQL",
		Long: `Resolve and assemble a saved query and print the page and count SQL
with their bound arguments. Nothing is executed.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dialect, "dialect", "", "SQL dialect (sqlite3|pgx), defaults to the configured driver")
	cmd.Flags().BoolVar(&opts.Fields, "fields", false, "print the resolved fields")

	return cmd
}

func runCompile(opts *CompileOptions, schemaDir, queryPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.Config()
	if err != nil {
		return err
	}
	driver := cfg.Database.Driver
	if opts.Dialect != "" {
		driver = opts.Dialect
	}
	dialect, err := querysql.ParseDialect(driver)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}

	reg, err := loadRegistry(formatter, schemaDir)
	if err != nil {
		return err
	}
	q, err := savedquery.Load(queryPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	req, err := q.Request(reg)
	if err != nil {
		return formatter.Fail(ExitFailure, err)
	}

	logger, err := opts.logger(cmd)
	if err != nil {
		return err
	}
	eng := engine.New(reg, nil, dialect, engine.WithPageSize(cfg.Query.PageSize), engine.WithLogger(logger))
	compiled, err := eng.Compile(req)
	if err != nil {
		return formatter.Fail(ExitFailure, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(compiled)
	}
	writeCompiled(formatter, compiled, opts.Fields)
	return nil
}

func writeCompiled(formatter *OutputFormatter, c *engine.Compiled, fields bool) {
	w := formatter.Writer
	fmt.Fprintf(w, "-- fingerprint %s\n", c.Fingerprint)
	if fields {
		for _, s := range c.Fields {
			writeSummary(formatter, s)
		}
	}
	fmt.Fprintln(w, c.SQL)
	fmt.Fprintf(w, "-- args: %v\n", c.Args)
	fmt.Fprintln(w, c.CountSQL)
	fmt.Fprintf(w, "-- args: %v\n", c.CountArgs)
}
