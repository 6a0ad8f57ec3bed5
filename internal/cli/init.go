package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	DDL bool // print the statements instead of executing them
}

// InitResult is the JSON payload of init.
type InitResult struct {
	Driver     string   `json:"driver"`
	Tables     int      `json:"tables"`
	Statements []string `json:"statements,omitempty"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init <schema-dir>",
		Short: "Create the schema's tables in the configured database",
		Long: `Create one table per schema table, with the id column and every field
and relationship column. Existing tables are left untouched.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DDL, "ddl", false, "print the CREATE TABLE statements without executing them")

	return cmd
}

func runInit(opts *InitOptions, schemaDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	reg, err := loadRegistry(formatter, schemaDir)
	if err != nil {
		return err
	}
	cfg, err := opts.Config()
	if err != nil {
		return err
	}
	logger, err := opts.logger(cmd)
	if err != nil {
		return err
	}

	st, err := opts.openStore(cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	result := InitResult{Driver: cfg.Database.Driver, Tables: len(reg.Tables())}
	if opts.DDL {
		result.Statements = st.TableDDL(reg)
	} else {
		if err := st.CreateTables(commandContext(cmd), reg); err != nil {
			return formatter.Fail(ExitFailure, err)
		}
		logger.Info("tables created", slog.Int("tables", result.Tables), slog.String("driver", result.Driver))
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	for _, stmt := range result.Statements {
		fmt.Fprintf(formatter.Writer, "%s;\n", stmt)
	}
	if !opts.DDL {
		fmt.Fprintf(formatter.Writer, "✓ Created %d table(s)\n", result.Tables)
	}
	return nil
}
