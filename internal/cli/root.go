package cli

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/specify/storedq/internal/config"
	"github.com/specify/storedq/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Driver     string // overrides database.driver
	DSN        string // overrides database.dsn

	config *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the storedq CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "storedq",
		Short: "storedq - stored queries over a Specify-like schema",
		Long: `Resolve, assemble and run saved queries.

A saved query names a root table, a collection scope and a list of field
descriptors. storedq turns it into one scoped, paginated SQL query.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			_, err := opts.Config()
			return err
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a TOML config file")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "database driver (sqlite3|sqlite|pgx), overrides the config")
	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", "", "database DSN, overrides the config")

	// Add subcommands
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))

	return cmd
}

// Config loads the config file once and applies flag overrides.
func (o *RootOptions) Config() (*config.Config, error) {
	if o.config != nil {
		return o.config, nil
	}
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.Driver != "" {
		cfg.Database.Driver = o.Driver
	}
	if o.DSN != "" {
		cfg.Database.DSN = o.DSN
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid settings", err)
	}
	o.config = cfg
	return cfg, nil
}

// logger returns the configured logger writing to the command's stderr.
func (o *RootOptions) logger(cmd *cobra.Command) (*slog.Logger, error) {
	cfg, err := o.Config()
	if err != nil {
		return nil, err
	}
	return cfg.NewLogger(cmd.ErrOrStderr()), nil
}

// openStore opens the configured database.
func (o *RootOptions) openStore(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := o.Config()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(commandContext(cmd), cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// formatter builds the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
