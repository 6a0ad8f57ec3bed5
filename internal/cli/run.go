package cli

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/specify/storedq/internal/engine"
	"github.com/specify/storedq/internal/querysql"
	"github.com/specify/storedq/internal/savedquery"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Scope     int64
	PageSize  int
	LastID    int64
	CountOnly bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <schema-dir> <query.yaml>",
		Short: "Run a saved query and print one page",
		Long: `Run a saved query against the configured database and print one page
of results with the total count.

Pages are keyset pages: pass the printed last id as --after to fetch
the next one.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.Scope, "scope", 0, "collection scope, overrides the query file")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "page size, overrides the query file and config")
	cmd.Flags().Int64Var(&opts.LastID, "after", 0, "return rows after this id")
	cmd.Flags().BoolVar(&opts.CountOnly, "count", false, "only count matching rows")

	return cmd
}

func runRun(opts *RunOptions, schemaDir, queryPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.Config()
	if err != nil {
		return err
	}
	logger, err := opts.logger(cmd)
	if err != nil {
		return err
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
	if opts.Scope != 0 {
		req.Scope = opts.Scope
	}
	if opts.PageSize != 0 {
		req.PageSize = opts.PageSize
	}
	if opts.LastID != 0 {
		req.LastID = opts.LastID
	}
	req.CountOnly = opts.CountOnly

	st, err := opts.openStore(cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	eng := engine.New(reg, st, st.Dialect(), engine.WithPageSize(cfg.Query.PageSize), engine.WithLogger(logger))
	result, err := eng.Run(commandContext(cmd), req)
	if err != nil {
		return formatter.Fail(ExitFailure, err)
	}

	if formatter.Format == "json" {
		return writeResultJSON(formatter, result)
	}
	return writeResult(formatter, result, req.CountOnly)
}

// writeResultJSON writes the result with its run id lifted into the envelope.
func writeResultJSON(formatter *OutputFormatter, result *engine.Result) error {
	return json.NewEncoder(formatter.Writer).Encode(CLIResponse{Status: "ok", Data: result, RunID: result.RunID})
}

// writeResult prints a page as a table followed by the totals.
func writeResult(formatter *OutputFormatter, r *engine.Result, countOnly bool) error {
	if !countOnly {
		fmt.Fprintln(formatter.Writer, pageTable(r))
	}

	fmt.Fprintf(formatter.Writer, "\n%d row(s) of %d", len(r.Rows), r.TotalCount)
	if r.HasMore {
		fmt.Fprintf(formatter.Writer, ", more after %d", r.LastID)
	}
	fmt.Fprintln(formatter.Writer)
	formatter.VerboseLog("run %s fingerprint %s", r.RunID, r.Fingerprint)
	return nil
}

// pageTable renders the rows under a header of the id and display labels,
// with only a rule below the header.
func pageTable(r *engine.Result) string {
	headers := []string{querysql.IDLabel}
	for _, c := range r.Columns {
		headers = append(headers, c.Label)
	}
	rows := make([][]string, len(r.Rows))
	for i, row := range r.Rows {
		cells := []string{cell(row[querysql.IDLabel])}
		for _, c := range r.Columns {
			cells = append(cells, cell(row[c.Label]))
		}
		rows[i] = cells
	}

	last := len(headers) - 1
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderHeader(true).
		StyleFunc(func(_, col int) lipgloss.Style {
			style := lipgloss.NewStyle()
			if col < last {
				style = style.PaddingRight(2)
			}
			return style
		}).
		Headers(headers...).
		Rows(rows...).
		Render()
}

func cell(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprint(v)
}
