package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"csvapi/internal/grammar"
	"csvapi/internal/query"
	"csvapi/internal/store"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Table  string
	Params []string
}

// NewQueryCommand creates the query command: a one-shot query against a
// CSV file without starting a server.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <csv-path-or-url>",
		Short: "Run one query against a CSV file",
		Long: `Load a CSV file and run a single query built from --param flags.
Parameter names are the same ones the serve endpoint accepts.

Example:
  csvapi query people.csv --param name_contains=an --param age_greaterThan=30
  csvapi query people.csv --param use_distinct=true --param name_selected=true`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Table, "table", "", "table name (default: derived from the file name)")
	cmd.Flags().StringArrayVarP(&opts.Params, "param", "p", nil, "query parameter as name=value (repeatable)")

	return cmd
}

func runQuery(opts *QueryOptions, source string, cmd *cobra.Command) error {
	params, err := parseParamFlags(opts.Params)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --param", err)
	}

	mgr, err := store.Open(cmd.Context(), source, opts.Table)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load dataset", err)
	}
	defer mgr.Close()

	g, err := grammar.Generate(mgr.Table(), mgr.Columns())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build grammar", err)
	}

	q, err := query.Compile(g, params)
	if err != nil {
		return WrapExitError(ExitFailure, "query rejected", err)
	}

	result, err := mgr.Execute(cmd.Context(), q)
	if err != nil {
		return WrapExitError(ExitFailure, "query failed", err)
	}

	if opts.Format == "json" {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(result.Rows)
	}

	renderTable(cmd, result)
	fmt.Fprintf(cmd.OutOrStdout(), "%d row(s)\n", len(result.Rows))
	return nil
}

// parseParamFlags converts repeated name=value flags into ordered
// parameters, preserving the order given on the command line.
func parseParamFlags(raw []string) ([]query.Param, error) {
	params := make([]query.Param, 0, len(raw))
	for _, pair := range raw {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("expected name=value, got %q", pair)
		}
		params = append(params, query.Param{Name: name, Value: value})
	}
	return params, nil
}

func renderTable(cmd *cobra.Command, result *store.Result) {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader(result.Columns)

	for _, row := range result.Rows {
		cells := make([]string, len(result.Columns))
		for i, col := range result.Columns {
			cells[i] = formatCell(row[col])
		}
		table.Append(cells)
	}
	table.Render()
}

// formatCell renders one scalar for table output. NULL prints empty.
func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
