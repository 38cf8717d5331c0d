package cli

import (
	"encoding/json"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"csvapi/internal/grammar"
	"csvapi/internal/store"
)

// SchemaOptions holds flags for the schema command.
type SchemaOptions struct {
	*RootOptions
	Table string
}

// NewSchemaCommand creates the schema command: print the parameter
// surface that would be generated for a CSV file.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SchemaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schema <csv-path-or-url>",
		Short: "Show the generated query parameters for a CSV file",
		Long: `Load a CSV file, infer column types, and print every query parameter
its endpoint would accept, with the operation and operand type of each.

Example:
  csvapi schema people.csv
  csvapi schema --format json people.csv`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Table, "table", "", "table name (default: derived from the file name)")

	return cmd
}

func runSchema(opts *SchemaOptions, source string, cmd *cobra.Command) error {
	mgr, err := store.Open(cmd.Context(), source, opts.Table)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load dataset", err)
	}
	defer mgr.Close()

	g, err := grammar.Generate(mgr.Table(), mgr.Columns())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build grammar", err)
	}

	if opts.Format == "json" {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
			"table":      g.Table(),
			"columns":    g.Columns(),
			"parameters": g.RouteSchema(),
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Table: %s\n\n", g.Table())

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Parameter", "Type", "Operation", "Column"})
	for _, spec := range g.Specs() {
		table.Append([]string{
			spec.Name,
			string(spec.Operand),
			string(spec.Operator),
			spec.Column,
		})
	}
	table.Render()
	return nil
}
