package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/patient-registry/internal/model"
	"github.com/jwalitptl/patient-registry/internal/service/query"
)

var csvOutput bool

var queryCmd = &cobra.Command{
	Use:   "query <sql>",
	Short: "Run a SQL statement against the registry database",
	Long: `Query runs the statement exactly as written and prints the rows.
Changes made here are not announced to other contexts.

Example:
  registry query "SELECT first_name, last_name FROM patients"
  registry query --csv "SELECT * FROM patients" > patients.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

var samplesCmd = &cobra.Command{
	Use:   "samples",
	Short: "List sample queries",
	RunE: func(cmd *cobra.Command, args []string) error {
		samples, err := registry.Queries.Samples()
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), samples)
		}
		for _, s := range samples {
			fmt.Fprintf(cmd.OutOrStdout(), "-- %s\n%s\n\n", s.Title, s.Query)
		}
		return nil
	},
}

func init() {
	queryCmd.Flags().BoolVar(&csvOutput, "csv", false, "print results as CSV")
}

func runQuery(cmd *cobra.Command, args []string) error {
	result, err := registry.Queries.Execute(cmd.Context(), origin, strings.Join(args, " "))
	if err != nil {
		return describe(err)
	}

	out := cmd.OutOrStdout()
	switch {
	case csvOutput:
		return query.WriteCSV(out, result)
	case jsonOutput:
		return writeJSON(out, result)
	default:
		return writeResult(out, result)
	}
}

// writeResult prints rows as an aligned table followed by a summary line.
func writeResult(w io.Writer, result *model.QueryResult) error {
	if len(result.Columns) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(result.Columns, "\t"))
		cells := make([]string, len(result.Columns))
		for _, row := range result.Rows {
			for i, col := range result.Columns {
				cells[i] = formatCell(row[col])
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "(%d rows, %d ms)\n", result.RowCount, result.ExecutionTimeMS)
	return err
}

func formatCell(v interface{}) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprint(v)
}
