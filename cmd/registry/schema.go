package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Manage the database schema",
}

var schemaInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the patients table if it does not exist",
	Long: `Init opens the configured database and creates the patients table,
its indexes and the updated_at trigger. Running it again changes nothing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// The schema is applied while the session opens.
		cfg := registry.Config.Database
		target := cfg.Path
		if cfg.Driver == "postgres" {
			target = fmt.Sprintf("%s:%d/%s", cfg.Host, cfg.Port, cfg.Name)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Database ready (%s %s)\n", cfg.Driver, target)
		return nil
	},
}

func init() {
	schemaCmd.AddCommand(schemaInitCmd)
}
