// Command registry works with the patient registry from a terminal. It opens
// the same database and change channel as the server, so writes made here
// show up in open browser tabs and other processes.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/patient-registry/internal/app"
	"github.com/jwalitptl/patient-registry/internal/config"
	"github.com/jwalitptl/patient-registry/pkg/logger"
)

var (
	// configFile is set by the --config flag.
	configFile string
	jsonOutput bool
	verbose    bool

	// registry is opened before every command and closed after it.
	registry *app.App
	// origin identifies this process on the change channel.
	origin = "cli-" + uuid.New().String()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "registry",
	Short: "Manage the patient registry from the command line",
	Long: `registry reads and changes patient records and runs SQL against the
registry database. Every change is announced to the other open contexts.`,
	SilenceUsage:      true,
	PersistentPreRunE: openRegistry,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeRegistry()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: config.yaml in ., ./config or /etc/patient-registry)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")

	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(patientsCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(samplesCmd)
	rootCmd.AddCommand(watchCmd)
}

// openRegistry loads config and waits for the database session.
func openRegistry(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := logger.WarnLevel
	if verbose {
		level = logger.DebugLevel
	}
	logg := logger.NewLogger(&logger.Config{Level: level, Output: os.Stderr})
	logg.SetGlobal()

	a, err := app.New(cmd.Context(), cfg, logg.Zerolog(), nil)
	if err != nil {
		return err
	}
	registry = a

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	if err := a.Session.Wait(ctx); err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	return nil
}

func closeRegistry() error {
	if registry == nil {
		return nil
	}
	err := registry.Close()
	registry = nil
	return err
}
