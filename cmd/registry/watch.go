package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the patient count whenever another context changes the registry",
	Long: `Watch listens on the change channel and reloads the patient list each
time another browser tab or process writes. Stop it with Ctrl-C.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	report := func() {
		patients, err := registry.Patients.ListPatients(ctx, nil)
		if err != nil {
			fmt.Fprintf(out, "%s reload failed: %v\n", time.Now().Format(time.TimeOnly), err)
			return
		}
		fmt.Fprintf(out, "%s %d patients\n", time.Now().Format(time.TimeOnly), len(patients))
	}

	unsubscribe, err := registry.Hub.Peer(origin).OnChanged(func() {
		if err := registry.Patients.Reload(ctx); err != nil {
			fmt.Fprintf(out, "%s reload failed: %v\n", time.Now().Format(time.TimeOnly), err)
			return
		}
		report()
	})
	if err != nil {
		return fmt.Errorf("subscribe to changes: %w", err)
	}
	defer unsubscribe()

	fmt.Fprintf(out, "Watching %q for changes\n", registry.Hub.Key())
	report()
	<-ctx.Done()
	return nil
}
