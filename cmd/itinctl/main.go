package main

import (
	"itinerary-route-service/internal/config"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "itinctl",
		Short:        "Itinerary schedule tooling",
		Long:         "itinctl prepares the itinerary database and recomputes day schedules from fixture files.",
		SilenceUsage: true,
	}

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newPropagateCmd())
	return cmd
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	config.LoadDotEnv()
	os.Exit(execute(newRootCmd()))
}
