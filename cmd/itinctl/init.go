package main

import (
	"errors"
	"fmt"
	"itinerary-route-service/internal/adapters/repositories"
	"itinerary-route-service/internal/config"
	"itinerary-route-service/internal/platform/db"

	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	var (
		seedPath string
		noSeed   bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the schema and seed the place library",
		Long:  "Creates the activities, places and leg_baselines tables in DATABASE_URL, then loads the place library from a JSON seed file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, seedPath, noSeed)
		},
	}

	cmd.Flags().StringVar(&seedPath, "seed", config.Get("SEED_PATH", "data/seeds/places.json"), "path to the places seed file")
	cmd.Flags().BoolVar(&noSeed, "no-seed", false, "only create the schema")
	return cmd
}

func runInit(cmd *cobra.Command, seedPath string, noSeed bool) error {
	databaseURL := config.Get("DATABASE_URL", "")
	if databaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	ctx := cmd.Context()
	pool, err := db.Open(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Initializing database schema...")
	if err := repositories.InitSchema(ctx, pool); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}
	fmt.Fprintln(out, "Schema ready.")

	if noSeed {
		return nil
	}

	fmt.Fprintln(out, "Seeding places...")
	n, err := repositories.SeedPlacesFromJSON(ctx, pool, seedPath)
	if err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}
	fmt.Fprintf(out, "Seeding complete: %d places.\n", n)

	return nil
}
