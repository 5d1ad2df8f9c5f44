package main

import (
	"fmt"
	"io"
	"itinerary-route-service/internal/api/dto"
	"itinerary-route-service/internal/domain"
	"itinerary-route-service/internal/services"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// fixture is the on-disk form of a trip: a flat activity list in display order.
type fixture struct {
	Activities []dto.ActivityDTO `yaml:"activities"`
}

func newPropagateCmd() *cobra.Command {
	var (
		file   string
		day    int
		format string
	)

	cmd := &cobra.Command{
		Use:   "propagate",
		Short: "Recompute start times for a trip fixture",
		Long: `Reads a YAML trip fixture, recomputes every activity start time from its
anchor, travel legs and buffers, and prints the resulting schedule.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dayFilter := -1
			if cmd.Flags().Changed("day") {
				dayFilter = day
			}
			return runPropagate(cmd.OutOrStdout(), file, dayFilter, format)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "trip fixture (YAML)")
	cmd.Flags().IntVar(&day, "day", 0, "only print this day offset")
	cmd.Flags().StringVar(&format, "format", "table", "output format: table or yaml")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runPropagate(out io.Writer, path string, dayFilter int, format string) error {
	if format != "table" && format != "yaml" {
		return fmt.Errorf("unknown format %q (want table or yaml)", format)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read fixture: %w", err)
	}

	var fx fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if len(fx.Activities) == 0 {
		return fmt.Errorf("fixture %s has no activities", path)
	}

	days := services.GroupByDay(dto.ToDomainAll(fx.Activities))
	for d, seq := range days {
		days[d] = services.Propagate(seq)
	}
	if dayFilter >= 0 {
		seq, ok := days[dayFilter]
		if !ok {
			return fmt.Errorf("fixture has no day %d", dayFilter)
		}
		days = map[int][]domain.Activity{dayFilter: seq}
	}

	if format == "yaml" {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(fixture{Activities: dto.FromDomainAll(services.Flatten(days))}); err != nil {
			return fmt.Errorf("encode schedule: %w", err)
		}
		return enc.Close()
	}

	return printSchedule(out, days)
}

func printSchedule(out io.Writer, days map[int][]domain.Activity) error {
	keys := make([]int, 0, len(days))
	for d := range days {
		keys = append(keys, d)
	}
	slices.Sort(keys)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DAY\tSTART\tEND\tNAME\tSTATUS\tTRAVEL")
	for _, d := range keys {
		seq := days[d]
		for i, a := range seq {
			travel := "-"
			if a.TravelTime != nil {
				travel = domain.FormatDuration(*a.TravelTime)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
				d,
				domain.FormatTime(a.Start),
				domain.FormatTime(services.EndOf(seq, i)),
				a.Name,
				a.Status,
				travel,
			)
		}
	}
	return w.Flush()
}
