package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/maxaizer/job-finder/internal/entities"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print queue items by status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var lineageCmd = &cobra.Command{
	Use:   "lineage <tracking id>",
	Short: "Print every queue item of a lineage ordered by spawn depth",
	Args:  cobra.ExactArgs(1),
	RunE:  runLineage,
}

func init() {
	rootCmd.AddCommand(statusCmd, lineageCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	return withStore(func(s *store) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), cliTimeout)
		defer cancel()

		counts, err := s.queue.CountByStatus(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for _, status := range []entities.ItemStatus{
			entities.StatusPending, entities.StatusProcessing, entities.StatusSuccess,
			entities.StatusFiltered, entities.StatusSkipped, entities.StatusFailed,
		} {
			fmt.Fprintf(w, "%s\t%d\n", status, counts[status])
		}
		return w.Flush()
	})
}

func runLineage(cmd *cobra.Command, args []string) error {
	return withStore(func(s *store) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), cliTimeout)
		defer cancel()

		items, err := s.queue.GetByTrackingID(ctx, args[0])
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return fmt.Errorf("no queue items with tracking id %s", args[0])
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DEPTH\tID\tKIND\tSTAGE\tSTATUS\tURL\tMESSAGE")
		for _, item := range items {
			fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\t%s\n", item.SpawnDepth, item.ID, item.Kind,
				item.SubTask, item.Status, item.URL, item.Message)
		}
		return w.Flush()
	})
}
