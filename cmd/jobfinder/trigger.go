package main

import (
	"context"
	"fmt"

	"github.com/maxaizer/job-finder/internal/entities"
	"github.com/maxaizer/job-finder/internal/pipeline"
	"github.com/spf13/cobra"
)

var triggerFlags struct {
	targetMatches  int
	maxSources     int
	sourceIDs      []uint
	scoreThreshold int
	force          bool
}

var triggerScrapeCmd = &cobra.Command{
	Use:   "trigger-scrape",
	Short: "Queue a scrape request for the due sources or the given source ids",
	Args:  cobra.NoArgs,
	RunE:  runTriggerScrape,
}

func init() {
	flags := triggerScrapeCmd.Flags()
	flags.IntVar(&triggerFlags.targetMatches, "target-matches", 0, "stop spawning postings after this many (0 = unlimited)")
	flags.IntVar(&triggerFlags.maxSources, "max-sources", 0, "scrape at most this many due sources (0 = scheduler.max_sources_per_pass)")
	flags.UintSliceVar(&triggerFlags.sourceIDs, "source-ids", nil, "scrape exactly these sources")
	flags.IntVar(&triggerFlags.scoreThreshold, "score-threshold", 0, "minimum match score for the spawned postings")
	flags.BoolVar(&triggerFlags.force, "force", false, "queue even if another scrape request is pending")
	rootCmd.AddCommand(triggerScrapeCmd)
}

func runTriggerScrape(cmd *cobra.Command, _ []string) error {
	req := pipeline.TriggerRequest{
		TargetMatches: triggerFlags.targetMatches,
		MaxSources:    triggerFlags.maxSources,
		SourceIDs:     triggerFlags.sourceIDs,
		Force:         triggerFlags.force,
		Origin:        entities.OriginCLI,
	}
	if cmd.Flags().Changed("score-threshold") {
		req.ScoreThreshold = &triggerFlags.scoreThreshold
	}

	return withStore(func(s *store) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), cliTimeout)
		defer cancel()

		item, err := s.intake().TriggerScrape(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "queued scrape request %d (tracking id %s)\n", item.ID, item.TrackingID)
		return nil
	})
}
