package main

import (
	"context"
	"fmt"

	"github.com/maxaizer/job-finder/internal/entities"
	"github.com/maxaizer/job-finder/internal/pipeline"
	"github.com/spf13/cobra"
)

var submitFlags struct {
	companyName    string
	scoreThreshold int
	sourceHint     string
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Queue a single URL",
}

var submitPostingCmd = &cobra.Command{
	Use:   "posting <url>",
	Short: "Queue a job posting for scraping, filtering and analysis",
	Args:  cobra.ExactArgs(1),
	RunE:  submitWith((*pipeline.Intake).SubmitPosting),
}

var submitEmployerCmd = &cobra.Command{
	Use:   "employer <url>",
	Short: "Queue a company page for company profiling",
	Args:  cobra.ExactArgs(1),
	RunE:  submitWith((*pipeline.Intake).SubmitEmployer),
}

var submitSourceCmd = &cobra.Command{
	Use:   "source <url>",
	Short: "Queue a careers URL for source discovery",
	Args:  cobra.ExactArgs(1),
	RunE:  submitWith((*pipeline.Intake).SubmitSourceDiscovery),
}

func init() {
	submitCmd.PersistentFlags().StringVar(&submitFlags.companyName, "company", "", "company name")
	submitPostingCmd.Flags().IntVar(&submitFlags.scoreThreshold, "score-threshold", 0, "minimum match score for this posting")
	submitSourceCmd.Flags().StringVar(&submitFlags.sourceHint, "type", "", "source type hint, e.g. greenhouse or rss")

	submitCmd.AddCommand(submitPostingCmd, submitEmployerCmd, submitSourceCmd)
	rootCmd.AddCommand(submitCmd)
}

type submitFunc func(in *pipeline.Intake, ctx context.Context, sub pipeline.Submission) (*entities.QueueItem, error)

func submitWith(submit submitFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		sub := pipeline.Submission{
			URL:         args[0],
			CompanyName: submitFlags.companyName,
			Origin:      entities.OriginCLI,
			SourceHint:  submitFlags.sourceHint,
		}
		if flag := cmd.Flags().Lookup("score-threshold"); flag != nil && flag.Changed {
			sub.ScoreThreshold = &submitFlags.scoreThreshold
		}

		return withStore(func(s *store) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), cliTimeout)
			defer cancel()

			item, err := submit(s.intake(), ctx, sub)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %s item %d (tracking id %s)\n", item.Kind, item.ID, item.TrackingID)
			return nil
		})
	}
}
