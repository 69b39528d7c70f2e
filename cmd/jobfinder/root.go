package main

import (
	"time"

	"github.com/maxaizer/job-finder/internal/config"
	"github.com/maxaizer/job-finder/internal/dedup"
	"github.com/maxaizer/job-finder/internal/pipeline"
	"github.com/maxaizer/job-finder/internal/repositories"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:          "jobfinder",
	Short:        "Job posting discovery pipeline",
	Long:         "jobfinder scrapes job sources, filters and scores postings with AI, and keeps the matches.",
	SilenceUsage: true,
	RunE:         runPipeline,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "",
		"path to config file (default: CONFIG_PATH env var or ./configs/config.yaml)")
}

func loadConfig() (*config.Config, error) {
	if cfgPath == "" {
		return config.Get(), nil
	}
	return config.Load(cfgPath)
}

// store bundles the repositories shared by every command.
type store struct {
	db        *repositories.DbContext
	queue     *repositories.Queue
	sources   *repositories.Sources
	companies *repositories.Companies
	results   *repositories.Results
	docs      *repositories.ConfigDocuments
	settings  *repositories.CachedSettings
	checker   *dedup.Checker
}

func openStore(cfg *config.Config) (*store, error) {
	dbContext, err := repositories.NewDbContext(cfg.DB.ConnectionString)
	if err != nil {
		return nil, errors.Wrap(err, "can't create db context")
	}

	if err = dbContext.Migrate(); err != nil {
		_ = dbContext.Close()
		return nil, errors.Wrap(err, "can't migrate db context")
	}

	s := &store{
		db:        dbContext,
		queue:     repositories.NewQueueRepository(dbContext.DB),
		sources:   repositories.NewSourcesRepository(dbContext.DB),
		companies: repositories.NewCompaniesRepository(dbContext.DB),
		results:   repositories.NewResultsRepository(dbContext.DB),
		docs:      repositories.NewConfigDocumentsRepository(dbContext.DB),
	}
	s.settings = repositories.NewCachedSettings(s.docs, cfg.Queue.SettingsTTL)
	s.checker = dedup.NewChecker(dedup.NewCache(cfg.Queue.DedupTTL), s.queue, s.results)
	return s, nil
}

func (s *store) Close() error {
	return s.db.Close()
}

func (s *store) intake() *pipeline.Intake {
	return pipeline.NewIntake(s.queue, s.checker, s.settings, s.sources)
}

// withStore loads the config, opens the store and closes it after fn returns.
func withStore(fn func(s *store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	return fn(s)
}

const cliTimeout = time.Minute
