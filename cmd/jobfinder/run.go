package main

import (
	"os/signal"
	"syscall"

	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/job-finder/internal/analysis"
	"github.com/maxaizer/job-finder/internal/bot"
	"github.com/maxaizer/job-finder/internal/clients/ats"
	"github.com/maxaizer/job-finder/internal/clients/feed"
	"github.com/maxaizer/job-finder/internal/clients/gemini"
	"github.com/maxaizer/job-finder/internal/clients/hh"
	"github.com/maxaizer/job-finder/internal/clients/web"
	"github.com/maxaizer/job-finder/internal/config"
	"github.com/maxaizer/job-finder/internal/entities"
	"github.com/maxaizer/job-finder/internal/logger"
	"github.com/maxaizer/job-finder/internal/metrics"
	"github.com/maxaizer/job-finder/internal/pipeline"
	"github.com/maxaizer/job-finder/internal/scheduler"
	"github.com/maxaizer/job-finder/internal/scraper"
	"github.com/maxaizer/job-finder/internal/services"
	"github.com/maxaizer/job-finder/internal/sources"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the queue processor, scheduler and notifier until interrupted",
	RunE:  runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func newScraperRegistry(cfg *config.Config, fetcher *web.Fetcher) *scraper.Registry {
	atsClient := ats.NewClient(cfg.Scraper.Timeout)
	atsClient.SetRateLimit(cfg.Scraper.MaxRequestsPerSecond)

	hhClient := hh.NewClient()
	hhClient.SetRateLimit(cfg.Scraper.HhMaxRequestsPerSecond)

	registry := scraper.NewRegistry()
	registry.Register(entities.SourceGreenhouse, scraper.NewGreenhouse(atsClient))
	registry.Register(entities.SourceLever, scraper.NewLever(atsClient))
	registry.Register(entities.SourceAshby, scraper.NewAshby(atsClient))
	registry.Register(entities.SourceWorkday, scraper.NewWorkday(atsClient))
	registry.Register(entities.SourceHH, scraper.NewHH(hhClient, cfg.Scraper.HhMaxVacancies))
	registry.Register(entities.SourceRSS, scraper.NewFeed(feed.NewReader(fetcher)))
	registry.Register(entities.SourceGeneric, scraper.NewGeneric(fetcher))
	return registry
}

func runPipeline(cmd *cobra.Command, _ []string) error {

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger.Setup(cfg.Logger)
	defer logger.Cleanup()

	metrics.StartMetricsServer(cfg.Metrics.Address)

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	aiClient, err := gemini.NewClient(ctx, cfg.AI.Key, gemini.Model(cfg.AI.Model))
	if err != nil {
		return errors.Wrap(err, "can't create AI client")
	}
	defer func() { _ = aiClient.Close() }()
	aiClient.SetMinuteRateLimit(cfg.AI.MaxRequestsPerMinute)
	aiClient.SetDayRateLimit(cfg.AI.MaxRequestsPerDay)

	analyzer := analysis.NewAnalyzer(aiClient, analysis.Options{
		MaxTokens:   cfg.AI.MaxTokens,
		Temperature: cfg.AI.Temperature,
	})

	fetcher := web.NewFetcher(cfg.Scraper.Timeout)
	fetcher.SetRateLimit(cfg.Scraper.MaxRequestsPerSecond)
	registry := newScraperRegistry(cfg, fetcher)

	sched := scheduler.NewScheduler(s.sources, s.companies, s.queue, cfg.Scheduler.MaxSourcesPerPass)
	bus := EventBus.New()

	router, err := pipeline.NewPipelineRouter(pipeline.Dependencies{
		Queue:     s.queue,
		Settings:  s.settings,
		Scrapers:  registry,
		Fetcher:   fetcher,
		Analyzer:  analyzer,
		Dedup:     s.checker,
		Sources:   s.sources,
		Health:    sources.NewHealthTracker(s.sources),
		Scheduler: sched,
		Results:   s.results,
		Companies: s.companies,
		Discovery: sources.NewDiscovery(s.sources, s.companies, registry, fetcher, analyzer),
		Bus:       bus,
	})
	if err != nil {
		return errors.Wrap(err, "can't create pipeline router")
	}

	processor := pipeline.NewProcessor(s.queue, router, pipeline.ProcessorOptions{
		BatchSize:    cfg.Queue.BatchSize,
		PollInterval: cfg.Queue.PollInterval,
		ClaimLease:   cfg.Queue.ClaimLease,
	})

	if cfg.Telegram.Enabled() {
		tgbot, err := bot.NewBot(cfg.Telegram.Token, cfg.Telegram.ChatID, bus, bot.Services{
			Queue:    s.queue,
			Results:  s.results,
			Scrapes:  s.intake(),
			Settings: s.settings,
		})
		if err != nil {
			return errors.Wrap(err, "can't create bot")
		}
		go tgbot.Run()
		defer tgbot.Stop()
	} else {
		log.Info("telegram token is not set, notifications are disabled")
	}

	if err = sched.Start(cfg.Scheduler.Cron); err != nil {
		return err
	}
	defer sched.Stop()

	cleaner, err := services.NewQueueCleaner(s.queue, cfg.Cleanup.RetentionDays)
	if err != nil {
		return errors.Wrap(err, "can't create queue cleaner")
	}
	if err = cleaner.Start(cfg.Cleanup.Cron); err != nil {
		return err
	}
	defer cleaner.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		processor.Run(ctx)
	}()

	<-ctx.Done()

	log.Info("Shutting down services...")
	<-done
	log.Info("Services stopped.")
	return nil
}
