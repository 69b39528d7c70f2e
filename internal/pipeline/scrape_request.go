package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/maxaizer/job-finder/internal/dedup"
	"github.com/maxaizer/job-finder/internal/entities"
	"github.com/maxaizer/job-finder/internal/logger"
	"github.com/maxaizer/job-finder/internal/metrics"
	"github.com/maxaizer/job-finder/internal/scheduler"
	"github.com/maxaizer/job-finder/internal/scraper"
	"github.com/maxaizer/job-finder/internal/sources"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// SourceScrape is one entry of the scrapeSummary pipeline state.
type SourceScrape struct {
	SourceID   uint    `json:"sourceId"`
	Name       string  `json:"name"`
	Found      int     `json:"found"`
	Queued     int     `json:"queued"`
	Duplicates int     `json:"duplicates"`
	Seconds    float64 `json:"seconds"`
	Error      string  `json:"error,omitempty"`
}

type ScrapeSummary struct {
	Sources []SourceScrape `json:"sources"`
	Queued  int            `json:"queued"`
	Capped  bool           `json:"capped"`
}

// scrapeRequest scrapes the requested sources, records their health and
// spawns one POSTING item per posting not seen before.
func (s *Stages) scrapeRequest(ctx context.Context, item *entities.QueueItem) (Outcome, error) {
	settings, err := s.Settings.QueueSettings(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if settings.MaxSpawnDepth > 0 && item.SpawnDepth+1 > settings.MaxSpawnDepth {
		return Finish(entities.StatusSkipped,
			fmt.Sprintf("spawn depth %d reached the limit %d", item.SpawnDepth, settings.MaxSpawnDepth), nil), nil
	}

	targets, err := s.requestedSources(ctx, item)
	if err != nil {
		return Outcome{}, err
	}
	if len(targets) == 0 {
		return Finish(entities.StatusSkipped, "no sources to scrape", nil), nil
	}

	limit := settings.MaxSpawnPerScrape
	if target, ok := item.PipelineState.Int(entities.StateTargetMatches); ok && target > 0 {
		if limit <= 0 || target < limit {
			limit = target
		}
	}

	var (
		summary        ScrapeSummary
		children       []entities.QueueItem
		queued         = map[string]bool{}
		failures       []error
		configFailures int
		outcomes       = map[uint]sources.ScrapeOutcome{}
	)

	for _, source := range targets {
		if limit > 0 && len(children) >= limit {
			summary.Capped = true
			break
		}

		start := time.Now()
		postings, scrapeErr := s.Scrapers.Scrape(ctx, source)
		duration := time.Since(start)

		metrics.ScrapeDuration.WithLabelValues(string(source.SourceType)).Observe(duration.Seconds())
		metrics.ScrapedPostingsCounter.WithLabelValues(string(source.SourceType)).Add(float64(len(postings)))

		outcomes[source.ID] = sources.ScrapeOutcome{
			Found: len(postings), Duration: duration, Err: scrapeErr, At: s.now(),
		}

		entry := SourceScrape{SourceID: source.ID, Name: source.Name, Found: len(postings), Seconds: duration.Seconds()}
		if scrapeErr != nil {
			entry.Error = scrapeErr.Error()
			summary.Sources = append(summary.Sources, entry)
			failures = append(failures, scrapeErr)
			if isConfigurationFailure(scrapeErr) {
				configFailures++
			}
			continue
		}

		for _, posting := range postings {
			if limit > 0 && len(children) >= limit {
				summary.Capped = true
				break
			}

			url := dedup.NormalizeURL(posting.URL)
			if url == "" || queued[url] {
				entry.Duplicates++
				continue
			}
			exists, err := s.Dedup.Exists(ctx, url)
			if err != nil {
				return Outcome{}, err
			}
			if exists {
				entry.Duplicates++
				continue
			}

			child, err := s.postingChild(item, source, posting, url)
			if err != nil {
				return Outcome{}, err
			}
			if settings.MaxRetries > 0 {
				child.MaxRetries = settings.MaxRetries
			}
			children = append(children, child)
			queued[url] = true
			entry.Queued++
		}
		summary.Sources = append(summary.Sources, entry)
	}

	if len(failures) > 0 && len(failures) == len(summary.Sources) {
		s.recordHealth(ctx, summary.Sources, outcomes)
		err = fmt.Errorf("all %d sources failed, last error: %w", len(failures), failures[len(failures)-1])
		if configFailures == len(failures) {
			return Outcome{}, Configuration(err)
		}
		return Outcome{}, Transient(err)
	}

	if len(children) > 0 {
		if err = s.Queue.AddBatch(ctx, children); err != nil {
			return Outcome{}, err
		}
		for _, child := range children {
			s.Dedup.MarkSeen(child.URL)
		}
	}
	summary.Queued = len(children)
	s.recordHealth(ctx, summary.Sources, outcomes)

	state, err := encodeState(map[string]any{entities.StateScrapeSummary: summary})
	if err != nil {
		return Outcome{}, err
	}
	return Finish(entities.StatusSuccess,
		fmt.Sprintf("%d sources scraped, %d postings queued", len(summary.Sources), summary.Queued), state), nil
}

// recordHealth stores the scrape outcomes once the attempt is settled, so a
// retried request does not count the same scrape twice.
func (s *Stages) recordHealth(ctx context.Context, scraped []SourceScrape, outcomes map[uint]sources.ScrapeOutcome) {
	for _, entry := range scraped {
		if _, err := s.Health.Record(ctx, entry.SourceID, outcomes[entry.SourceID]); err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
				Errorf("failed to record health of source %d: %v", entry.SourceID, err)
		}
	}
}

// requestedSources returns the explicit sourceIds of the request, otherwise up
// to maxSources due sources, or a scheduler pass worth when maxSources is not
// set.
func (s *Stages) requestedSources(ctx context.Context, item *entities.QueueItem) ([]entities.Source, error) {
	ids, err := item.PipelineState.UintSlice(entities.StateSourceIDs)
	if err != nil {
		return nil, DataIntegrity(err)
	}
	if len(ids) > 0 {
		return s.Sources.GetByIDs(ctx, lo.Uniq(ids))
	}

	maxSources, _ := item.PipelineState.Int(entities.StateMaxSources)
	if maxSources <= 0 {
		maxSources = s.Scheduler.MaxPerPass()
	}
	due, err := s.Scheduler.DueSources(ctx, maxSources)
	if err != nil {
		return nil, err
	}
	return lo.Map(due, func(c scheduler.Candidate, _ int) entities.Source { return c.Source }), nil
}

func (s *Stages) postingChild(parent *entities.QueueItem, source entities.Source, posting entities.Posting,
	url string) (entities.QueueItem, error) {

	child := parent.Spawn(entities.KindPosting, url)
	child.SourceName = source.Name
	child.CompanyName = lo.Ternary(posting.Company != "", posting.Company, source.CompanyName())
	if posting.Company == "" {
		posting.Company = child.CompanyName
	}

	updates := map[string]any{
		entities.StatePostingData: posting,
		entities.StateSourceID:    source.ID,
	}
	if selectors := source.Config.WithPrefix(entities.ConfigDetailPrefix); len(selectors) > 0 {
		updates[entities.StateSelectors] = selectors
	}
	if threshold, ok := parent.PipelineState.Int(entities.StateScoreThreshold); ok {
		updates[entities.StateScoreThreshold] = threshold
	}

	state, err := encodeState(updates)
	if err != nil {
		return entities.QueueItem{}, err
	}
	child.PipelineState = state
	return child, nil
}

func isConfigurationFailure(err error) bool {
	return errors.Is(err, scraper.ErrUnsupportedSourceType) || errors.Is(err, scraper.ErrInvalidSourceConfig)
}
