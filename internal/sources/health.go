package sources

import (
	"context"
	"math"
	"time"

	"github.com/maxaizer/job-finder/internal/entities"
	"github.com/maxaizer/job-finder/internal/logger"
	log "github.com/sirupsen/logrus"
)

// ScrapeOutcome describes one scrape attempt of a source.
type ScrapeOutcome struct {
	Found    int
	Duration time.Duration
	Err      error
	At       time.Time
}

func (o ScrapeOutcome) Success() bool {
	return o.Err == nil
}

// ApplyScrapeOutcome returns health with the attempt counted and the score
// recomputed.
func ApplyScrapeOutcome(health entities.SourceHealth, outcome ScrapeOutcome) entities.SourceHealth {
	if outcome.Success() {
		health.SuccessCount++
		health.TotalFound += outcome.Found
	} else {
		health.FailureCount++
	}
	return rescore(health, outcome)
}

// rescore expects the counters to already include the outcome. Slow successful
// scrapes lose up to a fifth of their score; a failure costs a tenth.
func rescore(health entities.SourceHealth, outcome ScrapeOutcome) entities.SourceHealth {
	rate := health.SuccessRate()
	if outcome.Success() {
		slowness := math.Min(1, outcome.Duration.Seconds()/60)
		health.HealthScore = rate * (1 - slowness*0.2)
		health.LastError = ""
	} else {
		health.HealthScore = rate * 0.9
		health.LastError = outcome.Err.Error()
	}

	if health.SuccessCount > 0 {
		health.AvgPerScrape = float64(health.TotalFound) / float64(health.SuccessCount)
	}
	at := outcome.At
	health.LastScrapedAt = &at
	return health
}

type healthStore interface {
	IncrementHealth(ctx context.Context, id uint, success bool, found int) (entities.SourceHealth, error)
	SetHealthScore(ctx context.Context, id uint, health entities.SourceHealth, scrapedAt time.Time) error
}

// HealthTracker persists scrape outcomes. Counters are incremented atomically
// in the store; the derived fields are computed from the returned counts.
type HealthTracker struct {
	sources healthStore
}

func NewHealthTracker(sources healthStore) *HealthTracker {
	return &HealthTracker{sources: sources}
}

func (t *HealthTracker) Record(ctx context.Context, sourceID uint, outcome ScrapeOutcome) (entities.SourceHealth, error) {
	found := 0
	if outcome.Success() {
		found = outcome.Found
	}

	counted, err := t.sources.IncrementHealth(ctx, sourceID, outcome.Success(), found)
	if err != nil {
		return entities.SourceHealth{}, err
	}

	health := rescore(counted, outcome)
	if err = t.sources.SetHealthScore(ctx, sourceID, health, outcome.At); err != nil {
		return entities.SourceHealth{}, err
	}

	if !outcome.Success() {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeScrape).
			Warnf("scrape of source %d failed, health is now %.2f: %v", sourceID, health.HealthScore, outcome.Err)
	}
	return health, nil
}
