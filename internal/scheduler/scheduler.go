package scheduler

import (
	"context"
	"time"

	"github.com/maxaizer/job-finder/internal/entities"
	"github.com/maxaizer/job-finder/internal/logger"
	"github.com/maxaizer/job-finder/internal/metrics"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

type sourceLister interface {
	GetEnabled(ctx context.Context) ([]entities.Source, error)
}

type tierLookup interface {
	TiersByID(ctx context.Context, ids []uint) (map[uint]entities.Tier, error)
}

type scrapeEnqueuer interface {
	AddBatch(ctx context.Context, items []entities.QueueItem) error
	ActiveScrapeSourceIDs(ctx context.Context) ([]uint, error)
}

// Scheduler creates one SCRAPE_REQUEST per due source on every pass. Higher
// tiers are enqueued first, which is how priority reaches the FIFO queue.
type Scheduler struct {
	sources    sourceLister
	companies  tierLookup
	queue      scrapeEnqueuer
	cron       *cron.Cron
	maxPerPass int
	now        func() time.Time
}

func NewScheduler(sources sourceLister, companies tierLookup, queue scrapeEnqueuer, maxPerPass int) *Scheduler {
	return &Scheduler{
		sources:    sources,
		companies:  companies,
		queue:      queue,
		cron:       cron.New(),
		maxPerPass: maxPerPass,
		now:        time.Now,
	}
}

// Start runs a pass on every tick of spec, a standard five-field cron expression.
func (s *Scheduler) Start(spec string) error {
	if s.maxPerPass <= 0 {
		return errors.New("max sources per pass must be greater than zero")
	}

	_, err := s.cron.AddFunc(spec, func() {
		if _, err := s.RunPass(context.Background()); err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("scheduler pass failed: %v", err)
		}
	})
	if err != nil {
		return errors.Wrapf(err, "invalid scheduler cron %q", spec)
	}

	s.cron.Start()
	log.Infof("scheduler started, cron: %s, max sources per pass: %d", spec, s.maxPerPass)
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Candidates attaches company tiers to sources. Sources without a company
// are tier D.
func (s *Scheduler) Candidates(ctx context.Context, sources []entities.Source) ([]Candidate, error) {
	companyIDs := lo.Uniq(lo.FilterMap(sources, func(src entities.Source, _ int) (uint, bool) {
		if src.CompanyID == nil {
			return 0, false
		}
		return *src.CompanyID, true
	}))

	tiers, err := s.companies.TiersByID(ctx, companyIDs)
	if err != nil {
		return nil, err
	}

	return lo.Map(sources, func(src entities.Source, _ int) Candidate {
		tier := entities.TierD
		if src.CompanyID != nil {
			if t, ok := tiers[*src.CompanyID]; ok {
				tier = t
			}
		}
		return Candidate{Source: src, Tier: tier}
	}), nil
}

// MaxPerPass is the number of sources one pass scrapes at most.
func (s *Scheduler) MaxPerPass() int {
	return s.maxPerPass
}

// DueSources returns up to limit enabled sources that are due now.
func (s *Scheduler) DueSources(ctx context.Context, limit int) ([]Candidate, error) {
	return s.dueSources(ctx, nil, limit)
}

func (s *Scheduler) dueSources(ctx context.Context, skip []uint, limit int) ([]Candidate, error) {
	sources, err := s.sources.GetEnabled(ctx)
	if err != nil {
		return nil, err
	}
	sources = lo.Reject(sources, func(src entities.Source, _ int) bool {
		return lo.Contains(skip, src.ID)
	})
	candidates, err := s.Candidates(ctx, sources)
	if err != nil {
		return nil, err
	}
	return SelectDue(candidates, s.now(), limit), nil
}

// RunPass enqueues scrape requests for the due sources and returns how many
// were created. Sources that already have a waiting or running request are
// left out until it finishes.
func (s *Scheduler) RunPass(ctx context.Context) (int, error) {
	active, err := s.queue.ActiveScrapeSourceIDs(ctx)
	if err != nil {
		return 0, err
	}

	due, err := s.dueSources(ctx, active, s.maxPerPass)
	if err != nil {
		return 0, err
	}
	if len(active) > 0 {
		log.Debugf("scheduler pass: %d sources already have a scrape request", len(active))
	}
	if len(due) == 0 {
		log.Debug("scheduler pass: no sources due")
		return 0, nil
	}

	items := lo.Map(due, func(c Candidate, _ int) entities.QueueItem {
		return entities.QueueItem{
			Kind:             entities.KindScrapeRequest,
			URL:              c.Source.URL,
			SourceName:       c.Source.Name,
			SubmissionOrigin: entities.OriginScheduler,
			PipelineState: entities.PipelineState{
				entities.StateSourceIDs: []any{float64(c.Source.ID)},
			},
		}
	})

	if err = s.queue.AddBatch(ctx, items); err != nil {
		return 0, err
	}

	metrics.ScheduledSourcesCounter.Add(float64(len(items)))
	log.Infof("scheduler pass: enqueued %d scrape requests", len(items))
	return len(items), nil
}
