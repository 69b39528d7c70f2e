package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/maxaizer/job-finder/internal/entities"
	"github.com/maxaizer/job-finder/internal/logger"
	"github.com/maxaizer/job-finder/internal/metrics"
	"github.com/maxaizer/job-finder/internal/repositories"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type processorQueue interface {
	Poll(ctx context.Context, limit int) ([]entities.QueueItem, error)
	Claim(ctx context.Context, item *entities.QueueItem) (bool, error)
	Transition(ctx context.Context, item *entities.QueueItem) error
	ReclaimStale(ctx context.Context, claimedBefore time.Time) (int64, error)
}

type ProcessorOptions struct {
	BatchSize    int
	PollInterval time.Duration
	// ClaimLease is how long an item may stay PROCESSING before another
	// poll treats its worker as dead and requeues it.
	ClaimLease time.Duration
}

// Processor is the single-threaded poll loop. Several processors may share a
// store: items are claimed with a conditional PENDING -> PROCESSING update.
type Processor struct {
	queue  processorQueue
	router *Router
	opts   ProcessorOptions
	now    func() time.Time
}

func NewProcessor(queue processorQueue, router *Router, opts ProcessorOptions) *Processor {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.ClaimLease <= 0 {
		opts.ClaimLease = 10 * time.Minute
	}
	return &Processor{queue: queue, router: router, opts: opts, now: time.Now}
}

// Poll returns the oldest limit pending items.
func (p *Processor) Poll(ctx context.Context, limit int) ([]entities.QueueItem, error) {
	return p.queue.Poll(ctx, limit)
}

// Run polls until ctx is done. Cancellation is checked between items and
// between polls; the item in flight always completes.
func (p *Processor) Run(ctx context.Context) {
	log.Infof("pipeline processor started, batch size: %d, poll interval: %v, claim lease: %v",
		p.opts.BatchSize, p.opts.PollInterval, p.opts.ClaimLease)

	for {
		if ctx.Err() != nil {
			log.Info("pipeline processor stopped")
			return
		}

		if _, err := p.RunOnce(ctx); err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("pipeline poll failed: %v", err)
		}

		select {
		case <-ctx.Done():
		case <-time.After(p.opts.PollInterval):
		}
	}
}

// RunOnce requeues expired claims, then processes one batch and returns the
// number of items handled.
func (p *Processor) RunOnce(ctx context.Context) (int, error) {
	reclaimed, err := p.queue.ReclaimStale(ctx, p.now().Add(-p.opts.ClaimLease))
	if err != nil {
		return 0, errors.Wrap(err, "failed to reclaim stale items")
	}
	if reclaimed > 0 {
		metrics.ReclaimedItemsCounter.Add(float64(reclaimed))
		log.Warnf("requeued %d queue items whose claim expired", reclaimed)
	}

	items, err := p.Poll(ctx, p.opts.BatchSize)
	if err != nil {
		return 0, err
	}

	processed := 0
	for i := range items {
		if ctx.Err() != nil {
			break
		}
		if err = p.ProcessItem(context.WithoutCancel(ctx), &items[i]); err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
				Errorf("failed to persist queue item %d: %v", items[i].ID, err)
			continue
		}
		processed++
	}
	return processed, nil
}

// ProcessItem claims item, runs the handler of its stage and persists the
// resulting transition. An item claimed by another worker is skipped without
// an error.
func (p *Processor) ProcessItem(ctx context.Context, item *entities.QueueItem) error {
	claimed, err := p.queue.Claim(ctx, item)
	if err != nil {
		return err
	}
	if !claimed {
		log.Debugf("queue item %d was claimed by another worker", item.ID)
		return nil
	}

	stage := item.Stage()
	fields := log.Fields{
		"item_id": item.ID,
		"kind":    item.Kind,
		"stage":   stage,
		"url":     item.URL,
		"attempt": item.RetryCount + 1,
	}

	start := time.Now()
	outcome, handlerErr := p.dispatch(ctx, item)
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())

	if handlerErr != nil {
		p.applyFailure(item, handlerErr, fields)
	} else {
		p.applyOutcome(item, outcome)
		log.WithFields(fields).Debugf("stage finished with %s", item.Status)
	}

	metrics.ProcessedItemsCounter.WithLabelValues(string(item.Kind), stage, string(item.Status)).Inc()

	if err = p.queue.Transition(ctx, item); err != nil {
		if errors.Is(err, repositories.ErrLostClaim) {
			log.WithFields(fields).Warn("queue item was modified while processing, result dropped")
			return nil
		}
		return err
	}
	return nil
}

func (p *Processor) dispatch(ctx context.Context, item *entities.QueueItem) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v\n%s", r, debug.Stack())
		}
	}()

	if !item.Kind.ValidSubTask(item.SubTask) {
		return Outcome{}, Configuration(fmt.Errorf("%w %s", ErrUnknownRoute, item.Stage()))
	}

	handler, err := p.router.Route(item.Kind, item.SubTask)
	if err != nil {
		return Outcome{}, Configuration(err)
	}

	if missing := item.PipelineState.Missing(RequiredState(item.Kind, item.SubTask)...); len(missing) > 0 {
		return Outcome{}, DataIntegrity(fmt.Errorf("%w for %s: %v", ErrMissingPipelineState, item.Stage(), missing))
	}

	return handler.Handle(ctx, item)
}

func (p *Processor) applyOutcome(item *entities.QueueItem, outcome Outcome) {
	item.PipelineState = item.PipelineState.Merge(outcome.State)
	item.Message = outcome.Message

	if outcome.advances() {
		item.SubTask = outcome.Next
		item.Status = entities.StatusPending
		item.RetryCount = 0
		return
	}
	item.Status = outcome.Status
}

func (p *Processor) applyFailure(item *entities.QueueItem, err error, fields log.Fields) {
	kind := KindOf(err)
	entry := log.WithFields(fields).WithField("failure", kind)

	if kind == ErrorTransient {
		item.RetryCount++
		if item.RetryCount < item.MaxRetries {
			item.Status = entities.StatusPending
			item.Message = fmt.Sprintf("attempt %d of %d failed: %v", item.RetryCount, item.MaxRetries, err)
			entry.Warnf("stage failed, will retry: %v", err)
			return
		}
	}

	item.Status = entities.StatusFailed
	item.Message = diagnostic(item, kind, err)
	entry.WithField(logger.ErrorTypeField, logger.ErrorTypePipeline).Errorf("stage failed permanently: %v", err)
}

func diagnostic(item *entities.QueueItem, kind ErrorKind, err error) string {
	attempt := item.RetryCount
	if kind != ErrorTransient {
		attempt++
	}
	return fmt.Sprintf("%s failure at %s: item %d, url %q, attempt %d of %d: %v",
		kind, item.Stage(), item.ID, item.URL, attempt, item.MaxRetries, err)
}
