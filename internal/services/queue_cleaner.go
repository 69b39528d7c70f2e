package services

import (
	"context"
	"time"

	"github.com/maxaizer/job-finder/internal/logger"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

const cleanupBatchSize = 500

type QueueCleanupRepository interface {
	RemoveOldTerminal(ctx context.Context, expiration time.Time, batchSize int) (int64, error)
}

// QueueCleaner periodically deletes terminal queue items older than the
// retention window. Pending and processing items are never touched.
type QueueCleaner struct {
	queue         QueueCleanupRepository
	cron          *cron.Cron
	retentionDays int
	now           func() time.Time
}

func NewQueueCleaner(queue QueueCleanupRepository, retentionDays int) (*QueueCleaner, error) {

	if retentionDays <= 0 {
		return nil, errors.New("retention in days must be greater than zero")
	}

	return &QueueCleaner{
		queue:         queue,
		cron:          cron.New(),
		retentionDays: retentionDays,
		now:           time.Now,
	}, nil
}

func (qc *QueueCleaner) Start(spec string) error {
	if _, err := qc.cron.AddFunc(spec, func() { _, _ = qc.Clean(context.Background()) }); err != nil {
		return errors.Wrapf(err, "invalid cleanup schedule %q", spec)
	}

	qc.cron.Start()
	log.Infof("queue cleaner started, schedule: %s, retention in days: %d", spec, qc.retentionDays)
	return nil
}

func (qc *QueueCleaner) Stop() {
	<-qc.cron.Stop().Done()
}

// Clean removes the expired items now and returns how many were deleted.
func (qc *QueueCleaner) Clean(ctx context.Context) (int64, error) {
	expiration := qc.now().AddDate(0, 0, -qc.retentionDays)
	rowsAffected, err := qc.queue.RemoveOldTerminal(ctx, expiration, cleanupBatchSize)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("Failed to clean old queue items: %v", err)
		return rowsAffected, err
	}
	log.Infof("Old queue items were cleaned at %v, affected rows: %v", qc.now(), rowsAffected)
	return rowsAffected, nil
}
