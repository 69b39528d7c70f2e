package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/maxaizer/job-finder/internal/entities"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// Queue is the queue collection. Items are claimed with a conditional update
// on the status column so that two workers never process the same item.
type Queue struct {
	db  *gorm.DB
	now func() time.Time
}

func NewQueueRepository(db *gorm.DB) *Queue {
	return &Queue{db: db, now: time.Now}
}

func prepareNew(item *entities.QueueItem) {
	if item.Status == "" {
		item.Status = entities.StatusPending
	}
	if item.MaxRetries <= 0 {
		item.MaxRetries = entities.DefaultMaxRetries
	}
	if item.PipelineState == nil {
		item.PipelineState = entities.PipelineState{}
	}
	if item.AncestryChain == nil {
		item.AncestryChain = []uint{}
	}
	if item.TrackingID == "" {
		item.TrackingID = uuid.NewString()
	}
}

func (q *Queue) Add(ctx context.Context, item *entities.QueueItem) error {
	prepareNew(item)
	return q.db.WithContext(ctx).Create(item).Error
}

// AddBatch inserts items in one transaction. Creation order is preserved so
// FIFO polling sees them in the order given.
func (q *Queue) AddBatch(ctx context.Context, items []entities.QueueItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		prepareNew(&items[i])
	}
	return q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(items, 100).Error
	})
}

// Poll returns the oldest PENDING items.
func (q *Queue) Poll(ctx context.Context, limit int) ([]entities.QueueItem, error) {
	var items []entities.QueueItem
	err := q.db.WithContext(ctx).
		Where("status = ?", entities.StatusPending).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// Claim flips the item from PENDING to PROCESSING. It returns false when
// another worker got there first.
func (q *Queue) Claim(ctx context.Context, item *entities.QueueItem) (bool, error) {
	now := q.now()
	res := q.db.WithContext(ctx).
		Model(&entities.QueueItem{}).
		Where("id = ? AND status = ?", item.ID, entities.StatusPending).
		Updates(map[string]any{
			"status":       entities.StatusProcessing,
			"processed_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	item.Status = entities.StatusProcessing
	item.ProcessedAt = &now
	return true, nil
}

// Transition writes the full item back, provided it is still PROCESSING.
func (q *Queue) Transition(ctx context.Context, item *entities.QueueItem) error {
	switch {
	case !item.Status.IsTerminal():
		item.CompletedAt = nil
	case item.CompletedAt == nil:
		now := q.now()
		item.CompletedAt = &now
	}

	res := q.db.WithContext(ctx).
		Model(item).
		Where("status = ?", entities.StatusProcessing).
		Select("*").
		Updates(item)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrLostClaim
	}
	return nil
}

// ReclaimStale releases items whose claim is older than claimedBefore. Each
// abandoned claim counts as a failed attempt: the item goes back to PENDING,
// or to FAILED once its retries are used up. Returns the number of items
// released.
func (q *Queue) ReclaimStale(ctx context.Context, claimedBefore time.Time) (int64, error) {
	now := q.now()
	var reclaimed int64

	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stale := func() *gorm.DB {
			return tx.Model(&entities.QueueItem{}).
				Where("status = ? AND processed_at < ?", entities.StatusProcessing, claimedBefore)
		}

		res := stale().
			Where("retry_count + 1 >= max_retries").
			Updates(map[string]any{
				"status":       entities.StatusFailed,
				"retry_count":  gorm.Expr("retry_count + 1"),
				"message":      "claim expired while processing, no retries left",
				"completed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		reclaimed += res.RowsAffected

		res = stale().
			Updates(map[string]any{
				"status":      entities.StatusPending,
				"retry_count": gorm.Expr("retry_count + 1"),
				"message":     "claim expired while processing, requeued",
			})
		if res.Error != nil {
			return res.Error
		}
		reclaimed += res.RowsAffected
		return nil
	})
	return reclaimed, err
}

func (q *Queue) GetByID(ctx context.Context, id uint) (*entities.QueueItem, error) {
	var item entities.QueueItem
	if err := q.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// GetByTrackingID returns the whole lineage of a submission, root first.
func (q *Queue) GetByTrackingID(ctx context.Context, trackingID string) ([]entities.QueueItem, error) {
	var items []entities.QueueItem
	err := q.db.WithContext(ctx).
		Where("tracking_id = ?", trackingID).
		Order("spawn_depth ASC, id ASC").
		Find(&items).Error
	return items, err
}

// ExistsByURL reports whether an item of the given kind was ever queued for
// url, whatever its status.
func (q *Queue) ExistsByURL(ctx context.Context, kind entities.ItemKind, url string) (bool, error) {
	var count int64
	err := q.db.WithContext(ctx).
		Model(&entities.QueueItem{}).
		Where("kind = ? AND url = ?", kind, url).
		Count(&count).Error
	return count > 0, err
}

// HasActiveScrapeRequest reports whether a SCRAPE_REQUEST is waiting or
// running.
func (q *Queue) HasActiveScrapeRequest(ctx context.Context) (bool, error) {
	var count int64
	err := q.db.WithContext(ctx).
		Model(&entities.QueueItem{}).
		Where("kind = ? AND status IN ?", entities.KindScrapeRequest,
			[]entities.ItemStatus{entities.StatusPending, entities.StatusProcessing}).
		Count(&count).Error
	return count > 0, err
}

// ActiveScrapeSourceIDs lists the sources named by waiting or running
// SCRAPE_REQUEST items. Requests without explicit source ids pick their
// sources when they run and are not included.
func (q *Queue) ActiveScrapeSourceIDs(ctx context.Context) ([]uint, error) {
	var items []entities.QueueItem
	err := q.db.WithContext(ctx).
		Select("id", "pipeline_state").
		Where("kind = ? AND status IN ?", entities.KindScrapeRequest,
			[]entities.ItemStatus{entities.StatusPending, entities.StatusProcessing}).
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	var ids []uint
	for _, item := range items {
		itemIDs, err := item.PipelineState.UintSlice(entities.StateSourceIDs)
		if err != nil {
			return nil, errors.Wrapf(err, "queue item %d has malformed source ids", item.ID)
		}
		ids = append(ids, itemIDs...)
	}
	return lo.Uniq(ids), nil
}

// CountByStatus groups the queue by status.
func (q *Queue) CountByStatus(ctx context.Context) (map[entities.ItemStatus]int64, error) {
	var rows []struct {
		Status entities.ItemStatus
		Count  int64
	}
	err := q.db.WithContext(ctx).
		Model(&entities.QueueItem{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[entities.ItemStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// RemoveOldTerminal deletes terminal items last updated before expiration, in
// batches of batchSize.
func (q *Queue) RemoveOldTerminal(ctx context.Context, expiration time.Time, batchSize int) (int64, error) {
	terminal := []entities.ItemStatus{
		entities.StatusSuccess, entities.StatusFailed, entities.StatusSkipped, entities.StatusFiltered,
	}

	if batchSize <= 0 {
		batchSize = 500
	}

	var removed int64
	for {
		var ids []uint
		err := q.db.WithContext(ctx).
			Model(&entities.QueueItem{}).
			Where("status IN ? AND updated_at < ?", terminal, expiration).
			Order("id ASC").
			Limit(batchSize).
			Pluck("id", &ids).Error
		if err != nil {
			return removed, err
		}
		if len(ids) == 0 {
			return removed, nil
		}

		res := q.db.WithContext(ctx).Delete(&entities.QueueItem{}, ids)
		if res.Error != nil {
			return removed, res.Error
		}
		removed += res.RowsAffected

		if len(ids) < batchSize {
			return removed, nil
		}
	}
}
