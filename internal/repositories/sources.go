package repositories

import (
	"context"
	"time"

	"github.com/maxaizer/job-finder/internal/entities"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Sources struct {
	db *gorm.DB
}

func NewSourcesRepository(db *gorm.DB) *Sources {
	return &Sources{db: db}
}

func (repo *Sources) Add(ctx context.Context, source *entities.Source) error {
	if source.Health.HealthScore == 0 && source.Health.SuccessCount == 0 && source.Health.FailureCount == 0 {
		source.Health.HealthScore = 1
	}
	return repo.db.WithContext(ctx).Create(source).Error
}

func (repo *Sources) GetByID(ctx context.Context, id uint) (*entities.Source, error) {
	var source entities.Source
	if err := repo.db.WithContext(ctx).First(&source, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &source, nil
}

func (repo *Sources) GetByIDs(ctx context.Context, ids []uint) ([]entities.Source, error) {
	var sources []entities.Source
	if len(ids) == 0 {
		return sources, nil
	}
	err := repo.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&sources).Error
	return sources, err
}

// GetByURL returns nil when no source is registered for url.
func (repo *Sources) GetByURL(ctx context.Context, url string) (*entities.Source, error) {
	var source entities.Source
	if err := repo.db.WithContext(ctx).First(&source, "url = ?", url).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &source, nil
}

func (repo *Sources) GetEnabled(ctx context.Context) ([]entities.Source, error) {
	var sources []entities.Source
	err := repo.db.WithContext(ctx).Where("enabled = ?", true).Order("id ASC").Find(&sources).Error
	return sources, err
}

func (repo *Sources) Update(ctx context.Context, source *entities.Source) error {
	return repo.db.WithContext(ctx).Save(source).Error
}

func (repo *Sources) SetEnabled(ctx context.Context, id uint, enabled bool) error {
	res := repo.db.WithContext(ctx).Model(&entities.Source{}).Where("id = ?", id).Update("enabled", enabled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementHealth atomically bumps the scrape counters and returns the updated
// health.
func (repo *Sources) IncrementHealth(ctx context.Context, id uint, success bool, found int) (entities.SourceHealth, error) {
	var source entities.Source

	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"health_total_found": gorm.Expr("health_total_found + ?", found),
		}
		if success {
			updates["health_success_count"] = gorm.Expr("health_success_count + 1")
		} else {
			updates["health_failure_count"] = gorm.Expr("health_failure_count + 1")
		}

		res := tx.Model(&entities.Source{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.First(&source, "id = ?", id).Error
	})

	return source.Health, err
}

func (repo *Sources) SetHealthScore(ctx context.Context, id uint, health entities.SourceHealth, scrapedAt time.Time) error {
	return repo.db.WithContext(ctx).
		Model(&entities.Source{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"health_health_score":    health.HealthScore,
			"health_avg_per_scrape":  health.AvgPerScrape,
			"health_last_scraped_at": scrapedAt,
			"health_last_error":      health.LastError,
		}).Error
}

// LinkCompany attaches companyID to every source of the named company that has
// no company yet.
func (repo *Sources) LinkCompany(ctx context.Context, companyName string, companyID uint) (int64, error) {
	res := repo.db.WithContext(ctx).
		Model(&entities.Source{}).
		Where("company_id IS NULL AND (name = ? OR config LIKE ?)", companyName,
			`%"`+entities.ConfigCompanyName+`":"`+companyName+`"%`).
		Update("company_id", companyID)
	return res.RowsAffected, res.Error
}
