package repositories

import (
	"context"

	"github.com/maxaizer/job-finder/internal/entities"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Results is the results collection of saved job matches.
type Results struct {
	db *gorm.DB
}

func NewResultsRepository(db *gorm.DB) *Results {
	return &Results{db: db}
}

// Add stores the match. It returns ErrDuplicate if a match with the same URL
// is already saved.
func (repo *Results) Add(ctx context.Context, match *entities.JobMatch) error {
	res := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "url"}}, DoNothing: true}).
		Create(match)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrDuplicate
	}
	return nil
}

func (repo *Results) ExistsByURL(ctx context.Context, url string) (bool, error) {
	var count int64
	err := repo.db.WithContext(ctx).Model(&entities.JobMatch{}).Where("url = ?", url).Count(&count).Error
	return count > 0, err
}

func (repo *Results) Recent(ctx context.Context, limit int) ([]entities.JobMatch, error) {
	var matches []entities.JobMatch
	err := repo.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&matches).Error
	return matches, err
}
