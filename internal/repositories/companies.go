package repositories

import (
	"context"

	"github.com/maxaizer/job-finder/internal/entities"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Companies struct {
	db *gorm.DB
}

func NewCompaniesRepository(db *gorm.DB) *Companies {
	return &Companies{db: db}
}

func (repo *Companies) GetByID(ctx context.Context, id uint) (*entities.Company, error) {
	var company entities.Company
	if err := repo.db.WithContext(ctx).First(&company, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &company, nil
}

// GetByName returns nil when the company is unknown.
func (repo *Companies) GetByName(ctx context.Context, name string) (*entities.Company, error) {
	var company entities.Company
	if err := repo.db.WithContext(ctx).First(&company, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &company, nil
}

// Upsert inserts the company or updates the existing row with the same name.
// The tier is recomputed from the priority score by the BeforeSave hook.
func (repo *Companies) Upsert(ctx context.Context, company *entities.Company) error {
	return repo.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"website", "about", "tech_stack", "remote_friendly", "priority_score", "tier", "updated_at",
		}),
	}).Create(company).Error
}

// TiersByID maps company ids to their tier. Unknown ids are absent.
func (repo *Companies) TiersByID(ctx context.Context, ids []uint) (map[uint]entities.Tier, error) {
	tiers := make(map[uint]entities.Tier, len(ids))
	if len(ids) == 0 {
		return tiers, nil
	}

	var companies []entities.Company
	if err := repo.db.WithContext(ctx).Select("id", "tier").Where("id IN ?", ids).Find(&companies).Error; err != nil {
		return nil, err
	}
	for _, c := range companies {
		tiers[c.ID] = c.Tier
	}
	return tiers, nil
}
