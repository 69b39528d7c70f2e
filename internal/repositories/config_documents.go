package repositories

import (
	"context"

	"github.com/maxaizer/job-finder/internal/entities"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const (
	DocJobFilters      = "job-filters"
	DocTechnologyRanks = "technology-ranks"
	DocQueueSettings   = "queue-settings"
)

// ConfigDocuments is the config collection: named JSON documents.
type ConfigDocuments struct {
	db *gorm.DB
}

func NewConfigDocumentsRepository(db *gorm.DB) *ConfigDocuments {
	return &ConfigDocuments{db: db}
}

func (repo *ConfigDocuments) Save(ctx context.Context, name string, value []byte) error {
	return repo.db.WithContext(ctx).Save(&entities.ConfigDocument{
		Name:  name,
		Value: value,
	}).Error
}

// Load returns nil without an error when the document does not exist.
func (repo *ConfigDocuments) Load(ctx context.Context, name string) ([]byte, error) {
	doc := &entities.ConfigDocument{}
	err := repo.db.WithContext(ctx).First(doc, "name = ?", name).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return doc.Value, nil
}

func (repo *ConfigDocuments) Remove(ctx context.Context, name string) error {
	return repo.db.WithContext(ctx).Delete(&entities.ConfigDocument{}, "name = ?", name).Error
}
