package repositories

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/maxaizer/job-finder/internal/entities"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DbContext struct {
	DB *gorm.DB
}

func NewDbContext(connectionString string) (*DbContext, error) {
	db, err := gorm.Open(sqlite.Open(connectionString), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, err
	}

	// SQLite allows a single writer; one connection also keeps ":memory:"
	// databases alive across calls.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return &DbContext{DB: db}, nil
}

func (c *DbContext) Migrate() error {
	models := []struct {
		name  string
		model any
	}{
		{"QueueItem", entities.QueueItem{}},
		{"Source", entities.Source{}},
		{"Company", entities.Company{}},
		{"JobMatch", entities.JobMatch{}},
		{"ConfigDocument", entities.ConfigDocument{}},
	}

	for _, m := range models {
		if err := c.DB.AutoMigrate(m.model); err != nil {
			return fmt.Errorf("failed to migrate %s entity: %w", m.name, err)
		}
	}

	if err := c.DB.Exec("CREATE INDEX IF NOT EXISTS idx_queue_status_created ON queue_items (status, created_at, id); " +
		"CREATE INDEX IF NOT EXISTS idx_queue_kind_url ON queue_items (kind, url);").
		Error; err != nil {
		return fmt.Errorf("failed to create queue indexes: %w", err)
	}

	return nil
}

func (c *DbContext) Close() error {
	db, err := c.DB.DB()
	if err != nil {
		return err
	}

	return db.Close()
}
