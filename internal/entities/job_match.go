package entities

import "time"

// JobMatch is a posting that passed filtering and AI analysis. It lives in the
// results collection.
type JobMatch struct {
	ID          uint   `gorm:"primaryKey"`
	URL         string `gorm:"uniqueIndex;not null"`
	Title       string
	CompanyName string `gorm:"index"`
	Location    string
	Salary      string
	MatchScore  int      `gorm:"index"`
	Strikes     int
	Summary     string   `gorm:"type:text"`
	Strengths   []string `gorm:"serializer:json"`
	Concerns    []string `gorm:"serializer:json"`
	QueueItemID uint
	TrackingID  string `gorm:"size:36"`
	CreatedAt   time.Time
}

// ConfigDocument is a named JSON document of the config collection.
type ConfigDocument struct {
	Name      string `gorm:"primaryKey;size:64"`
	Value     []byte
	UpdatedAt time.Time
}

// QueueSettings is the value of the queue-settings config document.
type QueueSettings struct {
	MinMatchScore     int `json:"minMatchScore"`
	MaxRetries        int `json:"maxRetries"`
	MaxSpawnPerScrape int `json:"maxSpawnPerScrape"`
	MaxSpawnDepth     int `json:"maxSpawnDepth"`
}

func DefaultQueueSettings() QueueSettings {
	return QueueSettings{
		MinMatchScore:     70,
		MaxRetries:        DefaultMaxRetries,
		MaxSpawnPerScrape: 200,
		MaxSpawnDepth:     3,
	}
}
