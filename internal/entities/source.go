package entities

import (
	"fmt"
	"strings"
	"time"
)

type SourceType string

const (
	SourceGreenhouse SourceType = "greenhouse"
	SourceLever      SourceType = "lever"
	SourceAshby      SourceType = "ashby"
	SourceWorkday    SourceType = "workday"
	SourceHH         SourceType = "hh"
	SourceRSS        SourceType = "rss"
	SourceGeneric    SourceType = "generic"
)

func ParseSourceType(s string) (SourceType, error) {
	st := SourceType(s)
	switch st {
	case SourceGreenhouse, SourceLever, SourceAshby, SourceWorkday, SourceHH, SourceRSS, SourceGeneric:
		return st, nil
	}
	return "", fmt.Errorf("unknown source type %q", s)
}

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// SourceConfig is the per-type configuration of a source, e.g. a board token
// for greenhouse or a selector map for generic sources.
type SourceConfig map[string]string

// Keys of SourceConfig.
const (
	ConfigBoardToken  = "boardToken"
	ConfigCompanySlug = "companySlug"
	ConfigHost        = "host"
	ConfigTenant      = "tenant"
	ConfigSite        = "site"
	ConfigEmployerID  = "employerId"
	ConfigFeedURL     = "feedUrl"
	ConfigCompanyName = "companyName"

	// ConfigListPrefix marks listing page selectors of generic sources,
	// e.g. "list.item". ConfigDetailPrefix marks posting page selectors.
	ConfigListPrefix   = "list."
	ConfigDetailPrefix = "detail."
)

// WithPrefix returns the entries whose key starts with prefix, prefix removed.
func (c SourceConfig) WithPrefix(prefix string) map[string]string {
	out := map[string]string{}
	for k, v := range c {
		if strings.HasPrefix(k, prefix) {
			out[strings.TrimPrefix(k, prefix)] = v
		}
	}
	return out
}

type SourceHealth struct {
	SuccessCount  int
	FailureCount  int
	TotalFound    int
	AvgPerScrape  float64
	HealthScore   float64 `gorm:"default:1"`
	LastScrapedAt *time.Time
	LastError     string `gorm:"type:text"`
}

func (h SourceHealth) SuccessRate() float64 {
	total := h.SuccessCount + h.FailureCount
	if total == 0 {
		return 0
	}
	return float64(h.SuccessCount) / float64(total)
}

type Source struct {
	ID         uint         `gorm:"primaryKey"`
	Name       string       `gorm:"size:255"`
	URL        string       `gorm:"index"`
	SourceType SourceType   `gorm:"index;size:32;not null"`
	Config     SourceConfig `gorm:"serializer:json"`
	Enabled    bool         `gorm:"index"`
	CompanyID  *uint        `gorm:"index"`
	Confidence Confidence   `gorm:"size:16"`
	Health     SourceHealth `gorm:"embedded;embeddedPrefix:health_"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CompanyName is the employer name used for postings of this source.
func (s *Source) CompanyName() string {
	if name := s.Config[ConfigCompanyName]; name != "" {
		return name
	}
	return s.Name
}
