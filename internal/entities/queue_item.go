package entities

import (
	"fmt"
	"time"
)

type ItemKind string

const (
	KindPosting         ItemKind = "POSTING"
	KindEmployer        ItemKind = "EMPLOYER"
	KindScrapeRequest   ItemKind = "SCRAPE_REQUEST"
	KindSourceDiscovery ItemKind = "SOURCE_DISCOVERY"
)

type SubTask string

const (
	SubTaskNone    SubTask = ""
	SubTaskScrape  SubTask = "SCRAPE"
	SubTaskFilter  SubTask = "FILTER"
	SubTaskFetch   SubTask = "FETCH"
	SubTaskExtract SubTask = "EXTRACT"
	SubTaskAnalyze SubTask = "ANALYZE"
	SubTaskSave    SubTask = "SAVE"
)

// Stages lists the ordered sub-tasks of a kind. Kinds without stages are
// processed by a single handler keyed by SubTaskNone.
func (k ItemKind) Stages() []SubTask {
	switch k {
	case KindPosting:
		return []SubTask{SubTaskScrape, SubTaskFilter, SubTaskAnalyze, SubTaskSave}
	case KindEmployer:
		return []SubTask{SubTaskFetch, SubTaskExtract, SubTaskAnalyze, SubTaskSave}
	case KindScrapeRequest, KindSourceDiscovery:
		return []SubTask{SubTaskNone}
	default:
		return nil
	}
}

func (k ItemKind) FirstStage() SubTask {
	stages := k.Stages()
	if len(stages) == 0 {
		return SubTaskNone
	}
	return stages[0]
}

func (k ItemKind) IsValid() bool {
	return len(k.Stages()) > 0
}

// ValidSubTask reports whether s is one of the stages of kind k.
func (k ItemKind) ValidSubTask(s SubTask) bool {
	for _, stage := range k.Stages() {
		if stage == s {
			return true
		}
	}
	return false
}

type ItemStatus string

const (
	StatusPending    ItemStatus = "PENDING"
	StatusProcessing ItemStatus = "PROCESSING"
	StatusSuccess    ItemStatus = "SUCCESS"
	StatusFailed     ItemStatus = "FAILED"
	StatusSkipped    ItemStatus = "SKIPPED"
	StatusFiltered   ItemStatus = "FILTERED"
)

func (s ItemStatus) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusSkipped, StatusFiltered:
		return true
	default:
		return false
	}
}

func ParseItemStatus(s string) (ItemStatus, error) {
	st := ItemStatus(s)
	switch st {
	case StatusPending, StatusProcessing, StatusSuccess, StatusFailed, StatusSkipped, StatusFiltered:
		return st, nil
	}
	return "", fmt.Errorf("unknown queue item status %q", s)
}

const DefaultMaxRetries = 3

type SubmissionOrigin string

const (
	OriginUser      SubmissionOrigin = "user"
	OriginScheduler SubmissionOrigin = "scheduler"
	OriginScraper   SubmissionOrigin = "scraper"
	OriginCLI       SubmissionOrigin = "cli"
)

type QueueItem struct {
	ID               uint             `gorm:"primaryKey"`
	Kind             ItemKind         `gorm:"index;size:32;not null"`
	SubTask          SubTask          `gorm:"size:16"`
	Status           ItemStatus       `gorm:"index;size:16;not null;default:'PENDING'"`
	URL              string           `gorm:"index"`
	SourceName       string
	CompanyName      string
	SubmissionOrigin SubmissionOrigin `gorm:"size:32"`
	PipelineState    PipelineState    `gorm:"serializer:json"`
	RetryCount       int              `gorm:"default:0"`
	MaxRetries       int              `gorm:"default:3"`
	Message          string           `gorm:"type:text"`
	TrackingID       string           `gorm:"index;size:36"`
	AncestryChain    []uint           `gorm:"serializer:json"`
	SpawnDepth       int              `gorm:"default:0"`
	CreatedAt        time.Time        `gorm:"index"`
	UpdatedAt        time.Time
	ProcessedAt      *time.Time
	CompletedAt      *time.Time
}

// Spawn creates a child item inheriting the tracking id and lineage of parent.
func (q *QueueItem) Spawn(kind ItemKind, url string) QueueItem {
	chain := make([]uint, 0, len(q.AncestryChain)+1)
	chain = append(chain, q.AncestryChain...)
	chain = append(chain, q.ID)

	return QueueItem{
		Kind:             kind,
		SubTask:          kind.FirstStage(),
		Status:           StatusPending,
		URL:              url,
		SourceName:       q.SourceName,
		CompanyName:      q.CompanyName,
		SubmissionOrigin: OriginScraper,
		PipelineState:    PipelineState{},
		MaxRetries:       q.MaxRetries,
		TrackingID:       q.TrackingID,
		AncestryChain:    chain,
		SpawnDepth:       q.SpawnDepth + 1,
	}
}

func (q *QueueItem) Stage() string {
	if q.SubTask == SubTaskNone {
		return string(q.Kind)
	}
	return string(q.Kind) + "/" + string(q.SubTask)
}
