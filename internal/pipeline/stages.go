package pipeline

import (
	"context"
	"time"

	"github.com/maxaizer/job-finder/internal/analysis"
	"github.com/maxaizer/job-finder/internal/entities"
	"github.com/maxaizer/job-finder/internal/filter"
	"github.com/maxaizer/job-finder/internal/scheduler"
	"github.com/maxaizer/job-finder/internal/sources"
)

type settingsProvider interface {
	FilterConfig(ctx context.Context) (filter.Config, error)
	TechnologyRanks(ctx context.Context) (filter.TechnologyRanks, error)
	QueueSettings(ctx context.Context) (entities.QueueSettings, error)
}

type scraperRegistry interface {
	Scrape(ctx context.Context, source entities.Source) ([]entities.Posting, error)
	FetchPosting(ctx context.Context, source entities.Source, url string) (entities.Posting, bool, error)
}

type pageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type aiAnalyzer interface {
	AnalyzePosting(ctx context.Context, posting entities.Posting, result filter.FilterResult,
		ranks filter.TechnologyRanks) (analysis.MatchAnalysis, error)
	ExtractCompany(ctx context.Context, pageURL, page string) (analysis.CompanyInfo, error)
}

type dedupChecker interface {
	Exists(ctx context.Context, url string) (bool, error)
	MarkSeen(url string)
}

type spawnQueue interface {
	AddBatch(ctx context.Context, items []entities.QueueItem) error
}

type sourceStore interface {
	GetByID(ctx context.Context, id uint) (*entities.Source, error)
	GetByIDs(ctx context.Context, ids []uint) ([]entities.Source, error)
	LinkCompany(ctx context.Context, companyName string, companyID uint) (int64, error)
}

type healthRecorder interface {
	Record(ctx context.Context, sourceID uint, outcome sources.ScrapeOutcome) (entities.SourceHealth, error)
}

type dueSelector interface {
	DueSources(ctx context.Context, limit int) ([]scheduler.Candidate, error)
	MaxPerPass() int
}

type resultStore interface {
	Add(ctx context.Context, match *entities.JobMatch) error
}

type companyStore interface {
	Upsert(ctx context.Context, company *entities.Company) error
	GetByName(ctx context.Context, name string) (*entities.Company, error)
}

type sourceDiscoverer interface {
	Discover(ctx context.Context, req sources.DiscoveryRequest) (sources.DiscoveryResult, error)
}

type publisher interface {
	Publish(topic string, args ...interface{})
}

// Dependencies are the collaborators of the stage handlers. All of them are
// required.
type Dependencies struct {
	Queue     spawnQueue
	Settings  settingsProvider
	Scrapers  scraperRegistry
	Fetcher   pageFetcher
	Analyzer  aiAnalyzer
	Dedup     dedupChecker
	Sources   sourceStore
	Health    healthRecorder
	Scheduler dueSelector
	Results   resultStore
	Companies companyStore
	Discovery sourceDiscoverer
	Bus       publisher
}

// Stages holds the business logic of every (kind, subTask) pair.
type Stages struct {
	Dependencies
	now func() time.Time
}

func NewStages(deps Dependencies) *Stages {
	return &Stages{Dependencies: deps, now: time.Now}
}

// Routes is the complete routing table.
func (s *Stages) Routes() map[Route]Handler {
	return map[Route]Handler{
		{entities.KindPosting, entities.SubTaskScrape}:  HandlerFunc(s.scrapePosting),
		{entities.KindPosting, entities.SubTaskFilter}:  HandlerFunc(s.filterPosting),
		{entities.KindPosting, entities.SubTaskAnalyze}: HandlerFunc(s.analyzePosting),
		{entities.KindPosting, entities.SubTaskSave}:    HandlerFunc(s.savePosting),

		{entities.KindEmployer, entities.SubTaskFetch}:   HandlerFunc(s.fetchEmployer),
		{entities.KindEmployer, entities.SubTaskExtract}: HandlerFunc(s.extractEmployer),
		{entities.KindEmployer, entities.SubTaskAnalyze}: HandlerFunc(s.analyzeEmployer),
		{entities.KindEmployer, entities.SubTaskSave}:    HandlerFunc(s.saveEmployer),

		{entities.KindScrapeRequest, entities.SubTaskNone}:   HandlerFunc(s.scrapeRequest),
		{entities.KindSourceDiscovery, entities.SubTaskNone}: HandlerFunc(s.discoverSource),
	}
}

// NewPipelineRouter builds the router over all stages of deps.
func NewPipelineRouter(deps Dependencies) (*Router, error) {
	return NewRouter(NewStages(deps).Routes())
}

// decodeState reads a required key. A value that does not decode means the
// item is malformed.
func decodeState(item *entities.QueueItem, key string, out any) error {
	if err := item.PipelineState.Decode(key, out); err != nil {
		return DataIntegrity(err)
	}
	return nil
}

func encodeState(updates map[string]any) (entities.PipelineState, error) {
	state := entities.PipelineState{}
	for key, value := range updates {
		encoded, err := entities.Encode(value)
		if err != nil {
			return nil, DataIntegrity(err)
		}
		state[key] = encoded
	}
	return state, nil
}
