package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/job-finder/internal/analysis"
	"github.com/maxaizer/job-finder/internal/dedup"
	"github.com/maxaizer/job-finder/internal/entities"
	"github.com/maxaizer/job-finder/internal/filter"
	"github.com/maxaizer/job-finder/internal/repositories"
	"github.com/maxaizer/job-finder/internal/scheduler"
	"github.com/maxaizer/job-finder/internal/sources"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAnalyzer struct {
	mock.Mock
}

func (m *mockAnalyzer) AnalyzePosting(ctx context.Context, posting entities.Posting, result filter.FilterResult,
	ranks filter.TechnologyRanks) (analysis.MatchAnalysis, error) {
	args := m.Called(ctx, posting, result, ranks)
	return args.Get(0).(analysis.MatchAnalysis), args.Error(1)
}

func (m *mockAnalyzer) ExtractCompany(ctx context.Context, pageURL, page string) (analysis.CompanyInfo, error) {
	args := m.Called(ctx, pageURL, page)
	return args.Get(0).(analysis.CompanyInfo), args.Error(1)
}

type stubScrapers struct {
	postings map[uint][]entities.Posting
	errs     map[uint]error
	calls    int
}

func (s *stubScrapers) Scrape(_ context.Context, source entities.Source) ([]entities.Posting, error) {
	s.calls++
	return s.postings[source.ID], s.errs[source.ID]
}

func (s *stubScrapers) FetchPosting(_ context.Context, _ entities.Source, _ string) (entities.Posting, bool, error) {
	return entities.Posting{}, false, nil
}

type stubFetcher struct {
	pages map[string]string
	err   error
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.pages[url], nil
}

type stubDiscoverer struct {
	result sources.DiscoveryResult
	err    error
}

func (d *stubDiscoverer) Discover(_ context.Context, _ sources.DiscoveryRequest) (sources.DiscoveryResult, error) {
	return d.result, d.err
}

type testPipeline struct {
	db        *repositories.DbContext
	queue     *repositories.Queue
	sources   *repositories.Sources
	companies *repositories.Companies
	results   *repositories.Results
	docs      *repositories.ConfigDocuments
	settings  *repositories.CachedSettings
	analyzer  *mockAnalyzer
	scrapers  *stubScrapers
	fetcher   *stubFetcher
	discovery *stubDiscoverer
	bus       EventBus.Bus
	stages    *Stages
	processor *Processor
	intake    *Intake
}

func newTestPipeline(t *testing.T) *testPipeline {
	t.Helper()

	dbCtx, err := repositories.NewDbContext(":memory:")
	require.NoError(t, err)
	require.NoError(t, dbCtx.Migrate())
	t.Cleanup(func() { _ = dbCtx.Close() })

	p := &testPipeline{
		db:        dbCtx,
		queue:     repositories.NewQueueRepository(dbCtx.DB),
		sources:   repositories.NewSourcesRepository(dbCtx.DB),
		companies: repositories.NewCompaniesRepository(dbCtx.DB),
		results:   repositories.NewResultsRepository(dbCtx.DB),
		docs:      repositories.NewConfigDocumentsRepository(dbCtx.DB),
		analyzer:  &mockAnalyzer{},
		scrapers:  &stubScrapers{postings: map[uint][]entities.Posting{}, errs: map[uint]error{}},
		fetcher:   &stubFetcher{pages: map[string]string{}},
		discovery: &stubDiscoverer{},
		bus:       EventBus.New(),
	}
	p.settings = repositories.NewCachedSettings(p.docs, time.Minute)

	checker := dedup.NewChecker(dedup.NewCache(time.Minute), p.queue, p.results)
	stages := NewStages(Dependencies{
		Queue:     p.queue,
		Settings:  p.settings,
		Scrapers:  p.scrapers,
		Fetcher:   p.fetcher,
		Analyzer:  p.analyzer,
		Dedup:     checker,
		Sources:   p.sources,
		Health:    sources.NewHealthTracker(p.sources),
		Scheduler: scheduler.NewScheduler(p.sources, p.companies, p.queue, 10),
		Results:   p.results,
		Companies: p.companies,
		Discovery: p.discovery,
		Bus:       p.bus,
	})
	router, err := NewRouter(stages.Routes())
	require.NoError(t, err)

	p.stages = stages
	p.processor = NewProcessor(p.queue, router, ProcessorOptions{BatchSize: 10, PollInterval: time.Millisecond})
	p.intake = NewIntake(p.queue, checker, p.settings, p.sources)
	return p
}

// seedFilters stores a job-filters document with a $100k floor and Python as
// the required technology.
func (p *testPipeline) seedFilters(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, p.docs.Save(ctx, repositories.DocJobFilters, []byte(`{
		"strikeThreshold": 5,
		"hardRejections": {
			"excludedJobTypes": ["internship"],
			"excludedSeniority": ["director"],
			"minSalaryFloor": 100000,
			"rejectCommissionOnly": true,
			"maxAgeDays": 60
		},
		"remotePolicy": {"allowRemote": true},
		"qualityStrikes": {"minDescriptionLength": 0, "buzzwords": []}
	}`)))
	require.NoError(t, p.docs.Save(ctx, repositories.DocTechnologyRanks, []byte(`{
		"technologies": {"Python": {"rank": "required"}, "Go": {"rank": "preferred"}},
		"missingRequiredPoints": 3
	}`)))
	p.settings.Refresh()
}

// drain runs the processor until a poll finds nothing to do.
func (p *testPipeline) drain(t *testing.T) {
	t.Helper()
	for i := 0; i < 50; i++ {
		processed, err := p.processor.RunOnce(context.Background())
		require.NoError(t, err)
		if processed == 0 {
			return
		}
	}
	t.Fatal("queue did not drain")
}

func (p *testPipeline) item(t *testing.T, id uint) *entities.QueueItem {
	t.Helper()
	item, err := p.queue.GetByID(context.Background(), id)
	require.NoError(t, err)
	return item
}
