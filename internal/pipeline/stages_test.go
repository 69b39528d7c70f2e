package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/maxaizer/job-finder/internal/analysis"
	"github.com/maxaizer/job-finder/internal/clients/web"
	"github.com/maxaizer/job-finder/internal/entities"
	"github.com/maxaizer/job-finder/internal/events"
	"github.com/maxaizer/job-finder/internal/filter"
	"github.com/maxaizer/job-finder/internal/scraper"
	"github.com/maxaizer/job-finder/internal/sources"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const postingURL = "https://jobs.example.com/backend-engineer"

func postingPage(salary string) string {
	return fmt.Sprintf(`<html><head><title>Backend Engineer</title></head><body>
		<h1>Senior Backend Engineer</h1>
		<p>We need 5 years Python experience. Fully remote team. Salary %s.</p>
	</body></html>`, salary)
}

func Test_Pipeline_Posting_ShouldBeSavedAfterAllStages(t *testing.T) {
	assert := assert.New(t)
	p := newTestPipeline(t)
	p.seedFilters(t)
	ctx := context.Background()

	p.fetcher.pages[postingURL] = postingPage("$160k")
	p.analyzer.On("AnalyzePosting", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(analysis.MatchAnalysis{MatchScore: 86, Summary: "strong Python fit", Strengths: []string{"remote"}}, nil).
		Once()

	var saved []events.MatchSaved
	require.NoError(t, p.bus.Subscribe(events.MatchSavedTopic, func(e events.MatchSaved) { saved = append(saved, e) }))

	item, err := p.intake.SubmitPosting(ctx, Submission{URL: postingURL + "?utm_source=feed", CompanyName: "Acme"})
	require.NoError(t, err)
	assert.Equal(postingURL, item.URL)

	p.drain(t)

	stored := p.item(t, item.ID)
	assert.Equal(entities.StatusSuccess, stored.Status)
	assert.Equal(entities.SubTaskSave, stored.SubTask)
	assert.Zero(stored.RetryCount)

	var result filter.FilterResult
	require.NoError(t, stored.PipelineState.Decode(entities.StateFilterResult, &result))
	assert.True(result.Passed)
	assert.Equal(0, result.TotalStrikes)

	var posting entities.Posting
	require.NoError(t, stored.PipelineState.Decode(entities.StatePostingData, &posting))
	assert.Equal("Senior Backend Engineer", posting.Title)
	assert.Equal("Acme", posting.Company)
	assert.True(stored.PipelineState.Has(entities.StateAnalysis))
	assert.True(stored.PipelineState.Has(entities.StateMatchID))

	matches, err := p.results.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(86, matches[0].MatchScore)
	assert.Equal(postingURL, matches[0].URL)
	assert.Equal(stored.TrackingID, matches[0].TrackingID)

	require.Len(t, saved, 1)
	assert.Equal(matches[0].ID, saved[0].MatchID)
	p.analyzer.AssertExpectations(t)

	_, err = p.intake.SubmitPosting(ctx, Submission{URL: postingURL})
	assert.ErrorIs(err, ErrAlreadyQueued)
}

func Test_Pipeline_Posting_WithoutHeading_ShouldFallBackToPageTitle(t *testing.T) {
	assert := assert.New(t)
	p := newTestPipeline(t)
	ctx := context.Background()

	p.fetcher.pages[postingURL] = `<html><head><title>Data Engineer at Acme</title></head>
		<body><p>Build pipelines in Go and Python.</p></body></html>`
	item := &entities.QueueItem{Kind: entities.KindPosting, SubTask: entities.SubTaskScrape, URL: postingURL}

	outcome, err := p.stages.scrapePosting(ctx, item)
	require.NoError(t, err)
	assert.Equal(entities.SubTaskFilter, outcome.Next)

	var posting entities.Posting
	require.NoError(t, outcome.State.Decode(entities.StatePostingData, &posting))
	assert.Equal("Data Engineer at Acme", posting.Title)
	assert.Contains(posting.Description, "Build pipelines")
}

func Test_Pipeline_Posting_BelowSalaryFloor_ShouldBeFiltered(t *testing.T) {
	assert := assert.New(t)
	p := newTestPipeline(t)
	p.seedFilters(t)

	p.fetcher.pages[postingURL] = postingPage("$90k")

	item, err := p.intake.SubmitPosting(context.Background(), Submission{URL: postingURL})
	require.NoError(t, err)
	p.drain(t)

	stored := p.item(t, item.ID)
	assert.Equal(entities.StatusFiltered, stored.Status)
	assert.Equal(entities.SubTaskFilter, stored.SubTask)

	var result filter.FilterResult
	require.NoError(t, stored.PipelineState.Decode(entities.StateFilterResult, &result))
	rejection, hard := result.HardRejection()
	require.True(t, hard)
	assert.Equal(filter.CategorySalary, rejection.Category)
	assert.Contains(stored.Message, "rejected")

	p.analyzer.AssertNotCalled(t, "AnalyzePosting", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func Test_Pipeline_Posting_ScoreBelowOverride_ShouldBeSkipped(t *testing.T) {
	assert := assert.New(t)
	p := newTestPipeline(t)
	p.seedFilters(t)

	p.fetcher.pages[postingURL] = postingPage("$160k")
	p.analyzer.On("AnalyzePosting", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(analysis.MatchAnalysis{MatchScore: 85}, nil)

	threshold := 90
	item, err := p.intake.SubmitPosting(context.Background(), Submission{URL: postingURL, ScoreThreshold: &threshold})
	require.NoError(t, err)
	p.drain(t)

	stored := p.item(t, item.ID)
	assert.Equal(entities.StatusSkipped, stored.Status)
	assert.Equal(entities.SubTaskAnalyze, stored.SubTask)
	assert.Contains(stored.Message, "85")

	matches, err := p.results.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(matches)
}

func Test_Pipeline_Posting_AiFailures_ShouldFailAtAnalyze(t *testing.T) {
	assert := assert.New(t)
	p := newTestPipeline(t)
	p.seedFilters(t)

	p.fetcher.pages[postingURL] = postingPage("$160k")
	p.analyzer.On("AnalyzePosting", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(analysis.MatchAnalysis{}, analysis.ErrMalformedResponse)

	item, err := p.intake.SubmitPosting(context.Background(), Submission{URL: postingURL})
	require.NoError(t, err)
	p.drain(t)

	stored := p.item(t, item.ID)
	assert.Equal(entities.StatusFailed, stored.Status)
	assert.Equal(entities.SubTaskAnalyze, stored.SubTask)
	assert.Equal(stored.MaxRetries, stored.RetryCount)
	p.analyzer.AssertNumberOfCalls(t, "AnalyzePosting", stored.MaxRetries)
}

func Test_Pipeline_Posting_RemovedPage_ShouldBeSkipped(t *testing.T) {
	p := newTestPipeline(t)
	p.fetcher.err = &web.HTTPError{URL: postingURL, StatusCode: http.StatusNotFound}

	item, err := p.intake.SubmitPosting(context.Background(), Submission{URL: postingURL})
	require.NoError(t, err)
	p.drain(t)

	stored := p.item(t, item.ID)
	assert.Equal(t, entities.StatusSkipped, stored.Status)
	assert.Equal(t, entities.SubTaskScrape, stored.SubTask)
}

func addSource(t *testing.T, p *testPipeline, source *entities.Source) *entities.Source {
	t.Helper()
	source.Enabled = true
	require.NoError(t, p.sources.Add(context.Background(), source))
	return source
}

func Test_Pipeline_ScrapeRequest_ShouldSpawnNewPostings(t *testing.T) {
	assert := assert.New(t)
	p := newTestPipeline(t)
	ctx := context.Background()

	source := addSource(t, p, &entities.Source{
		Name: "Acme", URL: "https://boards.greenhouse.io/acme", SourceType: entities.SourceGreenhouse,
		Config: entities.SourceConfig{entities.ConfigBoardToken: "acme"},
	})
	require.NoError(t, p.results.Add(ctx, &entities.JobMatch{URL: "https://boards.greenhouse.io/acme/jobs/1", MatchScore: 80}))

	p.scrapers.postings[source.ID] = []entities.Posting{
		{URL: "https://boards.greenhouse.io/acme/jobs/1?gh_src=x", Title: "Old"},
		{URL: "https://boards.greenhouse.io/acme/jobs/2", Title: "Backend", Description: "Go"},
		{URL: "https://boards.greenhouse.io/acme/jobs/2/", Title: "Backend again"},
		{URL: "https://boards.greenhouse.io/acme/jobs/3", Title: "Platform"},
	}

	threshold := 75
	request, err := p.intake.TriggerScrape(ctx, TriggerRequest{ScoreThreshold: &threshold})
	require.NoError(t, err)

	_, err = p.processor.RunOnce(ctx)
	require.NoError(t, err)

	stored := p.item(t, request.ID)
	assert.Equal(entities.StatusSuccess, stored.Status)

	var summary ScrapeSummary
	require.NoError(t, stored.PipelineState.Decode(entities.StateScrapeSummary, &summary))
	assert.Equal(2, summary.Queued)
	require.Len(t, summary.Sources, 1)
	assert.Equal(2, summary.Sources[0].Duplicates)

	lineage, err := p.queue.GetByTrackingID(ctx, request.TrackingID)
	require.NoError(t, err)
	require.Len(t, lineage, 3)

	child := lineage[1]
	assert.Equal(entities.KindPosting, child.Kind)
	assert.Equal(entities.SubTaskScrape, child.SubTask)
	assert.Equal("https://boards.greenhouse.io/acme/jobs/2", child.URL)
	assert.Equal([]uint{request.ID}, child.AncestryChain)
	assert.Equal(1, child.SpawnDepth)
	assert.Equal("Acme", child.CompanyName)
	sourceID, _ := child.PipelineState.Int(entities.StateSourceID)
	assert.Equal(int(source.ID), sourceID)
	override, _ := child.PipelineState.Int(entities.StateScoreThreshold)
	assert.Equal(75, override)

	updated, err := p.sources.GetByID(ctx, source.ID)
	require.NoError(t, err)
	assert.Equal(1, updated.Health.SuccessCount)
	assert.Equal(4, updated.Health.TotalFound)
	assert.NotNil(updated.Health.LastScrapedAt)
}

func Test_Pipeline_ScrapeRequest_TargetMatches_ShouldCapSpawns(t *testing.T) {
	assert := assert.New(t)
	p := newTestPipeline(t)
	ctx := context.Background()

	first := addSource(t, p, &entities.Source{Name: "One", SourceType: entities.SourceLever})
	second := addSource(t, p, &entities.Source{Name: "Two", SourceType: entities.SourceLever})
	p.scrapers.postings[first.ID] = []entities.Posting{
		{URL: "https://jobs.lever.co/one/1"}, {URL: "https://jobs.lever.co/one/2"},
	}
	p.scrapers.postings[second.ID] = []entities.Posting{{URL: "https://jobs.lever.co/two/1"}}

	request, err := p.intake.TriggerScrape(ctx, TriggerRequest{TargetMatches: 2})
	require.NoError(t, err)
	_, err = p.processor.RunOnce(ctx)
	require.NoError(t, err)

	var summary ScrapeSummary
	require.NoError(t, p.item(t, request.ID).PipelineState.Decode(entities.StateScrapeSummary, &summary))
	assert.Equal(2, summary.Queued)
	assert.True(summary.Capped)
	assert.Equal(1, p.scrapers.calls)
}

func Test_Pipeline_ScrapeRequest_UnsupportedSources_ShouldFailAsConfiguration(t *testing.T) {
	assert := assert.New(t)
	p := newTestPipeline(t)
	ctx := context.Background()

	source := addSource(t, p, &entities.Source{Name: "Broken", SourceType: entities.SourceWorkday})
	p.scrapers.errs[source.ID] = fmt.Errorf("%w: no tenant", scraper.ErrInvalidSourceConfig)

	request, err := p.intake.TriggerScrape(ctx, TriggerRequest{SourceIDs: []uint{source.ID}})
	require.NoError(t, err)
	_, err = p.processor.RunOnce(ctx)
	require.NoError(t, err)

	stored := p.item(t, request.ID)
	assert.Equal(entities.StatusFailed, stored.Status)
	assert.Zero(stored.RetryCount)
	assert.Contains(stored.Message, string(ErrorConfiguration))

	updated, err := p.sources.GetByID(ctx, source.ID)
	require.NoError(t, err)
	assert.Equal(1, updated.Health.FailureCount)
	assert.Contains(updated.Health.LastError, "no tenant")
}

func Test_Pipeline_ScrapeRequest_PartialFailure_ShouldSucceed(t *testing.T) {
	assert := assert.New(t)
	p := newTestPipeline(t)
	ctx := context.Background()

	failing := addSource(t, p, &entities.Source{Name: "Down", SourceType: entities.SourceAshby})
	working := addSource(t, p, &entities.Source{Name: "Up", SourceType: entities.SourceAshby})
	p.scrapers.errs[failing.ID] = errors.New("503 service unavailable")
	p.scrapers.postings[working.ID] = []entities.Posting{{URL: "https://jobs.ashbyhq.com/up/1"}}

	request, err := p.intake.TriggerScrape(ctx, TriggerRequest{})
	require.NoError(t, err)
	_, err = p.processor.RunOnce(ctx)
	require.NoError(t, err)

	stored := p.item(t, request.ID)
	assert.Equal(entities.StatusSuccess, stored.Status)

	var summary ScrapeSummary
	require.NoError(t, stored.PipelineState.Decode(entities.StateScrapeSummary, &summary))
	assert.Equal(1, summary.Queued)
	require.Len(t, summary.Sources, 2)
	assert.Contains(summary.Sources[0].Error, "503")
}

type flakyQueue struct {
	spawnQueue
	failures int
}

func (q *flakyQueue) AddBatch(ctx context.Context, items []entities.QueueItem) error {
	if q.failures > 0 {
		q.failures--
		return errors.New("database is locked")
	}
	return q.spawnQueue.AddBatch(ctx, items)
}

func Test_Pipeline_ScrapeRequest_RetriedAfterStoreFailure_ShouldRecordHealthOnce(t *testing.T) {
	assert := assert.New(t)
	p := newTestPipeline(t)
	ctx := context.Background()

	source := addSource(t, p, &entities.Source{Name: "Acme", SourceType: entities.SourceLever})
	p.scrapers.postings[source.ID] = []entities.Posting{
		{URL: "https://jobs.lever.co/acme/1"}, {URL: "https://jobs.lever.co/acme/2"},
	}
	p.stages.Queue = &flakyQueue{spawnQueue: p.queue, failures: 1}

	request, err := p.intake.TriggerScrape(ctx, TriggerRequest{})
	require.NoError(t, err)

	_, err = p.processor.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(entities.StatusPending, p.item(t, request.ID).Status)

	unchanged, err := p.sources.GetByID(ctx, source.ID)
	require.NoError(t, err)
	assert.Zero(unchanged.Health.SuccessCount)
	assert.Nil(unchanged.Health.LastScrapedAt)

	_, err = p.processor.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(entities.StatusSuccess, p.item(t, request.ID).Status)
	assert.Equal(2, p.scrapers.calls)

	updated, err := p.sources.GetByID(ctx, source.ID)
	require.NoError(t, err)
	assert.Equal(1, updated.Health.SuccessCount)
	assert.Equal(2, updated.Health.TotalFound)
}

func Test_Pipeline_ScrapeRequest_WithoutMaxSources_ShouldUseSchedulerLimit(t *testing.T) {
	assert := assert.New(t)
	p := newTestPipeline(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		addSource(t, p, &entities.Source{Name: fmt.Sprintf("Board %d", i), SourceType: entities.SourceLever})
	}

	request, err := p.intake.TriggerScrape(ctx, TriggerRequest{})
	require.NoError(t, err)
	_, err = p.processor.RunOnce(ctx)
	require.NoError(t, err)

	var summary ScrapeSummary
	require.NoError(t, p.item(t, request.ID).PipelineState.Decode(entities.StateScrapeSummary, &summary))
	assert.Len(summary.Sources, p.stages.Scheduler.MaxPerPass())
	assert.Equal(10, p.scrapers.calls)

	limited, err := p.intake.TriggerScrape(ctx, TriggerRequest{MaxSources: 1})
	require.NoError(t, err)
	_, err = p.processor.RunOnce(ctx)
	require.NoError(t, err)

	require.NoError(t, p.item(t, limited.ID).PipelineState.Decode(entities.StateScrapeSummary, &summary))
	assert.Len(summary.Sources, 1)
}

func Test_Pipeline_Employer_ShouldStoreTieredCompanyAndLinkSources(t *testing.T) {
	assert := assert.New(t)
	p := newTestPipeline(t)
	p.seedFilters(t)
	ctx := context.Background()

	source := addSource(t, p, &entities.Source{
		Name: "Acme careers", SourceType: entities.SourceLever,
		Config: entities.SourceConfig{entities.ConfigCompanyName: "Acme"},
	})

	const companyURL = "https://acme.example.com/about"
	p.fetcher.pages[companyURL] = "<html><body><h1>Acme</h1><p>We build with Python and Go, remote first.</p></body></html>"
	p.analyzer.On("ExtractCompany", mock.Anything, companyURL, mock.Anything).
		Return(analysis.CompanyInfo{Name: "ACME Inc", TechStack: []string{"Python", "Go"}, RemoteFriendly: true}, nil)

	item, err := p.intake.SubmitEmployer(ctx, Submission{URL: companyURL, CompanyName: "Acme"})
	require.NoError(t, err)
	p.drain(t)

	stored := p.item(t, item.ID)
	assert.Equal(entities.StatusSuccess, stored.Status)
	assert.Equal(entities.SubTaskSave, stored.SubTask)

	var scored CompanyAnalysis
	require.NoError(t, stored.PipelineState.Decode(entities.StateCompanyAnalysis, &scored))
	assert.Equal(90, scored.PriorityScore)
	assert.Equal(entities.TierB, scored.Tier)

	company, err := p.companies.GetByName(ctx, "Acme")
	require.NoError(t, err)
	require.NotNil(t, company)
	assert.Equal(entities.TierB, company.Tier)
	assert.Equal(companyURL, company.Website)

	linked, err := p.sources.GetByID(ctx, source.ID)
	require.NoError(t, err)
	require.NotNil(t, linked.CompanyID)
	assert.Equal(company.ID, *linked.CompanyID)
}

func Test_Pipeline_SourceDiscovery_ShouldPublishCreatedSource(t *testing.T) {
	assert := assert.New(t)
	p := newTestPipeline(t)
	ctx := context.Background()

	p.discovery.result = sources.DiscoveryResult{
		Source: &entities.Source{
			ID: 7, Name: "Acme", URL: "https://boards.greenhouse.io/acme",
			SourceType: entities.SourceGreenhouse, Confidence: entities.ConfidenceHigh, Enabled: true,
		},
		Created: true,
	}
	var discovered []events.SourceDiscovered
	require.NoError(t, p.bus.Subscribe(events.SourceDiscoveredTopic, func(e events.SourceDiscovered) {
		discovered = append(discovered, e)
	}))

	item, err := p.intake.SubmitSourceDiscovery(ctx, Submission{URL: "https://boards.greenhouse.io/acme"})
	require.NoError(t, err)
	p.drain(t)

	stored := p.item(t, item.ID)
	assert.Equal(entities.StatusSuccess, stored.Status)

	var summary DiscoverySummary
	require.NoError(t, stored.PipelineState.Decode(entities.StateDiscovery, &summary))
	assert.Equal(uint(7), summary.SourceID)
	assert.True(summary.Enabled)

	require.Len(t, discovered, 1)
	assert.Equal(uint(7), discovered[0].SourceID)

	p.discovery.result.Created = false
	again, err := p.intake.SubmitSourceDiscovery(ctx, Submission{URL: "https://boards.greenhouse.io/acme"})
	require.NoError(t, err)
	p.drain(t)

	assert.Equal(entities.StatusSkipped, p.item(t, again.ID).Status)
	assert.Len(discovered, 1)
}
