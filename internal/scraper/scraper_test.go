package scraper

import (
	"context"
	"testing"

	"github.com/maxaizer/job-finder/internal/clients/ats"
	"github.com/maxaizer/job-finder/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAts struct {
	mock.Mock
}

func (m *mockAts) Greenhouse(ctx context.Context, boardToken, companyName string) ([]entities.Posting, error) {
	args := m.Called(ctx, boardToken, companyName)
	return args.Get(0).([]entities.Posting), args.Error(1)
}

func (m *mockAts) Lever(ctx context.Context, companySlug, companyName string) ([]entities.Posting, error) {
	args := m.Called(ctx, companySlug, companyName)
	return args.Get(0).([]entities.Posting), args.Error(1)
}

func (m *mockAts) Ashby(ctx context.Context, boardToken, companyName string) ([]entities.Posting, error) {
	args := m.Called(ctx, boardToken, companyName)
	return args.Get(0).([]entities.Posting), args.Error(1)
}

func (m *mockAts) Workday(ctx context.Context, board ats.WorkdayBoard, companyName string) ([]entities.Posting, error) {
	args := m.Called(ctx, board, companyName)
	return args.Get(0).([]entities.Posting), args.Error(1)
}

func (m *mockAts) WorkdayPosting(ctx context.Context, board ats.WorkdayBoard, postingURL string) (entities.Posting, error) {
	args := m.Called(ctx, board, postingURL)
	return args.Get(0).(entities.Posting), args.Error(1)
}

type staticFetcher struct {
	pages map[string]string
}

func (f staticFetcher) Fetch(_ context.Context, url string) (string, error) {
	return f.pages[url], nil
}

func Test_Registry_Get_ShouldRejectUnknownType(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Get(entities.SourceLever)
	assert.ErrorIs(t, err, ErrUnsupportedSourceType)
}

func Test_Registry_Scrape_ShouldDispatchByType(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	client := &mockAts{}
	registry := NewRegistry()
	registry.Register(entities.SourceGreenhouse, NewGreenhouse(client))

	expected := []entities.Posting{{URL: "https://boards.greenhouse.io/acme/jobs/1", Title: "Go Developer"}}
	client.On("Greenhouse", ctx, "acme", "Acme Inc").Return(expected, nil)

	source := entities.Source{
		Name: "acme", SourceType: entities.SourceGreenhouse,
		Config: entities.SourceConfig{entities.ConfigBoardToken: "acme", entities.ConfigCompanyName: "Acme Inc"},
	}
	postings, err := registry.Scrape(ctx, source)
	require.NoError(t, err)
	assert.Equal(expected, postings)
	client.AssertExpectations(t)
}

func Test_Scrapers_ShouldRequireConfig(t *testing.T) {
	ctx := context.Background()
	client := &mockAts{}

	cases := []struct {
		name    string
		scraper Scraper
		source  entities.Source
	}{
		{"greenhouse", NewGreenhouse(client), entities.Source{SourceType: entities.SourceGreenhouse}},
		{"lever", NewLever(client), entities.Source{SourceType: entities.SourceLever}},
		{"ashby", NewAshby(client), entities.Source{SourceType: entities.SourceAshby}},
		{"workday", NewWorkday(client), entities.Source{
			SourceType: entities.SourceWorkday,
			Config:     entities.SourceConfig{entities.ConfigHost: "acme.wd5.myworkdayjobs.com"},
		}},
		{"hh", NewHH(nil, 10), entities.Source{SourceType: entities.SourceHH}},
		{"generic", NewGeneric(staticFetcher{}), entities.Source{SourceType: entities.SourceGeneric}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := c.scraper.Scrape(ctx, c.source)
			assert.ErrorIs(t, err, ErrInvalidSourceConfig)
		})
	}
	client.AssertNotCalled(t, "Greenhouse", mock.Anything, mock.Anything, mock.Anything)
}

func Test_Registry_FetchPosting_ShouldUseWorkdayApi(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	client := &mockAts{}
	registry := NewRegistry()
	registry.Register(entities.SourceWorkday, NewWorkday(client))
	registry.Register(entities.SourceLever, NewLever(client))

	board := ats.WorkdayBoard{Host: "acme.wd5.myworkdayjobs.com", Tenant: "acme", Site: "External"}
	url := "https://acme.wd5.myworkdayjobs.com/External/job/Remote/Go-Engineer_R1"
	client.On("WorkdayPosting", ctx, board, url).Return(entities.Posting{URL: url, Description: "Build things"}, nil)

	source := entities.Source{
		Name: "Acme", SourceType: entities.SourceWorkday,
		Config: entities.SourceConfig{
			entities.ConfigHost: board.Host, entities.ConfigTenant: board.Tenant, entities.ConfigSite: board.Site,
		},
	}
	posting, ok, err := registry.FetchPosting(ctx, source, url)
	require.NoError(t, err)
	assert.True(ok)
	assert.Equal("Acme", posting.Company)
	assert.Equal("Build things", posting.Description)

	_, ok, err = registry.FetchPosting(ctx, entities.Source{SourceType: entities.SourceLever}, url)
	require.NoError(t, err)
	assert.False(ok)
}

func Test_Generic_Scrape_ShouldUseListSelectors(t *testing.T) {
	assert := assert.New(t)
	page := `<html><body><ul>
		<li class="job"><a href="/jobs/1">Backend Engineer</a><span class="loc">Remote</span></li>
		<li class="job"><a href="/jobs/2">Data Engineer</a><span class="loc">Berlin</span></li>
	</ul></body></html>`
	fetcher := staticFetcher{pages: map[string]string{"https://acme.example/careers": page}}

	source := entities.Source{
		Name: "Acme", URL: "https://acme.example/careers", SourceType: entities.SourceGeneric,
		Config: entities.SourceConfig{
			"list.item":     "li.job",
			"list.link":     "a",
			"list.location": ".loc",
			"detail.title":  "h1",
		},
	}

	postings, err := NewGeneric(fetcher).Scrape(context.Background(), source)
	require.NoError(t, err)
	require.Len(t, postings, 2)
	assert.Equal("https://acme.example/jobs/1", postings[0].URL)
	assert.Equal("Backend Engineer", postings[0].Title)
	assert.Equal("Remote", postings[0].Location)
	assert.Equal("Acme", postings[1].Company)
	assert.Equal(string(entities.SourceGeneric), postings[1].Source)
}
