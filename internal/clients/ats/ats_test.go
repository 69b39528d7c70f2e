package ats

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/maxaizer/job-finder/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockHTTPClient struct {
	mock.Mock
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	return args.Get(0).(*http.Response), args.Error(1)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func urlIs(url string) any {
	return mock.MatchedBy(func(req *http.Request) bool {
		return req.URL.String() == url
	})
}

func Test_Client_Greenhouse_ShouldMapPostings(t *testing.T) {
	assert := assert.New(t)

	httpClient := &mockHTTPClient{}
	httpClient.On("Do", urlIs("https://boards-api.greenhouse.io/v1/boards/acme/jobs?content=true")).
		Return(jsonResponse(200, `{"jobs": [{
			"id": 12345,
			"title": "Software Engineer",
			"location": {"name": "Remote, US"},
			"absolute_url": "https://boards.greenhouse.io/acme/jobs/12345",
			"first_published": "2026-02-10T09:00:00Z",
			"updated_at": "2026-02-13T10:00:00Z",
			"content": "&lt;p&gt;5+ years of Go&lt;/p&gt;"
		}]}`), nil)

	client := NewClient(0)
	client.SetHTTPClient(httpClient)

	postings, err := client.Greenhouse(context.Background(), "acme", "Acme Corp")
	require.NoError(t, err)
	require.Len(t, postings, 1)

	p := postings[0]
	assert.Equal("https://boards.greenhouse.io/acme/jobs/12345", p.URL)
	assert.Equal("Acme Corp", p.Company)
	assert.Equal("Remote, US", p.Location)
	assert.Equal("5+ years of Go", p.Description)
	assert.Equal("2026-02-10T09:00:00Z", p.PostedDate)
	assert.Equal(string(entities.SourceGreenhouse), p.Source)
}

func Test_Client_Lever_ShouldMapPostings(t *testing.T) {
	assert := assert.New(t)

	httpClient := &mockHTTPClient{}
	httpClient.On("Do", urlIs("https://api.lever.co/v0/postings/acme?mode=json")).
		Return(jsonResponse(200, `[{
			"id": "abc",
			"text": "Backend Engineer",
			"descriptionPlain": "Write Go.",
			"additionalPlain": "Benefits.",
			"categories": {"location": "NYC", "commitment": "Full-time", "allLocations": ["NYC", "Remote"]},
			"createdAt": 1767225600000,
			"workplaceType": "hybrid",
			"hostedUrl": "https://jobs.lever.co/acme/abc",
			"salaryRange": {"currency": "USD", "min": 140000, "max": 170000}
		}]`), nil)

	client := NewClient(0)
	client.SetHTTPClient(httpClient)

	postings, err := client.Lever(context.Background(), "acme", "Acme")
	require.NoError(t, err)
	require.Len(t, postings, 1)

	p := postings[0]
	assert.Equal("https://jobs.lever.co/acme/abc", p.URL)
	assert.Equal("NYC, Remote (hybrid)", p.Location)
	assert.Equal("Write Go.\nBenefits.", p.Description)
	assert.Equal("140000-170000 USD", p.Salary)
	assert.Equal("2026-01-01T00:00:00Z", p.PostedDate)
	assert.Equal("Full-time", p.JobType)
}

func Test_Client_Ashby_ShouldSkipUnlisted(t *testing.T) {
	assert := assert.New(t)

	httpClient := &mockHTTPClient{}
	httpClient.On("Do", urlIs("https://api.ashbyhq.com/posting-api/job-board/acme?includeCompensation=true")).
		Return(jsonResponse(200, `{"jobs": [
			{"title": "Listed", "location": "Berlin", "jobUrl": "https://jobs.ashbyhq.com/acme/1", "isListed": true,
			 "isRemote": true, "descriptionPlain": "Go", "compensation": {"compensationTierSummary": "$120K – $150K"}},
			{"title": "Hidden", "jobUrl": "https://jobs.ashbyhq.com/acme/2", "isListed": false}
		]}`), nil)

	client := NewClient(0)
	client.SetHTTPClient(httpClient)

	postings, err := client.Ashby(context.Background(), "acme", "Acme")
	require.NoError(t, err)
	require.Len(t, postings, 1)
	assert.Equal("Listed", postings[0].Title)
	assert.Equal("Berlin (Remote)", postings[0].Location)
	assert.Equal("$120K – $150K", postings[0].Salary)
}

func Test_Client_Workday_ShouldPaginateAndFetchDetail(t *testing.T) {
	assert := assert.New(t)
	board := WorkdayBoard{Host: "acme.wd5.myworkdayjobs.com", Tenant: "acme", Site: "External"}

	page := func(n int, offset int) string {
		var buf bytes.Buffer
		buf.WriteString(`{"total": 25, "jobPostings": [`)
		for i := 0; i < n; i++ {
			if i > 0 {
				buf.WriteString(",")
			}
			buf.WriteString(`{"title": "Engineer", "externalPath": "/job/Remote/Engineer_R`)
			buf.WriteString(string(rune('a' + offset + i)))
			buf.WriteString(`", "locationsText": "Remote", "postedOn": "Posted Today"}`)
		}
		buf.WriteString(`]}`)
		return buf.String()
	}

	httpClient := &mockHTTPClient{}
	listURL := "https://acme.wd5.myworkdayjobs.com/wday/cxs/acme/External/jobs"
	httpClient.On("Do", urlIs(listURL)).Return(jsonResponse(200, page(20, 0)), nil).Once()
	httpClient.On("Do", urlIs(listURL)).Return(jsonResponse(200, page(5, 20)), nil).Once()

	client := NewClient(0)
	client.SetHTTPClient(httpClient)

	postings, err := client.Workday(context.Background(), board, "Acme")
	require.NoError(t, err)
	assert.Len(postings, 25)
	assert.Equal("https://acme.wd5.myworkdayjobs.com/External/job/Remote/Engineer_Ra", postings[0].URL)
	assert.False(postings[0].HasDetails())
	httpClient.AssertNumberOfCalls(t, "Do", 2)

	httpClient.On("Do", urlIs("https://acme.wd5.myworkdayjobs.com/wday/cxs/acme/External/job/Remote/Engineer_Ra")).
		Return(jsonResponse(200, `{"jobPostingInfo": {"title": "Engineer", "location": "Remote",
			"postedOn": "Posted Today", "timeType": "Full time", "jobDescription": "<p>Go and Python</p>"}}`), nil)

	detail, err := client.WorkdayPosting(context.Background(), board, postings[0].URL)
	require.NoError(t, err)
	assert.Equal("Go and Python", detail.Description)
	assert.True(detail.HasDetails())

	_, err = client.WorkdayPosting(context.Background(), board, "https://acme.wd5.myworkdayjobs.com/External")
	assert.Error(err)
}

func Test_Client_ShouldReturnHTTPError(t *testing.T) {
	httpClient := &mockHTTPClient{}
	resp := jsonResponse(429, `{}`)
	resp.Header.Set("Retry-After", "30")
	httpClient.On("Do", mock.Anything).Return(resp, nil)

	client := NewClient(0)
	client.SetHTTPClient(httpClient)

	_, err := client.Greenhouse(context.Background(), "acme", "Acme")

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 429, httpErr.StatusCode)
	assert.True(t, httpErr.Temporary())
	assert.Equal(t, "30s", httpErr.RetryAfter.String())
}
