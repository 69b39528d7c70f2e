package hh

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"

	"github.com/maxaizer/job-finder/internal/entities"
	"golang.org/x/time/rate"
)

const apiURL = "https://api.hh.ru"

var vacancyIDRegex = regexp.MustCompile(`/vacancy/(\d+)`)

type getVacanciesResponse struct {
	Vacancies []VacancyPreview `json:"items"`
	Pages     int              `json:"pages"`
}

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	httpClient  HTTPClient
	rateLimiter *rate.Limiter
}

func NewClient() *Client {
	return &Client{httpClient: &http.Client{}}
}

func (c *Client) SetHTTPClient(client HTTPClient) {
	c.httpClient = client
}

func (c *Client) SetRateLimit(maxRequestsPerSecond float64) {
	c.rateLimiter = rate.NewLimiter(rate.Limit(maxRequestsPerSecond), 1)
}

// ListVacancies returns one page of previews and the total page count.
func (c *Client) ListVacancies(ctx context.Context, query EmployerQuery) ([]VacancyPreview, int, error) {

	if err := query.Validate(); err != nil {
		return nil, 0, fmt.Errorf("invalid query: %w", err)
	}

	body, err := c.sendRequest(ctx, "GET", apiURL+"/vacancies?"+query.values().Encode(), nil)
	if err != nil {
		return nil, 0, err
	}

	var vacanciesResponse getVacanciesResponse
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&vacanciesResponse); err != nil {
		return nil, 0, fmt.Errorf("error decoding JSON response: %w", err)
	}

	return vacanciesResponse.Vacancies, vacanciesResponse.Pages, nil
}

func (c *Client) GetVacancy(ctx context.Context, id string) (Vacancy, error) {

	body, err := c.sendRequest(ctx, "GET", apiURL+"/vacancies/"+id, nil)
	if err != nil {
		return Vacancy{}, err
	}

	var vacancyResponse Vacancy
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&vacancyResponse); err != nil {
		return Vacancy{}, fmt.Errorf("error decoding JSON response: %w", err)
	}

	return vacancyResponse, nil
}

// EmployerPostings pages through the open vacancies of an employer. Previews
// carry no description, so the postings need a detail fetch before filtering.
func (c *Client) EmployerPostings(ctx context.Context, employerID string, maxVacancies int) ([]entities.Posting, error) {
	perPage := 100
	var postings []entities.Posting

	for page := 0; ; page++ {
		previews, pages, err := c.ListVacancies(ctx, EmployerQuery{
			EmployerID: employerID,
			Page:       page,
			PerPage:    perPage,
		})
		if err != nil {
			return nil, fmt.Errorf("hh fetch for employer %s: %w", employerID, err)
		}

		for _, preview := range previews {
			postings = append(postings, preview.ToPosting())
			if maxVacancies > 0 && len(postings) >= maxVacancies {
				return postings, nil
			}
		}

		if len(previews) == 0 || page+1 >= pages || (page+2)*perPage > maxResults {
			return postings, nil
		}
	}
}

// Posting fetches the full vacancy behind an hh.ru vacancy URL.
func (c *Client) Posting(ctx context.Context, vacancyURL string) (entities.Posting, error) {
	m := vacancyIDRegex.FindStringSubmatch(vacancyURL)
	if m == nil {
		return entities.Posting{}, fmt.Errorf("not an hh vacancy url: %s", vacancyURL)
	}

	vacancy, err := c.GetVacancy(ctx, m[1])
	if err != nil {
		return entities.Posting{}, err
	}
	return vacancy.ToPosting(), nil
}

func (c *Client) sendRequest(ctx context.Context, method string, url string, body io.Reader) ([]byte, error) {

	if c.rateLimiter != nil {
		err := c.rateLimiter.Wait(ctx)
		if err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", "job-finder/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	return c.handleResponse(resp)
}

func (c *Client) handleResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %v, body: %v", e.StatusCode, e.Body)
}

func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}
