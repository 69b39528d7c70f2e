package ats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/maxaizer/job-finder/internal/entities"
)

type leverCategories struct {
	Location     string   `json:"location"`
	Commitment   string   `json:"commitment"`
	AllLocations []string `json:"allLocations"`
}

type leverSalaryRange struct {
	Currency string  `json:"currency"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

type leverJob struct {
	ID               string            `json:"id"`
	Text             string            `json:"text"`
	DescriptionPlain string            `json:"descriptionPlain"`
	AdditionalPlain  string            `json:"additionalPlain"`
	Categories       leverCategories   `json:"categories"`
	CreatedAt        int64             `json:"createdAt"`
	WorkplaceType    string            `json:"workplaceType"`
	HostedURL        string            `json:"hostedUrl"`
	SalaryRange      *leverSalaryRange `json:"salaryRange"`
}

func (c *Client) Lever(ctx context.Context, companySlug, companyName string) ([]entities.Posting, error) {
	url := fmt.Sprintf("%s/%s?mode=json", leverBaseURL, companySlug)

	var jobs []leverJob
	if err := c.getJSON(ctx, url, &jobs); err != nil {
		return nil, fmt.Errorf("lever fetch for %s: %w", companySlug, err)
	}

	postings := make([]entities.Posting, 0, len(jobs))
	for _, job := range jobs {
		location := job.Categories.Location
		if len(job.Categories.AllLocations) > 0 {
			location = strings.Join(job.Categories.AllLocations, ", ")
		}
		if job.WorkplaceType != "" && job.WorkplaceType != "unspecified" {
			location = strings.TrimSpace(location + " (" + job.WorkplaceType + ")")
		}

		var posted string
		if job.CreatedAt > 0 {
			posted = time.UnixMilli(job.CreatedAt).UTC().Format(time.RFC3339)
		}

		var salary string
		if job.SalaryRange != nil && job.SalaryRange.Max > 0 {
			salary = fmt.Sprintf("%.0f-%.0f %s", job.SalaryRange.Min, job.SalaryRange.Max, job.SalaryRange.Currency)
		}

		postings = append(postings, entities.Posting{
			URL:         job.HostedURL,
			Title:       job.Text,
			Company:     companyName,
			Location:    location,
			Description: strings.TrimSpace(job.DescriptionPlain + "\n" + job.AdditionalPlain),
			Salary:      salary,
			PostedDate:  posted,
			JobType:     job.Categories.Commitment,
			Source:      string(entities.SourceLever),
		})
	}
	return postings, nil
}
