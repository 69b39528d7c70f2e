package ats

import (
	"context"
	"fmt"
	"strings"

	"github.com/maxaizer/job-finder/internal/entities"
)

type ashbyCompensation struct {
	CompensationTierSummary string `json:"compensationTierSummary"`
}

type ashbyJob struct {
	Title            string             `json:"title"`
	Location         string             `json:"location"`
	JobURL           string             `json:"jobUrl"`
	PublishedAt      string             `json:"publishedAt"`
	IsListed         bool               `json:"isListed"`
	IsRemote         bool               `json:"isRemote"`
	EmploymentType   string             `json:"employmentType"`
	DescriptionPlain string             `json:"descriptionPlain"`
	Compensation     *ashbyCompensation `json:"compensation"`
}

type ashbyResponse struct {
	Jobs []ashbyJob `json:"jobs"`
}

// Ashby lists the listed postings of a job board. Unlisted postings are skipped.
func (c *Client) Ashby(ctx context.Context, boardToken, companyName string) ([]entities.Posting, error) {
	url := fmt.Sprintf("%s/%s?includeCompensation=true", ashbyBaseURL, boardToken)

	var resp ashbyResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("ashby fetch for %s: %w", boardToken, err)
	}

	postings := make([]entities.Posting, 0, len(resp.Jobs))
	for _, job := range resp.Jobs {
		if !job.IsListed {
			continue
		}

		location := job.Location
		if job.IsRemote && !strings.Contains(strings.ToLower(location), "remote") {
			location = strings.TrimSpace(location + " (Remote)")
		}

		var salary string
		if job.Compensation != nil {
			salary = job.Compensation.CompensationTierSummary
		}

		postings = append(postings, entities.Posting{
			URL:         job.JobURL,
			Title:       job.Title,
			Company:     companyName,
			Location:    location,
			Description: job.DescriptionPlain,
			Salary:      salary,
			PostedDate:  job.PublishedAt,
			JobType:     job.EmploymentType,
			Source:      string(entities.SourceAshby),
		})
	}
	return postings, nil
}
