package ats

import (
	"context"
	"fmt"

	"github.com/maxaizer/job-finder/internal/clients/web"
	"github.com/maxaizer/job-finder/internal/entities"
)

type greenhouseJob struct {
	ID             int64              `json:"id"`
	Title          string             `json:"title"`
	Location       greenhouseLocation `json:"location"`
	AbsoluteURL    string             `json:"absolute_url"`
	UpdatedAt      string             `json:"updated_at"`
	FirstPublished string             `json:"first_published"`
	Content        string             `json:"content"`
}

type greenhouseLocation struct {
	Name string `json:"name"`
}

type greenhouseResponse struct {
	Jobs []greenhouseJob `json:"jobs"`
}

// Greenhouse lists every posting of a board, descriptions included.
func (c *Client) Greenhouse(ctx context.Context, boardToken, companyName string) ([]entities.Posting, error) {
	url := fmt.Sprintf("%s/%s/jobs?content=true", greenhouseBaseURL, boardToken)

	var resp greenhouseResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("greenhouse fetch for %s: %w", boardToken, err)
	}

	postings := make([]entities.Posting, 0, len(resp.Jobs))
	for _, job := range resp.Jobs {
		posted := job.FirstPublished
		if posted == "" {
			posted = job.UpdatedAt
		}
		postings = append(postings, entities.Posting{
			URL:         job.AbsoluteURL,
			Title:       job.Title,
			Company:     companyName,
			Location:    job.Location.Name,
			Description: web.HTMLToText(job.Content),
			PostedDate:  posted,
			Source:      string(entities.SourceGreenhouse),
		})
	}
	return postings, nil
}
