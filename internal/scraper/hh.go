package scraper

import (
	"context"

	"github.com/maxaizer/job-finder/internal/entities"
)

type hhClient interface {
	EmployerPostings(ctx context.Context, employerID string, maxVacancies int) ([]entities.Posting, error)
	Posting(ctx context.Context, vacancyURL string) (entities.Posting, error)
}

// HH scrapes the open vacancies of an hh.ru employer.
type HH struct {
	client       hhClient
	maxVacancies int
}

func NewHH(client hhClient, maxVacancies int) *HH {
	return &HH{client: client, maxVacancies: maxVacancies}
}

func (s *HH) Scrape(ctx context.Context, source entities.Source) ([]entities.Posting, error) {
	if err := requireConfig(source, entities.ConfigEmployerID); err != nil {
		return nil, err
	}
	return s.client.EmployerPostings(ctx, source.Config[entities.ConfigEmployerID], s.maxVacancies)
}

func (s *HH) FetchPosting(ctx context.Context, _ entities.Source, url string) (entities.Posting, error) {
	return s.client.Posting(ctx, url)
}
