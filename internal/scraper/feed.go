package scraper

import (
	"context"

	"github.com/maxaizer/job-finder/internal/entities"
)

type feedReader interface {
	Postings(ctx context.Context, feedURL, companyName string) ([]entities.Posting, error)
}

type Feed struct{ reader feedReader }

func NewFeed(reader feedReader) *Feed { return &Feed{reader: reader} }

func (s *Feed) Scrape(ctx context.Context, source entities.Source) ([]entities.Posting, error) {
	url := source.Config[entities.ConfigFeedURL]
	if url == "" {
		url = source.URL
	}
	return s.reader.Postings(ctx, url, source.Config[entities.ConfigCompanyName])
}
