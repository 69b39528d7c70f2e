package scraper

import (
	"context"
	"fmt"

	"github.com/maxaizer/job-finder/internal/clients/web"
	"github.com/maxaizer/job-finder/internal/entities"
)

type pageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Generic scrapes a career page with the CSS selectors stored in the source
// config under the "list." prefix.
type Generic struct {
	fetcher pageFetcher
}

func NewGeneric(fetcher pageFetcher) *Generic {
	return &Generic{fetcher: fetcher}
}

func ListSelectorsOf(source entities.Source) web.ListSelectors {
	list := source.Config.WithPrefix(entities.ConfigListPrefix)
	return web.ListSelectors{
		Item:        list["item"],
		Title:       list["title"],
		Link:        list["link"],
		Location:    list["location"],
		PostedDate:  list["postedDate"],
		Description: list["description"],
	}
}

func (s *Generic) Scrape(ctx context.Context, source entities.Source) ([]entities.Posting, error) {
	selectors := ListSelectorsOf(source)
	if !selectors.Valid() {
		return nil, fmt.Errorf("%w: generic source %d has no list selectors", ErrInvalidSourceConfig, source.ID)
	}

	page, err := s.fetcher.Fetch(ctx, source.URL)
	if err != nil {
		return nil, err
	}

	postings, err := web.ExtractList(page, source.URL, selectors)
	if err != nil {
		return nil, err
	}
	for i := range postings {
		postings[i].Company = source.CompanyName()
		postings[i].Source = string(entities.SourceGeneric)
	}
	return postings, nil
}
