package scraper

import (
	"context"
	"fmt"

	"github.com/maxaizer/job-finder/internal/entities"
	"github.com/pkg/errors"
)

var (
	ErrUnsupportedSourceType = errors.New("unsupported source type")
	ErrInvalidSourceConfig   = errors.New("invalid source config")
)

// Scraper lists the current postings of a source.
type Scraper interface {
	Scrape(ctx context.Context, source entities.Source) ([]entities.Posting, error)
}

// PostingFetcher is implemented by scrapers whose listings lack descriptions
// and that know how to fetch a single posting through their API.
type PostingFetcher interface {
	FetchPosting(ctx context.Context, source entities.Source, url string) (entities.Posting, error)
}

type Registry struct {
	scrapers map[entities.SourceType]Scraper
}

func NewRegistry() *Registry {
	return &Registry{scrapers: map[entities.SourceType]Scraper{}}
}

func (r *Registry) Register(sourceType entities.SourceType, scraper Scraper) {
	r.scrapers[sourceType] = scraper
}

func (r *Registry) Get(sourceType entities.SourceType) (Scraper, error) {
	scraper, ok := r.scrapers[sourceType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSourceType, sourceType)
	}
	return scraper, nil
}

func (r *Registry) Scrape(ctx context.Context, source entities.Source) ([]entities.Posting, error) {
	scraper, err := r.Get(source.SourceType)
	if err != nil {
		return nil, err
	}
	return scraper.Scrape(ctx, source)
}

// FetchPosting returns ok=false when the source type has no API for single
// postings and the page has to be scraped instead.
func (r *Registry) FetchPosting(ctx context.Context, source entities.Source, url string) (posting entities.Posting, ok bool, err error) {
	scraper, err := r.Get(source.SourceType)
	if err != nil {
		return entities.Posting{}, false, err
	}
	fetcher, ok := scraper.(PostingFetcher)
	if !ok {
		return entities.Posting{}, false, nil
	}
	posting, err = fetcher.FetchPosting(ctx, source, url)
	return posting, true, err
}

func requireConfig(source entities.Source, keys ...string) error {
	for _, key := range keys {
		if source.Config[key] == "" {
			return fmt.Errorf("%w: %s source %d has no %q", ErrInvalidSourceConfig, source.SourceType, source.ID, key)
		}
	}
	return nil
}
