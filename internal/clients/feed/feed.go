package feed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/maxaizer/job-finder/internal/clients/web"
	"github.com/maxaizer/job-finder/internal/entities"
	"github.com/mmcdole/gofeed"
)

type pageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Reader turns RSS and Atom job feeds into postings.
type Reader struct {
	fetcher pageFetcher
	parser  *gofeed.Parser
}

func NewReader(fetcher pageFetcher) *Reader {
	return &Reader{fetcher: fetcher, parser: gofeed.NewParser()}
}

func (r *Reader) Postings(ctx context.Context, feedURL, companyName string) ([]entities.Posting, error) {
	raw, err := r.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("feed fetch for %s: %w", feedURL, err)
	}

	parsed, err := r.parser.ParseString(raw)
	if err != nil {
		return nil, fmt.Errorf("feed parse for %s: %w", feedURL, err)
	}

	postings := make([]entities.Posting, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item.Link == "" {
			continue
		}

		description := item.Content
		if description == "" {
			description = item.Description
		}

		var posted string
		switch {
		case item.PublishedParsed != nil:
			posted = item.PublishedParsed.UTC().Format(time.RFC3339)
		case item.UpdatedParsed != nil:
			posted = item.UpdatedParsed.UTC().Format(time.RFC3339)
		}

		company := companyName
		if company == "" && item.Author != nil {
			company = item.Author.Name
		}

		postings = append(postings, entities.Posting{
			URL:         strings.TrimSpace(item.Link),
			Title:       strings.TrimSpace(item.Title),
			Company:     company,
			Description: web.HTMLToText(description),
			PostedDate:  posted,
			Source:      string(entities.SourceRSS),
		})
	}
	return postings, nil
}
