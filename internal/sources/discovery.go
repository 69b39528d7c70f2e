package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/maxaizer/job-finder/internal/analysis"
	"github.com/maxaizer/job-finder/internal/clients/web"
	"github.com/maxaizer/job-finder/internal/entities"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type sourceStore interface {
	GetByURL(ctx context.Context, url string) (*entities.Source, error)
	Add(ctx context.Context, source *entities.Source) error
}

type companyStore interface {
	GetByName(ctx context.Context, name string) (*entities.Company, error)
}

type sourceScraper interface {
	Scrape(ctx context.Context, source entities.Source) ([]entities.Posting, error)
}

type pageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type selectorSuggester interface {
	SuggestSelectors(ctx context.Context, pageURL, page string) (analysis.SelectorSuggestion, error)
}

type DiscoveryRequest struct {
	URL         string
	Hint        string
	CompanyName string
}

type DiscoveryResult struct {
	Source  *entities.Source
	Created bool
	// Reason explains why a created source was left disabled.
	Reason string
}

// Discovery turns a careers URL into a stored source. Sources are enabled only
// after a live validation returned at least one posting; generic sources also
// need high selector confidence.
type Discovery struct {
	sources   sourceStore
	companies companyStore
	scrapers  sourceScraper
	fetcher   pageFetcher
	suggester selectorSuggester
}

func NewDiscovery(sources sourceStore, companies companyStore, scrapers sourceScraper, fetcher pageFetcher,
	suggester selectorSuggester) *Discovery {
	return &Discovery{
		sources:   sources,
		companies: companies,
		scrapers:  scrapers,
		fetcher:   fetcher,
		suggester: suggester,
	}
}

// Discover returns the existing source when the URL is already registered.
// Temporary failures while validating are returned so the caller can retry.
func (d *Discovery) Discover(ctx context.Context, req DiscoveryRequest) (DiscoveryResult, error) {
	existing, err := d.sources.GetByURL(ctx, req.URL)
	if err != nil {
		return DiscoveryResult{}, err
	}
	if existing != nil {
		return DiscoveryResult{Source: existing}, nil
	}

	detection := Detect(req.URL, req.Hint)
	source := &entities.Source{
		Name:       sourceName(req),
		URL:        req.URL,
		SourceType: detection.Type,
		Config:     detection.Config,
		Confidence: detection.Confidence,
	}
	if req.CompanyName != "" {
		source.Config[entities.ConfigCompanyName] = req.CompanyName
		if err = d.linkCompany(ctx, source, req.CompanyName); err != nil {
			return DiscoveryResult{}, err
		}
	}

	var reason string
	if detection.Type == entities.SourceGeneric {
		reason, err = d.validateGeneric(ctx, source)
	} else {
		reason, err = d.validateKnown(ctx, source)
	}
	if err != nil {
		return DiscoveryResult{}, err
	}

	source.Enabled = reason == ""
	if !source.Enabled {
		source.Health.LastError = reason
	}
	if err = d.sources.Add(ctx, source); err != nil {
		return DiscoveryResult{}, err
	}

	log.Infof("discovered %s source %q (%s confidence, enabled: %v) for %s",
		source.SourceType, source.Name, source.Confidence, source.Enabled, source.URL)
	return DiscoveryResult{Source: source, Created: true, Reason: reason}, nil
}

func (d *Discovery) validateKnown(ctx context.Context, source *entities.Source) (string, error) {
	postings, err := d.scrapers.Scrape(ctx, *source)
	if err != nil {
		if isTemporary(err) {
			return "", err
		}
		return fmt.Sprintf("validation failed: %v", err), nil
	}
	if len(postings) == 0 {
		return "validation returned no postings", nil
	}
	return "", nil
}

func (d *Discovery) validateGeneric(ctx context.Context, source *entities.Source) (string, error) {
	page, err := d.fetcher.Fetch(ctx, source.URL)
	if err != nil {
		return "", err
	}

	suggestion, err := d.suggester.SuggestSelectors(ctx, source.URL, page)
	if err != nil {
		return "", err
	}

	source.Confidence = suggestion.Confidence
	for key, selector := range selectorConfig(suggestion) {
		source.Config[key] = selector
	}

	if !suggestion.List.Valid() {
		return "no usable list selectors", nil
	}
	postings, err := web.ExtractList(page, source.URL, suggestion.List)
	if err != nil {
		return fmt.Sprintf("selectors failed: %v", err), nil
	}
	if len(postings) == 0 {
		return "selectors matched no postings", nil
	}
	if suggestion.Confidence != entities.ConfidenceHigh {
		return fmt.Sprintf("%s confidence selectors need manual validation", suggestion.Confidence), nil
	}
	return "", nil
}

func (d *Discovery) linkCompany(ctx context.Context, source *entities.Source, name string) error {
	company, err := d.companies.GetByName(ctx, name)
	if err != nil {
		return err
	}
	if company != nil {
		source.CompanyID = &company.ID
	}
	return nil
}

func selectorConfig(s analysis.SelectorSuggestion) map[string]string {
	config := map[string]string{}
	list := map[string]string{
		"item":        s.List.Item,
		"title":       s.List.Title,
		"link":        s.List.Link,
		"location":    s.List.Location,
		"postedDate":  s.List.PostedDate,
		"description": s.List.Description,
	}
	for field, selector := range list {
		if selector != "" {
			config[entities.ConfigListPrefix+field] = selector
		}
	}
	for field, selector := range s.Detail {
		if strings.TrimSpace(selector) != "" {
			config[entities.ConfigDetailPrefix+field] = selector
		}
	}
	return config
}

func sourceName(req DiscoveryRequest) string {
	if req.CompanyName != "" {
		return req.CompanyName
	}
	if u, err := url.Parse(req.URL); err == nil && u.Host != "" {
		return strings.TrimPrefix(u.Hostname(), "www.")
	}
	return req.URL
}

func isTemporary(err error) bool {
	var temporary interface{ Temporary() bool }
	if errors.As(err, &temporary) {
		return temporary.Temporary()
	}
	return errors.Is(err, context.DeadlineExceeded)
}
