package analysis

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/maxaizer/job-finder/internal/clients/web"
	"github.com/maxaizer/job-finder/internal/entities"
	"github.com/maxaizer/job-finder/internal/filter"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

var (
	//go:embed prompts/posting_match.md
	postingMatchPrompt string
	//go:embed prompts/company_extract.md
	companyExtractPrompt string
	//go:embed prompts/selector_discovery.md
	selectorDiscoveryPrompt string

	postingMatchTemplate      = template.Must(template.New("posting_match").Parse(postingMatchPrompt))
	companyExtractTemplate    = template.Must(template.New("company_extract").Parse(companyExtractPrompt))
	selectorDiscoveryTemplate = template.Must(template.New("selector_discovery").Parse(selectorDiscoveryPrompt))
)

const (
	maxDescriptionRunes = 6000
	maxPageTextRunes    = 8000
	maxMarkupBytes      = 30000
)

type generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error)
}

type Options struct {
	MaxTokens   int
	Temperature float32
}

type Analyzer struct {
	ai   generator
	opts Options
}

func NewAnalyzer(ai generator, opts Options) *Analyzer {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1024
	}
	return &Analyzer{ai: ai, opts: opts}
}

func (a *Analyzer) generate(ctx context.Context, tmpl *template.Template, data any, out any) error {
	var prompt bytes.Buffer
	if err := tmpl.Execute(&prompt, data); err != nil {
		return fmt.Errorf("render prompt %s: %w", tmpl.Name(), err)
	}

	start := time.Now()
	raw, err := a.ai.Generate(ctx, prompt.String(), a.opts.MaxTokens, a.opts.Temperature)
	if err != nil {
		return err
	}
	log.Debugf("%s answered in %v", tmpl.Name(), time.Since(start))

	return DecodeJSON(raw, out)
}

// MatchAnalysis is the AI verdict on a posting that passed the filter.
type MatchAnalysis struct {
	MatchScore int      `json:"matchScore"`
	Summary    string   `json:"summary"`
	Strengths  []string `json:"strengths"`
	Concerns   []string `json:"concerns"`
}

func (a *Analyzer) AnalyzePosting(ctx context.Context, posting entities.Posting, result filter.FilterResult,
	ranks filter.TechnologyRanks) (MatchAnalysis, error) {

	reasons := lo.Map(result.Rejections, func(r filter.Rejection, _ int) string { return r.Reason })

	data := struct {
		Posting     entities.Posting
		Description string
		Required    []string
		Preferred   []string
		Disfavored  []string
		Strikes     int
		Reasons     string
	}{
		Posting:     posting,
		Description: truncate(posting.Description, maxDescriptionRunes),
		Required:    ranks.ByRank(filter.RankRequired),
		Preferred:   ranks.ByRank(filter.RankPreferred),
		Disfavored:  ranks.ByRank(filter.RankDisfavored),
		Strikes:     result.TotalStrikes,
		Reasons:     strings.Join(reasons, "; "),
	}

	var analysis MatchAnalysis
	if err := a.generate(ctx, postingMatchTemplate, data, &analysis); err != nil {
		return MatchAnalysis{}, err
	}
	if analysis.MatchScore < 0 || analysis.MatchScore > 100 {
		return MatchAnalysis{}, fmt.Errorf("%w: match score %d out of range", ErrMalformedResponse, analysis.MatchScore)
	}
	return analysis, nil
}

// CompanyInfo is what the employer pipeline learns from a company page.
type CompanyInfo struct {
	Name           string   `json:"name"`
	Website        string   `json:"website"`
	About          string   `json:"about"`
	TechStack      []string `json:"techStack"`
	RemoteFriendly bool     `json:"remoteFriendly"`
}

func (a *Analyzer) ExtractCompany(ctx context.Context, pageURL, page string) (CompanyInfo, error) {
	data := struct {
		URL  string
		Text string
	}{URL: pageURL, Text: web.PageText(page, maxPageTextRunes)}

	var info CompanyInfo
	if err := a.generate(ctx, companyExtractTemplate, data, &info); err != nil {
		return CompanyInfo{}, err
	}
	if strings.TrimSpace(info.Name) == "" {
		return CompanyInfo{}, fmt.Errorf("%w: company name is empty", ErrMalformedResponse)
	}
	info.TechStack = lo.Uniq(lo.Filter(info.TechStack, func(t string, _ int) bool { return strings.TrimSpace(t) != "" }))
	return info, nil
}

// SelectorSuggestion is the AI proposal for scraping a generic careers page.
type SelectorSuggestion struct {
	List       web.ListSelectors   `json:"list"`
	Detail     map[string]string   `json:"detail"`
	Confidence entities.Confidence `json:"confidence"`
}

func (a *Analyzer) SuggestSelectors(ctx context.Context, pageURL, page string) (SelectorSuggestion, error) {
	markup, err := web.PageMarkup(page, maxMarkupBytes)
	if err != nil {
		return SelectorSuggestion{}, err
	}

	data := struct {
		URL    string
		Markup string
	}{URL: pageURL, Markup: markup}

	var suggestion SelectorSuggestion
	if err := a.generate(ctx, selectorDiscoveryTemplate, data, &suggestion); err != nil {
		return SelectorSuggestion{}, err
	}

	switch suggestion.Confidence {
	case entities.ConfidenceHigh, entities.ConfidenceMedium, entities.ConfidenceLow:
	default:
		suggestion.Confidence = entities.ConfidenceLow
	}
	if !suggestion.List.Valid() {
		suggestion.Confidence = entities.ConfidenceLow
	}
	return suggestion, nil
}

func truncate(s string, limit int) string {
	if runes := []rune(s); len(runes) > limit {
		return string(runes[:limit])
	}
	return s
}
