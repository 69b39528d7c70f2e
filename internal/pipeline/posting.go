package pipeline

import (
	"context"
	"fmt"
	"net/http"

	"github.com/maxaizer/job-finder/internal/analysis"
	"github.com/maxaizer/job-finder/internal/clients/ats"
	"github.com/maxaizer/job-finder/internal/clients/hh"
	"github.com/maxaizer/job-finder/internal/clients/web"
	"github.com/maxaizer/job-finder/internal/entities"
	"github.com/maxaizer/job-finder/internal/events"
	"github.com/maxaizer/job-finder/internal/filter"
	"github.com/maxaizer/job-finder/internal/metrics"
	"github.com/maxaizer/job-finder/internal/repositories"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const (
	maxPostingTextRunes = 20000
	// pageTitleField holds the <title> text, used when the title selector
	// finds nothing.
	pageTitleField = "pageTitle"
)

var defaultDetailSelectors = map[string]string{
	web.FieldTitle: "h1",
}

// scrapePosting makes sure postingData carries a title and a description.
// Listings that already do are passed straight to FILTER.
func (s *Stages) scrapePosting(ctx context.Context, item *entities.QueueItem) (Outcome, error) {
	var listed entities.Posting
	if item.PipelineState.Has(entities.StatePostingData) {
		if err := decodeState(item, entities.StatePostingData, &listed); err != nil {
			return Outcome{}, err
		}
		if listed.HasDetails() {
			return Advance(entities.SubTaskFilter, nil), nil
		}
	}
	if item.URL == "" {
		return Outcome{}, DataIntegrity(errors.New("posting item has no url"))
	}

	posting, err := s.fetchPosting(ctx, item)
	if err != nil {
		if isGone(err) {
			return Finish(entities.StatusSkipped, "posting is no longer available", nil), nil
		}
		return Outcome{}, err
	}
	posting = mergeListing(posting, listed)
	if posting.Company == "" {
		posting.Company = item.CompanyName
	}

	state, err := encodeState(map[string]any{entities.StatePostingData: posting})
	if err != nil {
		return Outcome{}, err
	}
	if !posting.HasDetails() {
		return Finish(entities.StatusSkipped, "no title or description found on the posting page", state), nil
	}
	return Advance(entities.SubTaskFilter, state), nil
}

func (s *Stages) fetchPosting(ctx context.Context, item *entities.QueueItem) (entities.Posting, error) {
	source, err := s.itemSource(ctx, item)
	if err != nil {
		return entities.Posting{}, err
	}

	if source != nil {
		posting, ok, err := s.Scrapers.FetchPosting(ctx, *source, item.URL)
		if ok {
			return posting, err
		}
		if err != nil {
			log.Debugf("no posting api for source %d: %v", source.ID, err)
		}
	}

	page, err := s.Fetcher.Fetch(ctx, item.URL)
	if err != nil {
		return entities.Posting{}, err
	}

	selectors := defaultDetailSelectors
	if item.PipelineState.Has(entities.StateSelectors) {
		selectors = map[string]string{}
		if err = decodeState(item, entities.StateSelectors, &selectors); err != nil {
			return entities.Posting{}, err
		}
	}
	fields, err := web.Extract(page, lo.Assign(selectors, map[string]string{pageTitleField: "title"}))
	if err != nil {
		return entities.Posting{}, DataIntegrity(err)
	}

	posting := web.PostingFromFields(item.URL, fields)
	if posting.Title == "" && fields[pageTitleField] != nil {
		posting.Title = *fields[pageTitleField]
	}
	if posting.Description == "" {
		posting.Description = web.PageText(page, maxPostingTextRunes)
	}
	posting.Source = string(entities.SourceGeneric)
	return posting, nil
}

// itemSource returns the source the item was scraped from, or nil for items
// submitted directly or whose source was removed.
func (s *Stages) itemSource(ctx context.Context, item *entities.QueueItem) (*entities.Source, error) {
	id, ok := item.PipelineState.Int(entities.StateSourceID)
	if !ok || id <= 0 {
		return nil, nil
	}
	source, err := s.Sources.GetByID(ctx, uint(id))
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	return source, err
}

// mergeListing fills fields the detail page lacked from the listing entry.
func mergeListing(posting, listed entities.Posting) entities.Posting {
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&posting.Title, listed.Title)
	fill(&posting.Company, listed.Company)
	fill(&posting.Location, listed.Location)
	fill(&posting.Description, listed.Description)
	fill(&posting.Salary, listed.Salary)
	fill(&posting.PostedDate, listed.PostedDate)
	fill(&posting.JobType, listed.JobType)
	fill(&posting.Source, listed.Source)
	return posting
}

// isGone reports a removed posting: 404 or 410 from any of the clients.
func isGone(err error) bool {
	gone := func(code int) bool { return code == http.StatusNotFound || code == http.StatusGone }

	var webErr *web.HTTPError
	if errors.As(err, &webErr) {
		return gone(webErr.StatusCode)
	}
	var atsErr *ats.HTTPError
	if errors.As(err, &atsErr) {
		return gone(atsErr.StatusCode)
	}
	var hhErr *hh.StatusError
	if errors.As(err, &hhErr) {
		return gone(hhErr.StatusCode)
	}
	return false
}

func (s *Stages) filterPosting(ctx context.Context, item *entities.QueueItem) (Outcome, error) {
	var posting entities.Posting
	if err := decodeState(item, entities.StatePostingData, &posting); err != nil {
		return Outcome{}, err
	}

	cfg, err := s.Settings.FilterConfig(ctx)
	if err != nil {
		return Outcome{}, err
	}
	result := filter.NewEngine(cfg, filter.WithClock(s.now)).Evaluate(posting)

	for _, rejection := range result.Rejections {
		metrics.FilterRejectionsCounter.WithLabelValues(string(rejection.Category), string(rejection.Severity)).Inc()
	}

	state, err := encodeState(map[string]any{entities.StateFilterResult: result})
	if err != nil {
		return Outcome{}, err
	}
	if !result.Passed {
		return Finish(entities.StatusFiltered, filterMessage(result), state), nil
	}
	return Advance(entities.SubTaskAnalyze, state), nil
}

func filterMessage(result filter.FilterResult) string {
	if rejection, ok := result.HardRejection(); ok {
		return "rejected: " + rejection.Reason
	}
	return fmt.Sprintf("rejected: %d strikes, threshold %d", result.TotalStrikes, result.StrikeThreshold)
}

func (s *Stages) analyzePosting(ctx context.Context, item *entities.QueueItem) (Outcome, error) {
	var posting entities.Posting
	if err := decodeState(item, entities.StatePostingData, &posting); err != nil {
		return Outcome{}, err
	}
	var result filter.FilterResult
	if err := decodeState(item, entities.StateFilterResult, &result); err != nil {
		return Outcome{}, err
	}

	ranks, err := s.Settings.TechnologyRanks(ctx)
	if err != nil {
		return Outcome{}, err
	}
	settings, err := s.Settings.QueueSettings(ctx)
	if err != nil {
		return Outcome{}, err
	}

	match, err := s.Analyzer.AnalyzePosting(ctx, posting, result, ranks)
	if err != nil {
		return Outcome{}, err
	}

	state, err := encodeState(map[string]any{entities.StateAnalysis: match})
	if err != nil {
		return Outcome{}, err
	}

	threshold := settings.MinMatchScore
	if override, ok := item.PipelineState.Int(entities.StateScoreThreshold); ok {
		threshold = override
	}
	if match.MatchScore < threshold {
		return Finish(entities.StatusSkipped,
			fmt.Sprintf("match score %d is below %d", match.MatchScore, threshold), state), nil
	}
	return Advance(entities.SubTaskSave, state), nil
}

func (s *Stages) savePosting(ctx context.Context, item *entities.QueueItem) (Outcome, error) {
	var posting entities.Posting
	if err := decodeState(item, entities.StatePostingData, &posting); err != nil {
		return Outcome{}, err
	}
	var result filter.FilterResult
	if err := decodeState(item, entities.StateFilterResult, &result); err != nil {
		return Outcome{}, err
	}
	var match analysis.MatchAnalysis
	if err := decodeState(item, entities.StateAnalysis, &match); err != nil {
		return Outcome{}, err
	}

	saved := &entities.JobMatch{
		URL:         item.URL,
		Title:       posting.Title,
		CompanyName: posting.Company,
		Location:    posting.Location,
		Salary:      posting.Salary,
		MatchScore:  match.MatchScore,
		Strikes:     result.TotalStrikes,
		Summary:     match.Summary,
		Strengths:   match.Strengths,
		Concerns:    match.Concerns,
		QueueItemID: item.ID,
		TrackingID:  item.TrackingID,
	}
	if err := s.Results.Add(ctx, saved); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return Finish(entities.StatusSkipped, "posting is already saved", nil), nil
		}
		return Outcome{}, err
	}
	s.Dedup.MarkSeen(item.URL)
	metrics.MatchesSavedCounter.Inc()

	s.Bus.Publish(events.MatchSavedTopic, events.MatchSaved{
		MatchID:    saved.ID,
		URL:        saved.URL,
		Title:      saved.Title,
		Company:    saved.CompanyName,
		Location:   saved.Location,
		MatchScore: saved.MatchScore,
		Summary:    saved.Summary,
	})

	return Finish(entities.StatusSuccess, fmt.Sprintf("saved with score %d", saved.MatchScore),
		entities.PipelineState{entities.StateMatchID: float64(saved.ID)}), nil
}
