package pipeline

import (
	"context"
	"fmt"
	"net/url"

	"github.com/maxaizer/job-finder/internal/dedup"
	"github.com/maxaizer/job-finder/internal/entities"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

var (
	ErrInvalidURL     = errors.New("invalid url")
	ErrAlreadyQueued  = errors.New("url is already queued or saved")
	ErrUnknownSource  = errors.New("unknown source")
	ErrInvalidRequest = errors.New("invalid scrape request")
)

type intakeQueue interface {
	Add(ctx context.Context, item *entities.QueueItem) error
	HasActiveScrapeRequest(ctx context.Context) (bool, error)
}

type intakeSettings interface {
	QueueSettings(ctx context.Context) (entities.QueueSettings, error)
}

type sourceLookup interface {
	GetByIDs(ctx context.Context, ids []uint) ([]entities.Source, error)
}

// Intake creates root queue items. Every submission starts a new lineage with
// its own tracking id.
type Intake struct {
	queue    intakeQueue
	dedup    dedupChecker
	settings intakeSettings
	sources  sourceLookup
}

func NewIntake(queue intakeQueue, checker dedupChecker, settings intakeSettings, sources sourceLookup) *Intake {
	return &Intake{queue: queue, dedup: checker, settings: settings, sources: sources}
}

type Submission struct {
	URL         string
	CompanyName string
	Origin      entities.SubmissionOrigin
	// ScoreThreshold overrides minMatchScore for this posting.
	ScoreThreshold *int
	// SourceHint is passed to the detector of a source discovery.
	SourceHint string
}

// SubmitPosting queues a single posting URL. ErrAlreadyQueued is returned for
// URLs seen in the queue or the results.
func (in *Intake) SubmitPosting(ctx context.Context, sub Submission) (*entities.QueueItem, error) {
	normalized, err := normalizeSubmittedURL(sub.URL)
	if err != nil {
		return nil, err
	}
	exists, err := in.dedup.Exists(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyQueued, normalized)
	}

	state := entities.PipelineState{}
	if sub.ScoreThreshold != nil {
		if err = validateScore(*sub.ScoreThreshold); err != nil {
			return nil, err
		}
		state[entities.StateScoreThreshold] = float64(*sub.ScoreThreshold)
	}

	item, err := in.add(ctx, entities.KindPosting, normalized, sub, state)
	if err != nil {
		return nil, err
	}
	in.dedup.MarkSeen(normalized)
	return item, nil
}

// SubmitEmployer queues the analysis of a company page.
func (in *Intake) SubmitEmployer(ctx context.Context, sub Submission) (*entities.QueueItem, error) {
	normalized, err := normalizeSubmittedURL(sub.URL)
	if err != nil {
		return nil, err
	}
	return in.add(ctx, entities.KindEmployer, normalized, sub, entities.PipelineState{})
}

// SubmitSourceDiscovery queues the detection and validation of a careers URL.
func (in *Intake) SubmitSourceDiscovery(ctx context.Context, sub Submission) (*entities.QueueItem, error) {
	normalized, err := normalizeSubmittedURL(sub.URL)
	if err != nil {
		return nil, err
	}
	state := entities.PipelineState{}
	if sub.SourceHint != "" {
		state[entities.StateSourceHint] = sub.SourceHint
	}
	return in.add(ctx, entities.KindSourceDiscovery, normalized, sub, state)
}

type TriggerRequest struct {
	// TargetMatches caps the postings the request queues. 0 means no cap.
	TargetMatches int
	// MaxSources caps the due sources scraped when SourceIDs is empty. Zero
	// falls back to the scheduler limit per pass.
	MaxSources     int
	SourceIDs      []uint
	ScoreThreshold *int
	// Force skips the check for a scrape request that is already pending.
	Force  bool
	Origin entities.SubmissionOrigin
}

// TriggerScrape queues a SCRAPE_REQUEST. Unless Force is set it fails with
// ErrScrapeAlreadyPending while another request is pending or running.
func (in *Intake) TriggerScrape(ctx context.Context, req TriggerRequest) (*entities.QueueItem, error) {
	if req.TargetMatches < 0 || req.MaxSources < 0 {
		return nil, fmt.Errorf("%w: negative limits", ErrInvalidRequest)
	}

	state := entities.PipelineState{}
	if req.TargetMatches > 0 {
		state[entities.StateTargetMatches] = float64(req.TargetMatches)
	}
	if req.MaxSources > 0 {
		state[entities.StateMaxSources] = float64(req.MaxSources)
	}
	if req.ScoreThreshold != nil {
		if err := validateScore(*req.ScoreThreshold); err != nil {
			return nil, err
		}
		state[entities.StateScoreThreshold] = float64(*req.ScoreThreshold)
	}

	if len(req.SourceIDs) > 0 {
		ids := lo.Uniq(req.SourceIDs)
		found, err := in.sources.GetByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		known := lo.Map(found, func(s entities.Source, _ int) uint { return s.ID })
		if missing, _ := lo.Difference(ids, known); len(missing) > 0 {
			return nil, fmt.Errorf("%w: %v", ErrUnknownSource, missing)
		}
		state[entities.StateSourceIDs] = lo.Map(ids, func(id uint, _ int) any { return float64(id) })
	}

	if !req.Force {
		active, err := in.queue.HasActiveScrapeRequest(ctx)
		if err != nil {
			return nil, err
		}
		if active {
			return nil, ErrScrapeAlreadyPending
		}
	}

	item, err := in.add(ctx, entities.KindScrapeRequest, "", Submission{Origin: req.Origin}, state)
	if err != nil {
		return nil, err
	}
	log.Infof("scrape request %d queued (target matches: %d, max sources: %d, sources: %v, force: %v)",
		item.ID, req.TargetMatches, req.MaxSources, req.SourceIDs, req.Force)
	return item, nil
}

func (in *Intake) add(ctx context.Context, kind entities.ItemKind, itemURL string, sub Submission,
	state entities.PipelineState) (*entities.QueueItem, error) {

	settings, err := in.settings.QueueSettings(ctx)
	if err != nil {
		return nil, err
	}

	item := &entities.QueueItem{
		Kind:             kind,
		SubTask:          kind.FirstStage(),
		Status:           entities.StatusPending,
		URL:              itemURL,
		CompanyName:      sub.CompanyName,
		SubmissionOrigin: lo.Ternary(sub.Origin != "", sub.Origin, entities.OriginUser),
		PipelineState:    state,
		MaxRetries:       settings.MaxRetries,
	}
	if err = in.queue.Add(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func normalizeSubmittedURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return dedup.NormalizeURL(raw), nil
}

func validateScore(score int) error {
	if score < 0 || score > 100 {
		return fmt.Errorf("%w: score threshold %d is outside 0..100", ErrInvalidRequest, score)
	}
	return nil
}
