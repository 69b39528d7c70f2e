package pipeline

import (
	"context"

	"github.com/maxaizer/job-finder/internal/entities"
	"github.com/maxaizer/job-finder/internal/events"
	"github.com/maxaizer/job-finder/internal/sources"
	"github.com/pkg/errors"
)

// DiscoverySummary is the discovery pipeline state of SOURCE_DISCOVERY items.
type DiscoverySummary struct {
	SourceID   uint                `json:"sourceId"`
	SourceType entities.SourceType `json:"sourceType"`
	Confidence entities.Confidence `json:"confidence"`
	Enabled    bool                `json:"enabled"`
	Reason     string              `json:"reason,omitempty"`
}

func (s *Stages) discoverSource(ctx context.Context, item *entities.QueueItem) (Outcome, error) {
	if item.URL == "" {
		return Outcome{}, DataIntegrity(errors.New("source discovery item has no url"))
	}
	hint, _ := item.PipelineState.String(entities.StateSourceHint)

	result, err := s.Discovery.Discover(ctx, sources.DiscoveryRequest{
		URL:         item.URL,
		Hint:        hint,
		CompanyName: item.CompanyName,
	})
	if err != nil {
		return Outcome{}, err
	}

	source := result.Source
	summary := DiscoverySummary{
		SourceID:   source.ID,
		SourceType: source.SourceType,
		Confidence: source.Confidence,
		Enabled:    source.Enabled,
		Reason:     result.Reason,
	}
	state, err := encodeState(map[string]any{
		entities.StateDiscovery: summary,
		entities.StateSourceID:  source.ID,
	})
	if err != nil {
		return Outcome{}, err
	}

	if !result.Created {
		return Finish(entities.StatusSkipped, "source is already registered", state), nil
	}

	s.Bus.Publish(events.SourceDiscoveredTopic, events.SourceDiscovered{
		SourceID:   source.ID,
		Name:       source.Name,
		URL:        source.URL,
		SourceType: string(source.SourceType),
		Enabled:    source.Enabled,
		Reason:     result.Reason,
	})

	message := "source enabled"
	if !source.Enabled {
		message = "source stored disabled: " + result.Reason
	}
	return Finish(entities.StatusSuccess, message, state), nil
}
