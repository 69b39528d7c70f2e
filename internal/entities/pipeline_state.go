package entities

import (
	"encoding/json"
	"fmt"
)

// Keys written into QueueItem.PipelineState by the pipeline stages.
const (
	StatePostingData     = "postingData"
	StateFilterResult    = "filterResult"
	StateAnalysis        = "analysis"
	StateSourceID        = "sourceId"
	StateSourceIDs       = "sourceIds"
	StateMaxSources      = "maxSources"
	StateSelectors       = "selectors"
	StateTargetMatches   = "targetMatches"
	StateScoreThreshold  = "scoreThreshold"
	StateScrapeSummary   = "scrapeSummary"
	StateCompanyPage     = "companyPage"
	StateCompanyInfo     = "companyInfo"
	StateCompanyAnalysis = "companyAnalysis"
	StateSourceHint      = "sourceHint"
	StateDiscovery       = "discovery"
	StateMatchID         = "matchId"
	StateCompanyID       = "companyId"
)

// PipelineState is the accumulating payload of a queue item. Values are kept
// JSON-compatible so they survive a round trip through the store.
type PipelineState map[string]any

func (s PipelineState) Has(key string) bool {
	if s == nil {
		return false
	}
	v, ok := s[key]
	return ok && v != nil
}

// Missing returns the keys from required that are absent.
func (s PipelineState) Missing(required ...string) []string {
	var missing []string
	for _, key := range required {
		if !s.Has(key) {
			missing = append(missing, key)
		}
	}
	return missing
}

// Decode unmarshals the value stored under key into out.
func (s PipelineState) Decode(key string, out any) error {
	v, ok := s[key]
	if !ok || v == nil {
		return fmt.Errorf("pipeline state key %q is missing", key)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode pipeline state key %q: %w", key, err)
	}
	if err = json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode pipeline state key %q: %w", key, err)
	}
	return nil
}

// Encode converts v to its JSON form so that in-memory state looks the same as
// state loaded back from the store.
func Encode(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err = json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Merge returns a copy of s with updates applied. Existing keys are never
// removed.
func (s PipelineState) Merge(updates PipelineState) PipelineState {
	merged := make(PipelineState, len(s)+len(updates))
	for k, v := range s {
		merged[k] = v
	}
	for k, v := range updates {
		if v == nil {
			continue
		}
		merged[k] = v
	}
	return merged
}

func (s PipelineState) Int(key string) (int, bool) {
	switch v := s[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case uint:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	default:
		return 0, false
	}
}

// UintSlice reads a list of ids, e.g. sourceIds.
func (s PipelineState) UintSlice(key string) ([]uint, error) {
	if !s.Has(key) {
		return nil, nil
	}
	var ids []uint
	if err := s.Decode(key, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s PipelineState) String(key string) (string, bool) {
	v, ok := s[key].(string)
	return v, ok
}
