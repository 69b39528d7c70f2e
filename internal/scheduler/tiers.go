package scheduler

import (
	"sort"
	"time"

	"github.com/maxaizer/job-finder/internal/entities"
)

const day = 24 * time.Hour

var rescrapeIntervals = map[entities.Tier]time.Duration{
	entities.TierS: 1 * day,
	entities.TierA: 2 * day,
	entities.TierB: 7 * day,
	entities.TierC: 14 * day,
	entities.TierD: 30 * day,
}

// RescrapeInterval returns how long a source of the given company tier rests
// between scrapes. Unknown tiers are treated as D.
func RescrapeInterval(tier entities.Tier) time.Duration {
	if interval, ok := rescrapeIntervals[tier]; ok {
		return interval
	}
	return rescrapeIntervals[entities.TierD]
}

// IsDue reports whether a source has never been scraped or its tier interval
// has elapsed.
func IsDue(health entities.SourceHealth, tier entities.Tier, now time.Time) bool {
	if health.LastScrapedAt == nil {
		return true
	}
	return !now.Before(health.LastScrapedAt.Add(RescrapeInterval(tier)))
}

// Candidate is a source together with the tier of its company.
type Candidate struct {
	Source entities.Source
	Tier   entities.Tier
}

// SelectDue returns the due candidates ordered by tier (S first) and then by
// staleness, never-scraped sources first. limit <= 0 means no limit.
func SelectDue(candidates []Candidate, now time.Time, limit int) []Candidate {
	var due []Candidate
	for _, c := range candidates {
		if IsDue(c.Source.Health, c.Tier, now) {
			due = append(due, c)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		a, b := due[i], due[j]
		if a.Tier.Rank() != b.Tier.Rank() {
			return a.Tier.Rank() < b.Tier.Rank()
		}
		la, lb := a.Source.Health.LastScrapedAt, b.Source.Health.LastScrapedAt
		switch {
		case la == nil && lb == nil:
			return a.Source.ID < b.Source.ID
		case la == nil:
			return true
		case lb == nil:
			return false
		case !la.Equal(*lb):
			return la.Before(*lb)
		default:
			return a.Source.ID < b.Source.ID
		}
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due
}
