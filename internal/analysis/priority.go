package analysis

import (
	"github.com/maxaizer/job-finder/internal/filter"
)

// Points a company earns per technology of its stack.
const (
	requiredTechPoints   = 40
	preferredTechPoints  = 20
	disfavoredTechPoints = -15
	remoteFriendlyPoints = 30
)

// PriorityScore rates an employer by how well its tech stack fits the
// technology ranks. The score never goes below zero; its tier follows from
// entities.TierForScore.
func PriorityScore(info CompanyInfo, ranks filter.TechnologyRanks) int {
	score := 0
	for name, tech := range ranks.Technologies {
		if !stackMentions(info.TechStack, name) {
			continue
		}
		switch tech.Rank {
		case filter.RankRequired:
			score += requiredTechPoints
		case filter.RankPreferred:
			score += preferredTechPoints
		case filter.RankDisfavored:
			score += disfavoredTechPoints
		}
	}
	if info.RemoteFriendly {
		score += remoteFriendlyPoints
	}
	return max(score, 0)
}

func stackMentions(stack []string, tech string) bool {
	for _, entry := range stack {
		if filter.MatchesTechnology(entry, tech) {
			return true
		}
	}
	return false
}
