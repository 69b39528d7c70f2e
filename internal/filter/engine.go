package filter

import (
	"regexp"
	"strings"
	"time"

	"github.com/maxaizer/job-finder/internal/entities"
	log "github.com/sirupsen/logrus"
)

type FilterResult struct {
	Passed          bool        `json:"passed"`
	Rejections      []Rejection `json:"rejections"`
	TotalStrikes    int         `json:"totalStrikes"`
	StrikeThreshold int         `json:"strikeThreshold"`
}

// HardRejection returns the hard rejection of a failed result, if any.
func (r FilterResult) HardRejection() (Rejection, bool) {
	for _, rej := range r.Rejections {
		if rej.Severity == SeverityHardReject {
			return rej, true
		}
	}
	return Rejection{}, false
}

// subject is a posting with the derived fields every rule needs computed once.
type subject struct {
	posting       entities.Posting
	title         string
	text          string
	salary        int
	hasSalary     bool
	experience    int
	hasExperience bool
	ageDays       int
	hasAge        bool
	arrangement   WorkArrangement
}

func newSubject(p entities.Posting, now time.Time) *subject {
	s := &subject{
		posting: p,
		title:   p.Title,
		text:    strings.Join([]string{p.Title, p.Location, p.JobType, p.Description}, "\n"),
	}
	s.salary, s.hasSalary = SalaryOf(p.Salary, p.Description)
	s.experience, s.hasExperience = ParseExperienceYears(p.Description)
	s.ageDays, s.hasAge = PostingAgeDays(p.PostedDate, now)
	s.arrangement = DetectWorkArrangement(strings.Join([]string{p.Title, p.Location, p.Description}, "\n"))
	return s
}

// Engine evaluates postings against a resolved Config. It never touches the
// network or the store, and for a fixed clock the same posting always yields
// the same result.
type Engine struct {
	threshold   int
	hardRules   []Rule
	strikeRules []Rule
	now         func() time.Time
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func NewEngine(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		threshold:   cfg.StrikeThreshold,
		hardRules:   buildHardRules(cfg),
		strikeRules: buildStrikeRules(cfg),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func buildHardRules(cfg Config) []Rule {
	h := cfg.HardRejections

	var commission []*regexp.Regexp
	if h.RejectCommission {
		patterns := h.CommissionPatterns
		if len(patterns) == 0 {
			patterns = defaultCommissionPatterns
		}
		for _, p := range patterns {
			re, err := regexp.Compile(`(?i)` + p)
			if err != nil {
				log.WithField("pattern", p).Warnf("skipping invalid commission pattern: %s", err)
				continue
			}
			commission = append(commission, re)
		}
	}

	return []Rule{
		jobTypeRule{excluded: compileTerms(h.ExcludedJobTypes)},
		seniorityRule{excluded: compileTerms(h.ExcludedSeniority)},
		companyRule{excluded: h.ExcludedCompanies},
		keywordRule{excluded: compileTerms(h.ExcludedKeywords)},
		salaryFloorRule{floor: h.MinSalaryFloor},
		commissionRule{patterns: commission},
		remotePolicyRule{policy: cfg.RemotePolicy, locations: compileTerms(cfg.RemotePolicy.AllowedLocations)},
		maxAgeRule{maxDays: h.MaxAgeDays},
	}
}

func buildStrikeRules(cfg Config) []Rule {
	disfavored := cfg.Technologies.ByRank(RankDisfavored)
	points := make(map[string]int, len(disfavored))
	for _, name := range disfavored {
		p := cfg.Technologies.Technologies[name].Points
		if p <= 0 {
			p = 1
		}
		points[name] = p
	}

	return []Rule{
		preferredSalaryRule{cfg: cfg.SalaryStrike},
		experienceRule{cfg: cfg.ExperienceStrike},
		seniorityStrikeRule{keywords: compileTerms(cfg.SeniorityStrike.Keywords), points: cfg.SeniorityStrike.Points},
		disfavoredTechRule{techs: compileTerms(disfavored), points: points},
		missingRequiredRule{
			required: compileTerms(cfg.Technologies.ByRank(RankRequired)),
			points:   cfg.Technologies.MissingRequiredPoints,
		},
		shortDescriptionRule{minLength: cfg.QualityStrikes.MinDescriptionLength, points: cfg.QualityStrikes.ShortDescriptionPoints},
		buzzwordRule{buzzwords: compileTerms(cfg.QualityStrikes.Buzzwords), points: cfg.QualityStrikes.BuzzwordPoints},
		ageStrikeRule{cfg: cfg.AgeStrike},
	}
}

// Evaluate runs the hard rules in order, stopping at the first rejection, and
// then every strike rule.
func (e *Engine) Evaluate(p entities.Posting) FilterResult {
	s := newSubject(p, e.now())
	result := FilterResult{StrikeThreshold: e.threshold, Rejections: []Rejection{}}

	for _, rule := range e.hardRules {
		if rejections := rule.Check(s); len(rejections) > 0 {
			result.Rejections = append(result.Rejections, rejections[0])
			result.Passed = false
			return result
		}
	}

	if s.arrangement == ArrangementUnclear {
		log.WithField("url", p.URL).Debug("work arrangement unclear")
	}

	for _, rule := range e.strikeRules {
		for _, rejection := range rule.Check(s) {
			result.Rejections = append(result.Rejections, rejection)
			result.TotalStrikes += rejection.Points
		}
	}

	result.Passed = result.TotalStrikes < e.threshold
	return result
}
