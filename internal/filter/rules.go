package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/samber/lo"
)

type Severity string

const (
	SeverityHardReject Severity = "hard_reject"
	SeverityStrike     Severity = "strike"
)

type Category string

const (
	CategoryJobType    Category = "job_type"
	CategorySeniority  Category = "seniority"
	CategoryCompany    Category = "company"
	CategoryKeyword    Category = "keyword"
	CategorySalary     Category = "salary"
	CategoryCommission Category = "commission"
	CategoryRemote     Category = "remote_policy"
	CategoryAge        Category = "age"
	CategoryExperience Category = "experience"
	CategoryTechnology Category = "technology"
	CategoryQuality    Category = "quality"
)

type Rejection struct {
	Category Category `json:"category"`
	RuleName string   `json:"ruleName"`
	Severity Severity `json:"severity"`
	Points   int      `json:"points"`
	Reason   string   `json:"reason"`
	Detail   string   `json:"detail,omitempty"`
}

// Rule checks one aspect of a posting. Hard rules return at most one
// rejection; strike rules may return several (one per disfavored technology).
type Rule interface {
	Name() string
	Severity() Severity
	Check(s *subject) []Rejection
}

type term struct {
	text    string
	pattern *regexp.Regexp
}

func compileTerms(texts []string) []term {
	texts = lo.Filter(texts, func(t string, _ int) bool { return strings.TrimSpace(t) != "" })
	return lo.Map(texts, func(t string, _ int) term {
		return term{text: t, pattern: termPattern(t)}
	})
}

func firstMatch(terms []term, text string) (string, bool) {
	for _, t := range terms {
		if t.pattern.MatchString(text) {
			return t.text, true
		}
	}
	return "", false
}

func allMatches(terms []term, text string) []string {
	var found []string
	for _, t := range terms {
		if t.pattern.MatchString(text) {
			found = append(found, t.text)
		}
	}
	return found
}

func hard(category Category, name, reason, detail string) []Rejection {
	return []Rejection{{
		Category: category,
		RuleName: name,
		Severity: SeverityHardReject,
		Reason:   reason,
		Detail:   detail,
	}}
}

func strike(category Category, name string, points int, reason, detail string) Rejection {
	return Rejection{
		Category: category,
		RuleName: name,
		Severity: SeverityStrike,
		Points:   points,
		Reason:   reason,
		Detail:   detail,
	}
}

// hard rules

type jobTypeRule struct{ excluded []term }

func (r jobTypeRule) Name() string       { return "excluded_job_type" }
func (r jobTypeRule) Severity() Severity { return SeverityHardReject }
func (r jobTypeRule) Check(s *subject) []Rejection {
	if t, ok := firstMatch(r.excluded, s.title+" "+s.posting.JobType); ok {
		return hard(CategoryJobType, r.Name(), "excluded job type", t)
	}
	return nil
}

type seniorityRule struct{ excluded []term }

func (r seniorityRule) Name() string       { return "excluded_seniority" }
func (r seniorityRule) Severity() Severity { return SeverityHardReject }
func (r seniorityRule) Check(s *subject) []Rejection {
	if t, ok := firstMatch(r.excluded, s.title); ok {
		return hard(CategorySeniority, r.Name(), "excluded seniority level", t)
	}
	return nil
}

type companyRule struct{ excluded []string }

func (r companyRule) Name() string       { return "excluded_company" }
func (r companyRule) Severity() Severity { return SeverityHardReject }
func (r companyRule) Check(s *subject) []Rejection {
	company := strings.ToLower(strings.TrimSpace(s.posting.Company))
	if company == "" {
		return nil
	}
	for _, excluded := range r.excluded {
		if strings.ToLower(strings.TrimSpace(excluded)) == company {
			return hard(CategoryCompany, r.Name(), "excluded company", s.posting.Company)
		}
	}
	return nil
}

type keywordRule struct{ excluded []term }

func (r keywordRule) Name() string       { return "excluded_keyword" }
func (r keywordRule) Severity() Severity { return SeverityHardReject }
func (r keywordRule) Check(s *subject) []Rejection {
	if t, ok := firstMatch(r.excluded, s.text); ok {
		return hard(CategoryKeyword, r.Name(), "excluded keyword", t)
	}
	return nil
}

type salaryFloorRule struct{ floor int }

func (r salaryFloorRule) Name() string       { return "salary_floor" }
func (r salaryFloorRule) Severity() Severity { return SeverityHardReject }
func (r salaryFloorRule) Check(s *subject) []Rejection {
	if r.floor <= 0 || !s.hasSalary || s.salary >= r.floor {
		return nil
	}
	return hard(CategorySalary, r.Name(), "salary below floor",
		fmt.Sprintf("%d < %d", s.salary, r.floor))
}

type commissionRule struct{ patterns []*regexp.Regexp }

func (r commissionRule) Name() string       { return "commission_only" }
func (r commissionRule) Severity() Severity { return SeverityHardReject }
func (r commissionRule) Check(s *subject) []Rejection {
	for _, p := range r.patterns {
		if m := p.FindString(s.text); m != "" {
			return hard(CategoryCommission, r.Name(), "commission-only or MLM posting", m)
		}
	}
	return nil
}

type remotePolicyRule struct {
	policy    RemotePolicy
	locations []term
}

func (r remotePolicyRule) Name() string       { return "remote_policy" }
func (r remotePolicyRule) Severity() Severity { return SeverityHardReject }
func (r remotePolicyRule) Check(s *subject) []Rejection {
	switch s.arrangement {
	case ArrangementRemote:
		if !r.policy.AllowRemote {
			return hard(CategoryRemote, r.Name(), "remote positions not accepted", string(s.arrangement))
		}
	case ArrangementHybrid, ArrangementOnsite:
		allowed := r.policy.AllowOnsite
		if s.arrangement == ArrangementHybrid {
			allowed = r.policy.AllowHybrid
		}
		if !allowed {
			return hard(CategoryRemote, r.Name(), string(s.arrangement)+" positions not accepted", s.posting.Location)
		}
		if len(r.locations) > 0 {
			if _, ok := firstMatch(r.locations, s.posting.Location); !ok {
				return hard(CategoryRemote, r.Name(), "location not accepted", s.posting.Location)
			}
		}
	}
	return nil
}

type maxAgeRule struct{ maxDays int }

func (r maxAgeRule) Name() string       { return "max_age" }
func (r maxAgeRule) Severity() Severity { return SeverityHardReject }
func (r maxAgeRule) Check(s *subject) []Rejection {
	if r.maxDays <= 0 || !s.hasAge || s.ageDays <= r.maxDays {
		return nil
	}
	return hard(CategoryAge, r.Name(), "posting too old", fmt.Sprintf("%d days", s.ageDays))
}

// strike rules

type preferredSalaryRule struct{ cfg SalaryStrike }

func (r preferredSalaryRule) Name() string       { return "below_preferred_salary" }
func (r preferredSalaryRule) Severity() Severity { return SeverityStrike }
func (r preferredSalaryRule) Check(s *subject) []Rejection {
	if r.cfg.MinPreferred <= 0 || !s.hasSalary || s.salary >= r.cfg.MinPreferred {
		return nil
	}
	return []Rejection{strike(CategorySalary, r.Name(), r.cfg.Points, "salary below preferred",
		fmt.Sprintf("%d < %d", s.salary, r.cfg.MinPreferred))}
}

type experienceRule struct{ cfg ExperienceStrike }

func (r experienceRule) Name() string       { return "below_preferred_experience" }
func (r experienceRule) Severity() Severity { return SeverityStrike }
func (r experienceRule) Check(s *subject) []Rejection {
	if r.cfg.MinPreferredYears <= 0 || !s.hasExperience || s.experience >= r.cfg.MinPreferredYears {
		return nil
	}
	return []Rejection{strike(CategoryExperience, r.Name(), r.cfg.Points, "experience requirement below preferred",
		fmt.Sprintf("%d < %d years", s.experience, r.cfg.MinPreferredYears))}
}

type seniorityStrikeRule struct {
	keywords []term
	points   int
}

func (r seniorityStrikeRule) Name() string       { return "undesirable_seniority" }
func (r seniorityStrikeRule) Severity() Severity { return SeverityStrike }
func (r seniorityStrikeRule) Check(s *subject) []Rejection {
	if t, ok := firstMatch(r.keywords, s.title); ok {
		return []Rejection{strike(CategorySeniority, r.Name(), r.points, "undesirable seniority keyword", t)}
	}
	return nil
}

type disfavoredTechRule struct {
	techs  []term
	points map[string]int
}

func (r disfavoredTechRule) Name() string       { return "disfavored_technology" }
func (r disfavoredTechRule) Severity() Severity { return SeverityStrike }
func (r disfavoredTechRule) Check(s *subject) []Rejection {
	var out []Rejection
	for _, tech := range allMatches(r.techs, s.text) {
		out = append(out, strike(CategoryTechnology, r.Name(), r.points[tech], "disfavored technology", tech))
	}
	return out
}

type missingRequiredRule struct {
	required []term
	points   int
}

func (r missingRequiredRule) Name() string       { return "missing_required_technology" }
func (r missingRequiredRule) Severity() Severity { return SeverityStrike }
func (r missingRequiredRule) Check(s *subject) []Rejection {
	if len(r.required) == 0 {
		return nil
	}
	if _, ok := firstMatch(r.required, s.text); ok {
		return nil
	}
	names := lo.Map(r.required, func(t term, _ int) string { return t.text })
	return []Rejection{strike(CategoryTechnology, r.Name(), r.points, "none of the required technologies mentioned",
		strings.Join(names, ", "))}
}

type shortDescriptionRule struct {
	minLength int
	points    int
}

func (r shortDescriptionRule) Name() string       { return "short_description" }
func (r shortDescriptionRule) Severity() Severity { return SeverityStrike }
func (r shortDescriptionRule) Check(s *subject) []Rejection {
	length := len([]rune(strings.TrimSpace(s.posting.Description)))
	if r.minLength <= 0 || length >= r.minLength {
		return nil
	}
	return []Rejection{strike(CategoryQuality, r.Name(), r.points, "description too short",
		fmt.Sprintf("%d < %d characters", length, r.minLength))}
}

type buzzwordRule struct {
	buzzwords []term
	points    int
}

func (r buzzwordRule) Name() string       { return "buzzwords" }
func (r buzzwordRule) Severity() Severity { return SeverityStrike }
func (r buzzwordRule) Check(s *subject) []Rejection {
	found := allMatches(r.buzzwords, s.text)
	if len(found) == 0 {
		return nil
	}
	return []Rejection{strike(CategoryQuality, r.Name(), r.points, "buzzwords present", strings.Join(found, ", "))}
}

type ageStrikeRule struct{ cfg AgeStrike }

func (r ageStrikeRule) Name() string       { return "stale_posting" }
func (r ageStrikeRule) Severity() Severity { return SeverityStrike }
func (r ageStrikeRule) Check(s *subject) []Rejection {
	if r.cfg.Days <= 0 || !s.hasAge || s.ageDays <= r.cfg.Days {
		return nil
	}
	return []Rejection{strike(CategoryAge, r.Name(), r.cfg.Points, "posting is getting old",
		fmt.Sprintf("%d days", s.ageDays))}
}
