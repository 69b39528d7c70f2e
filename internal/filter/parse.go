package filter

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	salaryNumberRegex  = regexp.MustCompile(`(\d+(?:\.\d+)?)([kK])?`)
	dollarAmountRegex  = regexp.MustCompile(`\$\s?\d[\d,]*(?:\.\d+)?[kK]?`)
	experienceRegexes  = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+)\s*\+?\s*(?:years?|yrs?)`),
		regexp.MustCompile(`(?i)(\d+)\s*(?:-|–|to)\s*(\d+)\s*(?:years?|yrs?)`),
		regexp.MustCompile(`(?i)minimum\s+(?:of\s+)?(\d+)\s*(?:years?|yrs?)`),
		regexp.MustCompile(`(?i)at\s+least\s+(\d+)\s*(?:years?|yrs?)`),
	}
	relativeAgeRegex = regexp.MustCompile(`(?i)(\d+)\+?\s*(day|week|month)s?\s+ago`)
)

// ParseSalary extracts the salary from a free-form string. "$" and "," are
// stripped, a trailing k/K multiplies by 1000 and the largest number found
// wins, so "$120k-$150k" yields 150000. ok is false when nothing parses.
func ParseSalary(s string) (salary int, ok bool) {
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(s)

	best := 0.0
	for _, m := range salaryNumberRegex.FindAllStringSubmatch(cleaned, -1) {
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if m[2] != "" {
			n *= 1000
		}
		if n > best {
			best = n
		}
	}

	if best <= 0 {
		return 0, false
	}
	return int(best), true
}

// SalaryOf returns the posting salary: the explicit salary field when present,
// otherwise the dollar amounts mentioned in the description.
func SalaryOf(salaryField, description string) (int, bool) {
	if strings.TrimSpace(salaryField) != "" {
		return ParseSalary(salaryField)
	}
	amounts := dollarAmountRegex.FindAllString(description, -1)
	if len(amounts) == 0 {
		return 0, false
	}
	return ParseSalary(strings.Join(amounts, " "))
}

// ParseExperienceYears returns the largest number of years required by the
// description across all recognized phrasings.
func ParseExperienceYears(description string) (years int, ok bool) {
	for _, re := range experienceRegexes {
		for _, m := range re.FindAllStringSubmatch(description, -1) {
			for _, group := range m[1:] {
				n, err := strconv.Atoi(group)
				if err != nil {
					continue
				}
				// Anything above 50 is a date or an amount, not experience.
				if n > 50 {
					continue
				}
				ok = true
				if n > years {
					years = n
				}
			}
		}
	}
	return years, ok
}

// termPattern compiles a case-insensitive matcher that only matches term as a
// whole word, so "Java" does not match "JavaScript" and "Go" does not match
// "Google".
func termPattern(term string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^\pL\pN_])` + regexp.QuoteMeta(strings.TrimSpace(term)) + `(?:$|[^\pL\pN_])`)
}

func MatchesTechnology(text, technology string) bool {
	if strings.TrimSpace(technology) == "" {
		return false
	}
	return termPattern(technology).MatchString(text)
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"01/02/2006",
}

// ParsePostedDate understands absolute dates and relative phrases such as
// "Posted 3 Days Ago", "today" or "yesterday".
func ParsePostedDate(s string, now time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "today"), strings.Contains(lower, "just now"):
		return now, true
	case strings.Contains(lower, "yesterday"):
		return now.AddDate(0, 0, -1), true
	}

	if m := relativeAgeRegex.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		switch m[2] {
		case "day":
			return now.AddDate(0, 0, -n), true
		case "week":
			return now.AddDate(0, 0, -7*n), true
		case "month":
			return now.AddDate(0, -n, 0), true
		}
	}

	if unix, err := strconv.ParseInt(s, 10, 64); err == nil && unix > 0 {
		if unix > 1e12 {
			return time.UnixMilli(unix), true
		}
		return time.Unix(unix, 0), true
	}

	return time.Time{}, false
}

// PostingAgeDays is now - postedDate in whole days. ok is false when the date
// is missing or unparseable.
func PostingAgeDays(postedDate string, now time.Time) (days int, ok bool) {
	t, ok := ParsePostedDate(postedDate, now)
	if !ok {
		return 0, false
	}
	age := now.Sub(t)
	if age < 0 {
		return 0, true
	}
	return int(age.Hours() / 24), true
}

type WorkArrangement string

const (
	ArrangementRemote  WorkArrangement = "remote"
	ArrangementHybrid  WorkArrangement = "hybrid"
	ArrangementOnsite  WorkArrangement = "onsite"
	ArrangementUnclear WorkArrangement = "unclear"
)

var (
	hybridTerms = []*regexp.Regexp{termPattern("hybrid")}
	remoteTerms = []*regexp.Regexp{termPattern("remote"), termPattern("work from home"), termPattern("wfh"), termPattern("distributed team")}
	onsiteTerms = []*regexp.Regexp{termPattern("on-site"), termPattern("onsite"), termPattern("in office"), termPattern("in-office"), termPattern("on site")}
)

// DetectWorkArrangement classifies the posting text. Hybrid wins over remote
// because hybrid postings usually mention "remote" as well.
func DetectWorkArrangement(text string) WorkArrangement {
	switch {
	case anyMatch(hybridTerms, text):
		return ArrangementHybrid
	case anyMatch(remoteTerms, text):
		return ArrangementRemote
	case anyMatch(onsiteTerms, text):
		return ArrangementOnsite
	default:
		return ArrangementUnclear
	}
}

func anyMatch(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
