package filter

import (
	"testing"
	"time"

	"github.com/maxaizer/job-finder/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		StrikeThreshold: 5,
		HardRejections: HardRejections{
			ExcludedJobTypes:  []string{"internship"},
			ExcludedSeniority: []string{"director"},
			ExcludedCompanies: []string{"Evil Corp"},
			ExcludedKeywords:  []string{"clearance required"},
			MinSalaryFloor:    100000,
			RejectCommission:  true,
			MaxAgeDays:        60,
		},
		RemotePolicy:     RemotePolicy{AllowRemote: true, AllowHybrid: false, AllowOnsite: false},
		SalaryStrike:     SalaryStrike{MinPreferred: 150000, Points: 2},
		ExperienceStrike: ExperienceStrike{MinPreferredYears: 3, Points: 1},
		SeniorityStrike:  SeniorityStrike{Keywords: []string{"junior"}, Points: 2},
		QualityStrikes: QualityStrikes{
			MinDescriptionLength:   0,
			ShortDescriptionPoints: 1,
			Buzzwords:              []string{"rockstar", "ninja"},
			BuzzwordPoints:         1,
		},
		AgeStrike: AgeStrike{Days: 21, Points: 1},
		Technologies: TechnologyRanks{
			Technologies: map[string]Technology{
				"Python": {Rank: RankRequired},
				"Go":     {Rank: RankRequired},
				"PHP":    {Rank: RankDisfavored, Points: 2},
				"Perl":   {Rank: RankDisfavored, Points: 1},
			},
			MissingRequiredPoints: 3,
		},
	}
}

func goodPosting() entities.Posting {
	return entities.Posting{
		URL:         "https://jobs.example.com/1",
		Title:       "Senior Backend Engineer",
		Company:     "Acme",
		Location:    "Remote",
		Description: "We need 5 years Python experience. Fully remote team. Salary $160k.",
		PostedDate:  "2026-03-08",
	}
}

func newTestEngine(cfg Config) *Engine {
	return NewEngine(cfg, WithClock(func() time.Time { return fixedNow }))
}

func Test_Engine_Evaluate_GoodPosting_ShouldPassWithoutStrikes(t *testing.T) {
	assert := assert.New(t)

	result := newTestEngine(testConfig()).Evaluate(goodPosting())

	assert.True(result.Passed)
	assert.Equal(0, result.TotalStrikes)
	assert.Empty(result.Rejections)
	assert.Equal(5, result.StrikeThreshold)
}

func Test_Engine_Evaluate_SalaryBelowFloor_ShouldHardReject(t *testing.T) {
	assert := assert.New(t)

	posting := goodPosting()
	posting.Description = "We need 5 years Python experience. Fully remote team. Salary $90k."

	result := newTestEngine(testConfig()).Evaluate(posting)

	assert.False(result.Passed)
	require.Len(t, result.Rejections, 1)
	assert.Equal(SeverityHardReject, result.Rejections[0].Severity)
	assert.Equal(CategorySalary, result.Rejections[0].Category)
	assert.Equal("salary_floor", result.Rejections[0].RuleName)
}

func Test_Engine_Evaluate_HardRejection_ShouldShortCircuit(t *testing.T) {
	assert := assert.New(t)

	// Matches the job type, seniority, company and commission rules at once.
	posting := goodPosting()
	posting.Title = "Director internship"
	posting.Company = "Evil Corp"
	posting.Description = "Commission only rockstar role using PHP"

	result := newTestEngine(testConfig()).Evaluate(posting)

	assert.False(result.Passed)
	require.Len(t, result.Rejections, 1)
	assert.Equal(CategoryJobType, result.Rejections[0].Category)
	assert.Equal(0, result.TotalStrikes)
}

func Test_Engine_Evaluate_HardRejectionOrder(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(p *entities.Posting)
		category Category
	}{
		{"seniority", func(p *entities.Posting) { p.Title = "Director of Engineering" }, CategorySeniority},
		{"company", func(p *entities.Posting) { p.Company = "evil corp" }, CategoryCompany},
		{"keyword", func(p *entities.Posting) { p.Description += " Clearance required." }, CategoryKeyword},
		{"commission", func(p *entities.Posting) { p.Description += " This is a 100% commission role." }, CategoryCommission},
		{"remote policy", func(p *entities.Posting) {
			p.Location = "Berlin"
			p.Description = "5 years Python, hybrid schedule, $160k"
		}, CategoryRemote},
		{"age", func(p *entities.Posting) { p.PostedDate = "2025-12-01" }, CategoryAge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			posting := goodPosting()
			tt.mutate(&posting)

			result := newTestEngine(testConfig()).Evaluate(posting)

			assert.False(t, result.Passed)
			require.Len(t, result.Rejections, 1)
			assert.Equal(t, tt.category, result.Rejections[0].Category)
			assert.Equal(t, SeverityHardReject, result.Rejections[0].Severity)
		})
	}
}

func Test_Engine_Evaluate_Strikes_ShouldSumPoints(t *testing.T) {
	assert := assert.New(t)

	posting := goodPosting()
	posting.Title = "Junior Developer"
	posting.Description = "1 year experience. Remote. $120k. PHP and Perl rockstar wanted."
	posting.PostedDate = "2026-02-01"

	result := newTestEngine(testConfig()).Evaluate(posting)

	// salary 2 + experience 1 + seniority 2 + PHP 2 + Perl 1 + missing required 3 + buzzword 1 + age 1
	assert.Equal(13, result.TotalStrikes)
	assert.False(result.Passed)

	sum := 0
	for _, r := range result.Rejections {
		assert.Equal(SeverityStrike, r.Severity)
		sum += r.Points
	}
	assert.Equal(result.TotalStrikes, sum)

	var techDetails []string
	for _, r := range result.Rejections {
		if r.RuleName == "disfavored_technology" {
			techDetails = append(techDetails, r.Detail)
		}
	}
	assert.ElementsMatch([]string{"PHP", "Perl"}, techDetails)
}

func Test_Engine_Evaluate_BelowThreshold_ShouldPass(t *testing.T) {
	assert := assert.New(t)

	posting := goodPosting()
	posting.Description = "5 years Python. Remote. $120k."

	result := newTestEngine(testConfig()).Evaluate(posting)

	assert.True(result.Passed)
	assert.Equal(2, result.TotalStrikes)
	require.Len(t, result.Rejections, 1)
	assert.Equal("below_preferred_salary", result.Rejections[0].RuleName)
}

func Test_Engine_Evaluate_ShouldBeDeterministic(t *testing.T) {
	engine := newTestEngine(testConfig())

	posting := goodPosting()
	posting.Description = "2 years PHP and Perl. Remote. $110k. Ninja."

	first := engine.Evaluate(posting)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, engine.Evaluate(posting))
	}
}

func Test_Engine_Evaluate_MissingDate_ShouldNotStrikeOrReject(t *testing.T) {
	assert := assert.New(t)

	posting := goodPosting()
	posting.PostedDate = ""

	result := newTestEngine(testConfig()).Evaluate(posting)

	assert.True(result.Passed)
	assert.Equal(0, result.TotalStrikes)

	posting.PostedDate = "sometime last spring"
	result = newTestEngine(testConfig()).Evaluate(posting)

	assert.True(result.Passed)
	assert.Equal(0, result.TotalStrikes)
}

func Test_Engine_Evaluate_UnclearArrangement_ShouldPass(t *testing.T) {
	assert := assert.New(t)

	posting := goodPosting()
	posting.Location = ""
	posting.Description = "5 years Python. $160k."

	result := newTestEngine(testConfig()).Evaluate(posting)

	assert.True(result.Passed)
}

func Test_FilterResult_HardRejection(t *testing.T) {
	assert := assert.New(t)

	posting := goodPosting()
	posting.Company = "Evil Corp"
	result := newTestEngine(testConfig()).Evaluate(posting)

	rejection, ok := result.HardRejection()
	assert.True(ok)
	assert.Equal(CategoryCompany, rejection.Category)

	_, ok = newTestEngine(testConfig()).Evaluate(goodPosting()).HardRejection()
	assert.False(ok)
}
