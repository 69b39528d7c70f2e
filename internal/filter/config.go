package filter

// Config is the resolved filter configuration. It is assembled from the
// job-filters and technology-ranks config documents.
type Config struct {
	StrikeThreshold  int              `json:"strikeThreshold"`
	HardRejections   HardRejections   `json:"hardRejections"`
	RemotePolicy     RemotePolicy     `json:"remotePolicy"`
	SalaryStrike     SalaryStrike     `json:"salaryStrike"`
	ExperienceStrike ExperienceStrike `json:"experienceStrike"`
	SeniorityStrike  SeniorityStrike  `json:"seniorityStrike"`
	QualityStrikes   QualityStrikes   `json:"qualityStrikes"`
	AgeStrike        AgeStrike        `json:"ageStrike"`
	Technologies     TechnologyRanks  `json:"technologies"`
}

type HardRejections struct {
	ExcludedJobTypes   []string `json:"excludedJobTypes"`
	ExcludedSeniority  []string `json:"excludedSeniority"`
	ExcludedCompanies  []string `json:"excludedCompanies"`
	ExcludedKeywords   []string `json:"excludedKeywords"`
	MinSalaryFloor     int      `json:"minSalaryFloor"`
	RejectCommission   bool     `json:"rejectCommissionOnly"`
	CommissionPatterns []string `json:"commissionPatterns"`
	MaxAgeDays         int      `json:"maxAgeDays"`
}

// RemotePolicy lists the accepted work arrangements. AllowedLocations, when
// set, restricts hybrid and onsite postings to matching locations.
type RemotePolicy struct {
	AllowRemote      bool     `json:"allowRemote"`
	AllowHybrid      bool     `json:"allowHybrid"`
	AllowOnsite      bool     `json:"allowOnsite"`
	AllowedLocations []string `json:"allowedLocations"`
}

type SalaryStrike struct {
	MinPreferred int `json:"minPreferred"`
	Points       int `json:"points"`
}

// ExperienceStrike penalizes postings asking for fewer years than the
// candidate's preferred minimum, i.e. roles that are too junior.
type ExperienceStrike struct {
	MinPreferredYears int `json:"minPreferredYears"`
	Points            int `json:"points"`
}

type SeniorityStrike struct {
	Keywords []string `json:"keywords"`
	Points   int      `json:"points"`
}

type QualityStrikes struct {
	MinDescriptionLength   int      `json:"minDescriptionLength"`
	ShortDescriptionPoints int      `json:"shortDescriptionPoints"`
	Buzzwords              []string `json:"buzzwords"`
	BuzzwordPoints         int      `json:"buzzwordPoints"`
}

type AgeStrike struct {
	Days   int `json:"days"`
	Points int `json:"points"`
}

type TechRank string

const (
	RankRequired   TechRank = "required"
	RankPreferred  TechRank = "preferred"
	RankDisfavored TechRank = "disfavored"
)

type Technology struct {
	Rank   TechRank `json:"rank"`
	Points int      `json:"points"`
}

// TechnologyRanks is the value of the technology-ranks config document.
type TechnologyRanks struct {
	Technologies          map[string]Technology `json:"technologies"`
	MissingRequiredPoints int                   `json:"missingRequiredPoints"`
}

func (t TechnologyRanks) ByRank(rank TechRank) []string {
	var names []string
	for name, tech := range t.Technologies {
		if tech.Rank == rank {
			names = append(names, name)
		}
	}
	return sortedCopy(names)
}

var defaultCommissionPatterns = []string{
	`commission[\s-]*only`,
	`100\s*%\s*commission`,
	`straight\s+commission`,
	`multi[\s-]*level\s+marketing`,
	`\bmlm\b`,
	`network\s+marketing`,
	`be\s+your\s+own\s+boss`,
}

func DefaultConfig() Config {
	return Config{
		StrikeThreshold: 5,
		HardRejections: HardRejections{
			ExcludedJobTypes:  []string{"internship", "intern", "contract-to-hire"},
			ExcludedSeniority: []string{"principal", "director", "vp", "head of"},
			RejectCommission:  true,
			MaxAgeDays:        60,
		},
		RemotePolicy: RemotePolicy{
			AllowRemote: true,
			AllowHybrid: true,
			AllowOnsite: false,
		},
		SalaryStrike:     SalaryStrike{Points: 2},
		ExperienceStrike: ExperienceStrike{Points: 1},
		SeniorityStrike: SeniorityStrike{
			Keywords: []string{"junior", "entry level", "graduate"},
			Points:   2,
		},
		QualityStrikes: QualityStrikes{
			MinDescriptionLength:   200,
			ShortDescriptionPoints: 1,
			Buzzwords:              []string{"rockstar", "ninja", "guru", "work hard play hard", "fast-paced family"},
			BuzzwordPoints:         1,
		},
		AgeStrike: AgeStrike{Days: 21, Points: 1},
		Technologies: TechnologyRanks{
			Technologies:          map[string]Technology{},
			MissingRequiredPoints: 3,
		},
	}
}
