package hh

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/maxaizer/job-finder/internal/clients/web"
	"github.com/maxaizer/job-finder/internal/entities"
	"github.com/samber/lo"
)

type Vacancy struct {
	VacancyPreview
	Description string
	KeySkills   []KeySkill `json:"key_skills"`
}

type VacancyPreview struct {
	ID          string
	Name        string
	Url         string     `json:"alternate_url"`
	PublishedAt CustomTime `json:"published_at"`
	Employer    *named     `json:"employer"`
	Area        *named     `json:"area"`
	Schedule    *named     `json:"schedule"`
	Employment  *named     `json:"employment"`
	Salary      *Salary    `json:"salary"`
}

type named struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Salary struct {
	From     *int   `json:"from"`
	To       *int   `json:"to"`
	Currency string `json:"currency"`
}

func (s *Salary) String() string {
	if s == nil {
		return ""
	}
	var parts []string
	if s.From != nil {
		parts = append(parts, fmt.Sprint(*s.From))
	}
	if s.To != nil {
		parts = append(parts, fmt.Sprint(*s.To))
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "-") + " " + s.Currency
}

type KeySkill struct {
	Name string
}

type CustomTime struct {
	time.Time
}

func (dt *CustomTime) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}

	t, err := time.Parse("2006-01-02T15:04:05-0700", str)
	if err != nil {
		return fmt.Errorf("parsing time %s: %v", str, err)
	}
	dt.Time = t
	return nil
}

func nameOf(n *named) string {
	if n == nil {
		return ""
	}
	return n.Name
}

func (v VacancyPreview) ToPosting() entities.Posting {
	location := nameOf(v.Area)
	if v.Schedule != nil && v.Schedule.ID == string(Remote) {
		location = strings.TrimSpace(location + " (remote)")
	}

	var posted string
	if !v.PublishedAt.IsZero() {
		posted = v.PublishedAt.UTC().Format(time.RFC3339)
	}

	return entities.Posting{
		URL:        v.Url,
		Title:      v.Name,
		Company:    nameOf(v.Employer),
		Location:   location,
		Salary:     v.Salary.String(),
		PostedDate: posted,
		JobType:    nameOf(v.Employment),
		Source:     string(entities.SourceHH),
	}
}

func (v Vacancy) ToPosting() entities.Posting {
	posting := v.VacancyPreview.ToPosting()
	description := web.HTMLToText(v.Description)
	if len(v.KeySkills) > 0 {
		skills := lo.Map(v.KeySkills, func(s KeySkill, _ int) string { return s.Name })
		description += "\nKey skills: " + strings.Join(skills, ", ")
	}
	posting.Description = description
	return posting
}
