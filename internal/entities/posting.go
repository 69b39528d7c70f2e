package entities

// Posting holds the fields scraped from a job posting. It is what the FILTER
// stage evaluates and what travels in the postingData pipeline key.
type Posting struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Salary      string `json:"salary,omitempty"`
	PostedDate  string `json:"postedDate,omitempty"`
	JobType     string `json:"jobType,omitempty"`
	Source      string `json:"source,omitempty"`
}

// HasDetails reports whether the posting carries enough text to be filtered
// without an extra page fetch.
func (p Posting) HasDetails() bool {
	return p.Title != "" && p.Description != ""
}
