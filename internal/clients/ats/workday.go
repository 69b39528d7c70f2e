package ats

import (
	"context"
	"fmt"
	"strings"

	"github.com/maxaizer/job-finder/internal/clients/web"
	"github.com/maxaizer/job-finder/internal/entities"
)

const (
	workdayPageSize = 20
	workdayMaxPages = 25
)

// WorkdayBoard identifies a Workday career site, e.g.
// https://acme.wd5.myworkdayjobs.com/en-US/External is host
// "acme.wd5.myworkdayjobs.com", tenant "acme" and site "External".
type WorkdayBoard struct {
	Host   string
	Tenant string
	Site   string
}

func (b WorkdayBoard) apiURL() string {
	return fmt.Sprintf("https://%s/wday/cxs/%s/%s", b.Host, b.Tenant, b.Site)
}

func (b WorkdayBoard) postingURL(externalPath string) string {
	return fmt.Sprintf("https://%s/%s%s", b.Host, b.Site, externalPath)
}

type workdayListingRequest struct {
	AppliedFacets map[string]any `json:"appliedFacets"`
	Limit         int            `json:"limit"`
	Offset        int            `json:"offset"`
	SearchText    string         `json:"searchText"`
}

type workdayListingResponse struct {
	Total       int              `json:"total"`
	JobPostings []workdayListing `json:"jobPostings"`
}

type workdayListing struct {
	Title         string `json:"title"`
	ExternalPath  string `json:"externalPath"`
	LocationsText string `json:"locationsText"`
	PostedOn      string `json:"postedOn"`
}

type workdayDetailResponse struct {
	JobPostingInfo workdayJobDetail `json:"jobPostingInfo"`
}

type workdayJobDetail struct {
	Title          string `json:"title"`
	Location       string `json:"location"`
	PostedOn       string `json:"postedOn"`
	TimeType       string `json:"timeType"`
	JobDescription string `json:"jobDescription"`
	RemoteType     string `json:"remoteType"`
}

// Workday lists the postings of a career site. Listings carry no description,
// so the returned postings need a detail fetch before filtering.
func (c *Client) Workday(ctx context.Context, board WorkdayBoard, companyName string) ([]entities.Posting, error) {
	var postings []entities.Posting

	for page := 0; page < workdayMaxPages; page++ {
		body := workdayListingRequest{
			AppliedFacets: map[string]any{},
			Limit:         workdayPageSize,
			Offset:        page * workdayPageSize,
		}

		var resp workdayListingResponse
		if err := c.postJSON(ctx, board.apiURL()+"/jobs", body, &resp); err != nil {
			return nil, fmt.Errorf("workday listing fetch for %s: %w", board.Tenant, err)
		}

		for _, listing := range resp.JobPostings {
			postings = append(postings, entities.Posting{
				URL:        board.postingURL(listing.ExternalPath),
				Title:      listing.Title,
				Company:    companyName,
				Location:   listing.LocationsText,
				PostedDate: listing.PostedOn,
				Source:     string(entities.SourceWorkday),
			})
		}

		if len(resp.JobPostings) < workdayPageSize || len(postings) >= resp.Total {
			break
		}
	}
	return postings, nil
}

// WorkdayPosting fetches the full posting behind a public Workday posting URL.
func (c *Client) WorkdayPosting(ctx context.Context, board WorkdayBoard, postingURL string) (entities.Posting, error) {
	idx := strings.Index(postingURL, "/job/")
	if idx < 0 {
		return entities.Posting{}, fmt.Errorf("not a workday posting url: %s", postingURL)
	}
	externalPath := postingURL[idx:]

	var resp workdayDetailResponse
	if err := c.getJSON(ctx, board.apiURL()+externalPath, &resp); err != nil {
		return entities.Posting{}, fmt.Errorf("workday detail fetch for %s: %w", externalPath, err)
	}

	info := resp.JobPostingInfo
	location := info.Location
	if info.RemoteType != "" {
		location = strings.TrimSpace(location + " (" + info.RemoteType + ")")
	}

	return entities.Posting{
		URL:         postingURL,
		Title:       info.Title,
		Location:    location,
		Description: web.HTMLToText(info.JobDescription),
		PostedDate:  info.PostedOn,
		JobType:     info.TimeType,
		Source:      string(entities.SourceWorkday),
	}, nil
}
