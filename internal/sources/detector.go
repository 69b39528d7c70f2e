package sources

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/maxaizer/job-finder/internal/entities"
)

// Detection is the classification of a careers URL.
type Detection struct {
	Type       entities.SourceType
	Config     entities.SourceConfig
	Confidence entities.Confidence
}

var (
	workdayHost   = regexp.MustCompile(`^([a-z0-9-]+)\.wd\d+\.myworkdayjobs\.com$`)
	localeSegment = regexp.MustCompile(`^[a-z]{2}(-[A-Za-z]{2})?$`)
	hhEmployer    = regexp.MustCompile(`^/employer/(\d+)`)
	feedPath      = regexp.MustCompile(`(?i)(\.rss|\.atom|\.xml|/feed/?|/rss/?)$`)
)

// Detect classifies rawURL into a known integration and extracts its config.
// hint names a source type to fall back to when the URL shape is not
// recognized; an unrecognized URL without a usable hint is generic.
func Detect(rawURL, hint string) Detection {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return Detection{Type: entities.SourceGeneric, Config: entities.SourceConfig{}, Confidence: entities.ConfidenceLow}
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	segments := pathSegments(u.Path)

	if d, ok := detectKnown(u, host, segments); ok {
		return d
	}

	if entities.SourceType(strings.ToLower(strings.TrimSpace(hint))) == entities.SourceRSS {
		return high(entities.SourceRSS, entities.SourceConfig{entities.ConfigFeedURL: u.String()})
	}

	return Detection{Type: entities.SourceGeneric, Config: entities.SourceConfig{}, Confidence: entities.ConfidenceLow}
}

func detectKnown(u *url.URL, host string, segments []string) (Detection, bool) {
	switch {
	case host == "boards.greenhouse.io" || host == "job-boards.greenhouse.io":
		if token := u.Query().Get("for"); token != "" {
			return high(entities.SourceGreenhouse, entities.SourceConfig{entities.ConfigBoardToken: token}), true
		}
		if len(segments) > 0 && segments[0] != "embed" {
			return high(entities.SourceGreenhouse, entities.SourceConfig{entities.ConfigBoardToken: segments[0]}), true
		}

	case host == "boards-api.greenhouse.io":
		// /v1/boards/{token}/jobs
		if len(segments) >= 3 && segments[1] == "boards" {
			return high(entities.SourceGreenhouse, entities.SourceConfig{entities.ConfigBoardToken: segments[2]}), true
		}

	case host == "jobs.lever.co" || host == "jobs.eu.lever.co":
		if len(segments) > 0 {
			return high(entities.SourceLever, entities.SourceConfig{entities.ConfigCompanySlug: segments[0]}), true
		}

	case host == "api.lever.co":
		// /v0/postings/{slug}
		if len(segments) >= 3 && segments[1] == "postings" {
			return high(entities.SourceLever, entities.SourceConfig{entities.ConfigCompanySlug: segments[2]}), true
		}

	case host == "jobs.ashbyhq.com":
		if len(segments) > 0 {
			return high(entities.SourceAshby, entities.SourceConfig{entities.ConfigBoardToken: segments[0]}), true
		}

	case workdayHost.MatchString(host):
		tenant := workdayHost.FindStringSubmatch(host)[1]
		site := ""
		for _, segment := range segments {
			if localeSegment.MatchString(segment) {
				continue
			}
			site = segment
			break
		}
		if site != "" {
			return high(entities.SourceWorkday, entities.SourceConfig{
				entities.ConfigHost:   host,
				entities.ConfigTenant: tenant,
				entities.ConfigSite:   site,
			}), true
		}

	case host == "hh.ru" || strings.HasSuffix(host, ".hh.ru"):
		if m := hhEmployer.FindStringSubmatch(u.Path); m != nil {
			return high(entities.SourceHH, entities.SourceConfig{entities.ConfigEmployerID: m[1]}), true
		}

	case feedPath.MatchString(u.Path):
		return high(entities.SourceRSS, entities.SourceConfig{entities.ConfigFeedURL: u.String()}), true
	}

	return Detection{}, false
}

func high(sourceType entities.SourceType, config entities.SourceConfig) Detection {
	return Detection{Type: sourceType, Config: config, Confidence: entities.ConfidenceHigh}
}

func pathSegments(path string) []string {
	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}
