package web

import (
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maxaizer/job-finder/internal/entities"
)

// Posting fields that can be extracted with selectors.
const (
	FieldTitle       = "title"
	FieldCompany     = "company"
	FieldLocation    = "location"
	FieldDescription = "description"
	FieldSalary      = "salary"
	FieldPostedDate  = "postedDate"
	FieldJobType     = "jobType"
)

func parse(page string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return doc, nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Extract applies field -> CSS selector pairs to page. A field whose selector
// matches nothing maps to nil rather than an empty string.
func Extract(page string, selectors map[string]string) (map[string]*string, error) {
	doc, err := parse(page)
	if err != nil {
		return nil, err
	}
	doc.Find("script, style, noscript").Remove()

	values := make(map[string]*string, len(selectors))
	for field, selector := range selectors {
		values[field] = nil
		if strings.TrimSpace(selector) == "" {
			continue
		}
		selection := doc.Find(selector).First()
		if selection.Length() == 0 {
			continue
		}
		text := collapse(selection.Text())
		values[field] = &text
	}
	return values, nil
}

// PostingFromFields builds a posting from extracted fields. Missing fields stay
// empty.
func PostingFromFields(pageURL string, fields map[string]*string) entities.Posting {
	get := func(field string) string {
		if v := fields[field]; v != nil {
			return *v
		}
		return ""
	}
	return entities.Posting{
		URL:         pageURL,
		Title:       get(FieldTitle),
		Company:     get(FieldCompany),
		Location:    get(FieldLocation),
		Description: get(FieldDescription),
		Salary:      get(FieldSalary),
		PostedDate:  get(FieldPostedDate),
		JobType:     get(FieldJobType),
	}
}

// ListSelectors describe a listing page: Item selects one element per posting,
// the rest are evaluated relative to it. Link is read from the href attribute.
type ListSelectors struct {
	Item        string `json:"item"`
	Title       string `json:"title"`
	Link        string `json:"link"`
	Location    string `json:"location"`
	PostedDate  string `json:"postedDate"`
	Description string `json:"description"`
}

func (s ListSelectors) Valid() bool {
	return s.Item != "" && s.Link != ""
}

// ExtractList returns one posting per Item element. Relative links are resolved
// against pageURL; items without a link are dropped.
func ExtractList(page string, pageURL string, selectors ListSelectors) ([]entities.Posting, error) {
	if !selectors.Valid() {
		return nil, fmt.Errorf("list selectors need at least item and link")
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url %q: %w", pageURL, err)
	}

	doc, err := parse(page)
	if err != nil {
		return nil, err
	}

	text := func(item *goquery.Selection, selector string) string {
		if selector == "" {
			return ""
		}
		return collapse(item.Find(selector).First().Text())
	}

	var postings []entities.Posting
	doc.Find(selectors.Item).Each(func(_ int, item *goquery.Selection) {
		link := item.Find(selectors.Link).First()
		if goquery.NodeName(item) == "a" && link.Length() == 0 {
			link = item
		}
		href, ok := link.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}

		title := text(item, selectors.Title)
		if title == "" {
			title = collapse(link.Text())
		}

		postings = append(postings, entities.Posting{
			URL:         base.ResolveReference(ref).String(),
			Title:       title,
			Location:    text(item, selectors.Location),
			PostedDate:  text(item, selectors.PostedDate),
			Description: text(item, selectors.Description),
		})
	})
	return postings, nil
}

// HTMLToText converts HTML, including entity-encoded HTML, to plain text.
func HTMLToText(content string) string {
	unescaped := html.UnescapeString(content)
	doc, err := parse(unescaped)
	if err != nil {
		return collapse(unescaped)
	}
	doc.Find("script, style, noscript").Remove()
	doc.Find("br, p, div, li, tr, h1, h2, h3, h4, h5, h6").AfterHtml(" ")
	return collapse(doc.Text())
}

// PageText returns the visible text of a page, cut to at most limit runes.
func PageText(page string, limit int) string {
	text := HTMLToText(page)
	if limit > 0 {
		if runes := []rune(text); len(runes) > limit {
			return string(runes[:limit])
		}
	}
	return text
}

// PageMarkup returns the body markup without scripts, styles and inline
// images, cut to at most limit bytes. It is what selector discovery looks at.
func PageMarkup(page string, limit int) (string, error) {
	doc, err := parse(page)
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, svg, img, iframe, head").Remove()

	markup, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("failed to render html: %w", err)
	}
	markup = collapse(markup)
	if limit > 0 && len(markup) > limit {
		markup = strings.ToValidUTF8(markup[:limit], "")
	}
	return markup, nil
}
