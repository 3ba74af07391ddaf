package subtitles

import (
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxScrapedRows = 50

// ScrapedRow is one subtitle row of an opensubtitles.org listing page.
type ScrapedRow struct {
	ID        string
	Name      string
	Language  string
	Uploader  string
	Downloads int
	Rating    float64 // site scale, 0-10
}

// Extractor turns a listing page into rows. Implementations must tolerate
// markup they do not recognise by returning fewer rows, not by failing.
type Extractor interface {
	Extract(page io.Reader) ([]ScrapedRow, error)
}

// NewExtractor returns the extractor registered under name.
func NewExtractor(name string) (Extractor, error) {
	switch name {
	case "", "selector":
		return SelectorExtractor{}, nil
	case "pattern":
		return PatternExtractor{}, nil
	}
	return nil, fmt.Errorf("unknown extractor %q", name)
}

// SelectorExtractor reads the listing with CSS selectors.
type SelectorExtractor struct{}

var digits = regexp.MustCompile(`\d+`)

func (SelectorExtractor) Extract(page io.Reader) ([]ScrapedRow, error) {
	doc, err := goquery.NewDocumentFromReader(page)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing: %w", err)
	}

	var rows []ScrapedRow
	doc.Find(`#search_results tr[id^="name"]`).EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		id := strings.TrimPrefix(tr.AttrOr("id", ""), "name")
		if id == "" || !digits.MatchString(id) {
			return true
		}

		link := tr.Find(`a[href^="/en/subtitles/"]`).First()
		name := strings.TrimSpace(link.Text())
		if name == "" {
			return true
		}

		row := ScrapedRow{
			ID:       id,
			Name:     name,
			Language: tr.Find(".flag[title]").First().AttrOr("title", ""),
			Uploader: strings.TrimSpace(tr.Find(`a[href*="/profile/"]`).First().Text()),
		}
		if m := digits.FindString(tr.Find(`a[href*="/subtitleserve/"]`).First().Text()); m != "" {
			row.Downloads, _ = strconv.Atoi(m)
		}
		rating, err := strconv.ParseFloat(strings.TrimSpace(tr.Find("span.rating").First().Text()), 64)
		if err == nil && !math.IsNaN(rating) && !math.IsInf(rating, 0) {
			row.Rating = rating
		}

		rows = append(rows, row)
		return len(rows) < maxScrapedRows
	})
	return rows, nil
}

// PatternExtractor pairs subtitle links with language flags by position.
// It only recovers id, name and language.
type PatternExtractor struct{}

var (
	subtitleLink = regexp.MustCompile(`<a[^>]*href="/en/subtitles/(\d+)/[^"]*"[^>]*>([^<]+)</a>`)
	languageFlag = regexp.MustCompile(`<span[^>]*class="[^"]*flag[^"]*"[^>]*title="([^"]+)"`)
)

func (PatternExtractor) Extract(page io.Reader) ([]ScrapedRow, error) {
	body, err := io.ReadAll(page)
	if err != nil {
		return nil, fmt.Errorf("failed to read listing: %w", err)
	}

	links := subtitleLink.FindAllSubmatch(body, maxScrapedRows)
	flags := languageFlag.FindAllSubmatch(body, -1)

	rows := make([]ScrapedRow, 0, len(links))
	for i, m := range links {
		lang := "Unknown"
		if i < len(flags) {
			lang = string(flags[i][1])
		}
		rows = append(rows, ScrapedRow{
			ID:       string(m[1]),
			Name:     strings.TrimSpace(string(m[2])),
			Language: lang,
		})
	}
	return rows, nil
}

// FindDownloadPath looks for the subtitleserve link on a subtitle detail page:
// a download anchor first, then the download form action.
func FindDownloadPath(page io.Reader) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(page)
	if err != nil {
		return "", false
	}
	if href, ok := doc.Find(`a[href*="/subtitleserve/sub/"][download]`).First().Attr("href"); ok {
		return href, true
	}
	if href, ok := doc.Find(`a[href*="/subtitleserve/sub/"]`).First().Attr("href"); ok {
		return href, true
	}
	if action, ok := doc.Find(`form[action*="/subtitleserve/sub/"]`).First().Attr("action"); ok {
		return action, true
	}
	return "", false
}
