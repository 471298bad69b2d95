// Package archive defines the domain types shared by the scraper, the store and the API.
package archive

import (
	"errors"
	"fmt"
	"time"
)

// Site constants for the Dawn newspaper archive.
const (
	SiteOrigin    = "https://www.dawn.com"
	NewspaperBase = SiteOrigin + "/newspaper"
)

// Section identifiers, scraped in this order for every day.
const (
	SectionFrontPage = "front-page"
	SectionBackPage  = "back-page"
	SectionNational  = "national"
	SectionEditorial = "editorial"
	SectionBusiness  = "business"
)

// Sentinel errors returned by fetchers, stores and date helpers.
var (
	ErrFetch       = errors.New("fetch failed")
	ErrPersist     = errors.New("persist failed")
	ErrNotFound    = errors.New("archive not found")
	ErrInvalidDate = errors.New("invalid date format, use YYYY-MM-DD")
)

// Sections returns the fixed section list in scrape order.
func Sections() []string {
	return []string{
		SectionFrontPage,
		SectionBackPage,
		SectionNational,
		SectionEditorial,
		SectionBusiness,
	}
}

// SectionURL builds the archive page URL for one section and date.
func SectionURL(base, section, date string) string {
	if base == "" {
		base = NewspaperBase
	}
	return fmt.Sprintf("%s/%s/%s", base, section, date)
}

// Article is one news item parsed from a section page.
type Article struct {
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	Summary  string  `json:"summary"`
	Section  string  `json:"section"`
	Date     string  `json:"date"`
	ImageURL *string `json:"imageUrl"`
}

// DayArchive is the full scrape result for one calendar date.
// Sections always carries every section key; an empty slice means nothing was found
// or the section failed to scrape.
type DayArchive struct {
	Date     string               `json:"date"`
	Sections map[string][]Article `json:"sections"`
	CachedAt *time.Time           `json:"cached_at"`
}

// NewDayArchive returns an archive with every section initialised to an empty list.
func NewDayArchive(date string, cachedAt time.Time) DayArchive {
	sections := make(map[string][]Article, len(Sections()))
	for _, name := range Sections() {
		sections[name] = []Article{}
	}
	ts := cachedAt
	return DayArchive{
		Date:     date,
		Sections: sections,
		CachedAt: &ts,
	}
}

// ArticleCount sums the articles across all sections.
func (d DayArchive) ArticleCount() int {
	total := 0
	for _, articles := range d.Sections {
		total += len(articles)
	}
	return total
}

// SectionCounts reports the number of articles per section.
func (d DayArchive) SectionCounts() map[string]int {
	counts := make(map[string]int, len(d.Sections))
	for name, articles := range d.Sections {
		counts[name] = len(articles)
	}
	return counts
}

// StringPtr is a small helper for optional string fields.
func StringPtr(s string) *string {
	return &s
}
