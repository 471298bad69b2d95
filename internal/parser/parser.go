// Package parser turns rendered Dawn section pages into article records.
package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/dawn-archive/internal/archive"
)

// Container selectors in priority order. The first one that matches any element wins.
var containerSelectors = []string{
	"article.story",
	".story",
	"article",
	".box.story",
	".story-list article",
}

var (
	titleSelectors   = []string{".story__title a", "h2 a, h3 a", ".story__link"}
	summarySelectors = []string{".story__excerpt", ".story__text", "p"}
)

// Config controls URL normalisation.
type Config struct {
	SiteOrigin string
}

// Parser implements archive.Parser with goquery.
type Parser struct {
	origin string
	logger *zap.Logger
}

// New builds a Parser. An empty origin defaults to https://www.dawn.com.
func New(cfg Config, logger *zap.Logger) *Parser {
	origin := strings.TrimRight(cfg.SiteOrigin, "/")
	if origin == "" {
		origin = archive.SiteOrigin
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{origin: origin, logger: logger}
}

// Parse extracts the deduplicated, ordered article list for one section page.
// Malformed HTML yields fewer articles, never an error.
func (p *Parser) Parse(html, section, date string) []archive.Article {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		p.logger.Warn("parse html failed", zap.String("section", section), zap.Error(err))
		return []archive.Article{}
	}

	elements, selector := matchContainers(doc)
	if elements == nil {
		p.logger.Debug("no container selector matched", zap.String("section", section))
		return []archive.Article{}
	}

	articles := make([]archive.Article, 0, elements.Length())
	seen := make(map[string]struct{})
	elements.Each(func(_ int, el *goquery.Selection) {
		article, ok := p.extract(el, section, date)
		if !ok {
			return
		}
		if _, dup := seen[article.Title]; dup {
			return
		}
		seen[article.Title] = struct{}{}
		articles = append(articles, article)
	})

	p.logger.Debug("section parsed",
		zap.String("section", section),
		zap.String("selector", selector),
		zap.Int("candidates", elements.Length()),
		zap.Int("articles", len(articles)),
	)
	return articles
}

// matchContainers returns the elements for the first selector with at least one match.
// Matched elements that later fail extraction do not trigger a fallback.
func matchContainers(doc *goquery.Document) (*goquery.Selection, string) {
	for _, sel := range containerSelectors {
		found := doc.Find(sel)
		if found.Length() > 0 {
			return found, sel
		}
	}
	return nil, ""
}

func (p *Parser) extract(el *goquery.Selection, section, date string) (archive.Article, bool) {
	titleNode := firstWithText(el, titleSelectors)
	if titleNode == nil {
		return archive.Article{}, false
	}
	title := strings.TrimSpace(titleNode.Text())
	href, _ := titleNode.Attr("href")
	href = strings.TrimSpace(href)
	if title == "" || href == "" {
		return archive.Article{}, false
	}

	summary := ""
	if node := firstWithText(el, summarySelectors); node != nil {
		summary = strings.TrimSpace(node.Text())
	}

	article := archive.Article{
		Title:   title,
		URL:     NormalizeURL(p.origin, href),
		Summary: summary,
		Section: section,
		Date:    date,
	}
	if raw := ResolveImageURL(el); raw != "" {
		article.ImageURL = archive.StringPtr(NormalizeURL(p.origin, raw))
	}
	return article, true
}

// firstWithText tries each selector in order and returns the first node with non-empty text.
func firstWithText(el *goquery.Selection, selectors []string) *goquery.Selection {
	for _, sel := range selectors {
		var hit *goquery.Selection
		el.Find(sel).EachWithBreak(func(_ int, node *goquery.Selection) bool {
			if strings.TrimSpace(node.Text()) != "" {
				hit = node
				return false
			}
			return true
		})
		if hit != nil {
			return hit
		}
	}
	return nil
}
