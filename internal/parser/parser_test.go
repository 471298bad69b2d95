package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/dawn-archive/internal/archive"
)

func newTestParser() *Parser {
	return New(Config{}, zap.NewNop())
}

func page(body string) string {
	return "<!doctype html><html><head><title>Dawn</title></head><body>" + body + "</body></html>"
}

func TestParse_ExtractsArticlesInOrder(t *testing.T) {
	t.Parallel()

	html := page(`
<article class="story">
  <h2 class="story__title"><a class="story__link" href="/news/1001/first">
     First headline </a></h2>
  <div class="story__excerpt">First summary.</div>
  <img data-src="/images/first.jpg" src="data:image/gif;base64,AAAA">
</article>
<article class="story">
  <h2 class="story__title"><a href="https://www.dawn.com/news/1002/second">Second headline</a></h2>
  <p>Second summary.</p>
</article>`)

	articles := newTestParser().Parse(html, archive.SectionNational, "2020-01-01")
	require.Len(t, articles, 2)

	first := articles[0]
	require.Equal(t, "First headline", first.Title)
	require.Equal(t, "https://www.dawn.com/news/1001/first", first.URL)
	require.Equal(t, "First summary.", first.Summary)
	require.Equal(t, archive.SectionNational, first.Section)
	require.Equal(t, "2020-01-01", first.Date)
	require.NotNil(t, first.ImageURL)
	require.Equal(t, "https://www.dawn.com/images/first.jpg", *first.ImageURL)

	second := articles[1]
	require.Equal(t, "Second headline", second.Title)
	require.Equal(t, "https://www.dawn.com/news/1002/second", second.URL)
	require.Equal(t, "Second summary.", second.Summary)
	require.Nil(t, second.ImageURL)
}

func TestParse_DropsDuplicateTitles(t *testing.T) {
	t.Parallel()

	html := page(`
<article class="story"><h2><a href="/news/1">Budget passed</a></h2><p>first</p></article>
<article class="story"><h2><a href="/news/2">Budget passed</a></h2><p>second</p></article>
<article class="story"><h2><a href="/news/3">budget passed</a></h2></article>`)

	articles := newTestParser().Parse(html, archive.SectionBusiness, "2020-01-01")
	require.Len(t, articles, 2)
	require.Equal(t, "https://www.dawn.com/news/1", articles[0].URL)
	require.Equal(t, "first", articles[0].Summary)
	require.Equal(t, "budget passed", articles[1].Title)
}

func TestParse_KeepsInternalWhitespace(t *testing.T) {
	t.Parallel()

	html := page(`
<article class="story"><h2 class="story__title"><a href="/news/1">Budget   2014:
  tax</a></h2><div class="story__excerpt">  Line one
line two  </div></article>
<article class="story"><h2 class="story__title"><a href="/news/2">Budget 2014: tax</a></h2></article>`)

	articles := newTestParser().Parse(html, archive.SectionBusiness, "2014-06-04")
	require.Len(t, articles, 2)
	require.Equal(t, "Budget   2014:\n  tax", articles[0].Title)
	require.Equal(t, "Line one\nline two", articles[0].Summary)
	require.Equal(t, "Budget 2014: tax", articles[1].Title)
}

func TestParse_FallsBackWhenSelectorMatchesNothing(t *testing.T) {
	t.Parallel()

	html := page(`
<div class="story"><h3><a href="//www.dawn.com/news/7">Fallback story</a></h3>
  <div class="story__text">Body text</div>
</div>`)

	articles := newTestParser().Parse(html, archive.SectionEditorial, "2020-01-01")
	require.Len(t, articles, 1)
	require.Equal(t, "Fallback story", articles[0].Title)
	require.Equal(t, "https://www.dawn.com/news/7", articles[0].URL)
	require.Equal(t, "Body text", articles[0].Summary)
}

func TestParse_GenericArticleSelector(t *testing.T) {
	t.Parallel()

	html := page(`<main><article><h2><a href="/news/9">Plain article</a></h2></article></main>`)

	articles := newTestParser().Parse(html, archive.SectionBackPage, "2020-01-01")
	require.Len(t, articles, 1)
	require.Equal(t, "Plain article", articles[0].Title)
	require.Equal(t, "", articles[0].Summary)
}

func TestParse_NoFallbackWhenMatchedElementsFailExtraction(t *testing.T) {
	t.Parallel()

	// article.story matches but has no usable title, so the extractable plain
	// <article> further down must not be considered.
	html := page(`
<article class="story"><span>No link here</span></article>
<article class="story"><h2><a>Missing href</a></h2></article>
<section><article><h2><a href="/news/5">Would be found by a looser selector</a></h2></article></section>`)

	articles := newTestParser().Parse(html, archive.SectionFrontPage, "2020-01-01")
	require.NotNil(t, articles)
	require.Empty(t, articles)
}

func TestParse_TitleSelectorPriority(t *testing.T) {
	t.Parallel()

	html := page(`
<article class="story">
  <h3><a href="/news/other">Related link</a></h3>
  <h2 class="story__title"><a href="/news/main">Main headline</a></h2>
</article>
<article class="story">
  <a class="story__link" href="/news/link-only">Link class only</a>
</article>
<article class="story">
  <h2 class="story__title"><a href="/news/empty">   </a></h2>
  <h2><a href="/news/heading">Heading anchor</a></h2>
</article>`)

	articles := newTestParser().Parse(html, archive.SectionNational, "2020-01-01")
	require.Len(t, articles, 3)
	require.Equal(t, "Main headline", articles[0].Title)
	require.Equal(t, "https://www.dawn.com/news/main", articles[0].URL)
	require.Equal(t, "Link class only", articles[1].Title)
	require.Equal(t, "https://www.dawn.com/news/link-only", articles[1].URL)
	require.Equal(t, "Heading anchor", articles[2].Title)
}

func TestParse_MalformedAndEmptyInput(t *testing.T) {
	t.Parallel()

	p := newTestParser()
	require.Empty(t, p.Parse("", archive.SectionNational, "2020-01-01"))
	require.Empty(t, p.Parse("<div><article class=", archive.SectionNational, "2020-01-01"))
	require.Empty(t, p.Parse(page("<p>nothing to see</p>"), archive.SectionNational, "2020-01-01"))
}

func TestParse_IsDeterministic(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for _, title := range []string{"One", "Two", "One", "Three"} {
		b.WriteString(`<article class="story"><h2><a href="/news/` + title + `">` + title + `</a></h2></article>`)
	}
	html := page(b.String())

	p := newTestParser()
	first := p.Parse(html, archive.SectionBusiness, "2020-01-01")
	second := p.Parse(html, archive.SectionBusiness, "2020-01-01")
	require.Equal(t, first, second)
	require.Len(t, first, 3)
}

func TestParse_CustomOrigin(t *testing.T) {
	t.Parallel()

	p := New(Config{SiteOrigin: "http://localhost:8081/"}, nil)
	articles := p.Parse(page(`<article class="story"><h2><a href="/n/1">T</a></h2></article>`), "national", "2020-01-01")
	require.Len(t, articles, 1)
	require.Equal(t, "http://localhost:8081/n/1", articles[0].URL)
}
