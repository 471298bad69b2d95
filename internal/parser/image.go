package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var lazyImageAttrs = []string{"data-src", "data-original"}

// ResolveImageURL picks the best raw image reference for an article element.
// Priority: lazy-load attributes, img srcset, picture>source srcset, img src.
// Inline data URIs are never returned. The result is not normalised.
func ResolveImageURL(el *goquery.Selection) string {
	img := el.Find("img").First()
	hasImg := img.Length() > 0

	if hasImg {
		for _, attr := range lazyImageAttrs {
			if v, ok := img.Attr(attr); ok && usableImageRef(v) {
				return strings.TrimSpace(v)
			}
		}
		if srcset, ok := img.Attr("srcset"); ok {
			if first := firstSrcsetCandidate(srcset); usableImageRef(first) {
				return first
			}
		}
	}

	if source := el.Find("picture").First().Find("source").First(); source.Length() > 0 {
		if srcset, ok := source.Attr("srcset"); ok {
			if first := firstSrcsetCandidate(srcset); usableImageRef(first) {
				return first
			}
		}
	}

	if hasImg {
		if v, ok := img.Attr("src"); ok && usableImageRef(v) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// firstSrcsetCandidate returns the URL part of the first srcset entry.
func firstSrcsetCandidate(srcset string) string {
	first, _, _ := strings.Cut(srcset, ",")
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func usableImageRef(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.HasPrefix(v, "data:")
}
