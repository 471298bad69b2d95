package parser

import "strings"

// NormalizeURL makes an article or image reference absolute.
// Protocol-relative references get https, absolute http(s) references are kept,
// anything else is treated as site-relative.
func NormalizeURL(origin, raw string) string {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return ""
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw
	case strings.HasPrefix(raw, "http"):
		return raw
	case strings.HasPrefix(raw, "/"):
		return origin + raw
	default:
		return origin + "/" + raw
	}
}
