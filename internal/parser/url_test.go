package parser

import "testing"

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	const origin = "https://www.dawn.com"
	tests := []struct {
		in   string
		want string
	}{
		{"//cdn.example.com/x.jpg", "https://cdn.example.com/x.jpg"},
		{"/local/x.jpg", "https://www.dawn.com/local/x.jpg"},
		{"https://abs.example.com/x.jpg", "https://abs.example.com/x.jpg"},
		{"http://plain.example.com/x.jpg", "http://plain.example.com/x.jpg"},
		{"news/123", "https://www.dawn.com/news/123"},
		{"  /trimmed ", "https://www.dawn.com/trimmed"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeURL(origin, tt.in); got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func FuzzNormalizeURL(f *testing.F) {
	for _, seed := range []string{"//a/b", "/x", "https://y", "rel"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, raw string) {
		got := NormalizeURL("https://www.dawn.com", raw)
		if got == "" {
			return
		}
		if got[:4] != "http" {
			t.Errorf("NormalizeURL(%q) = %q is not absolute", raw, got)
		}
	})
}
