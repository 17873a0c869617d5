package feed

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// Meta is optional channel-level information about a feed.
type Meta struct {
	Title string
	Link  string
	Type  string
}

// Describe reads channel metadata with a lenient parser. It is only used to
// label a loaded feed; items always come from Parse.
func Describe(raw string) (Meta, error) {
	f, err := gofeed.NewParser().ParseString(raw)
	if err != nil {
		return Meta{}, err
	}
	return Meta{
		Title: strings.TrimSpace(f.Title),
		Link:  strings.TrimSpace(f.Link),
		Type:  f.FeedType,
	}, nil
}

// SourceName derives a display name from a feed URL or file path.
func SourceName(location string) string {
	u, err := url.Parse(location)
	if err != nil || u.Host == "" {
		base := filepath.Base(location)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	host := strings.ToLower(u.Hostname())

	for _, prefix := range []string{"www.", "blog.", "blogs.", "rss.", "feeds.", "journals."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	name := host
	if len(parts) >= 2 {
		name = parts[len(parts)-2]
	}
	if name == "" {
		return location
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// Plain returns a description as collapsed plain text.
func Plain(description string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(description))
	if err != nil {
		return strings.Join(strings.Fields(description), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
