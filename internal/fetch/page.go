package fetch

import (
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

const maxExcerpt = 300

// Page is descriptive information about an article page.
type Page struct {
	Title    string
	SiteName string
	Byline   string
	Excerpt  string
}

// PageInfo runs readability over a fetched page. It reports false when
// nothing useful could be read.
func PageInfo(pageHTML, pageURL string) (Page, bool) {
	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(strings.NewReader(pageHTML), parsedURL)
	if err != nil {
		return Page{}, false
	}

	p := Page{
		Title:    strings.TrimSpace(article.Title),
		SiteName: strings.TrimSpace(article.SiteName),
		Byline:   strings.TrimSpace(article.Byline),
		Excerpt:  strings.Join(strings.Fields(article.Excerpt), " "),
	}
	if r := []rune(p.Excerpt); len(r) > maxExcerpt {
		p.Excerpt = strings.TrimSpace(string(r[:maxExcerpt])) + "..."
	}
	if p.Title == "" && p.Excerpt == "" {
		return Page{}, false
	}
	return p, true
}
