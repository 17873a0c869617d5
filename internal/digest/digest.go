// Package digest turns the reading list into a Markdown document.
package digest

import (
	"fmt"
	"strings"

	"github.com/TobiSchelling/journals/internal/database"
	"github.com/TobiSchelling/journals/internal/extract"
	"github.com/TobiSchelling/journals/internal/feed"
)

const (
	heading      = "# Saved abstracts"
	emptyMessage = "Nothing saved yet."
	noAbstract   = "_No abstract was found for this article._"
)

// Compose renders saved abstracts as Markdown, one section per article in
// the order given.
func Compose(items []database.SavedAbstract) string {
	if len(items) == 0 {
		return heading + "\n\n" + emptyMessage + "\n"
	}

	sections := make([]string, 0, len(items))
	for _, a := range items {
		sections = append(sections, section(a))
	}

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%d %s\n\n", len(items), plural(len(items), "article", "articles"))
	b.WriteString(strings.Join(sections, "\n\n---\n\n"))
	b.WriteString("\n")
	return b.String()
}

func section(a database.SavedAbstract) string {
	title := strings.TrimSpace(a.Title)
	if title == "" {
		title = a.Link
	}

	var meta []string
	if a.FeedName != nil && *a.FeedName != "" {
		meta = append(meta, "*"+*a.FeedName+"*")
	}
	if a.SavedAt != nil && *a.SavedAt != "" {
		meta = append(meta, "saved "+*a.SavedAt)
	}

	s := fmt.Sprintf("## [%s](%s)", escapeLinkText(title), a.Link)
	if len(meta) > 0 {
		s += "\n\n" + strings.Join(meta, " · ")
	}
	return s + "\n\n" + body(a)
}

func body(a database.SavedAbstract) string {
	if a.AbstractHTML != nil {
		if text := extract.Text(*a.AbstractHTML); text != "" {
			return text
		}
	}
	if a.Description != nil {
		if text := feed.Plain(*a.Description); text != "" {
			return "> " + text
		}
	}
	return noAbstract
}

func escapeLinkText(s string) string {
	return strings.NewReplacer("[", `\[`, "]", `\]`).Replace(s)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
