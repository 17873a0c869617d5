package reader

import (
	"html"

	"github.com/TobiSchelling/journals/internal/extract"
	"github.com/TobiSchelling/journals/internal/feed"
	"github.com/TobiSchelling/journals/internal/fetch"
)

// Status classifies the outcome of a selection.
type Status int

const (
	StatusFound Status = iota
	StatusNotFound
	StatusFetchError
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusNotFound:
		return "not found"
	case StatusFetchError:
		return "fetch error"
	}
	return "unknown"
}

const notFoundHTML = "<p>Abstract not found.</p>"

// View is what a renderer displays for one selected item.
type View struct {
	Generation uint64
	Index      int
	Item       feed.Item
	Status     Status
	Abstract   extract.Result
	Page       *fetch.Page
	Err        error
}

// Document returns the renderable HTML for the view.
func (v View) Document() string {
	switch v.Status {
	case StatusFound:
		return v.Abstract.HTML
	case StatusFetchError:
		return "<p>Error loading content: " + html.EscapeString(v.errText()) + "</p>"
	default:
		return notFoundHTML
	}
}

// Text returns the view as plain text for terminals.
func (v View) Text() string {
	switch v.Status {
	case StatusFound:
		return extract.Text(v.Abstract.HTML)
	case StatusFetchError:
		return "Error loading content: " + v.errText()
	default:
		return "Abstract not found."
	}
}

func (v View) errText() string {
	if v.Err == nil {
		return "unknown error"
	}
	return v.Err.Error()
}
