package feed

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

var (
	// ErrMalformed marks documents that are not well-formed XML.
	ErrMalformed = errors.New("malformed feed document")
	// ErrMissingElement marks an <item> without a required child element.
	ErrMissingElement = errors.New("missing required element")
)

// Item is one entry of a feed.
type Item struct {
	Title       string
	Link        string
	Description string
}

func (i Item) String() string {
	return i.Title
}

// ParseError reports why a feed document was rejected.
type ParseError struct {
	Index   int    // 0-based item index, -1 for document-level errors
	Element string // missing child element, if any
	Err     error
}

func (e *ParseError) Error() string {
	if e.Element != "" {
		return fmt.Sprintf("item %d: missing <%s> element", e.Index+1, e.Element)
	}
	return fmt.Sprintf("parsing feed: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var requiredElements = [...]string{"title", "link", "description"}

func fieldIndex(local string) int {
	for i, name := range requiredElements {
		if name == local {
			return i
		}
	}
	return -1
}

// openItem tracks an <item> whose end tag has not been seen yet.
type openItem struct {
	slot  int
	depth int
	seen  [len(requiredElements)]bool
}

// capture accumulates the text content of a required child element.
type capture struct {
	slot  int
	field int
	depth int
	buf   strings.Builder
}

// Parse extracts every <item> of an RSS document in document order.
// Each item must carry <title>, <link> and <description> children; their
// text content is kept exactly as written.
func Parse(raw string) ([]Item, error) {
	d := xml.NewDecoder(strings.NewReader(strings.TrimPrefix(raw, "\ufeff")))
	d.CharsetReader = charset.NewReaderLabel

	var (
		stack      []xml.Name
		open       []*openItem
		captures   []*capture
		items      []Item
		rootSeen   bool
		rootClosed bool
	)

	malformed := func(format string, args ...any) error {
		return &ParseError{Index: -1, Err: fmt.Errorf("%w: "+format, append([]any{ErrMalformed}, args...)...)}
	}

	for {
		tok, err := d.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, malformed("%v", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) == 0 {
				if rootClosed {
					return nil, malformed("multiple root elements (<%s>)", t.Name.Local)
				}
				rootSeen = true
			}
			depth := len(stack)
			stack = append(stack, t.Name)

			if t.Name.Space != "" {
				continue
			}
			if n := len(open); n > 0 {
				it := open[n-1]
				if f := fieldIndex(t.Name.Local); f >= 0 && depth == it.depth+1 && !it.seen[f] {
					it.seen[f] = true
					captures = append(captures, &capture{slot: it.slot, field: f, depth: depth})
				}
			}
			if t.Name.Local == "item" {
				items = append(items, Item{})
				open = append(open, &openItem{slot: len(items) - 1, depth: depth})
			}

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, malformed("unexpected </%s>", qualified(t.Name))
			}
			if top := stack[len(stack)-1]; top != t.Name {
				return nil, malformed("element <%s> closed by </%s>", qualified(top), qualified(t.Name))
			}
			stack = stack[:len(stack)-1]
			depth := len(stack)

			if n := len(captures); n > 0 && captures[n-1].depth == depth {
				c := captures[n-1]
				setField(&items[c.slot], c.field, c.buf.String())
				captures = captures[:n-1]
			}
			if n := len(open); n > 0 && open[n-1].depth == depth {
				it := open[n-1]
				for f, ok := range it.seen {
					if !ok {
						return nil, &ParseError{Index: it.slot, Element: requiredElements[f], Err: ErrMissingElement}
					}
				}
				open = open[:n-1]
			}
			if depth == 0 {
				rootClosed = true
			}

		case xml.CharData:
			if len(stack) == 0 {
				if len(bytes.TrimSpace(t)) > 0 {
					return nil, malformed("text outside the root element")
				}
				continue
			}
			for _, c := range captures {
				c.buf.Write(t)
			}
		}
	}

	if len(stack) > 0 {
		return nil, malformed("unexpected end of document inside <%s>", qualified(stack[len(stack)-1]))
	}
	if !rootSeen {
		return nil, malformed("no root element")
	}
	return items, nil
}

func setField(it *Item, field int, value string) {
	switch field {
	case 0:
		it.Title = value
	case 1:
		it.Link = value
	case 2:
		it.Description = value
	}
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
