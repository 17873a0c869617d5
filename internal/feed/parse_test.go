package feed

import (
	"errors"
	"strings"
	"testing"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <channel>
    <title>Journal of Examples</title>
    <link>https://journal.example.org</link>
    <description>Latest articles</description>
    <item>
      <title>First &amp; Foremost</title>
      <link>https://journal.example.org/a1</link>
      <description>One</description>
    </item>
    <item>
      <dc:title>Ignored</dc:title>
      <title><![CDATA[Second <b>bold</b>]]></title>
      <description>  spaced  </description>
      <link>https://journal.example.org/a2</link>
    </item>
    <item>
      <title>Third</title>
      <link>https://journal.example.org/a3</link>
      <description><p>nested <em>markup</em></p></description>
    </item>
  </channel>
</rss>`

func TestParseItemsInOrder(t *testing.T) {
	items, err := Parse(sampleRSS)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}

	want := []Item{
		{Title: "First & Foremost", Link: "https://journal.example.org/a1", Description: "One"},
		{Title: "Second <b>bold</b>", Link: "https://journal.example.org/a2", Description: "  spaced  "},
		{Title: "Third", Link: "https://journal.example.org/a3", Description: "nested markup"},
	}
	for i, w := range want {
		if items[i] != w {
			t.Errorf("item %d: expected %+v, got %+v", i, w, items[i])
		}
	}
}

func TestParseNoItems(t *testing.T) {
	items, err := Parse(`<rss><channel><title>Empty</title></channel></rss>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected 0 items, got %d", len(items))
	}
}

func TestParseAtomHasNoItems(t *testing.T) {
	atom := `<feed xmlns="http://www.w3.org/2005/Atom"><title>A</title>
<entry><title>E</title><link href="https://a.example/1"/><summary>s</summary></entry></feed>`
	items, err := Parse(atom)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected 0 items, got %d", len(items))
	}
}

func TestParseFirstChildWins(t *testing.T) {
	items, err := Parse(`<rss><item><title>A</title><title>B</title><link>l</link><description>d</description></item></rss>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items[0].Title != "A" {
		t.Errorf("expected first title 'A', got %q", items[0].Title)
	}
}

func TestParseMissingElement(t *testing.T) {
	cases := map[string]string{
		"title":       `<rss><item><link>l</link><description>d</description></item></rss>`,
		"link":        `<rss><item><title>t</title><description>d</description></item></rss>`,
		"description": `<rss><item><title>t</title><link>l</link></item></rss>`,
	}
	for element, doc := range cases {
		t.Run(element, func(t *testing.T) {
			items, err := Parse(doc)
			if err == nil {
				t.Fatalf("expected error, got %d items", len(items))
			}
			if !errors.Is(err, ErrMissingElement) {
				t.Errorf("expected ErrMissingElement, got %v", err)
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if perr.Element != element {
				t.Errorf("expected missing %q, got %q", element, perr.Element)
			}
			if perr.Index != 0 {
				t.Errorf("expected index 0, got %d", perr.Index)
			}
		})
	}
}

func TestParseMissingElementLaterItem(t *testing.T) {
	doc := `<rss><channel>
<item><title>a</title><link>l</link><description>d</description></item>
<item><title>b</title><description>d</description></item>
</channel></rss>`
	_, err := Parse(doc)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if perr.Index != 1 || perr.Element != "link" {
		t.Errorf("expected item 1 missing link, got index %d element %q", perr.Index, perr.Element)
	}
	if !strings.Contains(err.Error(), "item 2") {
		t.Errorf("expected 1-based item number in message, got %q", err.Error())
	}
}

func TestParsePrefixedChildDoesNotCount(t *testing.T) {
	_, err := Parse(`<rss><item><dc:title>t</dc:title><link>l</link><description>d</description></item></rss>`)
	if !errors.Is(err, ErrMissingElement) {
		t.Errorf("expected ErrMissingElement, got %v", err)
	}
}

func TestParseMalformed(t *testing.T) {
	docs := map[string]string{
		"empty":          ``,
		"not xml":        `this is not a feed`,
		"unclosed":       `<rss><channel><item><title>t</title>`,
		"mismatched":     `<rss><channel></rss></channel>`,
		"two roots":      `<rss></rss><rss></rss>`,
		"bad entity":     `<rss><item><title>&nbsp;</title><link>l</link><description>d</description></item></rss>`,
		"trailing text":  `<rss></rss>junk`,
		"stray end":      `</rss>`,
		"html not xhtml": `<html><body><br></body></html>`,
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			items, err := Parse(doc)
			if err == nil {
				t.Fatalf("expected error, got %d items", len(items))
			}
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("expected ErrMalformed, got %v", err)
			}
			var perr *ParseError
			if !errors.As(err, &perr) || perr.Index != -1 {
				t.Errorf("expected document-level *ParseError, got %#v", err)
			}
		})
	}
}

func TestParseNestedItemsAnyDepth(t *testing.T) {
	doc := `<rdf><channel/><item><title>x</title><link>y</link><description>z</description></item></rdf>`
	items, err := Parse(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].Link != "y" {
		t.Errorf("unexpected items: %+v", items)
	}
}

func TestParseByteOrderMark(t *testing.T) {
	items, err := Parse("\ufeff<rss><item><title>t</title><link>l</link><description>d</description></item></rss>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("expected 1 item, got %d", len(items))
	}
}

func TestParseLatin1(t *testing.T) {
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><rss><item><title>Caf\xe9</title><link>l</link><description>d</description></item></rss>"
	items, err := Parse(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items[0].Title != "Café" {
		t.Errorf("expected 'Café', got %q", items[0].Title)
	}
}
