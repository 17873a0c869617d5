// Package extract finds a human-readable abstract in an article page.
//
// Two strategies are tried in order. The citation meta tag used by most
// academic publishers wins outright; otherwise the page is scanned for an
// "Abstract" heading and the paragraphs that follow it, up to the
// references section.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Strategy names the step that produced an abstract.
type Strategy string

const (
	StrategyNone   Strategy = ""
	StrategyMeta   Strategy = "meta"
	StrategyAnchor Strategy = "anchor"
)

// Result is the outcome of an extraction. The zero value means not found.
type Result struct {
	Found    bool
	HTML     string
	Strategy Strategy
}

// NotFound is the negative result.
var NotFound = Result{}

// Options tune the heuristics. DefaultOptions reproduces the standard behavior.
type Options struct {
	MetaName    string
	AnchorTags  []string
	AnchorWord  string
	SiblingTags []string
	StopTags    []string
	StopWord    string
}

// DefaultOptions returns the options used by Extract.
func DefaultOptions() Options {
	return Options{
		MetaName:    "citation_abstract",
		AnchorTags:  []string{"div"},
		AnchorWord:  "Abstract",
		SiblingTags: []string{"p", "div"},
		StopTags:    []string{"div"},
		StopWord:    "References",
	}
}

// Extractor applies the extraction chain with a fixed set of options.
// It holds no per-page state and is safe for concurrent use.
type Extractor struct {
	opts     Options
	anchors  string
	siblings string
	stop     map[string]bool
}

// New creates an Extractor. Empty fields fall back to the defaults.
func New(opts Options) *Extractor {
	def := DefaultOptions()
	if opts.MetaName == "" {
		opts.MetaName = def.MetaName
	}
	if len(opts.AnchorTags) == 0 {
		opts.AnchorTags = def.AnchorTags
	}
	if opts.AnchorWord == "" {
		opts.AnchorWord = def.AnchorWord
	}
	if len(opts.SiblingTags) == 0 {
		opts.SiblingTags = def.SiblingTags
	}
	if len(opts.StopTags) == 0 {
		opts.StopTags = def.StopTags
	}
	if opts.StopWord == "" {
		opts.StopWord = def.StopWord
	}

	stop := make(map[string]bool, len(opts.StopTags))
	for _, tag := range opts.StopTags {
		stop[strings.ToLower(tag)] = true
	}

	return &Extractor{
		opts:     opts,
		anchors:  strings.Join(opts.AnchorTags, ", "),
		siblings: strings.Join(opts.SiblingTags, ", "),
		stop:     stop,
	}
}

var defaultExtractor = New(DefaultOptions())

// Extract runs the default extraction chain over a page.
func Extract(pageHTML string) Result {
	return defaultExtractor.Extract(pageHTML)
}

// Options returns the effective options.
func (e *Extractor) Options() Options {
	return e.opts
}

// Extract returns the abstract of a page, or NotFound. It never fails:
// broken markup is repaired by the HTML parser and simply yields fewer matches.
func (e *Extractor) Extract(pageHTML string) Result {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return NotFound
	}

	if r, ok := e.fromMeta(doc); ok {
		return r
	}
	return e.fromAnchor(doc)
}

// fromMeta looks at the first meta element with the configured name only.
// Attribute values arrive entity-decoded from the tokenizer.
func (e *Extractor) fromMeta(doc *goquery.Document) (Result, bool) {
	var meta *goquery.Selection
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if name, _ := s.Attr("name"); name == e.opts.MetaName {
			meta = s
			return false
		}
		return true
	})
	if meta == nil {
		return NotFound, false
	}

	content, ok := meta.Attr("content")
	if !ok {
		return NotFound, false
	}
	return Result{Found: true, HTML: content, Strategy: StrategyMeta}, true
}

func (e *Extractor) fromAnchor(doc *goquery.Document) Result {
	anchor := doc.Find(e.anchors).FilterFunction(func(_ int, s *goquery.Selection) bool {
		text, ok := firstText(s)
		return ok && strings.Contains(text, e.opts.AnchorWord)
	}).First()
	if anchor.Length() == 0 {
		return NotFound
	}

	siblings := anchor.NextAllFiltered(e.siblings)
	if siblings.Length() == 0 {
		return NotFound
	}

	var b strings.Builder
	b.WriteString("<div>")
	siblings.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if e.stop[goquery.NodeName(s)] && strings.Contains(text, e.opts.StopWord) {
			return false
		}
		// Decoded text, not re-escaped.
		b.WriteString("<p>")
		b.WriteString(text)
		b.WriteString("</p>")
		return true
	})
	b.WriteString("</div>")

	return Result{Found: true, HTML: strings.TrimSpace(b.String()), Strategy: StrategyAnchor}
}

// firstText returns the first direct text child of s. Text after a comment
// or a child element is a separate node and is not considered.
func firstText(s *goquery.Selection) (string, bool) {
	for c := s.Nodes[0].FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			return c.Data, true
		}
	}
	return "", false
}
