package extract

import (
	"strings"
	"testing"
)

func TestMetaAbstractDecoded(t *testing.T) {
	r := Extract(`<html><head><meta name="citation_abstract" content="A &amp; B"></head><body></body></html>`)
	if !r.Found {
		t.Fatal("expected abstract to be found")
	}
	if r.HTML != "A & B" {
		t.Errorf("expected 'A & B', got %q", r.HTML)
	}
	if r.Strategy != StrategyMeta {
		t.Errorf("expected meta strategy, got %q", r.Strategy)
	}
}

func TestMetaWinsOverAnchor(t *testing.T) {
	page := `<html><head>
<meta name="citation_title" content="Title">
<meta name="citation_abstract" content="&lt;p&gt;Background: trial.&lt;/p&gt;">
</head><body>
<div>Abstract</div><p>Body paragraph.</p>
</body></html>`
	r := Extract(page)
	if r.HTML != "<p>Background: trial.</p>" {
		t.Errorf("expected meta content, got %q", r.HTML)
	}
}

func TestMetaWithoutContentFallsBack(t *testing.T) {
	page := `<meta name="citation_abstract"><div>Abstract</div><p>Fallback text.</p>`
	r := Extract(page)
	if r.Strategy != StrategyAnchor {
		t.Fatalf("expected anchor strategy, got %q", r.Strategy)
	}
	if r.HTML != "<div><p>Fallback text.</p></div>" {
		t.Errorf("unexpected fragment %q", r.HTML)
	}
}

func TestMetaEmptyContentIsFound(t *testing.T) {
	r := Extract(`<meta name="citation_abstract" content="">`)
	if !r.Found || r.HTML != "" {
		t.Errorf("expected found empty abstract, got %+v", r)
	}
}

func TestAnchorStopsAtReferences(t *testing.T) {
	r := Extract(`<div>Abstract</div><p>Text one.</p><div>References</div>`)
	if !r.Found {
		t.Fatal("expected abstract to be found")
	}
	if r.HTML != "<div><p>Text one.</p></div>" {
		t.Errorf("unexpected fragment %q", r.HTML)
	}
}

func TestAnchorExcludesEverythingAfterReferences(t *testing.T) {
	page := `<body><section>
<div class="hd">Abstract</div>
<p>First.</p>
<span>skipped inline</span>
<div>Second.</div>
<div>References 1. Smith</div>
<p>After references.</p>
</section></body>`
	r := Extract(page)
	want := "<div><p>First.</p><p>Second.</p></div>"
	if r.HTML != want {
		t.Errorf("expected %q, got %q", want, r.HTML)
	}
}

func TestParagraphWithReferencesDoesNotStop(t *testing.T) {
	r := Extract(`<div>Abstract</div><p>See References below.</p><p>More.</p>`)
	want := "<div><p>See References below.</p><p>More.</p></div>"
	if r.HTML != want {
		t.Errorf("expected %q, got %q", want, r.HTML)
	}
}

func TestAnchorFirstSiblingIsReferences(t *testing.T) {
	r := Extract(`<div>Abstract</div><div>References</div><p>x</p>`)
	if !r.Found || r.HTML != "<div></div>" {
		t.Errorf("expected empty fragment, got %+v", r)
	}
}

func TestAnchorWithoutSiblingsNotFound(t *testing.T) {
	r := Extract(`<div><div>Abstract</div><span>no blocks</span></div>`)
	if r.Found {
		t.Errorf("expected not found, got %+v", r)
	}
}

func TestNoAnchorNoMetaNotFound(t *testing.T) {
	r := Extract(`<html><head><title>Abstract art</title></head><body><p>Nothing here.</p></body></html>`)
	if r != NotFound {
		t.Errorf("expected NotFound, got %+v", r)
	}
}

func TestAnchorUsesOwnText(t *testing.T) {
	page := `<div id="outer"><span>Abstract</span><p>Outer sibling? no.</p></div>
<div>Abstract</div><p>Inner.</p>`
	r := Extract(page)
	if r.HTML != "<div><p>Inner.</p></div>" {
		t.Errorf("expected anchor on the div that owns the word, got %q", r.HTML)
	}
}

func TestParagraphTextIsDecoded(t *testing.T) {
	r := Extract(`<div>Abstract</div><p>It's a "test" &amp; more.</p><div>References</div>`)
	if r.HTML != `<div><p>It's a "test" & more.</p></div>` {
		t.Errorf("unexpected fragment %q", r.HTML)
	}

	r = Extract(`<div>Abstract</div><p>p &lt; 0.05 &amp; n = 12</p>`)
	if r.HTML != "<div><p>p < 0.05 & n = 12</p></div>" {
		t.Errorf("unexpected fragment %q", r.HTML)
	}
	if got := Text(r.HTML); got != "p < 0.05 & n = 12" {
		t.Errorf("expected decoded text, got %q", got)
	}
}

func TestAnchorChecksFirstTextNodeOnly(t *testing.T) {
	pages := map[string]string{
		"split by comment": `<div>Abs<!-- c -->tract</div><p>One.</p>`,
		"after element":    `<div>Intro <b>x</b> Abstract</div><p>One.</p>`,
	}
	for name, page := range pages {
		if r := Extract(page); r != NotFound {
			t.Errorf("%s: expected NotFound, got %+v", name, r)
		}
	}

	r := Extract(`<div>Abstract <b>x</b> tail</div><p>One.</p>`)
	if r.HTML != "<div><p>One.</p></div>" {
		t.Errorf("expected leading text node to anchor, got %+v", r)
	}
}

func TestMalformedMarkupNeverFails(t *testing.T) {
	pages := []string{
		"",
		"<<<>>>",
		`<div>Abstract<p>unclosed`,
		strings.Repeat("<div>", 500),
	}
	for _, p := range pages {
		_ = Extract(p)
	}

	r := Extract(`<div>Abstract<p>unclosed`)
	if r.Found {
		t.Errorf("expected not found for paragraph nested inside anchor, got %+v", r)
	}
}

func TestCustomOptions(t *testing.T) {
	ex := New(Options{
		MetaName:    "dc.description",
		AnchorTags:  []string{"h2"},
		SiblingTags: []string{"p", "h2"},
		StopTags:    []string{"h2"},
	})
	page := `<h2>Abstract</h2><p>Custom.</p><h2>References</h2><p>Smith 2020.</p>`
	r := ex.Extract(page)
	if r.HTML != "<div><p>Custom.</p></div>" {
		t.Errorf("unexpected fragment %q", r.HTML)
	}

	r = ex.Extract(`<meta name="dc.description" content="Described.">`)
	if r.HTML != "Described." {
		t.Errorf("expected custom meta to match, got %q", r.HTML)
	}

	if got := ex.Options().AnchorWord; got != "Abstract" {
		t.Errorf("expected default anchor word, got %q", got)
	}
}

func TestText(t *testing.T) {
	got := Text("<div><p>One\n two.</p><p></p><p>Three.</p></div>")
	if got != "One two.\n\nThree." {
		t.Errorf("unexpected text %q", got)
	}
	if got := Text("plain   meta abstract"); got != "plain meta abstract" {
		t.Errorf("unexpected text %q", got)
	}
}
