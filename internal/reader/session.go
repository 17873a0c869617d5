// Package reader holds the command handlers behind the user surfaces: it
// loads feeds into a session, tracks the selected item and turns a
// selection into a rendered abstract.
package reader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/TobiSchelling/journals/internal/extract"
	"github.com/TobiSchelling/journals/internal/feed"
	"github.com/TobiSchelling/journals/internal/fetch"
)

var (
	ErrNoLocation = errors.New("no feed location given")
	ErrNoSuchItem = errors.New("no such item")
)

// FeedSource retrieves feed documents and article pages.
type FeedSource interface {
	Fetch(ctx context.Context, url string) (string, error)
	ReadFile(path string) (string, error)
}

// Renderer displays the outcome of a selection.
type Renderer interface {
	Render(v View)
}

// RenderFunc adapts a function to Renderer.
type RenderFunc func(View)

func (f RenderFunc) Render(v View) { f(v) }

// Source is a feed that has been loaded into the session.
type Source struct {
	Name     string
	Location string
	Items    int
}

// Session owns the displayed item list and the current selection.
//
// Every selection gets a new generation number and its own context. Starting
// a selection cancels the previous one, and a result only reaches the
// renderer if its generation is still current when it completes.
type Session struct {
	src    FeedSource
	ext    *extract.Extractor
	render Renderer
	log    *zap.Logger

	mu      sync.Mutex
	items   []feed.Item
	feeds   []Source
	current int
	link    string
	gen     uint64
	cancel  context.CancelFunc
	last    *View

	renderMu sync.Mutex
	wg       sync.WaitGroup
}

// New creates a session. A nil extractor uses the defaults and a nil
// renderer discards views.
func New(src FeedSource, ext *extract.Extractor, render Renderer, log *zap.Logger) *Session {
	if ext == nil {
		ext = extract.New(extract.DefaultOptions())
	}
	if render == nil {
		render = RenderFunc(func(View) {})
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{src: src, ext: ext, render: render, log: log, current: -1}
}

// AddFeed fetches a feed by URL and appends its items. On failure the
// item list is left untouched.
func (s *Session) AddFeed(ctx context.Context, url string) (int, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return 0, ErrNoLocation
	}
	raw, err := s.src.Fetch(ctx, url)
	if err != nil {
		s.log.Warn("feed fetch failed", zap.String("url", url), zap.Error(err))
		return 0, fmt.Errorf("loading feed: %w", err)
	}
	return s.LoadNamed("", url, raw)
}

// LoadFile reads a feed document from disk and appends its items.
func (s *Session) LoadFile(path string) (int, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return 0, ErrNoLocation
	}
	raw, err := s.src.ReadFile(path)
	if err != nil {
		s.log.Warn("feed file read failed", zap.String("path", path), zap.Error(err))
		return 0, fmt.Errorf("loading file: %w", err)
	}
	return s.LoadNamed("", path, raw)
}

// LoadDocument parses an already-read feed document, e.g. an upload.
func (s *Session) LoadDocument(location, raw string) (int, error) {
	return s.LoadNamed("", location, raw)
}

// LoadNamed is LoadDocument with a display name for the feed. An empty
// name falls back to the feed's own title, then to one derived from the
// location.
func (s *Session) LoadNamed(name, location, raw string) (int, error) {
	items, err := feed.Parse(raw)
	if err != nil {
		s.log.Warn("feed parse failed", zap.String("location", location), zap.Error(err))
		return 0, fmt.Errorf("loading feed: %w", err)
	}

	if name == "" {
		name = feed.SourceName(location)
		if meta, err := feed.Describe(raw); err == nil && meta.Title != "" {
			name = meta.Title
		}
	}

	s.mu.Lock()
	s.items = append(s.items, items...)
	s.feeds = append(s.feeds, Source{Name: name, Location: location, Items: len(items)})
	s.mu.Unlock()

	s.log.Info("feed loaded", zap.String("feed", name), zap.Int("items", len(items)))
	return len(items), nil
}

// Items returns a snapshot of the displayed items.
func (s *Session) Items() []feed.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]feed.Item(nil), s.items...)
}

// Feeds returns the feeds loaded so far.
func (s *Session) Feeds() []Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Source(nil), s.feeds...)
}

// Item returns the item at index.
func (s *Session) Item(index int) (feed.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.items) {
		return feed.Item{}, fmt.Errorf("%w: %d", ErrNoSuchItem, index+1)
	}
	return s.items[index], nil
}

// Current returns the selected index (-1 if none) and its link.
func (s *Session) Current() (int, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.link
}

// CurrentLink returns the link of the selected item, or "".
func (s *Session) CurrentLink() string {
	_, link := s.Current()
	return link
}

// Last returns the most recent view that reached the renderer.
func (s *Session) Last() (View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return View{}, false
	}
	return *s.last, true
}

// Select makes index the current item and resolves its abstract in the
// background. It returns the generation of the new selection.
func (s *Session) Select(ctx context.Context, index int) (uint64, error) {
	item, gen, fetchCtx, cancel, err := s.begin(ctx, index)
	if err != nil {
		return 0, err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.deliver(s.resolve(fetchCtx, gen, index, item))
	}()
	return gen, nil
}

// Show is the synchronous form of Select. The returned view is always the
// answer to this call; it is rendered only if no newer selection exists.
func (s *Session) Show(ctx context.Context, index int) (View, error) {
	item, gen, fetchCtx, cancel, err := s.begin(ctx, index)
	if err != nil {
		return View{}, err
	}
	defer cancel()

	v := s.resolve(fetchCtx, gen, index, item)
	s.deliver(v)
	return v, nil
}

// Preview resolves the abstract for an item without changing the selection.
func (s *Session) Preview(ctx context.Context, item feed.Item) View {
	return s.resolve(ctx, 0, -1, item)
}

// Wait blocks until background selections have finished.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close cancels the in-flight selection, drops its result and waits.
func (s *Session) Close() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Session) begin(ctx context.Context, index int) (feed.Item, uint64, context.Context, context.CancelFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.items) {
		return feed.Item{}, 0, nil, nil, fmt.Errorf("%w: %d", ErrNoSuchItem, index+1)
	}
	if s.cancel != nil {
		s.cancel()
	}

	s.gen++
	fetchCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.current = index
	s.link = s.items[index].Link

	s.log.Debug("item selected", zap.Int("index", index), zap.Uint64("generation", s.gen), zap.String("link", s.link))
	return s.items[index], s.gen, fetchCtx, cancel, nil
}

func (s *Session) resolve(ctx context.Context, gen uint64, index int, item feed.Item) View {
	v := View{Generation: gen, Index: index, Item: item}

	page, err := s.src.Fetch(ctx, item.Link)
	if err != nil {
		v.Status = StatusFetchError
		v.Err = err
		return v
	}

	v.Abstract = s.ext.Extract(page)
	if v.Abstract.Found {
		v.Status = StatusFound
	} else {
		v.Status = StatusNotFound
	}
	if info, ok := fetch.PageInfo(page, item.Link); ok {
		v.Page = &info
	}
	return v
}

// deliver renders v if it still answers the current selection.
func (s *Session) deliver(v View) bool {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()

	s.mu.Lock()
	if v.Generation != s.gen {
		s.mu.Unlock()
		s.log.Debug("dropping superseded result", zap.Uint64("generation", v.Generation), zap.String("link", v.Item.Link))
		return false
	}
	s.last = &v
	s.mu.Unlock()

	s.log.Info("abstract resolved",
		zap.String("link", v.Item.Link),
		zap.Stringer("status", v.Status),
		zap.String("strategy", string(v.Abstract.Strategy)))
	s.render.Render(v)
	return true
}

// FeedOf returns the loaded feed that contributed the item at index.
func (s *Session) FeedOf(index int) (Source, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 {
		return Source{}, false
	}
	for _, f := range s.feeds {
		if index < f.Items {
			return f, true
		}
		index -= f.Items
	}
	return Source{}, false
}
