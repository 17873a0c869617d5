// Package collect loads the configured feeds into a reading session.
package collect

import (
	"context"

	"go.uber.org/zap"

	"github.com/TobiSchelling/journals/internal/config"
	"github.com/TobiSchelling/journals/internal/reader"
)

// Loader receives parsed feed documents. *reader.Session implements it.
type Loader interface {
	LoadNamed(name, location, raw string) (int, error)
}

// Failure records a feed that could not be loaded.
type Failure struct {
	Location string
	Err      error
}

// Result holds the results of a collection run.
type Result struct {
	Feeds    int
	Items    int
	Sources  map[string]int
	Failures []Failure
}

// Collector loads configured feeds one after another, in configuration order.
type Collector struct {
	src reader.FeedSource
	log *zap.Logger
}

// NewCollector creates a new feed collector.
func NewCollector(src reader.FeedSource, log *zap.Logger) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Collector{src: src, log: log}
}

// Collect loads every feed into dst. A feed that fails is recorded and
// skipped; the others are still loaded. Once ctx is done the remaining
// feeds are recorded as failed without being fetched.
func (c *Collector) Collect(ctx context.Context, feeds []config.Feed, dst Loader) *Result {
	r := &Result{Sources: make(map[string]int)}

	for _, f := range feeds {
		loc := f.Location()
		if loc == "" {
			r.Failures = append(r.Failures, Failure{Location: loc, Err: reader.ErrNoLocation})
			continue
		}
		if err := ctx.Err(); err != nil {
			r.Failures = append(r.Failures, Failure{Location: loc, Err: err})
			continue
		}

		raw, err := c.read(ctx, f)
		if err != nil {
			c.log.Warn("feed fetch failed", zap.String("location", loc), zap.Error(err))
			r.Failures = append(r.Failures, Failure{Location: loc, Err: err})
			continue
		}

		n, err := dst.LoadNamed(f.Name, loc, raw)
		if err != nil {
			r.Failures = append(r.Failures, Failure{Location: loc, Err: err})
			continue
		}
		r.Feeds++
		r.Items += n
		r.Sources[loc] += n
	}

	c.log.Info("collection complete",
		zap.Int("feeds", r.Feeds),
		zap.Int("items", r.Items),
		zap.Int("failed", len(r.Failures)))
	return r
}

func (c *Collector) read(ctx context.Context, f config.Feed) (string, error) {
	if f.URL != "" {
		return c.src.Fetch(ctx, f.URL)
	}
	return c.src.ReadFile(f.File)
}
