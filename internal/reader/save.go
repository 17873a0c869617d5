package reader

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/TobiSchelling/journals/internal/database"
)

// Store keeps saved abstracts.
type Store interface {
	SaveAbstract(a database.SavedAbstract) (int64, error)
}

// Save stores the abstract of the item at index on the reading list. The
// last rendered view is reused when it belongs to the same item. It returns
// 0 if the link was already saved. Items whose page cannot be fetched are
// not saved.
func (s *Session) Save(ctx context.Context, store Store, index int) (int64, error) {
	item, err := s.Item(index)
	if err != nil {
		return 0, err
	}

	v, ok := s.Last()
	if !ok || v.Item.Link != item.Link {
		v = s.Preview(ctx, item)
	}
	if v.Status == StatusFetchError {
		return 0, fmt.Errorf("cannot save %s: %w", item.Link, v.Err)
	}

	row := database.SavedAbstract{
		Title:       item.Title,
		Link:        item.Link,
		Description: &item.Description,
	}
	if v.Status == StatusFound {
		html := v.Abstract.HTML
		strategy := string(v.Abstract.Strategy)
		row.AbstractHTML = &html
		row.Strategy = &strategy
	}
	if source, ok := s.FeedOf(index); ok {
		row.FeedName = &source.Name
	}

	id, err := store.SaveAbstract(row)
	if err != nil {
		return 0, fmt.Errorf("saving abstract: %w", err)
	}
	s.log.Info("abstract saved", zap.String("link", item.Link), zap.Int64("id", id), zap.Stringer("status", v.Status))
	return id, nil
}
