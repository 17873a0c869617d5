package database

import (
	"database/sql"
	"errors"
)

const savedColumns = `id, link, title, description, abstract_html, strategy, feed_name, saved_at`

// SaveAbstract stores an abstract on the reading list. Returns the ID on
// success, 0 if the link is already saved.
func (db *DB) SaveAbstract(a SavedAbstract) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT OR IGNORE INTO saved_abstracts (link, title, description, abstract_html, strategy, feed_name)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.Link, a.Title, a.Description, a.AbstractHTML, a.Strategy, a.FeedName,
	)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil || n == 0 {
		return 0, err
	}
	return result.LastInsertId()
}

// GetSavedAbstracts returns the reading list, newest first.
func (db *DB) GetSavedAbstracts() ([]SavedAbstract, error) {
	rows, err := db.conn.Query(
		`SELECT ` + savedColumns + ` FROM saved_abstracts ORDER BY saved_at DESC, id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var saved []SavedAbstract
	for rows.Next() {
		var a SavedAbstract
		if err := rows.Scan(&a.ID, &a.Link, &a.Title, &a.Description, &a.AbstractHTML, &a.Strategy, &a.FeedName, &a.SavedAt); err != nil {
			return nil, err
		}
		saved = append(saved, a)
	}
	return saved, rows.Err()
}

// GetSavedAbstract returns a saved abstract by ID, or nil if not found.
func (db *DB) GetSavedAbstract(id int64) (*SavedAbstract, error) {
	row := db.conn.QueryRow(`SELECT `+savedColumns+` FROM saved_abstracts WHERE id = ?`, id)
	return scanSaved(row)
}

// GetSavedAbstractByLink returns the saved abstract for an article link, or nil.
func (db *DB) GetSavedAbstractByLink(link string) (*SavedAbstract, error) {
	row := db.conn.QueryRow(`SELECT `+savedColumns+` FROM saved_abstracts WHERE link = ?`, link)
	return scanSaved(row)
}

// DeleteSavedAbstract removes an abstract from the reading list. It
// reports whether a row was deleted.
func (db *DB) DeleteSavedAbstract(id int64) (bool, error) {
	result, err := db.conn.Exec("DELETE FROM saved_abstracts WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM saved_abstracts", &s.SavedAbstracts},
		{"SELECT COUNT(*) FROM saved_abstracts WHERE abstract_html IS NOT NULL AND abstract_html != ''", &s.WithAbstract},
		{"SELECT COUNT(DISTINCT feed_name) FROM saved_abstracts", &s.Feeds},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func scanSaved(row *sql.Row) (*SavedAbstract, error) {
	var a SavedAbstract
	err := row.Scan(&a.ID, &a.Link, &a.Title, &a.Description, &a.AbstractHTML, &a.Strategy, &a.FeedName, &a.SavedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
