// Package history keeps a local archive of delivered posts so past
// runs can be inspected after the fact.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dioftwx-beep/fb-discord-watcher/internal/facebook"
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Delivery is one archived announcement.
type Delivery struct {
	ID           int64
	PostID       string
	Snippet      string
	PermalinkURL string
	PostedAt     time.Time
	DeliveredAt  time.Time
}

func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history: path is required")
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := migrate(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordDelivery archives one announced post. Re-recording the same
// post updates its delivery time instead of inserting a duplicate.
func (s *Store) RecordDelivery(ctx context.Context, post facebook.Post) error {
	if s == nil || s.db == nil {
		return errors.New("history: store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(post.ID) == "" {
		return errors.New("history: post id is required")
	}

	var permalinkVal sql.NullString
	if strings.TrimSpace(post.PermalinkURL) != "" {
		permalinkVal = sql.NullString{String: strings.TrimSpace(post.PermalinkURL), Valid: true}
	}

	var postedVal sql.NullString
	if !post.CreatedTime.IsZero() {
		postedVal = sql.NullString{String: formatTime(post.CreatedTime.Time), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deliveries (post_id, snippet, permalink, posted_at, delivered_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(post_id) DO UPDATE SET
			snippet = excluded.snippet,
			permalink = excluded.permalink,
			posted_at = excluded.posted_at,
			delivered_at = excluded.delivered_at
	`,
		post.ID,
		firstNRunes(post.Message, 200),
		permalinkVal,
		postedVal,
		formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("record delivery: %w", err)
	}

	return nil
}

// Recent returns the most recently delivered posts, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Delivery, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("history: store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if limit < 1 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, post_id, snippet, permalink, posted_at, delivered_at
		FROM deliveries
		ORDER BY delivered_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var deliveries []Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}

	return deliveries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDelivery(scanner rowScanner) (Delivery, error) {
	var (
		d                       Delivery
		permalinkVal, postedVal sql.NullString
		deliveredAt             string
	)

	if err := scanner.Scan(
		&d.ID,
		&d.PostID,
		&d.Snippet,
		&permalinkVal,
		&postedVal,
		&deliveredAt,
	); err != nil {
		return Delivery{}, fmt.Errorf("scan delivery: %w", err)
	}

	if permalinkVal.Valid {
		d.PermalinkURL = permalinkVal.String
	}

	var err error
	if postedVal.Valid {
		d.PostedAt, err = parseTime(postedVal.String)
		if err != nil {
			return Delivery{}, fmt.Errorf("parse posted_at: %w", err)
		}
	}
	d.DeliveredAt, err = parseTime(deliveredAt)
	if err != nil {
		return Delivery{}, fmt.Errorf("parse delivered_at: %w", err)
	}

	return d, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, value)
}

func firstNRunes(s string, n int) string {
	if n <= 0 || s == "" {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
