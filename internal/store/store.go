// Package store reads the last known good price table from the SQLite cache.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/pricetable"
	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/pricing"
)

// ErrNoSnapshot is returned when the cache has never been seeded.
var ErrNoSnapshot = errors.New("no cached price table")

// Snapshot describes a cached price table.
type Snapshot struct {
	ID          int64  `json:"id"`
	ContentHash string `json:"contentHash"`
	Source      string `json:"source"`
	CreatedAt   string `json:"createdAt"`
	LastSeenAt  string `json:"lastSeenAt"`
}

// Latest returns the most recently seeded table.
func Latest(ctx context.Context, db *sql.DB) (*pricing.Table, Snapshot, error) {
	var snap Snapshot
	var body string
	err := db.QueryRowContext(ctx, `
		SELECT id, content_hash, source, body, created_at, last_seen_at
		FROM price_table_snapshots
		ORDER BY seen_seq DESC, id DESC
		LIMIT 1
	`).Scan(&snap.ID, &snap.ContentHash, &snap.Source, &body, &snap.CreatedAt, &snap.LastSeenAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, Snapshot{}, ErrNoSnapshot
		}
		return nil, Snapshot{}, fmt.Errorf("query latest price table: %w", err)
	}

	table, err := pricetable.Decode(strings.NewReader(body))
	if err != nil {
		return nil, Snapshot{}, fmt.Errorf("decode cached price table %d: %w", snap.ID, err)
	}
	return table, snap, nil
}

// Issues lists the lint findings recorded when snapshotID was seeded.
func Issues(ctx context.Context, db *sql.DB, snapshotID int64) ([]pricetable.Issue, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT path, message
		FROM price_table_issues
		WHERE snapshot_id = ?
		ORDER BY id
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("query price table issues: %w", err)
	}
	defer rows.Close()

	issues := make([]pricetable.Issue, 0)
	for rows.Next() {
		var issue pricetable.Issue
		if err := rows.Scan(&issue.Path, &issue.Message); err != nil {
			return nil, fmt.Errorf("scan price table issue: %w", err)
		}
		issues = append(issues, issue)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price table issues: %w", err)
	}

	return issues, nil
}

// Count returns the number of cached snapshots.
func Count(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM price_table_snapshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count price table snapshots: %w", err)
	}
	return n, nil
}
