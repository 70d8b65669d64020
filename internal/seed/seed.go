package seed

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/pricetable"
	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/pricing"
)

// Stats contains seed operation counters.
type Stats struct {
	Inserts    int
	Updates    int
	Issues     int
	SnapshotID int64
}

// Run stores table as the most recent price table snapshot. Seeding the same
// content again only marks the existing snapshot as the latest one.
func Run(ctx context.Context, db *sql.DB, table *pricing.Table, source string) (Stats, error) {
	if table == nil {
		return Stats{}, errors.New("seed price table: table is nil")
	}

	body, err := json.Marshal(table)
	if err != nil {
		return Stats{}, fmt.Errorf("encode price table snapshot: %w", err)
	}
	sum := sha256.Sum256(body)
	hash := hex.EncodeToString(sum[:])

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}
	if err := upsertSnapshot(ctx, tx, hash, source, string(body), &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if stats.Inserts > 0 {
		if err := insertIssues(ctx, tx, stats.SnapshotID, pricetable.Lint(table), &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func upsertSnapshot(ctx context.Context, tx *sql.Tx, hash, source, body string, stats *Stats) error {
	var nextSeq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seen_seq), 0) + 1 FROM price_table_snapshots`).Scan(&nextSeq); err != nil {
		return fmt.Errorf("read snapshot sequence: %w", err)
	}

	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM price_table_snapshots WHERE content_hash = ?`, hash).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		result, err := tx.ExecContext(ctx, `
			INSERT INTO price_table_snapshots (content_hash, source, body, seen_seq)
			VALUES (?, ?, ?, ?)
		`, hash, source, body, nextSeq)
		if err != nil {
			return fmt.Errorf("insert price table snapshot: %w", err)
		}
		if id, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("read snapshot id: %w", err)
		}
		stats.Inserts++
	case err != nil:
		return fmt.Errorf("check snapshot existence: %w", err)
	default:
		if _, err := tx.ExecContext(ctx, `
			UPDATE price_table_snapshots
			SET
				source = ?,
				seen_seq = ?,
				last_seen_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, source, nextSeq, id); err != nil {
			return fmt.Errorf("touch price table snapshot: %w", err)
		}
		stats.Updates++
	}

	stats.SnapshotID = id
	return nil
}

func insertIssues(ctx context.Context, tx *sql.Tx, snapshotID int64, issues []pricetable.Issue, stats *Stats) error {
	for _, issue := range issues {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO price_table_issues (snapshot_id, path, message)
			VALUES (?, ?, ?)
		`, snapshotID, issue.Path, issue.Message); err != nil {
			return fmt.Errorf("insert price table issue: %w", err)
		}
		stats.Issues++
	}
	return nil
}
