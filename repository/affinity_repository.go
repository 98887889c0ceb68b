package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Sullygrrr/digger/core/tags"
	"github.com/Sullygrrr/digger/model"
)

// AffinityRepository maintains the per-user tag interest counters that drive
// feed personalization. A tag's count equals the number of the user's
// currently-liked tracks carrying that tag; zero-count rows are deleted.
type AffinityRepository interface {
	// TopTags returns up to n (tag, count) pairs sorted by count descending,
	// ties broken by tag lexical order. A user with no stats yields an
	// empty slice, not an error.
	TopTags(ctx context.Context, userID int64, n int) ([]model.TagCount, error)
	// ApplyTx adds delta (+1 or -1) to each tag's counter inside an open
	// transaction, clamping at zero and deleting exhausted rows. Tags are
	// normalized before use.
	ApplyTx(tx *sql.Tx, userID int64, tagList []string, delta int) error
	// Rebuild recomputes a user's counters from their liked-track snapshots.
	// Used to backfill accounts that predate tag stats.
	Rebuild(ctx context.Context, userID int64) error
	HasStats(ctx context.Context, userID int64) (bool, error)
}

type mysqlAffinityRepository struct {
	db *sql.DB
}

// NewMySQLAffinityRepository creates a new mysqlAffinityRepository.
func NewMySQLAffinityRepository(db *sql.DB) AffinityRepository {
	return &mysqlAffinityRepository{db: db}
}

// TopTags returns the user's strongest tag affinities.
func (r *mysqlAffinityRepository) TopTags(ctx context.Context, userID int64, n int) ([]model.TagCount, error) {
	query := "SELECT tag, cnt FROM user_tag_stats WHERE user_id = ? ORDER BY cnt DESC, tag ASC LIMIT ?"
	rows, err := r.db.QueryContext(ctx, query, userID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query tag stats for user %d: %w", userID, err)
	}
	defer rows.Close()

	var top []model.TagCount
	for rows.Next() {
		var tc model.TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan tag stat row: %w", err)
		}
		top = append(top, tc)
	}
	return top, rows.Err()
}

// ApplyTx adjusts counters inside the caller's transaction. The upsert clamps
// at zero on both paths so a stray -1 can never create a negative counter.
func (r *mysqlAffinityRepository) ApplyTx(tx *sql.Tx, userID int64, tagList []string, delta int) error {
	const upsert = `INSERT INTO user_tag_stats (user_id, tag, cnt) VALUES (?, ?, GREATEST(?, 0))
	                ON DUPLICATE KEY UPDATE cnt = GREATEST(CAST(cnt AS SIGNED) + ?, 0)`
	for _, raw := range tagList {
		tag := tags.Normalize(raw)
		if tag == "" {
			continue
		}
		if _, err := tx.Exec(upsert, userID, tag, delta, delta); err != nil {
			return fmt.Errorf("failed to apply tag stat for %q: %w", tag, err)
		}
	}
	// Zero-count tags are removed, not kept around.
	if _, err := tx.Exec("DELETE FROM user_tag_stats WHERE user_id = ? AND cnt = 0", userID); err != nil {
		return fmt.Errorf("failed to prune zero tag stats: %w", err)
	}
	return nil
}

// HasStats reports whether the user has any affinity counters at all.
func (r *mysqlAffinityRepository) HasStats(ctx context.Context, userID int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM user_tag_stats WHERE user_id = ? LIMIT 1", userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check tag stats for user %d: %w", userID, err)
	}
	return true, nil
}

// Rebuild recomputes the counters from liked-track snapshots in one
// transaction, replacing whatever was there.
func (r *mysqlAffinityRepository) Rebuild(ctx context.Context, userID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin rebuild transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query("SELECT tags FROM liked_tracks WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("failed to query liked tracks for rebuild: %w", err)
	}

	counts := make(map[string]int)
	for rows.Next() {
		var tagsJSON []byte
		if err := rows.Scan(&tagsJSON); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan liked track tags: %w", err)
		}
		var trackTags []string
		if len(tagsJSON) > 0 {
			if err := json.Unmarshal(tagsJSON, &trackTags); err != nil {
				rows.Close()
				return fmt.Errorf("failed to unmarshal liked track tags: %w", err)
			}
		}
		for _, raw := range trackTags {
			if tag := tags.Normalize(raw); tag != "" {
				counts[tag]++
			}
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed while iterating liked tracks: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM user_tag_stats WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to clear tag stats for rebuild: %w", err)
	}
	for tag, cnt := range counts {
		if _, err := tx.Exec("INSERT INTO user_tag_stats (user_id, tag, cnt) VALUES (?, ?, ?)", userID, tag, cnt); err != nil {
			return fmt.Errorf("failed to insert rebuilt tag stat %q: %w", tag, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tag stat rebuild: %w", err)
	}
	return nil
}
