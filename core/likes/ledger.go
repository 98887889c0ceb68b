package likes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sullygrrr/digger/logger"
	"github.com/Sullygrrr/digger/model"
	"github.com/Sullygrrr/digger/repository"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrTrackNotFound is returned when the toggled track does not exist.
	ErrTrackNotFound = errors.New("track not found")
	// ErrToggleFailed is returned when the toggle transaction could not be
	// committed even after a retry. The caller should roll its UI state
	// back to the last confirmed value.
	ErrToggleFailed = errors.New("like toggle failed")
)

// maxAttempts covers the initial try plus one retry on a transient conflict.
const maxAttempts = 2

// Result reports the confirmed state after a toggle.
type Result struct {
	Liked bool         `json:"liked"`
	Likes int          `json:"likes"`
	Track *model.Track `json:"-"`
}

// Ledger owns the like/unlike state machine. A toggle moves a (user, track)
// pair between NotLiked and Liked and keeps four pieces of state consistent
// in one transaction: the track's like counter, the membership row, the
// user's tag affinity counters, and the liked-track snapshot.
type Ledger struct {
	db       *sql.DB
	affinity repository.AffinityRepository
}

// NewLedger creates a Ledger over the shared connection pool.
func NewLedger(db *sql.DB, affinity repository.AffinityRepository) *Ledger {
	return &Ledger{db: db, affinity: affinity}
}

func isRetryable(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		// 1213 deadlock, 1205 lock wait timeout
		return mysqlErr.Number == 1213 || mysqlErr.Number == 1205
	}
	return false
}

// Toggle flips the like state of trackID for userID and returns the
// confirmed state. Membership is re-read inside the transaction on every
// attempt, so concurrent toggles for the same pair cannot double-apply.
func (l *Ledger) Toggle(ctx context.Context, userID int64, trackID string) (*Result, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res, err := l.toggleOnce(ctx, userID, trackID)
		if err == nil {
			return res, nil
		}
		if errors.Is(err, ErrTrackNotFound) {
			return nil, err
		}
		lastErr = err
		if !isRetryable(err) {
			break
		}
		logger.Warn("retrying like toggle after conflict",
			logger.Int64("userId", userID),
			logger.String("trackId", trackID),
			logger.Int("attempt", attempt))
	}
	return nil, fmt.Errorf("%w: %v", ErrToggleFailed, lastErr)
}

func (l *Ledger) toggleOnce(ctx context.Context, userID int64, trackID string) (*Result, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin toggle transaction: %w", err)
	}
	defer tx.Rollback()

	// Lock the track row so the counter and membership move together.
	track, err := lockTrack(tx, trackID)
	if err != nil {
		return nil, err
	}

	liked, err := isLiked(tx, userID, trackID)
	if err != nil {
		return nil, err
	}

	if liked {
		err = l.unlike(tx, userID, track)
	} else {
		err = l.like(tx, userID, track)
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit toggle: %w", err)
	}

	likes := track.Likes
	if liked {
		likes--
		if likes < 0 {
			likes = 0
		}
	} else {
		likes++
	}
	return &Result{Liked: !liked, Likes: likes, Track: track}, nil
}

func lockTrack(tx *sql.Tx, trackID string) (*model.Track, error) {
	query := `SELECT id, user_id, title, description, audio_url, media_url, media_type, tags, platforms, likes, created_at
	          FROM tracks WHERE id = ? FOR UPDATE`
	track := &model.Track{}
	var tagsJSON, platformsJSON []byte
	err := tx.QueryRow(query, trackID).Scan(
		&track.ID, &track.UserID, &track.Title, &track.Description,
		&track.AudioURL, &track.MediaURL, &track.MediaType,
		&tagsJSON, &platformsJSON, &track.Likes, &track.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrTrackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock track %s: %w", trackID, err)
	}
	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &track.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags for track %s: %w", trackID, err)
		}
	}
	if len(platformsJSON) > 0 {
		if err := json.Unmarshal(platformsJSON, &track.Platforms); err != nil {
			return nil, fmt.Errorf("failed to unmarshal platforms for track %s: %w", trackID, err)
		}
	}
	return track, nil
}

func isLiked(tx *sql.Tx, userID int64, trackID string) (bool, error) {
	var one int
	err := tx.QueryRow("SELECT 1 FROM track_likes WHERE track_id = ? AND user_id = ?", trackID, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read like membership: %w", err)
	}
	return true, nil
}

func (l *Ledger) like(tx *sql.Tx, userID int64, track *model.Track) error {
	if _, err := tx.Exec("UPDATE tracks SET likes = likes + 1 WHERE id = ?", track.ID); err != nil {
		return fmt.Errorf("failed to increment like count: %w", err)
	}
	now := time.Now()
	if _, err := tx.Exec("INSERT INTO track_likes (track_id, user_id, created_at) VALUES (?, ?, ?)",
		track.ID, userID, now); err != nil {
		return fmt.Errorf("failed to insert like membership: %w", err)
	}
	if err := l.affinity.ApplyTx(tx, userID, track.Tags, 1); err != nil {
		return err
	}

	snap := model.SnapshotOf(track, userID, now)
	tagsJSON, err := json.Marshal(snap.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot tags: %w", err)
	}
	platformsJSON, err := json.Marshal(snap.Platforms)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot platforms: %w", err)
	}
	_, err = tx.Exec(`INSERT INTO liked_tracks (user_id, track_id, original_user_id, title, description, audio_url, media_url, media_type, tags, platforms, liked_at)
	                  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.UserID, snap.TrackID, snap.OriginalUserID, snap.Title, snap.Description,
		snap.AudioURL, snap.MediaURL, snap.MediaType, tagsJSON, platformsJSON, snap.LikedAt)
	if err != nil {
		return fmt.Errorf("failed to insert liked track snapshot: %w", err)
	}
	return nil
}

func (l *Ledger) unlike(tx *sql.Tx, userID int64, track *model.Track) error {
	if _, err := tx.Exec("UPDATE tracks SET likes = GREATEST(CAST(likes AS SIGNED) - 1, 0) WHERE id = ?", track.ID); err != nil {
		return fmt.Errorf("failed to decrement like count: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM track_likes WHERE track_id = ? AND user_id = ?", track.ID, userID); err != nil {
		return fmt.Errorf("failed to delete like membership: %w", err)
	}
	if err := l.affinity.ApplyTx(tx, userID, track.Tags, -1); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM liked_tracks WHERE user_id = ? AND track_id = ?", userID, track.ID); err != nil {
		return fmt.Errorf("failed to delete liked track snapshot: %w", err)
	}
	return nil
}
