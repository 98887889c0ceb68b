package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Sullygrrr/digger/model"
)

// TrackRepository defines the interface for track data operations.
type TrackRepository interface {
	CreateTrack(ctx context.Context, track *model.Track) error
	GetTrackByID(ctx context.Context, id string) (*model.Track, error)
	GetTracksByUserID(ctx context.Context, userID int64) ([]*model.Track, error)
	// Candidates returns every track not authored by the given user,
	// i.e. the discovery candidate pool.
	Candidates(ctx context.Context, excludeUserID int64) ([]*model.Track, error)
	LikedTrackIDs(ctx context.Context, userID int64) (map[string]bool, error)
	ListLikedTracks(ctx context.Context, userID int64) ([]*model.LikedTrack, error)
}

// mysqlTrackRepository implements TrackRepository for MySQL.
type mysqlTrackRepository struct {
	db *sql.DB
}

// NewMySQLTrackRepository creates a new mysqlTrackRepository.
func NewMySQLTrackRepository(db *sql.DB) TrackRepository {
	return &mysqlTrackRepository{db: db}
}

const trackColumns = "id, user_id, title, description, audio_url, media_url, media_type, tags, platforms, likes, created_at"

// CreateTrack adds a new track to the database.
func (r *mysqlTrackRepository) CreateTrack(ctx context.Context, track *model.Track) error {
	tagsJSON, err := json.Marshal(track.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}
	platformsJSON, err := json.Marshal(track.Platforms)
	if err != nil {
		return fmt.Errorf("failed to marshal platforms: %w", err)
	}

	query := `INSERT INTO tracks (id, user_id, title, description, audio_url, media_url, media_type, tags, platforms, likes, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`
	_, err = r.db.ExecContext(ctx, query,
		track.ID, track.UserID, track.Title, track.Description,
		track.AudioURL, track.MediaURL, track.MediaType,
		tagsJSON, platformsJSON, track.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to execute CreateTrack: %w", err)
	}
	return nil
}

func scanTrack(scan func(dest ...interface{}) error) (*model.Track, error) {
	track := &model.Track{}
	var tagsJSON, platformsJSON []byte
	err := scan(&track.ID, &track.UserID, &track.Title, &track.Description,
		&track.AudioURL, &track.MediaURL, &track.MediaType,
		&tagsJSON, &platformsJSON, &track.Likes, &track.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &track.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags for track %s: %w", track.ID, err)
		}
	}
	if len(platformsJSON) > 0 {
		if err := json.Unmarshal(platformsJSON, &track.Platforms); err != nil {
			return nil, fmt.Errorf("failed to unmarshal platforms for track %s: %w", track.ID, err)
		}
	}
	return track, nil
}

// GetTrackByID retrieves a track by its ID. Returns (nil, nil) when absent.
func (r *mysqlTrackRepository) GetTrackByID(ctx context.Context, id string) (*model.Track, error) {
	query := "SELECT " + trackColumns + " FROM tracks WHERE id = ?"
	row := r.db.QueryRowContext(ctx, query, id)
	track, err := scanTrack(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan track row for ID %s: %w", id, err)
	}
	return track, nil
}

// GetTracksByUserID retrieves all tracks uploaded by a user, newest first.
func (r *mysqlTrackRepository) GetTracksByUserID(ctx context.Context, userID int64) ([]*model.Track, error) {
	query := "SELECT " + trackColumns + " FROM tracks WHERE user_id = ? ORDER BY created_at DESC"
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks for user %d: %w", userID, err)
	}
	defer rows.Close()

	var tracks []*model.Track
	for rows.Next() {
		track, err := scanTrack(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track row: %w", err)
		}
		tracks = append(tracks, track)
	}
	return tracks, rows.Err()
}

// Candidates retrieves all tracks not authored by the given user.
func (r *mysqlTrackRepository) Candidates(ctx context.Context, excludeUserID int64) ([]*model.Track, error) {
	query := "SELECT " + trackColumns + " FROM tracks WHERE user_id != ?"
	rows, err := r.db.QueryContext(ctx, query, excludeUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidate tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*model.Track
	for rows.Next() {
		track, err := scanTrack(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate row: %w", err)
		}
		tracks = append(tracks, track)
	}
	return tracks, rows.Err()
}

// LikedTrackIDs returns the set of track IDs the user currently likes.
func (r *mysqlTrackRepository) LikedTrackIDs(ctx context.Context, userID int64) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT track_id FROM track_likes WHERE user_id = ?", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query liked track ids for user %d: %w", userID, err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan liked track id: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// ListLikedTracks returns the user's liked-track snapshots, most recent first.
func (r *mysqlTrackRepository) ListLikedTracks(ctx context.Context, userID int64) ([]*model.LikedTrack, error) {
	query := `SELECT track_id, user_id, original_user_id, title, description, audio_url, media_url, media_type, tags, platforms, liked_at
	          FROM liked_tracks WHERE user_id = ? ORDER BY liked_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query liked tracks for user %d: %w", userID, err)
	}
	defer rows.Close()

	var liked []*model.LikedTrack
	for rows.Next() {
		lt := &model.LikedTrack{}
		var tagsJSON, platformsJSON []byte
		err := rows.Scan(&lt.TrackID, &lt.UserID, &lt.OriginalUserID, &lt.Title, &lt.Description,
			&lt.AudioURL, &lt.MediaURL, &lt.MediaType, &tagsJSON, &platformsJSON, &lt.LikedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan liked track row: %w", err)
		}
		if len(tagsJSON) > 0 {
			if err := json.Unmarshal(tagsJSON, &lt.Tags); err != nil {
				return nil, fmt.Errorf("failed to unmarshal tags for liked track %s: %w", lt.TrackID, err)
			}
		}
		if len(platformsJSON) > 0 {
			if err := json.Unmarshal(platformsJSON, &lt.Platforms); err != nil {
				return nil, fmt.Errorf("failed to unmarshal platforms for liked track %s: %w", lt.TrackID, err)
			}
		}
		liked = append(liked, lt)
	}
	return liked, rows.Err()
}
