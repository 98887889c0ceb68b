package model

import "time"

// Media types a track's secondary visual can have.
const (
	MediaTypeVideo = "video"
	MediaTypeImage = "image"
)

// Track represents one uploaded piece of content in the discovery catalog.
// AudioURL and MediaURL are object keys in the storage bucket, resolved to
// servable URLs by the storage layer.
type Track struct {
	ID          string        `json:"id"`
	UserID      int64         `json:"userId"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	AudioURL    string        `json:"audioUrl"`
	MediaURL    string        `json:"mediaUrl,omitempty"`
	MediaType   string        `json:"mediaType,omitempty"` // "video", "image" or empty
	Tags        []string      `json:"tags"`
	Platforms   PlatformLinks `json:"platforms"`
	Likes       int           `json:"likes"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// LikedTrack is a per-user snapshot of a track taken at like time, so the
// "my likes" list survives later edits or deletion of the source track.
type LikedTrack struct {
	TrackID        string        `json:"trackId"`
	UserID         int64         `json:"userId"`
	OriginalUserID int64         `json:"originalUserId"`
	Title          string        `json:"title"`
	Description    string        `json:"description,omitempty"`
	AudioURL       string        `json:"audioUrl"`
	MediaURL       string        `json:"mediaUrl,omitempty"`
	MediaType      string        `json:"mediaType,omitempty"`
	Tags           []string      `json:"tags"`
	Platforms      PlatformLinks `json:"platforms"`
	LikedAt        time.Time     `json:"likedAt"`
}

// SnapshotOf builds the liked-track snapshot for a user from the track's
// current display fields.
func SnapshotOf(t *Track, userID int64, likedAt time.Time) *LikedTrack {
	return &LikedTrack{
		TrackID:        t.ID,
		UserID:         userID,
		OriginalUserID: t.UserID,
		Title:          t.Title,
		Description:    t.Description,
		AudioURL:       t.AudioURL,
		MediaURL:       t.MediaURL,
		MediaType:      t.MediaType,
		Tags:           t.Tags,
		Platforms:      t.Platforms,
		LikedAt:        likedAt,
	}
}
