package db

import "time"

// Migration structs. These mirror the tables the raw-SQL repositories query;
// they exist only so GORM can manage the schema.

type userRow struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	Username     string    `gorm:"size:100;uniqueIndex;not null"`
	Email        string    `gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string    `gorm:"size:255;not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (userRow) TableName() string { return "users" }

type trackRow struct {
	ID          string    `gorm:"primaryKey;size:36"`
	UserID      int64     `gorm:"index;not null"`
	Title       string    `gorm:"size:255;not null"`
	Description string    `gorm:"type:text"`
	AudioURL    string    `gorm:"size:767;not null"`
	MediaURL    string    `gorm:"size:767"`
	MediaType   string    `gorm:"size:10"`
	Tags        string    `gorm:"type:json"`
	Platforms   string    `gorm:"type:json"`
	Likes       int       `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (trackRow) TableName() string { return "tracks" }

type trackLikeRow struct {
	TrackID   string    `gorm:"primaryKey;size:36"`
	UserID    int64     `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (trackLikeRow) TableName() string { return "track_likes" }

type likedTrackRow struct {
	UserID         int64  `gorm:"primaryKey"`
	TrackID        string `gorm:"primaryKey;size:36"`
	OriginalUserID int64  `gorm:"not null"`
	Title          string `gorm:"size:255;not null"`
	Description    string `gorm:"type:text"`
	AudioURL       string `gorm:"size:767;not null"`
	MediaURL       string `gorm:"size:767"`
	MediaType      string `gorm:"size:10"`
	Tags           string `gorm:"type:json"`
	Platforms      string `gorm:"type:json"`
	LikedAt        time.Time `gorm:"index;not null"`
}

func (likedTrackRow) TableName() string { return "liked_tracks" }

type userTagStatRow struct {
	UserID int64  `gorm:"primaryKey"`
	Tag    string `gorm:"primaryKey;size:20"`
	Cnt    int    `gorm:"not null;default:0"`
}

func (userTagStatRow) TableName() string { return "user_tag_stats" }
