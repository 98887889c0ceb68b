package model

import "time"

// User represents a registered listener/uploader.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Not exposed in API responses
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TagCount is one entry of a user's tag affinity, ordered by weight.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}
