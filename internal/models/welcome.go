package models

import "time"

// WelcomeMediaType enumerates what a welcome asset renders as.
type WelcomeMediaType string

const (
	WelcomeMediaImage WelcomeMediaType = "IMAGE"
	WelcomeMediaVideo WelcomeMediaType = "VIDEO"
)

// WelcomeAsset is one slide on the welcome page and signage rotation.
type WelcomeAsset struct {
	ID              int64            `db:"id" json:"id"`
	Title           string           `db:"title" json:"title"`
	Caption         string           `db:"caption" json:"caption"`
	MediaType       WelcomeMediaType `db:"media_type" json:"media_type"`
	MediaPath       string           `db:"media_path" json:"-"`
	Position        int              `db:"position" json:"position"`
	DurationSeconds int              `db:"duration_seconds" json:"duration_seconds"`
	IsActive        bool             `db:"is_active" json:"is_active"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// PublicWelcomeAsset is a welcome asset with a time-limited media URL.
type PublicWelcomeAsset struct {
	WelcomeAsset
	MediaURL       string    `json:"media_url"`
	MediaExpiresAt time.Time `json:"media_expires_at"`
}
