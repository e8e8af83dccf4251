package models

import "time"

// FeedItemKind distinguishes the two content categories of the feed.
type FeedItemKind string

const (
	FeedItemAnnouncement FeedItemKind = "announcement"
	FeedItemEvent        FeedItemKind = "event"
)

// FeedAlert is an alert-flagged item of either kind, shown in the banner.
type FeedAlert struct {
	Kind  FeedItemKind `json:"kind"`
	ID    int64        `json:"id"`
	Title string       `json:"title"`
	Body  string       `json:"body"`
	Date  time.Time    `json:"date"`
}

// Feed is one composed render of the bulletin board.
type Feed struct {
	GeneratedAt   time.Time            `json:"generated_at"`
	Day           string               `json:"day"`
	Timezone      string               `json:"timezone"`
	EventsFirst   bool                 `json:"events_first"`
	Alerts        []FeedAlert          `json:"alerts"`
	Announcements []Announcement       `json:"announcements"`
	Events        []CalendarEvent      `json:"events"`
	WelcomeAssets []PublicWelcomeAsset `json:"welcome_assets"`
	SkippedItems  int                  `json:"skipped_items"`
}

// ServerTime is the authoritative clock reported to clients.
type ServerTime struct {
	Now           time.Time `json:"now"`
	Day           string    `json:"day"`
	Timezone      string    `json:"timezone"`
	UTCOffsetSecs int       `json:"utc_offset_seconds"`
}
