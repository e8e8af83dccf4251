package models

import "time"

// Announcement represents a persisted bulletin announcement.
type Announcement struct {
	ID                int64      `db:"id" json:"id"`
	Title             string     `db:"title" json:"title"`
	Content           string     `db:"content" json:"content"`
	IsActive          bool       `db:"is_active" json:"is_active"`
	IsAlert           bool       `db:"is_alert" json:"is_alert"`
	VisibilityStartAt *time.Time `db:"visibility_start_at" json:"visibility_start_at,omitempty"`
	VisibilityEndAt   *time.Time `db:"visibility_end_at" json:"visibility_end_at,omitempty"`
	CreatedBy         string     `db:"created_by" json:"created_by"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// StartMarker returns visibility_start_at, falling back to created_at.
func (a Announcement) StartMarker() time.Time {
	if a.VisibilityStartAt != nil && !a.VisibilityStartAt.IsZero() {
		return *a.VisibilityStartAt
	}
	return a.CreatedAt
}

// AnnouncementFilter narrows announcement listings.
type AnnouncementFilter struct {
	ActiveOnly bool
	AlertOnly  bool
	Search     string
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}
