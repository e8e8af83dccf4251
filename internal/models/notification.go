package models

import "time"

// NotificationType is the closed set of notification categories.
type NotificationType string

const (
	NotificationAnnouncement NotificationType = "ANNOUNCEMENT"
	NotificationEvent        NotificationType = "EVENT"
	NotificationAlert        NotificationType = "ALERT"
	NotificationReminder     NotificationType = "REMINDER"
	NotificationSystem       NotificationType = "SYSTEM"
)

// NotificationFallbackIcon is rendered for types outside the enumeration.
const NotificationFallbackIcon = "bell"

// NotificationTypes lists every known type.
func NotificationTypes() []NotificationType {
	return []NotificationType{
		NotificationAnnouncement,
		NotificationEvent,
		NotificationAlert,
		NotificationReminder,
		NotificationSystem,
	}
}

// Valid reports whether t is one of the known types.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationAnnouncement, NotificationEvent, NotificationAlert, NotificationReminder, NotificationSystem:
		return true
	default:
		return false
	}
}

// Icon maps the type to the icon the client renders.
func (t NotificationType) Icon() string {
	switch t {
	case NotificationAnnouncement:
		return "megaphone"
	case NotificationEvent:
		return "calendar"
	case NotificationAlert:
		return "alert-triangle"
	case NotificationReminder:
		return "clock"
	case NotificationSystem:
		return "settings"
	default:
		return NotificationFallbackIcon
	}
}

// Notification is a per-user message.
type Notification struct {
	ID        int64            `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"user_id"`
	Type      NotificationType `db:"type" json:"type"`
	Title     string           `db:"title" json:"title"`
	Body      string           `db:"body" json:"body"`
	Link      *string          `db:"link" json:"link,omitempty"`
	ReadAt    *time.Time       `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// NotificationView adds render hints to a notification.
type NotificationView struct {
	Notification
	Icon string `json:"icon"`
	Read bool   `json:"read"`
}

// NewNotificationView decorates n with its icon and read state.
func NewNotificationView(n Notification) NotificationView {
	return NotificationView{Notification: n, Icon: n.Type.Icon(), Read: n.ReadAt != nil}
}

// NotificationFilter narrows a user's notifications.
type NotificationFilter struct {
	UnreadOnly bool
	Page       int
	PageSize   int
}

// NotificationBroadcast is one notification fanned out to every active user.
type NotificationBroadcast struct {
	Type  NotificationType `json:"type"`
	Title string           `json:"title"`
	Body  string           `json:"body"`
	Link  *string          `json:"link,omitempty"`
}
