package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// calendarDateLayout is the wire format of DATE columns.
const calendarDateLayout = "2006-01-02"

// Calendar groups events, e.g. "Academic" or "Sports".
type Calendar struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Color       string    `db:"color" json:"color"`
	Description string    `db:"description" json:"description"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CalendarEvent is a dated entry on one calendar. EndDate is optional and
// defaults to the day of EventDate.
type CalendarEvent struct {
	ID          int64      `db:"id" json:"id"`
	CalendarID  int64      `db:"calendar_id" json:"calendar_id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	Location    *string    `db:"location" json:"location,omitempty"`
	EventDate   time.Time  `db:"event_date" json:"event_date"`
	EndDate     *time.Time `db:"end_date" json:"end_date,omitempty"`
	IsActive    bool       `db:"is_active" json:"is_active"`
	IsAlert     bool       `db:"is_alert" json:"is_alert"`
	CreatedBy   string     `db:"created_by" json:"created_by"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// EffectiveEnd returns EndDate or EventDate when no end is stored.
func (e CalendarEvent) EffectiveEnd() time.Time {
	if e.EndDate != nil && !e.EndDate.IsZero() {
		return *e.EndDate
	}
	return e.EventDate
}

type calendarEventFields CalendarEvent

type calendarEventJSON struct {
	calendarEventFields
	EventDate string  `json:"event_date"`
	EndDate   *string `json:"end_date,omitempty"`
}

// MarshalJSON writes event_date and end_date as plain YYYY-MM-DD dates.
func (e CalendarEvent) MarshalJSON() ([]byte, error) {
	out := calendarEventJSON{calendarEventFields: calendarEventFields(e)}
	if !e.EventDate.IsZero() {
		out.EventDate = e.EventDate.Format(calendarDateLayout)
	}
	if e.EndDate != nil && !e.EndDate.IsZero() {
		end := e.EndDate.Format(calendarDateLayout)
		out.EndDate = &end
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the format written by MarshalJSON. Dates come back as
// UTC midnight, the same shape the database returns.
func (e *CalendarEvent) UnmarshalJSON(data []byte) error {
	var in calendarEventJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*e = CalendarEvent(in.calendarEventFields)
	start, err := parseCalendarDate(in.EventDate)
	if err != nil {
		return fmt.Errorf("event_date: %w", err)
	}
	e.EventDate = start
	e.EndDate = nil
	if in.EndDate != nil && *in.EndDate != "" {
		end, err := parseCalendarDate(*in.EndDate)
		if err != nil {
			return fmt.Errorf("end_date: %w", err)
		}
		e.EndDate = &end
	}
	return nil
}

func parseCalendarDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(calendarDateLayout, raw)
}

// CalendarFilter narrows down events.
type CalendarFilter struct {
	CalendarIDs []int64
	ActiveOnly  bool
	From        *time.Time
	To          *time.Time
	Page        int
	PageSize    int
}
