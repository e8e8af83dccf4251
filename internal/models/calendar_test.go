package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendarEventJSONUsesPlainDates(t *testing.T) {
	end := time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)
	event := CalendarEvent{
		ID:        7,
		Title:     "Sports day",
		EventDate: time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   &end,
		IsActive:  true,
	}

	raw, err := json.Marshal(event)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "2024-06-01", fields["event_date"])
	assert.Equal(t, "2024-06-03", fields["end_date"])
	assert.Equal(t, "Sports day", fields["title"])
	assert.Equal(t, true, fields["is_active"])
}

func TestCalendarEventJSONOmitsMissingEnd(t *testing.T) {
	raw, err := json.Marshal(CalendarEvent{EventDate: time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"event_date":"2024-06-01"`)
	assert.NotContains(t, string(raw), "end_date")
}

func TestCalendarEventJSONRoundTrip(t *testing.T) {
	end := time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)
	in := CalendarEvent{ID: 7, CalendarID: 2, Title: "Exams", EventDate: time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), EndDate: &end}

	raw, err := json.Marshal(in)
	require.NoError(t, err)
	var out CalendarEvent
	require.NoError(t, json.Unmarshal(raw, &out))

	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.CalendarID, out.CalendarID)
	assert.True(t, in.EventDate.Equal(out.EventDate))
	require.NotNil(t, out.EndDate)
	assert.True(t, end.Equal(*out.EndDate))
}

func TestCalendarEventJSONRejectsBadDate(t *testing.T) {
	var out CalendarEvent
	assert.Error(t, json.Unmarshal([]byte(`{"event_date":"01/06/2024"}`), &out))
}
