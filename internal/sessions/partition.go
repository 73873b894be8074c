// Package sessions implements the session listing/partitioning workflow and
// the calendar-to-record-store sync with storage folder backfill.
package sessions

import (
	"strings"
	"time"

	"github.com/jab-consulting/portal/internal/models"
)

// List types. Anything other than ListPast is treated as upcoming.
const (
	ListUpcoming = "upcoming"
	ListPast     = "past"
)

const defaultTitle = "Untitled Session"

// Partition projects sessions into listing events and keeps only the
// requested temporal bucket relative to now. The comparison instant prefers
// the end time, falling back to the start; a session whose instant cannot
// be parsed lands in neither bucket rather than failing the listing. Input
// order (the store's sort hint) is preserved.
func Partition(sessions []models.Session, listType string, now time.Time) []models.Event {
	events := make([]models.Event, 0, len(sessions))
	for i := range sessions {
		event := Project(&sessions[i])
		when, ok := comparisonInstant(event)
		if !ok {
			continue
		}
		if listType == ListPast {
			if when.Before(now) {
				events = append(events, event)
			}
		} else if !when.Before(now) {
			// boundary is inclusive toward upcoming
			events = append(events, event)
		}
	}
	return events
}

// Project maps a session record onto the listing shape.
func Project(s *models.Session) models.Event {
	title := s.Title
	if title == "" {
		title = defaultTitle
	}
	start := s.StartTime
	if start == "" {
		start = s.Date
	}
	return models.Event{
		ID:              s.ID,
		CalendarEventID: s.CalendarEventID,
		Title:           title,
		Start:           start,
		End:             s.EndTime,
		Link:            s.MeetingLink,
		Description:     s.Description,
		CoverImage:      s.CoverImageURL,
		ProgramTrack:    s.ProgramTrack,
	}
}

func comparisonInstant(e models.Event) (time.Time, bool) {
	if t, ok := parseWhen(e.End); ok {
		return t, true
	}
	return parseWhen(e.Start)
}

// parseWhen accepts the timestamp shapes that show up in session records:
// RFC3339, a bare datetime, or a calendar day.
func parseWhen(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
