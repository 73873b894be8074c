package records

import (
	"context"
	"fmt"

	"github.com/jab-consulting/portal/internal/models"
	"github.com/jab-consulting/portal/pkg/airtable"
)

// SessionRepo reads and writes the Sessions table.
type SessionRepo struct {
	client *airtable.Client
	table  string
}

// NewSessionRepo creates a sessions repository.
func NewSessionRepo(client *airtable.Client, table string) *SessionRepo {
	return &SessionRepo{client: client, table: table}
}

// Find returns a session by record id, or nil when the store has no such
// record.
func (r *SessionRepo) Find(ctx context.Context, id string) (*models.Session, error) {
	rec, err := r.client.Find(ctx, r.table, id)
	if err != nil {
		if airtable.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find session %s: %w", id, err)
	}
	s := sessionFromRecord(rec)
	return &s, nil
}

// FindByCalendarEventID returns the session mirroring a calendar event, or
// nil. At most one record is consulted; the table has no uniqueness
// constraint.
func (r *SessionRepo) FindByCalendarEventID(ctx context.Context, calendarEventID string) (*models.Session, error) {
	recs, err := r.client.Select(ctx, r.table, airtable.SelectOptions{
		FilterByFormula: airtable.Field(fieldCalendarEventID).Equals(calendarEventID).String(),
		MaxRecords:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("find session by calendar event: %w", err)
	}
	if len(recs) == 0 {
		return nil, nil
	}
	s := sessionFromRecord(&recs[0])
	return &s, nil
}

// ListAll returns every session, pre-sorted by date in the given direction
// ("asc" | "desc"). The sort is a hint for listing order; temporal
// partitioning happens in the caller.
func (r *SessionRepo) ListAll(ctx context.Context, direction string) ([]models.Session, error) {
	recs, err := r.client.Select(ctx, r.table, airtable.SelectOptions{
		Sort: []airtable.SortField{{Field: fieldSessionDate, Direction: direction}},
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]models.Session, 0, len(recs))
	for i := range recs {
		out = append(out, sessionFromRecord(&recs[i]))
	}
	return out, nil
}

// Create inserts a session and fills in its record id.
func (r *SessionRepo) Create(ctx context.Context, s *models.Session) error {
	rec, err := r.client.Create(ctx, r.table, sessionFields(s))
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	s.ID = rec.ID
	return nil
}

// Update rewrites the sync-owned fields of a session.
func (r *SessionRepo) Update(ctx context.Context, s *models.Session) error {
	if _, err := r.client.Update(ctx, r.table, s.ID, sessionFields(s)); err != nil {
		return fmt.Errorf("update session %s: %w", s.ID, err)
	}
	return nil
}

// SetDriveFolder backfills the storage folder id onto a session.
func (r *SessionRepo) SetDriveFolder(ctx context.Context, id, folderID string) error {
	if _, err := r.client.Update(ctx, r.table, id, map[string]any{fieldDriveFolderID: folderID}); err != nil {
		return fmt.Errorf("set drive folder on %s: %w", id, err)
	}
	return nil
}

func sessionFields(s *models.Session) map[string]any {
	return map[string]any{
		fieldSessionTitle:    s.Title,
		fieldCalendarEventID: s.CalendarEventID,
		fieldDescription:     s.Description,
		fieldSessionDate:     s.Date,
		fieldStartTime:       s.StartTime,
		fieldEndTime:         s.EndTime,
		fieldMeetingLink:     s.MeetingLink,
		fieldProgramTrack:    s.ProgramTrack,
		fieldSessionStatus:   s.Status,
	}
}

func sessionFromRecord(rec *airtable.Record) models.Session {
	f := rec.Fields
	return models.Session{
		ID:              rec.ID,
		Title:           getString(f, fieldSessionTitle),
		CalendarEventID: getString(f, fieldCalendarEventID),
		Description:     getString(f, fieldDescription),
		Date:            getString(f, fieldSessionDate),
		StartTime:       getString(f, fieldStartTime),
		EndTime:         getString(f, fieldEndTime),
		MeetingLink:     getString(f, fieldMeetingLink),
		ProgramTrack:    getString(f, fieldProgramTrack),
		Status:          getString(f, fieldSessionStatus),
		DriveFolderID:   getString(f, fieldDriveFolderID),
		CoverImageURL:   attachmentURL(f, fieldCoverImage),
	}
}
