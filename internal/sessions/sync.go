package sessions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jab-consulting/portal/internal/models"
	"github.com/jab-consulting/portal/pkg/gcal"
	"github.com/jab-consulting/portal/pkg/storage"
)

// CalendarLister lists events from the calendar.
type CalendarLister interface {
	ListEvents(ctx context.Context, query string, timeMin time.Time) ([]gcal.Event, error)
}

// SessionStore persists session records.
type SessionStore interface {
	FindByCalendarEventID(ctx context.Context, calendarEventID string) (*models.Session, error)
	Create(ctx context.Context, s *models.Session) error
	Update(ctx context.Context, s *models.Session) error
	SetDriveFolder(ctx context.Context, id, folderID string) error
}

// FolderStore creates and looks up asset folders.
type FolderStore interface {
	FindFolderByName(ctx context.Context, name string) (*storage.Folder, error)
	CreateFolder(ctx context.Context, name, parentID string) (*storage.Folder, error)
	SetPublicReadable(ctx context.Context, folderID string) error
}

// Syncer mirrors matching calendar events into the session table and
// backfills missing storage folders. Drive may be nil, which disables the
// folder backfill.
type Syncer struct {
	store    SessionStore
	calendar CalendarLister
	drive    FolderStore
	logger   *zap.Logger
	now      func() time.Time
}

// NewSyncer creates a session syncer.
func NewSyncer(store SessionStore, calendar CalendarLister, drive FolderStore, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{store: store, calendar: calendar, drive: drive, logger: logger, now: time.Now}
}

// Options controls one sync run.
type Options struct {
	Query          string
	WindowPastDays int
}

// Run executes one sync. The calendar listing is the single required read;
// its failure fails the run. Per-event store or folder failures are counted
// and skipped so partial progress survives individual item failures.
func (s *Syncer) Run(ctx context.Context, opts Options) (models.SyncStats, error) {
	var stats models.SyncStats

	window := opts.WindowPastDays
	if window <= 0 {
		window = 30
	}
	timeMin := s.now().AddDate(0, 0, -window)
	events, err := s.calendar.ListEvents(ctx, opts.Query, timeMin)
	if err != nil {
		return stats, fmt.Errorf("list calendar events: %w", err)
	}

	for i := range events {
		stats.EventsSeen++
		if err := s.syncEvent(ctx, &events[i], &stats); err != nil {
			stats.SessionFailures++
			s.logger.Warn("sync event failed", zap.String("calendar_event_id", events[i].ID), zap.Error(err))
		}
	}
	s.logger.Info("session sync complete",
		zap.Int("events", stats.EventsSeen),
		zap.Int("created", stats.SessionsCreated),
		zap.Int("updated", stats.SessionsUpdated),
		zap.Int("folders_created", stats.FoldersCreated),
		zap.Int("folder_failures", stats.FolderFailures),
	)
	return stats, nil
}

func (s *Syncer) syncEvent(ctx context.Context, ev *gcal.Event, stats *models.SyncStats) error {
	session := sessionFromEvent(ev)

	existing, err := s.store.FindByCalendarEventID(ctx, ev.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		session.ID = existing.ID
		session.DriveFolderID = existing.DriveFolderID
		if err := s.store.Update(ctx, session); err != nil {
			return err
		}
		stats.SessionsUpdated++
	} else {
		if err := s.store.Create(ctx, session); err != nil {
			return err
		}
		stats.SessionsCreated++
	}

	if s.drive != nil && session.DriveFolderID == "" {
		if err := s.backfillFolder(ctx, session); err != nil {
			// folder creation is derived data; never aborts the batch
			stats.FolderFailures++
			s.logger.Warn("folder backfill failed", zap.String("session_id", session.ID), zap.Error(err))
		} else {
			stats.FoldersCreated++
		}
	}
	return nil
}

// backfillFolder creates (or adopts) the session's asset folder, makes it
// publicly readable, provisions its "public" subfolder, and writes the
// folder id back onto the session record.
func (s *Syncer) backfillFolder(ctx context.Context, session *models.Session) error {
	name := storage.EventFolderName(session.Date, session.Title)

	folder, err := s.drive.FindFolderByName(ctx, name)
	if err != nil {
		return fmt.Errorf("find folder: %w", err)
	}
	if folder == nil {
		folder, err = s.drive.CreateFolder(ctx, name, "")
		if err != nil {
			return fmt.Errorf("create folder: %w", err)
		}
		if err := s.drive.SetPublicReadable(ctx, folder.ID); err != nil {
			return fmt.Errorf("set public: %w", err)
		}
		if _, err := s.drive.CreateFolder(ctx, "public", folder.ID); err != nil {
			return fmt.Errorf("create public subfolder: %w", err)
		}
	}
	if err := s.store.SetDriveFolder(ctx, session.ID, folder.ID); err != nil {
		return fmt.Errorf("link folder: %w", err)
	}
	return nil
}

func sessionFromEvent(ev *gcal.Event) *models.Session {
	start := ev.Start.Value()
	date := start
	if idx := strings.Index(date, "T"); idx > 0 {
		date = date[:idx]
	}
	track := models.TrackFullDay
	if strings.Contains(strings.ToLower(ev.Summary), "free") {
		track = models.TrackFree90
	}
	return &models.Session{
		Title:           ev.Summary,
		CalendarEventID: ev.ID,
		Description:     ev.Description,
		Date:            date,
		StartTime:       start,
		EndTime:         ev.End.Value(),
		MeetingLink:     ev.MeetingLink(),
		ProgramTrack:    track,
		Status:          "Upcoming",
	}
}
