package registrations

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jab-consulting/portal/internal/models"
	"github.com/jab-consulting/portal/internal/records"
	"github.com/jab-consulting/portal/pkg/gcal"
	"github.com/jab-consulting/portal/pkg/webhook"
)

type fakeSessions struct {
	session *models.Session
	err     error
	calls   int
}

func (f *fakeSessions) Find(ctx context.Context, id string) (*models.Session, error) {
	f.calls++
	return f.session, f.err
}

type fakeStore struct {
	byKey   map[string]*models.Registration // email|eventID
	byToken map[string]*models.Registration
	created []*models.Registration
	updated []*models.Registration
	patches []records.ConfirmationPatch

	findErr   error
	createErr error
	updateErr error
	nextID    string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		byKey:   map[string]*models.Registration{},
		byToken: map[string]*models.Registration{},
		nextID:  "rec1",
	}
}

func (f *fakeStore) FindByEmailAndEvent(ctx context.Context, email, eventID string) (*models.Registration, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.byKey[email+"|"+eventID], nil
}

func (f *fakeStore) Create(ctx context.Context, reg *models.Registration) error {
	if f.createErr != nil {
		return f.createErr
	}
	reg.ID = f.nextID
	f.created = append(f.created, reg)
	f.byKey[reg.Email+"|"+reg.EventID] = reg
	return nil
}

func (f *fakeStore) Update(ctx context.Context, reg *models.Registration) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = append(f.updated, reg)
	f.byKey[reg.Email+"|"+reg.EventID] = reg
	return nil
}

func (f *fakeStore) FindByToken(ctx context.Context, token string) (*models.Registration, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.byToken[token], nil
}

func (f *fakeStore) ApplyConfirmation(ctx context.Context, id string, patch records.ConfirmationPatch) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.patches = append(f.patches, patch)
	return nil
}

type fakeParticipants struct {
	byEmail map[string]*models.Participant
	created []*models.Participant
	updates []string // "id|status|accessLevel"
}

func newFakeParticipants() *fakeParticipants {
	return &fakeParticipants{byEmail: map[string]*models.Participant{}}
}

func (f *fakeParticipants) FindByEmail(ctx context.Context, email string) (*models.Participant, error) {
	return f.byEmail[email], nil
}

func (f *fakeParticipants) Create(ctx context.Context, p *models.Participant) error {
	f.created = append(f.created, p)
	return nil
}

func (f *fakeParticipants) UpdateAccess(ctx context.Context, id, status, accessLevel string) error {
	f.updates = append(f.updates, id+"|"+status+"|"+accessLevel)
	return nil
}

type fakeCalendar struct {
	event    *gcal.Event
	getErr   error
	patchErr error

	getCalls int
	patched  []gcal.Attendee
	notified bool
}

func (f *fakeCalendar) GetEvent(ctx context.Context, eventID string) (*gcal.Event, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.event, nil
}

func (f *fakeCalendar) PatchAttendees(ctx context.Context, eventID string, attendees []gcal.Attendee, notifyAll bool) error {
	if f.patchErr != nil {
		return f.patchErr
	}
	f.patched = attendees
	f.notified = notifyAll
	return nil
}

type fakeNotifier struct {
	events []webhook.RegistrationEvent
	err    error
}

func (f *fakeNotifier) Notify(ctx context.Context, event webhook.RegistrationEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func newTestService(sessions *fakeSessions, store *fakeStore, participants *fakeParticipants, calendar *fakeCalendar, notifier *fakeNotifier) *Service {
	var cal Calendar
	if calendar != nil {
		cal = calendar
	}
	var not Notifier
	if notifier != nil {
		not = notifier
	}
	s := NewService(sessions, store, participants, cal, not, "https://example.com", nil)
	s.now = func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) }
	return s
}

func TestRegisterValidation(t *testing.T) {
	s := newTestService(&fakeSessions{}, newFakeStore(), newFakeParticipants(), nil, nil)

	if _, err := s.Register(context.Background(), RegisterInput{EventID: "evt"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("missing email: got %v, want ErrInvalidRequest", err)
	}
	if _, err := s.Register(context.Background(), RegisterInput{Email: "a@b.com"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("missing event id without waitlist: got %v, want ErrInvalidRequest", err)
	}
	if _, err := s.Register(context.Background(), RegisterInput{Email: "a@b.com", Waitlist: true}); err != nil {
		t.Fatalf("waitlist without event id: %v", err)
	}
}

func TestRegisterCreatesUnderCalendarEventID(t *testing.T) {
	sessions := &fakeSessions{session: &models.Session{ID: "recSess", CalendarEventID: "gcal123"}}
	store := newFakeStore()
	calendar := &fakeCalendar{event: &gcal.Event{ID: "gcal123"}}
	notifier := &fakeNotifier{}
	s := newTestService(sessions, store, newFakeParticipants(), calendar, notifier)

	id, err := s.Register(context.Background(), RegisterInput{EventID: "recSess", Email: "a@b.com", Name: "Ada"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if id != "rec1" {
		t.Fatalf("registration id = %q, want rec1", id)
	}
	if len(store.created) != 1 {
		t.Fatalf("created %d registrations, want 1", len(store.created))
	}
	reg := store.created[0]
	if reg.EventID != "gcal123" {
		t.Fatalf("dedup key = %q, want calendar event id", reg.EventID)
	}
	if reg.Status != models.StatusPending {
		t.Fatalf("status = %q, want %q", reg.Status, models.StatusPending)
	}
	if len(reg.SessionIDs) != 1 || reg.SessionIDs[0] != "recSess" {
		t.Fatalf("session link = %v, want [recSess]", reg.SessionIDs)
	}
	if reg.ConfirmToken == "" || !strings.HasPrefix(reg.ConfirmURL, "https://example.com/confirm?token=") {
		t.Fatalf("confirm link not issued: token=%q url=%q", reg.ConfirmToken, reg.ConfirmURL)
	}
	if len(calendar.patched) != 1 || calendar.patched[0].Email != "a@b.com" {
		t.Fatalf("attendees = %+v, want registrant added", calendar.patched)
	}
	if calendar.patched[0].DisplayName != "Ada" {
		t.Fatalf("display name = %q, want Ada", calendar.patched[0].DisplayName)
	}
	if !calendar.notified {
		t.Fatal("attendee patch did not request notifications")
	}
	if len(notifier.events) != 1 {
		t.Fatalf("webhook events = %d, want 1", len(notifier.events))
	}
	if notifier.events[0].CalendarEventID != "gcal123" || notifier.events[0].Source != "portal-registration" {
		t.Fatalf("webhook payload = %+v", notifier.events[0])
	}
}

func TestRegisterUpdatesExistingAndRotatesToken(t *testing.T) {
	sessions := &fakeSessions{session: &models.Session{ID: "recSess", CalendarEventID: "gcal123"}}
	store := newFakeStore()
	existing := &models.Registration{
		ID:           "recOld",
		Email:        "a@b.com",
		EventID:      "gcal123",
		ConfirmToken: "stale-token",
		AckSent:      true,
	}
	store.byKey["a@b.com|gcal123"] = existing
	s := newTestService(sessions, store, newFakeParticipants(), nil, nil)

	id, err := s.Register(context.Background(), RegisterInput{EventID: "recSess", Email: "a@b.com"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if id != "recOld" {
		t.Fatalf("registration id = %q, want existing id recOld", id)
	}
	if len(store.created) != 0 || len(store.updated) != 1 {
		t.Fatalf("created=%d updated=%d, want update-only", len(store.created), len(store.updated))
	}
	updated := store.updated[0]
	if updated.ConfirmToken == "" || updated.ConfirmToken == "stale-token" {
		t.Fatalf("token not rotated: %q", updated.ConfirmToken)
	}
	if updated.AckSent {
		t.Fatal("ack-sent flag survived re-registration")
	}
}

func TestRegisterSurvivesCalendarFailure(t *testing.T) {
	sessions := &fakeSessions{session: &models.Session{ID: "recSess", CalendarEventID: "gcal123"}}
	store := newFakeStore()
	calendar := &fakeCalendar{getErr: errors.New("calendar down")}
	s := newTestService(sessions, store, newFakeParticipants(), calendar, nil)

	id, err := s.Register(context.Background(), RegisterInput{EventID: "recSess", Email: "a@b.com"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if id != "rec1" {
		t.Fatalf("registration id = %q, want rec1", id)
	}
	if len(store.created) != 1 {
		t.Fatalf("created %d registrations, want 1", len(store.created))
	}
}

func TestRegisterSessionMissFallsBackToRawID(t *testing.T) {
	sessions := &fakeSessions{err: errors.New("store timeout")}
	store := newFakeStore()
	calendar := &fakeCalendar{event: &gcal.Event{}}
	s := newTestService(sessions, store, newFakeParticipants(), calendar, nil)

	if _, err := s.Register(context.Background(), RegisterInput{EventID: "recSess", Email: "a@b.com"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if got := store.created[0].EventID; got != "recSess" {
		t.Fatalf("dedup key = %q, want raw session id", got)
	}
	if calendar.getCalls != 0 {
		t.Fatalf("calendar called %d times with no resolved event", calendar.getCalls)
	}
}

func TestRegisterWaitlist(t *testing.T) {
	store := newFakeStore()
	calendar := &fakeCalendar{event: &gcal.Event{}}
	s := newTestService(&fakeSessions{}, store, newFakeParticipants(), calendar, nil)

	if _, err := s.Register(context.Background(), RegisterInput{Email: "a@b.com", Waitlist: true, WaitlistTrack: "vip"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	reg := store.created[0]
	if reg.EventID != "WAITLIST_VIP" {
		t.Fatalf("dedup key = %q, want WAITLIST_VIP", reg.EventID)
	}
	if reg.Status != models.StatusWaitlist {
		t.Fatalf("status = %q, want %q", reg.Status, models.StatusWaitlist)
	}
	if reg.WaitlistJoinedAt != "2026-03-14T10:00:00Z" {
		t.Fatalf("waitlist joined at = %q", reg.WaitlistJoinedAt)
	}
	if calendar.getCalls != 0 {
		t.Fatal("waitlist registration must not touch the calendar")
	}

	if _, err := s.Register(context.Background(), RegisterInput{Email: "b@c.com", Waitlist: true}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if got := store.created[1].EventID; got != "WAITLIST_GENERAL" {
		t.Fatalf("default waitlist key = %q, want WAITLIST_GENERAL", got)
	}
}

func TestRegisterStoreFailureStillSucceeds(t *testing.T) {
	store := newFakeStore()
	store.createErr = errors.New("store down")
	notifier := &fakeNotifier{}
	s := newTestService(&fakeSessions{}, store, newFakeParticipants(), nil, notifier)

	id, err := s.Register(context.Background(), RegisterInput{EventID: "evt", Email: "a@b.com"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if id != "" {
		t.Fatalf("registration id = %q, want empty after failed write", id)
	}
	if len(notifier.events) != 0 {
		t.Fatal("webhook fired despite missing registration id")
	}
}

func TestRegisterSkipsInviteForExistingAttendee(t *testing.T) {
	sessions := &fakeSessions{session: &models.Session{ID: "recSess", CalendarEventID: "gcal123"}}
	calendar := &fakeCalendar{event: &gcal.Event{
		Attendees: []gcal.Attendee{{Email: "a@b.com"}},
	}}
	s := newTestService(sessions, newFakeStore(), newFakeParticipants(), calendar, nil)

	if _, err := s.Register(context.Background(), RegisterInput{EventID: "recSess", Email: "a@b.com"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if calendar.patched != nil {
		t.Fatalf("attendees patched for existing attendee: %+v", calendar.patched)
	}
}
