package registrations

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jab-consulting/portal/internal/models"
)

func TestConfirmInvalidToken(t *testing.T) {
	s := newTestService(&fakeSessions{}, newFakeStore(), newFakeParticipants(), nil, nil)

	if err := s.Confirm(context.Background(), "nope"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("got %v, want ErrInvalidToken", err)
	}
}

func TestConfirmLookupFailure(t *testing.T) {
	store := newFakeStore()
	store.findErr = errors.New("store down")
	s := newTestService(&fakeSessions{}, store, newFakeParticipants(), nil, nil)

	err := s.Confirm(context.Background(), "tok")
	if err == nil || errors.Is(err, ErrInvalidToken) {
		t.Fatalf("got %v, want wrapped store error", err)
	}
}

func TestConfirmMarksRegistration(t *testing.T) {
	store := newFakeStore()
	store.byToken["tok"] = &models.Registration{ID: "rec1", Email: "a@b.com", Status: models.StatusPending}
	s := newTestService(&fakeSessions{}, store, newFakeParticipants(), nil, nil)

	if err := s.Confirm(context.Background(), "tok"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if len(store.patches) != 1 {
		t.Fatalf("patches = %d, want 1", len(store.patches))
	}
	patch := store.patches[0]
	if patch.Status != models.StatusConfirmed {
		t.Fatalf("status = %q, want %q", patch.Status, models.StatusConfirmed)
	}
	if patch.ConfirmedAt != "2026-03-14T10:00:00Z" {
		t.Fatalf("confirmed at = %q", patch.ConfirmedAt)
	}
	if patch.ConfirmedVia != models.ConfirmedViaLink {
		t.Fatalf("confirmed via = %q, want %q", patch.ConfirmedVia, models.ConfirmedViaLink)
	}
}

func TestConfirmIsIdempotent(t *testing.T) {
	store := newFakeStore()
	store.byToken["tok"] = &models.Registration{
		ID:           "rec1",
		Email:        "a@b.com",
		Status:       models.StatusConfirmed,
		ConfirmedAt:  "2026-03-01T09:00:00Z",
		ConfirmedVia: models.ConfirmedViaLink,
	}
	s := newTestService(&fakeSessions{}, store, newFakeParticipants(), nil, nil)

	if err := s.Confirm(context.Background(), "tok"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if len(store.patches) != 0 {
		t.Fatalf("already-confirmed registration was rewritten: %+v", store.patches)
	}
}

func TestConfirmProvisionsFullAccessParticipant(t *testing.T) {
	store := newFakeStore()
	store.byToken["tok"] = &models.Registration{
		ID:           "rec1",
		Email:        "a@b.com",
		Name:         "Ada",
		Phone:        "555-0100",
		Status:       models.StatusPending,
		ProgramTrack: models.TrackFullDay,
	}
	participants := newFakeParticipants()
	s := newTestService(&fakeSessions{}, store, participants, nil, nil)

	if err := s.Confirm(context.Background(), "tok"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if len(participants.created) != 1 {
		t.Fatalf("participants created = %d, want 1", len(participants.created))
	}
	p := participants.created[0]
	if p.Email != "a@b.com" || p.FullName != "Ada" || p.Phone != "555-0100" {
		t.Fatalf("participant = %+v", p)
	}
	if p.Status != "Active" || p.AccessLevel != "Modules 1-2" {
		t.Fatalf("defaults = %q/%q", p.Status, p.AccessLevel)
	}
	if p.JoinDate != "2026-03-14" {
		t.Fatalf("join date = %q", p.JoinDate)
	}
	if !strings.HasPrefix(p.ParticipantID, "P-") || len(p.ParticipantID) < len("P-1-AAAAAA") {
		t.Fatalf("participant id = %q", p.ParticipantID)
	}
}

func TestConfirmReactivatesExistingParticipant(t *testing.T) {
	store := newFakeStore()
	store.byToken["tok"] = &models.Registration{
		ID:           "rec1",
		Email:        "a@b.com",
		Status:       models.StatusPending,
		ProgramTrack: models.TrackFullAccess,
	}
	participants := newFakeParticipants()
	participants.byEmail["a@b.com"] = &models.Participant{ID: "recP", Email: "a@b.com", Status: "Inactive"}
	s := newTestService(&fakeSessions{}, store, participants, nil, nil)

	if err := s.Confirm(context.Background(), "tok"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if len(participants.created) != 0 {
		t.Fatalf("duplicate participant created: %+v", participants.created)
	}
	if len(participants.updates) != 1 || participants.updates[0] != "recP|Active|Modules 1-2" {
		t.Fatalf("updates = %v", participants.updates)
	}
}

func TestConfirmSkipsParticipantForFreeTrack(t *testing.T) {
	store := newFakeStore()
	store.byToken["tok"] = &models.Registration{
		ID:           "rec1",
		Email:        "a@b.com",
		Status:       models.StatusPending,
		ProgramTrack: models.TrackFree90,
	}
	participants := newFakeParticipants()
	s := newTestService(&fakeSessions{}, store, participants, nil, nil)

	if err := s.Confirm(context.Background(), "tok"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if len(participants.created) != 0 || len(participants.updates) != 0 {
		t.Fatal("free-track confirmation provisioned a participant")
	}
}
