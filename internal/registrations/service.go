// Package registrations implements the registration reconciliation workflow:
// session resolution, registration upsert, webhook notification and calendar
// invites, plus confirmation finalization.
package registrations

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jab-consulting/portal/internal/models"
	"github.com/jab-consulting/portal/internal/records"
	"github.com/jab-consulting/portal/pkg/gcal"
	"github.com/jab-consulting/portal/pkg/webhook"
)

// ErrInvalidRequest is returned when required registration input is missing.
var ErrInvalidRequest = errors.New("missing required fields: email and eventId (or waitlist flag)")

// webhookSource tags outbound webhook payloads with their origin.
const webhookSource = "portal-registration"

// SessionFinder resolves session records.
type SessionFinder interface {
	Find(ctx context.Context, id string) (*models.Session, error)
}

// RegistrationStore persists registrations.
type RegistrationStore interface {
	FindByEmailAndEvent(ctx context.Context, email, eventID string) (*models.Registration, error)
	Create(ctx context.Context, reg *models.Registration) error
	Update(ctx context.Context, reg *models.Registration) error
	FindByToken(ctx context.Context, token string) (*models.Registration, error)
	ApplyConfirmation(ctx context.Context, id string, patch records.ConfirmationPatch) error
}

// ParticipantStore persists companion-app participants.
type ParticipantStore interface {
	FindByEmail(ctx context.Context, email string) (*models.Participant, error)
	Create(ctx context.Context, p *models.Participant) error
	UpdateAccess(ctx context.Context, id, status, accessLevel string) error
}

// Calendar patches event attendee lists.
type Calendar interface {
	GetEvent(ctx context.Context, eventID string) (*gcal.Event, error)
	PatchAttendees(ctx context.Context, eventID string, attendees []gcal.Attendee, notifyAll bool) error
}

// Notifier delivers registration events to the automation webhook.
type Notifier interface {
	Notify(ctx context.Context, event webhook.RegistrationEvent) error
}

// Service runs the registration workflows. Calendar and notifier are
// optional; a nil value disables that step.
type Service struct {
	sessions     SessionFinder
	store        RegistrationStore
	participants ParticipantStore
	calendar     Calendar
	notifier     Notifier
	baseURL      string
	logger       *zap.Logger

	now      func() time.Time
	newToken func() string
}

// NewService creates the registration service.
func NewService(sessions SessionFinder, store RegistrationStore, participants ParticipantStore, calendar Calendar, notifier Notifier, baseURL string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		sessions:     sessions,
		store:        store,
		participants: participants,
		calendar:     calendar,
		notifier:     notifier,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		logger:       logger,
		now:          time.Now,
		newToken:     uuid.NewString,
	}
}

// RegisterInput is a registration request.
type RegisterInput struct {
	EventID       string
	Email         string
	Phone         string
	Name          string
	Waitlist      bool
	WaitlistTrack string
}

// Register runs the reconciliation workflow. Every step after validation is
// best-effort: a failed store, webhook or calendar call is logged and the
// remaining steps still run. The returned registration id is empty when the
// store write itself failed.
func (s *Service) Register(ctx context.Context, in RegisterInput) (string, error) {
	if in.Email == "" || (in.EventID == "" && !in.Waitlist) {
		return "", ErrInvalidRequest
	}

	// Resolve the target session. A miss is non-fatal: the registration is
	// still saved, only the calendar invite is skipped.
	var calendarEventID string
	var sessionIDs []string
	if in.EventID != "" {
		s.attempt("resolve session", func() error {
			session, err := s.sessions.Find(ctx, in.EventID)
			if err != nil {
				return err
			}
			if session != nil {
				calendarEventID = session.CalendarEventID
				sessionIDs = []string{session.ID}
			}
			return nil
		})
	}

	idToRegister := s.dedupKey(calendarEventID, in)

	// Token rotation is unconditional: re-registering invalidates any
	// previously issued confirmation link for this person+event.
	token := s.newToken()
	confirmURL := s.baseURL + "/confirm?token=" + token

	reg := &models.Registration{
		Email:        in.Email,
		Name:         in.Name,
		Phone:        in.Phone,
		EventID:      idToRegister,
		ConfirmToken: token,
		ConfirmURL:   confirmURL,
		SessionIDs:   sessionIDs,
	}
	if in.Waitlist {
		reg.Status = models.StatusWaitlist
		reg.WaitlistTrack = in.WaitlistTrack
		reg.WaitlistJoinedAt = s.now().UTC().Format(time.RFC3339)
	} else {
		reg.Status = models.StatusPending
	}

	var registrationID string
	s.attempt("upsert registration", func() error {
		existing, err := s.store.FindByEmailAndEvent(ctx, in.Email, idToRegister)
		if err != nil {
			return err
		}
		if existing != nil {
			reg.ID = existing.ID
			if err := s.store.Update(ctx, reg); err != nil {
				return err
			}
		} else {
			if err := s.store.Create(ctx, reg); err != nil {
				return err
			}
		}
		registrationID = reg.ID
		return nil
	})

	if s.notifier != nil && registrationID != "" {
		s.attempt("notify webhook", func() error {
			return s.notifier.Notify(ctx, webhook.RegistrationEvent{
				RegistrationID:  registrationID,
				Email:           in.Email,
				EventID:         in.EventID,
				CalendarEventID: calendarEventID,
				Status:          reg.Status,
				Source:          webhookSource,
				WaitlistTrack:   reg.WaitlistTrack,
				ConfirmToken:    token,
				ConfirmURL:      confirmURL,
			})
		})
	}

	if s.calendar != nil && calendarEventID != "" && !in.Waitlist {
		s.attempt("calendar invite", func() error {
			return s.invite(ctx, calendarEventID, in.Email, in.Name)
		})
	}

	return registrationID, nil
}

// dedupKey computes the value stored in the registration's event-id field:
// the calendar event id when resolved, the raw session id otherwise, or a
// synthetic waitlist key.
func (s *Service) dedupKey(calendarEventID string, in RegisterInput) string {
	if calendarEventID != "" {
		return calendarEventID
	}
	if in.EventID != "" {
		return in.EventID
	}
	track := strings.ToUpper(strings.TrimSpace(in.WaitlistTrack))
	if track == "" {
		track = "GENERAL"
	}
	return "WAITLIST_" + track
}

// invite adds the registrant to the calendar event's attendee list when
// absent, asking the provider to email all attendees.
func (s *Service) invite(ctx context.Context, calendarEventID, email, name string) error {
	event, err := s.calendar.GetEvent(ctx, calendarEventID)
	if err != nil {
		return err
	}
	for _, a := range event.Attendees {
		if a.Email == email {
			return nil
		}
	}
	displayName := name
	if displayName == "" {
		displayName = email
	}
	attendees := append(event.Attendees, gcal.Attendee{Email: email, DisplayName: displayName})
	return s.calendar.PatchAttendees(ctx, calendarEventID, attendees, true)
}

// attempt runs one best-effort step: a failure is logged and swallowed so
// downstream flakiness never blocks the caller-visible success path.
func (s *Service) attempt(label string, fn func() error) bool {
	if err := fn(); err != nil {
		s.logger.Warn("best-effort step failed", zap.String("step", label), zap.Error(err))
		return false
	}
	return true
}
