package registrations

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/jab-consulting/portal/internal/models"
	"github.com/jab-consulting/portal/internal/records"
)

// ErrInvalidToken is returned when no registration holds the presented
// confirmation token.
var ErrInvalidToken = errors.New("invalid or expired token")

// Participant defaults applied on confirmation of a full-access track.
const (
	participantStatusActive = "Active"
	participantAccessLevel  = "Modules 1-2"
)

// Confirm finalizes a registration by its confirmation token. The update is
// idempotent: fields already in their confirmed state are not rewritten, and
// when nothing changed no store call is made at all. When the linked
// session's program track grants full access, a companion-app participant is
// provisioned (upsert by email).
func (s *Service) Confirm(ctx context.Context, token string) error {
	reg, err := s.store.FindByToken(ctx, token)
	if err != nil {
		return fmt.Errorf("look up token: %w", err)
	}
	if reg == nil {
		return ErrInvalidToken
	}

	var patch records.ConfirmationPatch
	if reg.Status != models.StatusConfirmed {
		patch.Status = models.StatusConfirmed
	}
	if reg.ConfirmedAt == "" {
		patch.ConfirmedAt = s.now().UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	if reg.ConfirmedVia != models.ConfirmedViaLink {
		patch.ConfirmedVia = models.ConfirmedViaLink
	}
	if !patch.IsEmpty() {
		if err := s.store.ApplyConfirmation(ctx, reg.ID, patch); err != nil {
			return fmt.Errorf("apply confirmation: %w", err)
		}
	}

	if reg.ProgramTrack == models.TrackFullDay || reg.ProgramTrack == models.TrackFullAccess {
		if err := s.provisionParticipant(ctx, reg); err != nil {
			return fmt.Errorf("provision participant: %w", err)
		}
	}
	return nil
}

func (s *Service) provisionParticipant(ctx context.Context, reg *models.Registration) error {
	existing, err := s.participants.FindByEmail(ctx, reg.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return s.participants.UpdateAccess(ctx, existing.ID, participantStatusActive, participantAccessLevel)
	}
	p := &models.Participant{
		ParticipantID: s.newParticipantID(),
		Email:         reg.Email,
		FullName:      reg.Name,
		Phone:         reg.Phone,
		Status:        participantStatusActive,
		AccessLevel:   participantAccessLevel,
		JoinDate:      s.now().UTC().Format("2006-01-02"),
	}
	return s.participants.Create(ctx, p)
}

// newParticipantID generates "P-<epoch millis>-<6 random base36 uppercased>".
func (s *Service) newParticipantID() string {
	return fmt.Sprintf("P-%d-%s", s.now().UnixMilli(), randBase36(6))
}

const base36 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

func randBase36(n int) string {
	out := make([]byte, n)
	max := big.NewInt(int64(len(base36)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failure is unrecoverable for id generation
			panic(err)
		}
		out[i] = base36[idx.Int64()]
	}
	return string(out)
}
