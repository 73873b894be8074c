package records

import (
	"context"
	"fmt"

	"github.com/jab-consulting/portal/internal/models"
	"github.com/jab-consulting/portal/pkg/airtable"
)

// RegistrationRepo reads and writes the Registrations table.
type RegistrationRepo struct {
	client *airtable.Client
	table  string
}

// NewRegistrationRepo creates a registrations repository.
func NewRegistrationRepo(client *airtable.Client, table string) *RegistrationRepo {
	return &RegistrationRepo{client: client, table: table}
}

// FindByEmailAndEvent returns the registration matching the natural key
// (email, event id), or nil. At most one record is consulted.
func (r *RegistrationRepo) FindByEmailAndEvent(ctx context.Context, email, eventID string) (*models.Registration, error) {
	filter := airtable.And(
		airtable.Field(fieldRegEmail).Equals(email),
		airtable.Field(fieldRegEventID).Equals(eventID),
	)
	recs, err := r.client.Select(ctx, r.table, airtable.SelectOptions{
		FilterByFormula: filter.String(),
		MaxRecords:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("find registration: %w", err)
	}
	if len(recs) == 0 {
		return nil, nil
	}
	reg := registrationFromRecord(&recs[0])
	return &reg, nil
}

// FindByToken returns the registration holding a confirmation token, or nil.
func (r *RegistrationRepo) FindByToken(ctx context.Context, token string) (*models.Registration, error) {
	recs, err := r.client.Select(ctx, r.table, airtable.SelectOptions{
		FilterByFormula: airtable.Field(fieldConfirmToken).Equals(token).String(),
		MaxRecords:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("find registration by token: %w", err)
	}
	if len(recs) == 0 {
		return nil, nil
	}
	reg := registrationFromRecord(&recs[0])
	return &reg, nil
}

// Create inserts a registration and fills in its record id.
func (r *RegistrationRepo) Create(ctx context.Context, reg *models.Registration) error {
	rec, err := r.client.Create(ctx, r.table, registrationFields(reg))
	if err != nil {
		return fmt.Errorf("create registration: %w", err)
	}
	reg.ID = rec.ID
	return nil
}

// Update rewrites a registration's reconciler-owned fields in place,
// including resetting both notification flags.
func (r *RegistrationRepo) Update(ctx context.Context, reg *models.Registration) error {
	if _, err := r.client.Update(ctx, r.table, reg.ID, registrationFields(reg)); err != nil {
		return fmt.Errorf("update registration %s: %w", reg.ID, err)
	}
	return nil
}

// ConfirmationPatch carries the confirmation fields to set; empty strings
// are left untouched.
type ConfirmationPatch struct {
	Status       string
	ConfirmedAt  string
	ConfirmedVia string
}

// IsEmpty reports whether the patch would write nothing.
func (p ConfirmationPatch) IsEmpty() bool {
	return p.Status == "" && p.ConfirmedAt == "" && p.ConfirmedVia == ""
}

// ApplyConfirmation writes a confirmation patch to a registration.
func (r *RegistrationRepo) ApplyConfirmation(ctx context.Context, id string, patch ConfirmationPatch) error {
	fields := map[string]any{}
	if patch.Status != "" {
		fields[fieldRegStatus] = patch.Status
	}
	if patch.ConfirmedAt != "" {
		fields[fieldConfirmedAt] = patch.ConfirmedAt
	}
	if patch.ConfirmedVia != "" {
		fields[fieldConfirmedVia] = patch.ConfirmedVia
	}
	if len(fields) == 0 {
		return nil
	}
	if _, err := r.client.Update(ctx, r.table, id, fields); err != nil {
		return fmt.Errorf("confirm registration %s: %w", id, err)
	}
	return nil
}

func registrationFields(reg *models.Registration) map[string]any {
	fields := map[string]any{
		fieldRegEmail:     reg.Email,
		fieldRegName:      reg.Name,
		fieldRegPhone:     reg.Phone,
		fieldConfirmToken: reg.ConfirmToken,
		fieldConfirmURL:   reg.ConfirmURL,
		fieldRegEventID:   reg.EventID,
		fieldRegStatus:    reg.Status,
		fieldAckSent:      reg.AckSent,
		fieldWelcomeSent:  reg.WelcomeSent,
	}
	if len(reg.SessionIDs) > 0 {
		fields[fieldSessionLink] = reg.SessionIDs
	}
	if reg.WaitlistTrack != "" {
		fields[fieldWaitlistTrack] = reg.WaitlistTrack
	}
	if reg.WaitlistJoinedAt != "" {
		fields[fieldWaitlistJoined] = reg.WaitlistJoinedAt
	}
	return fields
}

func registrationFromRecord(rec *airtable.Record) models.Registration {
	f := rec.Fields
	return models.Registration{
		ID:               rec.ID,
		Email:            getString(f, fieldRegEmail),
		Name:             getString(f, fieldRegName),
		Phone:            getString(f, fieldRegPhone),
		EventID:          getString(f, fieldRegEventID),
		ConfirmToken:     getString(f, fieldConfirmToken),
		ConfirmURL:       getString(f, fieldConfirmURL),
		Status:           getString(f, fieldRegStatus),
		AckSent:          getBool(f, fieldAckSent),
		WelcomeSent:      getBool(f, fieldWelcomeSent),
		SessionIDs:       getStringSlice(f, fieldSessionLink),
		WaitlistTrack:    getString(f, fieldWaitlistTrack),
		WaitlistJoinedAt: getString(f, fieldWaitlistJoined),
		ConfirmedAt:      getString(f, fieldConfirmedAt),
		ConfirmedVia:     getString(f, fieldConfirmedVia),
		ProgramTrack:     firstOf(f[fieldSessionTrackRef]),
	}
}
