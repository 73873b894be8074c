package records

import (
	"context"
	"fmt"

	"github.com/jab-consulting/portal/internal/models"
	"github.com/jab-consulting/portal/pkg/airtable"
)

// ParticipantRepo reads and writes the Participants table, which holds
// companion-app users keyed by email.
type ParticipantRepo struct {
	client *airtable.Client
	table  string
}

// NewParticipantRepo creates a participants repository.
func NewParticipantRepo(client *airtable.Client, table string) *ParticipantRepo {
	return &ParticipantRepo{client: client, table: table}
}

// FindByEmail returns the participant with the given email, or nil.
func (r *ParticipantRepo) FindByEmail(ctx context.Context, email string) (*models.Participant, error) {
	recs, err := r.client.Select(ctx, r.table, airtable.SelectOptions{
		FilterByFormula: airtable.Field(fieldPartEmail).Equals(email).String(),
		MaxRecords:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("find participant: %w", err)
	}
	if len(recs) == 0 {
		return nil, nil
	}
	p := participantFromRecord(&recs[0])
	return &p, nil
}

// Create inserts a participant and fills in its record id.
func (r *ParticipantRepo) Create(ctx context.Context, p *models.Participant) error {
	fields := map[string]any{
		fieldPartEmail:     p.Email,
		fieldPartName:      p.FullName,
		fieldPartPhone:     p.Phone,
		fieldPartStatus:    p.Status,
		fieldAccessLevel:   p.AccessLevel,
		fieldJoinDate:      p.JoinDate,
		fieldParticipantID: p.ParticipantID,
	}
	rec, err := r.client.Create(ctx, r.table, fields)
	if err != nil {
		return fmt.Errorf("create participant: %w", err)
	}
	p.ID = rec.ID
	return nil
}

// UpdateAccess refreshes the status and access level of an existing
// participant; identity fields are never rewritten.
func (r *ParticipantRepo) UpdateAccess(ctx context.Context, id, status, accessLevel string) error {
	fields := map[string]any{
		fieldPartStatus:  status,
		fieldAccessLevel: accessLevel,
	}
	if _, err := r.client.Update(ctx, r.table, id, fields); err != nil {
		return fmt.Errorf("update participant %s: %w", id, err)
	}
	return nil
}

func participantFromRecord(rec *airtable.Record) models.Participant {
	f := rec.Fields
	return models.Participant{
		ID:            rec.ID,
		ParticipantID: getString(f, fieldParticipantID),
		Email:         getString(f, fieldPartEmail),
		FullName:      getString(f, fieldPartName),
		Phone:         getString(f, fieldPartPhone),
		Status:        getString(f, fieldPartStatus),
		AccessLevel:   getString(f, fieldAccessLevel),
		JoinDate:      getString(f, fieldJoinDate),
	}
}
