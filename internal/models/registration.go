package models

// Registration statuses. Automations in the record store may set others;
// only these are written by this service.
const (
	StatusPending   = "Pending"
	StatusWaitlist  = "Waitlist"
	StatusConfirmed = "Confirmed"
)

// ConfirmedViaLink tags confirmations that arrived through the emailed link.
const ConfirmedViaLink = "Link"

// Registration is a person's registration for one event. The pair
// (Email, EventID) is the natural key used for upserts; EventID holds the
// calendar event id, the raw session record id, or a synthetic waitlist key.
type Registration struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	Name         string   `json:"name,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	EventID      string   `json:"event_id"`
	ConfirmToken string   `json:"-"`
	ConfirmURL   string   `json:"-"`
	Status       string   `json:"status"`
	AckSent      bool     `json:"ack_sent"`
	WelcomeSent  bool     `json:"welcome_sent"`
	SessionIDs   []string `json:"session_ids,omitempty"` // linked Session records

	WaitlistTrack    string `json:"waitlist_track,omitempty"`
	WaitlistJoinedAt string `json:"waitlist_joined_at,omitempty"`

	ConfirmedAt  string `json:"confirmed_at,omitempty"`
	ConfirmedVia string `json:"confirmed_via,omitempty"`

	// ProgramTrack is looked up through the linked session; normalized to a
	// scalar at the data-access boundary.
	ProgramTrack string `json:"program_track,omitempty"`
}
