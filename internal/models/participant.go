package models

// Participant is a person granted access to the companion application.
// Created only when a confirmed registration's program track is full access.
type Participant struct {
	ID            string `json:"id"` // record id
	ParticipantID string `json:"participant_id"`
	Email         string `json:"email"`
	FullName      string `json:"full_name,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Status        string `json:"status,omitempty"`
	AccessLevel   string `json:"access_level,omitempty"`
	JoinDate      string `json:"join_date,omitempty"` // YYYY-MM-DD
}
