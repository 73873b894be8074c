package models

// Session is a live-session record mirrored from the calendar into the
// record store. The record store copy is a secondary index over the
// calendar event; CalendarEventID is empty for store-native sessions.
type Session struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	CalendarEventID string `json:"calendar_event_id,omitempty"`
	Description     string `json:"description,omitempty"`
	Date            string `json:"date,omitempty"` // YYYY-MM-DD
	StartTime       string `json:"start_time,omitempty"`
	EndTime         string `json:"end_time,omitempty"`
	MeetingLink     string `json:"meeting_link,omitempty"`
	ProgramTrack    string `json:"program_track,omitempty"`
	Status          string `json:"status,omitempty"`
	DriveFolderID   string `json:"drive_folder_id,omitempty"`
	CoverImageURL   string `json:"cover_image_url,omitempty"`
}

// Program tracks. TrackFullDay and TrackFullAccess gate companion-app
// participant provisioning on confirmation.
const (
	TrackFullDay    = "Full-day"
	TrackFullAccess = "Full access"
	TrackFree90     = "Free 90-min"
)

// Event is the projection of a Session returned by the listing endpoint.
type Event struct {
	ID              string `json:"id"`
	CalendarEventID string `json:"calendarEventId,omitempty"`
	Title           string `json:"title"`
	Start           string `json:"start,omitempty"`
	End             string `json:"end,omitempty"`
	Link            string `json:"link,omitempty"`
	Description     string `json:"description,omitempty"`
	CoverImage      string `json:"coverImage,omitempty"`
	ProgramTrack    string `json:"programTrack,omitempty"`
}
