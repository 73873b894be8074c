// Package records contains the typed repositories over the record store.
// Field mapping and the store's scalar-or-array lookup quirks are handled
// here so workflow code never touches raw field maps.
package records

// Session table columns.
const (
	fieldSessionTitle    = "Session Title"
	fieldCalendarEventID = "Calendar Event ID"
	fieldDescription     = "Description"
	fieldSessionDate     = "Session Date"
	fieldStartTime       = "Start Time"
	fieldEndTime         = "End Time"
	fieldMeetingLink     = "Meeting Link"
	fieldProgramTrack    = "Program Track"
	fieldSessionStatus   = "Session Status"
	fieldDriveFolderID   = "Drive Folder ID"
	fieldCoverImage      = "Cover Image"
)

// Registration table columns.
const (
	fieldRegEmail        = "Registrant Email"
	fieldRegName         = "Registrant Name"
	fieldRegPhone        = "Registrant Phone"
	fieldRegEventID      = "Event ID"
	fieldConfirmToken    = "Confirm Token"
	fieldConfirmURL      = "Confirm URL"
	fieldRegStatus       = "Status"
	fieldAckSent         = "Email: Ack Sent"
	fieldWelcomeSent     = "Email: Welcome Sent"
	fieldSessionLink     = "Session"
	fieldWaitlistTrack   = "Waitlist Track"
	fieldWaitlistJoined  = "Waitlist Joined At"
	fieldConfirmedAt     = "Confirmed At"
	fieldConfirmedVia    = "Confirmed Via"
	fieldSessionTrackRef = "Program Track (from Session)"
)

// Participant table columns.
const (
	fieldPartEmail     = "Email"
	fieldPartName      = "Full Name"
	fieldPartPhone     = "Phone"
	fieldPartStatus    = "Status"
	fieldAccessLevel   = "Access Level"
	fieldJoinDate      = "Join Date"
	fieldParticipantID = "Participant ID"
)

// firstOf normalizes a lookup/link value that the store returns as either a
// scalar or a single-element array depending on the column type.
func firstOf(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []any:
		if len(val) > 0 {
			if s, ok := val[0].(string); ok {
				return s
			}
		}
	case []string:
		if len(val) > 0 {
			return val[0]
		}
	}
	return ""
}

func getString(fields map[string]any, key string) string {
	if s, ok := fields[key].(string); ok {
		return s
	}
	return ""
}

func getBool(fields map[string]any, key string) bool {
	if b, ok := fields[key].(bool); ok {
		return b
	}
	return false
}

func getStringSlice(fields map[string]any, key string) []string {
	raw, ok := fields[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// attachmentURL extracts the first attachment's URL from an attachment
// column value.
func attachmentURL(fields map[string]any, key string) string {
	items, ok := fields[key].([]any)
	if !ok || len(items) == 0 {
		return ""
	}
	first, ok := items[0].(map[string]any)
	if !ok {
		return ""
	}
	return getString(first, "url")
}
