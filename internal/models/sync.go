package models

// SyncStats summarizes one calendar-to-store sync run. Individual item
// failures are counted, not fatal; the run reports partial progress.
type SyncStats struct {
	EventsSeen      int `json:"events_seen"`
	SessionsCreated int `json:"sessions_created"`
	SessionsUpdated int `json:"sessions_updated"`
	FoldersCreated  int `json:"folders_created"`
	FolderFailures  int `json:"folder_failures"`
	SessionFailures int `json:"session_failures"`
}
