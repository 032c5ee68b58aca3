package types

import "time"

// Event types broadcast on the event hub
const (
	EventSyncProgress  = "sync.progress"
	EventSyncStatus    = "sync.status"
	EventSyncComplete  = "sync.complete"
	EventSyncError     = "sync.error"
	EventLibraryChange = "library.changed"
)

// Event represents a websocket notification message
type Event struct {
	Type      string    `json:"type"`
	JobID     string    `json:"jobId,omitempty"`
	Path      string    `json:"path,omitempty"`     // directory (relative to the media root) that changed
	Progress  float64   `json:"progress,omitempty"` // 0-100 percentage
	Status    string    `json:"status,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
