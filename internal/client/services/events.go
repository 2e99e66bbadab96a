package services

// EventType identifies one sync engine occurrence.
type EventType string

const (
	EventOnline           EventType = "online"
	EventOffline          EventType = "offline"
	EventSyncStart        EventType = "sync_start"
	EventSyncSuccess      EventType = "sync_success"
	EventSyncError        EventType = "sync_error"
	EventConflictDetected EventType = "conflict_detected"
	EventConflictResolved EventType = "conflict_resolved"
	EventSyncComplete     EventType = "sync_complete"
)

// Summary reports the outcome of one sync pass.
type Summary struct {
	Total     int `json:"total"`
	Synced    int `json:"synced"`
	Failed    int `json:"failed"`
	Conflicts int `json:"conflicts"`
}

// Event is one entry in the engine's event stream. LocalID is set for
// record-scoped events; Summary only for EventSyncComplete.
type Event struct {
	Type    EventType `json:"type"`
	LocalID string    `json:"local_id,omitempty"`
	Summary *Summary  `json:"summary,omitempty"`
}
