package events

import (
	"time"
)

// EventType represents the severity of an event.
type EventType string

const (
	// EventTypeNormal indicates normal, non-problematic events.
	EventTypeNormal EventType = "Normal"

	// EventTypeWarning indicates events that may require attention.
	EventTypeWarning EventType = "Warning"
)

// EventReason represents the reason code for an event.
type EventReason string

// Sync set event reasons
const (
	// ReasonEntryAdded indicates a resource went out of sync.
	ReasonEntryAdded EventReason = "EntryAdded"

	// ReasonEntryChanged indicates the state of an out-of-sync resource changed.
	ReasonEntryChanged EventReason = "EntryChanged"

	// ReasonEntryRemoved indicates a resource is back in sync.
	ReasonEntryRemoved EventReason = "EntryRemoved"

	// ReasonSyncSetReset indicates a sync set was recomputed from scratch.
	ReasonSyncSetReset EventReason = "SyncSetReset"
)

// Engine event reasons
const (
	// ReasonWatchStarted indicates the engine finished its initial collect.
	ReasonWatchStarted EventReason = "WatchStarted"

	// ReasonPassFailed indicates a background pass reported an error.
	ReasonPassFailed EventReason = "PassFailed"

	// ReasonErrorLogged indicates an error outside a pass, such as a
	// filesystem watch failure.
	ReasonErrorLogged EventReason = "ErrorLogged"
)

// Change set and resolution event reasons
const (
	// ReasonChangeSetCreated indicates a change set was created.
	ReasonChangeSetCreated EventReason = "ChangeSetCreated"

	// ReasonChangeSetRemoved indicates a change set was removed.
	ReasonChangeSetRemoved EventReason = "ChangeSetRemoved"

	// ReasonResolutionSucceeded indicates a resolution completed.
	ReasonResolutionSucceeded EventReason = "ResolutionSucceeded"

	// ReasonResolutionFailed indicates a resolution failed.
	ReasonResolutionFailed EventReason = "ResolutionFailed"
)

// EventData contains the data used for message templating.
type EventData struct {
	// Name is the sync set, change set or handler the event is about.
	Name string

	// Path is the resource path, if any.
	Path string

	// State is the sync state label, e.g. "outgoing modification".
	State string

	// Revision is the sync-set revision that produced the event.
	Revision uint64

	// Count is the number of entries involved.
	Count int

	// Error contains error information for failure events.
	Error string

	// Duration is the duration of an operation.
	Duration time.Duration
}

// Event is one rendered event.
type Event struct {
	Time     time.Time   `json:"time"`
	Type     EventType   `json:"type"`
	Reason   EventReason `json:"reason"`
	Message  string      `json:"message"`
	Path     string      `json:"path,omitempty"`
	Revision uint64      `json:"revision,omitempty"`
}

// getEventType returns the appropriate EventType for a given EventReason.
func getEventType(reason EventReason) EventType {
	switch reason {
	case ReasonPassFailed, ReasonErrorLogged,
		ReasonResolutionFailed:
		return EventTypeWarning
	default:
		return EventTypeNormal
	}
}
