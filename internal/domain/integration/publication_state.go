package integration

import (
	"fmt"

	"github.com/santi-naranjo/catalog-ai/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Status / SyncStatus
// ---------------------------------------------------------------------------

// Status is the publication status of a product on a platform
type Status string

const (
	StatusQueued      Status = "queued"
	StatusPublishing  Status = "publishing"
	StatusPublished   Status = "published"
	StatusFailed      Status = "failed"
	StatusUnpublished Status = "unpublished"
)

// IsValid returns true if the status is known
func (s Status) IsValid() bool {
	switch s {
	case StatusQueued, StatusPublishing, StatusPublished, StatusFailed, StatusUnpublished:
		return true
	default:
		return false
	}
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// SyncStatus is the synchronization status of a product on a platform
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSyncing SyncStatus = "syncing"
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusFailed  SyncStatus = "failed"
)

// IsValid returns true if the sync status is known
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusPending, SyncStatusSyncing, SyncStatusSynced, SyncStatusFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncStatus
func (s SyncStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// PublicationState
// ---------------------------------------------------------------------------

// PublicationState is the status/sync-status pair. Its fields are unexported
// so the pair can only change through Apply.
type PublicationState struct {
	status     Status
	syncStatus SyncStatus
}

// The pairs reachable through the transition table
var (
	StateQueued      = PublicationState{StatusQueued, SyncStatusPending}
	StateInFlight    = PublicationState{StatusPublishing, SyncStatusSyncing}
	StatePublished   = PublicationState{StatusPublished, SyncStatusSynced}
	StateFailed      = PublicationState{StatusFailed, SyncStatusFailed}
	StateUnpublished = PublicationState{StatusUnpublished, SyncStatusSynced}
)

// RestorePublicationState rebuilds a pair read from storage. Both values must
// be known; a known but unlisted pairing is accepted and simply rejects every
// event.
func RestorePublicationState(status Status, syncStatus SyncStatus) (PublicationState, error) {
	if !status.IsValid() {
		return PublicationState{}, fmt.Errorf("integration: unknown status %q", status)
	}
	if !syncStatus.IsValid() {
		return PublicationState{}, fmt.Errorf("integration: unknown sync status %q", syncStatus)
	}
	return PublicationState{status: status, syncStatus: syncStatus}, nil
}

// Status returns the publication status half of the pair
func (s PublicationState) Status() Status {
	return s.status
}

// SyncStatus returns the sync status half of the pair
func (s PublicationState) SyncStatus() SyncStatus {
	return s.syncStatus
}

// String renders the pair as status/syncStatus
func (s PublicationState) String() string {
	return string(s.status) + "/" + string(s.syncStatus)
}

// Event is something that moves a PublicationState
type Event string

const (
	EventBeginSync          Event = "begin_sync"
	EventSyncSucceeded      Event = "sync_succeeded"
	EventSyncFailed         Event = "sync_failed"
	EventBeginUnpublish     Event = "begin_unpublish"
	EventUnpublishSucceeded Event = "unpublish_succeeded"
	EventUnpublishFailed    Event = "unpublish_failed"
	EventRetry              Event = "retry"
	EventForceResync        Event = "force_resync"
)

type transitionKey struct {
	from  PublicationState
	event Event
}

var transitions = map[transitionKey]PublicationState{
	{StateQueued, EventBeginSync}:            StateInFlight,
	{StatePublished, EventBeginSync}:         StateInFlight,
	{StateInFlight, EventSyncSucceeded}:      StatePublished,
	{StateInFlight, EventSyncFailed}:         StateFailed,
	{StatePublished, EventBeginUnpublish}:    StateInFlight,
	{StateInFlight, EventUnpublishSucceeded}: StateUnpublished,
	{StateInFlight, EventUnpublishFailed}:    StatePublished,
	{StateFailed, EventRetry}:                StateQueued,
	{StateInFlight, EventForceResync}:        StateInFlight,
}

// CanApply reports whether event is legal from s
func (s PublicationState) CanApply(event Event) bool {
	_, ok := transitions[transitionKey{s, event}]
	return ok
}

// Apply returns the state reached by applying event to s, or an
// INVALID_STATE domain error when the pairing is not in the table
func (s PublicationState) Apply(event Event) (PublicationState, error) {
	next, ok := transitions[transitionKey{s, event}]
	if !ok {
		return s, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("cannot apply %s to a product in state %s", event, s))
	}
	return next, nil
}
