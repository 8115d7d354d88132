package store

import (
	"context"
	"errors"

	"github.com/nhle/notifier/internal/model"
)

// ErrNotFound is returned when a mutation targets a notification that does
// not exist.
var ErrNotFound = errors.New("notification not found")

// Snapshot is one delivery of a live query: either the full result set or
// the error that interrupted the feed.
type Snapshot struct {
	Notifications []model.Notification
	Err           error
}

// Store is the document-store capability the inbox depends on.
type Store interface {
	// Watch runs a live query for every notification addressed to
	// recipientID. The query carries no ordering. Each delivery is a full
	// snapshot. The channel is closed once ctx is cancelled or the feed
	// fails permanently.
	Watch(ctx context.Context, recipientID string) <-chan Snapshot

	// Transition advances a notification's status and stamps the matching
	// timestamp with the backend's write time. A transition that would not
	// move the status forward is a no-op.
	Transition(ctx context.Context, id string, to model.Status) error

	// Add writes a new unread notification stamped with the backend's write
	// time and returns its identifier.
	Add(ctx context.Context, d model.Draft) (string, error)

	// Delete removes a notification permanently.
	Delete(ctx context.Context, id string) error

	// Close releases the backend connection.
	Close() error
}

// sendSnapshot delivers snap unless ctx is done first.
func sendSnapshot(ctx context.Context, ch chan<- Snapshot, snap Snapshot) bool {
	select {
	case ch <- snap:
		return true
	case <-ctx.Done():
		return false
	}
}
