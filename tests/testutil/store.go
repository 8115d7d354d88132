package testutil

import (
	"testing"
	"time"

	"github.com/nhle/notifier/internal/model"
	"github.com/nhle/notifier/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T, opts ...store.SQLiteOption) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:", opts...)
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// Draft returns a valid draft addressed to recipientID.
func Draft(recipientID, title string, priority model.Priority) model.Draft {
	return model.Draft{
		Type:        model.TypeGeneral,
		Title:       title,
		Message:     title + " body",
		RecipientID: recipientID,
		Priority:    priority,
	}
}

// Notification builds a stored-looking notification for UI and inbox tests.
func Notification(id string, priority model.Priority, status model.Status, createdAt time.Time) model.Notification {
	return model.Notification{
		ID:          id,
		Type:        model.TypeGeneral,
		Title:       "Notification " + id,
		Message:     "Message " + id,
		RecipientID: "user-1",
		Status:      status,
		Priority:    priority,
		CreatedAt:   createdAt,
	}
}

// NextSnapshot waits for the next snapshot on ch, failing the test after
// timeout or when ch is closed.
func NextSnapshot(t *testing.T, ch <-chan store.Snapshot) store.Snapshot {
	t.Helper()

	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatal("snapshot channel closed")
		}
		return snap
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return store.Snapshot{}
}
