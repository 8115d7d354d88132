package inbox

import (
	"bytes"
	"context"
	"errors"
	"log"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notifier/internal/connectivity"
	"github.com/nhle/notifier/internal/model"
	"github.com/nhle/notifier/internal/store"
	"github.com/nhle/notifier/tests/testutil"
)

// fakeStore hands the test a feed per Watch call and records mutations.
type fakeStore struct {
	mu          sync.Mutex
	feeds       []chan store.Snapshot
	watchCtxs   []context.Context
	recipients  []string
	adds        []model.Draft
	transitions []string
	deletes     []string
	err         error
}

func (f *fakeStore) Watch(ctx context.Context, recipientID string) <-chan store.Snapshot {
	in := make(chan store.Snapshot)
	out := make(chan store.Snapshot)

	f.mu.Lock()
	f.feeds = append(f.feeds, in)
	f.watchCtxs = append(f.watchCtxs, ctx)
	f.recipients = append(f.recipients, recipientID)
	f.mu.Unlock()

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-in:
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (f *fakeStore) Transition(_ context.Context, id string, to model.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transitions = append(f.transitions, id+":"+string(to))
	return f.err
}

func (f *fakeStore) Add(_ context.Context, d model.Draft) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.adds = append(f.adds, d)
	return "new-id", nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	return f.err
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) watchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.feeds)
}

// push delivers snap on the n-th feed (zero-based).
func (f *fakeStore) push(t *testing.T, n int, snap store.Snapshot) {
	t.Helper()
	require.Eventually(t, func() bool { return f.watchCount() > n }, time.Second, time.Millisecond)

	f.mu.Lock()
	feed := f.feeds[n]
	f.mu.Unlock()

	select {
	case feed <- snap:
	case <-time.After(2 * time.Second):
		t.Fatal("feed not consumed")
	}
}

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestInbox(t *testing.T, s store.Store, online bool) (*Inbox, *bytes.Buffer) {
	t.Helper()

	var logs bytes.Buffer
	ib := New(s, connectivity.Static(online),
		WithLogger(log.New(&logs, "", 0)),
		WithClock(func() time.Time { return t0.Add(time.Hour) }),
	)
	t.Cleanup(ib.Close)
	return ib, &logs
}

// waitFor reads updates until cond holds.
func waitFor(t *testing.T, ib *Inbox, cond func(Update) bool) Update {
	t.Helper()

	deadline := time.After(3 * time.Second)
	for {
		select {
		case u := <-ib.Updates():
			if cond(u) {
				return u
			}
		case <-deadline:
			t.Fatal("timed out waiting for inbox update")
			return Update{}
		}
	}
}

func loaded(u Update) bool { return !u.Loading }

func ids(list []model.Notification) []string {
	out := make([]string, len(list))
	for k, n := range list {
		out[k] = n.ID
	}
	return out
}

func TestSubscribe_SortsNewestFirst(t *testing.T) {
	fs := &fakeStore{}
	ib, _ := newTestInbox(t, fs, true)

	ib.Subscribe("user-1")
	assert.True(t, ib.Loading())

	fs.push(t, 0, store.Snapshot{Notifications: []model.Notification{
		testutil.Notification("r1", model.PriorityLow, model.StatusUnread, t0),
		testutil.Notification("r2", model.PriorityLow, model.StatusUnread, t0.Add(5*time.Minute)),
		testutil.Notification("r3", model.PriorityLow, model.StatusUnread, t0.Add(-5*time.Minute)),
	}})

	u := waitFor(t, ib, loaded)
	assert.Equal(t, []string{"r2", "r1", "r3"}, ids(u.Notifications))
	assert.Equal(t, []string{"r2", "r1", "r3"}, ids(ib.Notifications()))
	assert.Equal(t, []string{"user-1"}, fs.recipients)
}

func TestSubscribe_EqualTimestampsKeepSnapshotOrder(t *testing.T) {
	fs := &fakeStore{}
	ib, _ := newTestInbox(t, fs, true)
	ib.Subscribe("user-1")

	fs.push(t, 0, store.Snapshot{Notifications: []model.Notification{
		testutil.Notification("a", model.PriorityLow, model.StatusUnread, t0),
		testutil.Notification("b", model.PriorityLow, model.StatusUnread, t0),
		testutil.Notification("c", model.PriorityLow, model.StatusUnread, t0),
	}})

	u := waitFor(t, ib, loaded)
	assert.Equal(t, []string{"a", "b", "c"}, ids(u.Notifications))
}

func TestSubscribe_PendingTimestampSortsFirst(t *testing.T) {
	fs := &fakeStore{}
	ib, _ := newTestInbox(t, fs, true)
	ib.Subscribe("user-1")

	fs.push(t, 0, store.Snapshot{Notifications: []model.Notification{
		testutil.Notification("old", model.PriorityLow, model.StatusUnread, t0),
		testutil.Notification("pending", model.PriorityLow, model.StatusUnread, time.Time{}),
	}})

	u := waitFor(t, ib, loaded)
	require.Equal(t, []string{"pending", "old"}, ids(u.Notifications))
	assert.Equal(t, t0.Add(time.Hour), u.Notifications[0].CreatedAt)
}

func TestUnreadCount(t *testing.T) {
	fs := &fakeStore{}
	ib, _ := newTestInbox(t, fs, true)
	ib.Subscribe("user-1")

	fs.push(t, 0, store.Snapshot{Notifications: []model.Notification{
		testutil.Notification("a", model.PriorityLow, model.StatusUnread, t0),
		testutil.Notification("b", model.PriorityLow, model.StatusRead, t0),
		testutil.Notification("c", model.PriorityHigh, model.StatusUnread, t0),
		testutil.Notification("d", model.PriorityHigh, model.StatusAcknowledged, t0),
	}})

	u := waitFor(t, ib, loaded)
	assert.Equal(t, 2, u.UnreadCount)
	assert.Equal(t, 2, ib.UnreadCount())

	// The next snapshot replaces the list wholesale.
	fs.push(t, 0, store.Snapshot{Notifications: []model.Notification{
		testutil.Notification("a", model.PriorityLow, model.StatusRead, t0),
	}})
	u = waitFor(t, ib, func(u Update) bool { return len(u.Notifications) == 1 })
	assert.Equal(t, 0, u.UnreadCount)
}

func TestSubscribe_EmptyUser(t *testing.T) {
	fs := &fakeStore{}
	ib, _ := newTestInbox(t, fs, true)

	ib.Subscribe("")

	assert.False(t, ib.Loading())
	assert.Empty(t, ib.Notifications())
	assert.Equal(t, 0, fs.watchCount())

	u := waitFor(t, ib, loaded)
	assert.Empty(t, u.UserID)
}

func TestSubscribe_ReplacesPreviousFeed(t *testing.T) {
	fs := &fakeStore{}
	ib, _ := newTestInbox(t, fs, true)

	ib.Subscribe("user-1")
	fs.push(t, 0, store.Snapshot{Notifications: []model.Notification{
		testutil.Notification("a", model.PriorityLow, model.StatusUnread, t0),
	}})
	waitFor(t, ib, loaded)

	ib.Subscribe("user-2")
	assert.Empty(t, ib.Notifications())
	assert.True(t, ib.Loading())
	assert.Equal(t, "user-2", ib.UserID())

	fs.mu.Lock()
	first := fs.watchCtxs[0]
	fs.mu.Unlock()
	assert.Eventually(t, func() bool { return first.Err() != nil }, time.Second, time.Millisecond)
	assert.Equal(t, 2, fs.watchCount())
}

func TestApply_DropsStaleSnapshots(t *testing.T) {
	fs := &fakeStore{}
	ib, _ := newTestInbox(t, fs, true)
	ib.Subscribe("user-1")

	ib.mu.RLock()
	stale := ib.generation - 1
	ib.mu.RUnlock()

	ib.apply(stale, store.Snapshot{Notifications: []model.Notification{
		testutil.Notification("ghost", model.PriorityUrgent, model.StatusUnread, t0),
	}})

	assert.Empty(t, ib.Notifications())
	assert.True(t, ib.Loading())
}

func TestSubscribe_FeedErrorKeepsList(t *testing.T) {
	fs := &fakeStore{}
	ib, logs := newTestInbox(t, fs, true)
	ib.Subscribe("user-1")

	fs.push(t, 0, store.Snapshot{Notifications: []model.Notification{
		testutil.Notification("a", model.PriorityLow, model.StatusUnread, t0),
	}})
	waitFor(t, ib, loaded)

	denied := &store.Error{Op: "watch notifications", Code: store.CodePermissionDenied, Err: errors.New("rules")}
	fs.push(t, 0, store.Snapshot{Err: denied})

	u := waitFor(t, ib, func(u Update) bool { return u.Err != nil })
	assert.False(t, u.Loading)
	assert.Equal(t, []string{"a"}, ids(u.Notifications))
	assert.Equal(t, store.CodePermissionDenied, store.Classify(ib.LastError()))
	assert.Contains(t, logs.String(), "permission-denied")
}

func TestSubscribe_FirstSnapshotErrorClearsLoading(t *testing.T) {
	fs := &fakeStore{}
	ib, _ := newTestInbox(t, fs, true)
	ib.Subscribe("user-1")

	fs.push(t, 0, store.Snapshot{Err: &store.Error{Op: "watch", Code: store.CodeFailedPrecondition, Err: errors.New("index")}})

	u := waitFor(t, ib, loaded)
	assert.Empty(t, u.Notifications)
	assert.Error(t, u.Err)
}

func TestMutations_ForwardAndSwallowErrors(t *testing.T) {
	fs := &fakeStore{err: &store.Error{Op: "mark", Code: store.CodeUnavailable, Err: errors.New("offline")}}
	ib, logs := newTestInbox(t, fs, true)
	ctx := context.Background()

	ib.MarkAsRead(ctx, "a")
	ib.MarkAsAcknowledged(ctx, "b")
	ib.Dismiss(ctx, "c")

	assert.Equal(t, []string{"a:read", "b:acknowledged"}, fs.transitions)
	assert.Equal(t, []string{"c"}, fs.deletes)
	assert.Contains(t, logs.String(), "markAsRead (unavailable)")
	assert.Contains(t, logs.String(), "dismiss (unavailable)")
}

func TestMarkAllAsRead_OnlyUnread(t *testing.T) {
	fs := &fakeStore{}
	ib, _ := newTestInbox(t, fs, true)
	ib.Subscribe("user-1")

	fs.push(t, 0, store.Snapshot{Notifications: []model.Notification{
		testutil.Notification("a", model.PriorityLow, model.StatusUnread, t0),
		testutil.Notification("b", model.PriorityLow, model.StatusRead, t0.Add(time.Minute)),
		testutil.Notification("c", model.PriorityUrgent, model.StatusUnread, t0.Add(2*time.Minute)),
	}})
	waitFor(t, ib, loaded)

	ib.MarkAllAsRead(context.Background())
	assert.Equal(t, []string{"c:read", "a:read"}, fs.transitions)
}

func TestSend(t *testing.T) {
	draft := testutil.Draft("user-2", "Worker exit", model.PriorityHigh)

	t.Run("offline writes nothing", func(t *testing.T) {
		fs := &fakeStore{}
		ib, logs := newTestInbox(t, fs, false)
		ib.Subscribe("user-1")

		assert.Empty(t, ib.Send(context.Background(), draft))
		assert.Empty(t, fs.adds)
		assert.Contains(t, logs.String(), "offline")
	})

	t.Run("signed out writes nothing", func(t *testing.T) {
		fs := &fakeStore{}
		ib, _ := newTestInbox(t, fs, true)

		assert.Empty(t, ib.Send(context.Background(), draft))
		assert.Empty(t, fs.adds)
	})

	t.Run("invalid draft writes nothing", func(t *testing.T) {
		fs := &fakeStore{}
		ib, _ := newTestInbox(t, fs, true)
		ib.Subscribe("user-1")

		assert.Empty(t, ib.Send(context.Background(), model.Draft{Title: "no recipient"}))
		assert.Empty(t, fs.adds)
	})

	t.Run("success returns id", func(t *testing.T) {
		fs := &fakeStore{}
		ib, _ := newTestInbox(t, fs, true)
		ib.Subscribe("user-1")

		assert.Equal(t, "new-id", ib.Send(context.Background(), model.Draft{RecipientID: "user-2", Title: "hi"}))
		require.Len(t, fs.adds, 1)
		assert.Equal(t, model.TypeGeneral, fs.adds[0].Type)
		assert.Equal(t, model.PriorityMedium, fs.adds[0].Priority)
	})

	t.Run("backend failure returns empty", func(t *testing.T) {
		fs := &fakeStore{err: &store.Error{Op: "add", Code: store.CodeFailedPrecondition, Err: errors.New("index")}}
		ib, logs := newTestInbox(t, fs, true)
		ib.Subscribe("user-1")

		assert.Empty(t, ib.Send(context.Background(), draft))
		assert.Contains(t, logs.String(), "sendNotification (failed-precondition)")
	})
}

func TestClose_ReleasesListener(t *testing.T) {
	fs := &fakeStore{}
	ib, _ := newTestInbox(t, fs, true)
	ib.Subscribe("user-1")
	require.Eventually(t, func() bool { return fs.watchCount() == 1 }, time.Second, time.Millisecond)

	ib.Close()

	fs.mu.Lock()
	ctx := fs.watchCtxs[0]
	fs.mu.Unlock()
	assert.Error(t, ctx.Err())
}

// The SQLite backend is the one that ships by default; exercise the whole
// path end to end against it.
func TestInbox_WithSQLiteStore(t *testing.T) {
	s := testutil.NewTestStore(t, store.WithPollInterval(time.Hour))
	ib, _ := newTestInbox(t, s, true)
	ctx := context.Background()

	ib.Subscribe("user-1")
	waitFor(t, ib, loaded)

	id := ib.Send(ctx, testutil.Draft("user-1", "Duplicate worker", model.PriorityUrgent))
	require.NotEmpty(t, id)

	u := waitFor(t, ib, func(u Update) bool { return u.UnreadCount == 1 })
	require.Len(t, u.Notifications, 1)
	assert.Equal(t, id, u.Notifications[0].ID)

	ib.MarkAsRead(ctx, id)
	ib.MarkAsRead(ctx, id)
	u = waitFor(t, ib, func(u Update) bool { return u.UnreadCount == 0 })
	assert.Equal(t, model.StatusRead, u.Notifications[0].Status)
	require.NotNil(t, u.Notifications[0].ReadAt)

	ib.MarkAsAcknowledged(ctx, id)
	waitFor(t, ib, func(u Update) bool {
		return len(u.Notifications) == 1 && u.Notifications[0].Status == model.StatusAcknowledged
	})

	// No regression from acknowledged.
	ib.MarkAsRead(ctx, id)
	assert.Equal(t, model.StatusAcknowledged, ib.Notifications()[0].Status)

	ib.Dismiss(ctx, id)
	waitFor(t, ib, func(u Update) bool { return len(u.Notifications) == 0 })
}

func TestInbox_ConcurrentMarkAllOnFileStore(t *testing.T) {
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "notifications.db"), store.WithPollInterval(time.Hour))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ib, logs := newTestInbox(t, s, true)
	ctx := context.Background()

	ib.Subscribe("user-1")
	waitFor(t, ib, loaded)

	for round := 0; round < 10; round++ {
		a := ib.Send(ctx, testutil.Draft("user-1", "a", model.PriorityHigh))
		b := ib.Send(ctx, testutil.Draft("user-1", "b", model.PriorityUrgent))
		require.NotEmpty(t, a)
		require.NotEmpty(t, b)
		waitFor(t, ib, func(u Update) bool { return u.UnreadCount == 2 })

		// Mark-all from the popup issues one request per notification at once.
		var wg sync.WaitGroup
		for _, id := range []string{a, b} {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				ib.MarkAsRead(ctx, id)
			}(id)
		}
		wg.Wait()

		waitFor(t, ib, func(u Update) bool { return u.UnreadCount == 0 })
	}

	assert.NotContains(t, logs.String(), "[ERROR]")
	assert.NotContains(t, logs.String(), "[WARN]")
}
