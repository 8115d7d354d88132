// Package inbox keeps the live list of the signed-in user's notifications
// and forwards user actions on them to the backend.
//
// Every backend failure is classified, logged and absorbed: callers never
// see an error, only stale or empty data until the next good snapshot.
package inbox

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/nhle/notifier/internal/connectivity"
	"github.com/nhle/notifier/internal/model"
	"github.com/nhle/notifier/internal/store"
)

// Update is the inbox state after a change.
type Update struct {
	UserID        string
	Notifications []model.Notification
	UnreadCount   int
	Loading       bool
	// Err is the feed error that ended the last load, if any.
	Err error
}

// Inbox owns one live subscription at a time.
type Inbox struct {
	store store.Store
	conn  connectivity.Signal
	log   *log.Logger
	now   func() time.Time

	mu            sync.RWMutex
	userID        string
	notifications []model.Notification
	unread        int
	loading       bool
	lastErr       error
	generation    uint64
	cancel        context.CancelFunc
	done          chan struct{}

	updates chan Update
}

// Option configures an Inbox.
type Option func(*Inbox)

// WithLogger sets the logger used for absorbed failures.
func WithLogger(l *log.Logger) Option {
	return func(i *Inbox) {
		i.log = l
	}
}

// WithClock sets the clock used to place records whose server timestamp
// has not resolved yet.
func WithClock(now func() time.Time) Option {
	return func(i *Inbox) {
		i.now = now
	}
}

// New creates an Inbox with no subscription.
func New(s store.Store, conn connectivity.Signal, opts ...Option) *Inbox {
	i := &Inbox{
		store:   s,
		conn:    conn,
		log:     log.Default(),
		now:     time.Now,
		updates: make(chan Update, 1),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Subscribe replaces any current subscription with a live feed of userID's
// notifications. An empty userID clears the list and opens nothing.
func (i *Inbox) Subscribe(userID string) {
	i.mu.Lock()
	if i.cancel != nil {
		i.cancel()
		i.cancel, i.done = nil, nil
	}
	i.generation++
	gen := i.generation

	i.userID = userID
	i.notifications = nil
	i.unread = 0
	i.lastErr = nil
	i.loading = userID != ""

	if userID == "" {
		i.publishLocked()
		i.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	i.cancel, i.done = cancel, done
	i.publishLocked()
	i.mu.Unlock()

	i.log.Printf("[DEBUG] subscribing to notifications of %s", userID)
	feed := i.store.Watch(ctx, userID)
	go i.consume(gen, feed, done)
}

// Close releases the live subscription and waits for it to stop.
func (i *Inbox) Close() {
	i.mu.Lock()
	cancel, done := i.cancel, i.done
	i.cancel, i.done = nil, nil
	i.generation++
	i.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Updates delivers the latest state after every change. Only the newest
// undelivered state is kept.
func (i *Inbox) Updates() <-chan Update {
	return i.updates
}

// Notifications returns the current list, newest first.
func (i *Inbox) Notifications() []model.Notification {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return append([]model.Notification(nil), i.notifications...)
}

// UnreadCount returns how many notifications in the current list are unread.
func (i *Inbox) UnreadCount() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.unread
}

// Loading reports whether the first snapshot of the current subscription
// is still pending.
func (i *Inbox) Loading() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.loading
}

// UserID returns the subscribed user, or "" when signed out.
func (i *Inbox) UserID() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.userID
}

// LastError returns the feed error that ended the last load, if any.
func (i *Inbox) LastError() error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.lastErr
}

// consume applies snapshots from one subscription until its feed closes.
func (i *Inbox) consume(gen uint64, feed <-chan store.Snapshot, done chan struct{}) {
	defer close(done)
	for snap := range feed {
		i.apply(gen, snap)
	}
}

// apply replaces the list with snap. Snapshots of an older subscription
// are dropped.
func (i *Inbox) apply(gen uint64, snap store.Snapshot) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if gen != i.generation {
		return
	}

	i.loading = false
	if snap.Err != nil {
		i.lastErr = snap.Err
		i.logFailure("subscribe", snap.Err)
		i.publishLocked()
		return
	}

	i.lastErr = nil
	i.notifications = newestFirst(snap.Notifications, i.now())
	i.unread = countUnread(i.notifications)
	i.publishLocked()
}

// publishLocked replaces any undelivered update with the current state.
// Callers hold i.mu, so updates are queued in state order.
func (i *Inbox) publishLocked() {
	u := Update{
		UserID:        i.userID,
		Notifications: append([]model.Notification(nil), i.notifications...),
		UnreadCount:   i.unread,
		Loading:       i.loading,
		Err:           i.lastErr,
	}

	select {
	case <-i.updates:
	default:
	}
	i.updates <- u
}

// MarkAsRead moves a notification to read. Marking a notification that is
// already read or acknowledged changes nothing.
func (i *Inbox) MarkAsRead(ctx context.Context, id string) {
	if err := i.store.Transition(ctx, id, model.StatusRead); err != nil {
		i.logFailure("markAsRead", err)
	}
}

// MarkAsAcknowledged moves a notification to acknowledged.
func (i *Inbox) MarkAsAcknowledged(ctx context.Context, id string) {
	if err := i.store.Transition(ctx, id, model.StatusAcknowledged); err != nil {
		i.logFailure("markAsAcknowledged", err)
	}
}

// MarkAllAsRead marks every unread notification in the current list read.
// Each update is independent; a failure leaves the others in place.
func (i *Inbox) MarkAllAsRead(ctx context.Context) {
	for _, n := range i.Notifications() {
		if n.IsUnread() {
			i.MarkAsRead(ctx, n.ID)
		}
	}
}

// Dismiss deletes a notification.
func (i *Inbox) Dismiss(ctx context.Context, id string) {
	if err := i.store.Delete(ctx, id); err != nil {
		i.logFailure("dismiss", err)
	}
}

// Send writes a new notification and returns its ID, or "" when nothing
// was written: offline, signed out, invalid, or rejected by the backend.
func (i *Inbox) Send(ctx context.Context, d model.Draft) string {
	if !i.conn.Online() {
		i.log.Printf("[WARN] sendNotification skipped: offline")
		return ""
	}
	if i.UserID() == "" {
		i.log.Printf("[WARN] sendNotification skipped: not signed in")
		return ""
	}

	d = d.WithDefaults()
	if err := d.Validate(); err != nil {
		i.log.Printf("[WARN] sendNotification skipped: %v", err)
		return ""
	}

	id, err := i.store.Add(ctx, d)
	if err != nil {
		i.logFailure("sendNotification", err)
		return ""
	}

	i.log.Printf("[INFO] sent notification %s to %s", id, d.RecipientID)
	return id
}

// logFailure logs err with its class and a hint for the operator.
func (i *Inbox) logFailure(op string, err error) {
	code := store.Classify(err)
	switch code {
	case store.CodePermissionDenied:
		i.log.Printf("[ERROR] %s (%s): check the backend access rules: %v", op, code, err)
	case store.CodeUnavailable:
		i.log.Printf("[WARN] %s (%s): backend unreachable, check the network: %v", op, code, err)
	case store.CodeFailedPrecondition:
		i.log.Printf("[ERROR] %s (%s): backend not ready, an index may be missing: %v", op, code, err)
	default:
		i.log.Printf("[ERROR] %s (%s): %v", op, code, err)
	}
}

// newestFirst copies list, gives unresolved timestamps the value now so
// pending writes sort first, and orders by created-at descending. Ties
// keep snapshot order.
func newestFirst(list []model.Notification, now time.Time) []model.Notification {
	out := make([]model.Notification, len(list))
	copy(out, list)

	for k := range out {
		if out[k].CreatedAt.IsZero() {
			out[k].CreatedAt = now
		}
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	return out
}

func countUnread(list []model.Notification) int {
	n := 0
	for _, rec := range list {
		if rec.IsUnread() {
			n++
		}
	}
	return n
}
