package store

import (
	"context"
	"time"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/nhle/notifier/internal/model"
)

// queryTimeout bounds a single run of a live query.
const queryTimeout = 15 * time.Second

// defaultPollInterval is used when a backend is given no interval.
const defaultPollInterval = 5 * time.Second

// queryFunc runs a live query once.
type queryFunc func(ctx context.Context) ([]model.Notification, error)

// pollWatcher emulates a live query on backends without push: it re-runs
// the query on every tick or wake signal and delivers a snapshot whenever
// the result changed.
type pollWatcher struct {
	op       string
	query    queryFunc
	interval time.Duration
	wake     <-chan struct{}
	classify classifier
}

// run delivers snapshots on out until ctx is cancelled, then closes out.
func (w pollWatcher) run(ctx context.Context, out chan<- Snapshot) {
	defer close(out)

	interval := w.interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var (
		last      uint64
		delivered bool
		failing   bool
	)

	// emit runs the query once; false means ctx ended while delivering.
	emit := func() bool {
		qctx, cancel := context.WithTimeout(ctx, queryTimeout)
		records, err := w.query(qctx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			delivered = false
			// One error per failure streak.
			if failing {
				return true
			}
			failing = true
			return sendSnapshot(ctx, out, Snapshot{Err: wrapErr(w.op, err, w.classify)})
		}
		failing = false

		sum, hashErr := fingerprint(records)
		if hashErr == nil && delivered && sum == last {
			return true
		}
		last, delivered = sum, hashErr == nil
		return sendSnapshot(ctx, out, Snapshot{Notifications: records})
	}

	if !emit() {
		return
	}

	wake := w.wake
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case _, ok := <-wake:
			if !ok {
				wake = nil
				continue
			}
		}
		if !emit() {
			return
		}
	}
}

// recordPrint is the subset of a notification that identifies a change.
type recordPrint struct {
	ID, Status, Priority, Title, Message, ActionURL string
	CreatedAt, ReadAt, AcknowledgedAt             int64
}

// fingerprint hashes a result set so unchanged polls can be skipped.
func fingerprint(records []model.Notification) (uint64, error) {
	prints := make([]recordPrint, len(records))
	for i, n := range records {
		prints[i] = recordPrint{
			ID:             n.ID,
			Status:         string(n.Status),
			Priority:       string(n.Priority),
			Title:          n.Title,
			Message:        n.Message,
			ActionURL:      n.ActionURL(),
			CreatedAt:      unixNano(&n.CreatedAt),
			ReadAt:         unixNano(n.ReadAt),
			AcknowledgedAt: unixNano(n.AcknowledgedAt),
		}
	}
	return hashstructure.Hash(prints, hashstructure.FormatV2, nil)
}

func unixNano(t *time.Time) int64 {
	if t == nil || t.IsZero() {
		return 0
	}
	return t.UnixNano()
}
