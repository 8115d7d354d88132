package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/nhle/notifier/internal/model"
)

// nowExpr is SQLite's own clock, used wherever the backend stamps a time.
const nowExpr = `strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`

// SQLiteStore implements the Store interface using a local SQLite database.
// Live queries are emulated by polling, woken early by the change bus.
type SQLiteStore struct {
	db       *sqlx.DB
	bus      ChangeBus
	interval time.Duration
}

// SQLiteOption configures a SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithPollInterval sets how often live queries re-run without a wake signal.
func WithPollInterval(d time.Duration) SQLiteOption {
	return func(s *SQLiteStore) {
		s.interval = d
	}
}

// WithChangeBus replaces the default in-process bus.
func WithChangeBus(b ChangeBus) SQLiteOption {
	return func(s *SQLiteStore) {
		s.bus = b
	}
}

// connPragmas are applied by the driver to every pooled connection.
// Writers take the lock at BEGIN so that a waiting writer is queued by
// busy_timeout instead of failing on a lock upgrade.
const connPragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"

// sqliteDSN appends connPragmas to dbPath.
func sqliteDSN(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + connPragmas
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string, opts ...SQLiteOption) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to sqlite db: %w", err)
	}

	s := &SQLiteStore{
		db:       db,
		bus:      NewLocalBus(),
		interval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the change bus and the underlying database connection.
func (s *SQLiteStore) Close() error {
	busErr := s.bus.Close()
	if err := s.db.Close(); err != nil {
		return err
	}
	return busErr
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Watch polls the notifications addressed to recipientID.
func (s *SQLiteStore) Watch(ctx context.Context, recipientID string) <-chan Snapshot {
	out := make(chan Snapshot)

	w := pollWatcher{
		op: "watch notifications",
		query: func(ctx context.Context) ([]model.Notification, error) {
			return s.listFor(ctx, recipientID)
		},
		interval: s.interval,
		wake:     s.bus.Subscribe(ctx, recipientID),
		classify: classifySQLite,
	}
	go w.run(ctx, out)

	return out
}

// Transition moves a notification forward to status to.
func (s *SQLiteStore) Transition(ctx context.Context, id string, to model.Status) error {
	op := fmt.Sprintf("mark notification %s %s", id, to)

	column, ok := timestampColumns[to]
	if !ok {
		return fmt.Errorf("%s: status cannot be set directly", op)
	}

	// Read and write in one statement; writers only ever queue on the lock.
	query, args, err := sqlx.In(
		"UPDATE notifications SET status = ?, "+column+" = "+nowExpr+
			" WHERE id = ? AND status IN (?) RETURNING recipient_id",
		string(to), id, statusStrings(to.Predecessors()),
	)
	if err != nil {
		return fmt.Errorf("%s: building query: %w", op, err)
	}

	var recipientID string
	err = s.db.GetContext(ctx, &recipientID, query, args...)
	if err == nil {
		s.publish(ctx, recipientID)
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return wrapErr(op, err, classifySQLite)
	}

	// Nothing matched: either the record is gone or it is already at or
	// past the target status.
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM notifications WHERE id = ?", id); err != nil {
		return wrapErr(op, err, classifySQLite)
	}
	if count == 0 {
		return wrapErr(op, ErrNotFound, classifySQLite)
	}
	return nil
}

// Add inserts a new unread notification and returns its generated ID.
func (s *SQLiteStore) Add(ctx context.Context, d model.Draft) (string, error) {
	const op = "add notification"

	action, err := encodeAction(d.Action)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	id := uuid.New().String()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notifications (
			id, type, title, message, recipient_id, recipient_group_id,
			status, priority, action_data
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, string(d.Type), d.Title, d.Message, d.RecipientID, d.RecipientGroupID,
		string(model.StatusUnread), string(d.Priority), action,
	)
	if err != nil {
		return "", wrapErr(op, err, classifySQLite)
	}

	s.publish(ctx, d.RecipientID)
	return id, nil
}

// Delete removes a notification. Deleting a missing notification succeeds.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	op := fmt.Sprintf("delete notification %s", id)

	var recipientID string
	err := s.db.GetContext(ctx, &recipientID,
		"DELETE FROM notifications WHERE id = ? RETURNING recipient_id", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return wrapErr(op, err, classifySQLite)
	}

	s.publish(ctx, recipientID)
	return nil
}

// publish signals watchers of recipientID. Failures only delay delivery
// until the next poll.
func (s *SQLiteStore) publish(ctx context.Context, recipientID string) {
	if err := s.bus.Publish(ctx, recipientID); err != nil {
		log.Printf("[WARN] publishing change for %s: %v", recipientID, err)
	}
}

// notificationRow mirrors the notifications table.
type notificationRow struct {
	ID               string         `db:"id"`
	Type             string         `db:"type"`
	Title            string         `db:"title"`
	Message          string         `db:"message"`
	RecipientID      string         `db:"recipient_id"`
	RecipientGroupID string         `db:"recipient_group_id"`
	Status           string         `db:"status"`
	Priority         string         `db:"priority"`
	CreatedAt        string         `db:"created_at"`
	ReadAt           sql.NullString `db:"read_at"`
	AcknowledgedAt   sql.NullString `db:"acknowledged_at"`
	ActionData       string         `db:"action_data"`
}

// listFor runs the live query once. No ORDER BY: ordering is the
// consumer's job, as on the document backends.
func (s *SQLiteStore) listFor(ctx context.Context, recipientID string) ([]model.Notification, error) {
	var rows []notificationRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, type, title, message, recipient_id, recipient_group_id,
		       status, priority, created_at, read_at, acknowledged_at, action_data
		FROM notifications
		WHERE recipient_id = ?`, recipientID)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}

	out := make([]model.Notification, 0, len(rows))
	for _, r := range rows {
		n, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// toModel converts a row, parsing the stored timestamps.
func (r notificationRow) toModel() (model.Notification, error) {
	n := model.Notification{
		ID:               r.ID,
		Type:             model.Type(r.Type),
		Title:            r.Title,
		Message:          r.Message,
		RecipientID:      r.RecipientID,
		RecipientGroupID: r.RecipientGroupID,
		Status:           model.Status(r.Status),
		Priority:         model.Priority(r.Priority),
	}

	createdAt, err := parseTimestamp(r.CreatedAt)
	if err != nil {
		return model.Notification{}, fmt.Errorf("parsing created_at of %s: %w", r.ID, err)
	}
	n.CreatedAt = createdAt

	if n.ReadAt, err = parseNullTimestamp(r.ReadAt); err != nil {
		return model.Notification{}, fmt.Errorf("parsing read_at of %s: %w", r.ID, err)
	}
	if n.AcknowledgedAt, err = parseNullTimestamp(r.AcknowledgedAt); err != nil {
		return model.Notification{}, fmt.Errorf("parsing acknowledged_at of %s: %w", r.ID, err)
	}

	if r.ActionData != "" {
		var a model.ActionData
		if err := json.Unmarshal([]byte(r.ActionData), &a); err != nil {
			return model.Notification{}, fmt.Errorf("unmarshaling action_data of %s: %w", r.ID, err)
		}
		n.Action = &a
	}

	return n, nil
}

// timestampColumns maps a target status to the column it stamps.
var timestampColumns = map[model.Status]string{
	model.StatusRead:         "read_at",
	model.StatusAcknowledged: "acknowledged_at",
}

func statusStrings(statuses []model.Status) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}

func encodeAction(a *model.ActionData) (string, error) {
	if a == nil || a.Empty() {
		return "", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("marshaling action_data: %w", err)
	}
	return string(b), nil
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func parseNullTimestamp(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTimestamp(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// classifySQLite maps SQLite result codes onto the failure classes.
func classifySQLite(err error) Code {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_IOERR, sqlite3.SQLITE_CANTOPEN:
			return CodeUnavailable
		case sqlite3.SQLITE_PERM, sqlite3.SQLITE_AUTH, sqlite3.SQLITE_READONLY:
			return CodePermissionDenied
		case sqlite3.SQLITE_ERROR:
			if strings.Contains(se.Error(), "no such table") {
				return CodeFailedPrecondition
			}
		}
	}
	if errors.Is(err, sql.ErrConnDone) || strings.Contains(err.Error(), "database is closed") {
		return CodeUnavailable
	}
	return CodeUnknown
}
