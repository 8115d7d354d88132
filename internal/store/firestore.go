package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nhle/notifier/internal/model"
)

// FirestoreStore implements Store on a Firestore collection using its
// native live queries.
type FirestoreStore struct {
	client *firestore.Client
	coll   *firestore.CollectionRef
}

// NewFirestoreStore opens a client for projectID. credentialsFile may be
// empty to use application default credentials.
func NewFirestoreStore(
	ctx context.Context,
	projectID, collection, credentialsFile string,
) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &FirestoreStore{
		client: client,
		coll:   client.Collection(collection),
	}, nil
}

// Close closes the client and every listener opened through it.
func (f *FirestoreStore) Close() error {
	return f.client.Close()
}

// Watch listens to the query recipientId == recipientID. Firestore ends a
// listener on error, so the channel closes after delivering it.
func (f *FirestoreStore) Watch(ctx context.Context, recipientID string) <-chan Snapshot {
	const op = "watch notifications"
	out := make(chan Snapshot)

	go func() {
		defer close(out)

		it := f.coll.Where("recipientId", "==", recipientID).Snapshots(ctx)
		defer it.Stop()

		fail := func(err error) {
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return
			}
			sendSnapshot(ctx, out, Snapshot{Err: wrapErr(op, err, classifyFirestore)})
		}

		for {
			snap, err := it.Next()
			if err != nil {
				fail(err)
				return
			}

			docs, err := snap.Documents.GetAll()
			if err != nil {
				fail(err)
				return
			}

			records := make([]model.Notification, 0, len(docs))
			for _, doc := range docs {
				var fn firestoreNotification
				if err := doc.DataTo(&fn); err != nil {
					log.Printf("[WARN] skipping notification %s: %v", doc.Ref.ID, err)
					continue
				}
				records = append(records, fn.toModel(doc.Ref.ID))
			}

			if !sendSnapshot(ctx, out, Snapshot{Notifications: records}) {
				return
			}
		}
	}()

	return out
}

// firestoreTimestampFields maps a target status to the field it stamps.
var firestoreTimestampFields = map[model.Status]string{
	model.StatusRead:         "readAt",
	model.StatusAcknowledged: "acknowledgedAt",
}

// Transition reads and updates in one transaction so that a concurrent
// acknowledgement is never rolled back to read.
func (f *FirestoreStore) Transition(ctx context.Context, id string, to model.Status) error {
	op := fmt.Sprintf("mark notification %s %s", id, to)

	field, ok := firestoreTimestampFields[to]
	if !ok {
		return fmt.Errorf("%s: status cannot be set directly", op)
	}

	ref := f.coll.Doc(id)
	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		current, err := snap.DataAt("status")
		if err != nil {
			return fmt.Errorf("reading status: %w", err)
		}
		from, _ := current.(string)
		if !model.Status(from).CanAdvanceTo(to) {
			return nil
		}

		return tx.Update(ref, []firestore.Update{
			{Path: "status", Value: string(to)},
			{Path: field, Value: firestore.ServerTimestamp},
		})
	})
	return wrapErr(op, err, classifyFirestore)
}

// Add writes a new document; createdAt is filled in by the server.
func (f *FirestoreStore) Add(ctx context.Context, d model.Draft) (string, error) {
	const op = "add notification"

	ref, _, err := f.coll.Add(ctx, newFirestoreNotification(d))
	if err != nil {
		return "", wrapErr(op, err, classifyFirestore)
	}
	return ref.ID, nil
}

// Delete removes a notification. Deleting a missing notification succeeds.
func (f *FirestoreStore) Delete(ctx context.Context, id string) error {
	op := fmt.Sprintf("delete notification %s", id)

	if _, err := f.coll.Doc(id).Delete(ctx); err != nil {
		return wrapErr(op, err, classifyFirestore)
	}
	return nil
}

// Field names match the documents written by the web client.
type firestoreAction struct {
	WorkerID           string `firestore:"workerId,omitempty"`
	WorkerName         string `firestore:"workerName,omitempty"`
	WorkerCIN          string `firestore:"workerCin,omitempty"`
	RequesterGroupID   string `firestore:"requesterFermeId,omitempty"`
	RequesterGroupName string `firestore:"requesterFermeName,omitempty"`
	ActionRequired     string `firestore:"actionRequired,omitempty"`
	ActionURL          string `firestore:"actionUrl,omitempty"`
}

type firestoreNotification struct {
	Type             string           `firestore:"type"`
	Title            string           `firestore:"title"`
	Message          string           `firestore:"message"`
	RecipientID      string           `firestore:"recipientId"`
	RecipientGroupID string           `firestore:"recipientFermeId,omitempty"`
	Status           string           `firestore:"status"`
	Priority         string           `firestore:"priority"`
	CreatedAt        time.Time        `firestore:"createdAt,serverTimestamp"`
	ReadAt           *time.Time       `firestore:"readAt,omitempty"`
	AcknowledgedAt   *time.Time       `firestore:"acknowledgedAt,omitempty"`
	Action           *firestoreAction `firestore:"actionData,omitempty"`
}

func newFirestoreNotification(d model.Draft) firestoreNotification {
	doc := firestoreNotification{
		Type:             string(d.Type),
		Title:            d.Title,
		Message:          d.Message,
		RecipientID:      d.RecipientID,
		RecipientGroupID: d.RecipientGroupID,
		Status:           string(model.StatusUnread),
		Priority:         string(d.Priority),
	}
	if d.Action != nil && !d.Action.Empty() {
		a := firestoreAction(*d.Action)
		doc.Action = &a
	}
	return doc
}

func (fn firestoreNotification) toModel(id string) model.Notification {
	n := model.Notification{
		ID:               id,
		Type:             model.Type(fn.Type),
		Title:            fn.Title,
		Message:          fn.Message,
		RecipientID:      fn.RecipientID,
		RecipientGroupID: fn.RecipientGroupID,
		Status:           model.Status(fn.Status),
		Priority:         model.Priority(fn.Priority),
		CreatedAt:        fn.CreatedAt,
		ReadAt:           fn.ReadAt,
		AcknowledgedAt:   fn.AcknowledgedAt,
	}
	if fn.Action != nil {
		a := model.ActionData(*fn.Action)
		n.Action = &a
	}
	return n
}

// classifyFirestore maps gRPC status codes onto the failure classes.
func classifyFirestore(err error) Code {
	if errors.Is(err, ErrNotFound) {
		return CodeUnknown
	}
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated:
		return CodePermissionDenied
	case codes.Unavailable, codes.DeadlineExceeded:
		return CodeUnavailable
	case codes.FailedPrecondition:
		return CodeFailedPrecondition
	default:
		return CodeUnknown
	}
}
