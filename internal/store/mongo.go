package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/nhle/notifier/internal/model"
)

// Server error codes the classifier cares about.
const (
	mongoUnauthorized         = 13
	mongoAuthenticationFailed = 18
	mongoIndexNotFound        = 27
	mongoNoQueryPlans         = 291
	mongoChangeStreamNeedsRS  = 40573
)

// MongoStore implements Store on a MongoDB collection. Live queries re-run
// on every change-stream event and on a resync interval; deployments
// without change streams fall back to the interval alone.
type MongoStore struct {
	client   *mongo.Client
	coll     *mongo.Collection
	interval time.Duration
}

// NewMongoStore connects to uri, checks the primary answers and ensures the
// recipient index exists.
func NewMongoStore(
	ctx context.Context,
	uri, database, collection string,
	interval time.Duration,
) (*MongoStore, error) {
	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(20).
		SetMinPoolSize(1).
		SetMaxConnIdleTime(30 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	m := &MongoStore{
		client:   client,
		coll:     client.Database(database).Collection(collection),
		interval: interval,
	}

	if err := m.createIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	log.Printf("[INFO] connected to mongodb database %s", database)
	return m, nil
}

// createIndexes backs the recipient filter of the live query.
func (m *MongoStore) createIndexes(ctx context.Context) error {
	_, err := m.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "recipient_id", Value: 1}}},
		{Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "status", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("creating notification indexes: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnecting from mongodb: %w", err)
	}
	return nil
}

// Watch delivers snapshots of recipientID's notifications.
func (m *MongoStore) Watch(ctx context.Context, recipientID string) <-chan Snapshot {
	out := make(chan Snapshot)

	w := pollWatcher{
		op: "watch notifications",
		query: func(ctx context.Context) ([]model.Notification, error) {
			return m.listFor(ctx, recipientID)
		},
		interval: m.interval,
		wake:     m.changes(ctx, recipientID),
		classify: classifyMongo,
	}
	go w.run(ctx, out)

	return out
}

// changeStreamPipeline matches writes to recipientID's documents. Delete
// events carry no document, so every delete passes and the re-query
// decides whether anything changed.
func changeStreamPipeline(recipientID string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "$or", Value: bson.A{
				bson.D{{Key: "operationType", Value: "delete"}},
				bson.D{
					{Key: "operationType", Value: bson.D{
						{Key: "$in", Value: bson.A{"insert", "update", "replace"}},
					}},
					{Key: "fullDocument.recipient_id", Value: recipientID},
				},
			}},
		}}},
	}
}

// changes opens a change stream on recipientID's documents and signals on
// every event. It returns nil when change streams are unavailable.
func (m *MongoStore) changes(ctx context.Context, recipientID string) <-chan struct{} {
	pipeline := changeStreamPipeline(recipientID)
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	cs, err := m.coll.Watch(ctx, pipeline, opts)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("[WARN] change stream for %s unavailable (%s), polling every %s: %v",
				recipientID, classifyMongo(err), m.interval, err)
		}
		return nil
	}

	wake := make(chan struct{}, 1)
	go func() {
		defer cs.Close(context.Background())
		for cs.Next(ctx) {
			signal(wake)
		}
		if err := cs.Err(); err != nil && ctx.Err() == nil {
			log.Printf("[WARN] change stream for %s ended (%s): %v", recipientID, classifyMongo(err), err)
		}
	}()
	return wake
}

// Transition moves a notification forward, stamping the server time.
func (m *MongoStore) Transition(ctx context.Context, id string, to model.Status) error {
	op := fmt.Sprintf("mark notification %s %s", id, to)

	field, ok := timestampColumns[to]
	if !ok {
		return fmt.Errorf("%s: status cannot be set directly", op)
	}

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return wrapErr(op, ErrNotFound, classifyMongo)
	}

	res, err := m.coll.UpdateOne(ctx,
		bson.M{
			"_id":    oid,
			"status": bson.M{"$in": statusStrings(to.Predecessors())},
		},
		bson.M{
			"$set":         bson.M{"status": string(to)},
			"$currentDate": bson.M{field: true},
		},
	)
	if err != nil {
		return wrapErr(op, err, classifyMongo)
	}

	if res.MatchedCount == 0 {
		count, err := m.coll.CountDocuments(ctx, bson.M{"_id": oid})
		if err != nil {
			return wrapErr(op, err, classifyMongo)
		}
		if count == 0 {
			return wrapErr(op, ErrNotFound, classifyMongo)
		}
	}
	return nil
}

// Add upserts a fresh document so that created_at comes from the server
// clock via $currentDate.
func (m *MongoStore) Add(ctx context.Context, d model.Draft) (string, error) {
	const op = "add notification"

	oid := primitive.NewObjectID()
	doc := newMongoNotification(d)

	_, err := m.coll.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{
			"$setOnInsert": doc,
			"$currentDate": bson.M{"created_at": true},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return "", wrapErr(op, err, classifyMongo)
	}
	return oid.Hex(), nil
}

// Delete removes a notification. Deleting a missing notification succeeds.
func (m *MongoStore) Delete(ctx context.Context, id string) error {
	op := fmt.Sprintf("delete notification %s", id)

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	if _, err := m.coll.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return wrapErr(op, err, classifyMongo)
	}
	return nil
}

func (m *MongoStore) listFor(ctx context.Context, recipientID string) ([]model.Notification, error) {
	cursor, err := m.coll.Find(ctx, bson.M{"recipient_id": recipientID})
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}

	var docs []mongoNotification
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding notifications: %w", err)
	}

	out := make([]model.Notification, len(docs))
	for i, doc := range docs {
		out[i] = doc.toModel()
	}
	return out, nil
}

type mongoAction struct {
	WorkerID           string `bson:"worker_id,omitempty"`
	WorkerName         string `bson:"worker_name,omitempty"`
	WorkerCIN          string `bson:"worker_cin,omitempty"`
	RequesterGroupID   string `bson:"requester_group_id,omitempty"`
	RequesterGroupName string `bson:"requester_group_name,omitempty"`
	ActionRequired     string `bson:"action_required,omitempty"`
	ActionURL          string `bson:"action_url,omitempty"`
}

type mongoNotification struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	Type             string             `bson:"type"`
	Title            string             `bson:"title"`
	Message          string             `bson:"message"`
	RecipientID      string             `bson:"recipient_id"`
	RecipientGroupID string             `bson:"recipient_group_id,omitempty"`
	Status           string             `bson:"status"`
	Priority         string             `bson:"priority"`
	CreatedAt        *time.Time         `bson:"created_at,omitempty"`
	ReadAt           *time.Time         `bson:"read_at,omitempty"`
	AcknowledgedAt   *time.Time         `bson:"acknowledged_at,omitempty"`
	Action           *mongoAction       `bson:"action_data,omitempty"`
}

func newMongoNotification(d model.Draft) mongoNotification {
	doc := mongoNotification{
		Type:             string(d.Type),
		Title:            d.Title,
		Message:          d.Message,
		RecipientID:      d.RecipientID,
		RecipientGroupID: d.RecipientGroupID,
		Status:           string(model.StatusUnread),
		Priority:         string(d.Priority),
	}
	if d.Action != nil && !d.Action.Empty() {
		a := mongoAction(*d.Action)
		doc.Action = &a
	}
	return doc
}

func (doc mongoNotification) toModel() model.Notification {
	n := model.Notification{
		ID:               doc.ID.Hex(),
		Type:             model.Type(doc.Type),
		Title:            doc.Title,
		Message:          doc.Message,
		RecipientID:      doc.RecipientID,
		RecipientGroupID: doc.RecipientGroupID,
		Status:           model.Status(doc.Status),
		Priority:         model.Priority(doc.Priority),
		ReadAt:           doc.ReadAt,
		AcknowledgedAt:   doc.AcknowledgedAt,
	}
	if doc.CreatedAt != nil {
		n.CreatedAt = *doc.CreatedAt
	}
	if doc.Action != nil {
		a := model.ActionData(*doc.Action)
		n.Action = &a
	}
	return n
}

// classifyMongo maps driver and server errors onto the failure classes.
func classifyMongo(err error) Code {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, mongo.ErrClientDisconnected) {
		return CodeUnavailable
	}

	var se mongo.ServerError
	if errors.As(err, &se) {
		switch {
		case se.HasErrorCode(mongoUnauthorized), se.HasErrorCode(mongoAuthenticationFailed):
			return CodePermissionDenied
		case se.HasErrorCode(mongoChangeStreamNeedsRS),
			se.HasErrorCode(mongoIndexNotFound),
			se.HasErrorCode(mongoNoQueryPlans):
			return CodeFailedPrecondition
		}
	}
	return CodeUnknown
}
