package db

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Sachin-Buluswar/DebateAI-sub002/models"
)

// extractDBName parses the database name from the URI, defaulting to "debate"
func extractDBName(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "debate"
	}
	if u.Path != "" && u.Path != "/" {
		return u.Path[1:] // Trim leading '/'
	}
	return "debate"
}

// ConnectMongoDB establishes a connection to MongoDB using the provided URI
func ConnectMongoDB(ctx context.Context, uri string) (*mongo.Database, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Verify connection with a ping
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(extractDBName(uri)), nil
}

// MongoSnapshotStore persists debate snapshots keyed by session id.
// Best effort: a failed save is reported to the caller, nothing more.
type MongoSnapshotStore struct {
	coll *mongo.Collection
}

func NewMongoSnapshotStore(database *mongo.Database) *MongoSnapshotStore {
	return &MongoSnapshotStore{coll: database.Collection("debate_snapshots")}
}

// Save upserts the snapshot for its session id.
func (s *MongoSnapshotStore) Save(ctx context.Context, snapshot *models.DebateSnapshot) error {
	filter := bson.M{"sessionId": snapshot.SessionID}
	update := bson.M{"$set": snapshot}
	_, err := s.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save snapshot for session %s: %w", snapshot.SessionID, err)
	}
	return nil
}

// Load fetches the snapshot for a session id.
func (s *MongoSnapshotStore) Load(ctx context.Context, sessionID string) (*models.DebateSnapshot, error) {
	var snapshot models.DebateSnapshot
	err := s.coll.FindOne(ctx, bson.M{"sessionId": sessionID}).Decode(&snapshot)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("no snapshot found for session %s", sessionID)
		}
		return nil, fmt.Errorf("failed to load snapshot for session %s: %w", sessionID, err)
	}
	return &snapshot, nil
}
