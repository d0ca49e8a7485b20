// Package store persists resolved graph snapshots in MongoDB, so a server
// restart can serve the last known graph before the first corpus reload
// completes, and operators can diff graphs across loads.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lineamap/lineamap/pkg/graph"
)

// ErrNoSnapshot is returned when a namespace has no stored snapshots.
var ErrNoSnapshot = errors.New("no snapshot stored")

const (
	databaseName   = "lineamap"
	collectionName = "snapshots"

	// connectTimeout bounds the initial server selection.
	connectTimeout = 10 * time.Second
)

// Snapshot is one stored graph with its capture metadata.
type Snapshot struct {
	ID          string         `bson:"_id" json:"id"`
	Namespace   string         `bson:"namespace" json:"namespace"`
	CreatedAt   time.Time      `bson:"created_at" json:"created_at"`
	ScriptCount int            `bson:"script_count" json:"script_count"`
	Graph       graph.Document `bson:"graph" json:"graph"`
}

// Store is a MongoDB-backed snapshot store.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// Open connects to MongoDB at uri and prepares the snapshot collection.
func Open(ctx context.Context, uri string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return &Store{
		client:     client,
		collection: client.Database(databaseName).Collection(collectionName),
	}, nil
}

// Save stores a new snapshot of g under the namespace and returns it.
func (s *Store) Save(ctx context.Context, namespace string, g *graph.Graph, scriptCount int) (Snapshot, error) {
	snap := Snapshot{
		ID:          uuid.NewString(),
		Namespace:   namespace,
		CreatedAt:   time.Now().UTC(),
		ScriptCount: scriptCount,
		Graph:       graph.ToDocument(g),
	}
	if _, err := s.collection.InsertOne(ctx, snap); err != nil {
		return Snapshot{}, fmt.Errorf("insert snapshot: %w", err)
	}
	return snap, nil
}

// Latest returns the most recent snapshot for the namespace.
func (s *Store) Latest(ctx context.Context, namespace string) (Snapshot, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var snap Snapshot
	err := s.collection.FindOne(ctx, bson.M{"namespace": namespace}, opts).Decode(&snap)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Snapshot{}, fmt.Errorf("%w: namespace %s", ErrNoSnapshot, namespace)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("find snapshot: %w", err)
	}
	return snap, nil
}

// List returns up to limit snapshots for the namespace, newest first,
// without their graph payloads.
func (s *Store) List(ctx context.Context, namespace string, limit int64) ([]Snapshot, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit).
		SetProjection(bson.M{"graph": 0})

	cursor, err := s.collection.Find(ctx, bson.M{"namespace": namespace}, opts)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer cursor.Close(ctx)

	var snaps []Snapshot
	if err := cursor.All(ctx, &snaps); err != nil {
		return nil, fmt.Errorf("decode snapshots: %w", err)
	}
	return snaps, nil
}

// Prune deletes all but the newest keep snapshots in the namespace and
// returns how many were removed.
func (s *Store) Prune(ctx context.Context, namespace string, keep int64) (int64, error) {
	keepList, err := s.List(ctx, namespace, keep)
	if err != nil {
		return 0, err
	}
	if int64(len(keepList)) < keep {
		return 0, nil
	}

	ids := make([]string, len(keepList))
	for i, snap := range keepList {
		ids[i] = snap.ID
	}
	res, err := s.collection.DeleteMany(ctx, bson.M{
		"namespace": namespace,
		"_id":       bson.M{"$nin": ids},
	})
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return res.DeletedCount, nil
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
