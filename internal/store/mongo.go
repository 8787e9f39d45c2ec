package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperengineering/tinyleap/internal/types"
	"github.com/oklog/ulid/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

// Collection names
const (
	CollectionWorkshops = "workshops"
	CollectionSettings  = "settings"
)

const defaultMongoDatabase = "tinyleap"

var _ Store = (*MongoStore)(nil)

// MongoStore is the MongoDB-backed workshop database. Each workshop is one
// document keyed by its ID.
type MongoStore struct {
	client   *mongo.Client
	database *mongo.Database
}

// NewMongoStore connects to uri, verifies the connection and creates indexes.
// The database name comes from the URI path, defaulting to "tinyleap".
func NewMongoStore(ctx context.Context, uri string) (*MongoStore, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, fmt.Errorf("parse mongo uri: %w", err)
	}
	dbName := cs.Database
	if dbName == "" {
		dbName = defaultMongoDatabase
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(20).
		SetMaxConnIdleTime(30 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	s := &MongoStore{client: client, database: client.Database(dbName)}
	if err := s.initialize(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) initialize(ctx context.Context) error {
	_, err := s.workshops().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "updatedAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create workshops indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) workshops() *mongo.Collection {
	return s.database.Collection(CollectionWorkshops)
}

func (s *MongoStore) settings() *mongo.Collection {
	return s.database.Collection(CollectionSettings)
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// List returns workshop summaries, most recently updated first.
func (s *MongoStore) List(ctx context.Context) ([]types.WorkshopSummary, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updatedAt", Value: -1}}).
		SetProjection(bson.M{"vision": 1, "createdAt": 1, "updatedAt": 1})

	cursor, err := s.workshops().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find workshops: %w", err)
	}
	defer cursor.Close(ctx)

	list := []types.WorkshopSummary{}
	if err := cursor.All(ctx, &list); err != nil {
		return nil, fmt.Errorf("decode workshops: %w", err)
	}
	return list, nil
}

// Get retrieves a workshop by ID.
func (s *MongoStore) Get(ctx context.Context, id string) (*types.Workshop, error) {
	var w types.Workshop
	if err := s.workshops().FindOne(ctx, bson.M{"_id": id}).Decode(&w); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find workshop: %w", err)
	}
	if w.Behaviors == nil {
		w.Behaviors = []types.Behavior{}
	}
	return &w, nil
}

// Create stores a new workshop with no behaviors.
func (s *MongoStore) Create(ctx context.Context, vision string) (*types.Workshop, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	w := &types.Workshop{
		ID:        ulid.Make().String(),
		Vision:    vision,
		Behaviors: []types.Behavior{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.workshops().InsertOne(ctx, w); err != nil {
		return nil, fmt.Errorf("insert workshop: %w", err)
	}
	return w, nil
}

// Delete removes a workshop. Deleting a missing workshop is not an error.
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	if _, err := s.workshops().DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete workshop: %w", err)
	}
	return nil
}

// Save replaces the content of an existing workshop and bumps updatedAt.
func (s *MongoStore) Save(ctx context.Context, w *types.Workshop) (*types.Workshop, error) {
	behaviors := w.Behaviors
	if behaviors == nil {
		behaviors = []types.Behavior{}
	}
	set := bson.M{
		"vision":    w.Vision,
		"behaviors": behaviors,
		"updatedAt": time.Now().UTC().Truncate(time.Millisecond),
	}
	update := bson.M{"$set": set}
	if w.SOPData != nil {
		set["sopData"] = w.SOPData
	} else {
		update["$unset"] = bson.M{"sopData": ""}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var saved types.Workshop
	err := s.workshops().FindOneAndUpdate(ctx, bson.M{"_id": w.ID}, update, opts).Decode(&saved)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update workshop: %w", err)
	}
	return &saved, nil
}

type setting struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// PasswordHash returns the stored password hash.
func (s *MongoStore) PasswordHash(ctx context.Context) (string, error) {
	var doc setting
	if err := s.settings().FindOne(ctx, bson.M{"_id": settingPasswordHash}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("find password: %w", err)
	}
	return doc.Value, nil
}

// SetPasswordHash stores or replaces the password hash.
func (s *MongoStore) SetPasswordHash(ctx context.Context, hash string) error {
	doc := setting{Key: settingPasswordHash, Value: hash, UpdatedAt: time.Now().UTC()}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.settings().ReplaceOne(ctx, bson.M{"_id": settingPasswordHash}, doc, opts); err != nil {
		return fmt.Errorf("store password: %w", err)
	}
	return nil
}
