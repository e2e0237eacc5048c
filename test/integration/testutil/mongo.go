package testutil

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	rentalsrepo "rentmate/internal/rentals/repository"
	usersrepo "rentmate/internal/users/repository"
	"rentmate/pkg/model"
)

const (
	DefaultMongoURI     = "mongodb://localhost:27017"
	DefaultDatabaseName = "rentmate"
	ConnectionTimeout   = 10 * time.Second
)

type MongoHelper struct {
	Client   *mongo.Client
	Database *mongo.Database
	DBName   string
}

func NewMongoHelper(t *testing.T, mongoURI, dbName string) *MongoHelper {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), ConnectionTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		t.Fatalf("failed to connect to MongoDB: %v", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		t.Fatalf("failed to ping MongoDB: %v", err)
	}

	return &MongoHelper{
		Client:   client,
		Database: client.Database(dbName),
		DBName:   dbName,
	}
}

func (m *MongoHelper) Close(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.Client.Disconnect(ctx); err != nil {
		t.Logf("warning: failed to disconnect from MongoDB: %v", err)
	}
}

// CleanCollections empties the service collections. Documents are deleted
// rather than dropped so validators and indexes from migrate survive.
func (m *MongoHelper) CleanCollections(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, name := range []string{usersrepo.CollectionName, rentalsrepo.CollectionName, rentalsrepo.SlotClaimCollectionName} {
		if _, err := m.Database.Collection(name).DeleteMany(ctx, bson.M{}); err != nil {
			t.Fatalf("failed to clean collection %s: %v", name, err)
		}
	}
}

// InsertUser stores u under a fresh ObjectID and returns its hex id.
func (m *MongoHelper) InsertUser(t *testing.T, u model.User) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	u.ID = ""
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	result, err := m.Database.Collection(usersrepo.CollectionName).InsertOne(ctx, u)
	if err != nil {
		t.Fatalf("failed to insert user: %v", err)
	}
	return result.InsertedID.(primitive.ObjectID).Hex()
}

func (m *MongoHelper) FindUser(t *testing.T, id string) model.User {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		t.Fatalf("bad user id %q: %v", id, err)
	}

	var u model.User
	if err := m.Database.Collection(usersrepo.CollectionName).FindOne(ctx, bson.M{"_id": oid}).Decode(&u); err != nil {
		t.Fatalf("failed to load user %s: %v", id, err)
	}
	return u
}

// FindRental reads a rental including its codes, which the API never returns.
func (m *MongoHelper) FindRental(t *testing.T, id string) model.Rental {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		t.Fatalf("bad rental id %q: %v", id, err)
	}

	var r model.Rental
	if err := m.Database.Collection(rentalsrepo.CollectionName).FindOne(ctx, bson.M{"_id": oid}).Decode(&r); err != nil {
		t.Fatalf("failed to load rental %s: %v", id, err)
	}
	return r
}

func (m *MongoHelper) CountDocuments(t *testing.T, collectionName string) int64 {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	count, err := m.Database.Collection(collectionName).CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("failed to count documents in %s: %v", collectionName, err)
	}
	return count
}
