// Package mongodb holds the MongoDB connection and the translation of
// listing queries into driver filters and options.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection names.
const (
	Users    = "users-collection"
	Products = "product-collection"
	Orders   = "order-collection"
	Counters = "counters"
)

// Connection owns the client and the application database handle.
type Connection struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewConnection connects, pings and ensures indexes. The caller owns the
// returned connection and must Close it.
func NewConnection(ctx context.Context, uri, database string) (*Connection, error) {
	// Nested documents decode as maps so free-form profile fields render as
	// JSON objects.
	opts := options.Client().
		ApplyURI(uri).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	conn := &Connection{client: client, db: client.Database(database)}
	if err := conn.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to reach mongo: %w", err)
	}
	if err := conn.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return conn, nil
}

// Collection returns a handle on the named collection.
func (c *Connection) Collection(name string) *mongo.Collection {
	return c.db.Collection(name)
}

func (c *Connection) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, nil)
}

func (c *Connection) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return c.client.Disconnect(ctx)
}

// EnsureIndexes creates the unique uid index and the text indexes that
// back search on every listed collection. It is idempotent.
func (c *Connection) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		Users: {
			{Keys: bson.D{{Key: "uid", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{
				{Key: "uid", Value: "text"},
				{Key: "profile.name", Value: "text"},
				{Key: "profile.displayName", Value: "text"},
				{Key: "profile.email", Value: "text"},
			}},
		},
		Products: {
			{Keys: bson.D{{Key: "category", Value: 1}}},
			{Keys: bson.D{
				{Key: "name", Value: "text"},
				{Key: "description", Value: "text"},
				{Key: "category", Value: "text"},
			}},
		},
		Orders: {
			{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "_id", Value: -1}}},
			{Keys: bson.D{
				{Key: "owner", Value: "text"},
				{Key: "status", Value: "text"},
				{Key: "items.name", Value: "text"},
			}},
		},
	}
	for coll, models := range indexes {
		if _, err := c.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll, err)
		}
	}
	return nil
}
