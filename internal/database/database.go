// Package database handles the MongoDB connection and index management.
package database

import (
	"context"
	"fmt"
	"time"

	"celeste/internal/config"
	"celeste/internal/middleware"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection name constants
const (
	ColUsers    = "users"
	ColPosts    = "posts"
	ColComments = "comments"
	ColMails    = "mails"
)

// DB wraps the Mongo client and the application database handle.
type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect establishes the MongoDB connection, verifies it with a ping and
// creates the collection indexes.
func Connect(cfg *config.Config) (*DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("database: connect failed: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("database: ping failed: %w", err)
	}

	d := &DB{client: client, db: client.Database(cfg.MongoDB)}

	if err := d.ensureIndexes(ctx); err != nil {
		middleware.Logger.Warn("ensure indexes failed", "error", err)
	}

	middleware.Logger.Info("MongoDB connected", "database", cfg.MongoDB)
	return d, nil
}

// Close disconnects the underlying client.
func (d *DB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return d.client.Disconnect(ctx)
}

// Collection returns a handle to the named collection.
func (d *DB) Collection(name string) *mongo.Collection {
	return d.db.Collection(name)
}

// Ping verifies the connection is still alive, used by health checks.
func (d *DB) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, nil)
}

// ensureIndexes creates all collection indexes. Username and email are unique
// so duplicate registrations surface as duplicate key errors rather than racy
// read-then-insert checks.
func (d *DB) ensureIndexes(ctx context.Context) error {
	type idx struct {
		col    string
		keys   bson.D
		unique bool
	}

	indexes := []idx{
		// users
		{ColUsers, bson.D{{Key: "username", Value: 1}}, true},
		{ColUsers, bson.D{{Key: "email", Value: 1}}, true},

		// posts
		{ColPosts, bson.D{{Key: "authorId", Value: 1}, {Key: "createdAt", Value: -1}}, false},
		{ColPosts, bson.D{{Key: "createdAt", Value: -1}}, false},
		{ColPosts, bson.D{{Key: "originalPost", Value: 1}}, false},

		// comments
		{ColComments, bson.D{{Key: "postId", Value: 1}, {Key: "createdAt", Value: 1}}, false},

		// mails
		{ColMails, bson.D{{Key: "email", Value: 1}, {Key: "purpose", Value: 1}, {Key: "createdAt", Value: -1}}, false},
	}

	for _, i := range indexes {
		model := mongo.IndexModel{Keys: i.keys}
		if i.unique {
			model.Options = options.Index().SetUnique(true)
		}
		if _, err := d.Collection(i.col).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("create index on %s: %w", i.col, err)
		}
	}

	return nil
}
