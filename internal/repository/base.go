// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"

	"celeste/internal/models"
	"celeste/internal/observability"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var queryMetrics = observability.NewMongoMetrics()

// wrapError maps driver errors to domain errors.
func wrapError(err error, resource string, id interface{}) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.NewNotFoundError(resource, id)
	}
	if mongo.IsDuplicateKeyError(err) {
		return models.NewAlreadyExistsError(resource + " already exists")
	}
	return models.NewInternalError(err)
}

// findOne decodes a single document into T. A missing document returns
// (nil, nil) so callers decide whether absence is an error.
func findOne[T any](ctx context.Context, col *mongo.Collection, filter bson.D) (*T, error) {
	var result T
	err := col.FindOne(ctx, filter).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &result, nil
}

// findMany decodes all matching documents into a slice of T.
func findMany[T any](ctx context.Context, col *mongo.Collection, filter bson.D, opts ...options.Lister[options.FindOptions]) ([]T, error) {
	cursor, err := col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	defer cursor.Close(ctx)

	var results []T
	for cursor.Next(ctx) {
		var item T
		if err := cursor.Decode(&item); err != nil {
			return nil, models.NewInternalError(err)
		}
		results = append(results, item)
	}
	if err := cursor.Err(); err != nil {
		return nil, models.NewInternalError(err)
	}
	if results == nil {
		results = []T{}
	}
	return results, nil
}

func idFilter(id bson.ObjectID) bson.D {
	return bson.D{{Key: "_id", Value: id}}
}
