package repository

import (
	"context"

	"celeste/internal/database"
	"celeste/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// CommentRepository defines persistence operations for comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id bson.ObjectID) (*models.Comment, error)
	ListByPost(ctx context.Context, postID bson.ObjectID, limit, offset int) ([]models.Comment, error)
	Delete(ctx context.Context, id bson.ObjectID) error
	AddLike(ctx context.Context, commentID, userID bson.ObjectID) error
	RemoveLike(ctx context.Context, commentID, userID bson.ObjectID) error
	DeleteByPost(ctx context.Context, postID bson.ObjectID) error
}

type commentRepository struct {
	col *mongo.Collection
}

// NewCommentRepository returns a new CommentRepository implementation.
func NewCommentRepository(db *database.DB) CommentRepository {
	return &commentRepository{col: db.Collection(database.ColComments)}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	defer queryMetrics.TrackQuery("insertOne", database.ColComments)()

	if comment.ID.IsZero() {
		comment.ID = bson.NewObjectID()
	}
	if _, err := r.col.InsertOne(ctx, comment); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id bson.ObjectID) (*models.Comment, error) {
	defer queryMetrics.TrackQuery("findOne", database.ColComments)()

	found, err := findOne[models.Comment](ctx, r.col, idFilter(id))
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, models.NewNotFoundError("Comment", id.Hex())
	}
	return found, nil
}

// ListByPost returns a post's comments oldest first, the thread reading order.
func (r *commentRepository) ListByPost(ctx context.Context, postID bson.ObjectID, limit, offset int) ([]models.Comment, error) {
	defer queryMetrics.TrackQuery("find", database.ColComments)()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))
	return findMany[models.Comment](ctx, r.col, bson.D{{Key: "postId", Value: postID}}, opts)
}

func (r *commentRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	defer queryMetrics.TrackQuery("deleteOne", database.ColComments)()

	res, err := r.col.DeleteOne(ctx, idFilter(id))
	if err != nil {
		return models.NewInternalError(err)
	}
	if res.DeletedCount == 0 {
		return models.NewNotFoundError("Comment", id.Hex())
	}
	return nil
}

func (r *commentRepository) AddLike(ctx context.Context, commentID, userID bson.ObjectID) error {
	defer queryMetrics.TrackQuery("updateOne", database.ColComments)()

	res, err := r.col.UpdateOne(ctx, idFilter(commentID),
		bson.D{{Key: "$addToSet", Value: bson.D{{Key: "likes", Value: userID}}}},
	)
	if err != nil {
		return models.NewInternalError(err)
	}
	if res.MatchedCount == 0 {
		return models.NewNotFoundError("Comment", commentID.Hex())
	}
	return nil
}

func (r *commentRepository) RemoveLike(ctx context.Context, commentID, userID bson.ObjectID) error {
	defer queryMetrics.TrackQuery("updateOne", database.ColComments)()

	res, err := r.col.UpdateOne(ctx, idFilter(commentID),
		bson.D{{Key: "$pull", Value: bson.D{{Key: "likes", Value: userID}}}},
	)
	if err != nil {
		return models.NewInternalError(err)
	}
	if res.MatchedCount == 0 {
		return models.NewNotFoundError("Comment", commentID.Hex())
	}
	return nil
}

// DeleteByPost removes all comments under a post, used when the post itself
// is deleted.
func (r *commentRepository) DeleteByPost(ctx context.Context, postID bson.ObjectID) error {
	defer queryMetrics.TrackQuery("deleteMany", database.ColComments)()

	if _, err := r.col.DeleteMany(ctx, bson.D{{Key: "postId", Value: postID}}); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
