package repository

import (
	"context"
	"time"

	"celeste/internal/cache"
	"celeste/internal/database"
	"celeste/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id bson.ObjectID) (*models.Post, error)
	Delete(ctx context.Context, id bson.ObjectID) error
	ListByAuthor(ctx context.Context, authorID bson.ObjectID, limit, offset int) ([]models.Post, error)
	ListAll(ctx context.Context) ([]models.Post, error)
	ListLikedBy(ctx context.Context, userID bson.ObjectID, limit, offset int) ([]models.Post, error)
	AddLike(ctx context.Context, postID, userID bson.ObjectID, now time.Time) (bool, error)
	RemoveLike(ctx context.Context, postID, userID bson.ObjectID, now time.Time) (bool, error)
	IncRepostCount(ctx context.Context, postID bson.ObjectID, delta int) error
	CountComments(ctx context.Context, postIDs []bson.ObjectID) (map[bson.ObjectID]int, error)
}

type postRepository struct {
	posts    *mongo.Collection
	comments *mongo.Collection
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db *database.DB) PostRepository {
	return &postRepository{
		posts:    db.Collection(database.ColPosts),
		comments: db.Collection(database.ColComments),
	}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer queryMetrics.TrackQuery("insertOne", database.ColPosts)()

	if post.ID.IsZero() {
		post.ID = bson.NewObjectID()
	}
	if _, err := r.posts.InsertOne(ctx, post); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id bson.ObjectID) (*models.Post, error) {
	defer queryMetrics.TrackQuery("findOne", database.ColPosts)()

	key := cache.PostKey(id.Hex())
	var post models.Post
	if cache.Get(ctx, key, &post) {
		return &post, nil
	}

	found, err := findOne[models.Post](ctx, r.posts, idFilter(id))
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, models.NewNotFoundError("Post", id.Hex())
	}
	cache.Set(ctx, key, found, cache.PostTTL)
	return found, nil
}

func (r *postRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	defer queryMetrics.TrackQuery("deleteOne", database.ColPosts)()

	res, err := r.posts.DeleteOne(ctx, idFilter(id))
	if err != nil {
		return models.NewInternalError(err)
	}
	if res.DeletedCount == 0 {
		return models.NewNotFoundError("Post", id.Hex())
	}
	cache.InvalidatePost(ctx, id.Hex())
	return nil
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID bson.ObjectID, limit, offset int) ([]models.Post, error) {
	defer queryMetrics.TrackQuery("find", database.ColPosts)()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))
	return findMany[models.Post](ctx, r.posts, bson.D{{Key: "authorId", Value: authorID}}, opts)
}

// ListAll returns every post, newest first. The feed ranks the whole
// collection per request; the cost is linear in collection size and flagged
// as the known scaling limit of this design.
func (r *postRepository) ListAll(ctx context.Context) ([]models.Post, error) {
	defer queryMetrics.TrackQuery("find", database.ColPosts)()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return findMany[models.Post](ctx, r.posts, bson.D{}, opts)
}

func (r *postRepository) ListLikedBy(ctx context.Context, userID bson.ObjectID, limit, offset int) ([]models.Post, error) {
	defer queryMetrics.TrackQuery("find", database.ColPosts)()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))
	return findMany[models.Post](ctx, r.posts, bson.D{{Key: "likes", Value: userID}}, opts)
}

// AddLike adds userID to the post's like set in a single conditional update
// and touches updatedAt. It returns false when the post exists but the user
// already liked it, so the duplicate check and the write cannot race.
func (r *postRepository) AddLike(ctx context.Context, postID, userID bson.ObjectID, now time.Time) (bool, error) {
	defer queryMetrics.TrackQuery("updateOne", database.ColPosts)()

	res, err := r.posts.UpdateOne(ctx,
		bson.D{
			{Key: "_id", Value: postID},
			{Key: "likes", Value: bson.D{{Key: "$ne", Value: userID}}},
		},
		bson.D{
			{Key: "$addToSet", Value: bson.D{{Key: "likes", Value: userID}}},
			{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: now}}},
		},
	)
	if err != nil {
		return false, models.NewInternalError(err)
	}
	if res.MatchedCount == 0 {
		// Either missing or already liked; look once to tell them apart.
		exists, err := findOne[models.Post](ctx, r.posts, idFilter(postID))
		if err != nil {
			return false, err
		}
		if exists == nil {
			return false, models.NewNotFoundError("Post", postID.Hex())
		}
		return false, nil
	}
	cache.InvalidatePost(ctx, postID.Hex())
	return true, nil
}

// RemoveLike pulls userID from the like set and touches updatedAt. The
// membership check sits in the filter, not in ModifiedCount: the updatedAt
// write would count as a modification even when no like was removed. Returns
// false when the post exists but the user had not liked it.
func (r *postRepository) RemoveLike(ctx context.Context, postID, userID bson.ObjectID, now time.Time) (bool, error) {
	defer queryMetrics.TrackQuery("updateOne", database.ColPosts)()

	res, err := r.posts.UpdateOne(ctx,
		bson.D{
			{Key: "_id", Value: postID},
			{Key: "likes", Value: userID},
		},
		bson.D{
			{Key: "$pull", Value: bson.D{{Key: "likes", Value: userID}}},
			{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: now}}},
		},
	)
	if err != nil {
		return false, models.NewInternalError(err)
	}
	if res.MatchedCount == 0 {
		// Either missing or not liked; look once to tell them apart.
		exists, err := findOne[models.Post](ctx, r.posts, idFilter(postID))
		if err != nil {
			return false, err
		}
		if exists == nil {
			return false, models.NewNotFoundError("Post", postID.Hex())
		}
		return false, nil
	}
	cache.InvalidatePost(ctx, postID.Hex())
	return true, nil
}

// IncRepostCount adjusts the denormalized repost counter. Decrements are
// filtered on repostCount > 0 so an already-drifted count can never go
// negative; a floored decrement is a no-op, not an error.
func (r *postRepository) IncRepostCount(ctx context.Context, postID bson.ObjectID, delta int) error {
	defer queryMetrics.TrackQuery("updateOne", database.ColPosts)()

	filter := bson.D{{Key: "_id", Value: postID}}
	if delta < 0 {
		filter = append(filter, bson.E{Key: "repostCount", Value: bson.D{{Key: "$gt", Value: 0}}})
	}
	res, err := r.posts.UpdateOne(ctx, filter,
		bson.D{{Key: "$inc", Value: bson.D{{Key: "repostCount", Value: delta}}}},
	)
	if err != nil {
		return models.NewInternalError(err)
	}
	if res.MatchedCount == 0 {
		if delta < 0 {
			return nil
		}
		return models.NewNotFoundError("Post", postID.Hex())
	}
	cache.InvalidatePost(ctx, postID.Hex())
	return nil
}

// CountComments groups comment counts for all given posts in one aggregation.
// Posts without comments are absent from the result map.
func (r *postRepository) CountComments(ctx context.Context, postIDs []bson.ObjectID) (map[bson.ObjectID]int, error) {
	defer queryMetrics.TrackQuery("aggregate", database.ColComments)()

	counts := make(map[bson.ObjectID]int, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "postId", Value: bson.D{{Key: "$in", Value: postIDs}}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$postId"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := r.comments.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var row struct {
			ID    bson.ObjectID `bson:"_id"`
			Count int           `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, models.NewInternalError(err)
		}
		counts[row.ID] = row.Count
	}
	if err := cursor.Err(); err != nil {
		return nil, models.NewInternalError(err)
	}
	return counts, nil
}
