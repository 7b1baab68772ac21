package repository

import (
	"context"
	"time"

	"celeste/internal/cache"
	"celeste/internal/database"
	"celeste/internal/middleware"
	"celeste/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id bson.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetManyByIDs(ctx context.Context, ids []bson.ObjectID) ([]models.User, error)
	ListAll(ctx context.Context, limit, offset int) ([]models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateFields(ctx context.Context, id bson.ObjectID, fields bson.D) error
	Follow(ctx context.Context, followerID, followeeID bson.ObjectID) (bool, error)
	Unfollow(ctx context.Context, followerID, followeeID bson.ObjectID) (bool, error)
	SetLastLogin(ctx context.Context, id bson.ObjectID, at time.Time) error
}

type userRepository struct {
	col *mongo.Collection
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *database.DB) UserRepository {
	return &userRepository{col: db.Collection(database.ColUsers)}
}

func (r *userRepository) GetByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	defer queryMetrics.TrackQuery("findOne", database.ColUsers)()

	key := cache.UserKey(id.Hex())
	var user models.User
	if cache.Get(ctx, key, &user) {
		return &user, nil
	}

	found, err := findOne[models.User](ctx, r.col, idFilter(id))
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, models.NewNotFoundError("User", id.Hex())
	}
	cache.Set(ctx, key, found, cache.UserTTL)
	return found, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	defer queryMetrics.TrackQuery("findOne", database.ColUsers)()
	return findOne[models.User](ctx, r.col, bson.D{{Key: "email", Value: email}})
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	defer queryMetrics.TrackQuery("findOne", database.ColUsers)()
	return findOne[models.User](ctx, r.col, bson.D{{Key: "username", Value: username}})
}

func (r *userRepository) GetManyByIDs(ctx context.Context, ids []bson.ObjectID) ([]models.User, error) {
	defer queryMetrics.TrackQuery("find", database.ColUsers)()
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	return findMany[models.User](ctx, r.col, bson.D{
		{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}},
	})
}

// ListAll pages through users, newest first. Documents that fail to decode
// are skipped rather than failing the whole listing, so one corrupt record
// cannot take the directory down.
func (r *userRepository) ListAll(ctx context.Context, limit, offset int) ([]models.User, error) {
	defer queryMetrics.TrackQuery("find", database.ColUsers)()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))
	cur, err := r.col.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	defer cur.Close(ctx)

	users := []models.User{}
	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			middleware.Logger.WarnContext(ctx, "skipping undecodable user document", "error", err)
			continue
		}
		users = append(users, u)
	}
	if err := cur.Err(); err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	defer queryMetrics.TrackQuery("insertOne", database.ColUsers)()

	if user.ID.IsZero() {
		user.ID = bson.NewObjectID()
	}
	if _, err := r.col.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.NewAlreadyExistsError("username or email already taken")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) UpdateFields(ctx context.Context, id bson.ObjectID, fields bson.D) error {
	defer queryMetrics.TrackQuery("updateOne", database.ColUsers)()

	res, err := r.col.UpdateOne(ctx, idFilter(id), bson.D{{Key: "$set", Value: fields}})
	if err != nil {
		return wrapError(err, "User", id.Hex())
	}
	if res.MatchedCount == 0 {
		return models.NewNotFoundError("User", id.Hex())
	}
	cache.InvalidateUser(ctx, id.Hex())
	return nil
}

// Follow adds followeeID to the follower's following set and followerID to
// the followee's followers set. The first update is conditional on the edge
// not existing yet, so concurrent follows cannot both claim to have created
// it; it returns false when the edge was already present. The two updates are
// not transactional, a crash between them can leave a one-sided edge until
// the next follow or unfollow repairs it.
func (r *userRepository) Follow(ctx context.Context, followerID, followeeID bson.ObjectID) (bool, error) {
	defer queryMetrics.TrackQuery("updateOne", database.ColUsers)()

	res, err := r.col.UpdateOne(ctx,
		bson.D{
			{Key: "_id", Value: followerID},
			{Key: "following", Value: bson.D{{Key: "$ne", Value: followeeID}}},
		},
		bson.D{{Key: "$addToSet", Value: bson.D{{Key: "following", Value: followeeID}}}},
	)
	if err != nil {
		return false, wrapError(err, "User", followerID.Hex())
	}
	if res.MatchedCount == 0 {
		exists, err := findOne[models.User](ctx, r.col, idFilter(followerID))
		if err != nil {
			return false, err
		}
		if exists == nil {
			return false, models.NewNotFoundError("User", followerID.Hex())
		}
		return false, nil
	}

	res, err = r.col.UpdateOne(ctx, idFilter(followeeID), bson.D{
		{Key: "$addToSet", Value: bson.D{{Key: "followers", Value: followerID}}},
	})
	if err != nil {
		return false, wrapError(err, "User", followeeID.Hex())
	}
	if res.MatchedCount == 0 {
		return false, models.NewNotFoundError("User", followeeID.Hex())
	}

	cache.InvalidateUser(ctx, followerID.Hex())
	cache.InvalidateUser(ctx, followeeID.Hex())
	return true, nil
}

// Unfollow removes both edges with $pull. Returns false when the follower
// exists but was not following the target.
func (r *userRepository) Unfollow(ctx context.Context, followerID, followeeID bson.ObjectID) (bool, error) {
	defer queryMetrics.TrackQuery("updateOne", database.ColUsers)()

	res, err := r.col.UpdateOne(ctx, idFilter(followerID), bson.D{
		{Key: "$pull", Value: bson.D{{Key: "following", Value: followeeID}}},
	})
	if err != nil {
		return false, wrapError(err, "User", followerID.Hex())
	}
	if res.MatchedCount == 0 {
		return false, models.NewNotFoundError("User", followerID.Hex())
	}
	if res.ModifiedCount == 0 {
		return false, nil
	}

	res, err = r.col.UpdateOne(ctx, idFilter(followeeID), bson.D{
		{Key: "$pull", Value: bson.D{{Key: "followers", Value: followerID}}},
	})
	if err != nil {
		return false, wrapError(err, "User", followeeID.Hex())
	}
	if res.MatchedCount == 0 {
		return false, models.NewNotFoundError("User", followeeID.Hex())
	}

	cache.InvalidateUser(ctx, followerID.Hex())
	cache.InvalidateUser(ctx, followeeID.Hex())
	return true, nil
}

func (r *userRepository) SetLastLogin(ctx context.Context, id bson.ObjectID, at time.Time) error {
	return r.UpdateFields(ctx, id, bson.D{
		{Key: "status.lastLoginAt", Value: at},
		{Key: "updatedAt", Value: at},
	})
}
