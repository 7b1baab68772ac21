package repository

import (
	"context"
	"errors"
	"time"

	"celeste/internal/database"
	"celeste/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MailRepository defines persistence operations for verification-code records.
type MailRepository interface {
	Create(ctx context.Context, mail *models.Mail) error
	FindLatest(ctx context.Context, email, purpose string) (*models.Mail, error)
	ConsumeCode(ctx context.Context, email, purpose, code string, now time.Time) (*models.Mail, error)
	List(ctx context.Context, email string, limit, offset int) ([]models.Mail, error)
}

type mailRepository struct {
	col *mongo.Collection
}

// NewMailRepository returns a new MailRepository implementation.
func NewMailRepository(db *database.DB) MailRepository {
	return &mailRepository{col: db.Collection(database.ColMails)}
}

func (r *mailRepository) Create(ctx context.Context, mail *models.Mail) error {
	defer queryMetrics.TrackQuery("insertOne", database.ColMails)()

	if mail.ID.IsZero() {
		mail.ID = bson.NewObjectID()
	}
	if _, err := r.col.InsertOne(ctx, mail); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// FindLatest returns the most recently created record for (email, purpose)
// regardless of its used or expired state, or (nil, nil) when none exists.
func (r *mailRepository) FindLatest(ctx context.Context, email, purpose string) (*models.Mail, error) {
	defer queryMetrics.TrackQuery("findOne", database.ColMails)()

	var mail models.Mail
	err := r.col.FindOne(ctx,
		bson.D{
			{Key: "email", Value: email},
			{Key: "purpose", Value: purpose},
		},
		options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	).Decode(&mail)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &mail, nil
}

// ConsumeCode marks the newest matching unused, unexpired record as used and
// returns it. The filter and the flag flip happen in one findAndModify, so
// two concurrent attempts with the same code cannot both succeed. Returns
// (nil, nil) when nothing consumable matched.
func (r *mailRepository) ConsumeCode(ctx context.Context, email, purpose, code string, now time.Time) (*models.Mail, error) {
	defer queryMetrics.TrackQuery("findOneAndUpdate", database.ColMails)()

	var mail models.Mail
	err := r.col.FindOneAndUpdate(ctx,
		bson.D{
			{Key: "email", Value: email},
			{Key: "purpose", Value: purpose},
			{Key: "code", Value: code},
			{Key: "isUsed", Value: false},
			{Key: "expireAt", Value: bson.D{{Key: "$gt", Value: now}}},
		},
		bson.D{{Key: "$set", Value: bson.D{{Key: "isUsed", Value: true}}}},
		options.FindOneAndUpdate().
			SetSort(bson.D{{Key: "createdAt", Value: -1}}).
			SetReturnDocument(options.After),
	).Decode(&mail)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &mail, nil
}

// List pages through code records newest first. An empty email lists every
// record; otherwise the listing is scoped to that address.
func (r *mailRepository) List(ctx context.Context, email string, limit, offset int) ([]models.Mail, error) {
	defer queryMetrics.TrackQuery("find", database.ColMails)()

	filter := bson.D{}
	if email != "" {
		filter = append(filter, bson.E{Key: "email", Value: email})
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))
	return findMany[models.Mail](ctx, r.col, filter, opts)
}
