package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Comment represents a comment document in the comments collection.
// Likes is a set of user IDs; comment liking is a true toggle.
type Comment struct {
	ID        bson.ObjectID   `bson:"_id,omitempty" json:"_id"`
	PostID    bson.ObjectID   `bson:"postId" json:"postId"`
	AuthorID  bson.ObjectID   `bson:"authorId" json:"authorId"`
	Content   string          `bson:"content" json:"content"`
	Likes     []bson.ObjectID `bson:"likes" json:"likes"`
	ReplyTo   bson.ObjectID   `bson:"replyTo,omitempty" json:"replyTo,omitempty"`
	CreatedAt time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// LikedBy reports whether the comment's like set contains the given user ID.
func (c *Comment) LikedBy(userID bson.ObjectID) bool {
	for _, id := range c.Likes {
		if id == userID {
			return true
		}
	}
	return false
}
