package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Media types accepted for post attachments.
const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
)

// Media is a single attachment on a post, ordered as uploaded.
type Media struct {
	Type string `bson:"type" json:"type"`
	URL  string `bson:"url" json:"url"`
}

// Post represents a post document in the posts collection.
// Likes is a set of user IDs maintained with atomic add-to-set/pull updates.
// RepostCount is incremented when a repost is created and decremented when a
// repost is deleted; it is never recomputed from the collection.
type Post struct {
	ID           bson.ObjectID   `bson:"_id,omitempty" json:"_id"`
	AuthorID     bson.ObjectID   `bson:"authorId" json:"authorId"`
	Content      string          `bson:"content" json:"content"`
	Media        []Media         `bson:"media" json:"media"`
	IsRepost     bool            `bson:"isRepost" json:"isRepost"`
	OriginalPost bson.ObjectID   `bson:"originalPost,omitempty" json:"originalPost,omitempty"`
	ReplyTo      bson.ObjectID   `bson:"replyTo,omitempty" json:"replyTo,omitempty"`
	Likes        []bson.ObjectID `bson:"likes" json:"likes"`
	RepostCount  int             `bson:"repostCount" json:"repostCount"`
	CreatedAt    time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// LikedBy reports whether the post's like set contains the given user ID.
func (p *Post) LikedBy(userID bson.ObjectID) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// Author is the denormalized author projection joined into feed and listing
// responses. A nil Author means the account was deleted; renderers must
// tolerate that.
type Author struct {
	Username string `json:"username"`
	Handle   string `json:"handle"`
	Avatar   string `json:"avatar"`
}

// PostStats carries the aggregate counters joined into feed and listing
// responses. Shares mirrors RepostCount; Views is always zero today but is
// part of the wire shape clients consume.
type PostStats struct {
	Likes    int `json:"likes"`
	Comments int `json:"comments"`
	Shares   int `json:"shares"`
	Views    int `json:"views"`
}

// RankedPost is a post annotated with author metadata and aggregate stats,
// plus the decayed popularity score used to order the home feed.
type RankedPost struct {
	Post
	Author *Author   `json:"author"`
	Stats  PostStats `json:"stats"`
	Score  float64   `json:"-"`
}
