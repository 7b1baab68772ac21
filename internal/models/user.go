// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Status tracks account-level state for a user.
type Status struct {
	IsActive    bool      `bson:"isActive" json:"isActive"`
	IsBanned    bool      `bson:"isBanned" json:"isBanned"`
	LastLoginAt time.Time `bson:"lastLoginAt" json:"lastLoginAt"`
}

// Notifications holds per-channel notification toggles.
type Notifications struct {
	Email bool `bson:"email" json:"email"`
	Push  bool `bson:"push" json:"push"`
}

// Settings holds user-facing preferences.
type Settings struct {
	Language      string        `bson:"language" json:"language"`
	Theme         string        `bson:"theme" json:"theme"`
	Notifications Notifications `bson:"notifications" json:"notifications"`
}

// User represents a user document in the users collection.
// Following and Followers are sets of user IDs kept symmetric:
// if A follows B then B.Followers contains A.
type User struct {
	ID           bson.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Username     string          `bson:"username" json:"username"`
	Email        string          `bson:"email" json:"email"`
	PasswordHash string          `bson:"passwordHash" json:"-"`
	Status       Status          `bson:"status" json:"status"`
	Settings     Settings        `bson:"settings" json:"settings"`
	Avatar       string          `bson:"avatar" json:"avatar"`
	HeaderImage  string          `bson:"headerImage" json:"headerImage"`
	Bio          string          `bson:"bio" json:"bio"`
	Following    []bson.ObjectID `bson:"following" json:"following"`
	Followers    []bson.ObjectID `bson:"followers" json:"followers"`
	PostsCount   int             `bson:"postsCount" json:"postsCount"`
	LikesCount   int             `bson:"likesCount" json:"likesCount"`
	CreatedAt    time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// NewUser builds a user with the documented defaults: active, not banned,
// English/light UI, all notifications on.
func NewUser(username, email, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Status: Status{
			IsActive:    true,
			IsBanned:    false,
			LastLoginAt: now,
		},
		Settings: Settings{
			Language: "en",
			Theme:    "light",
			Notifications: Notifications{
				Email: true,
				Push:  true,
			},
		},
		Following: []bson.ObjectID{},
		Followers: []bson.ObjectID{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsFollowing reports whether the user's following set contains id.
func (u *User) IsFollowing(id bson.ObjectID) bool {
	for _, f := range u.Following {
		if f == id {
			return true
		}
	}
	return false
}
