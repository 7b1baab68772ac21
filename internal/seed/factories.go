package seed

import (
	"fmt"
	"strings"
	"time"

	"celeste/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// backdated returns a random moment within the past two weeks. Feed ranking
// decays on a 72 hour half life, so this window produces a useful mix of hot
// and stale posts.
func (s *Seeder) backdated() time.Time {
	back := time.Duration(s.rng.Intn(14*24*60)) * time.Minute
	return time.Now().UTC().Add(-back)
}

func (s *Seeder) factoryUser(i int, passwordHash string) *models.User {
	username := fmt.Sprintf("%s%d", strings.ToLower(gofakeit.Username()), i)
	if len(username) > 30 {
		username = username[:30]
	}

	u := models.NewUser(username, gofakeit.Email(), passwordHash)
	u.Bio = gofakeit.Sentence(8)
	u.Avatar = fmt.Sprintf("https://picsum.photos/seed/%s/256/256", gofakeit.UUID())
	u.HeaderImage = fmt.Sprintf("https://picsum.photos/seed/%s/1200/400", gofakeit.UUID())
	created := s.backdated()
	u.CreatedAt = created
	u.UpdatedAt = created
	return u
}

func (s *Seeder) factoryPost(authorID bson.ObjectID) *models.Post {
	created := s.backdated()
	p := &models.Post{
		AuthorID:  authorID,
		Content:   gofakeit.Paragraph(1, 2, 8, " "),
		Media:     []models.Media{},
		Likes:     []bson.ObjectID{},
		CreatedAt: created,
		UpdatedAt: created,
	}
	// A third of posts carry an image attachment.
	if s.rng.Intn(3) == 0 {
		p.Media = append(p.Media, models.Media{
			Type: models.MediaTypeImage,
			URL:  fmt.Sprintf("https://picsum.photos/seed/%s/800/800", gofakeit.UUID()),
		})
	}
	return p
}

func (s *Seeder) factoryRepost(authorID bson.ObjectID, original *models.Post) *models.Post {
	// Reposts happen after the original; clamp inside the seeding window.
	created := original.CreatedAt.Add(time.Duration(1+s.rng.Intn(48)) * time.Hour)
	if now := time.Now().UTC(); created.After(now) {
		created = now
	}

	p := &models.Post{
		AuthorID:     authorID,
		IsRepost:     true,
		OriginalPost: original.ID,
		Media:        []models.Media{},
		Likes:        []bson.ObjectID{},
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	// Quote-style reposts carry their own text.
	if s.rng.Intn(2) == 0 {
		p.Content = gofakeit.Sentence(6)
	}
	return p
}

func (s *Seeder) factoryComment(authorID bson.ObjectID, post *models.Post, parent *models.Comment) *models.Comment {
	created := post.CreatedAt.Add(time.Duration(1+s.rng.Intn(72)) * time.Hour)
	if parent != nil {
		created = parent.CreatedAt.Add(time.Duration(1+s.rng.Intn(120)) * time.Minute)
	}
	if now := time.Now().UTC(); created.After(now) {
		created = now
	}

	c := &models.Comment{
		PostID:    post.ID,
		AuthorID:  authorID,
		Content:   gofakeit.Sentence(10),
		Likes:     []bson.ObjectID{},
		CreatedAt: created,
		UpdatedAt: created,
	}
	if parent != nil {
		c.ReplyTo = parent.ID
	}
	return c
}
