// Package seed populates the database with realistic development data:
// a mesh of users following each other, a spread of backdated posts with
// likes and reposts, and comment threads underneath them.
package seed

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"celeste/internal/database"
	"celeste/internal/models"
	"celeste/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// Every seeded account shares this password.
const Password = "password123"

// Options controls how much data the seeder generates.
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
}

// Seeder writes generated data through the repository layer so seeded
// documents have the same shape as ones created by the API.
type Seeder struct {
	db       *database.DB
	users    repository.UserRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	rng      *rand.Rand
}

func NewSeeder(db *database.DB) *Seeder {
	return &Seeder{
		db:       db,
		users:    repository.NewUserRepository(db),
		posts:    repository.NewPostRepository(db),
		comments: repository.NewCommentRepository(db),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ClearAll drops the seeded collections.
func (s *Seeder) ClearAll(ctx context.Context) error {
	for _, col := range []string{database.ColUsers, database.ColPosts, database.ColComments, database.ColMails} {
		if err := s.db.Collection(col).Drop(ctx); err != nil {
			return fmt.Errorf("drop %s: %w", col, err)
		}
	}
	log.Println("cleared all collections")
	return nil
}

// Run executes the full pipeline.
func (s *Seeder) Run(ctx context.Context, opts Options) error {
	if opts.ShouldClean {
		if err := s.ClearAll(ctx); err != nil {
			return err
		}
	}

	users, err := s.SeedUsers(ctx, opts.NumUsers)
	if err != nil {
		return err
	}
	if err := s.SeedGraph(ctx, users); err != nil {
		return err
	}
	posts, err := s.SeedPosts(ctx, users, opts.NumPosts)
	if err != nil {
		return err
	}
	return s.SeedEngagement(ctx, users, posts)
}

// SeedUsers creates n accounts. The bcrypt hash is computed once and shared,
// hashing per user makes large seeds take minutes.
func (s *Seeder) SeedUsers(ctx context.Context, n int) ([]models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	users := make([]models.User, 0, n)
	for i := 0; i < n; i++ {
		u := s.factoryUser(i, string(hash))
		if err := s.users.Create(ctx, u); err != nil {
			// Collisions happen with random usernames; skip and move on.
			if models.StatusOf(err) == 409 {
				continue
			}
			return nil, fmt.Errorf("create user %q: %w", u.Username, err)
		}
		users = append(users, *u)
	}
	log.Printf("seeded %d users", len(users))
	return users, nil
}

// SeedGraph makes each user follow a handful of random others.
func (s *Seeder) SeedGraph(ctx context.Context, users []models.User) error {
	if len(users) < 2 {
		return nil
	}
	edges := 0
	for _, u := range users {
		follows := 1 + s.rng.Intn(8)
		for j := 0; j < follows; j++ {
			target := users[s.rng.Intn(len(users))]
			if target.ID == u.ID {
				continue
			}
			added, err := s.users.Follow(ctx, u.ID, target.ID)
			if err != nil {
				return fmt.Errorf("follow: %w", err)
			}
			if added {
				edges++
			}
		}
	}
	log.Printf("seeded %d follow edges", edges)
	return nil
}

// SeedPosts creates n posts spread over the past two weeks so the feed ranking
// has something to decay. Roughly one in eight is a repost of an earlier post.
func (s *Seeder) SeedPosts(ctx context.Context, users []models.User, n int) ([]models.Post, error) {
	if len(users) == 0 {
		return nil, nil
	}

	posts := make([]models.Post, 0, n)
	for i := 0; i < n; i++ {
		author := users[s.rng.Intn(len(users))]

		if len(posts) > 0 && s.rng.Intn(8) == 0 {
			original := &posts[s.rng.Intn(len(posts))]
			if !original.IsRepost {
				repost := s.factoryRepost(author.ID, original)
				if err := s.posts.Create(ctx, repost); err != nil {
					return nil, fmt.Errorf("create repost: %w", err)
				}
				if err := s.posts.IncRepostCount(ctx, original.ID, 1); err != nil {
					return nil, fmt.Errorf("bump repost count: %w", err)
				}
				original.RepostCount++
				posts = append(posts, *repost)
				continue
			}
		}

		p := s.factoryPost(author.ID)
		if err := s.posts.Create(ctx, p); err != nil {
			return nil, fmt.Errorf("create post: %w", err)
		}
		posts = append(posts, *p)
	}
	log.Printf("seeded %d posts", len(posts))
	return posts, nil
}

// SeedEngagement sprinkles likes and comment threads over the posts.
func (s *Seeder) SeedEngagement(ctx context.Context, users []models.User, posts []models.Post) error {
	if len(users) == 0 || len(posts) == 0 {
		return nil
	}

	likes, comments := 0, 0
	for _, p := range posts {
		for _, u := range pick(s.rng, users, s.rng.Intn(len(users)/2+1)) {
			added, err := s.posts.AddLike(ctx, p.ID, u.ID, time.Now().UTC())
			if err != nil {
				return fmt.Errorf("like post: %w", err)
			}
			if added {
				likes++
			}
		}

		var parent *models.Comment
		for j := 0; j < s.rng.Intn(6); j++ {
			commenter := users[s.rng.Intn(len(users))]
			c := s.factoryComment(commenter.ID, &p, parent)
			if err := s.comments.Create(ctx, c); err != nil {
				return fmt.Errorf("create comment: %w", err)
			}
			comments++
			// Half the time the next comment replies to this one, so the
			// seeded data has real threads rather than flat lists.
			if s.rng.Intn(2) == 0 {
				parent = c
			} else {
				parent = nil
			}
		}
	}
	log.Printf("seeded %d likes, %d comments", likes, comments)
	return nil
}

// pick returns up to n distinct random elements.
func pick(rng *rand.Rand, users []models.User, n int) []models.User {
	if n >= len(users) {
		n = len(users)
	}
	idx := rng.Perm(len(users))[:n]
	out := make([]models.User, n)
	for i, j := range idx {
		out[i] = users[j]
	}
	return out
}
