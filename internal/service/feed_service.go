package service

import (
	"context"
	"math"
	"sort"
	"time"

	"celeste/internal/middleware"
	"celeste/internal/models"
	"celeste/internal/observability"
	"celeste/internal/repository"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// decayHours is the exponential decay time constant, in hours. A post's heat
// falls to 1/e of its raw value 72 hours after creation.
const decayHours = 72.0

type FeedService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
	now      func() time.Time
}

type FeedInput struct {
	Limit  int
	Offset int
}

func NewFeedService(postRepo repository.PostRepository, userRepo repository.UserRepository) *FeedService {
	return &FeedService{
		postRepo: postRepo,
		userRepo: userRepo,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// HeatScore is the raw popularity of a post before time decay.
func HeatScore(likes, reposts int) float64 {
	return float64(likes) + 2*float64(reposts)
}

// Score applies exponential time decay to a heat score. Elapsed time is a
// plain UTC duration; negative ages (clock skew) are clamped to zero so a
// post from the near future is not boosted above its heat.
func Score(heat float64, age time.Duration) float64 {
	hours := age.Hours()
	if hours < 0 {
		hours = 0
	}
	return heat * math.Exp(-hours/decayHours)
}

// BuildFeed ranks every post by decayed heat and joins author metadata and
// comment counts into the requested page.
func (s *FeedService) BuildFeed(ctx context.Context, in FeedInput) ([]models.RankedPost, error) {
	defer func(start time.Time) {
		observability.FeedBuildLatency.Observe(time.Since(start).Seconds())
	}(time.Now())

	if in.Limit <= 0 {
		in.Limit = 20
	}
	if in.Limit > 100 {
		in.Limit = 100
	}
	if in.Offset < 0 {
		in.Offset = 0
	}

	posts, err := s.postRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	ranked := make([]models.RankedPost, 0, len(posts))
	for _, p := range posts {
		if p.CreatedAt.IsZero() {
			middleware.Logger.WarnContext(ctx, "skipping post with malformed timestamp",
				"post_id", p.ID.Hex())
			continue
		}
		heat := HeatScore(len(p.Likes), p.RepostCount)
		ranked = append(ranked, models.RankedPost{
			Post:  p,
			Score: Score(heat, now.Sub(p.CreatedAt)),
		})
	}

	// Ties break by recency, then by ID so equal-score output is stable.
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if !ranked[i].CreatedAt.Equal(ranked[j].CreatedAt) {
			return ranked[i].CreatedAt.After(ranked[j].CreatedAt)
		}
		return ranked[i].ID.Hex() > ranked[j].ID.Hex()
	})

	// Page before joining so author and comment lookups cover only the page.
	if in.Offset >= len(ranked) {
		return []models.RankedPost{}, nil
	}
	end := in.Offset + in.Limit
	if end > len(ranked) {
		end = len(ranked)
	}
	page := ranked[in.Offset:end]

	if err := s.join(ctx, page); err != nil {
		return nil, err
	}
	return page, nil
}

// Annotate joins author metadata and comment counts into an arbitrary list of
// posts, preserving input order. Used by the profile and liked-post listings
// so they return the same shape as the feed.
func (s *FeedService) Annotate(ctx context.Context, posts []models.Post) ([]models.RankedPost, error) {
	out := make([]models.RankedPost, len(posts))
	for i, p := range posts {
		out[i] = models.RankedPost{Post: p}
	}
	if err := s.join(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// join resolves authors with one bulk lookup and comment counts with one
// grouped aggregation, never per-post queries.
func (s *FeedService) join(ctx context.Context, page []models.RankedPost) error {
	if len(page) == 0 {
		return nil
	}

	authorSet := make(map[bson.ObjectID]struct{}, len(page))
	postIDs := make([]bson.ObjectID, len(page))
	for i, rp := range page {
		authorSet[rp.AuthorID] = struct{}{}
		postIDs[i] = rp.ID
	}
	authorIDs := make([]bson.ObjectID, 0, len(authorSet))
	for id := range authorSet {
		authorIDs = append(authorIDs, id)
	}

	authors, err := s.userRepo.GetManyByIDs(ctx, authorIDs)
	if err != nil {
		return err
	}
	authorByID := make(map[bson.ObjectID]*models.Author, len(authors))
	for i := range authors {
		u := authors[i]
		authorByID[u.ID] = &models.Author{
			Username: u.Username,
			Handle:   "@" + u.Username,
			Avatar:   u.Avatar,
		}
	}

	counts, err := s.postRepo.CountComments(ctx, postIDs)
	if err != nil {
		return err
	}

	for i := range page {
		// Deleted authors stay nil; clients render a placeholder.
		page[i].Author = authorByID[page[i].AuthorID]
		page[i].Stats = models.PostStats{
			Likes:    len(page[i].Likes),
			Comments: counts[page[i].ID],
			Shares:   page[i].RepostCount,
		}
	}
	return nil
}
