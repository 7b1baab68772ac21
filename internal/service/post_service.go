package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"celeste/internal/models"
	"celeste/internal/repository"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type PostService struct {
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	now         func() time.Time
}

type CreatePostInput struct {
	AuthorID bson.ObjectID
	Content  string
	Media    []models.Media
}

type RepostInput struct {
	UserID  bson.ObjectID
	PostID  bson.ObjectID
	Content string
}

func NewPostService(postRepo repository.PostRepository, commentRepo repository.CommentRepository) *PostService {
	return &PostService{
		postRepo:    postRepo,
		commentRepo: commentRepo,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	const maxContentLen = 5000
	const maxMedia = 4

	content := strings.TrimSpace(in.Content)
	if content == "" && len(in.Media) == 0 {
		return nil, models.NewValidationError("Post needs content or media")
	}
	if len(content) > maxContentLen {
		return nil, models.NewValidationError("Content too long (max 5000 characters)")
	}
	if len(in.Media) > maxMedia {
		return nil, models.NewValidationError("A post can carry at most 4 attachments")
	}
	for _, m := range in.Media {
		if m.Type != models.MediaTypeImage && m.Type != models.MediaTypeVideo {
			return nil, models.NewValidationError("Media type must be image or video")
		}
		if m.URL == "" {
			return nil, models.NewValidationError("Media URL is required")
		}
	}

	now := s.now()
	post := &models.Post{
		AuthorID:  in.AuthorID,
		Content:   content,
		Media:     in.Media,
		Likes:     []bson.ObjectID{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if post.Media == nil {
		post.Media = []models.Media{}
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) GetPost(ctx context.Context, id bson.ObjectID) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

// DeletePost removes a post and its comments. Deleting a repost also gives
// back the repost count it contributed to the original.
func (s *PostService) DeletePost(ctx context.Context, userID, postID bson.ObjectID) error {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != userID {
		return models.NewUnauthorizedError("You can only delete your own posts")
	}

	if err := s.postRepo.Delete(ctx, postID); err != nil {
		return err
	}
	if post.IsRepost && !post.OriginalPost.IsZero() {
		// The original may already be gone; that is not a failure of this
		// delete.
		if err := s.postRepo.IncRepostCount(ctx, post.OriginalPost, -1); err != nil {
			var appErr *models.AppError
			if !errors.As(err, &appErr) || appErr.Code != "NOT_FOUND" {
				return err
			}
		}
	}
	return s.commentRepo.DeleteByPost(ctx, postID)
}

// LikePost adds the user to the post's like set. Liking a post twice is a
// conflict, not a toggle.
func (s *PostService) LikePost(ctx context.Context, userID, postID bson.ObjectID) (*models.Post, error) {
	added, err := s.postRepo.AddLike(ctx, postID, userID, s.now())
	if err != nil {
		return nil, err
	}
	if !added {
		return nil, models.NewConflictError("Post already liked")
	}
	return s.postRepo.GetByID(ctx, postID)
}

// UnlikePost removes the user from the like set. Unliking a post that was
// never liked is a conflict.
func (s *PostService) UnlikePost(ctx context.Context, userID, postID bson.ObjectID) (*models.Post, error) {
	removed, err := s.postRepo.RemoveLike(ctx, postID, userID, s.now())
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, models.NewConflictError("Post not liked")
	}
	return s.postRepo.GetByID(ctx, postID)
}

// Repost creates a repost document referencing the original and bumps the
// original's repost count. Reposting a repost references the repost itself,
// matching how the documents chain in storage.
func (s *PostService) Repost(ctx context.Context, in RepostInput) (*models.Post, error) {
	const maxContentLen = 5000

	original, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if len(in.Content) > maxContentLen {
		return nil, models.NewValidationError("Content too long (max 5000 characters)")
	}

	now := s.now()
	repost := &models.Post{
		AuthorID:     in.UserID,
		Content:      strings.TrimSpace(in.Content),
		Media:        []models.Media{},
		IsRepost:     true,
		OriginalPost: original.ID,
		Likes:        []bson.ObjectID{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.postRepo.Create(ctx, repost); err != nil {
		return nil, err
	}
	if err := s.postRepo.IncRepostCount(ctx, original.ID, 1); err != nil {
		return nil, err
	}
	return repost, nil
}

func (s *PostService) GetUserPosts(ctx context.Context, authorID bson.ObjectID, limit, offset int) ([]models.Post, error) {
	return s.postRepo.ListByAuthor(ctx, authorID, limit, offset)
}

func (s *PostService) GetLikedPosts(ctx context.Context, userID bson.ObjectID, limit, offset int) ([]models.Post, error) {
	return s.postRepo.ListLikedBy(ctx, userID, limit, offset)
}
