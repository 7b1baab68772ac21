package service

import (
	"context"
	"strings"
	"time"

	"celeste/internal/models"
	"celeste/internal/repository"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	now         func() time.Time
}

type CreateCommentInput struct {
	UserID  bson.ObjectID
	PostID  bson.ObjectID
	Content string
	ReplyTo bson.ObjectID
}

func NewCommentService(commentRepo repository.CommentRepository, postRepo repository.PostRepository) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	const maxContentLen = 2000

	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(content) > maxContentLen {
		return nil, models.NewValidationError("Content too long (max 2000 characters)")
	}

	// The post must exist; comments on deleted posts are rejected.
	if _, err := s.postRepo.GetByID(ctx, in.PostID); err != nil {
		return nil, err
	}

	if !in.ReplyTo.IsZero() {
		parent, err := s.commentRepo.GetByID(ctx, in.ReplyTo)
		if err != nil {
			return nil, err
		}
		if parent.PostID != in.PostID {
			return nil, models.NewValidationError("Reply target belongs to a different post")
		}
	}

	now := s.now()
	comment := &models.Comment{
		PostID:    in.PostID,
		AuthorID:  in.UserID,
		Content:   content,
		Likes:     []bson.ObjectID{},
		ReplyTo:   in.ReplyTo,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// ListComments returns a post's comments in thread order, oldest first.
func (s *CommentService) ListComments(ctx context.Context, postID bson.ObjectID, limit, offset int) ([]models.Comment, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByPost(ctx, postID, limit, offset)
}

func (s *CommentService) DeleteComment(ctx context.Context, userID, commentID bson.ObjectID) error {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.AuthorID != userID {
		return models.NewUnauthorizedError("You can only delete your own comments")
	}
	return s.commentRepo.Delete(ctx, commentID)
}

// ToggleLike flips the user's like on a comment. Unlike post likes, comment
// likes are a true toggle.
func (s *CommentService) ToggleLike(ctx context.Context, userID, commentID bson.ObjectID) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}

	if comment.LikedBy(userID) {
		err = s.commentRepo.RemoveLike(ctx, commentID, userID)
	} else {
		err = s.commentRepo.AddLike(ctx, commentID, userID)
	}
	if err != nil {
		return nil, err
	}
	return s.commentRepo.GetByID(ctx, commentID)
}
