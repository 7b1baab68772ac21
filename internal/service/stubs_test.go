package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"celeste/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn       func(context.Context, bson.ObjectID) (*models.User, error)
	getByEmailFn    func(context.Context, string) (*models.User, error)
	getByUsernameFn func(context.Context, string) (*models.User, error)
	getManyByIDsFn  func(context.Context, []bson.ObjectID) ([]models.User, error)
	listAllFn       func(context.Context, int, int) ([]models.User, error)
	createFn        func(context.Context, *models.User) error
	updateFieldsFn  func(context.Context, bson.ObjectID, bson.D) error
	followFn        func(context.Context, bson.ObjectID, bson.ObjectID) (bool, error)
	unfollowFn      func(context.Context, bson.ObjectID, bson.ObjectID) (bool, error)
	setLastLoginFn  func(context.Context, bson.ObjectID, time.Time) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) GetManyByIDs(ctx context.Context, ids []bson.ObjectID) ([]models.User, error) {
	return s.getManyByIDsFn(ctx, ids)
}
func (s *userRepoStub) ListAll(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.listAllFn(ctx, limit, offset)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) UpdateFields(ctx context.Context, id bson.ObjectID, fields bson.D) error {
	return s.updateFieldsFn(ctx, id, fields)
}
func (s *userRepoStub) Follow(ctx context.Context, followerID, followeeID bson.ObjectID) (bool, error) {
	return s.followFn(ctx, followerID, followeeID)
}
func (s *userRepoStub) Unfollow(ctx context.Context, followerID, followeeID bson.ObjectID) (bool, error) {
	return s.unfollowFn(ctx, followerID, followeeID)
}
func (s *userRepoStub) SetLastLogin(ctx context.Context, id bson.ObjectID, at time.Time) error {
	return s.setLastLoginFn(ctx, id, at)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:       func(_ context.Context, id bson.ObjectID) (*models.User, error) { return &models.User{ID: id}, nil },
		getByEmailFn:    func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		getByUsernameFn: func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		getManyByIDsFn:  func(_ context.Context, _ []bson.ObjectID) ([]models.User, error) { return []models.User{}, nil },
		listAllFn:       func(_ context.Context, _, _ int) ([]models.User, error) { return []models.User{}, nil },
		createFn:        func(_ context.Context, _ *models.User) error { return nil },
		updateFieldsFn:  func(_ context.Context, _ bson.ObjectID, _ bson.D) error { return nil },
		followFn:        func(_ context.Context, _, _ bson.ObjectID) (bool, error) { return true, nil },
		unfollowFn:      func(_ context.Context, _, _ bson.ObjectID) (bool, error) { return true, nil },
		setLastLoginFn:  func(_ context.Context, _ bson.ObjectID, _ time.Time) error { return nil },
	}
}

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn         func(context.Context, *models.Post) error
	getByIDFn        func(context.Context, bson.ObjectID) (*models.Post, error)
	deleteFn         func(context.Context, bson.ObjectID) error
	listByAuthorFn   func(context.Context, bson.ObjectID, int, int) ([]models.Post, error)
	listAllFn        func(context.Context) ([]models.Post, error)
	listLikedByFn    func(context.Context, bson.ObjectID, int, int) ([]models.Post, error)
	addLikeFn        func(context.Context, bson.ObjectID, bson.ObjectID, time.Time) (bool, error)
	removeLikeFn     func(context.Context, bson.ObjectID, bson.ObjectID, time.Time) (bool, error)
	incRepostCountFn func(context.Context, bson.ObjectID, int) error
	countCommentsFn  func(context.Context, []bson.ObjectID) (map[bson.ObjectID]int, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id bson.ObjectID) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) Delete(ctx context.Context, id bson.ObjectID) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) ListByAuthor(ctx context.Context, authorID bson.ObjectID, limit, offset int) ([]models.Post, error) {
	return s.listByAuthorFn(ctx, authorID, limit, offset)
}
func (s *postRepoStub) ListAll(ctx context.Context) ([]models.Post, error) {
	return s.listAllFn(ctx)
}
func (s *postRepoStub) ListLikedBy(ctx context.Context, userID bson.ObjectID, limit, offset int) ([]models.Post, error) {
	return s.listLikedByFn(ctx, userID, limit, offset)
}
func (s *postRepoStub) AddLike(ctx context.Context, postID, userID bson.ObjectID, now time.Time) (bool, error) {
	return s.addLikeFn(ctx, postID, userID, now)
}
func (s *postRepoStub) RemoveLike(ctx context.Context, postID, userID bson.ObjectID, now time.Time) (bool, error) {
	return s.removeLikeFn(ctx, postID, userID, now)
}
func (s *postRepoStub) IncRepostCount(ctx context.Context, postID bson.ObjectID, delta int) error {
	return s.incRepostCountFn(ctx, postID, delta)
}
func (s *postRepoStub) CountComments(ctx context.Context, postIDs []bson.ObjectID) (map[bson.ObjectID]int, error) {
	return s.countCommentsFn(ctx, postIDs)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(_ context.Context, p *models.Post) error {
			if p.ID.IsZero() {
				p.ID = bson.NewObjectID()
			}
			return nil
		},
		getByIDFn: func(_ context.Context, id bson.ObjectID) (*models.Post, error) {
			return &models.Post{ID: id}, nil
		},
		deleteFn:         func(_ context.Context, _ bson.ObjectID) error { return nil },
		listByAuthorFn:   func(_ context.Context, _ bson.ObjectID, _, _ int) ([]models.Post, error) { return nil, nil },
		listAllFn:        func(_ context.Context) ([]models.Post, error) { return nil, nil },
		listLikedByFn:    func(_ context.Context, _ bson.ObjectID, _, _ int) ([]models.Post, error) { return nil, nil },
		addLikeFn:        func(_ context.Context, _, _ bson.ObjectID, _ time.Time) (bool, error) { return true, nil },
		removeLikeFn:     func(_ context.Context, _, _ bson.ObjectID, _ time.Time) (bool, error) { return true, nil },
		incRepostCountFn: func(_ context.Context, _ bson.ObjectID, _ int) error { return nil },
		countCommentsFn: func(_ context.Context, _ []bson.ObjectID) (map[bson.ObjectID]int, error) {
			return map[bson.ObjectID]int{}, nil
		},
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn       func(context.Context, *models.Comment) error
	getByIDFn      func(context.Context, bson.ObjectID) (*models.Comment, error)
	listByPostFn   func(context.Context, bson.ObjectID, int, int) ([]models.Comment, error)
	deleteFn       func(context.Context, bson.ObjectID) error
	addLikeFn      func(context.Context, bson.ObjectID, bson.ObjectID) error
	removeLikeFn   func(context.Context, bson.ObjectID, bson.ObjectID) error
	deleteByPostFn func(context.Context, bson.ObjectID) error
}

func (s *commentRepoStub) Create(ctx context.Context, comment *models.Comment) error {
	return s.createFn(ctx, comment)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id bson.ObjectID) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID bson.ObjectID, limit, offset int) ([]models.Comment, error) {
	return s.listByPostFn(ctx, postID, limit, offset)
}
func (s *commentRepoStub) Delete(ctx context.Context, id bson.ObjectID) error {
	return s.deleteFn(ctx, id)
}
func (s *commentRepoStub) AddLike(ctx context.Context, commentID, userID bson.ObjectID) error {
	return s.addLikeFn(ctx, commentID, userID)
}
func (s *commentRepoStub) RemoveLike(ctx context.Context, commentID, userID bson.ObjectID) error {
	return s.removeLikeFn(ctx, commentID, userID)
}
func (s *commentRepoStub) DeleteByPost(ctx context.Context, postID bson.ObjectID) error {
	return s.deleteByPostFn(ctx, postID)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn: func(_ context.Context, c *models.Comment) error {
			if c.ID.IsZero() {
				c.ID = bson.NewObjectID()
			}
			return nil
		},
		getByIDFn: func(_ context.Context, id bson.ObjectID) (*models.Comment, error) {
			return &models.Comment{ID: id}, nil
		},
		listByPostFn:   func(_ context.Context, _ bson.ObjectID, _, _ int) ([]models.Comment, error) { return nil, nil },
		deleteFn:       func(_ context.Context, _ bson.ObjectID) error { return nil },
		addLikeFn:      func(_ context.Context, _, _ bson.ObjectID) error { return nil },
		removeLikeFn:   func(_ context.Context, _, _ bson.ObjectID) error { return nil },
		deleteByPostFn: func(_ context.Context, _ bson.ObjectID) error { return nil },
	}
}

// mailRepoStub is a stub for repository.MailRepository.
type mailRepoStub struct {
	createFn      func(context.Context, *models.Mail) error
	findLatestFn  func(context.Context, string, string) (*models.Mail, error)
	consumeCodeFn func(context.Context, string, string, string, time.Time) (*models.Mail, error)
	listFn        func(context.Context, string, int, int) ([]models.Mail, error)
}

func (s *mailRepoStub) Create(ctx context.Context, mail *models.Mail) error {
	return s.createFn(ctx, mail)
}
func (s *mailRepoStub) FindLatest(ctx context.Context, email, purpose string) (*models.Mail, error) {
	return s.findLatestFn(ctx, email, purpose)
}
func (s *mailRepoStub) ConsumeCode(ctx context.Context, email, purpose, code string, now time.Time) (*models.Mail, error) {
	return s.consumeCodeFn(ctx, email, purpose, code, now)
}
func (s *mailRepoStub) List(ctx context.Context, email string, limit, offset int) ([]models.Mail, error) {
	return s.listFn(ctx, email, limit, offset)
}

func noopMailRepo() *mailRepoStub {
	return &mailRepoStub{
		createFn: func(_ context.Context, m *models.Mail) error {
			if m.ID.IsZero() {
				m.ID = bson.NewObjectID()
			}
			return nil
		},
		findLatestFn: func(_ context.Context, _, _ string) (*models.Mail, error) { return nil, nil },
		consumeCodeFn: func(_ context.Context, _, _, _ string, _ time.Time) (*models.Mail, error) {
			return nil, nil
		},
		listFn: func(_ context.Context, _ string, _, _ int) ([]models.Mail, error) { return nil, nil },
	}
}

// mailerStub records sent codes.
type mailerStub struct {
	sent []string
	err  error
}

func (m *mailerStub) SendVerificationCode(_ context.Context, to, code, purpose string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to+":"+code+":"+purpose)
	return nil
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

// assertConflictError asserts that err is an AppError with code CONFLICT.
func assertConflictError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, "CONFLICT", appErr.Code)
}

// assertUnauthorizedError asserts that err is an AppError with code UNAUTHORIZED.
func assertUnauthorizedError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, "UNAUTHORIZED", appErr.Code)
}

// fixedClock returns a deterministic now function.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
