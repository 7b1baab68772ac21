package service

import (
	"context"
	"net/mail"
	"strings"

	"celeste/internal/models"
	"celeste/internal/repository"

	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	userRepo     repository.UserRepository
	verification *VerificationService
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Code     string
}

type LoginInput struct {
	Email    string
	Password string
}

type UpdateProfileInput struct {
	UserID      bson.ObjectID
	Username    *string
	Email       *string
	Bio         *string
	Avatar      *string
	HeaderImage *string
	Settings    *models.Settings
}

type ChangePasswordInput struct {
	Email       string
	OldPassword string
	NewPassword string
	Code        string
}

func NewUserService(userRepo repository.UserRepository, verification *VerificationService) *UserService {
	return &UserService{
		userRepo:     userRepo,
		verification: verification,
	}
}

// verifyError maps a failed verification outcome to the client-facing error.
func verifyError(outcome VerifyOutcome) error {
	switch outcome {
	case VerifyWrongCode:
		return models.NewValidationError("Invalid verification code")
	case VerifyExpired:
		return models.NewValidationError("Verification code has expired")
	case VerifyNotFound:
		return models.NewValidationError("No verification code was issued for this email")
	case VerifyAlreadyUsed:
		return models.NewValidationError("Verification code has already been used")
	}
	return models.NewValidationError("Verification failed")
}

// Register creates an account after consuming a registration code.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	const maxUsernameLen = 30
	const minPasswordLen = 8

	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, models.NewValidationError("Username is required")
	}
	if len(username) > maxUsernameLen {
		return nil, models.NewValidationError("Username too long (max 30 characters)")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, models.NewValidationError("A valid email address is required")
	}
	if len(in.Password) < minPasswordLen {
		return nil, models.NewValidationError("Password must be at least 8 characters")
	}

	outcome, err := s.verification.Verify(ctx, VerifyCodeInput{
		Email:   in.Email,
		Purpose: models.PurposeRegister,
		Code:    in.Code,
	})
	if err != nil {
		return nil, err
	}
	if outcome != VerifyOK {
		return nil, verifyError(outcome)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := models.NewUser(username, in.Email, string(hash))
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks credentials and records the login time. It issues no token;
// the caller receives the account record.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*models.User, error) {
	if in.Email == "" || in.Password == "" {
		return nil, models.NewValidationError("Email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("Invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid email or password")
	}
	if user.Status.IsBanned {
		return nil, models.NewUnauthorizedError("Account is banned")
	}
	if !user.Status.IsActive {
		return nil, models.NewUnauthorizedError("Account is deactivated")
	}

	now := s.verification.now()
	if err := s.userRepo.SetLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.Status.LastLoginAt = now
	return user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", username)
	}
	return user, nil
}

// ListUsers pages through all accounts, newest first.
func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.userRepo.ListAll(ctx, limit, offset)
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	const maxBioLen = 500

	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	fields := bson.D{}
	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if username == "" || len(username) > 30 {
			return nil, models.NewValidationError("Username must be 1 to 30 characters")
		}
		user.Username = username
		fields = append(fields, bson.E{Key: "username", Value: username})
	}
	if in.Email != nil {
		if _, err := mail.ParseAddress(*in.Email); err != nil {
			return nil, models.NewValidationError("A valid email address is required")
		}
		user.Email = *in.Email
		fields = append(fields, bson.E{Key: "email", Value: *in.Email})
	}
	if in.Bio != nil {
		if len(*in.Bio) > maxBioLen {
			return nil, models.NewValidationError("Bio too long (max 500 characters)")
		}
		user.Bio = *in.Bio
		fields = append(fields, bson.E{Key: "bio", Value: *in.Bio})
	}
	if in.Avatar != nil {
		user.Avatar = *in.Avatar
		fields = append(fields, bson.E{Key: "avatar", Value: *in.Avatar})
	}
	if in.HeaderImage != nil {
		user.HeaderImage = *in.HeaderImage
		fields = append(fields, bson.E{Key: "headerImage", Value: *in.HeaderImage})
	}
	if in.Settings != nil {
		user.Settings = *in.Settings
		fields = append(fields, bson.E{Key: "settings", Value: *in.Settings})
	}
	if len(fields) == 0 {
		return user, nil
	}

	if err := s.userRepo.UpdateFields(ctx, in.UserID, fields); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword resets the password. It requires both the current password
// and a valid reset code, and consumes the code only after the password check.
func (s *UserService) ChangePassword(ctx context.Context, in ChangePasswordInput) error {
	const minPasswordLen = 8

	if len(in.NewPassword) < minPasswordLen {
		return models.NewValidationError("Password must be at least 8 characters")
	}

	user, err := s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return err
	}
	if user == nil {
		return models.NewNotFoundError("User", in.Email)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.OldPassword)); err != nil {
		return models.NewUnauthorizedError("Current password is incorrect")
	}

	outcome, err := s.verification.Verify(ctx, VerifyCodeInput{
		Email:   in.Email,
		Purpose: models.PurposeResetPassword,
		Code:    in.Code,
	})
	if err != nil {
		return err
	}
	if outcome != VerifyOK {
		return verifyError(outcome)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return models.NewInternalError(err)
	}

	return s.userRepo.UpdateFields(ctx, user.ID, bson.D{
		{Key: "passwordHash", Value: string(hash)},
	})
}

// Follow creates the follow edge from follower to followee. Following an
// account already followed is a conflict.
func (s *UserService) Follow(ctx context.Context, followerID, followeeID bson.ObjectID) error {
	if followerID == followeeID {
		return models.NewValidationError("You cannot follow yourself")
	}
	// Ensure the followee exists before touching the follower document.
	if _, err := s.userRepo.GetByID(ctx, followeeID); err != nil {
		return err
	}
	created, err := s.userRepo.Follow(ctx, followerID, followeeID)
	if err != nil {
		return err
	}
	if !created {
		return models.NewConflictError("Already following this user")
	}
	return nil
}

// Unfollow removes the follow edge. Unfollowing someone never followed is a
// conflict.
func (s *UserService) Unfollow(ctx context.Context, followerID, followeeID bson.ObjectID) error {
	if followerID == followeeID {
		return models.NewValidationError("You cannot unfollow yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, followeeID); err != nil {
		return err
	}
	removed, err := s.userRepo.Unfollow(ctx, followerID, followeeID)
	if err != nil {
		return err
	}
	if !removed {
		return models.NewConflictError("Not following this user")
	}
	return nil
}

// Following returns the users the given account follows.
func (s *UserService) Following(ctx context.Context, id bson.ObjectID) ([]models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.userRepo.GetManyByIDs(ctx, user.Following)
}

// Followers returns the accounts following the given user.
func (s *UserService) Followers(ctx context.Context, id bson.ObjectID) ([]models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.userRepo.GetManyByIDs(ctx, user.Followers)
}
