package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/mail"
	"time"

	"celeste/internal/mailer"
	"celeste/internal/models"
	"celeste/internal/observability"
	"celeste/internal/repository"
)

// codeTTL is how long an issued verification code stays valid.
const codeTTL = 5 * time.Minute

// VerifyOutcome classifies a verification attempt.
type VerifyOutcome int

const (
	VerifyOK VerifyOutcome = iota
	VerifyWrongCode
	VerifyExpired
	VerifyNotFound
	VerifyAlreadyUsed
)

// String returns the metric label for the outcome.
func (o VerifyOutcome) String() string {
	switch o {
	case VerifyOK:
		return "ok"
	case VerifyWrongCode:
		return "wrong_code"
	case VerifyExpired:
		return "expired"
	case VerifyNotFound:
		return "not_found"
	case VerifyAlreadyUsed:
		return "already_used"
	}
	return "unknown"
}

type VerificationService struct {
	mailRepo repository.MailRepository
	mailer   mailer.Mailer
	now      func() time.Time
	genCode  func() (string, error)
}

type IssueCodeInput struct {
	Email   string
	Purpose string
}

type VerifyCodeInput struct {
	Email   string
	Purpose string
	Code    string
}

func NewVerificationService(mailRepo repository.MailRepository, m mailer.Mailer) *VerificationService {
	return &VerificationService{
		mailRepo: mailRepo,
		mailer:   m,
		now:      func() time.Time { return time.Now().UTC() },
		genCode:  randomCode,
	}
}

// randomCode returns a uniformly random four digit code, 1000 through 9999.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", 1000+n.Int64()), nil
}

// IssueCode creates a fresh verification record and emails the code. Issuing
// does not invalidate earlier codes; verification consumes the newest match.
func (s *VerificationService) IssueCode(ctx context.Context, in IssueCodeInput) (*models.Mail, error) {
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, models.NewValidationError("A valid email address is required")
	}
	if !models.ValidPurpose(in.Purpose) {
		return nil, models.NewValidationError("Purpose must be register or reset-password")
	}

	code, err := s.genCode()
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	now := s.now()
	record := &models.Mail{
		Email:     in.Email,
		Code:      code,
		Purpose:   in.Purpose,
		IsUsed:    false,
		CreatedAt: now,
		ExpireAt:  now.Add(codeTTL),
	}
	if err := s.mailRepo.Create(ctx, record); err != nil {
		return nil, err
	}

	if err := s.mailer.SendVerificationCode(ctx, in.Email, code, in.Purpose); err != nil {
		return nil, err
	}

	observability.VerificationCodesIssued.WithLabelValues(in.Purpose).Inc()
	return record, nil
}

// Verify attempts to consume a code. Consumption is atomic, so only one of
// several concurrent attempts with the same code observes VerifyOK. The
// failure outcomes are classified from the newest record for the address and
// purpose.
func (s *VerificationService) Verify(ctx context.Context, in VerifyCodeInput) (VerifyOutcome, error) {
	if in.Email == "" || in.Code == "" {
		return VerifyNotFound, models.NewValidationError("Email and code are required")
	}
	if !models.ValidPurpose(in.Purpose) {
		return VerifyNotFound, models.NewValidationError("Purpose must be register or reset-password")
	}

	consumed, err := s.mailRepo.ConsumeCode(ctx, in.Email, in.Purpose, in.Code, s.now())
	if err != nil {
		return VerifyNotFound, err
	}
	if consumed != nil {
		observability.VerificationOutcomes.WithLabelValues(VerifyOK.String()).Inc()
		return VerifyOK, nil
	}

	outcome, err := s.classifyFailure(ctx, in)
	if err != nil {
		return VerifyNotFound, err
	}
	observability.VerificationOutcomes.WithLabelValues(outcome.String()).Inc()
	return outcome, nil
}

func (s *VerificationService) classifyFailure(ctx context.Context, in VerifyCodeInput) (VerifyOutcome, error) {
	latest, err := s.mailRepo.FindLatest(ctx, in.Email, in.Purpose)
	if err != nil {
		return VerifyNotFound, err
	}
	switch {
	case latest == nil:
		return VerifyNotFound, nil
	case latest.Code != in.Code:
		return VerifyWrongCode, nil
	case latest.IsUsed:
		return VerifyAlreadyUsed, nil
	case latest.Expired(s.now()):
		return VerifyExpired, nil
	default:
		// The code matched and looks consumable, so a concurrent attempt
		// must have consumed it between our two queries.
		return VerifyAlreadyUsed, nil
	}
}

// ListCodes returns code records newest first, optionally scoped to one
// address.
func (s *VerificationService) ListCodes(ctx context.Context, email string, limit, offset int) ([]models.Mail, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.mailRepo.List(ctx, email, limit, offset)
}
