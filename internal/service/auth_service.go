package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/taskory/taskory/internal/config"
	"github.com/taskory/taskory/internal/domain"
	"github.com/taskory/taskory/internal/notify"
	"github.com/taskory/taskory/internal/observability"
	"github.com/taskory/taskory/internal/repository"
	"github.com/taskory/taskory/internal/security"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("a valid email address is required")
	ErrEmailTaken         = errors.New("email already registered")
	ErrAccountNotFound    = errors.New("no account with this email")
	ErrAlreadyVerified    = errors.New("account is already verified")
	ErrInvalidVerifyToken = errors.New("invalid or expired verification token")
)

// NotificationEnqueuer is the slice of the dispatcher the auth flows need.
type NotificationEnqueuer interface {
	Enqueue(msg notify.Message) error
}

// AuthService owns account registration, the email verification state
// machine, credential checks, and password changes. Token issuance lives in
// TokenService; AuthService only proves who the caller is.
type AuthService struct {
	cfg         *config.Config
	accountRepo repository.AccountRepository
	codec       *security.TokenCodec
	policy      security.PasswordPolicy
	notifier    NotificationEnqueuer
}

func NewAuthService(
	cfg *config.Config,
	accountRepo repository.AccountRepository,
	codec *security.TokenCodec,
	policy security.PasswordPolicy,
	notifier NotificationEnqueuer,
) *AuthService {
	return &AuthService{
		cfg:         cfg,
		accountRepo: accountRepo,
		codec:       codec,
		policy:      policy,
		notifier:    notifier,
	}
}

// Register creates an unverified account and queues the confirmation mail.
// The account exists and can be re-targeted by ResendConfirmation even if
// the mail never goes out.
func (s *AuthService) Register(email, password string) (*domain.Account, error) {
	email = repository.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		observability.RecordVerificationFlow(context.Background(), "register", "invalid_email")
		return nil, err
	}
	if err := s.policy.Validate(password, email); err != nil {
		observability.RecordVerificationFlow(context.Background(), "register", "weak_password")
		return nil, err
	}
	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, err
	}
	account := &domain.Account{Email: email, PasswordHash: hash}
	if err := s.accountRepo.CreateWithProfile(account); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			observability.RecordVerificationFlow(context.Background(), "register", "duplicate")
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	s.sendConfirmation(account)
	observability.RecordVerificationFlow(context.Background(), "register", "success")
	return account, nil
}

// Confirm validates a verification token and flips the account verified.
// Confirming twice with the same token succeeds both times; the flag just
// stays set.
func (s *AuthService) Confirm(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidVerifyToken
	}
	claims, err := s.codec.Parse(token, security.ScopeVerify)
	if err != nil {
		observability.RecordVerificationFlow(context.Background(), "confirm", "invalid_token")
		return ErrInvalidVerifyToken
	}
	accountID, err := claims.SubjectID()
	if err != nil {
		return ErrInvalidVerifyToken
	}
	account, err := s.accountRepo.FindByID(accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	if err := s.accountRepo.MarkVerified(accountID); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	if !account.IsVerified {
		s.sendWelcome(account)
	}
	observability.RecordVerificationFlow(context.Background(), "confirm", "success")
	return nil
}

// ResendConfirmation issues a fresh token for an unverified account. The
// caller learns whether the address exists and whether it is already
// verified; this endpoint is for signed-up users who lost the mail, so it
// answers honestly instead of hiding behind a generic response.
func (s *AuthService) ResendConfirmation(email string) error {
	account, err := s.accountRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			observability.RecordVerificationFlow(context.Background(), "resend", "not_found")
			return ErrAccountNotFound
		}
		return err
	}
	if account.IsVerified {
		observability.RecordVerificationFlow(context.Background(), "resend", "already_verified")
		return ErrAlreadyVerified
	}
	s.sendConfirmation(account)
	observability.RecordVerificationFlow(context.Background(), "resend", "success")
	return nil
}

// Authenticate checks an email/password pair. Unknown address and wrong
// password are indistinguishable to the caller.
func (s *AuthService) Authenticate(email, password string) (*domain.Account, error) {
	account, err := s.accountRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	ok, err := security.VerifyPassword(account.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return account, nil
}

// ChangePassword swaps the hash after re-proving the current password.
func (s *AuthService) ChangePassword(accountID uint, currentPassword, newPassword string) error {
	account, err := s.accountRepo.FindByID(accountID)
	if err != nil {
		return err
	}
	ok, err := security.VerifyPassword(account.PasswordHash, currentPassword)
	if err != nil {
		return err
	}
	if !ok {
		observability.RecordPasswordChange(context.Background(), "wrong_current")
		return ErrInvalidCredentials
	}
	if err := s.policy.Validate(newPassword, account.Email); err != nil {
		observability.RecordPasswordChange(context.Background(), "weak_password")
		return err
	}
	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.accountRepo.UpdatePassword(accountID, hash); err != nil {
		return err
	}
	observability.RecordPasswordChange(context.Background(), "success")
	return nil
}

// sendConfirmation mints a verification token and queues the mail. Delivery
// problems are logged by the dispatcher; the account flow never fails on
// them.
func (s *AuthService) sendConfirmation(account *domain.Account) {
	token, err := s.codec.Issue(account.ID, security.ScopeVerify, s.cfg.VerifyTokenTTL)
	if err != nil {
		observability.RecordVerificationFlow(context.Background(), "send_confirmation", "token_error")
		return
	}
	msg, err := notify.BuildVerificationMessage(account.Email, token, s.cfg.VerifyBaseURL, s.cfg.VerifyTokenTTL)
	if err != nil {
		observability.RecordVerificationFlow(context.Background(), "send_confirmation", "render_error")
		return
	}
	if err := s.notifier.Enqueue(msg); err != nil {
		observability.RecordVerificationFlow(context.Background(), "send_confirmation", "enqueue_error")
	}
}

// sendWelcome greets an account that just completed verification. Sent once;
// repeat confirmations see the flag already set and skip it.
func (s *AuthService) sendWelcome(account *domain.Account) {
	msg, err := notify.BuildWelcomeMessage(account.Email)
	if err != nil {
		return
	}
	_ = s.notifier.Enqueue(msg)
}

func validateEmail(email string) error {
	if email == "" {
		return ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return nil
}
