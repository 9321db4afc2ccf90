package service

import (
	"context"
	"errors"
	"time"

	"github.com/taskory/taskory/internal/config"
	"github.com/taskory/taskory/internal/domain"
	"github.com/taskory/taskory/internal/observability"
	"github.com/taskory/taskory/internal/repository"
	"github.com/taskory/taskory/internal/security"
)

var (
	ErrInvalidToken  = errors.New("token is invalid or expired")
	ErrNoActiveToken = errors.New("no active token for account")
)

// TokenPair is the signed-token login result.
type TokenPair struct {
	Access    string    `json:"access"`
	Refresh   string    `json:"refresh,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenService issues and checks both credential shapes: the persistent
// opaque key looked up server-side, and the stateless signed access/refresh
// pair. Which one a login hands out is the caller's choice; both stay valid
// on the wire at all times.
type TokenService struct {
	codec       *security.TokenCodec
	accessRepo  repository.AccessTokenRepository
	accountRepo repository.AccountRepository
	accessTTL   time.Duration
	refreshTTL  time.Duration
}

func NewTokenService(cfg *config.Config, codec *security.TokenCodec, accessRepo repository.AccessTokenRepository, accountRepo repository.AccountRepository) *TokenService {
	return &TokenService{
		codec:       codec,
		accessRepo:  accessRepo,
		accountRepo: accountRepo,
		accessTTL:   cfg.AccessTokenTTL,
		refreshTTL:  cfg.RefreshTokenTTL,
	}
}

// IssueOpaque returns the account's persistent key, minting one on first
// login. Every later login yields the same key until it is revoked.
func (s *TokenService) IssueOpaque(accountID uint) (string, bool, error) {
	candidate, err := security.NewOpaqueKey()
	if err != nil {
		return "", false, err
	}
	token, created, err := s.accessRepo.GetOrCreate(accountID, candidate)
	if err != nil {
		return "", false, err
	}
	return token.Key, created, nil
}

// AuthenticateOpaque resolves a presented key to its owning account and
// records the use.
func (s *TokenService) AuthenticateOpaque(key string) (*domain.Account, error) {
	token, err := s.accessRepo.FindByKey(key)
	if err != nil {
		if errors.Is(err, repository.ErrAccessTokenNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	account, err := s.accountRepo.FindByID(token.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	_ = s.accessRepo.TouchLastUsed(token.ID)
	return account, nil
}

// RevokeOpaque drops the account's persistent key. Revoking an account that
// holds no key reports ErrNoActiveToken.
func (s *TokenService) RevokeOpaque(accountID uint) error {
	err := s.accessRepo.DeleteByAccountID(accountID)
	if errors.Is(err, repository.ErrAccessTokenNotFound) {
		return ErrNoActiveToken
	}
	return err
}

// IssueSignedPair mints a fresh access/refresh pair for the account.
func (s *TokenService) IssueSignedPair(accountID uint) (TokenPair, error) {
	access, err := s.codec.Issue(accountID, security.ScopeAccess, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.codec.Issue(accountID, security.ScopeRefresh, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh, ExpiresAt: time.Now().Add(s.accessTTL)}, nil
}

// RefreshAccess trades a valid refresh token for a new access token. The
// refresh token itself is not rotated.
func (s *TokenService) RefreshAccess(refreshToken string) (TokenPair, error) {
	claims, err := s.codec.Parse(refreshToken, security.ScopeRefresh)
	if err != nil {
		observability.RecordAuthRefresh(context.Background(), "invalid")
		return TokenPair{}, ErrInvalidToken
	}
	accountID, err := claims.SubjectID()
	if err != nil {
		observability.RecordAuthRefresh(context.Background(), "invalid")
		return TokenPair{}, ErrInvalidToken
	}
	access, err := s.codec.Issue(accountID, security.ScopeAccess, s.accessTTL)
	if err != nil {
		observability.RecordAuthRefresh(context.Background(), "error")
		return TokenPair{}, err
	}
	observability.RecordAuthRefresh(context.Background(), "success")
	return TokenPair{Access: access, ExpiresAt: time.Now().Add(s.accessTTL)}, nil
}

// VerifySigned checks that the token was minted here and has not expired.
// Both access and refresh tokens pass.
func (s *TokenService) VerifySigned(token string) error {
	if _, err := s.codec.Parse(token, security.ScopeAccess); err == nil {
		return nil
	}
	if _, err := s.codec.Parse(token, security.ScopeRefresh); err == nil {
		return nil
	}
	return ErrInvalidToken
}

// AuthenticateSigned resolves a bearer access token to its account.
func (s *TokenService) AuthenticateSigned(token string) (*domain.Account, error) {
	claims, err := s.codec.Parse(token, security.ScopeAccess)
	if err != nil {
		return nil, ErrInvalidToken
	}
	accountID, err := claims.SubjectID()
	if err != nil {
		return nil, ErrInvalidToken
	}
	account, err := s.accountRepo.FindByID(accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return account, nil
}
