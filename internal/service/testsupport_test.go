package service

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/taskory/taskory/internal/config"
	"github.com/taskory/taskory/internal/domain"
	"github.com/taskory/taskory/internal/notify"
	"github.com/taskory/taskory/internal/repository"
	repogomock "github.com/taskory/taskory/internal/repository/gomock"
	"github.com/taskory/taskory/internal/security"
)

type tNop struct{}

func (tNop) Errorf(string, ...any) {}
func (tNop) Fatalf(string, ...any) {}
func (tNop) Helper()               {}

const testSecretKey = "0123456789abcdef0123456789abcdef"

func newTestConfig() *config.Config {
	return &config.Config{
		JWTIssuer:          "taskory-test",
		SecretKey:          testSecretKey,
		TokenLeeway:        30 * time.Second,
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    7 * 24 * time.Hour,
		VerifyTokenTTL:     24 * time.Hour,
		VerifyBaseURL:      "http://localhost:8080/api/v1/accounts/confirm",
		LoginTokenStrategy: config.LoginStrategyOpaque,
		PasswordMinLength:  8,
	}
}

func newTestCodec(cfg *config.Config) *security.TokenCodec {
	return security.NewTokenCodec(cfg.JWTIssuer, cfg.SecretKey, cfg.SecretVerifyKeys, cfg.TokenLeeway)
}

// accountRepoState is an in-memory AccountRepository the gomock wrappers
// delegate to, so tests keep real read-your-writes behavior.
type accountRepoState struct {
	nextID   uint
	byID     map[uint]*domain.Account
	byMail   map[string]uint
	profiles map[uint]*domain.Profile
}

func newAccountRepoState() *accountRepoState {
	return &accountRepoState{
		nextID:   1,
		byID:     map[uint]*domain.Account{},
		byMail:   map[string]uint{},
		profiles: map[uint]*domain.Profile{},
	}
}

func (r *accountRepoState) CreateWithProfile(account *domain.Account) error {
	account.Email = repository.NormalizeEmail(account.Email)
	if _, exists := r.byMail[account.Email]; exists {
		return repository.ErrDuplicateEmail
	}
	account.ID = r.nextID
	r.nextID++
	stored := *account
	r.byID[account.ID] = &stored
	r.byMail[account.Email] = account.ID
	r.profiles[account.ID] = &domain.Profile{ID: account.ID, AccountID: account.ID}
	return nil
}

func (r *accountRepoState) FindByID(id uint) (*domain.Account, error) {
	a, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *accountRepoState) FindByEmail(email string) (*domain.Account, error) {
	id, ok := r.byMail[repository.NormalizeEmail(email)]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	return r.FindByID(id)
}

func (r *accountRepoState) UpdatePassword(accountID uint, newHash string) error {
	a, ok := r.byID[accountID]
	if !ok {
		return repository.ErrAccountNotFound
	}
	a.PasswordHash = newHash
	return nil
}

func (r *accountRepoState) MarkVerified(accountID uint) error {
	a, ok := r.byID[accountID]
	if !ok {
		return repository.ErrAccountNotFound
	}
	if !a.IsVerified {
		now := time.Now().UTC()
		a.IsVerified = true
		a.VerifiedAt = &now
	}
	return nil
}

func newMockAccountRepo(state *accountRepoState) *repogomock.MockAccountRepository {
	ctrl := gomock.NewController(tNop{})
	mock := repogomock.NewMockAccountRepository(ctrl)
	mock.EXPECT().CreateWithProfile(gomock.Any()).AnyTimes().DoAndReturn(state.CreateWithProfile)
	mock.EXPECT().FindByID(gomock.Any()).AnyTimes().DoAndReturn(state.FindByID)
	mock.EXPECT().FindByEmail(gomock.Any()).AnyTimes().DoAndReturn(state.FindByEmail)
	mock.EXPECT().UpdatePassword(gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(state.UpdatePassword)
	mock.EXPECT().MarkVerified(gomock.Any()).AnyTimes().DoAndReturn(state.MarkVerified)
	return mock
}

type accessTokenRepoState struct {
	nextID    uint
	byAccount map[uint]*domain.AccessToken
}

func newAccessTokenRepoState() *accessTokenRepoState {
	return &accessTokenRepoState{nextID: 1, byAccount: map[uint]*domain.AccessToken{}}
}

func (r *accessTokenRepoState) GetOrCreate(accountID uint, candidateKey string) (*domain.AccessToken, bool, error) {
	if t, ok := r.byAccount[accountID]; ok {
		cp := *t
		return &cp, false, nil
	}
	t := &domain.AccessToken{ID: r.nextID, AccountID: accountID, Key: candidateKey}
	r.nextID++
	r.byAccount[accountID] = t
	cp := *t
	return &cp, true, nil
}

func (r *accessTokenRepoState) FindByKey(key string) (*domain.AccessToken, error) {
	for _, t := range r.byAccount {
		if t.Key == key {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repository.ErrAccessTokenNotFound
}

func (r *accessTokenRepoState) TouchLastUsed(tokenID uint) error {
	for _, t := range r.byAccount {
		if t.ID == tokenID {
			now := time.Now().UTC()
			t.LastUsedAt = &now
			return nil
		}
	}
	return nil
}

func (r *accessTokenRepoState) DeleteByAccountID(accountID uint) error {
	if _, ok := r.byAccount[accountID]; !ok {
		return repository.ErrAccessTokenNotFound
	}
	delete(r.byAccount, accountID)
	return nil
}

func newMockAccessTokenRepo(state *accessTokenRepoState) *repogomock.MockAccessTokenRepository {
	ctrl := gomock.NewController(tNop{})
	mock := repogomock.NewMockAccessTokenRepository(ctrl)
	mock.EXPECT().GetOrCreate(gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(state.GetOrCreate)
	mock.EXPECT().FindByKey(gomock.Any()).AnyTimes().DoAndReturn(state.FindByKey)
	mock.EXPECT().TouchLastUsed(gomock.Any()).AnyTimes().DoAndReturn(state.TouchLastUsed)
	mock.EXPECT().DeleteByAccountID(gomock.Any()).AnyTimes().DoAndReturn(state.DeleteByAccountID)
	return mock
}

// capturingNotifier records every enqueued message; enqueueErr simulates a
// saturated queue.
type capturingNotifier struct {
	mu         sync.Mutex
	messages   []notify.Message
	enqueueErr error
}

func (n *capturingNotifier) Enqueue(msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.enqueueErr != nil {
		return n.enqueueErr
	}
	n.messages = append(n.messages, msg)
	return nil
}

func (n *capturingNotifier) last() (notify.Message, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.messages) == 0 {
		return notify.Message{}, false
	}
	return n.messages[len(n.messages)-1], true
}

func (n *capturingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

func (n *capturingNotifier) kindCount(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, msg := range n.messages {
		if msg.Kind == kind {
			c++
		}
	}
	return c
}

// tokenFromMessage pulls the verification token back out of a rendered
// confirmation mail.
func tokenFromMessage(msg notify.Message) string {
	const marker = "token="
	i := strings.Index(msg.Body, marker)
	if i < 0 {
		return ""
	}
	rest := msg.Body[i+len(marker):]
	if j := strings.IndexAny(rest, " \n\r\t"); j >= 0 {
		rest = rest[:j]
	}
	return rest
}
