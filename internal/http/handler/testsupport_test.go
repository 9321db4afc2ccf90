package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/taskory/taskory/internal/domain"
	"github.com/taskory/taskory/internal/http/middleware"
	"github.com/taskory/taskory/internal/repository"
	"github.com/taskory/taskory/internal/service"
)

type stubAuthService struct {
	register       func(email, password string) (*domain.Account, error)
	confirm        func(token string) error
	resend         func(email string) error
	authenticate   func(email, password string) (*domain.Account, error)
	changePassword func(accountID uint, current, next string) error
}

func (s *stubAuthService) Register(email, password string) (*domain.Account, error) {
	return s.register(email, password)
}
func (s *stubAuthService) Confirm(token string) error { return s.confirm(token) }
func (s *stubAuthService) ResendConfirmation(email string) error { return s.resend(email) }
func (s *stubAuthService) Authenticate(email, password string) (*domain.Account, error) {
	return s.authenticate(email, password)
}
func (s *stubAuthService) ChangePassword(accountID uint, current, next string) error {
	return s.changePassword(accountID, current, next)
}

type stubTokenService struct {
	issueOpaque     func(accountID uint) (string, bool, error)
	revokeOpaque    func(accountID uint) error
	issueSignedPair func(accountID uint) (service.TokenPair, error)
	refreshAccess   func(refresh string) (service.TokenPair, error)
	verifySigned    func(token string) error
}

func (s *stubTokenService) IssueOpaque(accountID uint) (string, bool, error) {
	return s.issueOpaque(accountID)
}
func (s *stubTokenService) AuthenticateOpaque(string) (*domain.Account, error) { return nil, nil }
func (s *stubTokenService) RevokeOpaque(accountID uint) error { return s.revokeOpaque(accountID) }
func (s *stubTokenService) IssueSignedPair(accountID uint) (service.TokenPair, error) {
	return s.issueSignedPair(accountID)
}
func (s *stubTokenService) RefreshAccess(refresh string) (service.TokenPair, error) {
	return s.refreshAccess(refresh)
}
func (s *stubTokenService) VerifySigned(token string) error { return s.verifySigned(token) }
func (s *stubTokenService) AuthenticateSigned(string) (*domain.Account, error) {
	return nil, nil
}

type stubTaskService struct {
	create   func(accountID uint, input service.CreateTaskInput) (*domain.Task, error)
	getByID  func(accountID, taskID uint) (*domain.Task, error)
	list     func(accountID uint, filter repository.TaskFilter, req repository.PageRequest) (repository.PageResult[domain.Task], error)
	update   func(accountID, taskID uint, input service.UpdateTaskInput) (*domain.Task, error)
	deleteFn func(accountID, taskID uint) error
}

func (s *stubTaskService) Create(_ context.Context, accountID uint, input service.CreateTaskInput) (*domain.Task, error) {
	return s.create(accountID, input)
}
func (s *stubTaskService) GetByID(_ context.Context, accountID, taskID uint) (*domain.Task, error) {
	return s.getByID(accountID, taskID)
}
func (s *stubTaskService) ListPaged(_ context.Context, accountID uint, filter repository.TaskFilter, req repository.PageRequest) (repository.PageResult[domain.Task], error) {
	return s.list(accountID, filter, req)
}
func (s *stubTaskService) Update(_ context.Context, accountID, taskID uint, input service.UpdateTaskInput) (*domain.Task, error) {
	return s.update(accountID, taskID, input)
}
func (s *stubTaskService) DeleteByID(_ context.Context, accountID, taskID uint) error {
	return s.deleteFn(accountID, taskID)
}

type stubProfileService struct {
	get          func(account *domain.Account) (*service.ProfileView, error)
	update       func(account *domain.Account, input service.UpdateProfileInput) (*service.ProfileView, error)
	setAvatar    func(account *domain.Account, file io.Reader, size int64, contentType string) (*service.ProfileView, error)
	removeAvatar func(account *domain.Account) error
}

func (s *stubProfileService) Get(_ context.Context, account *domain.Account) (*service.ProfileView, error) {
	return s.get(account)
}
func (s *stubProfileService) Update(_ context.Context, account *domain.Account, input service.UpdateProfileInput) (*service.ProfileView, error) {
	return s.update(account, input)
}
func (s *stubProfileService) SetAvatar(_ context.Context, account *domain.Account, file io.Reader, size int64, contentType string) (*service.ProfileView, error) {
	return s.setAvatar(account, file, size, contentType)
}
func (s *stubProfileService) RemoveAvatar(_ context.Context, account *domain.Account) error {
	return s.removeAvatar(account)
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withAccount(req *http.Request, accountID uint) *http.Request {
	account := &domain.Account{ID: accountID, Email: "owner@example.com", IsVerified: true}
	ctx := context.WithValue(req.Context(), middleware.AccountContextKey, account)
	return req.WithContext(ctx)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}
