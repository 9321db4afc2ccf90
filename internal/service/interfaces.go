package service

import (
	"context"
	"io"

	"github.com/taskory/taskory/internal/domain"
	"github.com/taskory/taskory/internal/repository"
)

type AuthServiceInterface interface {
	Register(email, password string) (*domain.Account, error)
	Confirm(token string) error
	ResendConfirmation(email string) error
	Authenticate(email, password string) (*domain.Account, error)
	ChangePassword(accountID uint, currentPassword, newPassword string) error
}

type TokenServiceInterface interface {
	IssueOpaque(accountID uint) (string, bool, error)
	AuthenticateOpaque(key string) (*domain.Account, error)
	RevokeOpaque(accountID uint) error
	IssueSignedPair(accountID uint) (TokenPair, error)
	RefreshAccess(refreshToken string) (TokenPair, error)
	VerifySigned(token string) error
	AuthenticateSigned(token string) (*domain.Account, error)
}

type TaskServiceInterface interface {
	Create(ctx context.Context, accountID uint, input CreateTaskInput) (*domain.Task, error)
	GetByID(ctx context.Context, accountID, taskID uint) (*domain.Task, error)
	ListPaged(ctx context.Context, accountID uint, filter repository.TaskFilter, req repository.PageRequest) (repository.PageResult[domain.Task], error)
	Update(ctx context.Context, accountID, taskID uint, input UpdateTaskInput) (*domain.Task, error)
	DeleteByID(ctx context.Context, accountID, taskID uint) error
}

type ProfileServiceInterface interface {
	Get(ctx context.Context, account *domain.Account) (*ProfileView, error)
	Update(ctx context.Context, account *domain.Account, input UpdateProfileInput) (*ProfileView, error)
	SetAvatar(ctx context.Context, account *domain.Account, file io.Reader, size int64, contentType string) (*ProfileView, error)
	RemoveAvatar(ctx context.Context, account *domain.Account) error
}
