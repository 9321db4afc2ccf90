package service

import (
	"context"
	"errors"
	"strings"

	"github.com/taskory/taskory/internal/domain"
	"github.com/taskory/taskory/internal/observability"
	"github.com/taskory/taskory/internal/repository"
)

var (
	ErrTaskInvalidTitle = errors.New("title must be between 1 and 225 characters")
	ErrTaskNoUpdates    = errors.New("no updates provided")
)

const maxTaskTitleLen = 225

type CreateTaskInput struct {
	Title  string
	IsDone bool
}

type UpdateTaskInput struct {
	Title  *string
	IsDone *bool
}

// TaskServiceImpl enforces task validation on top of the owner-scoped
// repository. Every call carries the owning account id; cross-account access
// surfaces as ErrTaskNotFound, never as a permission error.
type TaskServiceImpl struct {
	repo repository.TaskRepository
}

func NewTaskService(repo repository.TaskRepository) *TaskServiceImpl {
	return &TaskServiceImpl{repo: repo}
}

func (s *TaskServiceImpl) Create(ctx context.Context, accountID uint, input CreateTaskInput) (*domain.Task, error) {
	outcome := "success"
	defer func() { observability.RecordTaskMutation(ctx, "create", outcome) }()

	title := strings.TrimSpace(input.Title)
	if title == "" || len(title) > maxTaskTitleLen {
		outcome = "bad_request"
		return nil, ErrTaskInvalidTitle
	}
	task := &domain.Task{AccountID: accountID, Title: title, IsDone: input.IsDone}
	if err := s.repo.Create(task); err != nil {
		outcome = "error"
		return nil, err
	}
	return task, nil
}

func (s *TaskServiceImpl) GetByID(ctx context.Context, accountID, taskID uint) (*domain.Task, error) {
	task, err := s.repo.FindByID(accountID, taskID)
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskServiceImpl) ListPaged(ctx context.Context, accountID uint, filter repository.TaskFilter, req repository.PageRequest) (repository.PageResult[domain.Task], error) {
	observability.RecordTaskListPageSize(ctx, req.Normalize().PageSize)
	return s.repo.ListPaged(accountID, filter, req)
}

func (s *TaskServiceImpl) Update(ctx context.Context, accountID, taskID uint, input UpdateTaskInput) (*domain.Task, error) {
	outcome := "success"
	defer func() { observability.RecordTaskMutation(ctx, "update", outcome) }()

	updates := map[string]any{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" || len(title) > maxTaskTitleLen {
			outcome = "bad_request"
			return nil, ErrTaskInvalidTitle
		}
		updates["title"] = title
	}
	if input.IsDone != nil {
		updates["is_done"] = *input.IsDone
	}
	if len(updates) == 0 {
		outcome = "bad_request"
		return nil, ErrTaskNoUpdates
	}

	if err := s.repo.Update(accountID, taskID, updates); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			outcome = "not_found"
		} else {
			outcome = "error"
		}
		return nil, err
	}
	return s.repo.FindByID(accountID, taskID)
}

func (s *TaskServiceImpl) DeleteByID(ctx context.Context, accountID, taskID uint) error {
	outcome := "success"
	defer func() { observability.RecordTaskMutation(ctx, "delete", outcome) }()

	if err := s.repo.DeleteByID(accountID, taskID); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			outcome = "not_found"
		} else {
			outcome = "error"
		}
		return err
	}
	return nil
}
