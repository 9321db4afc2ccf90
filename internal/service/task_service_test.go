package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/taskory/taskory/internal/domain"
	"github.com/taskory/taskory/internal/repository"
	repogomock "github.com/taskory/taskory/internal/repository/gomock"
)

type taskRepoState struct {
	nextID uint
	byID   map[uint]*domain.Task
}

func newTaskRepoState() *taskRepoState {
	return &taskRepoState{nextID: 1, byID: map[uint]*domain.Task{}}
}

func (r *taskRepoState) Create(task *domain.Task) error {
	task.ID = r.nextID
	r.nextID++
	stored := *task
	r.byID[task.ID] = &stored
	return nil
}

func (r *taskRepoState) FindByID(accountID, taskID uint) (*domain.Task, error) {
	task, ok := r.byID[taskID]
	if !ok || task.AccountID != accountID {
		return nil, repository.ErrTaskNotFound
	}
	cp := *task
	return &cp, nil
}

func (r *taskRepoState) ListPaged(accountID uint, filter repository.TaskFilter, req repository.PageRequest) (repository.PageResult[domain.Task], error) {
	var items []domain.Task
	for _, task := range r.byID {
		if task.AccountID != accountID {
			continue
		}
		if filter.IsDone != nil && task.IsDone != *filter.IsDone {
			continue
		}
		if filter.TitleSearch != "" && !strings.Contains(task.Title, filter.TitleSearch) {
			continue
		}
		items = append(items, *task)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	normalized := req.Normalize()
	return repository.PageResult[domain.Task]{
		Items:    items,
		Page:     normalized.Page,
		PageSize: normalized.PageSize,
		Total:    int64(len(items)),
	}, nil
}

func (r *taskRepoState) Update(accountID, taskID uint, updates map[string]any) error {
	task, ok := r.byID[taskID]
	if !ok || task.AccountID != accountID {
		return repository.ErrTaskNotFound
	}
	if v, ok := updates["title"]; ok {
		task.Title = v.(string)
	}
	if v, ok := updates["is_done"]; ok {
		task.IsDone = v.(bool)
	}
	return nil
}

func (r *taskRepoState) DeleteByID(accountID, taskID uint) error {
	task, ok := r.byID[taskID]
	if !ok || task.AccountID != accountID {
		return repository.ErrTaskNotFound
	}
	delete(r.byID, taskID)
	return nil
}

func (r *taskRepoState) DeleteCompletedForVerified() (int64, error) {
	var deleted int64
	for id, task := range r.byID {
		if task.IsDone {
			delete(r.byID, id)
			deleted++
		}
	}
	return deleted, nil
}

func newTaskServiceFixture() (*TaskServiceImpl, *taskRepoState) {
	state := newTaskRepoState()
	ctrl := gomock.NewController(tNop{})
	mock := repogomock.NewMockTaskRepository(ctrl)
	mock.EXPECT().Create(gomock.Any()).AnyTimes().DoAndReturn(state.Create)
	mock.EXPECT().FindByID(gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(state.FindByID)
	mock.EXPECT().ListPaged(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(state.ListPaged)
	mock.EXPECT().Update(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(state.Update)
	mock.EXPECT().DeleteByID(gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(state.DeleteByID)
	mock.EXPECT().DeleteCompletedForVerified().AnyTimes().DoAndReturn(state.DeleteCompletedForVerified)
	return NewTaskService(mock), state
}

func TestTaskServiceCreateValidation(t *testing.T) {
	svc, _ := newTaskServiceFixture()
	ctx := context.Background()

	if _, err := svc.Create(ctx, 1, CreateTaskInput{Title: "   "}); !errors.Is(err, ErrTaskInvalidTitle) {
		t.Fatalf("expected ErrTaskInvalidTitle for blank title, got %v", err)
	}
	if _, err := svc.Create(ctx, 1, CreateTaskInput{Title: strings.Repeat("x", 226)}); !errors.Is(err, ErrTaskInvalidTitle) {
		t.Fatalf("expected ErrTaskInvalidTitle for oversized title, got %v", err)
	}

	task, err := svc.Create(ctx, 1, CreateTaskInput{Title: "  write tests  "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Title != "write tests" {
		t.Fatalf("expected trimmed title, got %q", task.Title)
	}
	if task.IsDone {
		t.Fatal("new task must start open")
	}
}

func TestTaskServiceUpdate(t *testing.T) {
	svc, _ := newTaskServiceFixture()
	ctx := context.Background()

	task, err := svc.Create(ctx, 1, CreateTaskInput{Title: "original"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Update(ctx, 1, task.ID, UpdateTaskInput{}); !errors.Is(err, ErrTaskNoUpdates) {
		t.Fatalf("expected ErrTaskNoUpdates, got %v", err)
	}

	title := "renamed"
	done := true
	updated, err := svc.Update(ctx, 1, task.ID, UpdateTaskInput{Title: &title, IsDone: &done})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "renamed" || !updated.IsDone {
		t.Fatalf("unexpected result %+v", updated)
	}

	bad := ""
	if _, err := svc.Update(ctx, 1, task.ID, UpdateTaskInput{Title: &bad}); !errors.Is(err, ErrTaskInvalidTitle) {
		t.Fatalf("expected ErrTaskInvalidTitle, got %v", err)
	}

	// Another account cannot touch the task.
	if _, err := svc.Update(ctx, 2, task.ID, UpdateTaskInput{Title: &title}); !errors.Is(err, repository.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound for foreign account, got %v", err)
	}
}

func TestTaskServiceDelete(t *testing.T) {
	svc, _ := newTaskServiceFixture()
	ctx := context.Background()

	task, err := svc.Create(ctx, 1, CreateTaskInput{Title: "temp"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.DeleteByID(ctx, 2, task.ID); !errors.Is(err, repository.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound for foreign delete, got %v", err)
	}
	if err := svc.DeleteByID(ctx, 1, task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetByID(ctx, 1, task.ID); !errors.Is(err, repository.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound after delete, got %v", err)
	}
}

func TestTaskServiceListPaged(t *testing.T) {
	svc, _ := newTaskServiceFixture()
	ctx := context.Background()

	for _, title := range []string{"alpha", "beta", "gamma"} {
		if _, err := svc.Create(ctx, 1, CreateTaskInput{Title: title}); err != nil {
			t.Fatalf("create %q: %v", title, err)
		}
	}
	if _, err := svc.Create(ctx, 2, CreateTaskInput{Title: "foreign"}); err != nil {
		t.Fatalf("create foreign: %v", err)
	}

	page, err := svc.ListPaged(ctx, 1, repository.TaskFilter{}, repository.PageRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 3 {
		t.Fatalf("expected only the owner's 3 tasks, got %d", page.Total)
	}
}
