package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/taskory/taskory/internal/domain"
	"github.com/taskory/taskory/internal/observability"
)

var ErrTaskNotFound = errors.New("task not found")

// TaskFilter narrows an owner's task list. Zero values mean "no constraint".
type TaskFilter struct {
	IsDone      *bool
	TitleSearch string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// Every method is scoped to one owning account; a task id belonging to a
// different account behaves exactly like a missing task.
type TaskRepository interface {
	Create(task *domain.Task) error
	FindByID(accountID, taskID uint) (*domain.Task, error)
	ListPaged(accountID uint, filter TaskFilter, req PageRequest) (PageResult[domain.Task], error)
	Update(accountID, taskID uint, updates map[string]any) error
	DeleteByID(accountID, taskID uint) error
	// DeleteCompletedForVerified removes finished tasks of verified accounts,
	// returning how many rows went away.
	DeleteCompletedForVerified() (int64, error)
}

type GormTaskRepository struct{ db *gorm.DB }

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

func (r *GormTaskRepository) Create(task *domain.Task) error {
	if err := r.db.Create(task).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "task", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "task", "create", "success")
	return nil
}

func (r *GormTaskRepository) FindByID(accountID, taskID uint) (*domain.Task, error) {
	var task domain.Task
	err := r.db.Where("account_id = ? AND id = ?", accountID, taskID).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "task", "find_by_id", "not_found")
			return nil, ErrTaskNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "task", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "task", "find_by_id", "success")
	return &task, nil
}

func (r *GormTaskRepository) ListPaged(accountID uint, filter TaskFilter, req PageRequest) (PageResult[domain.Task], error) {
	normalized := req.Normalize()
	result := PageResult[domain.Task]{Page: normalized.Page, PageSize: normalized.PageSize}

	scope := func() *gorm.DB {
		q := r.db.Model(&domain.Task{}).Where("account_id = ?", accountID)
		if filter.IsDone != nil {
			q = q.Where("is_done = ?", *filter.IsDone)
		}
		if filter.TitleSearch != "" {
			q = q.Where("title LIKE ?", "%"+filter.TitleSearch+"%")
		}
		if filter.CreatedFrom != nil {
			q = q.Where("created_at >= ?", *filter.CreatedFrom)
		}
		if filter.CreatedTo != nil {
			q = q.Where("created_at <= ?", *filter.CreatedTo)
		}
		return q
	}

	if err := scope().Count(&result.Total).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "task", "list_paged", "error")
		return PageResult[domain.Task]{}, err
	}
	// Completed tasks first, newest within each group.
	err := scope().Order("is_done desc, id desc").
		Offset(normalized.Offset()).Limit(normalized.PageSize).
		Find(&result.Items).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "task", "list_paged", "error")
		return PageResult[domain.Task]{}, err
	}
	result.TotalPages = totalPages(result.Total, normalized.PageSize)
	observability.RecordRepositoryOperation(context.Background(), "task", "list_paged", "success")
	return result, nil
}

func (r *GormTaskRepository) Update(accountID, taskID uint, updates map[string]any) error {
	updates["updated_at"] = time.Now().UTC()
	res := r.db.Model(&domain.Task{}).Where("account_id = ? AND id = ?", accountID, taskID).Updates(updates)
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "task", "update", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "task", "update", "not_found")
		return ErrTaskNotFound
	}
	observability.RecordRepositoryOperation(context.Background(), "task", "update", "success")
	return nil
}

func (r *GormTaskRepository) DeleteByID(accountID, taskID uint) error {
	res := r.db.Where("account_id = ?", accountID).Delete(&domain.Task{}, taskID)
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "task", "delete_by_id", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "task", "delete_by_id", "not_found")
		return ErrTaskNotFound
	}
	observability.RecordRepositoryOperation(context.Background(), "task", "delete_by_id", "success")
	return nil
}

func (r *GormTaskRepository) DeleteCompletedForVerified() (int64, error) {
	res := r.db.Where("is_done = ? AND account_id IN (?)", true,
		r.db.Model(&domain.Account{}).Select("id").Where("is_verified = ?", true),
	).Delete(&domain.Task{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "task", "reap_completed", "error")
		return 0, res.Error
	}
	observability.RecordRepositoryOperation(context.Background(), "task", "reap_completed", "success")
	return res.RowsAffected, nil
}
