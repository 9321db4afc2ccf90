package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/taskory/taskory/internal/domain"
)

func seedTaskAccount(t *testing.T, repo AccountRepository, email string, verified bool) *domain.Account {
	t.Helper()
	account := &domain.Account{Email: email, PasswordHash: "hash"}
	if err := repo.CreateWithProfile(account); err != nil {
		t.Fatalf("create account %s: %v", email, err)
	}
	if verified {
		if err := repo.MarkVerified(account.ID); err != nil {
			t.Fatalf("mark verified %s: %v", email, err)
		}
	}
	return account
}

func TestTaskRepositoryOwnerScoping(t *testing.T) {
	db := newRepositoryDBForTest(t)
	migrateAllForTest(t, db)
	accounts := NewAccountRepository(db)
	tasks := NewTaskRepository(db)

	owner := seedTaskAccount(t, accounts, "owner@example.com", true)
	other := seedTaskAccount(t, accounts, "other@example.com", true)

	task := &domain.Task{AccountID: owner.ID, Title: "write report"}
	if err := tasks.Create(task); err != nil {
		t.Fatalf("create task: %v", err)
	}

	if _, err := tasks.FindByID(owner.ID, task.ID); err != nil {
		t.Fatalf("owner lookup: %v", err)
	}
	// A foreign task id behaves exactly like a missing one.
	if _, err := tasks.FindByID(other.ID, task.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound for foreign owner, got %v", err)
	}
	if err := tasks.Update(other.ID, task.ID, map[string]any{"title": "hijacked"}); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound on foreign update, got %v", err)
	}
	if err := tasks.DeleteByID(other.ID, task.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound on foreign delete, got %v", err)
	}
	if err := tasks.DeleteByID(owner.ID, task.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
}

func TestTaskRepositoryListPagedFilters(t *testing.T) {
	db := newRepositoryDBForTest(t)
	migrateAllForTest(t, db)
	accounts := NewAccountRepository(db)
	tasks := NewTaskRepository(db)

	owner := seedTaskAccount(t, accounts, "lister@example.com", true)
	titles := []struct {
		title string
		done  bool
	}{
		{"buy milk", false},
		{"buy bread", true},
		{"file taxes", true},
		{"walk dog", false},
	}
	for _, tt := range titles {
		if err := tasks.Create(&domain.Task{AccountID: owner.ID, Title: tt.title, IsDone: tt.done}); err != nil {
			t.Fatalf("create %q: %v", tt.title, err)
		}
	}

	page, err := tasks.ListPaged(owner.ID, TaskFilter{}, PageRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 4 {
		t.Fatalf("expected 4 tasks, got %d", page.Total)
	}
	// Completed tasks sort before open ones.
	if !page.Items[0].IsDone || !page.Items[1].IsDone {
		t.Fatalf("expected completed tasks first, got %+v", page.Items)
	}

	done := true
	page, err = tasks.ListPaged(owner.ID, TaskFilter{IsDone: &done}, PageRequest{})
	if err != nil {
		t.Fatalf("list done: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("expected 2 done tasks, got %d", page.Total)
	}

	page, err = tasks.ListPaged(owner.ID, TaskFilter{TitleSearch: "buy"}, PageRequest{})
	if err != nil {
		t.Fatalf("list search: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("expected 2 matches for \"buy\", got %d", page.Total)
	}

	future := time.Now().Add(time.Hour)
	page, err = tasks.ListPaged(owner.ID, TaskFilter{CreatedFrom: &future}, PageRequest{})
	if err != nil {
		t.Fatalf("list window: %v", err)
	}
	if page.Total != 0 {
		t.Fatalf("expected no tasks created in the future, got %d", page.Total)
	}
}

func TestTaskRepositoryListPagedPagination(t *testing.T) {
	db := newRepositoryDBForTest(t)
	migrateAllForTest(t, db)
	accounts := NewAccountRepository(db)
	tasks := NewTaskRepository(db)

	owner := seedTaskAccount(t, accounts, "pager@example.com", true)
	for i := 0; i < 5; i++ {
		if err := tasks.Create(&domain.Task{AccountID: owner.ID, Title: "task"}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	page, err := tasks.ListPaged(owner.ID, TaskFilter{}, PageRequest{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(page.Items) != 2 || page.Total != 5 || page.TotalPages != 3 {
		t.Fatalf("unexpected page shape: items=%d total=%d pages=%d", len(page.Items), page.Total, page.TotalPages)
	}
}

func TestTaskRepositoryDeleteCompletedForVerified(t *testing.T) {
	db := newRepositoryDBForTest(t)
	migrateAllForTest(t, db)
	accounts := NewAccountRepository(db)
	tasks := NewTaskRepository(db)

	verified := seedTaskAccount(t, accounts, "verified@example.com", true)
	unverified := seedTaskAccount(t, accounts, "pending@example.com", false)

	fixtures := []domain.Task{
		{AccountID: verified.ID, Title: "done verified", IsDone: true},
		{AccountID: verified.ID, Title: "open verified", IsDone: false},
		{AccountID: unverified.ID, Title: "done unverified", IsDone: true},
	}
	for i := range fixtures {
		if err := tasks.Create(&fixtures[i]); err != nil {
			t.Fatalf("create fixture: %v", err)
		}
	}

	deleted, err := tasks.DeleteCompletedForVerified()
	if err != nil {
		t.Fatalf("reap: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected exactly the verified completed task removed, got %d", deleted)
	}
	if _, err := tasks.FindByID(verified.ID, fixtures[1].ID); err != nil {
		t.Fatalf("open task should survive: %v", err)
	}
	if _, err := tasks.FindByID(unverified.ID, fixtures[2].ID); err != nil {
		t.Fatalf("unverified owner's task should survive: %v", err)
	}
}
