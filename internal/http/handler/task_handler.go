package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taskory/taskory/internal/http/middleware"
	"github.com/taskory/taskory/internal/http/response"
	"github.com/taskory/taskory/internal/observability"
	"github.com/taskory/taskory/internal/repository"
	"github.com/taskory/taskory/internal/service"
)

type TaskHandler struct {
	svc service.TaskServiceInterface
}

func NewTaskHandler(svc service.TaskServiceInterface) *TaskHandler {
	return &TaskHandler{svc: svc}
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}

	var body struct {
		Title  string `json:"title"`
		IsDone bool   `json:"is_done"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}

	created, err := h.svc.Create(r.Context(), account.ID, service.CreateTaskInput{
		Title:  body.Title,
		IsDone: body.IsDone,
	})
	if err != nil {
		if errors.Is(err, service.ErrTaskInvalidTitle) {
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to create task", nil)
		return
	}

	observability.Audit(r, "task.create", "account_id", account.ID, "task_id", created.ID)
	response.JSON(w, r, http.StatusCreated, created)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}

	pageReq, err := parsePageRequest(r)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	filter, err := parseTaskFilter(r)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}

	res, err := h.svc.ListPaged(r.Context(), account.ID, filter, pageReq)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to list tasks", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, paginatedData(res.Items, res.Page, res.PageSize, res.Total, res.TotalPages))
}

func (h *TaskHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	taskID, err := parsePathID(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid task id", nil)
		return
	}

	task, err := h.svc.GetByID(r.Context(), account.ID, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "task not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to load task", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	taskID, err := parsePathID(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid task id", nil)
		return
	}

	var body struct {
		Title  *string `json:"title"`
		IsDone *bool   `json:"is_done"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}

	updated, err := h.svc.Update(r.Context(), account.ID, taskID, service.UpdateTaskInput{
		Title:  body.Title,
		IsDone: body.IsDone,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTaskInvalidTitle), errors.Is(err, service.ErrTaskNoUpdates):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		case errors.Is(err, repository.ErrTaskNotFound):
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "task not found", nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to update task", nil)
		}
		return
	}

	observability.Audit(r, "task.update", "account_id", account.ID, "task_id", updated.ID)
	response.JSON(w, r, http.StatusOK, updated)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	taskID, err := parsePathID(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid task id", nil)
		return
	}

	if err := h.svc.DeleteByID(r.Context(), account.ID, taskID); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "task not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to delete task", nil)
		return
	}

	observability.Audit(r, "task.delete", "account_id", account.ID, "task_id", taskID)
	w.WriteHeader(http.StatusNoContent)
}

// parseTaskFilter reads the optional list filters: is_done, search, and a
// created_from/created_to RFC 3339 window.
func parseTaskFilter(r *http.Request) (repository.TaskFilter, error) {
	var filter repository.TaskFilter

	if raw := strings.TrimSpace(r.URL.Query().Get("is_done")); raw != "" {
		switch strings.ToLower(raw) {
		case "true", "1":
			v := true
			filter.IsDone = &v
		case "false", "0":
			v := false
			filter.IsDone = &v
		default:
			return repository.TaskFilter{}, errors.New("is_done must be true or false")
		}
	}

	filter.TitleSearch = strings.TrimSpace(r.URL.Query().Get("search"))

	for _, p := range []struct {
		name string
		dst  **time.Time
	}{
		{"created_from", &filter.CreatedFrom},
		{"created_to", &filter.CreatedTo},
	} {
		raw := strings.TrimSpace(r.URL.Query().Get(p.name))
		if raw == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return repository.TaskFilter{}, errors.New(p.name + " must be an RFC 3339 timestamp")
		}
		*p.dst = &ts
	}

	if filter.CreatedFrom != nil && filter.CreatedTo != nil && filter.CreatedTo.Before(*filter.CreatedFrom) {
		return repository.TaskFilter{}, errors.New("created_to must not precede created_from")
	}
	return filter, nil
}
