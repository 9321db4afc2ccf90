package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/taskory/taskory/internal/http/middleware"
	"github.com/taskory/taskory/internal/http/response"
	"github.com/taskory/taskory/internal/observability"
	"github.com/taskory/taskory/internal/repository"
	"github.com/taskory/taskory/internal/service"
)

const maxAvatarBytes = 5 << 20

type ProfileHandler struct {
	svc service.ProfileServiceInterface
}

func NewProfileHandler(svc service.ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{svc: svc}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}

	view, err := h.svc.Get(r.Context(), account)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "profile not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to load profile", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, view)
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}

	var body struct {
		FirstName   *string `json:"first_name"`
		LastName    *string `json:"last_name"`
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}

	view, err := h.svc.Update(r.Context(), account, service.UpdateProfileInput{
		FirstName:   body.FirstName,
		LastName:    body.LastName,
		Description: body.Description,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProfileInvalidName), errors.Is(err, service.ErrProfileInvalidDescription):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		case errors.Is(err, repository.ErrProfileNotFound):
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "profile not found", nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to update profile", nil)
		}
		return
	}

	observability.Audit(r, "profile.update", "account_id", account.ID)
	response.JSON(w, r, http.StatusOK, view)
}

// UploadAvatar accepts a multipart form with an "avatar" file part and
// replaces the account's stored avatar.
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}

	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid multipart form", nil)
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "missing avatar file", nil)
		return
	}
	defer file.Close()

	if header.Size > maxAvatarBytes {
		response.Error(w, r, http.StatusRequestEntityTooLarge, "TOO_LARGE", "avatar exceeds the size limit", nil)
		return
	}

	view, err := h.svc.SetAvatar(r.Context(), account, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		if errors.Is(err, service.ErrStorageDisabled) {
			response.Error(w, r, http.StatusNotImplemented, "STORAGE_DISABLED", err.Error(), nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to store avatar", nil)
		return
	}

	observability.Audit(r, "profile.avatar.upload", "account_id", account.ID, "bytes", header.Size)
	response.JSON(w, r, http.StatusOK, view)
}

func (h *ProfileHandler) RemoveAvatar(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}

	if err := h.svc.RemoveAvatar(r.Context(), account); err != nil {
		switch {
		case errors.Is(err, service.ErrStorageDisabled):
			response.Error(w, r, http.StatusNotImplemented, "STORAGE_DISABLED", err.Error(), nil)
		case errors.Is(err, repository.ErrProfileNotFound):
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "profile not found", nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to remove avatar", nil)
		}
		return
	}

	observability.Audit(r, "profile.avatar.remove", "account_id", account.ID)
	w.WriteHeader(http.StatusNoContent)
}
