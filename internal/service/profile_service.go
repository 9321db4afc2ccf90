package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/taskory/taskory/internal/domain"
	"github.com/taskory/taskory/internal/observability"
	"github.com/taskory/taskory/internal/repository"
)

var ErrStorageDisabled = errors.New("avatar storage is not enabled")

const (
	maxProfileNameLen        = 100
	maxProfileDescriptionLen = 500
)

var (
	ErrProfileInvalidName        = errors.New("first and last name must be at most 100 characters")
	ErrProfileInvalidDescription = errors.New("description must be at most 500 characters")
)

type UpdateProfileInput struct {
	FirstName   *string
	LastName    *string
	Description *string
}

// ProfileView is the read shape handlers render, combining the profile row
// with its account's identity fields.
type ProfileView struct {
	Email       string  `json:"email"`
	IsVerified  bool    `json:"is_verified"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	Description string  `json:"description"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

// ProfileServiceImpl reads and updates the per-account profile. The profile
// row itself is created together with the account, so lookups here treat a
// missing row as an internal inconsistency rather than user error.
type ProfileServiceImpl struct {
	profileRepo repository.ProfileRepository
	storage     StorageService // nil when avatar storage is disabled
}

func NewProfileService(profileRepo repository.ProfileRepository, storage StorageService) *ProfileServiceImpl {
	return &ProfileServiceImpl{profileRepo: profileRepo, storage: storage}
}

func (s *ProfileServiceImpl) Get(ctx context.Context, account *domain.Account) (*ProfileView, error) {
	profile, err := s.profileRepo.FindByAccountID(account.ID)
	if err != nil {
		return nil, err
	}
	view := &ProfileView{
		Email:       account.Email,
		IsVerified:  account.IsVerified,
		FirstName:   profile.FirstName,
		LastName:    profile.LastName,
		Description: profile.Description,
	}
	if s.storage != nil && profile.AvatarKey != "" {
		if url, err := s.storage.GenerateAvatarURL(ctx, profile.AvatarKey); err == nil {
			view.AvatarURL = &url
		}
	}
	return view, nil
}

func (s *ProfileServiceImpl) Update(ctx context.Context, account *domain.Account, input UpdateProfileInput) (*ProfileView, error) {
	outcome := "success"
	defer func() { observability.RecordProfileEvent(ctx, "update", outcome) }()

	updates := map[string]any{}
	if input.FirstName != nil {
		name := strings.TrimSpace(*input.FirstName)
		if len(name) > maxProfileNameLen {
			outcome = "bad_request"
			return nil, ErrProfileInvalidName
		}
		updates["first_name"] = name
	}
	if input.LastName != nil {
		name := strings.TrimSpace(*input.LastName)
		if len(name) > maxProfileNameLen {
			outcome = "bad_request"
			return nil, ErrProfileInvalidName
		}
		updates["last_name"] = name
	}
	if input.Description != nil {
		desc := strings.TrimSpace(*input.Description)
		if len(desc) > maxProfileDescriptionLen {
			outcome = "bad_request"
			return nil, ErrProfileInvalidDescription
		}
		updates["description"] = desc
	}
	if err := s.profileRepo.Update(account.ID, updates); err != nil {
		outcome = "error"
		return nil, err
	}
	return s.Get(ctx, account)
}

// SetAvatar uploads the image, records the new key, and removes the previous
// object. A failed cleanup of the old object is logged by storage metrics
// but does not fail the call.
func (s *ProfileServiceImpl) SetAvatar(ctx context.Context, account *domain.Account, file io.Reader, size int64, contentType string) (*ProfileView, error) {
	if s.storage == nil {
		return nil, ErrStorageDisabled
	}
	outcome := "success"
	defer func() { observability.RecordProfileEvent(ctx, "set_avatar", outcome) }()

	profile, err := s.profileRepo.FindByAccountID(account.ID)
	if err != nil {
		outcome = "error"
		return nil, err
	}
	newKey, err := s.storage.UploadAvatar(ctx, account.ID, file, size, contentType)
	if err != nil {
		outcome = "upload_failed"
		return nil, err
	}
	if err := s.profileRepo.SetAvatarKey(account.ID, newKey); err != nil {
		outcome = "error"
		_ = s.storage.DeleteAvatar(ctx, account.ID, newKey)
		return nil, err
	}
	if profile.AvatarKey != "" {
		_ = s.storage.DeleteAvatar(ctx, account.ID, profile.AvatarKey)
	}
	return s.Get(ctx, account)
}

// RemoveAvatar clears the stored avatar, if any.
func (s *ProfileServiceImpl) RemoveAvatar(ctx context.Context, account *domain.Account) error {
	if s.storage == nil {
		return ErrStorageDisabled
	}
	outcome := "success"
	defer func() { observability.RecordProfileEvent(ctx, "remove_avatar", outcome) }()

	profile, err := s.profileRepo.FindByAccountID(account.ID)
	if err != nil {
		outcome = "error"
		return err
	}
	if profile.AvatarKey == "" {
		return nil
	}
	if err := s.storage.DeleteAvatar(ctx, account.ID, profile.AvatarKey); err != nil {
		outcome = "delete_failed"
		return err
	}
	if err := s.profileRepo.SetAvatarKey(account.ID, ""); err != nil {
		outcome = "error"
		return err
	}
	return nil
}
