package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AnshRaj112/mindmesh-backend/internal/models"
	"github.com/AnshRaj112/mindmesh-backend/internal/store"
	"github.com/AnshRaj112/mindmesh-backend/pkg/utils"
)

const profileFolder = "profiles"

// ProfileService manages the public profile stored next to the app data.
// Credentials live in the auth service.
type ProfileService struct {
	store    store.Store
	uploader Uploader
}

func NewProfileService(st store.Store, up Uploader) *ProfileService {
	return &ProfileService{store: st, uploader: up}
}

// EnsureProfile returns the caller's profile, creating it with defaults
// on first sign-in.
func (s *ProfileService) EnsureProfile(ctx context.Context, session models.AuthSession) (*models.UserProfile, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	p, err := s.Get(ctx, session.UID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrProfileNotFound) {
		return nil, err
	}

	p = &models.UserProfile{
		UID:         session.UID,
		DisplayName: session.Name(),
		PhotoURL:    session.PhotoURL,
		Interests:   []string{},
	}
	if err := s.store.Insert(ctx, models.CollectionUsers, p.UID, p); err != nil {
		// Lost a race with a concurrent first sign-in.
		if errors.Is(err, store.ErrDuplicateID) {
			return s.Get(ctx, session.UID)
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return p, nil
}

func (s *ProfileService) Get(ctx context.Context, uid string) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := s.store.Get(ctx, models.CollectionUsers, uid, &p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ProfileUpdate carries optional changes; nil fields are left alone.
type ProfileUpdate struct {
	DisplayName *string  `json:"display_name"`
	Interests   []string `json:"interests"`
	DarkMode    *bool    `json:"dark_mode"`
	Description *string  `json:"description"`
}

// Update applies the caller's changes to their own profile.
func (s *ProfileService) Update(ctx context.Context, session models.AuthSession, in ProfileUpdate) (*models.UserProfile, error) {
	p, err := s.EnsureProfile(ctx, session)
	if err != nil {
		return nil, err
	}

	set := map[string]any{}
	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		if name == "" {
			return nil, &utils.ValidationError{Field: "display_name", Message: "Display name cannot be empty"}
		}
		if err := CheckContent("display_name", name); err != nil {
			return nil, err
		}
		set["displayName"] = name
		p.DisplayName = name
	}
	if in.Interests != nil {
		interests := dedupe(in.Interests)
		set["interests"] = interests
		p.Interests = interests
	}
	if in.DarkMode != nil {
		set["darkMode"] = *in.DarkMode
		p.DarkMode = *in.DarkMode
	}
	if in.Description != nil {
		desc := strings.TrimSpace(*in.Description)
		if err := CheckContent("description", desc); err != nil {
			return nil, err
		}
		set["description"] = desc
		p.Description = desc
	}
	if len(set) == 0 {
		return p, nil
	}
	if err := s.store.Update(ctx, models.CollectionUsers, p.UID, set); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return p, nil
}

// UploadPhoto stores a new profile photo and returns its URL.
func (s *ProfileService) UploadPhoto(ctx context.Context, session models.AuthSession, img ImageUpload) (string, error) {
	p, err := s.EnsureProfile(ctx, session)
	if err != nil {
		return "", err
	}
	if err := ValidateImage(img); err != nil {
		return "", err
	}
	if s.uploader == nil {
		return "", ErrUploadsDisabled
	}
	url, err := s.uploader.Upload(ctx, img.Reader, profileFolder)
	if err != nil {
		return "", err
	}
	if err := s.store.Update(ctx, models.CollectionUsers, p.UID, map[string]any{"photoURL": url}); err != nil {
		return "", fmt.Errorf("update profile photo: %w", err)
	}
	return url, nil
}
