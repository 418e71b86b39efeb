package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/AnshRaj112/mindmesh-backend/internal/models"
	"github.com/AnshRaj112/mindmesh-backend/internal/store"
	"github.com/AnshRaj112/mindmesh-backend/pkg/utils"
)

const (
	MaxImageSize    = 5 << 20
	moodboardFolder = "moodboards"
)

// MoodboardService manages the shared image board.
type MoodboardService struct {
	store    store.Store
	uploader Uploader
}

func NewMoodboardService(st store.Store, up Uploader) *MoodboardService {
	return &MoodboardService{store: st, uploader: up}
}

// ImageUpload describes an uploaded file before it reaches storage.
type ImageUpload struct {
	Reader      io.Reader
	Size        int64
	ContentType string
}

// ValidateImage accepts image content types up to MaxImageSize.
func ValidateImage(img ImageUpload) error {
	if !strings.HasPrefix(strings.ToLower(img.ContentType), "image/") {
		return &utils.ValidationError{Field: "image", Message: "Only image files are allowed"}
	}
	if img.Size > MaxImageSize {
		return &utils.ValidationError{
			Field:   "image",
			Message: fmt.Sprintf("Image is %s; the limit is %s", humanize.Bytes(uint64(img.Size)), humanize.Bytes(MaxImageSize)),
		}
	}
	return nil
}

// MoodboardQuery lists all items, newest first.
func MoodboardQuery() store.Query {
	return store.NewQuery(models.CollectionMoodboards).Sort(models.FieldCreatedAt, true)
}

func (s *MoodboardService) List(ctx context.Context) ([]models.MoodboardItem, error) {
	var items []models.MoodboardItem
	if err := s.store.Find(ctx, MoodboardQuery(), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Create uploads the image and records it on the board.
func (s *MoodboardService) Create(ctx context.Context, session models.AuthSession, title, description string, img ImageUpload) (*models.MoodboardItem, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, &utils.ValidationError{Field: "title", Message: "Title is required"}
	}
	if err := CheckContent("title", title); err != nil {
		return nil, err
	}
	if err := ValidateImage(img); err != nil {
		return nil, err
	}

	if s.uploader == nil {
		return nil, ErrUploadsDisabled
	}
	url, err := s.uploader.Upload(ctx, io.LimitReader(img.Reader, MaxImageSize+1), moodboardFolder)
	if err != nil {
		return nil, err
	}

	item := &models.MoodboardItem{
		ID:          uuid.NewString(),
		UserID:      session.UID,
		UserName:    session.Name(),
		Title:       title,
		Description: strings.TrimSpace(description),
		ImageURL:    url,
		CreatedAt:   timeNow(),
	}
	if err := s.store.Insert(ctx, models.CollectionMoodboards, item.ID, item); err != nil {
		return nil, fmt.Errorf("create mood board item: %w", err)
	}
	return item, nil
}

func (s *MoodboardService) Delete(ctx context.Context, session models.AuthSession, id string) error {
	if err := requireSession(session); err != nil {
		return err
	}
	var item models.MoodboardItem
	if err := s.store.Get(ctx, models.CollectionMoodboards, id, &item); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrMoodboardNotFound
		}
		return err
	}
	if item.UserID != session.UID {
		return ErrForbidden
	}
	return s.store.Delete(ctx, models.CollectionMoodboards, id)
}
