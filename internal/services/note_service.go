package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/AnshRaj112/mindmesh-backend/internal/models"
	"github.com/AnshRaj112/mindmesh-backend/internal/store"
	"github.com/AnshRaj112/mindmesh-backend/pkg/utils"
)

// NoteService manages private notes. Every operation is scoped to the
// caller.
type NoteService struct {
	store store.Store
}

func NewNoteService(st store.Store) *NoteService {
	return &NoteService{store: st}
}

type NoteInput struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

func (in *NoteInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	if in.Title == "" {
		return &utils.ValidationError{Field: "title", Message: "Title is required"}
	}
	in.Tags = dedupe(in.Tags)
	return nil
}

// NotesQuery is the live query for a user's notes. Pinning order is
// applied afterwards by SortNotes.
func NotesQuery(uid string) store.Query {
	return store.NewQuery(models.CollectionNotes).
		Where(models.FieldUserID, uid).
		Sort(models.FieldUpdatedAt, true)
}

// SortNotes orders pinned notes first, then most recently updated.
func SortNotes(notes []models.Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].Pinned != notes[j].Pinned {
			return notes[i].Pinned
		}
		return notes[i].UpdatedAt.After(notes[j].UpdatedAt)
	})
}

func (s *NoteService) List(ctx context.Context, session models.AuthSession) ([]models.Note, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	var notes []models.Note
	if err := s.store.Find(ctx, NotesQuery(session.UID), &notes); err != nil {
		return nil, err
	}
	SortNotes(notes)
	return notes, nil
}

func (s *NoteService) Create(ctx context.Context, session models.AuthSession, in NoteInput) (*models.Note, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := timeNow()
	n := &models.Note{
		ID:        uuid.NewString(),
		UserID:    session.UID,
		UserName:  session.Name(),
		Title:     in.Title,
		Content:   in.Content,
		Tags:      in.Tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Insert(ctx, models.CollectionNotes, n.ID, n); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return n, nil
}

func (s *NoteService) own(ctx context.Context, session models.AuthSession, id string) (*models.Note, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	var n models.Note
	if err := s.store.Get(ctx, models.CollectionNotes, id, &n); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoteNotFound
		}
		return nil, err
	}
	// Other users' notes are reported as missing.
	if n.UserID != session.UID {
		return nil, ErrNoteNotFound
	}
	return &n, nil
}

func (s *NoteService) Update(ctx context.Context, session models.AuthSession, id string, in NoteInput) (*models.Note, error) {
	n, err := s.own(ctx, session, id)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := timeNow()
	set := map[string]any{
		"title":               in.Title,
		"content":             in.Content,
		"tags":                in.Tags,
		models.FieldUpdatedAt: now,
	}
	if err := s.store.Update(ctx, models.CollectionNotes, id, set); err != nil {
		return nil, fmt.Errorf("update note: %w", err)
	}
	n.Title, n.Content, n.Tags, n.UpdatedAt = in.Title, in.Content, in.Tags, now
	return n, nil
}

// TogglePin flips the pinned flag and returns the new value.
func (s *NoteService) TogglePin(ctx context.Context, session models.AuthSession, id string) (bool, error) {
	n, err := s.own(ctx, session, id)
	if err != nil {
		return false, err
	}
	pinned := !n.Pinned
	if err := s.store.Update(ctx, models.CollectionNotes, id, map[string]any{models.FieldPinned: pinned}); err != nil {
		return false, fmt.Errorf("pin note: %w", err)
	}
	return pinned, nil
}

func (s *NoteService) Delete(ctx context.Context, session models.AuthSession, id string) error {
	if _, err := s.own(ctx, session, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, models.CollectionNotes, id)
}
