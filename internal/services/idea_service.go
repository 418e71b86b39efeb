package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/AnshRaj112/mindmesh-backend/internal/models"
	"github.com/AnshRaj112/mindmesh-backend/internal/store"
	"github.com/AnshRaj112/mindmesh-backend/pkg/utils"
)

// Categories accepted on the idea board.
var IdeaCategories = []string{"project", "study", "research", "presentation", "thesis", "group-work"}

// IdeaService manages the shared idea board.
type IdeaService struct {
	store         store.Store
	notifications *NotificationService
}

func NewIdeaService(st store.Store, notifications *NotificationService) *IdeaService {
	return &IdeaService{store: st, notifications: notifications}
}

type IdeaInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
}

func (in *IdeaInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.ToLower(strings.TrimSpace(in.Category))
	if in.Title == "" {
		return &utils.ValidationError{Field: "title", Message: "Title is required"}
	}
	if in.Description == "" {
		return &utils.ValidationError{Field: "description", Message: "Description is required"}
	}
	if in.Category == "" {
		return &utils.ValidationError{Field: "category", Message: "Category is required"}
	}
	valid := false
	for _, c := range IdeaCategories {
		if c == in.Category {
			valid = true
			break
		}
	}
	if !valid {
		return &utils.ValidationError{Field: "category", Message: "Unknown category"}
	}
	if err := CheckContent("title", in.Title); err != nil {
		return err
	}
	if err := CheckContent("description", in.Description); err != nil {
		return err
	}
	in.Tags = dedupe(in.Tags)
	return nil
}

// IdeasQuery is the live query for the board, optionally filtered by
// category.
func IdeasQuery(category string) store.Query {
	q := store.NewQuery(models.CollectionIdeas).Sort(models.FieldCreatedAt, true)
	if category = strings.ToLower(strings.TrimSpace(category)); category != "" && category != "all" {
		q = q.Where(models.FieldCategory, category)
	}
	return q
}

func (s *IdeaService) List(ctx context.Context, category string) ([]models.Idea, error) {
	var ideas []models.Idea
	if err := s.store.Find(ctx, IdeasQuery(category), &ideas); err != nil {
		return nil, err
	}
	return ideas, nil
}

func (s *IdeaService) Create(ctx context.Context, session models.AuthSession, in IdeaInput) (*models.Idea, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	idea := &models.Idea{
		ID:          uuid.NewString(),
		UserID:      session.UID,
		UserName:    session.Name(),
		UserPhoto:   session.PhotoURL,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Tags:        in.Tags,
		LikedBy:     []string{},
		Comments:    []models.Comment{},
		CreatedAt:   timeNow(),
	}
	if err := s.store.Insert(ctx, models.CollectionIdeas, idea.ID, idea); err != nil {
		return nil, fmt.Errorf("create idea: %w", err)
	}
	return idea, nil
}

func (s *IdeaService) Get(ctx context.Context, id string) (*models.Idea, error) {
	var idea models.Idea
	if err := s.store.Get(ctx, models.CollectionIdeas, id, &idea); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrIdeaNotFound
		}
		return nil, err
	}
	return &idea, nil
}

func (s *IdeaService) ownIdea(ctx context.Context, session models.AuthSession, id string) (*models.Idea, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	idea, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if idea.UserID != session.UID {
		return nil, ErrForbidden
	}
	return idea, nil
}

func (s *IdeaService) Update(ctx context.Context, session models.AuthSession, id string, in IdeaInput) (*models.Idea, error) {
	idea, err := s.ownIdea(ctx, session, id)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := timeNow()
	set := map[string]any{
		"title":               in.Title,
		"description":         in.Description,
		models.FieldCategory:  in.Category,
		"tags":                in.Tags,
		models.FieldUpdatedAt: now,
	}
	if err := s.store.Update(ctx, models.CollectionIdeas, id, set); err != nil {
		return nil, fmt.Errorf("update idea: %w", err)
	}
	idea.Title, idea.Description, idea.Category, idea.Tags, idea.UpdatedAt = in.Title, in.Description, in.Category, in.Tags, now
	return idea, nil
}

func (s *IdeaService) Delete(ctx context.Context, session models.AuthSession, id string) error {
	if _, err := s.ownIdea(ctx, session, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, models.CollectionIdeas, id)
}

// ToggleLike adds or removes the caller's like and returns the new count.
func (s *IdeaService) ToggleLike(ctx context.Context, session models.AuthSession, id string) (int, error) {
	if err := requireSession(session); err != nil {
		return 0, err
	}
	idea, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}

	liked := false
	for _, uid := range idea.LikedBy {
		if uid == session.UID {
			liked = true
			break
		}
	}
	if liked {
		err = s.store.Pull(ctx, models.CollectionIdeas, id, models.FieldLikedBy, session.UID)
	} else {
		err = s.store.AddToSet(ctx, models.CollectionIdeas, id, models.FieldLikedBy, session.UID)
	}
	if err != nil {
		return 0, fmt.Errorf("toggle like: %w", err)
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return updated.Likes(), nil
}

func validateComment(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &utils.ValidationError{Field: "text", Message: "Comment cannot be empty"}
	}
	if len([]rune(text)) > MaxMessageLength {
		return "", &utils.ValidationError{Field: "text", Message: fmt.Sprintf("Comment must be at most %d characters", MaxMessageLength)}
	}
	return text, CheckContent("text", text)
}

// AddComment appends a comment and notifies the idea's owner.
func (s *IdeaService) AddComment(ctx context.Context, session models.AuthSession, ideaID, text string) (*models.Comment, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	text, err := validateComment(text)
	if err != nil {
		return nil, err
	}
	idea, err := s.Get(ctx, ideaID)
	if err != nil {
		return nil, err
	}

	c := &models.Comment{
		ID:        uuid.NewString(),
		Text:      text,
		UserID:    session.UID,
		UserName:  session.Name(),
		UserPhoto: session.PhotoURL,
		CreatedAt: timeNow(),
	}
	if err := s.store.AddToSet(ctx, models.CollectionIdeas, ideaID, models.FieldComments, c); err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}

	if s.notifications != nil && idea.UserID != session.UID {
		msg := fmt.Sprintf("%s commented on your idea \"%s\"", session.Name(), idea.Title)
		if _, err := s.notifications.Notify(ctx, idea.UserID, models.NotificationPost, msg, "/ideaboard?idea="+idea.ID); err != nil {
			return c, fmt.Errorf("notify idea owner: %w", err)
		}
	}
	return c, nil
}

// EditComment replaces the text of the caller's own comment.
func (s *IdeaService) EditComment(ctx context.Context, session models.AuthSession, ideaID, commentID, text string) error {
	text, err := validateComment(text)
	if err != nil {
		return err
	}
	match, err := s.ownComment(ctx, session, ideaID, commentID)
	if err != nil {
		return err
	}
	return s.store.UpdateElements(ctx, models.CollectionIdeas, ideaID, models.FieldComments, match, map[string]any{"text": text})
}

// DeleteComment removes the caller's own comment.
func (s *IdeaService) DeleteComment(ctx context.Context, session models.AuthSession, ideaID, commentID string) error {
	match, err := s.ownComment(ctx, session, ideaID, commentID)
	if err != nil {
		return err
	}
	return s.store.PullMatching(ctx, models.CollectionIdeas, ideaID, models.FieldComments, match)
}

// ownComment checks that commentID exists on the idea and belongs to the
// caller, and returns the element match for an in-place array update.
// Other comments are never rewritten, so concurrent additions survive.
func (s *IdeaService) ownComment(ctx context.Context, session models.AuthSession, ideaID, commentID string) (map[string]any, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	idea, err := s.Get(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	for _, c := range idea.Comments {
		if c.ID != commentID {
			continue
		}
		if c.UserID != session.UID {
			return nil, ErrForbidden
		}
		return map[string]any{"id": commentID, "userId": session.UID}, nil
	}
	return nil, ErrCommentNotFound
}

// dedupe trims, drops empty strings and keeps first occurrences.
func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
