package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/AnshRaj112/mindmesh-backend/internal/metrics"
	"github.com/AnshRaj112/mindmesh-backend/internal/models"
	"github.com/AnshRaj112/mindmesh-backend/internal/store"
	"github.com/AnshRaj112/mindmesh-backend/internal/timeline"
	"github.com/AnshRaj112/mindmesh-backend/pkg/utils"
)

const (
	MaxMessageLength    = 2000
	DefaultMessageLimit = 50
)

// ChatService sends and reads group messages.
type ChatService struct {
	store         store.Store
	groups        *GroupService
	notifications *NotificationService
	limit         int64
}

func NewChatService(st store.Store, groups *GroupService, notifications *NotificationService, limit int64) *ChatService {
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	return &ChatService{store: st, groups: groups, notifications: notifications, limit: limit}
}

// MessagesQuery is the live query for a group's most recent messages,
// newest first.
func (s *ChatService) MessagesQuery(groupID string) store.Query {
	return store.NewQuery(models.CollectionMessages).
		Where(models.FieldGroupID, groupID).
		Sort(models.FieldCreatedAt, true).
		Take(s.limit)
}

// ValidateMessage trims text and rejects empty, oversized or
// inappropriate messages.
func ValidateMessage(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		metrics.MessagesRejected.WithLabelValues("empty").Inc()
		return "", &utils.ValidationError{Field: "text", Message: "Message cannot be empty"}
	}
	if len([]rune(text)) > MaxMessageLength {
		metrics.MessagesRejected.WithLabelValues("too_long").Inc()
		return "", &utils.ValidationError{Field: "text", Message: fmt.Sprintf("Message must be at most %d characters", MaxMessageLength)}
	}
	if err := CheckContent("text", text); err != nil {
		metrics.MessagesRejected.WithLabelValues("content").Inc()
		return "", err
	}
	return text, nil
}

// Send stores a message from the caller and notifies the other members.
func (s *ChatService) Send(ctx context.Context, session models.AuthSession, groupID, text string) (*models.Message, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	text, err := ValidateMessage(text)
	if err != nil {
		return nil, err
	}
	g, err := s.groups.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !CanRead(g, session.UID) {
		metrics.MessagesRejected.WithLabelValues("not_member").Inc()
		return nil, ErrNotMember
	}

	m := &models.Message{
		ID:        uuid.NewString(),
		GroupID:   g.ID,
		Text:      text,
		UserID:    session.UID,
		UserName:  session.Name(),
		UserPhoto: session.PhotoURL,
		CreatedAt: timeNow(),
	}
	if err := s.store.Insert(ctx, models.CollectionMessages, m.ID, m); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	metrics.MessagesSent.Inc()

	if s.notifications != nil {
		s.notifyMembers(ctx, g, session)
	}
	return m, nil
}

// notifyMembers creates one chat notification per other member. Failures
// are logged; the message is already delivered.
func (s *ChatService) notifyMembers(ctx context.Context, g *models.Group, sender models.AuthSession) {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(8)
	text := fmt.Sprintf("%s sent a message in %s", sender.Name(), g.Name)
	for _, member := range g.Members {
		if member == sender.UID {
			continue
		}
		eg.Go(func() error {
			_, err := s.notifications.Notify(ctx, member, models.NotificationChat, text, "/chat?group="+g.ID)
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		slog.Warn("chat notification fan-out failed", "group_id", g.ID, "err", err)
	}
}

// AppendSystemMessage stores a notice in a group's message stream.
func AppendSystemMessage(ctx context.Context, st store.Store, groupID, text string) (*models.Message, error) {
	m := &models.Message{
		ID:              uuid.NewString(),
		GroupID:         groupID,
		Text:            text,
		CreatedAt:       timeNow(),
		IsSystemMessage: true,
	}
	if err := st.Insert(ctx, models.CollectionMessages, m.ID, m); err != nil {
		return nil, fmt.Errorf("append system message: %w", err)
	}
	return m, nil
}

// History returns the latest messages of a group, newest first, after
// checking the caller may read it.
func (s *ChatService) History(ctx context.Context, session models.AuthSession, groupID string) ([]models.Message, error) {
	if err := s.CheckReadAccess(ctx, session, groupID); err != nil {
		return nil, err
	}
	var msgs []models.Message
	if err := s.store.Find(ctx, s.MessagesQuery(groupID), &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Timeline renders History through the ordering pipeline.
func (s *ChatService) Timeline(ctx context.Context, session models.AuthSession, groupID string, opts timeline.Options) ([]timeline.Entry, error) {
	msgs, err := s.History(ctx, session, groupID)
	if err != nil {
		return nil, err
	}
	return timeline.Build(msgs, opts), nil
}

// CheckReadAccess fails with ErrNotMember when the caller may not read the
// group.
func (s *ChatService) CheckReadAccess(ctx context.Context, session models.AuthSession, groupID string) error {
	if err := requireSession(session); err != nil {
		return err
	}
	g, err := s.groups.Get(ctx, groupID)
	if err != nil {
		return err
	}
	if !CanRead(g, session.UID) {
		return ErrNotMember
	}
	return nil
}
