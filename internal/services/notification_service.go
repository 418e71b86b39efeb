package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/AnshRaj112/mindmesh-backend/internal/models"
	"github.com/AnshRaj112/mindmesh-backend/internal/store"
)

const DefaultNotificationLimit = 10

// NotificationService creates and acknowledges per-user notifications.
type NotificationService struct {
	store store.Store
	limit int64
}

func NewNotificationService(st store.Store, limit int64) *NotificationService {
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}
	return &NotificationService{store: st, limit: limit}
}

// UnreadQuery is the live query for a user's most recent unread
// notifications.
func (s *NotificationService) UnreadQuery(uid string) store.Query {
	return store.NewQuery(models.CollectionNotifications).
		Where(models.FieldUserID, uid).
		Where(models.FieldRead, false).
		Sort(models.FieldCreatedAt, true).
		Take(s.limit)
}

// Notify stores an unread notification for recipient.
func (s *NotificationService) Notify(ctx context.Context, recipient string, typ models.NotificationType, message, link string) (*models.Notification, error) {
	n := &models.Notification{
		ID:        uuid.NewString(),
		UserID:    recipient,
		Type:      typ,
		Message:   message,
		Link:      link,
		CreatedAt: timeNow(),
	}
	if err := s.store.Insert(ctx, models.CollectionNotifications, n.ID, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	return n, nil
}

// Unread returns the caller's unread notifications, newest first.
func (s *NotificationService) Unread(ctx context.Context, session models.AuthSession) ([]models.Notification, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	var out []models.Notification
	if err := s.store.Find(ctx, s.UnreadQuery(session.UID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkOneRead marks a notification addressed to the caller as read.
func (s *NotificationService) MarkOneRead(ctx context.Context, session models.AuthSession, id string) error {
	if err := requireSession(session); err != nil {
		return err
	}
	var n models.Notification
	if err := s.store.Get(ctx, models.CollectionNotifications, id, &n); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotificationNotFound
		}
		return err
	}
	if n.UserID != session.UID {
		return ErrForbidden
	}
	if n.Read {
		return nil
	}
	return s.store.Update(ctx, models.CollectionNotifications, id, map[string]any{models.FieldRead: true})
}

// Failure is one id that could not be updated.
type Failure struct {
	ID  string `json:"id"`
	Err string `json:"error"`
}

// BatchResult reports the outcome of a fan-out update.
type BatchResult struct {
	Succeeded []string  `json:"succeeded"`
	Failed    []Failure `json:"failed"`
}

// OK reports whether every update succeeded.
func (r BatchResult) OK() bool { return len(r.Failed) == 0 }

// MarkAllRead marks the given notifications read concurrently and waits
// for all of them. Partial failure is reported in the result, not as an
// error.
func (s *NotificationService) MarkAllRead(ctx context.Context, session models.AuthSession, ids []string) (BatchResult, error) {
	if err := requireSession(session); err != nil {
		return BatchResult{}, err
	}

	var (
		mu     sync.Mutex
		result = BatchResult{Succeeded: []string{}, Failed: []Failure{}}
	)
	var eg errgroup.Group
	eg.SetLimit(8)
	for _, id := range ids {
		eg.Go(func() error {
			err := s.MarkOneRead(ctx, session, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed = append(result.Failed, Failure{ID: id, Err: err.Error()})
			} else {
				result.Succeeded = append(result.Succeeded, id)
			}
			return nil
		})
	}
	_ = eg.Wait()

	if !result.OK() {
		slog.Warn("mark all read partially failed",
			"user_id", session.UID,
			"succeeded", len(result.Succeeded),
			"failed", len(result.Failed))
	}
	return result, nil
}

// UnreadTracker holds the latest unread snapshot for one user. The badge
// count is always the snapshot size.
type UnreadTracker struct {
	mu    sync.RWMutex
	items []models.Notification
}

// Apply replaces the tracked state with snapshot.
func (t *UnreadTracker) Apply(snapshot []models.Notification) {
	items := make([]models.Notification, len(snapshot))
	copy(items, snapshot)
	t.mu.Lock()
	t.items = items
	t.mu.Unlock()
}

// Count is the number of unread notifications in the last snapshot.
func (t *UnreadTracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

// Items returns a copy of the last snapshot.
func (t *UnreadTracker) Items() []models.Notification {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]models.Notification(nil), t.items...)
}

// IDs returns the ids in the last snapshot, the input to MarkAllRead.
func (t *UnreadTracker) IDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]string, len(t.items))
	for i, n := range t.items {
		ids[i] = n.ID
	}
	return ids
}
