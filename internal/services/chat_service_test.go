package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/AnshRaj112/mindmesh-backend/internal/models"
	"github.com/AnshRaj112/mindmesh-backend/internal/store"
	"github.com/AnshRaj112/mindmesh-backend/internal/timeline"
	"github.com/AnshRaj112/mindmesh-backend/pkg/utils"
)

type chatFixture struct {
	store  *store.MemoryStore
	groups *GroupService
	notes  *NotificationService
	chat   *ChatService
}

func newChatFixture() chatFixture {
	st := store.NewMemoryStore()
	groups := NewGroupService(st)
	notes := NewNotificationService(st, 0)
	return chatFixture{store: st, groups: groups, notes: notes, chat: NewChatService(st, groups, notes, 0)}
}

func TestChatService(t *testing.T) {
	ctx := context.Background()

	t.Run("Send stores the message and notifies other members", func(t *testing.T) {
		fixedClock(t)
		f := newChatFixture()
		g, _ := f.groups.Create(ctx, alice, CreateGroupInput{Name: "Private", IsPrivate: true})
		_, _ = f.groups.Join(ctx, bob, g.JoinCode)

		m, err := f.chat.Send(ctx, alice, g.ID, "  hello everyone  ")
		if err != nil {
			t.Fatalf("Send failed: %v", err)
		}
		if m.Text != "hello everyone" || m.UserName != "Alice" || m.IsSystemMessage {
			t.Errorf("Unexpected message: %+v", m)
		}

		bobs, _ := f.notes.Unread(ctx, bob)
		if len(bobs) != 1 || bobs[0].Type != models.NotificationChat {
			t.Fatalf("Expected one chat notification for bob, got %+v", bobs)
		}
		if !strings.Contains(bobs[0].Link, g.ID) {
			t.Errorf("Expected link to the group, got %q", bobs[0].Link)
		}
		alices, _ := f.notes.Unread(ctx, alice)
		if len(alices) != 0 {
			t.Errorf("Expected sender not to be notified, got %d", len(alices))
		}
	})

	t.Run("Send validates text before touching the store", func(t *testing.T) {
		f := newChatFixture()
		g, _ := f.groups.Create(ctx, alice, CreateGroupInput{Name: "Open"})
		before := f.store.Count(models.CollectionMessages)

		cases := map[string]string{
			"empty":         "   ",
			"too long":      strings.Repeat("a", MaxMessageLength+1),
			"inappropriate": "you are a b1tch",
		}
		for name, text := range cases {
			t.Run(name, func(t *testing.T) {
				var verr *utils.ValidationError
				if _, err := f.chat.Send(ctx, alice, g.ID, text); !errors.As(err, &verr) {
					t.Errorf("Expected ValidationError, got %v", err)
				}
			})
		}
		if f.store.Count(models.CollectionMessages) != before {
			t.Error("Expected no messages to be stored")
		}
	})

	t.Run("Send accepts the maximum length", func(t *testing.T) {
		f := newChatFixture()
		g, _ := f.groups.Create(ctx, alice, CreateGroupInput{Name: "Open"})
		if _, err := f.chat.Send(ctx, alice, g.ID, strings.Repeat("é", MaxMessageLength)); err != nil {
			t.Errorf("Expected message at the limit to be accepted, got %v", err)
		}
	})

	t.Run("non-members cannot write to or read private groups", func(t *testing.T) {
		f := newChatFixture()
		g, _ := f.groups.Create(ctx, alice, CreateGroupInput{Name: "Private", IsPrivate: true})
		if _, err := f.chat.Send(ctx, carol, g.ID, "hi"); !errors.Is(err, ErrNotMember) {
			t.Errorf("Expected ErrNotMember, got %v", err)
		}
		if _, err := f.chat.History(ctx, carol, g.ID); !errors.Is(err, ErrNotMember) {
			t.Errorf("Expected ErrNotMember, got %v", err)
		}
	})

	t.Run("public groups accept anyone", func(t *testing.T) {
		f := newChatFixture()
		g, _ := f.groups.Create(ctx, alice, CreateGroupInput{Name: "Open"})
		if _, err := f.chat.Send(ctx, carol, g.ID, "hi"); err != nil {
			t.Errorf("Expected send to public group to succeed, got %v", err)
		}
	})

	t.Run("History is capped and newest first", func(t *testing.T) {
		fixedClock(t)
		st := store.NewMemoryStore()
		groups := NewGroupService(st)
		chat := NewChatService(st, groups, nil, 3)
		g, _ := groups.Create(ctx, alice, CreateGroupInput{Name: "Open"})
		for _, text := range []string{"one", "two", "three", "four"} {
			if _, err := chat.Send(ctx, alice, g.ID, text); err != nil {
				t.Fatalf("Send failed: %v", err)
			}
		}
		msgs, err := chat.History(ctx, alice, g.ID)
		if err != nil {
			t.Fatalf("History failed: %v", err)
		}
		if len(msgs) != 3 || msgs[0].Text != "four" || msgs[2].Text != "two" {
			t.Errorf("Unexpected history: %+v", msgs)
		}

		entries, err := chat.Timeline(ctx, alice, g.ID, timeline.Options{})
		if err != nil {
			t.Fatalf("Timeline failed: %v", err)
		}
		if entries[0].Message.Text != "two" || entries[2].Message.Text != "four" {
			t.Errorf("Expected chronological timeline, got %+v", entries)
		}
		if entries[0].ShowAvatar || !entries[2].ShowAvatar {
			t.Error("Expected consecutive messages to collapse avatars")
		}
	})
}

func TestNotificationService(t *testing.T) {
	ctx := context.Background()

	t.Run("MarkAllRead drives the unread count to zero", func(t *testing.T) {
		fixedClock(t)
		st := store.NewMemoryStore()
		svc := NewNotificationService(st, 0)
		for i := 0; i < 4; i++ {
			if _, err := svc.Notify(ctx, bob.UID, models.NotificationChat, "ping", ""); err != nil {
				t.Fatalf("Notify failed: %v", err)
			}
		}

		var tracker UnreadTracker
		unread, _ := svc.Unread(ctx, bob)
		tracker.Apply(unread)
		if tracker.Count() != 4 {
			t.Fatalf("Expected 4 unread, got %d", tracker.Count())
		}

		res, err := svc.MarkAllRead(ctx, bob, tracker.IDs())
		if err != nil {
			t.Fatalf("MarkAllRead failed: %v", err)
		}
		if !res.OK() || len(res.Succeeded) != 4 {
			t.Errorf("Unexpected result: %+v", res)
		}

		unread, _ = svc.Unread(ctx, bob)
		tracker.Apply(unread)
		if tracker.Count() != 0 {
			t.Errorf("Expected 0 unread, got %d", tracker.Count())
		}
	})

	t.Run("MarkAllRead reports partial failure", func(t *testing.T) {
		st := store.NewMemoryStore()
		svc := NewNotificationService(st, 0)
		mine, _ := svc.Notify(ctx, bob.UID, models.NotificationChat, "ping", "")
		theirs, _ := svc.Notify(ctx, alice.UID, models.NotificationChat, "ping", "")

		res, err := svc.MarkAllRead(ctx, bob, []string{mine.ID, theirs.ID, "missing"})
		if err != nil {
			t.Fatalf("MarkAllRead failed: %v", err)
		}
		if len(res.Succeeded) != 1 || res.Succeeded[0] != mine.ID {
			t.Errorf("Expected only bob's notification to succeed, got %+v", res.Succeeded)
		}
		if len(res.Failed) != 2 {
			t.Errorf("Expected 2 failures, got %+v", res.Failed)
		}
	})

	t.Run("MarkOneRead checks the recipient", func(t *testing.T) {
		st := store.NewMemoryStore()
		svc := NewNotificationService(st, 0)
		n, _ := svc.Notify(ctx, bob.UID, models.NotificationPost, "comment", "")
		if err := svc.MarkOneRead(ctx, alice, n.ID); !errors.Is(err, ErrForbidden) {
			t.Errorf("Expected ErrForbidden, got %v", err)
		}
		if err := svc.MarkOneRead(ctx, bob, "nope"); !errors.Is(err, ErrNotificationNotFound) {
			t.Errorf("Expected ErrNotificationNotFound, got %v", err)
		}
		if err := svc.MarkOneRead(ctx, bob, n.ID); err != nil {
			t.Fatalf("MarkOneRead failed: %v", err)
		}
		unread, _ := svc.Unread(ctx, bob)
		if len(unread) != 0 {
			t.Errorf("Expected no unread, got %d", len(unread))
		}
	})

	t.Run("unread list is capped", func(t *testing.T) {
		st := store.NewMemoryStore()
		svc := NewNotificationService(st, 0)
		for i := 0; i < DefaultNotificationLimit+5; i++ {
			_, _ = svc.Notify(ctx, bob.UID, models.NotificationChat, "ping", "")
		}
		unread, _ := svc.Unread(ctx, bob)
		if len(unread) != DefaultNotificationLimit {
			t.Errorf("Expected %d, got %d", DefaultNotificationLimit, len(unread))
		}
	})

	t.Run("tracker count follows the latest snapshot", func(t *testing.T) {
		var tracker UnreadTracker
		tracker.Apply(make([]models.Notification, 3))
		tracker.Apply(make([]models.Notification, 1))
		if tracker.Count() != 1 {
			t.Errorf("Expected count to be replaced, got %d", tracker.Count())
		}
	})
}
