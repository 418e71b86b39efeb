package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AnshRaj112/mindmesh-backend/internal/models"
	"github.com/AnshRaj112/mindmesh-backend/internal/store"
	"github.com/AnshRaj112/mindmesh-backend/pkg/utils"
)

var (
	alice = models.AuthSession{UID: "alice", DisplayName: "Alice", Email: "alice@example.com"}
	bob   = models.AuthSession{UID: "bob", Email: "bob@example.com"}
	carol = models.AuthSession{UID: "carol", DisplayName: "Carol"}
)

// fixedClock makes timeNow advance one second per call.
func fixedClock(t *testing.T) {
	t.Helper()
	base := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	var n atomic.Int64
	prev := timeNow
	timeNow = func() time.Time {
		return base.Add(time.Duration(n.Add(1)) * time.Second)
	}
	t.Cleanup(func() { timeNow = prev })
}

func groupMessages(t *testing.T, st store.Store, groupID string) []models.Message {
	t.Helper()
	var msgs []models.Message
	q := store.NewQuery(models.CollectionMessages).Where(models.FieldGroupID, groupID).Sort(models.FieldCreatedAt, false)
	if err := st.Find(context.Background(), q, &msgs); err != nil {
		t.Fatalf("Find messages failed: %v", err)
	}
	return msgs
}

// failingInserts rejects inserts into one collection.
type failingInserts struct {
	store.Store
	collection string
}

func (f failingInserts) Insert(ctx context.Context, collection, id string, doc any) error {
	if collection == f.collection {
		return errors.New("insert unavailable")
	}
	return f.Store.Insert(ctx, collection, id, doc)
}

func TestGroupService(t *testing.T) {
	ctx := context.Background()

	t.Run("Create private group generates an uppercase code", func(t *testing.T) {
		fixedClock(t)
		svc := NewGroupService(store.NewMemoryStore())
		g, err := svc.Create(ctx, alice, CreateGroupInput{Name: " Study Buddies ", IsPrivate: true})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if g.Name != "Study Buddies" {
			t.Errorf("Expected trimmed name, got %q", g.Name)
		}
		if len(g.JoinCode) != 6 || g.JoinCode != strings.ToUpper(g.JoinCode) {
			t.Errorf("Expected 6-character uppercase code, got %q", g.JoinCode)
		}
		if !g.HasMember(alice.UID) || g.CreatedBy != alice.UID {
			t.Errorf("Expected creator to be owner and member: %+v", g)
		}
	})

	t.Run("Create public group has no code", func(t *testing.T) {
		svc := NewGroupService(store.NewMemoryStore())
		g, err := svc.Create(ctx, alice, CreateGroupInput{Name: "Open"})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if g.JoinCode != "" {
			t.Errorf("Expected no join code, got %q", g.JoinCode)
		}
	})

	t.Run("Create rejects empty name and anonymous callers", func(t *testing.T) {
		svc := NewGroupService(store.NewMemoryStore())
		var verr *utils.ValidationError
		if _, err := svc.Create(ctx, alice, CreateGroupInput{Name: "  "}); !errors.As(err, &verr) {
			t.Errorf("Expected ValidationError, got %v", err)
		}
		if _, err := svc.Create(ctx, models.AuthSession{}, CreateGroupInput{Name: "x"}); !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("Expected ErrUnauthenticated, got %v", err)
		}
	})

	t.Run("Join with lowercase code succeeds and posts a system message", func(t *testing.T) {
		fixedClock(t)
		st := store.NewMemoryStore()
		svc := NewGroupService(st)
		g, _ := svc.Create(ctx, alice, CreateGroupInput{Name: "Private", IsPrivate: true})

		joined, err := svc.Join(ctx, bob, "  "+strings.ToLower(g.JoinCode)+" ")
		if err != nil {
			t.Fatalf("Join failed: %v", err)
		}
		if !joined.HasMember(bob.UID) {
			t.Error("Expected bob in returned members")
		}
		stored, _ := svc.Get(ctx, g.ID)
		if !stored.HasMember(bob.UID) || len(stored.Members) != 2 {
			t.Errorf("Expected stored members [alice bob], got %v", stored.Members)
		}
		msgs := groupMessages(t, st, g.ID)
		if len(msgs) != 1 || !msgs[0].IsSystemMessage || msgs[0].Text != "bob joined the group" {
			t.Errorf("Unexpected system messages: %+v", msgs)
		}
	})

	t.Run("Join errors", func(t *testing.T) {
		svc := NewGroupService(store.NewMemoryStore())
		g, _ := svc.Create(ctx, alice, CreateGroupInput{Name: "Private", IsPrivate: true})

		if _, err := svc.Join(ctx, bob, "ZZZZZZ"); !errors.Is(err, ErrJoinCodeNotFound) {
			t.Errorf("Expected ErrJoinCodeNotFound, got %v", err)
		}
		if _, err := svc.Join(ctx, alice, g.JoinCode); !errors.Is(err, ErrAlreadyMember) {
			t.Errorf("Expected ErrAlreadyMember, got %v", err)
		}
		var verr *utils.ValidationError
		if _, err := svc.Join(ctx, bob, "   "); !errors.As(err, &verr) {
			t.Errorf("Expected ValidationError, got %v", err)
		}
	})

	t.Run("Join rejects a code stored on a public group", func(t *testing.T) {
		st := store.NewMemoryStore()
		svc := NewGroupService(st)
		g, _ := svc.Create(ctx, alice, CreateGroupInput{Name: "Open"})
		set := map[string]any{models.FieldIsPrivate: false, models.FieldJoinCode: "ABC123"}
		if err := st.Update(ctx, models.CollectionGroups, g.ID, set); err != nil {
			t.Fatalf("Update failed: %v", err)
		}

		if _, err := svc.Join(ctx, bob, "abc123"); !errors.Is(err, ErrNotPrivate) {
			t.Errorf("Expected ErrNotPrivate, got %v", err)
		}
		stored, _ := svc.Get(ctx, g.ID)
		if len(stored.Members) != 1 || stored.HasMember(bob.UID) {
			t.Errorf("Expected members unchanged, got %v", stored.Members)
		}
		if msgs := groupMessages(t, st, g.ID); len(msgs) != 0 {
			t.Errorf("Expected no system message, got %+v", msgs)
		}
	})

	t.Run("membership changes stand when the system message fails", func(t *testing.T) {
		mem := store.NewMemoryStore()
		st := failingInserts{Store: mem, collection: models.CollectionMessages}
		svc := NewGroupService(st)
		g, err := svc.Create(ctx, alice, CreateGroupInput{Name: "Private", IsPrivate: true})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		joined, err := svc.Join(ctx, bob, g.JoinCode)
		if err != nil {
			t.Fatalf("Expected join to succeed, got %v", err)
		}
		if !joined.HasMember(bob.UID) {
			t.Error("Expected bob in returned members")
		}
		if err := svc.Leave(ctx, bob, g.ID); err != nil {
			t.Fatalf("Expected leave to succeed, got %v", err)
		}
		stored, _ := svc.Get(ctx, g.ID)
		if stored.HasMember(bob.UID) {
			t.Error("Expected bob to be removed")
		}
		if mem.Count(models.CollectionMessages) != 0 {
			t.Error("Expected no messages to be stored")
		}
	})

	t.Run("Leave", func(t *testing.T) {
		fixedClock(t)
		st := store.NewMemoryStore()
		svc := NewGroupService(st)
		g, _ := svc.Create(ctx, alice, CreateGroupInput{Name: "Private", IsPrivate: true})
		_, _ = svc.Join(ctx, bob, g.JoinCode)

		if err := svc.Leave(ctx, carol, g.ID); !errors.Is(err, ErrNotMember) {
			t.Errorf("Expected ErrNotMember, got %v", err)
		}
		if err := svc.Leave(ctx, alice, g.ID); !errors.Is(err, ErrOwnerCannotLeave) {
			t.Errorf("Expected ErrOwnerCannotLeave, got %v", err)
		}
		if err := svc.Leave(ctx, bob, g.ID); err != nil {
			t.Fatalf("Leave failed: %v", err)
		}
		stored, _ := svc.Get(ctx, g.ID)
		if stored.HasMember(bob.UID) {
			t.Error("Expected bob to be removed")
		}
		msgs := groupMessages(t, st, g.ID)
		if len(msgs) != 2 || msgs[1].Text != "bob left the group" {
			t.Errorf("Unexpected system messages: %+v", msgs)
		}
	})

	t.Run("Delete by non-owner is rejected without mutation", func(t *testing.T) {
		st := store.NewMemoryStore()
		svc := NewGroupService(st)
		g, _ := svc.Create(ctx, alice, CreateGroupInput{Name: "Open"})

		if err := svc.Delete(ctx, bob, g.ID); !errors.Is(err, ErrNotOwner) {
			t.Fatalf("Expected ErrNotOwner, got %v", err)
		}
		if st.Count(models.CollectionGroups) != 1 {
			t.Error("Expected group to survive")
		}
		if err := svc.Delete(ctx, alice, g.ID); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := svc.Get(ctx, g.ID); !errors.Is(err, ErrGroupNotFound) {
			t.Errorf("Expected ErrGroupNotFound, got %v", err)
		}
	})

	t.Run("Delete keeps messages", func(t *testing.T) {
		st := store.NewMemoryStore()
		svc := NewGroupService(st)
		g, _ := svc.Create(ctx, alice, CreateGroupInput{Name: "Open"})
		_, _ = AppendSystemMessage(ctx, st, g.ID, "hello")
		_ = svc.Delete(ctx, alice, g.ID)
		if st.Count(models.CollectionMessages) != 1 {
			t.Error("Expected messages to be kept after group delete")
		}
	})

	t.Run("SetPrivacy keeps the code invariant", func(t *testing.T) {
		svc := NewGroupService(store.NewMemoryStore())
		g, _ := svc.Create(ctx, alice, CreateGroupInput{Name: "Open"})

		if _, err := svc.SetPrivacy(ctx, bob, g.ID, true); !errors.Is(err, ErrNotOwner) {
			t.Errorf("Expected ErrNotOwner, got %v", err)
		}
		priv, err := svc.SetPrivacy(ctx, alice, g.ID, true)
		if err != nil {
			t.Fatalf("SetPrivacy failed: %v", err)
		}
		if !priv.IsPrivate || len(priv.JoinCode) != 6 {
			t.Errorf("Expected private group with code, got %+v", priv)
		}
		if _, err := svc.Join(ctx, bob, priv.JoinCode); err != nil {
			t.Errorf("Expected join with new code to succeed, got %v", err)
		}

		pub, err := svc.SetPrivacy(ctx, alice, g.ID, false)
		if err != nil {
			t.Fatalf("SetPrivacy failed: %v", err)
		}
		stored, _ := svc.Get(ctx, g.ID)
		if pub.JoinCode != "" || stored.JoinCode != "" || stored.IsPrivate {
			t.Errorf("Expected public group without code, got %+v", stored)
		}
		if _, err := svc.Join(ctx, carol, priv.JoinCode); !errors.Is(err, ErrJoinCodeNotFound) {
			t.Errorf("Expected old code to stop working, got %v", err)
		}
	})

	t.Run("List hides private groups from non-members", func(t *testing.T) {
		svc := NewGroupService(store.NewMemoryStore())
		_, _ = svc.Create(ctx, alice, CreateGroupInput{Name: "Open"})
		priv, _ := svc.Create(ctx, alice, CreateGroupInput{Name: "Secret", IsPrivate: true})

		bobs, err := svc.List(ctx, bob)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(bobs) != 1 || bobs[0].Name != "Open" {
			t.Errorf("Expected only the public group, got %+v", bobs)
		}

		_, _ = svc.Join(ctx, bob, priv.JoinCode)
		bobs, _ = svc.List(ctx, bob)
		if len(bobs) != 2 {
			t.Fatalf("Expected 2 groups after joining, got %d", len(bobs))
		}
		for _, g := range bobs {
			if g.JoinCode != "" {
				t.Errorf("Expected join code hidden from non-owner, got %q", g.JoinCode)
			}
		}
	})
}
