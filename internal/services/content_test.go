package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/AnshRaj112/mindmesh-backend/internal/models"
	"github.com/AnshRaj112/mindmesh-backend/internal/store"
	"github.com/AnshRaj112/mindmesh-backend/pkg/utils"
)

type fakeUploader struct {
	folders []string
	err     error
}

func (f *fakeUploader) Upload(ctx context.Context, r io.Reader, folder string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	f.folders = append(f.folders, folder)
	return "https://cdn.example.com/" + folder + "/img.png", nil
}

// interleavedGet runs after once, right after the first Get returns, to
// stand in for a write from another request.
type interleavedGet struct {
	store.Store
	once  sync.Once
	after func()
}

func (s *interleavedGet) Get(ctx context.Context, collection, id string, out any) error {
	err := s.Store.Get(ctx, collection, id, out)
	s.once.Do(s.after)
	return err
}

func TestIdeaService(t *testing.T) {
	ctx := context.Background()
	input := IdeaInput{Title: "Flashcards app", Description: "Spaced repetition", Category: "Project", Tags: []string{"go", "go", " "}}

	t.Run("Create normalizes input", func(t *testing.T) {
		svc := NewIdeaService(store.NewMemoryStore(), nil)
		idea, err := svc.Create(ctx, alice, input)
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if idea.Category != "project" || len(idea.Tags) != 1 {
			t.Errorf("Unexpected idea: %+v", idea)
		}
	})

	t.Run("Create rejects unknown categories and bad words", func(t *testing.T) {
		svc := NewIdeaService(store.NewMemoryStore(), nil)
		var verr *utils.ValidationError
		bad := input
		bad.Category = "gossip"
		if _, err := svc.Create(ctx, alice, bad); !errors.As(err, &verr) {
			t.Errorf("Expected ValidationError, got %v", err)
		}
		bad = input
		bad.Title = "shiiit idea"
		if _, err := svc.Create(ctx, alice, bad); !errors.As(err, &verr) {
			t.Errorf("Expected ValidationError, got %v", err)
		}
	})

	t.Run("only the owner may update or delete", func(t *testing.T) {
		svc := NewIdeaService(store.NewMemoryStore(), nil)
		idea, _ := svc.Create(ctx, alice, input)
		if _, err := svc.Update(ctx, bob, idea.ID, input); !errors.Is(err, ErrForbidden) {
			t.Errorf("Expected ErrForbidden, got %v", err)
		}
		if err := svc.Delete(ctx, bob, idea.ID); !errors.Is(err, ErrForbidden) {
			t.Errorf("Expected ErrForbidden, got %v", err)
		}
		upd := input
		upd.Title = "Better flashcards"
		got, err := svc.Update(ctx, alice, idea.ID, upd)
		if err != nil || got.Title != "Better flashcards" || got.UpdatedAt.IsZero() {
			t.Errorf("Unexpected update result: %+v, %v", got, err)
		}
		if err := svc.Delete(ctx, alice, idea.ID); err != nil {
			t.Errorf("Delete failed: %v", err)
		}
	})

	t.Run("ToggleLike has set semantics", func(t *testing.T) {
		svc := NewIdeaService(store.NewMemoryStore(), nil)
		idea, _ := svc.Create(ctx, alice, input)
		if n, _ := svc.ToggleLike(ctx, bob, idea.ID); n != 1 {
			t.Errorf("Expected 1 like, got %d", n)
		}
		if n, _ := svc.ToggleLike(ctx, carol, idea.ID); n != 2 {
			t.Errorf("Expected 2 likes, got %d", n)
		}
		if n, _ := svc.ToggleLike(ctx, bob, idea.ID); n != 1 {
			t.Errorf("Expected unlike to leave 1, got %d", n)
		}
	})

	t.Run("List filters by category", func(t *testing.T) {
		svc := NewIdeaService(store.NewMemoryStore(), nil)
		_, _ = svc.Create(ctx, alice, input)
		other := input
		other.Category = "thesis"
		_, _ = svc.Create(ctx, alice, other)

		all, _ := svc.List(ctx, "all")
		theses, _ := svc.List(ctx, "thesis")
		if len(all) != 2 || len(theses) != 1 || theses[0].Category != "thesis" {
			t.Errorf("Unexpected lists: all=%d thesis=%+v", len(all), theses)
		}
	})

	t.Run("comments notify the owner and are author-only", func(t *testing.T) {
		st := store.NewMemoryStore()
		notes := NewNotificationService(st, 0)
		svc := NewIdeaService(st, notes)
		idea, _ := svc.Create(ctx, alice, input)

		c, err := svc.AddComment(ctx, bob, idea.ID, "Nice one")
		if err != nil {
			t.Fatalf("AddComment failed: %v", err)
		}
		unread, _ := notes.Unread(ctx, alice)
		if len(unread) != 1 || unread[0].Type != models.NotificationPost {
			t.Errorf("Expected a post notification for alice, got %+v", unread)
		}

		if err := svc.EditComment(ctx, alice, idea.ID, c.ID, "hijack"); !errors.Is(err, ErrForbidden) {
			t.Errorf("Expected ErrForbidden, got %v", err)
		}
		if err := svc.EditComment(ctx, bob, idea.ID, c.ID, "Really nice"); err != nil {
			t.Fatalf("EditComment failed: %v", err)
		}
		got, _ := svc.Get(ctx, idea.ID)
		if len(got.Comments) != 1 || got.Comments[0].Text != "Really nice" {
			t.Errorf("Unexpected comments: %+v", got.Comments)
		}

		if err := svc.DeleteComment(ctx, bob, idea.ID, "missing"); !errors.Is(err, ErrCommentNotFound) {
			t.Errorf("Expected ErrCommentNotFound, got %v", err)
		}
		if err := svc.DeleteComment(ctx, bob, idea.ID, c.ID); err != nil {
			t.Fatalf("DeleteComment failed: %v", err)
		}
		got, _ = svc.Get(ctx, idea.ID)
		if len(got.Comments) != 0 {
			t.Errorf("Expected no comments, got %+v", got.Comments)
		}
	})

	t.Run("comment edits and deletes keep concurrent additions", func(t *testing.T) {
		for _, op := range []string{"edit", "delete"} {
			t.Run(op, func(t *testing.T) {
				mem := store.NewMemoryStore()
				base := NewIdeaService(mem, nil)
				idea, _ := base.Create(ctx, alice, input)
				mine, _ := base.AddComment(ctx, bob, idea.ID, "First")

				st := &interleavedGet{Store: mem}
				st.after = func() {
					if _, err := base.AddComment(ctx, carol, idea.ID, "Concurrent"); err != nil {
						t.Errorf("AddComment failed: %v", err)
					}
				}
				svc := NewIdeaService(st, nil)

				var err error
				if op == "edit" {
					err = svc.EditComment(ctx, bob, idea.ID, mine.ID, "First, edited")
				} else {
					err = svc.DeleteComment(ctx, bob, idea.ID, mine.ID)
				}
				if err != nil {
					t.Fatalf("%s failed: %v", op, err)
				}

				got, _ := base.Get(ctx, idea.ID)
				texts := make([]string, len(got.Comments))
				for i, c := range got.Comments {
					texts[i] = c.Text
				}
				want := []string{"First, edited", "Concurrent"}
				if op == "delete" {
					want = []string{"Concurrent"}
				}
				if strings.Join(texts, "|") != strings.Join(want, "|") {
					t.Errorf("Expected comments %v, got %v", want, texts)
				}
			})
		}
	})

	t.Run("commenting on your own idea does not notify", func(t *testing.T) {
		st := store.NewMemoryStore()
		notes := NewNotificationService(st, 0)
		svc := NewIdeaService(st, notes)
		idea, _ := svc.Create(ctx, alice, input)
		_, _ = svc.AddComment(ctx, alice, idea.ID, "Update: started")
		if st.Count(models.CollectionNotifications) != 0 {
			t.Error("Expected no self notification")
		}
	})
}

func TestNoteService(t *testing.T) {
	ctx := context.Background()

	t.Run("notes are private and pinned first", func(t *testing.T) {
		fixedClock(t)
		svc := NewNoteService(store.NewMemoryStore())
		first, _ := svc.Create(ctx, alice, NoteInput{Title: "First"})
		_, _ = svc.Create(ctx, alice, NoteInput{Title: "Second"})
		_, _ = svc.Create(ctx, bob, NoteInput{Title: "Bob's"})

		if _, err := svc.TogglePin(ctx, alice, first.ID); err != nil {
			t.Fatalf("TogglePin failed: %v", err)
		}
		notes, err := svc.List(ctx, alice)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(notes) != 2 || notes[0].Title != "First" || !notes[0].Pinned {
			t.Errorf("Expected pinned note first, got %+v", notes)
		}

		if _, err := svc.Update(ctx, bob, first.ID, NoteInput{Title: "x"}); !errors.Is(err, ErrNoteNotFound) {
			t.Errorf("Expected ErrNoteNotFound for another user's note, got %v", err)
		}
		if err := svc.Delete(ctx, bob, first.ID); !errors.Is(err, ErrNoteNotFound) {
			t.Errorf("Expected ErrNoteNotFound, got %v", err)
		}
	})

	t.Run("unpinned notes sort by last update", func(t *testing.T) {
		fixedClock(t)
		svc := NewNoteService(store.NewMemoryStore())
		a, _ := svc.Create(ctx, alice, NoteInput{Title: "A"})
		_, _ = svc.Create(ctx, alice, NoteInput{Title: "B"})
		if _, err := svc.Update(ctx, alice, a.ID, NoteInput{Title: "A2", Content: "edited"}); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		notes, _ := svc.List(ctx, alice)
		if notes[0].Title != "A2" {
			t.Errorf("Expected most recently updated first, got %+v", notes)
		}
	})
}

func TestMoodboardService(t *testing.T) {
	ctx := context.Background()
	png := func(size int) ImageUpload {
		return ImageUpload{Reader: bytes.NewReader(make([]byte, size)), Size: int64(size), ContentType: "image/png"}
	}

	t.Run("uploads images and records them", func(t *testing.T) {
		up := &fakeUploader{}
		svc := NewMoodboardService(store.NewMemoryStore(), up)
		item, err := svc.Create(ctx, alice, "Sunset", "", png(1024))
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if !strings.HasPrefix(item.ImageURL, "https://") || up.folders[0] != "moodboards" {
			t.Errorf("Unexpected item: %+v", item)
		}
		items, _ := svc.List(ctx)
		if len(items) != 1 {
			t.Errorf("Expected 1 item, got %d", len(items))
		}
	})

	t.Run("rejects non-images and oversized files before upload", func(t *testing.T) {
		up := &fakeUploader{}
		svc := NewMoodboardService(store.NewMemoryStore(), up)
		var verr *utils.ValidationError

		pdf := png(10)
		pdf.ContentType = "application/pdf"
		if _, err := svc.Create(ctx, alice, "Doc", "", pdf); !errors.As(err, &verr) {
			t.Errorf("Expected ValidationError, got %v", err)
		}
		if _, err := svc.Create(ctx, alice, "Huge", "", png(MaxImageSize+1)); !errors.As(err, &verr) {
			t.Errorf("Expected ValidationError, got %v", err)
		} else if !strings.Contains(verr.Message, "MB") {
			t.Errorf("Expected a human readable size, got %q", verr.Message)
		}
		if len(up.folders) != 0 {
			t.Error("Expected no uploads")
		}
	})

	t.Run("delete is owner only", func(t *testing.T) {
		svc := NewMoodboardService(store.NewMemoryStore(), &fakeUploader{})
		item, _ := svc.Create(ctx, alice, "Sunset", "", png(10))
		if err := svc.Delete(ctx, bob, item.ID); !errors.Is(err, ErrForbidden) {
			t.Errorf("Expected ErrForbidden, got %v", err)
		}
		if err := svc.Delete(ctx, alice, item.ID); err != nil {
			t.Errorf("Delete failed: %v", err)
		}
	})
}

func TestProfileService(t *testing.T) {
	ctx := context.Background()

	t.Run("EnsureProfile creates defaults once", func(t *testing.T) {
		st := store.NewMemoryStore()
		svc := NewProfileService(st, &fakeUploader{})
		p, err := svc.EnsureProfile(ctx, bob)
		if err != nil {
			t.Fatalf("EnsureProfile failed: %v", err)
		}
		if p.DisplayName != "bob" || p.DarkMode {
			t.Errorf("Unexpected defaults: %+v", p)
		}
		if _, err := svc.EnsureProfile(ctx, bob); err != nil {
			t.Fatalf("second EnsureProfile failed: %v", err)
		}
		if st.Count(models.CollectionUsers) != 1 {
			t.Errorf("Expected one profile, got %d", st.Count(models.CollectionUsers))
		}
	})

	t.Run("Update dedupes interests", func(t *testing.T) {
		svc := NewProfileService(store.NewMemoryStore(), &fakeUploader{})
		dark := true
		p, err := svc.Update(ctx, alice, ProfileUpdate{Interests: []string{"math", "go", "math"}, DarkMode: &dark})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if len(p.Interests) != 2 || !p.DarkMode {
			t.Errorf("Unexpected profile: %+v", p)
		}
		stored, _ := svc.Get(ctx, alice.UID)
		if len(stored.Interests) != 2 || !stored.DarkMode || stored.DisplayName != "Alice" {
			t.Errorf("Unexpected stored profile: %+v", stored)
		}
	})

	t.Run("UploadPhoto stores the URL", func(t *testing.T) {
		up := &fakeUploader{}
		svc := NewProfileService(store.NewMemoryStore(), up)
		url, err := svc.UploadPhoto(ctx, alice, ImageUpload{Reader: strings.NewReader("x"), Size: 1, ContentType: "image/jpeg"})
		if err != nil {
			t.Fatalf("UploadPhoto failed: %v", err)
		}
		stored, _ := svc.Get(ctx, alice.UID)
		if stored.PhotoURL != url || up.folders[0] != "profiles" {
			t.Errorf("Unexpected profile photo %q (folder %v)", stored.PhotoURL, up.folders)
		}
	})
}

func TestContainsInappropriate(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"hello there", false},
		{"what the FUCK", true},
		{"f.u.c.k", false},
		{"fuuuuck this", true},
		{"sh1t happens", true},
		{"a skilled classic assistant", false},
		{"you asshole", true},
		{"สวัสดีครับ", false},
		{"ไอ้เหี้ย", true},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			if got, _ := ContainsInappropriate(tc.text); got != tc.want {
				t.Errorf("ContainsInappropriate(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}
