package timeline

import (
	"reflect"
	"testing"
	"time"

	"github.com/AnshRaj112/mindmesh-backend/internal/models"
)

func msg(id, user string, at time.Time) models.Message {
	return models.Message{ID: id, GroupID: "g1", UserID: user, Text: id, CreatedAt: at}
}

// newestFirst mirrors the order a descending createdAt query returns.
func newestFirst(msgs ...models.Message) []models.Message {
	out := make([]models.Message, len(msgs))
	for i, m := range msgs {
		out[len(msgs)-1-i] = m
	}
	return out
}

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Message.ID
	}
	return out
}

func TestBuild(t *testing.T) {
	day := time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)

	t.Run("collapses consecutive messages from one sender", func(t *testing.T) {
		snap := newestFirst(
			msg("1", "A", day),
			msg("2", "A", day.Add(30*time.Second)),
			msg("3", "B", day.Add(5*time.Minute)),
		)
		got := Build(snap, Options{})

		if !reflect.DeepEqual(ids(got), []string{"1", "2", "3"}) {
			t.Fatalf("Expected chronological order, got %v", ids(got))
		}
		headers := 0
		for _, e := range got {
			if e.ShowDateHeader {
				headers++
			}
		}
		if headers != 1 || !got[0].ShowDateHeader {
			t.Errorf("Expected a single date header on the first entry, got %d", headers)
		}
		if got[0].ShowAvatar || !got[1].ShowAvatar || !got[2].ShowAvatar {
			t.Errorf("Expected avatars [false true true], got [%v %v %v]",
				got[0].ShowAvatar, got[1].ShowAvatar, got[2].ShowAvatar)
		}
	})

	t.Run("a long pause breaks the run", func(t *testing.T) {
		snap := newestFirst(
			msg("1", "A", day),
			msg("2", "A", day.Add(61*time.Second)),
		)
		got := Build(snap, Options{})
		if !got[0].ShowAvatar {
			t.Error("Expected avatar after a gap longer than a minute")
		}
	})

	t.Run("date header on each new calendar day", func(t *testing.T) {
		snap := newestFirst(
			msg("1", "A", day.Add(13*time.Hour+50*time.Minute)),
			msg("2", "A", day.Add(14*time.Hour+10*time.Minute)),
		)
		got := Build(snap, Options{})
		if !got[1].ShowDateHeader {
			t.Error("Expected header across midnight UTC")
		}
		if got[1].DateLabel != "June 11, 2024" {
			t.Errorf("Unexpected label %q", got[1].DateLabel)
		}

		// Both fall on June 10 in New York.
		ny, err := time.LoadLocation("America/New_York")
		if err != nil {
			t.Skipf("tzdata unavailable: %v", err)
		}
		got = Build(snap, Options{Location: ny})
		if got[1].ShowDateHeader {
			t.Error("Expected no header within the same local day")
		}
	})

	t.Run("system messages never show an avatar and end a run", func(t *testing.T) {
		sys := msg("2", "", day.Add(10*time.Second))
		sys.IsSystemMessage = true
		snap := newestFirst(
			msg("1", "A", day),
			sys,
			msg("3", "A", day.Add(20*time.Second)),
		)
		got := Build(snap, Options{})
		if got[1].Kind != KindSystem || got[1].ShowAvatar {
			t.Errorf("Unexpected system entry: %+v", got[1])
		}
		if !got[0].ShowAvatar {
			t.Error("Expected the run before a system message to show its avatar")
		}
	})

	t.Run("equal timestamps keep arrival order", func(t *testing.T) {
		snap := newestFirst(
			msg("first", "A", day),
			msg("second", "B", day),
			msg("third", "C", day),
		)
		got := Build(snap, Options{})
		if !reflect.DeepEqual(ids(got), []string{"first", "second", "third"}) {
			t.Errorf("Expected arrival order for ties, got %v", ids(got))
		}
	})

	t.Run("sorts out-of-order snapshots", func(t *testing.T) {
		snap := []models.Message{
			msg("2", "A", day.Add(time.Minute)),
			msg("3", "A", day.Add(2*time.Minute)),
			msg("1", "A", day),
		}
		got := Build(snap, Options{})
		if !reflect.DeepEqual(ids(got), []string{"1", "2", "3"}) {
			t.Errorf("Expected chronological order, got %v", ids(got))
		}
	})

	t.Run("undated message fails closed", func(t *testing.T) {
		snap := newestFirst(
			msg("1", "A", day.Add(time.Minute)),
			msg("2", "A", time.Time{}),
			msg("3", "A", day),
		)
		got := Build(snap, Options{})
		if !reflect.DeepEqual(ids(got), []string{"1", "2", "3"}) {
			t.Errorf("Expected store order to be kept, got %v", ids(got))
		}
		if got[1].ShowDateHeader || got[1].DateLabel != "" {
			t.Error("Expected no header on an undated message")
		}
		if !got[0].ShowAvatar || !got[1].ShowAvatar {
			t.Error("Expected runs to break around an undated message")
		}
		if !got[2].ShowDateHeader {
			t.Error("Expected header after an undated message")
		}
	})

	t.Run("idempotent and does not mutate input", func(t *testing.T) {
		snap := newestFirst(
			msg("1", "A", day),
			msg("2", "B", day),
			msg("3", "A", day.Add(time.Hour)),
		)
		orig := append([]models.Message(nil), snap...)
		first := Build(snap, Options{})
		if !reflect.DeepEqual(snap, orig) {
			t.Fatal("Build mutated its input")
		}

		replay := make([]models.Message, len(first))
		for i, e := range first {
			replay[len(first)-1-i] = e.Message
		}
		second := Build(replay, Options{})
		if !reflect.DeepEqual(first, second) {
			t.Errorf("Expected identical output on replay:\n%+v\n%+v", first, second)
		}
	})

	t.Run("empty snapshot", func(t *testing.T) {
		if got := Build(nil, Options{}); len(got) != 0 {
			t.Errorf("Expected no entries, got %d", len(got))
		}
	})
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)
	if got := RelativeTime(now.Add(-3*time.Minute), now); got != "3 minutes ago" {
		t.Errorf("Unexpected relative time %q", got)
	}
	if RelativeTime(time.Time{}, now) != "" {
		t.Error("Expected empty string for zero time")
	}
}
