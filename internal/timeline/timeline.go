// Package timeline turns a chat snapshot into the ordered, decorated list
// a client renders: date separators and collapsed avatars for consecutive
// messages from the same sender.
package timeline

import (
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/AnshRaj112/mindmesh-backend/internal/models"
)

// Kind distinguishes user messages from system notices.
type Kind string

const (
	KindUser   Kind = "user"
	KindSystem Kind = "system"
)

// DefaultAvatarGap is the longest pause between two messages from the same
// sender that still collapses their avatars.
const DefaultAvatarGap = 60 * time.Second

// Entry is one rendered message.
type Entry struct {
	Message        models.Message `json:"message"`
	Kind           Kind           `json:"kind"`
	ShowDateHeader bool           `json:"show_date_header"`
	DateLabel      string         `json:"date_label,omitempty"`
	ShowAvatar     bool           `json:"show_avatar"`
}

// Options controls day boundaries and avatar collapsing.
type Options struct {
	// Location decides calendar days. Defaults to UTC.
	Location *time.Location
	// AvatarGap defaults to DefaultAvatarGap.
	AvatarGap time.Duration
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.AvatarGap <= 0 {
		o.AvatarGap = DefaultAvatarGap
	}
	return o
}

// Build orders a newest-first snapshot chronologically and decorates each
// message. The input is not modified. Build is deterministic and applying
// it to its own (re-reversed) output yields the same entries.
func Build(snapshot []models.Message, opts Options) []Entry {
	opts = opts.withDefaults()

	msgs := make([]models.Message, len(snapshot))
	for i, m := range snapshot {
		msgs[len(snapshot)-1-i] = m
	}

	dated := true
	for _, m := range msgs {
		if m.CreatedAt.IsZero() {
			dated = false
			break
		}
	}
	// With an undated message there is no total order; keep store order.
	if dated {
		sort.SliceStable(msgs, func(i, j int) bool {
			return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
		})
	}

	entries := make([]Entry, len(msgs))
	for i, m := range msgs {
		e := Entry{Message: m, Kind: KindUser}
		if m.IsSystemMessage {
			e.Kind = KindSystem
		}
		e.ShowDateHeader = showDateHeader(msgs, i, opts.Location)
		if e.ShowDateHeader {
			e.DateLabel = DayLabel(m.CreatedAt, opts.Location)
		}
		if e.Kind == KindUser {
			e.ShowAvatar = showAvatar(msgs, i, opts.AvatarGap)
		}
		entries[i] = e
	}
	return entries
}

func showDateHeader(msgs []models.Message, i int, loc *time.Location) bool {
	cur := msgs[i].CreatedAt
	if cur.IsZero() {
		return false
	}
	if i == 0 {
		return true
	}
	prev := msgs[i-1].CreatedAt
	if prev.IsZero() {
		return true
	}
	return !sameDay(prev, cur, loc)
}

func showAvatar(msgs []models.Message, i int, gap time.Duration) bool {
	if i == len(msgs)-1 {
		return true
	}
	cur, nxt := msgs[i], msgs[i+1]
	if nxt.IsSystemMessage || nxt.UserID != cur.UserID {
		return true
	}
	if cur.CreatedAt.IsZero() || nxt.CreatedAt.IsZero() {
		return true
	}
	return nxt.CreatedAt.Sub(cur.CreatedAt) > gap
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// DayLabel formats the date separator for t.
func DayLabel(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("January 2, 2006")
}

// RelativeTime renders t relative to now, e.g. "3 minutes ago".
func RelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
