package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/AnshRaj112/mindmesh-backend/internal/metrics"
	"github.com/AnshRaj112/mindmesh-backend/internal/store"
)

// ErrPermissionDenied is returned by a Guard when the caller may no longer
// read the query. It terminates the listener.
var ErrPermissionDenied = errors.New("permission denied")

// ErrManagerClosed is returned when attaching to a closed Manager.
var ErrManagerClosed = errors.New("subscription manager closed")

// Guard runs before every query. A non-nil error is delivered instead of
// the result.
type Guard func(ctx context.Context) error

// Snapshot is the full result set of a live query at one point in time.
// It always replaces the previous snapshot.
type Snapshot[T store.Identifiable] struct {
	Docs      []T
	ByID      map[string]T
	Err       error
	FromCache bool
}

func newSnapshot[T store.Identifiable](docs []T, fromCache bool) Snapshot[T] {
	byID := make(map[string]T, len(docs))
	for _, d := range docs {
		byID[d.DocID()] = d
	}
	return Snapshot[T]{Docs: docs, ByID: byID, FromCache: fromCache}
}

// Subscription is the handle of one attached listener.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Close detaches the listener. It is idempotent and returns once the
// callback can no longer run.
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
	<-s.done
}

// Done is closed when the listener has exited, either through Close or
// because its guard denied access.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Manager owns the live listeners of one client. Each named slot holds at
// most one listener; attaching to an occupied slot closes the previous
// listener first. Callbacks must not call back into the Manager.
type Manager struct {
	store store.Store
	feed  Feed
	cache SnapshotCache

	mu     sync.Mutex
	slots  map[string]*Subscription
	closed bool
}

// NewManager returns a Manager reading from st and woken by feed. cache
// may be nil.
func NewManager(st store.Store, feed Feed, cache SnapshotCache) *Manager {
	return &Manager{
		store: st,
		feed:  feed,
		cache: cache,
		slots: make(map[string]*Subscription),
	}
}

// Release closes the listener in slot, if any.
func (m *Manager) Release(slot string) {
	m.mu.Lock()
	sub := m.slots[slot]
	delete(m.slots, slot)
	m.mu.Unlock()
	if sub != nil {
		sub.Close()
	}
}

// Active reports whether slot holds a running listener.
func (m *Manager) Active(slot string) bool {
	m.mu.Lock()
	sub := m.slots[slot]
	m.mu.Unlock()
	if sub == nil {
		return false
	}
	select {
	case <-sub.done:
		return false
	default:
		return true
	}
}

// Close releases every slot. Further attaches fail with ErrManagerClosed.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	subs := m.slots
	m.slots = make(map[string]*Subscription)
	m.mu.Unlock()
	for _, sub := range subs {
		sub.Close()
	}
}

// attach installs a new listener in slot. The previous occupant is closed
// while the lock is held so two listeners never share a slot.
func (m *Manager) attach(slot string, run func(ctx context.Context)) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrManagerClosed
	}
	if prev := m.slots[slot]; prev != nil {
		prev.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}
	m.slots[slot] = sub
	go func() {
		defer close(sub.done)
		defer cancel()
		run(ctx)
	}()
	return sub, nil
}

type watchConfig struct {
	guard     Guard
	useCache  bool
	recheckOn []string
}

// WatchOption configures a single Watch call.
type WatchOption func(*watchConfig)

// WithGuard runs g before every query.
func WithGuard(g Guard) WatchOption {
	return func(c *watchConfig) { c.guard = g }
}

// RecheckOn re-runs only the guard when a document in one of collections
// changes, so access revoked elsewhere ends the listener promptly.
func RecheckOn(collections ...string) WatchOption {
	return func(c *watchConfig) { c.recheckOn = append(c.recheckOn, collections...) }
}

// WithoutCache skips the snapshot cache for this listener.
func WithoutCache() WatchOption {
	return func(c *watchConfig) { c.useCache = false }
}

// Watch attaches a live query to slot. fn receives the cached snapshot
// (when one exists), then the store's result, then one fresh result per
// batch of changes to q's collection.
func Watch[T store.Identifiable](m *Manager, slot string, q store.Query, fn func(Snapshot[T]), opts ...WatchOption) (*Subscription, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	cfg := watchConfig{useCache: m.cache != nil}
	for _, opt := range opts {
		opt(&cfg)
	}

	l := &listener[T]{m: m, q: q, fn: fn, cfg: cfg}
	return m.attach(slot, l.run)
}

type listener[T store.Identifiable] struct {
	m   *Manager
	q   store.Query
	fn  func(Snapshot[T])
	cfg watchConfig
}

func (l *listener[T]) run(ctx context.Context) {
	// Subscribe before the first query so no change is missed in between.
	changes, unsubscribe := l.m.feed.Subscribe(l.q.Collection)
	defer unsubscribe()

	var recheck <-chan struct{}
	if l.cfg.guard != nil && len(l.cfg.recheckOn) > 0 {
		merged := make(chan struct{}, 1)
		for _, c := range l.cfg.recheckOn {
			ch, unsub := l.m.feed.Subscribe(c)
			defer unsub()
			go forward(ctx, ch, merged)
		}
		recheck = merged
	}

	gauge := metrics.ActiveListeners.WithLabelValues(l.q.Collection)
	gauge.Inc()
	defer gauge.Dec()

	if l.cfg.useCache {
		l.deliverCached(ctx)
	}
	if !l.deliver(ctx) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
			if !l.deliver(ctx) {
				return
			}
		case <-recheck:
			if _, keep := l.checkGuard(ctx); !keep {
				return
			}
		}
	}
}

// forward coalesces signals from one subscription into to.
func forward(ctx context.Context, from <-chan struct{}, to chan<- struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-from:
			select {
			case to <- struct{}{}:
			default:
			}
		}
	}
}

func (l *listener[T]) deliverCached(ctx context.Context) {
	if l.cfg.guard != nil && l.cfg.guard(ctx) != nil {
		return
	}
	data, ok := l.m.cache.Load(ctx, l.q)
	if !ok {
		return
	}
	var docs []T
	if err := json.Unmarshal(data, &docs); err != nil {
		return
	}
	if ctx.Err() != nil {
		return
	}
	metrics.SnapshotsDelivered.WithLabelValues(l.q.Collection, "cache").Inc()
	l.fn(newSnapshot(docs, true))
}

// checkGuard runs the guard. A failure is delivered to fn; keep reports
// whether the listener stays attached.
func (l *listener[T]) checkGuard(ctx context.Context) (pass, keep bool) {
	if l.cfg.guard == nil {
		return true, true
	}
	err := l.cfg.guard(ctx)
	if err == nil {
		return true, true
	}
	if ctx.Err() != nil {
		return false, false
	}
	denied := errors.Is(err, ErrPermissionDenied)
	kind := "guard"
	if denied {
		kind = "permission"
	}
	metrics.ListenerErrors.WithLabelValues(l.q.Collection, kind).Inc()
	l.fn(Snapshot[T]{Err: err})
	return false, !denied
}

// deliver runs the query once and reports whether the listener should
// stay attached.
func (l *listener[T]) deliver(ctx context.Context) bool {
	if pass, keep := l.checkGuard(ctx); !pass {
		return keep
	}

	var docs []T
	if err := l.m.store.Find(ctx, l.q, &docs); err != nil {
		if ctx.Err() != nil {
			return false
		}
		metrics.ListenerErrors.WithLabelValues(l.q.Collection, "store").Inc()
		l.fn(Snapshot[T]{Err: err})
		return true
	}
	if ctx.Err() != nil {
		return false
	}

	if docs == nil {
		docs = []T{}
	}
	metrics.SnapshotsDelivered.WithLabelValues(l.q.Collection, "server").Inc()
	l.fn(newSnapshot(docs, false))

	if l.cfg.useCache {
		if data, err := json.Marshal(docs); err == nil {
			l.m.cache.Save(ctx, l.q, data)
		}
	}
	return true
}
