// Package realtime turns one-shot store queries into live queries. Writers
// publish a store.Change per written document; listeners re-run their query
// whenever their collection changes and receive the full result set.
package realtime

import (
	"context"
	"sync"

	"github.com/AnshRaj112/mindmesh-backend/internal/metrics"
	"github.com/AnshRaj112/mindmesh-backend/internal/store"
)

// Feed carries change signals from writers to listeners.
type Feed interface {
	store.ChangePublisher

	// Subscribe returns a channel that receives a signal whenever a
	// document in collection changes. Signals are coalesced: a listener
	// that has not drained the previous one sees a single pending signal.
	// The returned function detaches the subscription.
	Subscribe(collection string) (<-chan struct{}, func())
}

// LocalFeed is an in-process Feed.
type LocalFeed struct {
	mu   sync.RWMutex
	next int
	subs map[string]map[int]chan struct{}
}

func NewLocalFeed() *LocalFeed {
	return &LocalFeed{subs: make(map[string]map[int]chan struct{})}
}

func (f *LocalFeed) Publish(ctx context.Context, c store.Change) error {
	metrics.ChangesPublished.WithLabelValues(c.Collection).Inc()
	f.notify(c.Collection)
	return nil
}

func (f *LocalFeed) Subscribe(collection string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	f.mu.Lock()
	f.next++
	id := f.next
	if f.subs[collection] == nil {
		f.subs[collection] = make(map[int]chan struct{})
	}
	f.subs[collection][id] = ch
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs[collection], id)
			if len(f.subs[collection]) == 0 {
				delete(f.subs, collection)
			}
			f.mu.Unlock()
		})
	}
}

func (f *LocalFeed) notify(collection string) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, ch := range f.subs[collection] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribers returns the number of attached subscriptions for collection.
func (f *LocalFeed) Subscribers(collection string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs[collection])
}
