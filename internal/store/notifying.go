package store

import (
	"context"
	"log/slog"
)

// Change identifies a document that was written.
type Change struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
}

// ChangePublisher receives a Change after every successful write.
type ChangePublisher interface {
	Publish(ctx context.Context, c Change) error
}

// Notifying wraps a Store and publishes a Change after each successful
// write so live queries on the collection can re-run.
type Notifying struct {
	Store
	pub ChangePublisher
}

// NewNotifying returns s decorated with change publication.
func NewNotifying(s Store, pub ChangePublisher) *Notifying {
	return &Notifying{Store: s, pub: pub}
}

func (n *Notifying) Insert(ctx context.Context, collection, id string, doc any) error {
	if err := n.Store.Insert(ctx, collection, id, doc); err != nil {
		return err
	}
	n.publish(ctx, collection, id)
	return nil
}

func (n *Notifying) Update(ctx context.Context, collection, id string, set map[string]any) error {
	if err := n.Store.Update(ctx, collection, id, set); err != nil {
		return err
	}
	n.publish(ctx, collection, id)
	return nil
}

func (n *Notifying) AddToSet(ctx context.Context, collection, id, field string, value any) error {
	if err := n.Store.AddToSet(ctx, collection, id, field, value); err != nil {
		return err
	}
	n.publish(ctx, collection, id)
	return nil
}

func (n *Notifying) Pull(ctx context.Context, collection, id, field string, value any) error {
	if err := n.Store.Pull(ctx, collection, id, field, value); err != nil {
		return err
	}
	n.publish(ctx, collection, id)
	return nil
}

func (n *Notifying) PullMatching(ctx context.Context, collection, id, field string, match map[string]any) error {
	if err := n.Store.PullMatching(ctx, collection, id, field, match); err != nil {
		return err
	}
	n.publish(ctx, collection, id)
	return nil
}

func (n *Notifying) UpdateElements(ctx context.Context, collection, id, field string, match, set map[string]any) error {
	if err := n.Store.UpdateElements(ctx, collection, id, field, match, set); err != nil {
		return err
	}
	n.publish(ctx, collection, id)
	return nil
}

func (n *Notifying) Delete(ctx context.Context, collection, id string) error {
	if err := n.Store.Delete(ctx, collection, id); err != nil {
		return err
	}
	n.publish(ctx, collection, id)
	return nil
}

// publish never fails the write; listeners catch up on the next change.
func (n *Notifying) publish(ctx context.Context, collection, id string) {
	if err := n.pub.Publish(ctx, Change{Collection: collection, ID: id}); err != nil {
		slog.Warn("publish change failed", "collection", collection, "id", id, "err", err)
	}
}
