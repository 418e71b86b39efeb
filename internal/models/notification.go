package models

import "time"

// NotificationType distinguishes chat activity from idea-board activity.
type NotificationType string

const (
	NotificationChat NotificationType = "chat"
	NotificationPost NotificationType = "post"
)

// Notification is addressed to a single recipient. Only Read is ever
// mutated after creation.
type Notification struct {
	ID        string           `bson:"_id" json:"id"`
	UserID    string           `bson:"userId" json:"user_id"`
	Type      NotificationType `bson:"type" json:"type"`
	Message   string           `bson:"message" json:"message"`
	Link      string           `bson:"link,omitempty" json:"link,omitempty"`
	Read      bool             `bson:"read" json:"read"`
	CreatedAt time.Time        `bson:"createdAt" json:"created_at"`
}

// DocID implements store.Identifiable.
func (n Notification) DocID() string { return n.ID }
