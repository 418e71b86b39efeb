package models

import (
	"time"
)

// Collection names in the document store.
const (
	CollectionUsers         = "users"
	CollectionGroups        = "chatGroups"
	CollectionMessages      = "messages"
	CollectionNotifications = "notifications"
	CollectionIdeas         = "ideas"
	CollectionNotes         = "notes"
	CollectionMoodboards    = "moodboards"
)

// Document field names shared by queries and updates.
const (
	FieldID        = "_id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
	FieldUserID    = "userId"
	FieldGroupID   = "groupId"
	FieldMembers   = "members"
	FieldJoinCode  = "joinCode"
	FieldIsPrivate = "isPrivate"
	FieldRead      = "read"
	FieldCategory  = "category"
	FieldLikedBy   = "likedBy"
	FieldComments  = "comments"
	FieldPinned    = "pinned"
)

// Group is a chat group. JoinCode is set iff IsPrivate; CreatedBy is always
// in Members.
type Group struct {
	ID          string    `bson:"_id" json:"id"`
	Name        string    `bson:"name" json:"name"`
	Description string    `bson:"description" json:"description,omitempty"`
	IsPrivate   bool      `bson:"isPrivate" json:"is_private"`
	JoinCode    string    `bson:"joinCode,omitempty" json:"join_code,omitempty"`
	Members     []string  `bson:"members" json:"members"`
	CreatedBy   string    `bson:"createdBy" json:"created_by"`
	CreatedAt   time.Time `bson:"createdAt" json:"created_at"`
}

// HasMember reports whether uid is in the group's member set.
func (g *Group) HasMember(uid string) bool {
	for _, m := range g.Members {
		if m == uid {
			return true
		}
	}
	return false
}

// IsOwner reports whether uid created the group.
func (g *Group) IsOwner(uid string) bool {
	return uid != "" && g.CreatedBy == uid
}

// Message is a single chat message stored flat in the messages collection.
// System messages have an empty UserID.
type Message struct {
	ID              string    `bson:"_id" json:"id"`
	GroupID         string    `bson:"groupId" json:"group_id"`
	Text            string    `bson:"text" json:"text"`
	UserID          string    `bson:"userId,omitempty" json:"user_id,omitempty"`
	UserName        string    `bson:"userName,omitempty" json:"user_name,omitempty"`
	UserPhoto       string    `bson:"userPhoto,omitempty" json:"user_photo,omitempty"`
	CreatedAt       time.Time `bson:"createdAt" json:"created_at"`
	IsSystemMessage bool      `bson:"isSystemMessage" json:"is_system_message"`
}

// DocID implements store.Identifiable.
func (m Message) DocID() string { return m.ID }

// DocID implements store.Identifiable.
func (g Group) DocID() string { return g.ID }
