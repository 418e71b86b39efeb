package models

import "time"

// Comment is embedded in an Idea.
type Comment struct {
	ID        string    `bson:"id" json:"id"`
	Text      string    `bson:"text" json:"text"`
	UserID    string    `bson:"userId" json:"user_id"`
	UserName  string    `bson:"userName" json:"user_name"`
	UserPhoto string    `bson:"userPhoto,omitempty" json:"user_photo,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
}

// Idea is a shared post on the idea board. Likes are derived from LikedBy.
type Idea struct {
	ID          string    `bson:"_id" json:"id"`
	UserID      string    `bson:"userId" json:"user_id"`
	UserName    string    `bson:"userName" json:"user_name"`
	UserPhoto   string    `bson:"userPhoto,omitempty" json:"user_photo,omitempty"`
	Title       string    `bson:"title" json:"title"`
	Description string    `bson:"description" json:"description"`
	Category    string    `bson:"category" json:"category"`
	Tags        []string  `bson:"tags" json:"tags"`
	LikedBy     []string  `bson:"likedBy" json:"liked_by"`
	Comments    []Comment `bson:"comments" json:"comments"`
	CreatedAt   time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt   time.Time `bson:"updatedAt,omitempty" json:"updated_at,omitempty"`
}

// Likes returns the number of distinct users who liked the idea.
func (i *Idea) Likes() int { return len(i.LikedBy) }

// DocID implements store.Identifiable.
func (i Idea) DocID() string { return i.ID }

// Note is a private study note.
type Note struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"userId" json:"user_id"`
	UserName  string    `bson:"userName" json:"user_name"`
	Title     string    `bson:"title" json:"title"`
	Content   string    `bson:"content" json:"content"`
	Tags      []string  `bson:"tags" json:"tags"`
	Pinned    bool      `bson:"pinned" json:"pinned"`
	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updated_at"`
}

// DocID implements store.Identifiable.
func (n Note) DocID() string { return n.ID }

// MoodboardItem is an uploaded image on the shared mood board.
type MoodboardItem struct {
	ID          string    `bson:"_id" json:"id"`
	UserID      string    `bson:"userId" json:"user_id"`
	UserName    string    `bson:"userName" json:"user_name"`
	Title       string    `bson:"title" json:"title"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	ImageURL    string    `bson:"imageUrl" json:"image_url"`
	CreatedAt   time.Time `bson:"createdAt" json:"created_at"`
}

// DocID implements store.Identifiable.
func (m MoodboardItem) DocID() string { return m.ID }
