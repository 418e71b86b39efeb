package models

// AuthSession is the identity of the signed-in caller. It is resolved once
// per request or connection and passed explicitly to every operation that
// needs it.
type AuthSession struct {
	UID         string `json:"uid"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// Valid reports whether the session identifies a user.
func (s AuthSession) Valid() bool { return s.UID != "" }

// Name returns the display name, falling back to the email's local part.
func (s AuthSession) Name() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	for i := 0; i < len(s.Email); i++ {
		if s.Email[i] == '@' {
			if i > 0 {
				return s.Email[:i]
			}
			break
		}
	}
	return "Anonymous user"
}

// UserProfile is stored in the users collection, keyed by uid.
type UserProfile struct {
	UID         string   `bson:"_id" json:"uid"`
	DisplayName string   `bson:"displayName" json:"display_name"`
	PhotoURL    string   `bson:"photoURL,omitempty" json:"photo_url,omitempty"`
	Interests   []string `bson:"interests" json:"interests"`
	DarkMode    bool     `bson:"darkMode" json:"dark_mode"`
	Description string   `bson:"description" json:"description"`
}

// DocID implements store.Identifiable.
func (p UserProfile) DocID() string { return p.UID }
