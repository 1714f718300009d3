package model

import (
	"strings"
	"time"
)

// IDSeparator joins the two ids of a pair key and a direct room key, so it
// may not appear inside a user id.
const IDSeparator = ":"

// ValidUserID reports whether id can be used as a user id.
func ValidUserID(id string) bool {
	return id != "" && !strings.Contains(id, IDSeparator)
}

// User represents a user document in MongoDB
type User struct {
	ID                 string              `json:"id" bson:"_id"`
	Username           string              `json:"username" bson:"username"`
	Email              string              `json:"email" bson:"email"`
	DisplayName        string              `json:"displayName" bson:"display_name"`
	AvatarURL          string              `json:"avatarUrl" bson:"avatar_url"`
	Connections        []string            `json:"connections" bson:"connections"`
	ConnectionRequests []ConnectionRequest `json:"connectionRequests" bson:"connection_requests"`
	GraphVersion       int64               `json:"-" bson:"graph_version"`
	IsActive           bool                `json:"isActive" bson:"is_active"`
	CreatedAt          time.Time           `json:"createdAt" bson:"created_at"`
	UpdatedAt          *time.Time          `json:"updatedAt" bson:"updated_at"`
}

// ConnectionRequest is a pending request received by the owning user.
type ConnectionRequest struct {
	From      string    `json:"from" bson:"from"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

// Identity is the authenticated caller as resolved from the session.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
	Email       string `json:"email,omitempty"`
	Username    string `json:"username,omitempty"`
}

// UserSummary is the public projection of a user used in lists.
type UserSummary struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

// HasConnection reports whether otherID is in the user's connection set.
func (u *User) HasConnection(otherID string) bool {
	for _, id := range u.Connections {
		if id == otherID {
			return true
		}
	}
	return false
}

// HasRequestFrom reports whether the user holds a pending request from otherID.
func (u *User) HasRequestFrom(otherID string) bool {
	for _, r := range u.ConnectionRequests {
		if r.From == otherID {
			return true
		}
	}
	return false
}
