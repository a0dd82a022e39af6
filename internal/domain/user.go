package domain

import (
	"net/mail"
	"strings"
	"time"
)

type User struct {
	UserID    string    `json:"user_id" bson:"user_id"`
	Email     string    `json:"email" bson:"email"`
	Name      string    `json:"name" bson:"name"`
	Picture   string    `json:"picture" bson:"picture"`
	Guest     bool      `json:"guest,omitempty" bson:"guest,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

type Session struct {
	SessionToken string    `json:"session_token" bson:"session_token"`
	UserID       string    `json:"user_id" bson:"user_id"`
	ExpiresAt    time.Time `json:"expires_at" bson:"expires_at"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

// Expired compares in UTC; stored timestamps are always UTC.
func (s Session) Expired(now time.Time) bool {
	return !now.UTC().Before(s.ExpiresAt.UTC())
}

// ExternalIdentity is what the identity provider returns for a session exchange.
type ExternalIdentity struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Picture      string `json:"picture"`
	SessionToken string `json:"session_token"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (u User) Response() UserResponse {
	return UserResponse{UserID: u.UserID, Email: u.Email, Name: u.Name, Picture: u.Picture}
}

func NormalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func ValidEmail(s string) bool {
	if s == "" {
		return false
	}
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s
}
