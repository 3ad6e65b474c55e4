package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// This file contains the auth state mirrored from the identity platform.
// Transport encodings live with the adapters that speak them.

// User is the identity-platform account behind a session.
type User struct {
	ID           uuid.UUID
	Email        string
	Phone        string
	AppMetadata  map[string]any
	UserMetadata map[string]any
}

// Provider returns the sign-in provider recorded by the platform, lower-cased.
func (u *User) Provider() string {
	if u == nil {
		return ""
	}
	return strings.ToLower(metadataString(u.AppMetadata, "provider"))
}

// MetadataString returns a non-empty string value from the user metadata.
func (u *User) MetadataString(key string) string {
	if u == nil {
		return ""
	}
	return metadataString(u.UserMetadata, key)
}

// Session is the bearer credential issued by the platform. User is never nil
// for a session obtained from the platform.
type Session struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    time.Time
	User         *User
}

// Expired reports whether the access token is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return s != nil && !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// State is what the rest of the application sees of authentication.
// User is always taken from Session.User so both are nil or both are set.
type State struct {
	User    *User
	Session *Session
	Loading bool
}

// Authenticated reports whether a session is present.
func (s State) Authenticated() bool {
	return s.Session != nil
}

// Event names a platform auth-state change.
type Event string

const (
	EventInitialSession   Event = "INITIAL_SESSION"
	EventSignedIn         Event = "SIGNED_IN"
	EventSignedOut        Event = "SIGNED_OUT"
	EventTokenRefreshed   Event = "TOKEN_REFRESHED"
	EventUserUpdated      Event = "USER_UPDATED"
	EventPasswordRecovery Event = "PASSWORD_RECOVERY"
)

func (e Event) IsValid() bool {
	switch e {
	case EventInitialSession, EventSignedIn, EventSignedOut,
		EventTokenRefreshed, EventUserUpdated, EventPasswordRecovery:
		return true
	default:
		return false
	}
}

func (e Event) String() string {
	return string(e)
}

// Notification is one auth-state change delivered by the platform.
// Session is nil after sign-out.
type Notification struct {
	Event   Event
	Session *Session
}

func metadataString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	v, ok := m[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}
