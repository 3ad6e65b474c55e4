// Package wire holds the JSON encoding of identity platform sessions and
// notifications shared by the REST client and the event relays.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"nightout/internal/auth/models"
	"nightout/internal/sentinel"
)

// User is the platform's user object.
type User struct {
	ID           uuid.UUID      `json:"id"`
	Email        string         `json:"email,omitempty"`
	Phone        string         `json:"phone,omitempty"`
	AppMetadata  map[string]any `json:"app_metadata,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// Session is the platform's token response.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// Notification is an auth-state change relayed over a message bus.
type Notification struct {
	Event   string   `json:"event"`
	Session *Session `json:"session"`
}

func ToUser(u *User) *models.User {
	if u == nil {
		return nil
	}
	return &models.User{
		ID:           u.ID,
		Email:        u.Email,
		Phone:        u.Phone,
		AppMetadata:  u.AppMetadata,
		UserMetadata: u.UserMetadata,
	}
}

func FromUser(u *models.User) *User {
	if u == nil {
		return nil
	}
	return &User{
		ID:           u.ID,
		Email:        u.Email,
		Phone:        u.Phone,
		AppMetadata:  u.AppMetadata,
		UserMetadata: u.UserMetadata,
	}
}

// ToSession converts a token response. expires_at wins over expires_in, which is
// counted from now.
func ToSession(s *Session, now time.Time) *models.Session {
	if s == nil {
		return nil
	}
	var expiresAt time.Time
	switch {
	case s.ExpiresAt > 0:
		expiresAt = time.Unix(s.ExpiresAt, 0).UTC()
	case s.ExpiresIn > 0:
		expiresAt = now.Add(time.Duration(s.ExpiresIn) * time.Second).UTC()
	}
	return &models.Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    s.TokenType,
		ExpiresAt:    expiresAt,
		User:         ToUser(s.User),
	}
}

func FromSession(s *models.Session) *Session {
	if s == nil {
		return nil
	}
	out := &Session{
		AccessToken:  s.AccessToken,
		TokenType:    s.TokenType,
		RefreshToken: s.RefreshToken,
		User:         FromUser(s.User),
	}
	if !s.ExpiresAt.IsZero() {
		out.ExpiresAt = s.ExpiresAt.Unix()
	}
	return out
}

// DecodeSession parses a stored or returned session document.
func DecodeSession(data []byte, now time.Time) (*models.Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", errors.Join(sentinel.ErrInvalidInput, err))
	}
	if s.AccessToken == "" || s.User == nil || s.User.ID == uuid.Nil {
		return nil, fmt.Errorf("decode session: missing access token or user: %w", sentinel.ErrInvalidInput)
	}
	return ToSession(&s, now), nil
}

func EncodeSession(s *models.Session) ([]byte, error) {
	return json.Marshal(FromSession(s))
}

// DecodeNotification parses a relayed notification. Unknown events are rejected.
func DecodeNotification(data []byte, now time.Time) (models.Notification, error) {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return models.Notification{}, fmt.Errorf("decode notification: %w", errors.Join(sentinel.ErrInvalidInput, err))
	}
	event := models.Event(n.Event)
	if !event.IsValid() {
		return models.Notification{}, fmt.Errorf("decode notification: unknown event %q: %w", n.Event, sentinel.ErrInvalidInput)
	}
	return models.Notification{Event: event, Session: ToSession(n.Session, now)}, nil
}

func EncodeNotification(n models.Notification) ([]byte, error) {
	return json.Marshal(Notification{Event: n.Event.String(), Session: FromSession(n.Session)})
}
