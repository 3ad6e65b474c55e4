package testutil

import (
	"time"

	"github.com/google/uuid"

	authmodels "nightout/internal/auth/models"
)

// TestIDs provides deterministic user ids for tests.
var TestIDs = struct {
	UserID1 uuid.UUID
	UserID2 uuid.UUID
}{
	UserID1: uuid.MustParse("11111111-1111-1111-1111-111111111111"),
	UserID2: uuid.MustParse("22222222-2222-2222-2222-222222222222"),
}

// UserBuilder provides a fluent interface for building test users.
type UserBuilder struct {
	user *authmodels.User
}

// NewUserBuilder creates a new UserBuilder for an email/password user.
func NewUserBuilder() *UserBuilder {
	return &UserBuilder{
		user: &authmodels.User{
			ID:           uuid.New(),
			Email:        "test@example.com",
			AppMetadata:  map[string]any{"provider": "email"},
			UserMetadata: map[string]any{},
		},
	}
}

func (b *UserBuilder) WithID(userID uuid.UUID) *UserBuilder {
	b.user.ID = userID
	return b
}

func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.user.Email = email
	return b
}

func (b *UserBuilder) WithPhone(phone string) *UserBuilder {
	b.user.Phone = phone
	return b
}

func (b *UserBuilder) WithProvider(provider string) *UserBuilder {
	b.user.AppMetadata["provider"] = provider
	return b
}

func (b *UserBuilder) WithFullName(name string) *UserBuilder {
	b.user.UserMetadata["full_name"] = name
	return b
}

func (b *UserBuilder) Build() *authmodels.User {
	return b.user
}

// SessionBuilder provides a fluent interface for building test sessions.
type SessionBuilder struct {
	session *authmodels.Session
}

// NewSessionBuilder creates a session valid for an hour, owned by a fresh user.
func NewSessionBuilder() *SessionBuilder {
	return &SessionBuilder{
		session: &authmodels.Session{
			AccessToken:  "access-" + uuid.NewString(),
			RefreshToken: "refresh-" + uuid.NewString(),
			TokenType:    "bearer",
			ExpiresAt:    time.Now().Add(time.Hour),
			User:         NewUserBuilder().Build(),
		},
	}
}

func (b *SessionBuilder) WithUser(user *authmodels.User) *SessionBuilder {
	b.session.User = user
	return b
}

func (b *SessionBuilder) ExpiresAt(t time.Time) *SessionBuilder {
	b.session.ExpiresAt = t
	return b
}

func (b *SessionBuilder) Build() *authmodels.Session {
	return b.session
}
