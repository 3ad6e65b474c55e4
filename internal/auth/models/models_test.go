package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewProfileFor(t *testing.T) {
	now := time.Date(2026, 10, 18, 22, 0, 0, 0, time.UTC)
	id := uuid.New()

	tests := []struct {
		name         string
		user         User
		wantUsername string
		wantFullName string
	}{
		{
			name: "full name from provider",
			user: User{ID: id, Email: "Jane.Doe@example.com", UserMetadata: map[string]any{
				"full_name": "Jane Doe", "name": "JD",
			}},
			wantUsername: "janedoe",
			wantFullName: "Jane Doe",
		},
		{
			name:         "name when full name missing",
			user:         User{ID: id, Email: "jd@example.com", UserMetadata: map[string]any{"name": "JD"}},
			wantUsername: "jd",
			wantFullName: "JD",
		},
		{
			name:         "email local part",
			user:         User{ID: id, Email: "night-owl@example.com"},
			wantUsername: "nightowl",
			wantFullName: "night-owl",
		},
		{
			name:         "no email",
			user:         User{ID: id, Phone: "+447700900000", UserMetadata: map[string]any{"full_name": 42}},
			wantUsername: "user",
			wantFullName: "User",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProfileFor(&tt.user, now)
			assert.Equal(t, id, p.ID)
			assert.Equal(t, tt.wantUsername, p.Username)
			assert.Equal(t, tt.wantFullName, p.FullName)
			assert.Equal(t, tt.user.Phone, p.Phone)
			assert.Equal(t, now, p.CreatedAt)
		})
	}
}

func TestProvider(t *testing.T) {
	var nilUser *User
	assert.Equal(t, "", nilUser.Provider())
	assert.Equal(t, "google", (&User{AppMetadata: map[string]any{"provider": "Google"}}).Provider())
	assert.Equal(t, "", (&User{AppMetadata: map[string]any{"provider": 1}}).Provider())
}

func TestStateAndEvents(t *testing.T) {
	assert.False(t, State{Loading: true}.Authenticated())
	assert.True(t, State{Session: &Session{}}.Authenticated())
	assert.True(t, EventSignedIn.IsValid())
	assert.False(t, Event("SIGNED_UP").IsValid())

	now := time.Now()
	assert.True(t, (&Session{ExpiresAt: now.Add(-time.Second)}).Expired(now))
	assert.False(t, (&Session{}).Expired(now))
}
