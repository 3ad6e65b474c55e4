package models

import (
	"time"

	"github.com/google/uuid"

	"nightout/internal/auth/email"
)

// Profile is the application-side record kept for every platform user.
type Profile struct {
	ID        uuid.UUID
	Username  string
	FullName  string
	Phone     string
	AvatarURL string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewProfileFor derives the initial profile of a user who signed in with a social provider.
// The full name prefers the provider's full_name, then name, then the email local part.
func NewProfileFor(u *User, now time.Time) *Profile {
	fullName := u.MetadataString("full_name")
	if fullName == "" {
		fullName = u.MetadataString("name")
	}
	if fullName == "" {
		fullName = email.LocalPart(u.Email)
	}
	if fullName == "" {
		fullName = "User"
	}
	return &Profile{
		ID:        u.ID,
		Username:  email.DeriveUsername(u.Email),
		FullName:  fullName,
		Phone:     u.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
