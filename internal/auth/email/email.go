package email

import (
	"strings"
)

const fallbackUsername = "user"

// IsValidEmail performs lightweight validation of an email address format.
func IsValidEmail(email string) bool {
	if email == "" {
		return false
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	if parts[0] == "" || parts[1] == "" {
		return false
	}
	if !strings.Contains(parts[1], ".") {
		return false
	}
	return true
}

// LocalPart returns the text before the first '@', or the whole string when there is none.
func LocalPart(email string) string {
	email = strings.TrimSpace(email)
	if at := strings.IndexByte(email, '@'); at >= 0 {
		return email[:at]
	}
	return email
}

// DeriveUsername lower-cases the email local part and keeps only [a-z0-9_].
// Returns "user" when nothing usable remains.
func DeriveUsername(email string) string {
	local := strings.ToLower(LocalPart(email))
	var b strings.Builder
	b.Grow(len(local))
	for _, r := range local {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return fallbackUsername
	}
	return b.String()
}
