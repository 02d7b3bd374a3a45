package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.]{3,30}$`)

// Profile is the public face of a user. ID comes from the identity provider
// and never changes.
type Profile struct {
	ID        string
	FullName  string
	Username  string // empty means unset
	AvatarURL string
	Email     string // never exposed publicly, used for notifications
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName is what other users see in conversation lists and emails.
func (p *Profile) DisplayName() string {
	switch {
	case p == nil:
		return ""
	case p.FullName != "":
		return p.FullName
	case p.Username != "":
		return p.Username
	default:
		return "Utilisateur Garala"
	}
}

// ProfileUpdate carries the user-editable profile fields.
type ProfileUpdate struct {
	FullName  string
	Username  string
	AvatarURL string
}

// Normalize trims the fields and validates the username format.
func (u *ProfileUpdate) Normalize() error {
	u.FullName = strings.TrimSpace(u.FullName)
	u.Username = strings.TrimSpace(u.Username)
	u.AvatarURL = strings.TrimSpace(u.AvatarURL)
	if len(u.FullName) > 120 {
		return fmt.Errorf("%w: full name is too long", ErrInvalidInput)
	}
	if u.Username != "" && !usernamePattern.MatchString(u.Username) {
		return fmt.Errorf("%w: username must be 3-30 letters, digits, '_' or '.'", ErrInvalidInput)
	}
	return nil
}
