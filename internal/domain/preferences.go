package domain

import (
	"fmt"
	"time"
)

// Theme is the UI color scheme.
type Theme string

const (
	ThemeSystem Theme = "system"
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
)

// Language is the UI language. Sango and French are the official languages.
type Language string

const (
	LanguageFrench  Language = "fr"
	LanguageSango   Language = "sg"
	LanguageEnglish Language = "en"
)

// Preferences is a user's settings object. It is loaded and saved explicitly
// through a PreferencesStore; nothing keeps it in process memory.
type Preferences struct {
	UserID    string    `json:"user_id"`
	Vibration bool      `json:"vibration"`
	Theme     Theme     `json:"theme"`
	Language  Language  `json:"language"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultPreferences is what a user gets before saving anything.
func DefaultPreferences(userID string) *Preferences {
	return &Preferences{
		UserID:    userID,
		Vibration: true,
		Theme:     ThemeSystem,
		Language:  LanguageFrench,
	}
}

// Validate checks the enum fields.
func (p *Preferences) Validate() error {
	switch p.Theme {
	case ThemeSystem, ThemeLight, ThemeDark:
	default:
		return fmt.Errorf("%w: unknown theme '%s'", ErrInvalidInput, p.Theme)
	}
	switch p.Language {
	case LanguageFrench, LanguageSango, LanguageEnglish:
	default:
		return fmt.Errorf("%w: unsupported language '%s'", ErrInvalidInput, p.Language)
	}
	return nil
}
