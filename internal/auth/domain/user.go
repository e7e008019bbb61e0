package domain

import "time"

// Preferences holds per-user UI and notification settings.
type Preferences struct {
	Theme         string `json:"theme" gorm:"default:light"`
	Notifications bool   `json:"notifications" gorm:"default:true"`
}

// User is an account record. Accounts are created on first successful sign-in
// through the identity provider, or linked to an existing email-matched record.
type User struct {
	ID          string      `json:"id" gorm:"primaryKey"`
	GoogleID    *string     `json:"-" gorm:"uniqueIndex"`
	Email       string      `json:"email" gorm:"uniqueIndex;not null"`
	Name        string      `json:"name" gorm:"not null"`
	AvatarURL   string      `json:"avatar_url,omitempty"`
	Password    string      `json:"-"` // empty for provider-only accounts
	IsActive    bool        `json:"is_active" gorm:"default:true"`
	LastLoginAt time.Time   `json:"last_login_at"`
	Preferences Preferences `json:"preferences" gorm:"embedded;embeddedPrefix:pref_"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// PublicProfile is the subset of a user safe to show other users (search results,
// share notifications).
type PublicProfile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{ID: u.ID, Name: u.Name, Email: u.Email, AvatarURL: u.AvatarURL}
}
