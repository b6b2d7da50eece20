package models

import "time"

// User is an account that can authenticate and exchange messages.
type User struct {
	ID           int       `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Name         string    `db:"name" json:"name"`
	AvatarURL    string    `db:"avatar_url" json:"avatarUrl,omitempty"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// DisplayName prefers the profile name and falls back to the email.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// PublicProfile is the user view embedded in API and websocket payloads.
type PublicProfile struct {
	ID        int    `db:"id" json:"id"`
	Email     string `db:"email" json:"email"`
	Name      string `db:"name" json:"name"`
	AvatarURL string `db:"avatar_url" json:"avatarUrl,omitempty"`
}

// DisplayName prefers the profile name and falls back to the email.
func (p PublicProfile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Email
}

// Public strips credential fields from a user.
func (u User) Public() PublicProfile {
	return PublicProfile{ID: u.ID, Email: u.Email, Name: u.Name, AvatarURL: u.AvatarURL}
}
