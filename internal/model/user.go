package model

import "time"

// User represents an account record as stored in the `users` table.  Each
// field corresponds to a column.  The struct carries no json tags: it holds
// the password hash and the current refresh token, so it must never be
// serialized directly.  Handlers respond with PublicUser instead.
type User struct {
	ID           string    // users.id
	FullName     string    // users.full_name
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	RefreshToken *string   // users.refresh_token (nullable)
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// PublicUser is the sanitized projection of a User returned to clients.
type PublicUser struct {
	ID        string    `json:"id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Public drops the password hash and refresh token.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		FullName:  u.FullName,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
