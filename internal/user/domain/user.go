package domain

import "time"

// User is an account in the task management backend. The auth service only
// needs identity fields and the stored password hash; profile and
// project/role data belong to other services.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Public returns the fields safe to hand to clients. The password hash
// never leaves the auth boundary.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, Name: u.Name}
}

// PublicUser is the minimal user info returned on login and /me.
type PublicUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}
