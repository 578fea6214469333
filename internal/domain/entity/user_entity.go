package entity

import (
	"time"
)

// User is the aggregate root for the credential domain.
// Passwords are stored as bcrypt hashes in PasswordHash; email and username
// are unique across all users.
type User struct {
	ID           string
	Email        string
	Username     string
	FirstName    string
	LastName     string
	Age          int
	Gender       string
	Industry     string
	Profession   string
	PasswordHash string
	CreatedAt    time.Time
}

// FullName joins first and last name for display.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
