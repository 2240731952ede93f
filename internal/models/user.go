// Package models contains data structures for the application's domain models.
package models

import "time"

// User is a registered account. Password holds the bcrypt hash and never
// leaves the service layer.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Name      string    `json:"name"`
	BirthDate string    `json:"birth_date"`
	Gender    string    `json:"gender"`
	Photo     string    `json:"photo"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthorSummary is the denormalized author shown next to posts and comments.
type AuthorSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Photo string `json:"photo"`
}

// Summary returns the public author fields of u.
func (u *User) Summary() AuthorSummary {
	if u == nil {
		return AuthorSummary{}
	}
	return AuthorSummary{ID: u.ID, Name: u.Name, Photo: u.Photo}
}
