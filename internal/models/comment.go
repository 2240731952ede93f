package models

import "time"

// Comment represents a comment on a post
type Comment struct {
	ID        string         `json:"id"`
	PostID    string         `json:"post_id"`
	UserID    string         `json:"user_id"`
	Text      string         `json:"text"`
	CreatedAt time.Time      `json:"created_at"`
	Author    *AuthorSummary `json:"user,omitempty"`
}
