package models

import (
	"strings"
	"time"
)

// MediaKind tags the media attached to a post.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// MediaKindFromMIME derives the media kind from an upload MIME type.
// Anything that is not image/* is treated as video.
func MediaKindFromMIME(mime string) MediaKind {
	if strings.HasPrefix(strings.ToLower(mime), "image/") {
		return MediaImage
	}
	return MediaVideo
}

// Post represents a post with its engagement counters.
type Post struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Description string    `json:"description"`
	MediaURL    string    `json:"media_url"`
	MediaType   MediaKind `json:"media_type"`
	Shares      int       `json:"shares"`
	CreatedAt   time.Time `json:"created_at"`

	// Computed at read time, not persisted on the post document.
	Author        *AuthorSummary `json:"user,omitempty"`
	LikesCount    int            `json:"likes_count"`
	CommentsCount int            `json:"comments_count"`
	Liked         bool           `json:"liked"`
}
