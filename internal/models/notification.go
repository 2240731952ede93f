package models

import "time"

// NotificationType identifies the engagement that produced a notification.
type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationComment NotificationType = "comment"
)

// Notification is an inbox entry. The from*/post* fields are a snapshot
// taken when the notification was created and are never refreshed.
type Notification struct {
	ID              string           `json:"id"`
	RecipientID     string           `json:"recipient_id"`
	Type            NotificationType `json:"type"`
	PostID          string           `json:"post_id"`
	FromUserID      string           `json:"from_user_id"`
	FromUserName    string           `json:"from_user_name"`
	FromUserPhoto   string           `json:"from_user_photo"`
	PostDescription string           `json:"post_description"`
	PostMedia       string           `json:"post_media"`
	CreatedAt       time.Time        `json:"created_at"`
	IsRead          bool             `json:"is_read"`
	ReadAt          *time.Time       `json:"read_at,omitempty"`
}

// EngagementEvent is emitted by the like and comment paths when another
// user's post receives engagement.
type EngagementEvent struct {
	Type       NotificationType `json:"type"`
	PostID     string           `json:"post_id"`
	ActorID    string           `json:"actor_id"`
	OwnerID    string           `json:"owner_id"`
	OccurredAt time.Time        `json:"occurred_at"`
}
