package repository

import (
	"net/url"
	"time"

	"socialhub/internal/models"
	"socialhub/internal/store"
)

// Collection roots in the document store.
const (
	usersCollection         = "users"
	userEmailsCollection    = "user_emails"
	postsCollection         = "posts"
	notificationsCollection = "notifications"
)

func userPath(id string) string { return store.Join(usersCollection, id) }

// emailClaimPath escapes the email so it is always a single path segment.
func emailClaimPath(email string) string {
	return store.Join(userEmailsCollection, url.PathEscape(email))
}

func postPath(id string) string { return store.Join(postsCollection, id) }

func likesCollection(postID string) string {
	return store.Join(postsCollection, postID, "likes")
}

func commentsCollection(postID string) string {
	return store.Join(postsCollection, postID, "comments")
}

func inboxCollection(recipientID string) string {
	return store.Join(notificationsCollection, recipientID)
}

// Stored document shapes. They differ from the API models: users keep their
// password hash, and ids live in the path rather than the body.

type userDoc struct {
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	Name      string    `json:"name"`
	BirthDate string    `json:"birth_date"`
	Gender    string    `json:"gender"`
	Photo     string    `json:"photo"`
	CreatedAt time.Time `json:"created_at"`
}

func (d userDoc) toModel(id string) *models.User {
	return &models.User{
		ID:        id,
		Email:     d.Email,
		Password:  d.Password,
		Name:      d.Name,
		BirthDate: d.BirthDate,
		Gender:    d.Gender,
		Photo:     d.Photo,
		CreatedAt: d.CreatedAt,
	}
}

type emailClaimDoc struct {
	UserID string `json:"user_id"`
}

type postDoc struct {
	UserID      string           `json:"user_id"`
	Description string           `json:"description"`
	MediaURL    string           `json:"media_url"`
	MediaType   models.MediaKind `json:"media_type"`
	Shares      int              `json:"shares"`
	CreatedAt   time.Time        `json:"created_at"`
}

func (d postDoc) toModel(id string) *models.Post {
	return &models.Post{
		ID:          id,
		UserID:      d.UserID,
		Description: d.Description,
		MediaURL:    d.MediaURL,
		MediaType:   d.MediaType,
		Shares:      d.Shares,
		CreatedAt:   d.CreatedAt,
	}
}

type likeDoc struct {
	Timestamp time.Time `json:"timestamp"`
}

type commentDoc struct {
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type notificationDoc struct {
	Type            models.NotificationType `json:"type"`
	PostID          string                  `json:"post_id"`
	FromUserID      string                  `json:"from_user_id"`
	FromUserName    string                  `json:"from_user_name"`
	FromUserPhoto   string                  `json:"from_user_photo"`
	PostDescription string                  `json:"post_description"`
	PostMedia       string                  `json:"post_media"`
	CreatedAt       time.Time               `json:"created_at"`
	IsRead          bool                    `json:"is_read"`
	ReadAt          *time.Time              `json:"read_at,omitempty"`
}

func (d notificationDoc) toModel(recipientID, id string) *models.Notification {
	return &models.Notification{
		ID:              id,
		RecipientID:     recipientID,
		Type:            d.Type,
		PostID:          d.PostID,
		FromUserID:      d.FromUserID,
		FromUserName:    d.FromUserName,
		FromUserPhoto:   d.FromUserPhoto,
		PostDescription: d.PostDescription,
		PostMedia:       d.PostMedia,
		CreatedAt:       d.CreatedAt,
		IsRead:          d.IsRead,
		ReadAt:          d.ReadAt,
	}
}
