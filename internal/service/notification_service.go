package service

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	"socialhub/internal/models"
	"socialhub/internal/observability"
	"socialhub/internal/repository"
)

// RealtimeMessage is the envelope pushed to websocket clients.
type RealtimeMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

const realtimeNotification = "notification"

type NotificationService struct {
	notifRepo repository.NotificationRepository
	userRepo  repository.UserRepository
	postRepo  repository.PostRepository
	publisher RealtimePublisher
	urls      *URLBuilder
	now       func() time.Time
}

// FanOutInput identifies who engaged with which post, and how.
type FanOutInput struct {
	RecipientID string
	ActorID     string
	Type        models.NotificationType
	PostID      string
	At          time.Time
}

func NewNotificationService(
	notifRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	postRepo repository.PostRepository,
	publisher RealtimePublisher,
	urls *URLBuilder,
) *NotificationService {
	return &NotificationService{
		notifRepo: notifRepo,
		userRepo:  userRepo,
		postRepo:  postRepo,
		publisher: publisher,
		urls:      urls,
		now:       time.Now,
	}
}

// FanOut snapshots the actor and the post as they are now and appends the
// notification to the recipient's inbox. The snapshot is never refreshed.
func (s *NotificationService) FanOut(ctx context.Context, in FanOutInput) (*models.Notification, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}

	var actor models.AuthorSummary
	user, err := s.userRepo.GetByID(ctx, in.ActorID)
	switch {
	case err == nil:
		actor = user.Summary()
	case models.IsNotFound(err):
		actor = models.AuthorSummary{ID: in.ActorID}
	default:
		return nil, err
	}

	at := in.At
	if at.IsZero() {
		at = s.now()
	}
	n := &models.Notification{
		RecipientID:     in.RecipientID,
		Type:            in.Type,
		PostID:          post.ID,
		FromUserID:      in.ActorID,
		FromUserName:    actor.Name,
		FromUserPhoto:   actor.Photo,
		PostDescription: post.Description,
		PostMedia:       post.MediaURL,
		CreatedAt:       at.UTC(),
	}
	if err := s.notifRepo.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// HandleEngagement is the event subscriber: fan out, then push the result to
// the recipient's live connections. A failed push is logged only.
func (s *NotificationService) HandleEngagement(ctx context.Context, ev models.EngagementEvent) error {
	ctx, span := observability.StartServiceSpan(ctx, "NotificationService", "HandleEngagement")
	defer span.End()

	n, err := s.FanOut(ctx, FanOutInput{
		RecipientID: ev.OwnerID,
		ActorID:     ev.ActorID,
		Type:        ev.Type,
		PostID:      ev.PostID,
		At:          ev.OccurredAt,
	})
	if err != nil {
		observability.NotificationsDispatched.WithLabelValues(string(ev.Type), "failed").Inc()
		observability.RecordErrorInContext(ctx, err)
		return err
	}
	observability.NotificationsDispatched.WithLabelValues(string(ev.Type), "stored").Inc()

	if s.publisher == nil {
		return nil
	}
	payload, err := json.Marshal(RealtimeMessage{Type: realtimeNotification, Payload: s.present(n)})
	if err != nil {
		return nil
	}
	if err := s.publisher.PublishUser(ctx, n.RecipientID, string(payload)); err != nil {
		observability.LogAsyncOperationError(ctx, "notification_publish", err, map[string]any{
			"recipient_id":    n.RecipientID,
			"notification_id": n.ID,
		})
	}
	return nil
}

// List returns the recipient's notifications newest first.
func (s *NotificationService) List(ctx context.Context, recipientID string) ([]*models.Notification, error) {
	list, err := s.notifRepo.ListByRecipient(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Notification, len(list))
	for i, n := range list {
		out[i] = s.present(n)
	}
	slices.SortStableFunc(out, func(a, b *models.Notification) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

// MarkAsRead moves a notification to read. Repeating it is a no-op.
func (s *NotificationService) MarkAsRead(ctx context.Context, recipientID, notificationID string) (*models.Notification, error) {
	n, err := s.notifRepo.MarkRead(ctx, recipientID, notificationID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	return s.present(n), nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	return s.notifRepo.CountUnread(ctx, recipientID)
}

func (s *NotificationService) present(n *models.Notification) *models.Notification {
	out := *n
	out.FromUserPhoto = s.urls.Absolute(n.FromUserPhoto)
	out.PostMedia = s.urls.Absolute(n.PostMedia)
	return &out
}
