package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"socialhub/internal/models"
	"socialhub/internal/observability"
	"socialhub/internal/store"
)

// NotificationRepository stores each user's notification inbox.
type NotificationRepository interface {
	// Create assigns n.ID and appends n to n.RecipientID's inbox.
	Create(ctx context.Context, n *models.Notification) error
	ListByRecipient(ctx context.Context, recipientID string) ([]*models.Notification, error)
	// MarkRead sets isRead once; calling it again keeps the first read time.
	MarkRead(ctx context.Context, recipientID, id string, at time.Time) (*models.Notification, error)
	CountUnread(ctx context.Context, recipientID string) (int, error)
}

type notificationRepository struct {
	store  store.Store
	logger *observability.RepoLogger
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(s store.Store) NotificationRepository {
	return &notificationRepository{store: s, logger: observability.NewRepoLogger(notificationsCollection)}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	id, err := r.store.Push(ctx, inboxCollection(n.RecipientID), notificationDoc{
		Type:            n.Type,
		PostID:          n.PostID,
		FromUserID:      n.FromUserID,
		FromUserName:    n.FromUserName,
		FromUserPhoto:   n.FromUserPhoto,
		PostDescription: n.PostDescription,
		PostMedia:       n.PostMedia,
		CreatedAt:       n.CreatedAt,
		IsRead:          n.IsRead,
		ReadAt:          n.ReadAt,
	})
	if err != nil {
		r.logger.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	n.ID = id
	r.logger.LogCreate(ctx, map[string]any{
		"notification_id": id,
		"recipient_id":    n.RecipientID,
		"type":            string(n.Type),
	})
	return nil
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID string) ([]*models.Notification, error) {
	docs, err := r.store.List(ctx, inboxCollection(recipientID))
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	out := make([]*models.Notification, 0, len(docs))
	for _, d := range docs {
		var doc notificationDoc
		if err := d.Decode(&doc); err != nil {
			return nil, models.NewInternalError(fmt.Errorf("decode notification %s: %w", d.Key, err))
		}
		out = append(out, doc.toModel(recipientID, d.Key))
	}
	return out, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, recipientID, id string, at time.Time) (*models.Notification, error) {
	var updated notificationDoc
	path := store.Join(inboxCollection(recipientID), id)
	err := r.store.Transact(ctx, path, func(cur json.RawMessage) (any, error) {
		if cur == nil {
			return nil, models.NewNotFoundError("Notification", id)
		}
		var doc notificationDoc
		if err := json.Unmarshal(cur, &doc); err != nil {
			return nil, err
		}
		if !doc.IsRead {
			readAt := at
			doc.IsRead = true
			doc.ReadAt = &readAt
		}
		updated = doc
		return doc, nil
	})
	if err != nil {
		if models.IsNotFound(err) {
			return nil, models.NewNotFoundError("Notification", id)
		}
		r.logger.LogError(ctx, err, "mark_read")
		return nil, models.NewInternalError(err)
	}
	return updated.toModel(recipientID, id), nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, recipientID string) (int, error) {
	docs, err := r.store.Query(ctx, inboxCollection(recipientID), "is_read", "false")
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return len(docs), nil
}
