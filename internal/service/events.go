package service

import (
	"context"
	"time"

	"socialhub/internal/models"
)

// EventEmitter receives engagement events from the like and comment paths.
// Emit must not block the caller on downstream work.
type EventEmitter interface {
	Emit(ctx context.Context, ev models.EngagementEvent)
}

// EmitterFunc adapts a function to EventEmitter.
type EmitterFunc func(ctx context.Context, ev models.EngagementEvent)

func (f EmitterFunc) Emit(ctx context.Context, ev models.EngagementEvent) { f(ctx, ev) }

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, models.EngagementEvent) {}

// RealtimePublisher pushes a serialized message to one user's live connections.
type RealtimePublisher interface {
	PublishUser(ctx context.Context, userID string, payload string) error
}

// newEngagementEvent builds the event for actorID engaging with post. It
// reports false when the actor owns the post and nobody should be notified.
func newEngagementEvent(kind models.NotificationType, post *models.Post, actorID string, at time.Time) (models.EngagementEvent, bool) {
	if actorID == post.UserID {
		return models.EngagementEvent{}, false
	}
	return models.EngagementEvent{
		Type:       kind,
		PostID:     post.ID,
		ActorID:    actorID,
		OwnerID:    post.UserID,
		OccurredAt: at,
	}, true
}
