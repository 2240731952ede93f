package server

import (
	"context"

	"socialhub/internal/featureflags"
	"socialhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetFeatureFlags handles GET /api/users/me/features and returns the flags
// evaluated for the caller.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"flags": s.flags.Snapshot(currentUserID(c)),
	})
}

// flaggedPublisher drops live pushes for recipients outside the realtime_push
// rollout. Unset means everyone gets them.
type flaggedPublisher struct {
	flags *featureflags.Manager
	next  service.RealtimePublisher
}

func (p flaggedPublisher) PublishUser(ctx context.Context, userID string, payload string) error {
	if !p.flags.EnabledOr(featureflags.RealtimePush, userID, true) {
		return nil
	}
	return p.next.PublishUser(ctx, userID, payload)
}
