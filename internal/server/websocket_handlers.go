package server

import (
	"context"
	"log/slog"

	"socialhub/internal/middleware"
	"socialhub/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebsocketHandler handles GET /api/ws. The connection is registered under
// the authenticated user and receives that user's notification messages.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals(middleware.LocalUserID).(string)
		if userID == "" {
			_ = conn.Close()
			return
		}
		ctx := context.WithValue(context.Background(), observability.UserIDKey, userID)

		client, err := s.hub.Register(ctx, userID, conn)
		if err != nil {
			slog.WarnContext(ctx, "websocket registration rejected", slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","payload":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		// fiber recycles conn once this returns, so wait for the writer too.
		written := make(chan struct{})
		go func() {
			defer close(written)
			client.WritePump()
		}()
		client.ReadPump()
		<-written
	})
}
