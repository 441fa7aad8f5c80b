// internal/realtime/websocket.go
package realtime

import (
	"log/slog"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/homeguard_api/internal/models"
)

// Serve registers conn with the hub and pumps events to it until the peer
// disconnects or the hub shuts down. Incoming frames are read only to notice
// the disconnect.
func Serve(h *Hub, conn *websocket.Conn, userID uuid.UUID, role models.Role) {
	client := &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Role:   role,
		Send:   make(chan []byte, 256),
	}
	log := h.Logger.With(slog.String("client_id", client.ID), slog.String("user_id", userID.String()))

	h.RegisterClient(client)
	log.Info("websocket connected")

	// Send is closed on unregister and on hub shutdown. Closing conn then
	// unblocks the read loop below.
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer conn.Close()
		for msg := range client.Send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Debug("websocket write", slog.Any("error", err))
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.UnregisterClient(client)
	<-writerDone
	log.Info("websocket disconnected")
}
