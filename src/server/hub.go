package server

import (
	"errors"
	"net/http"

	"metrics-broker/src/broker"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

func (s *FastAPIServer) handleWebSocket(c *gin.Context) {
	opts := s.Broker.Options()
	if s.Broker.AtCapacity() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": broker.ErrTooManyConnections.Error()})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}
	if opts.CompressionEnabled {
		conn.EnableWriteCompression(true)
	}

	client := newClient(s, conn, opts.SendQueueSize)

	id, err := s.Broker.OnConnect(client)
	if err != nil {
		// lost the race for the last slot, or shutting down
		code := websocket.CloseTryAgainLater
		if errors.Is(err, broker.ErrBrokerClosed) {
			code = websocket.CloseGoingAway
		}
		client.reject(code, err.Error())
		return
	}
	client.id = id

	go client.writePump()
	go client.readPump()
}
