package server

import (
	"chat-lounge/infrastructure/ws/wire"
	"chat-lounge/runtime"
	"chat-lounge/sink"
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// connection owns one websocket: readPump runs in the handler goroutine,
// writePump is the only writer of the socket.
type connection struct {
	log      *slog.Logger
	ws       *websocket.Conn
	session  *runtime.Session
	sink     *sink.ConnectionSink
	settings Settings
	shutdown <-chan struct{}
}

// readPump feeds inbound frames to the session until the socket fails.
// Leaving it is the one and only disconnect path.
func (c *connection) readPump(ctx context.Context) {
	defer func() {
		c.session.Close(ctx)
		c.sink.Close()
		_ = c.ws.Close()
	}()

	// A frame is JSON, allow some room around the text itself
	c.ws.SetReadLimit(int64(c.settings.MaxContentLength)*4 + 512)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.settings.PongTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.settings.PongTimeout))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("Websocket read failed", "error", err)
			}
			return
		}

		cmd, err := wire.Decode(data, c.settings.MaxContentLength)
		if err != nil {
			c.log.Debug("Dropping inbound frame", "error", err)
			continue
		}
		c.session.Handle(ctx, cmd)
	}
}

// writePump drains the outbound queue in order and keeps the peer alive with pings.
func (c *connection) writePump() {
	ticker := time.NewTicker(c.settings.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case evt := <-c.sink.Events():
			data, err := wire.Encode(evt)
			if err != nil {
				c.log.Error("Event not encoded", "event", evt.Kind(), "error", err)
				continue
			}
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.settings.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Debug("Websocket write failed", "error", err)
				c.sink.Close()
				return
			}
		case <-c.sink.Done():
			// Slow consumer or read side gone
			c.closeWith(websocket.ClosePolicyViolation, "too slow")
			return
		case <-c.shutdown:
			c.closeWith(websocket.CloseGoingAway, "server shutting down")
			return
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.settings.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.sink.Close()
				return
			}
		}
	}
}

func (c *connection) closeWith(code int, reason string) {
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(c.settings.WriteTimeout))
}
