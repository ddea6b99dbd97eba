package websocket

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const maxMessageSize = 4096

// client is one websocket connection. Frames are written only by writePump.
type client struct {
	id     string
	conn   *websocket.Conn
	logger *slog.Logger

	send chan []byte
	done chan struct{}
	once sync.Once

	writeTimeout time.Duration
	pongTimeout  time.Duration
}

func newClient(id string, conn *websocket.Conn, logger *slog.Logger, conf Config) *client {
	return &client{
		id:           id,
		conn:         conn,
		logger:       logger.With("connectionID", id),
		send:         make(chan []byte, conf.SendBuffer),
		done:         make(chan struct{}),
		writeTimeout: conf.WriteTimeout,
		pongTimeout:  conf.PongTimeout,
	}
}

func (that *client) enqueue(data []byte) bool {
	select {
	case <-that.done:
		return true
	default:
	}

	select {
	case that.send <- data:
		return true
	default:
		return false
	}
}

func (that *client) close() {
	that.once.Do(func() {
		close(that.done)
	})
}

// readPump feeds inbound frames to handle until the socket fails or closes.
func (that *client) readPump(ctx context.Context, handle func(ctx context.Context, c *client, data []byte)) {
	log := that.logger.With("method", "readPump")

	that.conn.SetReadLimit(maxMessageSize)
	_ = that.conn.SetReadDeadline(time.Now().Add(that.pongTimeout))
	that.conn.SetPongHandler(func(string) error {
		return that.conn.SetReadDeadline(time.Now().Add(that.pongTimeout))
	})

	for {
		messageType, data, err := that.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) &&
				!errors.Is(err, websocket.ErrCloseSent) {
				log.Warn("connection closed unexpectedly", "error", err)
			}
			return
		}

		if messageType != websocket.TextMessage {
			continue
		}

		handle(ctx, that, data)
	}
}

// writePump owns all writes to the socket and pings it every pingPeriod.
func (that *client) writePump() {
	log := that.logger.With("method", "writePump")

	ticker := time.NewTicker(that.pingPeriod())
	defer func() {
		ticker.Stop()
		_ = that.conn.Close()
	}()

	for {
		select {
		case data := <-that.send:
			_ = that.conn.SetWriteDeadline(time.Now().Add(that.writeTimeout))
			if err := that.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug("failed to write message", "error", err)
				return
			}
		case <-ticker.C:
			_ = that.conn.SetWriteDeadline(time.Now().Add(that.writeTimeout))
			if err := that.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug("failed to write ping", "error", err)
				return
			}
		case <-that.done:
			_ = that.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(that.writeTimeout),
			)
			return
		}
	}
}

// pingPeriod keeps pings well inside the pong deadline.
func (that *client) pingPeriod() time.Duration {
	return that.pongTimeout * 9 / 10
}
