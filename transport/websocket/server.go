package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	defaultSendBuffer   = 32
	defaultWriteTimeout = 10 * time.Second
	defaultPongTimeout  = 60 * time.Second
	shutdownTimeout     = 5 * time.Second
)

type coordinator interface {
	CreateRoom(ctx context.Context, connectionID, name string) error
	JoinRoom(ctx context.Context, connectionID, roomID, name string) error
	MakeMove(ctx context.Context, connectionID, roomID string, column int) error
	RestartGame(ctx context.Context, connectionID, roomID string) error

	SendRematchInvite(ctx context.Context, connectionID, roomID string) error
	AcceptRematchInvite(ctx context.Context, connectionID, roomID string) error
	DeclineRematchInvite(ctx context.Context, connectionID, roomID string) error

	LeaveRoom(ctx context.Context, connectionID, roomID string) error
	Disconnect(ctx context.Context, connectionID string) error
}

type Config struct {
	// AllowedOrigins lists accepted Origin headers. Empty accepts any origin.
	AllowedOrigins []string
	SendBuffer     int
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
}

type Server struct {
	logger      *slog.Logger
	coordinator coordinator
	hub         *Hub
	conf        Config
	upgrader    websocket.Upgrader

	handlers map[string]func(ctx context.Context, c *client, payload []byte) error
}

func New(logger *slog.Logger, coordinator coordinator, hub *Hub, conf Config) *Server {
	if conf.SendBuffer <= 0 {
		conf.SendBuffer = defaultSendBuffer
	}

	if conf.WriteTimeout <= 0 {
		conf.WriteTimeout = defaultWriteTimeout
	}

	if conf.PongTimeout <= 0 {
		conf.PongTimeout = defaultPongTimeout
	}

	server := &Server{
		logger:      logger.With("component", "websocket"),
		coordinator: coordinator,
		hub:         hub,
		conf:        conf,

		handlers: make(map[string]func(context.Context, *client, []byte) error),
	}

	server.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     server.checkOrigin,
	}

	server.handlers[actionCreateRoom] = server.handleCreateRoom
	server.handlers[actionJoinRoom] = server.handleJoinRoom
	server.handlers[actionMakeMove] = server.handleMakeMove
	server.handlers[actionRestartGame] = server.handleRestartGame
	server.handlers[actionSendInvite] = server.handleSendInvite
	server.handlers[actionAcceptInvite] = server.handleAcceptInvite
	server.handlers[actionDeclineInvite] = server.handleDeclineInvite
	server.handlers[actionLeaveRoom] = server.handleLeaveRoom

	return server
}

func (that *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Get("/ws", that.serveWS)

	return router
}

// Start serves websocket connections on port until ctx is cancelled.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down websocket server", "error", err)
		}

		that.hub.closeAll()
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) serveWS(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "serveWS")

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Warn("failed to upgrade connection", "error", err)
		return
	}

	c := newClient(uuid.NewString(), conn, that.logger, that.conf)
	that.hub.register(c)

	log = log.With("connectionID", c.id)
	log.Info("websocket connection established")

	go c.writePump()
	c.readPump(req.Context(), that.dispatch)

	c.close()
	that.hub.unregister(c)

	if err = that.coordinator.Disconnect(context.WithoutCancel(req.Context()), c.id); err != nil {
		log.Error("failed to disconnect", "error", err)
	}

	log.Info("websocket connection closed")
}

func (that *Server) checkOrigin(req *http.Request) bool {
	if len(that.conf.AllowedOrigins) == 0 {
		return true
	}

	origin := req.Header.Get("Origin")
	if origin == "" {
		return true
	}

	return slices.Contains(that.conf.AllowedOrigins, origin)
}
