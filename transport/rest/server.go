package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rocketscienceinc/connectfour-backend/internal/entity"
	"github.com/rocketscienceinc/connectfour-backend/internal/usecase"
)

const shutdownTimeout = 5 * time.Second

type roomService interface {
	Summary(roomID string) (*usecase.RoomSummary, error)
}

type matchService interface {
	ListByRoom(ctx context.Context, roomID string) ([]*entity.MatchResult, error)
}

type Server struct {
	logger  *slog.Logger
	rooms   roomService
	matches matchService
}

// New builds the HTTP API. matches may be nil when no archive is configured.
func New(logger *slog.Logger, rooms roomService, matches matchService) *Server {
	return &Server{
		logger:  logger.With("component", "rest"),
		rooms:   rooms,
		matches: matches,
	}
}

func (that *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.Get("/ping", that.handlePing)

	router.Route("/rooms/{roomID}", func(r chi.Router) {
		r.Get("/", that.handleGetRoom)

		if that.matches != nil {
			r.Get("/matches", that.handleListMatches)
		}
	})

	return router
}

// Start serves the API on port until ctx is cancelled.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down http server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
