package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rocketscienceinc/connectfour-backend/internal/apperror"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (that *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "handleGetRoom")

	summary, err := that.rooms.Summary(chi.URLParam(r, "roomID"))
	if errors.Is(err, apperror.ErrRoomNotFound) {
		that.writeJSON(w, http.StatusNotFound, errorResponse{Error: apperror.ErrRoomNotFound.Error()})
		return
	}

	if err != nil {
		log.Error("failed to get room summary", "error", err)
		that.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	that.writeJSON(w, http.StatusOK, summary)
}

func (that *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "handleListMatches")

	matches, err := that.matches.ListByRoom(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		log.Error("failed to list matches", "error", err)
		that.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	that.writeJSON(w, http.StatusOK, matches)
}

func (that *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to write response", "error", err)
	}
}
