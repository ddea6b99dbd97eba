package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/connectfour-backend/internal/apperror"
	"github.com/rocketscienceinc/connectfour-backend/internal/usecase"
)

var (
	errMalformedMessage = errors.New("malformed message")
	errMalformedPayload = errors.New("malformed payload")
	errUnknownAction    = errors.New("unknown action")
)

// clientErrors are safe to show to the caller as is.
var clientErrors = []error{
	errMalformedMessage,
	errMalformedPayload,
	errUnknownAction,
	apperror.ErrRoomNotFound,
	apperror.ErrRoomFull,
	apperror.ErrNotInRoom,
	apperror.ErrAlreadyInRoom,
	apperror.ErrInvalidName,
	apperror.ErrNotYourTurn,
	apperror.ErrInvalidMove,
	apperror.ErrGameFinished,
	apperror.ErrGameNotStarted,
	apperror.ErrGameInProgress,
	apperror.ErrNoOpponent,
	apperror.ErrNoPendingInvite,
	apperror.ErrSelfInviteAccept,
}

// dispatch decodes one frame and runs its handler. Failures are answered to
// the caller only and never end the read loop.
func (that *Server) dispatch(ctx context.Context, c *client, data []byte) {
	log := that.logger.With("method", "dispatch", "connectionID", c.id)

	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		log.Debug("failed to unmarshal message", "error", err)
		that.replyError(c, "", errMalformedMessage)
		return
	}

	handler, ok := that.handlers[message.Action]
	if !ok {
		log.Debug("unknown action", "action", message.Action)
		that.replyError(c, message.Action, fmt.Errorf("%w: %q", errUnknownAction, message.Action))
		return
	}

	if err := handler(ctx, c, message.Payload); err != nil {
		log.Info("action rejected", "action", message.Action, "error", err)
		that.replyError(c, message.Action, err)
	}
}

func (that *Server) replyError(c *client, action string, err error) {
	message := "internal server error"
	for _, known := range clientErrors {
		if errors.Is(err, known) {
			message = err.Error()
			break
		}
	}

	that.hub.Send(c.id, usecase.ErrorEvent{Kind: errorAction(action), Message: message})
}

func errorAction(action string) string {
	switch action {
	case actionCreateRoom, actionJoinRoom:
		return usecase.ActionJoinError
	case actionMakeMove:
		return usecase.ActionMoveError
	case actionSendInvite, actionAcceptInvite, actionDeclineInvite:
		return usecase.ActionInviteError
	default:
		return usecase.ActionError
	}
}

func decode(payload []byte, v any) error {
	if len(payload) == 0 {
		return errMalformedPayload
	}

	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", errMalformedPayload, err)
	}

	return nil
}

// handleCreateRoom accepts either {"playerName": "..."} or a bare name string.
func (that *Server) handleCreateRoom(ctx context.Context, c *client, payload []byte) error {
	var name string
	if err := json.Unmarshal(payload, &name); err != nil {
		var req createRoomPayload
		if err = decode(payload, &req); err != nil {
			return err
		}
		name = req.PlayerName
	}

	return that.coordinator.CreateRoom(ctx, c.id, name)
}

func (that *Server) handleJoinRoom(ctx context.Context, c *client, payload []byte) error {
	var req joinRoomPayload
	if err := decode(payload, &req); err != nil {
		return err
	}

	return that.coordinator.JoinRoom(ctx, c.id, req.RoomID, req.PlayerName)
}

func (that *Server) handleMakeMove(ctx context.Context, c *client, payload []byte) error {
	var req makeMovePayload
	if err := decode(payload, &req); err != nil {
		return fmt.Errorf("%w: %v", apperror.ErrInvalidMove, err)
	}

	if req.Column == nil {
		return fmt.Errorf("%w: column is required", apperror.ErrInvalidMove)
	}

	return that.coordinator.MakeMove(ctx, c.id, req.RoomID, *req.Column)
}

func (that *Server) handleRestartGame(ctx context.Context, c *client, payload []byte) error {
	var req roomPayload
	if err := decode(payload, &req); err != nil {
		return err
	}

	return that.coordinator.RestartGame(ctx, c.id, req.RoomID)
}

func (that *Server) handleSendInvite(ctx context.Context, c *client, payload []byte) error {
	var req roomPayload
	if err := decode(payload, &req); err != nil {
		return err
	}

	return that.coordinator.SendRematchInvite(ctx, c.id, req.RoomID)
}

func (that *Server) handleAcceptInvite(ctx context.Context, c *client, payload []byte) error {
	var req roomPayload
	if err := decode(payload, &req); err != nil {
		return err
	}

	return that.coordinator.AcceptRematchInvite(ctx, c.id, req.RoomID)
}

func (that *Server) handleDeclineInvite(ctx context.Context, c *client, payload []byte) error {
	var req roomPayload
	if err := decode(payload, &req); err != nil {
		return err
	}

	return that.coordinator.DeclineRematchInvite(ctx, c.id, req.RoomID)
}

func (that *Server) handleLeaveRoom(ctx context.Context, c *client, payload []byte) error {
	var req roomPayload
	if err := decode(payload, &req); err != nil {
		return err
	}

	return that.coordinator.LeaveRoom(ctx, c.id, req.RoomID)
}
