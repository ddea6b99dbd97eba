package apperror

import "errors"

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room is full")
	ErrNotInRoom        = errors.New("you are not in this room")
	ErrAlreadyInRoom    = errors.New("you are already in a room")
	ErrInvalidName      = errors.New("invalid player name")
	ErrNotYourTurn      = errors.New("it's not your turn")
	ErrInvalidMove      = errors.New("invalid move")
	ErrGameFinished     = errors.New("game is already finished")
	ErrGameNotStarted   = errors.New("waiting for an opponent")
	ErrGameInProgress   = errors.New("game is still in progress")
	ErrNoOpponent       = errors.New("opponent has left the room")
	ErrNoPendingInvite  = errors.New("no pending invite")
	ErrSelfInviteAccept = errors.New("you cannot accept your own invite")
)
