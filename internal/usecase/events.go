package usecase

import "github.com/rocketscienceinc/connectfour-backend/internal/entity"

// Outbound actions.
const (
	ActionRoomCreated    = "roomCreated"
	ActionRoomJoined     = "roomJoined"
	ActionPlayerJoined   = "playerJoined"
	ActionMoveMade       = "moveMade"
	ActionTurnStarted    = "turnStarted"
	ActionTimeUp         = "timeUp"
	ActionGameRestarted  = "gameRestarted"
	ActionInviteSent     = "playAgainInviteSent"
	ActionInviteReceived = "playAgainInviteReceived"
	ActionInviteDeclined = "playAgainInviteDeclined"
	ActionPlayerLeft     = "playerLeft"
	ActionJoinError      = "joinError"
	ActionMoveError      = "moveError"
	ActionInviteError    = "inviteError"
	ActionError          = "error"
)

// Event is a message for one connection. Its JSON form is the payload.
type Event interface {
	Action() string
}

type RoomCreated struct {
	RoomID       string      `json:"roomId"`
	PlayerNumber entity.Cell `json:"playerNumber"`
}

func (RoomCreated) Action() string { return ActionRoomCreated }

type RoomJoined struct {
	RoomID       string      `json:"roomId"`
	PlayerNumber entity.Cell `json:"playerNumber"`
}

func (RoomJoined) Action() string { return ActionRoomJoined }

type PlayerJoined struct {
	Players   []entity.Player  `json:"players"`
	GameState entity.GameState `json:"gameState"`
}

func (PlayerJoined) Action() string { return ActionPlayerJoined }

type MoveMade struct {
	entity.GameState
	LastMove entity.Position `json:"lastMove"`
}

func (MoveMade) Action() string { return ActionMoveMade }

type TurnStarted struct {
	CurrentPlayer entity.Cell `json:"currentPlayer"`
	// TimeLimit is the turn length in milliseconds.
	TimeLimit int64 `json:"timeLimit"`
	// StartTime is unix milliseconds.
	StartTime int64 `json:"startTime"`
}

func (TurnStarted) Action() string { return ActionTurnStarted }

// TimeUp carries the state after the player on turn forfeited.
type TimeUp struct {
	entity.GameState
}

func (TimeUp) Action() string { return ActionTimeUp }

type GameRestarted struct {
	entity.GameState
}

func (GameRestarted) Action() string { return ActionGameRestarted }

type InviteSent struct{}

func (InviteSent) Action() string { return ActionInviteSent }

type InviteReceived struct {
	FromPlayerNumber entity.Cell `json:"fromPlayerNumber"`
	FromName         string      `json:"fromName"`
}

func (InviteReceived) Action() string { return ActionInviteReceived }

type InviteDeclined struct {
	ByName string `json:"byName"`
}

func (InviteDeclined) Action() string { return ActionInviteDeclined }

type PlayerLeft struct {
	PlayerNumber entity.Cell `json:"playerNumber"`
}

func (PlayerLeft) Action() string { return ActionPlayerLeft }

// ErrorEvent is a failure reply sent to the caller only.
type ErrorEvent struct {
	Kind    string `json:"-"`
	Message string `json:"message"`
}

func (that ErrorEvent) Action() string { return that.Kind }
