package websocket

import "encoding/json"

// Inbound actions.
const (
	actionCreateRoom    = "createRoom"
	actionJoinRoom      = "joinRoom"
	actionMakeMove      = "makeMove"
	actionRestartGame   = "restartGame"
	actionSendInvite    = "sendRematchInvite"
	actionAcceptInvite  = "acceptRematchInvite"
	actionDeclineInvite = "declineRematchInvite"
	actionLeaveRoom     = "leaveRoom"
)

// Message is the envelope of every frame in both directions.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type createRoomPayload struct {
	PlayerName string `json:"playerName"`
}

type joinRoomPayload struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
}

type makeMovePayload struct {
	RoomID string `json:"roomId"`
	Column *int   `json:"column"`
}

type roomPayload struct {
	RoomID string `json:"roomId"`
}
