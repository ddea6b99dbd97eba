package entity

import "time"

const (
	ReasonFourInARow = "four_in_a_row"
	ReasonDraw       = "draw"
	ReasonTimeout    = "timeout"
)

// MatchResult is the archived summary of a finished game.
type MatchResult struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"roomId"`
	Players    []Player  `json:"players"`
	Winner     *Cell     `json:"winner"`
	Reason     string    `json:"reason"`
	Moves      int       `json:"moves"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}
