package entity

import (
	"fmt"

	"github.com/rocketscienceinc/connectfour-backend/internal/apperror"
)

type Outcome string

const (
	OutcomeInProgress Outcome = "in_progress"
	OutcomeWon        Outcome = "won"
	OutcomeDrawn      Outcome = "drawn"
)

// Game is one round of play inside a room.
type Game struct {
	Board         Board
	CurrentPlayer Cell
	Outcome       Outcome
	Winner        Cell
	Moves         int
	LastMove      *Position
}

func NewGame() *Game {
	return &Game{
		CurrentPlayer: PlayerOne,
		Outcome:       OutcomeInProgress,
	}
}

// MakeTurn drops a disc for player and settles the outcome. The game is not
// modified when an error is returned.
func (that *Game) MakeTurn(player Cell, column int) (Position, error) {
	if that.IsFinished() {
		return Position{}, apperror.ErrGameFinished
	}

	if that.CurrentPlayer != player {
		return Position{}, apperror.ErrNotYourTurn
	}

	if column < 0 || column >= Columns {
		return Position{}, fmt.Errorf("%w: column %d", apperror.ErrInvalidMove, column)
	}

	pos, ok := that.Board.ApplyMove(column, player)
	if !ok {
		return Position{}, fmt.Errorf("%w: column %d is full", apperror.ErrInvalidMove, column)
	}

	that.Moves++
	that.LastMove = &pos

	switch {
	case that.Board.CheckWin(pos.Row, pos.Column):
		that.Outcome = OutcomeWon
		that.Winner = player
	case that.Board.IsFull():
		that.Outcome = OutcomeDrawn
	default:
		that.CurrentPlayer = player.Opponent()
	}

	return pos, nil
}

// Forfeit ends an ongoing game in favour of loser's opponent.
func (that *Game) Forfeit(loser Cell) {
	that.Outcome = OutcomeWon
	that.Winner = loser.Opponent()
}

func (that *Game) Reset() {
	that.Board.Reset()
	that.CurrentPlayer = PlayerOne
	that.Outcome = OutcomeInProgress
	that.Winner = EmptyCell
	that.Moves = 0
	that.LastMove = nil
}

func (that *Game) IsOngoing() bool {
	return that.Outcome == OutcomeInProgress
}

func (that *Game) IsFinished() bool {
	return that.Outcome != OutcomeInProgress
}

// GameState is the wire shape of a game shared by every state-carrying message.
type GameState struct {
	Board         Board `json:"board"`
	CurrentPlayer Cell  `json:"currentPlayer"`
	Winner        *Cell `json:"winner"`
	GameOver      bool  `json:"gameOver"`
}

func (that *Game) State() GameState {
	state := GameState{
		Board:         that.Board,
		CurrentPlayer: that.CurrentPlayer,
		GameOver:      that.IsFinished(),
	}

	if that.Outcome == OutcomeWon {
		winner := that.Winner
		state.Winner = &winner
	}

	return state
}
