package entity

import (
	"sync"
	"time"
)

const MaxPlayers = 2

// Stopper is a scheduled callback that can be cancelled.
type Stopper interface {
	Stop() bool
}

// Room binds up to two players to one game. All fields are guarded by the
// room lock; callers must hold it (Lock/Unlock) for every read and write.
type Room struct {
	ID      string
	Players []*Player
	Game    *Game

	// PendingRematchFrom is the player number that sent an unanswered invite.
	PendingRematchFrom Cell
	StartedAt          time.Time

	mu     sync.Mutex
	closed bool

	clockEpoch    uint64
	turnTimer     Stopper
	turnStartedAt time.Time
	turnDeadline  time.Time
}

func NewRoom(id string) *Room {
	return &Room{
		ID:   id,
		Game: NewGame(),
	}
}

func (that *Room) Lock()   { that.mu.Lock() }
func (that *Room) Unlock() { that.mu.Unlock() }

// Close marks the room as removed; later events for it are ignored.
func (that *Room) Close() {
	that.closed = true
	that.StopTurnTimer()
}

func (that *Room) IsClosed() bool {
	return that.closed
}

func (that *Room) IsFull() bool {
	return len(that.Players) >= MaxPlayers
}

func (that *Room) IsEmpty() bool {
	return len(that.Players) == 0
}

// Seat adds a player under the lowest free player number.
func (that *Room) Seat(connectionID, name string) *Player {
	number := PlayerOne
	if len(that.Players) == 1 && that.Players[0].Number == PlayerOne {
		number = PlayerTwo
	}

	player := &Player{ConnectionID: connectionID, Name: name, Number: number}
	that.Players = append(that.Players, player)

	if len(that.Players) == MaxPlayers && that.Players[0].Number == PlayerTwo {
		that.Players[0], that.Players[1] = that.Players[1], that.Players[0]
	}

	return player
}

// Unseat removes the player bound to connectionID and returns it.
func (that *Room) Unseat(connectionID string) (*Player, bool) {
	for i, player := range that.Players {
		if player.ConnectionID == connectionID {
			that.Players = append(that.Players[:i], that.Players[i+1:]...)
			return player, true
		}
	}
	return nil, false
}

func (that *Room) PlayerByConnection(connectionID string) (*Player, bool) {
	for _, player := range that.Players {
		if player.ConnectionID == connectionID {
			return player, true
		}
	}
	return nil, false
}

func (that *Room) PlayerByNumber(number Cell) (*Player, bool) {
	for _, player := range that.Players {
		if player.Number == number {
			return player, true
		}
	}
	return nil, false
}

// Opponent returns the other seated player, if any.
func (that *Room) Opponent(player *Player) (*Player, bool) {
	return that.PlayerByNumber(player.Number.Opponent())
}

// ConnectionIDs lists the connections of every seated player in seat order.
func (that *Room) ConnectionIDs() []string {
	ids := make([]string, 0, len(that.Players))
	for _, player := range that.Players {
		ids = append(ids, player.ConnectionID)
	}
	return ids
}

// PlayersSnapshot copies the seated players for use outside the lock.
func (that *Room) PlayersSnapshot() []Player {
	players := make([]Player, 0, len(that.Players))
	for _, player := range that.Players {
		players = append(players, *player)
	}
	return players
}

// ClockEpoch identifies the turn timer generation. Every arm or cancel bumps it.
func (that *Room) ClockEpoch() uint64 {
	return that.clockEpoch
}

// NextClockEpoch stops the live timer, if any, and starts a new generation.
func (that *Room) NextClockEpoch() uint64 {
	that.StopTurnTimer()
	that.clockEpoch++
	return that.clockEpoch
}

func (that *Room) SetTurnTimer(timer Stopper, startedAt, deadline time.Time) {
	that.turnTimer = timer
	that.turnStartedAt = startedAt
	that.turnDeadline = deadline
}

// StopTurnTimer stops the live timer and forgets the deadline. The epoch is
// left as is; use NextClockEpoch to invalidate callbacks already in flight.
func (that *Room) StopTurnTimer() {
	if that.turnTimer != nil {
		that.turnTimer.Stop()
		that.turnTimer = nil
	}
	that.turnStartedAt = time.Time{}
	that.turnDeadline = time.Time{}
}

// TurnDeadline returns the start and end of the running turn.
func (that *Room) TurnDeadline() (time.Time, time.Time, bool) {
	if that.turnDeadline.IsZero() {
		return time.Time{}, time.Time{}, false
	}
	return that.turnStartedAt, that.turnDeadline, true
}
