package usecase

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/rocketscienceinc/connectfour-backend/internal/entity"
)

// TurnClock keeps at most one pending deadline per room. All methods expect
// the room lock to be held by the caller.
type TurnClock struct {
	clock   clock.Clock
	timeout time.Duration
}

func NewTurnClock(clk clock.Clock, timeout time.Duration) *TurnClock {
	return &TurnClock{
		clock:   clk,
		timeout: timeout,
	}
}

// Arm replaces the room's deadline with a fresh one for the current player.
// onExpire receives the epoch the timer was armed with; it runs on its own
// goroutine and must take the room lock and compare epochs before acting.
func (that *TurnClock) Arm(room *entity.Room, onExpire func(room *entity.Room, epoch uint64)) TurnStarted {
	epoch := room.NextClockEpoch()
	startedAt := that.clock.Now()

	timer := that.clock.AfterFunc(that.timeout, func() {
		onExpire(room, epoch)
	})
	room.SetTurnTimer(timer, startedAt, startedAt.Add(that.timeout))

	return TurnStarted{
		CurrentPlayer: room.Game.CurrentPlayer,
		TimeLimit:     that.timeout.Milliseconds(),
		StartTime:     startedAt.UnixMilli(),
	}
}

// Cancel drops the deadline. A callback already queued sees a newer epoch and does nothing.
func (that *TurnClock) Cancel(room *entity.Room) {
	room.NextClockEpoch()
}

func (that *TurnClock) Now() time.Time {
	return that.clock.Now()
}
