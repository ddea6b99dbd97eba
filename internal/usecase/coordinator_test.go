package usecase

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/connectfour-backend/internal/apperror"
	"github.com/rocketscienceinc/connectfour-backend/internal/entity"
	"github.com/rocketscienceinc/connectfour-backend/internal/repository"
)

const (
	turnTimeout = 30 * time.Second
	waitFor     = time.Second
	tick        = 5 * time.Millisecond

	connA = "conn-a"
	connB = "conn-b"
	connC = "conn-c"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events map[string][]Event
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{events: make(map[string][]Event)}
}

func (that *recordingNotifier) Send(connectionID string, event Event) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.events[connectionID] = append(that.events[connectionID], event)
}

func (that *recordingNotifier) Events(connectionID string) []Event {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]Event(nil), that.events[connectionID]...)
}

func (that *recordingNotifier) Actions(connectionID string) []string {
	var actions []string
	for _, event := range that.Events(connectionID) {
		actions = append(actions, event.Action())
	}
	return actions
}

func (that *recordingNotifier) Clear() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.events = make(map[string][]Event)
}

func lastOf[T Event](t *testing.T, n *recordingNotifier, connectionID string) T {
	t.Helper()

	events := n.Events(connectionID)
	for i := len(events) - 1; i >= 0; i-- {
		if event, ok := events[i].(T); ok {
			return event
		}
	}

	var zero T
	t.Fatalf("no %T sent to %s", zero, connectionID)
	return zero
}

func hasEvent[T Event](n *recordingNotifier, connectionID string) bool {
	for _, event := range n.Events(connectionID) {
		if _, ok := event.(T); ok {
			return true
		}
	}
	return false
}

type mockRecorder struct {
	mock.Mock
}

func (that *mockRecorder) Save(ctx context.Context, match *entity.MatchResult) error {
	args := that.Called(ctx, match)
	return args.Error(0)
}

type fixture struct {
	coordinator *Coordinator
	rooms       repository.RoomRepository
	notifier    *recordingNotifier
	clock       *clock.Mock
	recorder    *mockRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clk := clock.NewMock()
	rooms := repository.NewRoomRepository(6)
	notifier := newRecordingNotifier()
	recorder := &mockRecorder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Cleanup(func() {
		recorder.AssertExpectations(t)
	})

	return &fixture{
		coordinator: NewCoordinator(logger, rooms, notifier, NewTurnClock(clk, turnTimeout), recorder),
		rooms:       rooms,
		notifier:    notifier,
		clock:       clk,
		recorder:    recorder,
	}
}

// expectResult expects one archived match with reason and returns the channel it is delivered on.
func (that *fixture) expectResult(reason string) <-chan *entity.MatchResult {
	saved := make(chan *entity.MatchResult, 1)

	that.recorder.
		On("Save", mock.Anything, mock.MatchedBy(func(match *entity.MatchResult) bool {
			return match.Reason == reason
		})).
		Run(func(args mock.Arguments) {
			saved <- args.Get(1).(*entity.MatchResult)
		}).
		Return(nil).
		Once()

	return saved
}

func (that *fixture) createRoom(t *testing.T) string {
	t.Helper()

	require.NoError(t, that.coordinator.CreateRoom(context.Background(), connA, "Alice"))

	return lastOf[RoomCreated](t, that.notifier, connA).RoomID
}

// startGame seats Alice and Bob and clears the notifications sent so far.
func (that *fixture) startGame(t *testing.T) string {
	t.Helper()

	roomID := that.createRoom(t)
	require.NoError(t, that.coordinator.JoinRoom(context.Background(), connB, roomID, "Bob"))
	that.notifier.Clear()

	return roomID
}

func (that *fixture) move(t *testing.T, connectionID, roomID string, column int) {
	t.Helper()

	require.NoError(t, that.coordinator.MakeMove(context.Background(), connectionID, roomID, column))
}

// winForAlice plays Alice in column 3 against Bob in column 4 until Alice wins.
func (that *fixture) winForAlice(t *testing.T, roomID string) {
	t.Helper()

	for i := 0; i < entity.ToWin-1; i++ {
		that.move(t, connA, roomID, 3)
		that.move(t, connB, roomID, 4)
	}
	that.move(t, connA, roomID, 3)
}

func receive(t *testing.T, saved <-chan *entity.MatchResult) *entity.MatchResult {
	t.Helper()

	select {
	case match := <-saved:
		return match
	case <-time.After(waitFor):
		t.Fatal("match was not recorded")
		return nil
	}
}

func TestCoordinator_CreateAndJoin(t *testing.T) {
	t.Run("Both players are seated and the first turn starts", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		// Given: Alice created a room
		roomID := f.createRoom(t)
		assert.Regexp(t, `^[0-9A-Z]{6}$`, roomID)
		assert.Equal(t, entity.PlayerOne, lastOf[RoomCreated](t, f.notifier, connA).PlayerNumber)

		// When: Bob joins it
		err := f.coordinator.JoinRoom(ctx, connB, roomID, "Bob")

		// Then: Bob is player two and both see an empty board with player one to move
		require.NoError(t, err)
		assert.Equal(t, RoomJoined{RoomID: roomID, PlayerNumber: entity.PlayerTwo}, lastOf[RoomJoined](t, f.notifier, connB))

		assert.Equal(t, []string{ActionRoomCreated, ActionPlayerJoined, ActionTurnStarted}, f.notifier.Actions(connA))
		assert.Equal(t, []string{ActionRoomJoined, ActionPlayerJoined, ActionTurnStarted}, f.notifier.Actions(connB))

		for _, conn := range []string{connA, connB} {
			joined := lastOf[PlayerJoined](t, f.notifier, conn)
			require.Len(t, joined.Players, 2)
			assert.Equal(t, "Alice", joined.Players[0].Name)
			assert.Equal(t, "Bob", joined.Players[1].Name)
			assert.Equal(t, entity.Board{}, joined.GameState.Board)
			assert.Equal(t, entity.PlayerOne, joined.GameState.CurrentPlayer)
			assert.Nil(t, joined.GameState.Winner)
			assert.False(t, joined.GameState.GameOver)

			started := lastOf[TurnStarted](t, f.notifier, conn)
			assert.Equal(t, entity.PlayerOne, started.CurrentPlayer)
			assert.Equal(t, int64(30000), started.TimeLimit)
			assert.Equal(t, f.clock.Now().UnixMilli(), started.StartTime)
		}

		summary, err := f.coordinator.Summary(roomID)
		require.NoError(t, err)
		require.NotNil(t, summary.TurnDeadline)
		assert.Equal(t, f.clock.Now().Add(turnTimeout).UnixMilli(), *summary.TurnDeadline)
	})

	t.Run("Room ids are matched case-insensitively", func(t *testing.T) {
		f := newFixture(t)
		roomID := f.createRoom(t)

		err := f.coordinator.JoinRoom(context.Background(), connB, " "+strings.ToLower(roomID)+" ", "Bob")

		require.NoError(t, err)
	})

	t.Run("Join errors are reported to the caller only", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		roomID := f.startGame(t)

		err := f.coordinator.JoinRoom(ctx, connC, "NOPE00", "Carol")
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)

		err = f.coordinator.JoinRoom(ctx, connC, roomID, "Carol")
		require.ErrorIs(t, err, apperror.ErrRoomFull)

		err = f.coordinator.JoinRoom(ctx, connB, roomID, "Bob")
		require.ErrorIs(t, err, apperror.ErrAlreadyInRoom)

		err = f.coordinator.JoinRoom(ctx, connC, roomID, "   ")
		require.ErrorIs(t, err, apperror.ErrInvalidName)

		assert.Empty(t, f.notifier.Events(connA))
		assert.Empty(t, f.notifier.Events(connB))
	})

	t.Run("A connection sits in one room at a time", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		f.createRoom(t)

		err := f.coordinator.CreateRoom(ctx, connA, "Alice")
		require.ErrorIs(t, err, apperror.ErrAlreadyInRoom)

		require.NoError(t, f.coordinator.CreateRoom(ctx, connC, "Carol"))
		otherRoom := lastOf[RoomCreated](t, f.notifier, connC).RoomID

		err = f.coordinator.JoinRoom(ctx, connA, otherRoom, "Alice")
		require.ErrorIs(t, err, apperror.ErrAlreadyInRoom)
	})
}

// joiningRooms lets another connection join each room as soon as it is registered.
type joiningRooms struct {
	repository.RoomRepository

	join func(roomID string)
}

func (that *joiningRooms) Create() (*entity.Room, error) {
	room, err := that.RoomRepository.Create()
	if err == nil {
		that.join(room.ID)
	}
	return room, err
}

func TestCoordinator_JoinDuringCreate(t *testing.T) {
	// Given: Bob joins every new room the moment it is registered
	f := newFixture(t)
	ctx := context.Background()

	joined := make(chan error, 1)
	rooms := &joiningRooms{RoomRepository: f.rooms}
	coordinator := NewCoordinator(slog.New(slog.NewTextHandler(io.Discard, nil)), rooms, f.notifier, NewTurnClock(f.clock, turnTimeout), f.recorder)
	rooms.join = func(roomID string) {
		go func() {
			joined <- coordinator.JoinRoom(ctx, connB, roomID, "Bob")
		}()
	}

	// When: Alice creates a room
	require.NoError(t, coordinator.CreateRoom(ctx, connA, "Alice"))

	select {
	case err := <-joined:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("join did not finish")
	}

	// Then: Alice is still player one and Bob joins as player two
	assert.Equal(t, entity.PlayerOne, lastOf[RoomCreated](t, f.notifier, connA).PlayerNumber)
	assert.Equal(t, entity.PlayerTwo, lastOf[RoomJoined](t, f.notifier, connB).PlayerNumber)

	assert.Equal(t, []string{ActionRoomCreated, ActionPlayerJoined, ActionTurnStarted}, f.notifier.Actions(connA))
	assert.Equal(t, []string{ActionRoomJoined, ActionPlayerJoined, ActionTurnStarted}, f.notifier.Actions(connB))

	joinedEvent := lastOf[PlayerJoined](t, f.notifier, connB)
	require.Len(t, joinedEvent.Players, 2)
	assert.Equal(t, "Alice", joinedEvent.Players[0].Name)
}

func TestCoordinator_MakeMove(t *testing.T) {
	t.Run("Four stacked discs in column 3 win for player one", func(t *testing.T) {
		f := newFixture(t)
		saved := f.expectResult(entity.ReasonFourInARow)
		roomID := f.startGame(t)

		// When: Alice stacks column 3 while Bob stacks column 4
		f.winForAlice(t, roomID)

		// Then: both see the final move with Alice as the winner
		for _, conn := range []string{connA, connB} {
			made := lastOf[MoveMade](t, f.notifier, conn)
			assert.True(t, made.GameOver)
			require.NotNil(t, made.Winner)
			assert.Equal(t, entity.PlayerOne, *made.Winner)
			assert.Equal(t, entity.Position{Row: entity.Rows - entity.ToWin, Column: 3}, made.LastMove)

			actions := f.notifier.Actions(conn)
			assert.Equal(t, ActionMoveMade, actions[len(actions)-1])
		}

		// Then: the result is archived and no deadline is pending
		match := receive(t, saved)
		require.NotNil(t, match.Winner)
		assert.Equal(t, entity.PlayerOne, *match.Winner)
		assert.Equal(t, 7, match.Moves)
		assert.Equal(t, roomID, match.RoomID)
		assert.Len(t, match.Players, 2)

		summary, err := f.coordinator.Summary(roomID)
		require.NoError(t, err)
		assert.Nil(t, summary.TurnDeadline)
	})

	t.Run("A full board without a line is a draw", func(t *testing.T) {
		f := newFixture(t)
		saved := f.expectResult(entity.ReasonDraw)
		roomID := f.startGame(t)

		row := []int{0, 2, 1, 3, 4, 6, 5}
		conns := []string{connA, connB}

		// When: all 42 cells are filled
		turn := 0
		for r := 0; r < entity.Rows; r++ {
			for _, column := range row {
				f.move(t, conns[turn%2], roomID, column)
				turn++
			}
		}

		// Then: the last move reports game over without a winner
		made := lastOf[MoveMade](t, f.notifier, connA)
		assert.True(t, made.GameOver)
		assert.Nil(t, made.Winner)

		match := receive(t, saved)
		assert.Nil(t, match.Winner)
		assert.Equal(t, entity.Rows*entity.Columns, match.Moves)
	})

	t.Run("Each accepted move hands the turn over", func(t *testing.T) {
		f := newFixture(t)
		roomID := f.startGame(t)

		f.move(t, connA, roomID, 0)

		made := lastOf[MoveMade](t, f.notifier, connB)
		assert.Equal(t, entity.PlayerTwo, made.CurrentPlayer)
		assert.Equal(t, entity.PlayerOne, made.Board[entity.Rows-1][0])
		assert.Equal(t, entity.PlayerTwo, lastOf[TurnStarted](t, f.notifier, connB).CurrentPlayer)
		assert.Equal(t, []string{ActionMoveMade, ActionTurnStarted}, f.notifier.Actions(connA))
	})

	t.Run("Rejected moves change nothing", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		roomID := f.startGame(t)

		err := f.coordinator.MakeMove(ctx, connB, roomID, 0)
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)

		err = f.coordinator.MakeMove(ctx, connA, roomID, entity.Columns)
		require.ErrorIs(t, err, apperror.ErrInvalidMove)

		err = f.coordinator.MakeMove(ctx, connA, roomID, -1)
		require.ErrorIs(t, err, apperror.ErrInvalidMove)

		err = f.coordinator.MakeMove(ctx, connC, roomID, 0)
		require.ErrorIs(t, err, apperror.ErrNotInRoom)

		err = f.coordinator.MakeMove(ctx, connA, "NOPE00", 0)
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)

		assert.Empty(t, f.notifier.Events(connA))

		summary, err := f.coordinator.Summary(roomID)
		require.NoError(t, err)
		assert.Equal(t, entity.Board{}, summary.GameState.Board)
		assert.Equal(t, entity.PlayerOne, summary.GameState.CurrentPlayer)
	})

	t.Run("Full column is rejected", func(t *testing.T) {
		f := newFixture(t)
		roomID := f.startGame(t)

		for i := 0; i < entity.Rows; i++ {
			conn := connA
			if i%2 == 1 {
				conn = connB
			}
			f.move(t, conn, roomID, 0)
		}

		err := f.coordinator.MakeMove(context.Background(), connA, roomID, 0)
		require.ErrorIs(t, err, apperror.ErrInvalidMove)
	})

	t.Run("No moves while waiting for an opponent", func(t *testing.T) {
		f := newFixture(t)
		roomID := f.createRoom(t)

		err := f.coordinator.MakeMove(context.Background(), connA, roomID, 0)

		require.ErrorIs(t, err, apperror.ErrGameNotStarted)
	})

	t.Run("No moves after the game is over", func(t *testing.T) {
		f := newFixture(t)
		f.expectResult(entity.ReasonFourInARow)
		roomID := f.startGame(t)
		f.winForAlice(t, roomID)

		err := f.coordinator.MakeMove(context.Background(), connB, roomID, 0)

		require.ErrorIs(t, err, apperror.ErrGameFinished)
	})

	t.Run("Concurrent moves by the same player are applied once", func(t *testing.T) {
		f := newFixture(t)
		roomID := f.startGame(t)

		const attempts = 10

		var wg sync.WaitGroup
		errs := make(chan error, attempts)

		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- f.coordinator.MakeMove(context.Background(), connA, roomID, 0)
			}()
		}

		wg.Wait()
		close(errs)

		accepted := 0
		for err := range errs {
			if err == nil {
				accepted++
				continue
			}
			require.ErrorIs(t, err, apperror.ErrNotYourTurn)
		}

		assert.Equal(t, 1, accepted)
		assert.Len(t, f.notifier.Events(connB), 2)
	})
}

func TestCoordinator_TurnClock(t *testing.T) {
	t.Run("Missing the deadline loses the game", func(t *testing.T) {
		f := newFixture(t)
		saved := f.expectResult(entity.ReasonTimeout)
		roomID := f.startGame(t)

		// When: Alice does not move for the whole turn
		f.clock.Add(turnTimeout)

		// Then: both players are told Bob won on time
		require.Eventually(t, func() bool {
			return hasEvent[TimeUp](f.notifier, connA) && hasEvent[TimeUp](f.notifier, connB)
		}, waitFor, tick)

		timeUp := lastOf[TimeUp](t, f.notifier, connB)
		require.NotNil(t, timeUp.Winner)
		assert.Equal(t, entity.PlayerTwo, *timeUp.Winner)
		assert.Equal(t, entity.PlayerOne, timeUp.CurrentPlayer)
		assert.True(t, timeUp.GameOver)

		match := receive(t, saved)
		require.NotNil(t, match.Winner)
		assert.Equal(t, entity.PlayerTwo, *match.Winner)

		err := f.coordinator.MakeMove(context.Background(), connA, roomID, 0)
		require.ErrorIs(t, err, apperror.ErrGameFinished)
	})

	t.Run("A move in time cancels the deadline", func(t *testing.T) {
		f := newFixture(t)
		f.expectResult(entity.ReasonTimeout)
		roomID := f.startGame(t)

		// Given: Alice moves after 20 seconds
		f.clock.Add(20 * time.Second)
		f.move(t, connA, roomID, 0)

		// When: Alice's original deadline passes
		f.clock.Add(15 * time.Second)

		// Then: nothing happens
		assert.Never(t, func() bool {
			return hasEvent[TimeUp](f.notifier, connA)
		}, 50*time.Millisecond, tick)

		// When: Bob's own deadline passes
		f.clock.Add(15 * time.Second)

		// Then: Alice wins on time
		require.Eventually(t, func() bool {
			return hasEvent[TimeUp](f.notifier, connA)
		}, waitFor, tick)
		winner := lastOf[TimeUp](t, f.notifier, connA).Winner
		require.NotNil(t, winner)
		assert.Equal(t, entity.PlayerOne, *winner)
	})

	t.Run("A stale timer has no effect", func(t *testing.T) {
		f := newFixture(t)
		roomID := f.startGame(t)

		room, err := f.rooms.Get(roomID)
		require.NoError(t, err)

		room.Lock()
		stale := room.ClockEpoch()
		room.Unlock()

		// Given: a move re-armed the clock
		f.move(t, connA, roomID, 0)

		// When: the old callback runs anyway
		f.coordinator.expireTurn(room, stale)

		// Then: the game goes on
		assert.False(t, hasEvent[TimeUp](f.notifier, connA))

		summary, err := f.coordinator.Summary(roomID)
		require.NoError(t, err)
		assert.False(t, summary.GameState.GameOver)
		assert.Equal(t, entity.PlayerTwo, summary.GameState.CurrentPlayer)
	})

	t.Run("No deadline runs while waiting for an opponent", func(t *testing.T) {
		f := newFixture(t)
		roomID := f.createRoom(t)

		f.clock.Add(2 * turnTimeout)

		summary, err := f.coordinator.Summary(roomID)
		require.NoError(t, err)
		assert.Nil(t, summary.TurnDeadline)
		assert.False(t, hasEvent[TimeUp](f.notifier, connA))
	})
}

func TestCoordinator_Rematch(t *testing.T) {
	t.Run("Decline notifies the sender and allows a new invite", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		f.expectResult(entity.ReasonFourInARow)
		roomID := f.startGame(t)
		f.winForAlice(t, roomID)
		f.notifier.Clear()

		// Given: Alice invites Bob
		require.NoError(t, f.coordinator.SendRematchInvite(ctx, connA, roomID))
		assert.Equal(t, []string{ActionInviteSent}, f.notifier.Actions(connA))
		assert.Equal(t, InviteReceived{FromPlayerNumber: entity.PlayerOne, FromName: "Alice"}, lastOf[InviteReceived](t, f.notifier, connB))

		// When: Bob declines
		require.NoError(t, f.coordinator.DeclineRematchInvite(ctx, connB, roomID))

		// Then: Alice learns who declined and the invite is gone
		assert.Equal(t, InviteDeclined{ByName: "Bob"}, lastOf[InviteDeclined](t, f.notifier, connA))

		summary, err := f.coordinator.Summary(roomID)
		require.NoError(t, err)
		assert.Nil(t, summary.PendingRematchFrom)

		err = f.coordinator.AcceptRematchInvite(ctx, connB, roomID)
		require.ErrorIs(t, err, apperror.ErrNoPendingInvite)

		// Then: Alice can invite again
		require.NoError(t, f.coordinator.SendRematchInvite(ctx, connA, roomID))
	})

	t.Run("Accept resets the board and starts a new turn", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		f.expectResult(entity.ReasonFourInARow)
		roomID := f.startGame(t)
		f.winForAlice(t, roomID)

		require.NoError(t, f.coordinator.SendRematchInvite(ctx, connB, roomID))
		f.notifier.Clear()

		// When: Alice accepts Bob's invite
		err := f.coordinator.AcceptRematchInvite(ctx, connA, roomID)

		// Then: both get a fresh board and player one's turn
		require.NoError(t, err)
		for _, conn := range []string{connA, connB} {
			assert.Equal(t, []string{ActionGameRestarted, ActionTurnStarted}, f.notifier.Actions(conn))

			restarted := lastOf[GameRestarted](t, f.notifier, conn)
			assert.Equal(t, entity.Board{}, restarted.Board)
			assert.Equal(t, entity.PlayerOne, restarted.CurrentPlayer)
			assert.False(t, restarted.GameOver)
		}

		summary, err := f.coordinator.Summary(roomID)
		require.NoError(t, err)
		assert.Nil(t, summary.PendingRematchFrom)
		assert.NotNil(t, summary.TurnDeadline)
	})

	t.Run("Invite errors", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		f.expectResult(entity.ReasonFourInARow)

		lonely := f.createRoom(t)
		err := f.coordinator.SendRematchInvite(ctx, connA, lonely)
		require.ErrorIs(t, err, apperror.ErrNoOpponent)
		require.NoError(t, f.coordinator.LeaveRoom(ctx, connA, lonely))

		roomID := f.startGame(t)

		err = f.coordinator.SendRematchInvite(ctx, connA, roomID)
		require.ErrorIs(t, err, apperror.ErrGameInProgress)

		f.winForAlice(t, roomID)

		err = f.coordinator.AcceptRematchInvite(ctx, connB, roomID)
		require.ErrorIs(t, err, apperror.ErrNoPendingInvite)

		require.NoError(t, f.coordinator.SendRematchInvite(ctx, connA, roomID))

		err = f.coordinator.AcceptRematchInvite(ctx, connA, roomID)
		require.ErrorIs(t, err, apperror.ErrSelfInviteAccept)

		err = f.coordinator.SendRematchInvite(ctx, connC, roomID)
		require.ErrorIs(t, err, apperror.ErrNotInRoom)
	})

	t.Run("Decline without an invite from the opponent is a no-op", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		f.expectResult(entity.ReasonFourInARow)
		roomID := f.startGame(t)
		f.winForAlice(t, roomID)

		require.NoError(t, f.coordinator.SendRematchInvite(ctx, connA, roomID))
		f.notifier.Clear()

		// When: Alice declines her own invite
		err := f.coordinator.DeclineRematchInvite(ctx, connA, roomID)

		// Then: nothing is sent and the invite stays
		require.NoError(t, err)
		assert.Empty(t, f.notifier.Events(connA))
		assert.Empty(t, f.notifier.Events(connB))

		summary, err := f.coordinator.Summary(roomID)
		require.NoError(t, err)
		require.NotNil(t, summary.PendingRematchFrom)
		assert.Equal(t, entity.PlayerOne, *summary.PendingRematchFrom)
	})
}

func TestCoordinator_RestartGame(t *testing.T) {
	t.Run("Restart drops a pending invite", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		f.expectResult(entity.ReasonFourInARow)
		roomID := f.startGame(t)
		f.winForAlice(t, roomID)

		// Given: Alice has invited Bob
		require.NoError(t, f.coordinator.SendRematchInvite(ctx, connA, roomID))
		f.notifier.Clear()

		// When: Bob restarts instead
		err := f.coordinator.RestartGame(ctx, connB, roomID)

		// Then: the board is reset, a turn starts and the invite is gone
		require.NoError(t, err)
		assert.Equal(t, []string{ActionGameRestarted, ActionTurnStarted}, f.notifier.Actions(connA))

		err = f.coordinator.AcceptRematchInvite(ctx, connB, roomID)
		require.ErrorIs(t, err, apperror.ErrNoPendingInvite)
	})

	t.Run("Restart in the middle of a game re-arms the clock", func(t *testing.T) {
		f := newFixture(t)
		roomID := f.startGame(t)

		f.clock.Add(20 * time.Second)
		f.move(t, connA, roomID, 0)

		require.NoError(t, f.coordinator.RestartGame(context.Background(), connA, roomID))

		summary, err := f.coordinator.Summary(roomID)
		require.NoError(t, err)
		assert.Equal(t, entity.Board{}, summary.GameState.Board)
		assert.Equal(t, entity.PlayerOne, summary.GameState.CurrentPlayer)
		require.NotNil(t, summary.TurnDeadline)
		assert.Equal(t, f.clock.Now().Add(turnTimeout).UnixMilli(), *summary.TurnDeadline)
	})

	t.Run("Restart alone does not start a turn", func(t *testing.T) {
		f := newFixture(t)
		roomID := f.createRoom(t)
		f.notifier.Clear()

		require.NoError(t, f.coordinator.RestartGame(context.Background(), connA, roomID))

		assert.Equal(t, []string{ActionGameRestarted}, f.notifier.Actions(connA))
	})
}

func TestCoordinator_Leave(t *testing.T) {
	t.Run("The remaining player is notified and the clock stops", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		roomID := f.startGame(t)

		// When: Bob leaves
		err := f.coordinator.LeaveRoom(ctx, connB, roomID)

		// Then: only Alice is told and no deadline fires
		require.NoError(t, err)
		assert.Equal(t, PlayerLeft{PlayerNumber: entity.PlayerTwo}, lastOf[PlayerLeft](t, f.notifier, connA))
		assert.Empty(t, f.notifier.Events(connB))

		f.clock.Add(2 * turnTimeout)
		assert.Never(t, func() bool {
			return hasEvent[TimeUp](f.notifier, connA)
		}, 50*time.Millisecond, tick)

		// Then: a new player takes the free seat and a fresh game starts
		require.NoError(t, f.coordinator.JoinRoom(ctx, connC, roomID, "Carol"))
		assert.Equal(t, entity.PlayerTwo, lastOf[RoomJoined](t, f.notifier, connC).PlayerNumber)
	})

	t.Run("The last player out closes the room", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		roomID := f.startGame(t)

		require.NoError(t, f.coordinator.LeaveRoom(ctx, connA, roomID))
		require.NoError(t, f.coordinator.LeaveRoom(ctx, connB, roomID))

		_, err := f.rooms.Get(roomID)
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)

		err = f.coordinator.JoinRoom(ctx, connC, roomID, "Carol")
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})

	t.Run("Leaving frees the connection for another room", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		roomID := f.startGame(t)

		err := f.coordinator.LeaveRoom(ctx, connC, roomID)
		require.ErrorIs(t, err, apperror.ErrNotInRoom)

		require.NoError(t, f.coordinator.LeaveRoom(ctx, connA, roomID))
		require.NoError(t, f.coordinator.CreateRoom(ctx, connA, "Alice"))
	})

	t.Run("Leave clears a pending invite", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		f.expectResult(entity.ReasonFourInARow)
		roomID := f.startGame(t)
		f.winForAlice(t, roomID)
		require.NoError(t, f.coordinator.SendRematchInvite(ctx, connA, roomID))

		require.NoError(t, f.coordinator.LeaveRoom(ctx, connB, roomID))

		summary, err := f.coordinator.Summary(roomID)
		require.NoError(t, err)
		assert.Nil(t, summary.PendingRematchFrom)
	})
}

func TestCoordinator_Disconnect(t *testing.T) {
	t.Run("Disconnect removes the player from their room", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		roomID := f.startGame(t)

		require.NoError(t, f.coordinator.Disconnect(ctx, connA))

		assert.Equal(t, PlayerLeft{PlayerNumber: entity.PlayerOne}, lastOf[PlayerLeft](t, f.notifier, connB))

		summary, err := f.coordinator.Summary(roomID)
		require.NoError(t, err)
		require.Len(t, summary.Players, 1)
		assert.Equal(t, "Bob", summary.Players[0].Name)
		assert.Nil(t, summary.TurnDeadline)

		require.NoError(t, f.coordinator.Disconnect(ctx, connB))
		_, err = f.rooms.Get(roomID)
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})

	t.Run("Unknown connections are ignored", func(t *testing.T) {
		f := newFixture(t)

		err := f.coordinator.Disconnect(context.Background(), connC)

		require.NoError(t, err)
	})

	t.Run("Disconnect racing a timeout leaves a consistent room", func(t *testing.T) {
		f := newFixture(t)
		f.recorder.On("Save", mock.Anything, mock.Anything).Return(nil).Maybe()
		roomID := f.startGame(t)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			f.clock.Add(turnTimeout)
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, f.coordinator.Disconnect(context.Background(), connA))
		}()
		wg.Wait()

		require.Eventually(t, func() bool {
			summary, err := f.coordinator.Summary(roomID)
			return err == nil && len(summary.Players) == 1 && summary.TurnDeadline == nil
		}, waitFor, tick)
	})
}
