package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/connectfour-backend/internal/apperror"
	"github.com/rocketscienceinc/connectfour-backend/internal/entity"
)

const (
	maxNameLength = 32
	recordTimeout = 5 * time.Second
)

type roomRepo interface {
	// Create returns the new room already locked.
	Create() (*entity.Room, error)
	Get(id string) (*entity.Room, error)
	Remove(id string)

	Bind(connectionID, roomID string) error
	Unbind(connectionID string)
	FindByConnection(connectionID string) (*entity.Room, error)
}

// notifier queues an event for a connection. It must not block.
type notifier interface {
	Send(connectionID string, event Event)
}

type matchRecorder interface {
	Save(ctx context.Context, match *entity.MatchResult) error
}

// Coordinator runs every room operation. Each one locks the room, validates,
// mutates and queues its notifications before the lock is released, so both
// players observe events in the order the room applied them.
type Coordinator struct {
	logger   *slog.Logger
	rooms    roomRepo
	notifier notifier
	clock    *TurnClock
	recorder matchRecorder
}

// NewCoordinator builds a coordinator. recorder may be nil to skip archiving results.
func NewCoordinator(logger *slog.Logger, rooms roomRepo, notifier notifier, clock *TurnClock, recorder matchRecorder) *Coordinator {
	return &Coordinator{
		logger:   logger.With("component", "coordinator"),
		rooms:    rooms,
		notifier: notifier,
		clock:    clock,
		recorder: recorder,
	}
}

func (that *Coordinator) CreateRoom(ctx context.Context, connectionID, name string) error {
	log := that.logger.With("method", "CreateRoom", "connectionID", connectionID)

	name, err := normalizeName(name)
	if err != nil {
		return err
	}

	// The room comes back locked and stays so until the creator is seated.
	room, err := that.rooms.Create()
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}
	defer room.Unlock()

	if err = that.rooms.Bind(connectionID, room.ID); err != nil {
		room.Close()
		that.rooms.Remove(room.ID)

		return err
	}

	player := room.Seat(connectionID, name)

	that.notifier.Send(connectionID, RoomCreated{RoomID: room.ID, PlayerNumber: player.Number})

	log.Info("room created", "roomID", room.ID)

	return nil
}

func (that *Coordinator) JoinRoom(ctx context.Context, connectionID, roomID, name string) error {
	log := that.logger.With("method", "JoinRoom", "connectionID", connectionID, "roomID", roomID)

	name, err := normalizeName(name)
	if err != nil {
		return err
	}

	room, err := that.lockRoom(roomID)
	if err != nil {
		return err
	}
	defer room.Unlock()

	if _, seated := room.PlayerByConnection(connectionID); seated {
		return fmt.Errorf("%w: %s", apperror.ErrAlreadyInRoom, room.ID)
	}

	if room.IsFull() {
		return apperror.ErrRoomFull
	}

	if err = that.rooms.Bind(connectionID, room.ID); err != nil {
		return err
	}

	player := room.Seat(connectionID, name)

	room.PendingRematchFrom = entity.EmptyCell
	that.startGame(room)

	that.notifier.Send(connectionID, RoomJoined{RoomID: room.ID, PlayerNumber: player.Number})
	that.broadcast(room, PlayerJoined{
		Players:   room.PlayersSnapshot(),
		GameState: room.Game.State(),
	})
	that.broadcast(room, that.clock.Arm(room, that.expireTurn))

	log.Info("player joined", "playerNumber", player.Number)

	return nil
}

func (that *Coordinator) MakeMove(ctx context.Context, connectionID, roomID string, column int) error {
	log := that.logger.With("method", "MakeMove", "connectionID", connectionID, "roomID", roomID)

	room, err := that.lockRoom(roomID)
	if err != nil {
		return err
	}

	result, err := that.makeMove(room, connectionID, column)
	room.Unlock()

	if err != nil {
		return err
	}

	if result != nil {
		log.Info("game finished", "reason", result.Reason, "moves", result.Moves)
		that.record(ctx, result)
	}

	return nil
}

func (that *Coordinator) makeMove(room *entity.Room, connectionID string, column int) (*entity.MatchResult, error) {
	player, ok := room.PlayerByConnection(connectionID)
	if !ok {
		return nil, apperror.ErrNotInRoom
	}

	if !room.IsFull() {
		return nil, apperror.ErrGameNotStarted
	}

	pos, err := room.Game.MakeTurn(player.Number, column)
	if err != nil {
		return nil, err
	}

	that.clock.Cancel(room)

	that.broadcast(room, MoveMade{GameState: room.Game.State(), LastMove: pos})

	if room.Game.IsOngoing() {
		that.broadcast(room, that.clock.Arm(room, that.expireTurn))
		return nil, nil
	}

	reason := entity.ReasonFourInARow
	if room.Game.Outcome == entity.OutcomeDrawn {
		reason = entity.ReasonDraw
	}

	return that.matchResult(room, reason), nil
}

func (that *Coordinator) SendRematchInvite(ctx context.Context, connectionID, roomID string) error {
	log := that.logger.With("method", "SendRematchInvite", "connectionID", connectionID, "roomID", roomID)

	room, err := that.lockRoom(roomID)
	if err != nil {
		return err
	}
	defer room.Unlock()

	player, ok := room.PlayerByConnection(connectionID)
	if !ok {
		return apperror.ErrNotInRoom
	}

	opponent, ok := room.Opponent(player)
	if !ok {
		return apperror.ErrNoOpponent
	}

	if room.Game.IsOngoing() {
		return apperror.ErrGameInProgress
	}

	room.PendingRematchFrom = player.Number

	that.notifier.Send(player.ConnectionID, InviteSent{})
	that.notifier.Send(opponent.ConnectionID, InviteReceived{
		FromPlayerNumber: player.Number,
		FromName:         player.Name,
	})

	log.Info("rematch invite sent", "playerNumber", player.Number)

	return nil
}

func (that *Coordinator) AcceptRematchInvite(ctx context.Context, connectionID, roomID string) error {
	log := that.logger.With("method", "AcceptRematchInvite", "connectionID", connectionID, "roomID", roomID)

	room, err := that.lockRoom(roomID)
	if err != nil {
		return err
	}
	defer room.Unlock()

	player, ok := room.PlayerByConnection(connectionID)
	if !ok {
		return apperror.ErrNotInRoom
	}

	switch room.PendingRematchFrom {
	case entity.EmptyCell:
		return apperror.ErrNoPendingInvite
	case player.Number:
		return apperror.ErrSelfInviteAccept
	}

	that.restart(room)

	log.Info("rematch accepted")

	return nil
}

// DeclineRematchInvite is a no-op unless the opponent has an invite pending.
func (that *Coordinator) DeclineRematchInvite(ctx context.Context, connectionID, roomID string) error {
	room, err := that.lockRoom(roomID)
	if err != nil {
		return err
	}
	defer room.Unlock()

	player, ok := room.PlayerByConnection(connectionID)
	if !ok {
		return apperror.ErrNotInRoom
	}

	opponent, ok := room.Opponent(player)
	if !ok || room.PendingRematchFrom != opponent.Number {
		return nil
	}

	room.PendingRematchFrom = entity.EmptyCell
	that.notifier.Send(opponent.ConnectionID, InviteDeclined{ByName: player.Name})

	return nil
}

// RestartGame resets the board unconditionally and drops any pending invite.
func (that *Coordinator) RestartGame(ctx context.Context, connectionID, roomID string) error {
	log := that.logger.With("method", "RestartGame", "connectionID", connectionID, "roomID", roomID)

	room, err := that.lockRoom(roomID)
	if err != nil {
		return err
	}
	defer room.Unlock()

	if _, ok := room.PlayerByConnection(connectionID); !ok {
		return apperror.ErrNotInRoom
	}

	that.restart(room)

	log.Info("game restarted")

	return nil
}

func (that *Coordinator) LeaveRoom(ctx context.Context, connectionID, roomID string) error {
	room, err := that.lockRoom(roomID)
	if err != nil {
		return err
	}
	defer room.Unlock()

	player, ok := room.PlayerByConnection(connectionID)
	if !ok {
		return apperror.ErrNotInRoom
	}

	that.removePlayer(room, player)

	return nil
}

// Disconnect removes the connection from whatever room it is seated in.
func (that *Coordinator) Disconnect(ctx context.Context, connectionID string) error {
	room, err := that.rooms.FindByConnection(connectionID)
	if errors.Is(err, apperror.ErrNotInRoom) || errors.Is(err, apperror.ErrRoomNotFound) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to find room of connection: %w", err)
	}

	room.Lock()
	defer room.Unlock()

	if room.IsClosed() {
		return nil
	}

	player, ok := room.PlayerByConnection(connectionID)
	if !ok {
		return nil
	}

	that.removePlayer(room, player)

	return nil
}

// RoomSummary is a point-in-time view of a room.
type RoomSummary struct {
	RoomID             string           `json:"roomId"`
	Players            []entity.Player  `json:"players"`
	GameState          entity.GameState `json:"gameState"`
	PendingRematchFrom *entity.Cell     `json:"pendingRematchFrom"`
	TurnDeadline       *int64           `json:"turnDeadline"`
}

func (that *Coordinator) Summary(roomID string) (*RoomSummary, error) {
	room, err := that.lockRoom(roomID)
	if err != nil {
		return nil, err
	}
	defer room.Unlock()

	summary := &RoomSummary{
		RoomID:    room.ID,
		Players:   room.PlayersSnapshot(),
		GameState: room.Game.State(),
	}

	if room.PendingRematchFrom != entity.EmptyCell {
		from := room.PendingRematchFrom
		summary.PendingRematchFrom = &from
	}

	if _, deadline, ok := room.TurnDeadline(); ok {
		ms := deadline.UnixMilli()
		summary.TurnDeadline = &ms
	}

	return summary, nil
}

// expireTurn runs on the timer goroutine.
func (that *Coordinator) expireTurn(room *entity.Room, epoch uint64) {
	log := that.logger.With("method", "expireTurn", "roomID", room.ID)

	room.Lock()

	if room.IsClosed() || room.ClockEpoch() != epoch || !room.Game.IsOngoing() || !room.IsFull() {
		room.Unlock()
		log.Debug("stale turn timer ignored")
		return
	}

	room.Game.Forfeit(room.Game.CurrentPlayer)
	room.StopTurnTimer()
	room.PendingRematchFrom = entity.EmptyCell

	that.broadcast(room, TimeUp{GameState: room.Game.State()})

	winner := room.Game.Winner
	result := that.matchResult(room, entity.ReasonTimeout)
	room.Unlock()

	log.Info("turn timed out", "winner", winner)

	that.record(context.Background(), result)
}

// lockRoom returns the room locked. Closed rooms are reported as missing.
func (that *Coordinator) lockRoom(roomID string) (*entity.Room, error) {
	room, err := that.rooms.Get(normalizeRoomID(roomID))
	if err != nil {
		return nil, err
	}

	room.Lock()

	if room.IsClosed() {
		room.Unlock()
		return nil, fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, roomID)
	}

	return room, nil
}

func (that *Coordinator) startGame(room *entity.Room) {
	room.Game.Reset()
	room.StartedAt = that.clock.Now()
}

func (that *Coordinator) restart(room *entity.Room) {
	room.PendingRematchFrom = entity.EmptyCell
	that.clock.Cancel(room)
	that.startGame(room)

	that.broadcast(room, GameRestarted{GameState: room.Game.State()})

	if room.IsFull() {
		that.broadcast(room, that.clock.Arm(room, that.expireTurn))
	}
}

func (that *Coordinator) removePlayer(room *entity.Room, player *entity.Player) {
	log := that.logger.With("method", "removePlayer", "roomID", room.ID, "playerNumber", player.Number)

	room.Unseat(player.ConnectionID)
	that.rooms.Unbind(player.ConnectionID)

	that.clock.Cancel(room)
	room.PendingRematchFrom = entity.EmptyCell

	that.broadcast(room, PlayerLeft{PlayerNumber: player.Number})

	if room.IsEmpty() {
		room.Close()
		that.rooms.Remove(room.ID)

		log.Info("room closed")
		return
	}

	log.Info("player left")
}

func (that *Coordinator) broadcast(room *entity.Room, event Event) {
	for _, connectionID := range room.ConnectionIDs() {
		that.notifier.Send(connectionID, event)
	}
}

func (that *Coordinator) matchResult(room *entity.Room, reason string) *entity.MatchResult {
	result := &entity.MatchResult{
		ID:         uuid.NewString(),
		RoomID:     room.ID,
		Players:    room.PlayersSnapshot(),
		Reason:     reason,
		Moves:      room.Game.Moves,
		StartedAt:  room.StartedAt,
		FinishedAt: that.clock.Now(),
	}

	if room.Game.Outcome == entity.OutcomeWon {
		winner := room.Game.Winner
		result.Winner = &winner
	}

	return result
}

// record archives a finished match. It is called without the room lock.
func (that *Coordinator) record(ctx context.Context, result *entity.MatchResult) {
	if that.recorder == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := that.recorder.Save(ctx, result); err != nil {
		that.logger.Error("failed to record match", "matchID", result.ID, "roomID", result.RoomID, "error", err)
	}
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)

	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return "", fmt.Errorf("%w: must be 1 to %d characters", apperror.ErrInvalidName, maxNameLength)
	}

	return name, nil
}

func normalizeRoomID(roomID string) string {
	return strings.ToUpper(strings.TrimSpace(roomID))
}
