package repository

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/rocketscienceinc/connectfour-backend/internal/apperror"
	"github.com/rocketscienceinc/connectfour-backend/internal/entity"
)

const (
	roomIDAlphabet      = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	maxRoomIDAttempts   = 16
	defaultRoomIDLength = 6
)

var ErrRoomIDsExhausted = errors.New("could not generate a free room id")

// RoomRepository keeps live rooms and the room each connection is seated in.
// It never looks inside a room and never takes a room lock.
type RoomRepository interface {
	Create() (*entity.Room, error)
	Get(id string) (*entity.Room, error)
	Remove(id string)
	Count() int

	Bind(connectionID, roomID string) error
	Unbind(connectionID string)
	FindByConnection(connectionID string) (*entity.Room, error)
}

type memoryRooms struct {
	mu          sync.RWMutex
	rooms       map[string]*entity.Room
	connections map[string]string

	newID func() (string, error)
}

func NewRoomRepository(idLength int) RoomRepository {
	if idLength <= 0 {
		idLength = defaultRoomIDLength
	}

	return newRoomRepository(func() (string, error) {
		return generateRoomID(idLength)
	})
}

func newRoomRepository(newID func() (string, error)) *memoryRooms {
	return &memoryRooms{
		rooms:       make(map[string]*entity.Room),
		connections: make(map[string]string),
		newID:       newID,
	}
}

// Create registers an empty room under a fresh id and returns it locked, so
// no other caller can use the room before the creator is seated. The caller
// must unlock it. Taken ids are regenerated.
func (that *memoryRooms) Create() (*entity.Room, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for attempt := 0; attempt < maxRoomIDAttempts; attempt++ {
		id, err := that.newID()
		if err != nil {
			return nil, fmt.Errorf("failed to generate room id: %w", err)
		}

		if _, taken := that.rooms[id]; taken {
			continue
		}

		room := entity.NewRoom(id)
		room.Lock()
		that.rooms[id] = room

		return room, nil
	}

	return nil, ErrRoomIDsExhausted
}

func (that *memoryRooms) Get(id string) (*entity.Room, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	room, ok := that.rooms[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, id)
	}

	return room, nil
}

// Remove drops the room. Connections are unbound by the caller as players leave.
func (that *memoryRooms) Remove(id string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.rooms, id)
}

func (that *memoryRooms) Count() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.rooms)
}

// Bind records that connectionID is seated in roomID. A connection is seated
// in at most one room; binding it to a second room fails with ErrAlreadyInRoom.
func (that *memoryRooms) Bind(connectionID, roomID string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if current, ok := that.connections[connectionID]; ok && current != roomID {
		return fmt.Errorf("%w: %s", apperror.ErrAlreadyInRoom, current)
	}

	that.connections[connectionID] = roomID

	return nil
}

func (that *memoryRooms) Unbind(connectionID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.connections, connectionID)
}

func (that *memoryRooms) FindByConnection(connectionID string) (*entity.Room, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	roomID, ok := that.connections[connectionID]
	if !ok {
		return nil, apperror.ErrNotInRoom
	}

	room, ok := that.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, roomID)
	}

	return room, nil
}

func generateRoomID(length int) (string, error) {
	size := big.NewInt(int64(len(roomIDAlphabet)))

	id := make([]byte, length)
	for i := range id {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		id[i] = roomIDAlphabet[n.Int64()]
	}

	return string(id), nil
}
