package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/connectfour-backend/internal/entity"
)

const maxMatchesPerRoom = 50

var ErrMatchNotFound = errors.New("match not found")

type MatchRepository interface {
	Save(ctx context.Context, match *entity.MatchResult) error
	GetByID(ctx context.Context, id string) (*entity.MatchResult, error)
	ListByRoom(ctx context.Context, roomID string) ([]*entity.MatchResult, error)
}

type dbMatch struct {
	client *redis.Client
	ttl    time.Duration
}

// NewMatchRepository stores finished matches in Redis. A zero ttl keeps them forever.
func NewMatchRepository(client *redis.Client, ttl time.Duration) MatchRepository {
	return &dbMatch{
		client: client,
		ttl:    ttl,
	}
}

func matchKey(id string) string {
	return "match:" + id
}

func roomMatchesKey(roomID string) string {
	return "room:" + roomID + ":matches"
}

func (that *dbMatch) Save(ctx context.Context, match *entity.MatchResult) error {
	matchJSON, err := json.Marshal(match)
	if err != nil {
		return fmt.Errorf("could not marshal match: %w", err)
	}

	listKey := roomMatchesKey(match.RoomID)

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, matchKey(match.ID), matchJSON, that.ttl)
		pipe.LPush(ctx, listKey, match.ID)
		pipe.LTrim(ctx, listKey, 0, maxMatchesPerRoom-1)

		if that.ttl > 0 {
			pipe.Expire(ctx, listKey, that.ttl)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save match: %w", err)
	}

	return nil
}

func (that *dbMatch) GetByID(ctx context.Context, id string) (*entity.MatchResult, error) {
	response, err := that.client.Get(ctx, matchKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMatchNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get match by id: %w", err)
	}

	var match entity.MatchResult
	if err = json.Unmarshal([]byte(response), &match); err != nil {
		return nil, fmt.Errorf("failed to unmarshal match: %w", err)
	}

	return &match, nil
}

// ListByRoom returns the archived matches of a room, newest first. Ids whose
// record already expired are skipped.
func (that *dbMatch) ListByRoom(ctx context.Context, roomID string) ([]*entity.MatchResult, error) {
	ids, err := that.client.LRange(ctx, roomMatchesKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list matches of room: %w", err)
	}

	matches := make([]*entity.MatchResult, 0, len(ids))
	for _, id := range ids {
		match, err := that.GetByID(ctx, id)
		if errors.Is(err, ErrMatchNotFound) {
			continue
		}

		if err != nil {
			return nil, err
		}

		matches = append(matches, match)
	}

	return matches, nil
}
