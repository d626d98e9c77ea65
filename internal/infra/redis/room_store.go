package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-room-service/internal/domain"
)

// RoomStore keeps one JSON document per room under quizroom:{code}.
// The TTL is refreshed on every save so finished rooms stay queryable for
// the retention window.
type RoomStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRoomStore(client *redis.Client, ttl time.Duration) *RoomStore {
	return &RoomStore{client: client, ttl: ttl}
}

func (s *RoomStore) Get(ctx context.Context, code string) (*domain.Room, error) {
	raw, err := s.client.Get(ctx, s.key(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	var room domain.Room
	if err := json.Unmarshal(raw, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *RoomStore) Save(ctx context.Context, room *domain.Room) error {
	raw, err := json.Marshal(room)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(room.Code), raw, s.ttl).Err()
}

func (s *RoomStore) Exists(ctx context.Context, code string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(code)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RoomStore) key(code string) string {
	return "quizroom:" + code
}
