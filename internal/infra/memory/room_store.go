package memory

import (
	"context"
	"encoding/json"
	"sync"

	"quiz-room-service/internal/domain"
)

// RoomStore is an in-memory implementation of app.RoomRepository. Documents
// are kept marshaled so every Get returns an independent copy, matching the
// load-mutate-save semantics of the durable store.
type RoomStore struct {
	mu    sync.RWMutex
	rooms map[string][]byte
}

func NewRoomStore() *RoomStore {
	return &RoomStore{rooms: make(map[string][]byte)}
}

func (s *RoomStore) Get(_ context.Context, code string) (*domain.Room, error) {
	s.mu.RLock()
	raw, ok := s.rooms[code]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	var room domain.Room
	if err := json.Unmarshal(raw, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *RoomStore) Save(_ context.Context, room *domain.Room) error {
	raw, err := json.Marshal(room)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.rooms[room.Code] = raw
	s.mu.Unlock()
	return nil
}

func (s *RoomStore) Exists(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	_, ok := s.rooms[code]
	s.mu.RUnlock()
	return ok, nil
}
