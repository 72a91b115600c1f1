package memory

import (
	"context"
	"sync"

	"quizlive/internal/domain"
)

// RoomStore is an in-memory implementation of app.RoomStore. Update runs the
// mutation under the store lock, which gives each room single-writer
// semantics: concurrent join/leave/start calls never see half-applied state.
type RoomStore struct {
	mu    sync.RWMutex
	rooms map[string]*domain.Room
}

func NewRoomStore() *RoomStore {
	return &RoomStore{rooms: make(map[string]*domain.Room)}
}

func (s *RoomStore) Create(_ context.Context, room *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := cloneRoom(room)
	s.rooms[room.Code] = &clone
	return nil
}

func (s *RoomStore) Get(_ context.Context, code string) (domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	return cloneRoom(room), nil
}

func (s *RoomStore) Update(_ context.Context, code string, fn func(*domain.Room) error) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	scratch := cloneRoom(room)
	if err := fn(&scratch); err != nil {
		return domain.Room{}, err
	}
	s.rooms[code] = &scratch
	return cloneRoom(&scratch), nil
}

func (s *RoomStore) Delete(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[code]; !ok {
		return domain.ErrRoomNotFound
	}
	delete(s.rooms, code)
	return nil
}

func (s *RoomStore) List(_ context.Context) ([]domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		out = append(out, cloneRoom(room))
	}
	return out, nil
}

// cloneRoom copies the room including its roster slice so callers can never
// alias stored state.
func cloneRoom(room *domain.Room) domain.Room {
	clone := *room
	clone.Players = make([]domain.Player, len(room.Players))
	copy(clone.Players, room.Players)
	if room.StartedAt != nil {
		t := *room.StartedAt
		clone.StartedAt = &t
	}
	return clone
}
