package memory

import (
	"context"
	"sync"

	"quizlive/internal/domain"
)

// GameStore is an in-memory implementation of app.GameStore with the same
// single-writer Update contract as RoomStore.
type GameStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.GameSession
}

func NewGameStore() *GameStore {
	return &GameStore{sessions: make(map[string]*domain.GameSession)}
}

func (s *GameStore) Create(_ context.Context, session *domain.GameSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := cloneSession(session)
	s.sessions[session.Code] = &clone
	return nil
}

func (s *GameStore) Get(_ context.Context, code string) (domain.GameSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[code]
	if !ok {
		return domain.GameSession{}, domain.ErrGameNotFound
	}
	return cloneSession(session), nil
}

func (s *GameStore) Update(_ context.Context, code string, fn func(*domain.GameSession) error) (domain.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[code]
	if !ok {
		return domain.GameSession{}, domain.ErrGameNotFound
	}
	scratch := cloneSession(session)
	if err := fn(&scratch); err != nil {
		return domain.GameSession{}, err
	}
	s.sessions[code] = &scratch
	return cloneSession(&scratch), nil
}

func cloneSession(session *domain.GameSession) domain.GameSession {
	clone := *session
	clone.Roster = make([]domain.RosterMember, len(session.Roster))
	copy(clone.Roster, session.Roster)
	clone.Scores = make(map[string]int, len(session.Scores))
	for k, v := range session.Scores {
		clone.Scores[k] = v
	}
	if session.FinishedAt != nil {
		t := *session.FinishedAt
		clone.FinishedAt = &t
	}
	return clone
}
