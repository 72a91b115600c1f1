package redis

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"quizlive/internal/app"
	"quizlive/internal/domain"
	"github.com/redis/go-redis/v9"
)

// GameStore wraps an in-process store and mirrors every session snapshot to
// Redis as JSON. The in-process copy keeps Update single-writer; the mirror
// is the cross-restart fallback for the score map and phase timestamps.
type GameStore struct {
	inner  app.GameStore
	client *redis.Client
	ttl    time.Duration
}

func NewGameStore(inner app.GameStore, client *redis.Client, ttl time.Duration) *GameStore {
	return &GameStore{inner: inner, client: client, ttl: ttl}
}

func (s *GameStore) Create(ctx context.Context, session *domain.GameSession) error {
	if err := s.inner.Create(ctx, session); err != nil {
		return err
	}
	s.mirror(ctx, *session)
	return nil
}

func (s *GameStore) Get(ctx context.Context, code string) (domain.GameSession, error) {
	return s.inner.Get(ctx, code)
}

func (s *GameStore) Update(ctx context.Context, code string, fn func(*domain.GameSession) error) (domain.GameSession, error) {
	session, err := s.inner.Update(ctx, code, fn)
	if err != nil {
		return session, err
	}
	s.mirror(ctx, session)
	return session, nil
}

// Restore loads mirrored sessions back into the in-process store, typically
// at startup after a crash.
func (s *GameStore) Restore(ctx context.Context) (int, error) {
	keys, err := s.client.Keys(ctx, "game:*:session").Result()
	if err != nil {
		return 0, err
	}
	restored := 0
	for _, key := range keys {
		data, err := s.client.Get(ctx, key).Result()
		if err != nil {
			continue
		}
		var session domain.GameSession
		if err := json.Unmarshal([]byte(data), &session); err != nil {
			log.Printf("redis: skip corrupt session mirror %s: %v", key, err)
			continue
		}
		if _, err := s.inner.Get(ctx, session.Code); err == nil {
			continue
		}
		if err := s.inner.Create(ctx, &session); err != nil {
			return restored, err
		}
		restored++
	}
	return restored, nil
}

// mirror is best-effort: the in-process store already committed, so a Redis
// failure must not fail the transition.
func (s *GameStore) mirror(ctx context.Context, session domain.GameSession) {
	data, err := json.Marshal(session)
	if err != nil {
		log.Printf("redis: marshal session %s: %v", session.Code, err)
		return
	}
	if err := s.client.Set(ctx, s.sessionKey(session.Code), data, s.ttl).Err(); err != nil {
		log.Printf("redis: mirror session %s: %v", session.Code, err)
	}
}

func (s *GameStore) sessionKey(code string) string {
	return "game:" + code + ":session"
}
