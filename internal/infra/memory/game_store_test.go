package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"quizlive/internal/domain"
)

func newSession(code string) *domain.GameSession {
	return &domain.GameSession{
		Code:          code,
		Status:        domain.GamePlaying,
		Phase:         domain.PhaseQuestion,
		QuestionCount: 3,
		Scores:        map[string]int{"u1": 0},
		Roster:        []domain.RosterMember{{UserID: "u1"}},
	}
}

func TestGameStoreUpdateDiscardsFailedMutation(t *testing.T) {
	ctx := context.Background()
	store := NewGameStore()
	if err := store.Create(ctx, newSession("G1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	stale := errors.New("stale")
	_, err := store.Update(ctx, "G1", func(g *domain.GameSession) error {
		g.Phase = domain.PhaseFeedback
		g.Scores["u1"] = 999
		return stale
	})
	if err != stale {
		t.Fatalf("expected mutation error surfaced, got %v", err)
	}

	got, err := store.Get(ctx, "G1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Phase != domain.PhaseQuestion || got.Scores["u1"] != 0 {
		t.Fatalf("rejected mutation leaked: %+v", got)
	}
}

func TestGameStoreSerializesConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	store := NewGameStore()
	if err := store.Create(ctx, newSession("G1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, "G1", func(g *domain.GameSession) error {
				g.Scores["u1"]++
				return nil
			})
			if err != nil {
				t.Errorf("update: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, "G1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Scores["u1"] != 50 {
		t.Fatalf("lost updates: got %d", got.Scores["u1"])
	}
}

func TestGameStoreMisses(t *testing.T) {
	ctx := context.Background()
	store := NewGameStore()

	if _, err := store.Get(ctx, "missing"); err != domain.ErrGameNotFound {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
	if _, err := store.Update(ctx, "missing", func(*domain.GameSession) error { return nil }); err != domain.ErrGameNotFound {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}
