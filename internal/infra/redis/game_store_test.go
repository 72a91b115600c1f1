package redis

import (
	"context"
	"testing"
	"time"

	"quizlive/internal/domain"
	"quizlive/internal/infra/memory"
)

func playingSession(code string) *domain.GameSession {
	return &domain.GameSession{
		Code:          code,
		RoomCode:      "R1",
		Status:        domain.GamePlaying,
		Phase:         domain.PhaseQuestion,
		QuestionCount: 2,
		Scores:        map[string]int{"u1": 0, "u2": 0},
		Roster: []domain.RosterMember{
			{UserID: "u1", DisplayName: "Alice"},
			{UserID: "u2", DisplayName: "Bob"},
		},
	}
}

func TestGameStoreMirrorsSessions(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	defer mr.Close()

	store := NewGameStore(memory.NewGameStore(), client, time.Hour)
	if err := store.Create(ctx, playingSession("G1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !mr.Exists("game:G1:session") {
		t.Fatalf("expected session mirrored to redis")
	}

	if _, err := store.Update(ctx, "G1", func(g *domain.GameSession) error {
		g.Scores["u1"] = 117
		return nil
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := store.Get(ctx, "G1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Scores["u1"] != 117 {
		t.Fatalf("expected updated score, got %d", got.Scores["u1"])
	}
}

func TestGameStoreRestoreAfterRestart(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	defer mr.Close()

	first := NewGameStore(memory.NewGameStore(), client, time.Hour)
	if err := first.Create(ctx, playingSession("G1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := first.Update(ctx, "G1", func(g *domain.GameSession) error {
		g.CurrentIndex = 1
		g.Scores["u2"] = 113
		return nil
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	// A fresh in-process store simulates a restarted instance.
	second := NewGameStore(memory.NewGameStore(), client, time.Hour)
	restored, err := second.Restore(ctx)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored != 1 {
		t.Fatalf("expected 1 session restored, got %d", restored)
	}

	got, err := second.Get(ctx, "G1")
	if err != nil {
		t.Fatalf("get after restore: %v", err)
	}
	if got.CurrentIndex != 1 || got.Scores["u2"] != 113 || len(got.Roster) != 2 {
		t.Fatalf("restored session lost state: %+v", got)
	}

	// Restore never clobbers sessions the instance already holds.
	restored, err = second.Restore(ctx)
	if err != nil {
		t.Fatalf("second restore: %v", err)
	}
	if restored != 0 {
		t.Fatalf("expected idempotent restore, got %d", restored)
	}
}

func TestGameStoreUpdateFailureSkipsMirror(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	defer mr.Close()

	store := NewGameStore(memory.NewGameStore(), client, time.Hour)
	if _, err := store.Update(ctx, "missing", func(*domain.GameSession) error { return nil }); err != domain.ErrGameNotFound {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
	if mr.Exists("game:missing:session") {
		t.Fatalf("failed update must not mirror")
	}
}
