package memory

import (
	"context"
	"sync"
	"testing"

	"quizlive/internal/domain"
)

func TestLedgerAppendRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger()

	rec := domain.AnswerRecord{
		Key:    domain.AnswerKey{GameCode: "G1", PlayerID: "u1", QuestionID: "q1"},
		Points: 100,
	}
	if err := ledger.Append(ctx, rec); err != nil {
		t.Fatalf("append: %v", err)
	}

	retry := rec
	retry.Points = 50
	if err := ledger.Append(ctx, retry); err != domain.ErrDuplicateAnswer {
		t.Fatalf("expected ErrDuplicateAnswer, got %v", err)
	}

	records, err := ledger.ListByGame(ctx, "G1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 || records[0].Points != 100 {
		t.Fatalf("first write must win, got %+v", records)
	}
}

func TestLedgerAppendIsAtomicUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger()
	key := domain.AnswerKey{GameCode: "G1", PlayerID: "u1", QuestionID: "q1"}

	var wg sync.WaitGroup
	accepted := make(chan struct{}, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ledger.Append(ctx, domain.AnswerRecord{Key: key}); err == nil {
				accepted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(accepted)

	wins := 0
	for range accepted {
		wins++
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestLedgerCountsPerQuestion(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger()

	records := []domain.AnswerKey{
		{GameCode: "G1", PlayerID: "u1", QuestionID: "q1"},
		{GameCode: "G1", PlayerID: "u2", QuestionID: "q1"},
		{GameCode: "G1", PlayerID: "u1", QuestionID: "q2"},
		{GameCode: "G2", PlayerID: "u1", QuestionID: "q1"},
	}
	for _, key := range records {
		if err := ledger.Append(ctx, domain.AnswerRecord{Key: key}); err != nil {
			t.Fatalf("append %+v: %v", key, err)
		}
	}

	count, err := ledger.CountForQuestion(ctx, "G1", "q1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 answers for G1/q1, got %d", count)
	}

	byGame, err := ledger.ListByGame(ctx, "G1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(byGame) != 3 {
		t.Fatalf("expected 3 records for G1, got %d", len(byGame))
	}
}
