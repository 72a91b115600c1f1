package memory

import (
	"context"
	"sync"

	"quizlive/internal/domain"
)

// Ledger is the in-memory answer ledger. The composite-key map plus the
// store lock make Append an atomic check-and-insert, so at most one record
// ever exists per (game, player, question).
type Ledger struct {
	mu      sync.RWMutex
	records map[domain.AnswerKey]domain.AnswerRecord
}

func NewLedger() *Ledger {
	return &Ledger{records: make(map[domain.AnswerKey]domain.AnswerRecord)}
}

func (l *Ledger) Append(_ context.Context, rec domain.AnswerRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.records[rec.Key]; exists {
		return domain.ErrDuplicateAnswer
	}
	l.records[rec.Key] = rec
	return nil
}

func (l *Ledger) CountForQuestion(_ context.Context, gameCode, questionID string) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	count := 0
	for key := range l.records {
		if key.GameCode == gameCode && key.QuestionID == questionID {
			count++
		}
	}
	return count, nil
}

func (l *Ledger) ListByGame(_ context.Context, gameCode string) ([]domain.AnswerRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.AnswerRecord, 0)
	for key, rec := range l.records {
		if key.GameCode == gameCode {
			out = append(out, rec)
		}
	}
	return out, nil
}
