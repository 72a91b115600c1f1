package app

import (
	"context"
	"errors"

	"quizlive/internal/domain"
)

// RoomStore abstracts how rooms are kept (in-memory, Redis-backed, etc).
// Update applies fn under single-writer semantics for the room: fn sees the
// current record and its changes are persisted atomically, or discarded when
// fn returns an error.
type RoomStore interface {
	Create(ctx context.Context, room *domain.Room) error
	Get(ctx context.Context, code string) (domain.Room, error)
	Update(ctx context.Context, code string, fn func(*domain.Room) error) (domain.Room, error)
	Delete(ctx context.Context, code string) error
	List(ctx context.Context) ([]domain.Room, error)
}

// GameStore persists game sessions with the same single-writer Update
// contract as RoomStore. Sessions are the unit of consistency for phase
// transitions.
type GameStore interface {
	Create(ctx context.Context, session *domain.GameSession) error
	Get(ctx context.Context, code string) (domain.GameSession, error)
	Update(ctx context.Context, code string, fn func(*domain.GameSession) error) (domain.GameSession, error)
}

// AnswerLedger is the append-only record of submissions. Append must behave
// as an atomic check-and-insert on the composite key: concurrent submissions
// for the same key see exactly one success and ErrDuplicateAnswer otherwise.
type AnswerLedger interface {
	Append(ctx context.Context, rec domain.AnswerRecord) error
	CountForQuestion(ctx context.Context, gameCode, questionID string) (int, error)
	ListByGame(ctx context.Context, gameCode string) ([]domain.AnswerRecord, error)
}

// QuizRepository loads quiz content (from cache/backing store). The engine
// only ever reads through it.
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// errStale is returned by Update closures when the record already moved past
// the transition being applied. Callers treat it as a successful no-op, which
// is what makes phase transitions idempotent under concurrent triggers.
var errStale = errors.New("stale transition")
