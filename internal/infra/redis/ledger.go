package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"quizlive/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Ledger stores answer records in a Redis hash per game:
//
//	HSETNX game:{code}:answers {playerID}/{questionID} {record JSON}
//	SADD   game:{code}:answered:{questionID} {playerID}
//
// HSETNX is the atomic check-and-insert that enforces at-most-one record per
// composite key across concurrent submitters, even on multiple instances.
type Ledger struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLedger(client *redis.Client, ttl time.Duration) *Ledger {
	return &Ledger{client: client, ttl: ttl}
}

func (l *Ledger) Append(ctx context.Context, rec domain.AnswerRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal answer record: %w", err)
	}

	key := l.answersKey(rec.Key.GameCode)
	inserted, err := l.client.HSetNX(ctx, key, fieldFor(rec.Key), data).Result()
	if err != nil {
		return fmt.Errorf("append answer: %w", err)
	}
	if !inserted {
		return domain.ErrDuplicateAnswer
	}

	pipe := l.client.Pipeline()
	answeredKey := l.answeredKey(rec.Key.GameCode, rec.Key.QuestionID)
	pipe.SAdd(ctx, answeredKey, rec.Key.PlayerID)
	if l.ttl > 0 {
		pipe.Expire(ctx, key, l.ttl)
		pipe.Expire(ctx, answeredKey, l.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("track answered set: %w", err)
	}
	return nil
}

func (l *Ledger) CountForQuestion(ctx context.Context, gameCode, questionID string) (int, error) {
	n, err := l.client.SCard(ctx, l.answeredKey(gameCode, questionID)).Result()
	if err != nil {
		return 0, fmt.Errorf("count answered: %w", err)
	}
	return int(n), nil
}

func (l *Ledger) ListByGame(ctx context.Context, gameCode string) ([]domain.AnswerRecord, error) {
	raw, err := l.client.HGetAll(ctx, l.answersKey(gameCode)).Result()
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	out := make([]domain.AnswerRecord, 0, len(raw))
	for _, data := range raw {
		var rec domain.AnswerRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal answer record: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (l *Ledger) answersKey(gameCode string) string {
	return "game:" + gameCode + ":answers"
}

func (l *Ledger) answeredKey(gameCode, questionID string) string {
	return "game:" + gameCode + ":answered:" + questionID
}

func fieldFor(key domain.AnswerKey) string {
	return key.PlayerID + "/" + key.QuestionID
}
