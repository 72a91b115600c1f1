package app

import (
	"time"

	"quizlive/internal/domain"
)

// AnswerOption is an answer stripped of everything that would leak the
// solution (correctness flags, pair links, canonical order, intruder mark).
type AnswerOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionView is the question payload published on entry to a question
// phase and embedded in game snapshots before feedback.
type QuestionView struct {
	Index        int                 `json:"index"`
	ID           string              `json:"id"`
	Prompt       string              `json:"prompt"`
	Type         domain.QuestionType `json:"type"`
	TimeLimitSec int                 `json:"timeLimitSec"`
	Answers      []AnswerOption      `json:"answers"`
}

// FeedbackView reveals the full answer set of a question together with the
// standings at that point in the game.
type FeedbackView struct {
	QuestionID  string                    `json:"questionId"`
	Index       int                       `json:"index"`
	Answers     []domain.Answer           `json:"answers"`
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
}

// PlayerAnsweredView is published after each accepted submission so clients
// can show progress without learning anything about correctness.
type PlayerAnsweredView struct {
	GameCode      string `json:"gameCode"`
	PlayerID      string `json:"playerId"`
	QuestionID    string `json:"questionId"`
	AnsweredCount int    `json:"answeredCount"`
	RosterSize    int    `json:"rosterSize"`
}

// GameView is the serializable snapshot of a session returned to API callers.
// TimeLeftSec is recomputed from the question start timestamp so it survives
// process restarts.
type GameView struct {
	Code            string                `json:"code"`
	RoomCode        string                `json:"roomCode"`
	Status          domain.GameStatus     `json:"status"`
	Phase           domain.GamePhase      `json:"phase"`
	CurrentIndex    int                   `json:"currentIndex"`
	QuestionCount   int                   `json:"questionCount"`
	TimeLeftSec     float64               `json:"timeLeftSec"`
	Scores          map[string]int        `json:"scores"`
	Roster          []domain.RosterMember `json:"roster"`
	CurrentQuestion *QuestionView         `json:"currentQuestion,omitempty"`
}

// GameFinishedView closes out a game on the wire.
type GameFinishedView struct {
	GameCode    string                    `json:"gameCode"`
	RoomCode    string                    `json:"roomCode"`
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
}

// GameStartedView announces a fresh session to room members and to each
// user's rejoin topic.
type GameStartedView struct {
	GameCode string `json:"gameCode"`
	RoomCode string `json:"roomCode"`
	QuizID   string `json:"quizId"`
}

func newQuestionView(index int, q domain.Question, limitSec int) QuestionView {
	opts := make([]AnswerOption, 0, len(q.Answers))
	for _, a := range q.Answers {
		opts = append(opts, AnswerOption{ID: a.ID, Text: a.Text})
	}
	return QuestionView{
		Index:        index,
		ID:           q.ID,
		Prompt:       q.Prompt,
		Type:         q.Type,
		TimeLimitSec: limitSec,
		Answers:      opts,
	}
}

func timeLeft(session domain.GameSession, now time.Time) float64 {
	if session.Status != domain.GamePlaying || session.Phase != domain.PhaseQuestion {
		return 0
	}
	deadline := session.QuestionStartedAt.Add(time.Duration(session.QuestionDurationSec) * time.Second)
	left := deadline.Sub(now).Seconds()
	if left < 0 {
		return 0
	}
	return left
}
