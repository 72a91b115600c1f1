package domain

import "time"

// QuestionType discriminates how a submission is scored.
type QuestionType string

const (
	TypeSingleChoice   QuestionType = "single_choice"
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeFindIntruder   QuestionType = "find_intruder"
	TypeMatching       QuestionType = "matching"
	TypeOrdering       QuestionType = "ordering"
)

// Answer is one answer option of a question. PairID links matching halves,
// OrderIndex gives the canonical position for ordering questions and
// IsIntruder marks the designated intruder.
type Answer struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"isCorrect"`
	PairID     string `json:"pairId,omitempty"`
	OrderIndex int    `json:"orderIndex,omitempty"`
	IsIntruder bool   `json:"isIntruder,omitempty"`
}

// Question models a quiz question. TimeLimitSec defaults to the configured
// question duration when zero.
type Question struct {
	ID           string       `json:"id"`
	Prompt       string       `json:"prompt"`
	Type         QuestionType `json:"type"`
	TimeLimitSec int          `json:"timeLimitSec,omitempty"`
	Answers      []Answer     `json:"answers"`
}

// Quiz is a collection of questions, read-only reference data for the engine.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// RoomStatus is the lobby lifecycle of a room.
type RoomStatus string

const (
	RoomWaiting  RoomStatus = "waiting"
	RoomPlaying  RoomStatus = "playing"
	RoomFinished RoomStatus = "finished"
)

// Team labels used when a room runs in team mode.
const (
	Team1 = "team1"
	Team2 = "team2"
)

// Player is a room membership entry. Team is empty outside team mode.
type Player struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Ready       bool      `json:"ready"`
	IsCreator   bool      `json:"isCreator"`
	Team        string    `json:"team,omitempty"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// Room is the pre-game lobby grouping players around one quiz.
// The roster is kept in join order; the first entry after a creator
// re-election is always the longest-standing member.
type Room struct {
	Code       string     `json:"code"`
	Name       string     `json:"name"`
	QuizID     string     `json:"quizId"`
	CreatorID  string     `json:"creatorId"`
	MaxPlayers int        `json:"maxPlayers"`
	TeamMode   bool       `json:"teamMode"`
	Status     RoomStatus `json:"status"`
	Players    []Player   `json:"players"`
	CreatedAt  time.Time  `json:"createdAt"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	GameCode   string     `json:"gameCode,omitempty"`
}

// FindPlayer returns the roster entry for userID, if present.
func (r *Room) FindPlayer(userID string) (Player, bool) {
	for _, p := range r.Players {
		if p.UserID == userID {
			return p, true
		}
	}
	return Player{}, false
}

// TeamCounts tallies roster members per team label.
func (r *Room) TeamCounts() (team1, team2 int) {
	for _, p := range r.Players {
		switch p.Team {
		case Team1:
			team1++
		case Team2:
			team2++
		}
	}
	return team1, team2
}

// GameStatus is the lifecycle of a running session. Finished is terminal.
type GameStatus string

const (
	GamePlaying  GameStatus = "playing"
	GameFinished GameStatus = "finished"
)

// GamePhase is the within-question state of the session state machine.
type GamePhase string

const (
	PhaseQuestion GamePhase = "question"
	PhaseFeedback GamePhase = "feedback"
)

// RosterMember is the immutable snapshot of a player taken at game start.
// Players who leave mid-game keep their entry for leaderboard purposes.
type RosterMember struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Team        string    `json:"team,omitempty"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// GameSession is the active instance of a quiz being played by a room's
// roster. CurrentIndex only ever increases; Scores is the cumulative
// per-player score map kept as an authoritative fallback across restarts.
type GameSession struct {
	Code                string         `json:"code"`
	RoomCode            string         `json:"roomCode"`
	QuizID              string         `json:"quizId"`
	Status              GameStatus     `json:"status"`
	Phase               GamePhase      `json:"phase"`
	CurrentIndex        int            `json:"currentIndex"`
	QuestionCount       int            `json:"questionCount"`
	StartedAt           time.Time      `json:"startedAt"`
	FinishedAt          *time.Time     `json:"finishedAt,omitempty"`
	QuestionStartedAt   time.Time      `json:"questionStartedAt"`
	QuestionDurationSec int            `json:"questionDurationSec"`
	Scores              map[string]int `json:"scores"`
	Roster              []RosterMember `json:"roster"`
}

// InRoster reports whether userID was part of the game when it started.
func (g *GameSession) InRoster(userID string) bool {
	for _, m := range g.Roster {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// AnswerKey is the composite identity of one submission. Its uniqueness is
// the anti-duplication invariant of the ledger.
type AnswerKey struct {
	GameCode   string `json:"gameCode"`
	PlayerID   string `json:"playerId"`
	QuestionID string `json:"questionId"`
}

// AnswerPayload is the raw client submission; which field is meaningful
// depends on the question type.
type AnswerPayload struct {
	AnswerIDs []string          `json:"answerIds,omitempty"`
	Pairs     map[string]string `json:"pairs,omitempty"`
	Order     []string          `json:"order,omitempty"`
}

// AnswerRecord is the immutable scored record of one submission.
// Created once per key, never mutated during the game's lifetime.
type AnswerRecord struct {
	Key          AnswerKey     `json:"key"`
	Payload      AnswerPayload `json:"payload"`
	Correct      bool          `json:"correct"`
	Points       int           `json:"points"`
	TimeSpentSec float64       `json:"timeSpentSec"`
	SubmittedAt  time.Time     `json:"submittedAt"`
}

// LeaderboardEntry is a derived view, recomputed from the answer records;
// it is never stored independently.
type LeaderboardEntry struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	Team        string `json:"team,omitempty"`
	Score       int    `json:"score"`
	Rank        int    `json:"rank"`
}
