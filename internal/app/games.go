package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"quizlive/internal/domain"
	"quizlive/internal/pubsub"
)

const (
	// DefaultQuestionDuration applies when a question carries no time limit.
	DefaultQuestionDuration = 30 * time.Second
	// DefaultFeedbackDelay is how long feedback is shown before the next
	// question opens automatically.
	DefaultFeedbackDelay = 5 * time.Second

	// answerWindowBehind and answerWindowAhead bound the question indices a
	// submission may target relative to the current one. The slack tolerates
	// client clock skew without accepting answers for arbitrary questions.
	answerWindowBehind = 2
	answerWindowAhead  = 1
)

// GameConfig tunes the state machine. Zero values pick the defaults; a
// negative FeedbackDelay disables automatic advancement so only explicit
// AdvanceQuestion calls move past feedback.
type GameConfig struct {
	QuestionDuration time.Duration
	FeedbackDelay    time.Duration
	Clock            func() time.Time
}

// GameService drives game sessions: question sequencing, answer intake,
// scoring, feedback and completion. Each session progresses independently;
// transitions go through the GameStore's single-writer Update so concurrent
// triggers (last two submitters, timer expiry) collapse into one.
type GameService struct {
	games   GameStore
	rooms   RoomStore
	ledger  AnswerLedger
	quizzes QuizRepository
	pub     pubsub.Publisher

	now              func() time.Time
	questionDuration time.Duration
	feedbackDelay    time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewGameService(games GameStore, rooms RoomStore, ledger AnswerLedger, quizzes QuizRepository, pub pubsub.Publisher, cfg GameConfig) *GameService {
	if cfg.QuestionDuration <= 0 {
		cfg.QuestionDuration = DefaultQuestionDuration
	}
	if cfg.FeedbackDelay == 0 {
		cfg.FeedbackDelay = DefaultFeedbackDelay
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &GameService{
		games:            games,
		rooms:            rooms,
		ledger:           ledger,
		quizzes:          quizzes,
		pub:              pub,
		now:              cfg.Clock,
		questionDuration: cfg.QuestionDuration,
		feedbackDelay:    cfg.FeedbackDelay,
		timers:           make(map[string]*time.Timer),
	}
}

// Begin creates the session for a freshly started room and opens question
// zero. The roster is snapshotted here; later lobby changes do not affect a
// running game.
func (s *GameService) Begin(ctx context.Context, room domain.Room, gameCode string) (domain.GameSession, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, room.QuizID)
	if err != nil {
		return domain.GameSession{}, domain.ErrInvalidQuiz
	}
	if len(quiz.Questions) == 0 {
		return domain.GameSession{}, domain.ErrInvalidQuiz
	}

	now := s.now()
	roster := make([]domain.RosterMember, 0, len(room.Players))
	scores := make(map[string]int, len(room.Players))
	for _, p := range room.Players {
		roster = append(roster, domain.RosterMember{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			Team:        p.Team,
			JoinedAt:    p.JoinedAt,
		})
		scores[p.UserID] = 0
	}

	first := quiz.Questions[0]
	session := &domain.GameSession{
		Code:                gameCode,
		RoomCode:            room.Code,
		QuizID:              room.QuizID,
		Status:              domain.GamePlaying,
		Phase:               domain.PhaseQuestion,
		CurrentIndex:        0,
		QuestionCount:       len(quiz.Questions),
		StartedAt:           now,
		QuestionStartedAt:   now,
		QuestionDurationSec: s.limitFor(first),
		Scores:              scores,
		Roster:              roster,
	}
	if err := s.games.Create(ctx, session); err != nil {
		return domain.GameSession{}, err
	}

	started := GameStartedView{GameCode: gameCode, RoomCode: room.Code, QuizID: room.QuizID}
	s.pub.Publish(pubsub.TopicGameStarted(gameCode), pubsub.Message{Type: pubsub.TypeGameStarted, Payload: started})
	for _, m := range roster {
		s.pub.Publish(pubsub.TopicUserStarted(m.UserID), pubsub.Message{Type: pubsub.TypeGameStarted, Payload: started})
	}

	s.publishQuestion(gameCode, 0, first)
	s.armTimer(gameCode, time.Duration(session.QuestionDurationSec)*time.Second, func() {
		s.questionTimeout(gameCode, 0)
	})
	return *session, nil
}

// SubmitAnswer validates, scores and records one submission, then checks
// whether everyone on the roster has answered the current question. The
// ledger's atomic append is the duplicate guard; the phase transition behind
// the all-answered check is idempotent, so two concurrent "last" submitters
// fire it exactly once.
func (s *GameService) SubmitAnswer(ctx context.Context, gameCode, playerID, questionID string, payload domain.AnswerPayload, timeSpentSec float64) (domain.AnswerRecord, error) {
	session, err := s.games.Get(ctx, gameCode)
	if err != nil {
		return domain.AnswerRecord{}, err
	}
	if session.Status != domain.GamePlaying {
		return domain.AnswerRecord{}, domain.ErrGameNotPlaying
	}
	if !session.InRoster(playerID) {
		return domain.AnswerRecord{}, domain.ErrPlayerNotFound
	}

	quiz, err := s.quizzes.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return domain.AnswerRecord{}, domain.ErrInvalidQuiz
	}
	idx := questionIndex(quiz, questionID)
	if idx < 0 {
		return domain.AnswerRecord{}, domain.ErrQuestionNotFound
	}
	if idx < session.CurrentIndex-answerWindowBehind || idx > session.CurrentIndex+answerWindowAhead {
		return domain.AnswerRecord{}, domain.ErrQuestionOutOfWindow
	}

	question := quiz.Questions[idx]
	if timeSpentSec < 0 {
		timeSpentSec = 0
	}
	points, correct := ScoreSubmission(question, payload, timeSpentSec, s.limitFor(question))

	record := domain.AnswerRecord{
		Key:          domain.AnswerKey{GameCode: gameCode, PlayerID: playerID, QuestionID: questionID},
		Payload:      payload,
		Correct:      correct,
		Points:       points,
		TimeSpentSec: timeSpentSec,
		SubmittedAt:  s.now(),
	}
	if err := s.ledger.Append(ctx, record); err != nil {
		return domain.AnswerRecord{}, err
	}

	updated, err := s.games.Update(ctx, gameCode, func(g *domain.GameSession) error {
		if g.Status != domain.GamePlaying {
			return domain.ErrGameNotPlaying
		}
		if g.Scores == nil {
			g.Scores = make(map[string]int)
		}
		g.Scores[playerID] += points
		return nil
	})
	if err != nil {
		return domain.AnswerRecord{}, err
	}

	count, err := s.ledger.CountForQuestion(ctx, gameCode, questionID)
	if err != nil {
		count = 0
	}
	s.pub.Publish(pubsub.TopicGame(gameCode), pubsub.Message{Type: pubsub.TypePlayerAnswered, Payload: PlayerAnsweredView{
		GameCode:      gameCode,
		PlayerID:      playerID,
		QuestionID:    questionID,
		AnsweredCount: count,
		RosterSize:    len(updated.Roster),
	}})

	if idx == updated.CurrentIndex && updated.Phase == domain.PhaseQuestion && count >= len(updated.Roster) {
		if err := s.advanceToFeedback(ctx, gameCode, idx); err != nil {
			return domain.AnswerRecord{}, err
		}
	}
	return record, nil
}

// AdvanceQuestion is the explicit client/operator signal: it closes the
// current question early when called during a question phase, and opens the
// next question (or finishes) when called during feedback.
func (s *GameService) AdvanceQuestion(ctx context.Context, gameCode string) (domain.GameSession, error) {
	session, err := s.games.Get(ctx, gameCode)
	if err != nil {
		return domain.GameSession{}, err
	}
	if session.Status != domain.GamePlaying {
		return domain.GameSession{}, domain.ErrGameNotPlaying
	}

	if session.Phase == domain.PhaseQuestion {
		err = s.advanceToFeedback(ctx, gameCode, session.CurrentIndex)
	} else {
		err = s.next(ctx, gameCode, session.CurrentIndex)
	}
	if err != nil {
		return domain.GameSession{}, err
	}
	return s.games.Get(ctx, gameCode)
}

// EndGame forces the session into its terminal state. Any roster member may
// invoke it; it is the escape hatch for abandoned games.
func (s *GameService) EndGame(ctx context.Context, gameCode, userID string) (domain.GameSession, error) {
	session, err := s.games.Get(ctx, gameCode)
	if err != nil {
		return domain.GameSession{}, err
	}
	if !session.InRoster(userID) {
		return domain.GameSession{}, domain.ErrPlayerNotFound
	}

	now := s.now()
	session, err = s.games.Update(ctx, gameCode, func(g *domain.GameSession) error {
		if g.Status != domain.GamePlaying {
			return domain.ErrGameNotPlaying
		}
		g.Status = domain.GameFinished
		g.FinishedAt = &now
		return nil
	})
	if err != nil {
		return domain.GameSession{}, err
	}
	if err := s.finalize(ctx, session); err != nil {
		return domain.GameSession{}, err
	}
	return session, nil
}

// Leaderboard recomputes the standings for a game from the answer ledger.
func (s *GameService) Leaderboard(ctx context.Context, gameCode string) ([]domain.LeaderboardEntry, error) {
	session, err := s.games.Get(ctx, gameCode)
	if err != nil {
		return nil, err
	}
	records, err := s.ledger.ListByGame(ctx, gameCode)
	if err != nil {
		return nil, err
	}
	return computeLeaderboard(session.Roster, records), nil
}

// Snapshot returns the serializable state of a session. The current question
// is included in stripped form only.
func (s *GameService) Snapshot(ctx context.Context, gameCode string) (GameView, error) {
	session, err := s.games.Get(ctx, gameCode)
	if err != nil {
		return GameView{}, err
	}
	view := GameView{
		Code:          session.Code,
		RoomCode:      session.RoomCode,
		Status:        session.Status,
		Phase:         session.Phase,
		CurrentIndex:  session.CurrentIndex,
		QuestionCount: session.QuestionCount,
		TimeLeftSec:   timeLeft(session, s.now()),
		Scores:        session.Scores,
		Roster:        session.Roster,
	}
	if session.Status == domain.GamePlaying {
		quiz, err := s.quizzes.GetQuiz(ctx, session.QuizID)
		if err == nil && session.CurrentIndex < len(quiz.Questions) {
			q := quiz.Questions[session.CurrentIndex]
			qv := newQuestionView(session.CurrentIndex, q, s.limitFor(q))
			view.CurrentQuestion = &qv
		}
	}
	return view, nil
}

// Shutdown cancels all pending phase timers. Persisted question timestamps
// make the timers reconstructible after a restart.
func (s *GameService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for code, t := range s.timers {
		t.Stop()
		delete(s.timers, code)
	}
}

// advanceToFeedback moves Question(i) to Feedback(i). A stale trigger (timer
// firing after all-answered already advanced, or a second concurrent "last"
// submitter) is a no-op.
func (s *GameService) advanceToFeedback(ctx context.Context, gameCode string, idx int) error {
	session, err := s.games.Update(ctx, gameCode, func(g *domain.GameSession) error {
		if g.Status != domain.GamePlaying || g.Phase != domain.PhaseQuestion || g.CurrentIndex != idx {
			return errStale
		}
		g.Phase = domain.PhaseFeedback
		return nil
	})
	if errors.Is(err, errStale) {
		return nil
	}
	if err != nil {
		return err
	}

	quiz, err := s.quizzes.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return err
	}
	records, err := s.ledger.ListByGame(ctx, gameCode)
	if err != nil {
		return err
	}
	question := quiz.Questions[idx]
	s.pub.Publish(pubsub.TopicGame(gameCode), pubsub.Message{Type: pubsub.TypeShowFeedback, Payload: FeedbackView{
		QuestionID:  question.ID,
		Index:       idx,
		Answers:     question.Answers,
		Leaderboard: computeLeaderboard(session.Roster, records),
	}})

	if s.feedbackDelay > 0 {
		s.armTimer(gameCode, s.feedbackDelay, func() {
			if err := s.next(context.Background(), gameCode, idx); err != nil {
				log.Printf("game %s: auto-advance after feedback: %v", gameCode, err)
			}
		})
	}
	return nil
}

// next moves Feedback(i) to Question(i+1), or to Finished when the quiz is
// exhausted. Stale triggers are no-ops.
func (s *GameService) next(ctx context.Context, gameCode string, fromIdx int) error {
	session, err := s.games.Get(ctx, gameCode)
	if err != nil {
		return err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return err
	}

	now := s.now()
	finished := false
	session, err = s.games.Update(ctx, gameCode, func(g *domain.GameSession) error {
		if g.Status != domain.GamePlaying || g.Phase != domain.PhaseFeedback || g.CurrentIndex != fromIdx {
			return errStale
		}
		if fromIdx+1 >= g.QuestionCount {
			g.Status = domain.GameFinished
			g.FinishedAt = &now
			finished = true
			return nil
		}
		g.CurrentIndex = fromIdx + 1
		g.Phase = domain.PhaseQuestion
		g.QuestionStartedAt = now
		g.QuestionDurationSec = s.limitFor(quiz.Questions[fromIdx+1])
		return nil
	})
	if errors.Is(err, errStale) {
		return nil
	}
	if err != nil {
		return err
	}

	if finished {
		return s.finalize(ctx, session)
	}

	question := quiz.Questions[session.CurrentIndex]
	s.publishQuestion(gameCode, session.CurrentIndex, question)
	s.armTimer(gameCode, time.Duration(session.QuestionDurationSec)*time.Second, func() {
		s.questionTimeout(gameCode, session.CurrentIndex)
	})
	return nil
}

// finalize runs once per session: publishes the final leaderboard and flips
// the owning room to finished.
func (s *GameService) finalize(ctx context.Context, session domain.GameSession) error {
	s.stopTimer(session.Code)

	records, err := s.ledger.ListByGame(ctx, session.Code)
	if err != nil {
		return err
	}
	s.pub.Publish(pubsub.TopicGame(session.Code), pubsub.Message{Type: pubsub.TypeGameFinished, Payload: GameFinishedView{
		GameCode:    session.Code,
		RoomCode:    session.RoomCode,
		Leaderboard: computeLeaderboard(session.Roster, records),
	}})

	room, err := s.rooms.Update(ctx, session.RoomCode, func(r *domain.Room) error {
		r.Status = domain.RoomFinished
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return nil
		}
		return err
	}
	s.pub.Publish(pubsub.TopicRoom(room.Code), pubsub.Message{Type: pubsub.TypeRoomUpdated, Payload: room})
	return nil
}

func (s *GameService) questionTimeout(gameCode string, idx int) {
	if err := s.advanceToFeedback(context.Background(), gameCode, idx); err != nil {
		log.Printf("game %s: question %d timeout: %v", gameCode, idx, err)
	}
}

func (s *GameService) publishQuestion(gameCode string, idx int, q domain.Question) {
	s.pub.Publish(pubsub.TopicGame(gameCode), pubsub.Message{
		Type:    pubsub.TypeNewQuestion,
		Payload: newQuestionView(idx, q, s.limitFor(q)),
	})
}

func (s *GameService) limitFor(q domain.Question) int {
	if q.TimeLimitSec > 0 {
		return q.TimeLimitSec
	}
	return int(s.questionDuration / time.Second)
}

func (s *GameService) armTimer(gameCode string, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[gameCode]; ok {
		t.Stop()
	}
	s.timers[gameCode] = time.AfterFunc(d, fn)
}

func (s *GameService) stopTimer(gameCode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[gameCode]; ok {
		t.Stop()
		delete(s.timers, gameCode)
	}
}

func questionIndex(quiz domain.Quiz, questionID string) int {
	for i := range quiz.Questions {
		if quiz.Questions[i].ID == questionID {
			return i
		}
	}
	return -1
}
