package domain

import "errors"

var (
	// ErrRoomNotFound is returned when a room code does not resolve to a live room.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomFull is returned when a join would exceed the room's max player count.
	ErrRoomFull = errors.New("room is full")
	// ErrGameAlreadyStarted is returned when joining or starting a room that left the lobby.
	ErrGameAlreadyStarted = errors.New("game already started")
	// ErrAlreadyJoined is returned when a user is already on the roster.
	ErrAlreadyJoined = errors.New("user already joined the room")
	// ErrNotCreator is returned when a non-creator attempts a creator-only action.
	ErrNotCreator = errors.New("only the room creator may do this")
	// ErrInsufficientPlayers is returned when starting a game with fewer than two players.
	ErrInsufficientPlayers = errors.New("not enough players to start")
	// ErrInvalidQuiz indicates the quiz reference could not be resolved.
	ErrInvalidQuiz = errors.New("quiz not found")
	// ErrInvalidMaxPlayers indicates a max player count outside the allowed range.
	ErrInvalidMaxPlayers = errors.New("max players must be between 2 and 10")
	// ErrDuplicateAnswer is returned on a second submission for the same (game, player, question).
	ErrDuplicateAnswer = errors.New("answer already submitted for this question")
	// ErrQuestionOutOfWindow is returned when a submission targets a question index
	// outside the tolerated window around the current question.
	ErrQuestionOutOfWindow = errors.New("question outside the accepted window")
	// ErrQuestionNotFound indicates a submitted question ID is not part of the quiz.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrGameNotFound is returned when a game code does not resolve to a session.
	ErrGameNotFound = errors.New("game session not found")
	// ErrGameNotPlaying is returned for in-game actions against a finished session.
	ErrGameNotPlaying = errors.New("game is not in progress")
	// ErrPlayerNotFound is returned when a user is not on the roster of the
	// targeted room or game.
	ErrPlayerNotFound = errors.New("player not found in room or game")
)
