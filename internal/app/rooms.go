package app

import (
	"context"
	"strings"
	"time"

	"quizlive/internal/domain"
	"quizlive/internal/pubsub"
	"github.com/google/uuid"
)

// NewCode produces a short opaque code for rooms and game sessions.
func NewCode() string {
	return strings.ToUpper(uuid.NewString()[:6])
}

// RoomService is the lobby registry: it tracks rooms, rosters, team
// assignment and readiness until a game starts, then hands the roster to the
// GameService.
type RoomService struct {
	rooms   RoomStore
	quizzes QuizRepository
	games   *GameService
	pub     pubsub.Publisher
	now     func() time.Time
}

func NewRoomService(rooms RoomStore, quizzes QuizRepository, games *GameService, pub pubsub.Publisher) *RoomService {
	return &RoomService{rooms: rooms, quizzes: quizzes, games: games, pub: pub, now: time.Now}
}

// NewRoomServiceWithClock is test-only for deterministic timestamps.
func NewRoomServiceWithClock(rooms RoomStore, quizzes QuizRepository, games *GameService, pub pubsub.Publisher, now func() time.Time) *RoomService {
	s := NewRoomService(rooms, quizzes, games, pub)
	s.now = now
	return s
}

// CreateRoom validates the quiz reference and opens a lobby. The creator
// auto-joins ready, and in team mode lands on team1.
func (s *RoomService) CreateRoom(ctx context.Context, creatorID, displayName, quizID string, maxPlayers int, teamMode bool, name string) (domain.Room, error) {
	if maxPlayers < 2 || maxPlayers > 10 {
		return domain.Room{}, domain.ErrInvalidMaxPlayers
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Room{}, domain.ErrInvalidQuiz
	}
	if name == "" {
		name = quiz.Title
	}

	now := s.now()
	creator := domain.Player{
		UserID:      creatorID,
		DisplayName: displayName,
		Ready:       true,
		IsCreator:   true,
		JoinedAt:    now,
	}
	if teamMode {
		creator.Team = domain.Team1
	}
	room := &domain.Room{
		Code:       NewCode(),
		Name:       name,
		QuizID:     quizID,
		CreatorID:  creatorID,
		MaxPlayers: maxPlayers,
		TeamMode:   teamMode,
		Status:     domain.RoomWaiting,
		Players:    []domain.Player{creator},
		CreatedAt:  now,
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return domain.Room{}, err
	}

	s.publishRoom(*room)
	return *room, nil
}

// JoinRoom adds a user to a waiting room. An explicit valid team name is
// honored; otherwise the smaller team wins, ties going to team1.
func (s *RoomService) JoinRoom(ctx context.Context, code, userID, displayName, teamName string) (domain.Room, error) {
	room, err := s.rooms.Update(ctx, code, func(r *domain.Room) error {
		if r.Status != domain.RoomWaiting {
			return domain.ErrGameAlreadyStarted
		}
		if _, ok := r.FindPlayer(userID); ok {
			return domain.ErrAlreadyJoined
		}
		if len(r.Players) >= r.MaxPlayers {
			return domain.ErrRoomFull
		}
		player := domain.Player{
			UserID:      userID,
			DisplayName: displayName,
			JoinedAt:    s.now(),
		}
		if r.TeamMode {
			team1, team2 := r.TeamCounts()
			player.Team = pickTeam(teamName, team1, team2)
		}
		r.Players = append(r.Players, player)
		return nil
	})
	if err != nil {
		return domain.Room{}, err
	}

	s.publishRoom(room)
	return room, nil
}

// pickTeam honors an explicit valid team label, else balances toward the
// smaller team with ties going to team1.
func pickTeam(requested string, team1, team2 int) string {
	switch requested {
	case domain.Team1, domain.Team2:
		return requested
	}
	if team2 < team1 {
		return domain.Team2
	}
	return domain.Team1
}

// LeaveRoom removes a player. If the creator leaves and others remain, the
// longest-standing member is promoted. An emptied room is deleted and a
// room_deleted event is published so clients stop waiting.
func (s *RoomService) LeaveRoom(ctx context.Context, code, userID string) (domain.Room, bool, error) {
	room, err := s.rooms.Update(ctx, code, func(r *domain.Room) error {
		idx := -1
		for i, p := range r.Players {
			if p.UserID == userID {
				idx = i
				break
			}
		}
		if idx == -1 {
			return domain.ErrPlayerNotFound
		}
		wasCreator := r.Players[idx].IsCreator
		r.Players = append(r.Players[:idx], r.Players[idx+1:]...)

		if wasCreator && len(r.Players) > 0 {
			// Roster is join-ordered, so index 0 is the longest-standing member.
			r.Players[0].IsCreator = true
			r.Players[0].Ready = true
			r.CreatorID = r.Players[0].UserID
		}
		return nil
	})
	if err != nil {
		return domain.Room{}, false, err
	}

	if len(room.Players) == 0 {
		if err := s.rooms.Delete(ctx, code); err != nil {
			return domain.Room{}, false, err
		}
		s.pub.Publish(pubsub.TopicRoom(code), pubsub.Message{Type: pubsub.TypeRoomDeleted, Payload: map[string]string{"roomCode": code}})
		s.pub.Publish(pubsub.TopicRooms, pubsub.Message{Type: pubsub.TypeRoomDeleted, Payload: map[string]string{"roomCode": code}})
		return room, true, nil
	}

	s.publishRoom(room)
	return room, false, nil
}

// SetReady flips a player's readiness flag in the lobby.
func (s *RoomService) SetReady(ctx context.Context, code, userID string, ready bool) (domain.Room, error) {
	room, err := s.rooms.Update(ctx, code, func(r *domain.Room) error {
		if r.Status != domain.RoomWaiting {
			return domain.ErrGameAlreadyStarted
		}
		for i := range r.Players {
			if r.Players[i].UserID == userID {
				r.Players[i].Ready = ready
				return nil
			}
		}
		return domain.ErrPlayerNotFound
	})
	if err != nil {
		return domain.Room{}, err
	}
	s.publishRoom(room)
	return room, nil
}

// GetRoom returns a snapshot of one room.
func (s *RoomService) GetRoom(ctx context.Context, code string) (domain.Room, error) {
	return s.rooms.Get(ctx, code)
}

// ListRooms returns the joinable lobby list.
func (s *RoomService) ListRooms(ctx context.Context) ([]domain.Room, error) {
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, err
	}
	waiting := rooms[:0]
	for _, r := range rooms {
		if r.Status == domain.RoomWaiting {
			waiting = append(waiting, r)
		}
	}
	return waiting, nil
}

// StartGame flips the room to playing and spins up the game session at
// question zero. Only the creator may start, and only once: the room status
// check is the guard against double starts.
func (s *RoomService) StartGame(ctx context.Context, code, userID string) (domain.GameSession, error) {
	gameCode := NewCode()
	room, err := s.rooms.Update(ctx, code, func(r *domain.Room) error {
		if r.Status != domain.RoomWaiting {
			return domain.ErrGameAlreadyStarted
		}
		if r.CreatorID != userID {
			return domain.ErrNotCreator
		}
		if len(r.Players) < 2 {
			return domain.ErrInsufficientPlayers
		}
		now := s.now()
		r.Status = domain.RoomPlaying
		r.StartedAt = &now
		r.GameCode = gameCode
		return nil
	})
	if err != nil {
		return domain.GameSession{}, err
	}

	session, err := s.games.Begin(ctx, room, gameCode)
	if err != nil {
		// Roll the room back so the lobby is not stuck in a playing state
		// with no session behind it.
		_, _ = s.rooms.Update(ctx, code, func(r *domain.Room) error {
			r.Status = domain.RoomWaiting
			r.StartedAt = nil
			r.GameCode = ""
			return nil
		})
		return domain.GameSession{}, err
	}

	s.publishRoom(room)
	return session, nil
}

func (s *RoomService) publishRoom(room domain.Room) {
	s.pub.Publish(pubsub.TopicRoom(room.Code), pubsub.Message{Type: pubsub.TypeRoomUpdated, Payload: room})
	s.pub.Publish(pubsub.TopicRooms, pubsub.Message{Type: pubsub.TypeRoomUpdated, Payload: room})
}
