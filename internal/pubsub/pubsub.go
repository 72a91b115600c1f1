package pubsub

// Message is the envelope fanned out to topic subscribers. Topic is routing
// metadata and not part of the serialized body.
type Message struct {
	Topic   string `json:"-"`
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Publisher is the best-effort fan-out used by the game engine. Publish never
// returns an error: delivery failures are logged and swallowed so they cannot
// abort a scoring call or a state transition.
type Publisher interface {
	Publish(topic string, msg Message)
}

// Subscriber hands out a message channel for a set of topics. The cancel
// function must be called to release the subscription.
type Subscriber interface {
	Subscribe(topics ...string) (<-chan Message, func())
}

// Message types carried on the game topic.
const (
	TypeNewQuestion    = "new_question"
	TypePlayerAnswered = "player_answered"
	TypeShowFeedback   = "show_feedback"
	TypeGameFinished   = "game_finished"
	TypeRoomUpdated    = "room_updated"
	TypeRoomDeleted    = "room_deleted"
	TypeGameStarted    = "game_started"
)

// TopicRoom carries lobby updates for a single room.
func TopicRoom(roomCode string) string {
	return "room-updated:" + roomCode
}

// TopicRooms carries lobby list updates.
const TopicRooms = "rooms-updated"

// TopicGameStarted announces the transition of a room into a game.
func TopicGameStarted(gameCode string) string {
	return "game-started:" + gameCode
}

// TopicUserStarted hints a single user that a game they belong to started,
// so disconnected clients can rejoin.
func TopicUserStarted(userID string) string {
	return "user-started:" + userID
}

// TopicGame carries all in-game actions for one session.
func TopicGame(gameCode string) string {
	return "game:" + gameCode
}
