package websocket

import "encoding/json"

// OutgoingMessage is the envelope for every server -> client event.
type OutgoingMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// IncomingMessage is the envelope for every client -> server event.
// Data stays raw; the gateway decodes it per event type.
type IncomingMessage struct {
	From  string          `json:"from"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Client -> server events.
const (
	EventJoinRoom    = "join-room"
	EventSendMessage = "send-message"
	EventStartGame   = "start-game"
)

// Server -> client events.
const (
	EventRoomUpdate  = "room-update"
	EventChatMessage = "chat-message"
	EventDealCards   = "deal-cards"
	EventRandomSuit  = "random-suit"
	EventGameStarted = "game-started"
	EventError       = "error"
)

// ErrorData is the payload of an EventError sent back to the
// originating connection only.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
