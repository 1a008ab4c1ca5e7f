package room

import (
	"time"

	"CardParlor/internal/deck"
)

// RoomState tags where a room is in its lifecycle. There is no way back
// to the lobby once a round starts.
type RoomState string

const (
	StateLobby   RoomState = "lobby"
	StateInRound RoomState = "in-round"
)

// Participant is one seat in a room. Identity is the connection id, not
// the username; two connections may share a display name.
type Participant struct {
	ConnID   string `json:"connId"`
	Username string `json:"username"`
	PfpURL   string `json:"pfpUrl"`
}

// ChatMessage is one append-only chat log entry.
type ChatMessage struct {
	Username string `json:"username"`
	PfpURL   string `json:"pfpUrl"`
	Message  string `json:"message"`
}

// Room is the unit of state the registry owns. Creator is the connection
// that first joined and is never reassigned, even after it disconnects.
type Room struct {
	ID            string        `json:"id"`
	Creator       string        `json:"creator"`
	State         RoomState     `json:"state"`
	Participants  []Participant `json:"participants"`
	ChatLog       []ChatMessage `json:"chatLog"`
	RemainingDeck []deck.Card   `json:"remainingDeck,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	LastActive    time.Time     `json:"lastActive"`
}

// ConnIDs returns the broadcast group, in join order.
func (r *Room) ConnIDs() []string {
	ids := make([]string, len(r.Participants))
	for i, p := range r.Participants {
		ids[i] = p.ConnID
	}
	return ids
}

func (r *Room) participantIndex(connID string) int {
	for i, p := range r.Participants {
		if p.ConnID == connID {
			return i
		}
	}
	return -1
}

// Clone deep-copies a room so repository callers never share slices
// with stored state.
func (r *Room) Clone() *Room {
	out := *r
	out.Participants = append([]Participant(nil), r.Participants...)
	out.ChatLog = append([]ChatMessage(nil), r.ChatLog...)
	if r.RemainingDeck != nil {
		out.RemainingDeck = append([]deck.Card(nil), r.RemainingDeck...)
	}
	return &out
}

// JoinRequest is the join-room event payload.
type JoinRequest struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
	PfpURL   string `json:"pfpUrl"`
}

// MessageRequest is the send-message event payload.
type MessageRequest struct {
	RoomID   string `json:"roomId"`
	Message  string `json:"message"`
	Username string `json:"username"`
	PfpURL   string `json:"pfpUrl"`
}

// Snapshot is the read-only room view served over HTTP.
type Snapshot struct {
	Creator       string        `json:"creator"`
	State         RoomState     `json:"state"`
	Participants  []Participant `json:"participants"`
	ChatLog       []ChatMessage `json:"chatLog"`
	RemainingDeck []deck.Card   `json:"remainingDeck,omitempty"`
}
