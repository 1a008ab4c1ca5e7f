package room

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"CardParlor/internal/deck"
	ws "CardParlor/internal/websocket"

	"github.com/stretchr/testify/assert"
)

// MockHub captures traffic per connection, keeping broadcast and
// unicast channels separate so confidentiality assertions can tell
// them apart.
type MockHub struct {
	mu         sync.Mutex
	broadcasts map[string][]ws.OutgoingMessage
	unicasts   map[string][]ws.OutgoingMessage
}

func NewMockHub() *MockHub {
	return &MockHub{
		broadcasts: make(map[string][]ws.OutgoingMessage),
		unicasts:   make(map[string][]ws.OutgoingMessage),
	}
}

func (m *MockHub) BroadcastToConns(ids []string, msg ws.OutgoingMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		m.broadcasts[id] = append(m.broadcasts[id], msg)
	}
}

func (m *MockHub) SendToConn(id string, msg ws.OutgoingMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unicasts[id] = append(m.unicasts[id], msg)
}

func (m *MockHub) Broadcasts(id, event string) []ws.OutgoingMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ws.OutgoingMessage
	for _, msg := range m.broadcasts[id] {
		if msg.Event == event {
			out = append(out, msg)
		}
	}
	return out
}

func (m *MockHub) Unicasts(id, event string) []ws.OutgoingMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ws.OutgoingMessage
	for _, msg := range m.unicasts[id] {
		if msg.Event == event {
			out = append(out, msg)
		}
	}
	return out
}

func newTestService() (*Service, *MockHub) {
	hub := NewMockHub()
	return NewService(NewMemoryRepo(), hub), hub
}

func Test_JoinCreatesRoomAndPreservesOrder(t *testing.T) {
	svc, hub := newTestService()
	ctx := context.Background()

	svc.Join(ctx, "connA", JoinRequest{RoomID: "R1", Username: "alice", PfpURL: "http://a"})
	svc.Join(ctx, "connB", JoinRequest{RoomID: "R1", Username: "bob", PfpURL: "http://b"})

	r, err := svc.repo.Get(ctx, "R1")
	assert.NoError(t, err)
	assert.Equal(t, "connA", r.Creator, "first joiner is the creator")
	assert.Equal(t, StateLobby, r.State)
	assert.Len(t, r.Participants, 2)
	assert.Equal(t, "alice", r.Participants[0].Username)
	assert.Equal(t, "bob", r.Participants[1].Username)

	// both join broadcasts reached both members; the latest shows the full roster
	updates := hub.Broadcasts("connA", ws.EventRoomUpdate)
	assert.Len(t, updates, 2)
	last := updates[len(updates)-1].Data.([]Participant)
	assert.Equal(t, []string{"alice", "bob"}, []string{last[0].Username, last[1].Username})
	assert.Len(t, hub.Broadcasts("connB", ws.EventRoomUpdate), 1)
}

func Test_JoinIsIdempotentPerConnection(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	svc.Join(ctx, "connA", JoinRequest{RoomID: "R1", Username: "alice"})
	svc.Join(ctx, "connA", JoinRequest{RoomID: "R1", Username: "alice2"})

	r, err := svc.repo.Get(ctx, "R1")
	assert.NoError(t, err)
	assert.Len(t, r.Participants, 1, "re-join must not duplicate the seat")
	assert.Equal(t, "alice2", r.Participants[0].Username, "re-join refreshes identity")
}

func Test_ChatAppendsAndBroadcasts(t *testing.T) {
	svc, hub := newTestService()
	ctx := context.Background()

	svc.Join(ctx, "connA", JoinRequest{RoomID: "R1", Username: "alice"})
	svc.Join(ctx, "connB", JoinRequest{RoomID: "R1", Username: "bob"})
	svc.SendMessage(ctx, "connB", MessageRequest{RoomID: "R1", Message: "hi", Username: "bob", PfpURL: "http://b"})

	r, _ := svc.repo.Get(ctx, "R1")
	assert.Equal(t, []ChatMessage{{Username: "bob", PfpURL: "http://b", Message: "hi"}}, r.ChatLog)

	for _, conn := range []string{"connA", "connB"} {
		msgs := hub.Broadcasts(conn, ws.EventChatMessage)
		assert.Len(t, msgs, 1)
		assert.Equal(t, "hi", msgs[0].Data.(ChatMessage).Message)
	}
}

func Test_ChatToUnknownRoomAnswersSenderOnly(t *testing.T) {
	svc, hub := newTestService()
	ctx := context.Background()

	svc.SendMessage(ctx, "connA", MessageRequest{RoomID: "ghost", Message: "anyone?", Username: "alice"})

	errs := hub.Unicasts("connA", ws.EventError)
	assert.Len(t, errs, 1)
	assert.Equal(t, CodeRoomNotFound, errs[0].Data.(ws.ErrorData).Code)
	assert.Empty(t, hub.broadcasts, "nothing may be broadcast for a missing room")
}

func Test_StartGameDealsHandsAndBroadcastsSuit(t *testing.T) {
	svc, hub := newTestService()
	ctx := context.Background()

	svc.Join(ctx, "connA", JoinRequest{RoomID: "R1", Username: "alice"})
	svc.Join(ctx, "connB", JoinRequest{RoomID: "R1", Username: "bob"})
	svc.StartGame(ctx, "connA", "R1")

	// one 5-card hand unicast to each participant, pairwise disjoint
	seen := make(map[string]bool)
	for _, conn := range []string{"connA", "connB"} {
		deals := hub.Unicasts(conn, ws.EventDealCards)
		assert.Len(t, deals, 1, "%s should receive exactly one hand", conn)
		hand := deals[0].Data.([]deck.Card)
		assert.Len(t, hand, deck.HandSize)
		for _, c := range hand {
			assert.False(t, seen[c.String()], "card %s dealt twice", c)
			seen[c.String()] = true
		}
	}

	// hands never ride the room-wide broadcast channel
	for _, conn := range []string{"connA", "connB"} {
		assert.Empty(t, hub.Broadcasts(conn, ws.EventDealCards))
	}

	// everyone sees the same suit and the same notice
	suitA := hub.Broadcasts("connA", ws.EventRandomSuit)
	suitB := hub.Broadcasts("connB", ws.EventRandomSuit)
	assert.Len(t, suitA, 1)
	assert.Len(t, suitB, 1)
	assert.Equal(t, suitA[0].Data, suitB[0].Data)
	assert.Contains(t, deck.Suits, suitA[0].Data.(deck.Suit))
	assert.Len(t, hub.Broadcasts("connB", ws.EventGameStarted), 1)

	r, _ := svc.repo.Get(ctx, "R1")
	assert.Equal(t, StateInRound, r.State)
	assert.Len(t, r.RemainingDeck, 42)

	// remainder plus dealt hands reconstruct the deck
	for _, c := range r.RemainingDeck {
		assert.False(t, seen[c.String()], "card %s both dealt and remaining", c)
		seen[c.String()] = true
	}
	assert.Len(t, seen, 52)
}

func Test_StartGameNonCreatorIsIgnored(t *testing.T) {
	svc, hub := newTestService()
	ctx := context.Background()

	svc.Join(ctx, "connA", JoinRequest{RoomID: "R1", Username: "alice"})
	svc.Join(ctx, "connB", JoinRequest{RoomID: "R1", Username: "bob"})
	svc.StartGame(ctx, "connB", "R1")

	assert.Empty(t, hub.Unicasts("connA", ws.EventDealCards))
	assert.Empty(t, hub.Unicasts("connB", ws.EventDealCards))
	assert.Empty(t, hub.Broadcasts("connA", ws.EventGameStarted))
	assert.Empty(t, hub.Unicasts("connB", ws.EventError), "authorization failure stays silent")

	r, _ := svc.repo.Get(ctx, "R1")
	assert.Equal(t, StateLobby, r.State)
	assert.Empty(t, r.RemainingDeck)
}

func Test_StartGameOnUnknownRoomIsIgnored(t *testing.T) {
	svc, hub := newTestService()

	svc.StartGame(context.Background(), "connA", "ghost")

	assert.Empty(t, hub.unicasts)
	assert.Empty(t, hub.broadcasts)
}

func Test_StartGameTwiceRejected(t *testing.T) {
	svc, hub := newTestService()
	ctx := context.Background()

	svc.Join(ctx, "connA", JoinRequest{RoomID: "R1", Username: "alice"})
	svc.StartGame(ctx, "connA", "R1")
	svc.StartGame(ctx, "connA", "R1")

	errs := hub.Unicasts("connA", ws.EventError)
	assert.Len(t, errs, 1)
	assert.Equal(t, CodeGameInProgress, errs[0].Data.(ws.ErrorData).Code)
	assert.Len(t, hub.Broadcasts("connA", ws.EventGameStarted), 1, "no second deal")
}

func Test_StartGameCapacityError(t *testing.T) {
	svc, hub := newTestService()
	ctx := context.Background()

	for i := 0; i < deck.MaxPlayers+1; i++ {
		conn := fmt.Sprintf("conn%d", i)
		svc.Join(ctx, conn, JoinRequest{RoomID: "R1", Username: fmt.Sprintf("p%d", i)})
	}
	svc.StartGame(ctx, "conn0", "R1")

	errs := hub.Unicasts("conn0", ws.EventError)
	assert.Len(t, errs, 1)
	assert.Equal(t, CodeRoomFull, errs[0].Data.(ws.ErrorData).Code)

	r, _ := svc.repo.Get(ctx, "R1")
	assert.Equal(t, StateLobby, r.State, "capacity failure leaves the room untouched")
	assert.Empty(t, r.RemainingDeck)
	for i := 0; i < deck.MaxPlayers+1; i++ {
		assert.Empty(t, hub.Unicasts(fmt.Sprintf("conn%d", i), ws.EventDealCards))
	}
}

func Test_DisconnectRemovesAndRebroadcasts(t *testing.T) {
	svc, hub := newTestService()
	ctx := context.Background()

	svc.Join(ctx, "connA", JoinRequest{RoomID: "R1", Username: "alice"})
	svc.Join(ctx, "connB", JoinRequest{RoomID: "R1", Username: "bob"})
	before := len(hub.Broadcasts("connB", ws.EventRoomUpdate))

	svc.Disconnect(ctx, "connA")

	updates := hub.Broadcasts("connB", ws.EventRoomUpdate)
	assert.Len(t, updates, before+1, "exactly one room-update per affected room")
	roster := updates[len(updates)-1].Data.([]Participant)
	assert.Len(t, roster, 1)
	assert.Equal(t, "bob", roster[0].Username)

	r, _ := svc.repo.Get(ctx, "R1")
	assert.Equal(t, "connA", r.Creator, "creator stays fixed after disconnecting")

	ids, err := svc.repo.RoomsFor(ctx, "connA")
	assert.NoError(t, err)
	assert.Empty(t, ids, "reverse index must be cleaned up")
}

func Test_DisconnectUnknownConnIsNoop(t *testing.T) {
	svc, hub := newTestService()

	svc.Disconnect(context.Background(), "ghost")

	assert.Empty(t, hub.broadcasts)
	assert.Empty(t, hub.unicasts)
}

func Test_HandleIncomingDispatch(t *testing.T) {
	svc, hub := newTestService()

	join := func(conn, roomID, name string) {
		data, _ := json.Marshal(JoinRequest{RoomID: roomID, Username: name})
		svc.HandleIncoming(ws.IncomingMessage{From: conn, Event: ws.EventJoinRoom, Data: data})
	}
	join("connA", "R1", "alice")
	join("connB", "R1", "bob")

	chat, _ := json.Marshal(MessageRequest{RoomID: "R1", Message: "yo", Username: "bob"})
	svc.HandleIncoming(ws.IncomingMessage{From: "connB", Event: ws.EventSendMessage, Data: chat})

	// start-game carries a bare JSON string
	svc.HandleIncoming(ws.IncomingMessage{From: "connA", Event: ws.EventStartGame, Data: json.RawMessage(`"R1"`)})

	assert.Len(t, hub.Broadcasts("connA", ws.EventChatMessage), 1)
	assert.Len(t, hub.Unicasts("connB", ws.EventDealCards), 1)
	assert.Len(t, hub.Broadcasts("connB", ws.EventGameStarted), 1)

	// malformed payloads are dropped without touching anyone
	svc.HandleIncoming(ws.IncomingMessage{From: "connA", Event: ws.EventStartGame, Data: json.RawMessage(`{"nope":1}`)})
	assert.Len(t, hub.Broadcasts("connB", ws.EventGameStarted), 1)
}

func Test_StartGameParallelRooms(t *testing.T) {
	svc, hub := newTestService()
	ctx := context.Background()

	const rooms = 8
	for i := 0; i < rooms; i++ {
		conn := fmt.Sprintf("conn%d", i)
		roomID := fmt.Sprintf("R%d", i)
		svc.Join(ctx, conn, JoinRequest{RoomID: roomID, Username: fmt.Sprintf("p%d", i)})
	}

	// distinct rooms deal in parallel on the one shared dealer
	var wg sync.WaitGroup
	for i := 0; i < rooms; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			svc.StartGame(ctx, fmt.Sprintf("conn%d", i), fmt.Sprintf("R%d", i))
		}(i)
	}
	wg.Wait()

	for i := 0; i < rooms; i++ {
		conn := fmt.Sprintf("conn%d", i)
		deals := hub.Unicasts(conn, ws.EventDealCards)
		assert.Len(t, deals, 1)
		assert.Len(t, deals[0].Data.([]deck.Card), deck.HandSize)

		r, err := svc.repo.Get(ctx, fmt.Sprintf("R%d", i))
		assert.NoError(t, err)
		assert.Equal(t, StateInRound, r.State)
		assert.Len(t, r.RemainingDeck, 47)
	}
}

func Test_RoomsAreIsolated(t *testing.T) {
	svc, hub := newTestService()
	ctx := context.Background()

	svc.Join(ctx, "connA", JoinRequest{RoomID: "R1", Username: "alice"})
	svc.Join(ctx, "connB", JoinRequest{RoomID: "R2", Username: "bob"})
	svc.StartGame(ctx, "connA", "R1")

	assert.Empty(t, hub.Broadcasts("connB", ws.EventGameStarted), "R2 must not observe R1's round")
	r2, _ := svc.repo.Get(ctx, "R2")
	assert.Equal(t, StateLobby, r2.State)
}
