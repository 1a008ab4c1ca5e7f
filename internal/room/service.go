package room

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"CardParlor/internal/deck"
	"CardParlor/internal/logging"
	ws "CardParlor/internal/websocket"
)

// Error codes carried on the "error" event.
const (
	CodeRoomNotFound   = "room_not_found"
	CodeRoomFull       = "room_full"
	CodeGameInProgress = "game_in_progress"
)

const startedNotice = "The game has started!"

// Hub is what the gateway needs from the transport.
type Hub interface {
	BroadcastToConns(ids []string, msg ws.OutgoingMessage)
	SendToConn(id string, msg ws.OutgoingMessage)
}

// Service is the session gateway: it maps inbound connection events to
// registry mutations and fans the resulting state back out. Handlers
// for the same room serialize on a per-room mutex; distinct rooms run
// in parallel.
type Service struct {
	repo   Repo
	hub    Hub
	dealer *deck.Dealer

	locks sync.Map // roomID -> *sync.Mutex
}

func NewService(repo Repo, hub Hub) *Service {
	return &Service{
		repo:   repo,
		hub:    hub,
		dealer: deck.NewDealer(time.Now().UnixNano()),
	}
}

func (s *Service) lockRoom(roomID string) func() {
	v, _ := s.locks.LoadOrStore(roomID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// HandleIncoming is wired to Hub.OnIncoming and runs on the connection's
// read goroutine, so one connection's events are processed in order.
func (s *Service) HandleIncoming(msg ws.IncomingMessage) {
	ctx := context.Background()

	switch msg.Event {
	case ws.EventJoinRoom:
		var req JoinRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			logging.L.Error("bad join-room payload", "conn", msg.From, "err", err)
			return
		}
		s.Join(ctx, msg.From, req)

	case ws.EventSendMessage:
		var req MessageRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			logging.L.Error("bad send-message payload", "conn", msg.From, "err", err)
			return
		}
		s.SendMessage(ctx, msg.From, req)

	case ws.EventStartGame:
		// start-game carries a bare room id string
		var roomID string
		if err := json.Unmarshal(msg.Data, &roomID); err != nil {
			logging.L.Error("bad start-game payload", "conn", msg.From, "err", err)
			return
		}
		s.StartGame(ctx, msg.From, roomID)

	default:
		logging.L.Debug("unknown event", "conn", msg.From, "event", msg.Event)
	}
}

// Join adds the connection to the room, creating it on first sight with
// this connection as creator. Joining a room twice from the same
// connection refreshes the identity in place instead of duplicating the
// seat.
func (s *Service) Join(ctx context.Context, connID string, req JoinRequest) {
	unlock := s.lockRoom(req.RoomID)

	r, err := s.repo.GetOrCreate(ctx, req.RoomID, connID)
	if err != nil {
		unlock()
		logging.L.Error("join failed", "room", req.RoomID, "err", err)
		return
	}

	p := Participant{ConnID: connID, Username: req.Username, PfpURL: req.PfpURL}
	if i := r.participantIndex(connID); i >= 0 {
		r.Participants[i] = p
	} else {
		r.Participants = append(r.Participants, p)
	}
	if err := s.repo.Save(ctx, r); err != nil {
		unlock()
		logging.L.Error("join save failed", "room", req.RoomID, "err", err)
		return
	}
	unlock()

	logging.L.Info("participant joined", "room", r.ID, "conn", connID, "username", req.Username)
	s.hub.BroadcastToConns(r.ConnIDs(), ws.OutgoingMessage{
		Event: ws.EventRoomUpdate,
		Data:  r.Participants,
	})
}

// SendMessage appends to the room chat log and relays the message to
// everyone in the room. Chat to an unknown room answers the sender with
// a structured error instead of vanishing.
func (s *Service) SendMessage(ctx context.Context, connID string, req MessageRequest) {
	unlock := s.lockRoom(req.RoomID)

	r, err := s.repo.Get(ctx, req.RoomID)
	if err == ErrRoomNotFound {
		unlock()
		s.sendError(connID, CodeRoomNotFound, "room "+req.RoomID+" not found")
		return
	}
	if err != nil {
		unlock()
		logging.L.Error("send-message lookup failed", "room", req.RoomID, "err", err)
		return
	}

	cm := ChatMessage{Username: req.Username, PfpURL: req.PfpURL, Message: req.Message}
	r.ChatLog = append(r.ChatLog, cm)
	if err := s.repo.Save(ctx, r); err != nil {
		unlock()
		logging.L.Error("send-message save failed", "room", req.RoomID, "err", err)
		return
	}
	unlock()

	s.hub.BroadcastToConns(r.ConnIDs(), ws.OutgoingMessage{
		Event: ws.EventChatMessage,
		Data:  cm,
	})
}

// StartGame deals the round. Only the room creator may start; anyone
// else is ignored without feedback. Hands are unicast to their owners
// and never broadcast.
func (s *Service) StartGame(ctx context.Context, connID, roomID string) {
	unlock := s.lockRoom(roomID)
	defer unlock()

	r, err := s.repo.Get(ctx, roomID)
	if err != nil {
		return
	}
	if r.Creator != connID {
		return
	}
	if r.State == StateInRound {
		s.sendError(connID, CodeGameInProgress, "round already dealt in room "+roomID)
		return
	}

	shuffled := s.dealer.Shuffle(deck.New())
	hands, rest, err := s.dealer.Deal(shuffled, len(r.Participants))
	if err == deck.ErrTooManyPlayers {
		s.sendError(connID, CodeRoomFull, "too many participants for one deck")
		return
	}
	if err != nil {
		logging.L.Error("deal failed", "room", roomID, "err", err)
		return
	}

	r.RemainingDeck = rest
	r.State = StateInRound
	if err := s.repo.Save(ctx, r); err != nil {
		logging.L.Error("start-game save failed", "room", roomID, "err", err)
		return
	}

	for i, p := range r.Participants {
		s.hub.SendToConn(p.ConnID, ws.OutgoingMessage{
			Event: ws.EventDealCards,
			Data:  hands[i],
		})
	}

	group := r.ConnIDs()
	s.hub.BroadcastToConns(group, ws.OutgoingMessage{
		Event: ws.EventRandomSuit,
		Data:  s.dealer.RandomSuit(),
	})
	s.hub.BroadcastToConns(group, ws.OutgoingMessage{
		Event: ws.EventGameStarted,
		Data:  startedNotice,
	})

	logging.L.Info("round started", "room", roomID, "players", len(r.Participants), "remaining", len(rest))
}

// Disconnect is wired to Hub.OnDisconnect. It removes the connection
// from every room it occupied and re-broadcasts each room's roster.
func (s *Service) Disconnect(ctx context.Context, connID string) {
	ids, err := s.repo.RoomsFor(ctx, connID)
	if err != nil {
		logging.L.Error("disconnect index lookup failed", "conn", connID, "err", err)
		return
	}
	// lock in a stable order so concurrent disconnects cannot deadlock
	sort.Strings(ids)
	unlocks := make([]func(), 0, len(ids))
	for _, id := range ids {
		unlocks = append(unlocks, s.lockRoom(id))
	}

	rooms, err := s.repo.RemoveParticipant(ctx, connID)
	for i := len(unlocks) - 1; i >= 0; i-- {
		unlocks[i]()
	}
	if err != nil {
		logging.L.Error("disconnect removal failed", "conn", connID, "err", err)
		return
	}

	for _, r := range rooms {
		s.hub.BroadcastToConns(r.ConnIDs(), ws.OutgoingMessage{
			Event: ws.EventRoomUpdate,
			Data:  r.Participants,
		})
	}
	if len(rooms) > 0 {
		logging.L.Info("participant disconnected", "conn", connID, "rooms", len(rooms))
	}
}

// Snapshot serves the HTTP status query.
func (s *Service) Snapshot(ctx context.Context, roomID string) (*Snapshot, error) {
	r, err := s.repo.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Creator:       r.Creator,
		State:         r.State,
		Participants:  r.Participants,
		ChatLog:       r.ChatLog,
		RemainingDeck: r.RemainingDeck,
	}, nil
}

func (s *Service) sendError(connID, code, message string) {
	s.hub.SendToConn(connID, ws.OutgoingMessage{
		Event: ws.EventError,
		Data:  ws.ErrorData{Code: code, Message: message},
	})
}
