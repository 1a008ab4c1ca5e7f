package websocket

import (
	"sync"

	"CardParlor/internal/logging"
)

// HubInterface is what the room gateway needs from the transport layer.
type HubInterface interface {
	BroadcastToConns(ids []string, msg OutgoingMessage)
	SendToConn(id string, msg OutgoingMessage)
	Close()
}

// Hub owns every live connection. All map mutation happens on the Run
// loop; broadcasts are fire-and-forget sends into per-client buffers.
type Hub struct {
	clients    map[string]*Client // connection id -> client
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastReq
	sendOne    chan sendReq
	quit       chan struct{}
	closeOnce  sync.Once

	// OnIncoming runs on the client's read goroutine, so events from
	// one connection are handled in order, one at a time.
	OnIncoming func(IncomingMessage)
	// OnDisconnect fires once per connection after its read pump exits.
	OnDisconnect func(connID string)
}

type broadcastReq struct {
	IDs     []string
	Message OutgoingMessage
}

type sendReq struct {
	ID      string
	Message OutgoingMessage
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastReq),
		sendOne:    make(chan sendReq),
		quit:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	logging.L.Info("hub started")

	for {
		select {
		case c := <-h.register:
			h.clients[c.ID] = c
			logging.L.Debug("hub register", "conn", c.ID, "total", len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c.ID]; ok {
				delete(h.clients, c.ID)
				close(c.Send)
				logging.L.Debug("hub unregister", "conn", c.ID, "total", len(h.clients))
			}

		case req := <-h.broadcast:
			for _, id := range req.IDs {
				if client, ok := h.clients[id]; ok {
					select {
					case client.Send <- req.Message:
					default:
						// slow consumer, drop rather than stall the hub
					}
				}
			}

		case req := <-h.sendOne:
			if client, ok := h.clients[req.ID]; ok {
				select {
				case client.Send <- req.Message:
				default:
				}
			}

		case <-h.quit:
			for _, c := range h.clients {
				close(c.Send)
			}
			h.clients = make(map[string]*Client)
			return
		}
	}
}

// BroadcastToConns fans msg out to every listed connection.
func (h *Hub) BroadcastToConns(ids []string, msg OutgoingMessage) {
	h.broadcast <- broadcastReq{IDs: ids, Message: msg}
}

// SendToConn delivers msg to a single connection only.
func (h *Hub) SendToConn(id string, msg OutgoingMessage) {
	h.sendOne <- sendReq{ID: id, Message: msg}
}

func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.quit) })
}
