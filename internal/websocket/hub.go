package websocket

import (
	"sync"

	"blackjack/internal/utils"
)

// HubInterface is the transport surface handed to the room layer; tests
// substitute a recording mock.
type HubInterface interface {
	BroadcastToPlayers(nicks []string, msg OutgoingMessage)
	SendToPlayer(nick string, msg OutgoingMessage)
	Close()
}

// Hub owns every live websocket client, keyed by nick. Map mutation happens
// on the Run loop; incoming messages and disconnect notices are dispatched
// from the per-connection read goroutine so a handler that broadcasts back
// into the hub cannot deadlock the loop.
type Hub struct {
	clients    map[string]*Client // nick -> client
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastReq
	sendOne    chan sendReq

	// OnIncoming forwards player messages to the room layer.
	OnIncoming func(IncomingMessage)
	// OnDisconnect fires when a client's read pump ends without a newer
	// connection having replaced it.
	OnDisconnect func(nick string)

	quit chan struct{}
	mu   sync.RWMutex
}

type broadcastReq struct {
	Nicks   []string
	Message OutgoingMessage
}

type sendReq struct {
	Nick    string
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
	utils.Log.Info("hub started")

	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[c.Nick]; ok && old != c {
				// Reconnect race: the newest transport handle wins.
				old.stale = true
				close(old.Send)
			}
			h.clients[c.Nick] = c
			connected := len(h.clients)
			h.mu.Unlock()
			utils.Log.Debug("client registered", "nick", c.Nick, "connected", connected)

		case c := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[c.Nick]; ok && cur == c {
				delete(h.clients, c.Nick)
				close(c.Send)
			}
			connected := len(h.clients)
			h.mu.Unlock()
			utils.Log.Debug("client unregistered", "nick", c.Nick, "connected", connected)

		case req := <-h.broadcast:
			h.mu.RLock()
			for _, nick := range req.Nicks {
				if client, ok := h.clients[nick]; ok {
					select {
					case client.Send <- req.Message:
					default:
						// slow client, drop rather than stall the hub
					}
				}
			}
			h.mu.RUnlock()

		case req := <-h.sendOne:
			h.mu.RLock()
			if client, ok := h.clients[req.Nick]; ok {
				select {
				case client.Send <- req.Message:
				default:
				}
			}
			h.mu.RUnlock()

		case <-h.quit:
			h.mu.Lock()
			for _, c := range h.clients {
				close(c.Send)
			}
			h.clients = make(map[string]*Client)
			h.mu.Unlock()
			return
		}
	}
}

// handleIncoming runs on the connection's read goroutine, not the Run loop.
func (h *Hub) handleIncoming(msg IncomingMessage) {
	if h.OnIncoming != nil {
		h.OnIncoming(msg)
	}
}

// handleDisconnect runs on the connection's read goroutine after the client
// has been unregistered. Replaced connections stay silent: a newer handle
// owns the nick.
func (h *Hub) handleDisconnect(c *Client) {
	h.mu.RLock()
	replaced := c.stale
	h.mu.RUnlock()
	if !replaced && h.OnDisconnect != nil {
		h.OnDisconnect(c.Nick)
	}
}

// BroadcastToPlayers fans a message out to the named clients.
func (h *Hub) BroadcastToPlayers(nicks []string, msg OutgoingMessage) {
	h.broadcast <- broadcastReq{Nicks: nicks, Message: msg}
}

// SendToPlayer delivers a message to a single client.
func (h *Hub) SendToPlayer(nick string, msg OutgoingMessage) {
	h.sendOne <- sendReq{Nick: nick, Message: msg}
}

// ClientByNick looks up a live client.
func (h *Hub) ClientByNick(nick string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[nick]
	return c, ok
}

func (h *Hub) Close() {
	close(h.quit)
}
