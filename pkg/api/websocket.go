package api

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/uhyunpark/nostr-signerd/pkg/signerr"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Hub tracks connected pages and pushes notices to them
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	quit       chan struct{}
	stopOnce   sync.Once

	logger *zap.SugaredLogger
}

// NewHub creates a new WebSocket hub
func NewHub(logger *zap.SugaredLogger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.logger.Infow("ws_client_connected", "client_id", client.id, "total", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				h.logger.Infow("ws_client_disconnected", "client_id", client.id, "total", len(h.clients))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				// Slow clients miss notices rather than stall the hub
				client.trySend(message)
			}

		case <-h.quit:
			return
		}
	}
}

// Stop ends Run. Connected clients are left to the HTTP server shutdown.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// Broadcast queues a notice for every connected client
func (h *Hub) Broadcast(data interface{}) {
	message, err := json.Marshal(data)
	if err != nil {
		h.logger.Errorw("ws_marshal_failed", "error", err)
		return
	}
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warnw("ws_broadcast_dropped")
	}
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.quit:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

// Client is one page connection. Requests are served concurrently and
// replies may arrive out of order; pages match them by id.
type Client struct {
	hub    *Hub
	server *Server
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	id     string

	ctx    context.Context
	cancel context.CancelFunc
}

func (c *Client) trySend(message []byte) {
	select {
	case c.send <- message:
	default:
	}
}

// reply blocks until the write pump accepts message or the connection ends
func (c *Client) reply(resp WSResponse) {
	message, err := json.Marshal(resp)
	if err != nil {
		c.server.logger.Errorw("ws_marshal_failed", "client_id", c.id, "error", err)
		return
	}
	select {
	case c.send <- message:
	case <-c.done:
	}
}

// readPump reads requests and dispatches each in its own goroutine
func (c *Client) readPump() {
	defer func() {
		c.cancel()
		c.hub.leave(c)
		close(c.done)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxBodyBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.logger.Warnw("ws_read_error", "client_id", c.id, "error", err)
			}
			break
		}

		var req WSRequest
		if err := json.Unmarshal(message, &req); err != nil {
			c.server.logger.Warnw("ws_invalid_message", "client_id", c.id, "error", err)
			go c.reply(WSResponse{Error: &WSError{Kind: "BAD_REQUEST", Message: "invalid JSON request"}})
			continue
		}

		go func() {
			c.reply(c.server.dispatch(c.ctx, req))
		}()
	}
}

// writePump writes replies and notices to the connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// dispatch runs one NIP-07 call
func (s *Server) dispatch(ctx context.Context, req WSRequest) WSResponse {
	resp := WSResponse{ID: req.ID}

	switch req.Method {
	case "getPublicKey":
		pubkey, err := s.provider.GetPublicKey(ctx)
		if err != nil {
			resp.Error = s.wsError(req.Method, err)
			return resp
		}
		resp.Result = pubkey

	case "signEvent":
		var params SignEventParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			resp.Error = &WSError{Kind: "BAD_REQUEST", Message: "invalid signEvent params: " + err.Error()}
			return resp
		}
		signed, err := s.provider.SignEvent(ctx, params.Event)
		if err != nil {
			resp.Error = s.wsError(req.Method, err)
			return resp
		}
		resp.Result = signed

	case "getRelays":
		resp.Result = s.provider.GetRelays()

	default:
		resp.Error = &WSError{Kind: "BAD_REQUEST", Message: "unknown method: " + req.Method}
	}
	return resp
}

func (s *Server) wsError(method string, err error) *WSError {
	kind := signerr.KindOf(err).String()
	s.logger.Warnw("request_failed", "method", method, "kind", kind, "error", err)
	return &WSError{Kind: kind, Message: err.Error()}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(s.allowedOrigins, "*") {
		return true
	}
	return slices.Contains(s.allowedOrigins, origin)
}

// handleWebSocket handles WebSocket upgrade and client lifecycle
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("ws_upgrade_failed", "error", err)
		return
	}

	// Detached from r: the request context ends when the handler returns
	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		hub:    s.hub,
		server: s,
		conn:   conn,
		send:   make(chan []byte, 256),
		done:   make(chan struct{}),
		id:     uuid.NewString(),
		ctx:    ctx,
		cancel: cancel,
	}

	if !client.hub.join(client) {
		cancel()
		conn.Close()
		return
	}

	// Start read and write pumps in separate goroutines
	go client.writePump()
	go client.readPump()
}
