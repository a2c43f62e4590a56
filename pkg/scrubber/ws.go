package scrubber

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/omriharel/scrubber/pkg/scrubber/slider"
)

// Websocket event types
const (
	wsTypeStateInit             = "state_init"
	wsTypeScrubbingStarted      = "scrubbing_started"
	wsTypeScrubbingEnded        = "scrubbing_ended"
	wsTypeScrubbingSpeedChanged = "scrubbing_speed_changed"
	wsTypeValueChanged          = "value_changed"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second

	snapshotTimeout = time.Second
	shutdownTimeout = 2 * time.Second

	defaultSendBuf      = 32
	defaultBroadcastBuf = 128
)

// envelope is the wire format of every websocket message
type envelope struct {
	Type string      `json:"type"`
	Ts   *time.Time  `json:"ts,omitempty"`
	Data interface{} `json:"data,omitempty"`
}

// stateSnapshot is the "state_init" payload sent to a client right after it connects
type stateSnapshot struct {
	Value          float64       `json:"value"`
	MinimumValue   float64       `json:"minimum_value"`
	MaximumValue   float64       `json:"maximum_value"`
	ScrubbingSpeed float64       `json:"scrubbing_speed"`
	Scrubbing      bool          `json:"scrubbing"`
	Record         slider.Record `json:"record"`
}

type wsSpeedChangedData struct {
	Speed float64 `json:"speed"`
}

type wsValueChangedData struct {
	Value float64 `json:"value"`
	Speed float64 `json:"speed"`
}

func snapshotOf(s *slider.Slider) stateSnapshot {
	return stateSnapshot{
		Value:          s.Value(),
		MinimumValue:   s.MinimumValue(),
		MaximumValue:   s.MaximumValue(),
		ScrubbingSpeed: s.ScrubbingSpeed(),
		Scrubbing:      s.Tracking(),
		Record:         s.Record(),
	}
}

func marshalEnvelope(eventType string, data interface{}) ([]byte, error) {
	now := time.Now().UTC()

	return json.Marshal(envelope{Type: eventType, Ts: &now, Data: data})
}

// Hub tracks connected websocket clients and fans broadcasts out to them.
// A client that can't keep up is disconnected rather than slowing everyone down
type Hub struct {
	logger *zap.SugaredLogger

	broadcast chan []byte

	mu      sync.Mutex
	clients map[*Client]struct{}
	closed  bool

	sendBuf int
}

// NewHub constructs a hub. Call Run to start it
func NewHub(logger *zap.SugaredLogger) *Hub {
	return &Hub{
		logger:    logger.Named("hub"),
		broadcast: make(chan []byte, defaultBroadcastBuf),
		clients:   make(map[*Client]struct{}),
		sendBuf:   defaultSendBuf,
	}
}

// Run processes hub events until ctx is canceled, then disconnects all clients
func (h *Hub) Run(ctx context.Context) {
	h.logger.Debug("Hub starting")

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("Hub stopping")
			h.closeAllClients()
			return

		case msg := <-h.broadcast:
			// collect slow clients first, then remove them once unlocked
			var slow []*Client

			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.Unlock()

			for _, c := range slow {
				h.removeClient(c, "slow client")
			}
		}
	}
}

// ClientCount returns how many clients are connected
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// BroadcastBytes enqueues a serialized message for every client. It never blocks;
// when the queue is full the message is dropped
func (h *Hub) BroadcastBytes(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warnw("Broadcast queue full, dropping message", "bytes", len(msg))
	}
}

// Broadcast marshals and enqueues one event
func (h *Hub) Broadcast(eventType string, data interface{}) {
	msg, err := marshalEnvelope(eventType, data)
	if err != nil {
		h.logger.Warnw("Failed to marshal broadcast", "type", eventType, "error", err)
		return
	}

	h.BroadcastBytes(msg)
}

// addClient starts broadcasting to c. It refuses once the hub has stopped
func (h *Hub) addClient(c *Client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}

	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Infow("Client connected", "remoteAddr", c.remoteAddr, "clients", n)

	return true
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true

	for c := range h.clients {
		_ = c.conn.Close()
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *Hub) removeClient(c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		_ = c.conn.Close()
		close(c.send)

		h.logger.Infow("Client disconnected", "remoteAddr", c.remoteAddr, "reason", reason, "clients", n)
	}
}

// Client is one websocket connection with its own outbound queue
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	remoteAddr string
	logger     *zap.SugaredLogger
}

func newClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, hub.sendBuf),
		remoteAddr: remoteAddr,
		logger:     hub.logger.Named("client"),
	}
}

// writePump writes queued messages until the queue is closed or a write fails
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// the hub is disconnecting us
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					c.logger.Debugw("Write pump exiting", "remoteAddr", c.remoteAddr, "error", err)
				}
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debugw("Write pump exiting on ping", "remoteAddr", c.remoteAddr, "error", err)
				return
			}
		}
	}
}

// readPump discards incoming messages; it's only here to notice disconnects and answer pings
func (c *Client) readPump() {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				c.logger.Debugw("Read pump exiting", "remoteAddr", c.remoteAddr, "code", closeErr.Code)
			} else {
				c.logger.Debugw("Read pump exiting", "remoteAddr", c.remoteAddr, "error", err)
			}

			c.hub.removeClient(c, "read failed")
			return
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebsocketServer serves slider events to remote displays
type WebsocketServer struct {
	logger *zap.SugaredLogger

	hub    *Hub
	server *http.Server

	// asks the event loop for a snapshot; the loop owns the slider
	snapshots chan<- chan stateSnapshot
}

// NewWebsocketServer creates a server listening on address, serving the socket at path
func NewWebsocketServer(logger *zap.SugaredLogger, address string, path string,
	snapshots chan<- chan stateSnapshot) *WebsocketServer {

	logger = logger.Named("websocket")

	ws := &WebsocketServer{
		logger:    logger,
		hub:       NewHub(logger),
		snapshots: snapshots,
	}

	mux := http.NewServeMux()
	mux.HandleFunc(path, ws.handleWebsocket)

	ws.server = &http.Server{Addr: address, Handler: mux}

	logger.Debugw("Created websocket server", "address", address, "path", path)

	return ws
}

// Hub returns the server's broadcast hub
func (ws *WebsocketServer) Hub() *Hub {
	return ws.hub
}

// Run serves until ctx is canceled
func (ws *WebsocketServer) Run(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		ws.hub.Run(groupCtx)
		return nil
	})

	group.Go(func() error {
		ws.logger.Infow("Listening", "address", ws.server.Addr)

		if err := ws.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ws.logger.Warnw("Websocket server failed", "error", err)
			return err
		}

		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return ws.server.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

func (ws *WebsocketServer) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.logger.Warnw("Websocket upgrade failed", "error", err)
		return
	}

	client := newClient(ws.hub, conn, r.RemoteAddr)

	snapshot, ok := ws.requestSnapshot(r.Context())
	if ok {
		if initMsg, err := marshalEnvelope(wsTypeStateInit, snapshot); err == nil {
			client.send <- initMsg
		}
	}

	// added after queueing state_init, so it's always the first message the client sees,
	// and before the read pump starts, so a disconnect is always seen by the hub
	if !ws.hub.addClient(client) {
		ws.logger.Debugw("Hub stopped, refusing client", "remoteAddr", r.RemoteAddr)
		_ = conn.Close()
		return
	}

	// the pumps outlive this handler, so they can't use the request's context
	go client.writePump()
	go client.readPump()
}

func (ws *WebsocketServer) requestSnapshot(ctx context.Context) (stateSnapshot, bool) {
	if ws.snapshots == nil {
		return stateSnapshot{}, false
	}

	ctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()

	reply := make(chan stateSnapshot, 1)

	select {
	case ws.snapshots <- reply:
	case <-ctx.Done():
		ws.logger.Warnw("Snapshot request failed", "error", ctx.Err())
		return stateSnapshot{}, false
	}

	select {
	case snapshot := <-reply:
		return snapshot, true
	case <-ctx.Done():
		ws.logger.Warnw("Snapshot request failed", "error", ctx.Err())
		return stateSnapshot{}, false
	}
}

// wsListener forwards slider notifications to the hub
type wsListener struct {
	hub *Hub
}

func (wl wsListener) SliderDidBeginScrubbing(*slider.Slider) {
	wl.hub.Broadcast(wsTypeScrubbingStarted, nil)
}

func (wl wsListener) SliderDidEndScrubbing(*slider.Slider) {
	wl.hub.Broadcast(wsTypeScrubbingEnded, nil)
}

func (wl wsListener) SliderDidChangeScrubbingSpeed(_ *slider.Slider, speed float64) {
	wl.hub.Broadcast(wsTypeScrubbingSpeedChanged, wsSpeedChangedData{Speed: speed})
}

func (wl wsListener) valueChanged(s *slider.Slider) {
	wl.hub.Broadcast(wsTypeValueChanged, wsValueChangedData{Value: s.Value(), Speed: s.ScrubbingSpeed()})
}
