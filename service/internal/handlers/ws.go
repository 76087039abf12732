// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/service/internal/game"
	"github.com/jason-s-yu/uno/service/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	sendBuffer   = 64
	pingInterval = 20 * time.Second
	writeTimeout = 5 * time.Second
	readLimit    = 32 << 10
)

// EventConnected is sent once to every new connection and carries the player
// id the server assigned to it.
const EventConnected game.GameEventType = "connected"

// GameService is what the hub needs from the game layer.
type GameService interface {
	HandlePlayerAction(ctx context.Context, playerID string, action models.GameAction)
	Disconnect(ctx context.Context, playerID string)
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// Hub owns the websocket connections. Each connection is one player; its id is
// a fresh uuid and lives as long as the socket.
type Hub struct {
	game           GameService
	originPatterns []string
	log            *logrus.Entry

	mu      sync.RWMutex
	clients map[string]*client
}

// NewHub returns a Hub delivering client messages to svc. originPatterns are
// passed to websocket.Accept; an empty list only allows same-origin requests.
func NewHub(svc GameService, originPatterns []string, log *logrus.Entry) *Hub {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Hub{
		game:           svc,
		originPatterns: originPatterns,
		log:            log.WithField("component", "ws"),
		clients:        make(map[string]*client),
	}
}

// Len returns the number of open connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SendToPlayer queues ev for playerID. It never blocks: a client whose buffer
// is full loses the event and is disconnected.
func (h *Hub) SendToPlayer(playerID string, ev game.GameEvent) {
	h.mu.RLock()
	c := h.clients[playerID]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		h.log.WithError(err).Errorf("Failed to marshal event %s for player %s.", ev.Type, playerID)
		return
	}
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		h.log.Warnf("Player %s is not reading; dropping connection.", playerID)
		go c.conn.Close(websocket.StatusPolicyViolation, "too slow")
	}
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		h.log.WithError(err).Warn("Websocket accept failed.")
		return
	}
	conn.SetReadLimit(readLimit)

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.log.Infof("Player %s connected from %s.", c.id, r.RemoteAddr)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.writeLoop(ctx, c)
	}()

	h.SendToPlayer(c.id, game.GameEvent{Type: EventConnected, User: &game.EventUser{ID: c.id}})
	h.readLoop(ctx, c)

	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()
	close(c.done)
	cancel()
	wg.Wait()

	if h.game != nil {
		h.game.Disconnect(context.Background(), c.id)
	}
	conn.Close(websocket.StatusNormalClosure, "")
	h.log.Infof("Player %s disconnected.", c.id)
}

func (h *Hub) readLoop(ctx context.Context, c *client) {
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && !errors.Is(err, context.Canceled) {
				h.log.WithError(err).Debugf("Player %s read failed.", c.id)
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		var action models.GameAction
		if err := json.Unmarshal(data, &action); err != nil {
			h.SendToPlayer(c.id, game.GameEvent{Type: game.EventInvalidMove, Message: "Malformed message."})
			continue
		}
		if h.game != nil {
			h.game.HandlePlayerAction(ctx, c.id, action)
		}
	}
}

func (h *Hub) writeLoop(ctx context.Context, c *client) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				h.log.WithError(err).Debugf("Player %s write failed.", c.id)
				c.conn.Close(websocket.StatusInternalError, "write failed")
				return
			}
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				c.conn.Close(websocket.StatusGoingAway, "ping failed")
				return
			}
		}
	}
}
