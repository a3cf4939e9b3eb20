package session

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// eventQueueDepth bounds each connection's outbound event queue.
// Grounded on the teacher's internal/api/websocket.go Hub, whose single
// shared broadcast channel was sized 256 — here every connection gets
// its own queue of that depth instead of one channel shared by all.
const eventQueueDepth = 256

// maxParseFailures is how many consecutive malformed inbound frames a
// connection tolerates before the hub closes it.
const maxParseFailures = 3

// maxFrameBytes bounds a single inbound frame; anything larger closes
// the connection rather than being buffered.
const maxFrameBytes = 1 << 20 // 1 MiB

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// conn is one subscriber: a websocket plus its own bounded send queue.
// A full queue drops its oldest pending event rather than blocking the
// hub's broadcast goroutine — the mutator must never stall waiting on
// a slow reader.
type conn struct {
	id            uint64
	ws            *websocket.Conn
	send          chan []byte
	parseFailures int
	droppedEvents uint64
	mu            sync.Mutex
}

func (c *conn) enqueue(msg []byte) {
	select {
	case c.send <- msg:
		return
	default:
	}
	// Queue full: drop the oldest pending event to make room.
	select {
	case <-c.send:
		c.droppedEvents++
	default:
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (c *conn) writeLoop() {
	for msg := range c.send {
		_ = c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// Hub tracks every subscribed connection and the single writer lease.
type Hub struct {
	mu       sync.Mutex
	conns    map[uint64]*conn
	nextID   uint64
	writer   uint64 // id of the connection holding the writer lease; 0 = none
	metrics  Metrics
}

// Metrics counts events useful for operational visibility, mirroring
// the kind of counters the original session server's ServerMetrics
// struct tracked (connections_closed_parse_failures, writer conflicts).
type Metrics struct {
	mu                         sync.Mutex
	ConnectionsClosedParseFail int
	ConnectionsClosedOversized int
	WriterConflictCount        int
}

func (m *Metrics) incParseFailClose() {
	m.mu.Lock()
	m.ConnectionsClosedParseFail++
	m.mu.Unlock()
}

func (m *Metrics) incOversizedClose() {
	m.mu.Lock()
	m.ConnectionsClosedOversized++
	m.mu.Unlock()
}

func (m *Metrics) incWriterConflict() {
	m.mu.Lock()
	m.WriterConflictCount++
	m.mu.Unlock()
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Metrics{
		ConnectionsClosedParseFail: m.ConnectionsClosedParseFail,
		ConnectionsClosedOversized: m.ConnectionsClosedOversized,
		WriterConflictCount:        m.WriterConflictCount,
	}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[uint64]*conn)}
}

// Broadcast fans a JSON event out to every connected subscriber.
func (h *Hub) Broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.conns {
		c.enqueue(data)
	}
}

// TryAcquireWriterLease grants the writer lease to connID if no other
// connection currently holds it, or if connID already holds it.
func (h *Hub) TryAcquireWriterLease(connID uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.writer == 0 || h.writer == connID {
		h.writer = connID
		return true
	}
	h.metrics.incWriterConflict()
	return false
}

// ReleaseWriterLease releases the lease if connID currently holds it.
func (h *Hub) ReleaseWriterLease(connID uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.writer == connID {
		h.writer = 0
	}
}

// Subscribe upgrades an HTTP request to a websocket and registers the
// resulting connection, in the manner of the teacher's
// Hub.Subscribe/upgrader pattern — extended with per-connection parse
// failure tracking and an oversized-frame close.
func (h *Hub) Subscribe(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("session: failed to upgrade websocket: %v", err)
		return
	}
	ws.SetReadLimit(maxFrameBytes)

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	cn := &conn{id: id, ws: ws, send: make(chan []byte, eventQueueDepth)}
	h.conns[id] = cn
	h.mu.Unlock()

	log.Printf("session: connection %d subscribed (%d total)", id, len(h.conns))

	go cn.writeLoop()

	defer func() {
		h.mu.Lock()
		delete(h.conns, id)
		if h.writer == id {
			h.writer = 0
		}
		h.mu.Unlock()
		close(cn.send)
		ws.Close()
		log.Printf("session: connection %d closed (%d remaining)", id, len(h.conns))
	}()

	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("session: connection %d read error: %v", id, err)
			}
			return
		}
		if len(msg) > maxFrameBytes {
			h.metrics.incOversizedClose()
			log.Printf("session: connection %d sent an oversized frame, closing", id)
			return
		}
		// Inbound frames on the stream socket are heartbeats/acks only;
		// mutating commands arrive over POST /session/command. A frame
		// that isn't valid JSON still counts against the failure budget
		// so a misbehaving client gets disconnected.
		if !isWellFormedJSON(msg) {
			cn.parseFailures++
			if cn.parseFailures >= maxParseFailures {
				h.metrics.incParseFailClose()
				log.Printf("session: connection %d exceeded parse-failure threshold, closing", id)
				return
			}
			continue
		}
		cn.parseFailures = 0
	}
}
