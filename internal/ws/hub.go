package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"lockedin-service/internal/models"
	"lockedin-service/internal/observability"
)

// writeWait bounds a single broadcast write so one stalled subscriber
// cannot block the detection path.
const writeWait = 10 * time.Second

// Hub maintains the group rooms for violation fan-out. It is the only
// in-memory state shared across requests: subscriptions do not survive a
// restart and are scoped to this process.
type Hub struct {
	rooms    map[string]map[*websocket.Conn]bool
	subs     map[*websocket.Conn]map[string]bool
	connInfo map[*websocket.Conn]ConnInfo
	writeMu  map[*websocket.Conn]*sync.Mutex
	mu       sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:    make(map[string]map[*websocket.Conn]bool),
		subs:     make(map[*websocket.Conn]map[string]bool),
		connInfo: make(map[*websocket.Conn]ConnInfo),
		writeMu:  make(map[*websocket.Conn]*sync.Mutex),
	}
}

// AddClient registers a websocket connection with the hub. The connection
// receives nothing until it subscribes to at least one group.
func (h *Hub) AddClient(conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[conn] = make(map[string]bool)
	h.connInfo[conn] = info
	h.writeMu[conn] = &sync.Mutex{}
}

// Subscribe adds the connection to a group room. No membership check is
// performed; any connection may claim any group id.
func (h *Hub) Subscribe(groupID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[conn]; !ok {
		return
	}
	if _, ok := h.rooms[groupID]; !ok {
		h.rooms[groupID] = make(map[*websocket.Conn]bool)
	}
	h.rooms[groupID][conn] = true
	h.subs[conn][groupID] = true
}

// RemoveClient drops the connection from every room it joined.
func (h *Hub) RemoveClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for groupID := range h.subs[conn] {
		if conns, ok := h.rooms[groupID]; ok {
			delete(conns, conn)
			if len(conns) == 0 {
				delete(h.rooms, groupID)
			}
		}
	}
	delete(h.subs, conn)
	delete(h.connInfo, conn)
	delete(h.writeMu, conn)
}

// BroadcastViolation sends a violation event to every connection in the
// group's room. Delivery is best-effort: a slow subscriber times out and
// a failed write closes and evicts the connection, nothing is queued or
// retried. Writes are serialized per connection; gorilla/websocket allows
// only one concurrent writer.
func (h *Hub) BroadcastViolation(groupID string, event models.ViolationEvent) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.rooms[groupID]))
	locks := make([]*sync.Mutex, 0, len(h.rooms[groupID]))
	for conn := range h.rooms[groupID] {
		conns = append(conns, conn)
		locks = append(locks, h.writeMu[conn])
	}
	h.mu.RUnlock()

	payload, _ := json.Marshal(models.WSEvent{Type: "violation", Violation: &event})
	for i, conn := range conns {
		if err := h.writeConn(conn, locks[i], payload); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			h.publishWSError(groupID, conn, err)
			h.RemoveClient(conn)
		}
	}
}

func (h *Hub) writeConn(conn *websocket.Conn, lock *sync.Mutex, payload []byte) error {
	if lock == nil {
		// connection was removed between the snapshot and the write
		return nil
	}
	lock.Lock()
	defer lock.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// RoomSize reports how many connections are subscribed to a group.
func (h *Hub) RoomSize(groupID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[groupID])
}

func (h *Hub) publishWSError(groupID string, conn *websocket.Conn, err error) {
	h.mu.RLock()
	info, ok := h.connInfo[conn]
	h.mu.RUnlock()
	if !ok {
		return
	}

	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"group_id":    groupID,
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.groups", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent("ws_error")
}
