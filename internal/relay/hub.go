// Package relay раздаёт строки чата подписчикам по WebSocket и отдаёт
// служебные HTTP-ручки (/metrics, /healthz).
//
// Формат выбирается параметром: /ws (JSON, текстовые кадры) или
// /ws?format=pb (protobuf, бинарные кадры, см. Event).
package relay

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 10 * time.Second
	sendBuffer = 64
)

type Format int

const (
	FormatJSON Format = iota
	FormatProto
)

// ParseFormat: "pb"/"proto" — бинарный формат, всё остальное — JSON.
func ParseFormat(s string) Format {
	switch s {
	case "pb", "proto", "protobuf":
		return FormatProto
	default:
		return FormatJSON
	}
}

type subscriber struct {
	conn   *websocket.Conn
	format Format
	send   chan []byte
}

// Hub хранит подписчиков. Медленный подписчик, у которого переполнился
// буфер, отключается, остальные не ждут.
type Hub struct {
	upgrader websocket.Upgrader
	log      *slog.Logger
	onCount  func(int)

	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewHub создаёт хаб. onCount (может быть nil) вызывается при каждом
// изменении числа подписчиков.
func NewHub(log *slog.Logger, onCount func(int)) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log:     log,
		onCount: onCount,
		subs:    make(map[*subscriber]struct{}),
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// ServeHTTP апгрейдит соединение и держит его до отключения клиента.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("relay upgrade failed", "err", err)
		return
	}
	s := &subscriber{
		conn:   conn,
		format: ParseFormat(r.URL.Query().Get("format")),
		send:   make(chan []byte, sendBuffer),
	}
	if !h.register(s) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	h.log.Info("relay subscriber connected", "remote", r.RemoteAddr)

	go func() {
		defer h.wg.Done()
		h.writePump(s)
	}()
	h.readPump(s)
}

// Broadcast кодирует событие не больше одного раза на формат.
func (h *Hub) Broadcast(e Event) {
	var encoded [2][]byte
	encode := func(f Format) []byte {
		if encoded[f] != nil {
			return encoded[f]
		}
		if f == FormatProto {
			encoded[f] = e.MarshalProto()
		} else {
			b, err := json.Marshal(e)
			if err != nil {
				h.log.Warn("relay encode failed", "err", err)
				return nil
			}
			encoded[f] = b
		}
		return encoded[f]
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		data := encode(s.format)
		if data == nil {
			continue
		}
		select {
		case s.send <- data:
		default:
			h.log.Warn("relay subscriber too slow, dropping", "remote", s.conn.RemoteAddr().String())
			h.removeLocked(s)
		}
	}
}

// Close отключает всех подписчиков и ждёт их писателей.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for s := range h.subs {
		h.removeLocked(s)
	}
	h.mu.Unlock()
	h.wg.Wait()
}

// register добавляет подписчика и резервирует место в wg под его writePump.
func (h *Hub) register(s *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.wg.Add(1)
	h.subs[s] = struct{}{}
	h.countLocked()
	return true
}

func (h *Hub) unregister(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(s)
}

// removeLocked закрывает send ровно один раз — по факту удаления из map.
func (h *Hub) removeLocked(s *subscriber) {
	if _, ok := h.subs[s]; !ok {
		return
	}
	delete(h.subs, s)
	close(s.send)
	h.countLocked()
}

func (h *Hub) countLocked() {
	if h.onCount != nil {
		h.onCount(len(h.subs))
	}
}

// readPump нужен только для pong и обнаружения закрытия.
func (h *Hub) readPump(s *subscriber) {
	defer func() {
		h.unregister(s)
		_ = s.conn.Close()
	}()
	s.conn.SetReadLimit(512)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(s *subscriber) {
	t := time.NewTicker(pingPeriod)
	defer func() {
		t.Stop()
		_ = s.conn.Close()
	}()

	msgType := websocket.TextMessage
	if s.format == FormatProto {
		msgType = websocket.BinaryMessage
	}
	for {
		select {
		case data, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "closing"))
				return
			}
			if err := s.conn.WriteMessage(msgType, data); err != nil {
				return
			}
		case <-t.C:
			if err := s.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
