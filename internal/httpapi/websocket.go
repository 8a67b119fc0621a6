package httpapi

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/hmiyata/cascade/internal/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is served from this same process; no cross-origin use.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// safeConn wraps a WebSocket connection with a write mutex so bus callbacks
// and close paths never write concurrently.
type safeConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  bool
}

func newSafeConn(conn *websocket.Conn) *safeConn {
	return &safeConn{conn: conn}
}

// WriteJSON safely writes JSON to the WebSocket connection. Writes to a
// closed connection are silently ignored.
func (sc *safeConn) WriteJSON(v interface{}) error {
	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()

	if sc.closed {
		return nil
	}
	return sc.conn.WriteJSON(v)
}

func (sc *safeConn) Close() error {
	sc.writeMu.Lock()
	sc.closed = true
	sc.writeMu.Unlock()
	return sc.conn.Close()
}

// handleWebSocket streams every progress event published on the bus to the
// connected client. The connection lives until the client disconnects.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.bus == nil {
		writeError(w, http.StatusServiceUnavailable, "event feed disabled")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("websocket upgrade: %v", err)
		return
	}
	sc := newSafeConn(conn)
	s.logger.Debugf("websocket client connected: %s", r.RemoteAddr)

	unsubscribe := s.bus.SubscribeAll(func(event events.ProgressEvent) {
		if err := sc.WriteJSON(event); err != nil {
			s.logger.Debugf("websocket write: %v", err)
		}
	})
	defer unsubscribe()
	defer sc.Close()

	// Read loop exists only to detect disconnect; clients send nothing.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.logger.Debugf("websocket client gone: %s", r.RemoteAddr)
			return
		}
	}
}
