package stream

import (
	"time"

	"github.com/gorilla/websocket"
)

var doneFrame = []byte(`{"done":true}`)

// WebSocketSink writes frames as text messages. The terminal signal is a
// {"done":true} message followed by a normal close.
type WebSocketSink struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

// NewWebSocketSink wraps an upgraded connection.
func NewWebSocketSink(conn *websocket.Conn, writeTimeout time.Duration) *WebSocketSink {
	return &WebSocketSink{conn: conn, writeTimeout: writeTimeout}
}

func (s *WebSocketSink) WriteEvent(data []byte) error {
	s.setDeadline()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *WebSocketSink) WriteDone() error {
	s.setDeadline()
	if err := s.conn.WriteMessage(websocket.TextMessage, doneFrame); err != nil {
		return err
	}
	s.setDeadline()
	return s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (s *WebSocketSink) setDeadline() {
	if s.writeTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
}
