package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second

	// ReadWait bounds how long a connection may stay silent. Control pongs
	// count as traffic.
	ReadWait = 5 * time.Minute

	// PingPeriod must stay below ReadWait.
	PingPeriod = 30 * time.Second

	// MaxMessageSize caps client messages.
	MaxMessageSize = 4096
)

// Prepare applies read limits and keeps the read deadline moving on pongs.
func Prepare(conn *websocket.Conn) {
	conn.SetReadLimit(MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(ReadWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(ReadWait))
	})
}

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WriteView sends a view event.
func WriteView(conn *websocket.Conn, data any) error {
	return WriteTyped(conn, ViewResponse{Event: EventView, Data: data})
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func WriteError(conn *websocket.Conn, errMsg string) error {
	return WriteTyped(conn, ErrorResponse{
		Event: EventError,
		Error: errMsg,
	})
}

// WritePing sends a control ping.
func WritePing(conn *websocket.Conn) error {
	return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// WriteClose sends a close frame with code and reason.
func WriteClose(conn *websocket.Conn, code int, reason string) error {
	return conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
}

// ReadJSON reads and decodes a message into the provided structure.
// It sets a read deadline.
func ReadJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetReadDeadline(time.Now().Add(ReadWait))
	return conn.ReadJSON(v)
}
