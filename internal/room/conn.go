// Package room owns the live side of a game session: the registry of active
// rooms, the per-room connection set, and the fan-out of wire frames after
// every state mutation.
package room

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	sendBufferSize = 64
	pingInterval   = 25 * time.Second
)

// ClientConn is one live socket inside a room. The player identity and the
// delta capability are fixed at attach time and never change for the
// connection's lifetime.
type ClientConn struct {
	ws   *websocket.Conn
	send chan []byte

	playerID     string
	deltaCapable bool

	closeOnce sync.Once
}

func newClientConn(ws *websocket.Conn, deltaCapable bool) *ClientConn {
	return &ClientConn{
		ws:           ws,
		send:         make(chan []byte, sendBufferSize),
		deltaCapable: deltaCapable,
	}
}

func (c *ClientConn) Close() {
	c.closeOnce.Do(func() {
		close(c.send)
		_ = c.ws.Close()
	})
}

// writePump drains the send channel onto the socket and keeps the connection
// alive with pings. Runs in its own goroutine per connection.
func (c *ClientConn) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.ws.WriteMessage(websocket.BinaryMessage, frame)
		case <-ticker.C:
			_ = c.ws.WriteMessage(websocket.PingMessage, []byte{})
		}
	}
}
