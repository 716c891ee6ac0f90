package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the minimal connection surface the hub needs. Production
// connections wrap *websocket.Conn; tests use in-memory fakes.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// wsConn wraps a gorilla websocket connection with write serialization and
// a per-write deadline. gorilla conns support one concurrent writer only.
type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	writeMu      sync.Mutex
}

// NewWSConn wraps a websocket connection for use with the hub.
func NewWSConn(conn *websocket.Conn, writeTimeout time.Duration) Conn {
	return &wsConn{conn: conn, writeTimeout: writeTimeout}
}

func (c *wsConn) WriteJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}
