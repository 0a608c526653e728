package remotesession

import (
	"fmt"
	"sync"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/gorilla/websocket"

	"github.com/ucbridge/ha-integration-bridge/internal/proto/integration"
)

// wsConn wraps the already-upgraded server-side websocket connection
// for one remote session: a mutex-guarded writer plus a dedicated
// read-pump goroutine, mirroring hubclient.wsConn on the server side
// of the same bridging pattern.
type wsConn struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed bool
}

func newServerConn(c *websocket.Conn) *wsConn {
	return &wsConn{conn: c}
}

func (c *wsConn) send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("connection closed")
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	_ = c.conn.Close()
}

func (c *wsConn) readPump(self *actor.PID, rootCtx *actor.RootContext) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			rootCtx.Send(self, wsClosed{err: err})
			return
		}
		frame, err := integration.Decode(data)
		if err != nil {
			rootCtx.Send(self, wsClosed{err: err})
			return
		}
		rootCtx.Send(self, wsFrame{frame: frame})
	}
}
