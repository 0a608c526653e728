package hubclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/gorilla/websocket"

	"github.com/ucbridge/ha-integration-bridge/internal/config"
	"github.com/ucbridge/ha-integration-bridge/internal/proto/hub"
)

// wsConn owns a single websocket connection to the hub: a mutex-guarded
// writer and a dedicated read-pump goroutine that decodes frames and
// forwards them into the owning actor's mailbox, the same bridging
// pattern the teacher uses for paho's callback-based Subscribe/Publish.
type wsConn struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed bool
}

func dialHub(parent context.Context, cfg config.HassConfig, timeout time.Duration) (*wsConn, error) {
	tlsCfg, err := buildTLSConfig(cfg.TLS)
	if err != nil {
		return nil, err
	}
	dialer := &websocket.Dialer{
		TLSClientConfig:  tlsCfg,
		HandshakeTimeout: timeout,
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	c, _, err := dialer.DialContext(ctx, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial hub: %w", err)
	}
	if cfg.MaxFrameSize > 0 {
		c.SetReadLimit(int64(cfg.MaxFrameSize))
	}
	return &wsConn{conn: c}, nil
}

func buildTLSConfig(cfg config.HassTLSConfig) (*tls.Config, error) {
	tlsCfg := &tls.Config{InsecureSkipVerify: !cfg.Verify}
	if len(cfg.CACerts) == 0 {
		return tlsCfg, nil
	}
	pool := x509.NewCertPool()
	for _, path := range cfg.CACerts {
		pem, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading ca_cert %s: %w", path, err)
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("ca_cert %s contains no usable certificates", path)
		}
	}
	tlsCfg.RootCAs = pool
	return tlsCfg, nil
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

// readPump decodes frames off the connection and forwards them into
// self's mailbox, exactly the teacher's pattern of bridging a non-actor
// callback API into ctx.Send(ctx.Self(), ...) — here the callback is the
// blocking ReadMessage loop instead of paho's MessageHandler.
func (c *wsConn) readPump(self *actor.PID, rootCtx *actor.RootContext) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			rootCtx.Send(self, wsClosed{err: err})
			return
		}
		frame, err := hub.Decode(data)
		if err != nil {
			rootCtx.Send(self, wsClosed{err: err})
			return
		}
		rootCtx.Send(self, wsFrame{frame: frame})
	}
}
