package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"PClient/logger"
)

const writeDeadline = 5 * time.Second

// Transport delivers and accepts whole text frames. The gateway owns exactly
// one at a time; a reconnect swaps in a fresh one. Close must unblock any
// pending Receive.
type Transport interface {
	Send(ctx context.Context, text []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// Dialer opens a Transport. Injectable so tests can run against an
// in-memory pipe instead of a real socket.
type Dialer func(ctx context.Context, url string) (Transport, error)

// wsTransport is the default Transport over gorilla/websocket.
type wsTransport struct {
	connID string // local trace id, not a server identity
	conn   *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// DialWebsocket is the default Dialer.
func DialWebsocket(ctx context.Context, url string) (Transport, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
	}
	conn, resp, err := dialer.DialContext(ctx, url, http.Header{})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, errors.Wrapf(err, "dial gateway %s", url)
	}
	t := &wsTransport{connID: uuid.NewString(), conn: conn}
	logger.Debugf("[transport] connected connID=%s url=%s", t.connID, url)
	return t, nil
}

func (t *wsTransport) Send(ctx context.Context, text []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	deadline := time.Now().Add(writeDeadline)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return errors.Wrap(err, "set write deadline")
	}
	if err := t.conn.WriteMessage(websocket.TextMessage, text); err != nil {
		return errors.Wrap(err, "write frame")
	}
	return nil
}

// Receive blocks until the next text frame. Cancellation is effected by
// Close, which makes the pending read fail; ctx is checked between frames.
func (t *wsTransport) Receive(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mt, data, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Debugf("[transport] peer closed connID=%s err=%v", t.connID, err)
			}
			return nil, errors.Wrap(err, "read frame")
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		return data, nil
	}
}

func (t *wsTransport) Close() error {
	t.closeOnce.Do(func() {
		t.writeMu.Lock()
		_ = t.conn.SetWriteDeadline(time.Now().Add(time.Second))
		_ = t.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		t.writeMu.Unlock()
		_ = t.conn.Close()
		logger.Debugf("[transport] closed connID=%s", t.connID)
	})
	return nil
}
