// Package gatewaytest runs a scripted in-process gateway server for tests:
// real websocket, real upgrade, fully controllable frame flow.
package gatewaytest

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"PClient/gateway"
	safe "PClient/tools/safe"
)

// ClientFrame is a frame as the client sent it.
type ClientFrame struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d"`
}

// Options script the server's automatic behavior. Anything not automated is
// driven by the test through SendDispatch / SendRaw.
type Options struct {
	// HeartbeatInterval advertised in Hello.
	HeartbeatInterval time.Duration
	// AutoAck answers every client heartbeat with an ACK.
	AutoAck bool
	// AutoReady answers Identify with READY and Resume with RESUMED.
	AutoReady bool

	SessionID        string
	ResumeGatewayURL string
}

type Server struct {
	hs   *httptest.Server
	opts Options

	// Incoming receives every frame the client sends, in order.
	Incoming chan ClientFrame

	mu   sync.Mutex
	conn *websocket.Conn
	seq  atomic.Int64

	upgrader websocket.Upgrader
}

func New(opts Options) *Server {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = 45 * time.Second
	}
	if opts.SessionID == "" {
		opts.SessionID = "sess-test"
	}
	s := &Server{
		opts:     opts,
		Incoming: make(chan ClientFrame, 64),
	}

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/ws", s.handleWS)
	s.hs = httptest.NewServer(engine)
	return s
}

// URL is the websocket endpoint clients dial.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.hs.URL, "http") + "/ws"
}

func (s *Server) handleWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.conn = conn
	s.mu.Unlock()

	s.sendRawTo(conn, gateway.OpHello, map[string]any{
		"heartbeat_interval": s.opts.HeartbeatInterval.Milliseconds(),
	})

	safe.Go("gatewaytest:read", func() { s.readLoop(conn) })
}

func (s *Server) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var f ClientFrame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		select {
		case s.Incoming <- f:
		default:
		}
		s.autoRespond(conn, f)
	}
}

func (s *Server) autoRespond(conn *websocket.Conn, f ClientFrame) {
	switch f.Op {
	case gateway.OpHeartbeat:
		if s.opts.AutoAck {
			s.sendRawTo(conn, gateway.OpHeartbeatACK, nil)
		}
	case gateway.OpIdentify:
		if s.opts.AutoReady {
			s.SendDispatch("READY", map[string]any{
				"v":                  9,
				"session_id":         s.opts.SessionID,
				"resume_gateway_url": s.opts.ResumeGatewayURL,
				"user":               map[string]any{"id": "1", "username": "tester"},
				"guilds":             []any{},
			})
		}
	case gateway.OpResume:
		if s.opts.AutoReady {
			s.SendDispatch("RESUMED", map[string]any{})
		}
	}
}

// SendDispatch pushes an op 0 frame with the next sequence number.
func (s *Server) SendDispatch(t string, d any) {
	seq := s.seq.Add(1)
	s.send(map[string]any{"op": gateway.OpDispatch, "d": d, "s": seq, "t": t})
}

// SendRaw pushes a bare frame.
func (s *Server) SendRaw(op int, d any) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		s.sendRawTo(conn, op, d)
	}
}

// SendText pushes a raw payload, for malformed-frame tests.
func (s *Server) SendText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		_ = s.conn.WriteMessage(websocket.TextMessage, []byte(text))
	}
}

// DropConn kills the live socket without a close handshake, simulating a
// network cut.
func (s *Server) DropConn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}

func (s *Server) Close() {
	s.DropConn()
	s.hs.Close()
}

func (s *Server) send(frame map[string]any) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	s.mu.Lock()
	_ = conn.WriteMessage(websocket.TextMessage, data)
	s.mu.Unlock()
}

func (s *Server) sendRawTo(conn *websocket.Conn, op int, d any) {
	data, err := json.Marshal(map[string]any{"op": op, "d": d})
	if err != nil {
		return
	}
	s.mu.Lock()
	_ = conn.WriteMessage(websocket.TextMessage, data)
	s.mu.Unlock()
}
