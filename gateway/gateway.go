package gateway

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"PClient/logger"
	errs "PClient/tools/errs"
	safe "PClient/tools/safe"
)

// session tracks what survives across reconnects: the server-assigned id,
// the last seen dispatch sequence and the preferred resume endpoint.
type session struct {
	mu        sync.Mutex
	id        string
	resumeURL string
	seq       int64
	hasSeq    bool
	interval  time.Duration
}

// SessionInfo is a point-in-time copy of the session for callers.
type SessionInfo struct {
	ID                string
	Seq               *int64
	ResumeURL         string
	HeartbeatInterval time.Duration
}

func (s *session) observeSeq(v int64) {
	s.mu.Lock()
	if !s.hasSeq || v > s.seq {
		s.seq = v
		s.hasSeq = true
	}
	s.mu.Unlock()
}

func (s *session) seqPtr() *int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasSeq {
		return nil
	}
	v := s.seq
	return &v
}

func (s *session) ready(id, resumeURL string) {
	s.mu.Lock()
	s.id = id
	if resumeURL != "" {
		s.resumeURL = resumeURL
	}
	s.mu.Unlock()
}

func (s *session) clear() {
	s.mu.Lock()
	s.id = ""
	s.resumeURL = ""
	s.seq = 0
	s.hasSeq = false
	s.mu.Unlock()
}

func (s *session) snapshot() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := SessionInfo{ID: s.id, ResumeURL: s.resumeURL, HeartbeatInterval: s.interval}
	if s.hasSeq {
		v := s.seq
		info.Seq = &v
	}
	return info
}

// resumeTarget prefers the server-advertised resume endpoint.
func (s *session) resumeTarget(def string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.id != "" && s.resumeURL != "" {
		return s.resumeURL
	}
	return def
}

// Gateway is one logical connection to the chat gateway: it owns the socket,
// the heartbeat, the event bus and the entity cache, and keeps itself alive
// across socket deaths until Close.
type Gateway struct {
	opts Options
	url  string

	bus    *Bus
	store  *Store
	sess   session
	handle *Handle

	state atomic.Int32

	rootCtx    context.Context
	rootCancel context.CancelFunc

	// connMu guards the live transport and its cancel func.
	connMu     sync.Mutex
	tr         Transport
	connCancel context.CancelFunc

	// identify is the payload of the last explicit Identify, replayed when a
	// dead session forces a fresh handshake.
	identifyMu sync.Mutex
	identify   *IdentifyPayload

	restarting atomic.Bool
	closeOnce  sync.Once
}

// Open dials url, waits for the server Hello and starts the heartbeat and
// listen loop. ctx bounds the initial handshake only; the returned Handle
// lives until Close.
func Open(ctx context.Context, url string, opts Options) (*Handle, error) {
	g := &Gateway{
		opts:  opts.withDefaults(),
		url:   url,
		store: NewStore(),
	}
	g.bus = NewBus(g.opts.BusQueueSize)
	g.handle = &Handle{g: g}
	g.rootCtx, g.rootCancel = context.WithCancel(context.Background())

	if err := g.connect(ctx, url); err != nil {
		g.bus.Close()
		g.rootCancel()
		return nil, err
	}
	return g.handle, nil
}

func (g *Gateway) State() State {
	return State(g.state.Load())
}

func (g *Gateway) setState(s State) {
	old := State(g.state.Swap(int32(s)))
	if old != s {
		logger.Debugf("[gateway] state %s -> %s", old, s)
	}
}

// connect performs one handshake: dial, await Hello, then hand the transport
// to a fresh heartbeat and listen loop tied to a per-connection context.
func (g *Gateway) connect(ctx context.Context, url string) error {
	g.setState(StateConnecting)

	dctx, cancel := context.WithTimeout(ctx, g.opts.HandshakeTimeout)
	defer cancel()

	tr, err := g.opts.Dialer(dctx, url)
	if err != nil {
		return errs.ErrConnection.WrapMsg("dial", "url", url, "err", err)
	}

	g.setState(StateAwaitingHello)
	raw, err := receiveWithin(dctx, tr)
	if err != nil {
		_ = tr.Close()
		return errs.ErrConnection.WrapMsg("await hello", "err", err)
	}
	frame, err := DecodeFrame(raw)
	if err != nil {
		_ = tr.Close()
		return err
	}
	if frame.Op != OpHello {
		_ = tr.Close()
		return errs.ErrProtocol.WrapMsg("first frame is not hello", "op", frame.Op)
	}
	var hello HelloData
	if err := jsonAPI.Unmarshal(frame.D, &hello); err != nil {
		_ = tr.Close()
		return errs.ErrDecode.WrapMsg("hello payload", "err", err)
	}
	if hello.HeartbeatInterval <= 0 {
		_ = tr.Close()
		return errs.ErrProtocol.WrapMsg("hello without heartbeat_interval")
	}
	interval := time.Duration(hello.HeartbeatInterval) * time.Millisecond
	g.sess.mu.Lock()
	g.sess.interval = interval
	g.sess.mu.Unlock()

	connCtx, connCancel := context.WithCancel(g.rootCtx)
	g.connMu.Lock()
	g.tr = tr
	g.connCancel = connCancel
	g.connMu.Unlock()

	acks := make(chan struct{}, 1)
	hb := newHeartbeat(interval, func() error {
		data, err := EncodeFrame(OpHeartbeat, heartbeatPayload(g.sess.seqPtr()))
		if err != nil {
			return err
		}
		return tr.Send(connCtx, data)
	}, func() {
		publish(g.bus, ErrorEvent{Err: errs.ErrZombie.WrapMsg("heartbeat not acknowledged")})
		g.restart(false)
	})
	if g.opts.JitterFn != nil {
		hb.jitter = g.opts.JitterFn
	}

	g.setState(StateIdentifying)
	safe.GoCtx(connCtx, "gateway:heartbeat", func(ctx context.Context) {
		hb.run(ctx, acks)
	})
	safe.GoCtx(connCtx, "gateway:listen", func(ctx context.Context) {
		g.listen(ctx, tr, hb, acks)
	})
	logger.Infof("[gateway] connected url=%s heartbeat=%s", url, interval)
	return nil
}

// receiveWithin wraps Receive with a hard deadline: on timeout the transport
// is closed to unblock the pending read.
func receiveWithin(ctx context.Context, tr Transport) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}
	ch := make(chan result, 1)
	safe.Go("gateway:handshake-read", func() {
		data, err := tr.Receive(ctx)
		ch <- result{data, err}
	})
	select {
	case r := <-ch:
		return r.data, r.err
	case <-ctx.Done():
		_ = tr.Close()
		return nil, ctx.Err()
	}
}

// listen is the per-connection read loop. It is the single source of dispatch
// publishes, which makes per-topic delivery order the server's send order.
func (g *Gateway) listen(ctx context.Context, tr Transport, hb *heartbeat, acks chan struct{}) {
	for {
		raw, err := tr.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || g.State() == StateClosed {
				return
			}
			publish(g.bus, ErrorEvent{Err: errs.ErrConnection.WrapMsg("receive", "err", err)})
			g.restart(false)
			return
		}
		frame, err := DecodeFrame(raw)
		if err != nil {
			publish(g.bus, ErrorEvent{Err: err})
			continue
		}
		g.handleFrame(frame, hb, acks)
	}
}

func (g *Gateway) handleFrame(f *Frame, hb *heartbeat, acks chan struct{}) {
	switch f.Op {
	case OpDispatch:
		g.handleDispatch(f)

	case OpHeartbeat:
		hb.requestBeat()

	case OpHeartbeatACK:
		select {
		case acks <- struct{}{}:
		default:
		}

	case OpReconnect:
		logger.Info("[gateway] server requested reconnect")
		publish(g.bus, ReconnectEvent{})
		g.restart(false)

	case OpInvalidSession:
		var resumable bool
		if err := jsonAPI.Unmarshal(f.D, &resumable); err != nil {
			resumable = false
		}
		logger.Warnf("[gateway] session invalidated resumable=%v", resumable)
		publish(g.bus, InvalidSessionEvent{Resumable: resumable})
		g.restart(!resumable)

	case OpHello:
		// Hello is only legal as the first frame of a connection.
		publish(g.bus, ErrorEvent{Err: errs.ErrProtocol.WrapMsg("hello after handshake")})
		g.restart(false)

	default:
		logger.Debugf("[gateway] ignoring unknown op=%d", f.Op)
	}
}

func (g *Gateway) handleDispatch(f *Frame) {
	if f.S != nil {
		g.sess.observeSeq(*f.S)
	}

	switch f.T {
	case "READY":
		var env readyEnvelope
		if err := jsonAPI.Unmarshal(f.D, &env); err != nil {
			publish(g.bus, ErrorEvent{Err: errs.ErrDecode.WrapMsg("ready envelope", "err", err)})
			return
		}
		g.sess.ready(env.SessionID, env.ResumeGatewayURL)
		g.setState(StateConnected)
		publish(g.bus, sessionReady{SessionID: env.SessionID, ResumeURL: env.ResumeGatewayURL})
	case "RESUMED":
		g.setState(StateConnected)
		publish(g.bus, sessionResumed{})
	}

	fn, ok := g.opts.Registry.lookup(f.T)
	if !ok {
		logger.Debugf("[gateway] unhandled dispatch t=%s", f.T)
		return
	}
	if err := fn(g.handle, f.D); err != nil {
		logger.Warnf("[gateway] dispatch %s failed: %v", f.T, err)
		publish(g.bus, ErrorEvent{Err: err})
	}
}

// sendFrameRaw encodes and writes one frame on the live transport. Encode
// failures come back to the caller; transport failures surface as an error
// event and kick off recovery, since the caller cannot fix a dead socket.
func (g *Gateway) sendFrameRaw(ctx context.Context, op int, d any) error {
	data, err := EncodeFrame(op, d)
	if err != nil {
		return errs.ErrProtocol.WrapMsg("encode frame", "op", op, "err", err)
	}
	g.connMu.Lock()
	tr := g.tr
	g.connMu.Unlock()
	if tr == nil {
		return errs.ErrClosed.WrapMsg("no live connection")
	}
	if err := tr.Send(ctx, data); err != nil {
		publish(g.bus, ErrorEvent{Err: errs.ErrConnection.WrapMsg("send", "op", op, "err", err)})
		g.restart(false)
		return errs.ErrConnection.WrapMsg("send", "op", op, "err", err)
	}
	return nil
}

// teardownConn cancels the connection context and closes the socket, leaving
// session state intact for a resume.
func (g *Gateway) teardownConn() {
	g.connMu.Lock()
	tr, cancel := g.tr, g.connCancel
	g.tr, g.connCancel = nil, nil
	g.connMu.Unlock()
	if cancel != nil {
		cancel()
	}
	if tr != nil {
		_ = tr.Close()
	}
}

// restart cycles the connection: tear down, back off, redial, then resume or
// re-identify. Single-flight, so a read error and a zombie heartbeat racing
// each other cause one recovery, not two.
func (g *Gateway) restart(clearSession bool) {
	if !g.restarting.CompareAndSwap(false, true) {
		return
	}
	safe.Go("gateway:restart", func() {
		defer g.restarting.Store(false)

		g.teardownConn()
		if clearSession {
			g.sess.clear()
		}
		if g.rootCtx.Err() != nil {
			return
		}
		g.setState(StateReconnecting)

		bo := g.opts.Backoff
		bo.Reset()
		for {
			wait := bo.NextBackOff()
			if wait == backoff.Stop {
				publish(g.bus, ErrorEvent{Err: errs.ErrConnection.WrapMsg("reconnect attempts exhausted")})
				g.setState(StateDisconnected)
				return
			}
			select {
			case <-g.rootCtx.Done():
				return
			case <-time.After(wait):
			}

			target := g.sess.resumeTarget(g.url)
			if err := g.connect(g.rootCtx, target); err != nil {
				logger.Warnf("[gateway] reconnect to %s failed: %v", target, err)
				continue
			}
			g.replaySession()
			return
		}
	})
}

// replaySession re-enters the session after a reconnect: Resume when we have
// one, otherwise replay the stored Identify. The server answers with RESUMED
// or READY through the normal dispatch path.
func (g *Gateway) replaySession() {
	info := g.sess.snapshot()
	if info.ID != "" {
		var seq int64
		if info.Seq != nil {
			seq = *info.Seq
		}
		logger.Infof("[gateway] resuming session=%s seq=%d", info.ID, seq)
		_ = g.sendFrameRaw(g.rootCtx, OpResume, ResumePayload{
			Token:     g.opts.Token,
			SessionID: info.ID,
			Seq:       seq,
		})
		return
	}

	g.identifyMu.Lock()
	p := g.identify
	g.identifyMu.Unlock()
	if p == nil {
		logger.Warn("[gateway] reconnected with no session and no identify to replay")
		return
	}
	logger.Info("[gateway] re-identifying")
	_ = g.sendFrameRaw(g.rootCtx, OpIdentify, *p)
}

// close tears everything down. After it returns no callbacks fire and every
// cached handle is frozen at its last value.
func (g *Gateway) close() {
	g.closeOnce.Do(func() {
		g.setState(StateClosed)
		g.rootCancel()
		g.teardownConn()
		g.bus.Close()
		logger.Info("[gateway] closed")
	})
}
