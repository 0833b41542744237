package gateway

import (
	"context"
	"time"

	errs "PClient/tools/errs"
)

// Handle is the facade callers hold: send frames, run the handshake, read the
// session, subscribe (via On) and observe entities (via Observe). All methods
// are safe for concurrent use.
type Handle struct {
	g *Gateway
}

// State reports the connection lifecycle phase.
func (h *Handle) State() State { return h.g.State() }

// Session returns a point-in-time copy of the tracked session.
func (h *Handle) Session() SessionInfo { return h.g.sess.snapshot() }

// Store exposes the entity cache, mainly for inspection.
func (h *Handle) Store() *Store { return h.g.store }

// Send encodes d under op and writes it out. A nil d serializes as `d: null`.
func (h *Handle) Send(ctx context.Context, op int, d any) error {
	if h.g.State() == StateClosed {
		return errs.ErrClosed.WrapMsg("send after close")
	}
	return h.g.sendFrameRaw(ctx, op, d)
}

// Identify starts a fresh session and waits for the server's READY. Zero
// Token and Properties fall back to the connection options. The payload is
// retained for replay when a later reconnect cannot resume.
func (h *Handle) Identify(ctx context.Context, p IdentifyPayload) (SessionInfo, error) {
	if p.Token == "" {
		p.Token = h.g.opts.Token
	}
	if p.Properties == (IdentifyProperties{}) {
		p.Properties = h.g.opts.Properties
	}

	h.g.identifyMu.Lock()
	h.g.identify = &p
	h.g.identifyMu.Unlock()

	err := awaitSignal[sessionReady](h, ctx, "ready", func() error {
		return h.Send(ctx, OpIdentify, p)
	})
	if err != nil {
		return SessionInfo{}, err
	}
	return h.g.sess.snapshot(), nil
}

// Resume re-enters a previous session and waits for RESUMED. Zero fields fall
// back to the tracked session and the configured token.
func (h *Handle) Resume(ctx context.Context, p ResumePayload) error {
	if p.Token == "" {
		p.Token = h.g.opts.Token
	}
	if p.SessionID == "" {
		info := h.g.sess.snapshot()
		p.SessionID = info.ID
		if p.Seq == 0 && info.Seq != nil {
			p.Seq = *info.Seq
		}
	}
	if p.SessionID == "" {
		return errs.ErrProtocol.WrapMsg("resume without a session")
	}
	return awaitSignal[sessionResumed](h, ctx, "resumed", func() error {
		return h.Send(ctx, OpResume, p)
	})
}

// Close tears the gateway down. Idempotent; pending awaits fail with
// ErrClosed or their context error.
func (h *Handle) Close() {
	h.g.close()
}

// awaitSignal subscribes to the internal signal T, runs send, then waits for
// the signal, the context, or the reply timeout, and always unsubscribes.
func awaitSignal[T Event](h *Handle, ctx context.Context, what string, send func() error) error {
	ch := make(chan T, 1)
	tok := OnBus[T](h.g.bus, func(ev T) {
		select {
		case ch <- ev:
		default:
		}
	})
	defer h.g.bus.Unsubscribe(tok)

	if err := send(); err != nil {
		return err
	}

	timer := time.NewTimer(h.g.opts.ReplyTimeout)
	defer timer.Stop()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.g.rootCtx.Done():
		return errs.ErrClosed.WrapMsg("gateway closed while awaiting " + what)
	case <-timer.C:
		return errs.ErrNoResponse.WrapMsg("timed out awaiting " + what)
	}
}
