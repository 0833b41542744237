package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"

	"PClient/gateway"
	"PClient/gateway/gatewaytest"
	errs "PClient/tools/errs"
	"PClient/types"
)

func testOptions(reg *gateway.Registry) gateway.Options {
	return gateway.Options{
		Token:        "tok",
		Registry:     reg,
		ReplyTimeout: 2 * time.Second,
		JitterFn:     func() float64 { return 0.5 },
		Backoff:      backoff.NewConstantBackOff(20 * time.Millisecond),
	}
}

// waitFrame drains the server's inbox until a frame with op arrives.
func waitFrame(t *testing.T, srv *gatewaytest.Server, op int) gatewaytest.ClientFrame {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case f := <-srv.Incoming:
			if f.Op == op {
				return f
			}
		case <-deadline:
			t.Fatalf("timed out waiting for op=%d", op)
			return gatewaytest.ClientFrame{}
		}
	}
}

// scriptTransport feeds Open a canned frame sequence without a socket.
type scriptTransport struct {
	in     chan []byte
	closed chan struct{}
	once   sync.Once
}

func newScriptTransport(frames ...string) *scriptTransport {
	st := &scriptTransport{in: make(chan []byte, len(frames)), closed: make(chan struct{})}
	for _, f := range frames {
		st.in <- []byte(f)
	}
	return st
}

func (s *scriptTransport) Send(context.Context, []byte) error { return nil }

func (s *scriptTransport) Receive(ctx context.Context) ([]byte, error) {
	select {
	case b := <-s.in:
		return b, nil
	case <-s.closed:
		return nil, errors.New("transport closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *scriptTransport) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func TestOpenRejectsNonHelloFirstFrame(t *testing.T) {
	opts := testOptions(nil)
	opts.Dialer = func(context.Context, string) (gateway.Transport, error) {
		return newScriptTransport(`{"op":0,"d":{},"s":1,"t":"READY"}`), nil
	}

	_, err := gateway.Open(context.Background(), "ws://scripted", opts)
	require.Error(t, err)
	require.ErrorIs(t, err, errs.ErrProtocol)
}

func TestOpenRejectsHelloWithoutInterval(t *testing.T) {
	opts := testOptions(nil)
	opts.Dialer = func(context.Context, string) (gateway.Transport, error) {
		return newScriptTransport(`{"op":10,"d":{}}`), nil
	}

	_, err := gateway.Open(context.Background(), "ws://scripted", opts)
	require.ErrorIs(t, err, errs.ErrProtocol)
}

func TestOpenIdentifyReady(t *testing.T) {
	srv := gatewaytest.New(gatewaytest.Options{
		HeartbeatInterval: 100 * time.Millisecond,
		AutoAck:           true,
		AutoReady:         true,
		SessionID:         "sess-1",
	})
	defer srv.Close()

	h, err := gateway.Open(context.Background(), srv.URL(), testOptions(types.NewRegistry()))
	require.NoError(t, err)
	defer h.Close()
	require.Equal(t, gateway.StateIdentifying, h.State())

	info, err := h.Identify(context.Background(), gateway.IdentifyPayload{})
	require.NoError(t, err)
	require.Equal(t, "sess-1", info.ID)
	require.Equal(t, gateway.StateConnected, h.State())

	idFrame := waitFrame(t, srv, gateway.OpIdentify)
	var p gateway.IdentifyPayload
	require.NoError(t, json.Unmarshal(idFrame.D, &p))
	require.Equal(t, "tok", p.Token)

	// first heartbeat lands within the advertised interval
	waitFrame(t, srv, gateway.OpHeartbeat)
}

func TestSequenceTracking(t *testing.T) {
	srv := gatewaytest.New(gatewaytest.Options{AutoAck: true, AutoReady: true})
	defer srv.Close()

	h, err := gateway.Open(context.Background(), srv.URL(), testOptions(types.NewRegistry()))
	require.NoError(t, err)
	defer h.Close()

	_, err = h.Identify(context.Background(), gateway.IdentifyPayload{})
	require.NoError(t, err)

	srv.SendDispatch("TYPING_START", map[string]any{
		"channel_id": "1", "user_id": "2", "timestamp": 1,
	})

	require.Eventually(t, func() bool {
		s := h.Session()
		return s.Seq != nil && *s.Seq == 2 // READY was seq 1
	}, 3*time.Second, 10*time.Millisecond)
}

func TestServerRequestedHeartbeat(t *testing.T) {
	srv := gatewaytest.New(gatewaytest.Options{AutoAck: true, AutoReady: true})
	defer srv.Close()

	h, err := gateway.Open(context.Background(), srv.URL(), testOptions(nil))
	require.NoError(t, err)
	defer h.Close()

	// default 45s interval and 0.5 jitter keep the cadence far away
	srv.SendRaw(gateway.OpHeartbeat, nil)
	waitFrame(t, srv, gateway.OpHeartbeat)
}

func TestReconnectOpcodeResumes(t *testing.T) {
	srv := gatewaytest.New(gatewaytest.Options{AutoAck: true, AutoReady: true, SessionID: "sess-r"})
	defer srv.Close()

	h, err := gateway.Open(context.Background(), srv.URL(), testOptions(types.NewRegistry()))
	require.NoError(t, err)
	defer h.Close()

	_, err = h.Identify(context.Background(), gateway.IdentifyPayload{})
	require.NoError(t, err)
	waitFrame(t, srv, gateway.OpIdentify)

	reconnects := make(chan gateway.ReconnectEvent, 1)
	gateway.On(h, func(ev gateway.ReconnectEvent) {
		select {
		case reconnects <- ev:
		default:
		}
	})

	srv.SendRaw(gateway.OpReconnect, nil)

	resume := waitFrame(t, srv, gateway.OpResume)
	var p gateway.ResumePayload
	require.NoError(t, json.Unmarshal(resume.D, &p))
	require.Equal(t, "sess-r", p.SessionID)
	require.Equal(t, "tok", p.Token)

	select {
	case <-reconnects:
	case <-time.After(time.Second):
		t.Fatal("reconnect event not published")
	}

	require.Eventually(t, func() bool {
		return h.State() == gateway.StateConnected
	}, 3*time.Second, 10*time.Millisecond)
}

func TestNetworkDropResumes(t *testing.T) {
	srv := gatewaytest.New(gatewaytest.Options{AutoAck: true, AutoReady: true, SessionID: "sess-d"})
	defer srv.Close()

	h, err := gateway.Open(context.Background(), srv.URL(), testOptions(types.NewRegistry()))
	require.NoError(t, err)
	defer h.Close()

	_, err = h.Identify(context.Background(), gateway.IdentifyPayload{})
	require.NoError(t, err)
	waitFrame(t, srv, gateway.OpIdentify)

	srv.DropConn()

	resume := waitFrame(t, srv, gateway.OpResume)
	var p gateway.ResumePayload
	require.NoError(t, json.Unmarshal(resume.D, &p))
	require.Equal(t, "sess-d", p.SessionID)
}

func TestInvalidSessionReidentifies(t *testing.T) {
	srv := gatewaytest.New(gatewaytest.Options{AutoAck: true, AutoReady: true})
	defer srv.Close()

	h, err := gateway.Open(context.Background(), srv.URL(), testOptions(types.NewRegistry()))
	require.NoError(t, err)
	defer h.Close()

	invalid := make(chan gateway.InvalidSessionEvent, 1)
	gateway.On(h, func(ev gateway.InvalidSessionEvent) {
		select {
		case invalid <- ev:
		default:
		}
	})

	_, err = h.Identify(context.Background(), gateway.IdentifyPayload{})
	require.NoError(t, err)
	waitFrame(t, srv, gateway.OpIdentify)

	srv.SendRaw(gateway.OpInvalidSession, false)

	select {
	case ev := <-invalid:
		require.False(t, ev.Resumable)
	case <-time.After(time.Second):
		t.Fatal("invalid session event not published")
	}

	// non-resumable: the stored identify is replayed on the fresh socket
	waitFrame(t, srv, gateway.OpIdentify)
	require.Eventually(t, func() bool {
		return h.State() == gateway.StateConnected
	}, 3*time.Second, 10*time.Millisecond)
}

func TestZombieConnectionRecovers(t *testing.T) {
	srv := gatewaytest.New(gatewaytest.Options{
		HeartbeatInterval: 30 * time.Millisecond,
		AutoAck:           false, // starve the client of acks
		AutoReady:         true,
	})
	defer srv.Close()

	opts := testOptions(nil)
	opts.JitterFn = func() float64 { return 0 }
	h, err := gateway.Open(context.Background(), srv.URL(), opts)
	require.NoError(t, err)
	defer h.Close()

	zombies := make(chan error, 1)
	gateway.On(h, func(ev gateway.ErrorEvent) {
		if errors.Is(ev.Err, errs.ErrZombie) {
			select {
			case zombies <- ev.Err:
			default:
			}
		}
	})

	select {
	case <-zombies:
	case <-time.After(3 * time.Second):
		t.Fatal("zombie connection never signaled")
	}
}

func TestMalformedFrameSkipped(t *testing.T) {
	srv := gatewaytest.New(gatewaytest.Options{AutoAck: true, AutoReady: true})
	defer srv.Close()

	h, err := gateway.Open(context.Background(), srv.URL(), testOptions(types.NewRegistry()))
	require.NoError(t, err)
	defer h.Close()

	decodeErrs := make(chan error, 1)
	gateway.On(h, func(ev gateway.ErrorEvent) {
		if errors.Is(ev.Err, errs.ErrDecode) {
			select {
			case decodeErrs <- ev.Err:
			default:
			}
		}
	})
	typing := make(chan types.TypingStart, 1)
	gateway.On(h, func(ev types.TypingStart) {
		select {
		case typing <- ev:
		default:
		}
	})

	_, err = h.Identify(context.Background(), gateway.IdentifyPayload{})
	require.NoError(t, err)

	srv.SendText(`{"op":`)
	srv.SendDispatch("TYPING_START", map[string]any{"channel_id": "1", "user_id": "2", "timestamp": 1})

	select {
	case <-typing:
	case <-time.After(3 * time.Second):
		t.Fatal("listen loop did not survive the malformed frame")
	}
	select {
	case <-decodeErrs:
	case <-time.After(time.Second):
		t.Fatal("malformed frame did not surface as a decode error event")
	}
}

func TestIdentifyTimesOutWithoutReady(t *testing.T) {
	srv := gatewaytest.New(gatewaytest.Options{AutoAck: true, AutoReady: false})
	defer srv.Close()

	opts := testOptions(nil)
	opts.ReplyTimeout = 100 * time.Millisecond
	h, err := gateway.Open(context.Background(), srv.URL(), opts)
	require.NoError(t, err)
	defer h.Close()

	_, err = h.Identify(context.Background(), gateway.IdentifyPayload{})
	require.ErrorIs(t, err, errs.ErrNoResponse)
}

func TestCloseIsIdempotent(t *testing.T) {
	srv := gatewaytest.New(gatewaytest.Options{AutoAck: true, AutoReady: true})
	defer srv.Close()

	h, err := gateway.Open(context.Background(), srv.URL(), testOptions(nil))
	require.NoError(t, err)

	h.Close()
	h.Close()
	require.Equal(t, gateway.StateClosed, h.State())
	require.ErrorIs(t, h.Send(context.Background(), gateway.OpHeartbeat, nil), errs.ErrClosed)
}
