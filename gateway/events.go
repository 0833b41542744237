package gateway

// Protocol-level events published by the connection itself. Domain dispatches
// are defined in the types package; these exist even with an empty registry.

// ErrorEvent surfaces connection and protocol failures to subscribers. The
// gateway keeps running (or recovering) after publishing one; fatal teardown
// only happens through Close.
type ErrorEvent struct {
	Err error
}

func (ErrorEvent) EventType() string { return "__gateway_error__" }

// ReconnectEvent is published when the server sends opcode Reconnect and the
// gateway begins cycling the connection.
type ReconnectEvent struct{}

func (ReconnectEvent) EventType() string { return "__gateway_reconnect__" }

// InvalidSessionEvent is published when the server rejects the session.
// Resumable tells whether the gateway will retry with Resume or fall back to
// a fresh Identify.
type InvalidSessionEvent struct {
	Resumable bool
}

func (InvalidSessionEvent) EventType() string { return "__gateway_invalid_session__" }

// sessionReady is the internal signal Identify awaits: the connection decoded
// enough of READY to track the session.
type sessionReady struct {
	SessionID string
	ResumeURL string
}

func (sessionReady) EventType() string { return "__session_ready__" }

// sessionResumed is the internal signal Resume awaits.
type sessionResumed struct{}

func (sessionResumed) EventType() string { return "__session_resumed__" }

// State names the connection lifecycle phase.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateAwaitingHello
	StateIdentifying
	StateConnected
	StateReconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAwaitingHello:
		return "awaiting_hello"
	case StateIdentifying:
		return "identifying"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
