package gateway

// Protocol-level payloads: everything the connection itself sends or consumes
// during its lifecycle. Domain event payloads live in the types package and
// reach the connection only through the dispatch registry.

// HelloData is the `d` of the mandatory first frame.
type HelloData struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"` // milliseconds
}

// IdentifyProperties describe the connecting client.
type IdentifyProperties struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Device  string `json:"device"`
}

// IdentifyPayload starts a fresh session. Optional fields must not serialize
// when unset; the server treats presence and absence differently.
type IdentifyPayload struct {
	Token      string             `json:"token"`
	Properties IdentifyProperties `json:"properties"`

	Compress       *bool   `json:"compress,omitempty"`
	LargeThreshold *int    `json:"large_threshold,omitempty"`
	Shard          *[2]int `json:"shard,omitempty"` // opaque passthrough
	Intents        *uint64 `json:"intents,omitempty"`
	Capabilities   *uint64 `json:"capabilities,omitempty"`
}

// ResumePayload asks the server to replay dispatches since Seq for SessionID.
type ResumePayload struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Seq       int64  `json:"seq"`
}

// heartbeatPayload: `d` is the last seen sequence, or null before the first
// dispatch. A typed nil keeps the null on the wire.
func heartbeatPayload(seq *int64) any {
	if seq == nil {
		return nil
	}
	return *seq
}

// readyEnvelope is the slice of READY the connection itself needs to populate
// the session; the full typed event is decoded separately by the registry.
type readyEnvelope struct {
	SessionID        string `json:"session_id"`
	ResumeGatewayURL string `json:"resume_gateway_url"`
}
