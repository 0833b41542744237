package gateway

import (
	"encoding/json"

	jsoniter "github.com/json-iterator/go"

	errs "PClient/tools/errs"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Gateway opcodes.
const (
	// OpDispatch : server dispatches a named event
	OpDispatch = 0
	// OpHeartbeat : sent on the heartbeat cadence; the server may also send
	// it to request an immediate beat
	OpHeartbeat = 1
	// OpIdentify : starts a fresh session
	OpIdentify = 2
	// OpPresenceUpdate : client presence change
	OpPresenceUpdate = 3
	// OpVoiceStateUpdate : client voice state change (voice transport is a
	// separate protocol; the opcode is passed through here)
	OpVoiceStateUpdate = 4
	// OpResume : resumes a previous session, replaying missed dispatches
	OpResume = 6
	// OpReconnect : server tells us to drop the socket and resume
	OpReconnect = 7
	// OpRequestMembers : asks for guild member chunks
	OpRequestMembers = 8
	// OpInvalidSession : session rejected; `d` says whether resume may be retried
	OpInvalidSession = 9
	// OpHello : first frame of every connection, carries heartbeat_interval
	OpHello = 10
	// OpHeartbeatACK : server acknowledged our heartbeat
	OpHeartbeatACK = 11
)

// Frame is an inbound gateway frame. `d` stays raw until the registry knows
// its type; `s`/`t` are only present on dispatches.
type Frame struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d"`
	S  *int64          `json:"s"`
	T  string          `json:"t"`
}

// sendFrame is the outbound shape; client frames never carry `s` or `t`,
// and `d` must serialize as null when absent (heartbeat with no sequence).
type sendFrame struct {
	Op int `json:"op"`
	D  any `json:"d"`
}

// DecodeFrame parses one whole text frame.
func DecodeFrame(raw []byte) (*Frame, error) {
	f := &Frame{}
	if err := jsonAPI.Unmarshal(raw, f); err != nil {
		return nil, errs.ErrDecode.WrapMsg("unmarshal frame", "err", err)
	}
	return f, nil
}

// EncodeFrame builds an outbound frame for op with payload d (may be nil).
func EncodeFrame(op int, d any) ([]byte, error) {
	return jsonAPI.Marshal(sendFrame{Op: op, D: d})
}
