package errs

// Gateway error taxonomy. Connection and zombie errors are self-healing and
// only ever surface as error events; decode errors are recovered locally;
// a cache type mismatch is a programming error and aborts.
var (
	// ErrConnection : the transport could not be established or broke mid-stream.
	ErrConnection = NewCodeError(30001, "gateway connection error")

	// ErrProtocol : a frame with an unexpected opcode or shape for the current
	// connection state (for example anything but Hello as the first frame).
	ErrProtocol = NewCodeError(30002, "gateway protocol error")

	// ErrDecode : a dispatch payload did not match its declared event-type tag.
	ErrDecode = NewCodeError(30003, "gateway decode error")

	// ErrZombie : the server stopped acknowledging heartbeats.
	ErrZombie = NewCodeError(30004, "zombie connection")

	// ErrCacheTypeMismatch : one EntityID observed as two distinct entity
	// kinds. Unrecoverable; the store panics with this rather than corrupt
	// the cache.
	ErrCacheTypeMismatch = NewCodeError(30005, "entity cache type mismatch")

	// ErrNoResponse : the server did not answer an identify/resume in time.
	ErrNoResponse = NewCodeError(30006, "no response from gateway")

	// ErrClosed : operation on a gateway that was explicitly closed.
	ErrClosed = NewCodeError(30007, "gateway closed")
)
