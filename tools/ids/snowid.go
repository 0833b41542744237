package ids

import (
	"strconv"
	"sync"
	"time"
)

// EntityID is a 64-bit, time-ordered snowflake identifier. Every server-side
// entity (user, channel, guild, role, message ...) carries exactly one, and
// an ID is never reused across distinct entity kinds.
//
// On the wire IDs travel as decimal strings; bare numbers are accepted too.
type EntityID int64

const (
	timestampBits = 41
	nodeBits      = 10
	seqBits       = 12
)

// epochMS is the platform epoch (2020-01-01 UTC), milliseconds.
var epochMS = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

func (id EntityID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Timestamp extracts the creation time encoded in the ID.
func (id EntityID) Timestamp() time.Time {
	ms := (int64(id) >> (nodeBits + seqBits)) + epochMS
	return time.UnixMilli(ms).UTC()
}

func (id EntityID) IsZero() bool { return id == 0 }

func (id EntityID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.String() + `"`), nil
}

func (id *EntityID) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "null" {
		*id = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*id = EntityID(n)
	return nil
}

// Parse converts a decimal string into an EntityID.
func Parse(s string) (EntityID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return EntityID(n), nil
}

// ---------------- local generator ----------------
//
// The server assigns entity IDs; the local generator exists for client-side
// artifacts that want the same shape (nonces, locally created drafts).

type generator struct {
	mu       sync.Mutex
	nodeID   int64 // 0~1023
	seq      int64 // 0~4095
	lastTSMS int64
}

var (
	defaultGen *generator
	once       sync.Once
)

func initDefault() {
	once.Do(func() {
		defaultGen = &generator{nodeID: 1}
	})
}

// Generate returns a fresh locally minted EntityID.
func Generate() EntityID {
	initDefault()
	return EntityID(defaultGen.next())
}

func GenerateString() string {
	return Generate().String()
}

// SetNodeID sets the generator node (0~1023); call once at startup.
func SetNodeID(nodeID int64) {
	initDefault()
	if nodeID < 0 || nodeID > 1023 {
		nodeID = 1
	}
	defaultGen.nodeID = nodeID
}

func (g *generator) next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	for {
		now := time.Now().UnixMilli()
		if now < g.lastTSMS {
			// clock went backwards, wait it out
			time.Sleep(time.Duration(g.lastTSMS-now) * time.Millisecond)
			continue
		}
		if now == g.lastTSMS {
			g.seq = (g.seq + 1) & (1<<seqBits - 1)
			if g.seq == 0 {
				for now <= g.lastTSMS {
					now = time.Now().UnixMilli()
				}
			}
		} else {
			g.seq = 0
		}
		g.lastTSMS = now

		ts := (now - epochMS) & (1<<timestampBits - 1)
		return (ts << (nodeBits + seqBits)) | (g.nodeID << seqBits) | g.seq
	}
}
