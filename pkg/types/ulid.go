package types

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"io"
	"sync"
	"time"
)

// ULID is a 128-bit lexicographically sortable identifier:
// 48-bit millisecond timestamp followed by 80 bits of entropy.
type ULID [16]byte

// Crockford's Base32 alphabet (excludes I, L, O, U to avoid confusion)
const crockfordBase32 = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// ULIDGenerator produces ULIDs that are monotonic within a millisecond.
// Entropy comes from the supplied reader so a seeded stream yields
// reproducible identifiers.
type ULIDGenerator struct {
	mu            sync.Mutex
	entropy       io.Reader
	lastTimestamp uint64
	lastRandom    [10]byte
	started       bool
}

// NewULIDGenerator creates a generator reading entropy from r.
// A nil reader falls back to crypto/rand.
func NewULIDGenerator(r io.Reader) *ULIDGenerator {
	if r == nil {
		r = rand.Reader
	}
	return &ULIDGenerator{entropy: r}
}

// GenerateWithTime creates a ULID stamped with t.
// Calls with the same millisecond increment the entropy component.
func (g *ULIDGenerator) GenerateWithTime(t time.Time) (ULID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts := uint64(t.UnixMilli())

	if g.started && ts == g.lastTimestamp {
		g.incrementRandom()
	} else {
		if _, err := io.ReadFull(g.entropy, g.lastRandom[:]); err != nil {
			return ULID{}, err
		}
		g.lastTimestamp = ts
		g.started = true
	}

	return NewULIDFromTimestamp(ts, g.lastRandom[:]), nil
}

func (g *ULIDGenerator) incrementRandom() {
	for i := len(g.lastRandom) - 1; i >= 0; i-- {
		g.lastRandom[i]++
		if g.lastRandom[i] != 0 {
			return
		}
	}
}

// NewULIDFromTimestamp assembles a ULID from a millisecond timestamp and 10 entropy bytes.
func NewULIDFromTimestamp(timestamp uint64, random []byte) ULID {
	var u ULID
	binary.BigEndian.PutUint64(u[0:8], timestamp<<16)
	copy(u[6:], random[:10])
	return u
}

// Timestamp returns the millisecond timestamp component.
func (u ULID) Timestamp() uint64 {
	return binary.BigEndian.Uint64(u[0:8]) >> 16
}

// Time returns the timestamp component as a UTC time.
func (u ULID) Time() time.Time {
	return time.UnixMilli(int64(u.Timestamp())).UTC()
}

// Compare orders two ULIDs lexicographically.
func (u ULID) Compare(other ULID) int {
	return bytes.Compare(u[:], other[:])
}

// String returns the 26-character Crockford Base32 form.
func (u ULID) String() string {
	hi := binary.BigEndian.Uint64(u[0:8])
	lo := binary.BigEndian.Uint64(u[8:16])

	var buf [26]byte
	for i := range buf {
		shift := uint(125 - 5*i)
		var v uint64
		switch {
		case shift >= 64:
			v = hi >> (shift - 64)
		case shift+5 <= 64:
			v = lo >> shift
		default:
			v = lo>>shift | hi<<(64-shift)
		}
		buf[i] = crockfordBase32[v&31]
	}
	return string(buf[:])
}

// ParseULID parses the 26-character Crockford Base32 form.
func ParseULID(s string) (ULID, error) {
	if len(s) != 26 {
		return ULID{}, ErrInvalidULIDLength
	}

	var hi, lo uint64
	for i := 0; i < len(s); i++ {
		v := decodeBase32(s[i])
		if v == 0xFF || (i == 0 && v > 7) {
			return ULID{}, ErrInvalidULIDCharacter
		}
		hi = hi<<5 | lo>>59
		lo = lo<<5 | uint64(v)
	}

	var u ULID
	binary.BigEndian.PutUint64(u[0:8], hi)
	binary.BigEndian.PutUint64(u[8:16], lo)
	return u, nil
}

// decodeBase32 decodes a single Crockford Base32 character.
// Returns 0xFF for invalid characters.
func decodeBase32(c byte) byte {
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	if i := bytes.IndexByte([]byte(crockfordBase32), c); i >= 0 {
		return byte(i)
	}
	return 0xFF
}
