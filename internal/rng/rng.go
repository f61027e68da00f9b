// Package rng provides the explicit random generator handle threaded through
// every sampling call, plus the distribution samplers built on it.
package rng

import (
	"encoding/binary"
	"math/rand/v2"

	"github.com/spaolacci/murmur3"
)

// Source is the subset of *rand.Rand the samplers draw from.
// Tests substitute a scripted implementation to force gate outcomes.
type Source interface {
	Float64() float64
	NormFloat64() float64
	ExpFloat64() float64
	IntN(n int) int
	Uint64() uint64
}

// New returns a generator seeded once from seed.
func New(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Derive returns an independent generator for (seed, label, key).
// The same triple always yields the same stream, regardless of which
// goroutine asks for it.
func Derive(seed uint64, label string, key int64) *rand.Rand {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], seed)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(key))

	h := murmur3.New128WithSeed(uint32(seed))
	_, _ = h.Write([]byte(label))
	_, _ = h.Write(buf[:])
	hi, lo := h.Sum128()
	return rand.New(rand.NewPCG(hi, lo))
}

// Reader adapts a Source into an io.Reader so id generators
// (uuid, ULID) consume the same deterministic stream.
type Reader struct {
	src Source
}

// NewReader wraps src.
func NewReader(src Source) *Reader {
	return &Reader{src: src}
}

// Read fills p with bytes drawn from the source. It never fails.
func (r *Reader) Read(p []byte) (int, error) {
	var word [8]byte
	for i := 0; i < len(p); i += 8 {
		binary.LittleEndian.PutUint64(word[:], r.src.Uint64())
		copy(p[i:], word[:])
	}
	return len(p), nil
}
