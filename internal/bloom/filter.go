// Package bloom provides the membership filter stored in warehouse sidecars.
// A filter answers "might this user_id appear in the table" with no false
// negatives.
package bloom

import (
	"encoding/binary"
	"math"

	"github.com/spaolacci/murmur3"
)

// Filter is a fixed-size bloom filter using double hashing over murmur3_128.
type Filter struct {
	words  []uint64
	m      uint64
	k      uint64
	count  uint64
	keyBuf [8]byte
}

// New creates a filter with at least numBits bits and numHashes probes.
// numBits is rounded up to a whole word.
func New(numBits, numHashes int) *Filter {
	if numBits <= 0 {
		numBits = 1024
	}
	if numHashes <= 0 {
		numHashes = 7
	}
	words := (numBits + 63) / 64
	return &Filter{
		words: make([]uint64, words),
		m:     uint64(words * 64),
		k:     uint64(numHashes),
	}
}

// ForCapacity sizes a filter for n keys at false positive rate fpr.
func ForCapacity(n int, fpr float64) *Filter {
	return New(Params(n, fpr))
}

// Params returns the optimal bit and probe counts:
// m = -n ln(p) / ln(2)^2 and k = (m/n) ln(2).
func Params(n int, fpr float64) (numBits, numHashes int) {
	if n <= 0 {
		n = 1
	}
	if fpr <= 0 || fpr >= 1 {
		fpr = 0.01
	}
	m := -float64(n) * math.Log(fpr) / (math.Ln2 * math.Ln2)
	numBits = max(int(math.Ceil(m)), 64)
	numHashes = max(int(math.Ceil(m/float64(n)*math.Ln2)), 1)
	return numBits, numHashes
}

// Add inserts a raw key.
func (f *Filter) Add(key []byte) {
	h1, h2 := murmur3.Sum128(key)
	for i := uint64(0); i < f.k; i++ {
		pos := (h1 + i*h2) % f.m
		f.words[pos>>6] |= 1 << (pos & 63)
	}
	f.count++
}

// Has reports whether key might have been added.
func (f *Filter) Has(key []byte) bool {
	h1, h2 := murmur3.Sum128(key)
	for i := uint64(0); i < f.k; i++ {
		pos := (h1 + i*h2) % f.m
		if f.words[pos>>6]&(1<<(pos&63)) == 0 {
			return false
		}
	}
	return true
}

// AddID inserts an integer id encoded big-endian.
func (f *Filter) AddID(id int64) {
	binary.BigEndian.PutUint64(f.keyBuf[:], uint64(id))
	f.Add(f.keyBuf[:])
}

// HasID reports whether id might have been added.
func (f *Filter) HasID(id int64) bool {
	binary.BigEndian.PutUint64(f.keyBuf[:], uint64(id))
	return f.Has(f.keyBuf[:])
}

// NumBits returns m.
func (f *Filter) NumBits() int { return int(f.m) }

// NumHashes returns k.
func (f *Filter) NumHashes() int { return int(f.k) }

// Count returns how many keys were added, duplicates included.
func (f *Filter) Count() uint64 { return f.count }

// EstimatedFPR is (1 - e^(-kn/m))^k for the current count.
func (f *Filter) EstimatedFPR() float64 {
	if f.count == 0 {
		return 0
	}
	k, n, m := float64(f.k), float64(f.count), float64(f.m)
	return math.Pow(1-math.Exp(-k*n/m), k)
}
