package bloom

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/golang/snappy"
)

// Algorithm names the hashing scheme recorded in encoded filters.
const Algorithm = "murmur3_128"

// Encoded is the JSON form of a filter. Data is the little-endian bit array,
// Snappy block-compressed and base64 encoded.
type Encoded struct {
	Algorithm string `json:"algorithm"`
	NumBits   int    `json:"num_bits"`
	NumHashes int    `json:"num_hashes"`
	Count     uint64 `json:"count"`
	Data      string `json:"data"`
}

// Encode captures the filter for a sidecar.
func (f *Filter) Encode() Encoded {
	raw := make([]byte, len(f.words)*8)
	for i, w := range f.words {
		binary.LittleEndian.PutUint64(raw[i*8:], w)
	}
	return Encoded{
		Algorithm: Algorithm,
		NumBits:   int(f.m),
		NumHashes: int(f.k),
		Count:     f.count,
		Data:      base64.StdEncoding.EncodeToString(snappy.Encode(nil, raw)),
	}
}

// Decode rebuilds a filter produced by Encode.
func Decode(e Encoded) (*Filter, error) {
	if e.Algorithm != Algorithm {
		return nil, fmt.Errorf("bloom: unsupported algorithm %q", e.Algorithm)
	}
	if e.NumBits <= 0 || e.NumBits%64 != 0 || e.NumHashes <= 0 {
		return nil, errors.New("bloom: invalid filter parameters")
	}

	compressed, err := base64.StdEncoding.DecodeString(e.Data)
	if err != nil {
		return nil, fmt.Errorf("bloom: invalid base64 data: %w", err)
	}
	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("bloom: snappy decompress failed: %w", err)
	}
	if len(raw) != e.NumBits/8 {
		return nil, fmt.Errorf("bloom: expected %d bytes, got %d", e.NumBits/8, len(raw))
	}

	f := New(e.NumBits, e.NumHashes)
	for i := range f.words {
		f.words[i] = binary.LittleEndian.Uint64(raw[i*8:])
	}
	f.count = e.Count
	return f, nil
}
