// Package rand generates the random identifiers used on the wire and for
// record keys. None of them are security sensitive.
package rand

import (
	cryptorand "crypto/rand"
	"math/rand/v2"
	"sync"
)

const (
	requestIDChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	recordKeyChars = "abcdefghijklmnopqrstuvwxyz0123456789"

	// RecordKeyLength is the length of generated record ids, as SurrealDB makes them.
	RecordKeyLength = 20
)

// source is a seeded generator shared by every caller.
type source struct {
	mu  sync.Mutex
	rng *rand.Rand
}

var shared = newSource()

func newSource() *source {
	var seed [32]byte
	if _, err := cryptorand.Read(seed[:]); err != nil {
		panic(err)
	}
	return seededSource(seed)
}

func seededSource(seed [32]byte) *source {
	return &source{rng: rand.New(rand.NewChaCha8(seed))}
}

// pick returns n characters drawn uniformly from chars.
func (s *source) pick(chars string, n int) string {
	buf := make([]byte, n)

	s.mu.Lock()
	for i := range buf {
		buf[i] = chars[s.rng.IntN(len(chars))]
	}
	s.mu.Unlock()

	return string(buf)
}

// NewRequestID returns an alphanumeric RPC request id of the given length.
func NewRequestID(length int) string {
	return shared.pick(requestIDChars, length)
}

// NewRecordKey returns a lowercase alphanumeric key for a record created
// without an explicit id.
func NewRecordKey() string {
	return shared.pick(recordKeyChars, RecordKeyLength)
}
