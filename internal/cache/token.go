package cache

import (
	"sync"

	"github.com/google/uuid"
)

// TokenSource produces build tokens: opaque identifiers recorded with a
// cached graph to name the build that first stored it.
type TokenSource interface {
	Token() string
}

// UUIDv7Source issues time-sortable UUIDv7 build tokens. The embedded
// timestamp makes rows sort by first-write time, which helps when
// inspecting a cache by hand.
//
// Thread-safety: UUIDv7Source is stateless and safe for concurrent use.
type UUIDv7Source struct{}

// Token returns a new UUIDv7 as a hyphenated string. Panics if UUID
// generation fails, which does not happen in practice.
func (UUIDv7Source) Token() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedSource returns predetermined tokens in order, for tests that want
// byte-identical cache contents across runs.
//
// Thread-safety: FixedSource is safe for concurrent use via internal
// mutex.
type FixedSource struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedSource creates a source that hands out the given tokens in
// order.
func NewFixedSource(tokens ...string) *FixedSource {
	return &FixedSource{tokens: tokens}
}

// Token returns the next predetermined token. It panics when all tokens
// are consumed, failing fast on a misconfigured test.
func (s *FixedSource) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.idx >= len(s.tokens) {
		panic("FixedSource: all tokens exhausted")
	}
	token := s.tokens[s.idx]
	s.idx++
	return token
}
