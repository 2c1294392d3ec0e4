package engine

import (
	"sync"

	"github.com/google/uuid"
)

// OpTokenGenerator generates correlation tokens for engine operations.
// Every public operation is stamped with one token that appears in all of
// its log lines, so a payment and the state write it gated can be tied
// together after the fact.
//
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type OpTokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 operation tokens.
//
// UUIDv7 embeds a timestamp in the most significant bits, making tokens
// sortable by creation time, which keeps audit logs readable.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined tokens for testing. This enables
// deterministic log and trace comparison in golden tests.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedGenerator creates a generator that yields the given tokens in
// order, then falls back to "op-fixed" once exhausted.
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

// Generate returns the next predetermined token.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.tokens) {
		return "op-fixed"
	}
	tok := g.tokens[g.idx]
	g.idx++
	return tok
}
