// Package draw derives raffle seeds and resolves winning tickets.
//
// Both computations are pure: the same inputs always produce the same
// outputs, across processes and restarts. This is what lets a claim be
// verified after the fact — anyone holding the revealed seed can recompute
// every winner.
package draw

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/roach88/tombola/internal/raffle"
)

// Domain prefixes for hash derivation. The version suffix enables future
// algorithm migration without ambiguity against old values.
const (
	DomainSeed   = "tombola/seed/v1"
	DomainWinner = "tombola/winner/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + part...)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, parts ...[]byte) [sha256.Size]byte {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	for _, p := range parts {
		h.Write(p)
	}
	var out [sha256.Size]byte
	copy(out[:], h.Sum(nil))
	return out
}

// DeriveSeed derives a raffle seed from the host's sequence number at
// reveal time.
//
// The sequence number is unpredictable before the reveal call but
// reproducible afterwards, which makes every later winner resolution
// auditable. A caller who can influence sequencing around the reveal can
// bias the result; hosts that need manipulation resistance should feed a
// committed or verifiable random value through the Clock instead — the
// resolver below does not care where the seed came from.
func DeriveSeed(sequence uint64) raffle.Seed {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], sequence)
	return hashWithDomain(DomainSeed, buf[:])
}

// Resolve maps (seed, prize index) to a winning ticket index.
//
// The digest of seed || big-endian(prizeIndex) is interpreted as an
// unsigned 256-bit integer and reduced modulo entrantCount. The full
// digest is used so the only bias is the modulo itself, which is
// negligible for any realistic entrant count.
//
// entrantCount of zero is undefined input; callers must reject it before
// resolving.
func Resolve(seed raffle.Seed, prizeIndex, entrantCount uint64) (uint64, error) {
	if entrantCount == 0 {
		return 0, fmt.Errorf("resolve winner: entrant count is zero")
	}

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], prizeIndex)
	digest := hashWithDomain(DomainWinner, seed[:], buf[:])

	n := new(big.Int).SetBytes(digest[:])
	n.Mod(n, new(big.Int).SetUint64(entrantCount))
	return n.Uint64(), nil
}
