package raffle

// Identity is an opaque, equality-comparable caller identity.
// The engine never inspects its contents; it only compares it against the
// record's creator and against ledger entries.
type Identity string

// Token names an asset denomination understood by the AssetTransfer
// collaborator. Like Identity, the engine treats it as opaque.
type Token string

// ID identifies a raffle. IDs are allocated by the store from a single
// monotonically increasing counter: no two raffles ever share an ID, and
// IDs are never reused after closure.
type ID uint64

// SeedSize is the fixed width of a revealed seed in bytes.
const SeedSize = 32

// Seed is the raffle's revealed random value. A fixed-size array (rather
// than a nullable slice) keeps the record layout fixed; presence is tracked
// by the explicit SeedSet flag on the Record.
type Seed [SeedSize]byte

// Record holds per-raffle metadata, state, and counters.
//
// INVARIANTS:
//   - ClaimedPrizes == len(Claimed) at all times
//   - ClaimedPrizes <= TotalPrizes
//   - SeedSet transitions false -> true exactly once and never reverts
//   - EndTime is immutable after creation
type Record struct {
	ID            ID
	Creator       Identity
	TotalPrizes   uint64
	ClaimedPrizes uint64
	Seed          Seed
	SeedSet       bool
	EndTime       int64
	TicketPrice   uint64

	// Claimed tracks which prize indices have been claimed. The map is the
	// source of truth; ClaimedPrizes mirrors its cardinality so the counter
	// can be persisted and range-checked without walking the set.
	Claimed map[uint64]struct{}
}

// ClaimedAt reports whether the prize at index i has already been claimed.
func (r *Record) ClaimedAt(i uint64) bool {
	_, ok := r.Claimed[i]
	return ok
}

// MarkClaimed records the prize at index i as claimed and keeps the
// ClaimedPrizes counter equal to the set's cardinality. Marking an
// already-claimed index is a no-op; callers check ClaimedAt first.
func (r *Record) MarkClaimed(i uint64) {
	if r.Claimed == nil {
		r.Claimed = make(map[uint64]struct{})
	}
	if _, ok := r.Claimed[i]; ok {
		return
	}
	r.Claimed[i] = struct{}{}
	r.ClaimedPrizes++
}

// Clone returns a deep copy of the record. Stores hand out clones so that
// no caller can mutate persisted state behind the engine's back.
func (r *Record) Clone() *Record {
	out := *r
	if r.Claimed != nil {
		out.Claimed = make(map[uint64]struct{}, len(r.Claimed))
		for k := range r.Claimed {
			out.Claimed[k] = struct{}{}
		}
	}
	return &out
}

// Ledger is the append-only list of ticket holders for one raffle.
// A holder's position in Entrants is its ticket index; one identity may
// occupy many positions (one entry per ticket bought).
type Ledger struct {
	RaffleID ID
	Max      uint64
	Entrants []Identity
}

// Total returns the number of tickets sold. Deriving it from the slice
// length makes len(Entrants) == total structural rather than maintained.
func (l *Ledger) Total() uint64 {
	return uint64(len(l.Entrants))
}

// Remaining returns how many tickets are still available.
func (l *Ledger) Remaining() uint64 {
	return l.Max - l.Total()
}

// Append adds count consecutive tickets held by holder. Capacity is the
// engine's precondition to enforce; Append itself only appends.
func (l *Ledger) Append(holder Identity, count uint64) {
	for i := uint64(0); i < count; i++ {
		l.Entrants = append(l.Entrants, holder)
	}
}

// Holder returns the identity at the given ticket index.
func (l *Ledger) Holder(ticketIndex uint64) (Identity, bool) {
	if ticketIndex >= uint64(len(l.Entrants)) {
		return "", false
	}
	return l.Entrants[ticketIndex], true
}

// Clone returns a deep copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	out := *l
	if l.Entrants != nil {
		out.Entrants = make([]Identity, len(l.Entrants))
		copy(out.Entrants, l.Entrants)
	}
	return &out
}
