// Package raffle defines the domain model for the raffle engine: raffle
// records, entrant ledgers, and the typed error taxonomy shared by every
// engine operation.
//
// The types here are plain data. All orchestration, time gating, and
// external transfers live in internal/engine; winner derivation lives in
// internal/draw. Keeping the model inert makes the accounting invariants
// (capacity, claim-at-most-once, seed set exactly once) checkable without
// any collaborator in scope.
package raffle
