// Package harness runs YAML-described raffle lifecycle scenarios against
// an in-memory engine with a manually advanced clock.
//
// A scenario funds accounts, executes a sequence of operations (with
// expected outcomes per step), and asserts on final state. Executions
// are fully deterministic, so traces are also snapshotted with golden
// files: any change to operation ordering, error codes, or winner
// derivation shows up as a golden diff.
package harness
