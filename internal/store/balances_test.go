package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tombola/internal/assets"
)

// TestSQLite_Transfer tests mint, transfer, and the overdraw rejection.
func TestSQLite_Transfer(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "tombola.db"))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Mint(ctx, "USDC", "alice", 1000))

	require.NoError(t, s.Transfer(ctx, "USDC", "alice", "escrow", 300))

	got, err := s.Balance(ctx, "USDC", "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(700), got)
	got, err = s.Balance(ctx, "USDC", "escrow")
	require.NoError(t, err)
	assert.Equal(t, uint64(300), got)

	// Overdraw fails and moves nothing.
	err = s.Transfer(ctx, "USDC", "alice", "escrow", 701)
	require.ErrorIs(t, err, assets.ErrInsufficientFunds)
	got, err = s.Balance(ctx, "USDC", "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(700), got)
}

// TestSQLite_Transfer_TokensIsolated tests balances are per token.
func TestSQLite_Transfer_TokensIsolated(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "tombola.db"))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Mint(ctx, "USDC", "alice", 100))

	err = s.Transfer(ctx, "SOL", "alice", "bob", 1)
	assert.ErrorIs(t, err, assets.ErrInsufficientFunds)
}
