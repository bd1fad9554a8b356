// Package dbtest contains the test cases shared by every implementation of
// the domain repositories.
package dbtest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/ocean-ntp1/internal/core/domain"
)

// TestUtxoRepository runs the full utxo lifecycle against the given repo,
// which is expected to be empty.
func TestUtxoRepository(
	t *testing.T, ctx context.Context, utxoRepo domain.UtxoRepository,
) {
	newUtxos := NewTestUtxos()
	utxoKeys := make([]domain.Outpoint, 0, len(newUtxos))
	for _, u := range newUtxos {
		utxoKeys = append(utxoKeys, u.Key())
	}

	testAddAndGetUtxos(t, ctx, utxoRepo, newUtxos, utxoKeys)

	testConfirmUtxos(t, ctx, utxoRepo, utxoKeys)

	testLockUtxos(t, ctx, utxoRepo, utxoKeys)

	testUnlockUtxos(t, ctx, utxoRepo, utxoKeys)

	testSpendUtxos(t, ctx, utxoRepo, utxoKeys)

	time.Sleep(500 * time.Millisecond) // wait for events
}

// NewTestUtxos returns 3 unconfirmed utxos: one without tokens, one carrying
// tokens X and Y, one carrying token X only.
func NewTestUtxos() []*domain.Utxo {
	return []*domain.Utxo{
		{
			Outpoint: domain.Outpoint{TxID: TestTxid(1), VOut: 0},
			Value:    10000,
			Script:   []byte{0x76, 0xa9},
		},
		{
			Outpoint: domain.Outpoint{TxID: TestTxid(1), VOut: 1},
			Value:    20000,
			Tokens: domain.TokenAmounts{
				{TokenID: "X", Amount: 5}, {TokenID: "Y", Amount: 3},
			},
			Script: []byte{0x76, 0xa9},
		},
		{
			Outpoint: domain.Outpoint{TxID: TestTxid(2), VOut: 0},
			Value:    30000,
			Tokens:   domain.TokenAmounts{{TokenID: "X", Amount: 7}},
			Script:   []byte{0x76, 0xa9},
		},
	}
}

// TestTxid returns a valid txid, unique for the given number.
func TestTxid(n int) string {
	return fmt.Sprintf("%064x", n)
}

func testAddAndGetUtxos(
	t *testing.T, ctx context.Context,
	utxoRepo domain.UtxoRepository,
	newUtxos []*domain.Utxo, utxoKeys []domain.Outpoint,
) {
	count, err := utxoRepo.AddUtxos(ctx, newUtxos)
	require.NoError(t, err)
	require.Equal(t, len(newUtxos), count)

	count, err = utxoRepo.AddUtxos(ctx, NewTestUtxos())
	require.NoError(t, err)
	require.Zero(t, count)

	utxos, err := utxoRepo.GetAllUtxos(ctx)
	require.NoError(t, err)
	require.Len(t, utxos, len(newUtxos))

	utxos, err = utxoRepo.GetSpendableUtxos(ctx)
	require.NoError(t, err)
	require.Empty(t, utxos)

	keys := append([]domain.Outpoint{}, utxoKeys...)
	keys = append(keys, domain.Outpoint{TxID: TestTxid(99), VOut: 0})
	utxos, err = utxoRepo.GetUtxosByKey(ctx, keys)
	require.NoError(t, err)
	require.Len(t, utxos, len(utxoKeys))
	for i, u := range utxos {
		expected := NewTestUtxos()[i]
		require.Equal(t, expected.Key(), u.Key())
		require.Equal(t, expected.Value, u.Value)
		require.Equal(t, expected.Tokens, u.Tokens)
		require.Equal(t, expected.Script, u.Script)
		require.False(t, u.IsConfirmed())
		require.False(t, u.IsSpent())
		require.False(t, u.IsLocked())
	}

	balance, err := utxoRepo.GetBalance(ctx)
	require.NoError(t, err)
	requireBalance(t, balance, domain.NativeTokenID, domain.Balance{Unconfirmed: 60000})
	requireBalance(t, balance, "X", domain.Balance{Unconfirmed: 12})
	requireBalance(t, balance, "Y", domain.Balance{Unconfirmed: 3})
}

func testConfirmUtxos(
	t *testing.T, ctx context.Context,
	utxoRepo domain.UtxoRepository, utxoKeys []domain.Outpoint,
) {
	status := domain.UtxoStatus{
		BlockHash: TestTxid(100), BlockHeight: 10, BlockTime: time.Now().Unix(),
	}

	count, err := utxoRepo.ConfirmUtxos(ctx, utxoKeys, status)
	require.NoError(t, err)
	require.Equal(t, len(utxoKeys), count)

	count, err = utxoRepo.ConfirmUtxos(ctx, utxoKeys, status)
	require.NoError(t, err)
	require.Zero(t, count)

	utxos, err := utxoRepo.GetSpendableUtxos(ctx)
	require.NoError(t, err)
	require.Len(t, utxos, len(utxoKeys))

	balance, err := utxoRepo.GetBalance(ctx)
	require.NoError(t, err)
	requireBalance(t, balance, domain.NativeTokenID, domain.Balance{Confirmed: 60000})
	requireBalance(t, balance, "X", domain.Balance{Confirmed: 12})
	requireBalance(t, balance, "Y", domain.Balance{Confirmed: 3})
}

func testLockUtxos(
	t *testing.T, ctx context.Context,
	utxoRepo domain.UtxoRepository, utxoKeys []domain.Outpoint,
) {
	now := time.Now().Unix()
	lockedKeys := utxoKeys[:2]

	count, err := utxoRepo.LockUtxos(ctx, lockedKeys, now, now+60)
	require.NoError(t, err)
	require.Equal(t, len(lockedKeys), count)

	count, err = utxoRepo.LockUtxos(ctx, lockedKeys, now, now+60)
	require.NoError(t, err)
	require.Zero(t, count)

	utxos, err := utxoRepo.GetSpendableUtxos(ctx)
	require.NoError(t, err)
	require.Len(t, utxos, len(utxoKeys)-len(lockedKeys))

	utxos, err = utxoRepo.GetLockedUtxos(ctx)
	require.NoError(t, err)
	require.Len(t, utxos, len(lockedKeys))
	for _, u := range utxos {
		require.Equal(t, now, u.LockTimestamp)
		require.Equal(t, now+60, u.LockExpiryTimestamp)
		require.False(t, u.CanUnlock())
	}

	balance, err := utxoRepo.GetBalance(ctx)
	require.NoError(t, err)
	requireBalance(t, balance, domain.NativeTokenID, domain.Balance{
		Confirmed: 30000, Locked: 30000,
	})
	requireBalance(t, balance, "X", domain.Balance{Confirmed: 7, Locked: 5})
	requireBalance(t, balance, "Y", domain.Balance{Locked: 3})
}

func testUnlockUtxos(
	t *testing.T, ctx context.Context,
	utxoRepo domain.UtxoRepository, utxoKeys []domain.Outpoint,
) {
	count, err := utxoRepo.UnlockUtxos(ctx, utxoKeys)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	count, err = utxoRepo.UnlockUtxos(ctx, utxoKeys)
	require.NoError(t, err)
	require.Zero(t, count)

	utxos, err := utxoRepo.GetLockedUtxos(ctx)
	require.NoError(t, err)
	require.Empty(t, utxos)

	utxos, err = utxoRepo.GetSpendableUtxos(ctx)
	require.NoError(t, err)
	require.Len(t, utxos, len(utxoKeys))
}

func testSpendUtxos(
	t *testing.T, ctx context.Context,
	utxoRepo domain.UtxoRepository, utxoKeys []domain.Outpoint,
) {
	status := domain.UtxoStatus{Txid: TestTxid(200)}
	now := time.Now().Unix()

	count, err := utxoRepo.LockUtxos(ctx, utxoKeys[1:2], now, now+60)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	count, err = utxoRepo.SpendUtxos(ctx, utxoKeys[:2], status)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	count, err = utxoRepo.SpendUtxos(ctx, utxoKeys[:2], status)
	require.NoError(t, err)
	require.Zero(t, count)

	// Spent utxos can't be locked anymore.
	count, err = utxoRepo.LockUtxos(ctx, utxoKeys[:2], now, now+60)
	require.NoError(t, err)
	require.Zero(t, count)

	utxos, err := utxoRepo.GetLockedUtxos(ctx)
	require.NoError(t, err)
	require.Empty(t, utxos)

	utxos, err = utxoRepo.GetSpendableUtxos(ctx)
	require.NoError(t, err)
	require.Len(t, utxos, 1)
	require.Equal(t, utxoKeys[2], utxos[0].Key())

	utxos, err = utxoRepo.GetAllUtxos(ctx)
	require.NoError(t, err)
	require.Len(t, utxos, len(utxoKeys))

	balance, err := utxoRepo.GetBalance(ctx)
	require.NoError(t, err)
	requireBalance(t, balance, domain.NativeTokenID, domain.Balance{Confirmed: 30000})
	requireBalance(t, balance, "X", domain.Balance{Confirmed: 7})
	require.NotContains(t, balance, "Y")
}

func requireBalance(
	t *testing.T, balance map[string]*domain.Balance,
	tokenID string, expected domain.Balance,
) {
	require.Contains(t, balance, tokenID)
	require.Equal(t, expected, *balance[tokenID])
}
