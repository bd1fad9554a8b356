package dbtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/ocean-ntp1/internal/core/domain"
)

// TestTransactionRepository runs add, confirm, get and update against the
// given repo, which is expected to be empty.
func TestTransactionRepository(
	t *testing.T, ctx context.Context, txRepo domain.TransactionRepository,
) {
	txs := NewTestTransactions()

	testAddAndGetTransactions(t, ctx, txRepo, txs)

	testConfirmTransaction(t, ctx, txRepo, txs[0].TxID)

	testUpdateTransaction(t, ctx, txRepo, txs[1].TxID)

	time.Sleep(500 * time.Millisecond) // wait for events
}

// NewTestTransactions returns 2 unconfirmed txs matching the utxos returned
// by NewTestUtxos.
func NewTestTransactions() []*domain.Transaction {
	return []*domain.Transaction{
		{
			TxID: TestTxid(1),
			Outputs: []domain.TxOutput{
				{Value: 10000, Script: []byte{0x76, 0xa9}},
				{
					Value: 20000,
					Tokens: domain.TokenAmounts{
						{TokenID: "X", Amount: 5}, {TokenID: "Y", Amount: 3},
					},
					Script: []byte{0x76, 0xa9},
				},
			},
		},
		{
			TxID: TestTxid(2),
			Outputs: []domain.TxOutput{
				{
					Value:  30000,
					Tokens: domain.TokenAmounts{{TokenID: "X", Amount: 7}},
					Script: []byte{0x76, 0xa9},
				},
			},
		},
	}
}

func testAddAndGetTransactions(
	t *testing.T, ctx context.Context,
	txRepo domain.TransactionRepository, txs []*domain.Transaction,
) {
	for _, tx := range txs {
		done, err := txRepo.AddTransaction(ctx, tx)
		require.NoError(t, err)
		require.True(t, done)

		done, err = txRepo.AddTransaction(ctx, tx)
		require.NoError(t, err)
		require.False(t, done)
	}

	for _, expected := range NewTestTransactions() {
		tx, err := txRepo.GetTransaction(ctx, expected.TxID)
		require.NoError(t, err)
		require.Equal(t, expected, tx)
		require.False(t, tx.IsConfirmed())
	}

	tx, err := txRepo.GetTransaction(ctx, TestTxid(99))
	require.True(t, errors.Is(err, domain.ErrTransactionNotFound))
	require.Nil(t, tx)

	all, err := txRepo.GetAllTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, all, len(txs))
	require.Equal(t, TestTxid(1), all[0].TxID)
	require.Equal(t, TestTxid(2), all[1].TxID)
}

func testConfirmTransaction(
	t *testing.T, ctx context.Context,
	txRepo domain.TransactionRepository, txid string,
) {
	blockHash := TestTxid(100)
	blockTime := time.Now().Unix()

	done, err := txRepo.ConfirmTransaction(ctx, txid, blockHash, 10, blockTime)
	require.NoError(t, err)
	require.True(t, done)

	done, err = txRepo.ConfirmTransaction(ctx, txid, TestTxid(101), 11, blockTime)
	require.NoError(t, err)
	require.False(t, done)

	tx, err := txRepo.GetTransaction(ctx, txid)
	require.NoError(t, err)
	require.True(t, tx.IsConfirmed())
	require.Equal(t, blockHash, tx.BlockHash)
	require.Equal(t, uint64(10), tx.BlockHeight)
	require.Equal(t, blockTime, tx.BlockTime)

	done, err = txRepo.ConfirmTransaction(ctx, TestTxid(99), blockHash, 10, blockTime)
	require.True(t, errors.Is(err, domain.ErrTransactionNotFound))
	require.False(t, done)
}

func testUpdateTransaction(
	t *testing.T, ctx context.Context,
	txRepo domain.TransactionRepository, txid string,
) {
	err := txRepo.UpdateTransaction(
		ctx, txid, func(tx *domain.Transaction) (*domain.Transaction, error) {
			tx.Outputs = append(tx.Outputs, domain.TxOutput{Value: 5000})
			return tx, nil
		},
	)
	require.NoError(t, err)

	tx, err := txRepo.GetTransaction(ctx, txid)
	require.NoError(t, err)
	require.Len(t, tx.Outputs, 2)
	require.Equal(t, int64(5000), tx.Outputs[1].Value)

	err = txRepo.UpdateTransaction(
		ctx, txid, func(tx *domain.Transaction) (*domain.Transaction, error) {
			return nil, errors.New("abort")
		},
	)
	require.EqualError(t, err, "abort")

	tx, err = txRepo.GetTransaction(ctx, txid)
	require.NoError(t, err)
	require.Len(t, tx.Outputs, 2)

	err = txRepo.UpdateTransaction(
		ctx, TestTxid(99), func(tx *domain.Transaction) (*domain.Transaction, error) {
			return tx, nil
		},
	)
	require.True(t, errors.Is(err, domain.ErrTransactionNotFound))
}
