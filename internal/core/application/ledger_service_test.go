package application_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/ocean-ntp1/internal/core/application"
	"github.com/vulpemventures/ocean-ntp1/internal/core/domain"
	"github.com/vulpemventures/ocean-ntp1/internal/infrastructure/storage/db/inmemory"
)

func TestLedgerService(t *testing.T) {
	repoManager := newRepoManagerWithLedger(t)
	svc := application.NewLedgerService(repoManager)

	// Importing the same txs again is a no-op.
	for _, tx := range newTestTransactions() {
		count, err := svc.ImportTransaction(ctx, tx, []uint32{0, 1})
		require.NoError(t, err)
		require.Zero(t, count)
	}

	balance, err := svc.GetBalance(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.Balance{Confirmed: 180000}, *balance[domain.NativeTokenID])
	require.Equal(t, domain.Balance{Confirmed: 12}, *balance["X"])
	require.Equal(t, domain.Balance{Confirmed: 3}, *balance["Y"])

	utxos, err := svc.ListUtxos(ctx)
	require.NoError(t, err)
	require.Len(t, utxos.Spendable, 4)
	require.Empty(t, utxos.Locked)

	count, err := svc.AddTokens(ctx, []*domain.Token{
		{TokenID: "X", Name: "Xeno", Symbol: "XNO"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, count)

	tokens, err := svc.ListTokens(ctx)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	require.Equal(t, "Xeno", tokens[0].DisplayName())

	_, err = svc.AddTokens(ctx, []*domain.Token{{TokenID: domain.NativeTokenID}})
	require.Error(t, err)

	// A new unconfirmed tx spending the native output of tx 1.
	tx := &domain.Transaction{
		TxID: txid(3),
		Outputs: []domain.TxOutput{
			{Value: 5000},
			{Value: 40000, Tokens: domain.TokenAmounts{{TokenID: "Z", Amount: 1}}},
		},
	}
	count, err = svc.SpendUtxos(ctx, []domain.Outpoint{op(1, 1)}, tx.TxID)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	count, err = svc.ImportTransaction(ctx, tx, []uint32{1})
	require.NoError(t, err)
	require.Equal(t, 1, count)

	balance, err = svc.GetBalance(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.Balance{
		Confirmed: 130000, Unconfirmed: 40000,
	}, *balance[domain.NativeTokenID])
	require.Equal(t, domain.Balance{Unconfirmed: 1}, *balance["Z"])

	err = svc.ConfirmTransaction(ctx, tx.TxID, txid(101), 11, 1700000600)
	require.NoError(t, err)

	balance, err = svc.GetBalance(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.Balance{Confirmed: 170000}, *balance[domain.NativeTokenID])
	require.Equal(t, domain.Balance{Confirmed: 1}, *balance["Z"])

	stored, err := repoManager.TransactionRepository().GetTransaction(ctx, tx.TxID)
	require.NoError(t, err)
	require.True(t, stored.IsConfirmed())
	require.Equal(t, uint64(11), stored.BlockHeight)

	utxos, err = svc.ListUtxos(ctx)
	require.NoError(t, err)
	require.Len(t, utxos.Spendable, 4)
	require.NotContains(t, application.Utxos(utxos.Spendable).Keys(), op(1, 1))
	require.Contains(t, application.Utxos(utxos.Spendable).Keys(), op(3, 1))
}

func TestLedgerServiceImportConfirmedLater(t *testing.T) {
	repoManager := inmemory.NewRepoManager()
	svc := application.NewLedgerService(repoManager)

	tx := newTestTransactions()[0]
	unconfirmed := *tx
	unconfirmed.BlockHash, unconfirmed.BlockHeight, unconfirmed.BlockTime = "", 0, 0

	count, err := svc.ImportTransaction(ctx, &unconfirmed, []uint32{0})
	require.NoError(t, err)
	require.Equal(t, 1, count)

	utxos, err := svc.ListUtxos(ctx)
	require.NoError(t, err)
	require.Empty(t, utxos.Spendable)

	// Importing the tx once confirmed updates both tx and utxos.
	count, err = svc.ImportTransaction(ctx, tx, []uint32{0})
	require.NoError(t, err)
	require.Zero(t, count)

	utxos, err = svc.ListUtxos(ctx)
	require.NoError(t, err)
	require.Len(t, utxos.Spendable, 1)
	require.Equal(t, blockHash, utxos.Spendable[0].ConfirmedStatus.BlockHash)

	stored, err := repoManager.TransactionRepository().GetTransaction(ctx, tx.TxID)
	require.NoError(t, err)
	require.True(t, stored.IsConfirmed())
}

func TestLedgerServiceFailure(t *testing.T) {
	repoManager := inmemory.NewRepoManager()
	svc := application.NewLedgerService(repoManager)

	tests := []struct {
		name        string
		tx          *domain.Transaction
		vouts       []uint32
		expectedErr error
	}{
		{
			name:  "missing_tx",
			tx:    nil,
			vouts: []uint32{0},
		},
		{
			name:        "invalid_txid",
			tx:          &domain.Transaction{TxID: "abc", Outputs: []domain.TxOutput{{Value: 1}}},
			vouts:       []uint32{0},
			expectedErr: domain.ErrInvalidOutpoint,
		},
		{
			name:        "vout_out_of_range",
			tx:          &domain.Transaction{TxID: txid(1), Outputs: []domain.TxOutput{{Value: 1}}},
			vouts:       []uint32{1},
			expectedErr: domain.ErrLedgerInconsistency,
		},
		{
			name: "native_token_entry",
			tx: &domain.Transaction{
				TxID: txid(1),
				Outputs: []domain.TxOutput{{
					Value:  1,
					Tokens: domain.TokenAmounts{{TokenID: domain.NativeTokenID, Amount: 1}},
				}},
			},
			vouts: []uint32{0},
		},
		{
			name: "negative_token_amount",
			tx: &domain.Transaction{
				TxID: txid(1),
				Outputs: []domain.TxOutput{{
					Value:  1,
					Tokens: domain.TokenAmounts{{TokenID: "X", Amount: -1}},
				}},
			},
			vouts: []uint32{0},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			count, err := svc.ImportTransaction(ctx, tt.tx, tt.vouts)
			require.Error(t, err)
			require.Zero(t, count)
			if tt.expectedErr != nil {
				require.True(t, errors.Is(err, tt.expectedErr))
			}
		})
	}

	all, err := repoManager.TransactionRepository().GetAllTransactions(ctx)
	require.NoError(t, err)
	require.Empty(t, all)

	err = svc.ConfirmTransaction(ctx, txid(9), blockHash, 1, 1)
	require.True(t, errors.Is(err, domain.ErrTransactionNotFound))

	_, err = svc.SpendUtxos(ctx, []domain.Outpoint{op(1, 0)}, "abc")
	require.True(t, errors.Is(err, domain.ErrInvalidOutpoint))
}
