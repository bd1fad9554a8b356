package application_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/ocean-ntp1/internal/core/application"
	"github.com/vulpemventures/ocean-ntp1/internal/core/domain"
	"github.com/vulpemventures/ocean-ntp1/internal/core/ports"
	"github.com/vulpemventures/ocean-ntp1/internal/infrastructure/storage/db/inmemory"
)

var (
	ctx       = context.Background()
	blockHash = txid(100)
)

// ports.TokenSelector
type mockTokenSelector struct {
	mock.Mock
}

func (m *mockTokenSelector) SelectInputs(
	view domain.WalletView, inputs []domain.Outpoint,
	recipients []domain.Recipient, autoExtend bool,
) (*domain.Selection, error) {
	args := m.Called(view, inputs, recipients, autoExtend)
	var res *domain.Selection
	if a := args.Get(0); a != nil {
		res = a.(*domain.Selection)
	}
	return res, args.Error(1)
}

func (m *mockTokenSelector) EnsureNativeCoverage(
	view domain.WalletView, selection *domain.Selection, target int64,
) (*domain.Selection, int64, error) {
	args := m.Called(view, selection, target)
	var res *domain.Selection
	if a := args.Get(0); a != nil {
		res = a.(*domain.Selection)
	}
	return res, args.Get(1).(int64), args.Error(2)
}

func txid(n int) string {
	return fmt.Sprintf("%064x", n)
}

func op(n int, vout uint32) domain.Outpoint {
	return domain.Outpoint{TxID: txid(n), VOut: vout}
}

// newTestTransactions returns 2 confirmed txs, each with a token output and
// a native one:
//   - tx 1: X5 Y3 (10000), 50000
//   - tx 2: X7 (20000), 100000
func newTestTransactions() []*domain.Transaction {
	script := []byte{0x76, 0xa9}
	return []*domain.Transaction{
		{
			TxID: txid(1),
			Outputs: []domain.TxOutput{
				{
					Value: 10000,
					Tokens: domain.TokenAmounts{
						{TokenID: "X", Amount: 5}, {TokenID: "Y", Amount: 3},
					},
					Script: script,
				},
				{Value: 50000, Script: script},
			},
			BlockHash:   blockHash,
			BlockHeight: 10,
			BlockTime:   1700000000,
		},
		{
			TxID: txid(2),
			Outputs: []domain.TxOutput{
				{
					Value:  20000,
					Tokens: domain.TokenAmounts{{TokenID: "X", Amount: 7}},
					Script: script,
				},
				{Value: 100000, Script: script},
			},
			BlockHash:   blockHash,
			BlockHeight: 10,
			BlockTime:   1700000000,
		},
	}
}

// newRepoManagerWithLedger returns an in-memory repo manager with the test
// txs imported and all their outputs owned by the wallet.
func newRepoManagerWithLedger(t *testing.T) ports.RepoManager {
	repoManager := inmemory.NewRepoManager()
	svc := application.NewLedgerService(repoManager)
	for _, tx := range newTestTransactions() {
		count, err := svc.ImportTransaction(ctx, tx, []uint32{0, 1})
		require.NoError(t, err)
		require.Equal(t, 2, count)
	}
	return repoManager
}
