package greedy_selector

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/ocean-ntp1/internal/core/domain"
)

func TestRequiredTokenAmounts(t *testing.T) {
	tests := []struct {
		recipients []domain.Recipient
		expected   map[string]int64
	}{
		{nil, map[string]int64{}},
		{
			[]domain.Recipient{{Destination: "a", TokenID: "X", Amount: 1}, {Destination: "b", TokenID: "Y", Amount: 2}, {Destination: "c", TokenID: "X", Amount: 3}},
			map[string]int64{"X": 4, "Y": 2},
		},
		{
			[]domain.Recipient{{Destination: "a", TokenID: "X", Amount: 0}, {Destination: "b", TokenID: "X", Amount: 0}},
			map[string]int64{"X": 0},
		},
	}

	for _, tt := range tests {
		amounts := requiredTokenAmounts(tt.recipients)
		require.Equal(t, tt.expected, amounts)
	}
	require.Zero(t, sumAmounts(map[string]int64{"X": 0}))
	require.Equal(t, int64(7), sumAmounts(map[string]int64{"X": 3, "Y": 4}))
}

func TestAvailableTokenBalances(t *testing.T) {
	tx1 := &domain.Transaction{
		TxID: txid(1),
		Outputs: []domain.TxOutput{
			{Value: 1000, Tokens: domain.TokenAmounts{{TokenID: "X", Amount: 5}, {TokenID: "Y", Amount: 1}}},
			{Value: 1000, Tokens: domain.TokenAmounts{{TokenID: "X", Amount: 2}}},
		},
	}
	view := &staticView{
		balances: map[string]int64{"X": 100, "Z": 9},
		outputs: map[domain.Outpoint]*domain.Transaction{
			{TxID: txid(1), VOut: 0}: tx1,
			{TxID: txid(1), VOut: 1}: tx1,
		},
	}

	balances, err := availableTokenBalances(view, nil, true)
	require.NoError(t, err)
	require.Equal(t, map[string]int64{"X": 100, "Z": 9}, balances)

	balances, err = availableTokenBalances(view, []domain.Outpoint{
		{TxID: txid(1), VOut: 0},
		{TxID: txid(1), VOut: 1},
		{TxID: txid(2), VOut: 0},
	}, false)
	require.NoError(t, err)
	require.Equal(t, map[string]int64{"X": 7, "Y": 1}, balances)

	view.outputs[domain.Outpoint{TxID: txid(1), VOut: 2}] = tx1
	_, err = availableTokenBalances(view, []domain.Outpoint{
		{TxID: txid(1), VOut: 2},
	}, false)
	require.True(t, errors.Is(err, domain.ErrLedgerInconsistency))
}

func TestBuildTransferInstructions(t *testing.T) {
	tx := &domain.Transaction{
		TxID: txid(1),
		Outputs: []domain.TxOutput{
			{Value: 1000, Tokens: domain.TokenAmounts{{TokenID: "X", Amount: 5}, {TokenID: "Y", Amount: 4}}},
			{Value: 1000, Tokens: domain.TokenAmounts{{TokenID: "X", Amount: 6}}},
			{Value: 1000},
		},
	}
	outputs := map[domain.Outpoint]*domain.Transaction{
		{TxID: txid(1), VOut: 0}: tx,
		{TxID: txid(1), VOut: 1}: tx,
	}
	inputs := []domain.Outpoint{
		{TxID: txid(1), VOut: 0}, {TxID: txid(1), VOut: 1}, {TxID: txid(1), VOut: 2},
	}

	t.Run("valid", func(t *testing.T) {
		recipients := []domain.Recipient{
			{Destination: "a", TokenID: "X", Amount: 3}, {Destination: "b", TokenID: "Y", Amount: 4}, {Destination: "c", TokenID: "X", Amount: 7},
		}
		list, err := buildTransferInstructions(outputs, inputs, recipients)
		require.NoError(t, err)
		require.Equal(t, []domain.InputInstructions{
			{
				Input: inputs[0],
				Instructions: []domain.TransferInstruction{
					{Amount: 3, Output: domain.RecipientSlot(0)},
					{Amount: 2, Output: domain.RecipientSlot(2)},
					{Amount: 4, Output: domain.RecipientSlot(1)},
				},
			},
			{
				Input: inputs[1],
				Instructions: []domain.TransferInstruction{
					{Amount: 5, Output: domain.RecipientSlot(2)},
					{Amount: 1, Output: domain.PendingChangeSlot()},
				},
			},
		}, list)
	})

	t.Run("unfulfilled recipient", func(t *testing.T) {
		recipients := []domain.Recipient{{Destination: "a", TokenID: "X", Amount: 12}}
		_, err := buildTransferInstructions(outputs, inputs, recipients)
		require.True(t, errors.Is(err, domain.ErrUnfulfilledRecipient))
		require.False(t, domain.IsUserError(err))
	})
}

func TestSortByTokenCount(t *testing.T) {
	tx := &domain.Transaction{
		TxID: txid(1),
		Outputs: []domain.TxOutput{
			{Tokens: domain.TokenAmounts{{TokenID: "X", Amount: 1}}},
			{Tokens: domain.TokenAmounts{{TokenID: "X", Amount: 1}, {TokenID: "Y", Amount: 1}}},
			{Tokens: domain.TokenAmounts{{TokenID: "Z", Amount: 1}}},
		},
	}
	outputs := map[domain.Outpoint]*domain.Transaction{
		{TxID: txid(1), VOut: 0}: tx,
		{TxID: txid(1), VOut: 1}: tx,
		{TxID: txid(1), VOut: 2}: tx,
	}
	list := []domain.Outpoint{
		{TxID: txid(2), VOut: 0},
		{TxID: txid(1), VOut: 0},
		{TxID: txid(1), VOut: 2},
		{TxID: txid(1), VOut: 1},
	}

	err := sortByTokenCount(outputs, list)
	require.NoError(t, err)
	require.Equal(t, []domain.Outpoint{
		{TxID: txid(1), VOut: 1},
		{TxID: txid(1), VOut: 0},
		{TxID: txid(1), VOut: 2},
		{TxID: txid(2), VOut: 0},
	}, list)

	outputs[domain.Outpoint{TxID: txid(1), VOut: 5}] = tx
	err = sortByTokenCount(outputs, []domain.Outpoint{{TxID: txid(1), VOut: 5}})
	require.True(t, errors.Is(err, domain.ErrLedgerInconsistency))
}

type staticView struct {
	balances map[string]int64
	outputs  map[domain.Outpoint]*domain.Transaction
}

func (v *staticView) TokenBalances() map[string]int64 {
	return v.balances
}

func (v *staticView) TokenOutputs() map[domain.Outpoint]*domain.Transaction {
	return v.outputs
}

func (v *staticView) TokenName(tokenID string) string {
	return tokenID
}

func txid(n int) string {
	return fmt.Sprintf("%064x", n)
}
