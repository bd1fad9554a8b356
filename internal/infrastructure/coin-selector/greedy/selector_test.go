package greedy_selector_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/ocean-ntp1/internal/core/domain"
	greedy_selector "github.com/vulpemventures/ocean-ntp1/internal/infrastructure/coin-selector/greedy"
)

func TestSelectInputs(t *testing.T) {
	t.Run("single input partially sent", func(t *testing.T) {
		view := newWalletView(tokenTx(1, out(10000, tk("X", 100))))
		selector := greedy_selector.NewGreedyTokenSelector(
			greedy_selector.NewSeededShuffler(1),
		)

		sel, err := selector.SelectInputs(
			view, []domain.Outpoint{op(1, 0)},
			[]domain.Recipient{{Destination: "addr1", TokenID: "X", Amount: 60}}, false,
		)
		require.NoError(t, err)
		require.True(t, sel.IsReady())
		require.True(t, sel.HasTokenTransfer())
		require.Equal(t, []domain.Outpoint{op(1, 0)}, sel.Inputs())
		require.Equal(t, map[string]int64{"X": 100}, sel.TotalTokensInInputs())
		require.Equal(t, map[string]int64{"X": 40}, sel.ChangeTokens())
		require.Equal(t, []domain.InputInstructions{
			{
				Input: op(1, 0),
				Instructions: []domain.TransferInstruction{
					{Amount: 60, Output: domain.RecipientSlot(0)},
					{Amount: 40, Output: domain.PendingChangeSlot()},
				},
			},
		}, sel.InputInstructions())
		require.Equal(t, view, sel.LedgerView())
	})

	t.Run("insufficient wallet balance", func(t *testing.T) {
		view := newWalletView(tokenTx(1, out(10000, tk("Y", 50))))
		view.names["Y"] = "Yellow token"
		selector := greedy_selector.NewGreedyTokenSelector(
			greedy_selector.NewSeededShuffler(1),
		)

		sel, err := selector.SelectInputs(
			view, nil, []domain.Recipient{{Destination: "addr1", TokenID: "Y", Amount: 80}}, true,
		)
		require.Nil(t, sel)
		require.True(t, errors.Is(err, domain.ErrInsufficientBalance))
		require.Contains(t, err.Error(), "Yellow token")
		require.True(t, domain.IsUserError(err))
	})

	t.Run("two recipients from one input", func(t *testing.T) {
		view := newWalletView(tokenTx(1, out(10000, tk("Z", 100))))
		selector := greedy_selector.NewGreedyTokenSelector(
			greedy_selector.NewSeededShuffler(1),
		)

		sel, err := selector.SelectInputs(
			view, []domain.Outpoint{op(1, 0)},
			[]domain.Recipient{{Destination: "addr1", TokenID: "Z", Amount: 30}, {Destination: "addr2", TokenID: "Z", Amount: 30}}, false,
		)
		require.NoError(t, err)
		require.Equal(t, []domain.InputInstructions{
			{
				Input: op(1, 0),
				Instructions: []domain.TransferInstruction{
					{Amount: 30, Output: domain.RecipientSlot(0)},
					{Amount: 30, Output: domain.RecipientSlot(1)},
					{Amount: 40, Output: domain.PendingChangeSlot()},
				},
			},
		}, sel.InputInstructions())
		require.Equal(t, map[string]int64{"Z": 40}, sel.ChangeTokens())
	})

	t.Run("native recipients are filtered out", func(t *testing.T) {
		view := newWalletView(tokenTx(1, out(10000, tk("X", 10))))
		selector := greedy_selector.NewGreedyTokenSelector(
			greedy_selector.NewSeededShuffler(1),
		)

		recipients := []domain.Recipient{
			{Destination: "addr1", TokenID: domain.NativeTokenID, Amount: 5000},
			{Destination: "addr2", TokenID: "X", Amount: 10},
			{Destination: "addr3", TokenID: domain.NativeTokenID, Amount: 100},
		}
		sel, err := selector.SelectInputs(view, nil, recipients, true)
		require.NoError(t, err)
		require.Equal(t, []domain.Recipient{{Destination: "addr2", TokenID: "X", Amount: 10}}, sel.Recipients())
		require.NotContains(t, sel.TotalTokensInInputs(), domain.NativeTokenID)
		require.NotContains(t, sel.ChangeTokens(), domain.NativeTokenID)
		require.Empty(t, sel.ChangeTokens())
		for _, in := range sel.InputInstructions() {
			for _, ti := range in.Instructions {
				idx, ok := ti.Output.Index()
				require.True(t, ok)
				require.Equal(t, 0, idx)
			}
		}
	})

	t.Run("auto extend with exact amount", func(t *testing.T) {
		view := newWalletView(tokenTx(1, out(10000, tk("W", 25))))
		selector := greedy_selector.NewGreedyTokenSelector(
			greedy_selector.NewSeededShuffler(1),
		)

		sel, err := selector.SelectInputs(
			view, nil, []domain.Recipient{{Destination: "addr1", TokenID: "W", Amount: 25}}, true,
		)
		require.NoError(t, err)
		require.Equal(t, []domain.Outpoint{op(1, 0)}, sel.Inputs())
		require.Equal(t, map[string]int64{"W": 25}, sel.TotalTokensInInputs())
		require.NotContains(t, sel.ChangeTokens(), "W")
		require.False(t, sel.HasChange())
	})

	t.Run("unknown token", func(t *testing.T) {
		view := newWalletView(tokenTx(1, out(10000, tk("X", 25))))
		selector := greedy_selector.NewGreedyTokenSelector(nil)

		sel, err := selector.SelectInputs(
			view, nil, []domain.Recipient{{Destination: "addr1", TokenID: "Q", Amount: 1}}, true,
		)
		require.Nil(t, sel)
		require.True(t, errors.Is(err, domain.ErrUnknownToken))
		require.Contains(t, view.nameLookups, "Q")
	})

	t.Run("token owned but not in given inputs", func(t *testing.T) {
		view := newWalletView(
			tokenTx(1, out(10000, tk("X", 25))),
			tokenTx(2, out(10000, tk("Y", 25))),
		)
		selector := greedy_selector.NewGreedyTokenSelector(nil)

		_, err := selector.SelectInputs(
			view, []domain.Outpoint{op(1, 0)},
			[]domain.Recipient{{Destination: "addr1", TokenID: "Y", Amount: 1}}, false,
		)
		require.True(t, errors.Is(err, domain.ErrUnknownToken))

		_, err = selector.SelectInputs(
			view, []domain.Outpoint{op(1, 0)},
			[]domain.Recipient{{Destination: "addr1", TokenID: "X", Amount: 26}}, false,
		)
		require.True(t, errors.Is(err, domain.ErrInsufficientBalance))
	})

	t.Run("invalid recipient", func(t *testing.T) {
		view := newWalletView(tokenTx(1, out(10000, tk("X", 25))))
		selector := greedy_selector.NewGreedyTokenSelector(nil)

		_, err := selector.SelectInputs(
			view, nil, []domain.Recipient{{Destination: "addr1", TokenID: "X", Amount: -1}}, true,
		)
		require.True(t, errors.Is(err, domain.ErrInvalidRecipient))
	})

	t.Run("output index out of range", func(t *testing.T) {
		tx := tokenTx(1, out(10000, tk("X", 25)))
		view := newWalletView(tx)
		view.tokenOuts[op(1, 3)] = tx
		selector := greedy_selector.NewGreedyTokenSelector(nil)

		_, err := selector.SelectInputs(
			view, []domain.Outpoint{op(1, 3)},
			[]domain.Recipient{{Destination: "addr1", TokenID: "X", Amount: 1}}, false,
		)
		require.True(t, errors.Is(err, domain.ErrLedgerInconsistency))
		require.False(t, domain.IsUserError(err))

		_, err = selector.SelectInputs(
			view, []domain.Outpoint{op(1, 3)},
			[]domain.Recipient{{Destination: "addr1", TokenID: "X", Amount: 1}}, true,
		)
		require.True(t, errors.Is(err, domain.ErrLedgerInconsistency))
	})

	t.Run("zero amounts", func(t *testing.T) {
		view := newWalletView(tokenTx(1, out(10000, tk("X", 25))))
		selector := greedy_selector.NewGreedyTokenSelector(nil)

		sel, err := selector.SelectInputs(
			view, nil, []domain.Recipient{{Destination: "addr1", TokenID: "X", Amount: 0}}, true,
		)
		require.NoError(t, err)
		require.False(t, sel.HasTokenTransfer())
		require.Empty(t, sel.Inputs())
		require.Empty(t, sel.TotalTokensInInputs())
		require.Empty(t, sel.InputInstructions())

		amount, err := sel.RequiredNativeForOutputs(10000)
		require.NoError(t, err)
		require.Zero(t, amount)
	})
}

func TestSelectInputsAutoExtend(t *testing.T) {
	t.Run("greedy fill stops once covered", func(t *testing.T) {
		view := newWalletView(
			tokenTx(1, out(10000, tk("X", 10))),
			tokenTx(2, out(10000, tk("X", 10))),
			tokenTx(3, out(10000, tk("X", 10))),
		)

		for seed := int64(0); seed < 10; seed++ {
			selector := greedy_selector.NewGreedyTokenSelector(
				greedy_selector.NewSeededShuffler(seed),
			)
			sel, err := selector.SelectInputs(
				view, nil, []domain.Recipient{{Destination: "addr1", TokenID: "X", Amount: 15}}, true,
			)
			require.NoError(t, err)
			require.Len(t, sel.Inputs(), 2)
			require.Equal(t, map[string]int64{"X": 20}, sel.TotalTokensInInputs())
			require.Equal(t, map[string]int64{"X": 5}, sel.ChangeTokens())
		}
	})

	t.Run("given inputs count toward the requested amount", func(t *testing.T) {
		view := newWalletView(
			tokenTx(1, out(10000, tk("X", 10))),
			tokenTx(2, out(10000, tk("X", 10))),
			tokenTx(3, out(10000, tk("X", 10))),
		)
		selector := greedy_selector.NewGreedyTokenSelector(
			greedy_selector.NewSeededShuffler(3),
		)

		sel, err := selector.SelectInputs(
			view, []domain.Outpoint{op(2, 0), op(2, 0)},
			[]domain.Recipient{{Destination: "addr1", TokenID: "X", Amount: 10}}, true,
		)
		require.NoError(t, err)
		require.Equal(t, []domain.Outpoint{op(2, 0)}, sel.Inputs())
		require.Empty(t, sel.ChangeTokens())
	})

	t.Run("given native inputs are kept", func(t *testing.T) {
		view := newWalletView(
			tokenTx(1, out(10000, tk("X", 10))),
			tokenTx(2, out(50000)),
		)
		selector := greedy_selector.NewGreedyTokenSelector(
			greedy_selector.NewSeededShuffler(3),
		)

		sel, err := selector.SelectInputs(
			view, []domain.Outpoint{op(2, 0)},
			[]domain.Recipient{{Destination: "addr1", TokenID: "X", Amount: 4}}, true,
		)
		require.NoError(t, err)
		require.Equal(t, []domain.Outpoint{op(1, 0), op(2, 0)}, sel.Inputs())
		require.Len(t, sel.InputInstructions(), 1)
	})

	t.Run("given token input missing from token outputs", func(t *testing.T) {
		view := newWalletView(
			tokenTx(1, out(10000, tk("X", 10))),
			tokenTx(9, out(10000, tk("X", 50))),
		)
		// Known tx, but its output isn't spendable (ie. unconfirmed).
		delete(view.tokenOuts, op(9, 0))
		selector := greedy_selector.NewGreedyTokenSelector(
			greedy_selector.NewSeededShuffler(3),
		)

		for _, autoExtend := range []bool{true, false} {
			sel, err := selector.SelectInputs(
				view, []domain.Outpoint{op(9, 0)},
				[]domain.Recipient{{Destination: "addr1", TokenID: "X", Amount: 5}}, autoExtend,
			)
			require.Nil(t, sel)
			require.True(t, errors.Is(err, domain.ErrLedgerInconsistency))
		}
	})

	t.Run("other tokens on a taken output go to change", func(t *testing.T) {
		view := newWalletView(
			tokenTx(1, out(10000, tk("X", 10), tk("Y", 5))),
		)
		selector := greedy_selector.NewGreedyTokenSelector(
			greedy_selector.NewSeededShuffler(3),
		)

		sel, err := selector.SelectInputs(
			view, nil, []domain.Recipient{{Destination: "addr1", TokenID: "X", Amount: 10}}, true,
		)
		require.NoError(t, err)
		require.Equal(t, map[string]int64{"X": 10, "Y": 5}, sel.TotalTokensInInputs())
		require.Equal(t, map[string]int64{"Y": 5}, sel.ChangeTokens())
		require.Equal(t, []domain.TransferInstruction{
			{Amount: 10, Output: domain.RecipientSlot(0)},
			{Amount: 5, Output: domain.PendingChangeSlot()},
		}, sel.InputInstructions()[0].Instructions)
	})

	t.Run("inputs sorted by token count", func(t *testing.T) {
		view := newWalletView(
			tokenTx(1, out(10000, tk("X", 10))),
			tokenTx(2, out(10000, tk("Y", 1), tk("X", 1), tk("Z", 1))),
			tokenTx(3, out(10000, tk("Y", 10), tk("X", 1))),
		)
		selector := greedy_selector.NewGreedyTokenSelector(
			greedy_selector.NewSeededShuffler(5),
		)

		sel, err := selector.SelectInputs(
			view, []domain.Outpoint{op(1, 0), op(3, 0), op(2, 0)},
			[]domain.Recipient{{Destination: "addr1", TokenID: "X", Amount: 12}, {Destination: "addr2", TokenID: "Y", Amount: 11}}, false,
		)
		require.NoError(t, err)
		require.Equal(t, []domain.Outpoint{op(2, 0), op(3, 0), op(1, 0)}, sel.Inputs())
		require.Equal(t, map[string]int64{"Z": 1}, sel.ChangeTokens())
	})

	t.Run("same seed same selection", func(t *testing.T) {
		txs := make([]*domain.Transaction, 0)
		for i := 1; i <= 20; i++ {
			txs = append(txs, tokenTx(i, out(10000, tk("X", int64(i)))))
		}
		view := newWalletView(txs...)
		recipients := []domain.Recipient{{Destination: "addr1", TokenID: "X", Amount: 50}}

		s1 := greedy_selector.NewGreedyTokenSelector(greedy_selector.NewSeededShuffler(42))
		s2 := greedy_selector.NewGreedyTokenSelector(greedy_selector.NewSeededShuffler(42))

		sel1, err := s1.SelectInputs(view, nil, recipients, true)
		require.NoError(t, err)
		sel2, err := s2.SelectInputs(view, nil, recipients, true)
		require.NoError(t, err)
		require.Equal(t, sel1.Inputs(), sel2.Inputs())
		require.Equal(t, sel1.InputInstructions(), sel2.InputInstructions())
	})
}

func TestSelectionProperties(t *testing.T) {
	txs := []*domain.Transaction{
		tokenTx(1, out(10000, tk("A", 7)), out(5000, tk("B", 3), tk("A", 2))),
		tokenTx(2, out(10000, tk("B", 11))),
		tokenTx(3, out(10000, tk("C", 4), tk("A", 9), tk("B", 1))),
		tokenTx(4, out(10000, tk("A", 1)), out(20000)),
		tokenTx(5, out(10000, tk("C", 20))),
		tokenTx(6, out(10000, tk("A", 13), tk("C", 2))),
		tokenTx(7, out(70000)),
	}
	view := newWalletView(txs...)

	recipientSets := [][]domain.Recipient{
		{{Destination: "r0", TokenID: "A", Amount: 15}},
		{{Destination: "r0", TokenID: "A", Amount: 10}, {Destination: "r1", TokenID: "B", Amount: 12}, {Destination: "r2", TokenID: "A", Amount: 3}},
		{{Destination: "r0", TokenID: "C", Amount: 26}, {Destination: "r1", TokenID: domain.NativeTokenID, Amount: 1000}, {Destination: "r2", TokenID: "B", Amount: 1}},
		{{Destination: "r0", TokenID: "A", Amount: 32}, {Destination: "r1", TokenID: "B", Amount: 15}, {Destination: "r2", TokenID: "C", Amount: 26}},
		{{Destination: "r0", TokenID: "B", Amount: 0}, {Destination: "r1", TokenID: "C", Amount: 1}},
	}

	for seed := int64(0); seed < 25; seed++ {
		for _, recipients := range recipientSets {
			selector := greedy_selector.NewGreedyTokenSelector(
				greedy_selector.NewSeededShuffler(seed),
			)
			sel, err := selector.SelectInputs(view, nil, recipients, true)
			require.NoError(t, err)

			requireSelectionInvariants(t, view, sel, recipients)
		}
	}
}

func requireSelectionInvariants(
	t *testing.T, view *walletView,
	sel *domain.Selection, recipients []domain.Recipient,
) {
	t.Helper()

	inputs := sel.Inputs()
	require.Len(t, domain.Outpoints(inputs).Dedup(), len(inputs))

	filtered := sel.Recipients()
	for _, r := range filtered {
		require.False(t, r.IsNative())
	}
	require.Equal(t, domain.Recipients(recipients).TokenRecipients(), domain.Recipients(filtered))

	captured := sel.TotalTokensInInputs()
	change := sel.ChangeTokens()
	requested := make(map[string]int64)
	for _, r := range filtered {
		requested[r.TokenID] += r.Amount
	}
	for tokenID, amount := range requested {
		require.GreaterOrEqual(t, captured[tokenID], amount)
		require.Equal(t, captured[tokenID]-amount, change[tokenID])
	}
	for _, v := range captured {
		require.NotZero(t, v)
	}
	for _, v := range change {
		require.Positive(t, v)
	}

	sentToRecipient := make([]int64, len(filtered))
	var sentToChange int64
	for _, in := range sel.InputInstructions() {
		tx := view.tokenOuts[in.Input]
		require.NotNil(t, tx)

		var carried, distributed int64
		for _, token := range tx.Outputs[in.Input.VOut].Tokens {
			carried += token.Amount
		}
		for _, ti := range in.Instructions {
			require.Positive(t, ti.Amount)
			distributed += ti.Amount
			if idx, ok := ti.Output.Index(); ok {
				sentToRecipient[idx] += ti.Amount
			} else {
				sentToChange += ti.Amount
			}
		}
		require.Equal(t, carried, distributed)
	}

	for i, r := range filtered {
		require.Equal(t, r.Amount, sentToRecipient[i])
	}
	var totalChange int64
	for _, v := range change {
		totalChange += v
	}
	require.Equal(t, totalChange, sentToChange)
}
