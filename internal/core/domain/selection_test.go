package domain_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/ocean-ntp1/internal/core/domain"
)

func TestSelectionNotReady(t *testing.T) {
	t.Parallel()

	var nilSel *domain.Selection
	for _, s := range []*domain.Selection{{}, nilSel} {
		require.False(t, s.IsReady())
		require.Nil(t, s.Inputs())
		require.Nil(t, s.TotalTokensInInputs())
		require.Nil(t, s.ChangeTokens())
		require.Nil(t, s.Recipients())
		require.Nil(t, s.InputInstructions())
		require.Nil(t, s.LedgerView())
		require.False(t, s.HasTokenTransfer())
		require.False(t, s.HasChange())

		_, err := s.RequiredNativeForOutputs(10000)
		require.True(t, errors.Is(err, domain.ErrSelectionNotReady))

		_, err = s.ResolvedInstructions(2)
		require.True(t, errors.Is(err, domain.ErrSelectionNotReady))

		_, err = s.WithExtraInputs(nil)
		require.True(t, errors.Is(err, domain.ErrSelectionNotReady))
	}
}

func TestSelectionIsImmutable(t *testing.T) {
	t.Parallel()

	in := domain.Outpoint{randomTxid(), 0}
	args := domain.SelectionArgs{
		Inputs:      []domain.Outpoint{in},
		TotalTokens: map[string]int64{"TKA": 10},
		Change:      map[string]int64{"TKA": 4},
		Recipients:  []domain.Recipient{{"addr1", "TKA", 6}},
		Instructions: []domain.InputInstructions{
			{
				Input: in,
				Instructions: []domain.TransferInstruction{
					{Amount: 6, Output: domain.RecipientSlot(0)},
					{Amount: 4, Output: domain.PendingChangeSlot()},
				},
			},
		},
		HasTokenTransfer: true,
	}
	sel := domain.NewSelection(args)
	require.True(t, sel.IsReady())

	args.Inputs[0] = domain.Outpoint{}
	args.TotalTokens["TKA"] = 0
	args.Instructions[0].Instructions[0].Amount = 0

	inputs := sel.Inputs()
	require.Equal(t, []domain.Outpoint{in}, inputs)
	inputs[0] = domain.Outpoint{}
	require.Equal(t, []domain.Outpoint{in}, sel.Inputs())

	totals := sel.TotalTokensInInputs()
	require.Equal(t, map[string]int64{"TKA": 10}, totals)
	totals["TKA"] = 1
	require.Equal(t, int64(10), sel.TotalTokensInInputs()["TKA"])

	tis := sel.InputInstructions()
	require.Equal(t, int64(6), tis[0].Instructions[0].Amount)
	domain.RemapPendingChange(tis, 1)
	require.True(t, sel.InputInstructions()[0].Instructions[1].Output.IsPendingChange())

	resolved, err := sel.ResolvedInstructions(3)
	require.NoError(t, err)
	idx, ok := resolved[0].Instructions[1].Output.Index()
	require.True(t, ok)
	require.Equal(t, 3, idx)
	require.True(t, sel.InputInstructions()[0].Instructions[1].Output.IsPendingChange())

	require.True(t, sel.HasChange())
	require.True(t, sel.HasTokenTransfer())
}

func TestSelectionRequiredNativeForOutputs(t *testing.T) {
	t.Parallel()

	in := domain.Outpoint{randomTxid(), 0}
	tests := []struct {
		name     string
		args     domain.SelectionArgs
		expected int64
	}{
		{
			name: "with instructions",
			args: domain.SelectionArgs{
				Recipients: []domain.Recipient{
					{"addr1", "TKA", 1}, {"addr2", "TKA", 2},
				},
				Instructions: []domain.InputInstructions{
					{Input: in, Instructions: []domain.TransferInstruction{
						{Amount: 3, Output: domain.RecipientSlot(0)},
					}},
				},
			},
			expected: 30000,
		},
		{
			name: "without instructions",
			args: domain.SelectionArgs{
				Recipients: []domain.Recipient{{"addr1", "TKA", 0}},
			},
			expected: 0,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			sel := domain.NewSelection(tt.args)
			amount, err := sel.RequiredNativeForOutputs(10000)
			require.NoError(t, err)
			require.Equal(t, tt.expected, amount)
		})
	}
}

func TestSelectionWithExtraInputs(t *testing.T) {
	t.Parallel()

	a := domain.Outpoint{randomTxid(), 0}
	b := domain.Outpoint{randomTxid(), 1}
	sel := domain.NewSelection(domain.SelectionArgs{
		Inputs: []domain.Outpoint{a},
	})

	extended, err := sel.WithExtraInputs([]domain.Outpoint{b})
	require.NoError(t, err)
	require.Equal(t, []domain.Outpoint{a, b}, extended.Inputs())
	require.Equal(t, []domain.Outpoint{a}, sel.Inputs())

	_, err = extended.WithExtraInputs([]domain.Outpoint{a})
	require.True(t, errors.Is(err, domain.ErrLedgerInconsistency))
}

func TestRemapPendingChange(t *testing.T) {
	t.Parallel()

	tis := []domain.InputInstructions{
		{
			Input: domain.Outpoint{randomTxid(), 0},
			Instructions: []domain.TransferInstruction{
				{Amount: 5, Output: domain.RecipientSlot(0)},
				{Amount: 1, Output: domain.PendingChangeSlot()},
			},
		},
		{
			Input: domain.Outpoint{randomTxid(), 2},
			Instructions: []domain.TransferInstruction{
				{Amount: 7, Output: domain.PendingChangeSlot()},
			},
		},
	}

	domain.RemapPendingChange(tis, 4)
	for _, in := range tis {
		for _, ti := range in.Instructions {
			require.False(t, ti.Output.IsPendingChange())
		}
	}
	idx, _ := tis[0].Instructions[0].Output.Index()
	require.Equal(t, 0, idx)
	idx, _ = tis[0].Instructions[1].Output.Index()
	require.Equal(t, 4, idx)
	idx, _ = tis[1].Instructions[0].Output.Index()
	require.Equal(t, 4, idx)
}

func TestOutputSlot(t *testing.T) {
	t.Parallel()

	change := domain.PendingChangeSlot()
	_, ok := change.Index()
	require.False(t, ok)
	require.Equal(t, "change", change.String())

	slot := domain.RecipientSlot(2)
	require.False(t, slot.IsPendingChange())
	require.Equal(t, "2", slot.String())
	require.NotEqual(t, change, domain.RecipientSlot(0))

	buf, err := json.Marshal([]domain.OutputSlot{slot, change})
	require.NoError(t, err)
	require.JSONEq(t, `[2, "change"]`, string(buf))
}

func TestRecipients(t *testing.T) {
	t.Parallel()

	recipients := domain.Recipients{
		{"addr1", "TKA", 10},
		{"addr2", domain.NativeTokenID, 5000},
		{"addr3", "TKB", 0},
		{"addr4", domain.NativeTokenID, 1000},
	}
	require.NoError(t, recipients.Validate())
	require.Equal(t, int64(6000), recipients.NativeAmount())
	require.Equal(
		t, domain.Recipients{{"addr1", "TKA", 10}, {"addr3", "TKB", 0}},
		recipients.TokenRecipients(),
	)

	tests := []domain.Recipients{
		{{"addr1", "", 10}},
		{{"addr1", "TKA", 1}, {"addr1", "TKA", -1}},
	}
	for _, tt := range tests {
		err := tt.Validate()
		require.True(t, errors.Is(err, domain.ErrInvalidRecipient))
		require.True(t, domain.IsUserError(err))
	}
}
