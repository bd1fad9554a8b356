package greedy_selector

import (
	"fmt"
	"sort"

	"github.com/vulpemventures/ocean-ntp1/internal/core/domain"
	"github.com/vulpemventures/ocean-ntp1/internal/core/ports"
)

type selector struct {
	shuffler ports.Shuffler
}

// NewGreedyTokenSelector returns a selector that fills every requested token
// by scanning the wallet's token outputs in random order. A nil shuffler
// defaults to a randomly seeded one.
func NewGreedyTokenSelector(shuffler ports.Shuffler) ports.TokenSelector {
	if shuffler == nil {
		shuffler = NewRandomShuffler()
	}
	return &selector{shuffler}
}

func (s *selector) SelectInputs(
	view domain.WalletView, inputs []domain.Outpoint,
	recipients []domain.Recipient, autoExtend bool,
) (*domain.Selection, error) {
	if err := domain.Recipients(recipients).Validate(); err != nil {
		return nil, err
	}

	tokenRecipients := domain.Recipients(recipients).TokenRecipients()
	inputs = domain.Outpoints(inputs).Dedup()
	if err := checkGivenInputs(view, inputs); err != nil {
		return nil, err
	}

	targetAmounts := requiredTokenAmounts(tokenRecipients)
	hasTokenTransfer := sumAmounts(targetAmounts) != 0

	balances, err := availableTokenBalances(view, inputs, autoExtend)
	if err != nil {
		return nil, err
	}

	targetTokens := domain.SortedTokenIDs(targetAmounts)
	for _, tokenID := range targetTokens {
		balance, ok := balances[tokenID]
		if !ok {
			return nil, fmt.Errorf(
				"%w: you're trying to spend tokens that you don't own or are not "+
					"included in the selected inputs: %s",
				domain.ErrUnknownToken, view.TokenName(tokenID),
			)
		}
		if targetAmounts[tokenID] > balance {
			return nil, fmt.Errorf(
				"%w: balance of selected inputs is not sufficient to cover %s "+
					"(required %d, available %d)",
				domain.ErrInsufficientBalance, view.TokenName(tokenID),
				targetAmounts[tokenID], balance,
			)
		}
	}

	outputs := view.TokenOutputs()
	captured := make(map[string]int64)
	selected := make(domain.Outpoints, 0, len(inputs))
	take := func(op domain.Outpoint, out *domain.TxOutput) {
		if out != nil {
			for _, t := range out.Tokens {
				captured[t.TokenID] += t.Amount
			}
		}
		selected = append(selected, op)
	}

	// The given inputs are always spent, so their tokens count from the start.
	for _, in := range inputs {
		out, err := tokenOutput(outputs, in)
		if err != nil {
			return nil, err
		}
		take(in, out)
	}

	pool := make([]domain.Outpoint, 0)
	if autoExtend {
		for op := range outputs {
			if selected.Contains(op) {
				continue
			}
			pool = append(pool, op)
		}
	}
	pool = sortedOutpoints(pool)
	s.shuffler.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	for _, tokenID := range targetTokens {
		remaining := make([]domain.Outpoint, 0, len(pool))
		for i, op := range pool {
			if captured[tokenID] >= targetAmounts[tokenID] {
				remaining = append(remaining, pool[i:]...)
				break
			}
			out, err := tokenOutput(outputs, op)
			if err != nil {
				return nil, err
			}
			if out == nil || !out.Tokens.Has(tokenID) {
				remaining = append(remaining, op)
				continue
			}
			take(op, out)
		}
		pool = remaining
	}

	change := make(map[string]int64)
	for _, tokenID := range targetTokens {
		if captured[tokenID] < targetAmounts[tokenID] {
			return nil, fmt.Errorf(
				"%w: failed to cover required balance of %s",
				domain.ErrLedgerInconsistency, view.TokenName(tokenID),
			)
		}
	}
	// Tokens captured without being requested go entirely to change, so that
	// every unit carried by the inputs has an instruction.
	for tokenID, amount := range captured {
		change[tokenID] = amount - targetAmounts[tokenID]
	}

	pruneZeroAmounts(captured)
	pruneZeroAmounts(change)

	selected = selected.Dedup()
	if err := sortByTokenCount(outputs, selected); err != nil {
		return nil, err
	}

	instructions, err := buildTransferInstructions(outputs, selected, tokenRecipients)
	if err != nil {
		return nil, err
	}

	return domain.NewSelection(domain.SelectionArgs{
		Inputs:           selected,
		TotalTokens:      captured,
		Change:           change,
		Recipients:       tokenRecipients,
		Instructions:     instructions,
		View:             view,
		HasTokenTransfer: hasTokenTransfer,
	}), nil
}

// checkGivenInputs makes sure that every given input carrying tokens is part
// of the view's token outputs. Otherwise its tokens would be spent without
// being distributed.
func checkGivenInputs(view domain.WalletView, inputs []domain.Outpoint) error {
	outputs := view.TokenOutputs()
	for _, in := range inputs {
		if _, ok := outputs[in]; ok {
			continue
		}
		tx, ok := view.GetTransaction(in.TxID)
		if !ok {
			continue
		}
		out, err := tx.Output(in.VOut)
		if err != nil {
			return fmt.Errorf("resolving input %s: %w", in, err)
		}
		if out.TokenCount() > 0 {
			return fmt.Errorf(
				"%w: input %s carries tokens but is not a spendable token output",
				domain.ErrLedgerInconsistency, in,
			)
		}
	}
	return nil
}

func pruneZeroAmounts(amounts map[string]int64) {
	for tokenID, amount := range amounts {
		if amount == 0 {
			delete(amounts, tokenID)
		}
	}
}

// sortByTokenCount sorts the given outpoints by number of carried tokens in
// descending order. Outpoints with equal count keep their relative order.
func sortByTokenCount(
	outputs map[domain.Outpoint]*domain.Transaction, list []domain.Outpoint,
) error {
	counts := make(map[domain.Outpoint]int, len(list))
	for _, op := range list {
		out, err := tokenOutput(outputs, op)
		if err != nil {
			return fmt.Errorf("sorting selected inputs: %w", err)
		}
		if out != nil {
			counts[op] = out.TokenCount()
		}
	}

	sort.SliceStable(list, func(i, j int) bool {
		return counts[list[i]] > counts[list[j]]
	})
	return nil
}
