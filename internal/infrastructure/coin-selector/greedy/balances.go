package greedy_selector

import (
	"fmt"

	"github.com/vulpemventures/ocean-ntp1/internal/core/domain"
)

// availableTokenBalances returns the wallet-wide token balances if fromWallet
// is true, otherwise the total amount of every token carried by the given
// inputs. Inputs without tokens don't contribute.
func availableTokenBalances(
	view domain.LedgerView, inputs []domain.Outpoint, fromWallet bool,
) (map[string]int64, error) {
	if fromWallet {
		balances := make(map[string]int64)
		for tokenID, amount := range view.TokenBalances() {
			balances[tokenID] = amount
		}
		return balances, nil
	}

	outputs := view.TokenOutputs()
	balances := make(map[string]int64)
	for _, in := range inputs {
		tx, ok := outputs[in]
		if !ok {
			continue
		}
		out, err := tx.Output(in.VOut)
		if err != nil {
			return nil, fmt.Errorf("resolving balance of input %s: %w", in, err)
		}
		for _, t := range out.Tokens {
			balances[t.TokenID] += t.Amount
		}
	}
	return balances, nil
}

// tokenOutput returns the output referenced by the given outpoint if it
// carries tokens, nil otherwise.
func tokenOutput(
	outputs map[domain.Outpoint]*domain.Transaction, op domain.Outpoint,
) (*domain.TxOutput, error) {
	tx, ok := outputs[op]
	if !ok {
		return nil, nil
	}
	return tx.Output(op.VOut)
}
