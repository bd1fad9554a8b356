package greedy_selector

import (
	"fmt"

	"github.com/vulpemventures/ocean-ntp1/internal/core/domain"
)

// buildTransferInstructions distributes the tokens of every input, in order,
// to the recipients asking for them, in order. What's left of a token on an
// input goes to the pending change output.
func buildTransferInstructions(
	outputs map[domain.Outpoint]*domain.Transaction,
	inputs []domain.Outpoint, recipients []domain.Recipient,
) ([]domain.InputInstructions, error) {
	remaining := make([]int64, len(recipients))
	for i, r := range recipients {
		remaining[i] = r.Amount
	}

	list := make([]domain.InputInstructions, 0, len(inputs))
	for _, in := range inputs {
		out, err := tokenOutput(outputs, in)
		if err != nil {
			return nil, fmt.Errorf("crediting recipients: %w", err)
		}
		if out == nil {
			continue
		}

		tis := make([]domain.TransferInstruction, 0)
		for _, token := range out.Tokens {
			amount := token.Amount
			for j, r := range recipients {
				if amount <= 0 {
					break
				}
				if r.TokenID != token.TokenID || remaining[j] <= 0 {
					continue
				}

				sent := amount
				if remaining[j] < sent {
					sent = remaining[j]
				}
				amount -= sent
				remaining[j] -= sent
				tis = append(tis, domain.TransferInstruction{
					Amount: sent,
					Output: domain.RecipientSlot(j),
				})
			}

			if amount > 0 {
				tis = append(tis, domain.TransferInstruction{
					Amount: amount,
					Output: domain.PendingChangeSlot(),
				})
			}
		}

		list = append(list, domain.InputInstructions{Input: in, Instructions: tis})
	}

	for j, r := range recipients {
		if r.IsNative() {
			continue
		}
		if remaining[j] != 0 {
			return nil, fmt.Errorf(
				"%w: recipient %s of token %s still has an unfulfilled amount of %d",
				domain.ErrUnfulfilledRecipient, r.Destination, r.TokenID, remaining[j],
			)
		}
	}

	return list, nil
}
