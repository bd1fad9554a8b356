package greedy_selector

import "github.com/vulpemventures/ocean-ntp1/internal/core/domain"

// requiredTokenAmounts sums the requested amounts per token.
func requiredTokenAmounts(recipients []domain.Recipient) map[string]int64 {
	amounts := make(map[string]int64)
	for _, r := range recipients {
		amounts[r.TokenID] += r.Amount
	}
	return amounts
}

func sumAmounts(amounts map[string]int64) int64 {
	var total int64
	for _, v := range amounts {
		total += v
	}
	return total
}
