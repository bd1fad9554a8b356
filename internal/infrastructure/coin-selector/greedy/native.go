package greedy_selector

import (
	"fmt"
	"sort"

	"github.com/vulpemventures/ocean-ntp1/internal/core/domain"
)

// TotalNativeValue returns the native value held by the given inputs.
// Duplicates are counted once. A tx missing from the cache or an out of range
// output index make the call fail.
func TotalNativeValue(
	cache domain.NativeTxCache, inputs []domain.Outpoint,
) (int64, error) {
	var total int64
	for _, in := range domain.Outpoints(inputs).Dedup() {
		value, err := nativeValue(cache, in)
		if err != nil {
			return 0, err
		}
		total += value
	}
	return total, nil
}

func (s *selector) EnsureNativeCoverage(
	view domain.WalletView, selection *domain.Selection, target int64,
) (*domain.Selection, int64, error) {
	if !selection.IsReady() {
		return nil, 0, domain.ErrSelectionNotReady
	}

	selected := domain.Outpoints(selection.Inputs())
	total, err := TotalNativeValue(view, selected)
	if err != nil {
		return nil, 0, err
	}
	if total >= target {
		return selection, total, nil
	}

	pool := sortedOutpoints(view.SpendableOutputs())
	s.shuffler.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	extra := make(domain.Outpoints, 0)
	for _, op := range pool {
		if selected.Contains(op) || extra.Contains(op) {
			continue
		}
		value, err := nativeValue(view, op)
		if err != nil {
			return nil, 0, err
		}
		extra = append(extra, op)
		total += value
		if total >= target {
			break
		}
	}

	if len(extra) <= 0 {
		return selection, total, nil
	}

	extended, err := selection.WithExtraInputs(extra)
	if err != nil {
		return nil, 0, err
	}
	return extended, total, nil
}

func nativeValue(cache domain.NativeTxCache, op domain.Outpoint) (int64, error) {
	tx, ok := cache.GetTransaction(op.TxID)
	if !ok {
		return 0, fmt.Errorf(
			"%w: tx %s not found in wallet", domain.ErrLedgerInconsistency, op.TxID,
		)
	}
	out, err := tx.Output(op.VOut)
	if err != nil {
		return 0, err
	}
	return out.Value, nil
}

func sortedOutpoints(list []domain.Outpoint) []domain.Outpoint {
	sorted := make([]domain.Outpoint, len(list))
	copy(sorted, list)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Less(sorted[j])
	})
	return sorted
}
