package application

import (
	"github.com/vulpemventures/ocean-ntp1/internal/core/domain"
)

// TransferPlan is the outcome of a successful transfer preparation: the
// selected inputs with their token distribution and the native value
// accounting. The inputs stay locked until LockExpiration, unless released
// or spent before.
type TransferPlan struct {
	ID             string
	Selection      *domain.Selection
	NativeTotal    int64
	NativeRequired int64
	Fee            int64
	NativeChange   int64
	NumOutputs     int64
	LockExpiration int64
}

// Inputs returns the outpoints spent by the plan.
func (p *TransferPlan) Inputs() []domain.Outpoint {
	if p == nil {
		return nil
	}
	return p.Selection.Inputs()
}

type UtxoInfo struct {
	Spendable Utxos
	Locked    Utxos
}

type BalanceInfo map[string]*domain.Balance

type Utxos []*domain.Utxo

func (u Utxos) Keys() []domain.Outpoint {
	keys := make([]domain.Outpoint, 0, len(u))
	for _, utxo := range u {
		keys = append(keys, utxo.Key())
	}
	return keys
}

type UtxosInfo []domain.UtxoInfo

func (u UtxosInfo) Keys() []domain.Outpoint {
	keys := make([]domain.Outpoint, 0, len(u))
	for _, utxo := range u {
		keys = append(keys, utxo.Key())
	}
	return keys
}
