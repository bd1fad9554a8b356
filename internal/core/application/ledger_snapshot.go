package application

import (
	"context"
	"fmt"

	"github.com/vulpemventures/ocean-ntp1/internal/core/domain"
	"github.com/vulpemventures/ocean-ntp1/internal/core/ports"
)

// ledgerSnapshot is the read-only view of the wallet used for a single
// selection. Only confirmed, unspent and unlocked utxos are part of it, so
// that token balances always match the outputs that can be selected.
type ledgerSnapshot struct {
	balances     map[string]int64
	tokenOutputs map[domain.Outpoint]*domain.Transaction
	spendable    []domain.Outpoint
	txs          map[string]*domain.Transaction
	tokenNames   map[string]string
}

// NewLedgerSnapshot reads the repositories of the given manager and returns
// a frozen view of the wallet. Later changes to the repos are not reflected.
func NewLedgerSnapshot(
	ctx context.Context, repoManager ports.RepoManager,
) (domain.WalletView, error) {
	txs, err := repoManager.TransactionRepository().GetAllTransactions(ctx)
	if err != nil {
		return nil, err
	}
	utxos, err := repoManager.UtxoRepository().GetSpendableUtxos(ctx)
	if err != nil {
		return nil, err
	}
	tokens, err := repoManager.TokenRepository().GetAllTokens(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := &ledgerSnapshot{
		balances:     make(map[string]int64),
		tokenOutputs: make(map[domain.Outpoint]*domain.Transaction),
		spendable:    make([]domain.Outpoint, 0, len(utxos)),
		txs:          make(map[string]*domain.Transaction, len(txs)),
		tokenNames:   make(map[string]string, len(tokens)),
	}
	for _, tx := range txs {
		snapshot.txs[tx.TxID] = tx
	}
	for _, t := range tokens {
		snapshot.tokenNames[t.TokenID] = t.DisplayName()
	}

	for _, u := range utxos {
		tx, ok := snapshot.txs[u.TxID]
		if !ok {
			return nil, fmt.Errorf(
				"%w: tx of utxo %s not found", domain.ErrLedgerInconsistency, u.Key(),
			)
		}
		out, err := tx.Output(u.VOut)
		if err != nil {
			return nil, err
		}
		if len(out.Tokens) <= 0 {
			snapshot.spendable = append(snapshot.spendable, u.Key())
			continue
		}
		snapshot.tokenOutputs[u.Key()] = tx
		for _, t := range out.Tokens {
			snapshot.balances[t.TokenID] += t.Amount
		}
	}

	return snapshot, nil
}

func (s *ledgerSnapshot) TokenBalances() map[string]int64 {
	balances := make(map[string]int64, len(s.balances))
	for tokenID, amount := range s.balances {
		balances[tokenID] = amount
	}
	return balances
}

func (s *ledgerSnapshot) TokenOutputs() map[domain.Outpoint]*domain.Transaction {
	return s.tokenOutputs
}

func (s *ledgerSnapshot) TokenName(tokenID string) string {
	if name, ok := s.tokenNames[tokenID]; ok {
		return name
	}
	return tokenID
}

func (s *ledgerSnapshot) GetTransaction(txid string) (*domain.Transaction, bool) {
	tx, ok := s.txs[txid]
	return tx, ok
}

func (s *ledgerSnapshot) SpendableOutputs() []domain.Outpoint {
	list := make([]domain.Outpoint, len(s.spendable))
	copy(list, s.spendable)
	return list
}
