package greedy_selector_test

import (
	"fmt"

	"github.com/vulpemventures/ocean-ntp1/internal/core/domain"
)

// walletView is an in-memory domain.WalletView built from a list of txs.
type walletView struct {
	txs         map[string]*domain.Transaction
	tokenOuts   map[domain.Outpoint]*domain.Transaction
	spendable   []domain.Outpoint
	names       map[string]string
	nameLookups []string
}

func newWalletView(txs ...*domain.Transaction) *walletView {
	v := &walletView{
		txs:       make(map[string]*domain.Transaction),
		tokenOuts: make(map[domain.Outpoint]*domain.Transaction),
		spendable: make([]domain.Outpoint, 0),
		names:     make(map[string]string),
	}
	for _, tx := range txs {
		v.txs[tx.TxID] = tx
		for i, out := range tx.Outputs {
			op := domain.Outpoint{TxID: tx.TxID, VOut: uint32(i)}
			if len(out.Tokens) > 0 {
				v.tokenOuts[op] = tx
				continue
			}
			v.spendable = append(v.spendable, op)
		}
	}
	return v
}

func (v *walletView) TokenBalances() map[string]int64 {
	balances := make(map[string]int64)
	for op, tx := range v.tokenOuts {
		if int(op.VOut) >= len(tx.Outputs) {
			continue
		}
		for _, t := range tx.Outputs[op.VOut].Tokens {
			balances[t.TokenID] += t.Amount
		}
	}
	return balances
}

func (v *walletView) TokenOutputs() map[domain.Outpoint]*domain.Transaction {
	return v.tokenOuts
}

func (v *walletView) TokenName(tokenID string) string {
	v.nameLookups = append(v.nameLookups, tokenID)
	if name, ok := v.names[tokenID]; ok {
		return name
	}
	return tokenID
}

func (v *walletView) GetTransaction(txid string) (*domain.Transaction, bool) {
	tx, ok := v.txs[txid]
	return tx, ok
}

func (v *walletView) SpendableOutputs() []domain.Outpoint {
	return v.spendable
}

func txid(n int) string {
	return fmt.Sprintf("%064x", n)
}

func tokenTx(n int, outs ...domain.TxOutput) *domain.Transaction {
	return &domain.Transaction{TxID: txid(n), Outputs: outs}
}

func out(value int64, tokens ...domain.TokenAmount) domain.TxOutput {
	return domain.TxOutput{Value: value, Tokens: tokens}
}

func tk(tokenID string, amount int64) domain.TokenAmount {
	return domain.TokenAmount{TokenID: tokenID, Amount: amount}
}

func op(n int, vout uint32) domain.Outpoint {
	return domain.Outpoint{TxID: txid(n), VOut: vout}
}
