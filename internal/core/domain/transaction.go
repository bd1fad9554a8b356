package domain

import "fmt"

// TxOutput is an output of a ledger transaction: its native value and the
// ordered list of tokens it carries.
type TxOutput struct {
	Value  int64
	Tokens TokenAmounts
	Script []byte
}

// TokenCount returns the number of token entries carried by the output.
func (o TxOutput) TokenCount() int {
	return len(o.Tokens)
}

// Transaction is the data structure representing a wallet-related tx with
// its outputs and, if included in the blockchain, the block info.
type Transaction struct {
	TxID        string
	Outputs     []TxOutput
	BlockHash   string
	BlockHeight uint64
	BlockTime   int64
}

// IsConfirmed returns whther the tx is included in the blockchain.
func (t *Transaction) IsConfirmed() bool {
	return t.BlockHash != ""
}

// Confirm marks the tx as confirmed.
func (t *Transaction) Confirm(
	blockHash string, blockHeight uint64, blockTime int64,
) {
	if t.IsConfirmed() {
		return
	}

	t.BlockHash = blockHash
	t.BlockHeight = blockHeight
	t.BlockTime = blockTime
}

// Output returns the output at the given index. An out of range index means
// the caller holds a reference the ledger doesn't know about.
func (t *Transaction) Output(vout uint32) (*TxOutput, error) {
	if int(vout) >= len(t.Outputs) {
		return nil, fmt.Errorf(
			"%w: output index %d out of range for tx %s with %d outputs",
			ErrLedgerInconsistency, vout, t.TxID, len(t.Outputs),
		)
	}
	return &t.Outputs[vout], nil
}

// Outpoints returns the outpoints of the given output indexes.
func (t *Transaction) Outpoints(vouts ...uint32) []Outpoint {
	list := make([]Outpoint, 0, len(vouts))
	for _, vout := range vouts {
		list = append(list, Outpoint{t.TxID, vout})
	}
	return list
}
