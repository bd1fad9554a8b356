package domain

// LedgerView is a read-only snapshot of the wallet's token holdings.
type LedgerView interface {
	// TokenBalances returns the wallet-wide balance of every token.
	TokenBalances() map[string]int64
	// TokenOutputs returns every wallet output carrying at least one token,
	// along with the transaction it belongs to.
	TokenOutputs() map[Outpoint]*Transaction
	// TokenName returns a human readable name for the given token.
	TokenName(tokenID string) string
}

// NativeTxCache gives access to the wallet's transactions and to the outputs
// that can be spent to cover native value.
type NativeTxCache interface {
	// GetTransaction returns the wallet transaction with the given txid.
	GetTransaction(txid string) (*Transaction, bool)
	// SpendableOutputs returns the outpoints currently available for spending.
	SpendableOutputs() []Outpoint
}

// WalletView groups the views required to select inputs for a transfer.
type WalletView interface {
	LedgerView
	NativeTxCache
}
