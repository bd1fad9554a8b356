package ports

import "github.com/vulpemventures/ocean-ntp1/internal/core/domain"

type LedgerView = domain.LedgerView
type NativeTxCache = domain.NativeTxCache
type WalletView = domain.WalletView

// Shuffler randomizes the order of n elements by calling swap.
// *math/rand.Rand satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// TokenSelector is the abstraction for any kind of service intended to pick
// the wallet outputs that fund a multi-token transfer, and to describe how
// the tokens on each of them are distributed among recipients and change.
type TokenSelector interface {
	// SelectInputs selects the outputs covering every token requested by the
	// given recipients. If autoExtend is false, only the given inputs are
	// used, otherwise any token output of the wallet can be added to them.
	SelectInputs(
		view WalletView, inputs []domain.Outpoint,
		recipients []domain.Recipient, autoExtend bool,
	) (*domain.Selection, error)
	// EnsureNativeCoverage adds spendable outputs to the given selection until
	// the native value of its inputs reaches the target, or until there's
	// nothing left to add. It returns the extended selection and its total
	// native value.
	EnsureNativeCoverage(
		view WalletView, selection *domain.Selection, target int64,
	) (*domain.Selection, int64, error)
}
