package domain

import (
	"fmt"
	"time"
)

var (
	ErrUtxoAlreadyLocked = fmt.Errorf("utxo is already locked")
)

// UtxoInfo is a light view of an Utxo, carried by repository events.
type UtxoInfo struct {
	Outpoint
	Value           int64
	Tokens          TokenAmounts
	SpentStatus     UtxoStatus
	ConfirmedStatus UtxoStatus
}

func (i UtxoInfo) Key() Outpoint {
	return i.Outpoint
}

// Balance holds info about the balance of a list of utxos for the same
// token (or the native currency).
type Balance struct {
	Confirmed   int64
	Unconfirmed int64
	Locked      int64
}

func (b *Balance) Total() int64 {
	return b.Confirmed + b.Unconfirmed + b.Locked
}

type UtxoStatus struct {
	Txid        string
	BlockHeight uint64
	BlockTime   int64
	BlockHash   string
}

// Utxo is the data structure representing an unspent output owned by the
// wallet, with its native value and tokens and extra info like whether it is
// spent/unspent, confirmed/unconfirmed or locked/unlocked.
type Utxo struct {
	Outpoint
	Value               int64
	Tokens              TokenAmounts
	Script              []byte
	LockTimestamp       int64
	LockExpiryTimestamp int64
	SpentStatus         UtxoStatus
	ConfirmedStatus     UtxoStatus
}

// IsSpent returns whether the utxo have been spent.
func (u *Utxo) IsSpent() bool {
	return u.SpentStatus != UtxoStatus{}
}

// IsConfirmed returns whether the utxo is confirmed.
func (u *Utxo) IsConfirmed() bool {
	return u.ConfirmedStatus != UtxoStatus{}
}

// HasTokens returns whether the utxo carries at least one token.
func (u *Utxo) HasTokens() bool {
	return len(u.Tokens) > 0
}

// IsLocked returns whether the utxo is locked.
func (u *Utxo) IsLocked() bool {
	return u.LockTimestamp > 0
}

// CanUnlock reutrns whether a locked utxo can be unlocked.
func (u *Utxo) CanUnlock() bool {
	if !u.IsLocked() {
		return true
	}
	return time.Now().After(time.Unix(u.LockExpiryTimestamp, 0))
}

// Key returns the Outpoint of the current utxo.
func (u *Utxo) Key() Outpoint {
	return u.Outpoint
}

// Info returns a light view of the current utxo.
func (u *Utxo) Info() UtxoInfo {
	return UtxoInfo{
		u.Key(), u.Value, u.Tokens, u.SpentStatus, u.ConfirmedStatus,
	}
}

// Spend marks the utxos as spent.
func (u *Utxo) Spend(status UtxoStatus) error {
	if u.IsSpent() {
		return nil
	}

	if status.Txid == "" {
		return fmt.Errorf("missing txid")
	}
	u.SpentStatus = status
	u.LockTimestamp = 0
	u.LockExpiryTimestamp = 0
	return nil
}

// Confirm marks the utxos as confirmed.
func (u *Utxo) Confirm(status UtxoStatus) error {
	if u.IsConfirmed() {
		return nil
	}

	emptyStatus := UtxoStatus{}
	if status == emptyStatus {
		return fmt.Errorf("status must not be empty")
	}
	if status.BlockHeight == 0 && status.BlockTime == 0 && status.BlockHash == "" {
		return fmt.Errorf("missing block info")
	}
	u.ConfirmedStatus = status
	u.ConfirmedStatus.Txid = ""
	return nil
}

// Lock marks the current utxo as locked.
func (u *Utxo) Lock(timestamp, expiryTimestamp int64) {
	if !u.IsLocked() {
		u.LockTimestamp = timestamp
		u.LockExpiryTimestamp = expiryTimestamp
	}
}

// Unlock marks the current locked utxo as unlocked, regardless of its
// expiration. Callers check CanUnlock when the expiration matters.
func (u *Utxo) Unlock() {
	u.LockTimestamp = 0
	u.LockExpiryTimestamp = 0
}

// ComputeBalance returns the confirmed, unconfirmed and locked balances of
// the given utxos per token id. The native value is accounted under
// NativeTokenID. Spent utxos are skipped.
func ComputeBalance(utxos []*Utxo) map[string]*Balance {
	balance := make(map[string]*Balance)
	add := func(tokenID string, u *Utxo, amount int64) {
		if _, ok := balance[tokenID]; !ok {
			balance[tokenID] = &Balance{}
		}
		b := balance[tokenID]
		if u.IsLocked() {
			b.Locked += amount
			return
		}
		if u.IsConfirmed() {
			b.Confirmed += amount
		} else {
			b.Unconfirmed += amount
		}
	}

	for _, u := range utxos {
		if u.IsSpent() {
			continue
		}
		add(NativeTokenID, u, u.Value)
		for _, t := range u.Tokens {
			add(t.TokenID, u, t.Amount)
		}
	}
	return balance
}
