package domain

import (
	"context"
	"sort"
)

// NativeTokenID is the reserved id of the chain's native currency. It's never
// part of token arithmetic, recipients requesting it are paid by the native
// value of the inputs instead.
const NativeTokenID = "NEBL"

// TokenAmount is a quantity of a single token carried by an output.
type TokenAmount struct {
	TokenID string
	Amount  int64
}

// TokenAmounts is the ordered list of tokens carried by an output.
type TokenAmounts []TokenAmount

// Total returns the amount of the given token, summed over all entries.
func (t TokenAmounts) Total(tokenID string) int64 {
	var total int64
	for _, v := range t {
		if v.TokenID == tokenID {
			total += v.Amount
		}
	}
	return total
}

// Has returns whether the list contains an entry for the given token.
func (t TokenAmounts) Has(tokenID string) bool {
	for _, v := range t {
		if v.TokenID == tokenID {
			return true
		}
	}
	return false
}

// ByToken returns the amounts summed per token id.
func (t TokenAmounts) ByToken() map[string]int64 {
	amounts := make(map[string]int64)
	for _, v := range t {
		amounts[v.TokenID] += v.Amount
	}
	return amounts
}

// Token holds the metadata of a token known by the wallet.
type Token struct {
	TokenID  string
	Name     string
	Symbol   string
	Decimals uint8
}

// DisplayName returns the name to be used in messages for the user.
func (t *Token) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	if t.Symbol != "" {
		return t.Symbol
	}
	return t.TokenID
}

// TokenRepository is the abstraction for any kind of database intended to
// persist token metadata.
type TokenRepository interface {
	// AddTokens adds the given tokens by preventing duplicates.
	AddTokens(ctx context.Context, tokens []*Token) (int, error)
	// GetToken returns the token identified by the given id.
	GetToken(ctx context.Context, tokenID string) (*Token, error)
	// GetAllTokens returns all the known tokens.
	GetAllTokens(ctx context.Context) ([]*Token, error)
}

// SortedTokenIDs returns the keys of the given map in lexicographic order.
func SortedTokenIDs(m map[string]int64) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
