package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/vulpemventures/ocean-ntp1/internal/core/domain"
)

type tokenRepository struct {
	tokens map[string]domain.Token
	lock   *sync.RWMutex
}

func NewTokenRepository() domain.TokenRepository {
	return newTokenRepository()
}

func newTokenRepository() *tokenRepository {
	return &tokenRepository{
		tokens: make(map[string]domain.Token),
		lock:   &sync.RWMutex{},
	}
}

func (r *tokenRepository) AddTokens(
	_ context.Context, tokens []*domain.Token,
) (int, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	count := 0
	for _, t := range tokens {
		if _, ok := r.tokens[t.TokenID]; ok {
			continue
		}
		r.tokens[t.TokenID] = *t
		count++
	}
	return count, nil
}

func (r *tokenRepository) GetToken(
	_ context.Context, tokenID string,
) (*domain.Token, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	token, ok := r.tokens[tokenID]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	return &token, nil
}

func (r *tokenRepository) GetAllTokens(_ context.Context) ([]*domain.Token, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	tokens := make([]*domain.Token, 0, len(r.tokens))
	for _, t := range r.tokens {
		token := t
		tokens = append(tokens, &token)
	}
	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].TokenID < tokens[j].TokenID
	})
	return tokens, nil
}

func (r *tokenRepository) reset() {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.tokens = make(map[string]domain.Token)
}
