package dbbadger

import (
	"context"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
	"github.com/vulpemventures/ocean-ntp1/internal/core/domain"
)

type tokenRepository struct {
	store *badgerhold.Store
}

func NewTokenRepository(store *badgerhold.Store) domain.TokenRepository {
	return newTokenRepository(store)
}

func newTokenRepository(store *badgerhold.Store) *tokenRepository {
	return &tokenRepository{store}
}

func (r *tokenRepository) AddTokens(
	ctx context.Context, tokens []*domain.Token,
) (int, error) {
	count := 0
	for _, token := range tokens {
		var err error
		if ctx.Value("tx") != nil {
			tx := ctx.Value("tx").(*badger.Txn)
			err = r.store.TxInsert(tx, token.TokenID, *token)
		} else {
			err = r.store.Insert(token.TokenID, *token)
		}
		if err != nil {
			if err == badgerhold.ErrKeyExists {
				continue
			}
			return -1, err
		}
		count++
	}
	return count, nil
}

func (r *tokenRepository) GetToken(
	ctx context.Context, tokenID string,
) (*domain.Token, error) {
	var token domain.Token
	var err error
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxGet(tx, tokenID, &token)
	} else {
		err = r.store.Get(tokenID, &token)
	}
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrTokenNotFound
		}
		return nil, err
	}
	return &token, nil
}

func (r *tokenRepository) GetAllTokens(
	ctx context.Context,
) ([]*domain.Token, error) {
	var list []domain.Token
	var err error
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxFind(tx, &list, nil)
	} else {
		err = r.store.Find(&list, nil)
	}
	if err != nil && err != badgerhold.ErrNotFound {
		return nil, err
	}

	tokens := make([]*domain.Token, 0, len(list))
	for i := range list {
		tokens = append(tokens, &list[i])
	}
	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].TokenID < tokens[j].TokenID
	})
	return tokens, nil
}

func (r *tokenRepository) reset() {
	r.store.Badger().DropAll()
}

func (r *tokenRepository) close() {
	r.store.Close()
}
