package postgresdb

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/vulpemventures/ocean-ntp1/internal/core/domain"
)

type tokenRepositoryPg struct {
	pgxPool *pgxpool.Pool
}

func NewTokenRepositoryPgImpl(pgxPool *pgxpool.Pool) domain.TokenRepository {
	return newTokenRepositoryPgImpl(pgxPool)
}

func newTokenRepositoryPgImpl(pgxPool *pgxpool.Pool) *tokenRepositoryPg {
	return &tokenRepositoryPg{pgxPool}
}

func (r *tokenRepositoryPg) AddTokens(
	ctx context.Context, tokens []*domain.Token,
) (int, error) {
	count := 0
	for _, token := range tokens {
		if _, err := r.pgxPool.Exec(
			ctx,
			`INSERT INTO token (token_id, name, symbol, decimals) VALUES ($1, $2, $3, $4)`,
			token.TokenID, token.Name, token.Symbol, int16(token.Decimals),
		); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				continue
			}
			return -1, err
		}
		count++
	}
	return count, nil
}

func (r *tokenRepositoryPg) GetToken(
	ctx context.Context, tokenID string,
) (*domain.Token, error) {
	var token domain.Token
	var decimals int16
	if err := r.pgxPool.QueryRow(
		ctx,
		`SELECT token_id, name, symbol, decimals FROM token WHERE token_id = $1`,
		tokenID,
	).Scan(&token.TokenID, &token.Name, &token.Symbol, &decimals); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, err
	}
	token.Decimals = uint8(decimals)
	return &token, nil
}

func (r *tokenRepositoryPg) GetAllTokens(
	ctx context.Context,
) ([]*domain.Token, error) {
	rows, err := r.pgxPool.Query(
		ctx, `SELECT token_id, name, symbol, decimals FROM token ORDER BY token_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tokens := make([]*domain.Token, 0)
	for rows.Next() {
		var token domain.Token
		var decimals int16
		if err := rows.Scan(
			&token.TokenID, &token.Name, &token.Symbol, &decimals,
		); err != nil {
			return nil, err
		}
		token.Decimals = uint8(decimals)
		tokens = append(tokens, &token)
	}
	return tokens, rows.Err()
}

func (r *tokenRepositoryPg) reset(ctx context.Context) error {
	_, err := r.pgxPool.Exec(ctx, "TRUNCATE TABLE token")
	return err
}
