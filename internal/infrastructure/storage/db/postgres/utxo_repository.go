package postgresdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/vulpemventures/ocean-ntp1/internal/core/domain"
)

const (
	uniqueViolation = "23505"

	utxoColumns = `tx_id, vout, value, tokens, script, lock_timestamp,
lock_expiry_timestamp, spent, spent_txid, spent_block_hash, spent_block_height,
spent_block_time, confirmed, confirmed_block_hash, confirmed_block_height,
confirmed_block_time`

	insertUtxoQuery = `INSERT INTO utxo (` + utxoColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	selectUtxosQuery = `SELECT ` + utxoColumns + ` FROM utxo`

	selectUtxoForUpdateQuery = selectUtxosQuery +
		` WHERE tx_id = $1 AND vout = $2 FOR UPDATE`

	updateUtxoQuery = `UPDATE utxo SET lock_timestamp = $3,
lock_expiry_timestamp = $4, spent = $5, spent_txid = $6, spent_block_hash = $7,
spent_block_height = $8, spent_block_time = $9, confirmed = $10,
confirmed_block_hash = $11, confirmed_block_height = $12,
confirmed_block_time = $13 WHERE tx_id = $1 AND vout = $2`
)

type utxoRepositoryPg struct {
	pgxPool          *pgxpool.Pool
	chLock           *sync.Mutex
	chEvents         chan domain.UtxoEvent
	externalChEvents chan domain.UtxoEvent
}

func NewUtxoRepositoryPgImpl(pgxPool *pgxpool.Pool) domain.UtxoRepository {
	return newUtxoRepositoryPgImpl(pgxPool)
}

func newUtxoRepositoryPgImpl(pgxPool *pgxpool.Pool) *utxoRepositoryPg {
	return &utxoRepositoryPg{
		pgxPool:          pgxPool,
		chLock:           &sync.Mutex{},
		chEvents:         make(chan domain.UtxoEvent),
		externalChEvents: make(chan domain.UtxoEvent),
	}
}

func (u *utxoRepositoryPg) AddUtxos(
	ctx context.Context, utxos []*domain.Utxo,
) (int, error) {
	count := 0
	utxosInfo := make([]domain.UtxoInfo, 0, len(utxos))
	for _, v := range utxos {
		tokens, err := json.Marshal(nonNilTokens(v.Tokens))
		if err != nil {
			return 0, err
		}

		if _, err := u.pgxPool.Exec(
			ctx, insertUtxoQuery,
			v.TxID, int64(v.VOut), v.Value, string(tokens), v.Script,
			v.LockTimestamp, v.LockExpiryTimestamp,
			v.IsSpent(), v.SpentStatus.Txid, v.SpentStatus.BlockHash,
			int64(v.SpentStatus.BlockHeight), v.SpentStatus.BlockTime,
			v.IsConfirmed(), v.ConfirmedStatus.BlockHash,
			int64(v.ConfirmedStatus.BlockHeight), v.ConfirmedStatus.BlockTime,
		); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				continue
			}
			return 0, err
		}

		utxosInfo = append(utxosInfo, v.Info())
		count++
	}

	if count > 0 {
		go u.publishEvent(domain.UtxoEvent{
			EventType: domain.UtxoAdded,
			Utxos:     utxosInfo,
		})
	}

	return count, nil
}

func (u *utxoRepositoryPg) GetUtxosByKey(
	ctx context.Context, utxoKeys []domain.Outpoint,
) ([]*domain.Utxo, error) {
	utxos := make([]*domain.Utxo, 0, len(utxoKeys))
	for _, key := range utxoKeys {
		found, err := u.queryUtxos(
			ctx, selectUtxosQuery+` WHERE tx_id = $1 AND vout = $2`,
			key.TxID, int64(key.VOut),
		)
		if err != nil {
			return nil, err
		}
		utxos = append(utxos, found...)
	}
	return utxos, nil
}

func (u *utxoRepositoryPg) GetAllUtxos(
	ctx context.Context,
) ([]*domain.Utxo, error) {
	return u.queryUtxos(ctx, selectUtxosQuery)
}

func (u *utxoRepositoryPg) GetSpendableUtxos(
	ctx context.Context,
) ([]*domain.Utxo, error) {
	return u.queryUtxos(
		ctx,
		selectUtxosQuery+` WHERE NOT spent AND confirmed AND lock_timestamp = 0`,
	)
}

func (u *utxoRepositoryPg) GetLockedUtxos(
	ctx context.Context,
) ([]*domain.Utxo, error) {
	return u.queryUtxos(
		ctx, selectUtxosQuery+` WHERE NOT spent AND lock_timestamp > 0`,
	)
}

func (u *utxoRepositoryPg) GetBalance(
	ctx context.Context,
) (map[string]*domain.Balance, error) {
	utxos, err := u.queryUtxos(ctx, selectUtxosQuery+` WHERE NOT spent`)
	if err != nil {
		return nil, err
	}
	return domain.ComputeBalance(utxos), nil
}

func (u *utxoRepositoryPg) SpendUtxos(
	ctx context.Context, utxoKeys []domain.Outpoint, status domain.UtxoStatus,
) (int, error) {
	return u.updateUtxos(
		ctx, utxoKeys, domain.UtxoSpent, func(utxo *domain.Utxo) (bool, error) {
			if utxo.IsSpent() {
				return false, nil
			}
			return true, utxo.Spend(status)
		},
	)
}

func (u *utxoRepositoryPg) ConfirmUtxos(
	ctx context.Context, utxoKeys []domain.Outpoint, status domain.UtxoStatus,
) (int, error) {
	return u.updateUtxos(
		ctx, utxoKeys, domain.UtxoConfirmed, func(utxo *domain.Utxo) (bool, error) {
			if utxo.IsConfirmed() {
				return false, nil
			}
			return true, utxo.Confirm(status)
		},
	)
}

func (u *utxoRepositoryPg) LockUtxos(
	ctx context.Context, utxoKeys []domain.Outpoint,
	timestamp, expiryTimestamp int64,
) (int, error) {
	return u.updateUtxos(
		ctx, utxoKeys, domain.UtxoLocked, func(utxo *domain.Utxo) (bool, error) {
			if utxo.IsLocked() || utxo.IsSpent() {
				return false, nil
			}
			utxo.Lock(timestamp, expiryTimestamp)
			return true, nil
		},
	)
}

func (u *utxoRepositoryPg) UnlockUtxos(
	ctx context.Context, utxoKeys []domain.Outpoint,
) (int, error) {
	return u.updateUtxos(
		ctx, utxoKeys, domain.UtxoUnlocked, func(utxo *domain.Utxo) (bool, error) {
			if !utxo.IsLocked() {
				return false, nil
			}
			utxo.Unlock()
			return true, nil
		},
	)
}

func (u *utxoRepositoryPg) GetEventChannel() chan domain.UtxoEvent {
	return u.externalChEvents
}

// updateUtxos applies updateFn to every utxo matching the given keys within
// a single db transaction. Either all changes are committed or none.
func (u *utxoRepositoryPg) updateUtxos(
	ctx context.Context, utxoKeys []domain.Outpoint,
	eventType domain.UtxoEventType, updateFn func(*domain.Utxo) (bool, error),
) (int, error) {
	conn, err := u.pgxPool.Acquire(ctx)
	if err != nil {
		return -1, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return -1, err
	}
	defer tx.Rollback(ctx)

	count := 0
	utxosInfo := make([]domain.UtxoInfo, 0, len(utxoKeys))
	for _, key := range utxoKeys {
		rows, err := tx.Query(
			ctx, selectUtxoForUpdateQuery, key.TxID, int64(key.VOut),
		)
		if err != nil {
			return -1, err
		}
		utxos, err := scanUtxos(rows)
		if err != nil {
			return -1, err
		}
		if len(utxos) <= 0 {
			continue
		}

		utxo := utxos[0]
		done, err := updateFn(utxo)
		if err != nil {
			return -1, err
		}
		if !done {
			continue
		}

		if _, err := tx.Exec(
			ctx, updateUtxoQuery, utxo.TxID, int64(utxo.VOut),
			utxo.LockTimestamp, utxo.LockExpiryTimestamp,
			utxo.IsSpent(), utxo.SpentStatus.Txid, utxo.SpentStatus.BlockHash,
			int64(utxo.SpentStatus.BlockHeight), utxo.SpentStatus.BlockTime,
			utxo.IsConfirmed(), utxo.ConfirmedStatus.BlockHash,
			int64(utxo.ConfirmedStatus.BlockHeight), utxo.ConfirmedStatus.BlockTime,
		); err != nil {
			return -1, err
		}

		utxosInfo = append(utxosInfo, utxo.Info())
		count++
	}

	if err := tx.Commit(ctx); err != nil {
		return -1, err
	}

	if count > 0 {
		go u.publishEvent(domain.UtxoEvent{
			EventType: eventType,
			Utxos:     utxosInfo,
		})
	}

	return count, nil
}

func (u *utxoRepositoryPg) queryUtxos(
	ctx context.Context, query string, args ...interface{},
) ([]*domain.Utxo, error) {
	rows, err := u.pgxPool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanUtxos(rows)
}

func scanUtxos(rows pgx.Rows) ([]*domain.Utxo, error) {
	defer rows.Close()

	utxos := make([]*domain.Utxo, 0)
	for rows.Next() {
		var (
			utxo                         domain.Utxo
			vout                         int64
			tokens                       []byte
			spent, confirmed             bool
			spentHeight, confirmedHeight int64
		)
		if err := rows.Scan(
			&utxo.TxID, &vout, &utxo.Value, &tokens, &utxo.Script,
			&utxo.LockTimestamp, &utxo.LockExpiryTimestamp,
			&spent, &utxo.SpentStatus.Txid, &utxo.SpentStatus.BlockHash,
			&spentHeight, &utxo.SpentStatus.BlockTime,
			&confirmed, &utxo.ConfirmedStatus.BlockHash,
			&confirmedHeight, &utxo.ConfirmedStatus.BlockTime,
		); err != nil {
			return nil, err
		}

		utxo.VOut = uint32(vout)
		utxo.SpentStatus.BlockHeight = uint64(spentHeight)
		utxo.ConfirmedStatus.BlockHeight = uint64(confirmedHeight)
		if !spent {
			utxo.SpentStatus = domain.UtxoStatus{}
		}
		if !confirmed {
			utxo.ConfirmedStatus = domain.UtxoStatus{}
		}

		if err := json.Unmarshal(tokens, &utxo.Tokens); err != nil {
			return nil, fmt.Errorf("decoding tokens of utxo %s: %w", utxo.Key(), err)
		}
		if len(utxo.Tokens) <= 0 {
			utxo.Tokens = nil
		}

		utxos = append(utxos, &utxo)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return utxos, nil
}

func (u *utxoRepositoryPg) publishEvent(event domain.UtxoEvent) {
	u.chLock.Lock()
	defer u.chLock.Unlock()

	u.chEvents <- event
	// send over channel without blocking in case nobody is listening.
	select {
	case u.externalChEvents <- event:
	default:
	}
}

func (u *utxoRepositoryPg) reset(ctx context.Context) error {
	_, err := u.pgxPool.Exec(ctx, "TRUNCATE TABLE utxo")
	return err
}

func (u *utxoRepositoryPg) close() {
	close(u.chEvents)
	close(u.externalChEvents)
}

func nonNilTokens(tokens domain.TokenAmounts) domain.TokenAmounts {
	if tokens == nil {
		return domain.TokenAmounts{}
	}
	return tokens
}
