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
	txColumns = `tx_id, outputs, block_hash, block_height, block_time`

	insertTxQuery = `INSERT INTO transaction (` + txColumns + `)
VALUES ($1, $2, $3, $4, $5)`

	selectTxsQuery = `SELECT ` + txColumns + ` FROM transaction`

	updateTxQuery = `UPDATE transaction SET outputs = $2, block_hash = $3,
block_height = $4, block_time = $5 WHERE tx_id = $1`
)

type txRepositoryPg struct {
	pgxPool          *pgxpool.Pool
	chLock           *sync.Mutex
	chEvents         chan domain.TransactionEvent
	externalChEvents chan domain.TransactionEvent
}

func NewTxRepositoryPgImpl(pgxPool *pgxpool.Pool) domain.TransactionRepository {
	return newTxRepositoryPgImpl(pgxPool)
}

func newTxRepositoryPgImpl(pgxPool *pgxpool.Pool) *txRepositoryPg {
	return &txRepositoryPg{
		pgxPool:          pgxPool,
		chLock:           &sync.Mutex{},
		chEvents:         make(chan domain.TransactionEvent),
		externalChEvents: make(chan domain.TransactionEvent),
	}
}

func (t *txRepositoryPg) AddTransaction(
	ctx context.Context, trx *domain.Transaction,
) (bool, error) {
	outputs, err := json.Marshal(trx.Outputs)
	if err != nil {
		return false, err
	}

	if _, err := t.pgxPool.Exec(
		ctx, insertTxQuery, trx.TxID, string(outputs), trx.BlockHash,
		int64(trx.BlockHeight), trx.BlockTime,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return false, nil
		}
		return false, err
	}

	go t.publishEvent(domain.TransactionEvent{
		EventType:   domain.TransactionAdded,
		Transaction: trx,
	})

	return true, nil
}

func (t *txRepositoryPg) ConfirmTransaction(
	ctx context.Context, txid, blockHash string,
	blockHeight uint64, blockTime int64,
) (bool, error) {
	var confirmed bool
	var trx *domain.Transaction
	err := t.withTx(ctx, txid, func(tx *domain.Transaction) (*domain.Transaction, error) {
		if tx.IsConfirmed() {
			return nil, nil
		}
		tx.Confirm(blockHash, blockHeight, blockTime)
		confirmed = true
		trx = tx
		return tx, nil
	})
	if err != nil {
		return false, err
	}

	if confirmed {
		go t.publishEvent(domain.TransactionEvent{
			EventType:   domain.TransactionConfirmed,
			Transaction: trx,
		})
	}
	return confirmed, nil
}

func (t *txRepositoryPg) GetTransaction(
	ctx context.Context, txid string,
) (*domain.Transaction, error) {
	rows, err := t.pgxPool.Query(ctx, selectTxsQuery+` WHERE tx_id = $1`, txid)
	if err != nil {
		return nil, err
	}
	txs, err := scanTxs(rows)
	if err != nil {
		return nil, err
	}
	if len(txs) <= 0 {
		return nil, domain.ErrTransactionNotFound
	}
	return txs[0], nil
}

func (t *txRepositoryPg) GetAllTransactions(
	ctx context.Context,
) ([]*domain.Transaction, error) {
	rows, err := t.pgxPool.Query(ctx, selectTxsQuery+` ORDER BY tx_id`)
	if err != nil {
		return nil, err
	}
	return scanTxs(rows)
}

func (t *txRepositoryPg) UpdateTransaction(
	ctx context.Context, txid string,
	updateFn func(tx *domain.Transaction) (*domain.Transaction, error),
) error {
	return t.withTx(ctx, txid, updateFn)
}

func (t *txRepositoryPg) GetEventChannel() chan domain.TransactionEvent {
	return t.externalChEvents
}

// withTx loads the given tx with a row lock, applies updateFn and writes back
// the result, if any.
func (t *txRepositoryPg) withTx(
	ctx context.Context, txid string,
	updateFn func(tx *domain.Transaction) (*domain.Transaction, error),
) error {
	conn, err := t.pgxPool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	dbTx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer dbTx.Rollback(ctx)

	rows, err := dbTx.Query(
		ctx, selectTxsQuery+` WHERE tx_id = $1 FOR UPDATE`, txid,
	)
	if err != nil {
		return err
	}
	txs, err := scanTxs(rows)
	if err != nil {
		return err
	}
	if len(txs) <= 0 {
		return domain.ErrTransactionNotFound
	}

	updatedTx, err := updateFn(txs[0])
	if err != nil {
		return err
	}
	if updatedTx == nil {
		return nil
	}

	outputs, err := json.Marshal(updatedTx.Outputs)
	if err != nil {
		return err
	}
	if _, err := dbTx.Exec(
		ctx, updateTxQuery, txid, string(outputs), updatedTx.BlockHash,
		int64(updatedTx.BlockHeight), updatedTx.BlockTime,
	); err != nil {
		return err
	}

	return dbTx.Commit(ctx)
}

func scanTxs(rows pgx.Rows) ([]*domain.Transaction, error) {
	defer rows.Close()

	txs := make([]*domain.Transaction, 0)
	for rows.Next() {
		var (
			tx          domain.Transaction
			outputs     []byte
			blockHeight int64
		)
		if err := rows.Scan(
			&tx.TxID, &outputs, &tx.BlockHash, &blockHeight, &tx.BlockTime,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(outputs, &tx.Outputs); err != nil {
			return nil, fmt.Errorf("decoding outputs of tx %s: %w", tx.TxID, err)
		}
		tx.BlockHeight = uint64(blockHeight)
		txs = append(txs, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return txs, nil
}

func (t *txRepositoryPg) publishEvent(event domain.TransactionEvent) {
	t.chLock.Lock()
	defer t.chLock.Unlock()

	t.chEvents <- event
	// send over channel without blocking in case nobody is listening.
	select {
	case t.externalChEvents <- event:
	default:
	}
}

func (t *txRepositoryPg) reset(ctx context.Context) error {
	_, err := t.pgxPool.Exec(ctx, "TRUNCATE TABLE transaction")
	return err
}

func (t *txRepositoryPg) close() {
	close(t.chEvents)
	close(t.externalChEvents)
}
