package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/vulpemventures/ocean-ntp1/internal/core/domain"
)

type txInmemoryStore struct {
	txs  map[string]*domain.Transaction
	lock *sync.RWMutex
}

// txRepository keeps copies of the stored txs, so that snapshots taken by
// readers are not affected by later confirmations.
type txRepository struct {
	store            *txInmemoryStore
	chEvents         chan domain.TransactionEvent
	externalChEvents chan domain.TransactionEvent
	chLock           *sync.Mutex
}

func NewTransactionRepository() domain.TransactionRepository {
	return newTransactionRepository()
}

func newTransactionRepository() *txRepository {
	return &txRepository{
		store: &txInmemoryStore{
			txs:  make(map[string]*domain.Transaction),
			lock: &sync.RWMutex{},
		},
		chEvents:         make(chan domain.TransactionEvent),
		externalChEvents: make(chan domain.TransactionEvent),
		chLock:           &sync.Mutex{},
	}
}

func (r *txRepository) AddTransaction(
	_ context.Context, tx *domain.Transaction,
) (bool, error) {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	if _, ok := r.store.txs[tx.TxID]; ok {
		return false, nil
	}
	r.store.txs[tx.TxID] = cloneTx(tx)

	go r.publishEvent(domain.TransactionEvent{
		EventType:   domain.TransactionAdded,
		Transaction: cloneTx(tx),
	})
	return true, nil
}

func (r *txRepository) ConfirmTransaction(
	_ context.Context,
	txid, blockHash string, blockHeight uint64, blockTime int64,
) (bool, error) {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	tx, ok := r.store.txs[txid]
	if !ok {
		return false, domain.ErrTransactionNotFound
	}
	if tx.IsConfirmed() {
		return false, nil
	}

	tx.Confirm(blockHash, blockHeight, blockTime)

	go r.publishEvent(domain.TransactionEvent{
		EventType:   domain.TransactionConfirmed,
		Transaction: cloneTx(tx),
	})
	return true, nil
}

func (r *txRepository) GetTransaction(
	_ context.Context, txid string,
) (*domain.Transaction, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	tx, ok := r.store.txs[txid]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	return cloneTx(tx), nil
}

func (r *txRepository) GetAllTransactions(
	_ context.Context,
) ([]*domain.Transaction, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	txs := make([]*domain.Transaction, 0, len(r.store.txs))
	for _, tx := range r.store.txs {
		txs = append(txs, cloneTx(tx))
	}
	sort.Slice(txs, func(i, j int) bool {
		return txs[i].TxID < txs[j].TxID
	})
	return txs, nil
}

func (r *txRepository) UpdateTransaction(
	_ context.Context, txid string,
	updateFn func(tx *domain.Transaction) (*domain.Transaction, error),
) error {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	tx, ok := r.store.txs[txid]
	if !ok {
		return domain.ErrTransactionNotFound
	}

	updatedTx, err := updateFn(cloneTx(tx))
	if err != nil {
		return err
	}

	r.store.txs[txid] = cloneTx(updatedTx)
	return nil
}

func (r *txRepository) GetEventChannel() chan domain.TransactionEvent {
	return r.externalChEvents
}

func (r *txRepository) publishEvent(event domain.TransactionEvent) {
	r.chLock.Lock()
	defer r.chLock.Unlock()

	r.chEvents <- event
	// send over channel without blocking in case nobody is listening.
	select {
	case r.externalChEvents <- event:
	default:
	}
}

func (r *txRepository) reset() {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	r.store.txs = make(map[string]*domain.Transaction)
}

func (r *txRepository) close() {
	close(r.chEvents)
	close(r.externalChEvents)
}

func cloneTx(tx *domain.Transaction) *domain.Transaction {
	clone := *tx
	clone.Outputs = make([]domain.TxOutput, 0, len(tx.Outputs))
	for _, out := range tx.Outputs {
		out.Tokens = append(domain.TokenAmounts(nil), out.Tokens...)
		out.Script = append([]byte(nil), out.Script...)
		clone.Outputs = append(clone.Outputs, out)
	}
	return &clone
}
