package dbbadger

import (
	"context"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
	"github.com/vulpemventures/ocean-ntp1/internal/core/domain"
)

type utxoRepository struct {
	store            *badgerhold.Store
	chEvents         chan domain.UtxoEvent
	externalChEvents chan domain.UtxoEvent
	lock             *sync.Mutex

	log func(format string, a ...interface{})
}

func NewUtxoRepository(store *badgerhold.Store) domain.UtxoRepository {
	return newUtxoRepository(store)
}

func newUtxoRepository(store *badgerhold.Store) *utxoRepository {
	chEvents := make(chan domain.UtxoEvent)
	externalChEvents := make(chan domain.UtxoEvent)
	lock := &sync.Mutex{}
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("utxo repository: %s", format)
		log.Debugf(format, a...)
	}
	return &utxoRepository{store, chEvents, externalChEvents, lock, logFn}
}

func (r *utxoRepository) AddUtxos(
	ctx context.Context, utxos []*domain.Utxo,
) (int, error) {
	count := 0
	utxosInfo := make([]domain.UtxoInfo, 0)
	for _, u := range utxos {
		done, err := r.insertUtxo(ctx, u)
		if err != nil {
			return -1, err
		}
		if done {
			count++
			utxosInfo = append(utxosInfo, u.Info())
		}
	}

	if count > 0 {
		go r.publishEvent(domain.UtxoEvent{
			EventType: domain.UtxoAdded,
			Utxos:     utxosInfo,
		})
	}

	return count, nil
}

func (r *utxoRepository) GetUtxosByKey(
	ctx context.Context, utxoKeys []domain.Outpoint,
) ([]*domain.Utxo, error) {
	utxos := make([]*domain.Utxo, 0, len(utxoKeys))
	for _, key := range utxoKeys {
		utxo, err := r.getUtxo(ctx, key)
		if err != nil {
			return nil, err
		}
		if utxo != nil {
			utxos = append(utxos, utxo)
		}
	}

	return utxos, nil
}

func (r *utxoRepository) GetAllUtxos(
	ctx context.Context,
) ([]*domain.Utxo, error) {
	return r.findUtxos(ctx, nil)
}

func (r *utxoRepository) GetSpendableUtxos(
	ctx context.Context,
) ([]*domain.Utxo, error) {
	query := badgerhold.Where("SpentStatus").Eq(domain.UtxoStatus{}).
		And("ConfirmedStatus").Ne(domain.UtxoStatus{}).
		And("LockTimestamp").Eq(int64(0))

	return r.findUtxos(ctx, query)
}

func (r *utxoRepository) GetLockedUtxos(
	ctx context.Context,
) ([]*domain.Utxo, error) {
	query := badgerhold.Where("SpentStatus").Eq(domain.UtxoStatus{}).
		And("LockTimestamp").Gt(int64(0))

	return r.findUtxos(ctx, query)
}

func (r *utxoRepository) GetBalance(
	ctx context.Context,
) (map[string]*domain.Balance, error) {
	utxos, err := r.GetAllUtxos(ctx)
	if err != nil {
		return nil, err
	}
	return domain.ComputeBalance(utxos), nil
}

func (r *utxoRepository) SpendUtxos(
	ctx context.Context, utxoKeys []domain.Outpoint, status domain.UtxoStatus,
) (int, error) {
	return r.updateUtxos(
		ctx, utxoKeys, domain.UtxoSpent, func(u *domain.Utxo) (bool, error) {
			if u.IsSpent() {
				return false, nil
			}
			return true, u.Spend(status)
		},
	)
}

func (r *utxoRepository) ConfirmUtxos(
	ctx context.Context, utxoKeys []domain.Outpoint, status domain.UtxoStatus,
) (int, error) {
	return r.updateUtxos(
		ctx, utxoKeys, domain.UtxoConfirmed, func(u *domain.Utxo) (bool, error) {
			if u.IsConfirmed() {
				return false, nil
			}
			return true, u.Confirm(status)
		},
	)
}

func (r *utxoRepository) LockUtxos(
	ctx context.Context,
	utxoKeys []domain.Outpoint, timestamp, expiryTimestamp int64,
) (int, error) {
	return r.updateUtxos(
		ctx, utxoKeys, domain.UtxoLocked, func(u *domain.Utxo) (bool, error) {
			if u.IsLocked() || u.IsSpent() {
				return false, nil
			}
			u.Lock(timestamp, expiryTimestamp)
			return true, nil
		},
	)
}

func (r *utxoRepository) UnlockUtxos(
	ctx context.Context, utxoKeys []domain.Outpoint,
) (int, error) {
	return r.updateUtxos(
		ctx, utxoKeys, domain.UtxoUnlocked, func(u *domain.Utxo) (bool, error) {
			if !u.IsLocked() {
				return false, nil
			}
			u.Unlock()
			return true, nil
		},
	)
}

func (r *utxoRepository) GetEventChannel() chan domain.UtxoEvent {
	return r.externalChEvents
}

func (r *utxoRepository) updateUtxos(
	ctx context.Context, utxoKeys []domain.Outpoint,
	eventType domain.UtxoEventType, updateFn func(u *domain.Utxo) (bool, error),
) (int, error) {
	count := 0
	utxosInfo := make([]domain.UtxoInfo, 0)
	for _, key := range utxoKeys {
		utxo, err := r.getUtxo(ctx, key)
		if err != nil {
			return -1, err
		}
		if utxo == nil {
			continue
		}

		done, err := updateFn(utxo)
		if err != nil {
			return -1, err
		}
		if !done {
			continue
		}

		if err := r.updateUtxo(ctx, utxo); err != nil {
			return -1, err
		}
		count++
		utxosInfo = append(utxosInfo, utxo.Info())
	}

	if count > 0 {
		go r.publishEvent(domain.UtxoEvent{
			EventType: eventType,
			Utxos:     utxosInfo,
		})
	}

	return count, nil
}

func (r *utxoRepository) getUtxo(
	ctx context.Context, key domain.Outpoint,
) (*domain.Utxo, error) {
	var utxo domain.Utxo
	var err error
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxGet(tx, key.Hash(), &utxo)
	} else {
		err = r.store.Get(key.Hash(), &utxo)
	}
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &utxo, nil
}

func (r *utxoRepository) findUtxos(
	ctx context.Context, query *badgerhold.Query,
) ([]*domain.Utxo, error) {
	var list []domain.Utxo
	var err error
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxFind(tx, &list, query)
	} else {
		err = r.store.Find(&list, query)
	}
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}

	utxos := make([]*domain.Utxo, 0, len(list))
	for i := range list {
		utxos = append(utxos, &list[i])
	}
	return utxos, nil
}

func (r *utxoRepository) updateUtxo(
	ctx context.Context, utxo *domain.Utxo,
) error {
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		return r.store.TxUpdate(tx, utxo.Key().Hash(), *utxo)
	}
	return r.store.Update(utxo.Key().Hash(), *utxo)
}

func (r *utxoRepository) insertUtxo(
	ctx context.Context, utxo *domain.Utxo,
) (bool, error) {
	var err error
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxInsert(tx, utxo.Key().Hash(), *utxo)
	} else {
		err = r.store.Insert(utxo.Key().Hash(), *utxo)
	}
	if err != nil {
		if err == badgerhold.ErrKeyExists {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *utxoRepository) publishEvent(event domain.UtxoEvent) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.log("publish event %s", event.EventType)
	r.chEvents <- event

	// send over channel without blocking in case nobody is listening.
	select {
	case r.externalChEvents <- event:
	default:
	}
}

func (r *utxoRepository) reset() {
	if err := r.store.Badger().DropAll(); err != nil {
		r.log("failed to reset: %s", err)
	}
}

func (r *utxoRepository) close() {
	r.store.Close()
	close(r.chEvents)
	close(r.externalChEvents)
}
