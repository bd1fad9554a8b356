package inmemory

import (
	"context"
	"sync"

	"github.com/vulpemventures/ocean-ntp1/internal/core/domain"
)

type utxoInmemoryStore struct {
	utxos map[string]*domain.Utxo
	lock  *sync.RWMutex
}

type utxoRepository struct {
	store            *utxoInmemoryStore
	chEvents         chan domain.UtxoEvent
	externalChEvents chan domain.UtxoEvent
	chLock           *sync.Mutex
}

func NewUtxoRepository() domain.UtxoRepository {
	return newUtxoRepository()
}

func newUtxoRepository() *utxoRepository {
	return &utxoRepository{
		store: &utxoInmemoryStore{
			utxos: make(map[string]*domain.Utxo),
			lock:  &sync.RWMutex{},
		},
		chEvents:         make(chan domain.UtxoEvent),
		externalChEvents: make(chan domain.UtxoEvent),
		chLock:           &sync.Mutex{},
	}
}

func (r *utxoRepository) AddUtxos(
	_ context.Context, utxos []*domain.Utxo,
) (int, error) {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	return r.addUtxos(utxos)
}

func (r *utxoRepository) GetUtxosByKey(
	_ context.Context, utxoKeys []domain.Outpoint,
) ([]*domain.Utxo, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	utxos := make([]*domain.Utxo, 0, len(utxoKeys))
	for _, key := range utxoKeys {
		u, ok := r.store.utxos[key.Hash()]
		if !ok {
			continue
		}
		utxos = append(utxos, u)
	}

	return utxos, nil
}

func (r *utxoRepository) GetAllUtxos(_ context.Context) ([]*domain.Utxo, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	return r.getUtxos(func(*domain.Utxo) bool { return true }), nil
}

func (r *utxoRepository) GetSpendableUtxos(_ context.Context) ([]*domain.Utxo, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	return r.getUtxos(func(u *domain.Utxo) bool {
		return !u.IsLocked() && u.IsConfirmed() && !u.IsSpent()
	}), nil
}

func (r *utxoRepository) GetLockedUtxos(_ context.Context) ([]*domain.Utxo, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	return r.getUtxos(func(u *domain.Utxo) bool {
		return u.IsLocked() && !u.IsSpent()
	}), nil
}

func (r *utxoRepository) GetBalance(
	_ context.Context,
) (map[string]*domain.Balance, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	utxos := r.getUtxos(func(*domain.Utxo) bool { return true })
	return domain.ComputeBalance(utxos), nil
}

func (r *utxoRepository) SpendUtxos(
	_ context.Context, utxos []domain.Outpoint, status domain.UtxoStatus,
) (int, error) {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	return r.updateUtxos(utxos, domain.UtxoSpent, func(u *domain.Utxo) (bool, error) {
		if u.IsSpent() {
			return false, nil
		}
		return true, u.Spend(status)
	})
}

func (r *utxoRepository) ConfirmUtxos(
	_ context.Context, utxos []domain.Outpoint, status domain.UtxoStatus,
) (int, error) {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	return r.updateUtxos(utxos, domain.UtxoConfirmed, func(u *domain.Utxo) (bool, error) {
		if u.IsConfirmed() {
			return false, nil
		}
		return true, u.Confirm(status)
	})
}

func (r *utxoRepository) LockUtxos(
	_ context.Context, utxos []domain.Outpoint, timestamp, expiryTimestamp int64,
) (int, error) {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	return r.updateUtxos(utxos, domain.UtxoLocked, func(u *domain.Utxo) (bool, error) {
		if u.IsLocked() || u.IsSpent() {
			return false, nil
		}
		u.Lock(timestamp, expiryTimestamp)
		return true, nil
	})
}

func (r *utxoRepository) UnlockUtxos(
	_ context.Context, utxos []domain.Outpoint,
) (int, error) {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	return r.updateUtxos(utxos, domain.UtxoUnlocked, func(u *domain.Utxo) (bool, error) {
		if !u.IsLocked() {
			return false, nil
		}
		u.Unlock()
		return true, nil
	})
}

func (r *utxoRepository) GetEventChannel() chan domain.UtxoEvent {
	return r.externalChEvents
}

func (r *utxoRepository) addUtxos(utxos []*domain.Utxo) (int, error) {
	count := 0
	utxosInfo := make([]domain.UtxoInfo, 0, len(utxos))
	for _, u := range utxos {
		if _, ok := r.store.utxos[u.Key().Hash()]; ok {
			continue
		}
		r.store.utxos[u.Key().Hash()] = u
		utxosInfo = append(utxosInfo, u.Info())
		count++
	}

	if count > 0 {
		go r.publishEvent(domain.UtxoEvent{
			EventType: domain.UtxoAdded,
			Utxos:     utxosInfo,
		})
	}

	return count, nil
}

func (r *utxoRepository) getUtxos(filter func(u *domain.Utxo) bool) []*domain.Utxo {
	utxos := make([]*domain.Utxo, 0, len(r.store.utxos))
	for _, u := range r.store.utxos {
		if filter(u) {
			utxos = append(utxos, u)
		}
	}
	return utxos
}

// updateUtxos applies updateFn to every stored utxo matching the given keys
// and publishes a single event of the given type for those actually updated.
func (r *utxoRepository) updateUtxos(
	keys []domain.Outpoint, eventType domain.UtxoEventType,
	updateFn func(u *domain.Utxo) (bool, error),
) (int, error) {
	count := 0
	utxosInfo := make([]domain.UtxoInfo, 0, len(keys))
	for _, key := range keys {
		utxo, ok := r.store.utxos[key.Hash()]
		if !ok {
			continue
		}

		done, err := updateFn(utxo)
		if err != nil {
			return -1, err
		}
		if !done {
			continue
		}

		utxosInfo = append(utxosInfo, utxo.Info())
		count++
	}

	if count > 0 {
		go r.publishEvent(domain.UtxoEvent{
			EventType: eventType,
			Utxos:     utxosInfo,
		})
	}

	return count, nil
}

func (r *utxoRepository) publishEvent(event domain.UtxoEvent) {
	r.chLock.Lock()
	defer r.chLock.Unlock()

	r.chEvents <- event
	// send over channel without blocking in case nobody is listening.
	select {
	case r.externalChEvents <- event:
	default:
	}
}

func (r *utxoRepository) reset() {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	r.store.utxos = make(map[string]*domain.Utxo)
}

func (r *utxoRepository) close() {
	close(r.chEvents)
	close(r.externalChEvents)
}
