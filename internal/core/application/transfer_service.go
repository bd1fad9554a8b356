package application

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/ocean-ntp1/internal/core/domain"
	"github.com/vulpemventures/ocean-ntp1/internal/core/ports"
	"github.com/vulpemventures/ocean-ntp1/internal/metrics"
	"github.com/vulpemventures/ocean-ntp1/pkg/wallet"
)

const (
	unlockRetryInterval = 5 * time.Second
	minUnlockerInterval = 100 * time.Millisecond
)

var (
	// ErrInsufficientNativeBalance is returned when the spendable outputs of
	// the wallet can't cover the native value required by a transfer.
	ErrInsufficientNativeBalance = fmt.Errorf(
		"%w: not enough native value to pay for recipients and fees",
		domain.ErrInsufficientBalance,
	)
	ErrSpentInput       = fmt.Errorf("%w: input already spent", domain.ErrInvalidOutpoint)
	ErrUnconfirmedInput = fmt.Errorf("%w: input not confirmed", domain.ErrInvalidOutpoint)
)

// TransferService is responsible for planning multi-token transfers:
//   - Select the wallet outputs funding the tokens requested by a list of recipients, along with the per-input transfer instructions.
//   - Add spendable outputs until the native value covers native recipients, token outputs and fees.
//   - Lock the selected utxos to prevent another plan to spend them.
//   - Release the utxos of a plan that won't be broadcasted.
//
// The service registers 1 handler for the following utxo event:
//   - domain.UtxoLocked - whenever one or more utxos are locked, the service spawns a so-called unlocker, a goroutine waiting until the lock expires before unlocking them if necessary. The operation is just skipped if the utxos have been spent meanwhile.
//
// At startup, the service unlocks any utxo whose lock already expired and
// spawns the unlockers for the others.
type TransferService struct {
	repoManager        ports.RepoManager
	selector           ports.TokenSelector
	minTxFee           int64
	utxoExpiryDuration time.Duration

	lock *sync.Mutex
	log  func(format string, a ...interface{})
}

func NewTransferService(
	repoManager ports.RepoManager, selector ports.TokenSelector,
	minTxFee int64, utxoExpiryDuration time.Duration,
) *TransferService {
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("transfer service: %s", format)
		log.Debugf(format, a...)
	}
	if minTxFee <= 0 {
		minTxFee = wallet.DefaultMinTxFee
	}
	svc := &TransferService{
		repoManager, selector, minTxFee, utxoExpiryDuration, &sync.Mutex{}, logFn,
	}
	svc.registerHandlerForUtxoEvents()
	go svc.scheduleUtxoUnlocker()

	return svc
}

// PrepareTransfer selects the inputs of a transfer to the given recipients
// and locks them. If autoExtend is false, the tokens must be fully covered
// by the given inputs, otherwise any token output of the wallet can be added.
// Spendable outputs without tokens are always added when the native value
// is not enough.
func (ts *TransferService) PrepareTransfer(
	ctx context.Context, inputs []domain.Outpoint,
	recipients []domain.Recipient, autoExtend bool,
) (plan *TransferPlan, err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveTransfer("prepare", err, started)
	}()

	ts.lock.Lock()
	defer ts.lock.Unlock()

	ts.unlockExpiredUtxos(ctx)

	if err := ts.validateInputs(ctx, inputs); err != nil {
		return nil, err
	}

	view, err := NewLedgerSnapshot(ctx, ts.repoManager)
	if err != nil {
		return nil, err
	}

	selection, err := ts.selector.SelectInputs(view, inputs, recipients, autoExtend)
	if err != nil {
		return nil, err
	}

	reserve, err := selection.RequiredNativeForOutputs(ts.minTxFee)
	if err != nil {
		return nil, err
	}
	nativeOut := domain.Recipients(recipients).NativeAmount()
	numOutputs := numOfOutputs(selection, len(recipients))

	var fee, required, total int64
	for {
		fee = wallet.EstimateFees(
			int64(len(selection.Inputs())), numOutputs, ts.minTxFee,
		)
		required = nativeOut + reserve + fee

		extended, nativeTotal, err := ts.selector.EnsureNativeCoverage(
			view, selection, required,
		)
		if err != nil {
			return nil, err
		}
		total = nativeTotal
		if total < required {
			return nil, fmt.Errorf(
				"%w (required %d, available %d)",
				ErrInsufficientNativeBalance, required, total,
			)
		}
		// Adding inputs makes the tx bigger, the fee must be estimated again.
		if len(extended.Inputs()) == len(selection.Inputs()) {
			break
		}
		selection = extended
	}

	keys := selection.Inputs()
	now := time.Now()
	lockExpiration := now.Add(ts.utxoExpiryDuration).Unix()
	count, err := ts.repoManager.UtxoRepository().LockUtxos(
		ctx, keys, now.Unix(), lockExpiration,
	)
	if err != nil {
		return nil, err
	}
	metrics.ObserveLockedUtxos(count, true)
	if count < len(keys) {
		if count > 0 {
			ts.rollbackLocks(ctx, keys, now.Unix(), lockExpiration)
		}
		return nil, fmt.Errorf(
			"%w: locked %d out of %d selected inputs",
			domain.ErrUtxoAlreadyLocked, count, len(keys),
		)
	}
	ts.log("locked %d utxo(s) (%s)", count, domain.Outpoints(keys))
	metrics.ObserveSelectedInputs(len(keys))

	return &TransferPlan{
		ID:             uuid.New().String(),
		Selection:      selection,
		NativeTotal:    total,
		NativeRequired: required,
		Fee:            fee,
		NativeChange:   total - required,
		NumOutputs:     numOutputs,
		LockExpiration: lockExpiration,
	}, nil
}

// ReleaseTransfer unlocks the inputs of the given plan.
func (ts *TransferService) ReleaseTransfer(
	ctx context.Context, plan *TransferPlan,
) (int, error) {
	if plan == nil || !plan.Selection.IsReady() {
		return 0, domain.ErrSelectionNotReady
	}
	return ts.ReleaseUtxos(ctx, plan.Inputs())
}

// ReleaseUtxos unlocks the given utxos, if locked.
func (ts *TransferService) ReleaseUtxos(
	ctx context.Context, keys []domain.Outpoint,
) (count int, err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveTransfer("release", err, started)
	}()

	for _, key := range keys {
		if err := key.Validate(); err != nil {
			return 0, err
		}
	}

	count, err = ts.repoManager.UtxoRepository().UnlockUtxos(ctx, keys)
	if err != nil {
		return 0, err
	}
	metrics.ObserveLockedUtxos(count, false)
	if count > 0 {
		ts.log("released %d utxo(s) (%s)", count, domain.Outpoints(keys))
	}
	return count, nil
}

// EstimateFees returns the fee amount for a tx with the given number of
// inputs and outputs.
func (ts *TransferService) EstimateFees(numInputs, numOutputs int64) int64 {
	return wallet.EstimateFees(numInputs, numOutputs, ts.minTxFee)
}

// validateInputs makes sure the given inputs are utxos of the wallet that
// the ledger snapshot can select, ie. confirmed and neither spent nor locked.
func (ts *TransferService) validateInputs(
	ctx context.Context, inputs []domain.Outpoint,
) error {
	if len(inputs) <= 0 {
		return nil
	}

	keys := domain.Outpoints(inputs).Dedup()
	for _, key := range keys {
		if err := key.Validate(); err != nil {
			return err
		}
	}

	utxos, err := ts.repoManager.UtxoRepository().GetUtxosByKey(ctx, keys)
	if err != nil {
		return err
	}
	found := make(domain.Outpoints, 0, len(utxos))
	for _, u := range utxos {
		if u.IsSpent() {
			return fmt.Errorf("%w: %s", ErrSpentInput, u.Key())
		}
		if !u.IsConfirmed() {
			return fmt.Errorf("%w: %s", ErrUnconfirmedInput, u.Key())
		}
		if u.IsLocked() {
			return fmt.Errorf("%w: %s", domain.ErrUtxoAlreadyLocked, u.Key())
		}
		found = append(found, u.Key())
	}
	for _, key := range keys {
		if !found.Contains(key) {
			return fmt.Errorf(
				"%w: input %s not owned by wallet", domain.ErrInvalidOutpoint, key,
			)
		}
	}
	return nil
}

// rollbackLocks unlocks those of the given utxos that have been locked with
// the given timestamps, leaving untouched the ones locked by others.
func (ts *TransferService) rollbackLocks(
	ctx context.Context, keys []domain.Outpoint, lockTime, lockExpiration int64,
) {
	utxoRepo := ts.repoManager.UtxoRepository()
	utxos, err := utxoRepo.GetUtxosByKey(ctx, keys)
	if err != nil {
		log.WithError(err).Warn("transfer service: failed to rollback utxo locks")
		return
	}

	toUnlock := make([]domain.Outpoint, 0, len(utxos))
	for _, u := range utxos {
		if u.LockTimestamp == lockTime && u.LockExpiryTimestamp == lockExpiration {
			toUnlock = append(toUnlock, u.Key())
		}
	}
	if len(toUnlock) <= 0 {
		return
	}

	count, err := utxoRepo.UnlockUtxos(ctx, toUnlock)
	if err != nil {
		log.WithError(err).Warn("transfer service: failed to rollback utxo locks")
		return
	}
	metrics.ObserveLockedUtxos(count, false)
	ts.log("rolled back lock of %d utxo(s) (%s)", count, domain.Outpoints(toUnlock))
}

func (ts *TransferService) registerHandlerForUtxoEvents() {
	ts.repoManager.RegisterHandlerForUtxoEvent(
		domain.UtxoLocked, func(event domain.UtxoEvent) {
			keys := UtxosInfo(event.Utxos).Keys()
			ts.spawnUtxoUnlocker(keys)
		},
	)
}

// scheduleUtxoUnlocker unlocks the locked utxos whose lock already expired,
// and spawns an unlocker for the others.
func (ts *TransferService) scheduleUtxoUnlocker() {
	ctx := context.Background()
	utxos, err := ts.repoManager.UtxoRepository().GetLockedUtxos(ctx)
	if err != nil {
		log.WithError(err).Warn("transfer service: failed to get locked utxos")
		return
	}
	if len(utxos) <= 0 {
		return
	}

	utxosToUnlock := make([]domain.Outpoint, 0, len(utxos))
	utxosToSpawnUnlocker := make([]domain.Outpoint, 0, len(utxos))
	for _, u := range utxos {
		if u.CanUnlock() {
			utxosToUnlock = append(utxosToUnlock, u.Key())
		} else {
			utxosToSpawnUnlocker = append(utxosToSpawnUnlocker, u.Key())
		}
	}

	if len(utxosToUnlock) > 0 {
		count, err := ts.repoManager.UtxoRepository().UnlockUtxos(ctx, utxosToUnlock)
		if err != nil {
			utxosToSpawnUnlocker = append(utxosToSpawnUnlocker, utxosToUnlock...)
		}
		if count > 0 {
			metrics.ObserveLockedUtxos(count, false)
			ts.log("unlocked %d utxo(s) (%s)", count, domain.Outpoints(utxosToUnlock))
		}
	}
	if len(utxosToSpawnUnlocker) > 0 {
		ts.spawnUtxoUnlocker(utxosToSpawnUnlocker)
	}
}

// unlockExpiredUtxos unlocks the utxos whose lock expired without waiting
// for their unlocker, if any.
func (ts *TransferService) unlockExpiredUtxos(ctx context.Context) {
	utxos, err := ts.repoManager.UtxoRepository().GetLockedUtxos(ctx)
	if err != nil {
		log.WithError(err).Warn("transfer service: failed to get locked utxos")
		return
	}

	keys := make([]domain.Outpoint, 0, len(utxos))
	for _, u := range utxos {
		if u.CanUnlock() {
			keys = append(keys, u.Key())
		}
	}
	if len(keys) <= 0 {
		return
	}

	count, err := ts.repoManager.UtxoRepository().UnlockUtxos(ctx, keys)
	if err != nil {
		log.WithError(err).Warn("transfer service: failed to unlock expired utxos")
		return
	}
	if count > 0 {
		metrics.ObserveLockedUtxos(count, false)
		ts.log("unlocked %d expired utxo(s) (%s)", count, domain.Outpoints(keys))
	}
}

// spawnUtxoUnlocker groups the locked utxos identified by the given keys by
// their lock expiration, and then creates a goroutine for each group in order
// to unlock the utxos if they are still locked when their expiration comes.
func (ts *TransferService) spawnUtxoUnlocker(utxoKeys []domain.Outpoint) {
	ctx := context.Background()
	utxos, err := ts.repoManager.UtxoRepository().GetUtxosByKey(ctx, utxoKeys)
	if err != nil {
		log.WithError(err).Warn("transfer service: failed to spawn utxo unlocker")
		return
	}

	utxosByExpiration := make(map[int64][]domain.Outpoint)
	for _, u := range utxos {
		if !u.IsLocked() {
			continue
		}
		utxosByExpiration[u.LockExpiryTimestamp] = append(
			utxosByExpiration[u.LockExpiryTimestamp], u.Key(),
		)
	}

	for expiration, keys := range utxosByExpiration {
		go ts.runUtxoUnlocker(keys, expiration)
	}
}

func (ts *TransferService) runUtxoUnlocker(
	keys []domain.Outpoint, expiration int64,
) {
	unlockTime := time.Until(time.Unix(expiration, 0))
	if unlockTime < minUnlockerInterval {
		unlockTime = minUnlockerInterval
	}
	ts.log("spawning unlocker for utxo(s) %s", domain.Outpoints(keys))
	ts.log(
		"utxo(s) will be eventually unlocked in ~%.0f seconds",
		math.Round(unlockTime.Seconds()),
	)

	ctx := context.Background()
	t := time.NewTicker(unlockTime)
	defer t.Stop()

	for range t.C {
		utxos, err := ts.repoManager.UtxoRepository().GetUtxosByKey(ctx, keys)
		if err != nil {
			t.Reset(unlockRetryInterval)
			continue
		}

		utxosToUnlock := make([]domain.Outpoint, 0, len(utxos))
		spentUtxos := make([]domain.Outpoint, 0, len(utxos))
		for _, u := range utxos {
			if u.IsSpent() {
				spentUtxos = append(spentUtxos, u.Key())
				continue
			}
			// A later expiration means the utxo has been unlocked and locked
			// again meanwhile, its new unlocker takes care of it.
			if u.IsLocked() && u.LockExpiryTimestamp <= expiration {
				utxosToUnlock = append(utxosToUnlock, u.Key())
			}
		}

		if len(utxosToUnlock) > 0 {
			count, err := ts.repoManager.UtxoRepository().UnlockUtxos(
				ctx, utxosToUnlock,
			)
			if err != nil {
				t.Reset(unlockRetryInterval)
				continue
			}
			if count > 0 {
				metrics.ObserveLockedUtxos(count, false)
				ts.log("unlocked %d utxo(s) %s", count, domain.Outpoints(utxosToUnlock))
			}
		}
		if len(spentUtxos) > 0 {
			ts.log(
				"utxo(s) %s have been spent, skipping unlocking",
				domain.Outpoints(spentUtxos),
			)
		}
		return
	}
}

// numOfOutputs returns the number of outputs of the transfer tx: one for
// each recipient, the token metadata and change outputs if any instruction
// is needed, and the native change output.
func numOfOutputs(selection *domain.Selection, numRecipients int) int64 {
	if len(selection.InputInstructions()) <= 0 {
		return int64(numRecipients) + 1
	}
	return wallet.NumOfTokenOutputs(numRecipients, selection.HasChange()) + 1
}
