package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/ocean-ntp1/internal/core/domain"
	"github.com/vulpemventures/ocean-ntp1/internal/core/ports"
)

// TestRepoManagerEvents checks that the handlers registered to the given
// repo manager are notified of repository events.
func TestRepoManagerEvents(
	t *testing.T, ctx context.Context, repoManager ports.RepoManager,
) {
	chUtxoEvents := make(chan domain.UtxoEvent, 10)
	chTxEvents := make(chan domain.TransactionEvent, 10)
	repoManager.RegisterHandlerForUtxoEvent(
		domain.UtxoAdded, func(event domain.UtxoEvent) {
			chUtxoEvents <- event
		},
	)
	repoManager.RegisterHandlerForUtxoEvent(
		domain.UtxoLocked, func(event domain.UtxoEvent) {
			chUtxoEvents <- event
		},
	)
	repoManager.RegisterHandlerForTxEvent(
		domain.TransactionAdded, func(event domain.TransactionEvent) {
			chTxEvents <- event
		},
	)

	utxos := NewTestUtxos()
	_, err := repoManager.UtxoRepository().AddUtxos(ctx, utxos)
	require.NoError(t, err)

	event := waitForUtxoEvent(t, chUtxoEvents)
	require.Equal(t, domain.UtxoAdded, event.EventType)
	require.Len(t, event.Utxos, len(utxos))

	now := time.Now().Unix()
	_, err = repoManager.UtxoRepository().LockUtxos(
		ctx, []domain.Outpoint{utxos[0].Key()}, now, now+10,
	)
	require.NoError(t, err)

	event = waitForUtxoEvent(t, chUtxoEvents)
	require.Equal(t, domain.UtxoLocked, event.EventType)
	require.Len(t, event.Utxos, 1)
	require.Equal(t, utxos[0].Key(), event.Utxos[0].Key())

	tx := NewTestTransactions()[0]
	_, err = repoManager.TransactionRepository().AddTransaction(ctx, tx)
	require.NoError(t, err)

	select {
	case txEvent := <-chTxEvents:
		require.Equal(t, domain.TransactionAdded, txEvent.EventType)
		require.Equal(t, tx.TxID, txEvent.Transaction.TxID)
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for tx event")
	}
}

func waitForUtxoEvent(
	t *testing.T, ch chan domain.UtxoEvent,
) domain.UtxoEvent {
	select {
	case event := <-ch:
		return event
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for utxo event")
	}
	return domain.UtxoEvent{}
}
