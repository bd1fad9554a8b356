package application

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/ocean-ntp1/internal/core/domain"
	"github.com/vulpemventures/ocean-ntp1/internal/core/ports"
)

// LedgerService keeps the wallet ledger up to date:
//   - Import a wallet-related transaction and the outputs owned by the wallet as utxos.
//   - Confirm a transaction along with its utxos.
//   - Mark utxos as spent by another transaction.
//   - Add metadata of known tokens.
//   - Get the balance and the list of utxos of the wallet.
type LedgerService struct {
	repoManager ports.RepoManager

	log func(format string, a ...interface{})
}

func NewLedgerService(repoManager ports.RepoManager) *LedgerService {
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("ledger service: %s", format)
		log.Debugf(format, a...)
	}
	return &LedgerService{repoManager, logFn}
}

// ImportTransaction adds the given tx to the ledger and its outputs at the
// given indexes as utxos of the wallet. If the tx is confirmed, so are the
// utxos.
func (ls *LedgerService) ImportTransaction(
	ctx context.Context, tx *domain.Transaction, ownedVouts []uint32,
) (int, error) {
	if tx == nil {
		return 0, fmt.Errorf("missing transaction")
	}
	if err := (domain.Outpoint{TxID: tx.TxID}).Validate(); err != nil {
		return 0, err
	}
	for _, out := range tx.Outputs {
		if out.Value < 0 {
			return 0, fmt.Errorf("output value must not be negative")
		}
		for _, t := range out.Tokens {
			if t.TokenID == "" || t.TokenID == domain.NativeTokenID {
				return 0, fmt.Errorf("invalid token id %q", t.TokenID)
			}
			if t.Amount < 0 {
				return 0, fmt.Errorf("token amount must not be negative")
			}
		}
	}

	keys := domain.Outpoints(tx.Outpoints(ownedVouts...)).Dedup()
	utxos := make([]*domain.Utxo, 0, len(keys))
	for _, key := range keys {
		out, err := tx.Output(key.VOut)
		if err != nil {
			return 0, err
		}
		utxos = append(utxos, &domain.Utxo{
			Outpoint: key,
			Value:    out.Value,
			Tokens:   out.Tokens,
			Script:   out.Script,
		})
	}

	if _, err := ls.repoManager.TransactionRepository().AddTransaction(
		ctx, tx,
	); err != nil {
		return 0, err
	}

	count, err := ls.repoManager.UtxoRepository().AddUtxos(ctx, utxos)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		ls.log("added %d utxo(s) of tx %s", count, tx.TxID)
	}

	if tx.IsConfirmed() {
		if err := ls.ConfirmTransaction(
			ctx, tx.TxID, tx.BlockHash, tx.BlockHeight, tx.BlockTime,
		); err != nil {
			return 0, err
		}
	}
	return count, nil
}

// ConfirmTransaction adds the given block info to the tx with the given
// txid and to its utxos.
func (ls *LedgerService) ConfirmTransaction(
	ctx context.Context, txid, blockHash string,
	blockHeight uint64, blockTime int64,
) error {
	if blockHash == "" {
		return fmt.Errorf("missing block hash")
	}

	txRepo := ls.repoManager.TransactionRepository()
	if _, err := txRepo.ConfirmTransaction(
		ctx, txid, blockHash, blockHeight, blockTime,
	); err != nil {
		return err
	}
	tx, err := txRepo.GetTransaction(ctx, txid)
	if err != nil {
		return err
	}

	count, err := ls.confirmUtxos(ctx, tx)
	if err != nil {
		return err
	}
	if count > 0 {
		ls.log("confirmed %d utxo(s) of tx %s", count, txid)
	}
	return nil
}

// SpendUtxos marks the given utxos as spent by the tx with the given txid.
func (ls *LedgerService) SpendUtxos(
	ctx context.Context, keys []domain.Outpoint, txid string,
) (int, error) {
	if err := (domain.Outpoint{TxID: txid}).Validate(); err != nil {
		return 0, err
	}
	count, err := ls.repoManager.UtxoRepository().SpendUtxos(
		ctx, keys, domain.UtxoStatus{Txid: txid},
	)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		ls.log("spent %d utxo(s) (%s)", count, domain.Outpoints(keys))
	}
	return count, nil
}

// AddTokens stores the metadata of the given tokens, if not already known.
func (ls *LedgerService) AddTokens(
	ctx context.Context, tokens []*domain.Token,
) (int, error) {
	for _, t := range tokens {
		if t.TokenID == "" || t.TokenID == domain.NativeTokenID {
			return 0, fmt.Errorf("invalid token id %q", t.TokenID)
		}
	}
	return ls.repoManager.TokenRepository().AddTokens(ctx, tokens)
}

func (ls *LedgerService) ListTokens(ctx context.Context) ([]*domain.Token, error) {
	return ls.repoManager.TokenRepository().GetAllTokens(ctx)
}

func (ls *LedgerService) GetBalance(ctx context.Context) (BalanceInfo, error) {
	balance, err := ls.repoManager.UtxoRepository().GetBalance(ctx)
	if err != nil {
		return nil, err
	}
	return balance, nil
}

func (ls *LedgerService) ListUtxos(ctx context.Context) (*UtxoInfo, error) {
	utxoRepo := ls.repoManager.UtxoRepository()
	spendable, err := utxoRepo.GetSpendableUtxos(ctx)
	if err != nil {
		return nil, err
	}
	locked, err := utxoRepo.GetLockedUtxos(ctx)
	if err != nil {
		return nil, err
	}
	return &UtxoInfo{spendable, locked}, nil
}

func (ls *LedgerService) confirmUtxos(
	ctx context.Context, tx *domain.Transaction,
) (int, error) {
	vouts := make([]uint32, 0, len(tx.Outputs))
	for i := range tx.Outputs {
		vouts = append(vouts, uint32(i))
	}
	utxoRepo := ls.repoManager.UtxoRepository()
	utxos, err := utxoRepo.GetUtxosByKey(ctx, tx.Outpoints(vouts...))
	if err != nil {
		return 0, err
	}
	if len(utxos) <= 0 {
		return 0, nil
	}

	status := domain.UtxoStatus{
		BlockHash:   tx.BlockHash,
		BlockHeight: tx.BlockHeight,
		BlockTime:   tx.BlockTime,
	}
	return utxoRepo.ConfirmUtxos(ctx, Utxos(utxos).Keys(), status)
}
