package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/vulpemventures/ocean-ntp1/internal/core/domain"
)

var (
	balanceCmd = &cobra.Command{
		Use:   "balance",
		Short: "get wallet balance",
		Long: "this command returns info about the balance of the wallet per " +
			"token, native currency included (confirmed, unconfirmed and locked)",
		RunE: walletBalance,
	}
	utxosCmd = &cobra.Command{
		Use:   "utxos",
		Short: "list wallet utxos",
		Long: "this command returns the list of spendable and locked utxos " +
			"owned by the wallet",
		RunE: walletListUtxos,
	}
)

func walletBalance(_ *cobra.Command, _ []string) error {
	cfg, err := getAppConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	balance, err := cfg.LedgerService().GetBalance(ctx)
	if err != nil {
		printErr(err)
		return nil
	}
	decimals, err := tokenDecimalsByID(ctx)
	if err != nil {
		printErr(err)
		return nil
	}

	type balanceInfo struct {
		Confirmed   string `json:"confirmed"`
		Unconfirmed string `json:"unconfirmed"`
		Locked      string `json:"locked"`
	}
	reply := make(map[string]balanceInfo, len(balance))
	for tokenID, b := range balance {
		d := decimals[tokenID]
		reply[tokenID] = balanceInfo{
			Confirmed:   formatAmount(b.Confirmed, d),
			Unconfirmed: formatAmount(b.Unconfirmed, d),
			Locked:      formatAmount(b.Locked, d),
		}
	}
	printResponse(map[string]interface{}{"balance": reply})
	return nil
}

func walletListUtxos(_ *cobra.Command, _ []string) error {
	cfg, err := getAppConfig()
	if err != nil {
		return err
	}

	utxos, err := cfg.LedgerService().ListUtxos(context.Background())
	if err != nil {
		printErr(err)
		return nil
	}

	printResponse(map[string]interface{}{
		"spendable": utxoList(utxos.Spendable),
		"locked":    utxoList(utxos.Locked),
	})
	return nil
}

type utxoInfo struct {
	Outpoint      string        `json:"outpoint"`
	Value         int64         `json:"value"`
	Tokens        []tokenAmount `json:"tokens"`
	Confirmed     bool          `json:"confirmed"`
	LockExpiresAt int64         `json:"lock_expires_at,omitempty"`
}

func utxoList(utxos []*domain.Utxo) []utxoInfo {
	list := make([]utxoInfo, 0, len(utxos))
	for _, u := range utxos {
		tokens := make([]tokenAmount, 0, len(u.Tokens))
		for _, t := range u.Tokens {
			tokens = append(tokens, tokenAmount{t.TokenID, t.Amount})
		}
		list = append(list, utxoInfo{
			Outpoint:      u.Key().String(),
			Value:         u.Value,
			Tokens:        tokens,
			Confirmed:     u.IsConfirmed(),
			LockExpiresAt: u.LockExpiryTimestamp,
		})
	}
	return list
}

// tokenDecimalsByID returns the precision of every known token. The native
// currency has 8 decimals.
func tokenDecimalsByID(ctx context.Context) (map[string]uint8, error) {
	cfg, err := getAppConfig()
	if err != nil {
		return nil, err
	}
	tokens, err := cfg.LedgerService().ListTokens(ctx)
	if err != nil {
		return nil, err
	}

	decimals := map[string]uint8{domain.NativeTokenID: 8}
	for _, t := range tokens {
		decimals[t.TokenID] = t.Decimals
	}
	return decimals, nil
}
