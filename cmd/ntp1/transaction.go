package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vulpemventures/ocean-ntp1/internal/core/domain"
)

var (
	txJSON        string
	txOwnedVouts  []uint
	txBlockHash   string
	txBlockHeight uint64
	txBlockTime   int64
	txSpentUtxos  []string

	txImportCmd = &cobra.Command{
		Use:   "import",
		Short: "import a wallet transaction",
		Long: "this command lets you add a transaction to the wallet ledger, " +
			"along with its outputs owned by the wallet",
		RunE: txImport,
	}
	txConfirmCmd = &cobra.Command{
		Use:   "confirm",
		Short: "confirm a wallet transaction",
		Long: "this command lets you add the block info to an imported " +
			"transaction and its utxos",
		Args: cobra.ExactArgs(1),
		RunE: txConfirm,
	}
	txSpendCmd = &cobra.Command{
		Use:   "spend",
		Short: "mark utxos as spent",
		Long: "this command lets you mark one or more utxos as spent by the " +
			"transaction with the given txid",
		Args: cobra.ExactArgs(1),
		RunE: txSpend,
	}
	txCmd = &cobra.Command{
		Use:   "tx",
		Short: "interact with the wallet ledger",
		Long: "this command lets you import wallet transactions, confirm them " +
			"or spend their outputs",
	}
)

func init() {
	txImportCmd.Flags().StringVar(
		&txJSON, "tx", "",
		"JSON string of the transaction as "+
			"{\"txid\": \"<txid>\", \"outputs\": [{\"value\": <value>, "+
			"\"tokens\": [{\"token_id\": \"<token id>\", \"amount\": <amount>}], "+
			"\"script\": \"<hex>\"}], \"block_hash\": \"<hash>\", "+
			"\"block_height\": <height>, \"block_time\": <timestamp>}",
	)
	txImportCmd.Flags().UintSliceVar(
		&txOwnedVouts, "vouts", nil, "indexes of the outputs owned by the wallet",
	)
	txImportCmd.MarkFlagRequired("tx")

	txConfirmCmd.Flags().StringVar(&txBlockHash, "block-hash", "", "hash of the block including the tx")
	txConfirmCmd.Flags().Uint64Var(&txBlockHeight, "block-height", 0, "height of the block including the tx")
	txConfirmCmd.Flags().Int64Var(&txBlockTime, "block-time", 0, "timestamp of the block including the tx")
	txConfirmCmd.MarkFlagRequired("block-hash")

	txSpendCmd.Flags().StringSliceVar(
		&txSpentUtxos, "utxos", nil, "list of spent utxos in the txid:vout format",
	)
	txSpendCmd.MarkFlagRequired("utxos")

	txCmd.AddCommand(txImportCmd, txConfirmCmd, txSpendCmd)
}

func txImport(_ *cobra.Command, _ []string) error {
	cfg, err := getAppConfig()
	if err != nil {
		return err
	}

	var t transaction
	if err := json.Unmarshal([]byte(txJSON), &t); err != nil {
		printErr(fmt.Errorf("invalid tx: %s", err))
		return nil
	}
	tx, err := t.domain()
	if err != nil {
		printErr(err)
		return nil
	}
	vouts := make([]uint32, 0, len(txOwnedVouts))
	for _, v := range txOwnedVouts {
		vouts = append(vouts, uint32(v))
	}

	count, err := cfg.LedgerService().ImportTransaction(
		context.Background(), tx, vouts,
	)
	if err != nil {
		printErr(err)
		return nil
	}

	printResponse(map[string]interface{}{"txid": tx.TxID, "added_utxos": count})
	return nil
}

func txConfirm(_ *cobra.Command, args []string) error {
	cfg, err := getAppConfig()
	if err != nil {
		return err
	}

	if err := cfg.LedgerService().ConfirmTransaction(
		context.Background(), args[0], txBlockHash, txBlockHeight, txBlockTime,
	); err != nil {
		printErr(err)
		return nil
	}

	fmt.Printf("tx %s has been confirmed\n", args[0])
	return nil
}

func txSpend(_ *cobra.Command, args []string) error {
	cfg, err := getAppConfig()
	if err != nil {
		return err
	}

	keys, err := parseOutpoints(txSpentUtxos)
	if err != nil {
		printErr(err)
		return nil
	}

	count, err := cfg.LedgerService().SpendUtxos(
		context.Background(), keys, args[0],
	)
	if err != nil {
		printErr(err)
		return nil
	}

	printResponse(map[string]interface{}{"txid": args[0], "spent_utxos": count})
	return nil
}

type tokenAmount struct {
	TokenID string `json:"token_id"`
	Amount  int64  `json:"amount"`
}

type txOutput struct {
	Value  int64         `json:"value"`
	Tokens []tokenAmount `json:"tokens"`
	Script string        `json:"script"`
}

type transaction struct {
	TxID        string     `json:"txid"`
	Outputs     []txOutput `json:"outputs"`
	BlockHash   string     `json:"block_hash"`
	BlockHeight uint64     `json:"block_height"`
	BlockTime   int64      `json:"block_time"`
}

func (t transaction) domain() (*domain.Transaction, error) {
	outputs := make([]domain.TxOutput, 0, len(t.Outputs))
	for i, out := range t.Outputs {
		script, err := hex.DecodeString(out.Script)
		if err != nil {
			return nil, fmt.Errorf("invalid script of output %d, must be hex", i)
		}
		var tokens domain.TokenAmounts
		for _, tk := range out.Tokens {
			tokens = append(tokens, domain.TokenAmount{
				TokenID: tk.TokenID, Amount: tk.Amount,
			})
		}
		outputs = append(outputs, domain.TxOutput{
			Value: out.Value, Tokens: tokens, Script: script,
		})
	}
	return &domain.Transaction{
		TxID:        t.TxID,
		Outputs:     outputs,
		BlockHash:   t.BlockHash,
		BlockHeight: t.BlockHeight,
		BlockTime:   t.BlockTime,
	}, nil
}
