package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vulpemventures/ocean-ntp1/internal/core/application"
	"github.com/vulpemventures/ocean-ntp1/internal/core/domain"
)

var (
	transferRecipientsJSON []string
	transferInputs         []string
	transferAutoExtend     bool
	feeNumInputs           int64
	feeNumOutputs          int64

	transferPlanCmd = &cobra.Command{
		Use:   "plan",
		Short: "select the inputs of a token transfer",
		Long: "this command selects the wallet outputs funding the given " +
			"recipients ({destination, token_id, amount}) and locks them, " +
			"returning how every token on each input is distributed",
		RunE: transferPlan,
	}
	transferReleaseCmd = &cobra.Command{
		Use:   "release",
		Short: "unlock the inputs of a transfer",
		Long: "this command unlocks the given utxos (txid:vout) locked by a " +
			"previous transfer plan that won't be broadcasted",
		Args: cobra.MinimumNArgs(1),
		RunE: transferRelease,
	}
	transferCmd = &cobra.Command{
		Use:   "transfer",
		Short: "plan multi-token transfers",
		Long: "this command lets you plan transfers of one or more tokens to " +
			"one or more recipients, or release the inputs of a plan",
	}
	feeCmd = &cobra.Command{
		Use:   "fee",
		Short: "estimate the fee of a transaction",
		Long: "this command returns the fee amount for a transaction with the " +
			"given number of inputs and outputs",
		RunE: feeEstimate,
	}
)

func init() {
	transferPlanCmd.Flags().StringArrayVar(
		&transferRecipientsJSON, "recipients", nil,
		"JSON string list of recipients as "+
			"{\"destination\": \"<address>\", \"token_id\": \"<token id>\", "+
			"\"amount\": \"<amount>\"}",
	)
	transferPlanCmd.Flags().StringSliceVar(
		&transferInputs, "inputs", nil,
		"list of outputs (txid:vout) to spend in any case",
	)
	transferPlanCmd.Flags().BoolVar(
		&transferAutoExtend, "auto-extend", true,
		"whether any token output of the wallet can be selected besides the given inputs",
	)
	transferPlanCmd.MarkFlagRequired("recipients")

	feeCmd.Flags().Int64Var(&feeNumInputs, "inputs", 1, "number of inputs")
	feeCmd.Flags().Int64Var(&feeNumOutputs, "outputs", 2, "number of outputs")

	transferCmd.AddCommand(transferPlanCmd, transferReleaseCmd)
}

func transferPlan(_ *cobra.Command, _ []string) error {
	cfg, err := getAppConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	decimals, err := tokenDecimalsByID(ctx)
	if err != nil {
		printErr(err)
		return nil
	}
	recipients := make([]domain.Recipient, 0, len(transferRecipientsJSON))
	for _, r := range transferRecipientsJSON {
		rr := recipient{}
		if err := json.Unmarshal([]byte(r), &rr); err != nil {
			printErr(fmt.Errorf("invalid recipient: %s", err))
			return nil
		}
		amount, err := parseAmount(rr.Amount, decimals[rr.TokenID])
		if err != nil {
			printErr(err)
			return nil
		}
		recipients = append(recipients, domain.Recipient{
			Destination: rr.Destination,
			TokenID:     rr.TokenID,
			Amount:      amount,
		})
	}
	inputs, err := parseOutpoints(transferInputs)
	if err != nil {
		printErr(err)
		return nil
	}

	plan, err := cfg.TransferService().PrepareTransfer(
		ctx, inputs, recipients, transferAutoExtend,
	)
	if err != nil {
		printErr(err)
		return nil
	}

	printResponse(newTransferPlanInfo(plan))
	return nil
}

func transferRelease(_ *cobra.Command, args []string) error {
	cfg, err := getAppConfig()
	if err != nil {
		return err
	}

	keys, err := parseOutpoints(args)
	if err != nil {
		printErr(err)
		return nil
	}

	count, err := cfg.TransferService().ReleaseUtxos(context.Background(), keys)
	if err != nil {
		printErr(err)
		return nil
	}

	printResponse(map[string]interface{}{"released_utxos": count})
	return nil
}

func feeEstimate(_ *cobra.Command, _ []string) error {
	cfg, err := getAppConfig()
	if err != nil {
		return err
	}
	if feeNumInputs < 0 || feeNumOutputs < 0 {
		printErr(fmt.Errorf("number of inputs and outputs must not be negative"))
		return nil
	}

	fee := cfg.TransferService().EstimateFees(feeNumInputs, feeNumOutputs)
	printResponse(map[string]interface{}{"fee": fee})
	return nil
}

type recipient struct {
	Destination string `json:"destination"`
	TokenID     string `json:"token_id"`
	Amount      string `json:"amount"`
}

type transferInstructionInfo struct {
	Amount    int64             `json:"amount"`
	Output    domain.OutputSlot `json:"output"`
	SkipInput bool              `json:"skip_input,omitempty"`
}

type inputInfo struct {
	Outpoint     string                    `json:"outpoint"`
	Instructions []transferInstructionInfo `json:"instructions"`
}

type transferPlanInfo struct {
	ID             string           `json:"id"`
	Inputs         []inputInfo      `json:"inputs"`
	TotalTokens    map[string]int64 `json:"total_tokens"`
	ChangeTokens   map[string]int64 `json:"change_tokens"`
	NativeTotal    int64            `json:"native_total"`
	NativeRequired int64            `json:"native_required"`
	NativeChange   int64            `json:"native_change"`
	Fee            int64            `json:"fee"`
	NumOutputs     int64            `json:"num_outputs"`
	LockExpiration int64            `json:"lock_expiration"`
}

func newTransferPlanInfo(plan *application.TransferPlan) transferPlanInfo {
	instructionsByInput := make(map[domain.Outpoint][]transferInstructionInfo)
	for _, in := range plan.Selection.InputInstructions() {
		list := make([]transferInstructionInfo, 0, len(in.Instructions))
		for _, ti := range in.Instructions {
			list = append(list, transferInstructionInfo{ti.Amount, ti.Output, ti.SkipInput})
		}
		instructionsByInput[in.Input] = list
	}

	inputs := make([]inputInfo, 0, len(plan.Inputs()))
	for _, in := range plan.Inputs() {
		inputs = append(inputs, inputInfo{
			Outpoint:     in.String(),
			Instructions: instructionsByInput[in],
		})
	}

	return transferPlanInfo{
		ID:             plan.ID,
		Inputs:         inputs,
		TotalTokens:    plan.Selection.TotalTokensInInputs(),
		ChangeTokens:   plan.Selection.ChangeTokens(),
		NativeTotal:    plan.NativeTotal,
		NativeRequired: plan.NativeRequired,
		NativeChange:   plan.NativeChange,
		Fee:            plan.Fee,
		NumOutputs:     plan.NumOutputs,
		LockExpiration: plan.LockExpiration,
	}
}
