package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vulpemventures/ocean-ntp1/internal/core/domain"
)

var (
	tokenName     string
	tokenSymbol   string
	tokenDecimals uint8

	tokenAddCmd = &cobra.Command{
		Use:   "add",
		Short: "add token metadata",
		Long: "this command lets you store the name, symbol and precision of " +
			"the token with the given id, used to display amounts and errors",
		Args: cobra.ExactArgs(1),
		RunE: tokenAdd,
	}
	tokenListCmd = &cobra.Command{
		Use:   "list",
		Short: "list known tokens",
		Long:  "this command returns the metadata of all known tokens",
		RunE:  tokenList,
	}
	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "manage token metadata",
		Long:  "this command lets you add or list the metadata of known tokens",
	}
)

func init() {
	tokenAddCmd.Flags().StringVar(&tokenName, "name", "", "name of the token")
	tokenAddCmd.Flags().StringVar(&tokenSymbol, "symbol", "", "ticker of the token")
	tokenAddCmd.Flags().Uint8Var(&tokenDecimals, "decimals", 0, "precision of the token")

	tokenCmd.AddCommand(tokenAddCmd, tokenListCmd)
}

func tokenAdd(_ *cobra.Command, args []string) error {
	cfg, err := getAppConfig()
	if err != nil {
		return err
	}

	count, err := cfg.LedgerService().AddTokens(
		context.Background(), []*domain.Token{{
			TokenID:  args[0],
			Name:     tokenName,
			Symbol:   tokenSymbol,
			Decimals: tokenDecimals,
		}},
	)
	if err != nil {
		printErr(err)
		return nil
	}
	if count <= 0 {
		printErr(fmt.Errorf("token %s already known", args[0]))
		return nil
	}

	fmt.Printf("token %s has been added\n", args[0])
	return nil
}

func tokenList(_ *cobra.Command, _ []string) error {
	cfg, err := getAppConfig()
	if err != nil {
		return err
	}

	tokens, err := cfg.LedgerService().ListTokens(context.Background())
	if err != nil {
		printErr(err)
		return nil
	}

	type tokenInfo struct {
		TokenID  string `json:"token_id"`
		Name     string `json:"name"`
		Symbol   string `json:"symbol"`
		Decimals uint8  `json:"decimals"`
	}
	list := make([]tokenInfo, 0, len(tokens))
	for _, t := range tokens {
		list = append(list, tokenInfo{t.TokenID, t.Name, t.Symbol, t.Decimals})
	}
	printResponse(map[string]interface{}{"tokens": list})
	return nil
}
