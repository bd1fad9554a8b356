package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vulpemventures/ocean-ntp1/internal/core/domain"
)

var colorRed = string("\033[31m")

func jsonResponse(v interface{}) (string, error) {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal response: %s", err)
	}
	return string(buf), nil
}

func printResponse(v interface{}) {
	reply, err := jsonResponse(v)
	if err != nil {
		printErr(err)
		return
	}
	fmt.Println(reply)
}

func printErr(err error) {
	msg := fmt.Sprintf("%s%s", colorRed, capitalize(err.Error()))
	fmt.Fprintln(os.Stderr, msg)
}

func capitalize(s string) string {
	if len(s) <= 0 {
		return s
	}
	ss := strings.ToUpper(s[0:1])
	ss += s[1:]
	return ss
}

// parseOutpoints parses a list of outpoints in the txid:vout format.
func parseOutpoints(list []string) ([]domain.Outpoint, error) {
	outpoints := make([]domain.Outpoint, 0, len(list))
	for _, str := range list {
		op, err := domain.ParseOutpoint(str)
		if err != nil {
			return nil, err
		}
		outpoints = append(outpoints, op)
	}
	return outpoints, nil
}

// formatAmount returns the given amount of base units as a decimal string
// with the given precision.
func formatAmount(amount int64, decimals uint8) string {
	return decimal.New(amount, -int32(decimals)).StringFixed(int32(decimals))
}

// parseAmount converts the given decimal string into base units with the
// given precision.
func parseAmount(str string, decimals uint8) (int64, error) {
	amount, err := decimal.NewFromString(str)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %s", str, err)
	}
	units := amount.Shift(int32(decimals))
	if !units.IsInteger() {
		return 0, fmt.Errorf(
			"invalid amount %q: too many decimals, max %d", str, decimals,
		)
	}
	return units.IntPart(), nil
}
