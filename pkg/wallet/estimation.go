package wallet

import (
	"github.com/shopspring/decimal"
)

const (
	// DefaultMinTxFee is the fee per kB, in native base units, charged by the
	// network for a standard transaction.
	DefaultMinTxFee = int64(10000)

	inputSize   = 181
	outputSize  = 34
	txFixedSize = 10

	// fees are always a multiple of this amount.
	feeRoundingUnit = int64(10000)
)

var (
	bytesPerKB   = decimal.NewFromInt(1000)
	roundingUnit = decimal.NewFromInt(feeRoundingUnit)
)

// EstimateTxSize returns the estimated size in bytes of a transaction with the
// given number of inputs and outputs.
func EstimateTxSize(numInputs, numOutputs int64) int64 {
	return numInputs*inputSize + numOutputs*outputSize + txFixedSize
}

// EstimateFees returns the fee for a transaction with the given number of
// inputs and outputs, rounded up to the closest multiple of 10000 units.
func EstimateFees(numInputs, numOutputs, minTxFee int64) int64 {
	return FeeForSize(EstimateTxSize(numInputs, numOutputs), minTxFee)
}

// FeeForSize returns the fee for a transaction of the given size in bytes.
func FeeForSize(size, minTxFee int64) int64 {
	fee := decimal.NewFromInt(minTxFee).Mul(decimal.NewFromInt(size)).Div(bytesPerKB)
	return fee.Div(roundingUnit).Ceil().Mul(roundingUnit).IntPart()
}

// NumOfTokenOutputs returns the number of outputs of a token transfer: one
// per recipient, the optional change and the metadata output.
func NumOfTokenOutputs(numRecipients int, hasChange bool) int64 {
	num := int64(numRecipients) + 1
	if hasChange {
		num++
	}
	return num
}
