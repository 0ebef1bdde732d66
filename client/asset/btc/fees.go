// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package btc

import (
	"frostswap.org/frostswap/client/asset"
	fswapbtc "frostswap.org/frostswap/fswap/networks/btc"
)

// defaultOutputsSize is the non-change outputs vsize assumed by the
// top-level Select and ComputeFee operations: a single P2TR payment output,
// the worst standard single-signature case.
const defaultOutputsSize = fswapbtc.P2TROutputSize

// FeePlan is the exact fee decision for a draft with a known input set.
type FeePlan struct {
	// Fee is the transaction fee in sats.
	Fee uint64
	// OutputCount includes the change output when present: for a single
	// payment, 1 means no change and 2 means payment plus change.
	OutputCount int
	// Change is the change value, zero when the change output was folded
	// into the fee.
	Change uint64
	// Size is the estimated transaction vsize the fee was computed for.
	Size uint64
	// EffectiveFeeRate is Fee/Size. It can exceed the requested rate when
	// dust change is folded into the fee, and is reported for caller-side
	// sanity gates only.
	EffectiveFeeRate float64
}

// ComputeFee computes the exact fee and change decision for a payment
// funded by inputs of the provided summed vsize. If the change implied by
// the 2-output plan would be dust, the 1-output plan is used and the whole
// remainder folds into the fee, so that totalInputValue - paymentAmount -
// Fee == 0.
//
// ComputeFee is deterministic and idempotent: identical arguments always
// produce an identical plan, with no dependence on call order or cached
// state.
func ComputeFee(inputsSize, paymentAmount, totalInputValue, feeRatePerVB uint64) (*FeePlan, error) {
	return computeFee(inputsSize, defaultOutputsSize, 1, paymentAmount, totalInputValue, feeRatePerVB)
}

// computeFee generalizes ComputeFee to drafts with numPayments non-change
// outputs of summed vsize outputsSize.
func computeFee(inputsSize, outputsSize uint64, numPayments int, paySum, totalInputValue, feeRatePerVB uint64) (*FeePlan, error) {
	noChangeSize := fswapbtc.TxOverhead + inputsSize + outputsSize
	minFee := feeRatePerVB * noChangeSize
	if totalInputValue < paySum+minFee {
		return nil, asset.ErrInsufficientBalance
	}
	remaining := totalInputValue - paySum

	withChangeSize := noChangeSize + fswapbtc.P2WPKHOutputSize
	withChangeFee := feeRatePerVB * withChangeSize
	if remaining >= withChangeFee && !fswapbtc.IsDust(remaining-withChangeFee) {
		return &FeePlan{
			Fee:              withChangeFee,
			OutputCount:      numPayments + 1,
			Change:           remaining - withChangeFee,
			Size:             withChangeSize,
			EffectiveFeeRate: float64(withChangeFee) / float64(withChangeSize),
		}, nil
	}
	// Change would be dust (or would not cover its own output weight):
	// fold the whole remainder into the fee on the no-change plan.
	return &FeePlan{
		Fee:              remaining,
		OutputCount:      numPayments,
		Size:             noChangeSize,
		EffectiveFeeRate: float64(remaining) / float64(noChangeSize),
	}, nil
}
