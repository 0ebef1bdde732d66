// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package btc

import (
	"errors"
	"reflect"
	"testing"

	"frostswap.org/frostswap/client/asset"
	fswapbtc "frostswap.org/frostswap/fswap/networks/btc"
)

func TestComputeFeeWithChange(t *testing.T) {
	// Two P2WPKH inputs.
	inputsSize := uint64(2 * fswapbtc.P2WPKHInputSize)
	plan, err := ComputeFee(inputsSize, 120000, 150000, 9)
	if err != nil {
		t.Fatalf("ComputeFee: %v", err)
	}
	wantSize := uint64(fswapbtc.TxOverhead + 2*fswapbtc.P2WPKHInputSize +
		fswapbtc.P2TROutputSize + fswapbtc.P2WPKHOutputSize)
	if plan.Size != wantSize {
		t.Fatalf("size = %d, want %d", plan.Size, wantSize)
	}
	if plan.Fee != 9*wantSize {
		t.Fatalf("fee = %d, want %d", plan.Fee, 9*wantSize)
	}
	if plan.OutputCount != 2 {
		t.Fatalf("output count = %d", plan.OutputCount)
	}
	if plan.Change != 150000-120000-plan.Fee {
		t.Fatalf("change = %d", plan.Change)
	}
	if plan.EffectiveFeeRate != 9 {
		t.Fatalf("effective rate = %f", plan.EffectiveFeeRate)
	}
}

func TestComputeFeeDustFold(t *testing.T) {
	// One input, with the payment tuned so the candidate change is 100
	// sats, below the dust threshold.
	inputsSize := uint64(fswapbtc.P2WPKHInputSize)
	size2 := uint64(fswapbtc.TxOverhead) + inputsSize + fswapbtc.P2TROutputSize + fswapbtc.P2WPKHOutputSize
	const totalIn, feeRate = 100000, 10
	payment := totalIn - feeRate*size2 - 100

	plan, err := ComputeFee(inputsSize, payment, totalIn, feeRate)
	if err != nil {
		t.Fatalf("ComputeFee: %v", err)
	}
	if plan.OutputCount != 1 {
		t.Fatalf("expected dust change folded into fee, got %d outputs", plan.OutputCount)
	}
	if plan.Change != 0 {
		t.Fatalf("change = %d", plan.Change)
	}
	// The lost change folds entirely into the fee.
	if totalIn-payment-plan.Fee != 0 {
		t.Fatalf("value not conserved: %d - %d - %d != 0", totalIn, payment, plan.Fee)
	}
	if plan.EffectiveFeeRate <= feeRate {
		t.Fatalf("effective rate %f should exceed requested %d after the fold",
			plan.EffectiveFeeRate, feeRate)
	}
}

func TestComputeFeeInsufficient(t *testing.T) {
	// Three inputs, 170000 total, target too close to the total once the
	// 3-input fee lands.
	inputsSize := uint64(3 * fswapbtc.P2WPKHInputSize)
	_, err := ComputeFee(inputsSize, 168500, 170000, 9)
	if !errors.Is(err, asset.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestComputeFeeIdempotent(t *testing.T) {
	a, err := ComputeFee(136, 120000, 150000, 14)
	if err != nil {
		t.Fatalf("ComputeFee: %v", err)
	}
	b, err := ComputeFee(136, 120000, 150000, 14)
	if err != nil {
		t.Fatalf("ComputeFee: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("identical inputs produced different plans: %+v != %+v", a, b)
	}
}
