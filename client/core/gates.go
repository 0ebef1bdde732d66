// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package core

import (
	"fmt"
	"strings"

	"frostswap.org/frostswap/client/asset/btc"
)

// FeeGate identifies one of the configurable sanity checks applied to a
// draft before it is signed.
type FeeGate uint8

const (
	// GateAbsoluteFee trips when the fee exceeds a flat sat cap.
	GateAbsoluteFee FeeGate = iota
	// GateFeeRate trips when the effective fee rate exceeds a sat/vB cap.
	// Dust folded into the fee can push the effective rate above the
	// requested rate.
	GateFeeRate
	// GateFragmentCount trips when the draft spends more fragments than
	// the configured comfort cap.
	GateFragmentCount
	// GateFeeRatio trips when the fee exceeds a configured fraction of the
	// payment value.
	GateFeeRatio
)

// String returns a human-readable gate name.
func (g FeeGate) String() string {
	switch g {
	case GateAbsoluteFee:
		return "absolute fee cap"
	case GateFeeRate:
		return "fee rate cap"
	case GateFragmentCount:
		return "fragment count cap"
	case GateFeeRatio:
		return "fee-to-payment ratio cap"
	}
	return "unknown"
}

// FeeGateResult reports which gates a draft tripped, with the figures that
// tripped them. A tripped gate is a soft condition requiring an explicit
// override in the trade configuration, not a failure.
type FeeGateResult struct {
	Tripped          []FeeGate
	Fee              uint64
	EffectiveFeeRate float64
	FragmentCount    int
	Payment          uint64
}

// Ok reports whether no gate tripped.
func (r *FeeGateResult) Ok() bool {
	return len(r.Tripped) == 0
}

// HighFeeError wraps a tripped FeeGateResult. errors.Is(err, ErrHighFee)
// matches it. The caller clears it by re-running with FeeOverride set.
type HighFeeError struct {
	Result *FeeGateResult
}

// Error returns a description naming the tripped gates.
func (e *HighFeeError) Error() string {
	names := make([]string, len(e.Result.Tripped))
	for i, g := range e.Result.Tripped {
		names[i] = g.String()
	}
	return fmt.Sprintf("fee %d sats (%.2f sat/vB, %d fragments) tripped: %s",
		e.Result.Fee, e.Result.EffectiveFeeRate, e.Result.FragmentCount,
		strings.Join(names, ", "))
}

// Unwrap supports errors.Is against ErrHighFee.
func (e *HighFeeError) Unwrap() error {
	return ErrHighFee
}

// evaluateFeeGates checks a draft against the configuration's fee gates.
// Zero-valued caps disable their gate.
func evaluateFeeGates(draft *btc.TxDraft, payment uint64, cfg *TradeConfiguration) *FeeGateResult {
	res := &FeeGateResult{
		Fee:              draft.Plan.Fee,
		EffectiveFeeRate: draft.Plan.EffectiveFeeRate,
		FragmentCount:    draft.Selection.Count(),
		Payment:          payment,
	}
	if cfg.MaxFeeSats > 0 && draft.Plan.Fee > cfg.MaxFeeSats {
		res.Tripped = append(res.Tripped, GateAbsoluteFee)
	}
	if cfg.MaxFeeRatePerVB > 0 && draft.Plan.EffectiveFeeRate > float64(cfg.MaxFeeRatePerVB) {
		res.Tripped = append(res.Tripped, GateFeeRate)
	}
	if cfg.MaxFragmentAlarm > 0 && draft.Selection.Count() > cfg.MaxFragmentAlarm {
		res.Tripped = append(res.Tripped, GateFragmentCount)
	}
	if cfg.MaxFeeToPaymentBPS > 0 && payment > 0 &&
		mulDivFloor(draft.Plan.Fee, bpsDenom, payment) > cfg.MaxFeeToPaymentBPS {
		res.Tripped = append(res.Tripped, GateFeeRatio)
	}
	return res
}
