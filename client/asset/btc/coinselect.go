// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package btc implements funding of token-layer transactions with BTC value
// fragments: coin selection under a fragment-count ceiling, exact fee and
// change computation with a dust policy, and unsigned transaction draft
// construction.
package btc

import (
	"sort"

	"frostswap.org/frostswap/client/asset"
	fswapbtc "frostswap.org/frostswap/fswap/networks/btc"
)

// sizeBuffer is vsize headroom added to the selection-time fee estimate so
// that small estimation differences cannot strand a draft between selection
// and exact fee computation.
const sizeBuffer = 10

// SelectionResult is an ordered set of fragments chosen to fund a payment.
type SelectionResult struct {
	// Fragments are the chosen fragments, largest value first.
	Fragments []*asset.Fragment
	// Sum is the summed value of the chosen fragments.
	Sum uint64
	// InputsSize is the summed input vsize of the chosen fragments.
	InputsSize uint64
}

// Count is the number of chosen fragments.
func (r *SelectionResult) Count() int {
	return len(r.Fragments)
}

// inputSize returns the spend vsize for a fragment's script class.
func inputSize(class asset.ScriptClass) uint64 {
	if class == asset.ScriptP2TR {
		return fswapbtc.P2TRInputSize
	}
	return fswapbtc.P2WPKHInputSize
}

// SpendableFragments filters a snapshot to fragments eligible for
// plain-value selection: at least minConfs confirmations and no tags. The
// result is sorted descending by value, ties broken by outpoint for
// determinism.
func SpendableFragments(snapshot []*asset.Fragment, minConfs uint32) []*asset.Fragment {
	eligible := make([]*asset.Fragment, 0, len(snapshot))
	for _, f := range snapshot {
		if f.Confs >= minConfs && !f.Tags.Tagged() {
			eligible = append(eligible, f)
		}
	}
	sortFragments(eligible)
	return eligible
}

func sortFragments(frags []*asset.Fragment) {
	sort.Slice(frags, func(i, j int) bool {
		if frags[i].Value != frags[j].Value {
			return frags[i].Value > frags[j].Value
		}
		return frags[i].Outpoint() < frags[j].Outpoint()
	})
}

// Select picks a subset of fragments covering targetPayment plus the fee
// implied by the selection itself, using a largest-first heuristic that
// minimizes the fragment count. The fee estimate is recomputed at every
// addition, since fee is a function of input count. No more than
// maxFragments are selected (non-positive means no ceiling). When the
// ceiling stops a selection that the full fragment set could have funded,
// the distinguishable asset.ErrFragmentCeiling is returned instead of
// asset.ErrInsufficientBalance.
//
// Select is pure: it never mutates its inputs and has no side effects. The
// caller supplies fragments already filtered via SpendableFragments.
func Select(fragments []*asset.Fragment, targetPayment, feeRatePerVB uint64, maxFragments int) (*SelectionResult, error) {
	return selectForShape(fragments, targetPayment, feeRatePerVB, maxFragments, defaultOutputsSize)
}

// selectForShape is Select with an explicit non-change outputs vsize for
// drafts with additional outputs (token edicts, null-data payloads).
func selectForShape(fragments []*asset.Fragment, targetPayment, feeRatePerVB uint64, maxFragments int, outputsSize uint64) (*SelectionResult, error) {
	candidates := make([]*asset.Fragment, len(fragments))
	copy(candidates, fragments)
	sortFragments(candidates)

	// The estimate assumes the 2-output worst case. ComputeFee settles the
	// exact figure for the final count.
	estimate := func(inputsSize uint64) uint64 {
		vsize := fswapbtc.TxOverhead + inputsSize + outputsSize + fswapbtc.P2WPKHOutputSize + sizeBuffer
		return feeRatePerVB * vsize
	}

	res := &SelectionResult{}
	for _, f := range candidates {
		res.Fragments = append(res.Fragments, f)
		res.Sum += f.Value
		res.InputsSize += inputSize(f.Class)
		if res.Sum >= targetPayment+estimate(res.InputsSize) {
			return res, nil
		}
		if maxFragments > 0 && res.Count() == maxFragments {
			break
		}
	}

	// Not enough within the ceiling. If the uncapped set would have
	// covered the target, the failure is actionable fragmentation, not a
	// true balance shortfall.
	if maxFragments > 0 && len(candidates) > maxFragments {
		var totalSum, totalSize uint64
		for _, f := range candidates {
			totalSum += f.Value
			totalSize += inputSize(f.Class)
		}
		if totalSum >= targetPayment+estimate(totalSize) {
			return nil, asset.ErrFragmentCeiling
		}
	}
	return nil, asset.ErrInsufficientBalance
}

// ValidateSelection reports whether every selected fragment is still
// present in the provided fresh snapshot. A missing fragment means the
// selection is stale and the draft must be rebuilt from scratch.
func ValidateSelection(snapshot []*asset.Fragment, sel *SelectionResult) bool {
	live := make(map[string]struct{}, len(snapshot))
	for _, f := range snapshot {
		live[f.Outpoint()] = struct{}{}
	}
	for _, f := range sel.Fragments {
		if _, found := live[f.Outpoint()]; !found {
			return false
		}
	}
	return true
}
