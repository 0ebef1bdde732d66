// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package core

import (
	"frostswap.org/frostswap/fswap"
)

const (
	// ErrNoRoute is returned by the quote engine when no direct or bridged
	// pool path exists for the requested pair.
	ErrNoRoute = fswap.ErrorKind("no direct or bridged route")
	// ErrInsufficientLiquidity is returned when a pool cannot supply the
	// requested output amount.
	ErrInsufficientLiquidity = fswap.ErrorKind("insufficient pool liquidity")
	// ErrStaleSelection is returned when a selected fragment is no longer
	// present in a freshly fetched snapshot, even after a full rebuild.
	ErrStaleSelection = fswap.ErrorKind("stale fragment selection")
	// ErrConfirmationTimeout is returned when confirmation polling exhausts
	// its attempt ceiling on a latency-sensitive network.
	ErrConfirmationTimeout = fswap.ErrorKind("confirmation timeout")
	// ErrSwapInProgress is returned when a swap is started for a wallet
	// context that already has an active plan.
	ErrSwapInProgress = fswap.ErrorKind("swap already in progress")
	// ErrHighFee signals tripped fee gates. It is a soft gate, not a
	// failure: the plan is allowed to proceed once the caller sets the fee
	// override in the trade configuration.
	ErrHighFee = fswap.ErrorKind("fee gates tripped")
)
