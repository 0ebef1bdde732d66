// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package core

import (
	"sync"

	"frostswap.org/frostswap/fswap"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// StepKind identifies the on-chain operation a plan step performs.
type StepKind uint8

const (
	// StepWrap converts native coin into the pegged synthetic.
	StepWrap StepKind = iota
	// StepTradeLeg executes one pool trade.
	StepTradeLeg
	// StepUnwrap converts the pegged synthetic back to native coin.
	StepUnwrap
	// StepWrapTradeLeg is a fused wrap followed by a pool trade executed
	// in a single transaction with chained protocol payloads.
	StepWrapTradeLeg
)

// String returns a human-readable step kind.
func (k StepKind) String() string {
	switch k {
	case StepWrap:
		return "wrap"
	case StepTradeLeg:
		return "trade"
	case StepUnwrap:
		return "unwrap"
	case StepWrapTradeLeg:
		return "wrap+trade"
	}
	return "unknown"
}

// PlanState is the swap orchestrator's state for one plan. States that refer
// to a particular step carry the step index alongside.
type PlanState uint8

const (
	StateIdle PlanState = iota
	StatePlanning
	StateAwaitingSignature
	StateBroadcasting
	StateAwaitingConfirmation
	StateComplete
	StateFailed
)

// String returns a human-readable state name.
func (s PlanState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlanning:
		return "planning"
	case StateAwaitingSignature:
		return "awaiting signature"
	case StateBroadcasting:
		return "broadcasting"
	case StateAwaitingConfirmation:
		return "awaiting confirmation"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// StepStatus is the terminal disposition of one executed step.
type StepStatus uint8

const (
	// StepPending means the step has not yet broadcast.
	StepPending StepStatus = iota
	// StepConfirmed means the step's transaction confirmed.
	StepConfirmed
	// StepUnconfirmedProceed means the confirmation poll ceiling was
	// exhausted but the plan proceeded optimistically on a low-latency
	// network.
	StepUnconfirmedProceed
	// StepFailed means the step failed terminally.
	StepFailed
)

// String returns a human-readable status name.
func (s StepStatus) String() string {
	switch s {
	case StepPending:
		return "pending"
	case StepConfirmed:
		return "confirmed"
	case StepUnconfirmedProceed:
		return "unconfirmed-proceed"
	case StepFailed:
		return "failed"
	}
	return "unknown"
}

// Step is one planned on-chain operation. Amounts are atomic units of the
// step's From asset (In) and To asset (Out). Out is the quoted figure, not
// an execution guarantee; MinOut is the enforced floor on the final trade.
type Step struct {
	Kind     StepKind
	From, To fswap.AssetID
	In, Out  uint64
	// PoolID is the liquidity venue for trade steps, empty otherwise.
	PoolID string
	// MinOut is the slippage floor carried in the step's protocol payload,
	// zero when the protocol applies no floor to this step kind.
	MinOut uint64
	// Deadline is the venue deadline in blocks for trade steps.
	Deadline uint64
}

// StepResult records the outcome of one executed step. It is exclusively
// owned by the plan that produced it.
type StepResult struct {
	Index  int
	Kind   StepKind
	TxID   *chainhash.Hash
	Status StepStatus
	Err    error
}

// SwapPlan is the ordered sequence of steps satisfying one quote, plus the
// results of the steps executed so far. A plan lives in memory only; it is
// discarded after terminal success or failure and is not resumable across
// process restarts.
type SwapPlan struct {
	WalletID string
	Quote    *Quote
	Steps    []*Step

	mtx       sync.Mutex
	results   []*StepResult
	state     PlanState
	stateStep int
	failErr   error
}

// State returns the plan's current state and, for step-scoped states, the
// index of the step it refers to.
func (p *SwapPlan) State() (PlanState, int) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.state, p.stateStep
}

// Err returns the failure reason for a plan in StateFailed, nil otherwise.
func (p *SwapPlan) Err() error {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.failErr
}

// Results returns the results of the steps executed so far, in step order.
func (p *SwapPlan) Results() []*StepResult {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	res := make([]*StepResult, len(p.results))
	copy(res, p.results)
	return res
}

func (p *SwapPlan) setState(state PlanState, step int) {
	p.mtx.Lock()
	p.state = state
	p.stateStep = step
	p.mtx.Unlock()
}

func (p *SwapPlan) addResult(res *StepResult) {
	p.mtx.Lock()
	p.results = append(p.results, res)
	p.mtx.Unlock()
}

// fail moves the plan to StateFailed at the given step, attaching the
// reason. Results of prior steps are preserved as-is. There is no rollback:
// a confirmed wrap is a valid, independently useful state even when the
// subsequent trade never executes.
func (p *SwapPlan) fail(step int, err error) {
	p.mtx.Lock()
	p.state = StateFailed
	p.stateStep = step
	p.failErr = err
	p.mtx.Unlock()
}
