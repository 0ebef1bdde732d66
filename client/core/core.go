// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package core implements the swap engine: quote computation over
// constant-product pools with synthetic wrap/unwrap hops, and the
// orchestrator that drives a quoted route as a sequence of on-chain steps
// with confirmation polling between dependent steps.
package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"frostswap.org/frostswap/client/asset"
	"frostswap.org/frostswap/client/asset/btc"
	"frostswap.org/frostswap/fswap"
	fswapbtc "frostswap.org/frostswap/fswap/networks/btc"
	"frostswap.org/frostswap/fswap/wait"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// LatencyClass says how the orchestrator treats confirmation poll
// exhaustion.
type LatencyClass uint8

const (
	// LatencySensitive networks hold and surface a stall when the poll
	// ceiling is exhausted.
	LatencySensitive LatencyClass = iota
	// LowLatency networks proceed optimistically, flagging the step
	// unconfirmed-proceed.
	LowLatency
)

// TradeConfiguration is the explicit per-call value object carrying the
// user's fee and slippage selections. It is passed in at call time, never
// read from ambient state, so the engine and orchestrator stay
// independently testable.
type TradeConfiguration struct {
	// SlippageBPS is the slippage tolerance in basis points.
	SlippageBPS uint64
	// FeeRatePerVB is the requested fee rate in sat/vB.
	FeeRatePerVB uint64
	// MaxFragments is the hard fragment-count ceiling for coin selection.
	// Non-positive means no ceiling.
	MaxFragments int

	// Fee gates. Zero disables a gate. Tripped gates block the plan until
	// FeeOverride is set.
	MaxFeeSats         uint64
	MaxFeeRatePerVB    uint64
	MaxFragmentAlarm   int
	MaxFeeToPaymentBPS uint64
	FeeOverride        bool

	// PollInterval and PollAttempts bound confirmation waits.
	PollInterval time.Duration
	PollAttempts int
	// Latency selects the poll-exhaustion policy.
	Latency LatencyClass
	// AllowFusedWrap permits fusing a wrap step and the trade leg it
	// wholly funds into one atomic transaction.
	AllowFusedWrap bool
}

// DefaultTradeConfiguration returns a configuration with conservative
// defaults: 1% slippage, 10 sat/vB, and a five-minute confirmation window.
func DefaultTradeConfiguration() *TradeConfiguration {
	return &TradeConfiguration{
		SlippageBPS:        100,
		FeeRatePerVB:       10,
		MaxFragments:       30,
		MaxFeeToPaymentBPS: 2500,
		PollInterval:       5 * time.Second,
		PollAttempts:       60,
	}
}

// WalletContext identifies the wallet a plan executes against. Address
// derivation and key custody live outside the core; it only needs the
// addresses.
type WalletContext struct {
	// ID keys the single-flight guard.
	ID string
	// FundingAddress holds the BTC value fragments that fund drafts.
	FundingAddress string
	// TokenAddress receives carrier outputs for token-layer steps.
	TokenAddress string
	// ChangeAddress receives draft change.
	ChangeAddress string
}

// ProtocolConfig carries the token protocol's chain-side parameters.
type ProtocolConfig struct {
	// CustodyAddress is the federation address wrap payments go to.
	CustodyAddress string
}

// Config is the dependency set for New.
type Config struct {
	Logger      fswap.Logger
	Registry    *fswap.AssetRegistry
	ChainParams *chaincfg.Params
	Snapshots   asset.SnapshotSource
	TxStatuses  asset.TxStatusSource
	Signer      asset.Signer
	Broadcaster asset.Broadcaster
	Pools       PoolSource
	FeeSchedule FeeScheduleSource
	Protocol    ProtocolConfig
}

// Core is the swap engine. Quotes are stateless and may run concurrently;
// at most one swap plan is active per wallet context.
type Core struct {
	log    fswap.Logger
	reg    *fswap.AssetRegistry
	params *chaincfg.Params
	snaps  asset.SnapshotSource
	stats  asset.TxStatusSource
	signer asset.Signer
	bcast  asset.Broadcaster
	quotes *QuoteEngine
	proto  ProtocolConfig

	activeMtx sync.Mutex
	active    map[string]*SwapPlan
}

// New creates a Core from its dependencies.
func New(cfg *Config) (*Core, error) {
	for _, check := range []struct {
		name    string
		missing bool
	}{
		{"registry", cfg.Registry == nil},
		{"chain params", cfg.ChainParams == nil},
		{"snapshot source", cfg.Snapshots == nil},
		{"tx status source", cfg.TxStatuses == nil},
		{"signer", cfg.Signer == nil},
		{"broadcaster", cfg.Broadcaster == nil},
		{"pool source", cfg.Pools == nil},
		{"fee schedule source", cfg.FeeSchedule == nil},
	} {
		if check.missing {
			return nil, fmt.Errorf("no %s configured", check.name)
		}
	}
	log := cfg.Logger
	if log == nil {
		log = fswap.Disabled
	}
	return &Core{
		log:    log,
		reg:    cfg.Registry,
		params: cfg.ChainParams,
		snaps:  cfg.Snapshots,
		stats:  cfg.TxStatuses,
		signer: cfg.Signer,
		bcast:  cfg.Broadcaster,
		quotes: NewQuoteEngine(cfg.Registry, cfg.Pools, cfg.FeeSchedule, log),
		proto:  cfg.Protocol,
		active: make(map[string]*SwapPlan),
	}, nil
}

// UnitInfo returns the display configuration for the asset.
func (c *Core) UnitInfo(id fswap.AssetID) fswap.UnitInfo {
	return c.reg.UnitInfo(id)
}

// Quote computes a quote. See QuoteEngine.Quote.
func (c *Core) Quote(ctx context.Context, sell, buy fswap.AssetID, amount uint64,
	dir Direction, slippageBPS uint64) (*Quote, error) {
	return c.quotes.Quote(ctx, sell, buy, amount, dir, slippageBPS)
}

// ActivePlan returns the wallet context's active plan, if any.
func (c *Core) ActivePlan(walletID string) (*SwapPlan, bool) {
	c.activeMtx.Lock()
	defer c.activeMtx.Unlock()
	plan, found := c.active[walletID]
	return plan, found
}

// StartSwap builds a plan from the quote and drives it to a terminal state.
// Steps execute strictly sequentially: each step's draft is built against a
// fresh fragment snapshot only after the previous step's confirmation wait
// resolves, since spending an unconfirmed dependency risks a missing-input
// rejection. The call blocks until the plan completes or fails; cancel ctx
// to stop. Cancellation after a step broadcasts does not undo that step, it
// only prevents subsequent steps from starting.
//
// Only one plan may be active per wallet context. A plan that fails is not
// rolled back; results of broadcast steps are preserved on the returned
// plan.
func (c *Core) StartSwap(ctx context.Context, wallet *WalletContext, q *Quote,
	cfg *TradeConfiguration) (*SwapPlan, error) {

	plan := &SwapPlan{WalletID: wallet.ID, Quote: q, state: StatePlanning}
	c.activeMtx.Lock()
	if _, exists := c.active[wallet.ID]; exists {
		c.activeMtx.Unlock()
		return nil, fswap.NewError(ErrSwapInProgress, wallet.ID)
	}
	c.active[wallet.ID] = plan
	c.activeMtx.Unlock()
	defer func() {
		c.activeMtx.Lock()
		delete(c.active, wallet.ID)
		c.activeMtx.Unlock()
	}()

	plan.Steps = buildSteps(q, cfg)
	c.log.Infof("starting %d-step swap %s -> %s for wallet %s",
		len(plan.Steps), q.Sell, q.Buy, wallet.ID)

	for i, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			plan.fail(i, err)
			return plan, err
		}
		if err := c.runStep(ctx, wallet, plan, i, step, cfg); err != nil {
			plan.fail(i, err)
			c.log.Errorf("swap for wallet %s failed at step %d (%s): %v",
				wallet.ID, i, step.Kind, err)
			return plan, err
		}
	}
	plan.setState(StateComplete, len(plan.Steps)-1)
	c.log.Infof("swap for wallet %s complete", wallet.ID)
	return plan, nil
}

// buildSteps converts the quote's legs into plan steps, fusing a leading
// wrap into the trade leg it wholly funds when the configuration allows.
// The slippage bound applies to the route's final output, so it rides on
// the last trade-bearing step.
func buildSteps(q *Quote, cfg *TradeConfiguration) []*Step {
	steps := make([]*Step, 0, len(q.Legs))
	for _, leg := range q.Legs {
		steps = append(steps, &Step{
			Kind:     leg.Kind,
			From:     leg.From,
			To:       leg.To,
			In:       leg.In,
			Out:      leg.Out,
			PoolID:   leg.PoolID,
			Deadline: q.DeadlineBlocks,
		})
	}
	if cfg.AllowFusedWrap && len(steps) >= 2 &&
		steps[0].Kind == StepWrap && steps[1].Kind == StepTradeLeg {
		fused := &Step{
			Kind:     StepWrapTradeLeg,
			From:     steps[0].From,
			To:       steps[1].To,
			In:       steps[0].In,
			Out:      steps[1].Out,
			PoolID:   steps[1].PoolID,
			Deadline: q.DeadlineBlocks,
		}
		steps = append([]*Step{fused}, steps[2:]...)
	}
	for i := len(steps) - 1; i >= 0; i-- {
		if steps[i].Kind == StepWrap {
			continue
		}
		steps[i].MinOut = stepFloor(q, steps[i])
		break
	}
	return steps
}

// stepFloor is the enforced output floor for the route's final
// trade-bearing step: the quote's minimum-received when one was computed,
// else the quoted output itself.
func stepFloor(q *Quote, step *Step) uint64 {
	if q.MinReceived > 0 {
		return q.MinReceived
	}
	return step.Out
}

// runStep drives one step: draft, sign, broadcast, confirmation wait.
func (c *Core) runStep(ctx context.Context, wallet *WalletContext, plan *SwapPlan,
	idx int, step *Step, cfg *TradeConfiguration) error {

	plan.setState(StateAwaitingSignature, idx)

	signed, err := c.buildAndSign(ctx, wallet, step, cfg)
	if err != nil {
		return err
	}

	plan.setState(StateBroadcasting, idx)
	txHash, err := c.bcast.Broadcast(ctx, signed)
	if err != nil {
		return fmt.Errorf("step %d (%s) broadcast: %w", idx, step.Kind, err)
	}
	res := &StepResult{Index: idx, Kind: step.Kind, TxID: txHash, Status: StepPending}
	plan.addResult(res)
	c.log.Debugf("step %d (%s) broadcast as %s", idx, step.Kind, txHash)

	plan.setState(StateAwaitingConfirmation, idx)
	return c.awaitConfirmation(ctx, plan, res, txHash, cfg)
}

// buildAndSign constructs the step's draft from a fresh snapshot and hands
// it to the signer. If the selection goes stale between signature and
// broadcast, one full re-fetch and re-build is attempted; a second
// staleness is ErrStaleSelection. Never a partial patch: a stale selection
// invalidates the whole draft.
func (c *Core) buildAndSign(ctx context.Context, wallet *WalletContext, step *Step,
	cfg *TradeConfiguration) (*wire.MsgTx, error) {

	payments, nullData, err := c.stepOutputs(step, wallet)
	if err != nil {
		return nil, err
	}
	var payValue uint64
	for _, p := range payments {
		payValue += p.Value
	}

	for attempt := 0; attempt < 2; attempt++ {
		snapshot, err := c.snaps.ListSpendable(ctx, wallet.FundingAddress, false)
		if err != nil {
			return nil, fmt.Errorf("error fetching fragment snapshot: %w", err)
		}
		spendable := btc.SpendableFragments(snapshot, 1)

		draft, err := btc.NewDraft(spendable, payments, nullData, wallet.ChangeAddress,
			cfg.FeeRatePerVB, cfg.MaxFragments, c.params)
		if err != nil {
			return nil, fmt.Errorf("error building %s draft: %w", step.Kind, err)
		}

		if gates := evaluateFeeGates(draft, payValue, cfg); !gates.Ok() && !cfg.FeeOverride {
			return nil, &HighFeeError{Result: gates}
		}

		signed, err := c.signer.Sign(ctx, draft.Tx)
		if err != nil {
			return nil, fmt.Errorf("error signing %s draft: %w", step.Kind, err)
		}

		// Signing can take a while. Re-validate against a fresh snapshot
		// before handing the transaction back for broadcast.
		fresh, err := c.snaps.ListSpendable(ctx, wallet.FundingAddress, false)
		if err != nil {
			return nil, fmt.Errorf("error refreshing fragment snapshot: %w", err)
		}
		if !btc.ValidateSelection(fresh, draft.Selection) {
			c.log.Warnf("stale selection for %s step of wallet %s, rebuilding", step.Kind, wallet.ID)
			continue
		}
		return signed, nil
	}
	return nil, fswap.NewError(ErrStaleSelection, wallet.FundingAddress)
}

// stepOutputs derives a step's payments and protocol payload. A wrap pays
// the custody address the wrapped value; token-layer steps pay a dust
// carrier to the wallet's token address. The payload rides in the draft's
// null-data output.
func (c *Core) stepOutputs(step *Step, wallet *WalletContext) ([]*btc.Payment, []byte, error) {
	payload, err := stepPayload(step, c.reg.Peg())
	if err != nil {
		return nil, nil, err
	}
	switch step.Kind {
	case StepWrap, StepWrapTradeLeg:
		if c.proto.CustodyAddress == "" {
			return nil, nil, fmt.Errorf("no custody address configured for %s step", step.Kind)
		}
		return []*btc.Payment{{Address: c.proto.CustodyAddress, Value: step.In}}, payload, nil
	case StepTradeLeg, StepUnwrap:
		return []*btc.Payment{{Address: wallet.TokenAddress, Value: fswapbtc.DustThreshold}}, payload, nil
	}
	return nil, nil, fmt.Errorf("no outputs for step kind %s", step.Kind)
}

// awaitConfirmation polls the transaction status at the configured interval
// until confirmation, ceiling exhaustion, or cancellation. On exhaustion,
// low-latency networks proceed with the step flagged unconfirmed-proceed;
// latency-sensitive networks hold and surface ErrConfirmationTimeout.
func (c *Core) awaitConfirmation(ctx context.Context, plan *SwapPlan, res *StepResult,
	txHash *chainhash.Hash, cfg *TradeConfiguration) error {

	ticker := wait.Ticker{Interval: cfg.PollInterval, MaxAttempts: cfg.PollAttempts}
	var confirmed bool
	err := ticker.Wait(ctx, func() wait.TryDirective {
		status, err := c.stats.TxStatus(ctx, txHash)
		if err != nil {
			if !errors.Is(err, asset.ErrTxNotFound) {
				c.log.Warnf("tx status error for %s: %v", txHash, err)
			}
			return wait.TryAgain
		}
		confirmed = status.Confirmed
		if confirmed {
			return wait.DontTryAgain
		}
		return wait.TryAgain
	})
	switch {
	case err == nil && confirmed:
		res.Status = StepConfirmed
		return nil
	case errors.Is(err, wait.ErrAttemptLimit):
		if cfg.Latency == LowLatency {
			res.Status = StepUnconfirmedProceed
			c.log.Warnf("proceeding with unconfirmed step %d tx %s", res.Index, txHash)
			return nil
		}
		res.Status = StepFailed
		res.Err = fswap.NewError(ErrConfirmationTimeout, txHash.String())
		return res.Err
	default:
		// Context cancellation. The broadcast step stands; only
		// subsequent steps are prevented.
		res.Status = StepFailed
		res.Err = err
		return err
	}
}
