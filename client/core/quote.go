// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package core

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"frostswap.org/frostswap/fswap"

	"github.com/shopspring/decimal"
)

// defaultDeadlineBlocks is the venue deadline attached to trade legs when
// the embedding application does not configure one.
const defaultDeadlineBlocks = 3

// perMille is the denominator of pool and wrap fees.
const perMille = 1000

// bpsDenom is the denominator of slippage tolerances.
const bpsDenom = 10_000

// PoolDescriptor describes one constant-product liquidity pool.
type PoolDescriptor struct {
	ID               string
	AssetA, AssetB   fswap.AssetID
	ReserveA         uint64
	ReserveB         uint64
	FeePerMille      uint64
}

// other returns the pool's counterpart asset of id, and whether id is in
// the pool at all.
func (p *PoolDescriptor) other(id fswap.AssetID) (fswap.AssetID, bool) {
	switch id {
	case p.AssetA:
		return p.AssetB, true
	case p.AssetB:
		return p.AssetA, true
	}
	return fswap.AssetID{}, false
}

// reserves returns the pool reserves oriented for an in-asset of from.
func (p *PoolDescriptor) reserves(from fswap.AssetID) (reserveIn, reserveOut uint64) {
	if from == p.AssetA {
		return p.ReserveA, p.ReserveB
	}
	return p.ReserveB, p.ReserveA
}

// PoolSource supplies current pool descriptors for an asset.
type PoolSource interface {
	Pools(ctx context.Context, id fswap.AssetID) ([]*PoolDescriptor, error)
}

// FeeScheduleSource supplies the protocol's current wrap and unwrap fees in
// parts per thousand. The schedule can change over time, so the quote
// engine reads it fresh for every quote.
type FeeScheduleSource interface {
	WrapFees(ctx context.Context) (wrap, unwrap uint64, err error)
}

// Direction says which side of a quote the amount is specified on.
type Direction uint8

const (
	// SellDirection quotes an exact sell amount; the buy amount and its
	// minimum-received bound are computed.
	SellDirection Direction = iota
	// BuyDirection quotes an exact buy amount; the sell amount and its
	// maximum-sent bound are computed.
	BuyDirection
)

// Leg is one hop of a quoted route with its quoted amounts.
type Leg struct {
	Kind     StepKind
	From, To fswap.AssetID
	// In and Out are the quoted atomic amounts entering and leaving the
	// leg.
	In, Out uint64
	// PoolID identifies the venue for trade legs.
	PoolID string
	// FeePerMille is the pool fee for trade legs, or the wrap/unwrap fee
	// for synthetic legs.
	FeePerMille uint64

	reserveIn, reserveOut uint64
}

// Quote is a computed exchange offer. Raw amounts are full-precision atomic
// integers; the display fields and the rate string are rendered only after
// every bound has been computed on the raw values.
type Quote struct {
	Sell, Buy fswap.AssetID
	Direction Direction
	RawSell   uint64
	RawBuy    uint64
	// DisplaySell and DisplayBuy are the conventional-unit renderings of
	// the raw amounts.
	DisplaySell, DisplayBuy string
	// Rate is buy-per-sell in conventional units, display only.
	Rate string
	// MinReceived is the slippage floor on RawBuy for sell-direction
	// quotes, zero otherwise.
	MinReceived uint64
	// MaxSent is the slippage ceiling on RawSell for buy-direction quotes,
	// zero otherwise.
	MaxSent uint64
	// Route is the asset path, endpoints inclusive.
	Route []fswap.AssetID
	// Legs are the route's hops with per-leg amounts and venues.
	Legs []Leg
	// VenueID is the pool of the first trade leg, empty for a pure
	// wrap/unwrap quote.
	VenueID string
	// WrapFeePerMille and UnwrapFeePerMille are the fee schedule snapshot
	// the quote was computed with.
	WrapFeePerMille   uint64
	UnwrapFeePerMille uint64
	// SlippageBPS is the tolerance the bounds were computed at.
	SlippageBPS uint64
	// DeadlineBlocks is passed through to trade legs at execution.
	DeadlineBlocks uint64
}

// QuoteEngine computes quotes. It is stateless; quotes may be computed
// concurrently without coordination.
type QuoteEngine struct {
	log   fswap.Logger
	reg   *fswap.AssetRegistry
	pools PoolSource
	fees  FeeScheduleSource
	// deadlineBlocks is the venue deadline attached to trade legs.
	deadlineBlocks uint64
}

// NewQuoteEngine creates a QuoteEngine over the provided registry and
// liquidity/fee providers.
func NewQuoteEngine(reg *fswap.AssetRegistry, pools PoolSource, fees FeeScheduleSource, log fswap.Logger) *QuoteEngine {
	return &QuoteEngine{
		log:            log,
		reg:            reg,
		pools:          pools,
		fees:           fees,
		deadlineBlocks: defaultDeadlineBlocks,
	}
}

// Quote computes a quote for exchanging sell for buy. In SellDirection,
// amount is the atomic sell amount and the result carries a
// minimum-received bound; in BuyDirection, amount is the desired atomic buy
// amount and the result carries a maximum-sent bound. slippageBPS is the
// tolerance in basis points.
//
// Route priority: a native/peg pair is a single synthetic wrap or unwrap
// hop. Otherwise a native endpoint trades through the peg with an implicit
// wrap or unwrap hop, and the pool path is resolved as a direct pool when
// one exists, else bridged through exactly one bridge asset, preferring the
// peg over the stable reference.
func (e *QuoteEngine) Quote(ctx context.Context, sell, buy fswap.AssetID, amount uint64,
	dir Direction, slippageBPS uint64) (*Quote, error) {

	if amount == 0 {
		return nil, fmt.Errorf("zero quote amount")
	}
	if sell == buy {
		return nil, fmt.Errorf("quote for identical assets %s", sell)
	}
	if slippageBPS >= bpsDenom {
		return nil, fmt.Errorf("slippage tolerance %d bps out of range", slippageBPS)
	}

	wrapFee, unwrapFee, err := e.fees.WrapFees(ctx)
	if err != nil {
		return nil, fmt.Errorf("error fetching wrap fee schedule: %w", err)
	}
	if wrapFee >= perMille || unwrapFee >= perMille {
		return nil, fmt.Errorf("nonsense wrap fee schedule %d/%d", wrapFee, unwrapFee)
	}

	legs, route, err := e.routeLegs(ctx, sell, buy, wrapFee, unwrapFee)
	if err != nil {
		return nil, err
	}

	q := &Quote{
		Sell:              sell,
		Buy:               buy,
		Direction:         dir,
		Route:             route,
		WrapFeePerMille:   wrapFee,
		UnwrapFeePerMille: unwrapFee,
		SlippageBPS:       slippageBPS,
		DeadlineBlocks:    e.deadlineBlocks,
	}

	switch dir {
	case SellDirection:
		q.RawSell = amount
		out, err := fillForward(legs, amount)
		if err != nil {
			return nil, err
		}
		q.RawBuy = out
		q.MinReceived = mulDivFloor(out, bpsDenom-slippageBPS, bpsDenom)
	case BuyDirection:
		q.RawBuy = amount
		in, err := fillBackward(legs, amount)
		if err != nil {
			return nil, err
		}
		q.RawSell = in
		q.MaxSent = mulDivCeil(in, bpsDenom+slippageBPS, bpsDenom)
	default:
		return nil, fmt.Errorf("unknown quote direction %d", dir)
	}

	q.Legs = legs
	for _, leg := range legs {
		if leg.Kind == StepTradeLeg {
			q.VenueID = leg.PoolID
			break
		}
	}

	// Bounds are final. Display rendering happens last.
	sellUI, buyUI := e.reg.UnitInfo(sell), e.reg.UnitInfo(buy)
	q.DisplaySell = sellUI.ConventionalString(q.RawSell)
	q.DisplayBuy = buyUI.ConventionalString(q.RawBuy)
	q.Rate = rateString(q.RawSell, q.RawBuy, sellUI, buyUI)

	return q, nil
}

// routeLegs resolves the hop structure for the pair. Native endpoints are
// aliased to the peg for pool lookup, bracketed by wrap/unwrap hops.
// Routing branches on asset roles only, never on raw IDs.
func (e *QuoteEngine) routeLegs(ctx context.Context, sell, buy fswap.AssetID,
	wrapFee, unwrapFee uint64) ([]Leg, []fswap.AssetID, error) {

	peg := e.reg.Peg()
	poolSell, poolBuy := sell, buy
	wrapIn := e.reg.Role(sell) == fswap.RoleNative
	if wrapIn {
		poolSell = peg
	}
	unwrapOut := e.reg.Role(buy) == fswap.RoleNative
	if unwrapOut {
		poolBuy = peg
	}

	var legs []Leg
	if wrapIn {
		legs = append(legs, Leg{Kind: StepWrap, From: sell, To: peg, FeePerMille: wrapFee})
	}

	if poolSell != poolBuy {
		tradeLegs, err := e.poolPath(ctx, poolSell, poolBuy)
		if err != nil {
			return nil, nil, err
		}
		legs = append(legs, tradeLegs...)
	} else if !wrapIn && !unwrapOut {
		// Identical pool-side assets with no synthetic hop means the
		// pair degenerated (e.g. peg quoted against itself upstream).
		return nil, nil, fswap.NewError(ErrNoRoute, fmt.Sprintf("%s -> %s", sell, buy))
	}

	if unwrapOut {
		legs = append(legs, Leg{Kind: StepUnwrap, From: peg, To: buy, FeePerMille: unwrapFee})
	}

	route := make([]fswap.AssetID, 0, len(legs)+1)
	route = append(route, sell)
	for _, leg := range legs {
		route = append(route, leg.To)
	}
	return legs, route, nil
}

// poolPath returns the trade legs from a to b: the direct pool when one
// exists, else two legs through one bridge asset. The peg is always
// preferred as the bridge; the stable reference is the fallback.
func (e *QuoteEngine) poolPath(ctx context.Context, a, b fswap.AssetID) ([]Leg, error) {
	if pool, err := e.findPool(ctx, a, b); err != nil {
		return nil, err
	} else if pool != nil {
		return []Leg{tradeLeg(pool, a, b)}, nil
	}

	candidates := []fswap.AssetID{e.reg.Peg()}
	if stable, ok := e.reg.Stable(); ok {
		candidates = append(candidates, stable)
	}
	for _, bridge := range candidates {
		if bridge == a || bridge == b {
			continue
		}
		first, err := e.findPool(ctx, a, bridge)
		if err != nil {
			return nil, err
		}
		if first == nil {
			continue
		}
		second, err := e.findPool(ctx, bridge, b)
		if err != nil {
			return nil, err
		}
		if second == nil {
			continue
		}
		return []Leg{tradeLeg(first, a, bridge), tradeLeg(second, bridge, b)}, nil
	}
	return nil, fswap.NewError(ErrNoRoute, fmt.Sprintf("%s -> %s", a, b))
}

// findPool locates a pool pairing a and b, nil if none exists. Descriptors
// with a nonsense fee are skipped, since the provider is external. When
// more than one pool pairs them, the deepest by reserve product wins, ties
// broken by ID for determinism.
func (e *QuoteEngine) findPool(ctx context.Context, a, b fswap.AssetID) (*PoolDescriptor, error) {
	pools, err := e.pools.Pools(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("error fetching pools for %s: %w", a, err)
	}
	matches := make([]*PoolDescriptor, 0, 1)
	for _, p := range pools {
		if p.FeePerMille >= perMille {
			e.log.Warnf("ignoring pool %s with nonsense fee %d/%d", p.ID, p.FeePerMille, perMille)
			continue
		}
		if counter, in := p.other(a); in && counter == b {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}
	sort.Slice(matches, func(i, j int) bool {
		di := depth(matches[i])
		dj := depth(matches[j])
		if c := di.Cmp(dj); c != 0 {
			return c > 0
		}
		return matches[i].ID < matches[j].ID
	})
	return matches[0], nil
}

func depth(p *PoolDescriptor) *big.Int {
	return new(big.Int).Mul(
		new(big.Int).SetUint64(p.ReserveA),
		new(big.Int).SetUint64(p.ReserveB),
	)
}

func tradeLeg(pool *PoolDescriptor, from, to fswap.AssetID) Leg {
	rin, rout := pool.reserves(from)
	return Leg{
		Kind:        StepTradeLeg,
		From:        from,
		To:          to,
		PoolID:      pool.ID,
		FeePerMille: pool.FeePerMille,
		reserveIn:   rin,
		reserveOut:  rout,
	}
}

// fillForward walks the legs front to back from a known input amount,
// recording per-leg amounts and returning the final output.
func fillForward(legs []Leg, in uint64) (uint64, error) {
	x := in
	for i := range legs {
		leg := &legs[i]
		leg.In = x
		var err error
		switch leg.Kind {
		case StepTradeLeg:
			x, err = ammOut(x, leg.reserveIn, leg.reserveOut, leg.FeePerMille)
		default:
			x = mulDivFloor(x, perMille-leg.FeePerMille, perMille)
		}
		if err != nil {
			return 0, err
		}
		leg.Out = x
	}
	return x, nil
}

// fillBackward walks the legs back to front from a desired output amount,
// returning the input required.
func fillBackward(legs []Leg, out uint64) (uint64, error) {
	x := out
	for i := len(legs) - 1; i >= 0; i-- {
		leg := &legs[i]
		leg.Out = x
		var err error
		switch leg.Kind {
		case StepTradeLeg:
			x, err = ammIn(x, leg.reserveIn, leg.reserveOut, leg.FeePerMille)
		default:
			x = mulDivCeil(x, perMille, perMille-leg.FeePerMille)
		}
		if err != nil {
			return 0, err
		}
		leg.In = x
	}
	return x, nil
}

// ammOut is the constant-product output for a given input:
// floor(in*(1000-fee)*reserveOut / (reserveIn*1000 + in*(1000-fee))).
// Reserve products exceed 64 bits, so the arithmetic is big.Int throughout.
func ammOut(in, reserveIn, reserveOut, feePerMille uint64) (uint64, error) {
	if reserveIn == 0 || reserveOut == 0 {
		return 0, fswap.NewError(ErrInsufficientLiquidity, "empty pool")
	}
	inWithFee := new(big.Int).Mul(new(big.Int).SetUint64(in), big.NewInt(int64(perMille-feePerMille)))
	num := new(big.Int).Mul(inWithFee, new(big.Int).SetUint64(reserveOut))
	den := new(big.Int).Mul(new(big.Int).SetUint64(reserveIn), big.NewInt(perMille))
	den.Add(den, inWithFee)
	out := num.Div(num, den)
	if !out.IsUint64() {
		return 0, fmt.Errorf("pool output out of range")
	}
	return out.Uint64(), nil
}

// ammIn is the inverse: the smallest input yielding at least out,
// ceil(reserveIn*1000*out / ((reserveOut-out)*(1000-fee))).
func ammIn(out, reserveIn, reserveOut, feePerMille uint64) (uint64, error) {
	if out >= reserveOut {
		return 0, fswap.NewError(ErrInsufficientLiquidity,
			fmt.Sprintf("requested %d of %d reserve", out, reserveOut))
	}
	num := new(big.Int).Mul(new(big.Int).SetUint64(reserveIn), big.NewInt(perMille))
	num.Mul(num, new(big.Int).SetUint64(out))
	den := new(big.Int).Mul(
		new(big.Int).SetUint64(reserveOut-out),
		big.NewInt(int64(perMille-feePerMille)),
	)
	in := ceilDiv(num, den)
	if !in.IsUint64() {
		return 0, fmt.Errorf("pool input out of range")
	}
	return in.Uint64(), nil
}

// mulDivFloor is floor(v*num/den) without intermediate overflow.
func mulDivFloor(v, num, den uint64) uint64 {
	r := new(big.Int).Mul(new(big.Int).SetUint64(v), new(big.Int).SetUint64(num))
	return r.Div(r, new(big.Int).SetUint64(den)).Uint64()
}

// mulDivCeil is ceil(v*num/den) without intermediate overflow.
func mulDivCeil(v, num, den uint64) uint64 {
	r := new(big.Int).Mul(new(big.Int).SetUint64(v), new(big.Int).SetUint64(num))
	return ceilDiv(r, new(big.Int).SetUint64(den)).Uint64()
}

func ceilDiv(num, den *big.Int) *big.Int {
	q, m := new(big.Int).QuoRem(num, den, new(big.Int))
	if m.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// rateString renders buy-per-sell in conventional units. Display only; all
// bounds are computed on raw integers before this runs.
func rateString(rawSell, rawBuy uint64, sellUI, buyUI fswap.UnitInfo) string {
	if rawSell == 0 {
		return "0"
	}
	num := decimal.NewFromBigInt(new(big.Int).SetUint64(rawBuy), 0).
		Mul(decimal.New(int64(sellUI.Conventional.ConversionFactor), 0))
	den := decimal.NewFromBigInt(new(big.Int).SetUint64(rawSell), 0).
		Mul(decimal.New(int64(buyUI.Conventional.ConversionFactor), 0))
	return num.DivRound(den, 8).String()
}
